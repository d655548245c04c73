package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/carebridge/consult-matching/internal/matching"
	"github.com/carebridge/consult-matching/internal/store"
)

type RouterConfig struct {
	Orchestrator *matching.Orchestrator
	Repo         matching.Repository
	Store        *store.Store
	PgPool       *pgxpool.Pool
	Redis        *redis.Client
	Env          string
	Version      string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// On-demand matching trigger
	r.Post("/matching/runs", triggerRunHandler(cfg.Orchestrator))

	// Availability submission boundary
	r.Put("/caregivers/{id}/schedule", putScheduleHandler(cfg.Store))
	r.Put("/patients/{id}/request", putRequestHandler(cfg.Store))

	// Meeting record reads
	r.Get("/meetings", listMeetingsHandler(cfg.Repo))
	r.Get("/meetings/{id}", getMeetingHandler(cfg.Repo))

	return r
}
