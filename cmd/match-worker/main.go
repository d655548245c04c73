package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/carebridge/consult-matching/internal/config"
	"github.com/carebridge/consult-matching/internal/db"
	"github.com/carebridge/consult-matching/internal/matching"
	redisclient "github.com/carebridge/consult-matching/internal/redis"
	"github.com/carebridge/consult-matching/internal/store"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("match-worker starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running match worker in env=%s cron=%q lookahead_days=%d", cfg.Env, cfg.MatchCron, cfg.LookaheadDays)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatalf("postgres connection error: %v", err)
	}
	defer pgPool.Close()
	log.Println("connected to Postgres")

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("redis connection error: %v", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Printf("error closing redis: %v", err)
		}
	}()
	log.Println("connected to Redis")

	repo := matching.NewPgRepository(pgPool)
	avail := store.New(rdb, cfg.AvailabilityTTL)
	locker := redisclient.NewRedisRunLocker(rdb, cfg.RunLockTTL)
	committer := matching.NewCommitter(repo, avail, cfg)
	orchestrator := matching.NewOrchestrator(repo, avail, committer, locker, cfg)

	if os.Getenv("MATCH_RUN_ON_START") == "true" {
		runOnce(rootCtx, orchestrator)
	}

	c := cron.New()
	if _, err := c.AddFunc(cfg.MatchCron, func() {
		runOnce(rootCtx, orchestrator)
	}); err != nil {
		log.Fatalf("invalid MATCH_CRON %q: %v", cfg.MatchCron, err)
	}
	c.Start()

	<-rootCtx.Done()

	log.Println("shutdown signal received, stopping match worker")
	<-c.Stop().Done()
}

func runOnce(ctx context.Context, orchestrator *matching.Orchestrator) {
	runCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()

	start := time.Now()
	summary, err := orchestrator.RunScheduled(runCtx)
	if err != nil {
		log.Printf("match run error: %v", err)
		return
	}
	log.Printf("match run complete target=%s caregivers=%d meetings=%d skipped=%d failed=%d duration=%s",
		summary.TargetDate, summary.Caregivers, summary.Meetings, summary.Skipped, summary.Failed, time.Since(start))
}
