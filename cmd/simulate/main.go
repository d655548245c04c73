package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carebridge/consult-matching/internal/config"
	"github.com/carebridge/consult-matching/internal/db"
	redisclient "github.com/carebridge/consult-matching/internal/redis"
	"github.com/carebridge/consult-matching/internal/store"
)

// simulate fills the ephemeral store with random availability and requests
// for a target date, triggers an on-demand run over HTTP, and reports what
// the run committed.
func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	baseURL := flag.String("api", "http://127.0.0.1:8080", "api-server base URL")
	targetDate := flag.String("date", time.Now().AddDate(0, 0, 3).Format(store.DateLayout), "target date (YYYYMMDD)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("connect redis: %v", err)
	}
	defer rdb.Close()

	avail := store.New(rdb, cfg.AvailabilityTTL)

	gofakeit.Seed(time.Now().UnixNano())

	caregivers, err := loadAssignments(ctx, pool)
	if err != nil {
		log.Fatalf("load assignments: %v", err)
	}
	log.Printf("loaded %d caregivers with assigned patients", len(caregivers))

	day, err := time.ParseInLocation(store.DateLayout, *targetDate, time.Local)
	if err != nil {
		log.Fatalf("invalid -date %q: %v", *targetDate, err)
	}

	if err := populateStore(ctx, avail, caregivers, day); err != nil {
		log.Fatalf("populate store: %v", err)
	}

	summary, err := triggerRun(ctx, *baseURL, *targetDate)
	if err != nil {
		log.Fatalf("trigger run: %v", err)
	}

	fmt.Printf("run complete: target=%s caregivers=%d meetings=%d skipped=%d failed=%d\n",
		summary.TargetDate, summary.Caregivers, summary.Meetings, summary.Skipped, summary.Failed)
}

type caregiverAssignments struct {
	CaregiverID uuid.UUID
	Patients    []patientAssignment
}

type patientAssignment struct {
	PatientID      uuid.UUID
	FamilyMemberID uuid.UUID
}

func loadAssignments(ctx context.Context, pool *pgxpool.Pool) ([]caregiverAssignments, error) {
	rows, err := pool.Query(ctx, `
		SELECT caregiver_id, id, family_member_id
		FROM patients
		ORDER BY caregiver_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byCaregiver := make(map[uuid.UUID][]patientAssignment)
	var order []uuid.UUID
	for rows.Next() {
		var caregiverID uuid.UUID
		var pa patientAssignment
		if err := rows.Scan(&caregiverID, &pa.PatientID, &pa.FamilyMemberID); err != nil {
			return nil, err
		}
		if _, seen := byCaregiver[caregiverID]; !seen {
			order = append(order, caregiverID)
		}
		byCaregiver[caregiverID] = append(byCaregiver[caregiverID], pa)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := make([]caregiverAssignments, 0, len(order))
	for _, id := range order {
		result = append(result, caregiverAssignments{CaregiverID: id, Patients: byCaregiver[id]})
	}
	return result, nil
}

func populateStore(ctx context.Context, avail *store.Store, caregivers []caregiverAssignments, day time.Time) error {
	// Working hours 09:00-17:00, one slot per hour.
	allSlots := make([]string, 0, 8)
	for h := 9; h < 17; h++ {
		allSlots = append(allSlots, day.Add(time.Duration(h)*time.Hour).Format(store.SlotLayout))
	}

	for _, c := range caregivers {
		patientIDs := make([]uuid.UUID, 0, len(c.Patients))
		for _, p := range c.Patients {
			patientIDs = append(patientIDs, p.PatientID)
		}

		if err := avail.PutCaregiverSchedule(ctx, c.CaregiverID, patientIDs, pickSlots(allSlots, 3, len(allSlots))); err != nil {
			return err
		}

		for _, p := range c.Patients {
			if gofakeit.Bool() {
				// Some families submit nothing; the run must cope.
				continue
			}
			if err := avail.PutPatientRequest(ctx, p.PatientID, p.FamilyMemberID, pickSlots(allSlots, 1, 4)); err != nil {
				return err
			}
		}
	}
	return nil
}

// pickSlots returns a random subset of between min and max slots.
func pickSlots(all []string, min, max int) []string {
	n := gofakeit.Number(min, max)
	if n > len(all) {
		n = len(all)
	}
	shuffled := append([]string(nil), all...)
	for i := len(shuffled) - 1; i > 0; i-- {
		j := gofakeit.Number(0, i)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return shuffled[:n]
}

type runSummaryResponse struct {
	Status     string `json:"status"`
	TargetDate string `json:"target_date"`
	Caregivers int    `json:"caregivers"`
	Meetings   int    `json:"meetings"`
	Skipped    int    `json:"skipped"`
	Failed     int    `json:"failed"`
}

func triggerRun(ctx context.Context, baseURL, targetDate string) (*runSummaryResponse, error) {
	body, err := json.Marshal(map[string]string{"target_date": targetDate})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/matching/runs", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, raw)
	}

	var summary runSummaryResponse
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		return nil, err
	}
	return &summary, nil
}
