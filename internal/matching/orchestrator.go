package matching

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/carebridge/consult-matching/internal/config"
	redisclient "github.com/carebridge/consult-matching/internal/redis"
	"github.com/carebridge/consult-matching/internal/store"
)

var ErrInvalidTargetDate = errors.New("target date must be in YYYYMMDD form")

// RunSummary reports what one full pass over all caregivers did.
type RunSummary struct {
	TargetDate string
	Caregivers int
	Meetings   int
	Skipped    int // caregivers another run currently owns
	Failed     int // caregivers whose commit aborted
}

// Orchestrator drives the per-caregiver load-match-commit-retire loop.
// Each caregiver is processed under a run lock so an overlapping nightly
// and on-demand invocation cannot double-book the same availability.
type Orchestrator struct {
	repo      Repository
	avail     *store.Store
	committer *Committer
	locker    redisclient.Locker
	cfg       config.Config
}

func NewOrchestrator(repo Repository, avail *store.Store, committer *Committer, locker redisclient.Locker, cfg config.Config) *Orchestrator {
	return &Orchestrator{
		repo:      repo,
		avail:     avail,
		committer: committer,
		locker:    locker,
		cfg:       cfg,
	}
}

// RunScheduled is the nightly entry point. The target date sits a fixed
// number of days ahead so families and caregivers have time to submit.
func (o *Orchestrator) RunScheduled(ctx context.Context) (RunSummary, error) {
	target := time.Now().AddDate(0, 0, o.cfg.LookaheadDays).Format(store.DateLayout)
	return o.RunForDate(ctx, target)
}

// RunForDate runs the matching loop for every caregiver against one
// target date. One caregiver's failure is logged and does not stop the
// run for the others.
func (o *Orchestrator) RunForDate(ctx context.Context, targetDate string) (RunSummary, error) {
	if _, err := time.Parse(store.DateLayout, targetDate); err != nil {
		return RunSummary{}, ErrInvalidTargetDate
	}

	caregiverIDs, err := o.repo.ListCaregiverIDs(ctx)
	if err != nil {
		return RunSummary{}, fmt.Errorf("list caregivers: %w", err)
	}

	summary := RunSummary{TargetDate: targetDate}

	for _, caregiverID := range caregiverIDs {
		summary.Caregivers++

		err := o.locker.WithCaregiverLock(ctx, caregiverID, func(lockCtx context.Context) error {
			meetings, err := o.runCaregiver(lockCtx, caregiverID, targetDate)
			summary.Meetings += meetings
			return err
		})
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			log.Printf("caregiver=%s target=%s skipped: another run holds the lock", caregiverID, targetDate)
			summary.Skipped++
			continue
		}
		if err != nil {
			log.Printf("caregiver=%s target=%s match failed: %v", caregiverID, targetDate, err)
			summary.Failed++
		}
	}

	return summary, nil
}

func (o *Orchestrator) runCaregiver(ctx context.Context, caregiverID uuid.UUID, targetDate string) (int, error) {
	sched, err := o.avail.GetCaregiverSchedule(ctx, caregiverID)
	if err != nil {
		return 0, err
	}
	if sched == nil {
		// No availability submitted; nothing to match.
		return 0, nil
	}

	available := slotsForDate(sched.AvailableTime, targetDate)

	requests := make(map[uuid.UUID]*store.PatientRequest)
	requested := make(map[uuid.UUID][]string)
	for _, patientID := range sched.Patients {
		req, err := o.avail.GetPatientRequest(ctx, patientID)
		if err != nil {
			return 0, err
		}
		if req == nil {
			continue
		}
		slots := slotsForDate(req.AvailableTime, targetDate)
		if len(slots) == 0 {
			continue
		}
		requests[patientID] = req
		requested[patientID] = slots
	}

	assignments := Solve(available, requested)
	if len(assignments) == 0 {
		return 0, nil
	}

	return o.committer.Commit(ctx, caregiverID, sched, requests, assignments)
}

// slotsForDate keeps the slot tokens whose date component matches the
// target date. Tokens are date-prefixed so this is a prefix check.
func slotsForDate(slots []string, targetDate string) []string {
	var filtered []string
	for _, slot := range slots {
		if strings.HasPrefix(slot, targetDate) {
			filtered = append(filtered, slot)
		}
	}
	return filtered
}
