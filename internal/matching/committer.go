package matching

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/carebridge/consult-matching/internal/config"
	"github.com/carebridge/consult-matching/internal/store"
)

// AlgorithmTag is written into each meeting record's provenance column.
const AlgorithmTag = "backtracking-max-match/v1"

const (
	EventMeetingMatched = "MEETING_MATCHED"
	EventCommitAborted  = "COMMIT_ABORTED"
)

var ErrUnknownAssignment = errors.New("assignment has no loaded patient request")

// Committer turns an in-memory assignment into durable meeting records and
// retires the consumed availability from the ephemeral store.
type Committer struct {
	repo  Repository
	avail *store.Store
	cfg   config.Config
}

func NewCommitter(repo Repository, avail *store.Store, cfg config.Config) *Committer {
	return &Committer{
		repo:  repo,
		avail: avail,
		cfg:   cfg,
	}
}

// Commit processes each pair in order: resolve identities, insert the
// meeting record, delete the consumed patient request. A pair failure
// returns immediately and the remaining pairs are not attempted; pairs
// already committed are not rolled back. Only after every pair succeeds is
// the caregiver's schedule rewritten with the matched slots removed.
func (c *Committer) Commit(ctx context.Context, caregiverID uuid.UUID, sched *store.CaregiverSchedule, requests map[uuid.UUID]*store.PatientRequest, assignments []Assignment) (int, error) {
	matched := make(map[string]bool, len(assignments))
	committed := 0

	for _, a := range assignments {
		req, ok := requests[a.PatientID]
		if !ok {
			return committed, fmt.Errorf("patient %s: %w", a.PatientID, ErrUnknownAssignment)
		}

		if err := c.commitPair(ctx, caregiverID, req.RequestedBy, a); err != nil {
			c.logEvent(ctx, nil, EventCommitAborted, map[string]any{
				"caregiver_id": caregiverID.String(),
				"patient_id":   a.PatientID.String(),
				"slot":         a.Slot,
				"committed":    committed,
				"reason":       err.Error(),
			})
			return committed, err
		}

		matched[a.Slot] = true
		committed++
	}

	if committed == 0 {
		return 0, nil
	}

	remaining := make([]string, 0, len(sched.AvailableTime))
	for _, slot := range sched.AvailableTime {
		if !matched[slot] {
			remaining = append(remaining, slot)
		}
	}

	if err := c.avail.ReplaceCaregiverSchedule(ctx, caregiverID, remaining); err != nil {
		return committed, fmt.Errorf("retire matched slots: %w", err)
	}

	return committed, nil
}

func (c *Committer) commitPair(ctx context.Context, caregiverID, familyMemberID uuid.UUID, a Assignment) error {
	caregiver, err := c.repo.GetCaregiverByID(ctx, caregiverID)
	if err != nil {
		return fmt.Errorf("resolve caregiver %s: %w", caregiverID, err)
	}
	familyMember, err := c.repo.GetFamilyMemberByID(ctx, familyMemberID)
	if err != nil {
		return fmt.Errorf("resolve family member %s: %w", familyMemberID, err)
	}
	patient, err := c.repo.GetPatientByID(ctx, a.PatientID)
	if err != nil {
		return fmt.Errorf("resolve patient %s: %w", a.PatientID, err)
	}

	meetingAt, err := time.ParseInLocation(store.SlotLayout, a.Slot, time.Local)
	if err != nil {
		return fmt.Errorf("parse slot %q: %w", a.Slot, err)
	}

	rec := MeetingRecord{
		CaregiverID:    caregiver.ID,
		FamilyMemberID: familyMember.ID,
		PatientID:      patient.ID,
		MeetingAt:      meetingAt,
		EnterFrom:      meetingAt.Add(-c.cfg.EnterLead),
		EnterUntil:     meetingAt.Add(c.cfg.EnterTrail),
		Status:         MeetingConfirmed,
		MatchedBy:      AlgorithmTag,
	}

	created, err := c.repo.CreateMeetingRecord(ctx, rec)
	if err != nil {
		return fmt.Errorf("create meeting record: %w", err)
	}

	c.logEvent(ctx, &created.ID, EventMeetingMatched, map[string]any{
		"caregiver_id":     caregiver.ID.String(),
		"family_member_id": familyMember.ID.String(),
		"patient_id":       patient.ID.String(),
		"slot":             a.Slot,
	})

	if err := c.avail.DeletePatientRequest(ctx, a.PatientID); err != nil {
		return fmt.Errorf("retire patient request %s: %w", a.PatientID, err)
	}

	return nil
}

func (c *Committer) logEvent(ctx context.Context, meetingID *uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("failed to marshal event payload for %s: %v", eventType, err)
		data = nil
	}

	ev := EventLog{
		EventType: eventType,
		MeetingID: meetingID,
		Payload:   data,
		CreatedAt: time.Now(),
	}

	if err := c.repo.InsertEvent(ctx, ev); err != nil {
		log.Printf("failed to insert event log %s: %v", eventType, err)
	}
}
