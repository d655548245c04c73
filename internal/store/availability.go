package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SchemaVersion is embedded in every stored value so stale-format entries
// fail decoding instead of being silently misparsed.
const SchemaVersion = 1

// SlotLayout is the wire form of a slot token, e.g. 202609041030.
// Keeping date and time in one sortable token makes date filtering a
// plain string-prefix check.
const SlotLayout = "200601021504"

// DateLayout is the date prefix of a slot token, e.g. 20260904.
const DateLayout = "20060102"

const (
	RequestStatusSubmitted = "submitted"
	RequestStatusMatched   = "matched"
)

var ErrSchemaVersion = errors.New("unsupported availability schema version")

// CaregiverSchedule is the value stored under employee:schedule:{caregiverId}.
type CaregiverSchedule struct {
	SchemaVersion int         `json:"schemaVersion"`
	Patients      []uuid.UUID `json:"patients"`
	AvailableTime []string    `json:"availableTime"`
	CreatedAt     time.Time   `json:"createdAt"`
	ExpiresAt     time.Time   `json:"expiresAt"`
}

// PatientRequest is the value stored under senior:request:{patientId}.
type PatientRequest struct {
	SchemaVersion int       `json:"schemaVersion"`
	RequestedBy   uuid.UUID `json:"requestedBy"`
	AvailableTime []string  `json:"availableTime"`
	RequestedAt   time.Time `json:"requestedAt"`
	Status        string    `json:"status"`
}

// Store holds not-yet-matched availability in Redis under a fixed TTL.
// It offers plain get/set/delete only; atomicity across operations is the
// caller's job (the orchestrator holds a per-caregiver lock for that).
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

func New(client *redis.Client, ttl time.Duration) *Store {
	return &Store{
		client: client,
		ttl:    ttl,
	}
}

func caregiverKey(id uuid.UUID) string {
	return fmt.Sprintf("employee:schedule:%s", id.String())
}

func patientKey(id uuid.UUID) string {
	return fmt.Sprintf("senior:request:%s", id.String())
}

func (s *Store) PutCaregiverSchedule(ctx context.Context, caregiverID uuid.UUID, patientIDs []uuid.UUID, slots []string) error {
	now := time.Now()
	sched := CaregiverSchedule{
		SchemaVersion: SchemaVersion,
		Patients:      patientIDs,
		AvailableTime: slots,
		CreatedAt:     now,
		ExpiresAt:     now.Add(s.ttl),
	}

	data, err := json.Marshal(sched)
	if err != nil {
		return fmt.Errorf("marshal caregiver schedule: %w", err)
	}

	if err := s.client.Set(ctx, caregiverKey(caregiverID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("put caregiver schedule: %w", err)
	}
	return nil
}

// GetCaregiverSchedule returns (nil, nil) when no schedule is stored.
func (s *Store) GetCaregiverSchedule(ctx context.Context, caregiverID uuid.UUID) (*CaregiverSchedule, error) {
	data, err := s.client.Get(ctx, caregiverKey(caregiverID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get caregiver schedule: %w", err)
	}

	var sched CaregiverSchedule
	if err := json.Unmarshal(data, &sched); err != nil {
		return nil, fmt.Errorf("decode caregiver schedule: %w", err)
	}
	if sched.SchemaVersion != SchemaVersion {
		return nil, fmt.Errorf("decode caregiver schedule %s: %w: got %d", caregiverID, ErrSchemaVersion, sched.SchemaVersion)
	}
	return &sched, nil
}

// ReplaceCaregiverSchedule rewrites the slot set of an existing schedule,
// keeping the remaining TTL so a matching run does not extend retention.
// A missing schedule is a no-op.
func (s *Store) ReplaceCaregiverSchedule(ctx context.Context, caregiverID uuid.UUID, newSlots []string) error {
	sched, err := s.GetCaregiverSchedule(ctx, caregiverID)
	if err != nil {
		return err
	}
	if sched == nil {
		return nil
	}

	sched.AvailableTime = newSlots

	data, err := json.Marshal(sched)
	if err != nil {
		return fmt.Errorf("marshal caregiver schedule: %w", err)
	}

	if err := s.client.Set(ctx, caregiverKey(caregiverID), data, redis.KeepTTL).Err(); err != nil {
		return fmt.Errorf("replace caregiver schedule: %w", err)
	}
	return nil
}

func (s *Store) PutPatientRequest(ctx context.Context, patientID, familyMemberID uuid.UUID, slots []string) error {
	req := PatientRequest{
		SchemaVersion: SchemaVersion,
		RequestedBy:   familyMemberID,
		AvailableTime: slots,
		RequestedAt:   time.Now(),
		Status:        RequestStatusSubmitted,
	}

	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal patient request: %w", err)
	}

	if err := s.client.Set(ctx, patientKey(patientID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("put patient request: %w", err)
	}
	return nil
}

// GetPatientRequest returns (nil, nil) when no request is stored.
func (s *Store) GetPatientRequest(ctx context.Context, patientID uuid.UUID) (*PatientRequest, error) {
	data, err := s.client.Get(ctx, patientKey(patientID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get patient request: %w", err)
	}

	var req PatientRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("decode patient request: %w", err)
	}
	if req.SchemaVersion != SchemaVersion {
		return nil, fmt.Errorf("decode patient request %s: %w: got %d", patientID, ErrSchemaVersion, req.SchemaVersion)
	}
	return &req, nil
}

// DeletePatientRequest removes a consumed request. Deleting a missing key
// is not an error.
func (s *Store) DeletePatientRequest(ctx context.Context, patientID uuid.UUID) error {
	if err := s.client.Del(ctx, patientKey(patientID)).Err(); err != nil {
		return fmt.Errorf("delete patient request: %w", err)
	}
	return nil
}
