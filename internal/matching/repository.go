package matching

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrCaregiverNotFound    = errors.New("caregiver not found")
	ErrFamilyMemberNotFound = errors.New("family member not found")
	ErrPatientNotFound      = errors.New("patient not found")
	ErrMeetingNotFound      = errors.New("meeting not found")
)

// Repository contains all DB interactions needed by the matching run.
type Repository interface {
	GetCaregiverByID(ctx context.Context, id uuid.UUID) (*Caregiver, error)
	GetFamilyMemberByID(ctx context.Context, id uuid.UUID) (*FamilyMember, error)
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)

	// For the orchestrator loop
	ListCaregiverIDs(ctx context.Context) ([]uuid.UUID, error)

	// Durable meeting records
	CreateMeetingRecord(ctx context.Context, rec MeetingRecord) (*MeetingRecord, error)
	GetMeetingByID(ctx context.Context, id uuid.UUID) (*MeetingRecord, error)
	ListMeetingsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]MeetingRecord, error)

	// Event logging
	InsertEvent(ctx context.Context, ev EventLog) error
}
