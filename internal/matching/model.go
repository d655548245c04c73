package matching

import (
	"time"

	"github.com/google/uuid"
)

type MeetingStatus string

const (
	MeetingConfirmed MeetingStatus = "confirmed"
	MeetingCancelled MeetingStatus = "cancelled"
)

type Caregiver struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type FamilyMember struct {
	ID        uuid.UUID
	Name      string
	Phone     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Patient struct {
	ID             uuid.UUID
	Name           string
	CaregiverID    uuid.UUID
	FamilyMemberID uuid.UUID
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Assignment pairs one patient with the single slot chosen for them.
// Produced in memory by the engine, consumed immediately by the committer.
type Assignment struct {
	PatientID uuid.UUID
	Slot      string
}

type MeetingRecord struct {
	ID             uuid.UUID
	CaregiverID    uuid.UUID
	FamilyMemberID uuid.UUID
	PatientID      uuid.UUID
	MeetingAt      time.Time
	EnterFrom      time.Time
	EnterUntil     time.Time
	Status         MeetingStatus
	MatchedBy      string
	Deleted        bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type EventLog struct {
	ID        int64
	EventType string
	MeetingID *uuid.UUID
	Payload   []byte
	CreatedAt time.Time
}
