package api

import (
	"time"

	"github.com/google/uuid"
)

type TriggerRunRequest struct {
	TargetDate string `json:"target_date"`
}

type TriggerRunResponse struct {
	Status     string `json:"status"`
	TargetDate string `json:"target_date"`
	Caregivers int    `json:"caregivers"`
	Meetings   int    `json:"meetings"`
	Skipped    int    `json:"skipped"`
	Failed     int    `json:"failed"`
}

type PutScheduleRequest struct {
	Patients      []string `json:"patients"`
	AvailableTime []string `json:"availableTime"`
}

type PutRequestRequest struct {
	RequestedBy   string   `json:"requestedBy"`
	AvailableTime []string `json:"availableTime"`
}

type MeetingResponse struct {
	ID             uuid.UUID `json:"id"`
	CaregiverID    uuid.UUID `json:"caregiver_id"`
	FamilyMemberID uuid.UUID `json:"family_member_id"`
	PatientID      uuid.UUID `json:"patient_id"`
	MeetingAt      time.Time `json:"meeting_at"`
	EnterFrom      time.Time `json:"enter_from"`
	EnterUntil     time.Time `json:"enter_until"`
	Status         string    `json:"status"`
	MatchedBy      string    `json:"matched_by"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
