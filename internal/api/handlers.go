package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/carebridge/consult-matching/internal/matching"
	"github.com/carebridge/consult-matching/internal/store"
)

func triggerRunHandler(orc *matching.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TriggerRunRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		summary, err := orc.RunForDate(r.Context(), req.TargetDate)
		if err != nil {
			if errors.Is(err, matching.ErrInvalidTargetDate) {
				writeError(w, http.StatusBadRequest, "invalid_target_date", err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusOK, TriggerRunResponse{
			Status:     "ok",
			TargetDate: summary.TargetDate,
			Caregivers: summary.Caregivers,
			Meetings:   summary.Meetings,
			Skipped:    summary.Skipped,
			Failed:     summary.Failed,
		})
	}
}

func putScheduleHandler(avail *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caregiverID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_caregiver_id", "id must be a valid UUID")
			return
		}

		var req PutScheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		patientIDs := make([]uuid.UUID, 0, len(req.Patients))
		for _, raw := range req.Patients {
			id, err := uuid.Parse(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_patient_id", "patients must be valid UUIDs")
				return
			}
			patientIDs = append(patientIDs, id)
		}

		if !validSlots(req.AvailableTime) {
			writeError(w, http.StatusBadRequest, "invalid_slot", "availableTime entries must be YYYYMMDDHHmm tokens")
			return
		}

		if err := avail.PutCaregiverSchedule(r.Context(), caregiverID, patientIDs, req.AvailableTime); err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func putRequestHandler(avail *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "id must be a valid UUID")
			return
		}

		var req PutRequestRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		familyMemberID, err := uuid.Parse(req.RequestedBy)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_family_member_id", "requestedBy must be a valid UUID")
			return
		}

		if !validSlots(req.AvailableTime) {
			writeError(w, http.StatusBadRequest, "invalid_slot", "availableTime entries must be YYYYMMDDHHmm tokens")
			return
		}

		if err := avail.PutPatientRequest(r.Context(), patientID, familyMemberID, req.AvailableTime); err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func getMeetingHandler(repo matching.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_meeting_id", "id must be a valid UUID")
			return
		}

		meeting, err := repo.GetMeetingByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, matching.ErrMeetingNotFound) {
				writeError(w, http.StatusNotFound, "meeting_not_found", err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusOK, meetingResponse(*meeting))
	}
}

func listMeetingsHandler(repo matching.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, err := uuid.Parse(r.URL.Query().Get("patient_id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}

		limit := queryInt(r, "limit", 20)
		if limit <= 0 {
			limit = 20
		}
		if limit > 100 {
			limit = 100
		}
		offset := queryInt(r, "offset", 0)
		if offset < 0 {
			offset = 0
		}

		meetings, err := repo.ListMeetingsByPatient(r.Context(), patientID, limit, offset)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		resp := make([]MeetingResponse, 0, len(meetings))
		for _, m := range meetings {
			resp = append(resp, meetingResponse(m))
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func meetingResponse(m matching.MeetingRecord) MeetingResponse {
	return MeetingResponse{
		ID:             m.ID,
		CaregiverID:    m.CaregiverID,
		FamilyMemberID: m.FamilyMemberID,
		PatientID:      m.PatientID,
		MeetingAt:      m.MeetingAt,
		EnterFrom:      m.EnterFrom,
		EnterUntil:     m.EnterUntil,
		Status:         string(m.Status),
		MatchedBy:      m.MatchedBy,
	}
}

func validSlots(slots []string) bool {
	for _, slot := range slots {
		if _, err := time.ParseInLocation(store.SlotLayout, slot, time.Local); err != nil {
			return false
		}
	}
	return true
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
