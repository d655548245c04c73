package matching

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanCaregiver(row pgx.Row) (*Caregiver, error) {
	var c Caregiver
	var email *string

	err := row.Scan(
		&c.ID,
		&c.Name,
		&email,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCaregiverNotFound
		}
		return nil, err
	}

	c.Email = email
	return &c, nil
}

func scanFamilyMember(row pgx.Row) (*FamilyMember, error) {
	var f FamilyMember
	var phone *string

	err := row.Scan(
		&f.ID,
		&f.Name,
		&phone,
		&f.CreatedAt,
		&f.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrFamilyMemberNotFound
		}
		return nil, err
	}

	f.Phone = phone
	return &f, nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient

	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.CaregiverID,
		&p.FamilyMemberID,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	return &p, nil
}

func scanMeeting(row pgx.Row) (*MeetingRecord, error) {
	var m MeetingRecord

	err := row.Scan(
		&m.ID,
		&m.CaregiverID,
		&m.FamilyMemberID,
		&m.PatientID,
		&m.MeetingAt,
		&m.EnterFrom,
		&m.EnterUntil,
		&m.Status,
		&m.MatchedBy,
		&m.Deleted,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMeetingNotFound
		}
		return nil, err
	}

	return &m, nil
}

// Interface methods

func (r *PgRepository) GetCaregiverByID(ctx context.Context, id uuid.UUID) (*Caregiver, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, email, created_at, updated_at
		FROM caregivers
		WHERE id = $1
	`, id)
	return scanCaregiver(row)
}

func (r *PgRepository) GetFamilyMemberByID(ctx context.Context, id uuid.UUID) (*FamilyMember, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, phone, created_at, updated_at
		FROM family_members
		WHERE id = $1
	`, id)
	return scanFamilyMember(row)
}

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, caregiver_id, family_member_id, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) ListCaregiverIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id
		FROM caregivers
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return ids, nil
}

func (r *PgRepository) CreateMeetingRecord(ctx context.Context, rec MeetingRecord) (*MeetingRecord, error) {
	id := uuid.New()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO meeting_records
			(id, caregiver_id, family_member_id, patient_id, meeting_at,
			 enter_from, enter_until, status, matched_by, deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, false, now(), now())
		RETURNING id, caregiver_id, family_member_id, patient_id, meeting_at,
		          enter_from, enter_until, status, matched_by, deleted, created_at, updated_at
	`, id, rec.CaregiverID, rec.FamilyMemberID, rec.PatientID, rec.MeetingAt,
		rec.EnterFrom, rec.EnterUntil, rec.Status, rec.MatchedBy)

	return scanMeeting(row)
}

func (r *PgRepository) GetMeetingByID(ctx context.Context, id uuid.UUID) (*MeetingRecord, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, caregiver_id, family_member_id, patient_id, meeting_at,
		       enter_from, enter_until, status, matched_by, deleted, created_at, updated_at
		FROM meeting_records
		WHERE id = $1 AND NOT deleted
	`, id)
	return scanMeeting(row)
}

func (r *PgRepository) ListMeetingsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]MeetingRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, caregiver_id, family_member_id, patient_id, meeting_at,
		       enter_from, enter_until, status, matched_by, deleted, created_at, updated_at
		FROM meeting_records
		WHERE patient_id = $1 AND NOT deleted
		ORDER BY meeting_at DESC
		LIMIT $2 OFFSET $3
	`, patientID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []MeetingRecord
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *m)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	var meetingID *uuid.UUID
	if ev.MeetingID != nil {
		meetingID = ev.MeetingID
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, meeting_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, meetingID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
