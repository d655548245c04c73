package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) (*miniredis.Miniredis, *redis.Client, *Store) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	return mr, client, New(client, 7*24*time.Hour)
}

func TestStore_CaregiverScheduleRoundtrip(t *testing.T) {
	_, client, s := setupTestStore(t)
	ctx := context.Background()

	caregiverID := uuid.New()
	patients := []uuid.UUID{uuid.New(), uuid.New()}
	slots := []string{"202609040900", "202609041000"}

	require.NoError(t, s.PutCaregiverSchedule(ctx, caregiverID, patients, slots))

	sched, err := s.GetCaregiverSchedule(ctx, caregiverID)
	require.NoError(t, err)
	require.NotNil(t, sched)
	assert.Equal(t, SchemaVersion, sched.SchemaVersion)
	assert.Equal(t, patients, sched.Patients)
	assert.Equal(t, slots, sched.AvailableTime)
	assert.WithinDuration(t, sched.CreatedAt.Add(7*24*time.Hour), sched.ExpiresAt, time.Second)

	ttl, err := client.TTL(ctx, "employee:schedule:"+caregiverID.String()).Result()
	require.NoError(t, err)
	assert.InDelta(t, (7 * 24 * time.Hour).Seconds(), ttl.Seconds(), 5)
}

func TestStore_GetCaregiverSchedule_Missing(t *testing.T) {
	_, _, s := setupTestStore(t)

	sched, err := s.GetCaregiverSchedule(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, sched)
}

func TestStore_ReplaceCaregiverSchedule(t *testing.T) {
	mr, _, s := setupTestStore(t)
	ctx := context.Background()

	caregiverID := uuid.New()
	patients := []uuid.UUID{uuid.New()}
	require.NoError(t, s.PutCaregiverSchedule(ctx, caregiverID, patients, []string{"202609040900", "202609041000", "202609041100"}))

	// A rewrite must not extend the retention window.
	mr.FastForward(24 * time.Hour)

	require.NoError(t, s.ReplaceCaregiverSchedule(ctx, caregiverID, []string{"202609041100"}))

	sched, err := s.GetCaregiverSchedule(ctx, caregiverID)
	require.NoError(t, err)
	require.NotNil(t, sched)
	assert.Equal(t, []string{"202609041100"}, sched.AvailableTime)
	assert.Equal(t, patients, sched.Patients)

	ttl := mr.TTL("employee:schedule:" + caregiverID.String())
	assert.LessOrEqual(t, ttl, 6*24*time.Hour)
	assert.Greater(t, ttl, 5*24*time.Hour)
}

func TestStore_ReplaceCaregiverSchedule_Missing(t *testing.T) {
	_, _, s := setupTestStore(t)

	assert.NoError(t, s.ReplaceCaregiverSchedule(context.Background(), uuid.New(), []string{"202609040900"}))
}

func TestStore_PatientRequestRoundtrip(t *testing.T) {
	_, _, s := setupTestStore(t)
	ctx := context.Background()

	patientID := uuid.New()
	familyMemberID := uuid.New()
	slots := []string{"202609041000", "202609041400"}

	require.NoError(t, s.PutPatientRequest(ctx, patientID, familyMemberID, slots))

	req, err := s.GetPatientRequest(ctx, patientID)
	require.NoError(t, err)
	require.NotNil(t, req)
	assert.Equal(t, familyMemberID, req.RequestedBy)
	assert.Equal(t, slots, req.AvailableTime)
	assert.Equal(t, RequestStatusSubmitted, req.Status)
}

func TestStore_GetPatientRequest_Missing(t *testing.T) {
	_, _, s := setupTestStore(t)

	req, err := s.GetPatientRequest(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, req)
}

func TestStore_DeletePatientRequest(t *testing.T) {
	_, _, s := setupTestStore(t)
	ctx := context.Background()

	patientID := uuid.New()
	require.NoError(t, s.PutPatientRequest(ctx, patientID, uuid.New(), []string{"202609041000"}))

	require.NoError(t, s.DeletePatientRequest(ctx, patientID))

	req, err := s.GetPatientRequest(ctx, patientID)
	require.NoError(t, err)
	assert.Nil(t, req)

	// Deleting again is not an error.
	assert.NoError(t, s.DeletePatientRequest(ctx, patientID))
}

func TestStore_SchemaVersionMismatch(t *testing.T) {
	mr, _, s := setupTestStore(t)
	ctx := context.Background()

	caregiverID := uuid.New()
	require.NoError(t, mr.Set("employee:schedule:"+caregiverID.String(), `{"schemaVersion":99,"patients":[],"availableTime":[]}`))

	_, err := s.GetCaregiverSchedule(ctx, caregiverID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSchemaVersion)

	patientID := uuid.New()
	require.NoError(t, mr.Set("senior:request:"+patientID.String(), `{"schemaVersion":99,"availableTime":[]}`))

	_, err = s.GetPatientRequest(ctx, patientID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSchemaVersion)
}
