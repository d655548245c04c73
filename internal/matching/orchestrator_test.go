package matching

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisclient "github.com/carebridge/consult-matching/internal/redis"
	"github.com/carebridge/consult-matching/internal/store"
)

type orchestratorFixture struct {
	repo  *fakeRepo
	avail *store.Store
	orc   *Orchestrator
	mr    *miniredis.Miniredis
}

func setupOrchestrator(t *testing.T) (*fakeRepo, *store.Store, *Orchestrator) {
	t.Helper()
	f := setupOrchestratorFixture(t)
	return f.repo, f.avail, f.orc
}

func setupOrchestratorFixture(t *testing.T) orchestratorFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := testConfig()
	repo := newFakeRepo()
	avail := store.New(client, cfg.AvailabilityTTL)
	locker := redisclient.NewRedisRunLocker(client, cfg.RunLockTTL)
	committer := NewCommitter(repo, avail, cfg)
	return orchestratorFixture{
		repo:  repo,
		avail: avail,
		orc:   NewOrchestrator(repo, avail, committer, locker, cfg),
		mr:    mr,
	}
}

func TestOrchestrator_RejectsMalformedDate(t *testing.T) {
	_, _, orc := setupOrchestrator(t)

	for _, bad := range []string{"", "2026-09-04", "20261340", "tomorrow", "202609"} {
		_, err := orc.RunForDate(context.Background(), bad)
		assert.ErrorIs(t, err, ErrInvalidTargetDate, "input %q", bad)
	}
}

func TestOrchestrator_CleanMultiMatchRun(t *testing.T) {
	repo, avail, orc := setupOrchestrator(t)
	ctx := context.Background()

	caregiverID := repo.addCaregiver()
	p1, f1 := repo.addPatient(caregiverID)
	p2, f2 := repo.addPatient(caregiverID)
	p3, f3 := repo.addPatient(caregiverID)
	p4, _ := repo.addPatient(caregiverID) // never submits a request

	// One slot belongs to another date and must survive the run.
	require.NoError(t, avail.PutCaregiverSchedule(ctx, caregiverID, []uuid.UUID{p1, p2, p3, p4}, []string{
		"202609040900", "202609041000", "202609041100", "202609051500",
	}))
	require.NoError(t, avail.PutPatientRequest(ctx, p1, f1, []string{"202609040900", "202609041000"}))
	require.NoError(t, avail.PutPatientRequest(ctx, p2, f2, []string{"202609041000"}))
	require.NoError(t, avail.PutPatientRequest(ctx, p3, f3, []string{"202609041100"}))

	summary, err := orc.RunForDate(ctx, "20260904")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Caregivers)
	assert.Equal(t, 3, summary.Meetings)
	assert.Zero(t, summary.Skipped)
	assert.Zero(t, summary.Failed)

	require.Len(t, repo.meetings, 3)
	seenPatients := make(map[uuid.UUID]bool)
	seenSlots := make(map[string]bool)
	for _, m := range repo.meetings {
		assert.False(t, seenPatients[m.PatientID])
		seenPatients[m.PatientID] = true
		slot := m.MeetingAt.Format(store.SlotLayout)
		assert.False(t, seenSlots[slot])
		seenSlots[slot] = true
	}

	for _, pid := range []uuid.UUID{p1, p2, p3} {
		req, err := avail.GetPatientRequest(ctx, pid)
		require.NoError(t, err)
		assert.Nil(t, req, "request for %s should be consumed", pid)
	}

	sched, err := avail.GetCaregiverSchedule(ctx, caregiverID)
	require.NoError(t, err)
	require.NotNil(t, sched)
	assert.Equal(t, []string{"202609051500"}, sched.AvailableTime)
}

func TestOrchestrator_NoOverlapLeavesStateUntouched(t *testing.T) {
	repo, avail, orc := setupOrchestrator(t)
	ctx := context.Background()

	caregiverID := repo.addCaregiver()
	p1, f1 := repo.addPatient(caregiverID)

	require.NoError(t, avail.PutCaregiverSchedule(ctx, caregiverID, []uuid.UUID{p1}, []string{"202609040900"}))
	require.NoError(t, avail.PutPatientRequest(ctx, p1, f1, []string{"202609041400"}))

	summary, err := orc.RunForDate(ctx, "20260904")
	require.NoError(t, err)
	assert.Zero(t, summary.Meetings)
	assert.Empty(t, repo.meetings)

	sched, err := avail.GetCaregiverSchedule(ctx, caregiverID)
	require.NoError(t, err)
	require.NotNil(t, sched)
	assert.Equal(t, []string{"202609040900"}, sched.AvailableTime)

	req, err := avail.GetPatientRequest(ctx, p1)
	require.NoError(t, err)
	assert.NotNil(t, req)
}

func TestOrchestrator_NoAvailability(t *testing.T) {
	repo, _, orc := setupOrchestrator(t)

	repo.addCaregiver()

	summary, err := orc.RunForDate(context.Background(), "20260904")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Caregivers)
	assert.Zero(t, summary.Meetings)
	assert.Zero(t, summary.Failed)
}

func TestOrchestrator_CaregiverIsolation(t *testing.T) {
	repo, avail, orc := setupOrchestrator(t)
	ctx := context.Background()

	healthyID := repo.addCaregiver()
	hp, hf := repo.addPatient(healthyID)
	require.NoError(t, avail.PutCaregiverSchedule(ctx, healthyID, []uuid.UUID{hp}, []string{"202609040900"}))
	require.NoError(t, avail.PutPatientRequest(ctx, hp, hf, []string{"202609040900"}))

	brokenID := repo.addCaregiver()
	bp, bf := repo.addPatient(brokenID)
	delete(repo.familyMembers, bf) // resolution will fail during commit
	require.NoError(t, avail.PutCaregiverSchedule(ctx, brokenID, []uuid.UUID{bp}, []string{"202609041000"}))
	require.NoError(t, avail.PutPatientRequest(ctx, bp, bf, []string{"202609041000"}))

	summary, err := orc.RunForDate(ctx, "20260904")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Caregivers)
	assert.Equal(t, 1, summary.Meetings)
	assert.Equal(t, 1, summary.Failed)

	// The healthy caregiver's match committed despite the other's failure.
	require.Len(t, repo.meetings, 1)
	assert.Equal(t, healthyID, repo.meetings[0].CaregiverID)
}

func TestOrchestrator_LockedCaregiverIsSkipped(t *testing.T) {
	f := setupOrchestratorFixture(t)
	repo, avail, orc := f.repo, f.avail, f.orc
	ctx := context.Background()

	caregiverID := repo.addCaregiver()
	p1, f1 := repo.addPatient(caregiverID)
	require.NoError(t, avail.PutCaregiverSchedule(ctx, caregiverID, []uuid.UUID{p1}, []string{"202609040900"}))
	require.NoError(t, avail.PutPatientRequest(ctx, p1, f1, []string{"202609040900"}))

	// Another run already owns this caregiver.
	require.NoError(t, f.mr.Set("lock:matchrun:"+caregiverID.String(), "other-run"))

	summary, err := orc.RunForDate(ctx, "20260904")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)
	assert.Zero(t, summary.Meetings)
	assert.Empty(t, repo.meetings)

	// Untouched: the owning run is responsible for this caregiver.
	req, err := avail.GetPatientRequest(ctx, p1)
	require.NoError(t, err)
	assert.NotNil(t, req)
}
