package matching

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func slot(hhmm string) string {
	return "20260904" + hhmm
}

func TestSolve_CleanMultiMatch(t *testing.T) {
	p1 := uuid.New()
	p2 := uuid.New()
	p3 := uuid.New()

	available := []string{slot("0900"), slot("1000"), slot("1100")}
	requested := map[uuid.UUID][]string{
		p1: {slot("0900"), slot("1000")},
		p2: {slot("1000")},
		p3: {slot("1100")},
	}

	result := Solve(available, requested)

	require.Len(t, result, 3)
	assertConflictFree(t, result)
	assertMembership(t, result, available, requested)
}

func TestSolve_ContestedSlot(t *testing.T) {
	p1 := uuid.New()
	p2 := uuid.New()

	available := []string{slot("0900")}
	requested := map[uuid.UUID][]string{
		p1: {slot("0900")},
		p2: {slot("0900")},
	}

	result := Solve(available, requested)

	require.Len(t, result, 1)
	assert.Equal(t, slot("0900"), result[0].Slot)
	assert.Contains(t, []uuid.UUID{p1, p2}, result[0].PatientID)
}

func TestSolve_NoOverlap(t *testing.T) {
	p1 := uuid.New()

	available := []string{slot("0900")}
	requested := map[uuid.UUID][]string{
		p1: {slot("1400")},
	}

	result := Solve(available, requested)

	assert.Empty(t, result)
}

func TestSolve_EmptyInputs(t *testing.T) {
	assert.Empty(t, Solve(nil, nil))
	assert.Empty(t, Solve([]string{slot("0900")}, map[uuid.UUID][]string{}))
	assert.Empty(t, Solve(nil, map[uuid.UUID][]string{uuid.New(): {slot("0900")}}))
}

func TestSolve_Deterministic(t *testing.T) {
	p1 := uuid.New()
	p2 := uuid.New()
	p3 := uuid.New()

	available := []string{slot("1100"), slot("0900"), slot("1000")}
	requested := map[uuid.UUID][]string{
		p1: {slot("1000"), slot("0900")},
		p2: {slot("1000"), slot("1100")},
		p3: {slot("0900"), slot("1100")},
	}

	first := Solve(available, requested)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Solve(available, requested))
	}
}

func TestSolve_MatchesBruteForceSize(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	hours := []string{"0900", "1000", "1100", "1200", "1300", "1400"}

	for trial := 0; trial < 200; trial++ {
		nSlots := 1 + rng.Intn(len(hours))
		available := make([]string, 0, nSlots)
		for _, h := range hours[:nSlots] {
			available = append(available, slot(h))
		}

		nPatients := 1 + rng.Intn(5)
		requested := make(map[uuid.UUID][]string, nPatients)
		patients := make([]uuid.UUID, 0, nPatients)
		for i := 0; i < nPatients; i++ {
			id := uuid.New()
			patients = append(patients, id)
			var slots []string
			for _, h := range hours {
				if rng.Intn(2) == 0 {
					slots = append(slots, slot(h))
				}
			}
			requested[id] = slots
		}

		result := Solve(available, requested)

		label := fmt.Sprintf("trial %d: slots=%v requested=%v", trial, available, requested)
		assertConflictFree(t, result)
		assertMembership(t, result, available, requested)
		assert.Equal(t, bruteForceMax(available, patients, requested), len(result), label)
	}
}

// bruteForceMax enumerates every conflict-free assignment without pruning
// and returns the largest size found.
func bruteForceMax(available []string, patients []uuid.UUID, requested map[uuid.UUID][]string) int {
	avail := make(map[string]bool, len(available))
	for _, s := range available {
		avail[s] = true
	}

	var recurse func(idx int, used map[string]bool) int
	recurse = func(idx int, used map[string]bool) int {
		if idx == len(patients) {
			return 0
		}
		best := recurse(idx+1, used)
		for _, s := range requested[patients[idx]] {
			if !avail[s] || used[s] {
				continue
			}
			used[s] = true
			if n := 1 + recurse(idx+1, used); n > best {
				best = n
			}
			delete(used, s)
		}
		return best
	}

	return recurse(0, make(map[string]bool))
}

func assertConflictFree(t *testing.T, result []Assignment) {
	t.Helper()
	seenSlots := make(map[string]bool)
	seenPatients := make(map[uuid.UUID]bool)
	for _, a := range result {
		assert.False(t, seenSlots[a.Slot], "slot %s assigned twice", a.Slot)
		assert.False(t, seenPatients[a.PatientID], "patient %s assigned twice", a.PatientID)
		seenSlots[a.Slot] = true
		seenPatients[a.PatientID] = true
	}
}

func assertMembership(t *testing.T, result []Assignment, available []string, requested map[uuid.UUID][]string) {
	t.Helper()
	for _, a := range result {
		assert.Contains(t, available, a.Slot)
		assert.Contains(t, requested[a.PatientID], a.Slot)
	}
}
