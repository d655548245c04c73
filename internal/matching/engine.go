package matching

import (
	"sort"

	"github.com/google/uuid"
)

// Solve computes a largest conflict-free assignment of a caregiver's
// available slots to the patients requesting them. Each returned pair's
// slot is a member of both the available set and that patient's requested
// set; no slot and no patient appears twice. This is maximum matching on
// a bipartite graph of patients versus slots, found by exhaustive
// backtracking with an admissible bound.
//
// Ties between equally large assignments resolve by uuid string order of
// patients and lexical order of slot tokens, so identical inputs always
// produce identical output.
func Solve(available []string, requested map[uuid.UUID][]string) []Assignment {
	avail := make(map[string]bool, len(available))
	for _, slot := range available {
		avail[slot] = true
	}

	patients := make([]uuid.UUID, 0, len(requested))
	for id := range requested {
		patients = append(patients, id)
	}
	sort.Slice(patients, func(i, j int) bool {
		return patients[i].String() < patients[j].String()
	})

	candidates := make(map[uuid.UUID][]string, len(patients))
	for _, id := range patients {
		seen := make(map[string]bool)
		var cands []string
		for _, slot := range requested[id] {
			if avail[slot] && !seen[slot] {
				seen[slot] = true
				cands = append(cands, slot)
			}
		}
		sort.Strings(cands)
		candidates[id] = cands
	}

	s := &solver{
		patients:   patients,
		candidates: candidates,
		used:       make(map[string]bool),
	}
	s.search(0)
	return s.best
}

// solver is the single mutable search frame. It is owned exclusively by
// one call stack; branches mutate used/current and undo before returning.
type solver struct {
	patients   []uuid.UUID
	candidates map[uuid.UUID][]string
	used       map[string]bool
	current    []Assignment
	best       []Assignment
}

func (s *solver) search(idx int) {
	if len(s.current) > len(s.best) {
		s.best = append([]Assignment(nil), s.current...)
	}
	if idx == len(s.patients) {
		return
	}
	// Even matching every remaining patient cannot beat the best found.
	if len(s.current)+(len(s.patients)-idx) <= len(s.best) {
		return
	}

	patient := s.patients[idx]
	for _, slot := range s.candidates[patient] {
		if s.used[slot] {
			continue
		}
		s.used[slot] = true
		s.current = append(s.current, Assignment{PatientID: patient, Slot: slot})

		s.search(idx + 1)

		s.current = s.current[:len(s.current)-1]
		delete(s.used, slot)
	}

	// Branch where this patient stays unmatched.
	s.search(idx + 1)
}
