// Package classroom adapts the external classroom system's rosters. The
// engine only reads rosters to know who to notify when a session starts.
package classroom

import (
	"context"
	"fmt"
	"sync"

	"github.com/SaranshG2501/LifePath-sub000/pkg/interfaces"
	"github.com/SaranshG2501/LifePath-sub000/pkg/types"
)

// RosterStore is an in-memory roster registry populated over the API.
type RosterStore struct {
	mu      sync.RWMutex
	rosters map[string][]types.RosterEntry
}

func NewRosterStore() *RosterStore {
	return &RosterStore{rosters: make(map[string][]types.RosterEntry)}
}

// SetRoster replaces a classroom's roster. Duplicate student ids collapse.
func (r *RosterStore) SetRoster(classroomID string, entries []types.RosterEntry) error {
	if !types.IsValidID(classroomID) {
		return fmt.Errorf("%w: %s", types.ErrValidation, types.ErrInvalidClassroomID)
	}
	seen := make(map[string]bool, len(entries))
	unique := make([]types.RosterEntry, 0, len(entries))
	for _, e := range entries {
		if !types.IsValidID(e.StudentID) {
			return fmt.Errorf("%w: %s", types.ErrValidation, types.ErrInvalidUserID)
		}
		if !seen[e.StudentID] {
			seen[e.StudentID] = true
			unique = append(unique, e)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.rosters[classroomID] = unique
	return nil
}

// Roster returns the roster for a classroom. An unknown classroom is not an
// error; a session can start before the roster arrives, it just notifies
// nobody.
func (r *RosterStore) Roster(ctx context.Context, classroomID string) ([]types.RosterEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := r.rosters[classroomID]
	out := make([]types.RosterEntry, len(entries))
	copy(out, entries)
	return out, nil
}

var _ interfaces.RosterProvider = (*RosterStore)(nil)
