// Package favorites keeps per-user favorite image id sets. This is a
// presentation concern kept outside the entity snapshot; it shares no
// invariants with the credit ledger.
package favorites

import "sync"

type Store struct {
	mu     sync.Mutex
	byUser map[string]map[string]struct{}
}

func NewStore() *Store {
	return &Store{byUser: make(map[string]map[string]struct{})}
}

// Toggle flips the favorite flag for imageID and reports whether the image
// is a favorite afterwards.
func (s *Store) Toggle(userID, imageID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.byUser[userID]
	if !ok {
		set = make(map[string]struct{})
		s.byUser[userID] = set
	}
	if _, ok := set[imageID]; ok {
		delete(set, imageID)
		return false
	}
	set[imageID] = struct{}{}
	return true
}

func (s *Store) IsFavorite(userID, imageID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.byUser[userID][imageID]
	return ok
}

// List returns the user's favorite image ids. Only the requesting user's set
// is ever visible.
func (s *Store) List(userID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.byUser[userID]))
	for id := range s.byUser[userID] {
		ids = append(ids, id)
	}
	return ids
}
