package catalog

import (
	"slices"
	"sync"
	"time"

	"github.com/mmynk/meshimatch/internal/models"
)

// StaleAfter is how old a saved record may get before it should be refetched.
const StaleAfter = 30 * 24 * time.Hour

// Saved is the member's ordered list of personally liked restaurants.
// It is safe for concurrent use.
type Saved struct {
	mu    sync.RWMutex
	items []models.Restaurant
	now   func() time.Time
}

// NewSaved creates a Saved list holding items, de-duplicated by id.
func NewSaved(items []models.Restaurant) *Saved {
	s := &Saved{now: time.Now}
	for _, r := range items {
		s.add(r)
	}
	return s
}

// Add appends r unless a restaurant with the same id is already saved, stamping
// FetchedAt when unset. It reports whether the list changed.
func (s *Saved) Add(r models.Restaurant) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.add(r)
}

func (s *Saved) add(r models.Restaurant) bool {
	if r.ID == "" || s.indexOf(r.ID) >= 0 {
		return false
	}
	if r.FetchedAt == 0 && s.now != nil {
		r.FetchedAt = s.now().UnixMilli()
	}
	s.items = append(s.items, r)
	return true
}

// Remove drops the restaurant with id. It reports whether the list changed.
func (s *Saved) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	s.items = slices.Delete(s.items, i, i+1)
	return true
}

// Replace swaps in refreshed records for ids already saved, keeping list order.
// Records for ids not saved are ignored.
func (s *Saved) Replace(fresh []models.Restaurant) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range fresh {
		if i := s.indexOf(r.ID); i >= 0 {
			s.items[i] = r
			n++
		}
	}
	return n
}

// Contains reports whether id is saved.
func (s *Saved) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexOf(id) >= 0
}

// List returns a copy of the saved records in save order.
func (s *Saved) List() []models.Restaurant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.items)
}

// LikedIDs returns the saved ids in save order. They seed a member's ledger when
// creating or joining a group.
func (s *Saved) LikedIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, len(s.items))
	for i, r := range s.items {
		ids[i] = r.ID
	}
	return ids
}

// Stale returns the saved records older than StaleAfter at now, or never stamped.
func (s *Saved) Stale(now time.Time) []models.Restaurant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cutoff := now.Add(-StaleAfter).UnixMilli()
	var out []models.Restaurant
	for _, r := range s.items {
		if r.FetchedAt == 0 || r.FetchedAt < cutoff {
			out = append(out, r)
		}
	}
	return out
}

func (s *Saved) indexOf(id string) int {
	return slices.IndexFunc(s.items, func(r models.Restaurant) bool { return r.ID == id })
}
