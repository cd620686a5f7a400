package storage

import (
	"context"
	"errors"
	"time"
)

var ErrClosed = errors.New("storage closed")

// Config configures storage.
//
// Driver values:
//   - "file": JSON array file (default)
//   - "sqlite": SQLite database file
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Store persists the dedup set.
//
// Load returns an empty set when nothing was persisted yet (cold start).
// MarkAndPersist adds id to set and flushes the whole set before returning.
// Implementations do not lock across processes; callers must not run two
// relays against the same store concurrently.
type Store interface {
	Load(ctx context.Context) (*Set, error)
	MarkAndPersist(ctx context.Context, set *Set, id string) error
	Forget(ctx context.Context, id string) (bool, error)
	Close() error
}

// Set is an insertion-ordered set of record ids.
type Set struct {
	ids   []string
	index map[string]struct{}
}

func NewSet(ids ...string) *Set {
	s := &Set{index: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Has reports whether id is in the set. A nil set is empty.
func (s *Set) Has(id string) bool {
	if s == nil {
		return false
	}
	_, ok := s.index[id]
	return ok
}

// Add appends id. It reports false when id was already present.
func (s *Set) Add(id string) bool {
	if s.index == nil {
		s.index = map[string]struct{}{}
	}
	if _, ok := s.index[id]; ok {
		return false
	}
	s.index[id] = struct{}{}
	s.ids = append(s.ids, id)
	return true
}

// Remove deletes id, keeping the order of the rest.
func (s *Set) Remove(id string) bool {
	if s == nil {
		return false
	}
	if _, ok := s.index[id]; !ok {
		return false
	}
	delete(s.index, id)
	for i, v := range s.ids {
		if v == id {
			s.ids = append(s.ids[:i], s.ids[i+1:]...)
			break
		}
	}
	return true
}

func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.ids)
}

// IDs returns a copy of the ids in insertion order.
func (s *Set) IDs() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.ids...)
}
