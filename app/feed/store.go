package feed

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot is the complete feed served at one point in time. It is never
// modified after Store.Replace publishes it.
type Snapshot struct {
	Items       []Item
	RefreshedAt time.Time
}

type Status struct {
	LastAttemptAt *time.Time
	LastSuccessAt *time.Time
	LastError     string
	Refreshes     int
	Failures      int
}

// Store holds the current snapshot. Readers never block on a refresh and
// always see one whole snapshot.
type Store struct {
	current atomic.Pointer[Snapshot]

	mu     sync.Mutex
	status Status
}

func NewStore() *Store {
	s := &Store{}
	s.current.Store(&Snapshot{Items: []Item{}})
	return s
}

func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

// Items returns the items of the current snapshot. The slice is shared and
// must not be modified.
func (s *Store) Items() []Item {
	return s.current.Load().Items
}

func (s *Store) Replace(items []Item, refreshedAt time.Time) *Snapshot {
	if items == nil {
		items = []Item{}
	}

	snapshot := &Snapshot{
		Items:       slices.Clip(items),
		RefreshedAt: refreshedAt,
	}
	s.current.Store(snapshot)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.LastAttemptAt = &refreshedAt
	s.status.LastSuccessAt = &refreshedAt
	s.status.LastError = ""
	s.status.Refreshes++

	return snapshot
}

// RecordFailure notes a failed refresh. The current snapshot is left alone.
func (s *Store) RecordFailure(err error, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.LastAttemptAt = &at
	if err != nil {
		s.status.LastError = err.Error()
	}
	s.status.Failures++
}

func (s *Store) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}
