// Package store is the in-memory timetable state container. Reads return
// immutable snapshots; writes go through validated named operations.
package store

import (
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/jwulff/timetable/internal/timetable"
)

// Store maps each weekday to its lectures.
type Store struct {
	mu      sync.RWMutex
	days    map[timetable.Day][]timetable.Lecture
	version uint64
	newID   func() string

	lmu       sync.Mutex
	listeners map[int]func(timetable.Snapshot)
	nextLID   int
}

// Option configures a Store.
type Option func(*Store)

// WithSnapshot seeds the store, e.g. from persisted state.
func WithSnapshot(snap timetable.Snapshot) Option {
	return func(s *Store) {
		for _, d := range timetable.Days {
			s.days[d] = slices.Clone(snap.Days[d])
		}
		s.version = snap.Version
	}
}

// WithIDGenerator replaces uuid.NewString, mostly for tests.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// New creates a store with all five days empty.
func New(opts ...Option) *Store {
	s := &Store{
		days:      make(map[timetable.Day][]timetable.Lecture, len(timetable.Days)),
		newID:     uuid.NewString,
		listeners: make(map[int]func(timetable.Snapshot)),
	}
	for _, d := range timetable.Days {
		s.days[d] = nil
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() timetable.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() timetable.Snapshot {
	return timetable.Snapshot{Version: s.version, Days: s.days}.Clone()
}

// Insert validates draft and appends it to day under a fresh id.
func (s *Store) Insert(day timetable.Day, draft timetable.Draft) (timetable.Lecture, error) {
	if !day.Valid() {
		return timetable.Lecture{}, fmt.Errorf("insert: %w: %q", timetable.ErrUnknownDay, day)
	}
	if err := draft.Validate(); err != nil {
		return timetable.Lecture{}, err
	}

	s.mu.Lock()
	if err := timetable.ValidatePlacement(s.days[day], draft.Interval, ""); err != nil {
		s.mu.Unlock()
		return timetable.Lecture{}, err
	}
	l := draft.Build(s.newID())
	s.days[day] = append(s.days[day], l)
	snap := s.commitLocked()
	s.mu.Unlock()

	s.notify(snap)
	return l, nil
}

// Replace swaps the lecture id in oldDay for draft placed on newDay, keeping
// the id. The new placement is checked against newDay without the lecture
// itself.
func (s *Store) Replace(oldDay timetable.Day, id string, newDay timetable.Day, draft timetable.Draft) (timetable.Lecture, error) {
	for _, d := range []timetable.Day{oldDay, newDay} {
		if !d.Valid() {
			return timetable.Lecture{}, fmt.Errorf("replace: %w: %q", timetable.ErrUnknownDay, d)
		}
	}
	if err := draft.Validate(); err != nil {
		return timetable.Lecture{}, err
	}

	s.mu.Lock()
	idx := indexOf(s.days[oldDay], id)
	if idx < 0 {
		s.mu.Unlock()
		return timetable.Lecture{}, fmt.Errorf("replace %s on %s: %w", id, oldDay, timetable.ErrNotFound)
	}
	if err := timetable.ValidatePlacement(s.days[newDay], draft.Interval, id); err != nil {
		s.mu.Unlock()
		return timetable.Lecture{}, err
	}
	l := draft.Build(id)
	s.days[oldDay] = slices.Delete(slices.Clone(s.days[oldDay]), idx, idx+1)
	s.days[newDay] = append(s.days[newDay], l)
	snap := s.commitLocked()
	s.mu.Unlock()

	s.notify(snap)
	return l, nil
}

// Delete removes id from day. It reports false when nothing matched.
func (s *Store) Delete(day timetable.Day, id string) (bool, error) {
	if !day.Valid() {
		return false, fmt.Errorf("delete: %w: %q", timetable.ErrUnknownDay, day)
	}

	s.mu.Lock()
	idx := indexOf(s.days[day], id)
	if idx < 0 {
		s.mu.Unlock()
		return false, nil
	}
	s.days[day] = slices.Delete(slices.Clone(s.days[day]), idx, idx+1)
	snap := s.commitLocked()
	s.mu.Unlock()

	s.notify(snap)
	return true, nil
}

func (s *Store) commitLocked() timetable.Snapshot {
	s.version++
	return s.snapshotLocked()
}

func indexOf(day []timetable.Lecture, id string) int {
	return slices.IndexFunc(day, func(l timetable.Lecture) bool { return l.ID == id })
}
