package store

import "github.com/jwulff/timetable/internal/timetable"

// Subscribe registers fn to receive the snapshot after every successful
// mutation. Calls happen on the mutating goroutine, outside the store lock.
// The returned func unregisters fn.
func (s *Store) Subscribe(fn func(timetable.Snapshot)) (cancel func()) {
	s.lmu.Lock()
	id := s.nextLID
	s.nextLID++
	s.listeners[id] = fn
	s.lmu.Unlock()

	return func() {
		s.lmu.Lock()
		delete(s.listeners, id)
		s.lmu.Unlock()
	}
}

func (s *Store) notify(snap timetable.Snapshot) {
	s.lmu.Lock()
	fns := make([]func(timetable.Snapshot), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.lmu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}
