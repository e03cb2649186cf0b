package app

import (
	"github.com/jwulff/timetable/internal/daemon"
	"github.com/jwulff/timetable/internal/store"
	"github.com/jwulff/timetable/internal/timetable"
)

// Backend is where the TUI reads and writes the timetable.
type Backend interface {
	Snapshot() (timetable.Snapshot, error)
	Insert(day timetable.Day, draft timetable.Draft) (timetable.Lecture, error)
	Replace(oldDay timetable.Day, id string, newDay timetable.Day, draft timetable.Draft) (timetable.Lecture, error)
	Delete(day timetable.Day, id string) (bool, error)
}

// LocalBackend edits an in-process store.
type LocalBackend struct {
	Store *store.Store
}

func (b LocalBackend) Snapshot() (timetable.Snapshot, error) {
	return b.Store.Snapshot(), nil
}

func (b LocalBackend) Insert(day timetable.Day, draft timetable.Draft) (timetable.Lecture, error) {
	return b.Store.Insert(day, draft)
}

func (b LocalBackend) Replace(oldDay timetable.Day, id string, newDay timetable.Day, draft timetable.Draft) (timetable.Lecture, error) {
	return b.Store.Replace(oldDay, id, newDay, draft)
}

func (b LocalBackend) Delete(day timetable.Day, id string) (bool, error) {
	return b.Store.Delete(day, id)
}

var (
	_ Backend = LocalBackend{}
	_ Backend = (*daemon.Client)(nil)
)
