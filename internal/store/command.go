package store

import "github.com/jwulff/timetable/internal/timetable"

// Command is a named write against the store. Transports decode requests into
// commands and apply them.
type Command interface {
	Name() string
	Apply(s *Store) (Result, error)
}

// Result is the outcome of a successful command.
type Result struct {
	Lecture timetable.Lecture
	Deleted bool
}

// InsertCommand adds a new lecture on Day.
type InsertCommand struct {
	Day   timetable.Day
	Draft timetable.Draft
}

func (InsertCommand) Name() string { return "insert" }

func (c InsertCommand) Apply(s *Store) (Result, error) {
	l, err := s.Insert(c.Day, c.Draft)
	return Result{Lecture: l}, err
}

// ReplaceCommand edits lecture ID, possibly moving it from OldDay to NewDay.
type ReplaceCommand struct {
	OldDay timetable.Day
	ID     string
	NewDay timetable.Day
	Draft  timetable.Draft
}

func (ReplaceCommand) Name() string { return "replace" }

func (c ReplaceCommand) Apply(s *Store) (Result, error) {
	l, err := s.Replace(c.OldDay, c.ID, c.NewDay, c.Draft)
	return Result{Lecture: l}, err
}

// DeleteCommand removes lecture ID from Day.
type DeleteCommand struct {
	Day timetable.Day
	ID  string
}

func (DeleteCommand) Name() string { return "delete" }

func (c DeleteCommand) Apply(s *Store) (Result, error) {
	ok, err := s.Delete(c.Day, c.ID)
	return Result{Deleted: ok}, err
}

// Execute applies cmd to s.
func (s *Store) Execute(cmd Command) (Result, error) {
	return cmd.Apply(s)
}
