// Package db persists timetable snapshots to SQLite.
package db

import "github.com/jwulff/timetable/internal/timetable"

// lectureRow is one row of the lectures table.
type lectureRow struct {
	ID       string
	Day      string
	Start    int
	End      int
	Name     string
	Color    string
	Position int
}

func (r lectureRow) lecture() timetable.Lecture {
	return timetable.Lecture{
		ID:       r.ID,
		Interval: timetable.Interval{Start: r.Start, End: r.End},
		Name:     r.Name,
		Color:    r.Color,
	}
}
