package timetable

// Overlaps reports whether candidate shares any hour with existing.
// Intervals that merely touch (one ends where the other starts) do not overlap.
func Overlaps(existing, candidate Interval) bool {
	return candidate.Start < existing.End && existing.Start < candidate.End
}

// ValidatePlacement checks candidate against a day's lectures, ignoring the
// lecture with excludeID so an edited block does not collide with itself.
// It returns an *OverlapError for the first conflict found.
func ValidatePlacement(day []Lecture, candidate Interval, excludeID string) error {
	for _, l := range day {
		if excludeID != "" && l.ID == excludeID {
			continue
		}
		if Overlaps(l.Interval, candidate) {
			return &OverlapError{Conflict: l}
		}
	}
	return nil
}

// CellState is what the grid draws for one (day, hour) cell.
type CellState int

const (
	CellEmpty CellState = iota
	// CellStart anchors a block; it spans Lecture.Rows() rows.
	CellStart
	// CellContinuation is covered by the block started above it.
	CellContinuation
)

func (s CellState) String() string {
	switch s {
	case CellStart:
		return "start"
	case CellContinuation:
		return "continuation"
	default:
		return "empty"
	}
}

// Cell is the resolved render state of a grid cell.
type Cell struct {
	State   CellState
	Lecture Lecture
}

// Rows is the row span of a start cell, 1 for an empty cell and 0 for a
// continuation.
func (c Cell) Rows() int {
	switch c.State {
	case CellStart:
		return c.Lecture.Rows()
	case CellContinuation:
		return 0
	default:
		return 1
	}
}

// CellAt resolves the cell for hour in a day's lecture list. The no-overlap
// invariant guarantees at most one lecture matches.
func CellAt(day []Lecture, hour int) Cell {
	for _, l := range day {
		if l.Start == hour {
			return Cell{State: CellStart, Lecture: l}
		}
	}
	for _, l := range day {
		if l.Contains(hour) {
			return Cell{State: CellContinuation, Lecture: l}
		}
	}
	return Cell{State: CellEmpty}
}

// Hours returns the hour of every grid row, top to bottom.
func Hours() []int {
	hours := make([]int, 0, LastHour-FirstHour)
	for h := FirstHour; h < LastHour; h++ {
		hours = append(hours, h)
	}
	return hours
}
