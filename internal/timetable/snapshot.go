package timetable

import "slices"

// Snapshot is an immutable view of the whole timetable. Every day key is
// present, lists are in insertion order.
type Snapshot struct {
	Version uint64            `json:"version"`
	Days    map[Day][]Lecture `json:"days"`
}

// EmptySnapshot returns a snapshot with all five days empty.
func EmptySnapshot() Snapshot {
	days := make(map[Day][]Lecture, len(Days))
	for _, d := range Days {
		days[d] = []Lecture{}
	}
	return Snapshot{Days: days}
}

// Day returns the lectures scheduled on d.
func (s Snapshot) Day(d Day) []Lecture {
	return s.Days[d]
}

// Find locates a lecture by id across all days.
func (s Snapshot) Find(id string) (Day, Lecture, bool) {
	for _, d := range Days {
		for _, l := range s.Days[d] {
			if l.ID == id {
				return d, l, true
			}
		}
	}
	return "", Lecture{}, false
}

// At returns the block covering (d, hour), if any.
func (s Snapshot) At(d Day, hour int) (Lecture, bool) {
	c := CellAt(s.Days[d], hour)
	if c.State == CellEmpty {
		return Lecture{}, false
	}
	return c.Lecture, true
}

// Len counts lectures across all days.
func (s Snapshot) Len() int {
	n := 0
	for _, d := range Days {
		n += len(s.Days[d])
	}
	return n
}

// Clone deep-copies s so callers may hold it across mutations.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{Version: s.Version, Days: make(map[Day][]Lecture, len(Days))}
	for _, d := range Days {
		out.Days[d] = slices.Clone(s.Days[d])
		if out.Days[d] == nil {
			out.Days[d] = []Lecture{}
		}
	}
	return out
}
