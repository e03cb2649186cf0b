// Package timetable holds the weekly lecture model and the placement rules
// that keep a day's lectures from overlapping.
package timetable

import (
	"fmt"
	"strings"
)

// Day is a weekday column of the timetable.
type Day string

const (
	Mon Day = "mon"
	Tue Day = "tue"
	Wed Day = "wed"
	Thu Day = "thu"
	Fri Day = "fri"
)

// Days lists the timetable columns in display order.
var Days = []Day{Mon, Tue, Wed, Thu, Fri}

var dayNames = map[string]Day{
	"mon": Mon, "monday": Mon,
	"tue": Tue, "tuesday": Tue,
	"wed": Wed, "wednesday": Wed,
	"thu": Thu, "thursday": Thu,
	"fri": Fri, "friday": Fri,
}

// ParseDay accepts "mon", "Mon" or "Monday" (any case).
func ParseDay(s string) (Day, error) {
	d, ok := dayNames[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownDay, s)
	}
	return d, nil
}

// Valid reports whether d is one of the five timetable days.
func (d Day) Valid() bool {
	return d.Index() >= 0
}

// Label returns the column header, e.g. "Mon".
func (d Day) Label() string {
	if d == "" {
		return ""
	}
	return strings.ToUpper(string(d[:1])) + string(d[1:])
}

// Index returns the column index of d, or -1.
func (d Day) Index() int {
	for i, day := range Days {
		if day == d {
			return i
		}
	}
	return -1
}
