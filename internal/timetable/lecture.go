package timetable

import (
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Displayed hour range. Rows run from FirstHour to LastHour-1; a lecture may
// end at LastHour.
const (
	FirstHour = 9
	LastHour  = 20

	DefaultColor = "#00ffaa"
)

// Interval is the half-open hour range [Start, End).
type Interval struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Rows is the number of grid rows the interval covers.
func (iv Interval) Rows() int { return iv.End - iv.Start }

// Contains reports whether hour's row lies inside the interval.
func (iv Interval) Contains(hour int) bool {
	return iv.Start <= hour && hour < iv.End
}

// Lecture is one scheduled block. Its day is the list it lives in.
type Lecture struct {
	ID string `json:"id"`
	Interval
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Draft is the user-editable part of a lecture.
type Draft struct {
	Interval
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// Draft returns the editable fields of l.
func (l Lecture) Draft() Draft {
	return Draft{Interval: l.Interval, Name: l.Name, Color: l.Color}
}

// Normalize trims the name and fills in the default colour.
func (d Draft) Normalize() Draft {
	d.Name = strings.TrimSpace(d.Name)
	d.Color = strings.TrimSpace(d.Color)
	if d.Color == "" {
		d.Color = DefaultColor
	}
	return d
}

// Validate checks the field rules a form enforces before touching the store.
func (d Draft) Validate() error {
	var verr ValidationError

	if strings.TrimSpace(d.Name) == "" {
		verr.add(FieldName, "enter a lecture name")
	}
	if d.Start < FirstHour || d.Start >= LastHour {
		verr.add(FieldStart, "choose a start hour between 9 and 19")
	}
	if d.End <= FirstHour || d.End > LastHour {
		verr.add(FieldEnd, "choose an end hour between 10 and 20")
	}
	if d.End <= d.Start {
		verr.add(FieldEnd, "end must be after start")
	}
	if c := strings.TrimSpace(d.Color); c != "" && !ValidColor(c) {
		verr.add(FieldColor, "choose a colour like "+DefaultColor)
	}

	if len(verr.Fields) > 0 {
		return &verr
	}
	return nil
}

// Build turns a validated draft into a lecture with the given id.
func (d Draft) Build(id string) Lecture {
	d = d.Normalize()
	return Lecture{ID: id, Interval: d.Interval, Name: d.Name, Color: d.Color}
}

// ValidColor reports whether c is a #rgb or #rrggbb hex colour.
func ValidColor(c string) bool {
	if len(c) != 4 && len(c) != 7 {
		return false
	}
	if strings.ContainsAny(c, " \t\r\n+-") {
		return false
	}
	_, err := colorful.Hex(c)
	return err == nil
}
