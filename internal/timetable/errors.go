package timetable

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrOverlap    = errors.New("a lecture already exists at that time")
	ErrNotFound   = errors.New("lecture not found")
	ErrUnknownDay = errors.New("unknown day")
	ErrValidation = errors.New("invalid lecture")
)

// OverlapError reports the lecture a candidate interval collided with.
type OverlapError struct {
	Conflict Lecture
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("%s: %q occupies %d-%d",
		ErrOverlap.Error(), e.Conflict.Name, e.Conflict.Start, e.Conflict.End)
}

func (e *OverlapError) Is(target error) bool { return target == ErrOverlap }

// Field keys used in ValidationError.Fields.
const (
	FieldName  = "name"
	FieldDay   = "day"
	FieldStart = "start"
	FieldEnd   = "end"
	FieldColor = "color"
)

// ValidationError carries one message per offending form field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return ErrValidation.Error() + " (" + strings.Join(parts, "; ") + ")"
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Field returns the message for key, or "".
func (e *ValidationError) Field(key string) string {
	if e == nil {
		return ""
	}
	return e.Fields[key]
}

func (e *ValidationError) add(key, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, ok := e.Fields[key]; !ok {
		e.Fields[key] = msg
	}
}
