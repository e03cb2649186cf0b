package daemon

import (
	"errors"
	"fmt"

	"github.com/jwulff/timetable/internal/timetable"
)

// errorResponse encodes err so the client can rebuild the typed error.
func errorResponse(err error) Response {
	resp := Response{OK: false, Error: err.Error()}

	var overlap *timetable.OverlapError
	var verr *timetable.ValidationError
	switch {
	case errors.As(err, &overlap):
		resp.Code = CodeOverlap
		c := overlap.Conflict
		resp.Conflict = &c
	case errors.As(err, &verr):
		resp.Code = CodeValidation
		resp.Fields = verr.Fields
	case errors.Is(err, timetable.ErrNotFound):
		resp.Code = CodeNotFound
	default:
		resp.Code = CodeBadRequest
	}
	return resp
}

// Err converts a failed response back into an error. It returns nil for OK
// responses.
func (r Response) Err() error {
	if r.OK {
		return nil
	}
	switch r.Code {
	case CodeOverlap:
		oe := &timetable.OverlapError{}
		if r.Conflict != nil {
			oe.Conflict = *r.Conflict
		}
		return oe
	case CodeValidation:
		return &timetable.ValidationError{Fields: r.Fields}
	case CodeNotFound:
		return fmt.Errorf("%s: %w", r.Error, timetable.ErrNotFound)
	}
	if r.Error == "" {
		return errors.New("daemon: request failed")
	}
	return fmt.Errorf("daemon: %s", r.Error)
}
