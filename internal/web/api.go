package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/jwulff/timetable/internal/store"
	"github.com/jwulff/timetable/internal/timetable"
)

// apiError is the JSON body of every failed API call.
type apiError struct {
	Error    string             `json:"error"`
	Code     string             `json:"code"`
	Fields   map[string]string  `json:"fields,omitempty"`
	Conflict *timetable.Lecture `json:"conflict,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	body := apiError{Error: err.Error()}
	status := http.StatusInternalServerError

	var overlap *timetable.OverlapError
	var verr *timetable.ValidationError
	switch {
	case errors.As(err, &overlap):
		status, body.Code = http.StatusConflict, "overlap"
		c := overlap.Conflict
		body.Conflict = &c
	case errors.As(err, &verr):
		status, body.Code = http.StatusUnprocessableEntity, "validation"
		body.Fields = verr.Fields
	case errors.Is(err, timetable.ErrNotFound):
		status, body.Code = http.StatusNotFound, "not_found"
	case errors.Is(err, timetable.ErrUnknownDay):
		status, body.Code = http.StatusBadRequest, "bad_request"
	default:
		body.Code = "internal"
		s.logger.Error("api request failed", zap.Error(err))
	}
	writeJSON(w, status, body)
}

func decodeDraft(r *http.Request) (timetable.Draft, error) {
	var d timetable.Draft
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&d); err != nil {
		return timetable.Draft{}, err
	}
	return d, nil
}

func (s *Server) apiTimetable(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Snapshot())
}

func (s *Server) apiInsert(w http.ResponseWriter, r *http.Request) {
	day, err := timetable.ParseDay(mux.Vars(r)["day"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	draft, err := decodeDraft(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid lecture body: " + err.Error(), Code: "bad_request"})
		return
	}

	res, err := s.store.Execute(store.InsertCommand{Day: day, Draft: draft})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.logger.Info("lecture added", zap.String("id", res.Lecture.ID), zap.String("day", string(day)))
	writeJSON(w, http.StatusCreated, res.Lecture)
}

// apiReplace edits a lecture. The target day comes from ?day=, defaulting to
// the day in the path.
func (s *Server) apiReplace(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	oldDay, err := timetable.ParseDay(vars["day"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	newDay := oldDay
	if q := r.URL.Query().Get("day"); q != "" {
		if newDay, err = timetable.ParseDay(q); err != nil {
			s.writeError(w, err)
			return
		}
	}
	draft, err := decodeDraft(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid lecture body: " + err.Error(), Code: "bad_request"})
		return
	}

	res, err := s.store.Execute(store.ReplaceCommand{OldDay: oldDay, ID: vars["id"], NewDay: newDay, Draft: draft})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.logger.Info("lecture updated", zap.String("id", res.Lecture.ID), zap.String("day", string(newDay)))
	writeJSON(w, http.StatusOK, res.Lecture)
}

func (s *Server) apiDelete(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	day, err := timetable.ParseDay(vars["day"])
	if err != nil {
		s.writeError(w, err)
		return
	}

	res, err := s.store.Execute(store.DeleteCommand{Day: day, ID: vars["id"]})
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !res.Deleted {
		writeJSON(w, http.StatusNotFound, apiError{Error: timetable.ErrNotFound.Error(), Code: "not_found"})
		return
	}
	s.logger.Info("lecture deleted", zap.String("id", vars["id"]), zap.String("day", string(day)))
	w.WriteHeader(http.StatusNoContent)
}
