package web

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/jwulff/timetable/internal/store"
	"github.com/jwulff/timetable/internal/timetable"
)

const overlapAlert = "A lecture already exists at that time."

type gridCell struct {
	Day     timetable.Day
	Hour    int
	State   timetable.CellState
	Lecture timetable.Lecture
	RowSpan int
}

// Skip is true for rows covered by a block above; the table emits no <td>.
func (c gridCell) Skip() bool { return c.State == timetable.CellContinuation }

func (c gridCell) Start() bool { return c.State == timetable.CellStart }

type gridRow struct {
	Hour  int
	Cells []gridCell
}

type formView struct {
	Edit   bool
	ID     string
	Action string
	Name   string
	Day    timetable.Day
	Start  int
	End    int
	Color  string
	Errors map[string]string
	Alert  string
}

type pageData struct {
	Days       []timetable.Day
	Rows       []gridRow
	Count      int
	Form       *formView
	StartHours []int
	EndHours   []int
}

func buildRows(snap timetable.Snapshot) []gridRow {
	hours := timetable.Hours()
	rows := make([]gridRow, 0, len(hours))
	for _, h := range hours {
		row := gridRow{Hour: h, Cells: make([]gridCell, 0, len(timetable.Days))}
		for _, d := range timetable.Days {
			c := timetable.CellAt(snap.Day(d), h)
			row.Cells = append(row.Cells, gridCell{
				Day:     d,
				Hour:    h,
				State:   c.State,
				Lecture: c.Lecture,
				RowSpan: c.Rows(),
			})
		}
		rows = append(rows, row)
	}
	return rows
}

func hourRange(lo, hi int) []int {
	out := make([]int, 0, hi-lo+1)
	for h := lo; h <= hi; h++ {
		out = append(out, h)
	}
	return out
}

func (s *Server) page(form *formView) pageData {
	snap := s.store.Snapshot()
	return pageData{
		Days:       timetable.Days,
		Rows:       buildRows(snap),
		Count:      snap.Len(),
		Form:       form,
		StartHours: hourRange(timetable.FirstHour, timetable.LastHour-1),
		EndHours:   hourRange(timetable.FirstHour+1, timetable.LastHour),
	}
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if id := q.Get("edit"); id != "" {
		day, l, ok := s.store.Snapshot().Find(id)
		if !ok {
			http.Error(w, "lecture not found", http.StatusNotFound)
			return
		}
		s.render(w, http.StatusOK, s.page(&formView{
			Edit:   true,
			ID:     l.ID,
			Action: "/lectures/" + l.ID,
			Name:   l.Name,
			Day:    day,
			Start:  l.Start,
			End:    l.End,
			Color:  l.Color,
		}))
		return
	}

	if q.Get("new") != "" {
		day, err := timetable.ParseDay(q.Get("day"))
		if err != nil {
			day = timetable.Mon
		}
		hour, err := strconv.Atoi(q.Get("hour"))
		if err != nil || hour < timetable.FirstHour || hour >= timetable.LastHour {
			hour = timetable.FirstHour
		}
		s.render(w, http.StatusOK, s.page(&formView{
			Action: "/lectures",
			Day:    day,
			Start:  hour,
			End:    hour + 1,
			Color:  timetable.DefaultColor,
		}))
		return
	}

	s.render(w, http.StatusOK, s.page(nil))
}

// parseLectureForm reads the posted fields. Unparseable hours come back as 0
// so validation reports them against their field.
func parseLectureForm(r *http.Request) (timetable.Day, timetable.Draft, error) {
	if err := r.ParseForm(); err != nil {
		return "", timetable.Draft{}, err
	}
	start, _ := strconv.Atoi(r.PostFormValue("start"))
	end, _ := strconv.Atoi(r.PostFormValue("end"))
	draft := timetable.Draft{
		Interval: timetable.Interval{Start: start, End: end},
		Name:     r.PostFormValue("name"),
		Color:    strings.TrimSpace(r.PostFormValue("color")),
	}
	day, _ := timetable.ParseDay(r.PostFormValue("day"))
	return day, draft, nil
}

// validateForm checks the fields a store write would reject, so every
// message can be shown at once.
func validateForm(day timetable.Day, draft timetable.Draft) error {
	err := draft.Validate()
	if day.Valid() {
		return err
	}
	verr := &timetable.ValidationError{Fields: map[string]string{}}
	errors.As(err, &verr)
	verr.Fields[timetable.FieldDay] = "choose a day"
	return verr
}

func (s *Server) createLecture(w http.ResponseWriter, r *http.Request) {
	day, draft, err := parseLectureForm(r)
	if err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	form := &formView{Action: "/lectures"}

	if err := validateForm(day, draft); err != nil {
		s.formError(w, form, day, draft, err)
		return
	}
	res, err := s.store.Execute(store.InsertCommand{Day: day, Draft: draft})
	if err != nil {
		s.formError(w, form, day, draft, err)
		return
	}

	s.logger.Info("lecture added", zap.String("id", res.Lecture.ID), zap.String("day", string(day)))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) editLecture(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	oldDay, _, ok := s.store.Snapshot().Find(id)
	if !ok {
		http.Error(w, "lecture not found", http.StatusNotFound)
		return
	}

	day, draft, err := parseLectureForm(r)
	if err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	form := &formView{Edit: true, ID: id, Action: "/lectures/" + id}

	if err := validateForm(day, draft); err != nil {
		s.formError(w, form, day, draft, err)
		return
	}
	res, err := s.store.Execute(store.ReplaceCommand{OldDay: oldDay, ID: id, NewDay: day, Draft: draft})
	if err != nil {
		s.formError(w, form, day, draft, err)
		return
	}

	s.logger.Info("lecture updated", zap.String("id", res.Lecture.ID), zap.String("day", string(day)))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) deleteLecture(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	day, _, ok := s.store.Snapshot().Find(id)
	if !ok {
		http.Error(w, "lecture not found", http.StatusNotFound)
		return
	}

	res, err := s.store.Execute(store.DeleteCommand{Day: day, ID: id})
	if err != nil {
		s.logger.Error("delete lecture", zap.String("id", id), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if res.Deleted {
		s.logger.Info("lecture deleted", zap.String("id", id), zap.String("day", string(day)))
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// formError re-renders the page with the submitted input kept in the form.
func (s *Server) formError(w http.ResponseWriter, form *formView, day timetable.Day, draft timetable.Draft, err error) {
	form.Name = draft.Name
	form.Day = day
	form.Start = draft.Start
	form.End = draft.End
	form.Color = draft.Color
	if form.Color == "" {
		form.Color = timetable.DefaultColor
	}

	var verr *timetable.ValidationError
	switch {
	case errors.Is(err, timetable.ErrOverlap):
		form.Alert = overlapAlert
		s.render(w, http.StatusConflict, s.page(form))
	case errors.As(err, &verr):
		form.Errors = verr.Fields
		s.render(w, http.StatusUnprocessableEntity, s.page(form))
	case errors.Is(err, timetable.ErrNotFound):
		http.Error(w, "lecture not found", http.StatusNotFound)
	default:
		s.logger.Error("save lecture", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
