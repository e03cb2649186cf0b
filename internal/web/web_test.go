package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jwulff/timetable/internal/store"
	"github.com/jwulff/timetable/internal/timetable"
)

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("lec-%d", n)
	}
}

func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	st := store.New(store.WithIDGenerator(seqIDs()))
	srv, err := New(st, zap.NewNop())
	require.NoError(t, err)
	return srv, st
}

func do(t *testing.T, srv *Server, method, target string, body string, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func postForm(t *testing.T, srv *Server, target string, v url.Values) *httptest.ResponseRecorder {
	t.Helper()
	return do(t, srv, http.MethodPost, target, v.Encode(), "application/x-www-form-urlencoded")
}

func lectureForm(name, day string, start, end int) url.Values {
	return url.Values{
		"name":  {name},
		"day":   {day},
		"start": {fmt.Sprint(start)},
		"end":   {fmt.Sprint(end)},
		"color": {"#ff8800"},
	}
}

func mustInsert(t *testing.T, st *store.Store, day timetable.Day, start, end int, name string) timetable.Lecture {
	t.Helper()
	l, err := st.Insert(day, timetable.Draft{Interval: timetable.Interval{Start: start, End: end}, Name: name})
	require.NoError(t, err)
	return l
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := do(t, srv, http.MethodGet, "/health", "", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestIndexRendersEmptyGrid(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := do(t, srv, http.MethodGet, "/", "", "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	for _, d := range []string{"Mon", "Tue", "Wed", "Thu", "Fri"} {
		assert.Contains(t, body, "<th class=\"day\">"+d+"</th>")
	}
	// 11 rows of one time cell and five day cells.
	assert.Equal(t, 66, strings.Count(body, "<td"))
	assert.Contains(t, body, "9:00")
	assert.Contains(t, body, "19:00")
	assert.NotContains(t, body, "20:00")
}

func TestIndexSpansBlocks(t *testing.T) {
	srv, st := newTestServer(t)
	mustInsert(t, st, timetable.Mon, 9, 11, "Algebra")
	mustInsert(t, st, timetable.Wed, 13, 17, "Physics Lab")

	body := do(t, srv, http.MethodGet, "/", "", "").Body.String()

	assert.Contains(t, body, `rowspan="2"`)
	assert.Contains(t, body, `rowspan="4"`)
	assert.Equal(t, 1, strings.Count(body, "Algebra"))
	// One continuation row for Algebra and three for the lab emit no cell.
	assert.Equal(t, 66-4, strings.Count(body, "<td"))
}

func TestIndexNewFormPrefill(t *testing.T) {
	srv, _ := newTestServer(t)
	body := do(t, srv, http.MethodGet, "/?new=1&day=thu&hour=14", "", "").Body.String()

	assert.Contains(t, body, "New lecture")
	assert.Contains(t, body, `value="thu" checked`)
	assert.Contains(t, body, `<option value="14" selected>`)
	assert.Contains(t, body, `<option value="15" selected>`)
	assert.Contains(t, body, `value="#00ffaa"`)
}

func TestIndexEditFormPrefill(t *testing.T) {
	srv, st := newTestServer(t)
	l := mustInsert(t, st, timetable.Tue, 10, 12, "Databases")

	rec := do(t, srv, http.MethodGet, "/?edit="+l.ID, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Edit lecture")
	assert.Contains(t, body, `action="/lectures/`+l.ID+`"`)
	assert.Contains(t, body, `value="Databases"`)
	assert.Contains(t, body, `value="tue" checked`)

	rec = do(t, srv, http.MethodGet, "/?edit=missing", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateLecture(t *testing.T) {
	srv, st := newTestServer(t)

	rec := postForm(t, srv, "/lectures", lectureForm("Algebra", "mon", 9, 11))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	mon := st.Snapshot().Day(timetable.Mon)
	require.Len(t, mon, 1)
	assert.Equal(t, "Algebra", mon[0].Name)
	assert.Equal(t, "#ff8800", mon[0].Color)
}

func TestCreateOverlapKeepsInput(t *testing.T) {
	srv, st := newTestServer(t)
	mustInsert(t, st, timetable.Mon, 9, 11, "Algebra")

	rec := postForm(t, srv, "/lectures", lectureForm("Chemistry", "mon", 10, 12))
	require.Equal(t, http.StatusConflict, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, overlapAlert)
	assert.Contains(t, body, `value="Chemistry"`)
	assert.Len(t, st.Snapshot().Day(timetable.Mon), 1)
}

func TestCreateTouchingIsAllowed(t *testing.T) {
	srv, st := newTestServer(t)
	mustInsert(t, st, timetable.Mon, 9, 11, "Algebra")

	rec := postForm(t, srv, "/lectures", lectureForm("Chemistry", "mon", 11, 12))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Len(t, st.Snapshot().Day(timetable.Mon), 2)
}

func TestCreateValidationErrors(t *testing.T) {
	srv, st := newTestServer(t)

	rec := postForm(t, srv, "/lectures", lectureForm("  ", "sun", 12, 12))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "enter a lecture name")
	assert.Contains(t, body, "choose a day")
	assert.Contains(t, body, "end must be after start")
	assert.Zero(t, st.Snapshot().Len())
}

func TestCreateRejectsNonHexColor(t *testing.T) {
	srv, st := newTestServer(t)

	v := lectureForm("Algebra", "mon", 9, 11)
	v.Set("color", "rgb(255, 0, 0)")
	rec := postForm(t, srv, "/lectures", v)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "choose a colour like #00ffaa")
	assert.NotContains(t, body, "ZgotmplZ")
	assert.Zero(t, st.Snapshot().Len())
}

func TestIndexPaintsBlockColor(t *testing.T) {
	srv, st := newTestServer(t)
	_, err := st.Insert(timetable.Mon, timetable.Draft{Interval: timetable.Interval{Start: 9, End: 11}, Name: "Algebra", Color: "#ff8800"})
	require.NoError(t, err)

	rec := do(t, srv, http.MethodGet, "/", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "background-color: #ff8800")
	assert.NotContains(t, rec.Body.String(), "ZgotmplZ")
}

func TestEditLectureMovesDay(t *testing.T) {
	srv, st := newTestServer(t)
	l := mustInsert(t, st, timetable.Mon, 9, 11, "Algebra")

	rec := postForm(t, srv, "/lectures/"+l.ID, lectureForm("Algebra II", "fri", 9, 11))
	require.Equal(t, http.StatusSeeOther, rec.Code)

	snap := st.Snapshot()
	assert.Empty(t, snap.Day(timetable.Mon))
	fri := snap.Day(timetable.Fri)
	require.Len(t, fri, 1)
	assert.Equal(t, l.ID, fri[0].ID)
	assert.Equal(t, "Algebra II", fri[0].Name)
}

func TestEditOverlapLeavesStore(t *testing.T) {
	srv, st := newTestServer(t)
	a := mustInsert(t, st, timetable.Mon, 9, 11, "Algebra")
	mustInsert(t, st, timetable.Mon, 11, 13, "Biology")
	before := st.Snapshot()

	rec := postForm(t, srv, "/lectures/"+a.ID, lectureForm("Algebra", "mon", 10, 12))
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "Edit lecture")
	assert.Equal(t, before, st.Snapshot())
}

func TestEditUnknownLecture(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := postForm(t, srv, "/lectures/missing", lectureForm("X", "mon", 9, 10))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteLecture(t *testing.T) {
	srv, st := newTestServer(t)
	l := mustInsert(t, st, timetable.Thu, 15, 16, "Seminar")

	rec := postForm(t, srv, "/lectures/"+l.ID+"/delete", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Zero(t, st.Snapshot().Len())

	rec = postForm(t, srv, "/lectures/"+l.ID+"/delete", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPITimetable(t *testing.T) {
	srv, st := newTestServer(t)
	mustInsert(t, st, timetable.Wed, 9, 10, "Algebra")

	rec := do(t, srv, http.MethodGet, "/api/timetable", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	var snap timetable.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Len(t, snap.Days, 5)
	require.Len(t, snap.Day(timetable.Wed), 1)
	assert.Equal(t, "Algebra", snap.Day(timetable.Wed)[0].Name)
	assert.Equal(t, uint64(1), snap.Version)
}

func TestAPIInsert(t *testing.T) {
	srv, st := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/days/tue/lectures", `{"start":9,"end":10,"name":"Algebra"}`, "application/json")
	require.Equal(t, http.StatusCreated, rec.Code)

	var l timetable.Lecture
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &l))
	assert.Equal(t, "lec-1", l.ID)
	assert.Equal(t, timetable.DefaultColor, l.Color)
	assert.Len(t, st.Snapshot().Day(timetable.Tue), 1)
}

func TestAPIInsertOverlap(t *testing.T) {
	srv, st := newTestServer(t)
	mustInsert(t, st, timetable.Tue, 9, 12, "Algebra")

	rec := do(t, srv, http.MethodPost, "/api/days/tue/lectures", `{"start":11,"end":13,"name":"Biology"}`, "application/json")
	require.Equal(t, http.StatusConflict, rec.Code)

	var body apiError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "overlap", body.Code)
	require.NotNil(t, body.Conflict)
	assert.Equal(t, "Algebra", body.Conflict.Name)
}

func TestAPIInsertValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/days/tue/lectures", `{"start":9,"end":21,"name":"Algebra"}`, "application/json")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body apiError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "validation", body.Code)
	assert.Equal(t, "choose an end hour between 10 and 20", body.Fields[timetable.FieldEnd])
}

func TestAPIInsertRejectsNonHexColor(t *testing.T) {
	srv, st := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/days/mon/lectures", `{"start":9,"end":11,"name":"Algebra","color":"rgb(255, 0, 0)"}`, "application/json")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body apiError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "choose a colour like #00ffaa", body.Fields[timetable.FieldColor])
	assert.Zero(t, st.Snapshot().Len())
}

func TestAPIBadRequests(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/days/sun/lectures", `{"start":9,"end":10,"name":"A"}`, "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodPost, "/api/days/mon/lectures", `{"start":`, "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodPost, "/api/days/mon/lectures", `{"start":9,"end":10,"name":"A","room":"B1"}`, "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPIReplace(t *testing.T) {
	srv, st := newTestServer(t)
	l := mustInsert(t, st, timetable.Mon, 9, 11, "Algebra")

	rec := do(t, srv, http.MethodPut, "/api/days/mon/lectures/"+l.ID+"?day=wed", `{"start":14,"end":16,"name":"Algebra","color":"#123456"}`, "application/json")
	require.Equal(t, http.StatusOK, rec.Code)

	snap := st.Snapshot()
	assert.Empty(t, snap.Day(timetable.Mon))
	require.Len(t, snap.Day(timetable.Wed), 1)
	assert.Equal(t, l.ID, snap.Day(timetable.Wed)[0].ID)
	assert.Equal(t, 14, snap.Day(timetable.Wed)[0].Start)

	rec = do(t, srv, http.MethodPut, "/api/days/mon/lectures/"+l.ID, `{"start":9,"end":10,"name":"X"}`, "application/json")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPIDelete(t *testing.T) {
	srv, st := newTestServer(t)
	l := mustInsert(t, st, timetable.Fri, 9, 10, "Algebra")

	rec := do(t, srv, http.MethodDelete, "/api/days/fri/lectures/"+l.ID, "", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Zero(t, st.Snapshot().Len())

	rec = do(t, srv, http.MethodDelete, "/api/days/fri/lectures/"+l.ID, "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPIPreflight(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := do(t, srv, http.MethodOptions, "/api/days/mon/lectures", "", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "PUT")
}
