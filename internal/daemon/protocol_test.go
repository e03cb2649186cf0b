package daemon

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/jwulff/timetable/internal/timetable"
)

func TestCommandMarshalInsert(t *testing.T) {
	cmd := Command{
		Cmd: CmdInsert,
		Day: "mon",
		Lecture: &timetable.Draft{
			Interval: timetable.Interval{Start: 9, End: 11},
			Name:     "Algebra",
			Color:    "#ff0000",
		},
	}

	data, err := json.Marshal(cmd)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got Command
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if got.Cmd != CmdInsert {
		t.Errorf("cmd = %q, want %q", got.Cmd, CmdInsert)
	}
	if got.Day != "mon" {
		t.Errorf("day = %q, want %q", got.Day, "mon")
	}
	if got.Lecture == nil || got.Lecture.Start != 9 || got.Lecture.End != 11 {
		t.Errorf("lecture = %+v, want 9-11", got.Lecture)
	}
}

func TestCommandOmitsEmptyFields(t *testing.T) {
	cmd := Command{Cmd: CmdSnapshot}
	data, err := json.Marshal(cmd)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal raw: %v", err)
	}

	for _, key := range []string{"day", "newDay", "id", "lecture"} {
		if _, ok := raw[key]; ok {
			t.Errorf("snapshot command should omit %s", key)
		}
	}
}

func TestResponseSnapshot(t *testing.T) {
	j := `{"ok":true,"snapshot":{"version":2,"days":{"mon":[{"id":"a","start":9,"end":11,"name":"A","color":"#fff"}],"tue":[],"wed":[],"thu":[],"fri":[]}}}`

	var resp Response
	if err := json.Unmarshal([]byte(j), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if !resp.OK {
		t.Error("ok = false, want true")
	}
	if resp.Snapshot == nil {
		t.Fatal("snapshot missing")
	}
	if resp.Snapshot.Version != 2 {
		t.Errorf("version = %d, want 2", resp.Snapshot.Version)
	}
	mon := resp.Snapshot.Day(timetable.Mon)
	if len(mon) != 1 || mon[0].End != 11 {
		t.Errorf("mon = %+v", mon)
	}
}

func TestResponseErrOverlap(t *testing.T) {
	conflict := timetable.Lecture{ID: "a", Interval: timetable.Interval{Start: 9, End: 11}, Name: "A"}
	resp := errorResponse(&timetable.OverlapError{Conflict: conflict})

	if resp.Code != CodeOverlap {
		t.Errorf("code = %q, want %q", resp.Code, CodeOverlap)
	}

	err := resp.Err()
	if !errors.Is(err, timetable.ErrOverlap) {
		t.Fatalf("err = %v, want ErrOverlap", err)
	}
	var oe *timetable.OverlapError
	if !errors.As(err, &oe) || oe.Conflict.ID != "a" {
		t.Errorf("conflict = %+v", oe)
	}
}

func TestResponseErrValidation(t *testing.T) {
	err := timetable.Draft{}.Validate()
	resp := errorResponse(err)

	if resp.Code != CodeValidation {
		t.Errorf("code = %q, want %q", resp.Code, CodeValidation)
	}

	back := resp.Err()
	var verr *timetable.ValidationError
	if !errors.As(back, &verr) {
		t.Fatalf("err = %v, want ValidationError", back)
	}
	if verr.Field(timetable.FieldName) == "" {
		t.Error("name message lost in transit")
	}
}

func TestResponseErrNotFoundAndGeneric(t *testing.T) {
	resp := errorResponse(timetable.ErrNotFound)
	if !errors.Is(resp.Err(), timetable.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", resp.Err())
	}

	resp = errorResponse(errors.New("boom"))
	if resp.Code != CodeBadRequest {
		t.Errorf("code = %q, want %q", resp.Code, CodeBadRequest)
	}
	if resp.Err() == nil {
		t.Error("failed response should yield an error")
	}

	if (Response{OK: true}).Err() != nil {
		t.Error("ok response should yield nil")
	}
}

func TestEventChanged(t *testing.T) {
	j := `{"event":"changed","version":5,"snapshot":{"version":5,"days":{"mon":[],"tue":[],"wed":[],"thu":[],"fri":[]}}}`

	var ev Event
	if err := json.Unmarshal([]byte(j), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if ev.Event != EventChanged {
		t.Errorf("event = %q, want %q", ev.Event, EventChanged)
	}
	if ev.Version != 5 || ev.Snapshot == nil || len(ev.Snapshot.Days) != 5 {
		t.Errorf("event = %+v", ev)
	}
}

func TestBoolPtr(t *testing.T) {
	p := BoolPtr(true)
	if p == nil || !*p {
		t.Error("BoolPtr(true) should return pointer to true")
	}

	p = BoolPtr(false)
	if p == nil || *p {
		t.Error("BoolPtr(false) should return pointer to false")
	}
}
