package main

import (
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/jwulff/timetable/internal/timetable"
)

func TestOpenStorePersistsAcrossRestarts(t *testing.T) {
	opts := &options{dbPath: filepath.Join(t.TempDir(), "data", "timetable.sqlite")}

	st, closeStore, err := openStore(opts, zap.NewNop())
	if err != nil {
		t.Fatalf("openStore: %v", err)
	}
	l, err := st.Insert(timetable.Tue, timetable.Draft{Interval: timetable.Interval{Start: 10, End: 12}, Name: "Algebra"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := st.Insert(timetable.Tue, timetable.Draft{Interval: timetable.Interval{Start: 12, End: 13}, Name: "Lunch talk"}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if ok, err := st.Delete(timetable.Tue, l.ID); err != nil || !ok {
		t.Fatalf("delete = %v, %v", ok, err)
	}
	closeStore()

	st, closeStore, err = openStore(opts, zap.NewNop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer closeStore()

	snap := st.Snapshot()
	if snap.Version != 3 {
		t.Errorf("version = %d, want 3", snap.Version)
	}
	tue := snap.Day(timetable.Tue)
	if len(tue) != 1 || tue[0].Name != "Lunch talk" {
		t.Errorf("tue = %+v", tue)
	}
}

func TestOpenStoreInMemory(t *testing.T) {
	st, closeStore, err := openStore(&options{}, zap.NewNop())
	if err != nil {
		t.Fatalf("openStore: %v", err)
	}
	defer closeStore()

	if st.Snapshot().Len() != 0 {
		t.Error("in-memory store should start empty")
	}
}

func TestRootCommandWiring(t *testing.T) {
	root := newRootCmd()

	for _, name := range []string{"db", "log-file", "log-level", "socket"} {
		if root.PersistentFlags().Lookup(name) == nil {
			t.Errorf("missing persistent flag --%s", name)
		}
	}
	if root.Flags().Lookup("remote") == nil {
		t.Error("missing --remote")
	}

	want := map[string]bool{"serve": false, "web": false, "mcp": false}
	for _, c := range root.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("missing subcommand %q", name)
		}
	}
}
