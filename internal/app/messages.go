package app

import (
	"github.com/jwulff/timetable/internal/daemon"
	"github.com/jwulff/timetable/internal/timetable"
)

// DaemonConnectedMsg is sent when both daemon connections are established.
type DaemonConnectedMsg struct {
	Client   *daemon.Client // for commands (snapshot, insert, replace, delete)
	EvClient *daemon.Client // for event subscription
}

// DaemonConnectErrorMsg is sent when the daemon connection fails.
type DaemonConnectErrorMsg struct {
	Err error
}

// DaemonEventMsg wraps a streamed event from the daemon.
type DaemonEventMsg struct {
	Event daemon.Event
}

// DaemonEventErrorMsg is sent when the event stream encounters an error.
type DaemonEventErrorMsg struct {
	Err error
}

// SnapshotLoadedMsg carries a fresh copy of the timetable.
type SnapshotLoadedMsg struct {
	Snapshot timetable.Snapshot
}

// SnapshotErrorMsg is sent when the timetable could not be read.
type SnapshotErrorMsg struct {
	Err error
}

// Action names a completed write.
type Action string

const (
	ActionInsert  Action = "added"
	ActionReplace Action = "updated"
	ActionDelete  Action = "deleted"
)

// MutationResultMsg carries the outcome of an insert, replace or delete.
type MutationResultMsg struct {
	Action  Action
	Lecture timetable.Lecture
	Deleted bool
	Err     error
}

// ClearTransientErrorMsg clears a transient error after a timeout.
type ClearTransientErrorMsg struct{}

// ReconnectTickMsg triggers a reconnection attempt.
type ReconnectTickMsg struct{}
