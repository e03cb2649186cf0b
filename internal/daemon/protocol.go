// Package daemon provides the server, client and protocol types for sharing
// one timetable over a Unix socket using NDJSON.
package daemon

import "github.com/jwulff/timetable/internal/timetable"

// Command names.
const (
	CmdSnapshot  = "snapshot"
	CmdInsert    = "insert"
	CmdReplace   = "replace"
	CmdDelete    = "delete"
	CmdSubscribe = "subscribe"
)

// Error codes carried in Response.Code.
const (
	CodeOverlap    = "overlap"
	CodeValidation = "validation"
	CodeNotFound   = "not_found"
	CodeBadRequest = "bad_request"
)

// EventChanged is streamed to subscribers after every mutation.
const EventChanged = "changed"

// Command is sent from a client to the daemon.
type Command struct {
	Cmd     string           `json:"cmd"`
	Day     string           `json:"day,omitempty"`
	NewDay  string           `json:"newDay,omitempty"`
	ID      string           `json:"id,omitempty"`
	Lecture *timetable.Draft `json:"lecture,omitempty"`
}

// Response is returned by the daemon after processing a command.
type Response struct {
	OK       bool                `json:"ok"`
	Error    string              `json:"error,omitempty"`
	Code     string              `json:"code,omitempty"`
	Fields   map[string]string   `json:"fields,omitempty"`
	Conflict *timetable.Lecture  `json:"conflict,omitempty"`
	Lecture  *timetable.Lecture  `json:"lecture,omitempty"`
	Deleted  *bool               `json:"deleted,omitempty"`
	Snapshot *timetable.Snapshot `json:"snapshot,omitempty"`
}

// Event is streamed from the daemon to subscribed clients.
type Event struct {
	Event    string              `json:"event"`
	Version  uint64              `json:"version,omitempty"`
	Snapshot *timetable.Snapshot `json:"snapshot,omitempty"`
}

// BoolPtr returns a pointer to a bool value.
func BoolPtr(b bool) *bool { return &b }
