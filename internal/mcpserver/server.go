// Package mcpserver exposes the timetable as MCP tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/jwulff/timetable/internal/timetable"
)

// Backend is the timetable the tools read and edit.
type Backend interface {
	Snapshot() (timetable.Snapshot, error)
	Insert(day timetable.Day, draft timetable.Draft) (timetable.Lecture, error)
	Replace(oldDay timetable.Day, id string, newDay timetable.Day, draft timetable.Draft) (timetable.Lecture, error)
	Delete(day timetable.Day, id string) (bool, error)
}

// Tools holds the tool handlers.
type Tools struct {
	backend Backend
	logger  *zap.Logger
}

// NewTools binds the handlers to backend.
func NewTools(backend Backend, logger *zap.Logger) *Tools {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tools{backend: backend, logger: logger}
}

var dayNames = func() []string {
	out := make([]string, len(timetable.Days))
	for i, d := range timetable.Days {
		out[i] = string(d)
	}
	return out
}()

// NewServer builds an MCP server with every timetable tool registered.
func NewServer(t *Tools, version string) *server.MCPServer {
	s := server.NewMCPServer("timetable", version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	s.AddTool(mcp.NewTool("get_timetable",
		mcp.WithDescription("Return the weekly timetable as JSON: every weekday with its lectures. Hours are whole numbers; a lecture covers [start, end)."),
	), t.GetTimetable)

	s.AddTool(mcp.NewTool("add_lecture",
		mcp.WithDescription("Add a lecture. Fails if it overlaps a lecture on the same day."),
		mcp.WithString("day", mcp.Required(), mcp.Enum(dayNames...), mcp.Description("Weekday")),
		mcp.WithString("name", mcp.Required(), mcp.Description("Lecture name")),
		mcp.WithNumber("start", mcp.Required(), mcp.Description("Start hour, 9 to 19")),
		mcp.WithNumber("end", mcp.Required(), mcp.Description("End hour, 10 to 20, after start")),
		mcp.WithString("color", mcp.Description("Block colour, default "+timetable.DefaultColor)),
	), t.AddLecture)

	s.AddTool(mcp.NewTool("edit_lecture",
		mcp.WithDescription("Edit a lecture by id. Omitted fields keep their current value; new_day moves it."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Lecture id")),
		mcp.WithString("new_day", mcp.Enum(dayNames...), mcp.Description("Day to move the lecture to")),
		mcp.WithString("name", mcp.Description("Lecture name")),
		mcp.WithNumber("start", mcp.Description("Start hour, 9 to 19")),
		mcp.WithNumber("end", mcp.Description("End hour, 10 to 20")),
		mcp.WithString("color", mcp.Description("Block colour")),
	), t.EditLecture)

	s.AddTool(mcp.NewTool("delete_lecture",
		mcp.WithDescription("Delete a lecture by id."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Lecture id")),
	), t.DeleteLecture)

	return s
}

// ServeStdio runs the server on stdin/stdout until the client disconnects.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// toolError turns rejected edits into tool results the model can read and
// retry. Other failures stay Go errors.
func toolError(err error) (*mcp.CallToolResult, error) {
	switch {
	case errors.Is(err, timetable.ErrOverlap),
		errors.Is(err, timetable.ErrValidation),
		errors.Is(err, timetable.ErrNotFound),
		errors.Is(err, timetable.ErrUnknownDay):
		return mcp.NewToolResultError(err.Error()), nil
	}
	return nil, err
}

func (t *Tools) GetTimetable(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap, err := t.backend.Snapshot()
	if err != nil {
		return nil, err
	}
	return jsonResult(snap)
}

func (t *Tools) AddLecture(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dayArg, err := req.RequireString("day")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	day, err := timetable.ParseDay(dayArg)
	if err != nil {
		return toolError(err)
	}
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	start, err := req.RequireInt("start")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	end, err := req.RequireInt("end")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	draft := timetable.Draft{
		Interval: timetable.Interval{Start: start, End: end},
		Name:     name,
		Color:    req.GetString("color", ""),
	}
	l, err := t.backend.Insert(day, draft)
	if err != nil {
		return toolError(err)
	}
	t.logger.Info("lecture added", zap.String("id", l.ID), zap.String("day", string(day)))
	return jsonResult(l)
}

func (t *Tools) EditLecture(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	snap, err := t.backend.Snapshot()
	if err != nil {
		return nil, err
	}
	oldDay, cur, ok := snap.Find(id)
	if !ok {
		return toolError(fmt.Errorf("edit %s: %w", id, timetable.ErrNotFound))
	}

	newDay := oldDay
	if arg := req.GetString("new_day", ""); arg != "" {
		if newDay, err = timetable.ParseDay(arg); err != nil {
			return toolError(err)
		}
	}
	draft := timetable.Draft{
		Interval: timetable.Interval{
			Start: req.GetInt("start", cur.Start),
			End:   req.GetInt("end", cur.End),
		},
		Name:  req.GetString("name", cur.Name),
		Color: req.GetString("color", cur.Color),
	}

	l, err := t.backend.Replace(oldDay, id, newDay, draft)
	if err != nil {
		return toolError(err)
	}
	t.logger.Info("lecture updated", zap.String("id", l.ID), zap.String("day", string(newDay)))
	return jsonResult(l)
}

func (t *Tools) DeleteLecture(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	snap, err := t.backend.Snapshot()
	if err != nil {
		return nil, err
	}
	day, _, ok := snap.Find(id)
	if !ok {
		return toolError(fmt.Errorf("delete %s: %w", id, timetable.ErrNotFound))
	}

	deleted, err := t.backend.Delete(day, id)
	if err != nil {
		return toolError(err)
	}
	if !deleted {
		return toolError(fmt.Errorf("delete %s: %w", id, timetable.ErrNotFound))
	}
	t.logger.Info("lecture deleted", zap.String("id", id), zap.String("day", string(day)))
	return mcp.NewToolResultText(fmt.Sprintf("deleted %s from %s", id, day)), nil
}
