package daemon

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"

	"github.com/jwulff/timetable/internal/timetable"
)

// SocketPath returns the default daemon socket path.
func SocketPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir, _ = os.UserHomeDir()
	}
	return filepath.Join(dir, "Timetable", "timetable.sock")
}

// Client communicates with the timetable daemon over a Unix socket.
type Client struct {
	conn    net.Conn
	scanner *bufio.Scanner
	mu      sync.Mutex
}

// Connect dials the daemon Unix socket.
func Connect(socketPath string) (*Client, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("connect to daemon: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024) // 1MB buffer

	return &Client{conn: conn, scanner: scanner}, nil
}

// Close shuts down the connection.
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// SendCommand sends a command and reads one response line.
func (c *Client) SendCommand(cmd Command) (Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := json.Marshal(cmd)
	if err != nil {
		return Response{}, fmt.Errorf("marshal command: %w", err)
	}

	data = append(data, '\n')
	if _, err := c.conn.Write(data); err != nil {
		return Response{}, fmt.Errorf("write command: %w", err)
	}

	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			return Response{}, fmt.Errorf("read response: %w", err)
		}
		return Response{}, fmt.Errorf("connection closed")
	}

	var resp Response
	if err := json.Unmarshal(c.scanner.Bytes(), &resp); err != nil {
		return Response{}, fmt.Errorf("unmarshal response: %w", err)
	}

	return resp, nil
}

// ReadEvent reads the next NDJSON event line. Blocks until data arrives.
// After calling Subscribe, use this in a loop to receive events.
func (c *Client) ReadEvent() (Event, error) {
	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			return Event{}, fmt.Errorf("read event: %w", err)
		}
		return Event{}, fmt.Errorf("connection closed")
	}

	var ev Event
	if err := json.Unmarshal(c.scanner.Bytes(), &ev); err != nil {
		return Event{}, fmt.Errorf("unmarshal event: %w", err)
	}

	return ev, nil
}

// Snapshot fetches the whole timetable.
func (c *Client) Snapshot() (timetable.Snapshot, error) {
	resp, err := c.SendCommand(Command{Cmd: CmdSnapshot})
	if err != nil {
		return timetable.Snapshot{}, err
	}
	if err := resp.Err(); err != nil {
		return timetable.Snapshot{}, err
	}
	if resp.Snapshot == nil {
		return timetable.Snapshot{}, fmt.Errorf("snapshot: empty response")
	}
	return *resp.Snapshot, nil
}

// Insert adds draft on day.
func (c *Client) Insert(day timetable.Day, draft timetable.Draft) (timetable.Lecture, error) {
	return c.lectureCommand(Command{Cmd: CmdInsert, Day: string(day), Lecture: &draft})
}

// Replace edits lecture id, moving it from oldDay to newDay.
func (c *Client) Replace(oldDay timetable.Day, id string, newDay timetable.Day, draft timetable.Draft) (timetable.Lecture, error) {
	return c.lectureCommand(Command{
		Cmd:     CmdReplace,
		Day:     string(oldDay),
		NewDay:  string(newDay),
		ID:      id,
		Lecture: &draft,
	})
}

// Delete removes lecture id from day.
func (c *Client) Delete(day timetable.Day, id string) (bool, error) {
	resp, err := c.SendCommand(Command{Cmd: CmdDelete, Day: string(day), ID: id})
	if err != nil {
		return false, err
	}
	if err := resp.Err(); err != nil {
		return false, err
	}
	return resp.Deleted != nil && *resp.Deleted, nil
}

// Subscribe switches this connection to event streaming. Use a dedicated
// client for it; afterwards only ReadEvent may be called.
func (c *Client) Subscribe() error {
	resp, err := c.SendCommand(Command{Cmd: CmdSubscribe})
	if err != nil {
		return err
	}
	return resp.Err()
}

func (c *Client) lectureCommand(cmd Command) (timetable.Lecture, error) {
	resp, err := c.SendCommand(cmd)
	if err != nil {
		return timetable.Lecture{}, err
	}
	if err := resp.Err(); err != nil {
		return timetable.Lecture{}, err
	}
	if resp.Lecture == nil {
		return timetable.Lecture{}, fmt.Errorf("%s: empty response", cmd.Cmd)
	}
	return *resp.Lecture, nil
}
