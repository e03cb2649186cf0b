package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jwulff/timetable/internal/store"
	"github.com/jwulff/timetable/internal/timetable"
)

const (
	writeTimeout = 5 * time.Second

	// eventBuffer is how many events a subscriber may fall behind before it
	// is dropped.
	eventBuffer = 16
)

// Server shares one store with every connected client.
type Server struct {
	store  *store.Store
	logger *zap.Logger

	mu    sync.Mutex
	conns map[*serverConn]struct{}
	subs  map[*serverConn]chan Event
}

type serverConn struct {
	net.Conn
	wmu sync.Mutex
}

func (c *serverConn) writeLine(v any) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return c.writeLocked(v)
}

func (c *serverConn) writeLocked(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	c.SetWriteDeadline(time.Now().Add(writeTimeout))
	_, err = c.Write(data)
	return err
}

// NewServer creates a server for st.
func NewServer(st *store.Store, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		store:  st,
		logger: logger,
		conns:  make(map[*serverConn]struct{}),
		subs:   make(map[*serverConn]chan Event),
	}
}

// Listen removes a stale socket at path and listens on it.
func Listen(path string) (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create socket dir: %w", err)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("remove stale socket: %w", err)
	}
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", path, err)
	}
	return ln, nil
}

// Serve accepts connections until ctx is cancelled or ln fails.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	unsubscribe := s.store.Subscribe(s.broadcast)
	defer unsubscribe()

	go func() {
		<-ctx.Done()
		ln.Close()
		s.closeAll()
	}()

	s.logger.Info("daemon listening", zap.String("addr", ln.Addr().String()))

	var wg sync.WaitGroup
	defer wg.Wait()
	defer s.closeAll()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}

		sc := &serverConn{Conn: conn}
		s.mu.Lock()
		s.conns[sc] = struct{}{}
		s.mu.Unlock()

		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handleConn(sc)
		}()
	}
}

func (s *Server) handleConn(c *serverConn) {
	defer s.drop(c)

	scanner := bufio.NewScanner(c)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		var cmd Command
		if err := json.Unmarshal(scanner.Bytes(), &cmd); err != nil {
			s.logger.Warn("bad command", zap.Error(err))
			if err := c.writeLine(Response{Error: "invalid json", Code: CodeBadRequest}); err != nil {
				return
			}
			continue
		}

		if s.isSubscriber(c) {
			// Subscribed connections only receive events.
			continue
		}

		if cmd.Cmd == CmdSubscribe {
			if err := s.subscribe(c); err != nil {
				return
			}
			continue
		}

		resp := s.handle(cmd)
		if err := c.writeLine(resp); err != nil {
			s.logger.Debug("write response", zap.Error(err))
			return
		}
	}
}

// handle executes one command and builds its response.
func (s *Server) handle(cmd Command) Response {
	log := s.logger.With(zap.String("cmd", cmd.Cmd))

	switch cmd.Cmd {
	case CmdSnapshot:
		snap := s.store.Snapshot()
		return Response{OK: true, Snapshot: &snap}
	}

	op, err := decode(cmd)
	if err != nil {
		log.Warn("rejected command", zap.Error(err))
		return errorResponse(err)
	}

	res, err := s.store.Execute(op)
	if err != nil {
		log.Info("command failed", zap.Error(err))
		return errorResponse(err)
	}

	log.Info("command applied", zap.String("id", res.Lecture.ID), zap.String("day", cmd.Day))
	resp := Response{OK: true}
	if cmd.Cmd == CmdDelete {
		resp.Deleted = BoolPtr(res.Deleted)
	} else {
		l := res.Lecture
		resp.Lecture = &l
	}
	return resp
}

// decode turns a wire command into a store command.
func decode(cmd Command) (store.Command, error) {
	switch cmd.Cmd {
	case CmdInsert, CmdReplace, CmdDelete:
	default:
		return nil, fmt.Errorf("unknown command %q", cmd.Cmd)
	}

	day, err := timetable.ParseDay(cmd.Day)
	if err != nil {
		return nil, err
	}

	switch cmd.Cmd {
	case CmdInsert:
		if cmd.Lecture == nil {
			return nil, errors.New("insert: missing lecture")
		}
		return store.InsertCommand{Day: day, Draft: *cmd.Lecture}, nil

	case CmdReplace:
		if cmd.Lecture == nil {
			return nil, errors.New("replace: missing lecture")
		}
		newDay := day
		if cmd.NewDay != "" {
			if newDay, err = timetable.ParseDay(cmd.NewDay); err != nil {
				return nil, err
			}
		}
		return store.ReplaceCommand{OldDay: day, ID: cmd.ID, NewDay: newDay, Draft: *cmd.Lecture}, nil

	default:
		return store.DeleteCommand{Day: day, ID: cmd.ID}, nil
	}
}

// broadcast queues ev for every subscriber without blocking the writer that
// changed the store. A subscriber whose queue is full is disconnected.
func (s *Server) broadcast(snap timetable.Snapshot) {
	ev := Event{Event: EventChanged, Version: snap.Version, Snapshot: &snap}

	s.mu.Lock()
	defer s.mu.Unlock()
	for c, events := range s.subs {
		select {
		case events <- ev:
		default:
			s.logger.Warn("dropping slow subscriber", zap.Uint64("version", snap.Version))
			s.unsubscribeLocked(c)
			c.Close()
		}
	}
}

// subscribe registers c for events and starts its writer once the OK line is
// out, so no event can precede it.
func (s *Server) subscribe(c *serverConn) error {
	events := make(chan Event, eventBuffer)

	s.mu.Lock()
	s.subs[c] = events
	s.mu.Unlock()

	if err := c.writeLine(Response{OK: true}); err != nil {
		return err
	}
	go s.writeEvents(c, events)
	s.logger.Debug("client subscribed")
	return nil
}

func (s *Server) writeEvents(c *serverConn, events <-chan Event) {
	for ev := range events {
		if err := c.writeLine(ev); err != nil {
			s.logger.Debug("dropping subscriber", zap.Error(err))
			c.Close()
			return
		}
	}
}

func (s *Server) unsubscribeLocked(c *serverConn) {
	if events, ok := s.subs[c]; ok {
		delete(s.subs, c)
		close(events)
	}
}

func (s *Server) isSubscriber(c *serverConn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.subs[c]
	return ok
}

func (s *Server) drop(c *serverConn) {
	s.mu.Lock()
	delete(s.conns, c)
	s.unsubscribeLocked(c)
	s.mu.Unlock()
	c.Close()
}

func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		c.Close()
	}
}
