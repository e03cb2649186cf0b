package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jwulff/timetable/internal/app"
	"github.com/jwulff/timetable/internal/daemon"
	"github.com/jwulff/timetable/internal/db"
	"github.com/jwulff/timetable/internal/logging"
	"github.com/jwulff/timetable/internal/mcpserver"
	"github.com/jwulff/timetable/internal/store"
	"github.com/jwulff/timetable/internal/timetable"
	"github.com/jwulff/timetable/internal/web"
)

var version = "dev"

type options struct {
	dbPath   string
	logFile  string
	logLevel string
	socket   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	var remote bool

	root := &cobra.Command{
		Use:           "timetable",
		Short:         "Weekly lecture timetable editor",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(opts, remote)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.dbPath, "db", "", "SQLite file holding the timetable, e.g. "+db.DefaultDBPath()+" (empty keeps it in memory)")
	pf.StringVar(&opts.logFile, "log-file", logging.DefaultLogPath(), "log file (empty disables file logging)")
	pf.StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	pf.StringVar(&opts.socket, "socket", daemon.SocketPath(), "daemon Unix socket path")

	root.Flags().BoolVar(&remote, "remote", false, "edit the timetable held by a running daemon")

	root.AddCommand(newServeCmd(opts), newWebCmd(opts), newMCPCmd(opts))
	return root
}

func newServeCmd(opts *options) *cobra.Command {
	var httpAddr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the timetable daemon on a Unix socket",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, true, httpAddr)
		},
	}
	cmd.Flags().StringVar(&httpAddr, "http", "", "also serve the web UI on this address")
	return cmd
}

func newWebCmd(opts *options) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "web",
		Short: "Serve the timetable web UI and JSON API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, false, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	return cmd
}

func newMCPCmd(opts *options) *cobra.Command {
	var remote bool
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Expose the timetable as MCP tools over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP(opts, remote)
		},
	}
	cmd.Flags().BoolVar(&remote, "remote", false, "edit the timetable held by a running daemon")
	return cmd
}

// newLogger builds the command's logger. Commands that own the terminal or
// stdout pass stderr=false.
func newLogger(opts *options, stderr bool) (*zap.Logger, error) {
	return logging.New(logging.Options{
		File:   opts.logFile,
		Stderr: stderr,
		Level:  opts.logLevel,
	})
}

// openStore builds the in-memory store, seeded from and saved to --db when set.
func openStore(opts *options, logger *zap.Logger) (*store.Store, func(), error) {
	if opts.dbPath == "" {
		logger.Info("timetable kept in memory")
		return store.New(), func() {}, nil
	}

	dbStore, err := db.Open(opts.dbPath)
	if err != nil {
		return nil, nil, err
	}
	snap, err := dbStore.Load()
	if err != nil {
		dbStore.Close()
		return nil, nil, err
	}
	logger.Info("timetable loaded",
		zap.String("path", opts.dbPath),
		zap.Int("lectures", snap.Len()),
		zap.Uint64("version", snap.Version),
	)

	st := store.New(store.WithSnapshot(snap))

	// Listeners may run concurrently; only ever write forward.
	var mu sync.Mutex
	saved := snap.Version
	cancel := st.Subscribe(func(s timetable.Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		if s.Version <= saved {
			return
		}
		if err := dbStore.Save(s); err != nil {
			logger.Error("save timetable", zap.Error(err), zap.Uint64("version", s.Version))
			return
		}
		saved = s.Version
	})

	return st, func() {
		cancel()
		dbStore.Close()
	}, nil
}

func runTUI(opts *options, remote bool) error {
	logger, err := newLogger(opts, false)
	if err != nil {
		return err
	}
	defer logger.Sync()

	var m app.Model
	if remote {
		logger.Info("tui starting", zap.String("socket", opts.socket))
		m = app.NewRemote(opts.socket)
	} else {
		st, closeStore, err := openStore(opts, logger)
		if err != nil {
			return err
		}
		defer closeStore()
		logger.Info("tui starting", zap.String("db", opts.dbPath))
		m = app.New(app.LocalBackend{Store: st})
	}

	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}

// runServe hosts one store behind the daemon socket, the web UI, or both,
// until SIGINT or SIGTERM.
func runServe(opts *options, withDaemon bool, httpAddr string) error {
	logger, err := newLogger(opts, true)
	if err != nil {
		return err
	}
	defer logger.Sync()

	st, closeStore, err := openStore(opts, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	var ws *web.Server
	if httpAddr != "" {
		if ws, err = web.New(st, logger.Named("web")); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	if withDaemon {
		ln, err := daemon.Listen(opts.socket)
		if err != nil {
			return err
		}
		srv := daemon.NewServer(st, logger.Named("daemon"))
		g.Go(func() error { return srv.Serve(ctx, ln) })
	}
	if ws != nil {
		g.Go(func() error { return ws.ListenAndServe(ctx, httpAddr) })
	}

	err = g.Wait()
	logger.Info("shutting down", zap.Error(err))
	return err
}

func runMCP(opts *options, remote bool) error {
	logger, err := newLogger(opts, false)
	if err != nil {
		return err
	}
	defer logger.Sync()

	var backend mcpserver.Backend
	if remote {
		client, err := daemon.Connect(opts.socket)
		if err != nil {
			return err
		}
		defer client.Close()
		backend = client
	} else {
		st, closeStore, err := openStore(opts, logger)
		if err != nil {
			return err
		}
		defer closeStore()
		backend = app.LocalBackend{Store: st}
	}

	s := mcpserver.NewServer(mcpserver.NewTools(backend, logger.Named("mcp")), version)
	logger.Info("mcp server starting", zap.Bool("remote", remote))
	if err := mcpserver.ServeStdio(s); err != nil {
		return fmt.Errorf("serve mcp: %w", err)
	}
	return nil
}
