package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/jwulff/timetable/internal/timetable"

	_ "modernc.org/sqlite"
)

const schema = `
	CREATE TABLE IF NOT EXISTS lectures (
		id TEXT PRIMARY KEY,
		day TEXT NOT NULL,
		start INTEGER NOT NULL,
		"end" INTEGER NOT NULL,
		name TEXT NOT NULL,
		color TEXT NOT NULL,
		position INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
`

// Store saves and loads timetable snapshots.
type Store struct {
	db *sql.DB
}

// DefaultDBPath returns the default database path.
func DefaultDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir, _ = os.UserHomeDir()
	}
	return filepath.Join(dir, "Timetable", "timetable.sqlite")
}

// Open opens (creating if needed) the database with WAL and ensures the schema.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Verify connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s, err := newStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func newStore(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load reads the saved timetable. An empty database yields an empty snapshot.
func (s *Store) Load() (timetable.Snapshot, error) {
	snap := timetable.EmptySnapshot()

	rows, err := s.db.Query(`
		SELECT id, day, start, "end", name, color, position
		FROM lectures
		ORDER BY day, position ASC
	`)
	if err != nil {
		return snap, fmt.Errorf("query lectures: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r lectureRow
		if err := rows.Scan(&r.ID, &r.Day, &r.Start, &r.End, &r.Name, &r.Color, &r.Position); err != nil {
			return snap, fmt.Errorf("scan lecture: %w", err)
		}
		day, err := timetable.ParseDay(r.Day)
		if err != nil {
			return snap, fmt.Errorf("lecture %s: %w", r.ID, err)
		}
		snap.Days[day] = append(snap.Days[day], r.lecture())
	}
	if err := rows.Err(); err != nil {
		return snap, err
	}

	version, err := s.version()
	if err != nil {
		return snap, err
	}
	snap.Version = version
	return snap, nil
}

// Save replaces the stored timetable with snap in one transaction.
func (s *Store) Save(snap timetable.Snapshot) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM lectures`); err != nil {
		return fmt.Errorf("clear lectures: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO lectures (id, day, start, "end", name, color, position)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, day := range timetable.Days {
		for i, l := range snap.Day(day) {
			if _, err := stmt.Exec(l.ID, string(day), l.Start, l.End, l.Name, l.Color, i); err != nil {
				return fmt.Errorf("insert lecture %s: %w", l.ID, err)
			}
		}
	}

	if _, err := tx.Exec(`
		INSERT INTO meta (key, value) VALUES ('version', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, strconv.FormatUint(snap.Version, 10)); err != nil {
		return fmt.Errorf("save version: %w", err)
	}

	return tx.Commit()
}

func (s *Store) version() (uint64, error) {
	var raw string
	err := s.db.QueryRow(`SELECT value FROM meta WHERE key = 'version'`).Scan(&raw)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read version: %w", err)
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse version %q: %w", raw, err)
	}
	return v, nil
}
