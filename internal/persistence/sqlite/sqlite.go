// Package sqlite is a reference internal/persistence.Persister backend
// over modernc.org/sqlite, grounded on the teacher's
// internal/store/sqlite3 goqu+database/sql pattern (spec §6.4
// "Persistence (optional)").
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/jtchitty/legatoDataHub/internal/persistence"
)

// DefaultTablePrefix matches the teacher's store convention
// (internal/store/sqlite3.DefaultTablePrefix).
var DefaultTablePrefix = "datahub_"

// Config configures the sqlite persistence backend.
type Config struct {
	Datasource  string
	TablePrefix string // defaults to DefaultTablePrefix
}

// Store is a Persister backed by a local sqlite database.
type Store struct {
	db    *sql.DB
	goqu  *goqu.Database
	table string
}

// New opens (creating and migrating if necessary) the sqlite store
// described by cfg.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Datasource == "" {
		return nil, errors.New("sqlite persistence: datasource is required")
	}
	tablePrefix := cfg.TablePrefix
	if tablePrefix == "" {
		tablePrefix = DefaultTablePrefix
	}
	table := tablePrefix + "observation_buffers"

	if err := migrateDB(ctx, cfg.Datasource, tablePrefix+"migrations", tablePrefix); err != nil {
		return nil, fmt.Errorf("sqlite persistence: migrate: %w", err)
	}

	db, err := sql.Open("sqlite", cfg.Datasource)
	if err != nil {
		return nil, fmt.Errorf("sqlite persistence: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite persistence: ping: %w", err)
	}

	// sqlite is single-writer, so all statements go through one
	// connection; admin.FlushPersistence releases the tree lock before
	// writing, so concurrent flushes queue on this connection
	// (teacher's internal/store/sqlite3.New does the same).
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	slog.Info("connected to observation buffer persistence store", "backend", "sqlite")

	return &Store{db: db, goqu: goqu.New("sqlite3", db), table: table}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// PersistObservation replaces the stored buffer for path with entries.
func (s *Store) PersistObservation(ctx context.Context, path string, entries []persistence.Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite persistence: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	delQuery, _, err := s.goqu.Delete(s.table).Where(goqu.I("path").Eq(path)).ToSQL()
	if err != nil {
		return fmt.Errorf("sqlite persistence: build delete: %w", err)
	}
	if _, err := tx.ExecContext(ctx, delQuery); err != nil {
		return fmt.Errorf("sqlite persistence: clear %q: %w", path, err)
	}

	for _, e := range entries {
		insQuery, _, err := s.goqu.Insert(s.table).Rows(goqu.Record{
			"id":         ulid.Make().String(),
			"path":       path,
			"ts":         e.Timestamp,
			"value_json": e.ValueJSON,
		}).ToSQL()
		if err != nil {
			return fmt.Errorf("sqlite persistence: build insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, insQuery); err != nil {
			return fmt.Errorf("sqlite persistence: insert into %q: %w", path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite persistence: commit: %w", err)
	}
	return nil
}

// LoadObservation returns the stored buffer for path in timestamp order.
func (s *Store) LoadObservation(ctx context.Context, path string) ([]persistence.Entry, error) {
	query, _, err := s.goqu.From(s.table).
		Select("ts", "value_json").
		Where(goqu.I("path").Eq(path)).
		Order(goqu.I("ts").Asc()).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("sqlite persistence: build select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("sqlite persistence: load %q: %w", path, err)
	}
	defer rows.Close()

	var out []persistence.Entry
	for rows.Next() {
		var e persistence.Entry
		if err := rows.Scan(&e.Timestamp, &e.ValueJSON); err != nil {
			return nil, fmt.Errorf("sqlite persistence: scan %q: %w", path, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

var _ persistence.Persister = (*Store)(nil)
