// Package postgres is a reference internal/persistence.Persister backend
// over PostgreSQL, grounded on the teacher's internal/store/postgres
// goqu+database/sql pattern (spec §6.4 "Persistence (optional)").
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/oklog/ulid/v2"

	"github.com/jtchitty/legatoDataHub/internal/persistence"
)

var (
	ConnMaxLifetime = 15 * time.Minute
	MaxIdleConns    = 3
	MaxOpenConns    = 3

	// DefaultTablePrefix matches the teacher's store convention
	// (internal/store/postgres.DefaultTablePrefix).
	DefaultTablePrefix = "datahub_"
)

// Config configures the postgres persistence backend.
type Config struct {
	Datasource  string
	Schema      string
	TablePrefix string
}

// Store is a Persister backed by PostgreSQL.
type Store struct {
	db    *sql.DB
	goqu  *goqu.Database
	table string
}

// New opens (creating and migrating if necessary) the postgres store
// described by cfg.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Datasource == "" {
		return nil, errors.New("postgres persistence: datasource is required")
	}
	tablePrefix := cfg.TablePrefix
	if tablePrefix == "" {
		tablePrefix = DefaultTablePrefix
	}
	table := tablePrefix + "observation_buffers"

	if err := migrateDB(ctx, cfg.Datasource, tablePrefix+"migrations", tablePrefix); err != nil {
		return nil, fmt.Errorf("postgres persistence: migrate: %w", err)
	}

	db, err := sql.Open("pgx", cfg.Datasource)
	if err != nil {
		return nil, fmt.Errorf("postgres persistence: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres persistence: ping: %w", err)
	}

	if cfg.Schema != "" {
		if _, err := db.ExecContext(ctx, fmt.Sprintf("SET search_path TO %s", cfg.Schema)); err != nil {
			db.Close()
			return nil, fmt.Errorf("postgres persistence: set search_path: %w", err)
		}
	}

	db.SetConnMaxLifetime(ConnMaxLifetime)
	db.SetMaxIdleConns(MaxIdleConns)
	db.SetMaxOpenConns(MaxOpenConns)

	slog.Info("connected to observation buffer persistence store", "backend", "postgres")

	return &Store{db: db, goqu: goqu.New("postgres", db), table: table}, nil
}

// Close releases the underlying connection pool.
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
		return fmt.Errorf("postgres persistence: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	delQuery, _, err := s.goqu.Delete(s.table).Where(goqu.I("path").Eq(path)).ToSQL()
	if err != nil {
		return fmt.Errorf("postgres persistence: build delete: %w", err)
	}
	if _, err := tx.ExecContext(ctx, delQuery); err != nil {
		return fmt.Errorf("postgres persistence: clear %q: %w", path, err)
	}

	for _, e := range entries {
		insQuery, _, err := s.goqu.Insert(s.table).Rows(goqu.Record{
			"id":         ulid.Make().String(),
			"path":       path,
			"ts":         e.Timestamp,
			"value_json": e.ValueJSON,
		}).ToSQL()
		if err != nil {
			return fmt.Errorf("postgres persistence: build insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, insQuery); err != nil {
			return fmt.Errorf("postgres persistence: insert into %q: %w", path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres persistence: commit: %w", err)
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
		return nil, fmt.Errorf("postgres persistence: build select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres persistence: load %q: %w", path, err)
	}
	defer rows.Close()

	var out []persistence.Entry
	for rows.Next() {
		var e persistence.Entry
		if err := rows.Scan(&e.Timestamp, &e.ValueJSON); err != nil {
			return nil, fmt.Errorf("postgres persistence: scan %q: %w", path, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

var _ persistence.Persister = (*Store)(nil)
