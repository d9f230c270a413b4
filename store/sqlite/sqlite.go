/*
Package sqlite provides the SQLite-backed implementation of core.Store.

PURPOSE:
  Production persistence for the guest-services engine. The same schema
  and query patterns port to PostgreSQL with minor dialect changes.

KEY TABLES:
  hotels, rooms, services, users:  tenant and onboarding entities
  service_requests:                the unit of work
  analytics_events:                append-only audit trail

CONDITIONAL CLAIM:
  ClaimPending is a single UPDATE guarded by "AND status='pending'".
  Under concurrent assignment exactly one caller's update matches; the
  database is the arbiter, not in-process locking.

APPEND-ONLY EVENTS:
  analytics_events has no UPDATE or DELETE statements anywhere in this
  package. LastAssignments reads staff ids back out of the JSON payload
  via json_extract (JSON1 is compiled into mattn/go-sqlite3).

WAL MODE:
  Opened with WAL for read concurrency and crash recovery; foreign keys
  are enforced.

USAGE:
  st, err := sqlite.New("./concierge.db")  // ":memory:" for tests
  defer st.Close()

SEE ALSO:
  - core/store.go: interface contracts
  - core/store/memory.go: in-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/stayops/concierge-engine/core"
)

// querier is satisfied by both *sql.DB and *sql.Tx so every query method
// works inside and outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements core.Store on SQLite.
type Store struct {
	db *sql.DB
	q  querier
}

var _ core.Store = (*Store)(nil)

// New opens (and migrates) the database at dbPath. Use ":memory:" for an
// in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db, q: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS hotels (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		plan_tier TEXT NOT NULL DEFAULT 'trial',
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS rooms (
		id TEXT PRIMARY KEY,
		hotel_id TEXT NOT NULL REFERENCES hotels(id),
		number TEXT NOT NULL,
		floor INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_rooms_hotel ON rooms(hotel_id);

	CREATE TABLE IF NOT EXISTS services (
		id TEXT PRIMARY KEY,
		hotel_id TEXT NOT NULL REFERENCES hotels(id),
		name TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_services_hotel ON services(hotel_id);

	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		hotel_id TEXT NOT NULL REFERENCES hotels(id),
		name TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_users_hotel_role ON users(hotel_id, role);

	CREATE TABLE IF NOT EXISTS service_requests (
		id TEXT PRIMARY KEY,
		hotel_id TEXT NOT NULL REFERENCES hotels(id),
		room_id TEXT NOT NULL DEFAULT '',
		guest_id TEXT NOT NULL,
		service_id TEXT NOT NULL,
		assigned_staff_id TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		priority TEXT NOT NULL,
		status TEXT NOT NULL,
		requested_at TEXT NOT NULL,
		started_at TEXT,
		completed_at TEXT
	);

	-- Hot paths: tenant listings and per-staff active counts.
	CREATE INDEX IF NOT EXISTS idx_requests_hotel_status
		ON service_requests(hotel_id, status);
	CREATE INDEX IF NOT EXISTS idx_requests_staff_status
		ON service_requests(assigned_staff_id, status)
		WHERE assigned_staff_id != '';

	-- Append-only audit trail.
	CREATE TABLE IF NOT EXISTS analytics_events (
		id TEXT PRIMARY KEY,
		hotel_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		event_data TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_events_hotel_type_time
		ON analytics_events(hotel_id, event_type, created_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn against a Store bound to one database transaction.
// Nested calls reuse the outer transaction.
func (s *Store) WithTx(ctx context.Context, fn func(core.Store) error) error {
	if _, ok := s.q.(*sql.Tx); ok {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	txStore := &Store{db: s.db, q: tx}
	if err := fn(txStore); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// =============================================================================
// TIME HELPERS - TEXT column round-tripping
// =============================================================================

const timeLayout = time.RFC3339Nano

func fmtTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func fmtTimePtr(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: fmtTime(*t), Valid: true}
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

func parseTimePtr(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
