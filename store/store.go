package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"   // registers "postgres"
	_ "modernc.org/sqlite" // registers "sqlite"

	"github.com/katalvlaran/pulsetrain/stim"
	"github.com/katalvlaran/pulsetrain/stimerr"
)

// Supported driver names.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DefaultListLimit caps List when the caller passes a non-positive limit.
const DefaultListLimit = 50

// timeLayout is RFC 3339 with a fixed nine-digit fraction.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNotFound is returned by Get when no row has the requested id.
var ErrNotFound = errors.New("store: snapshot not found")

const schema = `
CREATE TABLE IF NOT EXISTS snapshot (
    id         TEXT PRIMARY KEY,
    platform   TEXT NOT NULL,
    stage      TEXT NOT NULL,
    payload    TEXT NOT NULL,
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshot_created_at ON snapshot(created_at);
CREATE INDEX IF NOT EXISTS idx_snapshot_platform ON snapshot(platform);
`

// Record is one persisted snapshot projection.
type Record struct {
	ID        uuid.UUID      `json:"id"`
	Platform  string         `json:"platform"`
	Stage     string         `json:"stage"`
	CreatedAt time.Time      `json:"created_at"`
	Payload   map[string]any `json:"payload"`
}

// Store saves and loads snapshot projections.
type Store struct {
	db     *sql.DB
	driver string
	now    func() time.Time
}

// Option customizes a Store.
type Option func(*Store)

// WithClock replaces time.Now for created_at stamps. Panics on nil.
func WithClock(now func() time.Time) Option {
	if now == nil {
		panic("store: WithClock(nil)")
	}

	return func(s *Store) { s.now = now }
}

// Open connects to dsn with driver, verifies the connection and creates
// the schema. The caller owns the Store and must Close it.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*Store, error) {
	if err := checkDriver(driver); err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// One writer at a time; sqlite serializes anyway.
		db.SetMaxOpenConns(1)
	}

	s, err := New(ctx, db, driver, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// New wraps an open database handle and creates the schema.
func New(ctx context.Context, db *sql.DB, driver string, opts ...Option) (*Store, error) {
	if err := checkDriver(driver); err != nil {
		return nil, err
	}
	s := &Store{db: db, driver: driver, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.CreateSchema(ctx); err != nil {
		return nil, err
	}

	return s, nil
}

func checkDriver(driver string) error {
	if driver != DriverSQLite && driver != DriverPostgres {
		return stimerr.Wrap("store.Open", stimerr.ErrConfiguration, "unsupported driver %q", driver)
	}

	return nil
}

// CreateSchema creates the tables. Safe to call multiple times.
func (s *Store) CreateSchema(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store: create schema: %w", err)
		}
	}

	return nil
}

// Save persists the projection of snap and returns the stored record.
func (s *Store) Save(ctx context.Context, snap *stim.Snapshot) (Record, error) {
	payload := snap.Struct()
	raw, err := json.Marshal(payload)
	if err != nil {
		return Record{}, fmt.Errorf("store: encode payload: %w", err)
	}
	rec := Record{
		ID:        snap.ID(),
		Platform:  snap.Platform().Name,
		Stage:     snap.Stage().String(),
		CreatedAt: s.now().UTC(),
	}
	_, err = s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO snapshot (id, platform, stage, payload, created_at)
		VALUES (?, ?, ?, ?, ?)`),
		rec.ID.String(), rec.Platform, rec.Stage, string(raw), rec.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return Record{}, fmt.Errorf("store: insert %s: %w", rec.ID, err)
	}
	// Round-trip the payload so Save and Get return the same shape.
	if err := json.Unmarshal(raw, &rec.Payload); err != nil {
		return Record{}, fmt.Errorf("store: decode payload: %w", err)
	}

	return rec, nil
}

// Get loads the record with the given id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (Record, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT id, platform, stage, payload, created_at
		FROM snapshot
		WHERE id = ?`), id.String())
	rec, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("store: get %s: %w", id, ErrNotFound)
	}

	return rec, err
}

// List returns up to limit records, newest first; platform filters when
// non-empty.
func (s *Store) List(ctx context.Context, platform string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	query := `SELECT id, platform, stage, payload, created_at FROM snapshot`
	args := []any{}
	if platform != "" {
		query += ` WHERE platform = ?`
		args = append(args, platform)
	}
	query += ` ORDER BY created_at DESC, id LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		rec, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}

	return out, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

type scanner interface {
	Scan(dest ...any) error
}

func scan(sc scanner) (Record, error) {
	var (
		rec               Record
		id, payload, when string
	)
	if err := sc.Scan(&id, &rec.Platform, &rec.Stage, &payload, &when); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, err
		}
		return Record{}, fmt.Errorf("store: scan: %w", err)
	}
	var err error
	if rec.ID, err = uuid.Parse(id); err != nil {
		return Record{}, fmt.Errorf("store: bad id %q: %w", id, err)
	}
	if rec.CreatedAt, err = time.Parse(timeLayout, when); err != nil {
		return Record{}, fmt.Errorf("store: bad created_at %q: %w", when, err)
	}
	if err := json.Unmarshal([]byte(payload), &rec.Payload); err != nil {
		return Record{}, fmt.Errorf("store: decode payload: %w", err)
	}

	return rec, nil
}

// rebind rewrites '?' placeholders to '$1', '$2', … for postgres.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var (
		b strings.Builder
		n int
	)
	b.Grow(len(query) + 8)
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}

	return b.String()
}
