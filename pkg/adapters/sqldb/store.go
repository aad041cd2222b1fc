// Package sqldb implements the remote session mirror on PostgreSQL or SQLite.
//
// The store owns a single table, quiz_sessions, created by an embedded migration when
// the store is opened.
package sqldb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "embed"

	"github.com/aretw0/funnel/internal/logging"
	"github.com/aretw0/funnel/pkg/domain"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

//go:embed migrations_postgres.sql
var postgresMigrations string

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// DetectDriver picks the driver for a DSN: URLs and keyword DSNs go to Postgres,
// anything else is a SQLite path.
func DetectDriver(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return DriverPostgres
	}
	return DriverSQLite
}

// Store implements ports.SessionStore and ports.SessionReader.
type Store struct {
	db     *sql.DB
	driver string
	logger *slog.Logger
	now    func() time.Time
}

// Option configures the Store.
type Option func(*Store)

// WithLogger configures a logger for the Store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// Open connects to dsn, detecting the driver, and applies the migration.
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database DSN not set")
	}
	driver := DetectDriver(dsn)

	if driver == DriverSQLite && !strings.HasPrefix(dsn, ":memory:") && !strings.HasPrefix(dsn, "file:") {
		dir := filepath.Dir(dsn)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}

	if driver == DriverSQLite {
		// Each connection to :memory: is a distinct database.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(DefaultMaxOpenConns)
		db.SetMaxIdleConns(DefaultMaxIdleConns)
		db.SetConnMaxLifetime(DefaultConnMaxLifetime)
	}

	s, err := New(ctx, db, driver, opts...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open database and applies the migration.
func New(ctx context.Context, db *sql.DB, driver string, opts ...Option) (*Store, error) {
	s := &Store{
		db:     db,
		driver: driver,
		logger: logging.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrations := sqliteMigrations
	if driver == DriverPostgres {
		migrations = postgresMigrations
	}
	if _, err := db.ExecContext(ctx, migrations); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	s.logger.Debug("Session store migrations applied", "driver", driver)
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Create inserts a new session record.
func (s *Store) Create(ctx context.Context, utm domain.UTM) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO quiz_sessions (id, started_at, current_step, answers, utm_source, utm_medium, utm_campaign)
		 VALUES (?, ?, 1, '{}', ?, ?, ?)`),
		id, s.now().UTC(), nullString(utm.Source), nullString(utm.Medium), nullString(utm.Campaign),
	)
	if err != nil {
		s.logger.Error("Failed to create session", "err", err)
		return "", fmt.Errorf("failed to insert session: %w", err)
	}
	s.logger.Debug("Session created", "session_id", id, "utm_source", utm.Source)
	return id, nil
}

// Update applies the non-nil fields of update.
func (s *Store) Update(ctx context.Context, id string, update domain.SessionUpdate) error {
	var (
		sets []string
		args []any
	)
	if update.Answers != nil {
		data, err := json.Marshal(update.Answers)
		if err != nil {
			return fmt.Errorf("failed to marshal answers: %w", err)
		}
		sets = append(sets, "answers = ?")
		args = append(args, string(data))
	}
	if update.CurrentStep != nil {
		sets = append(sets, "current_step = ?")
		args = append(args, *update.CurrentStep)
	}
	if update.Email != nil {
		sets = append(sets, "email = ?")
		args = append(args, *update.Email)
	}
	if update.CompletedAt != nil {
		sets = append(sets, "completed_at = ?")
		args = append(args, update.CompletedAt.UTC())
	}

	if len(sets) == 0 {
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
		return nil
	}

	args = append(args, id)
	query := s.rebind("UPDATE quiz_sessions SET " + strings.Join(sets, ", ") + " WHERE id = ?")
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		s.logger.Error("Failed to update session", "session_id", id, "err", err)
		return fmt.Errorf("failed to update session %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// Get reads a session record.
func (s *Store) Get(ctx context.Context, id string) (*domain.RemoteSession, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT id, started_at, completed_at, email, current_step, answers, utm_source, utm_medium, utm_campaign
		 FROM quiz_sessions WHERE id = ?`), id)

	var (
		rec       domain.RemoteSession
		completed sql.NullTime
		email     sql.NullString
		answers   string
		source    sql.NullString
		medium    sql.NullString
		campaign  sql.NullString
	)
	err := row.Scan(&rec.ID, &rec.StartedAt, &completed, &email, &rec.CurrentStep, &answers, &source, &medium, &campaign)
	if err == sql.ErrNoRows {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan session %s: %w", id, err)
	}

	if err := json.Unmarshal([]byte(answers), &rec.Answers); err != nil {
		return nil, fmt.Errorf("failed to unmarshal answers of session %s: %w", id, err)
	}
	if completed.Valid {
		t := completed.Time
		rec.CompletedAt = &t
	}
	rec.Email = email.String
	rec.UTM = domain.UTM{Source: source.String, Medium: medium.String, Campaign: campaign.String}
	return &rec, nil
}

// rebind rewrites ? placeholders into $n for Postgres.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
