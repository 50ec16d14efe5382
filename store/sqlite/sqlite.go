/*
Package sqlite provides the SQLite-backed store of the rental service.

PURPOSE:
  Persists users, properties, bookings, reviews and wishlists. Queries go
  through sqlx; rows are scanned into record structs (db tags) and
  converted to rental types at the package boundary.

KEY TABLES:
  users, profiles:  Accounts and their role/contact details (1:1)
  properties:       Listings, amenities as a JSON array
  bookings:         Stays, payment_data as the JSON payment layout,
                    version for optimistic locking
  reviews:          One per (property, user)
  wishlists:        One per (user, property)

OPTIMISTIC LOCKING:
  Every booking write is
      UPDATE ... SET version = version + 1 WHERE id = ? AND version = ?
  Zero affected rows on an existing booking means another writer got there
  first: ErrConcurrentModification. Callers reload and retry.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety on top of a single connection.
  SQLite allows one writer at a time and ":memory:" databases are
  per-connection, so the pool is capped at one.

USAGE:
  store, err := sqlite.New("./data/rental.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). Statements are idempotent.

SEE ALSO:
  - rental/errors.go: Errors returned from here
  - billing/payments.go: payment_data layout
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"github.com/warp/rental-engine/rental"
)

// Store implements persistence for the rental domain.
type Store struct {
	db *sqlx.DB
	mu sync.RWMutex

	// now stamps created_at/updated_at columns. Overridable in tests.
	now func() time.Time
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sqlx.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection, for health checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL DEFAULT '',
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- Empty emails are allowed more than once
	CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email
		ON users(email) WHERE email != '';

	CREATE TABLE IF NOT EXISTS profiles (
		user_id TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
		role TEXT NOT NULL DEFAULT 'user',
		phone TEXT NOT NULL DEFAULT '',
		bio TEXT NOT NULL DEFAULT '',
		company_name TEXT NOT NULL DEFAULT '',
		aadhaar_number TEXT NOT NULL DEFAULT '',
		pan_number TEXT NOT NULL DEFAULT '',
		is_email_verified BOOLEAN NOT NULL DEFAULT FALSE,
		is_verified BOOLEAN NOT NULL DEFAULT FALSE,
		registration_date TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS properties (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'active',
		property_type TEXT NOT NULL DEFAULT 'apartment',
		price TEXT NOT NULL,
		deposit TEXT NOT NULL DEFAULT '0',
		location TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		city TEXT NOT NULL DEFAULT '',
		state TEXT NOT NULL DEFAULT '',
		zip_code TEXT NOT NULL DEFAULT '',
		latitude TEXT,
		longitude TEXT,
		image_url TEXT NOT NULL DEFAULT '',
		bedrooms INTEGER NOT NULL DEFAULT 1,
		bathrooms INTEGER NOT NULL DEFAULT 1,
		area TEXT NOT NULL DEFAULT '0',
		year_built INTEGER,
		views INTEGER NOT NULL DEFAULT 0,
		rating TEXT NOT NULL DEFAULT '0',
		is_featured BOOLEAN NOT NULL DEFAULT FALSE,
		amenities_json TEXT NOT NULL DEFAULT '[]',
		date_added TEXT NOT NULL,
		last_updated TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_properties_owner
		ON properties(owner_id);
	CREATE INDEX IF NOT EXISTS idx_properties_status_added
		ON properties(status, date_added DESC);

	CREATE TABLE IF NOT EXISTS bookings (
		id TEXT PRIMARY KEY,
		property_id TEXT NOT NULL REFERENCES properties(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		total_price TEXT NOT NULL,
		guests INTEGER NOT NULL DEFAULT 0,
		notes TEXT NOT NULL DEFAULT '',
		payment_data TEXT NOT NULL DEFAULT '[]',
		version INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		CHECK (start_date < end_date)
	);

	CREATE INDEX IF NOT EXISTS idx_bookings_user
		ON bookings(user_id);
	CREATE INDEX IF NOT EXISTS idx_bookings_property
		ON bookings(property_id);

	CREATE TABLE IF NOT EXISTS reviews (
		id TEXT PRIMARY KEY,
		property_id TEXT NOT NULL REFERENCES properties(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
		comment TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE(property_id, user_id)
	);

	CREATE INDEX IF NOT EXISTS idx_reviews_user
		ON reviews(user_id);

	CREATE TABLE IF NOT EXISTS wishlists (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		property_id TEXT NOT NULL REFERENCES properties(id) ON DELETE CASCADE,
		created_at TEXT NOT NULL,
		UNIQUE(user_id, property_id)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// withTx runs fn inside a transaction. The caller holds s.mu.
func (s *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for demo seeding).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"wishlists", "reviews", "bookings", "properties", "profiles", "users"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

// notFound wraps sql.ErrNoRows as rental.ErrNotFound.
func notFound(err error, what, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", what, id, rental.ErrNotFound)
	}
	return err
}

func isUniqueViolation(err error) bool {
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		return serr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			serr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
