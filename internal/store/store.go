package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
	_ "modernc.org/sqlite" // SQLite driver
)

const (
	currentSchemaVersion = 2
)

// Store is the local library's entity store: one named table per
// entity type, primary keys plus the secondary indexes declared in
// schema.go. The schema carries no foreign-key clauses on purpose:
// referential integrity is owned by the cascade deleter and audited by
// the vault verifier, since SQL constraints could not reach the blob
// store anyway.
type Store struct {
	db *sql.DB
}

// Open opens or creates a SQLite database at the given path
func Open(path string) (*Store, error) {
	// WAL plus a busy timeout; the engine is single-writer
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_timeout=5000&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works best with a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	store := &Store{db: db}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return store, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection for custom queries
func (s *Store) DB() *sql.DB {
	return s.db
}

// CheckIntegrity runs PRAGMA integrity_check on the database
func (s *Store) CheckIntegrity() error {
	var result string
	err := s.db.QueryRow("PRAGMA integrity_check").Scan(&result)
	if err != nil {
		return fmt.Errorf("integrity check query failed: %w", err)
	}

	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}

	return nil
}

// migrate applies database migrations
func (s *Store) migrate() error {
	version, err := s.getSchemaVersion()
	if err != nil {
		return err
	}

	if version >= currentSchemaVersion {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Apply schema v1 - entity tables
	if version < 1 {
		if _, err := tx.Exec(schemaV1); err != nil {
			return fmt.Errorf("failed to apply schema v1: %w", err)
		}
		if err := s.setSchemaVersion(tx, 1); err != nil {
			return fmt.Errorf("failed to set schema version: %w", err)
		}
	}

	// Apply schema v2 - scan indexes
	if version < 2 {
		if _, err := tx.Exec(schemaV2); err != nil {
			return fmt.Errorf("failed to apply schema v2: %w", err)
		}
		if err := s.setSchemaVersion(tx, 2); err != nil {
			return fmt.Errorf("failed to set schema version: %w", err)
		}
	}

	// Future migrations would go here:
	// if version < 3 { ... }

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration: %w", err)
	}

	return nil
}

// getSchemaVersion returns the current schema version
func (s *Store) getSchemaVersion() (int, error) {
	var exists int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`).Scan(&exists)
	if err != nil {
		return 0, err
	}

	if exists == 0 {
		return 0, nil
	}

	var version int
	err = s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version)
	if err != nil {
		return 0, err
	}

	return version, nil
}

// setSchemaVersion records a schema version in a transaction
func (s *Store) setSchemaVersion(tx *sql.Tx, version int) error {
	_, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version)
	return err
}

// Transaction executes a function within a transaction. The vault
// import and every cascade delete run through here so that a
// mid-operation failure leaves no partial state behind.
func (s *Store) Transaction(fn func(*sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// nextID allocates a numeric record id from the shared id_seq
// counter. Ids are unique across all collections, which the snapshot
// verifier's duplicate-id check depends on. The counter never reuses
// values; the bookkeeping row is removed immediately.
func (s *Store) nextID() (int64, error) {
	result, err := s.db.Exec("INSERT INTO id_seq DEFAULT VALUES")
	if err != nil {
		return 0, fmt.Errorf("failed to allocate id: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to allocate id: %w", err)
	}
	if _, err := s.db.Exec("DELETE FROM id_seq WHERE id = ?", id); err != nil {
		return 0, fmt.Errorf("failed to trim id sequence: %w", err)
	}
	return id, nil
}

// BumpIDSequenceTx raises the shared id counter to at least floor.
// The vault import calls this after restoring records with explicit
// ids so later allocations cannot collide with them.
func (s *Store) BumpIDSequenceTx(tx *sql.Tx, floor int64) error {
	if floor <= 0 {
		return nil
	}
	// Inserting an explicit id into an AUTOINCREMENT table advances
	// its sequence to at least that id.
	if _, err := tx.Exec("INSERT OR IGNORE INTO id_seq (id) VALUES (?)", floor); err != nil {
		return fmt.Errorf("failed to bump id sequence: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM id_seq WHERE id = ?", floor); err != nil {
		return fmt.Errorf("failed to bump id sequence: %w", err)
	}
	return nil
}

// nowMillis is the store's timestamp unit: epoch milliseconds, the
// same unit the vault wire format uses
func nowMillis() int64 {
	return time.Now().UnixMilli()
}

// foldSearch normalizes a string for case-insensitive substring
// matching during scans. There is no full-text index; scans filter
// in memory over an indexed ordered read.
func foldSearch(s string) string {
	return strings.ToLower(norm.NFC.String(s))
}
