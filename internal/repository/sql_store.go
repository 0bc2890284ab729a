package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Dialect selects the SQL flavour a SQLStore speaks.
type Dialect string

const (
	DialectSQLite Dialect = "sqlite"
	DialectMySQL  Dialect = "mysql"
)

// SQLStore keeps records in the client_state table. One row per key; Put
// is an upsert so the table never holds more than one row per key.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQLStore creates the client_state table if needed and returns a
// store bound to db.
func NewSQLStore(ctx context.Context, db *sql.DB, dialect Dialect) (*SQLStore, error) {
	var schema string
	switch dialect {
	case DialectSQLite:
		schema = `CREATE TABLE IF NOT EXISTS client_state (
			state_key TEXT PRIMARY KEY,
			payload BLOB NOT NULL,
			updated_at DATETIME NOT NULL
		)`
	case DialectMySQL:
		schema = `CREATE TABLE IF NOT EXISTS client_state (
			state_key VARCHAR(191) NOT NULL PRIMARY KEY,
			payload LONGBLOB NOT NULL,
			updated_at DATETIME NOT NULL
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`
	default:
		return nil, fmt.Errorf("unsupported dialect %q", dialect)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("create client_state: %w", err)
	}
	return &SQLStore{db: db, dialect: dialect}, nil
}

func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM client_state WHERE state_key = ?`, key,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return payload, nil
}

func (s *SQLStore) Put(ctx context.Context, key string, value []byte) error {
	query := `INSERT INTO client_state (state_key, payload, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(state_key) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`
	if s.dialect == DialectMySQL {
		query = `INSERT INTO client_state (state_key, payload, updated_at) VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE payload = VALUES(payload), updated_at = VALUES(updated_at)`
	}
	now := time.Now().UTC().Format("2006-01-02 15:04:05")
	if _, err := s.db.ExecContext(ctx, query, key, value, now); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}
