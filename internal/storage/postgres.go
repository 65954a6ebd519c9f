package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

type QueryRower interface {
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

type Execer interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
}

const schema = `
	CREATE TABLE IF NOT EXISTS kv_store (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`

// pqUndefinedTable is the Postgres error code for a missing relation.
const pqUndefinedTable = "42P01"

// entry is a single row of the kv_store table.
type entry struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}

func (e *entry) Select(ctx context.Context, db QueryRower) error {
	query := `SELECT key, value, updated_at FROM kv_store WHERE key = $1`

	return db.QueryRowContext(ctx, query, e.Key).Scan(&e.Key, &e.Value, &e.UpdatedAt)
}

// Upsert writes the entry, replacing the value of an existing key.
func (e *entry) Upsert(ctx context.Context, db Execer) (sql.Result, error) {
	query := `
		INSERT INTO kv_store(key, value, updated_at)
		VALUES($1, $2, $3)
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`

	return db.ExecContext(ctx, query, e.Key, e.Value, e.UpdatedAt)
}

func (e *entry) Delete(ctx context.Context, db Execer) (sql.Result, error) {
	query := `DELETE FROM kv_store WHERE key = $1`

	return db.ExecContext(ctx, query, e.Key)
}

// PostgresStore keeps values in the kv_store table. It lets several
// companion processes share one favorites set and one session.
type PostgresStore struct {
	DB *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{DB: db}
}

// OpenPostgres opens and pings a database through the lib/pq driver.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	connector, err := pq.NewConnector(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed parsing database url: %w", err)
	}

	db := sql.OpenDB(connector)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// Migrate creates the kv_store table when it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed creating kv_store table: %w", err)
	}

	return nil
}

func (s *PostgresStore) tx(ctx context.Context, txFunc func(*sql.Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	if err := txFunc(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("err: %w, rbErr: %v", err, rbErr)
		}
		return err
	}

	return tx.Commit()
}

func (s *PostgresStore) Get(ctx context.Context, key string) (string, bool, error) {
	e := entry{Key: key}
	err := e.Select(ctx, s.DB)
	switch {
	case err == nil:
		return e.Value, true, nil
	case errors.Is(err, sql.ErrNoRows), isUndefinedTable(err):
		return "", false, nil
	default:
		return "", false, fmt.Errorf("selecting key %q: %w", key, err)
	}
}

func (s *PostgresStore) Set(ctx context.Context, key string, value string) error {
	return s.tx(ctx, func(tx *sql.Tx) error {
		e := entry{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
		if _, err := e.Upsert(ctx, tx); err != nil {
			return fmt.Errorf("upserting key %q: %w", key, err)
		}
		return nil
	})
}

func (s *PostgresStore) Remove(ctx context.Context, key string) error {
	e := entry{Key: key}
	if _, err := e.Delete(ctx, s.DB); err != nil && !isUndefinedTable(err) {
		return fmt.Errorf("deleting key %q: %w", key, err)
	}

	return nil
}

func isUndefinedTable(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUndefinedTable
}
