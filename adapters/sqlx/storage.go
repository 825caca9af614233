// Package sqlx provides a relational Storage backend over database/sql
// via jmoiron/sqlx. Receipts are stored one row each with the submitted
// payload kept as JSON, so the schema never chases the receipt shape.
package sqlx

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"receiptkit/core"
)

// Driver names the SQL dialects the store is exercised against.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverMySQL    Driver = "mysql"
	DriverSQLite   Driver = "sqlite3"
)

// Config holds SQL connection configuration.
type Config struct {
	Driver          Driver        `json:"driver"`
	DSN             string        `json:"dsn"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
}

// DefaultConfig returns sensible defaults for the given driver.
func DefaultConfig(driver Driver) Config {
	return Config{
		Driver:          driver,
		MaxOpenConns:    10,
		MaxIdleConns:    2,
		ConnMaxLifetime: 30 * time.Minute,
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS receipts (
	id        VARCHAR(64) PRIMARY KEY,
	retailer  VARCHAR(255) NOT NULL,
	points    BIGINT NOT NULL,
	payload   TEXT NOT NULL,
	scored_at TIMESTAMP NOT NULL
)`

// Store implements the engine.Storage interface on a SQL database.
type Store struct {
	db     *sqlx.DB
	driver Driver
}

// New connects to the database and verifies the connection.
func New(config Config) (*Store, error) {
	db, err := sqlx.Connect(string(config.Driver), config.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", config.Driver, err)
	}
	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.MaxIdleConns)
	}
	if config.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(config.ConnMaxLifetime)
	}
	return &Store{db: db, driver: config.Driver}, nil
}

// NewWithDB creates a Store using an existing sqlx handle (useful for testing)
func NewWithDB(db *sqlx.DB, driver Driver) *Store {
	return &Store{db: db, driver: driver}
}

// Migrate creates the receipts table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate receipts table: %w", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

type receiptRow struct {
	ID       string    `db:"id"`
	Retailer string    `db:"retailer"`
	Points   int64     `db:"points"`
	Payload  []byte    `db:"payload"`
	ScoredAt time.Time `db:"scored_at"`
}

func (s *Store) SaveScore(ctx context.Context, rec core.ScoredReceipt) error {
	payload, err := json.Marshal(rec.Receipt)
	if err != nil {
		return fmt.Errorf("failed to encode receipt: %w", err)
	}

	query := s.db.Rebind(`INSERT INTO receipts (id, retailer, points, payload, scored_at) VALUES (?, ?, ?, ?, ?)`)
	if _, err := s.db.ExecContext(ctx, query, rec.ID, rec.Receipt.Retailer, rec.Points, payload, rec.ScoredAt); err != nil {
		return fmt.Errorf("failed to save receipt: %w", err)
	}
	return nil
}

func (s *Store) GetScore(ctx context.Context, id string) (core.ScoredReceipt, error) {
	var row receiptRow
	query := s.db.Rebind(`SELECT id, retailer, points, payload, scored_at FROM receipts WHERE id = ?`)
	err := s.db.GetContext(ctx, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ScoredReceipt{}, core.ErrReceiptNotFound
	}
	if err != nil {
		return core.ScoredReceipt{}, fmt.Errorf("failed to get receipt: %w", err)
	}

	var receipt core.Receipt
	if err := json.Unmarshal(row.Payload, &receipt); err != nil {
		return core.ScoredReceipt{}, fmt.Errorf("failed to decode receipt: %w", err)
	}
	return core.ScoredReceipt{
		ID:       row.ID,
		Receipt:  receipt,
		Points:   row.Points,
		ScoredAt: row.ScoredAt,
	}, nil
}
