package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Config holds database configuration
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DB wraps sql.DB with schema management for audit runs.
type DB struct {
	*sql.DB
	logger *zap.Logger
}

// New opens the sqlite database and applies the schema. WAL mode keeps
// concurrent per-employee writers from blocking readers.
func New(cfg Config, logger *zap.Logger) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", cfg.Path)

	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{DB: sqlDB, logger: logger}
	if err := db.applySchema(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	logger.Info("Database connection established", zap.String("path", cfg.Path))
	return db, nil
}

// applySchema creates the audit tables when missing. The schema is
// embedded rather than migrated from files: runs are short-lived and
// the table set is small.
func (db *DB) applySchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS employee_references (
		emp_id           TEXT PRIMARY KEY,
		emp_name         TEXT NOT NULL,
		employee_address TEXT NOT NULL DEFAULT '',
		client_addresses TEXT NOT NULL DEFAULT '[]',
		bill_date        TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS audit_runs (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at DATETIME NOT NULL,
		ended_at   DATETIME,
		status     TEXT NOT NULL DEFAULT 'running',
		decision   TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS receipts (
		run_id         INTEGER NOT NULL REFERENCES audit_runs(id),
		bill_id        TEXT NOT NULL,
		filename       TEXT NOT NULL,
		category       TEXT NOT NULL,
		emp_id         TEXT NOT NULL,
		emp_name       TEXT NOT NULL,
		rider_name     TEXT NOT NULL DEFAULT '',
		bill_date      TEXT NOT NULL DEFAULT '',
		amount         TEXT NOT NULL DEFAULT '',
		currency       TEXT NOT NULL DEFAULT '',
		pickup_address TEXT NOT NULL DEFAULT '',
		drop_address   TEXT NOT NULL DEFAULT '',
		verdict        TEXT NOT NULL DEFAULT '{}',
		is_valid       INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (run_id, bill_id)
	);

	CREATE TABLE IF NOT EXISTS decision_groups (
		id       INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id   INTEGER NOT NULL REFERENCES audit_runs(id),
		emp_id   TEXT NOT NULL,
		emp_name TEXT NOT NULL,
		category TEXT NOT NULL,
		payload  TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_receipts_emp ON receipts(run_id, emp_id);
	CREATE INDEX IF NOT EXISTS idx_groups_run ON decision_groups(run_id);
	`

	_, err := db.Exec(schema)
	return err
}

// WithTransaction executes fn within a transaction, rolling back on
// error or panic.
func (db *DB) WithTransaction(fn func(*sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		db.logger.Error("Failed to begin transaction", zap.Error(err))
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			db.logger.Error("Failed to rollback transaction", zap.Error(rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Close closes the database connection
func (db *DB) Close() error {
	db.logger.Info("Closing database connection")
	return db.DB.Close()
}
