// Package store provides storage backends for StudyPipe.
//
// This file implements an SQLite-backed generation history.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	"github.com/BTreeMap/StudyPipe/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// Constants for SQLite store configuration
const (
	// DefaultDirPermissions defines the default permissions for database directories
	DefaultDirPermissions = 0755
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	if dsn != ":memory:" {
		dir := filepath.Dir(dsn)
		if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
			slog.Error("Failed to create database directory", "error", err, "dir", dir)
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		slog.Debug("SQLite database directory verified/created", "dir", dir)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if dsn == ":memory:" {
		// each pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		db.Close()
		return nil, err
	}

	slog.Debug("Running SQLite migrations")
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) AddGeneration(g models.Generation) error {
	g = prepare(g)
	_, err := s.db.Exec(`INSERT INTO generations (id, operation, prompt, result, status, error, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		g.ID, string(g.Operation), g.Prompt, g.Result, string(g.Status), g.Error, g.CreatedAt)
	if err != nil {
		slog.Error("SQLiteStore AddGeneration failed", "error", err, "operation", g.Operation)
		return fmt.Errorf("failed to insert generation %s: %w", g.ID, err)
	}
	slog.Debug("SQLiteStore AddGeneration succeeded", "id", g.ID, "operation", g.Operation, "status", g.Status)
	return nil
}

func (s *SQLiteStore) ListGenerations(limit int) ([]models.Generation, error) {
	rows, err := s.db.Query(`SELECT id, operation, prompt, result, status, error, created_at FROM generations ORDER BY seq DESC LIMIT ?`, normalizeLimit(limit))
	if err != nil {
		slog.Error("SQLiteStore ListGenerations query failed", "error", err)
		return nil, fmt.Errorf("failed to query generations: %w", err)
	}
	defer rows.Close()
	gens, err := scanGenerations(rows)
	if err != nil {
		slog.Error("SQLiteStore ListGenerations scan failed", "error", err)
		return nil, err
	}
	slog.Debug("SQLiteStore ListGenerations succeeded", "count", len(gens))
	return gens, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// scanGenerations reads generation rows in the column order used by the list queries.
func scanGenerations(rows *sql.Rows) ([]models.Generation, error) {
	var gens []models.Generation
	for rows.Next() {
		var g models.Generation
		var op, status string
		var result, errText sql.NullString
		if err := rows.Scan(&g.ID, &op, &g.Prompt, &result, &status, &errText, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan generation row: %w", err)
		}
		g.Operation = models.Operation(op)
		g.Status = models.GenerationStatus(status)
		g.Result = result.String
		g.Error = errText.String
		gens = append(gens, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate generation rows: %w", err)
	}
	return gens, nil
}
