// Package store provides storage backends for StudyPipe.
//
// This file implements a PostgreSQL-backed generation history.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/BTreeMap/StudyPipe/internal/models"
	_ "github.com/lib/pq"
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

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")
	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		db.Close()
		return nil, err
	}
	slog.Debug("Running Postgres migrations")
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) AddGeneration(g models.Generation) error {
	g = prepare(g)
	_, err := s.db.Exec(`INSERT INTO generations (id, operation, prompt, result, status, error, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		g.ID, string(g.Operation), g.Prompt, g.Result, string(g.Status), g.Error, g.CreatedAt)
	if err != nil {
		slog.Error("PostgresStore AddGeneration failed", "error", err, "operation", g.Operation)
		return fmt.Errorf("failed to insert generation %s: %w", g.ID, err)
	}
	slog.Debug("PostgresStore AddGeneration succeeded", "id", g.ID, "operation", g.Operation, "status", g.Status)
	return nil
}

func (s *PostgresStore) ListGenerations(limit int) ([]models.Generation, error) {
	rows, err := s.db.Query(`SELECT id, operation, prompt, result, status, error, created_at FROM generations ORDER BY seq DESC LIMIT $1`, normalizeLimit(limit))
	if err != nil {
		slog.Error("PostgresStore ListGenerations query failed", "error", err)
		return nil, fmt.Errorf("failed to query generations: %w", err)
	}
	defer rows.Close()
	gens, err := scanGenerations(rows)
	if err != nil {
		slog.Error("PostgresStore ListGenerations scan failed", "error", err)
		return nil, err
	}
	slog.Debug("PostgresStore ListGenerations succeeded", "count", len(gens))
	return gens, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
