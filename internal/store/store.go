// Package store provides storage backends for StudyPipe generation history.
//
// It includes an in-memory store and SQLite and PostgreSQL backends selected
// from a DSN.
package store

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/BTreeMap/StudyPipe/internal/models"
	"github.com/google/uuid"
)

// DefaultHistoryLimit is used when a non-positive limit is requested.
const DefaultHistoryLimit = 50

// ErrStoreClosed is returned by operations on a closed in-memory store.
var ErrStoreClosed = errors.New("store closed")

// Store records generations and reads them back newest first.
type Store interface {
	AddGeneration(g models.Generation) error
	ListGenerations(limit int) ([]models.Generation, error)
	Ping(ctx context.Context) error
	Close() error
}

// Opts holds configuration for store backends.
type Opts struct {
	DSN string
}

// Option configures a store backend.
type Option func(*Opts)

// WithSQLiteDSN sets the SQLite database path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// DetectDSNType reports "postgres" for PostgreSQL connection strings and
// "sqlite3" for everything else.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite3"
}

// New selects a backend from the configured DSN. An empty DSN yields an
// in-memory store.
func New(opts ...Option) (Store, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.DSN == "" {
		slog.Debug("store.New: no DSN configured, using in-memory store")
		return NewInMemoryStore(), nil
	}
	if DetectDSNType(cfg.DSN) == "postgres" {
		pg, err := NewPostgresStore(opts...)
		if err != nil {
			return nil, err
		}
		return pg, nil
	}
	lite, err := NewSQLiteStore(opts...)
	if err != nil {
		return nil, err
	}
	return lite, nil
}

// prepare fills the ID and timestamp of a generation when they are unset.
func prepare(g models.Generation) models.Generation {
	if g.ID == "" {
		g.ID = uuid.New().String()
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	return g
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	return limit
}

// InMemoryStore keeps generations in process memory. It is safe for concurrent use.
type InMemoryStore struct {
	mu          sync.RWMutex
	generations []models.Generation
	closed      bool
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) AddGeneration(g models.Generation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	s.generations = append(s.generations, prepare(g))
	return nil
}

func (s *InMemoryStore) ListGenerations(limit int) ([]models.Generation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	limit = normalizeLimit(limit)
	out := make([]models.Generation, 0, min(limit, len(s.generations)))
	for i := len(s.generations) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.generations[i])
	}
	return out, nil
}

func (s *InMemoryStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return ctx.Err()
}

func (s *InMemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
