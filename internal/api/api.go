// Package api provides HTTP handlers and the main API server logic for StudyPipe.
//
// It exposes JSON endpoints for the five study operations plus generation
// history and health. The API integrates with the assistant and store modules.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/BTreeMap/StudyPipe/internal/store"
	"golang.org/x/sync/errgroup"
)

// Server configuration constants
const (
	// DefaultAddr is the listen address used when none is configured.
	DefaultAddr = ":8080"
	// DefaultReadHeaderTimeout bounds how long a client may take to send headers.
	DefaultReadHeaderTimeout = 10 * time.Second
	// DefaultShutdownTimeout is the grace period for in-flight requests on shutdown.
	DefaultShutdownTimeout = 30 * time.Second
	// DefaultHealthCheckTimeout bounds the store ping in /health.
	DefaultHealthCheckTimeout = 5 * time.Second
	// MaxRequestBodyBytes caps JSON request bodies.
	MaxRequestBodyBytes = 1 << 20
)

// StudyAssistant is the set of caller-facing operations the API serves.
// Each method returns display text and never an error.
type StudyAssistant interface {
	StudyGuide(ctx context.Context, topic, level, focusAreas string) string
	PracticeQuestions(ctx context.Context, topic string, count int, types []string) string
	Explanation(ctx context.Context, topic, difficulty string) string
	Summary(ctx context.Context, text, summaryType string) string
	Assignment(ctx context.Context, name, details, format, wordCount, referenceContent string) string
}

// Opts holds configuration for the API server.
type Opts struct {
	Addr string
}

// Option configures the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// Server serves the StudyPipe HTTP API.
type Server struct {
	assistant StudyAssistant
	history   store.Store
	addr      string
	mux       *http.ServeMux
}

// NewServer wires handlers for the given assistant and history store.
func NewServer(a StudyAssistant, st store.Store, opts ...Option) *Server {
	cfg := Opts{Addr: DefaultAddr}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	s := &Server{assistant: a, history: st, addr: cfg.Addr, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/create_guide", s.createGuideHandler)
	s.mux.HandleFunc("/generate_questions", s.generateQuestionsHandler)
	s.mux.HandleFunc("/explain_topic", s.explainTopicHandler)
	s.mux.HandleFunc("/summarize_text", s.summarizeTextHandler)
	s.mux.HandleFunc("/generate_assignment", s.generateAssignmentHandler)
	s.mux.HandleFunc("/history", s.historyHandler)
	s.mux.HandleFunc("/health", s.healthHandler)
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.addr
}

// ServeHTTP lets the server be used directly as an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Run listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s,
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Server.Run: StudyPipe API listening", "addr", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server.Run: listener failed", "error", err)
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Server.Run: shutting down", "grace_period", DefaultShutdownTimeout)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
