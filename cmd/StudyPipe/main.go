package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/BTreeMap/StudyPipe/internal/api"
	"github.com/BTreeMap/StudyPipe/internal/assistant"
	"github.com/BTreeMap/StudyPipe/internal/genai"
	"github.com/BTreeMap/StudyPipe/internal/lockfile"
	"github.com/BTreeMap/StudyPipe/internal/prompt"
	"github.com/BTreeMap/StudyPipe/internal/store"
	"github.com/BTreeMap/StudyPipe/internal/util"
	"github.com/joho/godotenv"
)

// Default configuration constants
const (
	// DefaultDBFileName is the SQLite history filename used inside a state directory
	DefaultDBFileName = "studypipe.db"
)

func main() {
	// Load environment configuration
	config := loadEnvironmentConfig()

	// Initialize structured logger
	initializeLogger(config.Debug)

	// Parse command line flags
	flags, err := parseCommandLineFlags(config, os.Args[1:])
	if err != nil {
		slog.Error("Failed to parse command line flags", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, flags); err != nil {
		slog.Error("StudyPipe failed to run", "error", err)
		stop()
		os.Exit(1)
	}
	slog.Info("StudyPipe exited successfully")
}

// run wires the modules together and serves until ctx is cancelled.
func run(ctx context.Context, flags Flags) error {
	gen, err := loadTemplates(*flags.templates)
	if err != nil {
		return err
	}

	client, err := genai.NewClient(buildGenAIOptions(flags)...)
	if err != nil {
		return fmt.Errorf("failed to create GenAI client: %w", err)
	}

	if dir := sqliteStateDir(*flags.dbDSN); dir != "" {
		lock, err := lockfile.AcquireLock(dir)
		if err != nil {
			return err
		}
		defer lock.Release()
	}

	history, err := store.New(buildStoreOptions(flags)...)
	if err != nil {
		return fmt.Errorf("failed to open history store: %w", err)
	}
	defer history.Close()

	a, err := assistant.New(gen, client, assistant.WithRecorder(history))
	if err != nil {
		return err
	}

	slog.Info("Bootstrapping StudyPipe with configured modules", "model", client.Model(), "templates", gen.Names())
	slog.Debug("Final configuration", "state_dir", *flags.stateDir, "dsn_set", *flags.dbDSN != "", "api_addr", *flags.apiAddr)
	return api.NewServer(a, history, buildAPIOptions(flags)...).Run(ctx)
}

// Config holds environment configuration
type Config struct {
	GoogleAPIKey      string
	Model             string
	BaseURL           string
	TemplatesPath     string
	DatabaseURL       string
	StateDir          string
	APIAddr           string
	RequestsPerMinute int
	Timeout           time.Duration
	Debug             bool
}

// Flags holds command line flag values
type Flags struct {
	templates    *string
	stateDir     *string
	dbDSN        *string
	googleAPIKey *string
	model        *string
	baseURL      *string
	apiAddr      *string
	rpm          *int
	timeout      *time.Duration
}

// initializeLogger sets up structured logging, at debug level when requested
func initializeLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		GoogleAPIKey:      os.Getenv(genai.APIKeyEnv),
		Model:             os.Getenv("STUDYPIPE_MODEL"),
		BaseURL:           os.Getenv("STUDYPIPE_BASE_URL"),
		TemplatesPath:     os.Getenv("STUDYPIPE_TEMPLATES"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		StateDir:          os.Getenv("STUDYPIPE_STATE_DIR"),
		APIAddr:           os.Getenv("API_ADDR"),
		RequestsPerMinute: util.ParseIntEnv("STUDYPIPE_RPM", 0),
		Timeout:           util.ParseDurationEnv("STUDYPIPE_TIMEOUT", 0),
		Debug:             util.ParseBoolEnv("STUDYPIPE_DEBUG", false),
	}

	// A state directory without an explicit database means SQLite inside it
	if config.DatabaseURL == "" && config.StateDir != "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No DATABASE_URL set, defaulting to SQLite in state directory", "sqlite_path", config.DatabaseURL)
	}

	slog.Debug("environment variables loaded",
		"GOOGLE_API_KEY_SET", config.GoogleAPIKey != "",
		"STUDYPIPE_MODEL", config.Model,
		"STUDYPIPE_BASE_URL", config.BaseURL,
		"STUDYPIPE_TEMPLATES", config.TemplatesPath,
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"STUDYPIPE_STATE_DIR", config.StateDir,
		"API_ADDR", config.APIAddr,
		"STUDYPIPE_RPM", config.RequestsPerMinute,
		"STUDYPIPE_TIMEOUT", config.Timeout,
		"STUDYPIPE_DEBUG", config.Debug)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config, args []string) (Flags, error) {
	fs := flag.NewFlagSet("StudyPipe", flag.ContinueOnError)
	flags := Flags{
		templates:    fs.String("templates", config.TemplatesPath, "JSON or YAML prompt template file (overrides $STUDYPIPE_TEMPLATES; built-in templates when empty)"),
		stateDir:     fs.String("state-dir", config.StateDir, "state directory for the SQLite history (overrides $STUDYPIPE_STATE_DIR)"),
		dbDSN:        fs.String("db-dsn", config.DatabaseURL, "history database DSN, postgres URL or SQLite path (overrides $DATABASE_URL; in-memory when empty)"),
		googleAPIKey: fs.String("google-api-key", config.GoogleAPIKey, "Google API key (overrides $GOOGLE_API_KEY)"),
		model:        fs.String("model", config.Model, "model identifier (overrides $STUDYPIPE_MODEL)"),
		baseURL:      fs.String("base-url", config.BaseURL, "OpenAI-compatible endpoint (overrides $STUDYPIPE_BASE_URL)"),
		apiAddr:      fs.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		rpm:          fs.Int("rpm", config.RequestsPerMinute, "maximum model requests per minute, 0 for unlimited (overrides $STUDYPIPE_RPM)"),
		timeout:      fs.Duration("timeout", config.Timeout, "per-request model timeout, 0 for none (overrides $STUDYPIPE_TIMEOUT)"),
	}

	if err := fs.Parse(args); err != nil {
		return Flags{}, err
	}

	slog.Debug("flags parsed",
		"templates", *flags.templates,
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"googleAPIKeySet", *flags.googleAPIKey != "",
		"model", *flags.model,
		"baseURL", *flags.baseURL,
		"apiAddr", *flags.apiAddr,
		"rpm", *flags.rpm,
		"timeout", *flags.timeout)

	// Follow -state-dir when the DSN was only the state directory default
	defaultDSN := ""
	if config.StateDir != "" {
		defaultDSN = filepath.Join(config.StateDir, DefaultDBFileName)
	}
	if *flags.stateDir != config.StateDir && *flags.dbDSN == config.DatabaseURL && config.DatabaseURL == defaultDSN {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "old_state_dir", config.StateDir, "new_state_dir", *flags.stateDir)
	}

	return flags, nil
}

// loadTemplates reads the configured template file, or the built-in set when path is empty
func loadTemplates(path string) (*prompt.Generator, error) {
	if path == "" {
		slog.Debug("No template file configured, using built-in templates")
		return prompt.LoadDefault()
	}
	slog.Debug("Loading prompt templates", "path", path)
	return prompt.LoadFile(path)
}

// sqliteStateDir returns the directory holding a file-backed SQLite DSN, or
// "" for postgres, in-memory, or empty DSNs.
func sqliteStateDir(dsn string) string {
	if dsn == "" || store.DetectDSNType(dsn) == "postgres" {
		return ""
	}
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" || strings.Contains(dsn, "mode=memory") {
		return ""
	}
	return filepath.Dir(path)
}

// buildStoreOptions constructs store configuration options
func buildStoreOptions(flags Flags) []store.Option {
	var storeOpts []store.Option
	if *flags.dbDSN != "" {
		if store.DetectDSNType(*flags.dbDSN) == "postgres" {
			slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store", "dsn_type", "postgresql", "dsn_set", true)
			storeOpts = append(storeOpts, store.WithPostgresDSN(*flags.dbDSN))
		} else {
			slog.Debug("Detected SQLite DSN, configuring SQLite store", "dsn_type", "sqlite", "db_path", *flags.dbDSN)
			storeOpts = append(storeOpts, store.WithSQLiteDSN(*flags.dbDSN))
		}
	} else {
		slog.Debug("No database DSN provided, will use in-memory store")
	}
	return storeOpts
}

// buildGenAIOptions constructs GenAI configuration options
func buildGenAIOptions(flags Flags) []genai.Option {
	var genaiOpts []genai.Option
	if *flags.googleAPIKey != "" {
		genaiOpts = append(genaiOpts, genai.WithAPIKey(*flags.googleAPIKey))
	}
	if *flags.model != "" {
		genaiOpts = append(genaiOpts, genai.WithModel(*flags.model))
	}
	if *flags.baseURL != "" {
		genaiOpts = append(genaiOpts, genai.WithBaseURL(*flags.baseURL))
	}
	if *flags.rpm > 0 {
		genaiOpts = append(genaiOpts, genai.WithRequestsPerMinute(*flags.rpm))
	}
	if *flags.timeout > 0 {
		genaiOpts = append(genaiOpts, genai.WithTimeout(*flags.timeout))
	}
	return genaiOpts
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags) []api.Option {
	var apiOpts []api.Option
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	return apiOpts
}
