// Package platform wires the store layer, blob storage, sync machinery, and
// the HTTP API into one runnable application.
package platform

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Garrettc123/enterprise-unified-platform/pkg/blob"
	"github.com/Garrettc123/enterprise-unified-platform/pkg/models"
	"github.com/Garrettc123/enterprise-unified-platform/pkg/store"
	"github.com/Garrettc123/enterprise-unified-platform/pkg/store/postgres"
	"github.com/Garrettc123/enterprise-unified-platform/pkg/store/replica"
	"github.com/Garrettc123/enterprise-unified-platform/pkg/store/sqlite"
)

// Config holds application configuration assembled from flags and
// environment variables.
type Config struct {
	// Database configuration
	PostgresDSN string
	SQLitePath  string

	// Mode configuration
	MigrationMode replica.MigrationMode
	PostgresOnly  bool
	SQLiteOnly    bool
	ReadOnly      bool // When true, all write operations are rejected
	ChangeLogging bool // Transactional change capture on the postgres store

	// Object storage configuration. When Endpoint is empty file content is
	// kept in memory, which only suits tests and local development.
	Blob blob.Config

	// Server configuration
	ServerPort string

	// TopologyPath is the sync topology file for the orchestrate command.
	TopologyPath string
}

// App holds the application state.
type App struct {
	store      store.Store
	replicated *replica.ReplicatedStore // nil in single-store modes
	blobs      blob.Store
	hub        *Hub
	config     *Config
	logger     zerolog.Logger

	mu       sync.RWMutex
	readOnly bool
}

// New creates a new application instance, connecting to the configured
// backends.
func New(config *Config) (*App, error) {
	logger := newLogger()

	var appStore store.Store
	var replicated *replica.ReplicatedStore

	switch {
	case config.SQLiteOnly:
		st, err := sqlite.NewSQLiteStore(config.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite store: %w", err)
		}
		logger.Info().Str("path", config.SQLitePath).Msg("using SQLite store")
		appStore = st
	case config.PostgresOnly:
		st, err := postgres.NewPostgresStore(config.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		if config.ChangeLogging {
			appStore = st.WithChangeLogging()
		} else {
			appStore = st
		}
		logger.Info().Msg("connected to PostgreSQL")
	default:
		pgStore, err := postgres.NewPostgresStore(config.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		logger.Info().Msg("connected to PostgreSQL")

		liteStore, err := sqlite.NewSQLiteStore(config.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite store: %w", err)
		}
		logger.Info().Str("path", config.SQLitePath).Msg("opened SQLite store")

		var primary store.Store = pgStore
		if config.ChangeLogging {
			primary = pgStore.WithChangeLogging()
		}
		replicated = replica.NewReplicatedStore(primary, liteStore, config.MigrationMode)
		if config.ChangeLogging {
			replicated.SetSyncStrategy(replica.SyncStrategyChangelog)
		}
		appStore = replicated
		logger.Info().Str("mode", string(config.MigrationMode)).Msg("using replicated store")
	}

	var blobs blob.Store
	if config.Blob.Endpoint != "" {
		var err error
		blobs, err = blob.NewMinioStore(context.Background(), config.Blob)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to object storage: %w", err)
		}
		logger.Info().Str("endpoint", config.Blob.Endpoint).Msg("connected to object storage")
	} else {
		blobs = blob.NewMemoryStore()
		logger.Warn().Msg("object storage not configured, file content held in memory")
	}

	app := &App{
		replicated: replicated,
		blobs:      blobs,
		hub:        NewHub(logger),
		config:     config,
		logger:     logger,
		readOnly:   config.ReadOnly,
	}
	app.store = store.NewReadOnlyStore(appStore, app.IsReadOnly)

	return app, nil
}

// NewWithStore builds an application over a pre-built store and blob backend.
// Used by tests to run the full HTTP surface against in-memory backends.
func NewWithStore(config *Config, s store.Store, blobs blob.Store) *App {
	logger := newLogger()
	app := &App{
		blobs:    blobs,
		hub:      NewHub(logger),
		config:   config,
		logger:   logger,
		readOnly: config.ReadOnly,
	}
	app.store = store.NewReadOnlyStore(s, app.IsReadOnly)
	return app
}

// Close closes the application and its resources.
func (a *App) Close() error {
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}

// Store returns the underlying store (useful for testing).
func (a *App) Store() store.Store {
	return a.store
}

// SetReadOnly toggles the application's read-only mode at runtime. The
// ReadOnlyStore wrapper checks the state on every write, so enforcement is
// immediate without restarting.
func (a *App) SetReadOnly(readOnly bool) {
	a.mu.Lock()
	a.readOnly = readOnly
	a.mu.Unlock()
	a.logger.Info().Bool("read_only", readOnly).Msg("read-only mode changed")
}

// IsReadOnly reports whether the application currently rejects writes.
// Checked on every write operation, so it stays lightweight.
func (a *App) IsReadOnly() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.readOnly
}

// newLogger builds the application logger. LOG_LEVEL selects verbosity;
// console output is used when stderr is a terminal-ish environment variable
// LOG_PRETTY is set.
func newLogger() zerolog.Logger {
	level, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
	if os.Getenv("LOG_PRETTY") != "" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	return logger
}

// getEnv retrieves an environment variable value with a fallback default.
// Empty values are treated the same as unset, which suits container
// environments where empty values may be accidentally set.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// audit records an audit entry for a completed mutation. Audit failures are
// logged, not surfaced; the mutation already happened.
func (a *App) audit(ctx context.Context, actorID models.UserID, action, entityType, entityID string, detail models.JSONMap) {
	entry := &models.AuditEntry{
		ActorID:    actorID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Detail:     detail,
	}
	if err := a.store.RecordAudit(ctx, entry); err != nil {
		a.logger.Warn().Err(err).Str("action", action).Msg("failed to record audit entry")
	}
}
