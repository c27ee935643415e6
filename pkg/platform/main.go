package platform

import (
	"context"
	"fmt"
	"time"
)

// ParseTime parses an RFC3339 timestamp, returning the fallback when the
// value is empty.
func ParseTime(value string, fallback time.Time) (time.Time, error) {
	if value == "" {
		return fallback, nil
	}
	return time.Parse(time.RFC3339, value)
}

// Main is the entry point for the platform application. It takes a context
// for cancellation and command line arguments, then executes the appropriate
// command. Callable directly from tests without building the binary.
//
// # Environment Variables
//
//	POSTGRES_DSN   - PostgreSQL connection string
//	SQLITE_PATH    - SQLite database file path (default: platform.db)
//	S3_ENDPOINT    - Object storage endpoint; file content stays in memory when unset
//	S3_ACCESS_KEY  - Object storage access key
//	S3_SECRET_KEY  - Object storage secret key
//	S3_BUCKET      - Object storage bucket (default: platform-files)
//	S3_USE_SSL     - Any non-empty value enables TLS to object storage
//	LOG_LEVEL      - zerolog level (default: info)
//	LOG_PRETTY     - Any non-empty value enables console log formatting
//
// # Store Migration Strategy
//
// The replicated store supports phased migration between backends:
//
//  1. Start in single mode with the PostgreSQL primary
//  2. Run background sync to populate the secondary
//  3. Switch to read_only for the final catch-up pass
//  4. Validate reads in switching mode
//  5. Cut over with reversed mode, then swap and return to single
func Main(ctx context.Context, args []string) error {
	cmd, config, err := Parse(args)
	if err != nil {
		return fmt.Errorf("failed to parse configuration: %w", err)
	}

	// Orchestrate builds its own store registry from the topology file, so
	// it skips the usual application store setup.
	if oc, ok := cmd.(*OrchestrateCommand); ok {
		return Orchestrate(ctx, config, oc)
	}

	app, err := New(config)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	defer app.Close()

	switch c := cmd.(type) {
	case *MigrateCommand:
		if err := app.Migrate(ctx, c); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	case *RunCommand:
		if err := app.Run(ctx, c); err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case *SyncCommand:
		since, err := ParseTime(c.Since, time.Now().Add(-24*time.Hour))
		if err != nil {
			return fmt.Errorf("invalid since time: %w", err)
		}
		until, err := ParseTime(c.Until, time.Now())
		if err != nil {
			return fmt.Errorf("invalid until time: %w", err)
		}
		if err := app.Sync(ctx, c.Direction, since, until); err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}
	default:
		return fmt.Errorf("unknown command type: %T", cmd)
	}

	return nil
}
