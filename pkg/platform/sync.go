package platform

import (
	"context"
	"fmt"
	"time"
)

// Sync performs one catch-up synchronization pass between the primary and
// secondary stores. Requires replicated mode; single-store configurations
// have nothing to sync against.
func (a *App) Sync(ctx context.Context, direction string, since, until time.Time) error {
	if a.replicated == nil {
		return fmt.Errorf("sync requires a replicated store configuration (omit -postgres-only and -sqlite-only)")
	}

	a.logger.Info().
		Str("direction", direction).
		Time("since", since).
		Time("until", until).
		Msg("starting catch-up sync")

	var n int
	var err error
	switch direction {
	case "reverse":
		n, err = a.replicated.ReverseSyncMissedUpdates(ctx, since, until)
	default:
		n, err = a.replicated.SyncMissedUpdates(ctx, since, until)
	}
	if err != nil {
		return err
	}

	a.logger.Info().Int("records", n).Msg("catch-up sync complete")
	return nil
}
