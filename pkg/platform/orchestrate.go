package platform

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Garrettc123/enterprise-unified-platform/pkg/store"
	"github.com/Garrettc123/enterprise-unified-platform/pkg/store/postgres"
	"github.com/Garrettc123/enterprise-unified-platform/pkg/store/sqlite"
	syncpkg "github.com/Garrettc123/enterprise-unified-platform/pkg/sync"
)

// healthLogInterval is how often the orchestrator logs the topology health
// summary while running continuously.
const healthLogInterval = 1 * time.Minute

// Orchestrate runs the sync orchestrator over the topology file named in the
// configuration. Every declared store is opened and migrated, every pair
// scheduled; the call blocks until the context is canceled or a pair
// exhausts its retries.
func Orchestrate(ctx context.Context, config *Config, cmd *OrchestrateCommand) error {
	logger := newLogger()

	topo, err := syncpkg.LoadTopology(config.TopologyPath)
	if err != nil {
		return err
	}

	orch := syncpkg.NewOrchestrator(logger)
	stores := make([]store.Store, 0, len(topo.Stores))
	defer func() {
		for _, s := range stores {
			if cerr := s.Close(); cerr != nil {
				logger.Warn().Err(cerr).Msg("failed to close store")
			}
		}
	}()

	for _, sc := range topo.Stores {
		s, err := openStore(sc)
		if err != nil {
			return fmt.Errorf("store %s: %w", sc.Name, err)
		}
		stores = append(stores, s)
		if err := s.Migrate(ctx); err != nil {
			return fmt.Errorf("store %s: migration failed: %w", sc.Name, err)
		}
		if err := orch.RegisterStore(sc.Name, s); err != nil {
			return err
		}
		logger.Info().Str("store", sc.Name).Str("driver", sc.Driver).Msg("store registered")
	}

	for _, pc := range topo.Pairs {
		if err := orch.AddPair(pc.ToSyncPair()); err != nil {
			return err
		}
	}

	if cmd.Once {
		reports, err := orch.RunOnce(ctx)
		for _, r := range reports {
			evt := logger.Info()
			if !r.Succeeded() {
				evt = logger.Error().Str("error", r.Error)
			}
			evt.Str("pair", r.Pair).
				Int("records", r.RecordsSent).
				Dur("duration", r.Duration).
				Msg("sync cycle finished")
		}
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return orch.Run(ctx)
	})
	g.Go(func() error {
		ticker := time.NewTicker(healthLogInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				health := orch.Health()
				evt := logger.Info()
				if health.Status != syncpkg.StatusHealthy {
					evt = logger.Warn()
				}
				evt.Str("status", string(health.Status)).
					Int("pairs", len(health.Pairs)).
					Msg("sync topology health")
			}
		}
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

// openStore builds a backend from a topology store entry.
func openStore(sc syncpkg.StoreConfig) (store.Store, error) {
	switch sc.Driver {
	case "postgres":
		st, err := postgres.NewPostgresStore(sc.DSN)
		if err != nil {
			return nil, err
		}
		if sc.ChangeLogging {
			return st.WithChangeLogging(), nil
		}
		return st, nil
	case "sqlite":
		return sqlite.NewSQLiteStore(sc.DSN)
	default:
		return nil, fmt.Errorf("unknown driver %q", sc.Driver)
	}
}
