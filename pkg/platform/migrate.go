package platform

import (
	"context"
)

// Migrate applies schema migrations to the configured store. In replicated
// mode both backends are migrated; see replica.ReplicatedStore.Migrate.
func (a *App) Migrate(ctx context.Context, cmd *MigrateCommand) error {
	a.logger.Info().Msg("running schema migrations")
	if err := a.store.Migrate(ctx); err != nil {
		return err
	}
	a.logger.Info().Msg("schema migrations complete")
	return nil
}
