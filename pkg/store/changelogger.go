package store

import (
	"context"
	"time"

	"github.com/Garrettc123/enterprise-unified-platform/pkg/models"
)

// ChangeLogger defines operations for transactional change capture.
// Backends that support a change log table implement this interface in
// addition to [Store]; the replication layer type-asserts for it when the
// changelog sync strategy is selected.
type ChangeLogger interface {
	// RecordChange appends a change to the log. Implementations call this
	// within the same transaction as the data modification so the log never
	// diverges from the tables.
	RecordChange(ctx context.Context, entityType string, entityID string, operation models.ChangeOperation, payload models.JSONMap) error

	// ListUnprocessedChanges returns changes that have not been replayed
	// yet, ordered by ChangedAt for sequential processing.
	ListUnprocessedChanges(ctx context.Context, limit int) ([]*models.ChangeLog, error)

	// ListChangesSince returns changes recorded at or after the given time.
	// Supports catch-up after outages.
	ListChangesSince(ctx context.Context, since time.Time, limit int) ([]*models.ChangeLog, error)

	// MarkChangeProcessed marks a change as successfully replayed.
	MarkChangeProcessed(ctx context.Context, changeID uint64) error

	// MarkChangeError marks a change as failed and increments its retry
	// count.
	MarkChangeError(ctx context.Context, changeID uint64, errorMessage string) error

	// GetChangeStats returns statistics about pending changes.
	GetChangeStats(ctx context.Context) (*ChangeStats, error)

	// PurgeProcessedChanges removes replayed changes recorded before the
	// given time.
	PurgeProcessedChanges(ctx context.Context, before time.Time) error
}

// ChangeStats provides statistics about the change log table
type ChangeStats struct {
	TotalChanges      int64
	ProcessedChanges  int64
	PendingChanges    int64
	FailedChanges     int64
	OldestPendingTime *time.Time
	LatestChangeTime  *time.Time
}
