package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Garrettc123/enterprise-unified-platform/pkg/models"
	"github.com/Garrettc123/enterprise-unified-platform/pkg/store"
)

// recordChangeTx appends a change log entry inside the caller's transaction.
// The payload is the JSON projection of the entity so replay does not have to
// re-read the main tables; DELETE entries carry no payload.
func recordChangeTx(tx *gorm.DB, entityType, entityID string, operation models.ChangeOperation, entity any) error {
	var payload models.JSONMap
	if entity != nil {
		var err error
		payload, err = entityPayload(entity)
		if err != nil {
			return err
		}
	}
	change := &models.ChangeLog{
		EntityType: entityType,
		EntityID:   entityID,
		Operation:  operation,
		ChangedAt:  time.Now().UTC(),
		Payload:    payload,
	}
	return tx.Create(change).Error
}

// RecordChange appends a change to the log outside of a data transaction.
// Normal writes record their changes transactionally through the tracking
// code path; this method exists for the ChangeLogger interface and for
// backfill tooling.
func (s *PostgresStore) RecordChange(ctx context.Context, entityType string, entityID string, operation models.ChangeOperation, payload models.JSONMap) error {
	change := &models.ChangeLog{
		EntityType: entityType,
		EntityID:   entityID,
		Operation:  operation,
		ChangedAt:  time.Now().UTC(),
		Payload:    payload,
	}
	return s.getDB().WithContext(ctx).Create(change).Error
}

// ListUnprocessedChanges returns pending changes ordered by ChangedAt so the
// replication layer can replay them sequentially.
func (s *PostgresStore) ListUnprocessedChanges(ctx context.Context, limit int) ([]*models.ChangeLog, error) {
	var changes []*models.ChangeLog
	err := s.getDB().WithContext(ctx).
		Where("processed_at IS NULL").
		Order("changed_at, id").
		Limit(limit).
		Find(&changes).Error
	return changes, err
}

// ListChangesSince returns changes recorded at or after the given time,
// processed or not. Used for catch-up after the replay cursor is reset.
func (s *PostgresStore) ListChangesSince(ctx context.Context, since time.Time, limit int) ([]*models.ChangeLog, error) {
	var changes []*models.ChangeLog
	err := s.getDB().WithContext(ctx).
		Where("changed_at >= ?", since).
		Order("changed_at, id").
		Limit(limit).
		Find(&changes).Error
	return changes, err
}

// MarkChangeProcessed marks a change as successfully replayed and clears any
// previous error.
func (s *PostgresStore) MarkChangeProcessed(ctx context.Context, changeID uint64) error {
	now := time.Now().UTC()
	return s.getDB().WithContext(ctx).
		Model(&models.ChangeLog{}).
		Where("id = ?", changeID).
		Updates(map[string]any{
			"processed_at":  &now,
			"error_message": "",
		}).Error
}

// MarkChangeError records a replay failure and increments the retry count.
// The change stays pending so the next cycle picks it up again.
func (s *PostgresStore) MarkChangeError(ctx context.Context, changeID uint64, errorMessage string) error {
	return s.getDB().WithContext(ctx).
		Model(&models.ChangeLog{}).
		Where("id = ?", changeID).
		Updates(map[string]any{
			"error_message": errorMessage,
			"retry_count":   gorm.Expr("retry_count + 1"),
		}).Error
}

// GetChangeStats returns aggregate counts over the change log table.
func (s *PostgresStore) GetChangeStats(ctx context.Context) (*store.ChangeStats, error) {
	db := s.getDB().WithContext(ctx)
	stats := &store.ChangeStats{}

	if err := db.Model(&models.ChangeLog{}).Count(&stats.TotalChanges).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.ChangeLog{}).Where("processed_at IS NOT NULL").Count(&stats.ProcessedChanges).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.ChangeLog{}).Where("processed_at IS NULL").Count(&stats.PendingChanges).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.ChangeLog{}).Where("error_message <> ''").Count(&stats.FailedChanges).Error; err != nil {
		return nil, err
	}

	var oldest models.ChangeLog
	err := db.Where("processed_at IS NULL").Order("changed_at").First(&oldest).Error
	if err == nil {
		stats.OldestPendingTime = &oldest.ChangedAt
	} else if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	var latest models.ChangeLog
	err = db.Order("changed_at DESC").First(&latest).Error
	if err == nil {
		stats.LatestChangeTime = &latest.ChangedAt
	} else if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	return stats, nil
}

// PurgeProcessedChanges removes replayed changes older than the given time to
// keep the log table bounded.
func (s *PostgresStore) PurgeProcessedChanges(ctx context.Context, before time.Time) error {
	return s.getDB().WithContext(ctx).
		Where("processed_at IS NOT NULL AND changed_at < ?", before).
		Delete(&models.ChangeLog{}).Error
}
