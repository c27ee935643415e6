package models

import (
	"time"
)

// ChangeOperation represents the type of database change
type ChangeOperation string

const (
	ChangeOperationCreate ChangeOperation = "CREATE"
	ChangeOperationUpdate ChangeOperation = "UPDATE"
	ChangeOperationDelete ChangeOperation = "DELETE"
)

// ChangeLog is a record in the change log table capturing every write to a
// tracking-enabled store.
//
// Change logging provides precise change capture for replication without
// relying on CreatedAt/UpdatedAt scans: each entry is written in the same
// transaction as the data modification, so replaying the log against a
// target store reproduces the source state without missed or phantom
// changes. Each entry carries the entity type, ID, operation, and the full
// payload for CREATE/UPDATE so replay does not have to query the main
// tables.
type ChangeLog struct {
	ID           uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	EntityType   string          `gorm:"not null;index:idx_entity_changed" json:"entity_type"`
	EntityID     string          `gorm:"not null;index:idx_entity_changed" json:"entity_id"`
	Operation    ChangeOperation `gorm:"not null" json:"operation"`
	ChangedAt    time.Time       `gorm:"not null;index:idx_entity_changed" json:"changed_at"`
	ProcessedAt  *time.Time      `gorm:"index" json:"processed_at,omitempty"`
	ErrorMessage string          `gorm:"type:text" json:"error_message,omitempty"`
	RetryCount   int             `gorm:"default:0" json:"retry_count"`
	Payload      JSONMap         `gorm:"type:jsonb" json:"payload,omitempty"`
}

// TableName returns the table name for the change log model
func (ChangeLog) TableName() string {
	return "change_log"
}

// IsProcessed returns true if the change has been successfully replayed
func (c *ChangeLog) IsProcessed() bool {
	return c.ProcessedAt != nil && c.ErrorMessage == ""
}

// MarkProcessed marks the change as successfully replayed
func (c *ChangeLog) MarkProcessed(processedTime time.Time) {
	c.ProcessedAt = &processedTime
	c.ErrorMessage = ""
}

// MarkError marks the change as failed with an error message
func (c *ChangeLog) MarkError(errorMsg string) {
	c.ErrorMessage = errorMsg
	c.RetryCount++
}
