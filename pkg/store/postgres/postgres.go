// Package postgres provides the PostgreSQL implementation of the
// [github.com/Garrettc123/enterprise-unified-platform/pkg/store.Store]
// interface using GORM.
//
// This is the platform's primary backend: individual operations run inside
// transactions managed by GORM with ACID guarantees, and the schema is kept
// current through AutoMigrate. When change logging is enabled every write is
// paired with a [models.ChangeLog] entry in the same transaction, giving the
// replication layer an exact, transaction-consistent change feed (see
// changelog.go).
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Garrettc123/enterprise-unified-platform/pkg/models"
)

// PostgresStore implements the Store interface using PostgreSQL with GORM.
type PostgresStore struct {
	db *gorm.DB
	// tracking enables transactional change logging on every write
	tracking bool
}

// NewPostgresStore creates a new PostgreSQL store.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromDB wraps an existing GORM handle. Used by tests that
// supply their own dialector.
func NewPostgresStoreFromDB(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// WithChangeLogging returns a store that records every write to the change
// log table within the same transaction as the data modification. The
// returned store shares the underlying connection.
func (s *PostgresStore) WithChangeLogging() *PostgresStore {
	return &PostgresStore{db: s.db, tracking: true}
}

func (s *PostgresStore) getDB() *gorm.DB {
	return s.db
}

// Migrate creates or updates tables, indexes, and foreign keys for all
// platform models using GORM's AutoMigrate. Safe to run repeatedly; it only
// adds missing schema elements.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(
		&models.User{},
		&models.APIKey{},
		&models.Organization{},
		&models.Project{},
		&models.Task{},
		&models.FileObject{},
		&models.AuditEntry{},
		&models.Metric{},
		&models.ChangeLog{},
	)
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// entityPayload converts an entity to a JSONMap for change log storage.
func entityPayload(entity any) (models.JSONMap, error) {
	data, err := json.Marshal(entity)
	if err != nil {
		return nil, err
	}
	var payload models.JSONMap
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// create persists an entity, recording the change when tracking is enabled.
func (s *PostgresStore) create(ctx context.Context, entity any, entityType, entityID func() string) error {
	if !s.tracking {
		return s.getDB().WithContext(ctx).Create(entity).Error
	}
	return s.getDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(entity).Error; err != nil {
			return err
		}
		return recordChangeTx(tx, entityType(), entityID(), models.ChangeOperationCreate, entity)
	})
}

// save replaces an entity, recording the change when tracking is enabled.
func (s *PostgresStore) save(ctx context.Context, entity any, entityType, entityID func() string) error {
	if !s.tracking {
		return s.getDB().WithContext(ctx).Save(entity).Error
	}
	return s.getDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(entity).Error; err != nil {
			return err
		}
		return recordChangeTx(tx, entityType(), entityID(), models.ChangeOperationUpdate, entity)
	})
}

// remove deletes an entity, recording the change when tracking is enabled.
func (s *PostgresStore) remove(ctx context.Context, model any, entityType, entityID string) error {
	if !s.tracking {
		return s.getDB().WithContext(ctx).Delete(model, "id = ?", entityID).Error
	}
	return s.getDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(model, "id = ?", entityID).Error; err != nil {
			return err
		}
		return recordChangeTx(tx, entityType, entityID, models.ChangeOperationDelete, nil)
	})
}

// User operations

func (s *PostgresStore) CreateUser(ctx context.Context, user *models.User) error {
	return s.create(ctx, user, func() string { return "user" }, func() string { return user.ID.String() })
}

func (s *PostgresStore) GetUser(ctx context.Context, id models.UserID) (*models.User, error) {
	var user models.User
	err := s.getDB().WithContext(ctx).First(&user, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.getDB().WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (s *PostgresStore) UpdateUser(ctx context.Context, user *models.User) error {
	return s.save(ctx, user, func() string { return "user" }, func() string { return user.ID.String() })
}

func (s *PostgresStore) DeleteUser(ctx context.Context, id models.UserID) error {
	return s.remove(ctx, &models.User{}, "user", id.String())
}

func (s *PostgresStore) ListUsers(ctx context.Context) ([]*models.User, error) {
	var users []*models.User
	err := s.getDB().WithContext(ctx).Order("created_at").Find(&users).Error
	return users, err
}

// API key operations

func (s *PostgresStore) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	return s.getDB().WithContext(ctx).Create(key).Error
}

func (s *PostgresStore) GetAPIKeyByHash(ctx context.Context, keyHash string) (*models.APIKey, error) {
	var key models.APIKey
	err := s.getDB().WithContext(ctx).Where("key_hash = ?", keyHash).First(&key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &key, nil
}

func (s *PostgresStore) ListAPIKeys(ctx context.Context, userID models.UserID) ([]*models.APIKey, error) {
	var keys []*models.APIKey
	err := s.getDB().WithContext(ctx).Where("user_id = ?", userID).Find(&keys).Error
	return keys, err
}

func (s *PostgresStore) DeleteAPIKey(ctx context.Context, id models.APIKeyID) error {
	return s.getDB().WithContext(ctx).Delete(&models.APIKey{}, "id = ?", id).Error
}

func (s *PostgresStore) TouchAPIKey(ctx context.Context, id models.APIKeyID, usedAt time.Time) error {
	return s.getDB().WithContext(ctx).Model(&models.APIKey{}).Where("id = ?", id).Update("last_used_at", usedAt).Error
}

// Organization operations

func (s *PostgresStore) CreateOrganization(ctx context.Context, org *models.Organization) error {
	return s.create(ctx, org, func() string { return "organization" }, func() string { return org.ID.String() })
}

func (s *PostgresStore) GetOrganization(ctx context.Context, id models.OrganizationID) (*models.Organization, error) {
	var org models.Organization
	err := s.getDB().WithContext(ctx).First(&org, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &org, nil
}

func (s *PostgresStore) GetOrganizationBySlug(ctx context.Context, slug string) (*models.Organization, error) {
	var org models.Organization
	err := s.getDB().WithContext(ctx).Where("slug = ?", slug).First(&org).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &org, nil
}

func (s *PostgresStore) UpdateOrganization(ctx context.Context, org *models.Organization) error {
	return s.save(ctx, org, func() string { return "organization" }, func() string { return org.ID.String() })
}

func (s *PostgresStore) DeleteOrganization(ctx context.Context, id models.OrganizationID) error {
	return s.remove(ctx, &models.Organization{}, "organization", id.String())
}

func (s *PostgresStore) ListOrganizations(ctx context.Context, ownerID models.UserID) ([]*models.Organization, error) {
	var orgs []*models.Organization
	err := s.getDB().WithContext(ctx).Where("owner_id = ?", ownerID).Find(&orgs).Error
	return orgs, err
}

// Project operations

func (s *PostgresStore) CreateProject(ctx context.Context, project *models.Project) error {
	return s.create(ctx, project, func() string { return "project" }, func() string { return project.ID.String() })
}

func (s *PostgresStore) GetProject(ctx context.Context, id models.ProjectID) (*models.Project, error) {
	var project models.Project
	err := s.getDB().WithContext(ctx).First(&project, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &project, nil
}

func (s *PostgresStore) UpdateProject(ctx context.Context, project *models.Project) error {
	return s.save(ctx, project, func() string { return "project" }, func() string { return project.ID.String() })
}

func (s *PostgresStore) DeleteProject(ctx context.Context, id models.ProjectID) error {
	return s.remove(ctx, &models.Project{}, "project", id.String())
}

func (s *PostgresStore) ListProjects(ctx context.Context, orgID models.OrganizationID) ([]*models.Project, error) {
	var projects []*models.Project
	err := s.getDB().WithContext(ctx).Where("organization_id = ?", orgID).Find(&projects).Error
	return projects, err
}

// Task operations

func (s *PostgresStore) CreateTask(ctx context.Context, task *models.Task) error {
	return s.create(ctx, task, func() string { return "task" }, func() string { return task.ID.String() })
}

func (s *PostgresStore) GetTask(ctx context.Context, id models.TaskID) (*models.Task, error) {
	var task models.Task
	err := s.getDB().WithContext(ctx).First(&task, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &task, nil
}

func (s *PostgresStore) UpdateTask(ctx context.Context, task *models.Task) error {
	return s.save(ctx, task, func() string { return "task" }, func() string { return task.ID.String() })
}

func (s *PostgresStore) DeleteTask(ctx context.Context, id models.TaskID) error {
	return s.remove(ctx, &models.Task{}, "task", id.String())
}

func (s *PostgresStore) ListTasks(ctx context.Context, projectID models.ProjectID) ([]*models.Task, error) {
	var tasks []*models.Task
	err := s.getDB().WithContext(ctx).Where("project_id = ?", projectID).Order("created_at").Find(&tasks).Error
	return tasks, err
}

func (s *PostgresStore) ListTasksByAssignee(ctx context.Context, assigneeID models.UserID) ([]*models.Task, error) {
	var tasks []*models.Task
	err := s.getDB().WithContext(ctx).Where("assignee_id = ?", assigneeID).Order("created_at").Find(&tasks).Error
	return tasks, err
}

// File metadata operations

func (s *PostgresStore) CreateFile(ctx context.Context, file *models.FileObject) error {
	return s.create(ctx, file, func() string { return "file" }, func() string { return file.ID.String() })
}

func (s *PostgresStore) GetFile(ctx context.Context, id models.FileID) (*models.FileObject, error) {
	var file models.FileObject
	err := s.getDB().WithContext(ctx).First(&file, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &file, nil
}

func (s *PostgresStore) UpdateFile(ctx context.Context, file *models.FileObject) error {
	return s.save(ctx, file, func() string { return "file" }, func() string { return file.ID.String() })
}

func (s *PostgresStore) DeleteFile(ctx context.Context, id models.FileID) error {
	return s.remove(ctx, &models.FileObject{}, "file", id.String())
}

func (s *PostgresStore) ListFiles(ctx context.Context, orgID models.OrganizationID) ([]*models.FileObject, error) {
	var files []*models.FileObject
	err := s.getDB().WithContext(ctx).Where("organization_id = ?", orgID).Find(&files).Error
	return files, err
}

// Audit operations

func (s *PostgresStore) RecordAudit(ctx context.Context, entry *models.AuditEntry) error {
	return s.getDB().WithContext(ctx).Create(entry).Error
}

func (s *PostgresStore) ListAudit(ctx context.Context, since time.Time, limit int) ([]*models.AuditEntry, error) {
	var entries []*models.AuditEntry
	err := s.getDB().WithContext(ctx).
		Where("created_at >= ?", since).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

// Metric operations

func (s *PostgresStore) RecordMetric(ctx context.Context, metric *models.Metric) error {
	return s.getDB().WithContext(ctx).Create(metric).Error
}

func (s *PostgresStore) ListMetrics(ctx context.Context, name string, since time.Time, limit int) ([]*models.Metric, error) {
	var metrics []*models.Metric
	q := s.getDB().WithContext(ctx).Where("timestamp >= ?", since)
	if name != "" {
		q = q.Where("name = ?", name)
	}
	err := q.Order("timestamp DESC").Limit(limit).Find(&metrics).Error
	return metrics, err
}

// Timestamp-based change detection for catch-up synchronization

func (s *PostgresStore) ListModifiedUserIDs(ctx context.Context, since, until time.Time) ([]models.UserID, error) {
	var ids []models.UserID
	err := s.getDB().WithContext(ctx).
		Model(&models.User{}).
		Where("(created_at >= ? AND created_at < ?) OR (updated_at >= ? AND updated_at < ?)", since, until, since, until).
		Pluck("id", &ids).Error
	return ids, err
}

func (s *PostgresStore) ListModifiedOrganizationIDs(ctx context.Context, since, until time.Time) ([]models.OrganizationID, error) {
	var ids []models.OrganizationID
	err := s.getDB().WithContext(ctx).
		Model(&models.Organization{}).
		Where("(created_at >= ? AND created_at < ?) OR (updated_at >= ? AND updated_at < ?)", since, until, since, until).
		Pluck("id", &ids).Error
	return ids, err
}

func (s *PostgresStore) ListModifiedProjectIDs(ctx context.Context, since, until time.Time) ([]models.ProjectID, error) {
	var ids []models.ProjectID
	err := s.getDB().WithContext(ctx).
		Model(&models.Project{}).
		Where("(created_at >= ? AND created_at < ?) OR (updated_at >= ? AND updated_at < ?)", since, until, since, until).
		Pluck("id", &ids).Error
	return ids, err
}

func (s *PostgresStore) ListModifiedTaskIDs(ctx context.Context, since, until time.Time) ([]models.TaskID, error) {
	var ids []models.TaskID
	err := s.getDB().WithContext(ctx).
		Model(&models.Task{}).
		Where("(created_at >= ? AND created_at < ?) OR (updated_at >= ? AND updated_at < ?)", since, until, since, until).
		Pluck("id", &ids).Error
	return ids, err
}

func (s *PostgresStore) ListModifiedFileIDs(ctx context.Context, since, until time.Time) ([]models.FileID, error) {
	var ids []models.FileID
	err := s.getDB().WithContext(ctx).
		Model(&models.FileObject{}).
		Where("(created_at >= ? AND created_at < ?) OR (updated_at >= ? AND updated_at < ?)", since, until, since, until).
		Pluck("id", &ids).Error
	return ids, err
}
