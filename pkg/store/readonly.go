package store

import (
	"context"
	"fmt"
	"time"

	"github.com/Garrettc123/enterprise-unified-platform/pkg/models"
)

// ReadOnlyStore wraps a Store and rejects write operations while the
// application is in read-only mode.
//
// The wrapper is used during the final catch-up phase of a store migration:
// writes are blocked so the target can be brought fully up to date before
// reads switch over, then normal operation resumes. The read-only state is
// resolved dynamically through the isReadOnly function so the mode can be
// toggled at runtime without recreating the store.
//
// All write operations return an error in read-only mode; read operations
// pass through unchanged.
type ReadOnlyStore struct {
	Store
	isReadOnly func() bool
}

// NewReadOnlyStore creates a new read-only wrapper for a store
func NewReadOnlyStore(store Store, isReadOnly func() bool) Store {
	return &ReadOnlyStore{
		Store:      store,
		isReadOnly: isReadOnly,
	}
}

// Unwrap returns the underlying store
func (r *ReadOnlyStore) Unwrap() Store {
	return r.Store
}

// checkReadOnly returns an error if the store is in read-only mode
func (r *ReadOnlyStore) checkReadOnly() error {
	if r.isReadOnly() {
		return fmt.Errorf("operation denied: application is in read-only mode for data consistency")
	}
	return nil
}

// Write operations - check read-only mode first

func (r *ReadOnlyStore) CreateUser(ctx context.Context, user *models.User) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.CreateUser(ctx, user)
}

func (r *ReadOnlyStore) UpdateUser(ctx context.Context, user *models.User) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.UpdateUser(ctx, user)
}

func (r *ReadOnlyStore) DeleteUser(ctx context.Context, id models.UserID) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.DeleteUser(ctx, id)
}

func (r *ReadOnlyStore) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.CreateAPIKey(ctx, key)
}

func (r *ReadOnlyStore) DeleteAPIKey(ctx context.Context, id models.APIKeyID) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.DeleteAPIKey(ctx, id)
}

func (r *ReadOnlyStore) TouchAPIKey(ctx context.Context, id models.APIKeyID, usedAt time.Time) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.TouchAPIKey(ctx, id, usedAt)
}

func (r *ReadOnlyStore) CreateOrganization(ctx context.Context, org *models.Organization) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.CreateOrganization(ctx, org)
}

func (r *ReadOnlyStore) UpdateOrganization(ctx context.Context, org *models.Organization) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.UpdateOrganization(ctx, org)
}

func (r *ReadOnlyStore) DeleteOrganization(ctx context.Context, id models.OrganizationID) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.DeleteOrganization(ctx, id)
}

func (r *ReadOnlyStore) CreateProject(ctx context.Context, project *models.Project) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.CreateProject(ctx, project)
}

func (r *ReadOnlyStore) UpdateProject(ctx context.Context, project *models.Project) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.UpdateProject(ctx, project)
}

func (r *ReadOnlyStore) DeleteProject(ctx context.Context, id models.ProjectID) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.DeleteProject(ctx, id)
}

func (r *ReadOnlyStore) CreateTask(ctx context.Context, task *models.Task) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.CreateTask(ctx, task)
}

func (r *ReadOnlyStore) UpdateTask(ctx context.Context, task *models.Task) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.UpdateTask(ctx, task)
}

func (r *ReadOnlyStore) DeleteTask(ctx context.Context, id models.TaskID) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.DeleteTask(ctx, id)
}

func (r *ReadOnlyStore) CreateFile(ctx context.Context, file *models.FileObject) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.CreateFile(ctx, file)
}

func (r *ReadOnlyStore) UpdateFile(ctx context.Context, file *models.FileObject) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.UpdateFile(ctx, file)
}

func (r *ReadOnlyStore) DeleteFile(ctx context.Context, id models.FileID) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.DeleteFile(ctx, id)
}

func (r *ReadOnlyStore) RecordAudit(ctx context.Context, entry *models.AuditEntry) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.RecordAudit(ctx, entry)
}

func (r *ReadOnlyStore) RecordMetric(ctx context.Context, metric *models.Metric) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.RecordMetric(ctx, metric)
}
