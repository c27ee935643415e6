// Package store defines the persistence abstraction for the platform.
//
// The [Store] interface lets the application and the sync layer work against
// different database backends through one API:
//
//   - postgres: GORM-based relational store with ACID transactions and
//     optional transactional change logging
//   - sqlite: hand-written SQL over mattn/go-sqlite3, the light-weight
//     replica/edge backend
//   - replica: a two-store composite that routes reads and writes by
//     migration mode and performs catch-up synchronization
//   - storetest: an in-memory implementation for tests
//
// Conventions shared by all implementations:
//
//   - Get methods return (nil, nil) for missing records; errors mean the
//     query itself failed.
//   - Update methods replace the full entity, not individual fields.
//   - List methods return empty slices for no results, never nil.
//   - All methods take a context and respect cancellation.
//
// The ListModified*IDs methods support timestamp-based change detection for
// catch-up synchronization: a record is modified within [since, until) when
// MAX(CreatedAt, UpdatedAt) falls inside the window. Empty results are a
// normal outcome, not an error.
package store

import (
	"context"
	"time"

	"github.com/Garrettc123/enterprise-unified-platform/pkg/models"
)

// Store is the complete persistence interface for the platform.
//
// The interface is intentionally broad: it covers the full application
// domain (accounts, tenancy, work tracking, files, audit, analytics) plus
// the change-detection methods the replication layer needs. Backends that
// cannot support a concern natively still implement the method with
// equivalent semantics so the sync layer can treat any two stores as a
// source/target pair.
type Store interface {
	// User operations

	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id models.UserID) (*models.User, error)
	// GetUserByEmail supports login flows; email comparison is exact.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, id models.UserID) error
	ListUsers(ctx context.Context) ([]*models.User, error)

	// API key operations
	//
	// Keys are looked up by the SHA-256 hash of the presented key material;
	// plaintext keys are never stored.

	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	GetAPIKeyByHash(ctx context.Context, keyHash string) (*models.APIKey, error)
	ListAPIKeys(ctx context.Context, userID models.UserID) ([]*models.APIKey, error)
	DeleteAPIKey(ctx context.Context, id models.APIKeyID) error
	// TouchAPIKey updates the key's last-used timestamp after a successful
	// authentication.
	TouchAPIKey(ctx context.Context, id models.APIKeyID, usedAt time.Time) error

	// Organization operations

	CreateOrganization(ctx context.Context, org *models.Organization) error
	GetOrganization(ctx context.Context, id models.OrganizationID) (*models.Organization, error)
	GetOrganizationBySlug(ctx context.Context, slug string) (*models.Organization, error)
	UpdateOrganization(ctx context.Context, org *models.Organization) error
	DeleteOrganization(ctx context.Context, id models.OrganizationID) error
	ListOrganizations(ctx context.Context, ownerID models.UserID) ([]*models.Organization, error)

	// Project operations

	CreateProject(ctx context.Context, project *models.Project) error
	GetProject(ctx context.Context, id models.ProjectID) (*models.Project, error)
	UpdateProject(ctx context.Context, project *models.Project) error
	DeleteProject(ctx context.Context, id models.ProjectID) error
	ListProjects(ctx context.Context, orgID models.OrganizationID) ([]*models.Project, error)

	// Task operations

	CreateTask(ctx context.Context, task *models.Task) error
	GetTask(ctx context.Context, id models.TaskID) (*models.Task, error)
	UpdateTask(ctx context.Context, task *models.Task) error
	DeleteTask(ctx context.Context, id models.TaskID) error
	ListTasks(ctx context.Context, projectID models.ProjectID) ([]*models.Task, error)
	ListTasksByAssignee(ctx context.Context, assigneeID models.UserID) ([]*models.Task, error)

	// File metadata operations
	//
	// These manage metadata only; file content lives in the blob store
	// under FileObject.StorageKey.

	CreateFile(ctx context.Context, file *models.FileObject) error
	GetFile(ctx context.Context, id models.FileID) (*models.FileObject, error)
	UpdateFile(ctx context.Context, file *models.FileObject) error
	DeleteFile(ctx context.Context, id models.FileID) error
	ListFiles(ctx context.Context, orgID models.OrganizationID) ([]*models.FileObject, error)

	// Audit operations (append-only)

	RecordAudit(ctx context.Context, entry *models.AuditEntry) error
	ListAudit(ctx context.Context, since time.Time, limit int) ([]*models.AuditEntry, error)

	// Metric operations (append-only)

	RecordMetric(ctx context.Context, metric *models.Metric) error
	ListMetrics(ctx context.Context, name string, since time.Time, limit int) ([]*models.Metric, error)

	// Change detection for catch-up synchronization
	//
	// Each method returns identifiers of records whose CreatedAt or
	// UpdatedAt falls within [since, until). The sync layer fetches the
	// full records by ID and applies them to the target store.

	ListModifiedUserIDs(ctx context.Context, since, until time.Time) ([]models.UserID, error)
	ListModifiedOrganizationIDs(ctx context.Context, since, until time.Time) ([]models.OrganizationID, error)
	ListModifiedProjectIDs(ctx context.Context, since, until time.Time) ([]models.ProjectID, error)
	ListModifiedTaskIDs(ctx context.Context, since, until time.Time) ([]models.TaskID, error)
	ListModifiedFileIDs(ctx context.Context, since, until time.Time) ([]models.FileID, error)

	// Migrate initializes or updates the backend schema. Idempotent and
	// safe to run at every startup.
	Migrate(ctx context.Context) error

	// Close releases connections and other resources. Multiple calls are
	// safe.
	Close() error
}
