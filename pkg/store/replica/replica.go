// Package replica implements a two-store composite that routes reads and
// writes according to a migration mode, without dual-writing.
//
// The composite supports zero-downtime store migration through background
// synchronization and a short read-only switchover window:
//
//  1. Start with ModeSingle using the primary store
//  2. Run background sync (timestamp or changelog based)
//  3. Switch to ModeReadOnly for the final catch-up sync
//  4. Switch to ModeSwitching to validate the secondary store under reads
//  5. Complete with ModeSingle after SwapStores makes the secondary primary
//
// Avoiding dual writes eliminates partial-failure scenarios: at any moment
// exactly one store accepts writes, and the sync layer is the only path by
// which data moves between them.
package replica

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Garrettc123/enterprise-unified-platform/pkg/models"
	"github.com/Garrettc123/enterprise-unified-platform/pkg/store"
)

// MigrationMode defines how reads and writes are routed between the two
// stores.
type MigrationMode string

const (
	// ModeSingle operates with only the primary store, used before migration
	// starts or after it completes. No synchronization overhead.
	ModeSingle MigrationMode = "single"

	// ModeReadOnly rejects all writes while reads continue from the primary
	// store. Used during the critical switchover phase so the final catch-up
	// sync sees a frozen source.
	ModeReadOnly MigrationMode = "read_only"

	// ModeSwitching reads from the secondary store while writes still go to
	// the primary. Validates that the secondary is ready to take over.
	ModeSwitching MigrationMode = "switching"

	// ModeReversed writes to the secondary store before final cutover, with
	// the primary kept in sync for rollback.
	ModeReversed MigrationMode = "reversed"
)

// SyncStrategy defines how change detection is performed during sync.
type SyncStrategy string

const (
	// SyncStrategyTimestamp uses CreatedAt/UpdatedAt scans for change
	// detection. Works with any backend but may re-copy unchanged records
	// whose timestamps fall inside the window.
	SyncStrategyTimestamp SyncStrategy = "timestamp"

	// SyncStrategyChangelog replays the source's change log table. Provides
	// precise, transaction-consistent change capture including deletes, but
	// requires a source backend that implements store.ChangeLogger.
	SyncStrategyChangelog SyncStrategy = "changelog"
)

// ReplicatedStore implements the Store interface over a primary/secondary
// store pair.
type ReplicatedStore struct {
	primary   store.Store
	secondary store.Store
	mode      MigrationMode
	strategy  SyncStrategy
	mu        sync.RWMutex

	// lastSync is the exclusive upper bound of the last completed
	// timestamp-based sync window.
	lastSync time.Time
}

// NewReplicatedStore creates a replicated store pair in the given mode. The
// default sync strategy is timestamp-based.
func NewReplicatedStore(primary, secondary store.Store, mode MigrationMode) *ReplicatedStore {
	return &ReplicatedStore{
		primary:   primary,
		secondary: secondary,
		mode:      mode,
		strategy:  SyncStrategyTimestamp,
	}
}

// SetMode changes the migration mode.
//
// From ModeReadOnly the only valid transitions are to ModeSwitching or
// ModeSingle; read-only exists to freeze writes for the switchover, so
// re-enabling writes against the old primary would defeat it.
func (r *ReplicatedStore) SetMode(mode MigrationMode) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.mode == ModeReadOnly && mode != ModeSwitching && mode != ModeSingle {
		return fmt.Errorf("can only transition from read_only to switching or single mode")
	}

	r.mode = mode
	return nil
}

// GetMode returns the current migration mode.
func (r *ReplicatedStore) GetMode() MigrationMode {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.mode
}

// SetSyncStrategy selects the change-detection strategy for background sync.
func (r *ReplicatedStore) SetSyncStrategy(strategy SyncStrategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategy = strategy
}

// GetSyncStrategy returns the current change-detection strategy.
func (r *ReplicatedStore) GetSyncStrategy() SyncStrategy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.strategy
}

// SwapStores exchanges primary and secondary. Used after a successful
// migration to make the secondary the new primary.
func (r *ReplicatedStore) SwapStores() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.primary, r.secondary = r.secondary, r.primary
}

// Primary returns the current primary store.
func (r *ReplicatedStore) Primary() store.Store {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.primary
}

// Secondary returns the current secondary store.
func (r *ReplicatedStore) Secondary() store.Store {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.secondary
}

// getReadStore returns the store serving reads in the current mode.
func (r *ReplicatedStore) getReadStore() store.Store {
	r.mu.RLock()
	defer r.mu.RUnlock()

	switch r.mode {
	case ModeSwitching, ModeReversed:
		return r.secondary
	default:
		return r.primary
	}
}

// getWriteStore returns the store accepting writes, or an error in read-only
// mode.
func (r *ReplicatedStore) getWriteStore() (store.Store, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.mode == ModeReadOnly {
		return nil, fmt.Errorf("system is in read-only mode during migration")
	}
	if r.mode == ModeReversed {
		return r.secondary, nil
	}
	return r.primary, nil
}

// Migrate runs schema migration on both stores. Both must end up with
// compatible schemas before any sync starts; if the primary fails the
// secondary is left untouched.
func (r *ReplicatedStore) Migrate(ctx context.Context) error {
	if err := r.primary.Migrate(ctx); err != nil {
		return fmt.Errorf("primary migration failed: %w", err)
	}
	if r.secondary != nil {
		if err := r.secondary.Migrate(ctx); err != nil {
			return fmt.Errorf("secondary migration failed: %w", err)
		}
	}
	return nil
}

// Close closes both stores, returning the first error encountered.
func (r *ReplicatedStore) Close() error {
	primaryErr := r.primary.Close()
	var secondaryErr error
	if r.secondary != nil {
		secondaryErr = r.secondary.Close()
	}
	if primaryErr != nil {
		return primaryErr
	}
	return secondaryErr
}

// User operations

func (r *ReplicatedStore) CreateUser(ctx context.Context, user *models.User) error {
	s, err := r.getWriteStore()
	if err != nil {
		return err
	}
	return s.CreateUser(ctx, user)
}

func (r *ReplicatedStore) GetUser(ctx context.Context, id models.UserID) (*models.User, error) {
	return r.getReadStore().GetUser(ctx, id)
}

func (r *ReplicatedStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getReadStore().GetUserByEmail(ctx, email)
}

func (r *ReplicatedStore) UpdateUser(ctx context.Context, user *models.User) error {
	s, err := r.getWriteStore()
	if err != nil {
		return err
	}
	return s.UpdateUser(ctx, user)
}

func (r *ReplicatedStore) DeleteUser(ctx context.Context, id models.UserID) error {
	s, err := r.getWriteStore()
	if err != nil {
		return err
	}
	return s.DeleteUser(ctx, id)
}

func (r *ReplicatedStore) ListUsers(ctx context.Context) ([]*models.User, error) {
	return r.getReadStore().ListUsers(ctx)
}

// API key operations

func (r *ReplicatedStore) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	s, err := r.getWriteStore()
	if err != nil {
		return err
	}
	return s.CreateAPIKey(ctx, key)
}

func (r *ReplicatedStore) GetAPIKeyByHash(ctx context.Context, keyHash string) (*models.APIKey, error) {
	return r.getReadStore().GetAPIKeyByHash(ctx, keyHash)
}

func (r *ReplicatedStore) ListAPIKeys(ctx context.Context, userID models.UserID) ([]*models.APIKey, error) {
	return r.getReadStore().ListAPIKeys(ctx, userID)
}

func (r *ReplicatedStore) DeleteAPIKey(ctx context.Context, id models.APIKeyID) error {
	s, err := r.getWriteStore()
	if err != nil {
		return err
	}
	return s.DeleteAPIKey(ctx, id)
}

func (r *ReplicatedStore) TouchAPIKey(ctx context.Context, id models.APIKeyID, usedAt time.Time) error {
	s, err := r.getWriteStore()
	if err != nil {
		return err
	}
	return s.TouchAPIKey(ctx, id, usedAt)
}

// Organization operations

func (r *ReplicatedStore) CreateOrganization(ctx context.Context, org *models.Organization) error {
	s, err := r.getWriteStore()
	if err != nil {
		return err
	}
	return s.CreateOrganization(ctx, org)
}

func (r *ReplicatedStore) GetOrganization(ctx context.Context, id models.OrganizationID) (*models.Organization, error) {
	return r.getReadStore().GetOrganization(ctx, id)
}

func (r *ReplicatedStore) GetOrganizationBySlug(ctx context.Context, slug string) (*models.Organization, error) {
	return r.getReadStore().GetOrganizationBySlug(ctx, slug)
}

func (r *ReplicatedStore) UpdateOrganization(ctx context.Context, org *models.Organization) error {
	s, err := r.getWriteStore()
	if err != nil {
		return err
	}
	return s.UpdateOrganization(ctx, org)
}

func (r *ReplicatedStore) DeleteOrganization(ctx context.Context, id models.OrganizationID) error {
	s, err := r.getWriteStore()
	if err != nil {
		return err
	}
	return s.DeleteOrganization(ctx, id)
}

func (r *ReplicatedStore) ListOrganizations(ctx context.Context, ownerID models.UserID) ([]*models.Organization, error) {
	return r.getReadStore().ListOrganizations(ctx, ownerID)
}

// Project operations

func (r *ReplicatedStore) CreateProject(ctx context.Context, project *models.Project) error {
	s, err := r.getWriteStore()
	if err != nil {
		return err
	}
	return s.CreateProject(ctx, project)
}

func (r *ReplicatedStore) GetProject(ctx context.Context, id models.ProjectID) (*models.Project, error) {
	return r.getReadStore().GetProject(ctx, id)
}

func (r *ReplicatedStore) UpdateProject(ctx context.Context, project *models.Project) error {
	s, err := r.getWriteStore()
	if err != nil {
		return err
	}
	return s.UpdateProject(ctx, project)
}

func (r *ReplicatedStore) DeleteProject(ctx context.Context, id models.ProjectID) error {
	s, err := r.getWriteStore()
	if err != nil {
		return err
	}
	return s.DeleteProject(ctx, id)
}

func (r *ReplicatedStore) ListProjects(ctx context.Context, orgID models.OrganizationID) ([]*models.Project, error) {
	return r.getReadStore().ListProjects(ctx, orgID)
}

// Task operations

func (r *ReplicatedStore) CreateTask(ctx context.Context, task *models.Task) error {
	s, err := r.getWriteStore()
	if err != nil {
		return err
	}
	return s.CreateTask(ctx, task)
}

func (r *ReplicatedStore) GetTask(ctx context.Context, id models.TaskID) (*models.Task, error) {
	return r.getReadStore().GetTask(ctx, id)
}

func (r *ReplicatedStore) UpdateTask(ctx context.Context, task *models.Task) error {
	s, err := r.getWriteStore()
	if err != nil {
		return err
	}
	return s.UpdateTask(ctx, task)
}

func (r *ReplicatedStore) DeleteTask(ctx context.Context, id models.TaskID) error {
	s, err := r.getWriteStore()
	if err != nil {
		return err
	}
	return s.DeleteTask(ctx, id)
}

func (r *ReplicatedStore) ListTasks(ctx context.Context, projectID models.ProjectID) ([]*models.Task, error) {
	return r.getReadStore().ListTasks(ctx, projectID)
}

func (r *ReplicatedStore) ListTasksByAssignee(ctx context.Context, assigneeID models.UserID) ([]*models.Task, error) {
	return r.getReadStore().ListTasksByAssignee(ctx, assigneeID)
}

// File metadata operations

func (r *ReplicatedStore) CreateFile(ctx context.Context, file *models.FileObject) error {
	s, err := r.getWriteStore()
	if err != nil {
		return err
	}
	return s.CreateFile(ctx, file)
}

func (r *ReplicatedStore) GetFile(ctx context.Context, id models.FileID) (*models.FileObject, error) {
	return r.getReadStore().GetFile(ctx, id)
}

func (r *ReplicatedStore) UpdateFile(ctx context.Context, file *models.FileObject) error {
	s, err := r.getWriteStore()
	if err != nil {
		return err
	}
	return s.UpdateFile(ctx, file)
}

func (r *ReplicatedStore) DeleteFile(ctx context.Context, id models.FileID) error {
	s, err := r.getWriteStore()
	if err != nil {
		return err
	}
	return s.DeleteFile(ctx, id)
}

func (r *ReplicatedStore) ListFiles(ctx context.Context, orgID models.OrganizationID) ([]*models.FileObject, error) {
	return r.getReadStore().ListFiles(ctx, orgID)
}

// Audit operations

func (r *ReplicatedStore) RecordAudit(ctx context.Context, entry *models.AuditEntry) error {
	s, err := r.getWriteStore()
	if err != nil {
		return err
	}
	return s.RecordAudit(ctx, entry)
}

func (r *ReplicatedStore) ListAudit(ctx context.Context, since time.Time, limit int) ([]*models.AuditEntry, error) {
	return r.getReadStore().ListAudit(ctx, since, limit)
}

// Metric operations

func (r *ReplicatedStore) RecordMetric(ctx context.Context, metric *models.Metric) error {
	s, err := r.getWriteStore()
	if err != nil {
		return err
	}
	return s.RecordMetric(ctx, metric)
}

func (r *ReplicatedStore) ListMetrics(ctx context.Context, name string, since time.Time, limit int) ([]*models.Metric, error) {
	return r.getReadStore().ListMetrics(ctx, name, since, limit)
}

// Change detection delegates to the read store so catch-up windows observe
// the same data reads do.

func (r *ReplicatedStore) ListModifiedUserIDs(ctx context.Context, since, until time.Time) ([]models.UserID, error) {
	return r.getReadStore().ListModifiedUserIDs(ctx, since, until)
}

func (r *ReplicatedStore) ListModifiedOrganizationIDs(ctx context.Context, since, until time.Time) ([]models.OrganizationID, error) {
	return r.getReadStore().ListModifiedOrganizationIDs(ctx, since, until)
}

func (r *ReplicatedStore) ListModifiedProjectIDs(ctx context.Context, since, until time.Time) ([]models.ProjectID, error) {
	return r.getReadStore().ListModifiedProjectIDs(ctx, since, until)
}

func (r *ReplicatedStore) ListModifiedTaskIDs(ctx context.Context, since, until time.Time) ([]models.TaskID, error) {
	return r.getReadStore().ListModifiedTaskIDs(ctx, since, until)
}

func (r *ReplicatedStore) ListModifiedFileIDs(ctx context.Context, since, until time.Time) ([]models.FileID, error) {
	return r.getReadStore().ListModifiedFileIDs(ctx, since, until)
}
