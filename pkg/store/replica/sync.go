package replica

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/Garrettc123/enterprise-unified-platform/pkg/models"
	"github.com/Garrettc123/enterprise-unified-platform/pkg/store"
)

// syncEntities copies one entity type from a source to a target store using
// timestamp-based change detection. Records listed as modified but missing on
// re-read were deleted after listing and are skipped; the delete itself is
// picked up by a later window or by changelog replay.
//
// inSync decides whether the destination copy already reflects the source
// record; such records are listed but not written, so repeated passes over
// the same window (and the reverse pass of a bidirectional pair) converge
// instead of re-copying their own writes.
func syncEntities[ID comparable, E any](
	ctx context.Context,
	listIDs func(context.Context, time.Time, time.Time) ([]ID, error),
	getSource func(context.Context, ID) (*E, error),
	getTarget func(context.Context, ID) (*E, error),
	inSync func(src, dst *E) bool,
	create func(context.Context, *E) error,
	update func(context.Context, *E) error,
	since, until time.Time,
) (int, error) {
	ids, err := listIDs(ctx, since, until)
	if err != nil {
		return 0, err
	}

	synced := 0
	for _, id := range ids {
		src, err := getSource(ctx, id)
		if err != nil {
			return synced, err
		}
		if src == nil {
			continue
		}
		dst, err := getTarget(ctx, id)
		if err != nil {
			return synced, err
		}
		if dst != nil && inSync(src, dst) {
			continue
		}
		if dst == nil {
			err = create(ctx, src)
		} else {
			err = update(ctx, src)
		}
		if err != nil {
			return synced, err
		}
		synced++
	}
	return synced, nil
}

// Stores restamp UpdatedAt on every write, so a replicated copy always
// carries a later timestamp than its origin. Timestamps alone therefore
// cannot tell a copy from an edit; the inSync checks compare content with
// the store-maintained fields and preloaded associations scrubbed out, and
// treat a strictly newer destination as the winner to be carried by the
// opposite pass. Last writer wins per record.

func scrubMap(m models.JSONMap) models.JSONMap {
	if len(m) == 0 {
		return nil
	}
	return m
}

func scrubTags(s models.StringSlice) models.StringSlice {
	if len(s) == 0 {
		return nil
	}
	return s
}

func scrubUser(u models.User) models.User {
	u.CreatedAt, u.UpdatedAt = time.Time{}, time.Time{}
	u.DeletedAt = gorm.DeletedAt{}
	return u
}

func userInSync(src, dst *models.User) bool {
	return dst.UpdatedAt.After(src.UpdatedAt) ||
		reflect.DeepEqual(scrubUser(*src), scrubUser(*dst))
}

func scrubOrganization(o models.Organization) models.Organization {
	o.CreatedAt, o.UpdatedAt = time.Time{}, time.Time{}
	o.DeletedAt = gorm.DeletedAt{}
	o.Owner = nil
	o.Settings = scrubMap(o.Settings)
	return o
}

func organizationInSync(src, dst *models.Organization) bool {
	return dst.UpdatedAt.After(src.UpdatedAt) ||
		reflect.DeepEqual(scrubOrganization(*src), scrubOrganization(*dst))
}

func scrubProject(p models.Project) models.Project {
	p.CreatedAt, p.UpdatedAt = time.Time{}, time.Time{}
	p.DeletedAt = gorm.DeletedAt{}
	p.Organization, p.Owner = nil, nil
	p.Metadata = scrubMap(p.Metadata)
	return p
}

func projectInSync(src, dst *models.Project) bool {
	return dst.UpdatedAt.After(src.UpdatedAt) ||
		reflect.DeepEqual(scrubProject(*src), scrubProject(*dst))
}

func scrubTask(t models.Task) models.Task {
	t.CreatedAt, t.UpdatedAt = time.Time{}, time.Time{}
	t.DeletedAt = gorm.DeletedAt{}
	t.Project, t.Assignee = nil, nil
	t.Tags = scrubTags(t.Tags)
	t.Metadata = scrubMap(t.Metadata)
	return t
}

func taskInSync(src, dst *models.Task) bool {
	return dst.UpdatedAt.After(src.UpdatedAt) ||
		reflect.DeepEqual(scrubTask(*src), scrubTask(*dst))
}

func scrubFile(f models.FileObject) models.FileObject {
	f.CreatedAt, f.UpdatedAt = time.Time{}, time.Time{}
	f.DeletedAt = gorm.DeletedAt{}
	return f
}

func fileInSync(src, dst *models.FileObject) bool {
	return dst.UpdatedAt.After(src.UpdatedAt) ||
		reflect.DeepEqual(scrubFile(*src), scrubFile(*dst))
}

// CatchUp copies all entities modified within [since, until) from one store
// to another, in dependency order so foreign keys on the target resolve:
// users first, then organizations, projects, tasks, and files. Returns the
// number of records applied.
//
// CatchUp is the shared synchronization primitive: the replicated store uses
// it for migration catch-up, and the sync orchestrator uses it for periodic
// pair synchronization between any two registered stores.
func CatchUp(ctx context.Context, from, to store.Store, since, until time.Time) (int, error) {
	total := 0

	n, err := syncEntities(ctx, from.ListModifiedUserIDs, from.GetUser, to.GetUser,
		userInSync, to.CreateUser, to.UpdateUser, since, until)
	total += n
	if err != nil {
		return total, fmt.Errorf("user sync failed: %w", err)
	}

	n, err = syncEntities(ctx, from.ListModifiedOrganizationIDs, from.GetOrganization, to.GetOrganization,
		organizationInSync, to.CreateOrganization, to.UpdateOrganization, since, until)
	total += n
	if err != nil {
		return total, fmt.Errorf("organization sync failed: %w", err)
	}

	n, err = syncEntities(ctx, from.ListModifiedProjectIDs, from.GetProject, to.GetProject,
		projectInSync, to.CreateProject, to.UpdateProject, since, until)
	total += n
	if err != nil {
		return total, fmt.Errorf("project sync failed: %w", err)
	}

	n, err = syncEntities(ctx, from.ListModifiedTaskIDs, from.GetTask, to.GetTask,
		taskInSync, to.CreateTask, to.UpdateTask, since, until)
	total += n
	if err != nil {
		return total, fmt.Errorf("task sync failed: %w", err)
	}

	n, err = syncEntities(ctx, from.ListModifiedFileIDs, from.GetFile, to.GetFile,
		fileInSync, to.CreateFile, to.UpdateFile, since, until)
	total += n
	if err != nil {
		return total, fmt.Errorf("file sync failed: %w", err)
	}

	return total, nil
}

// SyncMissedUpdates copies records modified within [since, until) from the
// primary to the secondary store.
func (r *ReplicatedStore) SyncMissedUpdates(ctx context.Context, since, until time.Time) (int, error) {
	if r.GetSyncStrategy() == SyncStrategyChangelog {
		return r.syncFromChangelog(ctx)
	}
	return CatchUp(ctx, r.Primary(), r.Secondary(), since, until)
}

// ReverseSyncMissedUpdates copies records modified within [since, until)
// from the secondary back to the primary. Used in ModeReversed to keep the
// old primary current for rollback.
func (r *ReplicatedStore) ReverseSyncMissedUpdates(ctx context.Context, since, until time.Time) (int, error) {
	return CatchUp(ctx, r.Secondary(), r.Primary(), since, until)
}

// changeBatchSize bounds one changelog replay pass.
const changeBatchSize = 500

// syncFromChangelog replays unprocessed change log entries from the primary
// onto the secondary. The primary must implement store.ChangeLogger.
//
// Failed changes are marked with the error and left pending; replay continues
// with the next entry so one poisoned change does not stall the stream. The
// retry count accumulates for operators to spot permanently failing entries.
func (r *ReplicatedStore) syncFromChangelog(ctx context.Context) (int, error) {
	logger, ok := r.Primary().(store.ChangeLogger)
	if !ok {
		return 0, fmt.Errorf("changelog sync strategy requires a primary store with change logging support")
	}

	changes, err := logger.ListUnprocessedChanges(ctx, changeBatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list unprocessed changes: %w", err)
	}

	applied := 0
	for _, change := range changes {
		if err := ctx.Err(); err != nil {
			return applied, err
		}
		if err := r.applyChange(ctx, r.Secondary(), change); err != nil {
			log.Warn().
				Uint64("change_id", change.ID).
				Str("entity_type", change.EntityType).
				Str("entity_id", change.EntityID).
				Err(err).
				Msg("change replay failed")
			if markErr := logger.MarkChangeError(ctx, change.ID, err.Error()); markErr != nil {
				return applied, markErr
			}
			continue
		}
		if err := logger.MarkChangeProcessed(ctx, change.ID); err != nil {
			return applied, err
		}
		applied++
	}
	return applied, nil
}

// decodePayload converts the stored JSON payload back into a typed entity.
func decodePayload[E any](payload models.JSONMap) (*E, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var entity E
	if err := json.Unmarshal(data, &entity); err != nil {
		return nil, err
	}
	return &entity, nil
}

// applyChangeFor replays one change of a known entity type against the
// target store.
func applyChangeFor[ID comparable, E any](
	ctx context.Context,
	change *models.ChangeLog,
	parseID func(string) (ID, error),
	getTarget func(context.Context, ID) (*E, error),
	create func(context.Context, *E) error,
	update func(context.Context, *E) error,
	remove func(context.Context, ID) error,
) error {
	id, err := parseID(change.EntityID)
	if err != nil {
		return fmt.Errorf("invalid entity id %q: %w", change.EntityID, err)
	}

	if change.Operation == models.ChangeOperationDelete {
		return remove(ctx, id)
	}

	entity, err := decodePayload[E](change.Payload)
	if err != nil {
		return fmt.Errorf("failed to decode payload: %w", err)
	}
	existing, err := getTarget(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return create(ctx, entity)
	}
	return update(ctx, entity)
}

// applyChange dispatches a change log entry to the typed replay path.
func (r *ReplicatedStore) applyChange(ctx context.Context, target store.Store, change *models.ChangeLog) error {
	switch change.EntityType {
	case "user":
		return applyChangeFor(ctx, change, models.ParseUserID,
			target.GetUser, target.CreateUser, target.UpdateUser, target.DeleteUser)
	case "organization":
		return applyChangeFor(ctx, change, models.ParseOrganizationID,
			target.GetOrganization, target.CreateOrganization, target.UpdateOrganization, target.DeleteOrganization)
	case "project":
		return applyChangeFor(ctx, change, models.ParseProjectID,
			target.GetProject, target.CreateProject, target.UpdateProject, target.DeleteProject)
	case "task":
		return applyChangeFor(ctx, change, models.ParseTaskID,
			target.GetTask, target.CreateTask, target.UpdateTask, target.DeleteTask)
	case "file":
		return applyChangeFor(ctx, change, models.ParseFileID,
			target.GetFile, target.CreateFile, target.UpdateFile, target.DeleteFile)
	default:
		return fmt.Errorf("unknown entity type %q", change.EntityType)
	}
}

// syncOverlap is subtracted from each window's lower bound so records written
// with slightly skewed clocks are not missed. Records the overlap re-lists
// are already in sync and are skipped, not re-copied.
const syncOverlap = 5 * time.Second

// StartContinuousSync runs timestamp or changelog based synchronization from
// primary to secondary at the given interval until the context is canceled.
// Sync errors are logged and the loop continues; a transient failure on one
// cycle must not stop replication.
func (r *ReplicatedStore) StartContinuousSync(ctx context.Context, interval time.Duration) error {
	r.mu.Lock()
	if r.lastSync.IsZero() {
		r.lastSync = time.Now().UTC().Add(-interval)
	}
	r.mu.Unlock()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.mu.RLock()
			since := r.lastSync.Add(-syncOverlap)
			r.mu.RUnlock()
			until := time.Now().UTC()

			n, err := r.SyncMissedUpdates(ctx, since, until)
			if err != nil {
				log.Error().Err(err).Msg("background sync cycle failed")
				continue
			}
			if n > 0 {
				log.Debug().Int("records", n).Msg("background sync applied changes")
			}
			r.mu.Lock()
			r.lastSync = until
			r.mu.Unlock()
		}
	}
}

// GetSyncStats returns change log statistics from the primary store, or an
// error when the primary does not support change logging.
func (r *ReplicatedStore) GetSyncStats(ctx context.Context) (*store.ChangeStats, error) {
	logger, ok := r.Primary().(store.ChangeLogger)
	if !ok {
		return nil, fmt.Errorf("primary store does not support change logging")
	}
	return logger.GetChangeStats(ctx)
}
