package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Garrettc123/enterprise-unified-platform/pkg/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTestUser(t *testing.T, s *SQLiteStore, email string) *models.User {
	t.Helper()
	user := &models.User{
		Email:        email,
		Username:     email,
		PasswordHash: "hash",
		IsActive:     true,
	}
	require.NoError(t, s.CreateUser(context.Background(), user))
	return user
}

func TestUserCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := newTestUser(t, s, "alice@example.com")
	assert.False(t, user.ID.IsZero())
	assert.False(t, user.CreatedAt.IsZero())

	got, err := s.GetUser(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, user.Email, got.Email)
	assert.Equal(t, "hash", got.PasswordHash)

	byEmail, err := s.GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, user.ID, byEmail.ID)

	got.FullName = "Alice Example"
	require.NoError(t, s.UpdateUser(ctx, got))

	updated, err := s.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice Example", updated.FullName)
}

func TestUserSoftDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := newTestUser(t, s, "gone@example.com")
	require.NoError(t, s.DeleteUser(ctx, user.ID))

	got, err := s.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, got, "soft-deleted records are invisible to reads")

	byEmail, err := s.GetUserByEmail(ctx, "gone@example.com")
	require.NoError(t, err)
	assert.Nil(t, byEmail)

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestGetMissingReturnsNilNil(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user, err := s.GetUser(ctx, models.NewUserID())
	require.NoError(t, err)
	assert.Nil(t, user)

	org, err := s.GetOrganization(ctx, models.NewOrganizationID())
	require.NoError(t, err)
	assert.Nil(t, org)

	task, err := s.GetTask(ctx, models.NewTaskID())
	require.NoError(t, err)
	assert.Nil(t, task)
}

func TestAPIKeys(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := newTestUser(t, s, "keys@example.com")
	key := &models.APIKey{
		KeyHash:  "abc123",
		Name:     "ci",
		UserID:   user.ID,
		IsActive: true,
	}
	require.NoError(t, s.CreateAPIKey(ctx, key))

	got, err := s.GetAPIKeyByHash(ctx, "abc123")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, key.ID, got.ID)
	assert.Nil(t, got.LastUsedAt)

	used := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, s.TouchAPIKey(ctx, key.ID, used))

	touched, err := s.GetAPIKeyByHash(ctx, "abc123")
	require.NoError(t, err)
	require.NotNil(t, touched.LastUsedAt)
	assert.WithinDuration(t, used, *touched.LastUsedAt, time.Second)

	keys, err := s.ListAPIKeys(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, keys, 1)

	require.NoError(t, s.DeleteAPIKey(ctx, key.ID))
	gone, err := s.GetAPIKeyByHash(ctx, "abc123")
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestOrganizationBySlug(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	owner := newTestUser(t, s, "owner@example.com")
	org := &models.Organization{
		Name:     "Acme",
		Slug:     "acme",
		OwnerID:  owner.ID,
		Settings: models.JSONMap{"theme": "dark"},
	}
	require.NoError(t, s.CreateOrganization(ctx, org))

	got, err := s.GetOrganizationBySlug(ctx, "acme")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, org.ID, got.ID)
	assert.Equal(t, "dark", got.Settings["theme"])

	missing, err := s.GetOrganizationBySlug(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	owned, err := s.ListOrganizations(ctx, owner.ID)
	require.NoError(t, err)
	assert.Len(t, owned, 1)
}

func TestProjectTaskFlow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	owner := newTestUser(t, s, "pm@example.com")
	org := &models.Organization{Name: "Acme", Slug: "acme", OwnerID: owner.ID}
	require.NoError(t, s.CreateOrganization(ctx, org))

	budget := 5000.0
	project := &models.Project{
		OrganizationID: org.ID,
		Name:           "Launch",
		Status:         models.ProjectActive,
		Priority:       models.PriorityHigh,
		OwnerID:        owner.ID,
		Budget:         &budget,
	}
	require.NoError(t, s.CreateProject(ctx, project))

	task := &models.Task{
		ProjectID:  project.ID,
		Title:      "Write docs",
		Status:     models.TaskPending,
		Priority:   models.PriorityMedium,
		AssigneeID: &owner.ID,
		Tags:       models.StringSlice{"docs"},
		Metadata:   models.JSONMap{"estimate": "2d"},
	}
	require.NoError(t, s.CreateTask(ctx, task))

	gotProject, err := s.GetProject(ctx, project.ID)
	require.NoError(t, err)
	require.NotNil(t, gotProject)
	require.NotNil(t, gotProject.Budget)
	assert.Equal(t, budget, *gotProject.Budget)

	gotTask, err := s.GetTask(ctx, task.ID)
	require.NoError(t, err)
	require.NotNil(t, gotTask)
	require.NotNil(t, gotTask.AssigneeID)
	assert.Equal(t, owner.ID, *gotTask.AssigneeID)
	assert.Equal(t, models.StringSlice{"docs"}, gotTask.Tags)
	assert.Equal(t, "2d", gotTask.Metadata["estimate"])

	byProject, err := s.ListTasks(ctx, project.ID)
	require.NoError(t, err)
	assert.Len(t, byProject, 1)

	byAssignee, err := s.ListTasksByAssignee(ctx, owner.ID)
	require.NoError(t, err)
	assert.Len(t, byAssignee, 1)

	now := time.Now().UTC()
	gotTask.Status = models.TaskCompleted
	gotTask.CompletedAt = &now
	require.NoError(t, s.UpdateTask(ctx, gotTask))

	done, err := s.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskCompleted, done.Status)
	require.NotNil(t, done.CompletedAt)
}

func TestFileMetadata(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	owner := newTestUser(t, s, "files@example.com")
	org := &models.Organization{Name: "Acme", Slug: "acme", OwnerID: owner.ID}
	require.NoError(t, s.CreateOrganization(ctx, org))

	file := &models.FileObject{
		OrganizationID: org.ID,
		Name:           "report.pdf",
		ContentType:    "application/pdf",
		Size:           1024,
		Checksum:       "deadbeef",
		StorageKey:     org.ID.String() + "/report",
		UploadedBy:     owner.ID,
	}
	require.NoError(t, s.CreateFile(ctx, file))

	got, err := s.GetFile(ctx, file.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(1024), got.Size)
	assert.Equal(t, "deadbeef", got.Checksum)

	files, err := s.ListFiles(ctx, org.ID)
	require.NoError(t, err)
	assert.Len(t, files, 1)

	require.NoError(t, s.DeleteFile(ctx, file.ID))
	gone, err := s.GetFile(ctx, file.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestAuditAndMetrics(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	actor := newTestUser(t, s, "actor@example.com")
	for i := 0; i < 3; i++ {
		require.NoError(t, s.RecordAudit(ctx, &models.AuditEntry{
			ActorID:    actor.ID,
			Action:     "task.update",
			EntityType: "task",
			EntityID:   models.NewTaskID().String(),
			Detail:     models.JSONMap{"status": "completed"},
		}))
	}

	entries, err := s.ListAudit(ctx, time.Now().Add(-time.Hour), 2)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "limit bounds the result")

	none, err := s.ListAudit(ctx, time.Now().Add(time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, none)

	require.NoError(t, s.RecordMetric(ctx, &models.Metric{
		Name: "api.requests", Value: 10, Kind: models.MetricCounter, Timestamp: time.Now().UTC(),
	}))
	require.NoError(t, s.RecordMetric(ctx, &models.Metric{
		Name: "queue.depth", Value: 4, Kind: models.MetricGauge, Timestamp: time.Now().UTC(),
	}))

	byName, err := s.ListMetrics(ctx, "api.requests", time.Now().Add(-time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, 10.0, byName[0].Value)

	all, err := s.ListMetrics(ctx, "", time.Now().Add(-time.Hour), 10)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestListModifiedWindows(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	before := time.Now().UTC().Add(-time.Second)
	user := newTestUser(t, s, "sync@example.com")
	after := time.Now().UTC().Add(time.Second)

	ids, err := s.ListModifiedUserIDs(ctx, before, after)
	require.NoError(t, err)
	assert.Equal(t, []models.UserID{user.ID}, ids)

	// Window entirely before the write sees nothing.
	past, err := s.ListModifiedUserIDs(ctx, before.Add(-time.Hour), before)
	require.NoError(t, err)
	assert.Empty(t, past)

	// An update inside a later window is picked up again.
	user.FullName = "Sync Test"
	mid := time.Now().UTC().Add(-100 * time.Millisecond)
	require.NoError(t, s.UpdateUser(ctx, user))

	again, err := s.ListModifiedUserIDs(ctx, mid, time.Now().UTC().Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, []models.UserID{user.ID}, again)
}
