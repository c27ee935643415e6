package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Garrettc123/enterprise-unified-platform/pkg/blob"
	"github.com/Garrettc123/enterprise-unified-platform/pkg/client"
	"github.com/Garrettc123/enterprise-unified-platform/pkg/models"
	"github.com/Garrettc123/enterprise-unified-platform/pkg/store/storetest"
)

// testEnv bundles the in-memory application and its HTTP test server.
type testEnv struct {
	app    *App
	store  *storetest.MemoryStore
	blobs  *blob.MemoryStore
	server *httptest.Server
	client *client.Client
}

func newTestEnv(t *testing.T, config *Config) *testEnv {
	t.Helper()
	if config == nil {
		config = &Config{ServerPort: "0"}
	}
	memStore := storetest.NewMemoryStore()
	memBlobs := blob.NewMemoryStore()
	app := NewWithStore(config, memStore, memBlobs)
	server := httptest.NewServer(app.Router())
	t.Cleanup(server.Close)
	return &testEnv{
		app:    app,
		store:  memStore,
		blobs:  memBlobs,
		server: server,
		client: client.New(server.URL),
	}
}

// signUp registers a fresh account and leaves the client authenticated.
func (e *testEnv) signUp(t *testing.T, email string) *models.User {
	t.Helper()
	resp, err := e.client.SignUp(context.Background(), client.SignUpRequest{
		Email:    email,
		Username: email,
		Password: "hunter22",
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Token)
	return resp.User
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)
	require.NoError(t, env.client.Health(context.Background()))

	// The load balancer endpoint outside /api answers too.
	resp, err := http.Get(env.server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSignUpAndCurrentUser(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	user := env.signUp(t, "alice@example.com")
	assert.False(t, user.ID.IsZero())
	assert.True(t, user.IsActive)

	me, err := env.client.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, user.ID, me.ID)

	// The stored hash is bcrypt, never the plaintext, and never serialized.
	stored, err := env.store.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, stored.PasswordHash)
	assert.NotEqual(t, "hunter22", stored.PasswordHash)
}

func TestSignUpValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	_, err := env.client.SignUp(ctx, client.SignUpRequest{Email: "x@example.com"})
	require.Error(t, err, "password is required")

	env.signUp(t, "taken@example.com")
	_, err = env.client.SignUp(ctx, client.SignUpRequest{
		Email: "taken@example.com", Username: "other", Password: "pw",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestSignInFlow(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	env.signUp(t, "bob@example.com")

	fresh := client.New(env.server.URL)
	_, err := fresh.SignIn(ctx, client.SignInRequest{Email: "bob@example.com", Password: "wrong"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid credentials")

	_, err = fresh.SignIn(ctx, client.SignInRequest{Email: "nobody@example.com", Password: "hunter22"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid credentials", "unknown email and wrong password are indistinguishable")

	resp, err := fresh.SignIn(ctx, client.SignInRequest{Email: "bob@example.com", Password: "hunter22"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)

	_, err = fresh.CurrentUser(ctx)
	require.NoError(t, err)

	require.NoError(t, fresh.SignOut(ctx))
	_, err = fresh.CurrentUser(ctx)
	assert.Error(t, err, "session is gone after sign-out")
}

func TestAPIKeyFlow(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	env.signUp(t, "keys@example.com")

	created, err := env.client.CreateAPIKey(ctx, client.CreateAPIKeyRequest{Name: "ci"})
	require.NoError(t, err)
	assert.True(t, len(created.Key) > 3 && created.Key[:3] == "pk_")
	assert.False(t, created.APIKey.ID.IsZero())

	// The key authenticates on its own, without a session.
	keyClient := client.New(env.server.URL)
	keyClient.SetToken(created.Key)
	me, err := keyClient.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "keys@example.com", me.Email)

	keys, err := env.client.ListAPIKeys(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	require.NotNil(t, keys[0].LastUsedAt, "authentication touches the key")

	require.NoError(t, env.client.DeleteAPIKey(ctx, keys[0].ID))
	_, err = keyClient.CurrentUser(ctx)
	assert.Error(t, err, "revoked keys stop authenticating")
}

func TestOrganizationCRUD(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	owner := env.signUp(t, "owner@example.com")

	org, err := env.client.CreateOrganization(ctx, &models.Organization{
		Name:    "Acme",
		Slug:    "acme",
		OwnerID: owner.ID,
	})
	require.NoError(t, err)
	assert.False(t, org.ID.IsZero())

	_, err = env.client.CreateOrganization(ctx, &models.Organization{
		Name: "Other", Slug: "acme", OwnerID: owner.ID,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "slug already in use")

	got, err := env.client.GetOrganization(ctx, org.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.Name)

	var bySlug models.Organization
	resp, err := http.Get(env.server.URL + "/api/organizations/slug/acme")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&bySlug))
	assert.Equal(t, org.ID, bySlug.ID)

	got.Name = "Acme Corp"
	updated, err := env.client.UpdateOrganization(ctx, got)
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", updated.Name)

	owned, err := env.client.ListOrganizations(ctx, owner.ID)
	require.NoError(t, err)
	assert.Len(t, owned, 1)

	require.NoError(t, env.client.DeleteOrganization(ctx, org.ID))
	_, err = env.client.GetOrganization(ctx, org.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestProjectDefaults(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	owner := env.signUp(t, "pm@example.com")
	org, err := env.client.CreateOrganization(ctx, &models.Organization{
		Name: "Acme", Slug: "acme", OwnerID: owner.ID,
	})
	require.NoError(t, err)

	project, err := env.client.CreateProject(ctx, &models.Project{
		OrganizationID: org.ID,
		Name:           "Launch",
		OwnerID:        owner.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ProjectActive, project.Status)
	assert.Equal(t, models.PriorityMedium, project.Priority)

	_, err = env.client.CreateProject(ctx, &models.Project{OrganizationID: org.ID})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name is required")

	_, err = env.client.CreateProject(ctx, &models.Project{Name: "Orphan"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "organization_id is required")

	projects, err := env.client.ListProjects(ctx, org.ID)
	require.NoError(t, err)
	assert.Len(t, projects, 1)
}

func TestTaskCompletionTransition(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	owner := env.signUp(t, "dev@example.com")
	org, err := env.client.CreateOrganization(ctx, &models.Organization{
		Name: "Acme", Slug: "acme", OwnerID: owner.ID,
	})
	require.NoError(t, err)
	project, err := env.client.CreateProject(ctx, &models.Project{
		OrganizationID: org.ID, Name: "Launch", OwnerID: owner.ID,
	})
	require.NoError(t, err)

	task, err := env.client.CreateTask(ctx, &models.Task{
		ProjectID: project.ID,
		Title:     "Ship it",
	})
	require.NoError(t, err)
	assert.Equal(t, models.TaskPending, task.Status)
	assert.Nil(t, task.CompletedAt)

	task.Status = models.TaskCompleted
	done, err := env.client.UpdateTask(ctx, task)
	require.NoError(t, err)
	require.NotNil(t, done.CompletedAt, "completion sets the timestamp server-side")

	done.Status = models.TaskInProgress
	reopened, err := env.client.UpdateTask(ctx, done)
	require.NoError(t, err)
	assert.Nil(t, reopened.CompletedAt, "reopening clears the timestamp")

	tasks, err := env.client.ListTasks(ctx, project.ID)
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}

func TestAuditTrail(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	owner := env.signUp(t, "audit@example.com")
	_, err := env.client.CreateOrganization(ctx, &models.Organization{
		Name: "Acme", Slug: "acme", OwnerID: owner.ID,
	})
	require.NoError(t, err)

	entries, err := env.client.ListAudit(ctx)
	require.NoError(t, err)

	actions := map[string]bool{}
	for _, e := range entries {
		actions[e.Action] = true
	}
	assert.True(t, actions["auth.signup"])
	assert.True(t, actions["organization.create"])
}

func TestMetrics(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	require.NoError(t, env.client.RecordMetric(ctx, &models.Metric{
		Name: "api.requests", Value: 42, Kind: models.MetricCounter,
	}))
	require.NoError(t, env.client.RecordMetric(ctx, &models.Metric{
		Name: "queue.depth", Value: 3,
	}))

	metrics, err := env.client.ListMetrics(ctx, "api.requests")
	require.NoError(t, err)
	require.Len(t, metrics, 1)
	assert.Equal(t, 42.0, metrics[0].Value)
	assert.Equal(t, models.MetricCounter, metrics[0].Kind)

	all, err := env.client.ListMetrics(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	err = env.client.RecordMetric(ctx, &models.Metric{Value: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name is required")
}

func TestReadOnlyModeRejectsWrites(t *testing.T) {
	env := newTestEnv(t, &Config{ServerPort: "0", ReadOnly: true})
	ctx := context.Background()

	_, err := env.client.CreateOrganization(ctx, &models.Organization{
		Name: "Acme", Slug: "acme", OwnerID: models.NewUserID(),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read-only")

	// Reads still work.
	require.NoError(t, env.client.Health(ctx))
	_, err = env.client.ListAudit(ctx)
	require.NoError(t, err)

	// Toggling the flag restores writes without a restart.
	env.app.SetReadOnly(false)
	user := env.signUp(t, "late@example.com")
	_, err = env.client.CreateOrganization(ctx, &models.Organization{
		Name: "Acme", Slug: "acme", OwnerID: user.ID,
	})
	require.NoError(t, err)
}

// putUser sends an authenticated user update and returns the response status.
func putUser(t *testing.T, env *testEnv, token string, id models.UserID, body string) int {
	t.Helper()
	req, err := http.NewRequest(http.MethodPut,
		env.server.URL+"/api/users/"+id.String(), strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	return resp.StatusCode
}

func TestUpdateUserCannotSelfGrantSuperuser(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	resp, err := env.client.SignUp(ctx, client.SignUpRequest{
		Email: "mallory@example.com", Username: "mallory", Password: "hunter22",
	})
	require.NoError(t, err)
	user := resp.User

	body := `{"email":"mallory@example.com","username":"mallory","is_active":true,"is_superuser":true}`
	require.Equal(t, http.StatusOK, putUser(t, env, resp.Token, user.ID, body))

	stored, err := env.store.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsSuperuser, "flag from the request body must not stick")
}

func TestUpdateUserSuperuserCanGrantFlag(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	adminResp, err := env.client.SignUp(ctx, client.SignUpRequest{
		Email: "admin@example.com", Username: "admin", Password: "hunter22",
	})
	require.NoError(t, err)
	admin, err := env.store.GetUser(ctx, adminResp.User.ID)
	require.NoError(t, err)
	admin.IsSuperuser = true
	require.NoError(t, env.store.UpdateUser(ctx, admin))

	member := env.signUp(t, "member@example.com")

	body := `{"email":"member@example.com","username":"member@example.com","is_active":true,"is_superuser":true}`
	require.Equal(t, http.StatusOK, putUser(t, env, adminResp.Token, member.ID, body))

	stored, err := env.store.GetUser(ctx, member.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsSuperuser)
}

func TestAdminEndpointsWithoutReplication(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, path := range []string{"/api/admin/mode", "/api/admin/sync/stats"} {
		resp, err := http.Get(env.server.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusConflict, resp.StatusCode, fmt.Sprintf("%s without a replicated store", path))
	}
}

func TestInvalidIDsReturnBadRequest(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, path := range []string{
		"/api/users/not-a-uuid",
		"/api/organizations/not-a-uuid",
		"/api/projects/not-a-uuid",
		"/api/tasks/not-a-uuid",
		"/api/files/not-a-uuid",
	} {
		resp, err := http.Get(env.server.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, path)
	}
}
