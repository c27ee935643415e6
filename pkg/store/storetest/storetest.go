// Package storetest provides an in-memory Store implementation for tests.
//
// The store keeps every entity in maps guarded by a single mutex and honors
// the interface conventions: (nil, nil) for missing records, empty slices for
// empty lists, CreatedAt/UpdatedAt maintained on writes so timestamp-based
// change detection works. It also counts calls per method name, which lets
// replication tests assert routing decisions without a real database.
package storetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Garrettc123/enterprise-unified-platform/pkg/models"
)

// MemoryStore is an in-memory Store for tests.
type MemoryStore struct {
	mu sync.Mutex

	users   map[models.UserID]*models.User
	apiKeys map[models.APIKeyID]*models.APIKey
	orgs    map[models.OrganizationID]*models.Organization
	projs   map[models.ProjectID]*models.Project
	tasks   map[models.TaskID]*models.Task
	files   map[models.FileID]*models.FileObject
	audit   []*models.AuditEntry
	metrics []*models.Metric

	calls map[string]int

	// FailWith, when set, is returned by every operation. Lets tests
	// exercise error paths.
	FailWith error
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   map[models.UserID]*models.User{},
		apiKeys: map[models.APIKeyID]*models.APIKey{},
		orgs:    map[models.OrganizationID]*models.Organization{},
		projs:   map[models.ProjectID]*models.Project{},
		tasks:   map[models.TaskID]*models.Task{},
		files:   map[models.FileID]*models.FileObject{},
		calls:   map[string]int{},
	}
}

// Calls returns how many times the named method was invoked.
func (m *MemoryStore) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

func (m *MemoryStore) enter(method string) error {
	m.calls[method]++
	return m.FailWith
}

func copyUser(u *models.User) *models.User {
	c := *u
	return &c
}

// User operations

func (m *MemoryStore) CreateUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("CreateUser"); err != nil {
		return err
	}
	if user.ID.IsZero() {
		user.ID = models.NewUserID()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	m.users[user.ID] = copyUser(user)
	return nil
}

func (m *MemoryStore) GetUser(ctx context.Context, id models.UserID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetUser"); err != nil {
		return nil, err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	return copyUser(u), nil
}

func (m *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetUserByEmail"); err != nil {
		return nil, err
	}
	for _, u := range m.users {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) UpdateUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("UpdateUser"); err != nil {
		return err
	}
	user.UpdatedAt = time.Now().UTC()
	m.users[user.ID] = copyUser(user)
	return nil
}

func (m *MemoryStore) DeleteUser(ctx context.Context, id models.UserID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("DeleteUser"); err != nil {
		return err
	}
	delete(m.users, id)
	return nil
}

func (m *MemoryStore) ListUsers(ctx context.Context) ([]*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ListUsers"); err != nil {
		return nil, err
	}
	users := []*models.User{}
	for _, u := range m.users {
		users = append(users, copyUser(u))
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })
	return users, nil
}

// API key operations

func (m *MemoryStore) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("CreateAPIKey"); err != nil {
		return err
	}
	if key.ID.IsZero() {
		key.ID = models.NewAPIKeyID()
	}
	if key.CreatedAt.IsZero() {
		key.CreatedAt = time.Now().UTC()
	}
	c := *key
	m.apiKeys[key.ID] = &c
	return nil
}

func (m *MemoryStore) GetAPIKeyByHash(ctx context.Context, keyHash string) (*models.APIKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetAPIKeyByHash"); err != nil {
		return nil, err
	}
	for _, k := range m.apiKeys {
		if k.KeyHash == keyHash {
			c := *k
			return &c, nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) ListAPIKeys(ctx context.Context, userID models.UserID) ([]*models.APIKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ListAPIKeys"); err != nil {
		return nil, err
	}
	keys := []*models.APIKey{}
	for _, k := range m.apiKeys {
		if k.UserID == userID {
			c := *k
			keys = append(keys, &c)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].CreatedAt.Before(keys[j].CreatedAt) })
	return keys, nil
}

func (m *MemoryStore) DeleteAPIKey(ctx context.Context, id models.APIKeyID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("DeleteAPIKey"); err != nil {
		return err
	}
	delete(m.apiKeys, id)
	return nil
}

func (m *MemoryStore) TouchAPIKey(ctx context.Context, id models.APIKeyID, usedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("TouchAPIKey"); err != nil {
		return err
	}
	if k, ok := m.apiKeys[id]; ok {
		t := usedAt
		k.LastUsedAt = &t
	}
	return nil
}

// Organization operations

func (m *MemoryStore) CreateOrganization(ctx context.Context, org *models.Organization) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("CreateOrganization"); err != nil {
		return err
	}
	if org.ID.IsZero() {
		org.ID = models.NewOrganizationID()
	}
	now := time.Now().UTC()
	if org.CreatedAt.IsZero() {
		org.CreatedAt = now
	}
	org.UpdatedAt = now
	c := *org
	m.orgs[org.ID] = &c
	return nil
}

func (m *MemoryStore) GetOrganization(ctx context.Context, id models.OrganizationID) (*models.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetOrganization"); err != nil {
		return nil, err
	}
	o, ok := m.orgs[id]
	if !ok {
		return nil, nil
	}
	c := *o
	return &c, nil
}

func (m *MemoryStore) GetOrganizationBySlug(ctx context.Context, slug string) (*models.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetOrganizationBySlug"); err != nil {
		return nil, err
	}
	for _, o := range m.orgs {
		if o.Slug == slug {
			c := *o
			return &c, nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) UpdateOrganization(ctx context.Context, org *models.Organization) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("UpdateOrganization"); err != nil {
		return err
	}
	org.UpdatedAt = time.Now().UTC()
	c := *org
	m.orgs[org.ID] = &c
	return nil
}

func (m *MemoryStore) DeleteOrganization(ctx context.Context, id models.OrganizationID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("DeleteOrganization"); err != nil {
		return err
	}
	delete(m.orgs, id)
	return nil
}

func (m *MemoryStore) ListOrganizations(ctx context.Context, ownerID models.UserID) ([]*models.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ListOrganizations"); err != nil {
		return nil, err
	}
	orgs := []*models.Organization{}
	for _, o := range m.orgs {
		if o.OwnerID == ownerID {
			c := *o
			orgs = append(orgs, &c)
		}
	}
	sort.Slice(orgs, func(i, j int) bool { return orgs[i].CreatedAt.Before(orgs[j].CreatedAt) })
	return orgs, nil
}

// Project operations

func (m *MemoryStore) CreateProject(ctx context.Context, project *models.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("CreateProject"); err != nil {
		return err
	}
	if project.ID.IsZero() {
		project.ID = models.NewProjectID()
	}
	now := time.Now().UTC()
	if project.CreatedAt.IsZero() {
		project.CreatedAt = now
	}
	project.UpdatedAt = now
	c := *project
	m.projs[project.ID] = &c
	return nil
}

func (m *MemoryStore) GetProject(ctx context.Context, id models.ProjectID) (*models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetProject"); err != nil {
		return nil, err
	}
	p, ok := m.projs[id]
	if !ok {
		return nil, nil
	}
	c := *p
	return &c, nil
}

func (m *MemoryStore) UpdateProject(ctx context.Context, project *models.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("UpdateProject"); err != nil {
		return err
	}
	project.UpdatedAt = time.Now().UTC()
	c := *project
	m.projs[project.ID] = &c
	return nil
}

func (m *MemoryStore) DeleteProject(ctx context.Context, id models.ProjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("DeleteProject"); err != nil {
		return err
	}
	delete(m.projs, id)
	return nil
}

func (m *MemoryStore) ListProjects(ctx context.Context, orgID models.OrganizationID) ([]*models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ListProjects"); err != nil {
		return nil, err
	}
	projects := []*models.Project{}
	for _, p := range m.projs {
		if p.OrganizationID == orgID {
			c := *p
			projects = append(projects, &c)
		}
	}
	sort.Slice(projects, func(i, j int) bool { return projects[i].CreatedAt.Before(projects[j].CreatedAt) })
	return projects, nil
}

// Task operations

func (m *MemoryStore) CreateTask(ctx context.Context, task *models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("CreateTask"); err != nil {
		return err
	}
	if task.ID.IsZero() {
		task.ID = models.NewTaskID()
	}
	now := time.Now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now
	c := *task
	m.tasks[task.ID] = &c
	return nil
}

func (m *MemoryStore) GetTask(ctx context.Context, id models.TaskID) (*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetTask"); err != nil {
		return nil, err
	}
	t, ok := m.tasks[id]
	if !ok {
		return nil, nil
	}
	c := *t
	return &c, nil
}

func (m *MemoryStore) UpdateTask(ctx context.Context, task *models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("UpdateTask"); err != nil {
		return err
	}
	task.UpdatedAt = time.Now().UTC()
	c := *task
	m.tasks[task.ID] = &c
	return nil
}

func (m *MemoryStore) DeleteTask(ctx context.Context, id models.TaskID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("DeleteTask"); err != nil {
		return err
	}
	delete(m.tasks, id)
	return nil
}

func (m *MemoryStore) ListTasks(ctx context.Context, projectID models.ProjectID) ([]*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ListTasks"); err != nil {
		return nil, err
	}
	tasks := []*models.Task{}
	for _, t := range m.tasks {
		if t.ProjectID == projectID {
			c := *t
			tasks = append(tasks, &c)
		}
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].CreatedAt.Before(tasks[j].CreatedAt) })
	return tasks, nil
}

func (m *MemoryStore) ListTasksByAssignee(ctx context.Context, assigneeID models.UserID) ([]*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ListTasksByAssignee"); err != nil {
		return nil, err
	}
	tasks := []*models.Task{}
	for _, t := range m.tasks {
		if t.AssigneeID != nil && *t.AssigneeID == assigneeID {
			c := *t
			tasks = append(tasks, &c)
		}
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].CreatedAt.Before(tasks[j].CreatedAt) })
	return tasks, nil
}

// File metadata operations

func (m *MemoryStore) CreateFile(ctx context.Context, file *models.FileObject) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("CreateFile"); err != nil {
		return err
	}
	if file.ID.IsZero() {
		file.ID = models.NewFileID()
	}
	now := time.Now().UTC()
	if file.CreatedAt.IsZero() {
		file.CreatedAt = now
	}
	file.UpdatedAt = now
	c := *file
	m.files[file.ID] = &c
	return nil
}

func (m *MemoryStore) GetFile(ctx context.Context, id models.FileID) (*models.FileObject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetFile"); err != nil {
		return nil, err
	}
	f, ok := m.files[id]
	if !ok {
		return nil, nil
	}
	c := *f
	return &c, nil
}

func (m *MemoryStore) UpdateFile(ctx context.Context, file *models.FileObject) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("UpdateFile"); err != nil {
		return err
	}
	file.UpdatedAt = time.Now().UTC()
	c := *file
	m.files[file.ID] = &c
	return nil
}

func (m *MemoryStore) DeleteFile(ctx context.Context, id models.FileID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("DeleteFile"); err != nil {
		return err
	}
	delete(m.files, id)
	return nil
}

func (m *MemoryStore) ListFiles(ctx context.Context, orgID models.OrganizationID) ([]*models.FileObject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ListFiles"); err != nil {
		return nil, err
	}
	files := []*models.FileObject{}
	for _, f := range m.files {
		if f.OrganizationID == orgID {
			c := *f
			files = append(files, &c)
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].CreatedAt.Before(files[j].CreatedAt) })
	return files, nil
}

// Audit operations

func (m *MemoryStore) RecordAudit(ctx context.Context, entry *models.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("RecordAudit"); err != nil {
		return err
	}
	if entry.ID.IsZero() {
		entry.ID = models.NewAuditEntryID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	c := *entry
	m.audit = append(m.audit, &c)
	return nil
}

func (m *MemoryStore) ListAudit(ctx context.Context, since time.Time, limit int) ([]*models.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ListAudit"); err != nil {
		return nil, err
	}
	entries := []*models.AuditEntry{}
	for i := len(m.audit) - 1; i >= 0 && len(entries) < limit; i-- {
		if !m.audit[i].CreatedAt.Before(since) {
			c := *m.audit[i]
			entries = append(entries, &c)
		}
	}
	return entries, nil
}

// Metric operations

func (m *MemoryStore) RecordMetric(ctx context.Context, metric *models.Metric) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("RecordMetric"); err != nil {
		return err
	}
	metric.ID = uint64(len(m.metrics) + 1)
	if metric.Timestamp.IsZero() {
		metric.Timestamp = time.Now().UTC()
	}
	c := *metric
	m.metrics = append(m.metrics, &c)
	return nil
}

func (m *MemoryStore) ListMetrics(ctx context.Context, name string, since time.Time, limit int) ([]*models.Metric, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ListMetrics"); err != nil {
		return nil, err
	}
	metrics := []*models.Metric{}
	for i := len(m.metrics) - 1; i >= 0 && len(metrics) < limit; i-- {
		mt := m.metrics[i]
		if name != "" && mt.Name != name {
			continue
		}
		if !mt.Timestamp.Before(since) {
			c := *mt
			metrics = append(metrics, &c)
		}
	}
	return metrics, nil
}

// Timestamp-based change detection

func within(createdAt, updatedAt time.Time, since, until time.Time) bool {
	in := func(t time.Time) bool { return !t.Before(since) && t.Before(until) }
	return in(createdAt) || in(updatedAt)
}

func (m *MemoryStore) ListModifiedUserIDs(ctx context.Context, since, until time.Time) ([]models.UserID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ListModifiedUserIDs"); err != nil {
		return nil, err
	}
	ids := []models.UserID{}
	for id, u := range m.users {
		if within(u.CreatedAt, u.UpdatedAt, since, until) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (m *MemoryStore) ListModifiedOrganizationIDs(ctx context.Context, since, until time.Time) ([]models.OrganizationID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ListModifiedOrganizationIDs"); err != nil {
		return nil, err
	}
	ids := []models.OrganizationID{}
	for id, o := range m.orgs {
		if within(o.CreatedAt, o.UpdatedAt, since, until) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (m *MemoryStore) ListModifiedProjectIDs(ctx context.Context, since, until time.Time) ([]models.ProjectID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ListModifiedProjectIDs"); err != nil {
		return nil, err
	}
	ids := []models.ProjectID{}
	for id, p := range m.projs {
		if within(p.CreatedAt, p.UpdatedAt, since, until) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (m *MemoryStore) ListModifiedTaskIDs(ctx context.Context, since, until time.Time) ([]models.TaskID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ListModifiedTaskIDs"); err != nil {
		return nil, err
	}
	ids := []models.TaskID{}
	for id, t := range m.tasks {
		if within(t.CreatedAt, t.UpdatedAt, since, until) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (m *MemoryStore) ListModifiedFileIDs(ctx context.Context, since, until time.Time) ([]models.FileID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ListModifiedFileIDs"); err != nil {
		return nil, err
	}
	ids := []models.FileID{}
	for id, f := range m.files {
		if within(f.CreatedAt, f.UpdatedAt, since, until) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Migrate is a no-op for the in-memory store.
func (m *MemoryStore) Migrate(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enter("Migrate")
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error {
	return nil
}
