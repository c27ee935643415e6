// Package sqlite provides a SQLite implementation of the
// [github.com/Garrettc123/enterprise-unified-platform/pkg/store.Store]
// interface over database/sql with hand-written statements.
//
// SQLite serves as the light-weight replica and edge backend: a single file
// (or :memory: for tests) with no server process, suitable as the secondary
// side of a replicated store pair. Unlike the postgres backend it carries no
// ORM; the schema and every query are spelled out, which keeps the dependency
// surface small and the generated SQL predictable.
//
// Soft deletes follow the same convention as the primary backend: rows keep a
// nullable deleted_at column, reads filter on deleted_at IS NULL, and deletes
// set the timestamp instead of removing the row.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Garrettc123/enterprise-unified-platform/pkg/models"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens a SQLite database at the given path. Use ":memory:"
// for an ephemeral database. Foreign keys are enabled and a busy timeout is
// set so concurrent sync and serving goroutines do not fail immediately on
// lock contention.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_fk=1&_busy_timeout=5000&_loc=UTC", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY
	// between this process's own goroutines.
	db.SetMaxOpenConns(1)
	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		username TEXT NOT NULL UNIQUE,
		full_name TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL DEFAULT '',
		is_active INTEGER NOT NULL DEFAULT 1,
		is_superuser INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		deleted_at DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS api_keys (
		id TEXT PRIMARY KEY,
		key_hash TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		user_id TEXT NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL,
		expires_at DATETIME,
		last_used_at DATETIME
	)`,
	`CREATE INDEX IF NOT EXISTS idx_api_keys_user ON api_keys(user_id)`,
	`CREATE TABLE IF NOT EXISTS organizations (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		slug TEXT NOT NULL UNIQUE,
		owner_id TEXT NOT NULL,
		settings TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		deleted_at DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		organization_id TEXT NOT NULL,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'active',
		priority TEXT NOT NULL DEFAULT 'medium',
		owner_id TEXT NOT NULL,
		start_date DATETIME,
		end_date DATETIME,
		budget REAL,
		metadata TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		deleted_at DATETIME
	)`,
	`CREATE INDEX IF NOT EXISTS idx_projects_org ON projects(organization_id)`,
	`CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending',
		priority TEXT NOT NULL DEFAULT 'medium',
		assignee_id TEXT,
		due_date DATETIME,
		completed_at DATETIME,
		estimated_hours REAL,
		actual_hours REAL,
		tags TEXT,
		metadata TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		deleted_at DATETIME
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project_id)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_assignee ON tasks(assignee_id)`,
	`CREATE TABLE IF NOT EXISTS files (
		id TEXT PRIMARY KEY,
		organization_id TEXT NOT NULL,
		name TEXT NOT NULL,
		content_type TEXT NOT NULL DEFAULT '',
		size INTEGER NOT NULL DEFAULT 0,
		checksum TEXT NOT NULL DEFAULT '',
		storage_key TEXT NOT NULL,
		uploaded_by TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		deleted_at DATETIME
	)`,
	`CREATE INDEX IF NOT EXISTS idx_files_org ON files(organization_id)`,
	`CREATE TABLE IF NOT EXISTS audit_entries (
		id TEXT PRIMARY KEY,
		actor_id TEXT NOT NULL,
		action TEXT NOT NULL,
		entity_type TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		detail TEXT,
		created_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_created ON audit_entries(created_at)`,
	`CREATE TABLE IF NOT EXISTS metrics (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		value REAL NOT NULL,
		kind TEXT NOT NULL,
		dimensions TEXT,
		timestamp DATETIME NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_metrics_name_ts ON metrics(name, timestamp)`,
}

// Migrate creates the schema. Every statement is idempotent.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema migration failed: %w", err)
		}
	}
	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func floatPtr(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	f := nf.Float64
	return &f
}

// touch fills CreatedAt/UpdatedAt the way the ORM backend does.
func touch(createdAt *time.Time, updatedAt *time.Time) {
	now := time.Now().UTC()
	if createdAt.IsZero() {
		*createdAt = now
	}
	*updatedAt = now
}

// User operations

const userColumns = `id, email, username, full_name, password_hash, is_active, is_superuser, created_at, updated_at, deleted_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	var deletedAt sql.NullTime
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.FullName, &u.PasswordHash,
		&u.IsActive, &u.IsSuperuser, &u.CreatedAt, &u.UpdatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}
	if deletedAt.Valid {
		u.DeletedAt.Time = deletedAt.Time
		u.DeletedAt.Valid = true
	}
	return &u, nil
}

func (s *SQLiteStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID.IsZero() {
		user.ID = models.NewUserID()
	}
	touch(&user.CreatedAt, &user.UpdatedAt)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, username, full_name, password_hash, is_active, is_superuser, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Email, user.Username, user.FullName, user.PasswordHash,
		user.IsActive, user.IsSuperuser, user.CreatedAt, user.UpdatedAt)
	return err
}

func (s *SQLiteStore) GetUser(ctx context.Context, id models.UserID) (*models.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ? AND deleted_at IS NULL`, id)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return user, err
}

func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ? AND deleted_at IS NULL`, email)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return user, err
}

func (s *SQLiteStore) UpdateUser(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET email = ?, username = ?, full_name = ?, password_hash = ?, is_active = ?, is_superuser = ?, updated_at = ?
		 WHERE id = ? AND deleted_at IS NULL`,
		user.Email, user.Username, user.FullName, user.PasswordHash,
		user.IsActive, user.IsSuperuser, user.UpdatedAt, user.ID)
	return err
}

func (s *SQLiteStore) DeleteUser(ctx context.Context, id models.UserID) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`,
		time.Now().UTC(), id)
	return err
}

func (s *SQLiteStore) ListUsers(ctx context.Context) ([]*models.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE deleted_at IS NULL ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []*models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// API key operations

const apiKeyColumns = `id, key_hash, name, user_id, is_active, created_at, expires_at, last_used_at`

func scanAPIKey(row interface{ Scan(...any) error }) (*models.APIKey, error) {
	var k models.APIKey
	var expiresAt, lastUsedAt sql.NullTime
	err := row.Scan(&k.ID, &k.KeyHash, &k.Name, &k.UserID, &k.IsActive,
		&k.CreatedAt, &expiresAt, &lastUsedAt)
	if err != nil {
		return nil, err
	}
	k.ExpiresAt = timePtr(expiresAt)
	k.LastUsedAt = timePtr(lastUsedAt)
	return &k, nil
}

func (s *SQLiteStore) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	if key.ID.IsZero() {
		key.ID = models.NewAPIKeyID()
	}
	if key.CreatedAt.IsZero() {
		key.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO api_keys (id, key_hash, name, user_id, is_active, created_at, expires_at, last_used_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		key.ID, key.KeyHash, key.Name, key.UserID, key.IsActive,
		key.CreatedAt, nullTime(key.ExpiresAt), nullTime(key.LastUsedAt))
	return err
}

func (s *SQLiteStore) GetAPIKeyByHash(ctx context.Context, keyHash string) (*models.APIKey, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE key_hash = ?`, keyHash)
	key, err := scanAPIKey(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return key, err
}

func (s *SQLiteStore) ListAPIKeys(ctx context.Context, userID models.UserID) ([]*models.APIKey, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE user_id = ? ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := []*models.APIKey{}
	for rows.Next() {
		key, err := scanAPIKey(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func (s *SQLiteStore) DeleteAPIKey(ctx context.Context, id models.APIKeyID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM api_keys WHERE id = ?`, id)
	return err
}

func (s *SQLiteStore) TouchAPIKey(ctx context.Context, id models.APIKeyID, usedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE api_keys SET last_used_at = ? WHERE id = ?`, usedAt, id)
	return err
}

// Organization operations

const orgColumns = `id, name, slug, owner_id, settings, created_at, updated_at, deleted_at`

func scanOrganization(row interface{ Scan(...any) error }) (*models.Organization, error) {
	var o models.Organization
	var deletedAt sql.NullTime
	err := row.Scan(&o.ID, &o.Name, &o.Slug, &o.OwnerID, &o.Settings,
		&o.CreatedAt, &o.UpdatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}
	if deletedAt.Valid {
		o.DeletedAt.Time = deletedAt.Time
		o.DeletedAt.Valid = true
	}
	return &o, nil
}

func (s *SQLiteStore) CreateOrganization(ctx context.Context, org *models.Organization) error {
	if org.ID.IsZero() {
		org.ID = models.NewOrganizationID()
	}
	touch(&org.CreatedAt, &org.UpdatedAt)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO organizations (id, name, slug, owner_id, settings, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		org.ID, org.Name, org.Slug, org.OwnerID, org.Settings, org.CreatedAt, org.UpdatedAt)
	return err
}

func (s *SQLiteStore) GetOrganization(ctx context.Context, id models.OrganizationID) (*models.Organization, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+orgColumns+` FROM organizations WHERE id = ? AND deleted_at IS NULL`, id)
	org, err := scanOrganization(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return org, err
}

func (s *SQLiteStore) GetOrganizationBySlug(ctx context.Context, slug string) (*models.Organization, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+orgColumns+` FROM organizations WHERE slug = ? AND deleted_at IS NULL`, slug)
	org, err := scanOrganization(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return org, err
}

func (s *SQLiteStore) UpdateOrganization(ctx context.Context, org *models.Organization) error {
	org.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`UPDATE organizations SET name = ?, slug = ?, owner_id = ?, settings = ?, updated_at = ?
		 WHERE id = ? AND deleted_at IS NULL`,
		org.Name, org.Slug, org.OwnerID, org.Settings, org.UpdatedAt, org.ID)
	return err
}

func (s *SQLiteStore) DeleteOrganization(ctx context.Context, id models.OrganizationID) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE organizations SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`,
		time.Now().UTC(), id)
	return err
}

func (s *SQLiteStore) ListOrganizations(ctx context.Context, ownerID models.UserID) ([]*models.Organization, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+orgColumns+` FROM organizations WHERE owner_id = ? AND deleted_at IS NULL ORDER BY created_at`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orgs := []*models.Organization{}
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, err
		}
		orgs = append(orgs, org)
	}
	return orgs, rows.Err()
}

// Project operations

const projectColumns = `id, organization_id, name, description, status, priority, owner_id, start_date, end_date, budget, metadata, created_at, updated_at, deleted_at`

func scanProject(row interface{ Scan(...any) error }) (*models.Project, error) {
	var p models.Project
	var startDate, endDate, deletedAt sql.NullTime
	var budget sql.NullFloat64
	err := row.Scan(&p.ID, &p.OrganizationID, &p.Name, &p.Description, &p.Status,
		&p.Priority, &p.OwnerID, &startDate, &endDate, &budget, &p.Metadata,
		&p.CreatedAt, &p.UpdatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}
	p.StartDate = timePtr(startDate)
	p.EndDate = timePtr(endDate)
	p.Budget = floatPtr(budget)
	if deletedAt.Valid {
		p.DeletedAt.Time = deletedAt.Time
		p.DeletedAt.Valid = true
	}
	return &p, nil
}

func (s *SQLiteStore) CreateProject(ctx context.Context, project *models.Project) error {
	if project.ID.IsZero() {
		project.ID = models.NewProjectID()
	}
	touch(&project.CreatedAt, &project.UpdatedAt)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO projects (id, organization_id, name, description, status, priority, owner_id, start_date, end_date, budget, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		project.ID, project.OrganizationID, project.Name, project.Description,
		project.Status, project.Priority, project.OwnerID,
		nullTime(project.StartDate), nullTime(project.EndDate), nullFloat(project.Budget),
		project.Metadata, project.CreatedAt, project.UpdatedAt)
	return err
}

func (s *SQLiteStore) GetProject(ctx context.Context, id models.ProjectID) (*models.Project, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = ? AND deleted_at IS NULL`, id)
	project, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return project, err
}

func (s *SQLiteStore) UpdateProject(ctx context.Context, project *models.Project) error {
	project.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`UPDATE projects SET organization_id = ?, name = ?, description = ?, status = ?, priority = ?, owner_id = ?, start_date = ?, end_date = ?, budget = ?, metadata = ?, updated_at = ?
		 WHERE id = ? AND deleted_at IS NULL`,
		project.OrganizationID, project.Name, project.Description, project.Status,
		project.Priority, project.OwnerID, nullTime(project.StartDate),
		nullTime(project.EndDate), nullFloat(project.Budget), project.Metadata,
		project.UpdatedAt, project.ID)
	return err
}

func (s *SQLiteStore) DeleteProject(ctx context.Context, id models.ProjectID) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE projects SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`,
		time.Now().UTC(), id)
	return err
}

func (s *SQLiteStore) ListProjects(ctx context.Context, orgID models.OrganizationID) ([]*models.Project, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE organization_id = ? AND deleted_at IS NULL ORDER BY created_at`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	projects := []*models.Project{}
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, project)
	}
	return projects, rows.Err()
}

// Task operations

const taskColumns = `id, project_id, title, description, status, priority, assignee_id, due_date, completed_at, estimated_hours, actual_hours, tags, metadata, created_at, updated_at, deleted_at`

func scanTask(row interface{ Scan(...any) error }) (*models.Task, error) {
	var t models.Task
	var assigneeID sql.NullString
	var dueDate, completedAt, deletedAt sql.NullTime
	var estimated, actual sql.NullFloat64
	err := row.Scan(&t.ID, &t.ProjectID, &t.Title, &t.Description, &t.Status,
		&t.Priority, &assigneeID, &dueDate, &completedAt, &estimated, &actual,
		&t.Tags, &t.Metadata, &t.CreatedAt, &t.UpdatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}
	if assigneeID.Valid {
		id, err := models.ParseUserID(assigneeID.String)
		if err != nil {
			return nil, fmt.Errorf("invalid assignee_id %q: %w", assigneeID.String, err)
		}
		t.AssigneeID = &id
	}
	t.DueDate = timePtr(dueDate)
	t.CompletedAt = timePtr(completedAt)
	t.EstimatedHours = floatPtr(estimated)
	t.ActualHours = floatPtr(actual)
	if deletedAt.Valid {
		t.DeletedAt.Time = deletedAt.Time
		t.DeletedAt.Valid = true
	}
	return &t, nil
}

func assigneeValue(id *models.UserID) any {
	if id == nil {
		return nil
	}
	return *id
}

func (s *SQLiteStore) CreateTask(ctx context.Context, task *models.Task) error {
	if task.ID.IsZero() {
		task.ID = models.NewTaskID()
	}
	touch(&task.CreatedAt, &task.UpdatedAt)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (id, project_id, title, description, status, priority, assignee_id, due_date, completed_at, estimated_hours, actual_hours, tags, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.ProjectID, task.Title, task.Description, task.Status,
		task.Priority, assigneeValue(task.AssigneeID), nullTime(task.DueDate),
		nullTime(task.CompletedAt), nullFloat(task.EstimatedHours),
		nullFloat(task.ActualHours), task.Tags, task.Metadata,
		task.CreatedAt, task.UpdatedAt)
	return err
}

func (s *SQLiteStore) GetTask(ctx context.Context, id models.TaskID) (*models.Task, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ? AND deleted_at IS NULL`, id)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return task, err
}

func (s *SQLiteStore) UpdateTask(ctx context.Context, task *models.Task) error {
	task.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET project_id = ?, title = ?, description = ?, status = ?, priority = ?, assignee_id = ?, due_date = ?, completed_at = ?, estimated_hours = ?, actual_hours = ?, tags = ?, metadata = ?, updated_at = ?
		 WHERE id = ? AND deleted_at IS NULL`,
		task.ProjectID, task.Title, task.Description, task.Status, task.Priority,
		assigneeValue(task.AssigneeID), nullTime(task.DueDate), nullTime(task.CompletedAt),
		nullFloat(task.EstimatedHours), nullFloat(task.ActualHours),
		task.Tags, task.Metadata, task.UpdatedAt, task.ID)
	return err
}

func (s *SQLiteStore) DeleteTask(ctx context.Context, id models.TaskID) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`,
		time.Now().UTC(), id)
	return err
}

func (s *SQLiteStore) ListTasks(ctx context.Context, projectID models.ProjectID) ([]*models.Task, error) {
	return s.listTasks(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE project_id = ? AND deleted_at IS NULL ORDER BY created_at`, projectID)
}

func (s *SQLiteStore) ListTasksByAssignee(ctx context.Context, assigneeID models.UserID) ([]*models.Task, error) {
	return s.listTasks(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE assignee_id = ? AND deleted_at IS NULL ORDER BY created_at`, assigneeID)
}

func (s *SQLiteStore) listTasks(ctx context.Context, query string, arg any) ([]*models.Task, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []*models.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// File metadata operations

const fileColumns = `id, organization_id, name, content_type, size, checksum, storage_key, uploaded_by, created_at, updated_at, deleted_at`

func scanFile(row interface{ Scan(...any) error }) (*models.FileObject, error) {
	var f models.FileObject
	var deletedAt sql.NullTime
	err := row.Scan(&f.ID, &f.OrganizationID, &f.Name, &f.ContentType, &f.Size,
		&f.Checksum, &f.StorageKey, &f.UploadedBy, &f.CreatedAt, &f.UpdatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}
	if deletedAt.Valid {
		f.DeletedAt.Time = deletedAt.Time
		f.DeletedAt.Valid = true
	}
	return &f, nil
}

func (s *SQLiteStore) CreateFile(ctx context.Context, file *models.FileObject) error {
	if file.ID.IsZero() {
		file.ID = models.NewFileID()
	}
	touch(&file.CreatedAt, &file.UpdatedAt)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO files (id, organization_id, name, content_type, size, checksum, storage_key, uploaded_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		file.ID, file.OrganizationID, file.Name, file.ContentType, file.Size,
		file.Checksum, file.StorageKey, file.UploadedBy, file.CreatedAt, file.UpdatedAt)
	return err
}

func (s *SQLiteStore) GetFile(ctx context.Context, id models.FileID) (*models.FileObject, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+fileColumns+` FROM files WHERE id = ? AND deleted_at IS NULL`, id)
	file, err := scanFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return file, err
}

func (s *SQLiteStore) UpdateFile(ctx context.Context, file *models.FileObject) error {
	file.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`UPDATE files SET organization_id = ?, name = ?, content_type = ?, size = ?, checksum = ?, storage_key = ?, uploaded_by = ?, updated_at = ?
		 WHERE id = ? AND deleted_at IS NULL`,
		file.OrganizationID, file.Name, file.ContentType, file.Size, file.Checksum,
		file.StorageKey, file.UploadedBy, file.UpdatedAt, file.ID)
	return err
}

func (s *SQLiteStore) DeleteFile(ctx context.Context, id models.FileID) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE files SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`,
		time.Now().UTC(), id)
	return err
}

func (s *SQLiteStore) ListFiles(ctx context.Context, orgID models.OrganizationID) ([]*models.FileObject, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+fileColumns+` FROM files WHERE organization_id = ? AND deleted_at IS NULL ORDER BY created_at`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	files := []*models.FileObject{}
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, rows.Err()
}

// Audit operations

func (s *SQLiteStore) RecordAudit(ctx context.Context, entry *models.AuditEntry) error {
	if entry.ID.IsZero() {
		entry.ID = models.NewAuditEntryID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_entries (id, actor_id, action, entity_type, entity_id, detail, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.ActorID, entry.Action, entry.EntityType, entry.EntityID,
		entry.Detail, entry.CreatedAt)
	return err
}

func (s *SQLiteStore) ListAudit(ctx context.Context, since time.Time, limit int) ([]*models.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, actor_id, action, entity_type, entity_id, detail, created_at
		 FROM audit_entries WHERE created_at >= ? ORDER BY created_at DESC LIMIT ?`,
		since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []*models.AuditEntry{}
	for rows.Next() {
		var e models.AuditEntry
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.EntityType,
			&e.EntityID, &e.Detail, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// Metric operations

func (s *SQLiteStore) RecordMetric(ctx context.Context, metric *models.Metric) error {
	if metric.Timestamp.IsZero() {
		metric.Timestamp = time.Now().UTC()
	}
	if metric.CreatedAt.IsZero() {
		metric.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO metrics (name, value, kind, dimensions, timestamp, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		metric.Name, metric.Value, metric.Kind, metric.Dimensions,
		metric.Timestamp, metric.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err == nil {
		metric.ID = uint64(id)
	}
	return nil
}

func (s *SQLiteStore) ListMetrics(ctx context.Context, name string, since time.Time, limit int) ([]*models.Metric, error) {
	query := `SELECT id, name, value, kind, dimensions, timestamp, created_at
		 FROM metrics WHERE timestamp >= ?`
	args := []any{since}
	if name != "" {
		query += ` AND name = ?`
		args = append(args, name)
	}
	query += ` ORDER BY timestamp DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	metrics := []*models.Metric{}
	for rows.Next() {
		var m models.Metric
		if err := rows.Scan(&m.ID, &m.Name, &m.Value, &m.Kind, &m.Dimensions,
			&m.Timestamp, &m.CreatedAt); err != nil {
			return nil, err
		}
		metrics = append(metrics, &m)
	}
	return metrics, rows.Err()
}

// Timestamp-based change detection

func (s *SQLiteStore) listModifiedIDs(ctx context.Context, table string, since, until time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM `+table+` WHERE deleted_at IS NULL
		 AND ((created_at >= ? AND created_at < ?) OR (updated_at >= ? AND updated_at < ?))`,
		since, until, since, until)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLiteStore) ListModifiedUserIDs(ctx context.Context, since, until time.Time) ([]models.UserID, error) {
	raw, err := s.listModifiedIDs(ctx, "users", since, until)
	if err != nil {
		return nil, err
	}
	ids := make([]models.UserID, 0, len(raw))
	for _, r := range raw {
		id, err := models.ParseUserID(r)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *SQLiteStore) ListModifiedOrganizationIDs(ctx context.Context, since, until time.Time) ([]models.OrganizationID, error) {
	raw, err := s.listModifiedIDs(ctx, "organizations", since, until)
	if err != nil {
		return nil, err
	}
	ids := make([]models.OrganizationID, 0, len(raw))
	for _, r := range raw {
		id, err := models.ParseOrganizationID(r)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *SQLiteStore) ListModifiedProjectIDs(ctx context.Context, since, until time.Time) ([]models.ProjectID, error) {
	raw, err := s.listModifiedIDs(ctx, "projects", since, until)
	if err != nil {
		return nil, err
	}
	ids := make([]models.ProjectID, 0, len(raw))
	for _, r := range raw {
		id, err := models.ParseProjectID(r)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *SQLiteStore) ListModifiedTaskIDs(ctx context.Context, since, until time.Time) ([]models.TaskID, error) {
	raw, err := s.listModifiedIDs(ctx, "tasks", since, until)
	if err != nil {
		return nil, err
	}
	ids := make([]models.TaskID, 0, len(raw))
	for _, r := range raw {
		id, err := models.ParseTaskID(r)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *SQLiteStore) ListModifiedFileIDs(ctx context.Context, since, until time.Time) ([]models.FileID, error) {
	raw, err := s.listModifiedIDs(ctx, "files", since, until)
	if err != nil {
		return nil, err
	}
	ids := make([]models.FileID, 0, len(raw))
	for _, r := range raw {
		id, err := models.ParseFileID(r)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
