package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// ProjectStatus represents the lifecycle state of a project
type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "active"
	ProjectCompleted ProjectStatus = "completed"
	ProjectArchived  ProjectStatus = "archived"
)

// TaskStatus represents the lifecycle state of a task
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskBlocked    TaskStatus = "blocked"
)

// Priority represents the urgency of a project or task
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// MetricKind classifies an analytics sample
type MetricKind string

const (
	MetricCounter   MetricKind = "counter"
	MetricGauge     MetricKind = "gauge"
	MetricHistogram MetricKind = "histogram"
)

// JSONMap is a flexible key-value map for dynamic metadata fields.
// It maps to JSONB in PostgreSQL and to a serialized TEXT column in SQLite,
// so the same model works against both store backends.
type JSONMap map[string]any

// Value implements the driver.Valuer interface for database storage
func (j JSONMap) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements the sql.Scanner interface for database retrieval
func (j *JSONMap) Scan(value any) error {
	if value == nil {
		*j = make(map[string]any)
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		bytes = []byte(value.(string))
	}
	return json.Unmarshal(bytes, j)
}

// StringSlice stores a list of strings as a JSON array column.
type StringSlice []string

func (s StringSlice) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

func (s *StringSlice) Scan(value any) error {
	if value == nil {
		*s = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		bytes = []byte(value.(string))
	}
	return json.Unmarshal(bytes, s)
}

// User represents an account with authentication credentials.
// PasswordHash holds a bcrypt hash and is never serialized to JSON.
type User struct {
	ID           UserID         `gorm:"type:uuid;primary_key" json:"id" cbor:"id"`
	Email        string         `gorm:"unique;not null" json:"email" cbor:"email"`
	Username     string         `gorm:"unique;not null" json:"username" cbor:"username"`
	FullName     string         `json:"full_name,omitempty" cbor:"full_name"`
	PasswordHash string         `gorm:"not null" json:"-" cbor:"-"`
	IsActive     bool           `gorm:"default:true" json:"is_active" cbor:"is_active"`
	IsSuperuser  bool           `gorm:"default:false" json:"is_superuser" cbor:"is_superuser"`
	CreatedAt    time.Time      `json:"created_at" cbor:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at" cbor:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty" cbor:"-"`
}

// BeforeCreate hook to generate ID if not set
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID.IsZero() {
		u.ID = NewUserID()
	}
	return nil
}

// APIKey grants programmatic access on behalf of a user. Only the SHA-256
// hash of the key material is stored; the plaintext is shown once at issue
// time.
type APIKey struct {
	ID         APIKeyID   `gorm:"type:uuid;primary_key" json:"id"`
	KeyHash    string     `gorm:"unique;not null" json:"-"`
	Name       string     `gorm:"not null" json:"name"`
	UserID     UserID     `gorm:"type:uuid;not null;index" json:"user_id"`
	User       *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	IsActive   bool       `gorm:"default:true" json:"is_active"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
}

// BeforeCreate hook to generate ID if not set
func (k *APIKey) BeforeCreate(tx *gorm.DB) error {
	if k.ID.IsZero() {
		k.ID = NewAPIKeyID()
	}
	return nil
}

// Organization is the top-level tenant container owning projects and files.
type Organization struct {
	ID        OrganizationID `gorm:"type:uuid;primary_key" json:"id" cbor:"id"`
	Name      string         `gorm:"not null" json:"name" cbor:"name"`
	Slug      string         `gorm:"unique;not null" json:"slug" cbor:"slug"`
	OwnerID   UserID         `gorm:"type:uuid;not null" json:"owner_id" cbor:"owner_id"`
	Owner     *User          `gorm:"foreignKey:OwnerID" json:"owner,omitempty" cbor:"-"`
	Settings  JSONMap        `gorm:"type:jsonb" json:"settings,omitempty" cbor:"settings,omitempty"`
	CreatedAt time.Time      `json:"created_at" cbor:"created_at"`
	UpdatedAt time.Time      `json:"updated_at" cbor:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty" cbor:"-"`
}

// BeforeCreate hook to generate ID if not set
func (o *Organization) BeforeCreate(tx *gorm.DB) error {
	if o.ID.IsZero() {
		o.ID = NewOrganizationID()
	}
	return nil
}

// Project groups tasks under an organization.
type Project struct {
	ID             ProjectID      `gorm:"type:uuid;primary_key" json:"id" cbor:"id"`
	OrganizationID OrganizationID `gorm:"type:uuid;not null;index" json:"organization_id" cbor:"organization_id"`
	Organization   *Organization  `gorm:"foreignKey:OrganizationID" json:"organization,omitempty" cbor:"-"`
	Name           string         `gorm:"not null;index" json:"name" cbor:"name"`
	Description    string         `gorm:"type:text" json:"description,omitempty" cbor:"description,omitempty"`
	Status         ProjectStatus  `gorm:"not null;default:active" json:"status" cbor:"status"`
	Priority       Priority       `gorm:"not null;default:medium" json:"priority" cbor:"priority"`
	OwnerID        UserID         `gorm:"type:uuid;not null" json:"owner_id" cbor:"owner_id"`
	Owner          *User          `gorm:"foreignKey:OwnerID" json:"owner,omitempty" cbor:"-"`
	StartDate      *time.Time     `json:"start_date,omitempty" cbor:"start_date,omitempty"`
	EndDate        *time.Time     `json:"end_date,omitempty" cbor:"end_date,omitempty"`
	Budget         *float64       `json:"budget,omitempty" cbor:"budget,omitempty"`
	Metadata       JSONMap        `gorm:"type:jsonb" json:"metadata,omitempty" cbor:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at" cbor:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at" cbor:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty" cbor:"-"`
}

// BeforeCreate hook to generate ID if not set
func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID.IsZero() {
		p.ID = NewProjectID()
	}
	return nil
}

// Task is a unit of work within a project.
type Task struct {
	ID             TaskID         `gorm:"type:uuid;primary_key" json:"id" cbor:"id"`
	ProjectID      ProjectID      `gorm:"type:uuid;not null;index" json:"project_id" cbor:"project_id"`
	Project        *Project       `gorm:"foreignKey:ProjectID" json:"project,omitempty" cbor:"-"`
	Title          string         `gorm:"not null;index" json:"title" cbor:"title"`
	Description    string         `gorm:"type:text" json:"description,omitempty" cbor:"description,omitempty"`
	Status         TaskStatus     `gorm:"not null;default:pending" json:"status" cbor:"status"`
	Priority       Priority       `gorm:"not null;default:medium" json:"priority" cbor:"priority"`
	AssigneeID     *UserID        `gorm:"type:uuid" json:"assignee_id,omitempty" cbor:"assignee_id,omitempty"`
	Assignee       *User          `gorm:"foreignKey:AssigneeID" json:"assignee,omitempty" cbor:"-"`
	DueDate        *time.Time     `json:"due_date,omitempty" cbor:"due_date,omitempty"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty" cbor:"completed_at,omitempty"`
	EstimatedHours *float64       `json:"estimated_hours,omitempty" cbor:"estimated_hours,omitempty"`
	ActualHours    *float64       `json:"actual_hours,omitempty" cbor:"actual_hours,omitempty"`
	Tags           StringSlice    `gorm:"type:jsonb" json:"tags,omitempty" cbor:"tags,omitempty"`
	Metadata       JSONMap        `gorm:"type:jsonb" json:"metadata,omitempty" cbor:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at" cbor:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at" cbor:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty" cbor:"-"`
}

// BeforeCreate hook to generate ID if not set
func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID.IsZero() {
		t.ID = NewTaskID()
	}
	return nil
}

// FileObject is the metadata record for an uploaded file. The content lives
// in the blob store under StorageKey; Checksum is the hex SHA-256 of the
// content, computed at upload time.
type FileObject struct {
	ID             FileID         `gorm:"type:uuid;primary_key" json:"id" cbor:"id"`
	OrganizationID OrganizationID `gorm:"type:uuid;not null;index" json:"organization_id" cbor:"organization_id"`
	Name           string         `gorm:"not null" json:"name" cbor:"name"`
	ContentType    string         `json:"content_type,omitempty" cbor:"content_type,omitempty"`
	Size           int64          `json:"size" cbor:"size"`
	Checksum       string         `json:"checksum" cbor:"checksum"`
	StorageKey     string         `gorm:"not null" json:"storage_key" cbor:"storage_key"`
	UploadedBy     UserID         `gorm:"type:uuid;not null" json:"uploaded_by" cbor:"uploaded_by"`
	CreatedAt      time.Time      `json:"created_at" cbor:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at" cbor:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty" cbor:"-"`
}

// BeforeCreate hook to generate ID if not set
func (f *FileObject) BeforeCreate(tx *gorm.DB) error {
	if f.ID.IsZero() {
		f.ID = NewFileID()
	}
	return nil
}

// AuditEntry records who did what to which entity. Append-only.
type AuditEntry struct {
	ID         AuditEntryID `gorm:"type:uuid;primary_key" json:"id"`
	ActorID    UserID       `gorm:"type:uuid;index" json:"actor_id"`
	Action     string       `gorm:"not null;index" json:"action"`
	EntityType string       `gorm:"not null" json:"entity_type"`
	EntityID   string       `gorm:"not null" json:"entity_id"`
	Detail     JSONMap      `gorm:"type:jsonb" json:"detail,omitempty"`
	CreatedAt  time.Time    `gorm:"index" json:"created_at"`
}

// BeforeCreate hook to generate ID if not set
func (a *AuditEntry) BeforeCreate(tx *gorm.DB) error {
	if a.ID.IsZero() {
		a.ID = NewAuditEntryID()
	}
	return nil
}

// Metric is a single analytics sample. Append-only.
type Metric struct {
	ID         uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name       string     `gorm:"not null;index" json:"name"`
	Value      float64    `gorm:"not null" json:"value"`
	Kind       MetricKind `gorm:"not null" json:"kind"`
	Dimensions JSONMap    `gorm:"type:jsonb" json:"dimensions,omitempty"`
	Timestamp  time.Time  `gorm:"not null;index" json:"timestamp"`
	CreatedAt  time.Time  `json:"created_at"`
}
