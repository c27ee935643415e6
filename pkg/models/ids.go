package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

// UserID is a typed ID for users
type UserID struct {
	uuid uuid.UUID
}

func NewUserID() UserID {
	return UserID{uuid: uuid.New()}
}

func NewUserIDFromUUID(id uuid.UUID) UserID {
	return UserID{uuid: id}
}

func ParseUserID(s string) (UserID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return UserID{}, fmt.Errorf("invalid user ID: %w", err)
	}
	return UserID{uuid: id}, nil
}

func (u UserID) UUID() uuid.UUID { return u.uuid }
func (u UserID) String() string  { return u.uuid.String() }
func (u UserID) IsZero() bool    { return u.uuid == uuid.Nil }

func (u UserID) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.uuid.String())
}

func (u *UserID) UnmarshalJSON(data []byte) error {
	return unmarshalJSONID(data, &u.uuid)
}

func (u UserID) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(u.uuid.String())
}

func (u *UserID) UnmarshalCBOR(data []byte) error {
	return unmarshalCBORID(data, &u.uuid)
}

func (u UserID) Value() (driver.Value, error) {
	if u.IsZero() {
		return nil, nil
	}
	return u.uuid.String(), nil
}

func (u *UserID) Scan(value any) error {
	return scanUUID(value, &u.uuid)
}

func (UserID) GormDataType() string { return "uuid" }

// APIKeyID is a typed ID for API keys
type APIKeyID struct {
	uuid uuid.UUID
}

func NewAPIKeyID() APIKeyID {
	return APIKeyID{uuid: uuid.New()}
}

func ParseAPIKeyID(s string) (APIKeyID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return APIKeyID{}, fmt.Errorf("invalid API key ID: %w", err)
	}
	return APIKeyID{uuid: id}, nil
}

func (k APIKeyID) UUID() uuid.UUID { return k.uuid }
func (k APIKeyID) String() string  { return k.uuid.String() }
func (k APIKeyID) IsZero() bool    { return k.uuid == uuid.Nil }

func (k APIKeyID) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.uuid.String())
}

func (k *APIKeyID) UnmarshalJSON(data []byte) error {
	return unmarshalJSONID(data, &k.uuid)
}

func (k APIKeyID) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(k.uuid.String())
}

func (k *APIKeyID) UnmarshalCBOR(data []byte) error {
	return unmarshalCBORID(data, &k.uuid)
}

func (k APIKeyID) Value() (driver.Value, error) {
	if k.IsZero() {
		return nil, nil
	}
	return k.uuid.String(), nil
}

func (k *APIKeyID) Scan(value any) error {
	return scanUUID(value, &k.uuid)
}

func (APIKeyID) GormDataType() string { return "uuid" }

// OrganizationID is a typed ID for organizations
type OrganizationID struct {
	uuid uuid.UUID
}

func NewOrganizationID() OrganizationID {
	return OrganizationID{uuid: uuid.New()}
}

func NewOrganizationIDFromUUID(id uuid.UUID) OrganizationID {
	return OrganizationID{uuid: id}
}

func ParseOrganizationID(s string) (OrganizationID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return OrganizationID{}, fmt.Errorf("invalid organization ID: %w", err)
	}
	return OrganizationID{uuid: id}, nil
}

func (o OrganizationID) UUID() uuid.UUID { return o.uuid }
func (o OrganizationID) String() string  { return o.uuid.String() }
func (o OrganizationID) IsZero() bool    { return o.uuid == uuid.Nil }

func (o OrganizationID) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.uuid.String())
}

func (o *OrganizationID) UnmarshalJSON(data []byte) error {
	return unmarshalJSONID(data, &o.uuid)
}

func (o OrganizationID) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(o.uuid.String())
}

func (o *OrganizationID) UnmarshalCBOR(data []byte) error {
	return unmarshalCBORID(data, &o.uuid)
}

func (o OrganizationID) Value() (driver.Value, error) {
	if o.IsZero() {
		return nil, nil
	}
	return o.uuid.String(), nil
}

func (o *OrganizationID) Scan(value any) error {
	return scanUUID(value, &o.uuid)
}

func (OrganizationID) GormDataType() string { return "uuid" }

// ProjectID is a typed ID for projects
type ProjectID struct {
	uuid uuid.UUID
}

func NewProjectID() ProjectID {
	return ProjectID{uuid: uuid.New()}
}

func NewProjectIDFromUUID(id uuid.UUID) ProjectID {
	return ProjectID{uuid: id}
}

func ParseProjectID(s string) (ProjectID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return ProjectID{}, fmt.Errorf("invalid project ID: %w", err)
	}
	return ProjectID{uuid: id}, nil
}

func (p ProjectID) UUID() uuid.UUID { return p.uuid }
func (p ProjectID) String() string  { return p.uuid.String() }
func (p ProjectID) IsZero() bool    { return p.uuid == uuid.Nil }

func (p ProjectID) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.uuid.String())
}

func (p *ProjectID) UnmarshalJSON(data []byte) error {
	return unmarshalJSONID(data, &p.uuid)
}

func (p ProjectID) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(p.uuid.String())
}

func (p *ProjectID) UnmarshalCBOR(data []byte) error {
	return unmarshalCBORID(data, &p.uuid)
}

func (p ProjectID) Value() (driver.Value, error) {
	if p.IsZero() {
		return nil, nil
	}
	return p.uuid.String(), nil
}

func (p *ProjectID) Scan(value any) error {
	return scanUUID(value, &p.uuid)
}

func (ProjectID) GormDataType() string { return "uuid" }

// TaskID is a typed ID for tasks
type TaskID struct {
	uuid uuid.UUID
}

func NewTaskID() TaskID {
	return TaskID{uuid: uuid.New()}
}

func NewTaskIDFromUUID(id uuid.UUID) TaskID {
	return TaskID{uuid: id}
}

func ParseTaskID(s string) (TaskID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return TaskID{}, fmt.Errorf("invalid task ID: %w", err)
	}
	return TaskID{uuid: id}, nil
}

func (t TaskID) UUID() uuid.UUID { return t.uuid }
func (t TaskID) String() string  { return t.uuid.String() }
func (t TaskID) IsZero() bool    { return t.uuid == uuid.Nil }

func (t TaskID) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.uuid.String())
}

func (t *TaskID) UnmarshalJSON(data []byte) error {
	return unmarshalJSONID(data, &t.uuid)
}

func (t TaskID) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(t.uuid.String())
}

func (t *TaskID) UnmarshalCBOR(data []byte) error {
	return unmarshalCBORID(data, &t.uuid)
}

func (t TaskID) Value() (driver.Value, error) {
	if t.IsZero() {
		return nil, nil
	}
	return t.uuid.String(), nil
}

func (t *TaskID) Scan(value any) error {
	return scanUUID(value, &t.uuid)
}

func (TaskID) GormDataType() string { return "uuid" }

// FileID is a typed ID for file objects
type FileID struct {
	uuid uuid.UUID
}

func NewFileID() FileID {
	return FileID{uuid: uuid.New()}
}

func ParseFileID(s string) (FileID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return FileID{}, fmt.Errorf("invalid file ID: %w", err)
	}
	return FileID{uuid: id}, nil
}

func (f FileID) UUID() uuid.UUID { return f.uuid }
func (f FileID) String() string  { return f.uuid.String() }
func (f FileID) IsZero() bool    { return f.uuid == uuid.Nil }

func (f FileID) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.uuid.String())
}

func (f *FileID) UnmarshalJSON(data []byte) error {
	return unmarshalJSONID(data, &f.uuid)
}

func (f FileID) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(f.uuid.String())
}

func (f *FileID) UnmarshalCBOR(data []byte) error {
	return unmarshalCBORID(data, &f.uuid)
}

func (f FileID) Value() (driver.Value, error) {
	if f.IsZero() {
		return nil, nil
	}
	return f.uuid.String(), nil
}

func (f *FileID) Scan(value any) error {
	return scanUUID(value, &f.uuid)
}

func (FileID) GormDataType() string { return "uuid" }

// AuditEntryID is a typed ID for audit entries
type AuditEntryID struct {
	uuid uuid.UUID
}

func NewAuditEntryID() AuditEntryID {
	return AuditEntryID{uuid: uuid.New()}
}

func ParseAuditEntryID(s string) (AuditEntryID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return AuditEntryID{}, fmt.Errorf("invalid audit entry ID: %w", err)
	}
	return AuditEntryID{uuid: id}, nil
}

func (a AuditEntryID) UUID() uuid.UUID { return a.uuid }
func (a AuditEntryID) String() string  { return a.uuid.String() }
func (a AuditEntryID) IsZero() bool    { return a.uuid == uuid.Nil }

func (a AuditEntryID) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.uuid.String())
}

func (a *AuditEntryID) UnmarshalJSON(data []byte) error {
	return unmarshalJSONID(data, &a.uuid)
}

func (a AuditEntryID) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(a.uuid.String())
}

func (a *AuditEntryID) UnmarshalCBOR(data []byte) error {
	return unmarshalCBORID(data, &a.uuid)
}

func (a AuditEntryID) Value() (driver.Value, error) {
	if a.IsZero() {
		return nil, nil
	}
	return a.uuid.String(), nil
}

func (a *AuditEntryID) Scan(value any) error {
	return scanUUID(value, &a.uuid)
}

func (AuditEntryID) GormDataType() string { return "uuid" }

// Helper functions

// scanUUID is a helper for implementing sql.Scanner for database drivers
// that return UUIDs as strings or bytes.
func scanUUID(value any, target *uuid.UUID) error {
	if value == nil {
		*target = uuid.Nil
		return nil
	}

	switch v := value.(type) {
	case string:
		id, err := uuid.Parse(v)
		if err != nil {
			return err
		}
		*target = id
	case []byte:
		id, err := uuid.ParseBytes(v)
		if err != nil {
			return err
		}
		*target = id
	default:
		return fmt.Errorf("cannot scan type %T into UUID", value)
	}
	return nil
}

func unmarshalJSONID(data []byte, target *uuid.UUID) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return err
	}
	*target = id
	return nil
}

func unmarshalCBORID(data []byte, target *uuid.UUID) error {
	var s string
	if err := cbor.Unmarshal(data, &s); err != nil {
		return err
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return err
	}
	*target = id
	return nil
}
