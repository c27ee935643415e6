// Package client provides a typed HTTP client for the platform API, plus the
// request/response types shared between the client and the server handlers.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Garrettc123/enterprise-unified-platform/pkg/models"
)

// SignUpRequest registers a new account.
type SignUpRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	FullName string `json:"full_name,omitempty"`
	Password string `json:"password"`
}

// SignInRequest authenticates an existing account.
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse carries the session token and the authenticated user.
type AuthResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// CreateAPIKeyRequest issues a new API key for the authenticated user.
type CreateAPIKeyRequest struct {
	Name      string     `json:"name"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// CreateAPIKeyResponse returns the plaintext key exactly once.
type CreateAPIKeyResponse struct {
	Key    string         `json:"key"`
	APIKey *models.APIKey `json:"api_key"`
}

// ErrorResponse is the JSON error envelope for non-2xx responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Client is an HTTP client for the platform API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New creates a client for the given base URL, e.g. "http://localhost:8080".
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// SetToken sets the bearer token used on subsequent requests.
func (c *Client) SetToken(token string) {
	c.token = token
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp ErrorResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&errResp); decodeErr == nil && errResp.Error != "" {
			return fmt.Errorf("%s %s: %s (status %d)", method, path, errResp.Error, resp.StatusCode)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// Auth operations

func (c *Client) SignUp(ctx context.Context, req SignUpRequest) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/signup", req, &resp); err != nil {
		return nil, err
	}
	c.token = resp.Token
	return &resp, nil
}

func (c *Client) SignIn(ctx context.Context, req SignInRequest) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/signin", req, &resp); err != nil {
		return nil, err
	}
	c.token = resp.Token
	return &resp, nil
}

func (c *Client) SignOut(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/auth/signout", nil, nil)
}

func (c *Client) CurrentUser(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) CreateAPIKey(ctx context.Context, req CreateAPIKeyRequest) (*CreateAPIKeyResponse, error) {
	var resp CreateAPIKeyResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/keys", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ListAPIKeys(ctx context.Context) ([]*models.APIKey, error) {
	var keys []*models.APIKey
	if err := c.do(ctx, http.MethodGet, "/api/auth/keys", nil, &keys); err != nil {
		return nil, err
	}
	return keys, nil
}

func (c *Client) DeleteAPIKey(ctx context.Context, id models.APIKeyID) error {
	return c.do(ctx, http.MethodDelete, "/api/auth/keys/"+id.String(), nil, nil)
}

// Organization operations

func (c *Client) CreateOrganization(ctx context.Context, org *models.Organization) (*models.Organization, error) {
	var out models.Organization
	if err := c.do(ctx, http.MethodPost, "/api/organizations", org, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetOrganization(ctx context.Context, id models.OrganizationID) (*models.Organization, error) {
	var out models.Organization
	if err := c.do(ctx, http.MethodGet, "/api/organizations/"+id.String(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateOrganization(ctx context.Context, org *models.Organization) (*models.Organization, error) {
	var out models.Organization
	if err := c.do(ctx, http.MethodPut, "/api/organizations/"+org.ID.String(), org, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteOrganization(ctx context.Context, id models.OrganizationID) error {
	return c.do(ctx, http.MethodDelete, "/api/organizations/"+id.String(), nil, nil)
}

func (c *Client) ListOrganizations(ctx context.Context, ownerID models.UserID) ([]*models.Organization, error) {
	var out []*models.Organization
	if err := c.do(ctx, http.MethodGet, "/api/users/"+ownerID.String()+"/organizations", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Project operations

func (c *Client) CreateProject(ctx context.Context, project *models.Project) (*models.Project, error) {
	var out models.Project
	if err := c.do(ctx, http.MethodPost, "/api/projects", project, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetProject(ctx context.Context, id models.ProjectID) (*models.Project, error) {
	var out models.Project
	if err := c.do(ctx, http.MethodGet, "/api/projects/"+id.String(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateProject(ctx context.Context, project *models.Project) (*models.Project, error) {
	var out models.Project
	if err := c.do(ctx, http.MethodPut, "/api/projects/"+project.ID.String(), project, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteProject(ctx context.Context, id models.ProjectID) error {
	return c.do(ctx, http.MethodDelete, "/api/projects/"+id.String(), nil, nil)
}

func (c *Client) ListProjects(ctx context.Context, orgID models.OrganizationID) ([]*models.Project, error) {
	var out []*models.Project
	if err := c.do(ctx, http.MethodGet, "/api/organizations/"+orgID.String()+"/projects", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Task operations

func (c *Client) CreateTask(ctx context.Context, task *models.Task) (*models.Task, error) {
	var out models.Task
	if err := c.do(ctx, http.MethodPost, "/api/tasks", task, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetTask(ctx context.Context, id models.TaskID) (*models.Task, error) {
	var out models.Task
	if err := c.do(ctx, http.MethodGet, "/api/tasks/"+id.String(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateTask(ctx context.Context, task *models.Task) (*models.Task, error) {
	var out models.Task
	if err := c.do(ctx, http.MethodPut, "/api/tasks/"+task.ID.String(), task, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteTask(ctx context.Context, id models.TaskID) error {
	return c.do(ctx, http.MethodDelete, "/api/tasks/"+id.String(), nil, nil)
}

func (c *Client) ListTasks(ctx context.Context, projectID models.ProjectID) ([]*models.Task, error) {
	var out []*models.Task
	if err := c.do(ctx, http.MethodGet, "/api/projects/"+projectID.String()+"/tasks", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Metric operations

func (c *Client) RecordMetric(ctx context.Context, metric *models.Metric) error {
	return c.do(ctx, http.MethodPost, "/api/metrics", metric, nil)
}

func (c *Client) ListMetrics(ctx context.Context, name string) ([]*models.Metric, error) {
	path := "/api/metrics"
	if name != "" {
		path += "?name=" + name
	}
	var out []*models.Metric
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Audit operations

func (c *Client) ListAudit(ctx context.Context) ([]*models.AuditEntry, error) {
	var out []*models.AuditEntry
	if err := c.do(ctx, http.MethodGet, "/api/audit", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Health reports whether the server answers its health endpoint.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/health", nil, nil)
}
