package platform

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/Garrettc123/enterprise-unified-platform/pkg/client"
	"github.com/Garrettc123/enterprise-unified-platform/pkg/models"
	"github.com/Garrettc123/enterprise-unified-platform/pkg/store/replica"
)

// replicaMode maps the wire value to a migration mode, returning "" for
// unknown values.
func replicaMode(s string) replica.MigrationMode {
	switch replica.MigrationMode(s) {
	case replica.ModeSingle, replica.ModeReadOnly, replica.ModeSwitching, replica.ModeReversed:
		return replica.MigrationMode(s)
	}
	return ""
}

// defaultListLimit bounds audit and metric listings when the caller does not
// pass an explicit limit.
const defaultListLimit = 100

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, client.ErrorResponse{Error: msg})
}

// handleHealth reports service health. Replicated deployments also surface
// the current migration mode so operators can verify routing at a glance.
func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status": "ok",
		"time":   time.Now().UTC(),
	}
	if a.replicated != nil {
		resp["migration_mode"] = a.replicated.GetMode()
	}
	respondJSON(w, http.StatusOK, resp)
}

// User handlers

func (a *App) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := a.store.ListUsers(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, users)
}

func (a *App) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseUserID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	user, err := a.store.GetUser(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if user == nil {
		respondError(w, http.StatusNotFound, "user not found")
		return
	}
	respondJSON(w, http.StatusOK, user)
}

func (a *App) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseUserID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	existing, err := a.store.GetUser(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if existing == nil {
		respondError(w, http.StatusNotFound, "user not found")
		return
	}

	var user models.User
	if err := json.NewDecoder(r.Body).Decode(&user); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	user.ID = id
	// Credentials only change through the auth endpoints.
	user.PasswordHash = existing.PasswordHash
	user.CreatedAt = existing.CreatedAt

	// Only an existing superuser can grant or revoke the flag.
	actor, err := a.currentUser(r)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if actor == nil || !actor.IsSuperuser {
		user.IsSuperuser = existing.IsSuperuser
	}

	if err := a.store.UpdateUser(r.Context(), &user); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	a.audit(r.Context(), a.actorID(r), "user.update", "user", id.String(), nil)
	a.hub.Publish(Event{Type: "user.updated", EntityID: id.String()})
	respondJSON(w, http.StatusOK, &user)
}

func (a *App) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseUserID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	if err := a.store.DeleteUser(r.Context(), id); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	a.audit(r.Context(), a.actorID(r), "user.delete", "user", id.String(), nil)
	a.hub.Publish(Event{Type: "user.deleted", EntityID: id.String()})
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Organization handlers

func (a *App) handleCreateOrganization(w http.ResponseWriter, r *http.Request) {
	var org models.Organization
	if err := json.NewDecoder(r.Body).Decode(&org); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if org.Name == "" || org.Slug == "" {
		respondError(w, http.StatusBadRequest, "name and slug are required")
		return
	}
	existing, err := a.store.GetOrganizationBySlug(r.Context(), org.Slug)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if existing != nil {
		respondError(w, http.StatusConflict, "slug already in use")
		return
	}
	if err := a.store.CreateOrganization(r.Context(), &org); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	a.audit(r.Context(), a.actorID(r), "organization.create", "organization", org.ID.String(), models.JSONMap{"slug": org.Slug})
	a.hub.Publish(Event{Type: "organization.created", EntityID: org.ID.String()})
	respondJSON(w, http.StatusCreated, &org)
}

func (a *App) handleGetOrganization(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseOrganizationID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid organization id")
		return
	}
	org, err := a.store.GetOrganization(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if org == nil {
		respondError(w, http.StatusNotFound, "organization not found")
		return
	}
	respondJSON(w, http.StatusOK, org)
}

func (a *App) handleGetOrganizationBySlug(w http.ResponseWriter, r *http.Request) {
	org, err := a.store.GetOrganizationBySlug(r.Context(), mux.Vars(r)["slug"])
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if org == nil {
		respondError(w, http.StatusNotFound, "organization not found")
		return
	}
	respondJSON(w, http.StatusOK, org)
}

func (a *App) handleUpdateOrganization(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseOrganizationID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid organization id")
		return
	}
	existing, err := a.store.GetOrganization(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if existing == nil {
		respondError(w, http.StatusNotFound, "organization not found")
		return
	}

	var org models.Organization
	if err := json.NewDecoder(r.Body).Decode(&org); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	org.ID = id
	org.CreatedAt = existing.CreatedAt

	if err := a.store.UpdateOrganization(r.Context(), &org); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	a.audit(r.Context(), a.actorID(r), "organization.update", "organization", id.String(), nil)
	a.hub.Publish(Event{Type: "organization.updated", EntityID: id.String()})
	respondJSON(w, http.StatusOK, &org)
}

func (a *App) handleDeleteOrganization(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseOrganizationID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid organization id")
		return
	}
	if err := a.store.DeleteOrganization(r.Context(), id); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	a.audit(r.Context(), a.actorID(r), "organization.delete", "organization", id.String(), nil)
	a.hub.Publish(Event{Type: "organization.deleted", EntityID: id.String()})
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (a *App) handleListOrganizations(w http.ResponseWriter, r *http.Request) {
	ownerID, err := models.ParseUserID(mux.Vars(r)["userId"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	orgs, err := a.store.ListOrganizations(r.Context(), ownerID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, orgs)
}

// Project handlers

func (a *App) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var project models.Project
	if err := json.NewDecoder(r.Body).Decode(&project); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if project.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	if project.OrganizationID.IsZero() {
		respondError(w, http.StatusBadRequest, "organization_id is required")
		return
	}
	if project.Status == "" {
		project.Status = models.ProjectActive
	}
	if project.Priority == "" {
		project.Priority = models.PriorityMedium
	}
	if err := a.store.CreateProject(r.Context(), &project); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	a.audit(r.Context(), a.actorID(r), "project.create", "project", project.ID.String(), nil)
	a.hub.Publish(Event{Type: "project.created", EntityID: project.ID.String()})
	respondJSON(w, http.StatusCreated, &project)
}

func (a *App) handleGetProject(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseProjectID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid project id")
		return
	}
	project, err := a.store.GetProject(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if project == nil {
		respondError(w, http.StatusNotFound, "project not found")
		return
	}
	respondJSON(w, http.StatusOK, project)
}

func (a *App) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseProjectID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid project id")
		return
	}
	existing, err := a.store.GetProject(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if existing == nil {
		respondError(w, http.StatusNotFound, "project not found")
		return
	}

	var project models.Project
	if err := json.NewDecoder(r.Body).Decode(&project); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	project.ID = id
	project.CreatedAt = existing.CreatedAt

	if err := a.store.UpdateProject(r.Context(), &project); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	a.audit(r.Context(), a.actorID(r), "project.update", "project", id.String(), nil)
	a.hub.Publish(Event{Type: "project.updated", EntityID: id.String()})
	respondJSON(w, http.StatusOK, &project)
}

func (a *App) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseProjectID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid project id")
		return
	}
	if err := a.store.DeleteProject(r.Context(), id); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	a.audit(r.Context(), a.actorID(r), "project.delete", "project", id.String(), nil)
	a.hub.Publish(Event{Type: "project.deleted", EntityID: id.String()})
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (a *App) handleListProjects(w http.ResponseWriter, r *http.Request) {
	orgID, err := models.ParseOrganizationID(mux.Vars(r)["orgId"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid organization id")
		return
	}
	projects, err := a.store.ListProjects(r.Context(), orgID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, projects)
}

// Task handlers

func (a *App) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var task models.Task
	if err := json.NewDecoder(r.Body).Decode(&task); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if task.Title == "" {
		respondError(w, http.StatusBadRequest, "title is required")
		return
	}
	if task.ProjectID.IsZero() {
		respondError(w, http.StatusBadRequest, "project_id is required")
		return
	}
	if task.Status == "" {
		task.Status = models.TaskPending
	}
	if task.Priority == "" {
		task.Priority = models.PriorityMedium
	}
	if err := a.store.CreateTask(r.Context(), &task); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	a.audit(r.Context(), a.actorID(r), "task.create", "task", task.ID.String(), nil)
	a.hub.Publish(Event{Type: "task.created", EntityID: task.ID.String()})
	respondJSON(w, http.StatusCreated, &task)
}

func (a *App) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseTaskID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid task id")
		return
	}
	task, err := a.store.GetTask(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if task == nil {
		respondError(w, http.StatusNotFound, "task not found")
		return
	}
	respondJSON(w, http.StatusOK, task)
}

func (a *App) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseTaskID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid task id")
		return
	}
	existing, err := a.store.GetTask(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if existing == nil {
		respondError(w, http.StatusNotFound, "task not found")
		return
	}

	var task models.Task
	if err := json.NewDecoder(r.Body).Decode(&task); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	task.ID = id
	task.CreatedAt = existing.CreatedAt

	// Completion timestamp tracks the status transition, not client input.
	if task.Status == models.TaskCompleted && existing.Status != models.TaskCompleted {
		now := time.Now().UTC()
		task.CompletedAt = &now
	} else if task.Status != models.TaskCompleted {
		task.CompletedAt = nil
	}

	if err := a.store.UpdateTask(r.Context(), &task); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	a.audit(r.Context(), a.actorID(r), "task.update", "task", id.String(), models.JSONMap{"status": string(task.Status)})
	a.hub.Publish(Event{Type: "task.updated", EntityID: id.String()})
	respondJSON(w, http.StatusOK, &task)
}

func (a *App) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseTaskID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid task id")
		return
	}
	if err := a.store.DeleteTask(r.Context(), id); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	a.audit(r.Context(), a.actorID(r), "task.delete", "task", id.String(), nil)
	a.hub.Publish(Event{Type: "task.deleted", EntityID: id.String()})
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (a *App) handleListTasks(w http.ResponseWriter, r *http.Request) {
	projectID, err := models.ParseProjectID(mux.Vars(r)["projectId"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid project id")
		return
	}
	tasks, err := a.store.ListTasks(r.Context(), projectID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, tasks)
}

func (a *App) handleListTasksByAssignee(w http.ResponseWriter, r *http.Request) {
	assigneeID, err := models.ParseUserID(mux.Vars(r)["userId"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	tasks, err := a.store.ListTasksByAssignee(r.Context(), assigneeID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, tasks)
}

// Audit and analytics handlers

func (a *App) handleListAudit(w http.ResponseWriter, r *http.Request) {
	since, limit := listWindow(r)
	entries, err := a.store.ListAudit(r.Context(), since, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

func (a *App) handleRecordMetric(w http.ResponseWriter, r *http.Request) {
	var metric models.Metric
	if err := json.NewDecoder(r.Body).Decode(&metric); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if metric.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	if metric.Kind == "" {
		metric.Kind = models.MetricGauge
	}
	if metric.Timestamp.IsZero() {
		metric.Timestamp = time.Now().UTC()
	}
	if err := a.store.RecordMetric(r.Context(), &metric); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, &metric)
}

func (a *App) handleListMetrics(w http.ResponseWriter, r *http.Request) {
	since, limit := listWindow(r)
	metrics, err := a.store.ListMetrics(r.Context(), r.URL.Query().Get("name"), since, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, metrics)
}

// listWindow extracts since/limit query parameters, defaulting to the last
// 24 hours and defaultListLimit entries.
func listWindow(r *http.Request) (time.Time, int) {
	since := time.Now().Add(-24 * time.Hour)
	if v := r.URL.Query().Get("since"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			since = t
		}
	}
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	return since, limit
}

// Administration handlers

func (a *App) handleGetMode(w http.ResponseWriter, r *http.Request) {
	if a.replicated == nil {
		respondError(w, http.StatusConflict, "not running in replicated mode")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"mode":     a.replicated.GetMode(),
		"strategy": a.replicated.GetSyncStrategy(),
	})
}

func (a *App) handleSetMode(w http.ResponseWriter, r *http.Request) {
	if a.replicated == nil {
		respondError(w, http.StatusConflict, "not running in replicated mode")
		return
	}
	var req struct {
		Mode string `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	mode := replicaMode(req.Mode)
	if mode == "" {
		respondError(w, http.StatusBadRequest, "invalid mode")
		return
	}
	if err := a.replicated.SetMode(mode); err != nil {
		respondError(w, http.StatusConflict, err.Error())
		return
	}
	// Read-only at the HTTP layer follows the store mode so both reject
	// writes consistently.
	a.SetReadOnly(mode == replica.ModeReadOnly)
	a.audit(r.Context(), a.actorID(r), "admin.set_mode", "system", "migration_mode", models.JSONMap{"mode": req.Mode})
	respondJSON(w, http.StatusOK, map[string]any{"mode": mode})
}

func (a *App) handleSyncStats(w http.ResponseWriter, r *http.Request) {
	if a.replicated == nil {
		respondError(w, http.StatusConflict, "not running in replicated mode")
		return
	}
	stats, err := a.replicated.GetSyncStats(r.Context())
	if err != nil {
		respondError(w, http.StatusConflict, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, stats)
}
