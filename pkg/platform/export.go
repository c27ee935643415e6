package platform

import (
	"net/http"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/gorilla/mux"

	"github.com/Garrettc123/enterprise-unified-platform/pkg/models"
)

// OrganizationSnapshot is the CBOR export document: the organization with
// its full project, task, and file tree at one point in time.
type OrganizationSnapshot struct {
	ExportedAt   time.Time                          `cbor:"exported_at"`
	Organization *models.Organization               `cbor:"organization"`
	Projects     []*models.Project                  `cbor:"projects"`
	Tasks        map[string][]*models.Task          `cbor:"tasks"` // keyed by project ID
	Files        []*models.FileObject               `cbor:"files"`
}

// handleExportOrganization writes a CBOR snapshot of an organization.
//
// CBOR keeps the export compact and preserves binary-safe values; the cbor
// struct tags on the models exclude internal fields (password hashes, soft
// delete markers) from the document.
func (a *App) handleExportOrganization(w http.ResponseWriter, r *http.Request) {
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

	snapshot := OrganizationSnapshot{
		ExportedAt:   time.Now().UTC(),
		Organization: org,
		Tasks:        map[string][]*models.Task{},
	}

	snapshot.Projects, err = a.store.ListProjects(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	for _, project := range snapshot.Projects {
		tasks, err := a.store.ListTasks(r.Context(), project.ID)
		if err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		snapshot.Tasks[project.ID.String()] = tasks
	}
	snapshot.Files, err = a.store.ListFiles(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	data, err := cbor.Marshal(snapshot)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	a.audit(r.Context(), a.actorID(r), "organization.export", "organization", id.String(), nil)
	w.Header().Set("Content-Type", "application/cbor")
	w.Header().Set("Content-Disposition", "attachment; filename=\""+org.Slug+".cbor\"")
	_, _ = w.Write(data)
}
