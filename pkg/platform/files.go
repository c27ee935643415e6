package platform

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Garrettc123/enterprise-unified-platform/pkg/models"
)

// maxUploadSize bounds multipart uploads at 64 MiB.
const maxUploadSize = 64 << 20

// handleUploadFile accepts a multipart upload, stores the content in the
// blob store under a fresh storage key, and records the metadata. The
// SHA-256 checksum is computed while streaming so clients can verify
// downloads.
func (a *App) handleUploadFile(w http.ResponseWriter, r *http.Request) {
	orgID, err := models.ParseOrganizationID(mux.Vars(r)["orgId"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid organization id")
		return
	}

	if a.IsReadOnly() {
		respondError(w, http.StatusServiceUnavailable, "application is in read-only mode")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart upload")
		return
	}
	part, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer part.Close()

	fileID := models.NewFileID()
	storageKey := fmt.Sprintf("%s/%s", orgID, fileID)

	hasher := sha256.New()
	if err := a.blobs.Put(r.Context(), storageKey, io.TeeReader(part, hasher), header.Size, header.Header.Get("Content-Type")); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	file := &models.FileObject{
		ID:             fileID,
		OrganizationID: orgID,
		Name:           header.Filename,
		ContentType:    header.Header.Get("Content-Type"),
		Size:           header.Size,
		Checksum:       hex.EncodeToString(hasher.Sum(nil)),
		StorageKey:     storageKey,
		UploadedBy:     a.actorID(r),
	}
	if err := a.store.CreateFile(r.Context(), file); err != nil {
		// Don't leave orphaned content behind when the metadata write
		// fails.
		_ = a.blobs.Remove(r.Context(), storageKey)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	a.audit(r.Context(), file.UploadedBy, "file.upload", "file", fileID.String(), models.JSONMap{
		"name": file.Name,
		"size": file.Size,
	})
	a.hub.Publish(Event{Type: "file.uploaded", EntityID: fileID.String()})
	respondJSON(w, http.StatusCreated, file)
}

// handleGetFile returns file metadata.
func (a *App) handleGetFile(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseFileID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid file id")
		return
	}
	file, err := a.store.GetFile(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if file == nil {
		respondError(w, http.StatusNotFound, "file not found")
		return
	}
	respondJSON(w, http.StatusOK, file)
}

// handleDownloadFile streams the file content from the blob store.
func (a *App) handleDownloadFile(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseFileID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid file id")
		return
	}
	file, err := a.store.GetFile(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if file == nil {
		respondError(w, http.StatusNotFound, "file not found")
		return
	}

	content, err := a.blobs.Get(r.Context(), file.StorageKey)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer content.Close()

	if file.ContentType != "" {
		w.Header().Set("Content-Type", file.ContentType)
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
	w.Header().Set("X-Checksum-Sha256", file.Checksum)
	if _, err := io.Copy(w, content); err != nil {
		a.logger.Debug().Err(err).Str("file_id", id.String()).Msg("file download interrupted")
	}
}

// handleDeleteFile removes the metadata record and the blob content.
func (a *App) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseFileID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid file id")
		return
	}
	file, err := a.store.GetFile(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if file == nil {
		respondError(w, http.StatusNotFound, "file not found")
		return
	}

	if err := a.store.DeleteFile(r.Context(), id); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	// Metadata is the source of truth; blob removal is best effort and
	// orphans are reclaimed by bucket lifecycle policies.
	if err := a.blobs.Remove(r.Context(), file.StorageKey); err != nil {
		a.logger.Warn().Err(err).Str("key", file.StorageKey).Msg("failed to remove blob content")
	}

	a.audit(r.Context(), a.actorID(r), "file.delete", "file", id.String(), nil)
	a.hub.Publish(Event{Type: "file.deleted", EntityID: id.String()})
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleListFiles lists an organization's files.
func (a *App) handleListFiles(w http.ResponseWriter, r *http.Request) {
	orgID, err := models.ParseOrganizationID(mux.Vars(r)["orgId"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid organization id")
		return
	}
	files, err := a.store.ListFiles(r.Context(), orgID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, files)
}
