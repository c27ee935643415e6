package platform

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Garrettc123/enterprise-unified-platform/pkg/models"
)

// uploadFile posts a multipart upload and returns the metadata record.
func uploadFile(t *testing.T, env *testEnv, orgID models.OrganizationID, name string, content []byte) *models.FileObject {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	resp, err := http.Post(
		env.server.URL+"/api/organizations/"+orgID.String()+"/files",
		writer.FormDataContentType(), &body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var file models.FileObject
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&file))
	return &file
}

func TestFileUploadDownload(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	owner := env.signUp(t, "files@example.com")
	org, err := env.client.CreateOrganization(ctx, &models.Organization{
		Name: "Acme", Slug: "acme", OwnerID: owner.ID,
	})
	require.NoError(t, err)

	content := []byte("quarterly report contents")
	file := uploadFile(t, env, org.ID, "report.txt", content)

	assert.Equal(t, "report.txt", file.Name)
	assert.Equal(t, org.ID, file.OrganizationID)
	wantSum := sha256.Sum256(content)
	assert.Equal(t, hex.EncodeToString(wantSum[:]), file.Checksum)

	// Metadata endpoint
	resp, err := http.Get(env.server.URL + "/api/files/" + file.ID.String())
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Content round-trips with the checksum header for client verification.
	resp, err = http.Get(env.server.URL + "/api/files/" + file.ID.String() + "/content")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, file.Checksum, resp.Header.Get("X-Checksum-Sha256"))

	downloaded, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, content, downloaded)

	files, err := env.store.ListFiles(ctx, org.ID)
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestFileDelete(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	owner := env.signUp(t, "del@example.com")
	org, err := env.client.CreateOrganization(ctx, &models.Organization{
		Name: "Acme", Slug: "acme", OwnerID: owner.ID,
	})
	require.NoError(t, err)

	file := uploadFile(t, env, org.ID, "scratch.txt", []byte("temp"))

	req, err := http.NewRequest(http.MethodDelete, env.server.URL+"/api/files/"+file.ID.String(), nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Metadata and blob content are both gone.
	gone, err := env.store.GetFile(ctx, file.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
	_, err = env.blobs.Get(ctx, file.StorageKey)
	assert.Error(t, err)
}

func TestFileUploadRejectedInReadOnlyMode(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	owner := env.signUp(t, "ro@example.com")
	org, err := env.client.CreateOrganization(ctx, &models.Organization{
		Name: "Acme", Slug: "acme", OwnerID: owner.ID,
	})
	require.NoError(t, err)

	env.app.SetReadOnly(true)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "blocked.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("nope"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	resp, err := http.Post(
		env.server.URL+"/api/organizations/"+org.ID.String()+"/files",
		writer.FormDataContentType(), &body)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestFileUploadMissingField(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	owner := env.signUp(t, "bad@example.com")
	org, err := env.client.CreateOrganization(ctx, &models.Organization{
		Name: "Acme", Slug: "acme", OwnerID: owner.ID,
	})
	require.NoError(t, err)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	require.NoError(t, writer.WriteField("note", "no file here"))
	require.NoError(t, writer.Close())

	resp, err := http.Post(
		env.server.URL+"/api/organizations/"+org.ID.String()+"/files",
		writer.FormDataContentType(), &body)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
