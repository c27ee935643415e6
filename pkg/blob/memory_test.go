package blob

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	content := "hello blob"
	require.NoError(t, s.Put(ctx, "org/file", strings.NewReader(content), int64(len(content)), "text/plain"))

	info, err := s.Stat(ctx, "org/file")
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), info.Size)
	assert.Equal(t, "text/plain", info.ContentType)

	r, err := s.Get(ctx, "org/file")
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, content, string(data))

	require.NoError(t, s.Remove(ctx, "org/file"))
	_, err = s.Get(ctx, "org/file")
	assert.Error(t, err)
	_, err = s.Stat(ctx, "org/file")
	assert.Error(t, err)
}
