package sync

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validTopology = `
stores:
  - name: main
    driver: postgres
    dsn: postgres://localhost/platform
    change_logging: true
  - name: edge
    driver: sqlite
    dsn: /var/lib/platform/edge.db
pairs:
  - name: main-to-edge
    source: main
    target: edge
    direction: source_to_target
    interval: 30s
`

func TestParseTopology(t *testing.T) {
	topo, err := ParseTopology([]byte(validTopology))
	require.NoError(t, err)

	require.Len(t, topo.Stores, 2)
	assert.Equal(t, "main", topo.Stores[0].Name)
	assert.True(t, topo.Stores[0].ChangeLogging)
	assert.Equal(t, "sqlite", topo.Stores[1].Driver)

	require.Len(t, topo.Pairs, 1)
	pair := topo.Pairs[0].ToSyncPair()
	assert.Equal(t, SourceToTarget, pair.Direction)
	assert.Equal(t, 30*time.Second, pair.Interval)
}

func TestLoadTopology(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validTopology), 0o644))

	topo, err := LoadTopology(path)
	require.NoError(t, err)
	assert.Len(t, topo.Pairs, 1)

	_, err = LoadTopology(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestTopologyValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "no stores",
			yaml: "pairs:\n  - name: p\n    source: a\n    target: b\n    interval: 5s\n",
			want: "no stores",
		},
		{
			name: "unknown driver",
			yaml: "stores:\n  - name: a\n    driver: oracle\n    dsn: x\n",
			want: "unknown driver",
		},
		{
			name: "missing dsn",
			yaml: "stores:\n  - name: a\n    driver: sqlite\n",
			want: "dsn is required",
		},
		{
			name: "duplicate store",
			yaml: "stores:\n  - name: a\n    driver: sqlite\n    dsn: x\n  - name: a\n    driver: sqlite\n    dsn: y\n",
			want: "duplicate store",
		},
		{
			name: "change logging on sqlite",
			yaml: "stores:\n  - name: a\n    driver: sqlite\n    dsn: x\n    change_logging: true\n",
			want: "change logging requires the postgres driver",
		},
		{
			name: "no pairs",
			yaml: "stores:\n  - name: a\n    driver: sqlite\n    dsn: x\n",
			want: "no sync pairs",
		},
		{
			name: "undeclared source",
			yaml: "stores:\n  - name: a\n    driver: sqlite\n    dsn: x\n  - name: b\n    driver: sqlite\n    dsn: y\npairs:\n  - name: p\n    source: ghost\n    target: b\n    interval: 5s\n",
			want: "undeclared source",
		},
		{
			name: "invalid yaml",
			yaml: "stores: [",
			want: "failed to parse",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTopology([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
