package platform

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Garrettc123/enterprise-unified-platform/pkg/store/replica"
)

func TestParseRequiresSubcommand(t *testing.T) {
	_, _, err := Parse([]string{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "subcommand required")
}

func TestParseUnknownCommand(t *testing.T) {
	_, _, err := Parse([]string{"deploy"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")
}

func TestParseRunDefaults(t *testing.T) {
	t.Setenv("S3_BUCKET", "")
	cmd, config, err := Parse([]string{"run"})
	require.NoError(t, err)
	assert.IsType(t, &RunCommand{}, cmd)
	assert.Equal(t, "8080", config.ServerPort)
	assert.Equal(t, replica.ModeSingle, config.MigrationMode)
	assert.False(t, config.PostgresOnly)
	assert.False(t, config.SQLiteOnly)
	assert.False(t, config.ReadOnly)
	assert.Equal(t, "platform-files", config.Blob.Bucket)
}

func TestParseFlags(t *testing.T) {
	cmd, config, err := Parse([]string{"-port", "9090", "-mode", "switching", "-change-logging", "run"})
	require.NoError(t, err)
	assert.IsType(t, &RunCommand{}, cmd)
	assert.Equal(t, "9090", config.ServerPort)
	assert.Equal(t, replica.ModeSwitching, config.MigrationMode)
	assert.True(t, config.ChangeLogging)
}

func TestParseInvalidMode(t *testing.T) {
	_, _, err := Parse([]string{"-mode", "sideways", "run"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid migration mode")
}

func TestParseSingleStoreFlagsForceSingleMode(t *testing.T) {
	_, config, err := Parse([]string{"-mode", "switching", "-sqlite-only", "run"})
	require.NoError(t, err)
	assert.True(t, config.SQLiteOnly)
	assert.Equal(t, replica.ModeSingle, config.MigrationMode, "single-store deployments have nothing to switch to")

	_, config, err = Parse([]string{"-postgres-only", "run"})
	require.NoError(t, err)
	assert.True(t, config.PostgresOnly)
	assert.False(t, config.SQLiteOnly)
}

func TestParseSyncCommand(t *testing.T) {
	cmd, _, err := Parse([]string{"-sync-direction", "reverse", "-sync-since", "2026-01-01T00:00:00Z", "sync"})
	require.NoError(t, err)
	sc, ok := cmd.(*SyncCommand)
	require.True(t, ok)
	assert.Equal(t, "reverse", sc.Direction)
	assert.Equal(t, "2026-01-01T00:00:00Z", sc.Since)

	_, _, err = Parse([]string{"-sync-direction", "sideways", "sync"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid sync direction")
}

func TestParseOrchestrateCommand(t *testing.T) {
	cmd, config, err := Parse([]string{"-topology", "sync.yaml", "-once", "orchestrate"})
	require.NoError(t, err)
	oc, ok := cmd.(*OrchestrateCommand)
	require.True(t, ok)
	assert.True(t, oc.Once)
	assert.Equal(t, "sync.yaml", config.TopologyPath)

	_, _, err = Parse([]string{"orchestrate"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires -topology")
}

func TestParsePostgresPortFlag(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "")
	_, config, err := Parse([]string{"-postgres-port", "5438", "run"})
	require.NoError(t, err)
	assert.Contains(t, config.PostgresDSN, ":5438/")
}

func TestParseTime(t *testing.T) {
	fallback := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	got, err := ParseTime("", fallback)
	require.NoError(t, err)
	assert.Equal(t, fallback, got)

	got, err = ParseTime("2026-06-15T12:00:00Z", fallback)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC), got)

	_, err = ParseTime("yesterday", fallback)
	assert.Error(t, err)
}
