package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Garrettc123/enterprise-unified-platform/pkg/store/storetest"
)

func TestHealthBeforeAnyCycle(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)
	require.NoError(t, o.AddPair(SyncPair{
		Name: "fwd", Source: "source", Target: "target", Interval: time.Minute,
	}))

	health := o.Health()
	require.Len(t, health.Pairs, 1)
	assert.Equal(t, StatusUnknown, health.Pairs[0].Status)
	// A pair that never completed a cycle keeps the topology from reporting
	// healthy.
	assert.Equal(t, StatusDegraded, health.Status)
}

func TestHealthAfterSuccessfulCycles(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)
	require.NoError(t, o.AddPair(SyncPair{
		Name: "fwd", Source: "source", Target: "target", Interval: time.Minute,
	}))

	for i := 0; i < 5; i++ {
		_, err := o.RunOnce(context.Background())
		require.NoError(t, err)
	}

	health := o.Health()
	assert.Equal(t, StatusHealthy, health.Status)
	require.Len(t, health.Pairs, 1)
	ph := health.Pairs[0]
	assert.Equal(t, StatusHealthy, ph.Status)
	assert.Equal(t, 1.0, ph.SuccessRate)
	assert.Equal(t, 5, ph.Cycles)
	assert.Zero(t, ph.ErrorCount)
	assert.False(t, ph.LastSyncedAt.IsZero())
}

func TestHealthClassification(t *testing.T) {
	o, source, _ := newTestOrchestrator(t)
	require.NoError(t, o.AddPair(SyncPair{
		Name: "fwd", Source: "source", Target: "target", Interval: time.Minute,
	}))
	ctx := context.Background()

	runCycles := func(n int, fail bool) {
		if fail {
			source.FailWith = errors.New("flaky")
		} else {
			source.FailWith = nil
		}
		for i := 0; i < n; i++ {
			_, _ = o.RunOnce(ctx)
		}
	}

	// 3 failures out of 10 cycles: 70% success, degraded.
	runCycles(7, false)
	runCycles(3, true)

	health := o.Health()
	ph := health.Pairs[0]
	assert.Equal(t, StatusDegraded, ph.Status)
	assert.Equal(t, StatusDegraded, health.Status)
	assert.Equal(t, 3, ph.ErrorCount)
	assert.Contains(t, ph.LastError, "flaky")

	// Mostly failures: unhealthy, and the worst pair dominates the topology.
	runCycles(30, true)
	health = o.Health()
	assert.Equal(t, StatusUnhealthy, health.Pairs[0].Status)
	assert.Equal(t, StatusUnhealthy, health.Status)
}

func TestReportHistoryIsBounded(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)
	require.NoError(t, o.AddPair(SyncPair{
		Name: "fwd", Source: "source", Target: "target", Interval: time.Minute,
	}))

	for i := 0; i < reportHistory+10; i++ {
		_, err := o.RunOnce(context.Background())
		require.NoError(t, err)
	}

	assert.Len(t, o.Reports("fwd"), reportHistory)
	assert.Equal(t, reportHistory, o.Health().Pairs[0].Cycles)
}

func TestHealthWorstPairWins(t *testing.T) {
	o := NewOrchestrator(zerolog.Nop())
	registerPair(t, o, "good")
	broken := registerPair(t, o, "bad")

	broken.FailWith = errors.New("down")
	for i := 0; i < 4; i++ {
		_, _ = o.RunOnce(context.Background())
	}

	health := o.Health()
	assert.Equal(t, StatusUnhealthy, health.Status)

	statuses := map[string]HealthStatus{}
	for _, ph := range health.Pairs {
		statuses[ph.Pair] = ph.Status
	}
	assert.Equal(t, StatusHealthy, statuses["good"])
	assert.Equal(t, StatusUnhealthy, statuses["bad"])
}

// registerPair registers a source/target pair under the given name and
// returns the source store for error injection.
func registerPair(t *testing.T, o *Orchestrator, name string) *storetest.MemoryStore {
	t.Helper()
	source := storetest.NewMemoryStore()
	target := storetest.NewMemoryStore()
	require.NoError(t, o.RegisterStore(name+"-source", source))
	require.NoError(t, o.RegisterStore(name+"-target", target))
	require.NoError(t, o.AddPair(SyncPair{
		Name: name, Source: name + "-source", Target: name + "-target", Interval: time.Minute,
	}))
	return source
}
