package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Garrettc123/enterprise-unified-platform/pkg/models"
	"github.com/Garrettc123/enterprise-unified-platform/pkg/store/storetest"
)

func newTestOrchestrator(t *testing.T) (*Orchestrator, *storetest.MemoryStore, *storetest.MemoryStore) {
	t.Helper()
	o := NewOrchestrator(zerolog.Nop())
	source := storetest.NewMemoryStore()
	target := storetest.NewMemoryStore()
	require.NoError(t, o.RegisterStore("source", source))
	require.NoError(t, o.RegisterStore("target", target))
	return o, source, target
}

func TestRegisterStoreRejectsDuplicates(t *testing.T) {
	o := NewOrchestrator(zerolog.Nop())
	require.NoError(t, o.RegisterStore("main", storetest.NewMemoryStore()))
	assert.Error(t, o.RegisterStore("main", storetest.NewMemoryStore()))
	assert.Error(t, o.RegisterStore("", storetest.NewMemoryStore()))
}

func TestAddPairValidation(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)

	assert.Error(t, o.AddPair(SyncPair{Name: "p", Source: "ghost", Target: "target", Interval: time.Second}))
	assert.Error(t, o.AddPair(SyncPair{Name: "p", Source: "source", Target: "ghost", Interval: time.Second}))
	assert.Error(t, o.AddPair(SyncPair{Name: "", Source: "source", Target: "target", Interval: time.Second}))

	require.NoError(t, o.AddPair(SyncPair{Name: "p", Source: "source", Target: "target", Interval: time.Second}))
	assert.Error(t, o.AddPair(SyncPair{Name: "p", Source: "source", Target: "target", Interval: time.Second}))

	pairs := o.Pairs()
	require.Len(t, pairs, 1)
	assert.Equal(t, SourceToTarget, pairs[0].Direction, "direction defaults when omitted")
}

func TestRunOnceCopiesRecords(t *testing.T) {
	o, source, target := newTestOrchestrator(t)
	ctx := context.Background()

	user := &models.User{Email: "a@example.com", Username: "a"}
	require.NoError(t, source.CreateUser(ctx, user))

	require.NoError(t, o.AddPair(SyncPair{
		Name: "fwd", Source: "source", Target: "target", Interval: time.Minute,
	}))

	reports, err := o.RunOnce(ctx)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.True(t, reports[0].Succeeded())
	assert.Equal(t, 1, reports[0].RecordsSent)

	copied, err := target.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.NotNil(t, copied)
}

func TestRunOnceTargetToSource(t *testing.T) {
	o, source, target := newTestOrchestrator(t)
	ctx := context.Background()

	user := &models.User{Email: "b@example.com", Username: "b"}
	require.NoError(t, target.CreateUser(ctx, user))

	require.NoError(t, o.AddPair(SyncPair{
		Name: "rev", Source: "source", Target: "target",
		Direction: TargetToSource, Interval: time.Minute,
	}))

	reports, err := o.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, reports[0].RecordsSent)

	copied, err := source.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.NotNil(t, copied)
}

func TestRunOnceBidirectional(t *testing.T) {
	o, source, target := newTestOrchestrator(t)
	ctx := context.Background()

	left := &models.User{Email: "left@example.com", Username: "left"}
	require.NoError(t, source.CreateUser(ctx, left))
	right := &models.User{Email: "right@example.com", Username: "right"}
	require.NoError(t, target.CreateUser(ctx, right))

	require.NoError(t, o.AddPair(SyncPair{
		Name: "both", Source: "source", Target: "target",
		Direction: Bidirectional, Interval: time.Minute,
	}))

	_, err := o.RunOnce(ctx)
	require.NoError(t, err)

	inTarget, err := target.GetUser(ctx, left.ID)
	require.NoError(t, err)
	assert.NotNil(t, inTarget)
	inSource, err := source.GetUser(ctx, right.ID)
	require.NoError(t, err)
	assert.NotNil(t, inSource)
}

func TestBidirectionalPairReachesSteadyState(t *testing.T) {
	o, source, _ := newTestOrchestrator(t)
	ctx := context.Background()

	user := &models.User{Email: "steady@example.com", Username: "steady"}
	require.NoError(t, source.CreateUser(ctx, user))

	require.NoError(t, o.AddPair(SyncPair{
		Name: "both", Source: "source", Target: "target",
		Direction: Bidirectional, Interval: time.Minute,
	}))

	reports, err := o.RunOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, reports[0].RecordsSent)

	// With no further writes, every later cycle must move nothing; the copy
	// written by the first cycle is still inside the overlap window, so a
	// non-zero count here means the pair is echoing its own writes.
	for i := 0; i < 4; i++ {
		reports, err = o.RunOnce(ctx)
		require.NoError(t, err)
		require.Zero(t, reports[0].RecordsSent, "cycle %d moved records without new writes", i+2)
	}
}

func TestRunOnceReportsFailure(t *testing.T) {
	o, source, _ := newTestOrchestrator(t)
	source.FailWith = errors.New("connection refused")

	require.NoError(t, o.AddPair(SyncPair{
		Name: "fwd", Source: "source", Target: "target", Interval: time.Minute,
	}))

	reports, err := o.RunOnce(context.Background())
	require.Error(t, err)
	require.Len(t, reports, 1)
	assert.False(t, reports[0].Succeeded())
	assert.Contains(t, reports[0].Error, "connection refused")

	history := o.Reports("fwd")
	require.Len(t, history, 1)
	assert.Equal(t, reports[0].Error, history[0].Error)
}

func TestFailedWindowIsRetriedWhole(t *testing.T) {
	o, source, target := newTestOrchestrator(t)
	ctx := context.Background()

	user := &models.User{Email: "c@example.com", Username: "c"}
	require.NoError(t, source.CreateUser(ctx, user))

	require.NoError(t, o.AddPair(SyncPair{
		Name: "fwd", Source: "source", Target: "target", Interval: time.Minute,
	}))

	source.FailWith = errors.New("down")
	_, err := o.RunOnce(ctx)
	require.Error(t, err)

	// Cursor did not advance, so the next cycle re-covers the window.
	source.FailWith = nil
	reports, err := o.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, reports[0].RecordsSent)

	copied, err := target.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.NotNil(t, copied)
}

func TestRunRequiresPairs(t *testing.T) {
	o := NewOrchestrator(zerolog.Nop())
	assert.Error(t, o.Run(context.Background()))
}

func TestRunSyncsOnSchedule(t *testing.T) {
	o, source, target := newTestOrchestrator(t)
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	user := &models.User{Email: "sched@example.com", Username: "sched"}
	require.NoError(t, source.CreateUser(ctx, user))

	require.NoError(t, o.AddPair(SyncPair{
		Name: "fwd", Source: "source", Target: "target", Interval: 20 * time.Millisecond,
	}))

	require.NoError(t, o.Run(ctx), "context cancellation is a clean stop")

	copied, err := target.GetUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.NotNil(t, copied)
	assert.NotEmpty(t, o.Reports("fwd"))
}

func TestRunStopsWhenRetriesExhausted(t *testing.T) {
	o, source, _ := newTestOrchestrator(t)
	o.NewRetryer = func() Retryer { return NewFixedDelayRetryer(time.Millisecond, 2) }
	source.FailWith = errors.New("permanently down")

	require.NoError(t, o.AddPair(SyncPair{
		Name: "fwd", Source: "source", Target: "target", Interval: 10 * time.Millisecond,
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := o.Run(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retries exhausted")
}
