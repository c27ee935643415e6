package sync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Garrettc123/enterprise-unified-platform/pkg/store"
	"github.com/Garrettc123/enterprise-unified-platform/pkg/store/replica"
)

// reportHistory is how many recent reports are retained per pair.
const reportHistory = 50

// cursorOverlap is subtracted from each cycle's lower bound so records
// written with slightly skewed clocks are not missed between cycles.
const cursorOverlap = 5 * time.Second

// Orchestrator runs a set of sync pairs over a registry of named stores.
//
// Each pair gets its own goroutine with its own ticker and its own retry
// state, so a slow or failing pair never delays the others. Reports from
// every cycle feed a bounded per-pair history that the health monitor and
// the status endpoint read.
type Orchestrator struct {
	mu      sync.RWMutex
	stores  map[string]store.Store
	pairs   map[string]SyncPair
	cursors map[string]time.Time
	reports map[string][]SyncReport

	// NewRetryer builds the per-pair retry strategy. Defaults to
	// exponential backoff; tests substitute a fixed-delay retryer.
	NewRetryer func() Retryer

	logger zerolog.Logger
}

// NewOrchestrator creates an empty orchestrator.
func NewOrchestrator(logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		stores:     map[string]store.Store{},
		pairs:      map[string]SyncPair{},
		cursors:    map[string]time.Time{},
		reports:    map[string][]SyncReport{},
		NewRetryer: func() Retryer { return NewExponentialBackoffRetryer() },
		logger:     logger,
	}
}

// RegisterStore adds a named store to the registry. Registering the same
// name twice is an error; pairs reference stores by name and a silent
// replacement would redirect running syncs.
func (o *Orchestrator) RegisterStore(name string, s store.Store) error {
	if name == "" {
		return fmt.Errorf("store name must not be empty")
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, exists := o.stores[name]; exists {
		return fmt.Errorf("store %q already registered", name)
	}
	o.stores[name] = s
	return nil
}

// AddPair validates a pair and adds it to the schedule. Both endpoint stores
// must already be registered.
func (o *Orchestrator) AddPair(pair SyncPair) error {
	if err := pair.Validate(); err != nil {
		return err
	}
	if pair.Direction == "" {
		pair.Direction = SourceToTarget
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.stores[pair.Source]; !ok {
		return fmt.Errorf("sync pair %s: unknown source store %q", pair.Name, pair.Source)
	}
	if _, ok := o.stores[pair.Target]; !ok {
		return fmt.Errorf("sync pair %s: unknown target store %q", pair.Name, pair.Target)
	}
	if _, exists := o.pairs[pair.Name]; exists {
		return fmt.Errorf("sync pair %q already exists", pair.Name)
	}
	o.pairs[pair.Name] = pair
	return nil
}

// Pairs returns the configured pairs.
func (o *Orchestrator) Pairs() []SyncPair {
	o.mu.RLock()
	defer o.mu.RUnlock()
	pairs := make([]SyncPair, 0, len(o.pairs))
	for _, p := range o.pairs {
		pairs = append(pairs, p)
	}
	return pairs
}

// Reports returns the retained report history for a pair, newest last.
func (o *Orchestrator) Reports(pair string) []SyncReport {
	o.mu.RLock()
	defer o.mu.RUnlock()
	history := o.reports[pair]
	out := make([]SyncReport, len(history))
	copy(out, history)
	return out
}

// Run executes all configured pairs until the context is canceled. Each pair
// runs on its own ticker; the call returns when the context ends or when a
// pair exhausts its retry budget.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.mu.RLock()
	pairs := make([]SyncPair, 0, len(o.pairs))
	for _, p := range o.pairs {
		pairs = append(pairs, p)
	}
	o.mu.RUnlock()

	if len(pairs) == 0 {
		return fmt.Errorf("no sync pairs configured")
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, pair := range pairs {
		pair := pair
		g.Go(func() error {
			return o.runPair(ctx, pair)
		})
	}
	if err := g.Wait(); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

// RunOnce executes a single sync cycle for every configured pair and returns
// the reports. Used by the CLI one-shot sync command.
func (o *Orchestrator) RunOnce(ctx context.Context) ([]SyncReport, error) {
	o.mu.RLock()
	pairs := make([]SyncPair, 0, len(o.pairs))
	for _, p := range o.pairs {
		pairs = append(pairs, p)
	}
	o.mu.RUnlock()

	reports := make([]SyncReport, 0, len(pairs))
	var firstErr error
	for _, pair := range pairs {
		report := o.syncPair(ctx, pair)
		reports = append(reports, report)
		if !report.Succeeded() && firstErr == nil {
			firstErr = fmt.Errorf("pair %s: %s", report.Pair, report.Error)
		}
	}
	return reports, firstErr
}

// runPair drives one pair's schedule: tick, sync, and on failure back off
// according to the retry strategy before resuming the schedule.
func (o *Orchestrator) runPair(ctx context.Context, pair SyncPair) error {
	retryer := o.NewRetryer()
	attempt := 0

	ticker := time.NewTicker(pair.Interval)
	defer ticker.Stop()

	logger := o.logger.With().Str("pair", pair.Name).Logger()
	logger.Info().
		Str("source", pair.Source).
		Str("target", pair.Target).
		Str("direction", string(pair.Direction)).
		Dur("interval", pair.Interval).
		Msg("sync pair scheduled")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		report := o.syncPair(ctx, pair)
		if report.Succeeded() {
			retryer.Reset()
			attempt = 0
			logger.Debug().
				Int("records", report.RecordsSent).
				Dur("duration", report.Duration).
				Msg("sync cycle complete")
			continue
		}

		delay, retry := retryer.NextDelay(attempt, fmt.Errorf("%s", report.Error))
		attempt++
		if !retry {
			return fmt.Errorf("pair %s: retries exhausted after %d attempts: %s",
				pair.Name, attempt, report.Error)
		}
		logger.Warn().
			Str("error", report.Error).
			Dur("backoff", delay).
			Int("attempt", attempt).
			Msg("sync cycle failed, backing off")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// syncPair performs one cycle for a pair and records the report.
func (o *Orchestrator) syncPair(ctx context.Context, pair SyncPair) SyncReport {
	o.mu.Lock()
	source := o.stores[pair.Source]
	target := o.stores[pair.Target]
	since, ok := o.cursors[pair.Name]
	if !ok {
		since = time.Now().UTC().Add(-pair.Interval)
	}
	o.mu.Unlock()

	started := time.Now().UTC()
	until := started
	windowStart := since.Add(-cursorOverlap)

	report := SyncReport{Pair: pair.Name, StartedAt: started}

	var total int
	var err error
	switch pair.Direction {
	case TargetToSource:
		total, err = replica.CatchUp(ctx, target, source, windowStart, until)
	case Bidirectional:
		total, err = replica.CatchUp(ctx, source, target, windowStart, until)
		if err == nil {
			var back int
			back, err = replica.CatchUp(ctx, target, source, windowStart, until)
			total += back
		}
	default:
		total, err = replica.CatchUp(ctx, source, target, windowStart, until)
	}

	report.Duration = time.Since(started)
	report.RecordsSent = total
	if err != nil {
		report.Error = err.Error()
	}

	o.mu.Lock()
	if err == nil {
		// Cursor only advances on success; a failed window is retried
		// whole next cycle.
		o.cursors[pair.Name] = until
	}
	history := append(o.reports[pair.Name], report)
	if len(history) > reportHistory {
		history = history[len(history)-reportHistory:]
	}
	o.reports[pair.Name] = history
	o.mu.Unlock()

	return report
}
