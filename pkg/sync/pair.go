// Package sync coordinates periodic data synchronization between named
// stores.
//
// The orchestrator holds a registry of store backends and a set of sync
// pairs. Each pair names a source, a target, a direction, and an interval;
// the orchestrator runs every pair on its own schedule in parallel, with
// exponential backoff on failures and an aggregated health view over the
// whole topology.
package sync

import (
	"fmt"
	"time"
)

// Direction controls which way data flows within a sync pair.
type Direction string

const (
	// SourceToTarget copies changes from the source store to the target.
	SourceToTarget Direction = "source_to_target"

	// TargetToSource copies changes from the target store back to the
	// source.
	TargetToSource Direction = "target_to_source"

	// Bidirectional copies changes both ways each cycle, source-to-target
	// first. Last-writer-wins per record; conflicting concurrent edits to
	// the same record resolve to whichever side synced later.
	Bidirectional Direction = "bidirectional"
)

// Valid reports whether the direction is one of the defined constants.
func (d Direction) Valid() bool {
	switch d {
	case SourceToTarget, TargetToSource, Bidirectional:
		return true
	}
	return false
}

// SyncPair describes one recurring synchronization between two registered
// stores.
type SyncPair struct {
	// Name identifies the pair in reports, logs, and health output.
	Name string

	// Source and Target are names of stores in the orchestrator registry.
	Source string
	Target string

	// Direction controls data flow; defaults to SourceToTarget when empty.
	Direction Direction

	// Interval is the time between sync cycles.
	Interval time.Duration
}

// Validate checks the pair definition before it enters the registry.
func (p SyncPair) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("sync pair must have a name")
	}
	if p.Source == "" || p.Target == "" {
		return fmt.Errorf("sync pair %s: source and target are required", p.Name)
	}
	if p.Source == p.Target {
		return fmt.Errorf("sync pair %s: source and target must differ", p.Name)
	}
	if p.Direction != "" && !p.Direction.Valid() {
		return fmt.Errorf("sync pair %s: invalid direction %q", p.Name, p.Direction)
	}
	if p.Interval <= 0 {
		return fmt.Errorf("sync pair %s: interval must be positive", p.Name)
	}
	return nil
}

// SyncReport records the outcome of one sync cycle for one pair.
type SyncReport struct {
	Pair        string        `json:"pair"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration"`
	RecordsSent int           `json:"records_sent"`
	Error       string        `json:"error,omitempty"`
}

// Succeeded reports whether the cycle completed without error.
func (r SyncReport) Succeeded() bool {
	return r.Error == ""
}
