package sync

import (
	"time"
)

// HealthStatus classifies a sync pair or the overall topology.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusDegraded  HealthStatus = "degraded"
	StatusUnhealthy HealthStatus = "unhealthy"
	// StatusUnknown is reported before a pair has completed any cycle.
	StatusUnknown HealthStatus = "unknown"
)

// Success-rate thresholds separating the health classes. Rates are computed
// over the retained report history.
const (
	healthyThreshold  = 0.95
	degradedThreshold = 0.50
)

// PairHealth summarizes the recent behavior of one sync pair.
type PairHealth struct {
	Pair           string        `json:"pair"`
	Status         HealthStatus  `json:"status"`
	SuccessRate    float64       `json:"success_rate"`
	Cycles         int           `json:"cycles"`
	ErrorCount     int           `json:"error_count"`
	LastError      string        `json:"last_error,omitempty"`
	LastSyncedAt   time.Time     `json:"last_synced_at"`
	AvgSyncLatency time.Duration `json:"avg_sync_latency"`
}

// TopologyHealth aggregates per-pair health into one view.
type TopologyHealth struct {
	Status HealthStatus `json:"status"`
	Pairs  []PairHealth `json:"pairs"`
}

// Health computes health for every configured pair from the retained report
// history.
//
// Classification: a pair with no completed cycles is unknown; otherwise the
// success rate over the history window decides healthy (>= 95%), degraded
// (>= 50%), or unhealthy. The topology takes the worst pair status, with
// unknown treated as degraded so a stalled pair surfaces.
func (o *Orchestrator) Health() TopologyHealth {
	pairs := o.Pairs()

	topo := TopologyHealth{Status: StatusHealthy}
	for _, pair := range pairs {
		ph := o.pairHealth(pair.Name)
		topo.Pairs = append(topo.Pairs, ph)

		effective := ph.Status
		if effective == StatusUnknown {
			effective = StatusDegraded
		}
		if rank(effective) > rank(topo.Status) {
			topo.Status = effective
		}
	}
	return topo
}

func rank(s HealthStatus) int {
	switch s {
	case StatusUnhealthy:
		return 2
	case StatusDegraded:
		return 1
	default:
		return 0
	}
}

func (o *Orchestrator) pairHealth(name string) PairHealth {
	reports := o.Reports(name)
	ph := PairHealth{Pair: name, Status: StatusUnknown, Cycles: len(reports)}
	if len(reports) == 0 {
		return ph
	}

	var succeeded int
	var totalLatency time.Duration
	for _, r := range reports {
		if r.Succeeded() {
			succeeded++
			if r.StartedAt.After(ph.LastSyncedAt) {
				ph.LastSyncedAt = r.StartedAt
			}
		} else {
			ph.ErrorCount++
			ph.LastError = r.Error
		}
		totalLatency += r.Duration
	}

	ph.SuccessRate = float64(succeeded) / float64(len(reports))
	ph.AvgSyncLatency = totalLatency / time.Duration(len(reports))

	switch {
	case ph.SuccessRate >= healthyThreshold:
		ph.Status = StatusHealthy
	case ph.SuccessRate >= degradedThreshold:
		ph.Status = StatusDegraded
	default:
		ph.Status = StatusUnhealthy
	}
	return ph
}
