package model

import "time"

// AlertOutcome records which channels an Alert was delivered through and
// the total latency the dispatcher spent on it.
type AlertOutcome struct {
	Alert           Alert
	PriorityPublish bool
	ChannelResults  map[string]error
	LatencyMs       int64
	BudgetExceeded  bool
}

// TierResult is the outcome of one storage tier's attempt.
type TierResult struct {
	Succeeded bool
	Err       error
	LatencyMs int64
}

// FanoutOutcome carries the per-tier result of a Storage Fan-out run.
type FanoutOutcome struct {
	Hot        TierResult
	Warm       TierResult
	Cold       TierResult
	ArchivedAt time.Time
	TotalMs    int64
}

// AnyFailed reports whether any tier did not succeed.
func (f FanoutOutcome) AnyFailed() bool {
	return !f.Hot.Succeeded || !f.Warm.Succeeded || !f.Cold.Succeeded
}
