package storage

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/manufacturing-platform/telemetry-gateway/internal/dataplane"
	"github.com/manufacturing-platform/telemetry-gateway/internal/model"
	"github.com/manufacturing-platform/telemetry-gateway/internal/telemetry"
)

// Fanout drives the three-tier persistence of spec.md §4.5: hot, warm
// and cold tiers are written concurrently, and any tier's failure
// routes the raw payload to the cold tier's error archive.
type Fanout struct {
	hot     *HotStore
	warm    *WarmStore
	cold    *ColdStore
	cache   *RecentCache
	metrics *telemetry.Metrics
	logger  *slog.Logger
}

// NewFanout wires the three tiers, the recent-reading cache, and the
// metrics sink together.
func NewFanout(hot *HotStore, warm *WarmStore, cold *ColdStore, cache *RecentCache, metrics *telemetry.Metrics, logger *slog.Logger) *Fanout {
	return &Fanout{hot: hot, warm: warm, cold: cold, cache: cache, metrics: metrics, logger: logger}
}

// Write persists r to every tier concurrently and returns the
// per-tier outcome. payload is the raw request body, archived verbatim
// on the cold tier and on any-tier failure.
func (f *Fanout) Write(ctx context.Context, dp *dataplane.DataPlane, tenantID string, r *model.SensorReading, payload []byte) model.FanoutOutcome {
	start := time.Now()

	snapshot, err := json.Marshal(r)
	if err != nil {
		f.logger.Warn("snapshot marshal failed", slog.String("equipment_id", r.EquipmentID), slog.String("error", err.Error()))
	} else {
		f.cache.Add(r.EquipmentID, string(snapshot))
	}

	var wg sync.WaitGroup
	var hot, warm, cold model.TierResult

	wg.Add(3)
	go func() {
		defer wg.Done()
		hot = f.writeTier("hot", func() error {
			return f.hot.Put(ctx, dp.HotPool, tenantID, r)
		})
	}()
	go func() {
		defer wg.Done()
		warm = f.writeTier("warm", func() error {
			return f.warm.Upsert(ctx, dp.WarmPool, tenantID, r)
		})
	}()
	go func() {
		defer wg.Done()
		cold = f.writeTier("cold", func() error {
			return f.cold.Put(ctx, dp.ObjectStore, tenantID, r.FacilityID, r.EquipmentID, r.Timestamp, payload)
		})
	}()
	wg.Wait()

	outcome := model.FanoutOutcome{Hot: hot, Warm: warm, Cold: cold, TotalMs: time.Since(start).Milliseconds()}

	if outcome.AnyFailed() {
		if archiveErr := f.archiveFailure(ctx, dp, tenantID, r, payload, outcome); archiveErr != nil {
			f.logger.Warn("error archive failed", slog.String("equipment_id", r.EquipmentID), slog.String("error", archiveErr.Error()))
		} else {
			outcome.ArchivedAt = time.Now()
		}
	}

	return outcome
}

func (f *Fanout) writeTier(tier string, fn func() error) model.TierResult {
	start := time.Now()
	err := fn()
	result := model.TierResult{Succeeded: err == nil, Err: err, LatencyMs: time.Since(start).Milliseconds()}
	f.metrics.FanoutTierTotal.WithLabelValues(tier, outcomeLabel(err)).Inc()
	if err != nil {
		f.logger.Warn("storage tier write failed", slog.String("tier", tier), slog.String("error", err.Error()))
	}
	return result
}

func (f *Fanout) archiveFailure(ctx context.Context, dp *dataplane.DataPlane, tenantID string, r *model.SensorReading, payload []byte, outcome model.FanoutOutcome) error {
	cause := firstTierError(outcome)
	return f.cold.PutError(ctx, dp.ObjectStore, tenantID, r.FacilityID, r.EquipmentID, time.Now(), payload, cause)
}

func firstTierError(outcome model.FanoutOutcome) error {
	for _, r := range []model.TierResult{outcome.Hot, outcome.Warm, outcome.Cold} {
		if !r.Succeeded && r.Err != nil {
			return r.Err
		}
	}
	return context.DeadlineExceeded
}

func outcomeLabel(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
