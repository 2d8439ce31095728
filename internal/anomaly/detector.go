// Package anomaly generalizes the teacher's internal/anomaly package —
// a single Check(point) loop over a min/max rule map — into the
// three-band (normal/high/critical) evaluation spec.md §4.3 requires,
// with temperature, vibration and pressure evaluated concurrently the
// way spec.md §5 calls for ("Evaluation. Each ... is evaluated
// independently and concurrently").
package anomaly

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/manufacturing-platform/telemetry-gateway/internal/config"
	"github.com/manufacturing-platform/telemetry-gateway/internal/model"
)

// Budget is the per-reading detection time budget from spec.md §4.3/§5.
const Budget = 5 * time.Millisecond

// Detector evaluates one reading against the configured threshold
// bands. It is synchronous, pure, and allocation-bounded per metric.
type Detector struct {
	cfg config.AnomalyConfig
}

// NewDetector builds a Detector over the process's anomaly
// configuration (hot-reload is explicitly out of scope per spec.md
// §4.3).
func NewDetector(cfg config.AnomalyConfig) *Detector {
	return &Detector{cfg: cfg}
}

// priorStatus is the warm-tier snapshot the equipment-offline check
// needs; the detector itself does not own storage, so this is passed in
// by the caller (the ingestion orchestrator, which already has the
// warm-tier handle via the Data-Plane Selector).
type priorStatus struct {
	LastSeen time.Time
	HasPrior bool
}

// Detect evaluates a reading and returns zero or more anomalies. The
// overall call is bounded by Budget; if evaluation is still running
// when the budget expires, partial results collected so far are
// returned rather than blocking the critical path further.
func (d *Detector) Detect(ctx context.Context, r *model.SensorReading, prior priorStatus) []model.Anomaly {
	ctx, cancel := context.WithTimeout(ctx, Budget)
	defer cancel()

	type metricCheck struct {
		name string
		fn   func() *model.Anomaly
	}

	checks := []metricCheck{
		{"temperature", func() *model.Anomaly { return d.checkTemperature(r) }},
		{"vibration", func() *model.Anomaly { return d.checkVibration(r) }},
		{"pressure", func() *model.Anomaly { return d.checkPressure(r) }},
		{"power", func() *model.Anomaly { return d.checkPowerSpike(r) }},
		{"offline", func() *model.Anomaly { return d.checkOffline(r, prior) }},
	}

	results := make(chan *model.Anomaly, len(checks))
	var wg sync.WaitGroup
	for _, c := range checks {
		wg.Add(1)
		go func(fn func() *model.Anomaly) {
			defer wg.Done()
			results <- fn()
		}(c.fn)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		// Budget exceeded: fall through and collect whatever already
		// landed in the buffered channel without blocking further.
	}

	// results stays open: a check still running past the budget sends
	// into the buffer later and must not hit a closed channel.
	var anomalies []model.Anomaly
	for {
		select {
		case a := <-results:
			if a != nil {
				anomalies = append(anomalies, *a)
			}
		default:
			return anomalies
		}
	}
}

func (d *Detector) checkTemperature(r *model.SensorReading) *model.Anomaly {
	if r.Temperature == nil {
		return nil
	}
	band := d.cfg.Temperature
	v := *r.Temperature

	switch {
	case v > band.Critical:
		return anomaly(model.KindCriticalTemperature, r, v, band.Critical, model.SeverityCritical,
			fmt.Sprintf("Critical temperature: %.2f exceeds critical threshold %.2f", v, band.Critical))
	case v > band.High:
		return anomaly(model.KindHighTemperature, r, v, band.High, model.SeverityHigh,
			fmt.Sprintf("High temperature: %.2f exceeds normal range (max %.2f)", v, band.NormalMax))
	case v < band.NormalMin:
		return anomaly(model.KindHighTemperature, r, v, band.NormalMin, model.SeverityMedium,
			fmt.Sprintf("Low temperature: %.2f is below normal range (min %.2f)", v, band.NormalMin))
	}
	return nil
}

func (d *Detector) checkVibration(r *model.SensorReading) *model.Anomaly {
	if r.Vibration == nil {
		return nil
	}
	band := d.cfg.Vibration
	v := *r.Vibration

	switch {
	case v > band.Critical:
		return anomaly(model.KindCriticalVibration, r, v, band.Critical, model.SeverityCritical,
			fmt.Sprintf("Critical vibration: %.2f exceeds critical threshold %.2f", v, band.Critical))
	case v > band.High:
		return anomaly(model.KindHighVibration, r, v, band.High, model.SeverityHigh,
			fmt.Sprintf("High vibration: %.2f exceeds normal range (max %.2f)", v, band.NormalMax))
	}
	return nil
}

func (d *Detector) checkPressure(r *model.SensorReading) *model.Anomaly {
	if r.Pressure == nil {
		return nil
	}
	band := d.cfg.Pressure
	v := *r.Pressure

	switch {
	case v > band.Critical:
		return anomaly(model.KindCriticalPressure, r, v, band.Critical, model.SeverityCritical,
			fmt.Sprintf("Critical pressure: %.2f exceeds critical threshold %.2f", v, band.Critical))
	case v > band.High:
		// spec.md §4.3: the high-pressure and low-pressure cases share
		// the abnormal-pressure kind with severity medium (spec.md §9
		// Open Question: the source conflates these; this repo keeps
		// that behavior rather than inventing a separate low-pressure
		// kind).
		return anomaly(model.KindAbnormalPressure, r, v, band.High, model.SeverityMedium,
			fmt.Sprintf("Abnormal pressure: %.2f exceeds normal range (max %.2f)", v, band.NormalMax))
	case v < band.NormalMin:
		return anomaly(model.KindAbnormalPressure, r, v, band.NormalMin, model.SeverityMedium,
			fmt.Sprintf("Abnormal pressure: %.2f is below normal range (min %.2f)", v, band.NormalMin))
	}
	return nil
}

// checkPowerSpike fires the supplemented power-spike kind (spec.md §3
// names it in the closed set but the distillation never defines a
// trigger; this expansion's threshold is a configured baseline ratio,
// the same shape as the other three metrics' bands).
func (d *Detector) checkPowerSpike(r *model.SensorReading) *model.Anomaly {
	if r.PowerConsumption == nil {
		return nil
	}
	ratio := d.cfg.PowerSpikeRatio
	if ratio <= 0 {
		return nil
	}
	baseline := baselinePower(r)
	if baseline <= 0 {
		return nil
	}
	v := *r.PowerConsumption
	threshold := baseline * ratio
	if v > threshold {
		return anomaly(model.KindPowerSpike, r, v, threshold, model.SeverityHigh,
			fmt.Sprintf("Power spike: %.2f exceeds %.0f%% of baseline %.2f", v, ratio*100, baseline))
	}
	return nil
}

// baselinePower reads an equipment-reported baseline from
// custom_metrics, if the upstream sensor supplies one; absent that,
// power-spike detection is skipped (there is no historical-baseline
// module in the core per spec.md §4.3 Non-goals).
func baselinePower(r *model.SensorReading) float64 {
	if r.CustomMetrics == nil {
		return 0
	}
	if v, ok := r.CustomMetrics["power_baseline"].(float64); ok {
		return v
	}
	return 0
}

// checkOffline fires the supplemented equipment-offline kind when the
// gap since the warm tier's last-seen timestamp for this equipment
// exceeds the configured stale-after duration.
func (d *Detector) checkOffline(r *model.SensorReading, prior priorStatus) *model.Anomaly {
	if !prior.HasPrior || d.cfg.OfflineAfterSeconds <= 0 {
		return nil
	}
	gap := r.Timestamp.Sub(prior.LastSeen)
	staleAfter := time.Duration(d.cfg.OfflineAfterSeconds) * time.Second
	if gap > staleAfter {
		return anomaly(model.KindEquipmentOffline, r, gap.Seconds(), staleAfter.Seconds(), model.SeverityHigh,
			fmt.Sprintf("Equipment offline: last seen %.0fs ago, exceeding %.0fs", gap.Seconds(), staleAfter.Seconds()))
	}
	return nil
}

func anomaly(kind model.AnomalyKind, r *model.SensorReading, value, threshold float64, sev model.Severity, msg string) *model.Anomaly {
	return &model.Anomaly{
		Kind:        kind,
		EquipmentID: r.EquipmentID,
		Timestamp:   r.Timestamp,
		Value:       value,
		Threshold:   threshold,
		Severity:    sev,
		Message:     msg,
	}
}

// PriorStatus exposes the unexported priorStatus constructor to callers
// outside the package.
func PriorStatus(lastSeen time.Time, hasPrior bool) priorStatus {
	return priorStatus{LastSeen: lastSeen, HasPrior: hasPrior}
}
