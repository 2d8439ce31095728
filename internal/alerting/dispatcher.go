// Package alerting generalizes the teacher's Alerter.ProcessAlerts
// (websocket-only broadcast) into the multi-channel dispatcher of
// spec.md §4.4.
package alerting

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/manufacturing-platform/telemetry-gateway/internal/dataplane"
	"github.com/manufacturing-platform/telemetry-gateway/internal/model"
	"github.com/manufacturing-platform/telemetry-gateway/internal/stream"
	"github.com/manufacturing-platform/telemetry-gateway/internal/telemetry"
)

// Budget bounds the notification fan-out (steps 2-4 of §4.4): whatever
// hasn't completed when it expires is abandoned, not retried.
const Budget = 100 * time.Millisecond

// Dispatcher turns an Anomaly into an Alert, publishes it to the
// priority stream, records metrics, and fans it out to every
// configured notification sink.
type Dispatcher struct {
	publisher *stream.Publisher
	metrics   *telemetry.Metrics
	logger    *slog.Logger
}

// NewDispatcher builds a Dispatcher over the process-wide stream
// publisher and metrics sink.
func NewDispatcher(publisher *stream.Publisher, metrics *telemetry.Metrics, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{publisher: publisher, metrics: metrics, logger: logger}
}

// Dispatch builds an Alert from an Anomaly and runs the full §4.4
// sequence: priority publish, metrics, sink fan-out. Only anomalies of
// severity >= high reach this method (the caller filters).
func (d *Dispatcher) Dispatch(ctx context.Context, tenantID string, a model.Anomaly, receivedAt time.Time, dp *dataplane.DataPlane, sinks []Sink) model.AlertOutcome {
	alert := model.Alert{
		AlertID:             uuid.NewString(),
		EquipmentID:         a.EquipmentID,
		TenantID:            tenantID,
		Kind:                a.Kind,
		Severity:            a.Severity,
		Message:             a.Message,
		Timestamp:           a.Timestamp,
		ProcessingLatencyMs: time.Since(receivedAt).Milliseconds(),
	}

	ctx, cancel := context.WithTimeout(ctx, Budget)
	defer cancel()

	outcome := model.AlertOutcome{
		Alert:          alert,
		ChannelResults: make(map[string]error),
	}
	start := time.Now()

	var wg sync.WaitGroup
	var mu sync.Mutex

	wg.Add(1)
	go func() {
		defer wg.Done()
		published := d.publishPriority(ctx, alert, dp)
		mu.Lock()
		outcome.PriorityPublish = published
		mu.Unlock()
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		d.recordMetrics(alert)
		d.metrics.MetricValue.WithLabelValues(tenantID, a.EquipmentID, strconv.FormatFloat(a.Threshold, 'f', -1, 64)).Set(a.Value)
	}()

	for _, sink := range sinks {
		wg.Add(1)
		go func(s Sink) {
			defer wg.Done()
			err := s.Publish(ctx, alert)
			mu.Lock()
			outcome.ChannelResults[s.Name()] = err
			mu.Unlock()
			d.metrics.AlertChannelTotal.WithLabelValues(s.Name(), outcomeLabel(err)).Inc()
		}(sink)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		outcome.BudgetExceeded = true
		d.logger.Warn("alert dispatch budget exceeded",
			slog.String("alert_id", alert.AlertID), slog.String("tenant_id", tenantID))
	}

	outcome.LatencyMs = time.Since(start).Milliseconds()
	return outcome
}

func (d *Dispatcher) publishPriority(ctx context.Context, alert model.Alert, dp *dataplane.DataPlane) bool {
	wire := alert.ToWireMessage(time.Now())
	payload, err := json.Marshal(wire)
	if err != nil {
		d.logger.Warn("alert marshal failed", slog.String("alert_id", alert.AlertID), slog.String("error", err.Error()))
		return false
	}

	// Every alert that reaches Dispatch already cleared the >= high
	// filter, so it always goes to the priority topic; severity only
	// gates awaited vs. fire-and-forget delivery, decided inside
	// stream.Publisher.Publish itself.
	topic := dp.Streams.PriorityAlerts

	if err := d.publisher.Publish(ctx, topic, alert.EquipmentID, payload, string(alert.Severity), alert.EquipmentID); err != nil {
		d.logger.Warn("priority publish failed", slog.String("alert_id", alert.AlertID), slog.String("error", err.Error()))
		return false
	}
	return true
}

func (d *Dispatcher) recordMetrics(alert model.Alert) {
	d.metrics.AnomaliesTotal.WithLabelValues(alert.TenantID, alert.EquipmentID, string(alert.Kind), string(alert.Severity)).Inc()
	d.metrics.SeverityScore.WithLabelValues(alert.TenantID, alert.EquipmentID).Set(severityScore(alert.Severity))
}

func severityScore(s model.Severity) float64 {
	switch s {
	case model.SeverityCritical:
		return 3
	case model.SeverityHigh:
		return 2
	case model.SeverityMedium:
		return 1
	default:
		return 0
	}
}

func outcomeLabel(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
