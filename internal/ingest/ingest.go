// Package ingest generalizes the teacher's APIHandler.HandleDataIngest
// (parse -> store -> detect -> alert -> broadcast) into the eight-step
// sequence of spec.md §4.7, replacing the teacher's internal/api package.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/manufacturing-platform/telemetry-gateway/internal/anomaly"
	"github.com/manufacturing-platform/telemetry-gateway/internal/dataplane"
	"github.com/manufacturing-platform/telemetry-gateway/internal/model"
	"github.com/manufacturing-platform/telemetry-gateway/internal/runtime"
	"github.com/manufacturing-platform/telemetry-gateway/internal/tenant"
)

var validate = validator.New()

// slaBudget is the end-to-end latency SLA from spec.md §4.7/§5.
const slaBudget = 500 * time.Millisecond

// Envelope is the response shape of every ingestion and query
// operation, per spec.md §4.7.
type Envelope struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Details   []string    `json:"details,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// IngestResult is the success payload for an ingested reading.
type IngestResult struct {
	Message             string `json:"message"`
	EquipmentID         string `json:"equipment_id"`
	Timestamp           string `json:"timestamp"`
	AnomaliesDetected   int    `json:"anomalies_detected"`
	AlertsCreated       int    `json:"alerts_created"`
	ProcessingLatencyMs int64  `json:"processing_latency_ms"`
	SLACompliant        bool   `json:"sla_compliant"`
}

// Handler wires the ingestion orchestrator over a Runtime.
type Handler struct {
	rt *runtime.Runtime
}

// NewHandler builds a Handler.
func NewHandler(rt *runtime.Runtime) *Handler {
	return &Handler{rt: rt}
}

// HandleIngest implements the full eight-step sequence of spec.md §4.7.
func (h *Handler) HandleIngest(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	w.Header().Set("Access-Control-Allow-Origin", "*")

	// Step 1: tenant resolution.
	tc, err := h.rt.Resolver.Resolve(r)
	if err != nil {
		h.writeTenantError(w, err)
		return
	}

	// Step 2: usage tick.
	h.rt.Metrics.TenantUsageTotal.WithLabelValues(tc.TenantID).Inc()

	// Step 3: parse body.
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeInternalError(w, "failed to read request body")
		return
	}
	defer r.Body.Close()

	var reading model.SensorReading
	if err := json.Unmarshal(body, &reading); err != nil {
		// spec.md §4.7: malformed JSON maps to 500, an intentional
		// divergence from the usual 400-for-bad-input convention.
		h.writeInternalError(w, "malformed request body")
		return
	}

	if missing := reading.MissingFields(); len(missing) > 0 {
		h.writeJSON(w, http.StatusBadRequest, Envelope{
			Success:   false,
			Error:     "validation failed: missing required fields",
			Details:   missing,
			Timestamp: time.Now(),
		})
		return
	}
	if err := validate.Struct(reading); err != nil {
		h.writeJSON(w, http.StatusBadRequest, Envelope{
			Success:   false,
			Error:     "validation failed: measurement out of range",
			Details:   []string{err.Error()},
			Timestamp: time.Now(),
		})
		return
	}

	dp, err := h.rt.Selector.Select(r.Context(), tc)
	if err != nil {
		h.writeInternalError(w, "failed to select data plane")
		return
	}

	// Step 4: enrich.
	ingestedAt := time.Now()

	// Step 5: detect anomalies, using the warm tier's prior last-seen
	// timestamp for the equipment-offline check.
	lastSeen, hasPrior, err := h.rt.Warm.PriorLastSeen(r.Context(), dp.WarmPool, reading.EquipmentID)
	if err != nil {
		h.rt.Logger.Warn("prior-status lookup failed", slog.String("equipment_id", reading.EquipmentID), slog.String("error", err.Error()))
	}
	anomalies := h.rt.Detector.Detect(r.Context(), &reading, anomaly.PriorStatus(lastSeen, hasPrior))
	for i := range anomalies {
		anomalies[i].TenantID = tc.TenantID
	}
	reading.Enrich(ingestedAt, anomalies)

	// Step 6: dispatch alerts for severity >= high, concurrently, await all.
	alertsCreated := h.dispatchAlerts(r.Context(), tc, anomalies, start, dp)

	// Step 7: detached background fan-out and stream publish.
	h.launchBackgroundWork(tc, &reading, body, dp)

	// Step 8: respond.
	latency := time.Since(start)
	h.writeJSON(w, http.StatusOK, Envelope{
		Success: true,
		Data: IngestResult{
			Message:             "reading accepted",
			EquipmentID:         reading.EquipmentID,
			Timestamp:           reading.Timestamp.Format(time.RFC3339),
			AnomaliesDetected:   len(anomalies),
			AlertsCreated:       alertsCreated,
			ProcessingLatencyMs: latency.Milliseconds(),
			SLACompliant:        latency < slaBudget,
		},
		Timestamp: time.Now(),
	})

	if latency >= slaBudget {
		h.rt.Metrics.RecordSLAViolation(tc.TenantID)
	}
}

// dispatchAlerts invokes the Alert Dispatcher concurrently for every
// anomaly of severity >= high and waits for all of them, per spec.md
// §4.7 step 6.
func (h *Handler) dispatchAlerts(ctx context.Context, tc *model.TenantContext, anomalies []model.Anomaly, receivedAt time.Time, dp *dataplane.DataPlane) int {
	var toDispatch []model.Anomaly
	for _, a := range anomalies {
		if a.Severity.AtLeast(model.SeverityHigh) {
			toDispatch = append(toDispatch, a)
		}
	}
	if len(toDispatch) == 0 {
		return 0
	}

	sinks := h.rt.Sinks(tc)

	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0

	for _, a := range toDispatch {
		wg.Add(1)
		go func(a model.Anomaly) {
			defer wg.Done()
			outcome := h.rt.Dispatcher.Dispatch(ctx, tc.TenantID, a, receivedAt, dp, sinks)
			mu.Lock()
			created++
			mu.Unlock()
			if outcome.BudgetExceeded {
				h.rt.Logger.Warn("alert dispatch exceeded budget", slog.String("equipment_id", a.EquipmentID), slog.String("kind", string(a.Kind)))
			}
		}(a)
	}
	wg.Wait()

	return created
}

// launchBackgroundWork starts the Storage Fan-out and the sensor-data
// stream publish as detached work that does not affect the HTTP
// response (spec.md §4.7 step 7): a client disconnect after this point
// does not cancel it.
func (h *Handler) launchBackgroundWork(tc *model.TenantContext, reading *model.SensorReading, rawBody []byte, dp *dataplane.DataPlane) {
	go func() {
		ctx := context.Background()
		outcome := h.rt.Fanout.Write(ctx, dp, tc.TenantID, reading, rawBody)
		if outcome.AnyFailed() {
			h.rt.Logger.Warn("storage fan-out had a failing tier",
				slog.String("tenant_id", tc.TenantID), slog.String("equipment_id", reading.EquipmentID))
		}
	}()

	go func() {
		ctx := context.Background()
		payload, err := json.Marshal(reading)
		if err != nil {
			h.rt.Logger.Warn("sensor-data marshal failed", slog.String("equipment_id", reading.EquipmentID), slog.String("error", err.Error()))
			return
		}
		severity := "normal"
		if reading.HasAnomalies {
			severity = "info"
		}
		if err := h.rt.Publisher.Publish(ctx, dp.Streams.SensorData, reading.EquipmentID, payload, severity, reading.EquipmentID); err != nil {
			h.rt.Logger.Warn("sensor-data publish failed", slog.String("equipment_id", reading.EquipmentID), slog.String("error", err.Error()))
		}
	}()
}

func (h *Handler) writeTenantError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	msg := "tenant resolution failed"

	var denied *tenant.DeniedError
	switch {
	case errors.Is(err, tenant.ErrMissing):
		// spec.md §9 Open Question: the source maps this to both 403 and
		// 502 depending on code path. This repo always returns 400, per
		// the spec's stated correct mapping.
		status, msg = http.StatusBadRequest, "tenant identifier missing"
	case errors.Is(err, tenant.ErrUnknown):
		status, msg = http.StatusNotFound, "tenant not found"
	case errors.As(err, &denied):
		switch denied.Reason {
		case tenant.DeniedRateLimit:
			status, msg = http.StatusTooManyRequests, "rate limit exceeded"
		case tenant.DeniedCompliance:
			status, msg = http.StatusForbidden, "request denied by compliance policy"
		default:
			status, msg = http.StatusForbidden, "request denied"
		}
	}

	h.writeJSON(w, status, Envelope{Success: false, Error: msg, Timestamp: time.Now()})
}

func (h *Handler) writeInternalError(w http.ResponseWriter, msg string) {
	h.writeJSON(w, http.StatusInternalServerError, Envelope{
		Success:   false,
		Error:     "Internal server error",
		Details:   []string{msg},
		Timestamp: time.Now(),
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		h.rt.Logger.Warn("failed to encode response envelope", slog.String("error", err.Error()))
	}
}
