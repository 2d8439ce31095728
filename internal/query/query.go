// Package query implements the read-only Query Surface of spec.md §4.8,
// replacing the teacher's dashboard-serving routes (ServeWebUI,
// static-file handler) — no dashboard is served; see DESIGN.md.
package query

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/manufacturing-platform/telemetry-gateway/internal/ingest"
	"github.com/manufacturing-platform/telemetry-gateway/internal/runtime"
)

const defaultLookbackDays = 30
const defaultRecentHours = 24
const maxRecentRows = 1000

// Handler wires the four read-only routes over a Runtime.
type Handler struct {
	rt *runtime.Runtime
}

// NewHandler builds a Handler.
func NewHandler(rt *runtime.Runtime) *Handler {
	return &Handler{rt: rt}
}

// HandleEquipmentList serves GET /equipment: up to 500 current-status
// rows from the warm tier, most recently seen first.
func (h *Handler) HandleEquipmentList(w http.ResponseWriter, r *http.Request) {
	tc, err := h.rt.Resolver.Resolve(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "tenant resolution failed")
		return
	}
	h.rt.Metrics.TenantUsageTotal.WithLabelValues(tc.TenantID).Inc()

	dp, err := h.rt.Selector.Select(r.Context(), tc)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "failed to select data plane")
		return
	}

	rows, err := h.rt.Warm.List(r.Context(), dp.WarmPool, 500)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "equipment list failed")
		return
	}

	h.writeData(w, map[string]interface{}{"equipment": rows})
}

// HandleEquipmentStatus serves GET /equipment/{id}: the warm tier's
// current-status row.
func (h *Handler) HandleEquipmentStatus(w http.ResponseWriter, r *http.Request) {
	equipmentID := chi.URLParam(r, "id")

	tc, err := h.rt.Resolver.Resolve(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "tenant resolution failed")
		return
	}
	h.rt.Metrics.TenantUsageTotal.WithLabelValues(tc.TenantID).Inc()

	dp, err := h.rt.Selector.Select(r.Context(), tc)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "failed to select data plane")
		return
	}

	row, found, err := h.rt.Warm.Get(r.Context(), dp.WarmPool, equipmentID)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "status lookup failed")
		return
	}
	if !found {
		h.writeError(w, http.StatusNotFound, "equipment not found")
		return
	}

	h.writeData(w, map[string]interface{}{
		"equipment_id":        row.EquipmentID,
		"last_seen":           row.LastSeen.Format(time.RFC3339),
		"current_temperature": row.CurrentTemperature,
		"current_vibration":   row.CurrentVibration,
		"current_pressure":    row.CurrentPressure,
		"status":              row.Status,
		"facility_id":         row.FacilityID,
		"line_id":             row.LineID,
	})
}

// HandleRecentReadings serves spec.md §4.8's recent-sensor-data
// operation: an equipment's rows over the last N hours from the hot
// tier, capped at 1000 rows, descending time. Reading through the
// selected DataPlane's HotPool (rather than the process-wide
// RecentCache, which has no tenant dimension) keeps this scoped to the
// resolving tenant's own rows via row-level-security in shared mode.
func (h *Handler) HandleRecentReadings(w http.ResponseWriter, r *http.Request) {
	equipmentID := chi.URLParam(r, "id")

	tc, err := h.rt.Resolver.Resolve(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "tenant resolution failed")
		return
	}
	h.rt.Metrics.TenantUsageTotal.WithLabelValues(tc.TenantID).Inc()

	dp, err := h.rt.Selector.Select(r.Context(), tc)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "failed to select data plane")
		return
	}

	hours := defaultRecentHours
	if v := r.URL.Query().Get("hours"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			hours = n
		}
	}
	limit := maxRecentRows
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n < limit {
			limit = n
		}
	}
	since := time.Now().Add(-time.Duration(hours) * time.Hour)

	rows, err := h.rt.Hot.RecentByEquipment(r.Context(), dp.HotPool, equipmentID, since, limit)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "recent readings query failed")
		return
	}

	h.writeData(w, map[string]interface{}{
		"equipment_id": equipmentID,
		"since":        since.Format(time.RFC3339),
		"readings":     rows,
	})
}

// HandleHistoricalKeys serves GET /equipment/{id}/metrics: cold-tier
// object keys over a date range (returns keys only, per spec.md §4.8 —
// historical retrieval beyond key listing is a non-goal).
func (h *Handler) HandleHistoricalKeys(w http.ResponseWriter, r *http.Request) {
	equipmentID := chi.URLParam(r, "id")

	tc, err := h.rt.Resolver.Resolve(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "tenant resolution failed")
		return
	}
	h.rt.Metrics.TenantUsageTotal.WithLabelValues(tc.TenantID).Inc()

	dp, err := h.rt.Selector.Select(r.Context(), tc)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "failed to select data plane")
		return
	}

	start, end := parseRange(r)

	keys, err := h.rt.Cold.ListHistoricalKeys(r.Context(), dp.ObjectStore, equipmentID, 1000)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "key listing failed")
		return
	}

	segment := "/" + equipmentID + "/"
	inRange := make([]string, 0, len(keys))
	for _, k := range keys {
		i := strings.Index(k, segment) + len(segment)
		if i < len(segment) || len(k) < i+13 {
			continue
		}
		hour, err := time.Parse("2006/01/02/15", k[i:i+13])
		if err == nil && !hour.Add(time.Hour).Before(start) && !hour.After(end) {
			inRange = append(inRange, k)
		}
	}

	h.writeData(w, map[string]interface{}{
		"equipment_id": equipmentID,
		"start_time":   start.Format(time.RFC3339),
		"end_time":     end.Format(time.RFC3339),
		"keys":         inRange,
	})
}

// parseRange applies spec.md §4.8's default range boundaries
// (end = now, start = now - 30 days) when the query omits them.
func parseRange(r *http.Request) (time.Time, time.Time) {
	end := time.Now()
	start := end.AddDate(0, 0, -defaultLookbackDays)

	if v := r.URL.Query().Get("end_time"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			end = t
		}
	}
	if v := r.URL.Query().Get("start_time"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			start = t
		}
	}
	return start, end
}

func (h *Handler) writeData(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	env := ingest.Envelope{Success: true, Data: data, Timestamp: time.Now()}
	if err := json.NewEncoder(w).Encode(env); err != nil {
		h.rt.Logger.Warn("failed to encode response envelope", slog.String("error", err.Error()))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	env := ingest.Envelope{Success: false, Error: msg, Timestamp: time.Now()}
	json.NewEncoder(w).Encode(env)
}
