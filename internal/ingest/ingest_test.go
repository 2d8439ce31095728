package ingest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manufacturing-platform/telemetry-gateway/internal/config"
	"github.com/manufacturing-platform/telemetry-gateway/internal/model"
	"github.com/manufacturing-platform/telemetry-gateway/internal/runtime"
	"github.com/manufacturing-platform/telemetry-gateway/internal/telemetry"
)

func testRuntime(tenants ...model.TenantContext) *runtime.Runtime {
	cfg := &config.Config{Environment: "test"}
	logger := telemetry.NewLogger("telemetry-gateway", "test")
	return runtime.Build(cfg, logger, runtime.Dependencies{Tenants: tenants})
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return env
}

func TestHandleIngest_MissingTenantIdentifier(t *testing.T) {
	h := NewHandler(testRuntime())
	req := httptest.NewRequest(http.MethodPost, "/data", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()

	h.HandleIngest(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.False(t, env.Success)
}

func TestHandleIngest_UnknownTenant(t *testing.T) {
	h := NewHandler(testRuntime())
	req := httptest.NewRequest(http.MethodPost, "/data", strings.NewReader(`{}`))
	req.Header.Set("X-Tenant-ID", "ghost")
	rec := httptest.NewRecorder()

	h.HandleIngest(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleIngest_MalformedJSONMapsToInternalError(t *testing.T) {
	h := NewHandler(testRuntime(model.TenantContext{TenantID: "acme"}))
	req := httptest.NewRequest(http.MethodPost, "/data", strings.NewReader(`{not valid json`))
	req.Header.Set("X-Tenant-ID", "acme")
	rec := httptest.NewRecorder()

	h.HandleIngest(rec, req)

	// spec-mandated divergence from the usual 400-for-bad-input convention.
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "Internal server error", env.Error)
}

func TestHandleIngest_MissingRequiredFields(t *testing.T) {
	h := NewHandler(testRuntime(model.TenantContext{TenantID: "acme"}))
	req := httptest.NewRequest(http.MethodPost, "/data", strings.NewReader(`{}`))
	req.Header.Set("X-Tenant-ID", "acme")
	rec := httptest.NewRecorder()

	h.HandleIngest(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Contains(t, env.Details, "equipment_id")
	assert.Contains(t, env.Details, "timestamp")
}

func TestHandleIngest_ValidationFailureOnMeasurementRange(t *testing.T) {
	h := NewHandler(testRuntime(model.TenantContext{TenantID: "acme"}))
	body := `{"equipment_id":"eq-1","timestamp":"2026-01-01T00:00:00Z","temperature":9999}`
	req := httptest.NewRequest(http.MethodPost, "/data", strings.NewReader(body))
	req.Header.Set("X-Tenant-ID", "acme")
	rec := httptest.NewRecorder()

	h.HandleIngest(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleIngest_RateLimitDenied(t *testing.T) {
	h := NewHandler(testRuntime(model.TenantContext{
		TenantID: "acme",
		Feature:  model.FeatureConfig{APIRateLimit: 1},
	}))

	newReq := func() *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/data", strings.NewReader(`{}`))
		req.Header.Set("X-Tenant-ID", "acme")
		return req
	}

	rec1 := httptest.NewRecorder()
	h.HandleIngest(rec1, newReq())
	assert.NotEqual(t, http.StatusTooManyRequests, rec1.Code)

	rec2 := httptest.NewRecorder()
	h.HandleIngest(rec2, newReq())
	assert.Equal(t, http.StatusTooManyRequests, rec2.Code)
}
