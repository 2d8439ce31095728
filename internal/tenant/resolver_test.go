package tenant

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manufacturing-platform/telemetry-gateway/internal/model"
)

func newTestResolver(tenants ...model.TenantContext) *Resolver {
	dir := NewStaticDirectory(tenants)
	cache := NewCache(nil, dir, time.Minute, slog.Default())
	policy := NewAccessPolicy()
	return NewResolver(cache, policy, "platform")
}

func TestResolver_Resolve_Success(t *testing.T) {
	r := newTestResolver(model.TenantContext{TenantID: "acme", DataRegion: "us-east"})

	req := httptest.NewRequest(http.MethodPost, "/data", nil)
	req.Header.Set("X-Tenant-ID", "acme")

	tc, err := r.Resolve(req)

	require.NoError(t, err)
	assert.Equal(t, "acme", tc.TenantID)
}

func TestResolver_Resolve_MissingIdentifier(t *testing.T) {
	r := newTestResolver()

	req := httptest.NewRequest(http.MethodPost, "/data", nil)

	_, err := r.Resolve(req)

	assert.ErrorIs(t, err, ErrMissing)
}

func TestResolver_Resolve_UnknownTenant(t *testing.T) {
	r := newTestResolver()

	req := httptest.NewRequest(http.MethodPost, "/data", nil)
	req.Header.Set("X-Tenant-ID", "ghost")

	_, err := r.Resolve(req)

	assert.ErrorIs(t, err, ErrUnknown)
}

func TestResolver_Resolve_ComplianceDenied(t *testing.T) {
	r := newTestResolver(model.TenantContext{
		TenantID:       "acme",
		DataRegion:     "eu-west",
		ComplianceTags: []string{"region-restricted"},
	})

	req := httptest.NewRequest(http.MethodPost, "/data", nil)
	req.Header.Set("X-Tenant-ID", "acme")
	req.Header.Set("X-Source-Region", "us-east")

	_, err := r.Resolve(req)

	var denied *DeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, DeniedCompliance, denied.Reason)
}

func TestResolver_Resolve_RateLimited(t *testing.T) {
	r := newTestResolver(model.TenantContext{
		TenantID: "acme",
		Feature:  model.FeatureConfig{APIRateLimit: 1},
	})

	req := func() *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/data", nil)
		req.Header.Set("X-Tenant-ID", "acme")
		return req
	}

	_, err := r.Resolve(req())
	require.NoError(t, err)

	_, err = r.Resolve(req())
	var denied *DeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, DeniedRateLimit, denied.Reason)
}

func TestCache_ConcurrentMissesCollapse(t *testing.T) {
	dir := &countingDirectory{tenant: model.TenantContext{TenantID: "acme"}}
	cache := NewCache(nil, dir, time.Minute, slog.Default())

	const n = 20
	done := make(chan struct{}, n)
	for i := 0; i < n; i++ {
		go func() {
			_, _ = cache.Resolve(context.Background(), "acme")
			done <- struct{}{}
		}()
	}
	for i := 0; i < n; i++ {
		<-done
	}

	assert.Equal(t, int32(1), dir.calls)
}

type countingDirectory struct {
	tenant model.TenantContext
	calls  int32
}

func (d *countingDirectory) FetchTenant(ctx context.Context, tenantID string) (*model.TenantContext, error) {
	d.calls++
	time.Sleep(5 * time.Millisecond)
	cp := d.tenant
	return &cp, nil
}
