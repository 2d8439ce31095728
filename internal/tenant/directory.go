package tenant

import (
	"context"
	"fmt"

	"github.com/manufacturing-platform/telemetry-gateway/internal/model"
)

// Directory is the external tenant source of record. Its concrete
// implementation (a tenant-management service) is out of scope per
// spec.md §1; this repo only defines the contract and ships a
// config-seeded StaticDirectory sufficient to run a single gateway
// process against a fixed tenant roster.
type Directory interface {
	FetchTenant(ctx context.Context, tenantID string) (*model.TenantContext, error)
}

// StaticDirectory serves tenants from an in-memory roster, keyed by
// tenant_id. It is the default Directory implementation: deployments
// that need a live external directory provide their own Directory.
type StaticDirectory struct {
	tenants map[string]model.TenantContext
}

// NewStaticDirectory builds a StaticDirectory from a slice of tenants.
func NewStaticDirectory(tenants []model.TenantContext) *StaticDirectory {
	indexed := make(map[string]model.TenantContext, len(tenants))
	for _, t := range tenants {
		indexed[t.TenantID] = t
	}
	return &StaticDirectory{tenants: indexed}
}

// FetchTenant implements Directory.
func (d *StaticDirectory) FetchTenant(_ context.Context, tenantID string) (*model.TenantContext, error) {
	t, ok := d.tenants[tenantID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknown, tenantID)
	}
	cp := t
	return &cp, nil
}
