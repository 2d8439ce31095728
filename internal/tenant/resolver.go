package tenant

import (
	"net/http"

	"github.com/manufacturing-platform/telemetry-gateway/internal/model"
)

// Resolver is the Tenant Directory's public contract (spec.md §4.1):
// resolve(request) -> TenantContext, or one of ErrMissing/ErrUnknown/a
// *DeniedError.
type Resolver struct {
	cache          *Cache
	policy         *AccessPolicy
	platformDomain string
}

// NewResolver wires the cache and access policy into one Resolver.
func NewResolver(cache *Cache, policy *AccessPolicy, platformDomain string) *Resolver {
	return &Resolver{cache: cache, policy: policy, platformDomain: platformDomain}
}

// Resolve extracts a tenant identifier from r, loads (or serves from
// cache) its TenantContext, and enforces access policy.
func (res *Resolver) Resolve(r *http.Request) (*model.TenantContext, error) {
	id, err := ResolveIdentifier(r, res.platformDomain)
	if err != nil {
		return nil, err
	}

	tc, err := res.cache.Resolve(r.Context(), id)
	if err != nil {
		return nil, err
	}

	sourceRegion := r.Header.Get("X-Source-Region")
	if err := res.policy.Check(tc, sourceRegion); err != nil {
		return nil, err
	}

	return tc, nil
}
