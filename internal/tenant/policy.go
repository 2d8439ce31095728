package tenant

import (
	"sync"

	"golang.org/x/time/rate"

	"github.com/manufacturing-platform/telemetry-gateway/internal/model"
)

// AccessPolicy enforces the per-tenant-per-hour request limit and the
// region-restricted compliance tag check from spec.md §4.1. Usage of
// golang.org/x/time/rate (a direct dependency of
// jinterlante1206-AleutianLocal) gives the "track a per-tenant-per-hour
// request counter" requirement a concrete, lock-efficient implementation
// instead of a hand-rolled counter.
type AccessPolicy struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewAccessPolicy builds an empty per-tenant limiter registry.
func NewAccessPolicy() *AccessPolicy {
	return &AccessPolicy{limiters: make(map[string]*rate.Limiter)}
}

func (p *AccessPolicy) limiterFor(t *model.TenantContext) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	l, ok := p.limiters[t.TenantID]
	if !ok {
		perHour := t.Feature.APIRateLimit
		if perHour <= 0 {
			perHour = 3600 // unlimited-ish default: 1 req/sec sustained
		}
		// rate.Limit is in events/sec; spread the hourly allowance evenly
		// and let a one-hour burst absorb spikes.
		l = rate.NewLimiter(rate.Limit(float64(perHour)/3600.0), perHour)
		p.limiters[t.TenantID] = l
	}
	return l
}

// Check enforces rate limiting and the region-restricted compliance tag
// against the resolving request's source region. Returns a *DeniedError
// describing the reason on rejection.
func (p *AccessPolicy) Check(t *model.TenantContext, sourceRegion string) error {
	if t.IsRegionRestricted() && sourceRegion != "" && sourceRegion != t.DataRegion {
		return &DeniedError{Reason: DeniedCompliance}
	}
	if !p.limiterFor(t).Allow() {
		return &DeniedError{Reason: DeniedRateLimit}
	}
	return nil
}
