package tenant

import (
	"net/http"
	"strings"

	"github.com/manufacturing-platform/telemetry-gateway/internal/auth"
)

// extractor pulls a candidate tenant identifier out of a request. It
// returns ok=false when its source is absent, letting the chain fall
// through to the next one.
type extractor func(r *http.Request) (id string, ok bool)

// extractors is the ordered fallback chain from spec.md §4.1: header,
// then bearer JWT claim, then host subdomain, then query parameter,
// then API key prefix. DESIGN NOTES: "Preserve the order; structure as
// a sequence of identifier-extraction functions composed in a fallback
// chain."
func extractors(platformDomain string) []extractor {
	return []extractor{
		extractHeader,
		extractBearerJWT,
		extractHostSubdomain(platformDomain),
		extractQueryParam,
		extractAPIKey,
	}
}

func extractHeader(r *http.Request) (string, bool) {
	v := r.Header.Get("X-Tenant-ID")
	return v, v != ""
}

func extractBearerJWT(r *http.Request) (string, bool) {
	id, err := auth.TenantIDFromBearerToken(r.Header.Get("Authorization"))
	if err != nil {
		return "", false
	}
	return id, true
}

func extractHostSubdomain(platformDomain string) extractor {
	return func(r *http.Request) (string, bool) {
		host := r.Host
		if i := strings.IndexByte(host, ':'); i >= 0 {
			host = host[:i]
		}
		labels := strings.Split(host, ".")
		if len(labels) < 3 {
			return "", false
		}
		if labels[1] != platformDomain {
			return "", false
		}
		return labels[0], true
	}
}

func extractQueryParam(r *http.Request) (string, bool) {
	v := r.URL.Query().Get("tenant_id")
	return v, v != ""
}

func extractAPIKey(r *http.Request) (string, bool) {
	key := r.Header.Get("X-API-Key")
	if key == "" {
		return "", false
	}
	idx := strings.IndexByte(key, '_')
	if idx < 0 {
		return "", false
	}
	return key[:idx], true
}

// ResolveIdentifier walks the fallback chain and returns the first hit.
func ResolveIdentifier(r *http.Request, platformDomain string) (string, error) {
	for _, extract := range extractors(platformDomain) {
		if id, ok := extract(r); ok && id != "" {
			return id, nil
		}
	}
	return "", ErrMissing
}
