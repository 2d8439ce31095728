package tenant

import "errors"

// Sentinel errors the orchestrator maps to HTTP status codes per
// spec.md §4.7: TenantMissing -> 400, TenantUnknown -> 404,
// TenantDenied -> 429/403.
var (
	// ErrMissing means no tenant identifier was found in any of the
	// five request locations (spec.md §4.1).
	ErrMissing = errors.New("tenant: no identifier present in request")

	// ErrUnknown means an identifier was found but does not resolve to
	// a directory entry.
	ErrUnknown = errors.New("tenant: identifier not found in directory")

	// ErrDenied means the tenant was resolved but rejected by an access
	// policy (rate limit or compliance tag).
	ErrDenied = errors.New("tenant: access denied by policy")
)

// DeniedReason distinguishes the two ErrDenied causes so the
// orchestrator can choose between 429 and 403.
type DeniedReason int

const (
	DeniedUnspecified DeniedReason = iota
	DeniedRateLimit
	DeniedCompliance
)

// DeniedError wraps ErrDenied with the specific reason.
type DeniedError struct {
	Reason DeniedReason
}

func (e *DeniedError) Error() string { return ErrDenied.Error() }
func (e *DeniedError) Unwrap() error { return ErrDenied }
