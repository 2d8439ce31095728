// Package auth adapts the teacher's internal/auth package (which owned
// full JWT issuance and bcrypt-verified username/password login) down to
// the one capability the tenant directory actually needs: pulling a
// tenant_id claim out of a bearer token without needing to be its
// issuer. The directory is a relying party here, not an identity
// provider, so full HMAC verification and password auth (teacher's
// AuthManager.AuthenticateUser, GenerateJWT, HashPassword/bcrypt) have
// no home in this spec and are dropped — see DESIGN.md.
package auth

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"

	"github.com/dgrijalva/jwt-go"
)

// ErrNotJWTShaped is returned when the input does not look like a
// three-segment JWT at all.
var ErrNotJWTShaped = errors.New("auth: value is not JWT-shaped")

// claimsPayload mirrors the single claim the tenant resolution chain
// cares about; unknown claims are ignored.
type claimsPayload struct {
	TenantID string `json:"tenant_id"`
	jwt.StandardClaims
}

// TenantIDFromBearerToken base64-decodes the middle segment of a
// JWT-shaped bearer token and returns its tenant_id claim, per spec.md
// §4.1 resolution order item 2. It does not verify the signature: the
// tenant directory is not the token's issuer, and signature
// verification is out of scope for tenant resolution (an upstream
// auth gateway, out of scope per spec.md §1, owns that).
func TenantIDFromBearerToken(authorizationHeader string) (string, error) {
	const prefix = "Bearer "
	if !strings.HasPrefix(authorizationHeader, prefix) {
		return "", ErrNotJWTShaped
	}
	token := strings.TrimPrefix(authorizationHeader, prefix)
	segments := strings.Split(token, ".")
	if len(segments) != 3 {
		return "", ErrNotJWTShaped
	}

	payload, err := base64.RawURLEncoding.DecodeString(segments[1])
	if err != nil {
		// Some issuers use standard (padded) base64.
		payload, err = base64.StdEncoding.DecodeString(segments[1])
		if err != nil {
			return "", err
		}
	}

	var claims claimsPayload
	if err := json.Unmarshal(payload, &claims); err != nil {
		return "", err
	}
	if claims.TenantID == "" {
		return "", errors.New("auth: bearer token carries no tenant_id claim")
	}
	return claims.TenantID, nil
}
