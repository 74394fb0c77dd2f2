package upstream

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const expiryLeeway = 10 * time.Second

// tokenExpired peeks at the access token's exp claim without verifying the
// signature; the gateway holds no upstream key material. Opaque or
// claim-less tokens are assumed live and left to the upstream 401 path.
func tokenExpired(rawToken string) bool {
	var claims jwt.RegisteredClaims
	parser := jwt.NewParser()
	_, _, err := parser.ParseUnverified(rawToken, &claims)
	if err != nil || claims.ExpiresAt == nil {
		return false
	}

	return claims.ExpiresAt.Time.Before(time.Now().UTC().Add(expiryLeeway))
}
