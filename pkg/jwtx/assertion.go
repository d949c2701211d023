// Package jwtx builds and signs the JWT client assertions Stitch expects in
// place of a client secret on every token-endpoint request.
package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AssertionTTL is the lifetime stamped into every client assertion. The
// provider rejects assertions that outlive this window, and each carries a
// single-use jti, so assertions must never be cached across requests.
const AssertionTTL = time.Hour

// AssertionClaims are the claims of a client assertion: the client asserts
// its own identity (iss = sub = client id) to the token endpoint (aud).
type AssertionClaims struct {
	jwt.RegisteredClaims
}

// NewAssertionClaims builds claims for a single token-endpoint request.
// Every call mints a fresh jti and fresh timestamps; reusing a returned
// value for a second request violates the provider's replay rules.
func NewAssertionClaims(clientID, audience string, now time.Time) AssertionClaims {
	return AssertionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    clientID,
			Subject:   clientID,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(AssertionTTL)),
			ID:        uuid.NewString(),
		},
	}
}
