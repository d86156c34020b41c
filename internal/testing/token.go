package testing

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const signingKey = "earnx-test-signing-key"

// SignToken signs claims with a fixed HMAC key. The console never verifies signatures,
// so the key only exists to produce well-formed three segment tokens.
func SignToken(claims jwt.MapClaims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(signingKey))
}

// MustMintToken signs claims or fails the test.
func MustMintToken(t testing.TB, claims jwt.MapClaims) string {
	t.Helper()
	raw, err := SignToken(claims)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return raw
}

// AccessToken mints an access token for an admin (or not) that expires after ttl.
func AccessToken(t testing.TB, admin bool, ttl time.Duration) string {
	t.Helper()
	return MustMintToken(t, jwt.MapClaims{
		"admin": admin,
		"sub":   "user-123",
		"type":  "access",
		"exp":   time.Now().Add(ttl).Unix(),
	})
}
