// Package token decodes bearer tokens issued by the earnings API.
//
// Signatures are never verified: the backend is trusted and the client only needs the
// admin flag and expiry to gate logins and schedule refreshes.
package token

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/desertthunder/earnx/internal/shared"
)

// Claims holds the payload fields the console cares about. Absent fields are nil.
type Claims struct {
	Admin     *bool
	ExpiresAt *int64
	Subject   *string
	Type      *string
}

// IsAdmin reports whether the admin claim is present and exactly true.
func (c Claims) IsAdmin() bool {
	return c.Admin != nil && *c.Admin
}

var parser = jwt.NewParser()

// Decode extracts [Claims] from the payload segment of raw.
//
// Errors wrap [shared.ErrMalformedToken].
func Decode(raw string) (Claims, error) {
	segments := strings.Split(raw, ".")
	if len(segments) != 3 {
		return Claims{}, fmt.Errorf("%w: expected 3 segments, got %d", shared.ErrMalformedToken, len(segments))
	}

	payload, err := parser.DecodeSegment(segments[1])
	if err != nil {
		return Claims{}, fmt.Errorf("%w: payload is not base64url: %v", shared.ErrMalformedToken, err)
	}

	var mc jwt.MapClaims
	if err := json.Unmarshal(payload, &mc); err != nil {
		return Claims{}, fmt.Errorf("%w: payload is not a claims object: %v", shared.ErrMalformedToken, err)
	}
	if mc == nil {
		return Claims{}, fmt.Errorf("%w: empty payload", shared.ErrMalformedToken)
	}

	return fromMapClaims(mc)
}

func fromMapClaims(mc jwt.MapClaims) (Claims, error) {
	var c Claims

	if v, ok := mc["admin"]; ok && v != nil {
		admin, ok := v.(bool)
		if !ok {
			return Claims{}, fmt.Errorf("%w: admin claim is %T", shared.ErrMalformedToken, v)
		}
		c.Admin = &admin
	}

	exp, err := mc.GetExpirationTime()
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", shared.ErrMalformedToken, err)
	}
	if exp != nil {
		seconds := exp.Unix()
		c.ExpiresAt = &seconds
	}

	sub, err := mc.GetSubject()
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", shared.ErrMalformedToken, err)
	}
	if _, ok := mc["sub"]; ok {
		c.Subject = &sub
	}

	if v, ok := mc["type"].(string); ok {
		c.Type = &v
	}
	return c, nil
}

// SecondsUntilExpiry returns the remaining lifetime of raw relative to now.
// The boolean is false when the token cannot be decoded or carries no exp claim;
// callers treat that as already expiring.
func SecondsUntilExpiry(raw string, now time.Time) (int64, bool) {
	claims, err := Decode(raw)
	if err != nil || claims.ExpiresAt == nil {
		return 0, false
	}
	return *claims.ExpiresAt - now.Unix(), true
}

// ExpiresSoon reports whether raw should be refreshed given buffer seconds of lead time.
func ExpiresSoon(raw string, buffer int64, now time.Time) bool {
	remaining, ok := SecondsUntilExpiry(raw, now)
	return !ok || remaining <= buffer
}
