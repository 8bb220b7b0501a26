package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// Claims are the token claims the dashboard cares about.
type Claims struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Expired reports whether the token's exp claim has passed. Tokens without
// an exp claim never expire client-side.
func (c *Claims) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && now.After(c.ExpiresAt.Time)
}

// InspectToken decodes a bearer token's claims without verifying its
// signature. The dashboard never holds the signing secret; verification is
// the backend's job. This is only used to read expiry and identity fields.
func InspectToken(tokenStr string) (*Claims, error) {
	if tokenStr == "" {
		return nil, errors.New("empty token")
	}
	c := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, c); err != nil {
		return nil, err
	}
	return c, nil
}
