// Package auth provides JWT-based authentication for the owner-facing
// API. Tokens issued by the identity provider are validated against
// configured JWKS endpoints.
package auth

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// ClaimsKey is the context key for storing JWT claims.
	ClaimsKey contextKey = "claims"
	// TokenKey is the context key for storing the raw JWT token string.
	TokenKey contextKey = "token"
)

// Claims represents the JWT claims structure issued by the identity
// provider. It embeds RegisteredClaims for standard JWT fields
// (sub, iss, exp, etc.) and adds custom claims.
type Claims struct {
	jwt.RegisteredClaims
	Email string   `json:"email,omitempty"` // User email address
	Name  string   `json:"name,omitempty"`  // Display name
	Roles []string `json:"roles,omitempty"` // User roles
}

// GetClaims retrieves JWT claims from the request context.
// Returns nil and false if claims are not present.
func GetClaims(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*Claims)
	return claims, ok
}

// GetToken retrieves the raw JWT token string from the request context.
// Returns empty string and false if token is not present.
func GetToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(TokenKey).(string)
	return token, ok
}

// UserIDFromContext extracts the authenticated user ID (JWT subject)
// from context. Returns an error if not authenticated.
func UserIDFromContext(ctx context.Context) (string, error) {
	claims, ok := GetClaims(ctx)
	if !ok || claims == nil {
		return "", fmt.Errorf("authentication required: no claims in context")
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("missing user ID in JWT claims")
	}
	return claims.Subject, nil
}
