// Package token persists OAuth tokens per (provider, user) pair.
//
// Two backends are provided: an in-memory store for standalone and
// development deployments, and a Kubernetes store that keeps tokens in
// labeled Secrets for in-cluster deployments.
package token

import (
	"context"
	"time"
)

// PersonalAccessToken is a stored credential for a (provider, user) pair.
type PersonalAccessToken struct {
	// Provider is the registered OAuth provider name ("github", "gitlab", ...).
	Provider string `json:"provider"`

	// UserID is the platform user id the token belongs to.
	UserID string `json:"user_id"`

	// UserName is the login name of the same user. Lookups may match on
	// either identifier.
	UserName string `json:"user_name,omitempty"`

	// AccessToken is the credential value itself.
	AccessToken string `json:"access_token"`

	// TokenType is typically "Bearer".
	TokenType string `json:"token_type,omitempty"`

	// RefreshToken is used to obtain new access tokens (OAuth2 only).
	RefreshToken string `json:"refresh_token,omitempty"`

	// TokenSecret is the OAuth1 token secret paired with the access token.
	TokenSecret string `json:"token_secret,omitempty"`

	// Scope is the granted scope(s), space separated.
	Scope string `json:"scope,omitempty"`

	// ExpiresAt is the expiration timestamp; zero means no expiration.
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// IsExpired checks if the token has expired. Returns true if the token is
// expired or will expire within the given margin.
func (t *PersonalAccessToken) IsExpired(margin time.Duration) bool {
	if t.ExpiresAt.IsZero() {
		return false // Tokens without expiration don't expire
	}
	return time.Now().Add(margin).After(t.ExpiresAt)
}

// Manager stores and retrieves tokens for platform users.
//
// Get returns (nil, nil) when no token is stored for the given user key;
// errors indicate backend failures only. userKey may be either the user id
// or the login name, callers decide the fallback order.
type Manager interface {
	Get(ctx context.Context, provider, userKey string) (*PersonalAccessToken, error)
	Store(ctx context.Context, token *PersonalAccessToken) error
	Delete(ctx context.Context, provider, userKey string) error
}
