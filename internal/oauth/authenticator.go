package oauth

import (
	"context"
	"net/url"

	"github.com/netomi/che-server/internal/config"
	"github.com/netomi/che-server/internal/token"
)

// Authenticator implements the provider-specific half of an OAuth flow.
// The broker dispatches to one authenticator per registered provider;
// OAuth1 and OAuth2 implementations live behind the same interface and are
// distinguished by their Protocol tag.
type Authenticator interface {
	// Name returns the registered provider key.
	Name() string

	// Protocol reports the OAuth protocol version this provider speaks.
	Protocol() config.ProviderProtocol

	// EndpointURL returns the provider host for the provider directory.
	EndpointURL() string

	// AuthenticateURL builds the provider authorization URL that starts
	// the flow. The opaque state value must be round-tripped back to the
	// broker callback unchanged. An empty scopes slice falls back to the
	// provider's configured default scopes.
	AuthenticateURL(ctx context.Context, scopes []string, state string) (string, error)

	// Callback finishes the flow from the provider redirect, exchanging
	// the callback parameters for a token. The returned token carries
	// credential fields only; the broker attaches subject and provider.
	Callback(ctx context.Context, requestURL *url.URL) (*token.PersonalAccessToken, error)

	// InvalidateToken revokes the credential at the provider.
	InvalidateToken(ctx context.Context, t *token.PersonalAccessToken) error

	// SetClientSecret replaces the provider client secret. Called by the
	// secret watcher when the platform rotates a mounted secret file.
	SetClientSecret(secret string)
}
