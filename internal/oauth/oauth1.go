package oauth

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/dghubble/oauth1"

	"github.com/netomi/che-server/internal/config"
	"github.com/netomi/che-server/internal/token"
)

// requestSecretExpiry bounds how long an OAuth1 request-token secret is
// kept while waiting for the user to come back through the callback.
const requestSecretExpiry = 10 * time.Minute

type requestSecret struct {
	secret    string
	createdAt time.Time
}

// OAuth1Authenticator drives the three-legged OAuth1 flow for one provider
// on top of github.com/dghubble/oauth1. Used by legacy Bitbucket Server
// deployments.
type OAuth1Authenticator struct {
	name        string
	endpointURL string
	callbackURL string

	// mu guards cfg; the consumer secret is replaced at runtime when the
	// platform rotates a mounted secret file.
	mu  sync.RWMutex
	cfg oauth1.Config

	// Request-token secrets held between the authenticate and callback
	// calls, keyed by request token.
	secretsMu sync.Mutex
	secrets   map[string]requestSecret
}

// NewOAuth1Authenticator creates an authenticator from the provider config.
// callbackURL is the broker callback endpoint registered with the provider.
func NewOAuth1Authenticator(p config.ProviderConfig, callbackURL string) (*OAuth1Authenticator, error) {
	endpointURL := p.EndpointURL
	if endpointURL == "" {
		endpointURL = baseURL(p.AuthorizeURL)
	}

	return &OAuth1Authenticator{
		name:        p.Name,
		endpointURL: endpointURL,
		callbackURL: callbackURL,
		cfg: oauth1.Config{
			ConsumerKey:    p.ConsumerKey,
			ConsumerSecret: p.ClientSecret,
			Endpoint: oauth1.Endpoint{
				RequestTokenURL: p.RequestTokenURL,
				AuthorizeURL:    p.AuthorizeURL,
				AccessTokenURL:  p.AccessTokenURL,
			},
		},
		secrets: make(map[string]requestSecret),
	}, nil
}

// Name returns the registered provider key.
func (a *OAuth1Authenticator) Name() string {
	return a.name
}

// Protocol reports oauth1.
func (a *OAuth1Authenticator) Protocol() config.ProviderProtocol {
	return config.ProtocolOAuth1
}

// EndpointURL returns the provider host.
func (a *OAuth1Authenticator) EndpointURL() string {
	return a.endpointURL
}

// SetClientSecret replaces the consumer secret used for request signing.
func (a *OAuth1Authenticator) SetClientSecret(secret string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cfg.ConsumerSecret = secret
}

// configCopy returns a snapshot of the oauth1 config with the state value
// threaded through the callback URL. OAuth1 has no state parameter of its
// own, so the broker state rides along as a callback query parameter.
func (a *OAuth1Authenticator) configCopy(state string) oauth1.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()

	cfg := a.cfg
	if state != "" {
		cfg.CallbackURL = fmt.Sprintf("%s?state=%s", a.callbackURL, url.QueryEscape(state))
	} else {
		cfg.CallbackURL = a.callbackURL
	}
	return cfg
}

// AuthenticateURL obtains a request token from the provider and builds the
// authorization URL. OAuth1 has no scope concept; scopes are ignored.
func (a *OAuth1Authenticator) AuthenticateURL(_ context.Context, _ []string, state string) (string, error) {
	cfg := a.configCopy(state)

	requestToken, secret, err := cfg.RequestToken()
	if err != nil {
		return "", fmt.Errorf("request token from %s failed: %w", a.name, err)
	}

	a.secretsMu.Lock()
	a.pruneSecretsLocked()
	a.secrets[requestToken] = requestSecret{secret: secret, createdAt: time.Now()}
	a.secretsMu.Unlock()

	authorizationURL, err := cfg.AuthorizationURL(requestToken)
	if err != nil {
		return "", fmt.Errorf("authorization URL for %s failed: %w", a.name, err)
	}
	return authorizationURL.String(), nil
}

// Callback exchanges the authorized request token from the provider
// redirect for an access token.
func (a *OAuth1Authenticator) Callback(_ context.Context, requestURL *url.URL) (*token.PersonalAccessToken, error) {
	query := requestURL.Query()
	requestToken := query.Get("oauth_token")
	verifier := query.Get("oauth_verifier")
	if requestToken == "" || verifier == "" {
		return nil, fmt.Errorf("callback is missing oauth_token or oauth_verifier")
	}

	a.secretsMu.Lock()
	rs, exists := a.secrets[requestToken]
	delete(a.secrets, requestToken)
	a.secretsMu.Unlock()

	if !exists || time.Since(rs.createdAt) > requestSecretExpiry {
		return nil, fmt.Errorf("no pending authentication request for the callback token")
	}

	cfg := a.configCopy("")
	accessToken, accessSecret, err := cfg.AccessToken(requestToken, rs.secret, verifier)
	if err != nil {
		return nil, fmt.Errorf("access token exchange with %s failed: %w", a.name, err)
	}

	return &token.PersonalAccessToken{
		AccessToken: accessToken,
		TokenSecret: accessSecret,
		TokenType:   "oauth1",
	}, nil
}

// InvalidateToken is unsupported; the OAuth1 protocol has no revocation
// endpoint.
func (a *OAuth1Authenticator) InvalidateToken(_ context.Context, _ *token.PersonalAccessToken) error {
	return fmt.Errorf("provider %s does not support token revocation", a.name)
}

// pruneSecretsLocked drops expired request secrets; callers hold secretsMu.
func (a *OAuth1Authenticator) pruneSecretsLocked() {
	for requestToken, rs := range a.secrets {
		if time.Since(rs.createdAt) > requestSecretExpiry {
			delete(a.secrets, requestToken)
		}
	}
}
