package oauth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/netomi/che-server/internal/config"
	"github.com/netomi/che-server/internal/token"
)

// knownEndpoints maps well-known provider names to their OAuth2 endpoints,
// so common providers need no endpoint URLs in the config.
var knownEndpoints = map[string]oauth2.Endpoint{
	"github":    endpoints.GitHub,
	"gitlab":    endpoints.GitLab,
	"bitbucket": endpoints.Bitbucket,
	"azure-devops": {
		AuthURL:  "https://app.vssps.visualstudio.com/oauth2/authorize",
		TokenURL: "https://app.vssps.visualstudio.com/oauth2/token",
	},
}

// OAuth2Authenticator drives the OAuth2 authorization-code flow for one
// provider on top of golang.org/x/oauth2.
type OAuth2Authenticator struct {
	name        string
	endpointURL string
	revokeURL   string

	// mu guards cfg; the client secret is replaced at runtime when the
	// platform rotates a mounted secret file.
	mu  sync.RWMutex
	cfg oauth2.Config

	httpClient *http.Client
}

// NewOAuth2Authenticator creates an authenticator from the provider config.
// callbackURL is the broker callback endpoint registered with the provider.
func NewOAuth2Authenticator(p config.ProviderConfig, callbackURL string) (*OAuth2Authenticator, error) {
	endpoint, known := knownEndpoints[p.Name]
	if p.AuthURL != "" && p.TokenURL != "" {
		endpoint = oauth2.Endpoint{AuthURL: p.AuthURL, TokenURL: p.TokenURL}
	} else if !known {
		return nil, fmt.Errorf("provider %q is not well-known, authURL and tokenURL are required", p.Name)
	}

	endpointURL := p.EndpointURL
	if endpointURL == "" {
		endpointURL = baseURL(endpoint.AuthURL)
	}

	return &OAuth2Authenticator{
		name:        p.Name,
		endpointURL: endpointURL,
		revokeURL:   p.RevokeURL,
		cfg: oauth2.Config{
			ClientID:     p.ClientID,
			ClientSecret: p.ClientSecret,
			Endpoint:     endpoint,
			RedirectURL:  callbackURL,
			Scopes:       p.Scopes,
		},
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Name returns the registered provider key.
func (a *OAuth2Authenticator) Name() string {
	return a.name
}

// Protocol reports oauth2.
func (a *OAuth2Authenticator) Protocol() config.ProviderProtocol {
	return config.ProtocolOAuth2
}

// EndpointURL returns the provider host.
func (a *OAuth2Authenticator) EndpointURL() string {
	return a.endpointURL
}

// SetClientSecret replaces the client secret used for code exchange.
func (a *OAuth2Authenticator) SetClientSecret(secret string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cfg.ClientSecret = secret
}

// configCopy returns a snapshot of the oauth2 config, optionally with the
// per-request scopes substituted for the configured defaults.
func (a *OAuth2Authenticator) configCopy(scopes []string) oauth2.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()

	cfg := a.cfg
	if len(scopes) > 0 {
		cfg.Scopes = scopes
	}
	return cfg
}

// AuthenticateURL builds the provider authorization URL for the flow.
func (a *OAuth2Authenticator) AuthenticateURL(_ context.Context, scopes []string, state string) (string, error) {
	cfg := a.configCopy(scopes)
	return cfg.AuthCodeURL(state), nil
}

// Callback exchanges the authorization code from the provider redirect for
// an access token.
func (a *OAuth2Authenticator) Callback(ctx context.Context, requestURL *url.URL) (*token.PersonalAccessToken, error) {
	code := requestURL.Query().Get("code")
	if code == "" {
		return nil, fmt.Errorf("callback is missing the code parameter")
	}

	cfg := a.configCopy(nil)
	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
	exchanged, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("code exchange with %s failed: %w", a.name, err)
	}

	t := &token.PersonalAccessToken{
		AccessToken:  exchanged.AccessToken,
		TokenType:    exchanged.Type(),
		RefreshToken: exchanged.RefreshToken,
		ExpiresAt:    exchanged.Expiry,
	}
	if scope, ok := exchanged.Extra("scope").(string); ok && scope != "" {
		t.Scope = scope
	} else {
		t.Scope = strings.Join(cfg.Scopes, " ")
	}
	return t, nil
}

// InvalidateToken revokes the token at the provider's revocation endpoint
// (RFC 7009). Providers without a configured revocation endpoint cannot
// invalidate tokens.
func (a *OAuth2Authenticator) InvalidateToken(ctx context.Context, t *token.PersonalAccessToken) error {
	if a.revokeURL == "" {
		return fmt.Errorf("provider %s does not support token revocation", a.name)
	}

	form := url.Values{}
	form.Set("token", t.AccessToken)
	form.Set("token_type_hint", "access_token")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	cfg := a.configCopy(nil)
	req.SetBasicAuth(cfg.ClientID, cfg.ClientSecret)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("revocation request to %s failed: %w", a.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("provider %s rejected token revocation: %s", a.name, resp.Status)
	}
	return nil
}

// baseURL reduces a full endpoint URL to its scheme://host form.
func baseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Scheme + "://" + u.Host
}
