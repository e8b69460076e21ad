package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/netomi/che-server/internal/api"
	"github.com/netomi/che-server/internal/subject"
	"github.com/netomi/che-server/internal/token"
	"github.com/netomi/che-server/pkg/logging"
)

// ErrorQueryName is the query parameter appended to the post-login
// redirect when the provider reports a failure.
const ErrorQueryName = "error_code"

// accessDeniedError is the error code appended to the redirect.
const accessDeniedError = "access_denied"

// ErrInvalidState is returned by Callback when the state parameter is
// missing, malformed, expired, or was not issued by this broker.
var ErrInvalidState = errors.New("invalid or expired state parameter")

// Broker orchestrates OAuth flows across the registered providers: it
// dispatches authentication requests by provider name, handles the
// provider callback, and stores and looks up tokens for the current
// subject. All per-flow data travels in the state parameter, so a single
// broker instance serves concurrent requests safely.
type Broker struct {
	registry *Registry
	states   *StateStore
	tokens   token.Manager

	// errorPage is where callbacks land when they cannot be tied to an
	// in-flight authentication request.
	errorPage string
}

// NewBroker creates a broker over the given registry and token manager.
// errorPage may be empty; callbacks without a usable redirect then fail
// with ErrInvalidState instead of redirecting.
func NewBroker(registry *Registry, tokens token.Manager, errorPage string) *Broker {
	return &Broker{
		registry:  registry,
		states:    NewStateStore(),
		tokens:    tokens,
		errorPage: errorPage,
	}
}

// Stop releases broker resources.
func (b *Broker) Stop() {
	b.states.Stop()
}

// Authenticate starts an OAuth flow with the named provider and returns
// the provider authorization URL to redirect the user to. The redirect
// target, requested scopes, and current subject are sealed into the state
// parameter for the callback.
func (b *Broker) Authenticate(ctx context.Context, providerName string, scopes []string, redirectAfterLogin string) (string, error) {
	authenticator, err := b.registry.Get(providerName)
	if err != nil {
		return "", err
	}

	state := &CallbackState{
		Provider:           providerName,
		Scopes:             scopes,
		RedirectAfterLogin: redirectAfterLogin,
	}
	if subj, ok := subject.FromContext(ctx); ok {
		state.UserID = subj.UserID
		state.UserName = subj.UserName
	}

	encodedState, err := b.states.Encode(state)
	if err != nil {
		return "", api.NewServerError(err, "failed to encode state parameter")
	}

	authURL, err := authenticator.AuthenticateURL(ctx, scopes, encodedState)
	if err != nil {
		return "", api.NewServerError(err, "failed to build authorization URL for provider %s", providerName)
	}

	logging.Debug("OAuth", "Started %s flow for provider=%s redirect=%s",
		authenticator.Protocol(), providerName, redirectAfterLogin)
	return authURL, nil
}

// Callback finishes an OAuth flow from the provider redirect and returns
// the URL to send the user to. Provider-side failures surface as a
// redirect to the stored post-login URL with an appended error code, not
// as an HTTP error.
func (b *Broker) Callback(ctx context.Context, requestURL *url.URL) (string, error) {
	query := requestURL.Query()

	state := b.states.Validate(query.Get("state"))
	if state == nil {
		if b.errorPage != "" {
			return appendErrorCode(b.errorPage, accessDeniedError), nil
		}
		return "", ErrInvalidState
	}

	if errorValues := query["error"]; containsAccessDenied(errorValues) {
		logging.Warn("OAuth", "Provider %s denied access for user=%s", state.Provider, state.UserID)
		return b.errorRedirect(state)
	}

	authenticator, err := b.registry.Get(state.Provider)
	if err != nil {
		return "", err
	}

	exchanged, err := authenticator.Callback(ctx, requestURL)
	if err != nil {
		logging.Error("OAuth", err, "Callback for provider %s failed", state.Provider)
		return b.errorRedirect(state)
	}

	exchanged.Provider = state.Provider
	exchanged.UserID = state.UserID
	exchanged.UserName = state.UserName
	if exchanged.Scope == "" {
		exchanged.Scope = strings.Join(state.Scopes, " ")
	}

	if err := b.tokens.Store(ctx, exchanged); err != nil {
		return "", api.NewServerError(err, "failed to store token for provider %s", state.Provider)
	}

	logging.Info("OAuth", "Completed %s flow for provider=%s user=%s",
		authenticator.Protocol(), state.Provider, state.UserID)
	return state.RedirectAfterLogin, nil
}

// errorRedirect picks where a failed flow lands: the post-login URL from
// the state when present, the configured error page otherwise. Flows with
// neither fail with ErrInvalidState.
func (b *Broker) errorRedirect(state *CallbackState) (string, error) {
	if state.RedirectAfterLogin != "" {
		return appendErrorCode(state.RedirectAfterLogin, accessDeniedError), nil
	}
	if b.errorPage != "" {
		return appendErrorCode(b.errorPage, accessDeniedError), nil
	}
	return "", ErrInvalidState
}

// RegisteredAuthenticators returns descriptors for every registered
// provider, each with a self-referential authenticate link derived from
// the request base URL. A path prefix on the base URL is preserved, so
// deployments behind a path-routing gateway advertise routable links.
func (b *Broker) RegisteredAuthenticators(baseURL *url.URL) []ProviderDescriptor {
	authenticateHref := baseURL.JoinPath("oauth", "authenticate").String()

	authenticators := b.registry.All()
	descriptors := make([]ProviderDescriptor, 0, len(authenticators))
	for _, a := range authenticators {
		descriptors = append(descriptors, ProviderDescriptor{
			Name:        a.Name(),
			EndpointURL: a.EndpointURL(),
			Links: []Link{
				{
					Rel:    "Authenticate URL",
					Method: "GET",
					Href:   authenticateHref,
					Parameters: []LinkParameter{
						{Name: "oauth_provider", Required: true, DefaultValue: a.Name()},
						{Name: "mode", Required: true, DefaultValue: "federated_login"},
					},
				},
			},
		})
	}
	return descriptors
}

// Token returns the stored token for the current subject and the named
// provider. Lookup is by user id first, then by username.
func (b *Broker) Token(ctx context.Context, providerName string) (*Token, error) {
	stored, err := b.lookupToken(ctx, providerName)
	if err != nil {
		return nil, err
	}
	return &Token{Token: stored.AccessToken, Scope: stored.Scope}, nil
}

// InvalidateToken revokes the stored token for the current subject and
// the named provider, then removes the persisted copy. Revocation or
// persistence failures collapse to Unauthorized.
func (b *Broker) InvalidateToken(ctx context.Context, providerName string) error {
	authenticator, err := b.registry.Get(providerName)
	if err != nil {
		return err
	}

	notFound := api.NewUnauthorizedError("OAuth token for provider %s was not found", providerName)

	stored, err := b.lookupToken(ctx, providerName)
	if err != nil {
		if api.IsNotFound(err) {
			return err
		}
		return notFound
	}

	if err := authenticator.InvalidateToken(ctx, stored); err != nil {
		logging.Warn("OAuth", "Failed to revoke token for provider %s: %v", providerName, err)
		return notFound
	}

	if err := b.tokens.Delete(ctx, providerName, stored.UserID); err != nil {
		logging.Warn("OAuth", "Failed to delete stored token for provider %s: %v", providerName, err)
		return notFound
	}
	return nil
}

// lookupToken resolves the stored token for the current subject, falling
// back from user id to username.
func (b *Broker) lookupToken(ctx context.Context, providerName string) (*token.PersonalAccessToken, error) {
	if _, err := b.registry.Get(providerName); err != nil {
		return nil, err
	}

	subj, ok := subject.FromContext(ctx)
	if !ok || subj.IsAnonymous() {
		return nil, api.NewUnauthorizedError("no authenticated subject on the request")
	}

	stored, err := b.tokens.Get(ctx, providerName, subj.UserID)
	if err != nil {
		return nil, api.NewServerError(err, "token lookup for provider %s failed", providerName)
	}
	if stored == nil && subj.UserName != "" {
		stored, err = b.tokens.Get(ctx, providerName, subj.UserName)
		if err != nil {
			return nil, api.NewServerError(err, "token lookup for provider %s failed", providerName)
		}
	}
	if stored == nil {
		return nil, api.NewUnauthorizedError("OAuth token for user %s was not found", subj.UserID)
	}
	return stored, nil
}

// appendErrorCode adds the error indicator to the redirect URL, re-encoding
// the query so redirect URLs carrying JSON survive parsing downstream.
func appendErrorCode(redirectURL, errorCode string) string {
	u, err := url.Parse(redirectURL)
	if err != nil {
		// Last resort: raw append keeps the indicator visible.
		return fmt.Sprintf("%s&%s=%s", redirectURL, ErrorQueryName, errorCode)
	}
	query := u.Query()
	query.Set(ErrorQueryName, errorCode)
	u.RawQuery = query.Encode()
	return u.String()
}

func containsAccessDenied(values []string) bool {
	for _, v := range values {
		if v == accessDeniedError {
			return true
		}
	}
	return false
}
