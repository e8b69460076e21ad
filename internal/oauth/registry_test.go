package oauth

import (
	"context"
	"net/url"
	"testing"

	"github.com/netomi/che-server/internal/api"
	"github.com/netomi/che-server/internal/config"
	"github.com/netomi/che-server/internal/token"
)

// fakeAuthenticator is a scriptable Authenticator for broker and registry
// tests.
type fakeAuthenticator struct {
	name     string
	protocol config.ProviderProtocol
	endpoint string

	authURL      string
	authErr      error
	callbackTok  *token.PersonalAccessToken
	callbackErr  error
	revokeErr    error
	revokedWith  string
	clientSecret string
}

func (f *fakeAuthenticator) Name() string { return f.name }

func (f *fakeAuthenticator) Protocol() config.ProviderProtocol { return f.protocol }

func (f *fakeAuthenticator) EndpointURL() string { return f.endpoint }

func (f *fakeAuthenticator) SetClientSecret(secret string) { f.clientSecret = secret }

func (f *fakeAuthenticator) AuthenticateURL(_ context.Context, _ []string, state string) (string, error) {
	if f.authErr != nil {
		return "", f.authErr
	}
	return f.authURL + "?state=" + url.QueryEscape(state), nil
}
func (f *fakeAuthenticator) Callback(_ context.Context, _ *url.URL) (*token.PersonalAccessToken, error) {
	if f.callbackErr != nil {
		return nil, f.callbackErr
	}
	tok := *f.callbackTok
	return &tok, nil
}
func (f *fakeAuthenticator) InvalidateToken(_ context.Context, t *token.PersonalAccessToken) error {
	f.revokedWith = t.AccessToken
	return f.revokeErr
}

func newFakeGitHub() *fakeAuthenticator {
	return &fakeAuthenticator{
		name:     "github",
		protocol: config.ProtocolOAuth2,
		endpoint: "https://github.com",
		authURL:  "https://github.com/login/oauth/authorize",
		callbackTok: &token.PersonalAccessToken{
			AccessToken: "gho_secret",
			TokenType:   "Bearer",
			Scope:       "repo",
		},
	}
}

func newFakeBitbucketServer() *fakeAuthenticator {
	return &fakeAuthenticator{
		name:     "bitbucket-server",
		protocol: config.ProtocolOAuth1,
		endpoint: "https://bitbucket.example.com",
		authURL:  "https://bitbucket.example.com/plugins/servlet/oauth/authorize",
		callbackTok: &token.PersonalAccessToken{
			AccessToken: "bb_token",
			TokenSecret: "bb_secret",
			TokenType:   "oauth1",
		},
	}
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(newFakeGitHub()); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	a, err := r.Get("github")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if a.Name() != "github" {
		t.Errorf("Unexpected authenticator: %s", a.Name())
	}
}

func TestRegistry_GetUnregistered(t *testing.T) {
	r := NewRegistry()

	_, err := r.Get("bogus")
	if err == nil {
		t.Fatal("Expected error for unregistered provider")
	}
	if !api.IsNotFound(err) {
		t.Errorf("Expected NotFoundError, got %T: %v", err, err)
	}
}

func TestRegistry_RejectsDuplicateNamesAcrossProtocols(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(newFakeGitHub()); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	duplicate := newFakeBitbucketServer()
	duplicate.name = "github"
	if err := r.Register(duplicate); err == nil {
		t.Error("Expected duplicate registration to fail")
	}
}

func TestRegistry_NamesSorted(t *testing.T) {
	r := NewRegistry()
	for _, a := range []Authenticator{newFakeBitbucketServer(), newFakeGitHub()} {
		if err := r.Register(a); err != nil {
			t.Fatalf("Register failed: %v", err)
		}
	}

	names := r.Names()
	if len(names) != 2 || names[0] != "bitbucket-server" || names[1] != "github" {
		t.Errorf("Unexpected names: %v", names)
	}
}

func TestNewRegistryFromConfig(t *testing.T) {
	providers := []config.ProviderConfig{
		{
			Name:         "github",
			Protocol:     config.ProtocolOAuth2,
			ClientID:     "che-client",
			ClientSecret: "shhh",
			Scopes:       []string{"repo"},
		},
		{
			Name:            "bitbucket-server",
			Protocol:        config.ProtocolOAuth1,
			EndpointURL:     "https://bitbucket.example.com",
			ConsumerKey:     "che",
			ClientSecret:    "shhh",
			RequestTokenURL: "https://bitbucket.example.com/plugins/servlet/oauth/request-token",
			AuthorizeURL:    "https://bitbucket.example.com/plugins/servlet/oauth/authorize",
			AccessTokenURL:  "https://bitbucket.example.com/plugins/servlet/oauth/access-token",
		},
	}

	registry, err := NewRegistryFromConfig(providers, "https://che.example.com/oauth/callback", config.NewSecretWatcher())
	if err != nil {
		t.Fatalf("NewRegistryFromConfig failed: %v", err)
	}

	github, err := registry.Get("github")
	if err != nil {
		t.Fatalf("Get github failed: %v", err)
	}
	if github.Protocol() != config.ProtocolOAuth2 {
		t.Errorf("Unexpected protocol: %s", github.Protocol())
	}

	bitbucket, err := registry.Get("bitbucket-server")
	if err != nil {
		t.Fatalf("Get bitbucket-server failed: %v", err)
	}
	if bitbucket.Protocol() != config.ProtocolOAuth1 {
		t.Errorf("Unexpected protocol: %s", bitbucket.Protocol())
	}
}

func TestNewRegistryFromConfig_UnknownOAuth2ProviderNeedsEndpoints(t *testing.T) {
	providers := []config.ProviderConfig{
		{
			Name:         "my-forge",
			Protocol:     config.ProtocolOAuth2,
			ClientID:     "che-client",
			ClientSecret: "shhh",
		},
	}

	_, err := NewRegistryFromConfig(providers, "https://che.example.com/oauth/callback", config.NewSecretWatcher())
	if err == nil {
		t.Error("Expected error for unknown provider without endpoint URLs")
	}
}
