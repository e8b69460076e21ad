package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/netomi/che-server/internal/config"
	"github.com/netomi/che-server/internal/oauth"
	"github.com/netomi/che-server/internal/token"
)

// stubAuthenticator is a minimal in-memory provider for handler tests.
type stubAuthenticator struct {
	name        string
	callbackTok *token.PersonalAccessToken
	revoked     bool
}

func (s *stubAuthenticator) Name() string { return s.name }

func (s *stubAuthenticator) Protocol() config.ProviderProtocol { return config.ProtocolOAuth2 }

func (s *stubAuthenticator) EndpointURL() string { return "https://" + s.name + ".example.com" }

func (s *stubAuthenticator) SetClientSecret(string) {}

func (s *stubAuthenticator) AuthenticateURL(_ context.Context, _ []string, state string) (string, error) {
	return "https://" + s.name + ".example.com/authorize?state=" + url.QueryEscape(state), nil
}

func (s *stubAuthenticator) Callback(context.Context, *url.URL) (*token.PersonalAccessToken, error) {
	tok := *s.callbackTok
	return &tok, nil
}

func (s *stubAuthenticator) InvalidateToken(context.Context, *token.PersonalAccessToken) error {
	s.revoked = true
	return nil
}

func newTestServer(t *testing.T) (*Server, *token.MemoryManager, *stubAuthenticator) {
	t.Helper()

	stub := &stubAuthenticator{
		name: "github",
		callbackTok: &token.PersonalAccessToken{
			AccessToken: "gho_secret",
			TokenType:   "Bearer",
			Scope:       "repo",
		},
	}

	registry := oauth.NewRegistry()
	if err := registry.Register(stub); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	tokens := token.NewMemoryManager()
	t.Cleanup(tokens.Stop)

	broker := oauth.NewBroker(registry, tokens, "")
	t.Cleanup(broker.Stop)

	srv, err := New(config.ServerConfig{
		Host:      "localhost",
		Port:      8080,
		PublicURL: "https://che.example.com",
	}, broker)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return srv, tokens, stub
}

func doRequest(t *testing.T, srv *Server, method, target string, asUser bool) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, nil)
	if asUser {
		req.Header.Set("X-Che-User-Id", "user-1")
		req.Header.Set("X-Che-User-Name", "octocat")
	}
	rec := httptest.NewRecorder()
	srv.createMux().ServeHTTP(rec, req)
	return rec
}

func TestHandleAuthenticate_RedirectsToProvider(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet,
		"/oauth/authenticate?oauth_provider=github&scope=repo&redirect_after_login=https%3A%2F%2Fche.example.com%2Fdashboard", true)

	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("Expected 307, got %d: %s", rec.Code, rec.Body.String())
	}
	location := rec.Header().Get("Location")
	parsed, err := url.Parse(location)
	if err != nil {
		t.Fatalf("Location is not a URL: %q", location)
	}
	if parsed.Host != "github.example.com" {
		t.Errorf("Unexpected redirect host: %q", location)
	}
	if parsed.Query().Get("state") == "" {
		t.Errorf("Expected state parameter in redirect: %q", location)
	}
}

func TestHandleAuthenticate_UnknownProvider(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/oauth/authenticate?oauth_provider=bogus", true)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d", rec.Code)
	}
	var body errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Response is not JSON: %s", rec.Body.String())
	}
	if body.Message != "unsupported OAuth provider bogus" {
		t.Errorf("Unexpected message: %q", body.Message)
	}
}

func TestCallbackFlow_StoresTokenAndRedirects(t *testing.T) {
	srv, tokens, _ := newTestServer(t)

	// Start a flow to obtain a valid state parameter.
	rec := doRequest(t, srv, http.MethodGet,
		"/oauth/authenticate?oauth_provider=github&redirect_after_login=https%3A%2F%2Fche.example.com%2Fdashboard", true)
	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("Authenticate failed: %d", rec.Code)
	}
	authLocation, _ := url.Parse(rec.Header().Get("Location"))
	state := authLocation.Query().Get("state")

	rec = doRequest(t, srv, http.MethodGet, "/oauth/callback?code=abc&state="+url.QueryEscape(state), false)
	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("Expected 307, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Location"); got != "https://che.example.com/dashboard" {
		t.Errorf("Unexpected redirect: %q", got)
	}

	stored, err := tokens.Get(context.Background(), "github", "user-1")
	if err != nil || stored == nil {
		t.Fatalf("Expected stored token, got %v, %v", stored, err)
	}
}

func TestHandleCallback_InvalidState(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/oauth/callback?code=abc&state=garbage", false)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rec.Code)
	}
}

func TestHandleRegisteredAuthenticators(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/oauth", false)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var descriptors []oauth.ProviderDescriptor
	if err := json.Unmarshal(rec.Body.Bytes(), &descriptors); err != nil {
		t.Fatalf("Response is not JSON: %s", rec.Body.String())
	}
	if len(descriptors) != 1 || descriptors[0].Name != "github" {
		t.Fatalf("Unexpected directory: %+v", descriptors)
	}
	if len(descriptors[0].Links) != 1 ||
		descriptors[0].Links[0].Href != "https://che.example.com/oauth/authenticate" {
		t.Errorf("Unexpected links: %+v", descriptors[0].Links)
	}
}

func TestHandleGetToken(t *testing.T) {
	srv, tokens, _ := newTestServer(t)

	if err := tokens.Store(context.Background(), &token.PersonalAccessToken{
		Provider:    "github",
		UserID:      "user-1",
		AccessToken: "gho_secret",
		Scope:       "repo",
	}); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	rec := doRequest(t, srv, http.MethodGet, "/oauth/token?oauth_provider=github", true)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var tok oauth.Token
	if err := json.Unmarshal(rec.Body.Bytes(), &tok); err != nil {
		t.Fatalf("Response is not JSON: %s", rec.Body.String())
	}
	if tok.Token != "gho_secret" || tok.Scope != "repo" {
		t.Errorf("Unexpected token: %+v", tok)
	}
}

func TestHandleGetToken_AnonymousRequest(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/oauth/token?oauth_provider=github", false)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401, got %d", rec.Code)
	}
}

func TestHandleInvalidateToken(t *testing.T) {
	srv, tokens, stub := newTestServer(t)

	if err := tokens.Store(context.Background(), &token.PersonalAccessToken{
		Provider:    "github",
		UserID:      "user-1",
		AccessToken: "gho_secret",
	}); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	rec := doRequest(t, srv, http.MethodDelete, "/oauth/token?oauth_provider=github", true)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d: %s", rec.Code, rec.Body.String())
	}
	if !stub.revoked {
		t.Error("Expected revocation call to the provider")
	}
	if stored, _ := tokens.Get(context.Background(), "github", "user-1"); stored != nil {
		t.Errorf("Expected token removal, got %+v", stored)
	}
}

func TestHandleInvalidateToken_MissingToken(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodDelete, "/oauth/token?oauth_provider=github", true)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401, got %d", rec.Code)
	}
}
