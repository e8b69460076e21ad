package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/netomi/che-server/internal/api"
	"github.com/netomi/che-server/internal/oauth"
	"github.com/netomi/che-server/internal/subject"
	"github.com/netomi/che-server/pkg/logging"
)

// Identity headers set by the authenticating gateway in front of the broker.
const (
	userIDHeader   = "X-Che-User-Id"
	userNameHeader = "X-Che-User-Name"
)

// errorResponse is the JSON body returned for failed API requests.
type errorResponse struct {
	Message string `json:"message"`
}

// createMux wires the broker endpoints.
func (s *Server) createMux() http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint for Kubernetes probes (unauthenticated)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.HandleFunc("GET /oauth/authenticate", s.handleAuthenticate)
	mux.HandleFunc("GET /oauth/callback", s.handleCallback)
	mux.HandleFunc("GET /oauth", s.handleRegisteredAuthenticators)
	mux.HandleFunc("GET /oauth/token", s.handleGetToken)
	mux.HandleFunc("DELETE /oauth/token", s.handleInvalidateToken)

	return subjectMiddleware(mux)
}

// subjectMiddleware attaches the gateway-provided identity headers to the
// request context. Requests without the headers proceed anonymously.
func subjectMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subj := subject.Subject{
			UserID:   r.Header.Get(userIDHeader),
			UserName: r.Header.Get(userNameHeader),
		}
		if !subj.IsAnonymous() {
			r = r.WithContext(subject.WithSubject(r.Context(), subj))
		}
		next.ServeHTTP(w, r)
	})
}

// handleAuthenticate starts an OAuth flow and redirects the user agent to
// the provider authorization page.
func (s *Server) handleAuthenticate(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	providerName := query.Get("oauth_provider")
	scopes := query["scope"]
	redirectAfterLogin := query.Get("redirect_after_login")

	authURL, err := s.broker.Authenticate(r.Context(), providerName, scopes, redirectAfterLogin)
	if err != nil {
		writeError(w, err)
		return
	}

	http.Redirect(w, r, authURL, http.StatusTemporaryRedirect)
}

// handleCallback finishes an OAuth flow after the provider redirects back.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	requestURL := s.publicURL.ResolveReference(&url.URL{
		Path:     r.URL.Path,
		RawQuery: r.URL.RawQuery,
	})

	redirect, err := s.broker.Callback(r.Context(), requestURL)
	if err != nil {
		if errors.Is(err, oauth.ErrInvalidState) {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, err)
		return
	}

	http.Redirect(w, r, redirect, http.StatusTemporaryRedirect)
}

// handleRegisteredAuthenticators returns the provider directory.
func (s *Server) handleRegisteredAuthenticators(w http.ResponseWriter, r *http.Request) {
	descriptors := s.broker.RegisteredAuthenticators(s.publicURL)
	writeJSON(w, http.StatusOK, descriptors)
}

// handleGetToken returns the stored token for the current subject.
func (s *Server) handleGetToken(w http.ResponseWriter, r *http.Request) {
	tok, err := s.broker.Token(r.Context(), r.URL.Query().Get("oauth_provider"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tok)
}

// handleInvalidateToken revokes and removes the stored token for the
// current subject.
func (s *Server) handleInvalidateToken(w http.ResponseWriter, r *http.Request) {
	if err := s.broker.InvalidateToken(r.Context(), r.URL.Query().Get("oauth_provider")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeError maps domain errors to HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case api.IsNotFound(err):
		writeJSONError(w, http.StatusNotFound, err.Error())
	case api.IsUnauthorized(err):
		writeJSONError(w, http.StatusUnauthorized, err.Error())
	default:
		logging.Error("Server", err, "Request failed")
		writeJSONError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Message: message})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Error("Server", err, "Failed to encode response")
	}
}
