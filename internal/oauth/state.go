package oauth

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"sync"
	"time"

	"github.com/netomi/che-server/pkg/logging"
)

// CallbackState is the bag of query parameters round-tripped through the
// provider in the OAuth "state" parameter. Everything the callback needs
// travels in here; the broker keeps no per-flow fields, so concurrent
// authentication requests cannot observe each other's redirect targets.
type CallbackState struct {
	// Provider is the registered provider name the flow belongs to.
	Provider string `json:"oauth_provider"`

	// Scopes are the scopes the flow was started with.
	Scopes []string `json:"scope,omitempty"`

	// RedirectAfterLogin is where the user lands once the flow completes.
	RedirectAfterLogin string `json:"redirect_after_login,omitempty"`

	// UserID and UserName identify the subject who started the flow.
	UserID   string `json:"user_id,omitempty"`
	UserName string `json:"user_name,omitempty"`

	// Nonce is a random value for CSRF and replay protection.
	Nonce string `json:"nonce"`

	// CreatedAt is when the state was created (for expiration).
	CreatedAt time.Time `json:"created_at"`
}

// StateStore issues and validates state parameters. The parameter itself
// carries the flow data; the store only tracks issued nonces so a callback
// can be tied to an authentication request this broker actually started.
type StateStore struct {
	mu     sync.RWMutex
	nonces map[string]time.Time

	stateExpiry time.Duration
	stopCleanup chan struct{}
	stopOnce    sync.Once
}

// NewStateStore creates a new state store with default expiration.
func NewStateStore() *StateStore {
	ss := &StateStore{
		nonces:      make(map[string]time.Time),
		stateExpiry: 10 * time.Minute, // State expires after 10 minutes
		stopCleanup: make(chan struct{}),
	}

	// Start background cleanup
	go ss.cleanupLoop()

	return ss
}

// Encode fills in the nonce and timestamp, records the nonce, and returns
// the encoded state string to include in the authorization URL.
func (ss *StateStore) Encode(state *CallbackState) (string, error) {
	nonce := make([]byte, 32)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	state.Nonce = base64.RawURLEncoding.EncodeToString(nonce)
	state.CreatedAt = time.Now()

	stateJSON, err := json.Marshal(state)
	if err != nil {
		return "", err
	}

	ss.mu.Lock()
	ss.nonces[state.Nonce] = state.CreatedAt
	ss.mu.Unlock()

	logging.Debug("OAuth", "Generated state for provider=%s user=%s", state.Provider, state.UserID)
	return base64.RawURLEncoding.EncodeToString(stateJSON), nil
}

// Validate decodes a state parameter from a callback and checks it against
// the issued nonces. Returns the decoded state if valid, nil if the state
// is malformed, unknown, or expired. A nonce validates exactly once.
func (ss *StateStore) Validate(encodedState string) *CallbackState {
	stateJSON, err := base64.RawURLEncoding.DecodeString(encodedState)
	if err != nil {
		logging.Warn("OAuth", "Failed to decode state: %v", err)
		return nil
	}

	var state CallbackState
	if err := json.Unmarshal(stateJSON, &state); err != nil {
		logging.Warn("OAuth", "Failed to unmarshal state: %v", err)
		return nil
	}

	ss.mu.RLock()
	issuedAt, exists := ss.nonces[state.Nonce]
	ss.mu.RUnlock()

	if !exists {
		logging.Warn("OAuth", "State not found in store: nonce=%s", state.Nonce)
		return nil
	}

	if time.Since(issuedAt) > ss.stateExpiry {
		logging.Warn("OAuth", "State expired: nonce=%s age=%v", state.Nonce, time.Since(issuedAt))
		ss.delete(state.Nonce)
		return nil
	}

	// State is valid; delete the nonce to prevent replay.
	ss.delete(state.Nonce)

	return &state
}

// delete removes a nonce from the store.
func (ss *StateStore) delete(nonce string) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	delete(ss.nonces, nonce)
}

// Stop stops the background cleanup goroutine.
func (ss *StateStore) Stop() {
	ss.stopOnce.Do(func() { close(ss.stopCleanup) })
}

// cleanupLoop periodically removes expired nonces from the store.
func (ss *StateStore) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ss.cleanup()
		case <-ss.stopCleanup:
			return
		}
	}
}

// cleanup removes all expired nonces from the store.
func (ss *StateStore) cleanup() {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	count := 0
	for nonce, issuedAt := range ss.nonces {
		if time.Since(issuedAt) > ss.stateExpiry {
			delete(ss.nonces, nonce)
			count++
		}
	}

	if count > 0 {
		logging.Debug("OAuth", "Cleaned up %d expired states", count)
	}
}
