package token

import (
	"context"
	"sync"
	"time"

	"github.com/netomi/che-server/pkg/logging"
)

// tokenExpiryMargin is the margin applied when checking token expiration.
// This accounts for clock skew between systems and network latency.
const tokenExpiryMargin = 30 * time.Second

// storeKey uniquely identifies a token in the in-memory store.
type storeKey struct {
	Provider string
	UserID   string
}

// MemoryManager is a thread-safe in-memory token store used in standalone
// deployments. Expired tokens are dropped by a background cleanup loop.
type MemoryManager struct {
	mu     sync.RWMutex
	tokens map[storeKey]*PersonalAccessToken

	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	stopOnce        sync.Once
}

// NewMemoryManager creates a new in-memory token store and starts its
// cleanup goroutine.
func NewMemoryManager() *MemoryManager {
	m := &MemoryManager{
		tokens:          make(map[storeKey]*PersonalAccessToken),
		cleanupInterval: 5 * time.Minute,
		stopCleanup:     make(chan struct{}),
	}

	go m.cleanupLoop()

	return m
}

// Get returns the stored token matching the provider and user key. The key
// matches on either the user id or the login name. Returns (nil, nil) when
// no live token exists.
func (m *MemoryManager) Get(_ context.Context, provider, userKey string) (*PersonalAccessToken, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if t, ok := m.tokens[storeKey{Provider: provider, UserID: userKey}]; ok {
		if !t.IsExpired(tokenExpiryMargin) {
			return t, nil
		}
		return nil, nil
	}

	// Fall back to a login-name match.
	for key, t := range m.tokens {
		if key.Provider == provider && t.UserName == userKey {
			if !t.IsExpired(tokenExpiryMargin) {
				return t, nil
			}
			return nil, nil
		}
	}
	return nil, nil
}

// Store saves a token, replacing any previous token for the same
// (provider, user) pair.
func (m *MemoryManager) Store(_ context.Context, t *PersonalAccessToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tokens[storeKey{Provider: t.Provider, UserID: t.UserID}] = t
	logging.Debug("TokenStore", "Stored token for user=%s provider=%s (expires: %v)",
		t.UserID, t.Provider, t.ExpiresAt)
	return nil
}

// Delete removes the token for the provider and user key, matching on
// either identifier. Deleting an absent token is not an error.
func (m *MemoryManager) Delete(_ context.Context, provider, userKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, t := range m.tokens {
		if key.Provider == provider && (key.UserID == userKey || t.UserName == userKey) {
			delete(m.tokens, key)
			logging.Debug("TokenStore", "Deleted token for user=%s provider=%s", userKey, provider)
			return nil
		}
	}
	return nil
}

// Count returns the number of tokens in the store.
func (m *MemoryManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tokens)
}

// Stop stops the background cleanup goroutine.
func (m *MemoryManager) Stop() {
	m.stopOnce.Do(func() { close(m.stopCleanup) })
}

// cleanupLoop periodically removes expired tokens from the store.
func (m *MemoryManager) cleanupLoop() {
	ticker := time.NewTicker(m.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.cleanup()
		case <-m.stopCleanup:
			return
		}
	}
}

// cleanup removes all expired tokens from the store.
func (m *MemoryManager) cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for key, t := range m.tokens {
		if t.IsExpired(0) {
			delete(m.tokens, key)
			count++
		}
	}

	if count > 0 {
		logging.Debug("TokenStore", "Cleaned up %d expired tokens", count)
	}
}
