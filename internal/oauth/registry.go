package oauth

import (
	"fmt"
	"sort"
	"sync"

	"github.com/netomi/che-server/internal/api"
	"github.com/netomi/che-server/internal/config"
	"github.com/netomi/che-server/pkg/logging"
)

// Registry holds the registered authenticators, keyed by provider name.
// OAuth1 and OAuth2 providers share the one namespace; the protocol is a
// property of the entry, not a separate registry.
type Registry struct {
	mu             sync.RWMutex
	authenticators map[string]Authenticator
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		authenticators: make(map[string]Authenticator),
	}
}

// Register adds an authenticator. Provider names must be unique across
// both protocols.
func (r *Registry) Register(a Authenticator) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := a.Name()
	if _, exists := r.authenticators[name]; exists {
		return fmt.Errorf("provider %q is already registered", name)
	}
	r.authenticators[name] = a

	logging.Info("OAuth", "Registered %s provider %s (%s)", a.Protocol(), name, a.EndpointURL())
	return nil
}

// Get returns the authenticator for the given provider name, or a
// NotFoundError when it is not registered.
func (r *Registry) Get(name string) (Authenticator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, exists := r.authenticators[name]
	if !exists {
		logging.Warn("OAuth", "Unsupported OAuth provider %s", name)
		return nil, api.NewProviderNotFoundError(name)
	}
	return a, nil
}

// Names returns the registered provider names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.authenticators))
	for name := range r.authenticators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns the registered authenticators sorted by provider name.
func (r *Registry) All() []Authenticator {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]Authenticator, 0, len(r.authenticators))
	for _, a := range r.authenticators {
		all = append(all, a)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name() < all[j].Name() })
	return all
}

// NewRegistryFromConfig builds a registry from the configured providers.
// callbackURL is the broker's externally reachable callback endpoint.
// Providers using a mounted secret file are wired into the given watcher
// so rotated secrets are picked up without a restart.
func NewRegistryFromConfig(providers []config.ProviderConfig, callbackURL string, watcher *config.SecretWatcher) (*Registry, error) {
	registry := NewRegistry()

	for i := range providers {
		p := providers[i]

		var (
			authenticator Authenticator
			err           error
		)
		switch p.Protocol {
		case config.ProtocolOAuth1:
			authenticator, err = NewOAuth1Authenticator(p, callbackURL)
		default:
			authenticator, err = NewOAuth2Authenticator(p, callbackURL)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to build authenticator for provider %s: %w", p.Name, err)
		}

		if p.ClientSecretFile != "" {
			if err := watcher.Add(p.ClientSecretFile, authenticator); err != nil {
				return nil, fmt.Errorf("failed to load client secret for provider %s: %w", p.Name, err)
			}
		}

		if err := registry.Register(authenticator); err != nil {
			return nil, err
		}
	}

	return registry, nil
}
