package config

import (
	"fmt"
)

// Validate checks the configuration for inconsistencies that would only
// surface later as confusing runtime failures.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	switch c.Storage.Backend {
	case StorageMemory:
	case StorageKubernetes:
		if c.Storage.Namespace == "" {
			return fmt.Errorf("storage.namespace is required for the kubernetes backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	seen := make(map[string]bool)
	for i := range c.Providers {
		p := &c.Providers[i]
		if err := p.validate(); err != nil {
			return fmt.Errorf("provider %d (%s): %w", i, p.Name, err)
		}
		// Provider names are unique across both protocols; the registry
		// dispatches by name alone.
		if seen[p.Name] {
			return fmt.Errorf("duplicate provider name %q", p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}

func (p *ProviderConfig) validate() error {
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	if p.Protocol == "" {
		p.Protocol = ProtocolOAuth2
	}

	switch p.Protocol {
	case ProtocolOAuth2:
		if p.ClientID == "" {
			return fmt.Errorf("clientID is required for oauth2 providers")
		}
	case ProtocolOAuth1:
		if p.ConsumerKey == "" {
			return fmt.Errorf("consumerKey is required for oauth1 providers")
		}
		if p.RequestTokenURL == "" || p.AuthorizeURL == "" || p.AccessTokenURL == "" {
			return fmt.Errorf("requestTokenURL, authorizeURL, and accessTokenURL are required for oauth1 providers")
		}
	default:
		return fmt.Errorf("unknown protocol %q", p.Protocol)
	}

	if p.ClientSecret == "" && p.ClientSecretFile == "" {
		return fmt.Errorf("one of clientSecret or clientSecretFile is required")
	}
	if p.ClientSecret != "" && p.ClientSecretFile != "" {
		return fmt.Errorf("clientSecret and clientSecretFile are mutually exclusive")
	}
	return nil
}
