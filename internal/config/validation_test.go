package config

import (
	"strings"
	"testing"
)

func validOAuth2Provider() ProviderConfig {
	return ProviderConfig{
		Name:         "github",
		Protocol:     ProtocolOAuth2,
		EndpointURL:  "https://github.com",
		ClientID:     "che-client",
		ClientSecret: "shhh",
	}
}

func TestValidate_DefaultsProtocolToOAuth2(t *testing.T) {
	cfg := DefaultConfig()
	p := validOAuth2Provider()
	p.Protocol = ""
	cfg.Providers = []ProviderConfig{p}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if cfg.Providers[0].Protocol != ProtocolOAuth2 {
		t.Errorf("Expected protocol default oauth2, got %q", cfg.Providers[0].Protocol)
	}
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "bad port",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: "server.port",
		},
		{
			name:    "unknown storage backend",
			mutate:  func(c *Config) { c.Storage.Backend = "redis" },
			wantErr: "unknown storage backend",
		},
		{
			name: "kubernetes backend without namespace",
			mutate: func(c *Config) {
				c.Storage.Backend = StorageKubernetes
				c.Storage.Namespace = ""
			},
			wantErr: "storage.namespace",
		},
		{
			name: "provider without name",
			mutate: func(c *Config) {
				p := validOAuth2Provider()
				p.Name = ""
				c.Providers = append(c.Providers, p)
			},
			wantErr: "name is required",
		},
		{
			name: "oauth2 without client id",
			mutate: func(c *Config) {
				p := validOAuth2Provider()
				p.ClientID = ""
				c.Providers = append(c.Providers, p)
			},
			wantErr: "clientID is required",
		},
		{
			name: "oauth1 without endpoints",
			mutate: func(c *Config) {
				c.Providers = append(c.Providers, ProviderConfig{
					Name:         "bitbucket-server",
					Protocol:     ProtocolOAuth1,
					ConsumerKey:  "che",
					ClientSecret: "shhh",
				})
			},
			wantErr: "requestTokenURL",
		},
		{
			name: "unknown protocol",
			mutate: func(c *Config) {
				p := validOAuth2Provider()
				p.Protocol = "oauth3"
				c.Providers = append(c.Providers, p)
			},
			wantErr: "unknown protocol",
		},
		{
			name: "no secret at all",
			mutate: func(c *Config) {
				p := validOAuth2Provider()
				p.ClientSecret = ""
				c.Providers = append(c.Providers, p)
			},
			wantErr: "clientSecret or clientSecretFile",
		},
		{
			name: "both secret forms",
			mutate: func(c *Config) {
				p := validOAuth2Provider()
				p.ClientSecretFile = "/run/secrets/github"
				c.Providers = append(c.Providers, p)
			},
			wantErr: "mutually exclusive",
		},
		{
			name: "duplicate name across protocols",
			mutate: func(c *Config) {
				c.Providers = append(c.Providers, validOAuth2Provider(), ProviderConfig{
					Name:            "github",
					Protocol:        ProtocolOAuth1,
					ConsumerKey:     "che",
					ClientSecret:    "shhh",
					RequestTokenURL: "https://example.com/rt",
					AuthorizeURL:    "https://example.com/a",
					AccessTokenURL:  "https://example.com/at",
				})
			},
			wantErr: "duplicate provider name",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("Expected error containing %q, got %q", tc.wantErr, err.Error())
			}
		})
	}
}
