package config

// Config is the top-level configuration structure for the OAuth broker.
type Config struct {
	Server    ServerConfig     `yaml:"server"`
	Auth      AuthConfig       `yaml:"auth"`
	Storage   StorageConfig    `yaml:"storage"`
	Providers []ProviderConfig `yaml:"providers"`
}

// ServerConfig defines where the broker listens and how it is reached
// from the outside.
type ServerConfig struct {
	Host string `yaml:"host,omitempty"` // Host to bind to (default: localhost)
	Port int    `yaml:"port,omitempty"` // Port for the HTTP endpoints (default: 8080)

	// PublicURL is the externally reachable base URL of the broker. It is
	// used to build the OAuth redirect URI registered with providers.
	PublicURL string `yaml:"publicURL,omitempty"`
}

// AuthConfig holds authentication-flow settings.
type AuthConfig struct {
	// AccessDeniedErrorPage is where the callback redirects when the
	// provider response cannot be tied to an in-flight authentication
	// request (missing or expired state).
	AccessDeniedErrorPage string `yaml:"accessDeniedErrorPage,omitempty"`
}

// StorageBackend selects the token persistence backend.
type StorageBackend string

const (
	// StorageMemory keeps tokens in process memory. Standalone/dev mode.
	StorageMemory StorageBackend = "memory"
	// StorageKubernetes persists tokens as Secrets in the platform namespace.
	StorageKubernetes StorageBackend = "kubernetes"
)

// StorageConfig defines the token storage backend.
type StorageConfig struct {
	Backend   StorageBackend `yaml:"backend,omitempty"`   // memory | kubernetes (default: memory)
	Namespace string         `yaml:"namespace,omitempty"` // Namespace for token secrets (kubernetes backend)
}

// ProviderProtocol distinguishes OAuth1 from OAuth2 providers.
type ProviderProtocol string

const (
	ProtocolOAuth1 ProviderProtocol = "oauth1"
	ProtocolOAuth2 ProviderProtocol = "oauth2"
)

// ProviderConfig describes one registered OAuth provider.
type ProviderConfig struct {
	// Name is the unique provider key ("github", "gitlab", ...). Unique
	// across both protocols.
	Name string `yaml:"name"`

	// Protocol selects the OAuth protocol version (default: oauth2).
	Protocol ProviderProtocol `yaml:"protocol,omitempty"`

	// EndpointURL is the provider host reported in the provider directory.
	EndpointURL string `yaml:"endpointURL"`

	// ClientID / ConsumerKey identifies the broker at the provider.
	// ClientID is the OAuth2 name, ConsumerKey the OAuth1 one.
	ClientID    string `yaml:"clientID,omitempty"`
	ConsumerKey string `yaml:"consumerKey,omitempty"`

	// ClientSecret is the shared secret. Alternatively ClientSecretFile
	// points at a mounted file that the platform rotates; the broker
	// watches it and picks up new values without a restart.
	ClientSecret     string `yaml:"clientSecret,omitempty"`
	ClientSecretFile string `yaml:"clientSecretFile,omitempty"`

	// OAuth2 endpoint overrides. For well-known providers (github, gitlab,
	// bitbucket, azure-devops) these may be left empty.
	AuthURL  string `yaml:"authURL,omitempty"`
	TokenURL string `yaml:"tokenURL,omitempty"`

	// RevokeURL is the OAuth2 token revocation endpoint, if the provider
	// has one.
	RevokeURL string `yaml:"revokeURL,omitempty"`

	// OAuth1 endpoints.
	RequestTokenURL string `yaml:"requestTokenURL,omitempty"`
	AuthorizeURL    string `yaml:"authorizeURL,omitempty"`
	AccessTokenURL  string `yaml:"accessTokenURL,omitempty"`

	// Scopes are the default scopes requested when the authenticate call
	// does not specify any.
	Scopes []string `yaml:"scopes,omitempty"`
}
