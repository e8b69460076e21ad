package config

// DefaultConfig returns the default configuration for the broker.
// Defaults favor standalone development: localhost binding and in-memory
// token storage.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Host:      "localhost",
			Port:      8080,
			PublicURL: "http://localhost:8080",
		},
		Storage: StorageConfig{
			Backend: StorageMemory,
		},
	}
}
