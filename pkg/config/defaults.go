package config

const (
	defaultAPIListen = ":8217"

	defaultClientAPITarget = "http://localhost:8217"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Client: ClientConfig{
			APITarget: defaultClientAPITarget,
		},
		Cache: CacheConfig{
			AutoCreate: false,
		},
	}
}
