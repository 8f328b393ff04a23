package config

import "strconv"

// Config represents the persistent cairn configuration stored as
// config.toml in the .cairn/ directory. The TOML layout uses sections for
// logical grouping.
type Config struct {
	Version  int            `toml:"version"`
	Snapshot SnapshotConfig `toml:"snapshot"`
	API      APIConfig      `toml:"api"`
	Client   ClientConfig   `toml:"client"`
	Cache    CacheConfig    `toml:"cache"`
}

// SnapshotConfig holds the default evidence snapshot settings.
type SnapshotConfig struct {
	Path string `toml:"path,omitempty"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// ClientConfig holds settings for CLI commands that connect to a running
// API server. Values are full URLs (scheme + host + port).
type ClientConfig struct {
	APITarget string `toml:"api_target,omitempty"`
}

// CacheConfig holds entity cache behavior settings.
type CacheConfig struct {
	// AutoCreate makes identity lookups materialize a provisional entity
	// when the identity is not yet registered.
	AutoCreate bool `toml:"auto_create,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter
// on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"snapshot.path": {
		get: func(c *Config) string { return c.Snapshot.Path },
		set: func(c *Config, v string) error { c.Snapshot.Path = v; return nil },
	},
	"api.listen": {
		get: func(c *Config) string { return c.API.Listen },
		set: func(c *Config, v string) error { c.API.Listen = v; return nil },
	},
	"client.api_target": {
		get: func(c *Config) string { return c.Client.APITarget },
		set: func(c *Config, v string) error { c.Client.APITarget = v; return nil },
	},
	"cache.auto_create": {
		get: func(c *Config) string { return strconv.FormatBool(c.Cache.AutoCreate) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return err
			}
			c.Cache.AutoCreate = b
			return nil
		},
	},
}
