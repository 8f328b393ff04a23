// Package api provides an HTTP API server for querying the entity cache
// over an evidence snapshot.
package api

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8217")
	ListenAddr string
}
