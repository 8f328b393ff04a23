// Package evidence loads pre-parsed memory snapshots: the typed tables of
// processes, users, open files, sockets, and interfaces that collectors
// turn into observations. Acquisition and kernel-structure walking happen
// upstream; by the time a snapshot reaches this package it is already
// typed and keyed.
package evidence

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Snapshot is one captured view of a target's memory state.
type Snapshot struct {
	Hostname   string    `json:"hostname"`
	Platform   string    `json:"platform"`
	CapturedAt time.Time `json:"captured_at"`

	Processes  []ProcessRecord   `json:"processes,omitempty"`
	Users      []UserRecord      `json:"users,omitempty"`
	OpenFiles  []OpenFileRecord  `json:"open_files,omitempty"`
	Sockets    []SocketRecord    `json:"sockets,omitempty"`
	Interfaces []InterfaceRecord `json:"interfaces,omitempty"`
}

// ProcessRecord is one row of the process table.
type ProcessRecord struct {
	PID       int      `json:"pid"`
	PPID      int      `json:"ppid"`
	UID       int      `json:"uid"`
	Command   string   `json:"command"`
	Arguments []string `json:"arguments,omitempty"`
}

// UserRecord is one account known to the target.
type UserRecord struct {
	UID      int    `json:"uid"`
	Username string `json:"username"`
	Home     string `json:"home,omitempty"`
	RealName string `json:"real_name,omitempty"`
}

// OpenFileRecord is one file descriptor table row.
type OpenFileRecord struct {
	PID   int    `json:"pid"`
	FD    int    `json:"fd"`
	Path  string `json:"path"`
	Flags string `json:"flags,omitempty"`
}

// SocketRecord is one socket. FDs lists every descriptor the socket may
// belong to; more than one entry means the capture could not disambiguate,
// and collectors surface that as a superposition rather than guessing.
type SocketRecord struct {
	Inode       int64  `json:"inode"`
	PID         int    `json:"pid"`
	FDs         []int  `json:"fds,omitempty"`
	Proto       string `json:"proto"`
	Family      string `json:"family"`
	State       string `json:"state,omitempty"`
	Source      string `json:"source,omitempty"`
	Destination string `json:"destination,omitempty"`
}

// AddressRecord is one address bound to an interface.
type AddressRecord struct {
	Family  string `json:"family"`
	Address string `json:"address"`
}

// InterfaceRecord is one network interface.
type InterfaceRecord struct {
	Name      string          `json:"name"`
	Addresses []AddressRecord `json:"addresses,omitempty"`
}

// Source supplies a snapshot to collectors. Implementations parse lazily
// and memoize, so every collector in a session reads the same parse.
type Source interface {
	// Snapshot returns the parsed snapshot.
	Snapshot(ctx context.Context) (*Snapshot, error)

	// Path returns the location the snapshot was loaded from.
	Path() string

	// Close releases any underlying resources.
	Close() error
}

// Open picks a source implementation by file extension: .json for JSON
// bundles, .db/.sqlite/.sqlite3 for SQLite bundles.
func Open(path string) (Source, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return NewJSONSource(path), nil
	case ".db", ".sqlite", ".sqlite3":
		return NewSQLiteSource(path)
	default:
		return nil, fmt.Errorf("unsupported snapshot format %q", filepath.Ext(path))
	}
}
