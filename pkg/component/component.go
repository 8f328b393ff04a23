// Package component defines the closed set of fact kinds the framework
// knows about. A component is one fixed-schema slice of evidence about an
// entity — process metadata, a socket, a user account — stored on the
// entity under its kind name.
//
// Relationships between entities are stored as identity references, never
// as embedded entities, so the fact base can never grow cyclic ownership or
// stale duplicates.
package component

import "github.com/cairnforensics/cairn/pkg/entity"

// Fact kind names. The set is closed: collectors may only yield these.
const (
	KindNamed            entity.Kind = "Named"
	KindProcess          entity.Kind = "Process"
	KindConnection       entity.Kind = "Connection"
	KindResource         entity.Kind = "Resource"
	KindHandle           entity.Kind = "Handle"
	KindFile             entity.Kind = "File"
	KindUser             entity.Kind = "User"
	KindNetworkInterface entity.Kind = "NetworkInterface"
)

// Kinds returns every known fact kind in a stable order.
func Kinds() []entity.Kind {
	return []entity.Kind{
		KindNamed,
		KindProcess,
		KindConnection,
		KindResource,
		KindHandle,
		KindFile,
		KindUser,
		KindNetworkInterface,
	}
}

// Schema returns the field names of a kind in declaration order, or nil for
// an unknown kind. Renderers use this to lay out columns without holding a
// fact instance.
func Schema(kind entity.Kind) []string {
	switch kind {
	case KindNamed:
		return Named{}.Fields()
	case KindProcess:
		return Process{}.Fields()
	case KindConnection:
		return Connection{}.Fields()
	case KindResource:
		return Resource{}.Fields()
	case KindHandle:
		return Handle{}.Fields()
	case KindFile:
		return File{}.Fields()
	case KindUser:
		return User{}.Fields()
	case KindNetworkInterface:
		return NetworkInterface{}.Fields()
	default:
		return nil
	}
}

// Named records an entity's human name and what sort of thing it is
// ("process", "socket", "user", ...).
type Named struct {
	Name string
	Sort string
}

func (Named) Kind() entity.Kind { return KindNamed }
func (Named) Fields() []string  { return []string{"name", "sort"} }

func (f Named) Field(name string) entity.Value {
	switch name {
	case "name":
		return stringValue(f.Name)
	case "sort":
		return stringValue(f.Sort)
	default:
		return entity.Absent
	}
}

// Process describes one process: its pid, lineage, owner, and command line.
// Parent and User are identity references resolved through the cache.
type Process struct {
	PID       int
	Parent    entity.Ref
	User      entity.Ref
	Command   string
	Arguments []string
}

func (Process) Kind() entity.Kind { return KindProcess }
func (Process) Fields() []string {
	return []string{"pid", "parent", "user", "command", "arguments"}
}

func (f Process) Field(name string) entity.Value {
	switch name {
	case "pid":
		return entity.One(f.PID)
	case "parent":
		return entity.RefValue(f.Parent)
	case "user":
		return entity.RefValue(f.User)
	case "command":
		return stringValue(f.Command)
	case "arguments":
		if len(f.Arguments) == 0 {
			return entity.Absent
		}
		return entity.One(f.Arguments)
	default:
		return entity.Absent
	}
}

// Connection describes one network connection or socket pair.
type Connection struct {
	Source      string
	Destination string
	Protocols   []string
	Family      string
	State       string
}

func (Connection) Kind() entity.Kind { return KindConnection }
func (Connection) Fields() []string {
	return []string{"source", "destination", "protocols", "family", "state"}
}

func (f Connection) Field(name string) entity.Value {
	switch name {
	case "source":
		return stringValue(f.Source)
	case "destination":
		return stringValue(f.Destination)
	case "protocols":
		if len(f.Protocols) == 0 {
			return entity.Absent
		}
		return entity.One(f.Protocols)
	case "family":
		return stringValue(f.Family)
	case "state":
		return stringValue(f.State)
	default:
		return entity.Absent
	}
}

// Resource marks an entity (a file, a socket) as reachable through a
// handle. The reference may be a superposition when evidence cannot pin
// down which handle owns the resource.
type Resource struct {
	Handle entity.Ref
}

func (Resource) Kind() entity.Kind { return KindResource }
func (Resource) Fields() []string  { return []string{"handle"} }

func (f Resource) Field(name string) entity.Value {
	switch name {
	case "handle":
		return entity.RefValue(f.Handle)
	default:
		return entity.Absent
	}
}

// Handle describes one file descriptor: which process holds it and which
// resource it points at.
type Handle struct {
	Resource entity.Ref
	Process  entity.Ref
	FD       int
	Flags    string
}

func (Handle) Kind() entity.Kind { return KindHandle }
func (Handle) Fields() []string  { return []string{"resource", "process", "fd", "flags"} }

func (f Handle) Field(name string) entity.Value {
	switch name {
	case "resource":
		return entity.RefValue(f.Resource)
	case "process":
		return entity.RefValue(f.Process)
	case "fd":
		return entity.One(f.FD)
	case "flags":
		return stringValue(f.Flags)
	default:
		return entity.Absent
	}
}

// File describes one filesystem object by full path.
type File struct {
	Path string
}

func (File) Kind() entity.Kind { return KindFile }
func (File) Fields() []string  { return []string{"path"} }

func (f File) Field(name string) entity.Value {
	switch name {
	case "path":
		return stringValue(f.Path)
	default:
		return entity.Absent
	}
}

// User describes one user account.
type User struct {
	UID      int
	Username string
	Home     string
	RealName string
}

func (User) Kind() entity.Kind { return KindUser }
func (User) Fields() []string  { return []string{"uid", "username", "home", "real_name"} }

func (f User) Field(name string) entity.Value {
	switch name {
	case "uid":
		return entity.One(f.UID)
	case "username":
		return stringValue(f.Username)
	case "home":
		return stringValue(f.Home)
	case "real_name":
		return stringValue(f.RealName)
	default:
		return entity.Absent
	}
}

// Address is one address bound to a network interface.
type Address struct {
	Family  string `json:"family"`
	Address string `json:"address"`
}

// NetworkInterface describes one interface and its bound addresses.
type NetworkInterface struct {
	Name      string
	Addresses []Address
}

func (NetworkInterface) Kind() entity.Kind { return KindNetworkInterface }
func (NetworkInterface) Fields() []string  { return []string{"name", "addresses"} }

func (f NetworkInterface) Field(name string) entity.Value {
	switch name {
	case "name":
		return stringValue(f.Name)
	case "addresses":
		if len(f.Addresses) == 0 {
			return entity.Absent
		}
		return entity.One(f.Addresses)
	default:
		return entity.Absent
	}
}

// stringValue treats the empty string as absent rather than as evidence of
// an empty value.
func stringValue(s string) entity.Value {
	if s == "" {
		return entity.Absent
	}
	return entity.One(s)
}
