package collectors

import (
	"fmt"

	"github.com/cairnforensics/cairn/pkg/entity"
)

// Identity constructors. Keys are stable across collectors so independent
// observations of the same object land on the same entity.

// ProcessID names a process by pid. PID 0 is "no process".
func ProcessID(pid int) entity.Identity {
	if pid <= 0 {
		return entity.Identity{}
	}
	return entity.NewIdentity(
		fmt.Sprintf("process:%d", pid),
		fmt.Sprintf("process %d", pid),
	)
}

// UserID names a user account by uid. Negative uids are "no user";
// uid 0 (root) is valid.
func UserID(uid int) entity.Identity {
	if uid < 0 {
		return entity.Identity{}
	}
	return entity.NewIdentity(
		fmt.Sprintf("user:%d", uid),
		fmt.Sprintf("user %d", uid),
	)
}

// FileID names a filesystem object by full path.
func FileID(path string) entity.Identity {
	if path == "" {
		return entity.Identity{}
	}
	return entity.NewIdentity("file:"+path, path)
}

// HandleID names a file descriptor by owner pid and fd number.
func HandleID(pid, fd int) entity.Identity {
	return entity.NewIdentity(
		fmt.Sprintf("handle:%d:%d", pid, fd),
		fmt.Sprintf("fd %d of process %d", fd, pid),
	)
}

// SocketID names a socket by inode.
func SocketID(inode int64) entity.Identity {
	if inode <= 0 {
		return entity.Identity{}
	}
	return entity.NewIdentity(
		fmt.Sprintf("socket:%d", inode),
		fmt.Sprintf("socket %d", inode),
	)
}

// InterfaceID names a network interface.
func InterfaceID(name string) entity.Identity {
	if name == "" {
		return entity.Identity{}
	}
	return entity.NewIdentity("iface:"+name, name)
}

// ref narrows an identity to a Ref, mapping the zero identity to nil so
// fact fields read as absent instead of as an empty reference.
func ref(id entity.Identity) entity.Ref {
	if id.IsZero() {
		return nil
	}
	return id
}
