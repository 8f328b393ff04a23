// Package collectors provides the built-in extraction routines that turn an
// evidence snapshot into (identity, facts) observations. Each collector is
// a named, pure function over the snapshot; the entity cache decides when
// they run and memoizes what they produce.
package collectors

import (
	"github.com/cairnforensics/cairn/pkg/component"
	"github.com/cairnforensics/cairn/pkg/entity"
	"github.com/cairnforensics/cairn/pkg/evidence"
)

// All builds every built-in collector bound to the given source, in the
// deterministic order the cache will invoke them.
func All(src evidence.Source) []*entity.Collector {
	return []*entity.Collector{
		ProcList(src),
		NameScan(src),
		UserScan(src),
		FileScan(src),
		HandleScan(src),
		SocketScan(src),
		IfconfigScan(src),
	}
}

// NewRegistry builds the default collector profile for a source, including
// the derived-kind relations queries lean on: process queries also resolve
// names, and file/connection queries also resolve the handles that link
// them to processes.
func NewRegistry(src evidence.Source) *entity.Registry {
	r := entity.NewRegistry(All(src)...)
	r.Relate(component.KindProcess, component.KindNamed)
	r.Relate(component.KindFile, component.KindHandle)
	r.Relate(component.KindConnection, component.KindHandle, component.KindResource)
	return r
}
