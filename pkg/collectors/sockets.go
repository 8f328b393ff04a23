package collectors

import (
	"context"
	"fmt"

	"github.com/cairnforensics/cairn/pkg/component"
	"github.com/cairnforensics/cairn/pkg/entity"
	"github.com/cairnforensics/cairn/pkg/evidence"
)

// SocketScan yields Connection entities for every socket in the snapshot,
// plus the Handle entities binding them to processes.
//
// When the capture lists several candidate descriptors for one socket, the
// ownership is genuinely ambiguous and the socket's Resource fact holds a
// superposition of the candidate handles instead of an arbitrary pick.
func SocketScan(src evidence.Source) *entity.Collector {
	return &entity.Collector{
		Name: "socket_scan",
		Produces: []entity.Kind{
			component.KindConnection,
			component.KindHandle,
			component.KindResource,
		},
		Collect: func(ctx context.Context) ([]entity.Observation, error) {
			snap, err := src.Snapshot(ctx)
			if err != nil {
				return nil, fmt.Errorf("socket_scan: %w", err)
			}

			var obs []entity.Observation
			for _, s := range snap.Sockets {
				sockID := SocketID(s.Inode)

				connFacts := []entity.Fact{
					component.Connection{
						Source:      s.Source,
						Destination: s.Destination,
						Protocols:   []string{s.Proto},
						Family:      s.Family,
						State:       s.State,
					},
				}

				switch len(s.FDs) {
				case 0:
					// Socket with no known descriptor; still evidence.

				case 1:
					fd := s.FDs[0]
					obs = append(obs, entity.Observation{
						Identity: HandleID(s.PID, fd),
						Facts: []entity.Fact{
							component.Handle{
								Resource: ref(sockID),
								Process:  ref(ProcessID(s.PID)),
								FD:       fd,
							},
						},
					})

				default:
					candidates := make([]entity.Identity, 0, len(s.FDs))
					for _, fd := range s.FDs {
						candidates = append(candidates, HandleID(s.PID, fd))
					}
					connFacts = append(connFacts, component.Resource{
						Handle: entity.NewSuperposition(candidates...),
					})
				}

				obs = append(obs, entity.Observation{
					Identity: sockID,
					Facts:    connFacts,
				})
			}
			return obs, nil
		},
	}
}
