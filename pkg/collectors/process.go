package collectors

import (
	"context"
	"fmt"

	"github.com/cairnforensics/cairn/pkg/component"
	"github.com/cairnforensics/cairn/pkg/entity"
	"github.com/cairnforensics/cairn/pkg/evidence"
)

// ProcList walks the snapshot's process table and yields one Process fact
// per live process. Lineage and ownership are stored as identity
// references, not embedded records.
func ProcList(src evidence.Source) *entity.Collector {
	return &entity.Collector{
		Name:     "proc_list",
		Produces: []entity.Kind{component.KindProcess},
		Collect: func(ctx context.Context) ([]entity.Observation, error) {
			snap, err := src.Snapshot(ctx)
			if err != nil {
				return nil, fmt.Errorf("proc_list: %w", err)
			}

			obs := make([]entity.Observation, 0, len(snap.Processes))
			for _, p := range snap.Processes {
				obs = append(obs, entity.Observation{
					Identity: ProcessID(p.PID),
					Facts: []entity.Fact{
						component.Process{
							PID:       p.PID,
							Parent:    ref(ProcessID(p.PPID)),
							User:      ref(UserID(p.UID)),
							Command:   p.Command,
							Arguments: p.Arguments,
						},
					},
				})
			}
			return obs, nil
		},
	}
}

// NameScan yields a Named fact for every process, independently of
// ProcList, so the cache's merge path is exercised the same way it would be
// by two genuinely separate kernel walks.
func NameScan(src evidence.Source) *entity.Collector {
	return &entity.Collector{
		Name:     "name_scan",
		Produces: []entity.Kind{component.KindNamed},
		Collect: func(ctx context.Context) ([]entity.Observation, error) {
			snap, err := src.Snapshot(ctx)
			if err != nil {
				return nil, fmt.Errorf("name_scan: %w", err)
			}

			obs := make([]entity.Observation, 0, len(snap.Processes))
			for _, p := range snap.Processes {
				obs = append(obs, entity.Observation{
					Identity: ProcessID(p.PID),
					Facts: []entity.Fact{
						component.Named{Name: p.Command, Sort: "process"},
					},
				})
			}
			return obs, nil
		},
	}
}
