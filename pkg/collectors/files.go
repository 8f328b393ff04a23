package collectors

import (
	"context"
	"fmt"

	"github.com/cairnforensics/cairn/pkg/component"
	"github.com/cairnforensics/cairn/pkg/entity"
	"github.com/cairnforensics/cairn/pkg/evidence"
)

// FileScan yields one File entity per distinct path in the descriptor
// table. Several processes holding the same file produce one entity with
// several observations, not several entities.
func FileScan(src evidence.Source) *entity.Collector {
	return &entity.Collector{
		Name:     "file_scan",
		Produces: []entity.Kind{component.KindFile, component.KindNamed},
		Collect: func(ctx context.Context) ([]entity.Observation, error) {
			snap, err := src.Snapshot(ctx)
			if err != nil {
				return nil, fmt.Errorf("file_scan: %w", err)
			}

			var obs []entity.Observation
			seen := make(map[string]struct{})
			for _, f := range snap.OpenFiles {
				if _, ok := seen[f.Path]; ok {
					continue
				}
				seen[f.Path] = struct{}{}
				obs = append(obs, entity.Observation{
					Identity: FileID(f.Path),
					Facts: []entity.Fact{
						component.File{Path: f.Path},
						component.Named{Name: f.Path, Sort: "file"},
					},
				})
			}
			return obs, nil
		},
	}
}

// HandleScan yields one Handle entity per descriptor table row, linking the
// owning process to the file it has open.
func HandleScan(src evidence.Source) *entity.Collector {
	return &entity.Collector{
		Name:     "handle_scan",
		Produces: []entity.Kind{component.KindHandle},
		Collect: func(ctx context.Context) ([]entity.Observation, error) {
			snap, err := src.Snapshot(ctx)
			if err != nil {
				return nil, fmt.Errorf("handle_scan: %w", err)
			}

			obs := make([]entity.Observation, 0, len(snap.OpenFiles))
			for _, f := range snap.OpenFiles {
				obs = append(obs, entity.Observation{
					Identity: HandleID(f.PID, f.FD),
					Facts: []entity.Fact{
						component.Handle{
							Resource: ref(FileID(f.Path)),
							Process:  ref(ProcessID(f.PID)),
							FD:       f.FD,
							Flags:    f.Flags,
						},
					},
				})
			}
			return obs, nil
		},
	}
}
