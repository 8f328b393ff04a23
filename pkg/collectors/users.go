package collectors

import (
	"context"
	"fmt"

	"github.com/cairnforensics/cairn/pkg/component"
	"github.com/cairnforensics/cairn/pkg/entity"
	"github.com/cairnforensics/cairn/pkg/evidence"
)

// UserScan walks the snapshot's account table and yields User and Named
// facts per account.
func UserScan(src evidence.Source) *entity.Collector {
	return &entity.Collector{
		Name:     "user_scan",
		Produces: []entity.Kind{component.KindUser, component.KindNamed},
		Collect: func(ctx context.Context) ([]entity.Observation, error) {
			snap, err := src.Snapshot(ctx)
			if err != nil {
				return nil, fmt.Errorf("user_scan: %w", err)
			}

			obs := make([]entity.Observation, 0, len(snap.Users))
			for _, u := range snap.Users {
				obs = append(obs, entity.Observation{
					Identity: UserID(u.UID),
					Facts: []entity.Fact{
						component.User{
							UID:      u.UID,
							Username: u.Username,
							Home:     u.Home,
							RealName: u.RealName,
						},
						component.Named{Name: u.Username, Sort: "user"},
					},
				})
			}
			return obs, nil
		},
	}
}
