package collectors

import (
	"context"
	"fmt"

	"github.com/cairnforensics/cairn/pkg/component"
	"github.com/cairnforensics/cairn/pkg/entity"
	"github.com/cairnforensics/cairn/pkg/evidence"
)

// IfconfigScan yields one NetworkInterface entity per interface in the
// snapshot, with its bound addresses.
func IfconfigScan(src evidence.Source) *entity.Collector {
	return &entity.Collector{
		Name: "ifconfig_scan",
		Produces: []entity.Kind{
			component.KindNetworkInterface,
			component.KindNamed,
		},
		Collect: func(ctx context.Context) ([]entity.Observation, error) {
			snap, err := src.Snapshot(ctx)
			if err != nil {
				return nil, fmt.Errorf("ifconfig_scan: %w", err)
			}

			obs := make([]entity.Observation, 0, len(snap.Interfaces))
			for _, iface := range snap.Interfaces {
				addrs := make([]component.Address, 0, len(iface.Addresses))
				for _, a := range iface.Addresses {
					addrs = append(addrs, component.Address{
						Family:  a.Family,
						Address: a.Address,
					})
				}

				obs = append(obs, entity.Observation{
					Identity: InterfaceID(iface.Name),
					Facts: []entity.Fact{
						component.NetworkInterface{
							Name:      iface.Name,
							Addresses: addrs,
						},
						component.Named{Name: iface.Name, Sort: "network_interface"},
					},
				})
			}
			return obs, nil
		},
	}
}
