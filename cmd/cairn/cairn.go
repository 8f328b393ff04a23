// Package cairncmder
package cairncmder

import (
	"github.com/spf13/cobra"

	collectorscmder "github.com/cairnforensics/cairn/cmd/cairn/collectors"
	configcmder "github.com/cairnforensics/cairn/cmd/cairn/config"
	entitycmder "github.com/cairnforensics/cairn/cmd/cairn/entity"
	querycmder "github.com/cairnforensics/cairn/cmd/cairn/query"
	servecmder "github.com/cairnforensics/cairn/cmd/cairn/serve"
)

const cairnLongDesc string = `Cairn resolves evidence snapshots into entities.

Collectors extract observations from a snapshot; observations about the same
identity merge into one entity, and contradictory facts are kept side by side
instead of being discarded.

Query a snapshot using:
  cairn query Process -s snapshot.json    List all processes
  cairn entity process:42 -s ...          Show one entity in full
  cairn serve -s snapshot.json            Run the query API server`

const cairnShortDesc string = "Cairn - Evidence Entity Resolution"

func NewCairnCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cairn",
		Short: cairnShortDesc,
		Long:  cairnLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .cairn/ config directory")

	// Add subcommands
	cmd.AddCommand(querycmder.NewQueryCmd())
	cmd.AddCommand(entitycmder.NewEntityCmd())
	cmd.AddCommand(collectorscmder.NewCollectorsCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())

	return cmd
}
