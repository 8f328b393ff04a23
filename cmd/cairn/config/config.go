// Package configcmder provides the config command for managing persistent
// cairn configuration stored in the .cairn/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent cairn configuration.

Configuration is stored as config.toml in the .cairn/ directory and provides
default values for command flags. CLI flags always take precedence over
config file values.

Keys use dotted notation matching the TOML section structure:
  snapshot.path, api.listen, client.api_target, cache.auto_create

Use subcommands to get, set, or list configuration values:
  cairn config set <key> <value>    Set a configuration value
  cairn config get <key>            Get a configuration value
  cairn config list                 List all configuration values

Examples:
  cairn config set snapshot.path /evidence/host42.json
  cairn config set cache.auto_create true
  cairn config get api.listen
  cairn config list`

const configShortDesc string = "Manage persistent cairn configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
