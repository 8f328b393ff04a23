// Package collectorscmder provides the collectors command for listing the
// extraction routines a snapshot session would run.
package collectorscmder

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cairnforensics/cairn/pkg/cliui"
	"github.com/cairnforensics/cairn/pkg/config"
	"github.com/cairnforensics/cairn/pkg/logger"
	"github.com/cairnforensics/cairn/pkg/session"
)

type collectorsCommander struct {
	snapshot string

	debug  bool
	logger *zap.Logger
}

const collectorsLongDesc string = `List the collectors registered for a snapshot.

Each collector runs at most once per session; its name is the memoization
key and appears as the source on every entity it observed.

Examples:
  cairn collectors -s snapshot.json`

const collectorsShortDesc string = "List registered collectors"

func NewCollectorsCmd() *cobra.Command {
	cmder := &collectorsCommander{}

	cmd := &cobra.Command{
		Use:   "collectors",
		Short: collectorsShortDesc,
		Long:  collectorsLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			cfger, err := config.NewConfiger(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			cfg, err := cfger.LoadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			if !cmd.Flags().Changed("snapshot") {
				cmder.snapshot = cfg.Snapshot.Path
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run()
		},
	}

	cmd.Flags().StringVarP(&cmder.snapshot, "snapshot", "s", "", "Path to the evidence snapshot file (.json or .sqlite)")

	return cmd
}

func (c *collectorsCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	if c.snapshot == "" {
		return fmt.Errorf("no snapshot: pass --snapshot or set snapshot.path in config")
	}

	sess, err := session.New(c.snapshot, session.WithLogger(c.logger))
	if err != nil {
		return err
	}
	defer sess.Close()

	all := sess.Registry().All()

	maxLen := 0
	for _, col := range all {
		if len(col.Name) > maxLen {
			maxLen = len(col.Name)
		}
	}

	for _, col := range all {
		produces := make([]string, len(col.Produces))
		for i, k := range col.Produces {
			produces[i] = string(k)
		}
		fmt.Printf("  %s  %s\n",
			cliui.KeyStyle.Render(fmt.Sprintf("%-*s", maxLen, col.Name)),
			cliui.DimStyle.Render(strings.Join(produces, ", ")),
		)
	}

	return nil
}
