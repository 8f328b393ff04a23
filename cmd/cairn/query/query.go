// Package querycmder provides the query command for resolving entities by
// fact kind.
package querycmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cairnforensics/cairn/pkg/component"
	"github.com/cairnforensics/cairn/pkg/config"
	"github.com/cairnforensics/cairn/pkg/entity"
	"github.com/cairnforensics/cairn/pkg/logger"
	"github.com/cairnforensics/cairn/pkg/render"
	"github.com/cairnforensics/cairn/pkg/session"
)

type queryCommander struct {
	kind      string
	snapshot  string
	cacheOnly bool
	exact     bool
	asJSON    bool

	apiTarget string

	debug  bool
	logger *zap.Logger
}

const queryLongDesc string = `Resolve all entities carrying a fact kind.

Runs every collector able to produce the kind (plus collectors for related
kinds), merges their observations, and prints one row per entity. Fields no
observation supplied show as "-"; fields observations disagree on show every
candidate joined with " | ".

Valid kinds:
  Named, Process, User, File, Handle, Resource, Connection, NetworkInterface

Use --exact to skip related kinds, and --cache-only to query what previous
commands in a server session already resolved without running collectors.

With --api-target, the query goes to a running cairn API server instead of
opening a snapshot locally. Passing the flag with no value uses the
client.api_target config key.

Examples:
  cairn query Process -s snapshot.json
  cairn query Connection -s capture.sqlite --json
  cairn query Named --exact -s snapshot.json
  cairn query Process --api-target http://localhost:8217`

const queryShortDesc string = "Resolve entities by fact kind"

func NewQueryCmd() *cobra.Command {
	cmder := &queryCommander{}

	cmd := &cobra.Command{
		Use:   "query <kind>",
		Short: queryShortDesc,
		Long:  queryLongDesc,
		Args:  cobra.ExactArgs(1),
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
			// Bare --api-target picks up the configured target URL.
			if f := cmd.Flags().Lookup("api-target"); f.Changed && cmder.apiTarget == f.NoOptDefVal {
				cmder.apiTarget = cfg.Client.APITarget
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.kind = args[0]

			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run(cmd.Context())
		},
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				kinds := component.Kinds()
				out := make([]string, len(kinds))
				for i, k := range kinds {
					out[i] = string(k)
				}
				return out, cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
	}

	cmd.Flags().StringVarP(&cmder.snapshot, "snapshot", "s", "", "Path to the evidence snapshot file (.json or .sqlite)")
	cmd.Flags().BoolVar(&cmder.cacheOnly, "cache-only", false, "Only read already-resolved entities, never run collectors")
	cmd.Flags().BoolVar(&cmder.exact, "exact", false, "Skip collectors for related kinds")
	cmd.Flags().BoolVar(&cmder.asJSON, "json", false, "Emit JSON instead of a table")
	config.AddAPITargetFlag(cmd, &cmder.apiTarget)

	return cmd
}

func (c *queryCommander) run(ctx context.Context) error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	kind := entity.Kind(c.kind)
	if len(component.Schema(kind)) == 0 {
		return fmt.Errorf("unknown fact kind %q", c.kind)
	}

	if c.apiTarget != "" {
		return c.runRemote(ctx, kind)
	}

	if c.snapshot == "" {
		return fmt.Errorf("no snapshot: pass --snapshot or set snapshot.path in config")
	}

	sess, err := session.New(c.snapshot, session.WithLogger(c.logger))
	if err != nil {
		return err
	}
	defer sess.Close()

	result := sess.Cache().Find(ctx, entity.Query{
		Kind:      kind,
		CacheOnly: c.cacheOnly,
		ExactKind: c.exact,
	})

	if c.asJSON {
		return render.NewJSON(os.Stdout).Result(result)
	}

	text := render.NewText(os.Stdout)
	if err := text.Table(kind, result.Entities); err != nil {
		return err
	}
	text.Warnings(result.Warnings)

	return nil
}

// runRemote resolves the kind through a running API server.
func (c *queryCommander) runRemote(ctx context.Context, kind entity.Kind) error {
	doc, err := QueryAPI(ctx, c.apiTarget, string(kind), c.cacheOnly, c.exact)
	if err != nil {
		return err
	}

	if c.asJSON {
		return render.NewJSON(os.Stdout).Doc(doc)
	}

	text := render.NewText(os.Stdout)
	if err := text.DocTable(kind, doc.Entities); err != nil {
		return err
	}
	text.DocWarnings(doc.Warnings)

	return nil
}

// QueryAPI resolves entities by kind against a running cairn API server.
// Exported so the entity command can reuse it to warm the server cache
// before an identity lookup.
func QueryAPI(ctx context.Context, apiTarget, kind string, cacheOnly, exact bool) (*render.ResultDoc, error) {
	queryURL, err := url.Parse(apiTarget)
	if err != nil {
		return nil, fmt.Errorf("invalid API target URL: %w", err)
	}
	queryURL.Path = "/entities"
	q := queryURL.Query()
	q.Set("kind", kind)
	if cacheOnly {
		q.Set("cache_only", strconv.FormatBool(cacheOnly))
	}
	if exact {
		q.Set("exact", strconv.FormatBool(exact))
	}
	queryURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, queryURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating query request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to cairn API at %s: %w", apiTarget, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("query request failed (HTTP %d): %s", resp.StatusCode, string(body))
	}

	var doc render.ResultDoc
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse query response: %w", err)
	}

	return &doc, nil
}
