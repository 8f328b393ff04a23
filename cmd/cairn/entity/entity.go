// Package entitycmder provides the entity command for looking up one
// entity by its identity key.
package entitycmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	querycmder "github.com/cairnforensics/cairn/cmd/cairn/query"
	"github.com/cairnforensics/cairn/pkg/cliui"
	"github.com/cairnforensics/cairn/pkg/component"
	"github.com/cairnforensics/cairn/pkg/config"
	"github.com/cairnforensics/cairn/pkg/entity"
	"github.com/cairnforensics/cairn/pkg/logger"
	"github.com/cairnforensics/cairn/pkg/render"
	"github.com/cairnforensics/cairn/pkg/session"
)

type entityCommander struct {
	key        string
	snapshot   string
	autoCreate bool
	asJSON     bool

	apiTarget string

	debug  bool
	logger *zap.Logger
}

const entityLongDesc string = `Look up one entity by its identity key.

Identity keys are stable per snapshot: "process:42", "user:0",
"file:/usr/bin/ls", "socket:1234", "iface:en0". The lookup only reads
entities already resolved into the cache, so this command first resolves
every kind, then prints the entity with all of its facts, sources, and
observation count.

With --auto-create, a lookup that misses registers an empty placeholder
entity instead of failing, which later observations can fill in.

With --api-target, the lookup goes to a running cairn API server instead of
opening a snapshot locally. Passing the flag with no value uses the
client.api_target config key.

Examples:
  cairn entity process:42 -s snapshot.json
  cairn entity file:/usr/bin/ls -s snapshot.json --json
  cairn entity process:42 --api-target http://localhost:8217`

const entityShortDesc string = "Look up one entity by identity key"

func NewEntityCmd() *cobra.Command {
	cmder := &entityCommander{}

	cmd := &cobra.Command{
		Use:   "entity <key>",
		Short: entityShortDesc,
		Long:  entityLongDesc,
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
			if !cmd.Flags().Changed("auto-create") {
				cmder.autoCreate = cfg.Cache.AutoCreate
			}
			// Bare --api-target picks up the configured target URL.
			if f := cmd.Flags().Lookup("api-target"); f.Changed && cmder.apiTarget == f.NoOptDefVal {
				cmder.apiTarget = cfg.Client.APITarget
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.key = args[0]

			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run(cmd)
		},
	}

	cmd.Flags().StringVarP(&cmder.snapshot, "snapshot", "s", "", "Path to the evidence snapshot file (.json or .sqlite)")
	cmd.Flags().BoolVar(&cmder.autoCreate, "auto-create", false, "Create a placeholder entity when the lookup misses")
	cmd.Flags().BoolVar(&cmder.asJSON, "json", false, "Emit JSON instead of a detail view")
	config.AddAPITargetFlag(cmd, &cmder.apiTarget)

	return cmd
}

func (c *entityCommander) run(cmd *cobra.Command) error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	if c.apiTarget != "" {
		return c.runRemote(cmd.Context())
	}

	if c.snapshot == "" {
		return fmt.Errorf("no snapshot: pass --snapshot or set snapshot.path in config")
	}

	sess, err := session.New(c.snapshot,
		session.WithLogger(c.logger),
		session.WithAutoCreate(c.autoCreate),
	)
	if err != nil {
		return err
	}
	defer sess.Close()

	// Resolve everything first so the identity lookup sees a full cache.
	// The spinner draws on stderr, so --json output stays pipeable.
	cache := sess.Cache()
	err = cliui.Step(os.Stderr, "running collectors", func() error {
		for _, col := range sess.Registry().All() {
			for _, kind := range col.Produces {
				result := cache.Find(cmd.Context(), entity.Query{Kind: kind, ExactKind: true})
				for _, w := range result.Warnings {
					c.logger.Warn("collector failed",
						zap.String("collector", w.Collector),
						zap.Error(w.Err),
					)
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	id := entity.NewIdentity(c.key, "")
	entities := cache.FindByIdentity(id, false)
	if len(entities) == 0 {
		return fmt.Errorf("no entity with identity %q", c.key)
	}

	if c.asJSON {
		j := render.NewJSON(os.Stdout)
		for _, e := range entities {
			if err := j.Entity(e); err != nil {
				return err
			}
		}
		return nil
	}

	text := render.NewText(os.Stdout)
	for _, e := range entities {
		text.Detail(e)
	}

	return nil
}

// runRemote looks the entity up on a running API server. Kind queries run
// first so the server cache is fully resolved, mirroring the local path.
func (c *entityCommander) runRemote(ctx context.Context) error {
	err := cliui.Step(os.Stderr, "resolving on "+c.apiTarget, func() error {
		for _, kind := range component.Kinds() {
			if _, err := querycmder.QueryAPI(ctx, c.apiTarget, string(kind), false, true); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	doc, err := EntityAPI(ctx, c.apiTarget, c.key)
	if err != nil {
		return err
	}

	if c.asJSON {
		return render.NewJSON(os.Stdout).Doc(doc)
	}

	render.NewText(os.Stdout).DocDetail(*doc)

	return nil
}

// EntityAPI fetches one entity by identity key from a running cairn API
// server.
func EntityAPI(ctx context.Context, apiTarget, key string) (*render.EntityDoc, error) {
	entityURL, err := url.Parse(apiTarget)
	if err != nil {
		return nil, fmt.Errorf("invalid API target URL: %w", err)
	}
	entityURL.Path = "/entities/" + key

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, entityURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating entity request: %w", err)
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

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("no entity with identity %q", key)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("entity request failed (HTTP %d): %s", resp.StatusCode, string(body))
	}

	var doc render.EntityDoc
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse entity response: %w", err)
	}

	return &doc, nil
}
