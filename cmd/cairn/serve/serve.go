// Package servecmder provides the serve command for running the query API
// server over a snapshot.
package servecmder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cairnforensics/cairn/api"
	"github.com/cairnforensics/cairn/pkg/config"
	"github.com/cairnforensics/cairn/pkg/logger"
	"github.com/cairnforensics/cairn/pkg/session"
)

type ServeCommander struct {
	listen     string
	snapshot   string
	autoCreate bool
	watch      bool

	debug  bool
	logger *zap.Logger
}

const serveLongDesc string = `Run the Cairn query API server.

Serves entity queries over one snapshot. The entity cache and its collector
memos are shared across requests, so each collector runs at most once for
the lifetime of the server (or until the snapshot is reloaded).

With --watch, the server watches the snapshot file and rebuilds the cache
whenever it changes on disk.

Configuration precedence: flags > CAIRN_* environment variables >
config.toml > defaults.

Examples:
  cairn serve -s snapshot.json
  cairn serve -s capture.sqlite -l :9000 --watch`

const serveShortDesc string = "Run the Cairn query API server"

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}
	flagSet := config.DefaultFlagSet()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return err
			}

			config.BindRegisteredFlags(v, cmd, flagSet, []string{
				config.FlagSnapshot,
				config.FlagAPIListen,
				config.FlagAutoCreate,
			})

			cmder.snapshot = v.GetString("snapshot.path")
			cmder.listen = v.GetString("api.listen")
			cmder.autoCreate = v.GetBool("cache.auto_create")

			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}
			return cmder.run()
		},
	}

	config.AddStringFlag(cmd, flagSet, config.FlagSnapshot, &cmder.snapshot)
	config.AddStringFlag(cmd, flagSet, config.FlagAPIListen, &cmder.listen)
	config.AddBoolFlag(cmd, flagSet, config.FlagAutoCreate, &cmder.autoCreate)
	cmd.Flags().BoolVarP(&cmder.watch, "watch", "w", false, "Reload the cache when the snapshot file changes")

	return cmd
}

func (c *ServeCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

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

	server := api.NewServer(api.Config{ListenAddr: c.listen}, sess, c.logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errChan := make(chan error, 2)

	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("api server error: %w", err)
		}
	}()

	if c.watch {
		c.logger.Info("watching snapshot for changes",
			zap.String("path", sess.Source().Path()),
		)
		go func() {
			if err := sess.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errChan <- fmt.Errorf("snapshot watcher error: %w", err)
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("shutting down", zap.String("signal", sig.String()))
		cancel()
		return server.Shutdown()
	}
}
