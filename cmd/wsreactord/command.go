// File: cmd/wsreactord/command.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/momentics/wsreactor/control"
	"github.com/momentics/wsreactor/server"
)

type options struct {
	configPath string
	port       int
	logLevel   string
	logFormat  string
}

func newRootCommand() *cobra.Command {
	return newCommand(&options{})
}

func newCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "wsreactord",
		Short:         "Single-reactor WebSocket server serving the demo paths / and /echo.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := logrus.New()
			if err := serve(cmd.Context(), cmd.Flags(), opts, logger); err != nil {
				logger.WithError(err).Error("wsreactord failed")
				return err
			}
			return nil
		},
	}
	defaults := control.DefaultConfig()
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "YAML configuration file, watched for log level changes.")
	cmd.Flags().IntVarP(&opts.port, "port", "p", defaults.Port, "TCP port to listen on.")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", defaults.LogLevel, "Log level (trace, debug, info, warn, error).")
	cmd.Flags().StringVar(&opts.logFormat, "log-format", defaults.LogFormat, "Log format (text or json).")
	return cmd
}

// resolveConfig loads the config file, if any, and applies flags the user
// set explicitly on top of it.
func resolveConfig(flags *pflag.FlagSet, opts *options) (*control.Config, error) {
	cfg := control.DefaultConfig()
	if opts.configPath != "" {
		loaded, err := control.LoadConfig(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if flags.Changed("port") {
		cfg.Port = opts.port
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = opts.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func serve(parent context.Context, flags *pflag.FlagSet, opts *options, logger *logrus.Logger) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg, err := resolveConfig(flags, opts)
	if err != nil {
		return err
	}
	if err := cfg.ApplyLogging(logger); err != nil {
		return err
	}

	metrics := control.NewMetricsRegistry()
	srv, err := server.New(server.FromControl(cfg), server.WithLogger(logger), server.WithMetrics(metrics))
	if err != nil {
		return err
	}
	if err := srv.Bind(cfg.Port); err != nil {
		_ = srv.Shutdown()
		return errors.Wrapf(err, "bind port %d", cfg.Port)
	}
	for path, h := range demoRoutes(logger) {
		if err := srv.RegisterPath(path, h); err != nil {
			_ = srv.Shutdown()
			return err
		}
	}

	probes := control.NewDebugProbes()
	control.RegisterPlatformProbes(probes)
	srv.RegisterProbes(probes)

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return srv.Run(ctx) })
	g.Go(func() error {
		dumpProbesOnSignal(ctx, probes, logger)
		return nil
	})

	if opts.configPath != "" {
		store := control.NewConfigStore(cfg)
		store.OnReload(func(old, updated *control.Config) {
			if old.LogLevel == updated.LogLevel {
				return
			}
			if lvl, err := logrus.ParseLevel(updated.LogLevel); err == nil {
				logger.SetLevel(lvl)
				logger.WithField("level", updated.LogLevel).Info("log level changed")
			}
		})
		watcher, err := control.NewWatcher(opts.configPath, store, logger)
		if err != nil {
			logger.WithError(err).Warn("config file not watched")
		} else {
			g.Go(func() error { return watcher.Run(ctx) })
		}
	}

	logger.WithField("addr", srv.Addr()).Info("wsreactord started")
	err = g.Wait()
	logger.Info("closing open connections and releasing resources")
	return err
}
