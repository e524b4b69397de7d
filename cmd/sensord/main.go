package main

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/sensord/internal/cliconfig"
	"github.com/bft-labs/sensord/internal/system"
	"github.com/bft-labs/sensord/modules/configwatcher"
	"github.com/bft-labs/sensord/modules/heartbeat"
	"github.com/bft-labs/sensord/pkg/eventbus"
	logpkg "github.com/bft-labs/sensord/pkg/log"
)

const longHelp = `Supervise the modules of a sensor-processing node.

sensord starts registered modules highest-priority first, watches for
shutdown requests (signal, event bus, or display module), and stops
modules lowest-priority first. A module stuck in stop is escalated to a
forced process exit after the grace period.

Built-in modules:
  - heartbeat: publishes periodic liveness events on the bus
  - configwatcher: publishes change events when watched directories change`

var exampleUsage = strings.TrimSpace(`
  sensord --watch-dir /etc/sensord
  sensord --config $HOME/.sensord/config.toml --heartbeat-interval 10s
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	root := &cobra.Command{
		Use:     "sensord",
		Short:   "Supervise the modules of a sensor-processing node",
		Long:    longHelp,
		Example: exampleUsage,
		Version: fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Load config file first (default $HOME/.sensord/config.toml),
			// then env vars, then flag overrides.
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			}

			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			level, err := zerolog.ParseLevel(cfg.LogLevel)
			if err != nil {
				return fmt.Errorf("parse log level: %w", err)
			}
			logger := logpkg.NewZerologAdapterWithWriter(os.Stderr, level)
			logger.Info("configuration",
				logpkg.Duration("grace_period", cfg.GracePeriod),
				logpkg.Duration("stop_timeout", cfg.StopTimeout),
				logpkg.Bool("heartbeat", cfg.Heartbeat),
				logpkg.Strings("watch_dirs", cfg.WatchDirs),
			)

			bus := eventbus.New(eventbus.WithLogger(logger))

			mgr, err := system.New(system.Config{
				GracePeriod: cfg.GracePeriod,
				StopTimeout: cfg.StopTimeout,
			}, system.WithLogger(logger), system.WithBus(bus))
			if err != nil {
				return fmt.Errorf("create manager: %w", err)
			}

			if cfg.Heartbeat {
				hb := heartbeat.New(bus, logger, cfg.HeartbeatInterval)
				if err := mgr.Register("heartbeat", hb, 10); err != nil {
					return err
				}
			}
			if len(cfg.WatchDirs) > 0 {
				cw := configwatcher.New(configwatcher.Config{Dirs: cfg.WatchDirs}, bus, logger)
				if err := mgr.Register("configwatcher", cw, 20); err != nil {
					return err
				}
			}

			if err := mgr.StartAll(); err != nil {
				return fmt.Errorf("start modules: %w", err)
			}

			// Blocks until interrupt or a shutdown event; escalates to a
			// forced exit when graceful shutdown fails.
			mgr.Run(true)
			return nil
		},
	}

	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.sensord/config.toml)")
	root.Flags().DurationVar(&cfg.GracePeriod, "grace-period", cfg.GracePeriod, "delay before forced exit after a failed shutdown")
	root.Flags().DurationVar(&cfg.StopTimeout, "stop-timeout", cfg.StopTimeout, "advisory timeout passed to each module stop")
	root.Flags().BoolVar(&cfg.Heartbeat, "heartbeat", cfg.Heartbeat, "enable the heartbeat module")
	root.Flags().DurationVar(&cfg.HeartbeatInterval, "heartbeat-interval", cfg.HeartbeatInterval, "interval between heartbeat events")
	root.Flags().StringSliceVar(&cfg.WatchDirs, "watch-dir", cfg.WatchDirs, "directory to watch for config changes (repeatable)")
	root.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (trace, debug, info, warn, error)")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "sensord:", err)
		os.Exit(1)
	}
}
