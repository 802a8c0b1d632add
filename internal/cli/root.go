// Package cli holds the timestick command tree.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"timestick/internal/config"
	"timestick/internal/logging"
)

// Version is stamped at build time with -ldflags "-X timestick/internal/cli.Version=...".
var Version = "dev"

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "timestick",
		Short:         "Time-sync USB network adapter monitor",
		Long:          "timestick watches a PTP-capable USB Ethernet adapter and serves its live state over HTTP, websocket, MQTT and MCP.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to a YAML config file (default ./timestick.yaml or /etc/timestick/timestick.yaml)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newWatchCmd(opts))
	cmd.AddCommand(newSnapshotCmd(opts))
	cmd.AddCommand(newMCPCmd(opts))
	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig resolves the configuration for cmd, honouring only the flags
// the user set.
func loadConfig(cmd *cobra.Command, opts *rootOptions) (config.Config, error) {
	return config.Load(opts.configPath, cmd.Flags())
}

// setup loads the configuration and builds the logger for a long-running command.
func setup(cmd *cobra.Command, opts *rootOptions) (config.Config, *zap.Logger, error) {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}
