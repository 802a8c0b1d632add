package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"timestick/internal/mcpserver"
)

func newMCPCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the monitor as MCP tools over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd, root)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			a, err := newApp(cfg, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if cfg.Server.Autostart {
				if err := a.monitor.Start(ctx); err != nil {
					logger.Warn("autostart failed, waiting for start_monitoring", zap.Error(err))
				}
			}

			srv := mcpserver.NewServer(mcpserver.Config{
				ServerName:    "timestick",
				ServerVersion: Version,
			}, a.monitor, logger)

			logger.Info("MCP server listening on stdio")
			err = srv.Start(ctx)
			if stopErr := a.monitor.Stop(); stopErr != nil {
				logger.Warn("monitor stop", zap.Error(stopErr))
			}
			return err
		},
	}
	addDeviceFlags(cmd.Flags())
	return cmd
}
