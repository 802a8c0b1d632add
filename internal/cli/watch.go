package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"timestick/internal/client"
	"timestick/ui/tui"
)

func newWatchCmd(root *rootOptions) *cobra.Command {
	var server string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Open the terminal dashboard against a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, root)
			if err != nil {
				return err
			}
			// The TUI owns the terminal, so nothing is logged.
			c, err := client.New(server, zap.NewNop())
			if err != nil {
				return err
			}
			return tui.Start(cmd.Context(), c, cfg.Thresholds())
		},
	}
	cmd.Flags().StringVar(&server, "server", "http://localhost:8080", "timestick server URL")
	return cmd
}
