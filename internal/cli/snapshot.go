package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"timestick/internal/client"
	"timestick/internal/engine"
	"timestick/internal/model"
	"timestick/internal/output"
	"timestick/ui/console"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const fetchTimeout = 10 * time.Second

func newSnapshotCmd(root *rootOptions) *cobra.Command {
	var (
		server string
		format string
	)
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Print the current device report once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, root)
			if err != nil {
				return err
			}
			c, err := client.New(server, zap.NewNop())
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), fetchTimeout)
			defer cancel()
			r, err := c.Fetch(ctx)
			if err != nil {
				return err
			}
			return writeReport(cmd.OutOrStdout(), r, format, cfg.Thresholds())
		},
	}
	cmd.Flags().StringVar(&server, "server", "http://localhost:8080", "timestick server URL")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text, json or yaml")
	return cmd
}

func writeReport(w io.Writer, r model.Report, format string, thresholds engine.Config) error {
	switch format {
	case "text":
		console.Print(w, output.BuildDashboard(r, thresholds))
		return nil
	case "json":
		b, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	case "yaml":
		// Round-trip through JSON so the YAML keys match the API.
		b, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
		var doc map[string]any
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.UseNumber()
		if err := dec.Decode(&doc); err != nil {
			return fmt.Errorf("decode report: %w", err)
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q (want text, json or yaml)", format)
	}
}
