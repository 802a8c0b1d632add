package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"timestick/internal/api"
	"timestick/internal/broadcast"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd(root *rootOptions) *cobra.Command {
	var noAutostart bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the monitor and the HTTP/websocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd, root)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck
			if noAutostart {
				cfg.Server.Autostart = false
			}

			a, err := newApp(cfg, logger)
			if err != nil {
				return err
			}

			hub := broadcast.NewHub(a.monitor, cfg.HubOptions(), logger)
			sinks := broadcast.Fanout{hub}
			if cfg.MQTT.Enabled() {
				sink, err := broadcast.DialMQTT(cfg.MQTTOptions(), logger)
				if err != nil {
					logger.Warn("mqtt publishing disabled", zap.String("broker", cfg.MQTT.Broker), zap.Error(err))
				} else {
					defer sink.Close()
					sinks = append(sinks, sink)
				}
			}
			a.monitor.SetPublisher(sinks)

			handler := api.NewHandler(a.monitor, hub, a.registry, logger)
			srv := &http.Server{
				Addr:         cfg.Server.Addr(),
				Handler:      handler.Router(),
				ReadTimeout:  cfg.Server.ReadTimeout,
				WriteTimeout: cfg.Server.WriteTimeout,
				IdleTimeout:  60 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				logger.Info("HTTP server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- fmt.Errorf("HTTP server error: %w", err)
				}
			}()

			if cfg.Server.Autostart {
				if err := a.monitor.Start(ctx); err != nil {
					logger.Warn("autostart failed, waiting for start_monitoring", zap.Error(err))
				}
			}

			var runErr error
			select {
			case <-ctx.Done():
				logger.Info("received shutdown signal")
			case runErr = <-errCh:
				logger.Error("server error", zap.Error(runErr))
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("HTTP server shutdown error", zap.Error(err))
			}
			if err := a.monitor.Stop(); err != nil {
				logger.Warn("monitor stop", zap.Error(err))
			}
			hub.Close()

			logger.Info("timestick stopped")
			return runErr
		},
	}

	fs := cmd.Flags()
	fs.String("host", "0.0.0.0", "listen address")
	fs.Int("port", 8080, "listen port")
	fs.String("mqtt-broker", "", "publish reports to this MQTT broker, e.g. tcp://localhost:1883")
	fs.String("mqtt-topic", "timestick/report", "MQTT topic for reports")
	fs.BoolVar(&noAutostart, "no-autostart", false, "wait for start_monitoring instead of starting at launch")
	addDeviceFlags(fs)
	return cmd
}
