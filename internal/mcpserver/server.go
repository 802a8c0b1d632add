package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"timestick/internal/model"
	"timestick/internal/monitor"
)

// Controller is the monitor surface the tools drive.
type Controller interface {
	Start(ctx context.Context) error
	Stop() error
	Running() bool
	Report() model.Report
	History() model.HistorySeries
	Alerts() []model.Alert
}

// Server exposes the monitor as MCP tools.
type Server struct {
	mcpServer *mcp.Server
	ctrl      Controller
	logger    *zap.Logger
}

// Config holds configuration for the MCP server.
type Config struct {
	ServerName    string
	ServerVersion string
}

// NewServer creates a server with every tool registered.
func NewServer(cfg Config, ctrl Controller, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ServerName == "" {
		cfg.ServerName = "timestick"
	}
	impl := &mcp.Implementation{
		Name:    cfg.ServerName,
		Version: cfg.ServerVersion,
	}
	s := &Server{
		mcpServer: mcp.NewServer(impl, nil),
		ctrl:      ctrl,
		logger:    logger.Named("mcp"),
	}
	s.registerTools()
	return s
}

// DeviceDataArgs defines the input for get_device_data.
type DeviceDataArgs struct {
	IncludeHistory bool `json:"include_history,omitempty" jsonschema:"also return the offset and throughput history"`
}

// HistoryArgs defines the input for get_history.
type HistoryArgs struct {
	Limit int `json:"limit,omitempty" jsonschema:"return only the most recent points"`
}

// HistoryResult holds aligned series, oldest first.
type HistoryResult struct {
	Timestamps     []string  `json:"timestamps" jsonschema:"RFC 3339 sample times"`
	PTPOffsetNs    []int64   `json:"ptp_offset_ns" jsonschema:"time-sync offset per sample in nanoseconds"`
	ThroughputMbps []float64 `json:"throughput_mbps" jsonschema:"rx plus tx rate per sample"`
}

// AlertsArgs defines the input for get_alerts.
type AlertsArgs struct {
	Level string `json:"level,omitempty" jsonschema:"only alerts of this level: info, success, warning or error"`
}

// AlertEntry is one alert in tool output.
type AlertEntry struct {
	Level     string `json:"level"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// AlertsResult lists alerts, oldest first.
type AlertsResult struct {
	Alerts []AlertEntry `json:"alerts"`
}

// ControlArgs is the empty input of start_monitoring and stop_monitoring.
type ControlArgs struct{}

// ControlResult mirrors the HTTP start/stop envelope.
type ControlResult struct {
	Status     string `json:"status" jsonschema:"success or error"`
	Message    string `json:"message"`
	Monitoring bool   `json:"monitoring" jsonschema:"whether the monitor loop is running afterwards"`
}

func (s *Server) registerTools() {
	// The report carries timestamps the schema inference cannot describe, so
	// get_device_data returns it untyped.
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_device_data",
		Description: "Get the latest report of the time-sync stick: device, PTP offset statistics, PPS, network counters and rates, host load and recent alerts.",
	}, s.handleGetDeviceData)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_history",
		Description: "Get the recent PTP offset and network throughput series, oldest first.",
	}, s.handleGetHistory)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_alerts",
		Description: "Get the most recent alerts raised by the monitor, optionally filtered by level.",
	}, s.handleGetAlerts)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "start_monitoring",
		Description: "Start the monitor loop. Fails when it is already running or no device is attached.",
	}, s.handleStart)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "stop_monitoring",
		Description: "Stop the monitor loop. Stopping an idle monitor succeeds.",
	}, s.handleStop)
}

func (s *Server) handleGetDeviceData(ctx context.Context, _ *mcp.CallToolRequest, args DeviceDataArgs) (*mcp.CallToolResult, any, error) {
	r := s.ctrl.Report()
	if !args.IncludeHistory {
		r.History = model.HistorySeries{}
	}
	return nil, r, nil
}

func (s *Server) handleGetHistory(ctx context.Context, _ *mcp.CallToolRequest, args HistoryArgs) (*mcp.CallToolResult, HistoryResult, error) {
	if args.Limit < 0 {
		return nil, HistoryResult{}, fmt.Errorf("invalid limit: %d", args.Limit)
	}
	series := s.ctrl.History()
	start := 0
	if args.Limit > 0 && args.Limit < series.Len() {
		start = series.Len() - args.Limit
	}

	res := HistoryResult{
		Timestamps:     make([]string, 0, series.Len()-start),
		PTPOffsetNs:    append([]int64{}, series.PTPOffset[start:]...),
		ThroughputMbps: append([]float64{}, series.NetworkThroughput[start:]...),
	}
	for _, ts := range series.Timestamps[start:] {
		res.Timestamps = append(res.Timestamps, ts.Format(time.RFC3339Nano))
	}
	return nil, res, nil
}

func (s *Server) handleGetAlerts(ctx context.Context, _ *mcp.CallToolRequest, args AlertsArgs) (*mcp.CallToolResult, AlertsResult, error) {
	switch model.Level(args.Level) {
	case "", model.LevelInfo, model.LevelSuccess, model.LevelWarning, model.LevelError:
	default:
		return nil, AlertsResult{}, fmt.Errorf("invalid level: %s", args.Level)
	}

	res := AlertsResult{Alerts: []AlertEntry{}}
	for _, a := range s.ctrl.Alerts() {
		if args.Level != "" && string(a.Level) != args.Level {
			continue
		}
		res.Alerts = append(res.Alerts, AlertEntry{
			Level:     string(a.Level),
			Message:   a.Message,
			Timestamp: a.Timestamp.Format(time.RFC3339Nano),
		})
	}
	return nil, res, nil
}

func (s *Server) handleStart(ctx context.Context, _ *mcp.CallToolRequest, _ ControlArgs) (*mcp.CallToolResult, ControlResult, error) {
	if err := s.ctrl.Start(ctx); err != nil {
		msg := "failed to start monitoring: " + err.Error()
		if errors.Is(err, monitor.ErrAlreadyRunning) {
			msg = "monitoring is already running"
		}
		s.logger.Warn("start_monitoring failed", zap.Error(err))
		return nil, ControlResult{Status: "error", Message: msg, Monitoring: s.ctrl.Running()}, nil
	}
	return nil, ControlResult{Status: "success", Message: "monitoring started", Monitoring: true}, nil
}

func (s *Server) handleStop(ctx context.Context, _ *mcp.CallToolRequest, _ ControlArgs) (*mcp.CallToolResult, ControlResult, error) {
	msg := "monitoring stopped"
	if err := s.ctrl.Stop(); err != nil {
		s.logger.Warn("monitor stopped uncleanly", zap.Error(err))
		msg = "monitoring stopped (" + err.Error() + ")"
	}
	return nil, ControlResult{Status: "success", Message: msg, Monitoring: false}, nil
}

// Start serves the tools over stdio until ctx is done or the client leaves.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("serving MCP on stdio")
	return s.Run(ctx, &mcp.StdioTransport{})
}

// Run serves the tools over an arbitrary transport.
func (s *Server) Run(ctx context.Context, t mcp.Transport) error {
	return s.mcpServer.Run(ctx, t)
}

// Connect attaches a single session, for in-process clients.
func (s *Server) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	return s.mcpServer.Connect(ctx, t, nil)
}
