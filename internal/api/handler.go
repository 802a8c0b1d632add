package api

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"net/http"

	"github.com/gorilla/mux"
	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"timestick/internal/collector"
	"timestick/internal/model"
	"timestick/internal/monitor"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

//go:embed static
var staticFiles embed.FS

// Controller is the monitor as seen by the HTTP surface.
type Controller interface {
	Start(ctx context.Context) error
	Stop() error
	Running() bool
	Report() model.Report
	History() model.HistorySeries
	Alerts() []model.Alert
}

// Streamer serves the websocket push channel.
type Streamer interface {
	ServeWS(w http.ResponseWriter, r *http.Request)
	Subscribers() int
}

// Handler serves the dashboard, the REST API and the websocket endpoint.
type Handler struct {
	ctrl     Controller
	stream   Streamer
	registry *prometheus.Registry
	logger   *zap.Logger

	router *mux.Router
}

// NewHandler creates a handler with all routes registered. stream and
// registry are optional.
func NewHandler(ctrl Controller, stream Streamer, registry *prometheus.Registry, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{
		ctrl:     ctrl,
		stream:   stream,
		registry: registry,
		logger:   logger.Named("api"),
	}
	if registry != nil && stream != nil {
		registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "timestick",
			Name:      "websocket_subscribers",
			Help:      "Connected websocket clients.",
		}, func() float64 { return float64(stream.Subscribers()) }))
	}

	h.router = mux.NewRouter()
	h.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	h.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	h.registerRoutes()
	return h
}

// Router returns the configured HTTP router.
func (h *Handler) Router() http.Handler {
	return corsMiddleware(h.router)
}

func (h *Handler) registerRoutes() {
	api := h.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/device_data", h.handleDeviceData).Methods(http.MethodGet)
	api.HandleFunc("/start_monitoring", h.handleStart).Methods(http.MethodPost)
	api.HandleFunc("/stop_monitoring", h.handleStop).Methods(http.MethodPost)
	api.HandleFunc("/history", h.handleHistory).Methods(http.MethodGet)
	api.HandleFunc("/alerts", h.handleAlerts).Methods(http.MethodGet)

	if h.stream != nil {
		h.router.HandleFunc("/ws", h.stream.ServeWS)
	}
	if h.registry != nil {
		h.router.Handle("/metrics", promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	h.router.HandleFunc("/healthz", h.handleHealth).Methods(http.MethodGet)

	static, _ := fs.Sub(staticFiles, "static")
	h.router.Handle("/", http.FileServer(http.FS(static))).Methods(http.MethodGet)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"monitoring": h.ctrl.Running(),
	})
}

func (h *Handler) handleDeviceData(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ctrl.Report())
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ctrl.History())
}

func (h *Handler) handleAlerts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ctrl.Alerts())
}

// ControlResponse is the envelope returned by start and stop.
type ControlResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

const (
	statusSuccess = "success"
	statusError   = "error"
)

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	err := h.ctrl.Start(r.Context())
	if err != nil {
		h.logger.Warn("failed to start monitoring", zap.Error(err))
		code := http.StatusInternalServerError
		switch {
		case errors.Is(err, monitor.ErrAlreadyRunning):
			code = http.StatusConflict
		case errors.Is(err, collector.ErrDeviceNotFound):
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, ControlResponse{Status: statusError, Message: "failed to start monitoring: " + err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, ControlResponse{Status: statusSuccess, Message: "monitoring started"})
}

// handleStop always succeeds: the monitor is idle once Stop returns, even
// when the last tick was still running at the stop timeout.
func (h *Handler) handleStop(w http.ResponseWriter, r *http.Request) {
	msg := "monitoring stopped"
	if err := h.ctrl.Stop(); err != nil {
		h.logger.Warn("monitor stopped uncleanly", zap.Error(err))
		msg = "monitoring stopped (" + err.Error() + ")"
	}
	writeJSON(w, http.StatusOK, ControlResponse{Status: statusSuccess, Message: msg})
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; nothing useful to do on failure.
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
