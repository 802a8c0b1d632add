package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"timestick/internal/broadcast"
	"timestick/internal/collector"
	"timestick/internal/model"
	"timestick/internal/monitor"
	"timestick/internal/simulate"
)

type fakeController struct {
	mu       sync.Mutex
	running  bool
	startErr error
	stopErr  error
	report   model.Report
}

func (f *fakeController) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.running = true
	return nil
}

func (f *fakeController) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = false
	return f.stopErr
}

func (f *fakeController) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

func (f *fakeController) Report() model.Report         { return f.report }
func (f *fakeController) History() model.HistorySeries { return f.report.History }
func (f *fakeController) Alerts() []model.Alert        { return f.report.Alerts }

func newFakeReport() model.Report {
	h := model.NewHistory(3)
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	h.Append(model.HistoryPoint{Timestamp: at, PTPOffsetNs: 42, TotalThroughputMbps: 10})
	return model.Report{
		Snapshot: model.EmptySnapshot(),
		Alerts:   []model.Alert{model.NewAlert(model.LevelWarning, "network errors: RX=1, TX=0", at)},
		History:  h.Series(),
		Mode:     model.ModeSimulated,
	}
}

func do(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlerReadEndpoints(t *testing.T) {
	ctrl := &fakeController{report: newFakeReport()}
	h := NewHandler(ctrl, nil, nil, nil).Router()

	tests := []struct {
		path string
		want string
	}{
		{"/api/device_data", `"device_info"`},
		{"/api/device_data", `"connection_status":"Disconnected"`},
		{"/api/history", `"ptp_offset":[42]`},
		{"/api/alerts", `"level":"warning"`},
		{"/healthz", `"status":"ok"`},
		{"/", "<title>timestick</title>"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, tt.path)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
			}
			if !strings.Contains(rec.Body.String(), tt.want) {
				t.Errorf("body %s does not contain %s", rec.Body, tt.want)
			}
		})
	}
}

func TestHandlerControl(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		ctrl       *fakeController
		wantCode   int
		wantStatus string
	}{
		{"start", "/api/start_monitoring", &fakeController{}, http.StatusOK, statusSuccess},
		{"start twice", "/api/start_monitoring", &fakeController{startErr: monitor.ErrAlreadyRunning}, http.StatusConflict, statusError},
		{"start without stick", "/api/start_monitoring",
			&fakeController{startErr: fmt.Errorf("discover device: %w", collector.ErrDeviceNotFound)},
			http.StatusServiceUnavailable, statusError},
		{"stop", "/api/stop_monitoring", &fakeController{running: true}, http.StatusOK, statusSuccess},
		{"stop after timeout still succeeds", "/api/stop_monitoring",
			&fakeController{running: true, stopErr: monitor.ErrStopTimeout}, http.StatusOK, statusSuccess},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(tt.ctrl, nil, nil, nil).Router()
			rec := do(t, h, http.MethodPost, tt.path)
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			var resp ControlResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatal(err)
			}
			if resp.Status != tt.wantStatus || resp.Message == "" {
				t.Errorf("response = %+v", resp)
			}
		})
	}
}

func TestHandlerCORSAndMethods(t *testing.T) {
	h := NewHandler(&fakeController{}, nil, nil, nil).Router()

	rec := do(t, h, http.MethodOptions, "/api/start_monitoring")
	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}

	if rec := do(t, h, http.MethodGet, "/api/start_monitoring"); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET start status = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/nope"); rec.Code != http.StatusNotFound {
		t.Errorf("unknown route status = %d", rec.Code)
	}
}

type fakeStreamer struct{ n int }

func (f *fakeStreamer) ServeWS(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusTeapot)
}
func (f *fakeStreamer) Subscribers() int { return f.n }

func TestHandlerMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := NewHandler(&fakeController{}, &fakeStreamer{n: 3}, reg, nil).Router()

	rec := do(t, h, http.MethodGet, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "timestick_websocket_subscribers 3") {
		t.Errorf("metrics output missing subscriber gauge:\n%s", rec.Body)
	}
	if rec := do(t, h, http.MethodGet, "/ws"); rec.Code != http.StatusTeapot {
		t.Errorf("/ws not routed to streamer, status %d", rec.Code)
	}
}

// TestServerEndToEnd runs a simulated monitor behind the real hub and router.
func TestServerEndToEnd(t *testing.T) {
	gen := simulate.NewGenerator(7, time.Now())
	c, err := collector.NewCollector(simulate.Providers(gen, "sim0"), 0)
	if err != nil {
		t.Fatal(err)
	}
	cfg := monitor.DefaultConfig()
	cfg.TickInterval = 20 * time.Millisecond
	cfg.PrefillPoints = 3
	cfg.PrefillInterval = time.Millisecond

	m, err := monitor.New(c, nil, cfg, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	hub := broadcast.NewHub(m, broadcast.DefaultOptions(), nil)
	m.SetPublisher(hub)
	defer hub.Close()
	defer m.Stop()

	srv := httptest.NewServer(NewHandler(m, hub, prometheus.NewRegistry(), nil).Router())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/start_monitoring", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("start status = %d: %s", resp.StatusCode, body)
	}

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	// Skip frames until the loop has ticked at least once.
	deadline := time.Now().Add(3 * time.Second)
	for {
		conn.SetReadDeadline(deadline)
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		f, err := broadcast.DecodeFrame(msg)
		if err != nil {
			t.Fatal(err)
		}
		if f.Data.Monitoring && f.Data.Device.IsOnline && f.Data.History.Len() > 0 {
			if f.Data.Device.Interface != "sim0" || f.Data.Mode != model.ModeSimulated {
				t.Errorf("report = %+v", f.Data.Device)
			}
			break
		}
	}

	resp, err = http.Post(srv.URL+"/api/stop_monitoring", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || m.Running() {
		t.Errorf("stop status = %d, running = %v", resp.StatusCode, m.Running())
	}
}
