package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"timestick/internal/broadcast"
	"timestick/internal/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const defaultRetry = 2 * time.Second

// Update is one event from the live stream: a report or a connection error.
type Update struct {
	Report *model.Report
	Err    error
}

// Client talks to a running timestick server over HTTP and its websocket.
type Client struct {
	base    *url.URL
	http    *http.Client
	dialer  *websocket.Dialer
	retry   time.Duration
	logger  *zap.Logger
	updates chan Update

	mu   sync.Mutex
	conn *websocket.Conn
}

// New returns a client for baseURL, e.g. "http://127.0.0.1:8080".
func New(baseURL string, logger *zap.Logger) (*Client, error) {
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		base:    u,
		http:    &http.Client{Timeout: 10 * time.Second},
		dialer:  &websocket.Dialer{HandshakeTimeout: 5 * time.Second},
		retry:   defaultRetry,
		logger:  logger.Named("client"),
		updates: make(chan Update, 4),
	}, nil
}

// SetRetry changes the pause between reconnect attempts.
func (c *Client) SetRetry(d time.Duration) { c.retry = d }

func (c *Client) endpoint(path string) string {
	u := *c.base
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	return u.String()
}

func (c *Client) wsEndpoint() string {
	u := *c.base
	u.Scheme = "ws"
	if c.base.Scheme == "https" {
		u.Scheme = "wss"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	return u.String()
}

// Fetch returns the current report once.
func (c *Client) Fetch(ctx context.Context) (model.Report, error) {
	var r model.Report
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/api/device_data"), nil)
	if err != nil {
		return r, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return r, fmt.Errorf("fetch device data: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return r, fmt.Errorf("fetch device data: %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return r, fmt.Errorf("decode device data: %w", err)
	}
	return r, nil
}

type controlResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Start asks the server to start monitoring.
func (c *Client) Start(ctx context.Context) (string, error) {
	return c.control(ctx, "/api/start_monitoring")
}

// Stop asks the server to stop monitoring.
func (c *Client) Stop(ctx context.Context) (string, error) {
	return c.control(ctx, "/api/stop_monitoring")
}

func (c *Client) control(ctx context.Context, path string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path), nil)
	if err != nil {
		return "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return "", err
	}
	var cr controlResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return "", fmt.Errorf("unexpected response (%s): %w", resp.Status, err)
	}
	if cr.Status != "success" {
		return "", errors.New(cr.Message)
	}
	return cr.Message, nil
}

// Updates delivers stream events while Run is active. It is closed when Run
// returns.
func (c *Client) Updates() <-chan Update { return c.updates }

// Run keeps a websocket subscription open until ctx is done, reconnecting
// after every failure.
func (c *Client) Run(ctx context.Context) {
	defer close(c.updates)
	for {
		err := c.stream(ctx)
		if ctx.Err() != nil {
			return
		}
		c.logger.Debug("stream interrupted", zap.Error(err))
		if !c.emit(ctx, Update{Err: err}) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(c.retry):
		}
	}
}

func (c *Client) stream(ctx context.Context) error {
	conn, _, err := c.dialer.DialContext(ctx, c.wsEndpoint(), nil)
	if err != nil {
		return fmt.Errorf("connect stream: %w", err)
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		conn.Close()
	}()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read stream: %w", err)
		}
		f, err := broadcast.DecodeFrame(msg)
		if err != nil || f.Type != broadcast.TypeDeviceUpdate || f.Data == nil {
			c.logger.Debug("ignoring frame", zap.ByteString("frame", msg))
			continue
		}
		if !c.emit(ctx, Update{Report: f.Data}) {
			return ctx.Err()
		}
	}
}

// RequestData asks the server to resend the current report on the open
// stream.
func (c *Client) RequestData() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return errors.New("stream not connected")
	}
	c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return c.conn.WriteJSON(broadcast.Frame{Type: broadcast.TypeRequestData})
}

func (c *Client) emit(ctx context.Context, u Update) bool {
	select {
	case c.updates <- u:
		return true
	case <-ctx.Done():
		return false
	}
}
