package broadcast

import (
	"bytes"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"

	"timestick/internal/model"
)

// Source supplies the current report for new and refreshing subscribers.
type Source interface {
	Report() model.Report
}

// Options tune per-subscriber buffering and keepalive.
type Options struct {
	// SendBuffer is how many frames may queue for one subscriber before it
	// is disconnected as too slow.
	SendBuffer      int
	WriteTimeout    time.Duration
	PongWait        time.Duration
	PingInterval    time.Duration
	MaxMessageBytes int64
}

func DefaultOptions() Options {
	return Options{
		SendBuffer:      16,
		WriteTimeout:    5 * time.Second,
		PongWait:        60 * time.Second,
		PingInterval:    50 * time.Second,
		MaxMessageBytes: 4096,
	}
}

type subscriber struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func (s *subscriber) close() {
	s.once.Do(func() {
		close(s.done)
		s.conn.Close()
	})
}

// Hub pushes reports to websocket subscribers. Publish never blocks: a
// subscriber whose buffer is full is dropped.
type Hub struct {
	source   Source
	opts     Options
	logger   *zap.Logger
	upgrader websocket.Upgrader

	subs    *xsync.MapOf[string, *subscriber]
	dropped atomic.Uint64
	closed  atomic.Bool
}

func NewHub(source Source, opts Options, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = DefaultOptions().SendBuffer
	}
	return &Hub{
		source: source,
		opts:   opts,
		logger: logger.Named("hub"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		subs: xsync.NewMapOf[string, *subscriber](),
	}
}

// Publish encodes r once and queues it for every subscriber.
func (h *Hub) Publish(r model.Report) error {
	data, err := EncodeReport(r)
	if err != nil {
		return err
	}
	h.subs.Range(func(_ string, s *subscriber) bool {
		h.enqueue(s, data)
		return true
	})
	return nil
}

func (h *Hub) enqueue(s *subscriber, data []byte) {
	select {
	case <-s.done:
	case s.send <- data:
	default:
		h.dropped.Add(1)
		h.logger.Warn("dropping slow subscriber", zap.String("id", s.id))
		h.remove(s)
	}
}

func (h *Hub) remove(s *subscriber) {
	if _, ok := h.subs.LoadAndDelete(s.id); ok {
		h.logger.Debug("subscriber left", zap.String("id", s.id), zap.Int("remaining", h.subs.Size()))
	}
	s.close()
}

// ServeWS upgrades the request and registers the connection. The current
// report is sent straight away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	if h.closed.Load() {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	s := h.newSubscriber(conn)
	if !h.register(s) {
		return
	}
	h.logger.Debug("subscriber joined",
		zap.String("id", s.id),
		zap.String("remoteAddr", conn.RemoteAddr().String()),
	)

	go h.writePump(s)
	go h.readPump(s)
	h.sendCurrent(s)
}

func (h *Hub) newSubscriber(conn *websocket.Conn) *subscriber {
	return &subscriber{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, h.opts.SendBuffer),
		done: make(chan struct{}),
	}
}

// register adds s unless Close ran after the upgrade began; in that case s
// is closed and false is returned.
func (h *Hub) register(s *subscriber) bool {
	h.subs.Store(s.id, s)
	if h.closed.Load() {
		h.remove(s)
		return false
	}
	return true
}

func (h *Hub) sendCurrent(s *subscriber) {
	if h.source == nil {
		return
	}
	data, err := EncodeReport(h.source.Report())
	if err != nil {
		h.logger.Error("failed to encode report", zap.Error(err))
		return
	}
	h.enqueue(s, data)
}

func (h *Hub) readPump(s *subscriber) {
	defer h.remove(s)

	if h.opts.MaxMessageBytes > 0 {
		s.conn.SetReadLimit(h.opts.MaxMessageBytes)
	}
	if h.opts.PongWait > 0 {
		s.conn.SetReadDeadline(time.Now().Add(h.opts.PongWait))
		s.conn.SetPongHandler(func(string) error {
			return s.conn.SetReadDeadline(time.Now().Add(h.opts.PongWait))
		})
	}

	for {
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("subscriber read failed", zap.String("id", s.id), zap.Error(err))
			}
			return
		}
		if isRefresh(msg) {
			h.sendCurrent(s)
		}
	}
}

// isRefresh accepts both a framed request and the bare event name.
func isRefresh(msg []byte) bool {
	msg = bytes.TrimSpace(msg)
	if string(msg) == TypeRequestData {
		return true
	}
	f, err := DecodeFrame(msg)
	return err == nil && f.Type == TypeRequestData
}

func (h *Hub) writePump(s *subscriber) {
	var ping <-chan time.Time
	if h.opts.PingInterval > 0 {
		ticker := time.NewTicker(h.opts.PingInterval)
		defer ticker.Stop()
		ping = ticker.C
	}
	defer h.remove(s)

	for {
		select {
		case <-s.done:
			return
		case data := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(h.opts.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.logger.Debug("failed to write to subscriber", zap.String("id", s.id), zap.Error(err))
				return
			}
		case <-ping:
			s.conn.SetWriteDeadline(time.Now().Add(h.opts.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Subscribers reports the number of connected clients.
func (h *Hub) Subscribers() int { return h.subs.Size() }

// Dropped reports how many subscribers were disconnected for being slow.
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }

// Close disconnects every subscriber and refuses new ones.
func (h *Hub) Close() {
	h.closed.Store(true)
	h.subs.Range(func(_ string, s *subscriber) bool {
		h.remove(s)
		return true
	})
}
