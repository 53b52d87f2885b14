// Package realtime is the streaming adapter: a browser connects over a
// websocket and the interview is voiced by a realtime speech engine whose
// transcribed messages drive the conversation.
package realtime

import (
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/net/websocket"

	"github.com/wolfman30/voice-booking-assistant/pkg/logging"
)

// Handler serves GET /media-stream.
type Handler struct {
	bridge *Bridge
	dialer UpstreamDialer
	logger *logging.Logger
	nextID func() string
}

// NewHandler creates the media stream handler.
func NewHandler(engine conversationEngine, dialer UpstreamDialer, logger *logging.Logger) *Handler {
	if dialer == nil {
		panic("realtime: upstream dialer cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		bridge: NewBridge(engine, logger),
		dialer: dialer,
		logger: logger,
		nextID: newSessionIDGenerator(time.Now),
	}
}

// ServeHTTP upgrades the connection and runs the interview.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	ctx := r.Context()
	sessionID := h.nextID()
	down := newBrowserConn(conn)

	up, err := h.dialer.Dial(ctx)
	if err != nil {
		h.logger.Error("failed to connect to speech engine", "error", err, "session_id", sessionID)
		_ = down.Send(ClientMessage{Type: ClientError, Text: "speech engine unavailable", SessionID: sessionID})
		_ = down.Close()
		return
	}

	h.logger.Info("media stream opened", "session_id", sessionID, "remote_addr", r.RemoteAddr)
	if err := h.bridge.Run(ctx, sessionID, up, down); err != nil {
		h.logger.Error("media stream ended with error", "error", err, "session_id", sessionID)
		return
	}
	h.logger.Info("media stream closed", "session_id", sessionID)
}

// newSessionIDGenerator returns nanosecond-timestamp ids that strictly
// increase even when the clock does not.
func newSessionIDGenerator(now func() time.Time) func() string {
	var last atomic.Int64
	return func() string {
		for {
			prev := last.Load()
			next := now().UnixNano()
			if next <= prev {
				next = prev + 1
			}
			if last.CompareAndSwap(prev, next) {
				return strconv.FormatInt(next, 10)
			}
		}
	}
}

// browserConn adapts an x/net websocket to Downstream. Inbound browser frames
// are drained only to notice the disconnect.
type browserConn struct {
	conn      *websocket.Conn
	writeMu   sync.Mutex
	closed    chan struct{}
	closeOnce sync.Once
}

func newBrowserConn(conn *websocket.Conn) *browserConn {
	b := &browserConn{conn: conn, closed: make(chan struct{})}
	go b.drain()
	return b
}

func (b *browserConn) drain() {
	defer b.markClosed()
	for {
		var frame []byte
		if err := websocket.Message.Receive(b.conn, &frame); err != nil {
			return
		}
	}
}

func (b *browserConn) markClosed() {
	b.closeOnce.Do(func() { close(b.closed) })
}

func (b *browserConn) Send(msg ClientMessage) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	return websocket.JSON.Send(b.conn, msg)
}

func (b *browserConn) Closed() <-chan struct{} { return b.closed }

func (b *browserConn) Close() error {
	b.markClosed()
	return b.conn.Close()
}
