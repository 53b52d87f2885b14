package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeTimeout = 10 * time.Second

// ErrMalformedEvent marks a frame that could not be decoded. The connection
// remains usable.
var ErrMalformedEvent = errors.New("realtime: malformed event")

// Upstream is a connection to the speech engine.
type Upstream interface {
	Send(ev Event) error
	// Receive blocks for the next event. Frames that are not JSON events
	// yield an error wrapping ErrMalformedEvent.
	Receive() (Event, error)
	Close() error
}

// UpstreamDialer opens Upstream connections.
type UpstreamDialer interface {
	Dial(ctx context.Context) (Upstream, error)
}

// EngineDialer dials the realtime speech engine over a websocket.
type EngineDialer struct {
	url    string
	model  string
	apiKey string
	dialer *websocket.Dialer
}

// NewEngineDialer builds a dialer for baseURL (e.g. wss://api.openai.com/v1/realtime).
func NewEngineDialer(baseURL, model, apiKey string) *EngineDialer {
	return &EngineDialer{
		url:    baseURL,
		model:  model,
		apiKey: apiKey,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 15 * time.Second,
		},
	}
}

// Dial implements UpstreamDialer.
func (d *EngineDialer) Dial(ctx context.Context) (Upstream, error) {
	if d.apiKey == "" {
		return nil, errors.New("realtime: api key required")
	}
	target, err := url.Parse(d.url)
	if err != nil {
		return nil, fmt.Errorf("realtime: parse engine url: %w", err)
	}
	if d.model != "" {
		q := target.Query()
		q.Set("model", d.model)
		target.RawQuery = q.Encode()
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+d.apiKey)
	header.Set("OpenAI-Beta", "realtime=v1")

	conn, resp, err := d.dialer.DialContext(ctx, target.String(), header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("realtime: dial engine: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("realtime: dial engine: %w", err)
	}
	return &wsUpstream{conn: conn}, nil
}

type wsUpstream struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (u *wsUpstream) Send(ev Event) error {
	u.writeMu.Lock()
	defer u.writeMu.Unlock()
	_ = u.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return u.conn.WriteJSON(ev)
}

func (u *wsUpstream) Receive() (Event, error) {
	messageType, data, err := u.conn.ReadMessage()
	if err != nil {
		return Event{}, err
	}
	if messageType != websocket.TextMessage {
		return Event{}, fmt.Errorf("%w: frame type %d", ErrMalformedEvent, messageType)
	}
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	return ev, nil
}

func (u *wsUpstream) Close() error {
	u.writeMu.Lock()
	_ = u.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	u.writeMu.Unlock()
	return u.conn.Close()
}
