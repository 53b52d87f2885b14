package realtime

import (
	"context"
	"errors"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
)

func dialMediaStream(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/media-stream"
	conn, err := websocket.Dial(wsURL, "", srv.URL)
	require.NoError(t, err)
	return conn
}

func TestHandler_StreamsPromptsToBrowser(t *testing.T) {
	f := newStreamingFixture(t, oneQuestionScript())
	up := newFakeUpstream()
	h := NewHandler(f.engine, &fakeDialer{up: up}, nil)
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn := dialMediaStream(t, srv)
	defer conn.Close()

	var msg ClientMessage
	require.NoError(t, websocket.JSON.Receive(conn, &msg))
	assert.Equal(t, ClientPrompt, msg.Type)
	assert.Equal(t, "अपना नाम बताइए।", msg.Text)
	_, err := strconv.ParseInt(msg.SessionID, 10, 64)
	require.NoError(t, err, "session id is a nanosecond timestamp")
	assert.Equal(t, EventItemCreate, up.nextSent(t).Type)

	up.push(assistantSays("Maria"))
	require.NoError(t, websocket.JSON.Receive(conn, &msg))
	assert.Equal(t, f.engine.Locale().Confirm("Maria"), msg.Text)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool {
		_, err := f.store.Get(context.Background(), msg.SessionID)
		return err != nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHandler_DialFailureReportsError(t *testing.T) {
	f := newStreamingFixture(t, oneQuestionScript())
	h := NewHandler(f.engine, &fakeDialer{err: errors.New("401 unauthorized")}, nil)
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn := dialMediaStream(t, srv)
	defer conn.Close()

	var msg ClientMessage
	require.NoError(t, websocket.JSON.Receive(conn, &msg))
	assert.Equal(t, ClientError, msg.Type)

	sessions, err := f.store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestSessionIDGenerator_StrictlyIncreasing(t *testing.T) {
	fixed := time.Unix(0, 1000)
	next := newSessionIDGenerator(func() time.Time { return fixed })
	assert.Equal(t, "1000", next())
	assert.Equal(t, "1001", next())
	assert.Equal(t, "1002", next())
}
