package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineDialer_HandshakeAndRoundTrip(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, "realtime=v1", r.Header.Get("OpenAI-Beta"))
		assert.Equal(t, "gpt-4o-realtime-preview-2024-10-01", r.URL.Query().Get("model"))

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var ev Event
		if err := conn.ReadJSON(&ev); err != nil {
			return
		}
		_ = conn.WriteMessage(websocket.TextMessage, []byte("not json"))
		_ = conn.WriteJSON(Event{
			Type: EventItemCreated,
			Item: &Item{Type: "message", Role: "assistant", Content: []ContentPart{{Type: "text", Text: promptText(ev)}}},
		})
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/realtime"
	dialer := NewEngineDialer(wsURL, "gpt-4o-realtime-preview-2024-10-01", "sk-test")

	up, err := dialer.Dial(context.Background())
	require.NoError(t, err)
	defer up.Close()

	require.NoError(t, up.Send(NewUserTextEvent("echo me")))

	_, err = up.Receive()
	require.ErrorIs(t, err, ErrMalformedEvent)

	ev, err := up.Receive()
	require.NoError(t, err)
	text, ok := ev.Utterance()
	require.True(t, ok)
	assert.Equal(t, "echo me", text)
}

func TestEngineDialer_RequiresAPIKey(t *testing.T) {
	_, err := NewEngineDialer("wss://example.invalid", "m", "").Dial(context.Background())
	assert.Error(t, err)
}

func TestEngineDialer_RejectedHandshake(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	_, err := NewEngineDialer(wsURL, "m", "sk").Dial(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}
