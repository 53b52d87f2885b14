package realtime

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/voice-booking-assistant/internal/appointments"
	"github.com/wolfman30/voice-booking-assistant/internal/interview"
	"github.com/wolfman30/voice-booking-assistant/internal/matcher"
)

func oneQuestionScript() *interview.Script {
	return interview.MustScript(interview.Question{
		Key:      appointments.FieldName,
		Prompt:   "अपना नाम बताइए।",
		Category: matcher.CategoryName,
	})
}

func runBridge(f streamingFixture, id string, up *fakeUpstream, down *fakeDownstream) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- NewBridge(f.engine, nil).Run(context.Background(), id, up, down)
	}()
	return done
}

func waitDone(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("bridge did not stop")
		return nil
	}
}

func promptText(ev Event) string {
	if ev.Item == nil || len(ev.Item.Content) == 0 {
		return ""
	}
	return ev.Item.Content[0].Text
}

func TestBridge_CompletesInterview(t *testing.T) {
	f := newStreamingFixture(t, oneQuestionScript())
	locale := f.engine.Locale()
	up, down := newFakeUpstream(), newFakeDownstream()
	done := runBridge(f, "1700000000000000000", up, down)

	first := up.nextSent(t)
	assert.Equal(t, EventItemCreate, first.Type)
	assert.Equal(t, "user", first.Item.Role)
	assert.Equal(t, "अपना नाम बताइए।", promptText(first))
	assert.Equal(t, ClientMessage{Type: ClientPrompt, Text: "अपना नाम बताइए।", SessionID: "1700000000000000000"}, down.next(t))

	up.push(Event{Type: EventItemCreated, Item: &Item{Type: "message", Role: "user"}})
	up.push(Event{Type: "response.done"})
	up.push(assistantSays("maria"))
	assert.Equal(t, locale.Confirm("Maria"), promptText(up.nextSent(t)))
	assert.Equal(t, ClientPrompt, down.next(t).Type)

	up.push(transcription("हाँ"))
	assert.Equal(t, locale.BookedMessage, promptText(up.nextSent(t)))
	final := down.next(t)
	assert.Equal(t, ClientComplete, final.Type)
	assert.Equal(t, locale.BookedMessage, final.Text)

	require.NoError(t, waitDone(t, done))
	saved := f.repo.List()
	require.Len(t, saved, 1)
	assert.Equal(t, "Maria", saved[0].Name)
	assert.Equal(t, string(interview.TransportStreaming), saved[0].Transport)

	_, err := f.store.Get(context.Background(), "1700000000000000000")
	assert.ErrorIs(t, err, interview.ErrSessionNotFound)
	assert.Eventually(t, func() bool {
		select {
		case <-up.closed:
			return true
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}

func TestBridge_BrowserDisconnectEndsSession(t *testing.T) {
	f := newStreamingFixture(t, oneQuestionScript())
	up, down := newFakeUpstream(), newFakeDownstream()
	done := runBridge(f, "s1", up, down)

	up.nextSent(t)
	down.next(t)
	_, err := f.store.Get(context.Background(), "s1")
	require.NoError(t, err)

	require.NoError(t, down.Close())
	require.NoError(t, waitDone(t, done))

	_, err = f.store.Get(context.Background(), "s1")
	assert.ErrorIs(t, err, interview.ErrSessionNotFound)
	assert.Empty(t, f.repo.List())
}

func TestBridge_EngineDisconnectEndsSession(t *testing.T) {
	f := newStreamingFixture(t, oneQuestionScript())
	up, down := newFakeUpstream(), newFakeDownstream()
	done := runBridge(f, "s1", up, down)

	up.nextSent(t)
	up.incoming <- inbound{err: errors.New("connection reset")}
	require.NoError(t, waitDone(t, done))

	_, err := f.store.Get(context.Background(), "s1")
	assert.ErrorIs(t, err, interview.ErrSessionNotFound)
	select {
	case <-down.closed:
	default:
		t.Fatal("browser connection should be closed")
	}
}

func TestBridge_SkipsMalformedEvents(t *testing.T) {
	f := newStreamingFixture(t, oneQuestionScript())
	up, down := newFakeUpstream(), newFakeDownstream()
	done := runBridge(f, "s1", up, down)
	up.nextSent(t)

	up.incoming <- inbound{err: fmt.Errorf("%w: bad json", ErrMalformedEvent)}
	up.push(Event{Type: EventError, Error: &ErrorDetail{Message: "rate limited"}})
	up.push(assistantSays("Maria"))
	assert.Equal(t, f.engine.Locale().Confirm("Maria"), promptText(up.nextSent(t)))

	require.NoError(t, down.Close())
	require.NoError(t, waitDone(t, done))
}

type failingStartEngine struct {
	*interview.Engine
}

func (failingStartEngine) Start(context.Context, string, interview.Transport, string) (*interview.Session, error) {
	return nil, errors.New("store down")
}

func TestBridge_StartFailureClosesBothSides(t *testing.T) {
	f := newStreamingFixture(t, oneQuestionScript())
	up, down := newFakeUpstream(), newFakeDownstream()

	err := NewBridge(failingStartEngine{f.engine}, nil).Run(context.Background(), "s1", up, down)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store down")
	select {
	case <-up.closed:
	default:
		t.Fatal("upstream should be closed")
	}
	select {
	case <-down.closed:
	default:
		t.Fatal("downstream should be closed")
	}
}

func TestBridge_ContextCancelStops(t *testing.T) {
	f := newStreamingFixture(t, oneQuestionScript())
	up, down := newFakeUpstream(), newFakeDownstream()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewBridge(f.engine, nil).Run(ctx, "s1", up, down) }()

	up.nextSent(t)
	cancel()
	require.NoError(t, waitDone(t, done))
	_, err := f.store.Get(context.Background(), "s1")
	assert.ErrorIs(t, err, interview.ErrSessionNotFound)
}
