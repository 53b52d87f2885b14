package realtime

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wolfman30/voice-booking-assistant/internal/appointments"
	"github.com/wolfman30/voice-booking-assistant/internal/interview"
	"github.com/wolfman30/voice-booking-assistant/internal/matcher"
)

type fakeUpstream struct {
	sent     chan Event
	incoming chan inbound
	closed   chan struct{}
	once     sync.Once
}

func newFakeUpstream() *fakeUpstream {
	return &fakeUpstream{
		sent:     make(chan Event, 16),
		incoming: make(chan inbound, 16),
		closed:   make(chan struct{}),
	}
}

func (f *fakeUpstream) Send(ev Event) error {
	f.sent <- ev
	return nil
}

func (f *fakeUpstream) Receive() (Event, error) {
	select {
	case in := <-f.incoming:
		return in.ev, in.err
	case <-f.closed:
		return Event{}, io.EOF
	}
}

func (f *fakeUpstream) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeUpstream) push(ev Event) { f.incoming <- inbound{ev: ev} }

func (f *fakeUpstream) nextSent(t *testing.T) Event {
	t.Helper()
	select {
	case ev := <-f.sent:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event sent upstream")
		return Event{}
	}
}

type fakeDownstream struct {
	msgs   chan ClientMessage
	closed chan struct{}
	once   sync.Once
}

func newFakeDownstream() *fakeDownstream {
	return &fakeDownstream{msgs: make(chan ClientMessage, 16), closed: make(chan struct{})}
}

func (f *fakeDownstream) Send(msg ClientMessage) error {
	f.msgs <- msg
	return nil
}

func (f *fakeDownstream) Closed() <-chan struct{} { return f.closed }

func (f *fakeDownstream) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeDownstream) next(t *testing.T) ClientMessage {
	t.Helper()
	select {
	case msg := <-f.msgs:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for browser message")
		return ClientMessage{}
	}
}

type fakeDialer struct {
	up  *fakeUpstream
	err error
}

func (d *fakeDialer) Dial(context.Context) (Upstream, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.up, nil
}

func assistantSays(text string) Event {
	return Event{
		Type: EventItemCreated,
		Item: &Item{Type: "message", Role: "assistant", Content: []ContentPart{{Type: "text", Text: text}}},
	}
}

func transcription(text string) Event {
	return Event{Type: EventTranscriptionCompleted, Transcript: text}
}

type streamingFixture struct {
	engine *interview.Engine
	store  *interview.MemorySessionStore
	repo   *appointments.InMemoryRepository
}

func newStreamingFixture(t *testing.T, script *interview.Script) streamingFixture {
	t.Helper()
	m := matcher.New(matcher.StaticSource{Names: []string{"Maria"}}, matcher.DefaultThreshold, nil)
	require.NoError(t, m.Load(context.Background()))
	store := interview.NewMemorySessionStore(0, nil)
	repo := appointments.NewInMemoryRepository()
	engine := interview.NewEngine(interview.EngineConfig{
		Script:  script,
		Store:   store,
		Matcher: m,
		Saver:   repo,
	})
	return streamingFixture{engine: engine, store: store, repo: repo}
}
