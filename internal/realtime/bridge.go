package realtime

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/voice-booking-assistant/internal/interview"
	"github.com/wolfman30/voice-booking-assistant/pkg/logging"
)

var realtimeTracer = otel.Tracer("voicebooking.internal.realtime")

type conversationEngine interface {
	Start(ctx context.Context, id string, transport interview.Transport, callerPhone string) (*interview.Session, error)
	Prompt(sess *interview.Session) interview.Reply
	Step(ctx context.Context, sess *interview.Session, utterance string) (interview.Reply, error)
	End(ctx context.Context, id string) error
}

// Downstream is the browser side of a streaming session.
type Downstream interface {
	Send(msg ClientMessage) error
	// Closed is closed once the browser disconnects.
	Closed() <-chan struct{}
	Close() error
}

// Bridge runs one streaming interview between a browser and the speech engine.
type Bridge struct {
	engine conversationEngine
	logger *logging.Logger
}

// NewBridge creates a bridge.
func NewBridge(engine conversationEngine, logger *logging.Logger) *Bridge {
	if engine == nil {
		panic("realtime: engine cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Bridge{engine: engine, logger: logger}
}

type inbound struct {
	ev  Event
	err error
}

// Run drives the interview until it completes, either side disconnects or ctx
// ends. The session is always ended and both connections closed on return.
func (b *Bridge) Run(ctx context.Context, sessionID string, up Upstream, down Downstream) error {
	ctx, span := realtimeTracer.Start(ctx, "realtime.session")
	defer span.End()
	span.SetAttributes(attribute.String("voicebooking.session_id", sessionID))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer func() {
		if err := b.engine.End(context.WithoutCancel(ctx), sessionID); err != nil {
			b.logger.Error("failed to end streaming session", "error", err, "session_id", sessionID)
		}
		_ = up.Close()
		_ = down.Close()
	}()

	sess, err := b.engine.Start(ctx, sessionID, interview.TransportStreaming, "")
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("realtime: start session: %w", err)
	}
	if err := b.deliver(sessionID, b.engine.Prompt(sess), up, down); err != nil {
		span.RecordError(err)
		return err
	}

	events := make(chan inbound)
	go func() {
		defer close(events)
		for {
			ev, err := up.Receive()
			if err != nil && errors.Is(err, ErrMalformedEvent) {
				b.logger.Warn("skipping malformed realtime event", "session_id", sessionID, "error", err)
				continue
			}
			select {
			case events <- inbound{ev: ev, err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-down.Closed():
			b.logger.Info("browser disconnected", "session_id", sessionID)
			return nil
		case in, ok := <-events:
			if !ok {
				return nil
			}
			if in.err != nil {
				b.logger.Info("speech engine disconnected", "session_id", sessionID, "error", in.err)
				return nil
			}
			if in.ev.Type == EventError && in.ev.Error != nil {
				b.logger.Warn("speech engine error", "session_id", sessionID, "message", in.ev.Error.Message)
				continue
			}
			utterance, ok := in.ev.Utterance()
			if !ok {
				continue
			}

			reply, err := b.engine.Step(ctx, sess, utterance)
			if err != nil {
				span.RecordError(err)
				b.logger.Error("streaming step failed", "error", err, "session_id", sessionID)
				return fmt.Errorf("realtime: step: %w", err)
			}
			if err := b.deliver(sessionID, reply, up, down); err != nil {
				span.RecordError(err)
				return err
			}
			if reply.Done {
				span.SetAttributes(attribute.String("voicebooking.outcome", string(reply.Outcome)))
				return nil
			}
		}
	}
}

// deliver voices reply through the engine and mirrors it to the browser.
func (b *Bridge) deliver(sessionID string, reply interview.Reply, up Upstream, down Downstream) error {
	if err := up.Send(NewUserTextEvent(reply.Text)); err != nil {
		return fmt.Errorf("realtime: send to engine: %w", err)
	}
	msgType := ClientPrompt
	if reply.Done {
		msgType = ClientComplete
	}
	if err := down.Send(ClientMessage{Type: msgType, Text: reply.Text, SessionID: sessionID}); err != nil {
		b.logger.Debug("failed to mirror reply to browser", "error", err, "session_id", sessionID)
	}
	return nil
}
