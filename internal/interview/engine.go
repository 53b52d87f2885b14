// Package interview drives the propose-then-confirm booking conversation.
//
// One Engine serves every transport: adapters translate their wire format
// into Start/Resume, Step and End calls and speak whatever Reply.Text holds.
// Each answer is fuzzy-matched, read back to the caller and only locked after
// an explicit yes, because free-form speech (names, cities, hospitals) is
// transcribed unreliably.
package interview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/voice-booking-assistant/internal/appointments"
	"github.com/wolfman30/voice-booking-assistant/internal/matcher"
	"github.com/wolfman30/voice-booking-assistant/internal/observability/metrics"
	"github.com/wolfman30/voice-booking-assistant/pkg/logging"
)

var engineTracer = otel.Tracer("voicebooking.internal.interview")

// Matcher maps raw speech to the closest reference value.
type Matcher interface {
	Match(category matcher.Category, raw string) string
}

// AppointmentSaver persists a completed interview.
type AppointmentSaver interface {
	SaveAppointment(ctx context.Context, appt appointments.Appointment) error
}

// Outcome labels what a step did.
type Outcome string

const (
	// OutcomeAsked: a question prompt is being asked.
	OutcomeAsked Outcome = "asked"
	// OutcomeConfirm: an answer was matched and is being read back.
	OutcomeConfirm Outcome = "confirm"
	// OutcomeReprompt: the input could not be used; the same question is repeated.
	OutcomeReprompt Outcome = "reprompt"
	// OutcomeRejected: the caller said no; the original question is asked again.
	OutcomeRejected      Outcome = "rejected"
	OutcomeBooked        Outcome = "booked"
	OutcomePersistFailed Outcome = "persist_failed"
)

// Reply is what the transport should say next.
type Reply struct {
	Text    string
	Done    bool
	Outcome Outcome
	// Appointment is set when Outcome is OutcomeBooked.
	Appointment *appointments.Appointment
}

// EngineConfig wires an Engine.
type EngineConfig struct {
	Script  *Script
	Locale  Locale
	Store   SessionStore
	Matcher Matcher
	Saver   AppointmentSaver
	Metrics *metrics.InterviewMetrics
	Logger  *logging.Logger
	Now     func() time.Time
}

// Engine is the shared question/confirmation state machine.
type Engine struct {
	script  *Script
	locale  Locale
	store   SessionStore
	matcher Matcher
	saver   AppointmentSaver
	metrics *metrics.InterviewMetrics
	logger  *logging.Logger
	now     func() time.Time
}

// NewEngine builds an engine. Script and Locale default to the Hindi line.
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Store == nil {
		panic("interview: session store required")
	}
	if cfg.Matcher == nil {
		panic("interview: matcher required")
	}
	if cfg.Saver == nil {
		panic("interview: appointment saver required")
	}
	if cfg.Script == nil {
		cfg.Script = HindiScript()
	}
	if cfg.Locale.ConfirmTemplate == "" {
		cfg.Locale = HindiLocale()
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Engine{
		script:  cfg.Script,
		locale:  cfg.Locale,
		store:   cfg.Store,
		matcher: cfg.Matcher,
		saver:   cfg.Saver,
		metrics: cfg.Metrics,
		logger:  cfg.Logger,
		now:     cfg.Now,
	}
}

// Locale returns the engine's locale for transport-level text.
func (e *Engine) Locale() Locale { return e.locale }

// Script returns the question script.
func (e *Engine) Script() *Script { return e.script }

// Store returns the session table.
func (e *Engine) Store() SessionStore { return e.store }

// Start begins a fresh interview for id, replacing any stale session.
func (e *Engine) Start(ctx context.Context, id string, transport Transport, callerPhone string) (*Session, error) {
	sess, err := e.store.Create(ctx, id, transport)
	if err != nil {
		return nil, fmt.Errorf("interview: start session: %w", err)
	}
	if callerPhone != "" {
		sess.CallerPhone = callerPhone
		if err := e.store.Save(ctx, sess); err != nil {
			return nil, fmt.Errorf("interview: start session: %w", err)
		}
	}
	e.metrics.ObserveSessionStarted(string(transport))
	e.logger.Info("interview started", "session_id", id, "transport", string(transport))
	return sess, nil
}

// Resume looks up id, transparently starting a new interview on a miss.
// created reports whether a new session was made.
func (e *Engine) Resume(ctx context.Context, id string, transport Transport, callerPhone string) (sess *Session, created bool, err error) {
	sess, err = e.store.Get(ctx, id)
	if err == nil {
		return sess, false, nil
	}
	if !errors.Is(err, ErrSessionNotFound) {
		return nil, false, fmt.Errorf("interview: resume session: %w", err)
	}
	e.logger.Warn("session lookup miss, restarting interview", "session_id", id, "transport", string(transport))
	sess, err = e.Start(ctx, id, transport, callerPhone)
	if err != nil {
		return nil, false, err
	}
	return sess, true, nil
}

// End discards a session. Safe to call for unknown ids.
func (e *Engine) End(ctx context.Context, id string) error {
	if err := e.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("interview: end session: %w", err)
	}
	return nil
}

// Prompt is what to say in the session's current state without consuming input.
func (e *Engine) Prompt(sess *Session) Reply {
	if sess.HasPending {
		return Reply{Text: e.locale.Confirm(sess.Pending), Outcome: OutcomeConfirm}
	}
	q, ok := e.script.At(sess.QuestionIndex)
	if !ok {
		return Reply{Text: e.locale.BookedMessage, Done: true, Outcome: OutcomeBooked}
	}
	return Reply{Text: q.Prompt, Outcome: OutcomeAsked}
}

// Step consumes one utterance and returns the next thing to say. On
// completion the appointment is persisted and the session deleted whether or
// not persistence succeeded. A returned error means the session could not be
// read or written; the caller should apologise and End it.
func (e *Engine) Step(ctx context.Context, sess *Session, utterance string) (Reply, error) {
	ctx, span := engineTracer.Start(ctx, "interview.step")
	defer span.End()
	span.SetAttributes(
		attribute.String("voicebooking.session_id", sess.ID),
		attribute.String("voicebooking.transport", string(sess.Transport)),
		attribute.Int("voicebooking.question_index", sess.QuestionIndex),
	)

	start := e.now()
	reply, err := e.step(ctx, sess, strings.TrimSpace(utterance))
	if err != nil {
		span.RecordError(err)
		return Reply{}, err
	}
	span.SetAttributes(attribute.String("voicebooking.outcome", string(reply.Outcome)))
	e.metrics.ObserveTurn(string(sess.Transport), string(reply.Outcome), e.now().Sub(start).Seconds())
	e.logger.Debug("interview step",
		"session_id", sess.ID,
		"question_index", sess.QuestionIndex,
		"outcome", string(reply.Outcome),
	)
	return reply, nil
}

func (e *Engine) step(ctx context.Context, sess *Session, utterance string) (Reply, error) {
	q, ok := e.script.At(sess.QuestionIndex)
	if !ok {
		return e.complete(ctx, sess)
	}

	if !sess.HasPending {
		if utterance == "" {
			return e.save(ctx, sess, Reply{Text: q.Prompt, Outcome: OutcomeReprompt})
		}
		sess.Pending = e.matcher.Match(q.Category, utterance)
		sess.HasPending = true
		return e.save(ctx, sess, Reply{Text: e.locale.Confirm(sess.Pending), Outcome: OutcomeConfirm})
	}

	switch e.locale.Classify(utterance) {
	case ConfirmationYes:
		sess.Answers[q.Key] = sess.Pending
		sess.Pending, sess.HasPending = "", false
		sess.QuestionIndex++
		next, ok := e.script.At(sess.QuestionIndex)
		if !ok {
			return e.complete(ctx, sess)
		}
		return e.save(ctx, sess, Reply{Text: next.Prompt, Outcome: OutcomeAsked})
	case ConfirmationNo:
		sess.Pending, sess.HasPending = "", false
		return e.save(ctx, sess, Reply{Text: q.Prompt, Outcome: OutcomeRejected})
	default:
		return e.save(ctx, sess, Reply{Text: e.locale.NotUnderstood(sess.Pending), Outcome: OutcomeReprompt})
	}
}

func (e *Engine) save(ctx context.Context, sess *Session, reply Reply) (Reply, error) {
	if err := e.store.Save(ctx, sess); err != nil {
		return Reply{}, fmt.Errorf("interview: save session: %w", err)
	}
	return reply, nil
}

func (e *Engine) complete(ctx context.Context, sess *Session) (Reply, error) {
	appt := appointments.New(sess.ID, string(sess.Transport), sess.CallerPhone, sess.Answers, e.now())
	saveErr := e.saver.SaveAppointment(ctx, appt)
	if err := e.store.Delete(ctx, sess.ID); err != nil {
		e.logger.Error("failed to delete completed session", "session_id", sess.ID, "error", err)
	}
	e.metrics.ObserveAppointment(saveErr == nil)

	if saveErr != nil {
		e.logger.Error("failed to save appointment",
			"session_id", sess.ID,
			"transport", string(sess.Transport),
			"error", saveErr,
		)
		return Reply{Text: e.locale.BookingFailedMessage, Done: true, Outcome: OutcomePersistFailed}, nil
	}
	e.logger.Info("appointment booked",
		"session_id", sess.ID,
		"appointment_id", appt.ID.String(),
		"transport", string(sess.Transport),
	)
	return Reply{Text: e.locale.BookedMessage, Done: true, Outcome: OutcomeBooked, Appointment: &appt}, nil
}
