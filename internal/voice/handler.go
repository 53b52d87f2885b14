// Package voice is the turn-based telephony adapter: Twilio posts one
// webhook per caller utterance and receives TwiML telling it what to say and
// where to send the next speech result.
package voice

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/voice-booking-assistant/internal/appointments"
	"github.com/wolfman30/voice-booking-assistant/internal/interview"
	"github.com/wolfman30/voice-booking-assistant/pkg/logging"
)

var voiceTracer = otel.Tracer("voicebooking.internal.voice")

// ProcessResponsePath is where Gather posts speech results.
const ProcessResponsePath = "/process-call-response"

type conversationEngine interface {
	Start(ctx context.Context, id string, transport interview.Transport, callerPhone string) (*interview.Session, error)
	Resume(ctx context.Context, id string, transport interview.Transport, callerPhone string) (*interview.Session, bool, error)
	Step(ctx context.Context, sess *interview.Session, utterance string) (interview.Reply, error)
	End(ctx context.Context, id string) error
	Locale() interview.Locale
}

// SMSSender delivers the booking confirmation text.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// HandlerConfig tunes the webhook handler.
type HandlerConfig struct {
	// AuthToken enables X-Twilio-Signature validation when ValidateSignature is set.
	AuthToken         string
	ValidateSignature bool
	PublicBaseURL     string
	// SMS is optional; when nil no booking text is sent.
	SMS SMSSender
}

// Handler serves the Twilio voice webhooks.
type Handler struct {
	engine conversationEngine
	cfg    HandlerConfig
	logger *logging.Logger
}

// NewHandler creates a voice webhook handler.
func NewHandler(engine conversationEngine, cfg HandlerConfig, logger *logging.Logger) *Handler {
	if engine == nil {
		panic("voice: engine cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	cfg.PublicBaseURL = strings.TrimSuffix(cfg.PublicBaseURL, "/")
	return &Handler{engine: engine, cfg: cfg, logger: logger}
}

// IncomingCall handles POST /incoming-call: greet and ask for the first answer.
func (h *Handler) IncomingCall(w http.ResponseWriter, r *http.Request) {
	ctx, span := voiceTracer.Start(r.Context(), "voice.incoming_call")
	defer span.End()

	if !h.authorize(w, r) {
		span.RecordError(errors.New("invalid twilio signature"))
		return
	}
	if err := r.ParseForm(); err != nil {
		h.logger.Error("failed to parse incoming call form", "error", err)
		h.fail(ctx, w, "")
		span.RecordError(err)
		return
	}

	callSid := strings.TrimSpace(r.FormValue("CallSid"))
	caller := callerPhone(r)
	span.SetAttributes(attribute.String("voicebooking.twilio.call_sid", callSid))
	if callSid == "" {
		err := errors.New("missing CallSid")
		h.logger.Error("invalid incoming call payload", "error", err)
		h.fail(ctx, w, "")
		span.RecordError(err)
		return
	}

	if _, err := h.engine.Start(ctx, callSid, interview.TransportTurnBased, caller); err != nil {
		h.logger.Error("failed to start interview", "error", err, "call_sid", callSid)
		h.fail(ctx, w, callSid)
		span.RecordError(err)
		return
	}

	locale := h.engine.Locale()
	h.logger.Info("incoming call", "call_sid", callSid, "from", caller)
	if err := writeTwiML(w,
		h.speak(locale.Greeting),
		h.listen(locale.StartPrompt),
	); err != nil {
		h.logger.Error("failed to write twiml", "error", err, "call_sid", callSid)
	}
}

// ProcessCallResponse handles POST /process-call-response: one interview step
// per speech result.
func (h *Handler) ProcessCallResponse(w http.ResponseWriter, r *http.Request) {
	ctx, span := voiceTracer.Start(r.Context(), "voice.process_call_response")
	defer span.End()

	if !h.authorize(w, r) {
		span.RecordError(errors.New("invalid twilio signature"))
		return
	}
	if err := r.ParseForm(); err != nil {
		h.logger.Error("failed to parse speech result form", "error", err)
		h.fail(ctx, w, "")
		span.RecordError(err)
		return
	}

	callSid := strings.TrimSpace(r.FormValue("CallSid"))
	speech := r.FormValue("SpeechResult")
	span.SetAttributes(attribute.String("voicebooking.twilio.call_sid", callSid))
	if callSid == "" {
		err := errors.New("missing CallSid")
		h.logger.Error("invalid speech result payload", "error", err)
		h.fail(ctx, w, "")
		span.RecordError(err)
		return
	}

	sess, created, err := h.engine.Resume(ctx, callSid, interview.TransportTurnBased, callerPhone(r))
	if err != nil {
		h.logger.Error("failed to resume interview", "error", err, "call_sid", callSid)
		h.fail(ctx, w, callSid)
		span.RecordError(err)
		return
	}
	if created {
		span.SetAttributes(attribute.Bool("voicebooking.session_restarted", true))
	}

	reply, err := h.engine.Step(ctx, sess, speech)
	if err != nil {
		h.logger.Error("interview step failed", "error", err, "call_sid", callSid)
		h.fail(ctx, w, callSid)
		span.RecordError(err)
		return
	}
	span.SetAttributes(attribute.String("voicebooking.outcome", string(reply.Outcome)))

	if reply.Done {
		if reply.Outcome == interview.OutcomeBooked && reply.Appointment != nil {
			h.sendBookingSMS(*reply.Appointment)
		}
		if err := writeTwiML(w, h.speak(reply.Text), hangup{}); err != nil {
			h.logger.Error("failed to write twiml", "error", err, "call_sid", callSid)
		}
		return
	}

	if err := writeTwiML(w, h.listen(reply.Text), h.listen("")); err != nil {
		h.logger.Error("failed to write twiml", "error", err, "call_sid", callSid)
	}
}

// authorize writes 401 and returns false when signature checks are enabled
// and the request is not signed by Twilio.
func (h *Handler) authorize(w http.ResponseWriter, r *http.Request) bool {
	if !h.cfg.ValidateSignature {
		return true
	}
	if ValidateTwilioSignature(r, h.cfg.AuthToken, webhookURL(r, h.cfg.PublicBaseURL)) {
		return true
	}
	h.logger.Warn("invalid twilio signature", "path", r.URL.Path)
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
	return false
}

// fail apologises, hangs up and discards any session for callSid.
func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, callSid string) {
	if callSid != "" {
		if err := h.engine.End(ctx, callSid); err != nil {
			h.logger.Error("failed to end interview", "error", err, "call_sid", callSid)
		}
	}
	if err := writeTwiML(w, say{Text: h.engine.Locale().ErrorMessage}, hangup{}); err != nil {
		h.logger.Error("failed to write twiml", "error", err, "call_sid", callSid)
	}
}

func (h *Handler) speak(text string) say {
	locale := h.engine.Locale()
	return say{Voice: locale.Voice, Language: locale.Language, Text: text}
}

// listen collects the next speech result. An empty prompt produces a bare
// Gather that keeps listening after the spoken one finishes.
func (h *Handler) listen(prompt string) gather {
	locale := h.engine.Locale()
	g := gather{
		Input:         "speech",
		Action:        ProcessResponsePath,
		Method:        http.MethodPost,
		SpeechTimeout: "3",
		SpeechModel:   "phone_call",
		Language:      locale.Language,
		Hints:         strings.Join(locale.SpeechHints, ", "),
	}
	if prompt != "" {
		g.Says = []say{h.speak(prompt)}
	}
	return g
}

func (h *Handler) sendBookingSMS(appt appointments.Appointment) {
	if h.cfg.SMS == nil || appt.CallerPhone == "" {
		return
	}
	locale := h.engine.Locale()
	if locale.BookingSMSTemplate == "" {
		return
	}
	body := fmt.Sprintf(locale.BookingSMSTemplate,
		appt.Name, appt.HospitalName, appt.City, appt.Department, appt.Date, appt.Time)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.cfg.SMS.SendSMS(ctx, appt.CallerPhone, body); err != nil {
		h.logger.Warn("failed to send booking sms", "error", err, "session_id", appt.SessionID)
	}
}

// callerPhone is the remote party: From on inbound calls, To on calls we placed.
func callerPhone(r *http.Request) string {
	if strings.HasPrefix(strings.ToLower(r.FormValue("Direction")), "outbound") {
		return NormalizeE164(r.FormValue("To"))
	}
	return NormalizeE164(r.FormValue("From"))
}
