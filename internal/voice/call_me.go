package voice

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/wolfman30/voice-booking-assistant/pkg/logging"
)

// IncomingCallPath is the webhook Twilio fetches when a placed call connects.
const IncomingCallPath = "/incoming-call"

// CallPlacer starts an outbound call.
type CallPlacer interface {
	PlaceCall(ctx context.Context, to, callbackURL string) (string, error)
}

// CallMeHandler serves POST /call-me, ringing the configured operator phone so
// the interview can be tried end to end.
type CallMeHandler struct {
	placer        CallPlacer
	to            string
	publicBaseURL string
	logger        *logging.Logger
}

type callMeResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	CallSid string `json:"call_sid,omitempty"`
}

// NewCallMeHandler creates the handler. to is the number that gets called.
func NewCallMeHandler(placer CallPlacer, to, publicBaseURL string, logger *logging.Logger) *CallMeHandler {
	if placer == nil {
		panic("voice: call placer cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &CallMeHandler{
		placer:        placer,
		to:            to,
		publicBaseURL: strings.TrimSuffix(publicBaseURL, "/"),
		logger:        logger,
	}
}

// ServeHTTP places the call.
func (h *CallMeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, span := voiceTracer.Start(r.Context(), "voice.call_me")
	defer span.End()

	callbackURL := h.callbackURL(r)
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	sid, err := h.placer.PlaceCall(ctx, h.to, callbackURL)
	if err != nil {
		h.logger.Error("failed to initiate call", "error", err, "to", h.to)
		span.RecordError(err)
		writeJSON(w, http.StatusInternalServerError, callMeResponse{Success: false, Message: "Failed to initiate call."})
		return
	}
	writeJSON(w, http.StatusOK, callMeResponse{Success: true, Message: "Call initiated successfully.", CallSid: sid})
}

func (h *CallMeHandler) callbackURL(r *http.Request) string {
	if h.publicBaseURL != "" {
		return h.publicBaseURL + IncomingCallPath
	}
	return requestOrigin(r) + IncomingCallPath
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
