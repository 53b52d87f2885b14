package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	appconfig "github.com/wolfman30/voice-booking-assistant/internal/config"
	"github.com/wolfman30/voice-booking-assistant/internal/voice"
	"github.com/wolfman30/voice-booking-assistant/pkg/logging"
)

func TestSetupInterviewMetricsExposesMetrics(t *testing.T) {
	handler, metrics := setupInterviewMetrics()
	if handler == nil || metrics == nil {
		t.Fatalf("expected non-nil handler and metrics")
	}

	metrics.ObserveSessionStarted("turn_based")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "voicebooking_interview_sessions_started_total") {
		t.Fatalf("expected sessions counter to be exported")
	}
	if !strings.Contains(body, "go_goroutines") {
		t.Fatalf("expected runtime collectors to be exported")
	}
}

func TestSetupInterviewMetricsIsRepeatable(t *testing.T) {
	// Each call uses its own registry, so this must not panic on duplicate registration.
	setupInterviewMetrics()
	setupInterviewMetrics()
}

func TestBookingSMSSender(t *testing.T) {
	client := voice.NewTwilioClient("AC1", "token", "+15550000000", "", logging.New("error"))

	if sender := bookingSMSSender(&appconfig.Config{}, client); sender != nil {
		t.Fatalf("expected nil sender when disabled")
	}
	if sender := bookingSMSSender(&appconfig.Config{BookingSMSEnabled: true}, nil); sender != nil {
		t.Fatalf("expected nil sender without client")
	}
	if sender := bookingSMSSender(&appconfig.Config{BookingSMSEnabled: true}, client); sender == nil {
		t.Fatalf("expected sender when enabled")
	}
}
