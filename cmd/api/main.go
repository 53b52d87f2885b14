package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/voice-booking-assistant/internal/api/router"
	"github.com/wolfman30/voice-booking-assistant/internal/app/bootstrap"
	appconfig "github.com/wolfman30/voice-booking-assistant/internal/config"
	"github.com/wolfman30/voice-booking-assistant/internal/http/handlers"
	"github.com/wolfman30/voice-booking-assistant/internal/interview"
	"github.com/wolfman30/voice-booking-assistant/internal/observability/metrics"
	"github.com/wolfman30/voice-booking-assistant/internal/realtime"
	"github.com/wolfman30/voice-booking-assistant/internal/voice"
	"github.com/wolfman30/voice-booking-assistant/pkg/logging"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger.Info("starting voice booking assistant",
		"env", cfg.Env,
		"port", cfg.Port,
		"session_store", cfg.SessionStore,
	)

	ctx := context.Background()
	metricsHandler, interviewMetrics := setupInterviewMetrics()

	persistence, err := bootstrap.BuildPersistence(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize persistence", "error", err)
		os.Exit(1)
	}
	defer persistence.Close()

	fuzzy, err := bootstrap.BuildMatcher(ctx, persistence.Reference, cfg, logger)
	if err != nil {
		logger.Error("failed to load reference data", "error", err)
		os.Exit(1)
	}

	sessions, closeSessions, err := bootstrap.BuildSessionStore(ctx, cfg, interviewMetrics, logger)
	if err != nil {
		logger.Error("failed to initialize session store", "error", err)
		os.Exit(1)
	}
	defer closeSessions()

	engine := interview.NewEngine(interview.EngineConfig{
		Store:   sessions,
		Matcher: fuzzy,
		Saver:   persistence.Saver,
		Metrics: interviewMetrics,
		Logger:  logger,
	})

	twilio := voice.NewTwilioClient(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioPhoneNumber, cfg.TwilioAPIBaseURL, logger)
	voiceHandler := voice.NewHandler(engine, voice.HandlerConfig{
		AuthToken:         cfg.TwilioAuthToken,
		ValidateSignature: cfg.TwilioValidateSignature,
		PublicBaseURL:     cfg.PublicBaseURL,
		SMS:               bookingSMSSender(cfg, twilio),
	}, logger)
	callMeHandler := voice.NewCallMeHandler(twilio, cfg.MyPhoneNumber, cfg.PublicBaseURL, logger)

	dialer := realtime.NewEngineDialer(cfg.RealtimeURL, cfg.RealtimeModel, cfg.OpenAIAPIKey)
	mediaStream := realtime.NewHandler(engine, dialer, logger)

	adminSessions := handlers.NewAdminSessionsHandler(sessions, engine.Script(), fuzzy, logger)

	r := router.New(&router.Config{
		Logger:             logger,
		VoiceHandler:       voiceHandler,
		CallMeHandler:      callMeHandler,
		MediaStream:        mediaStream,
		AdminSessions:      adminSessions,
		AdminAuthSecret:    cfg.AdminJWTSecret,
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		CallMeRatePerSec:   cfg.CallMeRatePerSec,
		CallMeBurst:        cfg.CallMeBurst,
	})

	// WriteTimeout stays zero: /media-stream holds its connection for the
	// whole interview.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// setupInterviewMetrics registers the interview collectors on a dedicated
// registry alongside the Go runtime collectors.
func setupInterviewMetrics() (http.Handler, *metrics.InterviewMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewInterviewMetrics(reg)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}), m
}

// bookingSMSSender returns the confirmation texter, or nil when disabled.
func bookingSMSSender(cfg *appconfig.Config, client *voice.TwilioClient) voice.SMSSender {
	if cfg == nil || !cfg.BookingSMSEnabled || client == nil {
		return nil
	}
	return client
}
