package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/voice-booking-assistant/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/voice-booking-assistant/internal/http/middleware"
	"github.com/wolfman30/voice-booking-assistant/internal/voice"
	"github.com/wolfman30/voice-booking-assistant/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger        *logging.Logger
	VoiceHandler  *voice.Handler
	CallMeHandler http.Handler
	// MediaStream is the streaming websocket endpoint; nil leaves it unmounted.
	MediaStream        http.Handler
	AdminSessions      *handlers.AdminSessionsHandler
	AdminAuthSecret    string
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	CallMeRatePerSec float64
	CallMeBurst      int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	if cfg.VoiceHandler == nil {
		panic("router: voice handler required")
	}
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}

	r.Group(func(public chi.Router) {
		public.Use(middleware.Compress(5))
		public.Get("/health", healthCheck)
		public.Post(voice.IncomingCallPath, cfg.VoiceHandler.IncomingCall)
		public.Post(voice.ProcessResponsePath, cfg.VoiceHandler.ProcessCallResponse)
		if cfg.CallMeHandler != nil {
			public.With(httpmiddleware.RateLimit(cfg.CallMeRatePerSec, cfg.CallMeBurst)).
				Post("/call-me", cfg.CallMeHandler.ServeHTTP)
		}
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Upgraded connections bypass Compress.
	if cfg.MediaStream != nil {
		r.Get("/media-stream", cfg.MediaStream.ServeHTTP)
	}

	if cfg.AdminAuthSecret != "" && cfg.AdminSessions != nil {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret, cfg.Logger))
			admin.Get("/sessions", cfg.AdminSessions.ListSessions)
			admin.Get("/sessions/{sessionID}", cfg.AdminSessions.GetSession)
			admin.Delete("/sessions/{sessionID}", cfg.AdminSessions.DeleteSession)
			admin.Post("/reference/reload", cfg.AdminSessions.ReloadReference)
		})
	}

	return r
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
