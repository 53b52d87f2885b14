package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/voice-booking-assistant/internal/interview"
	"github.com/wolfman30/voice-booking-assistant/internal/matcher"
	"github.com/wolfman30/voice-booking-assistant/pkg/logging"
)

// ReferenceReloader refreshes the fuzzy-match reference sets.
type ReferenceReloader interface {
	Load(ctx context.Context) error
	Sizes() map[matcher.Category]int
}

// AdminSessionsHandler lets operators inspect and clear live interviews.
type AdminSessionsHandler struct {
	store    interview.SessionStore
	script   *interview.Script
	reloader ReferenceReloader
	logger   *logging.Logger
}

// NewAdminSessionsHandler creates the handler. reloader may be nil, in which
// case the reload endpoint answers 501.
func NewAdminSessionsHandler(store interview.SessionStore, script *interview.Script, reloader ReferenceReloader, logger *logging.Logger) *AdminSessionsHandler {
	if store == nil {
		panic("handlers: session store cannot be nil")
	}
	if script == nil {
		script = interview.HindiScript()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminSessionsHandler{store: store, script: script, reloader: reloader, logger: logger}
}

// SessionResponse is one interview as shown to operators.
type SessionResponse struct {
	ID              string            `json:"id"`
	Transport       string            `json:"transport"`
	QuestionIndex   int               `json:"question_index"`
	CurrentQuestion string            `json:"current_question,omitempty"`
	Answers         map[string]string `json:"answers"`
	Pending         *string           `json:"pending,omitempty"`
	CallerPhone     string            `json:"caller_phone,omitempty"`
	CreatedAt       string            `json:"created_at"`
	LastActivityAt  string            `json:"last_activity_at"`
}

// SessionsListResponse wraps the session list.
type SessionsListResponse struct {
	Sessions []SessionResponse `json:"sessions"`
	Total    int               `json:"total"`
}

// ListSessions handles GET /admin/sessions.
func (h *AdminSessionsHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.store.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list sessions", "error", err)
		jsonError(w, "failed to list sessions", http.StatusInternalServerError)
		return
	}
	out := make([]SessionResponse, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, h.toResponse(sess))
	}
	writeJSON(w, http.StatusOK, SessionsListResponse{Sessions: out, Total: len(out)})
}

// GetSession handles GET /admin/sessions/{sessionID}.
func (h *AdminSessionsHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	sess, err := h.store.Get(r.Context(), id)
	if errors.Is(err, interview.ErrSessionNotFound) {
		jsonError(w, "session not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("failed to get session", "error", err, "session_id", id)
		jsonError(w, "failed to get session", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, h.toResponse(sess))
}

// DeleteSession handles DELETE /admin/sessions/{sessionID}. Unknown ids
// succeed.
func (h *AdminSessionsHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if err := h.store.Delete(r.Context(), id); err != nil {
		h.logger.Error("failed to delete session", "error", err, "session_id", id)
		jsonError(w, "failed to delete session", http.StatusInternalServerError)
		return
	}
	h.logger.Info("session deleted by operator", "session_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// ReloadReference handles POST /admin/reference/reload.
func (h *AdminSessionsHandler) ReloadReference(w http.ResponseWriter, r *http.Request) {
	if h.reloader == nil {
		jsonError(w, "reference reload not configured", http.StatusNotImplemented)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()
	if err := h.reloader.Load(ctx); err != nil {
		h.logger.Error("reference reload failed", "error", err)
		jsonError(w, "reference reload failed", http.StatusInternalServerError)
		return
	}
	sizes := make(map[string]int)
	for c, n := range h.reloader.Sizes() {
		sizes[string(c)] = n
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "reloaded", "sizes": sizes})
}

func (h *AdminSessionsHandler) toResponse(sess *interview.Session) SessionResponse {
	resp := SessionResponse{
		ID:             sess.ID,
		Transport:      string(sess.Transport),
		QuestionIndex:  sess.QuestionIndex,
		Answers:        sess.Answers,
		CallerPhone:    sess.CallerPhone,
		CreatedAt:      sess.CreatedAt.UTC().Format(time.RFC3339),
		LastActivityAt: sess.LastActivityAt.UTC().Format(time.RFC3339),
	}
	if q, ok := h.script.At(sess.QuestionIndex); ok {
		resp.CurrentQuestion = q.Key
	}
	if sess.HasPending {
		pending := sess.Pending
		resp.Pending = &pending
	}
	if resp.Answers == nil {
		resp.Answers = map[string]string{}
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func jsonError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}
