package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/voice-booking-assistant/internal/interview"
	"github.com/wolfman30/voice-booking-assistant/internal/matcher"
)

type stubReloader struct {
	err   error
	loads int
}

func (s *stubReloader) Load(context.Context) error {
	s.loads++
	return s.err
}

func (s *stubReloader) Sizes() map[matcher.Category]int {
	return map[matcher.Category]int{matcher.CategoryName: 3, matcher.CategoryCity: 2}
}

func newAdminRouter(h *AdminSessionsHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/admin/sessions", h.ListSessions)
	r.Get("/admin/sessions/{sessionID}", h.GetSession)
	r.Delete("/admin/sessions/{sessionID}", h.DeleteSession)
	r.Post("/admin/reference/reload", h.ReloadReference)
	return r
}

func seedStore(t *testing.T) *interview.MemorySessionStore {
	t.Helper()
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	store := interview.NewMemorySessionStore(0, nil, interview.WithClock(func() time.Time { return now }))
	ctx := context.Background()

	sess, err := store.Create(ctx, "CA1", interview.TransportTurnBased)
	require.NoError(t, err)
	sess.Answers["name"] = "Maria"
	sess.QuestionIndex = 1
	sess.Pending, sess.HasPending = "Raipur", true
	require.NoError(t, store.Save(ctx, sess))

	now = now.Add(time.Minute)
	_, err = store.Create(ctx, "1700000000000000000", interview.TransportStreaming)
	require.NoError(t, err)
	return store
}

func TestAdminSessions_List(t *testing.T) {
	h := NewAdminSessionsHandler(seedStore(t), nil, nil, nil)
	rec := httptest.NewRecorder()
	newAdminRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/sessions", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body SessionsListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 2, body.Total)
	assert.Equal(t, "CA1", body.Sessions[0].ID)
	assert.Equal(t, "city", body.Sessions[0].CurrentQuestion)
	require.NotNil(t, body.Sessions[0].Pending)
	assert.Equal(t, "Raipur", *body.Sessions[0].Pending)
	assert.Equal(t, "streaming", body.Sessions[1].Transport)
	assert.Nil(t, body.Sessions[1].Pending)
	assert.Equal(t, "name", body.Sessions[1].CurrentQuestion)
}

func TestAdminSessions_GetAndDelete(t *testing.T) {
	store := seedStore(t)
	router := newAdminRouter(NewAdminSessionsHandler(store, nil, nil, nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/sessions/CA1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var sess SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sess))
	assert.Equal(t, map[string]string{"name": "Maria"}, sess.Answers)
	assert.Equal(t, "2025-03-10T09:00:00Z", sess.CreatedAt)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/admin/sessions/CA1", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/admin/sessions/CA1", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/sessions/CA1", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"session not found"}`, rec.Body.String())
}

func TestAdminSessions_ReloadReference(t *testing.T) {
	reloader := &stubReloader{}
	router := newAdminRouter(NewAdminSessionsHandler(seedStore(t), nil, reloader, nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/reference/reload", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"reloaded","sizes":{"name":3,"city":2}}`, rec.Body.String())
	assert.Equal(t, 1, reloader.loads)

	reloader.err = errors.New("db down")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/reference/reload", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestAdminSessions_ReloadNotConfigured(t *testing.T) {
	router := newAdminRouter(NewAdminSessionsHandler(seedStore(t), nil, nil, nil))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/reference/reload", nil))
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}
