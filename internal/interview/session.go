package interview

import (
	"context"
	"errors"
	"time"
)

// Transport identifies the channel a session arrived on.
type Transport string

const (
	TransportStreaming Transport = "streaming"
	TransportTurnBased Transport = "turn_based"
)

// ErrSessionNotFound is returned by SessionStore.Get for unknown ids.
var ErrSessionNotFound = errors.New("interview: session not found")

// Session is one caller's in-progress interview.
type Session struct {
	ID            string            `json:"id"`
	Transport     Transport         `json:"transport"`
	QuestionIndex int               `json:"question_index"`
	Answers       map[string]string `json:"answers"`
	// Pending is the tentative value awaiting yes/no. It never appears in
	// Answers until confirmed.
	Pending        string    `json:"pending,omitempty"`
	HasPending     bool      `json:"has_pending,omitempty"`
	CallerPhone    string    `json:"caller_phone,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

// NewSession returns a session positioned at the first question.
func NewSession(id string, transport Transport, now time.Time) *Session {
	return &Session{
		ID:             id,
		Transport:      transport,
		Answers:        make(map[string]string),
		CreatedAt:      now,
		LastActivityAt: now,
	}
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Answers = make(map[string]string, len(s.Answers))
	for k, v := range s.Answers {
		c.Answers[k] = v
	}
	return &c
}

// SessionStore is the session-lookup table. Implementations must be safe for
// concurrent use across sessions; a single session is only ever advanced by
// one goroutine at a time.
type SessionStore interface {
	// Create stores a fresh session, replacing any stale entry for id.
	Create(ctx context.Context, id string, transport Transport) (*Session, error)
	// Get returns ErrSessionNotFound when id is unknown.
	Get(ctx context.Context, id string) (*Session, error)
	// Save persists the mutations of one step.
	Save(ctx context.Context, sess *Session) error
	// Delete is idempotent.
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*Session, error)
}
