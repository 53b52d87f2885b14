package interview

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/wolfman30/voice-booking-assistant/internal/observability/metrics"
	"github.com/wolfman30/voice-booking-assistant/pkg/logging"
)

// MemorySessionStore keeps sessions in process memory. Values are cloned on
// the way in and out so callers never share a *Session.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session

	idleTTL time.Duration
	now     func() time.Time
	metrics *metrics.InterviewMetrics
	logger  *logging.Logger

	stop     chan struct{}
	stopOnce sync.Once
}

// MemoryStoreOption customises a MemorySessionStore.
type MemoryStoreOption func(*MemorySessionStore)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) MemoryStoreOption {
	return func(s *MemorySessionStore) { s.now = now }
}

// WithStoreMetrics records evictions.
func WithStoreMetrics(m *metrics.InterviewMetrics) MemoryStoreOption {
	return func(s *MemorySessionStore) { s.metrics = m }
}

// NewMemorySessionStore creates a store. When idleTTL > 0, sessions idle
// longer than idleTTL are evicted by a janitor goroutine; call Close to stop it.
func NewMemorySessionStore(idleTTL time.Duration, logger *logging.Logger, opts ...MemoryStoreOption) *MemorySessionStore {
	if logger == nil {
		logger = logging.Default()
	}
	s := &MemorySessionStore{
		sessions: make(map[string]*Session),
		idleTTL:  idleTTL,
		now:      time.Now,
		logger:   logger,
		stop:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if idleTTL > 0 {
		go s.janitor(sweepInterval(idleTTL))
	}
	return s
}

func sweepInterval(ttl time.Duration) time.Duration {
	interval := ttl / 4
	if interval < time.Second {
		interval = time.Second
	}
	if interval > 5*time.Minute {
		interval = 5 * time.Minute
	}
	return interval
}

// Create implements SessionStore.
func (s *MemorySessionStore) Create(_ context.Context, id string, transport Transport) (*Session, error) {
	if id == "" {
		return nil, fmt.Errorf("interview: session id required")
	}
	sess := NewSession(id, transport, s.now().UTC())
	s.mu.Lock()
	if _, stale := s.sessions[id]; stale {
		s.logger.Info("replacing stale session", "session_id", id, "transport", string(transport))
	}
	s.sessions[id] = sess.Clone()
	s.mu.Unlock()
	return sess, nil
}

// Get implements SessionStore.
func (s *MemorySessionStore) Get(_ context.Context, id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess.Clone(), nil
}

// Save implements SessionStore.
func (s *MemorySessionStore) Save(_ context.Context, sess *Session) error {
	if sess == nil || sess.ID == "" {
		return fmt.Errorf("interview: session id required")
	}
	sess.LastActivityAt = s.now().UTC()
	s.mu.Lock()
	s.sessions[sess.ID] = sess.Clone()
	s.mu.Unlock()
	return nil
}

// Delete implements SessionStore.
func (s *MemorySessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}

// List implements SessionStore, oldest first.
func (s *MemorySessionStore) List(_ context.Context) ([]*Session, error) {
	s.mu.Lock()
	out := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess.Clone())
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// EvictIdle removes sessions idle for longer than the TTL and returns how
// many were removed.
func (s *MemorySessionStore) EvictIdle() int {
	if s.idleTTL <= 0 {
		return 0
	}
	cutoff := s.now().UTC().Add(-s.idleTTL)
	s.mu.Lock()
	var evicted []string
	for id, sess := range s.sessions {
		if sess.LastActivityAt.Before(cutoff) {
			delete(s.sessions, id)
			evicted = append(evicted, id)
		}
	}
	s.mu.Unlock()
	for _, id := range evicted {
		s.logger.Info("evicted idle session", "session_id", id)
	}
	s.metrics.ObserveEvicted(len(evicted))
	return len(evicted)
}

// Close stops the janitor.
func (s *MemorySessionStore) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *MemorySessionStore) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.EvictIdle()
		}
	}
}
