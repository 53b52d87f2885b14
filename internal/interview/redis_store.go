package interview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "interview:session:"

// RedisSessionStore keeps sessions as JSON documents in Redis. Every write
// refreshes the key TTL, so abandoned sessions expire after idleTTL.
type RedisSessionStore struct {
	rdb     *redis.Client
	idleTTL time.Duration
	now     func() time.Time
}

// NewRedisSessionStore creates a store backed by Redis.
func NewRedisSessionStore(rdb *redis.Client, idleTTL time.Duration) *RedisSessionStore {
	if rdb == nil {
		panic("interview: redis client required")
	}
	return &RedisSessionStore{rdb: rdb, idleTTL: idleTTL, now: time.Now}
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

// Create implements SessionStore.
func (s *RedisSessionStore) Create(ctx context.Context, id string, transport Transport) (*Session, error) {
	if id == "" {
		return nil, fmt.Errorf("interview: session id required")
	}
	sess := NewSession(id, transport, s.now().UTC())
	if err := s.write(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Get implements SessionStore.
func (s *RedisSessionStore) Get(ctx context.Context, id string) (*Session, error) {
	data, err := s.rdb.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("interview: redis get: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("interview: decode session: %w", err)
	}
	if sess.Answers == nil {
		sess.Answers = make(map[string]string)
	}
	return &sess, nil
}

// Save implements SessionStore.
func (s *RedisSessionStore) Save(ctx context.Context, sess *Session) error {
	if sess == nil || sess.ID == "" {
		return fmt.Errorf("interview: session id required")
	}
	sess.LastActivityAt = s.now().UTC()
	return s.write(ctx, sess)
}

// Delete implements SessionStore.
func (s *RedisSessionStore) Delete(ctx context.Context, id string) error {
	if err := s.rdb.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("interview: redis delete: %w", err)
	}
	return nil
}

// List implements SessionStore.
func (s *RedisSessionStore) List(ctx context.Context) ([]*Session, error) {
	var out []*Session
	iter := s.rdb.Scan(ctx, 0, sessionKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		id := iter.Val()[len(sessionKeyPrefix):]
		sess, err := s.Get(ctx, id)
		if errors.Is(err, ErrSessionNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("interview: redis scan: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *RedisSessionStore) write(ctx context.Context, sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("interview: encode session: %w", err)
	}
	if err := s.rdb.Set(ctx, sessionKey(sess.ID), data, s.idleTTL).Err(); err != nil {
		return fmt.Errorf("interview: redis set: %w", err)
	}
	return nil
}
