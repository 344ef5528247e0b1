package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"socratic-tutor/internal/app"
)

const sessionKeyPrefix = "tutor:session:"

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Sessions (and their submission states) stay in a local map; Redis only
// carries a liveness marker per session so operators can see which sessions
// are active across instances.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) GetOrCreate(sessionID string) *app.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		session = app.NewSession(sessionID)
		s.sessions[sessionID] = session
	}
	// best-effort liveness marker, refreshed on every start
	_ = s.client.Set(context.Background(), s.key(sessionID), "1", s.ttl).Err()
	return session
}

func (s *SessionStore) Get(sessionID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	return session, ok
}

func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	_ = s.client.Del(context.Background(), s.key(sessionID)).Err()
}

// Active counts live-session markers in Redis, which covers sessions held by
// other instances sharing the same Redis.
func (s *SessionStore) Active(ctx context.Context) (int, error) {
	total := 0
	err := scanKeys(ctx, s.client, sessionKeyPrefix+"*", func(keys []string) error {
		total += len(keys)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (s *SessionStore) key(sessionID string) string {
	return sessionKeyPrefix + sessionID
}
