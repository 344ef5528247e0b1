package memory

import (
	"context"
	"sync"
	"time"

	"socratic-tutor/internal/app"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
// Sessions untouched for longer than the idle TTL are forgotten lazily on
// the next lookup or count. A zero TTL keeps sessions until Delete.
type SessionStore struct {
	idle  time.Duration
	clock func() time.Time

	mu       sync.Mutex
	sessions map[string]*storedSession
}

type storedSession struct {
	session  *app.Session
	lastSeen time.Time
}

func NewSessionStore(idle time.Duration) *SessionStore {
	return &SessionStore{
		idle:     idle,
		clock:    time.Now,
		sessions: make(map[string]*storedSession),
	}
}

func (s *SessionStore) GetOrCreate(sessionID string) *app.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock()
	stored, ok := s.live(sessionID, now)
	if !ok {
		stored = &storedSession{session: app.NewSession(sessionID)}
		s.sessions[sessionID] = stored
	}
	stored.lastSeen = now
	return stored.session
}

func (s *SessionStore) Get(sessionID string) (*app.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock()
	stored, ok := s.live(sessionID, now)
	if !ok {
		return nil, false
	}
	stored.lastSeen = now
	return stored.session, true
}

// Delete forgets the session together with its submission states.
func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

// Active drops idle sessions and reports how many remain.
func (s *SessionStore) Active(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock()
	for id, stored := range s.sessions {
		if s.expired(stored, now) {
			delete(s.sessions, id)
		}
	}
	return len(s.sessions), nil
}

// live must be called with mu held.
func (s *SessionStore) live(sessionID string, now time.Time) (*storedSession, bool) {
	stored, ok := s.sessions[sessionID]
	if !ok {
		return nil, false
	}
	if s.expired(stored, now) {
		delete(s.sessions, sessionID)
		return nil, false
	}
	return stored, true
}

func (s *SessionStore) expired(stored *storedSession, now time.Time) bool {
	return s.idle > 0 && now.Sub(stored.lastSeen) > s.idle
}
