package memory

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/quarkfin/qwallet-web/internal/core/domain"
	"github.com/quarkfin/qwallet-web/internal/core/ports"
)

const defaultSessionTTL = 24 * time.Hour

type entry struct {
	session   domain.Session
	expiresAt time.Time
}

// SessionStore keeps sessions in process memory. Sessions are lost on
// restart and are not shared between replicas. Every write pushes the
// entry's expiry ttl into the future; expired entries read as absent.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]entry
	ttl      time.Duration
	now      func() time.Time
}

var _ ports.SessionStore = (*SessionStore)(nil)

func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &SessionStore{sessions: make(map[string]entry), ttl: ttl, now: time.Now}
}

func (s *SessionStore) Get(_ context.Context, sid string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.live(sid)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return cloneSession(stored.session), nil
}

func (s *SessionStore) Put(_ context.Context, sid string, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current int64
	if stored, ok := s.live(sid); ok {
		current = stored.session.Version
	}
	if session.Version != current {
		return domain.ErrStaleSession
	}

	next := *cloneSession(*session)
	next.Version = current + 1
	s.sessions[sid] = entry{session: next, expiresAt: s.now().Add(s.ttl)}
	session.Version = next.Version
	return nil
}

func (s *SessionStore) Delete(_ context.Context, sid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sid)
	return nil
}

func (s *SessionStore) Ping(context.Context) error { return nil }

// Sweep drops every expired entry and reports how many were removed.
func (s *SessionStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for sid, e := range s.sessions {
		if !now.Before(e.expiresAt) {
			delete(s.sessions, sid)
			removed++
		}
	}
	return removed
}

// StartSweeping runs Sweep every interval in a background goroutine until
// ctx is cancelled.
func (s *SessionStore) StartSweeping(ctx context.Context, interval time.Duration, log zerolog.Logger) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.Sweep(); n > 0 {
					log.Debug().Int("removed", n).Msg("swept expired sessions")
				}
			}
		}
	}()
}

// live returns the entry for sid unless it is missing or expired. An
// expired entry is removed. Callers hold s.mu.
func (s *SessionStore) live(sid string) (entry, bool) {
	e, ok := s.sessions[sid]
	if !ok {
		return entry{}, false
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.sessions, sid)
		return entry{}, false
	}
	return e, true
}

func cloneSession(s domain.Session) *domain.Session {
	if s.User.UpdatedAt != nil {
		t := *s.User.UpdatedAt
		s.User.UpdatedAt = &t
	}
	return &s
}
