package service

import (
	"log/slog"
	"sync"
	"time"

	"github.com/AnTengye/legalanalyzer/config"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// SessionStore is an in-memory registry of sessions with a sliding TTL.
// Sessions are lost on restart.
type SessionStore struct {
	sessions    *cache.Cache
	ttl         time.Duration
	maxSessions int // 0 = unlimited

	analyzer  DocumentAnalyzer
	extractor TextExtractor
	maxUpload int64

	mu sync.Mutex // serializes Create so the cap holds
}

// NewSessionStore builds a store whose sessions share analyzer and extractor
func NewSessionStore(cfg config.SessionConfig, maxUploadBytes int64, analyzer DocumentAnalyzer, extractor TextExtractor) *SessionStore {
	ttl := time.Duration(cfg.TTLMinutes) * time.Minute
	if ttl <= 0 {
		ttl = time.Hour
	}
	maxSessions := cfg.MaxSessions
	if maxSessions < 0 {
		maxSessions = 0
	}

	s := &SessionStore{
		sessions:    cache.New(ttl, cleanupInterval(ttl)),
		ttl:         ttl,
		maxSessions: maxSessions,
		analyzer:    analyzer,
		extractor:   extractor,
		maxUpload:   maxUploadBytes,
	}
	s.sessions.OnEvicted(func(id string, _ any) {
		slog.Info("session evicted", "session_id", id)
	})
	slog.Info("session store initialized", "ttl", ttl, "max_sessions", maxSessions)
	return s
}

func cleanupInterval(ttl time.Duration) time.Duration {
	interval := ttl / 4
	if interval < time.Second {
		interval = time.Second
	}
	return interval
}

// TTL is how long a session lives without being touched
func (s *SessionStore) TTL() time.Duration {
	return s.ttl
}

// Create registers a new empty session
func (s *SessionStore) Create() (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.maxSessions > 0 && s.sessions.ItemCount() >= s.maxSessions {
		s.sessions.DeleteExpired()
		if s.sessions.ItemCount() >= s.maxSessions {
			return nil, ErrTooManySessions
		}
	}

	sess := NewSession(uuid.New().String(), s.analyzer, s.extractor, s.maxUpload)
	s.sessions.SetDefault(sess.ID(), sess)
	return sess, nil
}

func (s *SessionStore) Get(id string) (*Session, error) {
	v, ok := s.sessions.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return v.(*Session), nil
}

// Touch returns the session and restarts its TTL
func (s *SessionStore) Touch(id string) (*Session, error) {
	sess, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	s.sessions.SetDefault(id, sess)
	return sess, nil
}

func (s *SessionStore) Delete(id string) {
	s.sessions.Delete(id)
}

// Count returns the number of live sessions, expired ones excluded
func (s *SessionStore) Count() int {
	return len(s.sessions.Items())
}
