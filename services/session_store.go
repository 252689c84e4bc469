package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"media-site-service/logging"
	"media-site-service/metrics"
	"media-site-service/models"
	"media-site-service/storage"
	"media-site-service/utils"
)

// SessionStore maps admin bearer tokens to sessions. Sessions have no TTL;
// they end on logout. Every mutation rewrites the persisted session map.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]models.Session
	store    storage.DocumentStore
	secret   []byte
	now      func() time.Time
	log      zerolog.Logger
}

// NewSessionStore loads persisted sessions. A document that cannot be read
// is logged and the store starts empty.
func NewSessionStore(store storage.DocumentStore, secret []byte) *SessionStore {
	s := &SessionStore{
		sessions: make(map[string]models.Session),
		store:    store,
		secret:   secret,
		now:      time.Now,
		log:      logging.With("session-store"),
	}

	if _, err := store.Load(storage.Sessions, &s.sessions); err != nil {
		s.log.Error().Err(err).Msg("Failed to load sessions")
		s.sessions = make(map[string]models.Session)
	}
	if s.sessions == nil {
		s.sessions = make(map[string]models.Session)
	}
	return s
}

// CreateSession issues a new token for username and persists it.
// Login checks username and password against cred and opens a session.
// Returns ErrInvalidCredentials on mismatch.
func (s *SessionStore) Login(cred *utils.Credential, username, password string) (string, error) {
	if !cred.Verify(username, password) {
		return "", ErrInvalidCredentials
	}
	return s.CreateSession(username)
}

func (s *SessionStore) CreateSession(username string) (string, error) {
	token, err := utils.GenerateSessionToken(s.secret, username)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[token] = models.Session{Username: username, CreatedAt: s.now().UTC()}
	s.persistLocked()
	return token, nil
}

// VerifySession reports whether token is a live session.
func (s *SessionStore) VerifySession(token string) bool {
	_, err := s.Session(token)
	return err == nil
}

// Session returns the session for token. Tokens must both carry a valid
// signature and be present in the store; anything else is ErrInvalidToken.
func (s *SessionStore) Session(token string) (models.Session, error) {
	if token == "" {
		return models.Session{}, ErrInvalidToken
	}
	if _, err := utils.ValidateSessionToken(s.secret, token); err != nil {
		return models.Session{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[token]
	if !ok {
		return models.Session{}, fmt.Errorf("%w: session revoked or unknown", ErrInvalidToken)
	}
	return sess, nil
}

// DeleteSession removes token, persisting only if it existed.
func (s *SessionStore) DeleteSession(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[token]; !ok {
		return false
	}
	delete(s.sessions, token)
	s.persistLocked()
	return true
}

// Count returns the number of live sessions.
func (s *SessionStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// persistLocked writes the session map; failures leave memory authoritative.
func (s *SessionStore) persistLocked() {
	if err := s.store.Save(storage.Sessions, s.sessions); err != nil {
		metrics.PersistFailures.WithLabelValues(storage.Sessions).Inc()
		s.log.Error().Err(err).Msg("Failed to save sessions")
	}
}
