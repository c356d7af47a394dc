package store

import (
	"context"
	"sync"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"

	"taskboard/internal/domain"
	"taskboard/internal/localstore"
)

// AuthState is the authentication slice of application state.
type AuthState struct {
	User            *domain.User
	Token           string
	IsAuthenticated bool
}

// AuthStore holds the current session and mirrors it into the token and user
// persistence keys.
type AuthStore struct {
	mu    sync.Mutex
	state AuthState
	ls    localstore.Store
	log   *log.Logger
	subs  notifier[AuthState]
}

// NewAuthStore creates an auth store over the given persistence adapter.
// A nil logger falls back to the logrus standard logger.
func NewAuthStore(ls localstore.Store, logger *log.Logger) *AuthStore {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &AuthStore{ls: ls, log: logger}
}

// Login adopts the session returned by a successful authentication exchange
// and persists it. The caller guarantees the exchange already succeeded; no
// validation happens here.
func (s *AuthStore) Login(ctx context.Context, user domain.User, token string) {
	s.mu.Lock()
	if err := s.ls.Set(ctx, localstore.KeyToken, token); err != nil {
		s.log.WithError(err).Warn("auth: persist token failed")
	}
	if data, err := sonic.ConfigStd.Marshal(user); err == nil {
		if err := s.ls.Set(ctx, localstore.KeyUser, string(data)); err != nil {
			s.log.WithError(err).Warn("auth: persist user failed")
		}
	}
	u := user
	s.state = AuthState{User: &u, Token: token, IsAuthenticated: true}
	snapshot := s.state
	s.mu.Unlock()
	s.subs.publish(snapshot)
}

// Logout clears the session and removes both persisted keys. It never fails.
func (s *AuthStore) Logout(ctx context.Context) {
	s.mu.Lock()
	if err := s.ls.Delete(ctx, localstore.KeyToken); err != nil {
		s.log.WithError(err).Warn("auth: delete token failed")
	}
	if err := s.ls.Delete(ctx, localstore.KeyUser); err != nil {
		s.log.WithError(err).Warn("auth: delete user failed")
	}
	s.state = AuthState{}
	s.mu.Unlock()
	s.subs.publish(AuthState{})
}

// Initialize restores the session from persistence. The session is adopted
// only when both keys are present and the user decodes cleanly; otherwise
// both keys are purged and state stays at its default. Initialize never
// fails.
func (s *AuthStore) Initialize(ctx context.Context) {
	s.mu.Lock()
	token, okToken, err := s.ls.Get(ctx, localstore.KeyToken)
	if err != nil {
		s.log.WithError(err).Warn("auth: read token failed")
	}
	userStr, okUser, err := s.ls.Get(ctx, localstore.KeyUser)
	if err != nil {
		s.log.WithError(err).Warn("auth: read user failed")
	}
	if !okToken || !okUser {
		s.mu.Unlock()
		return
	}
	var user domain.User
	if err := sonic.ConfigStd.Unmarshal([]byte(userStr), &user); err != nil {
		s.log.WithError(err).Debug("auth: purging corrupt persisted session")
		_ = s.ls.Delete(ctx, localstore.KeyToken)
		_ = s.ls.Delete(ctx, localstore.KeyUser)
		s.mu.Unlock()
		return
	}
	s.state = AuthState{User: &user, Token: token, IsAuthenticated: true}
	snapshot := s.state
	s.mu.Unlock()
	s.subs.publish(snapshot)
}

// State returns the current snapshot. Callers must not mutate the user.
func (s *AuthStore) State() AuthState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers fn to run after every mutation with the new snapshot.
func (s *AuthStore) Subscribe(fn func(AuthState)) func() {
	return s.subs.subscribe(fn)
}
