package store

import (
	"context"
	"sync"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"

	"taskboard/internal/localstore"
)

// ThemeState is the theme slice of application state.
type ThemeState struct {
	IsDarkMode bool
}

// ThemeStore holds the dark-mode flag and mirrors it into the darkMode key
// as a JSON boolean.
type ThemeStore struct {
	mu    sync.Mutex
	state ThemeState
	ls    localstore.Store
	log   *log.Logger
	subs  notifier[ThemeState]
}

// NewThemeStore creates a theme store over the given persistence adapter.
func NewThemeStore(ls localstore.Store, logger *log.Logger) *ThemeStore {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &ThemeStore{ls: ls, log: logger}
}

// ToggleTheme flips the flag and persists the new value.
func (s *ThemeStore) ToggleTheme(ctx context.Context) {
	s.mu.Lock()
	s.state.IsDarkMode = !s.state.IsDarkMode
	data, _ := sonic.ConfigStd.Marshal(s.state.IsDarkMode)
	if err := s.ls.Set(ctx, localstore.KeyDarkMode, string(data)); err != nil {
		s.log.WithError(err).Warn("theme: persist failed")
	}
	snapshot := s.state
	s.mu.Unlock()
	s.subs.publish(snapshot)
}

// Initialize restores the persisted flag. A corrupt value is purged and the
// flag keeps its default. Initialize never fails.
func (s *ThemeStore) Initialize(ctx context.Context) {
	s.mu.Lock()
	raw, ok, err := s.ls.Get(ctx, localstore.KeyDarkMode)
	if err != nil {
		s.log.WithError(err).Warn("theme: read persisted flag failed")
	}
	if !ok {
		s.mu.Unlock()
		return
	}
	var dark bool
	if err := sonic.ConfigStd.Unmarshal([]byte(raw), &dark); err != nil {
		s.log.WithError(err).Debug("theme: purging corrupt persisted flag")
		_ = s.ls.Delete(ctx, localstore.KeyDarkMode)
		s.mu.Unlock()
		return
	}
	s.state.IsDarkMode = dark
	snapshot := s.state
	s.mu.Unlock()
	s.subs.publish(snapshot)
}

// State returns the current snapshot.
func (s *ThemeStore) State() ThemeState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers fn to run after every mutation with the new snapshot.
func (s *ThemeStore) Subscribe(fn func(ThemeState)) func() {
	return s.subs.subscribe(fn)
}
