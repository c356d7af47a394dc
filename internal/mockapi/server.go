// Package mockapi is an in-process stand-in for the task-management backend.
// It serves the same HTTP contract a real server would: bearer-token checks,
// simulated latency, and task CRUD over an in-memory collection mirrored
// into the shared persistence key.
package mockapi

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"taskboard/internal/domain"
	"taskboard/internal/localstore"
)

// Demo credentials accepted by the login endpoint.
const (
	DemoUsername = "test"
	DemoPassword = "test123"
)

var demoUser = domain.User{
	ID:       "1",
	Username: "test",
	Email:    "test@example.com",
}

// Simulated latencies, per route.
const (
	loginLatency  = 500 * time.Millisecond
	listLatency   = 300 * time.Millisecond
	createLatency = 400 * time.Millisecond
	updateLatency = 400 * time.Millisecond
	deleteLatency = 300 * time.Millisecond
)

// Server holds the in-memory task list. The list is lazily seeded from
// persistence at first use; every mutation rewrites the persisted snapshot
// before the response goes out. Create once per process; Reset exists for
// tests.
type Server struct {
	mu     sync.Mutex
	tasks  []domain.Task
	loaded bool

	ls  localstore.Store
	log *log.Logger
	now func() time.Time

	latency bool
	lastID  int64
}

// Option configures a Server.
type Option func(*Server)

// WithoutLatency disables the simulated delays. Intended for tests.
func WithoutLatency() Option {
	return func(s *Server) { s.latency = false }
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New creates a mock server over the given persistence adapter. A nil logger
// falls back to the logrus standard logger.
func New(ls localstore.Store, logger *log.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = log.StandardLogger()
	}
	s := &Server{
		ls:      ls,
		log:     logger,
		now:     time.Now,
		latency: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Reset drops the in-memory collection so the next request reloads (or
// reseeds) from persistence. Test hook.
func (s *Server) Reset() {
	s.mu.Lock()
	s.tasks = nil
	s.loaded = false
	s.mu.Unlock()
}

// delay blocks for the route's simulated latency. A pending call always
// resolves unless the caller's context dies first.
func (s *Server) delay(ctx context.Context, d time.Duration) error {
	if !s.latency || d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ensureLoadedLocked seeds the collection on first use: a clean persisted
// value is adopted verbatim, a corrupt one is purged, and an absent one
// yields the three example tasks. The seed itself is not persisted until the
// first mutation.
func (s *Server) ensureLoadedLocked(ctx context.Context) {
	if s.loaded {
		return
	}
	s.loaded = true
	raw, ok, err := s.ls.Get(ctx, localstore.KeyTasks)
	if err != nil {
		s.log.WithError(err).Warn("mockapi: read persisted tasks failed")
	}
	if ok {
		var tasks []domain.Task
		if err := json.Unmarshal([]byte(raw), &tasks); err == nil {
			s.tasks = tasks
			return
		}
		s.log.Debug("mockapi: purging corrupt persisted tasks")
		_ = s.ls.Delete(ctx, localstore.KeyTasks)
	}
	s.tasks = s.seedTasks()
}

func (s *Server) seedTasks() []domain.Task {
	now := s.now().UTC().Format(time.RFC3339)
	return []domain.Task{
		{
			ID:          "1",
			Title:       "Complete project documentation",
			Description: "Write comprehensive documentation for the task management application",
			Status:      domain.StatusInProgress,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		{
			ID:          "2",
			Title:       "Review pull requests",
			Description: "Review and merge pending pull requests from team members",
			Status:      domain.StatusTodo,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		{
			ID:          "3",
			Title:       "Deploy to production",
			Description: "Deploy the latest version to production environment",
			Status:      domain.StatusCompleted,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
	}
}

// persistLocked rewrites the full snapshot. Mutating handlers call it before
// responding so the persisted value is never behind the in-memory list.
func (s *Server) persistLocked(ctx context.Context) error {
	tasks := s.tasks
	if tasks == nil {
		tasks = []domain.Task{}
	}
	data, err := json.Marshal(tasks)
	if err != nil {
		return err
	}
	return s.ls.Set(ctx, localstore.KeyTasks, string(data))
}

// nextID issues a monotonic time-based id: current Unix millis, bumped past
// the last issued value when calls land on the same tick.
func (s *Server) nextID() string {
	for {
		now := s.now().UnixMilli()
		last := atomic.LoadInt64(&s.lastID)
		if now <= last {
			now = last + 1
		}
		if atomic.CompareAndSwapInt64(&s.lastID, last, now) {
			return strconv.FormatInt(now, 10)
		}
	}
}
