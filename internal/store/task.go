package store

import (
	"context"
	"errors"
	"sync"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"

	"taskboard/internal/domain"
	"taskboard/internal/localstore"
)

// ErrTaskNotFound is returned when a mutation targets an id that is not in
// the collection. The collection is left unchanged.
var ErrTaskNotFound = errors.New("task not found")

// TaskState is the task slice of application state. Loading and Error are
// transient and never persisted; an empty Error means none.
type TaskState struct {
	Tasks   []domain.Task
	Loading bool
	Error   string
}

// TaskStore holds the ordered task collection and mirrors it into the tasks
// persistence key. Every successful mutation clears Error and rewrites the
// full persisted snapshot.
type TaskStore struct {
	mu    sync.Mutex
	state TaskState
	ls    localstore.Store
	log   *log.Logger
	subs  notifier[TaskState]
}

// NewTaskStore creates a task store over the given persistence adapter.
func NewTaskStore(ls localstore.Store, logger *log.Logger) *TaskStore {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &TaskStore{ls: ls, log: logger}
}

// SetTasks replaces the collection in the given order.
func (s *TaskStore) SetTasks(ctx context.Context, tasks []domain.Task) {
	s.mu.Lock()
	s.state.Tasks = append([]domain.Task(nil), tasks...)
	s.state.Error = ""
	s.persistLocked(ctx)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()
	s.subs.publish(snapshot)
}

// AddTask appends the task to the end of the collection.
func (s *TaskStore) AddTask(ctx context.Context, task domain.Task) {
	s.mu.Lock()
	s.state.Tasks = append(s.state.Tasks, task)
	s.state.Error = ""
	s.persistLocked(ctx)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()
	s.subs.publish(snapshot)
}

// UpdateTask replaces the element whose id matches, preserving its position.
// An unknown id returns ErrTaskNotFound and leaves both the collection and
// the persisted snapshot untouched.
func (s *TaskStore) UpdateTask(ctx context.Context, id string, task domain.Task) error {
	s.mu.Lock()
	idx := -1
	for i := range s.state.Tasks {
		if s.state.Tasks[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return ErrTaskNotFound
	}
	s.state.Tasks[idx] = task
	s.state.Error = ""
	s.persistLocked(ctx)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()
	s.subs.publish(snapshot)
	return nil
}

// DeleteTask removes the element whose id matches; absent ids are a no-op.
func (s *TaskStore) DeleteTask(ctx context.Context, id string) {
	s.mu.Lock()
	kept := s.state.Tasks[:0]
	removed := false
	for _, t := range s.state.Tasks {
		if t.ID == id {
			removed = true
			continue
		}
		kept = append(kept, t)
	}
	if !removed {
		s.mu.Unlock()
		return
	}
	s.state.Tasks = kept
	s.state.Error = ""
	s.persistLocked(ctx)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()
	s.subs.publish(snapshot)
}

// SetLoading flips the transient loading flag.
func (s *TaskStore) SetLoading(loading bool) {
	s.mu.Lock()
	s.state.Loading = loading
	snapshot := s.snapshotLocked()
	s.mu.Unlock()
	s.subs.publish(snapshot)
}

// SetError sets the transient error message; empty clears it.
func (s *TaskStore) SetError(msg string) {
	s.mu.Lock()
	s.state.Error = msg
	snapshot := s.snapshotLocked()
	s.mu.Unlock()
	s.subs.publish(snapshot)
}

// Initialize adopts the persisted collection verbatim. A corrupt value is
// purged and the collection stays empty. Initialize never fails.
func (s *TaskStore) Initialize(ctx context.Context) {
	s.mu.Lock()
	raw, ok, err := s.ls.Get(ctx, localstore.KeyTasks)
	if err != nil {
		s.log.WithError(err).Warn("tasks: read persisted collection failed")
	}
	if !ok {
		s.mu.Unlock()
		return
	}
	var tasks []domain.Task
	if err := sonic.ConfigStd.Unmarshal([]byte(raw), &tasks); err != nil {
		s.log.WithError(err).Debug("tasks: purging corrupt persisted collection")
		_ = s.ls.Delete(ctx, localstore.KeyTasks)
		s.mu.Unlock()
		return
	}
	s.state.Tasks = tasks
	snapshot := s.snapshotLocked()
	s.mu.Unlock()
	s.subs.publish(snapshot)
}

// State returns a snapshot with its own copy of the collection.
func (s *TaskStore) State() TaskState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers fn to run after every mutation with the new snapshot.
func (s *TaskStore) Subscribe(fn func(TaskState)) func() {
	return s.subs.subscribe(fn)
}

func (s *TaskStore) snapshotLocked() TaskState {
	out := s.state
	out.Tasks = append([]domain.Task(nil), s.state.Tasks...)
	return out
}

func (s *TaskStore) persistLocked(ctx context.Context) {
	tasks := s.state.Tasks
	if tasks == nil {
		tasks = []domain.Task{}
	}
	data, err := sonic.ConfigStd.Marshal(tasks)
	if err != nil {
		s.log.WithError(err).Warn("tasks: encode collection failed")
		return
	}
	if err := s.ls.Set(ctx, localstore.KeyTasks, string(data)); err != nil {
		s.log.WithError(err).Warn("tasks: persist collection failed")
	}
}
