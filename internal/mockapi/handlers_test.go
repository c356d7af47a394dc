package mockapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"taskboard/internal/domain"
	"taskboard/internal/localstore"
)

func newTestServer(t *testing.T, opts ...Option) (*Server, *echo.Echo, *localstore.MemStore) {
	t.Helper()
	ls := localstore.NewMemStore()
	logger := log.New()
	logger.SetLevel(log.PanicLevel)
	opts = append([]Option{WithoutLatency()}, opts...)
	srv := New(ls, logger, opts...)
	e := echo.New()
	Register(e, srv)
	return srv, e, ls
}

func doRequest(e *echo.Echo, method, path, body string, auth bool) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if auth {
		req.Header.Set(echo.HeaderAuthorization, "Bearer some-token")
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestLoginWithDemoCredentials(t *testing.T) {
	_, e, _ := newTestServer(t)

	rec := doRequest(e, http.MethodPost, "/api/login", `{"username":"test","password":"test123"}`, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeJSON[domain.AuthResponse](t, rec)
	if resp.Token == "" || strings.Count(resp.Token, ".") != 2 {
		t.Fatalf("expected a JWT-shaped token, got %q", resp.Token)
	}
	if resp.User != demoUser {
		t.Fatalf("unexpected user: %#v", resp.User)
	}
}

func TestLoginWithWrongPassword(t *testing.T) {
	_, e, _ := newTestServer(t)

	rec := doRequest(e, http.MethodPost, "/api/login", `{"username":"test","password":"wrong"}`, false)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if msg := decodeJSON[messageResponse](t, rec); msg.Message != "Invalid credentials" {
		t.Fatalf("unexpected message: %q", msg.Message)
	}
}

func TestListTasksRequiresBearer(t *testing.T) {
	_, e, _ := newTestServer(t)

	for _, header := range []string{"", "Basic abc", "Bearer"} {
		req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
		if header != "" {
			req.Header.Set(echo.HeaderAuthorization, header)
		}
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: expected 401, got %d", header, rec.Code)
		}
		if msg := decodeJSON[messageResponse](t, rec); msg.Message != "Unauthorized" {
			t.Fatalf("unexpected message: %q", msg.Message)
		}
	}
}

func TestListTasksSeedsOnce(t *testing.T) {
	_, e, _ := newTestServer(t)

	rec := doRequest(e, http.MethodGet, "/api/tasks", "", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	first := decodeJSON[[]domain.Task](t, rec)
	if len(first) != 3 {
		t.Fatalf("expected 3 seeded tasks, got %d", len(first))
	}
	statuses := map[domain.Status]bool{}
	for _, task := range first {
		statuses[task.Status] = true
		if task.CreatedAt != task.UpdatedAt {
			t.Fatalf("seed timestamps must match: %#v", task)
		}
	}
	if len(statuses) != 3 {
		t.Fatalf("seed tasks must carry distinct statuses: %#v", first)
	}

	second := decodeJSON[[]domain.Task](t, doRequest(e, http.MethodGet, "/api/tasks", "", true))
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("unmutated list must be stable:\n%#v\n%#v", first, second)
	}
}

func TestListTasksAdoptsPersistedCollection(t *testing.T) {
	_, e, ls := newTestServer(t)
	persisted := []domain.Task{{ID: "42", Title: "From disk", Description: "Persisted before startup", Status: domain.StatusTodo, CreatedAt: "2026-01-01T00:00:00Z", UpdatedAt: "2026-01-01T00:00:00Z"}}
	data, _ := json.Marshal(persisted)
	_ = ls.Set(context.Background(), localstore.KeyTasks, string(data))

	got := decodeJSON[[]domain.Task](t, doRequest(e, http.MethodGet, "/api/tasks", "", true))
	if !reflect.DeepEqual(got, persisted) {
		t.Fatalf("expected persisted collection verbatim, got %#v", got)
	}
}

func TestListTasksPurgesCorruptPersistedValue(t *testing.T) {
	_, e, ls := newTestServer(t)
	_ = ls.Set(context.Background(), localstore.KeyTasks, "{corrupt")

	got := decodeJSON[[]domain.Task](t, doRequest(e, http.MethodGet, "/api/tasks", "", true))
	if len(got) != 3 {
		t.Fatalf("corrupt value must fall back to the seed, got %d tasks", len(got))
	}
	if _, ok, _ := ls.Get(context.Background(), localstore.KeyTasks); ok {
		t.Fatal("corrupt value must be purged")
	}
}

func TestCreateTaskAssignsIDAndTimestamps(t *testing.T) {
	_, e, ls := newTestServer(t)

	body := `{"title":"New task","description":"A task created in the test","status":"todo"}`
	rec := doRequest(e, http.MethodPost, "/api/tasks", body, true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	created := decodeJSON[domain.Task](t, rec)
	if created.ID == "" {
		t.Fatal("expected an assigned id")
	}
	if created.CreatedAt == "" || created.CreatedAt != created.UpdatedAt {
		t.Fatalf("createdAt must equal updatedAt at creation: %#v", created)
	}

	// The mutation rewrote the persisted snapshot before responding.
	raw, ok, _ := ls.Get(context.Background(), localstore.KeyTasks)
	if !ok {
		t.Fatal("create must persist the snapshot")
	}
	var snapshot []domain.Task
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		t.Fatalf("persisted snapshot unreadable: %v", err)
	}
	if snapshot[len(snapshot)-1].ID != created.ID {
		t.Fatalf("created task missing from snapshot: %#v", snapshot)
	}

	// IDs stay unique even for back-to-back creations.
	second := decodeJSON[domain.Task](t, doRequest(e, http.MethodPost, "/api/tasks", body, true))
	if second.ID == created.ID {
		t.Fatalf("ids must be unique, both %q", created.ID)
	}
}

func TestCreateTaskRejectsInvalidPayload(t *testing.T) {
	_, e, _ := newTestServer(t)

	rec := doRequest(e, http.MethodPost, "/api/tasks", `{"title":"","description":"A task created in the test","status":"todo"}`, true)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if msg := decodeJSON[messageResponse](t, rec); msg.Message != "Title is required" {
		t.Fatalf("unexpected message: %q", msg.Message)
	}

	rec = doRequest(e, http.MethodPost, "/api/tasks", `not json`, true)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for undecodable body, got %d", rec.Code)
	}
}

func TestUpdateTaskMergesAndRefreshesTimestamp(t *testing.T) {
	base := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	current := base
	_, e, _ := newTestServer(t, WithClock(func() time.Time {
		current = current.Add(time.Second)
		return current
	}))

	tasks := decodeJSON[[]domain.Task](t, doRequest(e, http.MethodGet, "/api/tasks", "", true))
	target := tasks[1]

	rec := doRequest(e, http.MethodPut, "/api/tasks/"+target.ID, `{"status":"completed"}`, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	updated := decodeJSON[domain.Task](t, rec)
	if updated.ID != target.ID || updated.Title != target.Title || updated.Description != target.Description {
		t.Fatalf("absent fields must survive the merge: %#v", updated)
	}
	if updated.Status != domain.StatusCompleted {
		t.Fatalf("expected merged status, got %q", updated.Status)
	}
	if updated.UpdatedAt <= updated.CreatedAt {
		t.Fatalf("updatedAt must move forward: %#v", updated)
	}

	// Position in the ordered collection is preserved.
	after := decodeJSON[[]domain.Task](t, doRequest(e, http.MethodGet, "/api/tasks", "", true))
	if after[1].ID != target.ID {
		t.Fatalf("update must not move the task: %#v", after)
	}
}

func TestUpdateUnknownTaskLeavesPersistedSnapshotAlone(t *testing.T) {
	_, e, ls := newTestServer(t)

	// Mutate once so a persisted snapshot exists.
	doRequest(e, http.MethodPost, "/api/tasks", `{"title":"New task","description":"A task created in the test","status":"todo"}`, true)
	before, ok, _ := ls.Get(context.Background(), localstore.KeyTasks)
	if !ok {
		t.Fatal("expected a persisted snapshot")
	}

	rec := doRequest(e, http.MethodPut, "/api/tasks/does-not-exist", `{"status":"completed"}`, true)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if msg := decodeJSON[messageResponse](t, rec); msg.Message != "Task not found" {
		t.Fatalf("unexpected message: %q", msg.Message)
	}

	after, _, _ := ls.Get(context.Background(), localstore.KeyTasks)
	if after != before {
		t.Fatal("a failed update must not alter the persisted collection")
	}
}

func TestDeleteTask(t *testing.T) {
	_, e, ls := newTestServer(t)

	tasks := decodeJSON[[]domain.Task](t, doRequest(e, http.MethodGet, "/api/tasks", "", true))
	rec := doRequest(e, http.MethodDelete, "/api/tasks/"+tasks[0].ID, "", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if msg := decodeJSON[messageResponse](t, rec); msg.Message != "Task deleted successfully" {
		t.Fatalf("unexpected message: %q", msg.Message)
	}

	after := decodeJSON[[]domain.Task](t, doRequest(e, http.MethodGet, "/api/tasks", "", true))
	if len(after) != len(tasks)-1 {
		t.Fatalf("expected %d tasks after delete, got %d", len(tasks)-1, len(after))
	}

	raw, _, _ := ls.Get(context.Background(), localstore.KeyTasks)
	var snapshot []domain.Task
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		t.Fatalf("persisted snapshot unreadable: %v", err)
	}
	if len(snapshot) != len(after) {
		t.Fatalf("persisted snapshot out of sync: %d vs %d", len(snapshot), len(after))
	}

	rec = doRequest(e, http.MethodDelete, "/api/tasks/"+tasks[0].ID, "", true)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("deleting twice must 404, got %d", rec.Code)
	}
}

func TestResetReloadsFromPersistence(t *testing.T) {
	srv, e, ls := newTestServer(t)

	doRequest(e, http.MethodPost, "/api/tasks", `{"title":"New task","description":"A task created in the test","status":"todo"}`, true)
	before := decodeJSON[[]domain.Task](t, doRequest(e, http.MethodGet, "/api/tasks", "", true))

	srv.Reset()

	after := decodeJSON[[]domain.Task](t, doRequest(e, http.MethodGet, "/api/tasks", "", true))
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("reset must reload the persisted snapshot:\n%#v\n%#v", before, after)
	}

	// Without a persisted snapshot, reset brings back the seed.
	_ = ls.Delete(context.Background(), localstore.KeyTasks)
	srv.Reset()
	seeded := decodeJSON[[]domain.Task](t, doRequest(e, http.MethodGet, "/api/tasks", "", true))
	if len(seeded) != 3 {
		t.Fatalf("expected reseed after reset, got %d tasks", len(seeded))
	}
}

func TestDelayHonorsContextCancellation(t *testing.T) {
	ls := localstore.NewMemStore()
	logger := log.New()
	logger.SetLevel(log.PanicLevel)
	srv := New(ls, logger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := srv.delay(ctx, time.Minute); err == nil {
		t.Fatal("expected a context error")
	}
}
