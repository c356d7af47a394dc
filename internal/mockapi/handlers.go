package mockapi

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"

	"taskboard/internal/domain"
)

const requestBodyMaxSize = 64 * 1024 // 64 KiB

// messageResponse is the error/confirmation body shape.
type messageResponse struct {
	Message string `json:"message"`
}

// Register wires the mock API routes on the provided Echo instance.
func Register(e *echo.Echo, s *Server) {
	e.POST("/api/login", s.handleLogin)
	e.GET("/api/tasks", s.handleListTasks)
	e.POST("/api/tasks", s.handleCreateTask)
	e.PUT("/api/tasks/:id", s.handleUpdateTask)
	e.DELETE("/api/tasks/:id", s.handleDeleteTask)
	e.GET("/healthz", s.handleHealthz)
}

func (s *Server) handleHealthz(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

// authorized checks the bearer shape only; the token value itself is not
// validated, matching the contract of the emulated server.
func authorized(c echo.Context) bool {
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	return strings.HasPrefix(h, "Bearer ") && len(h) > len("Bearer ")
}

func decodeBody(c echo.Context, out any) error {
	lr := io.LimitReader(c.Request().Body, requestBodyMaxSize)
	dec := sonic.ConfigStd.NewDecoder(lr)
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}

func (s *Server) handleLogin(c echo.Context) (err error) {
	metrics := newRequestMetrics(s.log, "/api/login")
	defer func() { metrics.Log(c.Response().Status, err) }()

	if derr := s.delay(c.Request().Context(), loginLatency); derr != nil {
		metrics.SetErrorStage("cancelled")
		err = derr
		return err
	}

	var creds domain.Credentials
	if derr := decodeBody(c, &creds); derr != nil {
		metrics.SetErrorStage("decode_request")
		err = c.JSON(http.StatusBadRequest, messageResponse{Message: "invalid body"})
		return err
	}

	if creds.Username != DemoUsername || creds.Password != DemoPassword {
		metrics.SetErrorStage("credentials")
		err = c.JSON(http.StatusUnauthorized, messageResponse{Message: "Invalid credentials"})
		return err
	}

	token, terr := mintDemoToken(s.now(), demoUser.ID)
	if terr != nil {
		metrics.SetErrorStage("token")
		err = c.JSON(http.StatusInternalServerError, messageResponse{Message: "failed to issue token"})
		return err
	}

	err = c.JSON(http.StatusOK, domain.AuthResponse{Token: token, User: demoUser})
	return err
}

func (s *Server) handleListTasks(c echo.Context) (err error) {
	metrics := newRequestMetrics(s.log, "/api/tasks")
	defer func() { metrics.Log(c.Response().Status, err) }()

	if derr := s.delay(c.Request().Context(), listLatency); derr != nil {
		metrics.SetErrorStage("cancelled")
		err = derr
		return err
	}
	if !authorized(c) {
		metrics.SetErrorStage("auth")
		err = c.JSON(http.StatusUnauthorized, messageResponse{Message: "Unauthorized"})
		return err
	}

	s.mu.Lock()
	s.ensureLoadedLocked(c.Request().Context())
	tasks := append([]domain.Task(nil), s.tasks...)
	s.mu.Unlock()

	if tasks == nil {
		tasks = []domain.Task{}
	}
	metrics.SetTasksReturned(len(tasks))
	err = c.JSON(http.StatusOK, tasks)
	return err
}

func (s *Server) handleCreateTask(c echo.Context) (err error) {
	metrics := newRequestMetrics(s.log, "/api/tasks")
	defer func() { metrics.Log(c.Response().Status, err) }()

	if derr := s.delay(c.Request().Context(), createLatency); derr != nil {
		metrics.SetErrorStage("cancelled")
		err = derr
		return err
	}
	if !authorized(c) {
		metrics.SetErrorStage("auth")
		err = c.JSON(http.StatusUnauthorized, messageResponse{Message: "Unauthorized"})
		return err
	}

	var payload domain.CreateTask
	if derr := decodeBody(c, &payload); derr != nil {
		metrics.SetErrorStage("decode_request")
		err = c.JSON(http.StatusBadRequest, messageResponse{Message: "invalid body"})
		return err
	}
	if fieldErrs := payload.Validate(); len(fieldErrs) > 0 {
		metrics.SetErrorStage("validation")
		err = c.JSON(http.StatusBadRequest, messageResponse{Message: fieldErrs[0].Message})
		return err
	}

	now := s.now().UTC().Format(time.RFC3339)
	task := domain.Task{
		ID:          s.nextID(),
		Title:       payload.Title,
		Description: payload.Description,
		Status:      payload.Status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	ctx := c.Request().Context()
	s.mu.Lock()
	s.ensureLoadedLocked(ctx)
	s.tasks = append(s.tasks, task)
	perr := s.persistLocked(ctx)
	if perr != nil {
		s.tasks = s.tasks[:len(s.tasks)-1]
	}
	s.mu.Unlock()

	if perr != nil {
		metrics.SetErrorStage("persist")
		c.Logger().Error(perr)
		err = c.JSON(http.StatusInternalServerError, messageResponse{Message: "failed to persist tasks"})
		return err
	}

	err = c.JSON(http.StatusCreated, task)
	return err
}

func (s *Server) handleUpdateTask(c echo.Context) (err error) {
	metrics := newRequestMetrics(s.log, "/api/tasks/:id")
	defer func() { metrics.Log(c.Response().Status, err) }()

	if derr := s.delay(c.Request().Context(), updateLatency); derr != nil {
		metrics.SetErrorStage("cancelled")
		err = derr
		return err
	}
	if !authorized(c) {
		metrics.SetErrorStage("auth")
		err = c.JSON(http.StatusUnauthorized, messageResponse{Message: "Unauthorized"})
		return err
	}

	var payload domain.UpdateTask
	if derr := decodeBody(c, &payload); derr != nil {
		metrics.SetErrorStage("decode_request")
		err = c.JSON(http.StatusBadRequest, messageResponse{Message: "invalid body"})
		return err
	}
	if fieldErrs := payload.Validate(); len(fieldErrs) > 0 {
		metrics.SetErrorStage("validation")
		err = c.JSON(http.StatusBadRequest, messageResponse{Message: fieldErrs[0].Message})
		return err
	}

	id := c.Param("id")
	ctx := c.Request().Context()

	s.mu.Lock()
	s.ensureLoadedLocked(ctx)
	idx := -1
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		metrics.SetErrorStage("not_found")
		err = c.JSON(http.StatusNotFound, messageResponse{Message: "Task not found"})
		return err
	}
	prev := s.tasks[idx]
	merged := prev
	payload.ApplyTo(&merged)
	merged.UpdatedAt = s.now().UTC().Format(time.RFC3339)
	s.tasks[idx] = merged
	perr := s.persistLocked(ctx)
	if perr != nil {
		s.tasks[idx] = prev
	}
	s.mu.Unlock()

	if perr != nil {
		metrics.SetErrorStage("persist")
		c.Logger().Error(perr)
		err = c.JSON(http.StatusInternalServerError, messageResponse{Message: "failed to persist tasks"})
		return err
	}

	err = c.JSON(http.StatusOK, merged)
	return err
}

func (s *Server) handleDeleteTask(c echo.Context) (err error) {
	metrics := newRequestMetrics(s.log, "/api/tasks/:id")
	defer func() { metrics.Log(c.Response().Status, err) }()

	if derr := s.delay(c.Request().Context(), deleteLatency); derr != nil {
		metrics.SetErrorStage("cancelled")
		err = derr
		return err
	}
	if !authorized(c) {
		metrics.SetErrorStage("auth")
		err = c.JSON(http.StatusUnauthorized, messageResponse{Message: "Unauthorized"})
		return err
	}

	id := c.Param("id")
	ctx := c.Request().Context()

	s.mu.Lock()
	s.ensureLoadedLocked(ctx)
	idx := -1
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		metrics.SetErrorStage("not_found")
		err = c.JSON(http.StatusNotFound, messageResponse{Message: "Task not found"})
		return err
	}
	prev := s.tasks
	s.tasks = append(append([]domain.Task(nil), s.tasks[:idx]...), s.tasks[idx+1:]...)
	perr := s.persistLocked(ctx)
	if perr != nil {
		s.tasks = prev
	}
	s.mu.Unlock()

	if perr != nil {
		metrics.SetErrorStage("persist")
		c.Logger().Error(perr)
		err = c.JSON(http.StatusInternalServerError, messageResponse{Message: "failed to persist tasks"})
		return err
	}

	err = c.JSON(http.StatusOK, messageResponse{Message: "Task deleted successfully"})
	return err
}
