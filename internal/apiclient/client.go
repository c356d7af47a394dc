// Package apiclient is the typed HTTP client for the task API. It attaches
// the persisted bearer token to every request and globally recovers from 401
// responses by purging the session and invoking the configured hook.
package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"

	"taskboard/internal/domain"
	"taskboard/internal/localstore"
)

const responseBodyMaxSize = 1 << 20 // 1 MiB

// APIError is a non-2xx response from the task API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.StatusCode, e.Message)
}

// IsUnauthorized reports whether err is a 401 APIError.
func IsUnauthorized(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.StatusCode == http.StatusUnauthorized
}

// Client talks to the task API.
type Client struct {
	base           string
	http           *http.Client
	ls             localstore.Store
	log            *log.Logger
	onUnauthorized func()
}

// Option configures a Client.
type Option func(*Client)

// WithOnUnauthorized registers the hook invoked after any 401 response, once
// the persisted session keys have been purged. The navigation-to-login
// analog.
func WithOnUnauthorized(fn func()) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

// WithLogger overrides the logger.
func WithLogger(logger *log.Logger) Option {
	return func(c *Client) { c.log = logger }
}

// New creates a client. baseURL is the API root (e.g. "http://host/api"); a
// nil httpClient falls back to http.DefaultClient.
func New(baseURL string, httpClient *http.Client, ls localstore.Store, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	c := &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: httpClient,
		ls:   ls,
		log:  log.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Login exchanges credentials for a token and user.
func (c *Client) Login(ctx context.Context, creds domain.Credentials) (domain.AuthResponse, error) {
	var resp domain.AuthResponse
	err := c.do(ctx, http.MethodPost, "/login", creds, &resp)
	return resp, err
}

// ListTasks fetches the full task collection.
func (c *Client) ListTasks(ctx context.Context) ([]domain.Task, error) {
	var tasks []domain.Task
	if err := c.do(ctx, http.MethodGet, "/tasks", nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// CreateTask creates a task; the server assigns id and timestamps.
func (c *Client) CreateTask(ctx context.Context, payload domain.CreateTask) (domain.Task, error) {
	var task domain.Task
	err := c.do(ctx, http.MethodPost, "/tasks", payload, &task)
	return task, err
}

// UpdateTask applies a partial update to the task with the given id.
func (c *Client) UpdateTask(ctx context.Context, id string, payload domain.UpdateTask) (domain.Task, error) {
	var task domain.Task
	err := c.do(ctx, http.MethodPut, "/tasks/"+id, payload, &task)
	return task, err
}

// DeleteTask removes the task with the given id.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/tasks/"+id, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := sonic.ConfigStd.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token, ok, err := c.ls.Get(ctx, localstore.KeyToken); err == nil && ok && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyMaxSize))
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.purgeSession(ctx)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(resp.StatusCode, data)}
	}
	if out == nil {
		return nil
	}
	return sonic.ConfigStd.Unmarshal(data, out)
}

// purgeSession removes the persisted session keys and fires the configured
// hook. It runs on every 401 regardless of which call produced it.
func (c *Client) purgeSession(ctx context.Context) {
	if err := c.ls.Delete(ctx, localstore.KeyToken); err != nil {
		c.log.WithError(err).Warn("apiclient: delete token failed")
	}
	if err := c.ls.Delete(ctx, localstore.KeyUser); err != nil {
		c.log.WithError(err).Warn("apiclient: delete user failed")
	}
	if c.onUnauthorized != nil {
		c.onUnauthorized()
	}
}

func errorMessage(status int, body []byte) string {
	var msg struct {
		Message string `json:"message"`
	}
	if err := sonic.ConfigStd.Unmarshal(body, &msg); err == nil && msg.Message != "" {
		return msg.Message
	}
	return http.StatusText(status)
}
