package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client provides typed access to the taskpulse API for interactive tools.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option customises client instantiation.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// New constructs a Client pointing at the provided API base URL.
func New(base string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(base)
	if trimmed == "" {
		trimmed = "http://localhost:3000"
	}
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		trimmed = "http://" + trimmed
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}
	cli := &Client{
		baseURL:    strings.TrimRight(trimmed, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(cli)
	}
	return cli, nil
}

// APIError represents an error response from the API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api request failed with status %d", e.Status)
	}
	if e.Code != "" {
		return fmt.Sprintf("api request failed (%d %s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("api request failed (%d): %s", e.Status, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, body any, token string, v any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	endpoint := c.baseURL + path
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if strings.TrimSpace(token) != "" {
		req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(token))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		code, msg := extractError(resp.Body)
		return APIError{Status: resp.StatusCode, Code: code, Message: msg}
	}

	if v == nil {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func extractError(body io.Reader) (string, string) {
	if body == nil {
		return "", ""
	}
	var payload struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	data, err := io.ReadAll(body)
	if err != nil || len(data) == 0 {
		return "", ""
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", strings.TrimSpace(string(data))
	}
	return payload.Code, strings.TrimSpace(payload.Message)
}

// User reflects API user payloads.
type User struct {
	ID    int    `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Register creates an account and returns the public user record.
func (c *Client) Register(ctx context.Context, email, password string) (User, error) {
	body := map[string]string{
		"email":    email,
		"password": password,
	}
	var user User
	if err := c.do(ctx, http.MethodPost, "/auth/register", body, "", &user); err != nil {
		return User{}, err
	}
	return user, nil
}

// Login exchanges credentials for an access token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	body := map[string]string{
		"email":    email,
		"password": password,
	}
	var resp struct {
		AccessToken string `json:"accessToken"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, "", &resp); err != nil {
		return "", err
	}
	return resp.AccessToken, nil
}

// Me fetches the profile behind the token.
func (c *Client) Me(ctx context.Context, token string) (User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/me", nil, token, &user); err != nil {
		return User{}, err
	}
	return user, nil
}

// Task reflects API task payloads.
type Task struct {
	ID        int        `json:"id"`
	UserID    int        `json:"userId"`
	Title     string     `json:"title"`
	Done      bool       `json:"done"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// ListTasks returns all tasks owned by the authenticated user.
func (c *Client) ListTasks(ctx context.Context, token string) ([]Task, error) {
	var tasks []Task
	if err := c.do(ctx, http.MethodGet, "/tasks", nil, token, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// CreateTask adds a task with the given title.
func (c *Client) CreateTask(ctx context.Context, token, title string) (Task, error) {
	body := map[string]string{"title": title}
	var created Task
	if err := c.do(ctx, http.MethodPost, "/tasks", body, token, &created); err != nil {
		return Task{}, err
	}
	return created, nil
}

// ToggleTask sets the done flag on a task.
func (c *Client) ToggleTask(ctx context.Context, token string, id int, done bool) (Task, error) {
	body := map[string]bool{"done": done}
	path := fmt.Sprintf("/tasks/%d", id)
	var updated Task
	if err := c.do(ctx, http.MethodPatch, path, body, token, &updated); err != nil {
		return Task{}, err
	}
	return updated, nil
}

// DeleteTask removes a task by id.
func (c *Client) DeleteTask(ctx context.Context, token string, id int) error {
	path := fmt.Sprintf("/tasks/%d", id)
	return c.do(ctx, http.MethodDelete, path, nil, token, nil)
}

// MetricsSnapshot reflects the JSON metrics payload.
type MetricsSnapshot struct {
	Total   int `json:"total"`
	Success int `json:"success"`
	Error   int `json:"error"`
	Latency struct {
		Lt50   int `json:"lt50"`
		Lt100  int `json:"lt100"`
		Lt300  int `json:"lt300"`
		Gte300 int `json:"gte300"`
	} `json:"latency"`
}

// Metrics fetches the request counters.
func (c *Client) Metrics(ctx context.Context) (MetricsSnapshot, error) {
	var snapshot MetricsSnapshot
	if err := c.do(ctx, http.MethodGet, "/metrics", nil, "", &snapshot); err != nil {
		return MetricsSnapshot{}, err
	}
	return snapshot, nil
}
