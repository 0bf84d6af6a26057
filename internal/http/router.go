package httpx

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/splax/taskpulse/internal/domain"
	"github.com/splax/taskpulse/internal/service/auth"
	"github.com/splax/taskpulse/internal/service/task"
	"github.com/splax/taskpulse/internal/ws"
)

const (
	rateWindowDefault = time.Minute
	rateLimitRegister = 5
	rateLimitLogin    = 12
)

// Router wires HTTP endpoints to the domain services.
type Router struct {
	mux      *http.ServeMux
	logger   *slog.Logger
	auth     auth.Service
	tasks    task.Service
	hub      *ws.Hub
	upgrader websocket.Upgrader
	limiter  RateLimiter
	metrics  requestMetrics

	metricsOnce        sync.Once
	metricsInitialized bool
	requestTotal       *prometheus.CounterVec
	requestLatency     *prometheus.HistogramVec
	rateLimitHits      *prometheus.CounterVec
}

// NewRouter assembles routes with dependencies.
func NewRouter(logger *slog.Logger, authSvc auth.Service, taskSvc task.Service, hub *ws.Hub, limiter RateLimiter) *Router {
	r := &Router{
		mux:    http.NewServeMux(),
		logger: logger,
		auth:   authSvc,
		tasks:  taskSvc,
		hub:    hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		limiter: limiter,
	}
	if r.limiter == nil {
		r.limiter = NewMemoryRateLimiter()
	}
	r.initPrometheus()
	r.register()
	return r
}

// ServeHTTP delegates to the underlying mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Close releases background resources.
func (r *Router) Close() {
	if r.limiter != nil {
		r.limiter.Close()
	}
}

func (r *Router) register() {
	r.mux.HandleFunc("/health", r.audit("/health", r.handleHealth))
	r.mux.HandleFunc("/auth/register", r.audit("/auth/register", r.withRateLimit("/auth/register", rateLimitRegister, rateWindowDefault, r.handleRegister)))
	r.mux.HandleFunc("/auth/login", r.audit("/auth/login", r.withRateLimit("/auth/login", rateLimitLogin, rateWindowDefault, r.handleLogin)))
	r.mux.HandleFunc("/me", r.audit("/me", r.requireAuth(r.handleMe)))
	r.mux.HandleFunc("/tasks", r.audit("/tasks", r.requireAuth(r.handleTasks)))
	r.mux.HandleFunc("/tasks/", r.audit("/tasks/{id}", r.handleTaskByID))
	r.mux.HandleFunc("/events/task-updated", r.audit("/events/task-updated", r.handleTaskUpdatedEvent))
	r.mux.HandleFunc("/metrics", r.audit("/metrics", r.handleMetrics))
	r.mux.Handle("/metrics/prometheus", promhttp.Handler())
	r.mux.HandleFunc("/ws", r.handleWS)
}

func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (r *Router) handleRegister(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, domain.CodeInvalidPayload, "invalid JSON body")
		return
	}
	user, err := r.auth.Register(req.Context(), payload.Email, payload.Password)
	if err != nil {
		writeDomainError(w, r.logger, requestIDFromContext(req.Context()), err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (r *Router) handleLogin(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, domain.CodeInvalidPayload, "invalid JSON body")
		return
	}
	token, err := r.auth.Login(req.Context(), payload.Email, payload.Password)
	if err != nil {
		writeDomainError(w, r.logger, requestIDFromContext(req.Context()), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"accessToken": token})
}

func (r *Router) handleMe(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	info, _ := authInfoFromContext(req.Context())
	user, err := r.auth.Me(req.Context(), info.UserID)
	if err != nil {
		writeDomainError(w, r.logger, requestIDFromContext(req.Context()), err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (r *Router) handleTasks(w http.ResponseWriter, req *http.Request) {
	info, _ := authInfoFromContext(req.Context())
	switch req.Method {
	case http.MethodGet:
		tasks, err := r.tasks.List(req.Context(), info.UserID)
		if err != nil {
			writeDomainError(w, r.logger, requestIDFromContext(req.Context()), err)
			return
		}
		writeJSON(w, http.StatusOK, tasks)
	case http.MethodPost:
		var payload struct {
			Title string `json:"title"`
		}
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, domain.CodeInvalidPayload, "invalid JSON body")
			return
		}
		created, err := r.tasks.Create(req.Context(), info.UserID, payload.Title)
		if err != nil {
			writeDomainError(w, r.logger, requestIDFromContext(req.Context()), err)
			return
		}
		r.publishTaskEvent(created)
		writeJSON(w, http.StatusCreated, created)
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleTaskByID(w http.ResponseWriter, req *http.Request) {
	idPart := strings.TrimPrefix(req.URL.Path, "/tasks/")
	id, err := strconv.Atoi(idPart)
	if err != nil {
		writeDomainError(w, r.logger, requestIDFromContext(req.Context()), domain.ErrInvalidID)
		return
	}
	switch req.Method {
	case http.MethodPatch:
		ctx, _, ok := r.ensureAuth(w, req)
		if !ok {
			return
		}
		req = req.WithContext(ctx)
		var payload struct {
			Done *bool `json:"done"`
		}
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil || payload.Done == nil {
			writeDomainError(w, r.logger, requestIDFromContext(req.Context()), domain.ErrInvalidDone)
			return
		}
		updated, err := r.tasks.Toggle(req.Context(), id, *payload.Done)
		if err != nil {
			writeDomainError(w, r.logger, requestIDFromContext(req.Context()), err)
			return
		}
		r.publishTaskEvent(updated)
		writeJSON(w, http.StatusOK, updated)
	case http.MethodDelete:
		if err := r.tasks.Delete(req.Context(), id); err != nil {
			writeDomainError(w, r.logger, requestIDFromContext(req.Context()), err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		r.methodNotAllowed(w)
	}
}

// handleTaskUpdatedEvent relays an external task event into the matching
// room. The payload is validated here, before the hub is touched.
func (r *Router) handleTaskUpdatedEvent(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		ProjectID string `json:"projectId"`
		TaskID    *int   `json:"taskId"`
		Title     string `json:"title"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil || payload.TaskID == nil {
		writeError(w, http.StatusBadRequest, domain.CodeInvalidPayload, "projectId and integer taskId are required")
		return
	}
	event := domain.TaskEvent{
		ProjectID: strings.TrimSpace(payload.ProjectID),
		TaskID:    *payload.TaskID,
		Title:     payload.Title,
		UpdatedAt: time.Now().UTC(),
	}
	if !event.Valid() {
		writeError(w, http.StatusBadRequest, domain.CodeInvalidPayload, "projectId and integer taskId are required")
		return
	}
	room := r.publishEvent(event)
	writeJSON(w, http.StatusAccepted, map[string]string{"deliveredToRoom": room})
}

func (r *Router) handleMetrics(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, r.metrics.snapshot())
}

// wsAck is the response to a client control message.
type wsAck struct {
	Type    string `json:"type"`
	OK      bool   `json:"ok"`
	Room    string `json:"room,omitempty"`
	Message string `json:"message,omitempty"`
}

func (r *Router) handleWS(w http.ResponseWriter, req *http.Request) {
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	client := ws.NewClient(uuid.NewString(), conn, r.logger)
	welcome, _ := json.Marshal(map[string]string{
		"type":        "welcome",
		"socketId":    client.ID,
		"connectedAt": time.Now().UTC().Format(time.RFC3339),
	})
	if err := client.Send(welcome); err != nil {
		return
	}
	go r.readPump(conn, client)
}

// readPump consumes control messages until the connection drops, then
// leaves every joined room.
func (r *Router) readPump(conn *websocket.Conn, client *ws.Client) {
	joined := make(map[string]struct{})
	defer func() {
		for room := range joined {
			r.hub.Leave(room, client)
		}
		client.Close()
	}()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg struct {
			Type      string `json:"type"`
			ProjectID string `json:"projectId"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			r.sendAck(client, wsAck{Type: "ack", OK: false, Message: "invalid message"})
			continue
		}
		switch msg.Type {
		case "join-project":
			projectID := strings.TrimSpace(msg.ProjectID)
			if projectID == "" {
				r.sendAck(client, wsAck{Type: "ack", OK: false, Message: "projectId required"})
				continue
			}
			room := roomForProject(projectID)
			if _, ok := joined[room]; !ok {
				r.hub.Join(room, client)
				joined[room] = struct{}{}
			}
			r.sendAck(client, wsAck{Type: "ack", OK: true, Room: room})
		default:
			r.sendAck(client, wsAck{Type: "ack", OK: false, Message: "unknown message type"})
		}
	}
}

func (r *Router) sendAck(client *ws.Client, ack wsAck) {
	payload, err := json.Marshal(ack)
	if err != nil {
		return
	}
	_ = client.Send(payload)
}

// publishTaskEvent broadcasts a task write to the owner's room. Failure to
// deliver never affects the HTTP response.
func (r *Router) publishTaskEvent(t *domain.Task) {
	updatedAt := t.CreatedAt
	if t.UpdatedAt != nil {
		updatedAt = *t.UpdatedAt
	}
	event := domain.TaskEvent{
		ProjectID: strconv.Itoa(t.UserID),
		TaskID:    t.ID,
		Title:     t.Title,
		UpdatedAt: updatedAt,
	}
	if !event.Valid() {
		return
	}
	r.publishEvent(event)
}

// publishEvent delivers a validated event to its room and returns the room
// key.
func (r *Router) publishEvent(event domain.TaskEvent) string {
	room := roomForProject(event.ProjectID)
	payload, err := json.Marshal(struct {
		Type string `json:"type"`
		domain.TaskEvent
	}{Type: "task-updated", TaskEvent: event})
	if err != nil {
		r.logger.Error("encode task event", "error", err)
		return room
	}
	if r.hub != nil {
		r.hub.Publish(room, payload)
	}
	return room
}

func roomForProject(projectID string) string {
	return "project:" + projectID
}

func (r *Router) methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
}

type requestIDKey string

const contextKeyRequestID requestIDKey = "taskpulse-request-id"

func requestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(contextKeyRequestID).(string); ok {
		return id
	}
	return ""
}

// audit wraps a handler with request-id propagation, structured logging,
// and request metrics.
func (r *Router) audit(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		requestID := strings.TrimSpace(req.Header.Get("X-Request-ID"))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		req = req.WithContext(context.WithValue(req.Context(), contextKeyRequestID, requestID))

		recorder := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		next(recorder, req)

		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		duration := time.Since(start)
		r.metrics.track(status, duration)
		r.recordRequestMetrics(req.Method, route, status, duration)

		fields := []any{
			"method", req.Method,
			"path", req.URL.Path,
			"status", status,
			"bytes", recorder.bytes,
			"duration_ms", duration.Milliseconds(),
			"request_id", requestID,
		}
		if ip := clientIP(req); ip != "" {
			fields = append(fields, "ip", ip)
		}
		switch {
		case status >= http.StatusInternalServerError:
			r.logger.Error("http_request", fields...)
		case status >= http.StatusBadRequest:
			r.logger.Warn("http_request", fields...)
		default:
			r.logger.Info("http_request", fields...)
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(payload []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(payload)
	sr.bytes += n
	return n, err
}

// Hijack lets wrapped handlers upgrade the connection.
func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := sr.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return hijacker.Hijack()
}
