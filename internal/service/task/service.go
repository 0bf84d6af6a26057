package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/splax/taskpulse/internal/cache"
	"github.com/splax/taskpulse/internal/domain"
	"github.com/splax/taskpulse/internal/repository"
)

const minTitleLength = 3

// Service enforces task business rules atop the store. All validation
// happens before any store call, so the store is never asked to persist
// invalid data.
type Service struct {
	tasks    repository.TaskRepository
	cache    cache.Cache
	cacheTTL time.Duration
	logger   *slog.Logger
}

// New returns a task service. The cache may be nil, in which case list
// reads always hit the store.
func New(tasks repository.TaskRepository, c cache.Cache, cacheTTL time.Duration, logger *slog.Logger) Service {
	return Service{tasks: tasks, cache: c, cacheTTL: cacheTTL, logger: logger}
}

// Create validates the title and stores a new open task for the user.
func (s Service) Create(ctx context.Context, userID int, rawTitle string) (*domain.Task, error) {
	title := strings.TrimSpace(rawTitle)
	if utf8.RuneCountInString(title) < minTitleLength {
		return nil, domain.ErrInvalidTitle
	}
	task := &domain.Task{
		UserID:    userID,
		Title:     title,
		Done:      false,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.tasks.CreateTask(ctx, task); err != nil {
		return nil, err
	}
	s.invalidateList(ctx, userID)
	s.logger.Info("task created", "task_id", task.ID, "user_id", userID)
	return task, nil
}

// List returns the user's tasks in insertion order, memoized in the cache.
func (s Service) List(ctx context.Context, userID int) ([]domain.Task, error) {
	if s.cache == nil {
		return s.tasks.ListTasksByUser(ctx, userID)
	}
	raw, err := s.cache.GetOrSet(ctx, listKey(userID), s.cacheTTL, func(ctx context.Context) ([]byte, error) {
		tasks, err := s.tasks.ListTasksByUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		return json.Marshal(tasks)
	})
	if err != nil {
		return nil, err
	}
	var tasks []domain.Task
	if err := json.Unmarshal(raw, &tasks); err != nil {
		// A poisoned cache entry must not take reads down.
		s.logger.Warn("task cache entry unreadable, bypassing", "user_id", userID, "error", err)
		s.cache.Invalidate(ctx, listKey(userID))
		return s.tasks.ListTasksByUser(ctx, userID)
	}
	return tasks, nil
}

// Toggle sets the done flag on the task.
func (s Service) Toggle(ctx context.Context, id int, done bool) (*domain.Task, error) {
	updated, err := s.tasks.UpdateTask(ctx, id, domain.TaskPatch{Done: &done})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, err
	}
	s.invalidateList(ctx, updated.UserID)
	s.logger.Info("task toggled", "task_id", id, "done", done)
	return updated, nil
}

// Delete removes the task.
func (s Service) Delete(ctx context.Context, id int) error {
	removed, err := s.tasks.DeleteTask(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrTaskNotFound
		}
		return err
	}
	s.invalidateList(ctx, removed.UserID)
	s.logger.Info("task deleted", "task_id", id)
	return nil
}

func (s Service) invalidateList(ctx context.Context, userID int) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, listKey(userID))
	}
}

func listKey(userID int) string {
	return fmt.Sprintf("tasks:user:%d", userID)
}
