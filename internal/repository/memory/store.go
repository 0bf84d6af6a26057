package memory

import (
	"context"
	"sync"
	"time"

	"github.com/splax/taskpulse/internal/domain"
	"github.com/splax/taskpulse/internal/repository"
)

// Store keeps tasks and users in memory with the same semantics as the file
// store. It backs the simplest deployment tier and the service tests.
type Store struct {
	mu         sync.Mutex
	tasks      []domain.Task
	users      []domain.User
	nextTaskID int
	nextUserID int
}

// New returns an empty Store.
func New() *Store {
	return &Store{nextTaskID: 1, nextUserID: 1}
}

var (
	_ repository.TaskRepository = (*Store)(nil)
	_ repository.UserRepository = (*Store)(nil)
)

// ListTasks returns all tasks in insertion order.
func (s *Store) ListTasks(ctx context.Context) ([]domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Task, len(s.tasks))
	copy(out, s.tasks)
	return out, nil
}

// ListTasksByUser returns the user's tasks in insertion order.
func (s *Store) ListTasksByUser(ctx context.Context, userID int) ([]domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Task, 0)
	for _, t := range s.tasks {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

// CreateTask assigns the next id and stores the task.
func (s *Store) CreateTask(ctx context.Context, task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task.ID = s.nextTaskID
	s.nextTaskID++
	s.tasks = append(s.tasks, *task)
	return nil
}

// UpdateTask merges patch fields and stamps UpdatedAt.
func (s *Store) UpdateTask(ctx context.Context, id int, patch domain.TaskPatch) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.tasks {
		if s.tasks[i].ID != id {
			continue
		}
		if patch.Title != nil {
			s.tasks[i].Title = *patch.Title
		}
		if patch.Done != nil {
			s.tasks[i].Done = *patch.Done
		}
		now := time.Now().UTC()
		s.tasks[i].UpdatedAt = &now
		updated := s.tasks[i]
		return &updated, nil
	}
	return nil, repository.ErrNotFound
}

// DeleteTask removes the task by id and returns the removed record.
func (s *Store) DeleteTask(ctx context.Context, id int) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			removed := s.tasks[i]
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			return &removed, nil
		}
	}
	return nil, repository.ErrNotFound
}

// CreateUser assigns the next id and stores the user.
func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == user.Email {
			return repository.ErrEmailTaken
		}
	}
	user.ID = s.nextUserID
	s.nextUserID++
	s.users = append(s.users, *user)
	return nil
}

// GetUserByEmail fetches a user by normalized email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			found := u
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

// GetUserByID fetches a user by id.
func (s *Store) GetUserByID(ctx context.Context, id int) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == id {
			found := u
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}
