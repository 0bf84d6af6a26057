package repository

import (
	"context"

	"github.com/splax/taskpulse/internal/domain"
)

// TaskRepository persists tasks. Implementations assign ids on create and
// keep insertion order on list.
type TaskRepository interface {
	ListTasks(ctx context.Context) ([]domain.Task, error)
	ListTasksByUser(ctx context.Context, userID int) ([]domain.Task, error)
	CreateTask(ctx context.Context, task *domain.Task) error
	UpdateTask(ctx context.Context, id int, patch domain.TaskPatch) (*domain.Task, error)
	DeleteTask(ctx context.Context, id int) (*domain.Task, error)
}

// UserRepository persists users.
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByID(ctx context.Context, id int) (*domain.User, error)
}
