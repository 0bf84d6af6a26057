package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/splax/taskpulse/internal/domain"
	"github.com/splax/taskpulse/internal/repository"
)

// Store implements the task and user repositories on PostgreSQL. BIGSERIAL
// ids preserve the monotonic, never-reused id guarantee of the file store.
type Store struct {
	pool *pgxpool.Pool
}

// New constructs a Store.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

var (
	_ repository.TaskRepository = (*Store)(nil)
	_ repository.UserRepository = (*Store)(nil)
)

// ListTasks returns all tasks in insertion order.
func (s *Store) ListTasks(ctx context.Context) ([]domain.Task, error) {
	const query = `SELECT id, user_id, title, done, created_at, updated_at FROM tasks ORDER BY id`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTasks(rows)
}

// ListTasksByUser returns the user's tasks in insertion order.
func (s *Store) ListTasksByUser(ctx context.Context, userID int) ([]domain.Task, error) {
	const query = `SELECT id, user_id, title, done, created_at, updated_at FROM tasks WHERE user_id = $1 ORDER BY id`
	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTasks(rows)
}

// CreateTask inserts a task and fills in its assigned id.
func (s *Store) CreateTask(ctx context.Context, task *domain.Task) error {
	const query = `INSERT INTO tasks (user_id, title, done, created_at)
		VALUES ($1, $2, $3, $4) RETURNING id`
	row := s.pool.QueryRow(ctx, query, task.UserID, task.Title, task.Done, task.CreatedAt)
	return row.Scan(&task.ID)
}

// UpdateTask merges patch fields and stamps updated_at.
func (s *Store) UpdateTask(ctx context.Context, id int, patch domain.TaskPatch) (*domain.Task, error) {
	const query = `UPDATE tasks
		SET title = COALESCE($2, title), done = COALESCE($3, done), updated_at = $4
		WHERE id = $1
		RETURNING id, user_id, title, done, created_at, updated_at`
	now := time.Now().UTC()
	row := s.pool.QueryRow(ctx, query, id, patch.Title, patch.Done, now)
	var t domain.Task
	if err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Done, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// DeleteTask removes the task by id and returns the removed record.
func (s *Store) DeleteTask(ctx context.Context, id int) (*domain.Task, error) {
	const query = `DELETE FROM tasks WHERE id = $1
		RETURNING id, user_id, title, done, created_at, updated_at`
	row := s.pool.QueryRow(ctx, query, id)
	var t domain.Task
	if err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Done, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// CreateUser inserts a user and fills in its assigned id.
func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	const query = `INSERT INTO users (email, password_hash, role, created_at)
		VALUES ($1, $2, $3, $4) RETURNING id`
	row := s.pool.QueryRow(ctx, query, user.Email, user.PasswordHash, user.Role, user.CreatedAt)
	if err := row.Scan(&user.ID); err != nil {
		if isUniqueViolation(err) {
			return repository.ErrEmailTaken
		}
		return err
	}
	return nil
}

// GetUserByEmail fetches a user by normalized email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `SELECT id, email, password_hash, role, created_at FROM users WHERE email = $1`
	return s.scanUser(s.pool.QueryRow(ctx, query, email))
}

// GetUserByID retrieves a user by identifier.
func (s *Store) GetUserByID(ctx context.Context, id int) (*domain.User, error) {
	const query = `SELECT id, email, password_hash, role, created_at FROM users WHERE id = $1`
	return s.scanUser(s.pool.QueryRow(ctx, query, id))
}

func (s *Store) scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func scanTasks(rows pgx.Rows) ([]domain.Task, error) {
	tasks := make([]domain.Task, 0)
	for rows.Next() {
		var t domain.Task
		if err := rows.Scan(&t.ID, &t.UserID, &t.Title, &t.Done, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && strings.Contains(pgErr.ConstraintName, "email")
	}
	return false
}
