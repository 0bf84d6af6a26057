package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/splax/taskpulse/internal/domain"
	"github.com/splax/taskpulse/internal/repository"
)

// Store persists tasks and users as one JSON document per entity kind.
// Every mutation is a full read-modify-write of the backing document; the
// mutex serializes writers within the process. Concurrent writers from other
// processes can still race on id assignment, an accepted limitation of the
// flat-file design.
type Store struct {
	mu        sync.Mutex
	tasksPath string
	usersPath string
}

// New constructs a Store rooted at dataDir. Documents are created lazily on
// first access.
func New(dataDir string) *Store {
	return &Store{
		tasksPath: filepath.Join(dataDir, "tasks.json"),
		usersPath: filepath.Join(dataDir, "users.json"),
	}
}

var (
	_ repository.TaskRepository = (*Store)(nil)
	_ repository.UserRepository = (*Store)(nil)
)

type taskDocument struct {
	NextID int           `json:"nextId"`
	Tasks  []domain.Task `json:"tasks"`
}

type userRecord struct {
	ID           int       `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

type userDocument struct {
	NextID int          `json:"nextId"`
	Users  []userRecord `json:"users"`
}

// ListTasks returns all tasks in insertion order.
func (s *Store) ListTasks(ctx context.Context) ([]domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.loadTasks()
	if err != nil {
		return nil, err
	}
	return doc.Tasks, nil
}

// ListTasksByUser returns the user's tasks in insertion order.
func (s *Store) ListTasksByUser(ctx context.Context, userID int) ([]domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.loadTasks()
	if err != nil {
		return nil, err
	}
	owned := make([]domain.Task, 0, len(doc.Tasks))
	for _, t := range doc.Tasks {
		if t.UserID == userID {
			owned = append(owned, t)
		}
	}
	return owned, nil
}

// CreateTask assigns the next id and appends the task. Ids increase
// monotonically and are never reused, even after deletes.
func (s *Store) CreateTask(ctx context.Context, task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.loadTasks()
	if err != nil {
		return err
	}
	task.ID = doc.NextID
	doc.NextID++
	doc.Tasks = append(doc.Tasks, *task)
	return s.persist(s.tasksPath, doc)
}

// UpdateTask merges patch fields into the task and stamps UpdatedAt.
func (s *Store) UpdateTask(ctx context.Context, id int, patch domain.TaskPatch) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.loadTasks()
	if err != nil {
		return nil, err
	}
	for i := range doc.Tasks {
		if doc.Tasks[i].ID != id {
			continue
		}
		if patch.Title != nil {
			doc.Tasks[i].Title = *patch.Title
		}
		if patch.Done != nil {
			doc.Tasks[i].Done = *patch.Done
		}
		now := time.Now().UTC()
		doc.Tasks[i].UpdatedAt = &now
		if err := s.persist(s.tasksPath, doc); err != nil {
			return nil, err
		}
		updated := doc.Tasks[i]
		return &updated, nil
	}
	return nil, repository.ErrNotFound
}

// DeleteTask removes the task and returns the removed record. The document
// is rewritten only when a task was actually removed.
func (s *Store) DeleteTask(ctx context.Context, id int) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.loadTasks()
	if err != nil {
		return nil, err
	}
	for i, t := range doc.Tasks {
		if t.ID != id {
			continue
		}
		removed := t
		doc.Tasks = append(doc.Tasks[:i], doc.Tasks[i+1:]...)
		if err := s.persist(s.tasksPath, doc); err != nil {
			return nil, err
		}
		return &removed, nil
	}
	return nil, repository.ErrNotFound
}

// CreateUser assigns the next id and appends the user. Email uniqueness is
// enforced against the stored normalized emails.
func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.loadUsers()
	if err != nil {
		return err
	}
	for _, u := range doc.Users {
		if u.Email == user.Email {
			return repository.ErrEmailTaken
		}
	}
	user.ID = doc.NextID
	doc.NextID++
	doc.Users = append(doc.Users, userRecord{
		ID:           user.ID,
		Email:        user.Email,
		PasswordHash: string(user.PasswordHash),
		Role:         user.Role,
		CreatedAt:    user.CreatedAt,
	})
	return s.persist(s.usersPath, doc)
}

// GetUserByEmail fetches a user by normalized email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.loadUsers()
	if err != nil {
		return nil, err
	}
	for _, u := range doc.Users {
		if u.Email == email {
			return recordToUser(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

// GetUserByID fetches a user by id.
func (s *Store) GetUserByID(ctx context.Context, id int) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.loadUsers()
	if err != nil {
		return nil, err
	}
	for _, u := range doc.Users {
		if u.ID == id {
			return recordToUser(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func recordToUser(r userRecord) *domain.User {
	return &domain.User{
		ID:           r.ID,
		Email:        r.Email,
		PasswordHash: []byte(r.PasswordHash),
		Role:         r.Role,
		CreatedAt:    r.CreatedAt,
	}
}

func (s *Store) loadTasks() (*taskDocument, error) {
	doc := &taskDocument{NextID: 1}
	if err := s.load(s.tasksPath, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *Store) loadUsers() (*userDocument, error) {
	doc := &userDocument{NextID: 1}
	if err := s.load(s.usersPath, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// load reads the document at path into out. A missing file leaves out at its
// initial value; an unparseable file is surfaced as ErrCorrupt, never as an
// empty document.
func (s *Store) load(path string, out any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %s: %v", repository.ErrCorrupt, path, err)
	}
	return nil
}

// persist writes the document to a temp file and renames it over the
// canonical path so a crash mid-write never leaves a truncated document.
func (s *Store) persist(path string, doc any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	temp := path + ".tmp"
	if err := os.WriteFile(temp, append(raw, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", temp, err)
	}
	if err := os.Rename(temp, path); err != nil {
		return fmt.Errorf("rename %s: %w", temp, err)
	}
	return nil
}
