package jsonfile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/splax/taskpulse/internal/domain"
	"github.com/splax/taskpulse/internal/repository"
)

func TestCreateTaskAssignsMonotonicIDs(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()

	first := &domain.Task{UserID: 1, Title: "first", CreatedAt: time.Now().UTC()}
	if err := store.CreateTask(ctx, first); err != nil {
		t.Fatalf("create first: %v", err)
	}
	second := &domain.Task{UserID: 1, Title: "second", CreatedAt: time.Now().UTC()}
	if err := store.CreateTask(ctx, second); err != nil {
		t.Fatalf("create second: %v", err)
	}
	if first.ID != 1 || second.ID != 2 {
		t.Fatalf("expected ids 1 and 2, got %d and %d", first.ID, second.ID)
	}

	if _, err := store.DeleteTask(ctx, second.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	third := &domain.Task{UserID: 1, Title: "third", CreatedAt: time.Now().UTC()}
	if err := store.CreateTask(ctx, third); err != nil {
		t.Fatalf("create third: %v", err)
	}
	if third.ID != 3 {
		t.Fatalf("expected id 3 after delete, got %d", third.ID)
	}
}

func TestTasksSurviveReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store := New(dir)
	task := &domain.Task{UserID: 7, Title: "persist me", CreatedAt: time.Now().UTC()}
	if err := store.CreateTask(ctx, task); err != nil {
		t.Fatalf("create: %v", err)
	}

	reopened := New(dir)
	tasks, err := reopened.ListTasksByUser(ctx, 7)
	if err != nil {
		t.Fatalf("list after reopen: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}
	if tasks[0].ID != task.ID || tasks[0].Title != "persist me" {
		t.Fatalf("unexpected task after reopen: %+v", tasks[0])
	}
}

func TestListTasksByUserFiltersOwner(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()

	for _, tc := range []struct {
		user  int
		title string
	}{{1, "mine"}, {2, "theirs"}, {1, "also mine"}} {
		task := &domain.Task{UserID: tc.user, Title: tc.title, CreatedAt: time.Now().UTC()}
		if err := store.CreateTask(ctx, task); err != nil {
			t.Fatalf("create %q: %v", tc.title, err)
		}
	}

	tasks, err := store.ListTasksByUser(ctx, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks for user 1, got %d", len(tasks))
	}
	if tasks[0].Title != "mine" || tasks[1].Title != "also mine" {
		t.Fatalf("insertion order lost: %+v", tasks)
	}
}

func TestUpdateTaskStampsUpdatedAt(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()

	task := &domain.Task{UserID: 1, Title: "toggle me", CreatedAt: time.Now().UTC()}
	if err := store.CreateTask(ctx, task); err != nil {
		t.Fatalf("create: %v", err)
	}
	done := true
	updated, err := store.UpdateTask(ctx, task.ID, domain.TaskPatch{Done: &done})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.Done {
		t.Fatalf("expected done=true, got %+v", updated)
	}
	if updated.UpdatedAt == nil {
		t.Fatal("expected UpdatedAt to be stamped")
	}
}

func TestUpdateMissingTaskReturnsNotFound(t *testing.T) {
	store := New(t.TempDir())
	done := true
	if _, err := store.UpdateTask(context.Background(), 42, domain.TaskPatch{Done: &done}); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteMissingTaskReturnsNotFound(t *testing.T) {
	store := New(t.TempDir())
	if _, err := store.DeleteTask(context.Background(), 42); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCorruptDocumentSurfacesErrCorrupt(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "tasks.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("seed corrupt file: %v", err)
	}
	store := New(dir)
	if _, err := store.ListTasks(context.Background()); !errors.Is(err, repository.ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
}

func TestCreateUserRejectsDuplicateEmail(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()

	user := &domain.User{Email: "a@example.com", PasswordHash: []byte("hash"), Role: domain.RoleUser, CreatedAt: time.Now().UTC()}
	if err := store.CreateUser(ctx, user); err != nil {
		t.Fatalf("create: %v", err)
	}
	if user.ID != 1 {
		t.Fatalf("expected user id 1, got %d", user.ID)
	}

	dup := &domain.User{Email: "a@example.com", PasswordHash: []byte("hash2"), Role: domain.RoleUser, CreatedAt: time.Now().UTC()}
	if err := store.CreateUser(ctx, dup); !errors.Is(err, repository.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	found, err := store.GetUserByEmail(ctx, "a@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if found.ID != user.ID || string(found.PasswordHash) != "hash" {
		t.Fatalf("unexpected user: %+v", found)
	}
}

func TestGetUserByIDMissing(t *testing.T) {
	store := New(t.TempDir())
	if _, err := store.GetUserByID(context.Background(), 9); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
