package domain

import "time"

// Task represents one unit of trackable work owned by a user.
type Task struct {
	ID        int        `json:"id"`
	UserID    int        `json:"userId"`
	Title     string     `json:"title"`
	Done      bool       `json:"done"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// TaskPatch carries the mutable task fields for an update. Nil fields are
// left untouched by the store.
type TaskPatch struct {
	Title *string
	Done  *bool
}
