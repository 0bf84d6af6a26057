package domain

import "time"

// TaskEvent is the payload broadcast to realtime subscribers after a task
// write. ProjectID scopes delivery to one room.
type TaskEvent struct {
	ProjectID string    `json:"projectId"`
	TaskID    int       `json:"taskId"`
	Title     string    `json:"title"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Valid reports whether the event carries the required correlation keys.
// Publish sites must check this before touching the broadcast hub.
func (e TaskEvent) Valid() bool {
	return e.ProjectID != "" && e.TaskID > 0
}
