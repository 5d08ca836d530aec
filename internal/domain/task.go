package domain

import "time"

// Task is a single to-do item owned by exactly one user.
type Task struct {
	ID          int64
	UserID      int64
	Description string
	Completed   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OwnedBy reports whether the task belongs to the given user.
func (t *Task) OwnedBy(userID int64) bool {
	return t != nil && userID != 0 && t.UserID == userID
}
