package repository

import (
	"context"

	"tasktracker/internal/domain"
)

// TaskRepository exposes persistence operations for Task entities.
type TaskRepository interface {
	Create(ctx context.Context, task *domain.Task) (int64, error)
	Get(ctx context.Context, id int64) (*domain.Task, error)
	// ListByUser returns the user's tasks in creation order.
	ListByUser(ctx context.Context, userID int64) ([]domain.Task, error)
	MarkCompleted(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
}
