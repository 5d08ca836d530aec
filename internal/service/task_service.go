package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"tasktracker/internal/domain"
	"tasktracker/internal/repository"
)

// TaskService coordinates owner-scoped task operations backed by the repository.
type TaskService interface {
	Create(ctx context.Context, ownerID int64, description string) (*domain.Task, error)
	List(ctx context.Context, ownerID int64) ([]domain.Task, error)
	Get(ctx context.Context, id int64) (*domain.Task, error)
	Complete(ctx context.Context, ownerID, id int64) error
	Delete(ctx context.Context, ownerID, id int64) error
}

type taskService struct {
	tasks    repository.TaskRepository
	validate *validator.Validate
}

func NewTaskService(tasks repository.TaskRepository) TaskService {
	return &taskService{
		tasks:    tasks,
		validate: validator.New(),
	}
}

func (s *taskService) Create(ctx context.Context, ownerID int64, description string) (*domain.Task, error) {
	if err := validationError(s.validate, taskInput{Description: description}); err != nil {
		return nil, err
	}

	task := &domain.Task{
		UserID:      ownerID,
		Description: description,
	}
	if _, err := s.tasks.Create(ctx, task); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("owner %d: %w", ownerID, ErrNotFound)
		}
		return nil, err
	}
	return task, nil
}

func (s *taskService) List(ctx context.Context, ownerID int64) ([]domain.Task, error) {
	return s.tasks.ListByUser(ctx, ownerID)
}

func (s *taskService) Get(ctx context.Context, id int64) (*domain.Task, error) {
	task, err := s.tasks.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("task %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return task, nil
}

// Complete marks the task done. Completing an already completed task is not an error.
func (s *taskService) Complete(ctx context.Context, ownerID, id int64) error {
	if _, err := s.owned(ctx, ownerID, id); err != nil {
		return err
	}
	return s.translate(id, s.tasks.MarkCompleted(ctx, id))
}

func (s *taskService) Delete(ctx context.Context, ownerID, id int64) error {
	if _, err := s.owned(ctx, ownerID, id); err != nil {
		return err
	}
	return s.translate(id, s.tasks.Delete(ctx, id))
}

func (s *taskService) owned(ctx context.Context, ownerID, id int64) (*domain.Task, error) {
	task, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !task.OwnedBy(ownerID) {
		return nil, fmt.Errorf("task %d: %w", id, ErrNotAuthorized)
	}
	return task, nil
}

func (s *taskService) translate(id int64, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	return err
}
