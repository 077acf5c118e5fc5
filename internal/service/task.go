package service

import (
	"context"
	"errors"

	"github.com/taskdeck/taskdeck-go/internal/apperr"
	"github.com/taskdeck/taskdeck-go/internal/model"
	"github.com/taskdeck/taskdeck-go/internal/repository"
)

// TaskService handles task business logic. Every operation is scoped to the
// authenticated user's id.
type TaskService struct {
	tasks *repository.TaskRepository
}

// NewTaskService creates a new TaskService.
func NewTaskService(tasks *repository.TaskRepository) *TaskService {
	return &TaskService{tasks: tasks}
}

// List returns all tasks owned by userID. The result is never nil so an
// empty list serializes as [] rather than null.
func (s *TaskService) List(ctx context.Context, userID int64) ([]model.Task, error) {
	tasks, err := s.tasks.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, "listing tasks", err)
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	return tasks, nil
}

// Create persists a new task for userID and returns it with the generated id.
func (s *TaskService) Create(ctx context.Context, userID int64, req model.CreateTaskRequest) (*model.Task, error) {
	if req.Title == "" {
		return nil, apperr.New(apperr.KindValidation, "title is required")
	}

	task := &model.Task{
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
		Completed:   req.Completed != nil && *req.Completed,
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		if errors.Is(err, repository.ErrInvalidUserRef) {
			return nil, apperr.Wrap(apperr.KindConstraint, "task owner no longer exists", err)
		}
		return nil, apperr.Wrap(apperr.KindStorage, "creating task", err)
	}

	return task, nil
}

// Update applies the provided fields to a task owned by userID. Omitted
// fields are left unchanged. A task owned by another user reports as not
// found, the same as a missing task.
//
// The load-mutate-save sequence runs in one transaction with a row lock so
// concurrent updates to the same task cannot lose writes.
func (s *TaskService) Update(ctx context.Context, userID, taskID int64, req model.UpdateTaskRequest) (*model.Task, error) {
	if req.Title != nil && *req.Title == "" {
		return nil, apperr.New(apperr.KindValidation, "title cannot be empty")
	}

	tx, err := s.tasks.BeginTx(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, "starting transaction", err)
	}
	defer tx.Rollback()

	task, err := s.tasks.GetByIDForUpdate(ctx, tx, taskID)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "task not found")
		}
		return nil, apperr.Wrap(apperr.KindStorage, "loading task", err)
	}

	if task.UserID != userID {
		return nil, apperr.New(apperr.KindNotFound, "task not found")
	}

	if req.Title != nil {
		task.Title = *req.Title
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.Completed != nil {
		task.Completed = *req.Completed
	}

	if err := s.tasks.SaveTx(ctx, tx, task); err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, "saving task", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, "committing task update", err)
	}

	return task, nil
}

// Delete removes a task owned by userID. Unlike Update, a task owned by
// another user reports as access denied rather than not found.
func (s *TaskService) Delete(ctx context.Context, userID, taskID int64) error {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return apperr.New(apperr.KindNotFound, "task not found")
		}
		return apperr.Wrap(apperr.KindStorage, "loading task", err)
	}

	if task.UserID != userID {
		return apperr.New(apperr.KindAccessDenied, "access denied")
	}

	if err := s.tasks.Delete(ctx, taskID); err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return apperr.New(apperr.KindNotFound, "task not found")
		}
		return apperr.Wrap(apperr.KindStorage, "deleting task", err)
	}

	return nil
}
