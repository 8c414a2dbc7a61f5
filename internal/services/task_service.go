// internal/services/task_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"habitvault/internal/models"
	"habitvault/internal/repositories"
)

var (
	ErrInvalidTask     = errors.New("invalid task")
	ErrInvalidSchedule = errors.New("schedule does not match task type")
	ErrForbidden       = errors.New("task belongs to another user")
)

var timeOfDayRe = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d(:[0-5]\d)?$`)

// TaskService defines the interface for task-related business logic.
type TaskService interface {
	Create(ctx context.Context, task *models.Task) (*models.Task, error)
	GetByID(ctx context.Context, userID, id string) (*models.Task, error)
	GetAll(ctx context.Context, filter models.TaskFilter) ([]models.Task, error)
	Update(ctx context.Context, userID, id string, patch TaskPatch) (*models.Task, error)
	Delete(ctx context.Context, userID, id string) error
	ToggleComplete(ctx context.Context, userID, id string) (*models.Task, error)
}

// TaskPatch carries the optional fields of an edit.
type TaskPatch struct {
	Title       *string
	Description *string
	Kind        *models.TaskKind
	Priority    *models.TaskPriority
	Active      *bool
	TimeOfDay   *string
	Deadline    *time.Time
}

type taskService struct {
	repo repositories.TaskRepository
	now  func() time.Time
}

// NewTaskService creates a new instance of TaskService.
func NewTaskService(repo repositories.TaskRepository) TaskService {
	return &taskService{repo: repo, now: time.Now}
}

// ValidateSchedule enforces that exactly one of time of day and deadline is
// set and that it matches the task kind.
func ValidateSchedule(t *models.Task) error {
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidTask)
	}
	if !t.Kind.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidTask, t.Kind)
	}
	if !t.Priority.Valid() {
		return fmt.Errorf("%w: unknown priority %q", ErrInvalidTask, t.Priority)
	}
	switch t.Kind {
	case models.KindDaily:
		if t.TimeOfDay == nil || t.Deadline != nil {
			return fmt.Errorf("%w: DAILY needs time_of_day only", ErrInvalidSchedule)
		}
		if !timeOfDayRe.MatchString(*t.TimeOfDay) {
			return fmt.Errorf("%w: time_of_day must be HH:MM", ErrInvalidSchedule)
		}
		if t.RemindedAt != nil {
			return fmt.Errorf("%w: DAILY tasks are never email-reminded", ErrInvalidSchedule)
		}
	case models.KindDeadline:
		if t.Deadline == nil || t.TimeOfDay != nil {
			return fmt.Errorf("%w: DEADLINE needs deadline only", ErrInvalidSchedule)
		}
	}
	return nil
}

func (s *taskService) Create(ctx context.Context, task *models.Task) (*models.Task, error) {
	if task.Priority == "" {
		task.Priority = models.PriorityNormal
	}
	if err := ValidateSchedule(task); err != nil {
		return nil, err
	}
	now := s.now()
	task.ID = uuid.NewString()
	task.Active = true
	task.Completed = false
	task.CompletedAt = nil
	task.RemindedAt = nil
	task.CreatedAt = now
	task.UpdatedAt = now

	if err := s.repo.Store(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *taskService) owned(ctx context.Context, userID, id string) (*models.Task, error) {
	task, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.UserID != userID {
		return nil, ErrForbidden
	}
	return task, nil
}

func (s *taskService) GetByID(ctx context.Context, userID, id string) (*models.Task, error) {
	return s.owned(ctx, userID, id)
}

func (s *taskService) GetAll(ctx context.Context, filter models.TaskFilter) ([]models.Task, error) {
	return s.repo.FindAll(ctx, filter)
}

func (s *taskService) Update(ctx context.Context, userID, id string, patch TaskPatch) (*models.Task, error) {
	existing, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	update := *existing
	resetReminder := false

	if patch.Title != nil {
		update.Title = *patch.Title
	}
	if patch.Description != nil {
		update.Description = patch.Description
		if *patch.Description == "" {
			update.Description = nil
		}
	}
	if patch.Priority != nil {
		update.Priority = *patch.Priority
	}
	if patch.Active != nil {
		update.Active = *patch.Active
	}
	if patch.Kind != nil && *patch.Kind != update.Kind {
		update.Kind = *patch.Kind
		update.TimeOfDay = nil
		update.Deadline = nil
		resetReminder = true
	}
	if patch.TimeOfDay != nil {
		update.TimeOfDay = patch.TimeOfDay
	}
	if patch.Deadline != nil {
		// a moved deadline is a new reminder obligation
		if existing.Deadline == nil || !existing.Deadline.Equal(*patch.Deadline) {
			resetReminder = true
		}
		update.Deadline = patch.Deadline
	}

	if err := ValidateSchedule(&update); err != nil {
		return nil, err
	}
	update.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, &update, resetReminder); err != nil {
		return nil, err
	}
	if resetReminder {
		update.RemindedAt = nil
	}
	return &update, nil
}

func (s *taskService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *taskService) ToggleComplete(ctx context.Context, userID, id string) (*models.Task, error) {
	task, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	task.Completed = !task.Completed
	task.CompletedAt = nil
	if task.Completed {
		at := s.now()
		task.CompletedAt = &at
	}
	if err := s.repo.SetCompleted(ctx, id, task.Completed, task.CompletedAt); err != nil {
		return nil, err
	}
	return task, nil
}
