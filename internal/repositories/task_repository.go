package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"habitvault/internal/models"
)

var ErrTaskNotFound = errors.New("task not found")

type TaskRepository interface {
	Store(ctx context.Context, task *models.Task) error
	FindByID(ctx context.Context, id string) (*models.Task, error)
	FindAll(ctx context.Context, filter models.TaskFilter) ([]models.Task, error)
	Update(ctx context.Context, task *models.Task, resetReminder bool) error
	Delete(ctx context.Context, id string) error
	SetCompleted(ctx context.Context, id string, completed bool, at *time.Time) error

	// reminders
	ListActiveByUser(ctx context.Context, userID string) ([]models.Task, error)
	ListDueForReminder(ctx context.Context, from, to time.Time) ([]models.ReminderCandidate, error)
	MarkReminded(ctx context.Context, id string, at time.Time) error
}

const taskColumns = `id, user_id, title, description, type, is_completed, completed_at,
       priority, is_active, time_of_day, deadline, reminded_at, created_at, updated_at`

type taskRepository struct {
	db *sql.DB
}

func NewTaskRepository(db *sql.DB) TaskRepository {
	return &taskRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner, t *models.Task, extra ...any) error {
	dest := []any{
		&t.ID, &t.UserID, &t.Title, &t.Description, &t.Kind, &t.Completed, &t.CompletedAt,
		&t.Priority, &t.Active, &t.TimeOfDay, &t.Deadline, &t.RemindedAt, &t.CreatedAt, &t.UpdatedAt,
	}
	return row.Scan(append(dest, extra...)...)
}

func (r *taskRepository) Store(ctx context.Context, task *models.Task) error {
	query := `
		INSERT INTO tasks (
			id, user_id, title, description, type, is_completed, completed_at,
			priority, is_active, time_of_day, deadline, created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		RETURNING created_at, updated_at`
	return r.db.QueryRowContext(ctx, query,
		task.ID, task.UserID, task.Title, task.Description, task.Kind, task.Completed, task.CompletedAt,
		task.Priority, task.Active, task.TimeOfDay, task.Deadline, task.CreatedAt, task.UpdatedAt,
	).Scan(&task.CreatedAt, &task.UpdatedAt)
}

func (r *taskRepository) FindByID(ctx context.Context, id string) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	task := &models.Task{}
	if err := scanTask(r.db.QueryRowContext(ctx, query, id), task); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return task, nil
}

func (r *taskRepository) FindAll(ctx context.Context, filter models.TaskFilter) ([]models.Task, error) {
	baseQuery := `SELECT ` + taskColumns + ` FROM tasks`

	conditions := []string{}
	args := []interface{}{}
	argID := 1

	if filter.UserID != nil {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", argID))
		args = append(args, *filter.UserID)
		argID++
	}
	if filter.Kind != nil {
		conditions = append(conditions, fmt.Sprintf("type = $%d", argID))
		args = append(args, *filter.Kind)
		argID++
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", argID))
		args = append(args, *filter.Active)
		argID++
	}
	if filter.Completed != nil {
		conditions = append(conditions, fmt.Sprintf("is_completed = $%d", argID))
		args = append(args, *filter.Completed)
		argID++
	}

	if len(conditions) > 0 {
		baseQuery += " WHERE " + strings.Join(conditions, " AND ")
	}
	baseQuery += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, baseQuery, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		var t models.Task
		if err := scanTask(rows, &t); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// Update writes the editable columns. reminded_at is never taken from task:
// it is cleared when resetReminder is set and left as stored otherwise.
func (r *taskRepository) Update(ctx context.Context, task *models.Task, resetReminder bool) error {
	query := `
		UPDATE tasks SET
			title=$1, description=$2, type=$3, priority=$4, is_active=$5,
			time_of_day=$6, deadline=$7,
			reminded_at = CASE WHEN $8::boolean THEN NULL ELSE reminded_at END,
			updated_at=$9
		WHERE id=$10`
	res, err := r.db.ExecContext(ctx, query,
		task.Title, task.Description, task.Kind, task.Priority, task.Active,
		task.TimeOfDay, task.Deadline, resetReminder, task.UpdatedAt, task.ID,
	)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (r *taskRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (r *taskRepository) SetCompleted(ctx context.Context, id string, completed bool, at *time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE tasks SET is_completed=$1, completed_at=$2, updated_at=NOW() WHERE id=$3`, completed, at, id)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (r *taskRepository) ListActiveByUser(ctx context.Context, userID string) ([]models.Task, error) {
	active := true
	return r.FindAll(ctx, models.TaskFilter{UserID: &userID, Active: &active})
}

// ListDueForReminder returns un-reminded active deadline tasks with a deadline
// in [from, to], inner-joined with the owner's profile.
func (r *taskRepository) ListDueForReminder(ctx context.Context, from, to time.Time) ([]models.ReminderCandidate, error) {
	q := `
SELECT t.id, t.user_id, t.title, t.description, t.type, t.is_completed, t.completed_at,
       t.priority, t.is_active, t.time_of_day, t.deadline, t.reminded_at, t.created_at, t.updated_at,
       p.id, p.email, COALESCE(p.name, '')
FROM tasks t
INNER JOIN profiles p ON p.id = t.user_id
WHERE t.type = 'DEADLINE'
  AND t.is_active = TRUE
  AND t.deadline >= $1
  AND t.deadline <= $2
  AND t.reminded_at IS NULL
ORDER BY t.deadline ASC`
	rows, err := r.db.QueryContext(ctx, q, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ReminderCandidate
	for rows.Next() {
		var c models.ReminderCandidate
		if err := scanTask(rows, &c.Task, &c.Profile.ID, &c.Profile.Email, &c.Profile.Name); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// MarkReminded sets reminded_at once; an already reminded task is left untouched.
func (r *taskRepository) MarkReminded(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE tasks SET reminded_at=$1, updated_at=$1 WHERE id=$2 AND reminded_at IS NULL`, at, id)
	return err
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrTaskNotFound
	}
	return nil
}
