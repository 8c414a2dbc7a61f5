// internal/models/task.go
package models

import "time"

// TaskKind separates recurring daily tasks from one-shot deadline tasks.
type TaskKind string

const (
	KindDaily    TaskKind = "DAILY"
	KindDeadline TaskKind = "DEADLINE"
)

func (k TaskKind) Valid() bool {
	return k == KindDaily || k == KindDeadline
}

type TaskPriority string

const (
	PriorityUrgent TaskPriority = "urgent"
	PriorityNormal TaskPriority = "normal"
	PriorityLow    TaskPriority = "low"
)

func (p TaskPriority) Valid() bool {
	return p == PriorityUrgent || p == PriorityNormal || p == PriorityLow
}

// Task represents a user's task as stored in the tasks table.
//
// Exactly one of TimeOfDay (DAILY) and Deadline (DEADLINE) is set.
type Task struct {
	ID          string       `json:"id"`
	UserID      string       `json:"user_id"`
	Title       string       `json:"title"`
	Description *string      `json:"description,omitempty"`
	Kind        TaskKind     `json:"type"`
	Completed   bool         `json:"is_completed"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
	Priority    TaskPriority `json:"priority"`
	Active      bool         `json:"is_active"`
	TimeOfDay   *string      `json:"time_of_day,omitempty"` // HH:MM or HH:MM:SS
	Deadline    *time.Time   `json:"deadline,omitempty"`
	RemindedAt  *time.Time   `json:"reminded_at,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// TimeOfDayMinute returns the stored time of day truncated to HH:MM.
func (t *Task) TimeOfDayMinute() string {
	if t.TimeOfDay == nil {
		return ""
	}
	s := *t.TimeOfDay
	if len(s) > 5 {
		s = s[:5]
	}
	return s
}

// TaskFilter defines the available parameters for filtering tasks.
type TaskFilter struct {
	UserID    *string
	Kind      *TaskKind
	Active    *bool
	Completed *bool
}

// ReminderCandidate is a deadline task joined with its owner's contact profile.
type ReminderCandidate struct {
	Task    Task
	Profile Profile
}
