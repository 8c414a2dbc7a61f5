package reminders

import (
	"context"
	"time"

	"habitvault/internal/models"
)

// ToastDuration is how long the in-app toast stays visible.
const ToastDuration = 10 * time.Second

// Alert is what a channel is asked to surface when a task becomes due.
type Alert struct {
	TaskID string
	UserID string
	Title  string
	Kind   models.TaskKind
	DueAt  time.Time

	// Tag lets the platform coalesce repeated notifications for one task.
	Tag string
	// RequireInteraction asks the platform to keep the notification until dismissed.
	RequireInteraction bool
	// Duration is the visible time of a toast.
	Duration time.Duration
}

func newAlert(t models.Task, userID string, now time.Time) Alert {
	return Alert{
		TaskID:             t.ID,
		UserID:             userID,
		Title:              t.Title,
		Kind:               t.Kind,
		DueAt:              now,
		Tag:                t.ID,
		RequireInteraction: true,
		Duration:           ToastDuration,
	}
}

// Notifier is one alert channel: a sound, a system notification or a toast.
type Notifier interface {
	Notify(ctx context.Context, alert Alert) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, alert Alert) error

func (f NotifierFunc) Notify(ctx context.Context, alert Alert) error {
	return f(ctx, alert)
}

// Channels groups the three alert variants. Nil entries are skipped.
type Channels struct {
	Sound  Notifier
	System Notifier
	Toast  Notifier
}

// Permission mirrors the platform's notification permission states.
type Permission string

const (
	PermissionDefault Permission = "default"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// Permissions reports and requests system-notification permission for one session.
type Permissions interface {
	Permission(ctx context.Context) (Permission, error)
	// Request prompts the user once; it returns the state known right after asking.
	Request(ctx context.Context) (Permission, error)
}

// StaticPermissions is a fixed permission answer.
type StaticPermissions Permission

func (p StaticPermissions) Permission(context.Context) (Permission, error) {
	return Permission(p), nil
}

func (p StaticPermissions) Request(context.Context) (Permission, error) {
	return Permission(p), nil
}
