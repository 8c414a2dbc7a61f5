package reminders

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"habitvault/internal/metrics"
	"habitvault/internal/models"
)

// DefaultScanInterval is the polling period of a session's scan loop.
const DefaultScanInterval = 30 * time.Second

// TaskSource is the task store surface the scanner reads.
type TaskSource interface {
	ListActiveByUser(ctx context.Context, userID string) ([]models.Task, error)
}

type ScannerOptions struct {
	Interval time.Duration
	Location *time.Location
	Now      func() time.Time
}

// Scanner watches one user's active tasks and alerts at the minute each is due.
// A Scanner is configuration only; all per-session state lives inside Run.
type Scanner struct {
	tasks    TaskSource
	channels Channels
	perms    Permissions
	interval time.Duration
	loc      *time.Location
	now      func() time.Time
}

func NewScanner(tasks TaskSource, channels Channels, perms Permissions, opts ScannerOptions) *Scanner {
	s := &Scanner{
		tasks:    tasks,
		channels: channels,
		perms:    perms,
		interval: opts.Interval,
		loc:      opts.Location,
		now:      opts.Now,
	}
	if s.interval <= 0 {
		s.interval = DefaultScanInterval
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.perms == nil {
		s.perms = StaticPermissions(PermissionDenied)
	}
	return s
}

// MinuteOf formats t as the HH:MM wall-clock minute in loc.
func MinuteOf(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("15:04")
}

// IsDue reports whether task is due in the minute containing now.
func IsDue(task models.Task, now time.Time, loc *time.Location) bool {
	minute := MinuteOf(now, loc)
	switch task.Kind {
	case models.KindDaily:
		return task.TimeOfDay != nil && task.TimeOfDayMinute() == minute
	case models.KindDeadline:
		if task.Deadline == nil {
			return false
		}
		remaining := task.Deadline.Sub(now)
		return remaining > 0 && remaining <= time.Minute && MinuteOf(*task.Deadline, loc) == minute
	}
	return false
}

// session is the state of one scan loop; it is dropped when Run returns.
type session struct {
	userID string
	fired  *firedSet
	wg     sync.WaitGroup
}

// Run scans immediately and then every interval until ctx is cancelled.
// In-flight alert side effects are awaited before it returns.
func (s *Scanner) Run(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("scanner: empty user id")
	}
	sess := &session{userID: userID, fired: newFiredSet()}
	defer sess.wg.Wait()

	metrics.ActiveSessions.Inc()
	defer metrics.ActiveSessions.Dec()

	s.ensurePermission(ctx)

	log.Printf("[reminder][scanner] start user=%s interval=%s", userID, s.interval)
	s.cycle(ctx, sess)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("[reminder][scanner] stop user=%s", userID)
			return nil
		case <-ticker.C:
			s.cycle(ctx, sess)
		}
	}
}

// ensurePermission asks once when the user has not decided yet.
func (s *Scanner) ensurePermission(ctx context.Context) {
	p, err := s.perms.Permission(ctx)
	if err != nil {
		log.Printf("[reminder][scanner][warn] permission lookup: %v", err)
		return
	}
	if p != PermissionDefault {
		return
	}
	if _, err := s.perms.Request(ctx); err != nil {
		log.Printf("[reminder][scanner][warn] permission request: %v", err)
	}
}

// cycle evaluates every active task once and returns those that fired.
func (s *Scanner) cycle(ctx context.Context, sess *session) []models.Task {
	now := s.now()
	minute := MinuteOf(now, s.loc)

	tasks, err := s.tasks.ListActiveByUser(ctx, sess.userID)
	if err != nil {
		metrics.ScanCycles.WithLabelValues("store_error").Inc()
		log.Printf("[reminder][scanner][err] user=%s list tasks: %v", sess.userID, err)
		return nil
	}
	metrics.ScanCycles.WithLabelValues("ok").Inc()

	// stale keys must not suppress a later day's alert in the same minute
	sess.fired.purge(now)

	var fired []models.Task
	for _, task := range tasks {
		if !IsDue(task, now, s.loc) {
			continue
		}
		key := dedupKey(task.ID, minute)
		if sess.fired.seen(key) {
			continue
		}
		sess.fired.record(key, now)
		fired = append(fired, task)

		metrics.AlertsFired.WithLabelValues(string(task.Kind)).Inc()
		log.Printf("[reminder][scanner][fire] user=%s task=%s minute=%s", sess.userID, task.ID, minute)
		s.fire(ctx, sess, newAlert(task, sess.userID, now))
	}

	sess.fired.purge(now)
	return fired
}

// fire starts the three channels independently; none waits for another.
func (s *Scanner) fire(ctx context.Context, sess *session, alert Alert) {
	s.dispatch(ctx, sess, "sound", s.channels.Sound, alert, nil)
	s.dispatch(ctx, sess, "system", s.channels.System, alert, s.systemAllowed)
	s.dispatch(ctx, sess, "toast", s.channels.Toast, alert, nil)
}

func (s *Scanner) systemAllowed(ctx context.Context) bool {
	p, err := s.perms.Permission(ctx)
	return err == nil && p == PermissionGranted
}

func (s *Scanner) dispatch(ctx context.Context, sess *session, name string, n Notifier, alert Alert, gate func(context.Context) bool) {
	if n == nil {
		return
	}
	sess.wg.Add(1)
	go func() {
		defer sess.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				metrics.ChannelErrors.WithLabelValues(name).Inc()
				log.Printf("[reminder][scanner][%s][panic] task=%s: %v", name, alert.TaskID, r)
			}
		}()
		if gate != nil && !gate(ctx) {
			return
		}
		if err := n.Notify(ctx, alert); err != nil {
			metrics.ChannelErrors.WithLabelValues(name).Inc()
			log.Printf("[reminder][scanner][%s][err] task=%s: %v", name, alert.TaskID, err)
		}
	}()
}
