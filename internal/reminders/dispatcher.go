package reminders

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"habitvault/internal/metrics"
	"habitvault/internal/models"
)

// DefaultLookahead is how far ahead of now deadlines are reminded.
const DefaultLookahead = time.Hour

// ReminderStore is the task store surface the dispatcher needs.
type ReminderStore interface {
	ListDueForReminder(ctx context.Context, from, to time.Time) ([]models.ReminderCandidate, error)
	MarkReminded(ctx context.Context, id string, at time.Time) error
}

// Mailer delivers one reminder email.
type Mailer interface {
	SendTaskReminder(ctx context.Context, profile models.Profile, task models.Task) error
}

type DispatchResult struct {
	TaskID  string `json:"taskId"`
	Email   string `json:"email"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type DispatchSummary struct {
	Message string           `json:"message"`
	Results []DispatchResult `json:"results"`
}

// Sent counts successful results.
func (s *DispatchSummary) Sent() int {
	n := 0
	for _, r := range s.Results {
		if r.Success {
			n++
		}
	}
	return n
}

type DispatcherOptions struct {
	Lookahead   time.Duration
	Concurrency int
	Now         func() time.Time
}

// Dispatcher emails every un-reminded deadline task due within the lookahead
// window and marks it reminded after a confirmed send.
type Dispatcher struct {
	store       ReminderStore
	mailer      Mailer
	lookahead   time.Duration
	concurrency int
	now         func() time.Time
}

func NewDispatcher(store ReminderStore, mailer Mailer, opts DispatcherOptions) *Dispatcher {
	d := &Dispatcher{
		store:       store,
		mailer:      mailer,
		lookahead:   opts.Lookahead,
		concurrency: opts.Concurrency,
		now:         opts.Now,
	}
	if d.lookahead <= 0 {
		d.lookahead = DefaultLookahead
	}
	if d.now == nil {
		d.now = time.Now
	}
	return d
}

// markTimeout bounds the reminded_at write after a confirmed send.
const markTimeout = 10 * time.Second

// Run performs one dispatch. Only a failing candidate query returns an error;
// per-task failures are reported in the summary.
func (d *Dispatcher) Run(ctx context.Context) (*DispatchSummary, error) {
	start := time.Now()
	defer func() { metrics.DispatchDuration.Observe(time.Since(start).Seconds()) }()

	now := d.now()
	until := now.Add(d.lookahead)
	log.Printf("[reminder][dispatch] checking deadlines between %s and %s",
		now.UTC().Format(time.RFC3339), until.UTC().Format(time.RFC3339))

	candidates, err := d.store.ListDueForReminder(ctx, now, until)
	if err != nil {
		metrics.DispatchRuns.WithLabelValues("query_error").Inc()
		log.Printf("[reminder][dispatch][err] fetch tasks: %v", err)
		return nil, fmt.Errorf("fetch reminder candidates: %w", err)
	}
	metrics.DispatchRuns.WithLabelValues("ok").Inc()
	log.Printf("[reminder][dispatch] found %d tasks to remind", len(candidates))

	if len(candidates) == 0 {
		return &DispatchSummary{Message: "No tasks to remind", Results: []DispatchResult{}}, nil
	}

	results := make([]DispatchResult, len(candidates))
	var g errgroup.Group
	if d.concurrency > 0 {
		g.SetLimit(d.concurrency)
	}
	for i, c := range candidates {
		g.Go(func() error {
			results[i] = d.remind(ctx, c, now)
			return nil
		})
	}
	_ = g.Wait()

	summary := &DispatchSummary{Results: results}
	summary.Message = fmt.Sprintf("Sent %d reminder emails", summary.Sent())
	log.Printf("[reminder][dispatch] successfully sent %d out of %d reminder emails", summary.Sent(), len(results))
	return summary, nil
}

// remind sends then marks; the mark is skipped when the send fails.
func (d *Dispatcher) remind(ctx context.Context, c models.ReminderCandidate, runAt time.Time) (res DispatchResult) {
	res = DispatchResult{TaskID: c.Task.ID, Email: c.Profile.Email}
	defer func() {
		if r := recover(); r != nil {
			metrics.RemindersSent.WithLabelValues("failed").Inc()
			res.Success = false
			res.Error = fmt.Sprint(r)
			log.Printf("[reminder][dispatch][panic] task=%s: %v", c.Task.ID, r)
		}
	}()

	if err := ctx.Err(); err != nil {
		metrics.RemindersSent.WithLabelValues("skipped").Inc()
		log.Printf("[reminder][dispatch][skip] task=%s: %v", c.Task.ID, err)
		res.Error = err.Error()
		return res
	}
	if err := d.mailer.SendTaskReminder(ctx, c.Profile, c.Task); err != nil {
		metrics.RemindersSent.WithLabelValues("failed").Inc()
		log.Printf("[reminder][dispatch][err] send to %s for task %s: %v", c.Profile.Email, c.Task.ID, err)
		res.Error = err.Error()
		return res
	}
	log.Printf("[reminder][dispatch][ok] email sent to %s for task %s", c.Profile.Email, c.Task.ID)
	metrics.RemindersSent.WithLabelValues("sent").Inc()
	res.Success = true

	// a confirmed send must be recorded even if the run is being cancelled
	markCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), markTimeout)
	defer cancel()
	if err := d.store.MarkReminded(markCtx, c.Task.ID, runAt); err != nil {
		// The email went out; the next run may repeat it.
		metrics.RemindersSent.WithLabelValues("mark_failed").Inc()
		log.Printf("[reminder][dispatch][warn] mark reminded task=%s: %v", c.Task.ID, err)
	}
	return res
}
