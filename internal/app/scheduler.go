package app

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"habitvault/internal/reminders"
)

// dispatchTimeout bounds one scheduled run.
const dispatchTimeout = 2 * time.Minute

// Scheduler triggers the dispatcher on a cron schedule. A nil Scheduler is a no-op.
type Scheduler struct {
	cron *cron.Cron
}

type dispatchRunner interface {
	Run(ctx context.Context) (*reminders.DispatchSummary, error)
}

// StartScheduler runs the dispatcher on a five-field cron schedule. "off" or empty disables it.
func StartScheduler(schedule string, d dispatchRunner) (*Scheduler, error) {
	schedule = strings.TrimSpace(schedule)
	if schedule == "" || schedule == "off" {
		log.Printf("[scheduler] dispatch schedule disabled")
		return nil, nil
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	c := cron.New(
		cron.WithParser(parser),
		cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger)),
	)
	if _, err := c.AddFunc(schedule, func() { runScheduled(d) }); err != nil {
		return nil, fmt.Errorf("invalid dispatch schedule %q: %w", schedule, err)
	}
	c.Start()
	log.Printf("[scheduler] dispatch schedule %q", schedule)
	return &Scheduler{cron: c}, nil
}

func runScheduled(d dispatchRunner) {
	ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
	defer cancel()
	summary, err := d.Run(ctx)
	if err != nil {
		log.Printf("[scheduler][err] dispatch: %v", err)
		return
	}
	log.Printf("[scheduler] %s", summary.Message)
}

// Stop waits for a running dispatch to finish.
func (s *Scheduler) Stop() {
	if s == nil {
		return
	}
	<-s.cron.Stop().Done()
}
