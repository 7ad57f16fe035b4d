// Package scheduler triggers the daily ingestion batch at a fixed wall-clock
// time in the exchange's timezone.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/Ishizuka-Ma/Company-Analysis/internal/logger"
)

// DailyScheduler fires once per day at RunAt ("15:04" wall clock) in
// Location. The task runs to completion before the next wait is computed, so
// a long batch never overlaps the next trigger.
type DailyScheduler struct {
	RunAt          string
	Location       *time.Location
	RunImmediately bool

	ctx   context.Context
	nowFn func() time.Time
}

func NewDailyScheduler(ctx context.Context, runAt string, loc *time.Location) (*DailyScheduler, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if loc == nil {
		loc = time.UTC
	}
	if _, err := time.Parse("15:04", runAt); err != nil {
		return nil, fmt.Errorf("scheduler: run_at %q is not HH:MM: %w", runAt, err)
	}
	return &DailyScheduler{
		RunAt:    runAt,
		Location: loc,
		ctx:      ctx,
		nowFn:    time.Now,
	}, nil
}

// Start blocks, running task at each trigger until the context is done.
func (s *DailyScheduler) Start(task func()) {
	if s == nil || task == nil {
		return
	}
	logger.Infof("scheduler: daily at %s %s, run_immediately=%v", s.RunAt, s.Location, s.RunImmediately)

	if s.RunImmediately {
		task()
	}
	for {
		wait := s.untilNext(s.nowFn())
		logger.Infof("scheduler: next run in %s", wait.Truncate(time.Second))

		timer := time.NewTimer(wait)
		select {
		case <-s.ctx.Done():
			timer.Stop()
			logger.Infof("scheduler: ctx done, exit")
			return
		case <-timer.C:
		}
		task()
	}
}

// untilNext computes the wait to the next trigger strictly after now.
func (s *DailyScheduler) untilNext(now time.Time) time.Duration {
	now = now.In(s.Location)
	at, _ := time.Parse("15:04", s.RunAt)
	next := time.Date(now.Year(), now.Month(), now.Day(), at.Hour(), at.Minute(), 0, 0, s.Location)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}
