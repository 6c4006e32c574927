// Package scheduler drives the till's background housekeeping: the periodic
// stale-order sweep and the local-midnight day roll.
package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"tillpoint/backend/internal/ws"
)

const dateLayout = "2006-01-02"

// Jobs is the slice of the service the scheduler drives.
type Jobs interface {
	SweepStaleOrders(ctx context.Context) (int, error)
	ForceCloseOpenShifts(ctx context.Context) (int, error)
	ResetReportDay(ctx context.Context, now time.Time) error
}

// Notifier throttles the events the scheduler raises. *notify.Notifier
// satisfies it.
type Notifier interface {
	Emit(key string, event ws.Event) bool
}

// Scheduler ticks once a second so a date change in the shift timezone is
// noticed promptly; the sweep itself runs on its own longer cadence.
type Scheduler struct {
	jobs          Jobs
	notifier      Notifier
	loc           *time.Location
	sweepInterval time.Duration
	runTimeout    time.Duration

	cancel   context.CancelFunc
	stopOnce sync.Once
	done     chan struct{}
}

func New(jobs Jobs, notifier Notifier, loc *time.Location, sweepInterval time.Duration) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	if sweepInterval <= 0 {
		sweepInterval = time.Hour
	}
	return &Scheduler{
		jobs:          jobs,
		notifier:      notifier,
		loc:           loc,
		sweepInterval: sweepInterval,
		runTimeout:    30 * time.Second,
		done:          make(chan struct{}),
	}
}

// Start launches the housekeeping loop. The first sweep runs right away so
// a restart catches up on anything that went stale while the server was down.
func (s *Scheduler) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	go s.run(runCtx)
}

// Stop cancels any in-flight run and waits for the loop to exit, giving up
// after a second.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		select {
		case <-s.done:
		case <-time.After(time.Second):
			log.Printf("[scheduler] WARN: stop timed out waiting for the current run")
		}
	})
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	s.sweep(ctx)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	lastSweep := time.Now()
	lastDay := time.Now().In(s.loc).Format(dateLayout)

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if now.Sub(lastSweep) >= s.sweepInterval {
				lastSweep = now
				s.sweep(ctx)
			}
			if day := now.In(s.loc).Format(dateLayout); day != lastDay {
				lastDay = day
				s.rollDay(ctx, now)
			}
		}
	}
}

func (s *Scheduler) sweep(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, s.runTimeout)
	defer cancel()

	swept, err := s.jobs.SweepStaleOrders(ctx)
	if err != nil {
		log.Printf("[scheduler] WARN: stale order sweep failed: %v", err)
		return
	}
	if swept > 0 {
		log.Printf("[scheduler] stale order sweep auto-completed %d order(s)", swept)
		s.emit("order.stale_swept", map[string]int{"count": swept})
	}
}

// rollDay runs the midnight chores. Each one is independent: a failed shift
// close still lets the report day reset.
func (s *Scheduler) rollDay(parent context.Context, now time.Time) {
	ctx, cancel := context.WithTimeout(parent, s.runTimeout)
	defer cancel()

	closed, err := s.jobs.ForceCloseOpenShifts(ctx)
	if err != nil {
		log.Printf("[scheduler] WARN: midnight shift close failed: %v", err)
	} else if closed > 0 {
		log.Printf("[scheduler] midnight close shut %d open shift(s)", closed)
		s.emit("shift.force_closed", map[string]int{"count": closed})
	}

	if err := s.jobs.ResetReportDay(ctx, now); err != nil {
		log.Printf("[scheduler] WARN: report day reset failed: %v", err)
		return
	}
	s.emit("report.reset", nil)
}

func (s *Scheduler) emit(eventType string, payload any) {
	if s.notifier == nil {
		return
	}
	s.notifier.Emit(eventType, ws.NewEvent(eventType, payload))
}
