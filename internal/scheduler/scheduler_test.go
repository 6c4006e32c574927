package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tillpoint/backend/internal/cache"
	"tillpoint/backend/internal/domain"
	"tillpoint/backend/internal/report"
	"tillpoint/backend/internal/service"
	"tillpoint/backend/internal/store/memory"
	"tillpoint/backend/internal/ws"
)

type jobsStub struct {
	mu       sync.Mutex
	sweeps   int
	sweepN   int
	sweepErr error
	closes   int
	closeN   int
	closeErr error
	resets   int
	resetErr error
}

func (j *jobsStub) SweepStaleOrders(context.Context) (int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.sweeps++
	return j.sweepN, j.sweepErr
}

func (j *jobsStub) ForceCloseOpenShifts(context.Context) (int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.closes++
	return j.closeN, j.closeErr
}

func (j *jobsStub) ResetReportDay(context.Context, time.Time) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.resets++
	return j.resetErr
}

func (j *jobsStub) sweepCalls() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.sweeps
}

type notifierStub struct {
	mu   sync.Mutex
	keys []string
}

func (n *notifierStub) Emit(key string, _ ws.Event) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.keys = append(n.keys, key)
	return true
}

func (n *notifierStub) emitted() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.keys...)
}

func TestStartRunsTheFirstSweepImmediately(t *testing.T) {
	jobs := &jobsStub{}
	sched := New(jobs, nil, time.UTC, time.Hour)

	sched.Start(context.Background())
	defer sched.Stop()

	deadline := time.Now().Add(500 * time.Millisecond)
	for jobs.sweepCalls() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("expected a sweep right after start")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

type blockingJobs struct {
	entered chan struct{}
}

func (b *blockingJobs) SweepStaleOrders(ctx context.Context) (int, error) {
	select {
	case b.entered <- struct{}{}:
	default:
	}
	<-ctx.Done()
	return 0, ctx.Err()
}

func (b *blockingJobs) ForceCloseOpenShifts(context.Context) (int, error) { return 0, nil }

func (b *blockingJobs) ResetReportDay(context.Context, time.Time) error { return nil }

func TestStopCancelsAnInFlightRun(t *testing.T) {
	jobs := &blockingJobs{entered: make(chan struct{}, 1)}
	sched := New(jobs, nil, time.UTC, time.Hour)

	sched.Start(context.Background())

	select {
	case <-jobs.entered:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("sweep never started")
	}

	started := time.Now()
	sched.Stop()
	if elapsed := time.Since(started); elapsed > time.Second {
		t.Fatalf("stop took %v, want under a second", elapsed)
	}
}

func TestRollDayClosesShiftsAndResetsReport(t *testing.T) {
	jobs := &jobsStub{closeN: 2}
	sink := &notifierStub{}
	sched := New(jobs, sink, time.UTC, time.Hour)

	sched.rollDay(context.Background(), time.Now())

	if jobs.closes != 1 || jobs.resets != 1 {
		t.Fatalf("expected one close and one reset, got closes=%d resets=%d", jobs.closes, jobs.resets)
	}
	keys := sink.emitted()
	if len(keys) != 2 || keys[0] != "shift.force_closed" || keys[1] != "report.reset" {
		t.Fatalf("unexpected events %v", keys)
	}
}

func TestRollDayStillResetsWhenShiftCloseFails(t *testing.T) {
	jobs := &jobsStub{closeErr: errors.New("db down")}
	sink := &notifierStub{}
	sched := New(jobs, sink, time.UTC, time.Hour)

	sched.rollDay(context.Background(), time.Now())

	if jobs.resets != 1 {
		t.Fatalf("expected the report reset to run, got %d", jobs.resets)
	}
	keys := sink.emitted()
	if len(keys) != 1 || keys[0] != "report.reset" {
		t.Fatalf("unexpected events %v", keys)
	}
}

func TestSweepEmitsOnlyWhenOrdersWereSwept(t *testing.T) {
	jobs := &jobsStub{}
	sink := &notifierStub{}
	sched := New(jobs, sink, time.UTC, time.Hour)

	sched.sweep(context.Background())
	if keys := sink.emitted(); len(keys) != 0 {
		t.Fatalf("an empty sweep must stay silent, got %v", keys)
	}

	jobs.sweepN = 3
	sched.sweep(context.Background())
	keys := sink.emitted()
	if len(keys) != 1 || keys[0] != "order.stale_swept" {
		t.Fatalf("unexpected events %v", keys)
	}
}

func TestSweepSwallowsJobErrors(t *testing.T) {
	jobs := &jobsStub{sweepErr: errors.New("db down")}
	sink := &notifierStub{}
	sched := New(jobs, sink, time.UTC, time.Hour)

	sched.sweep(context.Background())

	if keys := sink.emitted(); len(keys) != 0 {
		t.Fatalf("a failed sweep must not emit, got %v", keys)
	}
}

func TestSchedulerCompletesOnlyStaleOrders(t *testing.T) {
	repo := memory.NewSeeded()
	reports := report.NewAggregator(repo, cache.NoopReportCache{}, time.Minute, time.UTC)
	svc := service.New(repo, reports, nil, 24*time.Hour)

	now := time.Now().UTC()
	items := []domain.OrderItem{{ProductID: "prod-espresso", Quantity: 1, PriceAtOrder: decimal.RequireFromString("2.60")}}

	stale, err := repo.CreateOrder(context.Background(), domain.Order{
		OrderNumber: "ORD-SWEEP-STALE",
		UserID:      "cashier",
		CreatedAt:   now.Add(-25 * time.Hour),
	}, items)
	if err != nil {
		t.Fatalf("seed stale order: %v", err)
	}
	fresh, err := repo.CreateOrder(context.Background(), domain.Order{
		OrderNumber: "ORD-SWEEP-FRESH",
		UserID:      "cashier",
		CreatedAt:   now.Add(-23 * time.Hour),
	}, items)
	if err != nil {
		t.Fatalf("seed fresh order: %v", err)
	}

	sched := New(svc, nil, time.UTC, time.Hour)
	sched.Start(context.Background())
	defer sched.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for {
		order, err := repo.GetOrder(context.Background(), stale.ID)
		if err != nil {
			t.Fatalf("get stale order: %v", err)
		}
		if order.Status == domain.OrderStatusCompleted {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("stale order still %s after the first sweep window", order.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}

	untouched, err := repo.GetOrder(context.Background(), fresh.ID)
	if err != nil {
		t.Fatalf("get fresh order: %v", err)
	}
	if untouched.Status != domain.OrderStatusActive {
		t.Fatalf("fresh order must stay active, got %s", untouched.Status)
	}
}
