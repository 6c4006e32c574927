package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tillpoint/backend/internal/domain"
)

type sourceStub struct {
	calls     int
	lastStart time.Time
	lastEnd   time.Time
	report    domain.DailyReport
	err       error
}

func (s *sourceStub) GetDailyReport(_ context.Context, dayStart, dayEnd time.Time) (domain.DailyReport, error) {
	s.calls++
	s.lastStart = dayStart
	s.lastEnd = dayEnd
	return s.report, s.err
}

type cacheStub struct {
	entries map[string]*domain.DailyReport
	deleted []string
}

func newCacheStub() *cacheStub {
	return &cacheStub{entries: make(map[string]*domain.DailyReport)}
}

func (c *cacheStub) Get(_ context.Context, key string) (*domain.DailyReport, bool, error) {
	report, ok := c.entries[key]
	return report, ok, nil
}

func (c *cacheStub) Set(_ context.Context, key string, value *domain.DailyReport, _ time.Duration) error {
	c.entries[key] = value
	return nil
}

func (c *cacheStub) Delete(_ context.Context, key string) error {
	c.deleted = append(c.deleted, key)
	delete(c.entries, key)
	return nil
}

func TestForDayQueriesLocalMidnightWindow(t *testing.T) {
	loc := time.FixedZone("UTC+7", 7*3600)
	source := &sourceStub{report: domain.DailyReport{TotalAmount: decimal.RequireFromString("42.50")}}
	agg := NewAggregator(source, newCacheStub(), time.Minute, loc)

	report, err := agg.ForDay(context.Background(), "2026-03-10")
	if err != nil {
		t.Fatalf("for day: %v", err)
	}

	wantStart := time.Date(2026, 3, 10, 0, 0, 0, 0, loc)
	if !source.lastStart.Equal(wantStart) {
		t.Fatalf("expected window start %v, got %v", wantStart, source.lastStart)
	}
	if !source.lastEnd.Equal(wantStart.AddDate(0, 0, 1)) {
		t.Fatalf("expected window end %v, got %v", wantStart.AddDate(0, 0, 1), source.lastEnd)
	}
	if report.Date != "2026-03-10" {
		t.Fatalf("expected report date 2026-03-10, got %s", report.Date)
	}
	if got := report.TotalAmount.StringFixed(2); got != "42.50" {
		t.Fatalf("expected total 42.50, got %s", got)
	}
}

func TestForDayServesSecondReadFromCache(t *testing.T) {
	source := &sourceStub{report: domain.DailyReport{TotalTransactions: 3}}
	agg := NewAggregator(source, newCacheStub(), time.Minute, time.UTC)

	if _, err := agg.ForDay(context.Background(), "2026-03-10"); err != nil {
		t.Fatalf("first read: %v", err)
	}
	second, err := agg.ForDay(context.Background(), "2026-03-10")
	if err != nil {
		t.Fatalf("second read: %v", err)
	}

	if source.calls != 1 {
		t.Fatalf("expected a single source query, got %d", source.calls)
	}
	if second.TotalTransactions != 3 {
		t.Fatalf("expected cached report contents, got %+v", second)
	}
}

func TestForDayDoesNotCacheFailures(t *testing.T) {
	source := &sourceStub{err: errors.New("boom")}
	store := newCacheStub()
	agg := NewAggregator(source, store, time.Minute, time.UTC)

	if _, err := agg.ForDay(context.Background(), "2026-03-10"); err == nil {
		t.Fatal("expected source failure to propagate")
	}
	if len(store.entries) != 0 {
		t.Fatalf("expected nothing cached after failure, got %d entries", len(store.entries))
	}
}

func TestForDayRejectsMalformedDate(t *testing.T) {
	agg := NewAggregator(&sourceStub{}, newCacheStub(), time.Minute, time.UTC)

	if _, err := agg.ForDay(context.Background(), "10-03-2026"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestForDayDefaultsToToday(t *testing.T) {
	source := &sourceStub{}
	agg := NewAggregator(source, newCacheStub(), time.Minute, time.UTC)

	report, err := agg.ForDay(context.Background(), "")
	if err != nil {
		t.Fatalf("for day: %v", err)
	}
	if want := time.Now().UTC().Format("2006-01-02"); report.Date != want {
		t.Fatalf("expected today %s, got %s", want, report.Date)
	}
}

func TestResetDayPurgesTodayAndYesterday(t *testing.T) {
	loc := time.FixedZone("UTC+7", 7*3600)
	store := newCacheStub()
	agg := NewAggregator(&sourceStub{}, store, time.Minute, loc)

	// 00:00:30 local on March 11th: the rollover just happened.
	now := time.Date(2026, 3, 10, 17, 0, 30, 0, time.UTC)
	if err := agg.ResetDay(context.Background(), now); err != nil {
		t.Fatalf("reset day: %v", err)
	}

	want := map[string]bool{
		"tillpoint:report:daily:2026-03-10": true,
		"tillpoint:report:daily:2026-03-11": true,
	}
	if len(store.deleted) != 2 {
		t.Fatalf("expected 2 purged keys, got %v", store.deleted)
	}
	for _, key := range store.deleted {
		if !want[key] {
			t.Fatalf("unexpected purged key %s", key)
		}
	}
}
