// Package report builds the daily sales report from completed orders and
// walk-up sales, cached per business day.
package report

import (
	"context"
	"fmt"
	"time"

	"tillpoint/backend/internal/cache"
	"tillpoint/backend/internal/domain"
)

const dateLayout = "2006-01-02"

type Source interface {
	GetDailyReport(ctx context.Context, dayStart, dayEnd time.Time) (domain.DailyReport, error)
}

type Aggregator struct {
	source   Source
	cache    cache.ReportCache
	cacheTTL time.Duration
	loc      *time.Location
}

func NewAggregator(source Source, cacheStore cache.ReportCache, cacheTTL time.Duration, loc *time.Location) *Aggregator {
	if cacheStore == nil {
		cacheStore = cache.NoopReportCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = 60 * time.Second
	}
	if loc == nil {
		loc = time.Local
	}

	return &Aggregator{
		source:   source,
		cache:    cacheStore,
		cacheTTL: cacheTTL,
		loc:      loc,
	}
}

// ForDay reports on one business day in the configured timezone. An empty
// date means today. The report window is [local midnight, next local
// midnight), so DST days are 23 or 25 hours long rather than a fixed 24.
func (a *Aggregator) ForDay(ctx context.Context, date string) (domain.DailyReport, error) {
	if date == "" {
		date = time.Now().In(a.loc).Format(dateLayout)
	}
	day, err := time.ParseInLocation(dateLayout, date, a.loc)
	if err != nil {
		return domain.DailyReport{}, fmt.Errorf("%w: date must look like %s", domain.ErrValidation, dateLayout)
	}

	key := cacheKey(date)
	if cached, ok, err := a.cache.Get(ctx, key); err == nil && ok {
		return *cached, nil
	}

	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, a.loc)
	dayEnd := dayStart.AddDate(0, 0, 1)

	result, err := a.source.GetDailyReport(ctx, dayStart, dayEnd)
	if err != nil {
		return domain.DailyReport{}, err
	}
	result.Date = date

	_ = a.cache.Set(ctx, key, &result, a.cacheTTL)
	return result, nil
}

// ResetDay drops the cached reports for the day that just ended and the day
// that just began, so the first read after midnight recomputes both.
func (a *Aggregator) ResetDay(ctx context.Context, now time.Time) error {
	local := now.In(a.loc)
	today := local.Format(dateLayout)
	yesterday := local.AddDate(0, 0, -1).Format(dateLayout)

	if err := a.cache.Delete(ctx, cacheKey(yesterday)); err != nil {
		return err
	}
	return a.cache.Delete(ctx, cacheKey(today))
}

func cacheKey(date string) string {
	return "tillpoint:report:daily:" + date
}
