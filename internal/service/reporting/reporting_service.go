package reporting

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/dispatch/internal/domain/models"
)

// Source lists live allocations with their orders populated.
type Source interface {
	AllocationsInRange(ctx context.Context, from, to models.Date) ([]models.ScheduleEntry, error)
	AllocationsForDate(ctx context.Context, date models.Date) ([]models.ScheduleEntry, error)
}

// Service builds calendar views and the daily loading digest.
type Service struct {
	source Source
	loc    *time.Location
	logger *zap.Logger
	now    func() time.Time
}

// NewService wires a new reporting service instance. loc decides what
// "today" means for the digest.
func NewService(source Source, loc *time.Location, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{source: source, loc: loc, logger: logger, now: time.Now}
}

// Calendar groups allocations by exact loading date, ascending.
func (s *Service) Calendar(ctx context.Context, from, to models.Date) ([]models.DaySchedule, error) {
	entries, err := s.source.AllocationsInRange(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return GroupByDate(entries), nil
}

// GroupByDate buckets entries by loading date and totals each bucket.
func GroupByDate(entries []models.ScheduleEntry) []models.DaySchedule {
	byDate := make(map[models.Date]*models.DaySchedule)
	for _, e := range entries {
		date := e.Allocation.LoadingDate
		day, ok := byDate[date]
		if !ok {
			day = &models.DaySchedule{Date: date}
			byDate[date] = day
		}
		day.Entries = append(day.Entries, e)
		day.RequiredTons += e.Allocation.RequiredTons
		day.ShippedTons += e.Allocation.ShippedTons
		day.RemainingTons += e.Allocation.RemainingTons()
		if e.Allocation.Completed() {
			day.Completed++
		}
	}

	out := make([]models.DaySchedule, 0, len(byDate))
	for _, day := range byDate {
		day.RequiredTons = models.RoundTons(day.RequiredTons)
		day.ShippedTons = models.RoundTons(day.ShippedTons)
		day.RemainingTons = models.RoundTons(day.RemainingTons)
		out = append(out, *day)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// Today is the current calendar date in the reporting timezone.
func (s *Service) Today() models.Date {
	return models.DateOf(s.now().In(s.loc))
}

// DailyDigest renders the loadings planned for date as chat text.
func (s *Service) DailyDigest(ctx context.Context, date models.Date) (string, error) {
	entries, err := s.source.AllocationsForDate(ctx, date)
	if err != nil {
		return "", fmt.Errorf("load schedules for %s: %w", date, err)
	}

	if len(entries) == 0 {
		return fmt.Sprintf("Loadings for %s: nothing planned.", date), nil
	}

	days := GroupByDate(entries)
	day := days[0]

	var b strings.Builder
	fmt.Fprintf(&b, "Loadings for %s (%d)\n", date, len(entries))
	for i, e := range day.Entries {
		a := e.Allocation
		status := fmt.Sprintf("%s t left", tons(a.RemainingTons()))
		if a.Completed() {
			status = "done"
		}
		fmt.Fprintf(&b, "%d. %s, %s: %s/%s t, %s\n",
			i+1, e.Order.Route(), e.Order.Cargo, tons(a.ShippedTons), tons(a.RequiredTons), status)
	}
	fmt.Fprintf(&b, "Total: %s of %s t shipped, %s t remaining, %d of %d complete.",
		tons(day.ShippedTons), tons(day.RequiredTons), tons(day.RemainingTons), day.Completed, len(day.Entries))

	s.logger.Debug("daily digest built", zap.String("date", date.String()), zap.Int("schedules", len(entries)))
	return b.String(), nil
}

func tons(v float64) string {
	return strconv.FormatFloat(models.RoundTons(v), 'f', -1, 64)
}
