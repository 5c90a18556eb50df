package reporting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/dispatch/internal/domain/models"
)

type stubSource struct {
	entries []models.ScheduleEntry
	err     error
}

func (s stubSource) AllocationsInRange(_ context.Context, from, to models.Date) ([]models.ScheduleEntry, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []models.ScheduleEntry
	for _, e := range s.entries {
		d := e.Allocation.LoadingDate
		if (!from.IsZero() && d.Before(from)) || (!to.IsZero() && to.Before(d)) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (s stubSource) AllocationsForDate(ctx context.Context, date models.Date) ([]models.ScheduleEntry, error) {
	return s.AllocationsInRange(ctx, date, date)
}

func day(d int) models.Date { return models.Date{Year: 2024, Month: time.June, Day: d} }

func entry(date models.Date, required, shipped float64) models.ScheduleEntry {
	return models.ScheduleEntry{
		Allocation: models.Allocation{LoadingDate: date, RequiredTons: required, ShippedTons: shipped},
		Order:      models.Order{From: "Voronezh", To: "Novorossiysk", Cargo: "wheat"},
	}
}

func TestCalendarGroupsByExactDate(t *testing.T) {
	src := stubSource{entries: []models.ScheduleEntry{
		entry(day(3), 10, 10),
		entry(day(1), 20, 5),
		entry(day(3), 4.5, 1),
		entry(day(7), 1, 0),
	}}
	svc := NewService(src, time.UTC, nil)

	days, err := svc.Calendar(context.Background(), day(1), day(5))
	require.NoError(t, err)
	require.Len(t, days, 2)

	assert.Equal(t, day(1), days[0].Date)
	assert.Equal(t, 15.0, days[0].RemainingTons)
	assert.Equal(t, 0, days[0].Completed)

	assert.Equal(t, day(3), days[1].Date)
	assert.Len(t, days[1].Entries, 2)
	assert.Equal(t, 14.5, days[1].RequiredTons)
	assert.Equal(t, 11.0, days[1].ShippedTons)
	assert.Equal(t, 3.5, days[1].RemainingTons)
	assert.Equal(t, 1, days[1].Completed)
}

func TestCalendarPropagatesSourceError(t *testing.T) {
	svc := NewService(stubSource{err: errors.New("down")}, nil, nil)
	_, err := svc.Calendar(context.Background(), models.Date{}, models.Date{})
	assert.Error(t, err)
}

func TestDailyDigest(t *testing.T) {
	svc := NewService(stubSource{entries: []models.ScheduleEntry{
		entry(day(1), 20, 20),
		entry(day(1), 10, 2.5),
	}}, time.UTC, nil)

	text, err := svc.DailyDigest(context.Background(), day(1))
	require.NoError(t, err)
	assert.Contains(t, text, "Loadings for 2024-06-01 (2)")
	assert.Contains(t, text, "1. Voronezh → Novorossiysk, wheat: 20/20 t, done")
	assert.Contains(t, text, "2. Voronezh → Novorossiysk, wheat: 2.5/10 t, 7.5 t left")
	assert.Contains(t, text, "Total: 22.5 of 30 t shipped, 7.5 t remaining, 1 of 2 complete.")

	empty, err := svc.DailyDigest(context.Background(), day(2))
	require.NoError(t, err)
	assert.Equal(t, "Loadings for 2024-06-02: nothing planned.", empty)
}

func TestTodayUsesReportingTimezone(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	svc := NewService(stubSource{}, loc, nil)
	svc.now = func() time.Time { return time.Date(2024, 5, 31, 22, 30, 0, 0, time.UTC) }

	assert.Equal(t, day(1), svc.Today())
}
