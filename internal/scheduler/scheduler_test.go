package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/dispatch/internal/config"
	"github.com/mamadbah2/dispatch/internal/domain/models"
)

type stubDigester struct {
	asked []models.Date
	text  string
	err   error
}

func (d *stubDigester) Today() models.Date {
	return models.Date{Year: 2024, Month: time.June, Day: 1}
}

func (d *stubDigester) DailyDigest(_ context.Context, date models.Date) (string, error) {
	d.asked = append(d.asked, date)
	return d.text, d.err
}

type captureNotifier struct{ messages []string }

func (n *captureNotifier) Notify(_ context.Context, text string) { n.messages = append(n.messages, text) }

func digestConfig(spec string) config.DigestConfig {
	return config.DigestConfig{CronSchedule: spec, Timezone: "UTC"}
}

func TestSendDailyDigest(t *testing.T) {
	digester := &stubDigester{text: "Loadings for 2024-06-01: nothing planned."}
	notifier := &captureNotifier{}
	s, err := NewScheduler(digestConfig("0 7 * * *"), digester, notifier, nil)
	require.NoError(t, err)

	s.sendDailyDigest()

	assert.Equal(t, []models.Date{digester.Today()}, digester.asked)
	assert.Equal(t, []string{digester.text}, notifier.messages)
}

func TestSendDailyDigestSkipsOnError(t *testing.T) {
	notifier := &captureNotifier{}
	s, err := NewScheduler(digestConfig("0 7 * * *"), &stubDigester{err: errors.New("down")}, notifier, nil)
	require.NoError(t, err)

	s.sendDailyDigest()
	assert.Empty(t, notifier.messages)
}

func TestStartRejectsBadSchedule(t *testing.T) {
	s, err := NewScheduler(digestConfig("every morning"), &stubDigester{}, &captureNotifier{}, nil)
	require.NoError(t, err)
	assert.Error(t, s.Start())
}

func TestNewSchedulerRejectsBadTimezone(t *testing.T) {
	_, err := NewScheduler(config.DigestConfig{CronSchedule: "0 7 * * *", Timezone: "Mars/Olympus"}, &stubDigester{}, &captureNotifier{}, nil)
	assert.Error(t, err)
}

func TestStartStop(t *testing.T) {
	s, err := NewScheduler(digestConfig("0 7 * * *"), &stubDigester{}, &captureNotifier{}, nil)
	require.NoError(t, err)
	require.NoError(t, s.Start())
	s.Stop()
}
