package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/dispatch/internal/config"
	"github.com/mamadbah2/dispatch/internal/domain/models"
	"github.com/mamadbah2/dispatch/internal/notify"
)

// Digester builds the loading digest for a day.
type Digester interface {
	Today() models.Date
	DailyDigest(ctx context.Context, date models.Date) (string, error)
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron     *cron.Cron
	spec     string
	digester Digester
	notifier notify.Notifier
	logger   *zap.Logger
}

// NewScheduler creates a new scheduler instance running in the digest
// timezone.
func NewScheduler(cfg config.DigestConfig, digester Digester, notifier notify.Notifier, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("load digest timezone: %w", err)
	}

	// Standard 5-field parser: min, hour, dom, month, dow.
	c := cron.New(cron.WithLocation(loc))

	return &Scheduler{
		cron:     c,
		spec:     cfg.CronSchedule,
		digester: digester,
		notifier: notifier,
		logger:   logger,
	}, nil
}

// Start registers the jobs and starts the scheduler.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler", zap.String("digest_schedule", s.spec))

	if _, err := s.cron.AddFunc(s.spec, s.sendDailyDigest); err != nil {
		return fmt.Errorf("schedule daily digest: %w", err)
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running job.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) sendDailyDigest() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	date := s.digester.Today()
	s.logger.Info("generating daily digest", zap.String("date", date.String()))

	text, err := s.digester.DailyDigest(ctx, date)
	if err != nil {
		s.logger.Error("failed to generate daily digest", zap.Error(err))
		return
	}

	s.notifier.Notify(ctx, text)
}
