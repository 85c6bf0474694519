// Package scheduler sends hourly review reminders to learners with due items.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/pkg/errors"

	"github.com/example/learnbot/pkg/models"
)

// Notifier delivers a reminder about count due items
type Notifier interface {
	SendReminder(ctx context.Context, learner models.Learner, count int) error
}

// LearnerSource lists learners who want a reminder at a given hour
type LearnerSource interface {
	GetByID(ctx context.Context, id int64) (*models.Learner, error)
	ListForNotification(ctx context.Context, hour int) ([]models.Learner, error)
}

// DueSource returns the due items of a learner
type DueSource interface {
	DueItems(ctx context.Context, learnerID int64, now time.Time, limit int) ([]models.SRSItemState, error)
}

// Options configure the notification window, in UTC hours inclusive
type Options struct {
	StartHour int
	EndHour   int
}

// Scheduler manages scheduled tasks for the application
type Scheduler struct {
	scheduler *gocron.Scheduler
	notifier  Notifier
	learners  LearnerSource
	due       DueSource
	opts      Options
	logger    *slog.Logger
	now       func() time.Time
}

// New creates a new scheduler instance
func New(notifier Notifier, learners LearnerSource, due DueSource, opts Options, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		notifier:  notifier,
		learners:  learners,
		due:       due,
		opts:      opts,
		logger:    logger.With("component", "scheduler"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Start runs the hourly reminder check in the background until ctx is done or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.scheduler.Every(1).Hour().Do(func() {
		if err := s.CheckAndSendReminders(ctx); err != nil {
			s.logger.Error("reminder check failed", "error", err)
		}
	})
	if err != nil {
		return errors.Wrap(err, "schedule reminder job")
	}
	s.scheduler.StartAsync()
	return nil
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// InWindow reports whether hour lies in the notification window
func (s *Scheduler) InWindow(hour int) bool {
	return hour >= s.opts.StartHour && hour <= s.opts.EndHour
}

// CheckAndSendReminders notifies every learner whose preferred hour is now and
// who has due items. The count is capped at the learner's test size.
func (s *Scheduler) CheckAndSendReminders(ctx context.Context) error {
	now := s.now()
	hour := now.Hour()
	if !s.InWindow(hour) {
		s.logger.Debug("outside notification hours, skipping", "hour", hour, "start", s.opts.StartHour, "end", s.opts.EndHour)
		return nil
	}

	learners, err := s.learners.ListForNotification(ctx, hour)
	if err != nil {
		return errors.Wrap(err, "list learners for notification")
	}

	sent := 0
	for _, l := range learners {
		limit := l.QuestionsPerTest
		ok, err := s.remind(ctx, l, now, limit)
		if err != nil {
			s.logger.Warn("failed to remind learner", "learner_id", l.ID, "error", err)
			continue
		}
		if ok {
			sent++
		}
	}
	s.logger.Info("reminders sent", "hour", hour, "candidates", len(learners), "sent", sent)
	return nil
}

// RunManualCheck reminds one learner about all of their due items regardless of the hour.
func (s *Scheduler) RunManualCheck(ctx context.Context, learnerID int64) (bool, error) {
	l, err := s.learners.GetByID(ctx, learnerID)
	if err != nil {
		return false, err
	}
	return s.remind(ctx, *l, s.now(), 0)
}

func (s *Scheduler) remind(ctx context.Context, l models.Learner, now time.Time, limit int) (bool, error) {
	due, err := s.due.DueItems(ctx, l.ID, now, limit)
	if err != nil {
		return false, err
	}
	if len(due) == 0 {
		return false, nil
	}
	if err := s.notifier.SendReminder(ctx, l, len(due)); err != nil {
		return false, err
	}
	return true, nil
}
