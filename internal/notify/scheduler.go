// Package notify arms and cancels reminder triggers and runs the reminder daemon.
package notify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hpungsan/dose/internal/errors"
	"github.com/hpungsan/dose/internal/medication"
	"github.com/hpungsan/dose/internal/metrics"
	"github.com/hpungsan/dose/internal/trigger"
)

// Notifier is the notification subsystem: it arms triggers and returns
// opaque handles, and releases them by handle.
// Cancel must succeed for unknown or already-cancelled handles.
type Notifier interface {
	Schedule(ctx context.Context, req trigger.Request) (string, error)
	Cancel(ctx context.Context, id string) error
}

// SchedulerConfig configures a Scheduler. Zero values get defaults.
type SchedulerConfig struct {
	Locale   medication.Locale
	Location *time.Location
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
}

// Scheduler decides trigger shapes and talks to the Notifier.
type Scheduler struct {
	notifier Notifier
	locale   medication.Locale
	location *time.Location
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// NewScheduler returns a Scheduler over n.
func NewScheduler(n Notifier, cfg SchedulerConfig) *Scheduler {
	s := &Scheduler{
		notifier: n,
		locale:   cfg.Locale,
		location: cfg.Location,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
	}
	if s.locale.NotifyTitle == "" {
		s.locale = medication.LookupLocale("en")
	}
	if s.location == nil {
		s.location = time.Local
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// EnsureScheduled arms a trigger for rec unless one is already armed or rec
// is a one-shot whose time has passed. It returns the handle now associated
// with rec, which is "" when nothing is armed.
func (s *Scheduler) EnsureScheduled(ctx context.Context, rec medication.Record, now time.Time) (string, error) {
	if rec.NotificationID != "" {
		return rec.NotificationID, nil
	}
	if rec.EffectiveRepeat() == medication.RepeatNone && rec.StartDateTime.Before(now) {
		return "", nil
	}

	req := trigger.Request{
		RecordID:    rec.ID,
		Trigger:     trigger.For(rec, s.location),
		Content:     trigger.ContentFor(rec, s.locale),
		ScheduledAt: now,
	}
	id, err := s.notifier.Schedule(ctx, req)
	if err != nil {
		s.metrics.SchedulingFailed()
		s.logger.Warn("failed to arm reminder",
			zap.String("record_id", rec.ID),
			zap.String("kind", string(req.Trigger.Kind)),
			zap.Error(err),
		)
		return "", errors.NewNotificationScheduling(rec.ID, err)
	}

	s.metrics.TriggerArmed(string(req.Trigger.Kind))
	s.logger.Debug("reminder armed",
		zap.String("record_id", rec.ID),
		zap.String("notification_id", id),
		zap.String("kind", string(req.Trigger.Kind)),
	)
	return id, nil
}

// Cancel releases a trigger. An empty id is a no-op.
func (s *Scheduler) Cancel(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := s.notifier.Cancel(ctx, id); err != nil {
		return err
	}
	s.metrics.TriggerCancelled()
	return nil
}
