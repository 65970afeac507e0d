package notify

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/hpungsan/dose/internal/db"
	"github.com/hpungsan/dose/internal/trigger"
)

// onceSchedule fires a single time at at.
type onceSchedule struct {
	at time.Time
}

// Next implements cron.Schedule. A zero time tells cron never to run again.
func (s onceSchedule) Next(t time.Time) time.Time {
	if s.at.After(t) {
		return s.at
	}
	return time.Time{}
}

// intervalSchedule fires at anchor + k*every for k >= 1.
type intervalSchedule struct {
	anchor time.Time
	every  time.Duration
}

// Next implements cron.Schedule.
func (s intervalSchedule) Next(t time.Time) time.Time {
	if t.Before(s.anchor) {
		return s.anchor.Add(s.every)
	}
	k := t.Sub(s.anchor)/s.every + 1
	return s.anchor.Add(k * s.every)
}

// scheduleFor maps a stored trigger onto a cron schedule. Overdue one-shots
// within grace fire a second after now; older ones yield nil.
func scheduleFor(row db.TriggerRow, now time.Time, grace time.Duration) (cron.Schedule, error) {
	switch row.Trigger.Kind {
	case trigger.KindDate:
		if row.Trigger.Date == nil {
			return nil, fmt.Errorf("trigger %s: date missing", row.ID)
		}
		at := *row.Trigger.Date
		if !at.After(now) {
			if now.Sub(at) > grace {
				return nil, nil
			}
			at = now.Add(time.Second)
		}
		return onceSchedule{at: at}, nil

	case trigger.KindDaily:
		if row.Trigger.Hour == nil || row.Trigger.Minute == nil {
			return nil, fmt.Errorf("trigger %s: hour or minute missing", row.ID)
		}
		return cron.ParseStandard(fmt.Sprintf("%d %d * * *", *row.Trigger.Minute, *row.Trigger.Hour))

	case trigger.KindTimeInterval:
		if row.Trigger.Seconds <= 0 {
			return nil, fmt.Errorf("trigger %s: non-positive interval", row.ID)
		}
		return intervalSchedule{
			anchor: time.Unix(row.CreatedAt, 0),
			every:  time.Duration(row.Trigger.Seconds) * time.Second,
		}, nil
	}
	return nil, fmt.Errorf("trigger %s: unknown kind %q", row.ID, row.Trigger.Kind)
}
