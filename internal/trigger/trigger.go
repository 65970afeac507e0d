// Package trigger describes reminder triggers handed to a notifier.
package trigger

import (
	"fmt"
	"time"

	"github.com/hpungsan/dose/internal/medication"
)

// Kind is the trigger shape.
type Kind string

const (
	KindDate         Kind = "date"
	KindDaily        Kind = "daily"
	KindTimeInterval Kind = "timeInterval"
)

// HourlySeconds is the spacing of an hourly reminder.
const HourlySeconds = 3600

// Trigger is a request describing when a reminder fires.
// Only the fields relevant to Kind are set.
type Trigger struct {
	Kind Kind `json:"kind"`

	// date
	Date *time.Time `json:"date,omitempty"`

	// daily, in the local clock of the scheduling host
	Hour   *int `json:"hour,omitempty"`
	Minute *int `json:"minute,omitempty"`

	// timeInterval
	Seconds int `json:"seconds,omitempty"`

	Repeats bool `json:"repeats"`
}

// Content is the reminder payload.
type Content struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Request is everything a notifier needs to arm one reminder.
type Request struct {
	RecordID string
	Trigger  Trigger
	Content  Content

	// ScheduledAt is the moment of scheduling; interval triggers count from it.
	ScheduledAt time.Time
}

// For selects the trigger shape for rec. The hour and minute of a daily
// trigger come from the start time in loc.
func For(rec medication.Record, loc *time.Location) Trigger {
	switch rec.EffectiveRepeat() {
	case medication.RepeatDaily:
		start := rec.StartDateTime.In(loc)
		h, m := start.Hour(), start.Minute()
		return Trigger{Kind: KindDaily, Hour: &h, Minute: &m, Repeats: true}
	case medication.RepeatHourly:
		return Trigger{Kind: KindTimeInterval, Seconds: HourlySeconds, Repeats: true}
	default:
		at := rec.StartDateTime
		return Trigger{Kind: KindDate, Date: &at, Repeats: false}
	}
}

// ContentFor builds the reminder text for rec in the given locale.
func ContentFor(rec medication.Record, loc medication.Locale) Content {
	return Content{
		Title: loc.NotifyTitle,
		Body:  fmt.Sprintf(loc.NotifyBody, rec.Title),
	}
}

// Validate checks that the fields required by Kind are present.
func (t Trigger) Validate() error {
	switch t.Kind {
	case KindDate:
		if t.Date == nil {
			return fmt.Errorf("date trigger requires a date")
		}
		if t.Repeats {
			return fmt.Errorf("date trigger cannot repeat")
		}
	case KindDaily:
		if t.Hour == nil || t.Minute == nil {
			return fmt.Errorf("daily trigger requires hour and minute")
		}
		if *t.Hour < 0 || *t.Hour > 23 || *t.Minute < 0 || *t.Minute > 59 {
			return fmt.Errorf("daily trigger time %d:%d out of range", *t.Hour, *t.Minute)
		}
	case KindTimeInterval:
		if t.Seconds <= 0 {
			return fmt.Errorf("interval trigger requires positive seconds")
		}
	default:
		return fmt.Errorf("unknown trigger kind %q", t.Kind)
	}
	return nil
}
