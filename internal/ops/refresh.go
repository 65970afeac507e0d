package ops

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hpungsan/dose/internal/medication"
	"github.com/hpungsan/dose/internal/store"
)

// DateLayout is the calendar-date format used in day views.
const DateLayout = "2006-01-02"

// DayItem is one record as shown for a day.
type DayItem struct {
	Record    medication.Record `json:"record"`
	Status    medication.Status `json:"status"`
	TimeLabel string            `json:"timeLabel"`
	Icon      string            `json:"icon"`
}

// DayView is the immutable result of a refresh.
type DayView struct {
	Date        string    `json:"date"`
	Items       []DayItem `json:"items"`
	Warnings    []string  `json:"warnings,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
}

// RefreshInput contains parameters for the Refresh operation.
type RefreshInput struct {
	Now time.Time // optional, default: engine clock
}

// Refresh loads the collection, evaluates today's records, arms missing
// triggers and persists whatever changed.
func (e *Engine) Refresh(ctx context.Context, input RefreshInput) (*DayView, error) {
	now := e.resolveNow(input.Now)

	col, err := e.load(ctx)
	if err != nil {
		return nil, err
	}
	return e.commit(ctx, col, now)
}

// commit runs the refresh pass over col, saves it if anything changed and
// publishes the resulting view. Mutations share it so that a mutation and
// its refresh land in one write.
func (e *Engine) commit(ctx context.Context, col *store.Collection, now time.Time) (*DayView, error) {
	view, armed := e.refreshCollection(ctx, col, now)

	if col.Changed() {
		if err := e.save(ctx, col); err != nil {
			for _, id := range armed {
				e.cancel(ctx, "", id)
			}
			return nil, err
		}
	}

	e.metrics.Refreshed()
	e.setSnapshot(view)
	return view, nil
}

// refreshCollection evaluates the records on now's date in stored order,
// writing back status changes and new trigger ids. It returns the day view
// and the ids of triggers armed during the pass.
func (e *Engine) refreshCollection(ctx context.Context, col *store.Collection, now time.Time) (*DayView, []string) {
	view := &DayView{
		Date:        now.Format(DateLayout),
		Items:       []DayItem{},
		GeneratedAt: now,
	}
	var armed []string

	for _, i := range medication.OnDay(col.Records(), now) {
		rec := col.At(i)
		ev := medication.EvaluateLocale(rec, now, e.locale)

		dirty := false
		if rec.Status != ev.Status {
			rec.Status = ev.Status
			dirty = true
		}

		if rec.NotificationID == "" && eligible(rec) {
			id, err := e.scheduler.EnsureScheduled(ctx, rec, now)
			if err != nil {
				view.Warnings = append(view.Warnings, err.Error())
			} else if id != "" {
				rec.NotificationID = id
				armed = append(armed, id)
				dirty = true
			}
		}

		if dirty {
			col.Set(i, rec)
		}
		view.Items = append(view.Items, DayItem{
			Record:    rec,
			Status:    ev.Status,
			TimeLabel: ev.TimeLabel,
			Icon:      medication.IconName(rec.IconID),
		})
	}

	if len(view.Warnings) > 0 {
		e.logger.Warn("refresh completed with warnings",
			zap.String("date", view.Date),
			zap.Strings("warnings", view.Warnings),
		)
	}
	return view, armed
}

// eligible reports whether rec may have a trigger armed.
// A taken one-shot never needs another reminder.
func eligible(rec medication.Record) bool {
	return !(rec.Status == medication.StatusTaken && rec.EffectiveRepeat() == medication.RepeatNone)
}
