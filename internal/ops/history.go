package ops

import (
	"context"
	"sort"
	"time"

	"github.com/hpungsan/dose/internal/medication"
)

// HistoryInput contains parameters for the History operation.
type HistoryInput struct {
	WeekOf time.Time // optional, default: now
	Now    time.Time
}

// HistoryDay groups the records starting on one date.
type HistoryDay struct {
	Date  string    `json:"date"`
	Items []DayItem `json:"items"`
}

// HistoryOutput contains the result of the History operation.
type HistoryOutput struct {
	WeekStart string       `json:"week_start"`
	Days      []HistoryDay `json:"days"`
}

// History returns the Sunday to Saturday week containing WeekOf, one entry
// per day, each item evaluated at now. Nothing is persisted.
func (e *Engine) History(ctx context.Context, input HistoryInput) (*HistoryOutput, error) {
	now := e.resolveNow(input.Now)
	weekOf := now
	if !input.WeekOf.IsZero() {
		// Only the calendar date of WeekOf counts.
		y, m, d := input.WeekOf.Date()
		weekOf = time.Date(y, m, d, 0, 0, 0, 0, e.location)
	}
	start, end := medication.WeekBounds(weekOf)

	col, err := e.load(ctx)
	if err != nil {
		return nil, err
	}

	days := make([]HistoryDay, 7)
	for d := range days {
		days[d] = HistoryDay{Date: start.AddDate(0, 0, d).Format(DateLayout), Items: []DayItem{}}
	}

	loc := start.Location()
	for _, rec := range col.Records() {
		at := rec.StartDateTime.In(loc)
		if at.Before(start) || !at.Before(end) {
			continue
		}
		// Matched by date string: days around a DST shift are not 24h long.
		d := dayIndex(days, at.Format(DateLayout))
		if d < 0 {
			continue
		}
		days[d].Items = append(days[d].Items, e.item(rec, now))
	}

	for d := range days {
		items := days[d].Items
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].Record.StartDateTime.Before(items[j].Record.StartDateTime)
		})
	}

	return &HistoryOutput{WeekStart: start.Format(DateLayout), Days: days}, nil
}

func dayIndex(days []HistoryDay, date string) int {
	for i := range days {
		if days[i].Date == date {
			return i
		}
	}
	return -1
}
