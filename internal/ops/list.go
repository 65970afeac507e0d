package ops

import (
	"context"
	"time"

	"github.com/hpungsan/dose/internal/medication"
)

// ListInput contains parameters for the List operation.
type ListInput struct {
	Limit  int // default: 20, max: 100
	Offset int // default: 0
	Now    time.Time
}

// ListOutput contains the result of the List operation.
type ListOutput struct {
	Items      []DayItem  `json:"items"`
	Pagination Pagination `json:"pagination"`
}

// List returns every record in stored order with its evaluation at now.
// Nothing is persisted.
func (e *Engine) List(ctx context.Context, input ListInput) (*ListOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	offset := input.Offset
	if offset < 0 {
		offset = 0
	}
	now := e.resolveNow(input.Now)

	col, err := e.load(ctx)
	if err != nil {
		return nil, err
	}

	total := col.Len()
	items := []DayItem{}
	for i := offset; i < total && i < offset+limit; i++ {
		items = append(items, e.item(col.At(i), now))
	}

	return &ListOutput{
		Items: items,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(items) < total,
			Total:   total,
		},
	}, nil
}

// item evaluates rec for display without touching the stored status.
func (e *Engine) item(rec medication.Record, now time.Time) DayItem {
	ev := medication.EvaluateLocale(rec, now, e.locale)
	return DayItem{
		Record:    rec,
		Status:    ev.Status,
		TimeLabel: ev.TimeLabel,
		Icon:      medication.IconName(rec.IconID),
	}
}
