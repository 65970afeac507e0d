package ops

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hpungsan/dose/internal/errors"
	"github.com/hpungsan/dose/internal/medication"
)

// MarkStatusInput contains parameters for the MarkStatus operation.
type MarkStatusInput struct {
	ID     string            // required
	Status medication.Status // required: taken or missed
	Now    time.Time
}

// MarkStatusOutput contains the result of the MarkStatus operation.
type MarkStatusOutput struct {
	Found bool     `json:"found"`
	View  *DayView `json:"view"`
}

// MarkStatus records the user's taken/missed decision for a record.
// An unknown id is not an error: the record may have been deleted
// concurrently, so the output just reports Found=false.
func (e *Engine) MarkStatus(ctx context.Context, input MarkStatusInput) (*MarkStatusOutput, error) {
	if input.ID == "" {
		return nil, errors.NewInvalidRequest("id is required")
	}
	if input.Status != medication.StatusTaken && input.Status != medication.StatusMissed {
		return nil, errors.NewInvalidRequest("status must be one of: taken, missed")
	}
	now := e.resolveNow(input.Now)

	col, err := e.load(ctx)
	if err != nil {
		return nil, err
	}

	i := col.IndexOf(input.ID)
	if i < 0 {
		e.logger.Debug("mark on unknown medication ignored", zap.String("id", input.ID))
		view, err := e.commit(ctx, col, now)
		if err != nil {
			return nil, err
		}
		return &MarkStatusOutput{Found: false, View: view}, nil
	}

	rec := col.At(i)
	if input.Status == medication.StatusTaken && rec.EffectiveRepeat() == medication.RepeatNone && rec.NotificationID != "" {
		e.cancel(ctx, rec.ID, rec.NotificationID)
		rec.NotificationID = ""
	}
	rec.Status = input.Status
	col.Set(i, rec)

	view, err := e.commit(ctx, col, now)
	if err != nil {
		return nil, err
	}
	e.metrics.DoseMarked(string(input.Status))
	return &MarkStatusOutput{Found: true, View: view}, nil
}
