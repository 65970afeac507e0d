package ops

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hpungsan/dose/internal/errors"
)

// DeleteRecordInput contains parameters for the DeleteRecord operation.
type DeleteRecordInput struct {
	ID  string // required
	Now time.Time
}

// DeleteRecordOutput contains the result of the DeleteRecord operation.
type DeleteRecordOutput struct {
	Found bool     `json:"found"`
	View  *DayView `json:"view"`
}

// DeleteRecord removes a record permanently and releases its trigger.
func (e *Engine) DeleteRecord(ctx context.Context, input DeleteRecordInput) (*DeleteRecordOutput, error) {
	if input.ID == "" {
		return nil, errors.NewInvalidRequest("id is required")
	}
	now := e.resolveNow(input.Now)

	col, err := e.load(ctx)
	if err != nil {
		return nil, err
	}

	i := col.IndexOf(input.ID)
	found := i >= 0
	if found {
		rec := col.At(i)
		if rec.NotificationID != "" {
			e.cancel(ctx, rec.ID, rec.NotificationID)
		}
		col.Remove(i)
	} else {
		e.logger.Debug("delete of unknown medication ignored", zap.String("id", input.ID))
	}

	view, err := e.commit(ctx, col, now)
	if err != nil {
		return nil, err
	}
	return &DeleteRecordOutput{Found: found, View: view}, nil
}
