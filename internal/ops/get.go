package ops

import (
	"context"
	"time"

	"github.com/hpungsan/dose/internal/errors"
)

// GetInput contains parameters for the Get operation.
type GetInput struct {
	ID  string // required
	Now time.Time
}

// Get returns one record with its evaluation at now.
func (e *Engine) Get(ctx context.Context, input GetInput) (*DayItem, error) {
	if input.ID == "" {
		return nil, errors.NewInvalidRequest("id is required")
	}
	now := e.resolveNow(input.Now)

	col, err := e.load(ctx)
	if err != nil {
		return nil, err
	}
	i := col.IndexOf(input.ID)
	if i < 0 {
		return nil, errors.NewNotFound(input.ID)
	}
	item := e.item(col.At(i), now)
	return &item, nil
}
