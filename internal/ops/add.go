package ops

import (
	"context"
	"time"

	"github.com/hpungsan/dose/internal/errors"
	"github.com/hpungsan/dose/internal/medication"
)

// AddRecordInput contains parameters for the AddRecord operation.
type AddRecordInput struct {
	Title               string    // required
	Dose                string    // optional free text
	StartDateTime       time.Time // required
	TotalDays           *int
	RepeatIntervalHours *float64
	RepeatType          string // none (default), daily, hourly
	Color               string
	IconID              string
	Now                 time.Time
}

// AddRecordOutput contains the result of the AddRecord operation.
type AddRecordOutput struct {
	ID   string   `json:"id"`
	View *DayView `json:"view"`
}

// AddRecord validates and appends a new record, then refreshes.
func (e *Engine) AddRecord(ctx context.Context, input AddRecordInput) (*AddRecordOutput, error) {
	repeat, err := medication.ParseRepeatType(input.RepeatType)
	if err != nil {
		return nil, errors.NewInvalidRequest("repeatType must be one of: none, daily, hourly")
	}

	rec := medication.Record{
		Title:               medication.NormalizeTitle(input.Title),
		Dose:                input.Dose,
		StartDateTime:       input.StartDateTime,
		TotalDays:           input.TotalDays,
		RepeatIntervalHours: input.RepeatIntervalHours,
		RepeatType:          repeat,
		Color:               input.Color,
		IconID:              input.IconID,
	}
	if err := medication.Validate(medication.ValidateInput{Record: rec, TitleMaxChars: e.cfg.TitleMaxChars}).Err(); err != nil {
		return nil, err
	}

	now := e.resolveNow(input.Now)
	col, err := e.load(ctx)
	if err != nil {
		return nil, err
	}

	rec.ID = e.newID()
	for col.IndexOf(rec.ID) >= 0 {
		rec.ID = e.newID()
	}
	col.Append(rec)

	view, err := e.commit(ctx, col, now)
	if err != nil {
		return nil, err
	}
	return &AddRecordOutput{ID: rec.ID, View: view}, nil
}
