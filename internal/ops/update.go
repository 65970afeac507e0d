package ops

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hpungsan/dose/internal/errors"
	"github.com/hpungsan/dose/internal/medication"
)

// RecordPatch lists the fields to change. Nil fields are left as they are.
// The id and notification handle are not patchable.
type RecordPatch struct {
	Title               *string            `json:"title,omitempty"`
	Dose                *string            `json:"dose,omitempty"`
	StartDateTime       *time.Time         `json:"startDateTime,omitempty"`
	TotalDays           *int               `json:"totalDays,omitempty"`
	RepeatIntervalHours *float64           `json:"repeatIntervalHours,omitempty"`
	RepeatType          *string            `json:"repeatType,omitempty"`
	Color               *string            `json:"color,omitempty"`
	IconID              *string            `json:"iconId,omitempty"`
	Status              *medication.Status `json:"status,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p RecordPatch) Empty() bool {
	return p.Title == nil && p.Dose == nil && p.StartDateTime == nil &&
		p.TotalDays == nil && p.RepeatIntervalHours == nil && p.RepeatType == nil &&
		p.Color == nil && p.IconID == nil && p.Status == nil
}

// UpdateRecordInput contains parameters for the UpdateRecord operation.
type UpdateRecordInput struct {
	ID    string // required
	Patch RecordPatch
	Now   time.Time
}

// UpdateRecordOutput contains the result of the UpdateRecord operation.
type UpdateRecordOutput struct {
	Found bool     `json:"found"`
	View  *DayView `json:"view"`
}

// UpdateRecord edits a record in place. When the reminder-relevant fields
// change, the armed trigger is released so the refresh arms a fresh one.
func (e *Engine) UpdateRecord(ctx context.Context, input UpdateRecordInput) (*UpdateRecordOutput, error) {
	if input.ID == "" {
		return nil, errors.NewInvalidRequest("id is required")
	}
	if input.Patch.Empty() {
		return nil, errors.NewInvalidRequest("at least one field must be provided")
	}
	now := e.resolveNow(input.Now)

	col, err := e.load(ctx)
	if err != nil {
		return nil, err
	}

	i := col.IndexOf(input.ID)
	if i < 0 {
		e.logger.Debug("update on unknown medication ignored", zap.String("id", input.ID))
		view, err := e.commit(ctx, col, now)
		if err != nil {
			return nil, err
		}
		return &UpdateRecordOutput{Found: false, View: view}, nil
	}

	old := col.At(i)
	rec, err := applyPatch(old, input.Patch)
	if err != nil {
		return nil, err
	}
	if err := medication.Validate(medication.ValidateInput{Record: rec, TitleMaxChars: e.cfg.TitleMaxChars}).Err(); err != nil {
		return nil, err
	}

	if rec.NotificationID != "" && (reminderChanged(old, rec) || !eligible(rec)) {
		e.cancel(ctx, rec.ID, rec.NotificationID)
		rec.NotificationID = ""
	}
	col.Set(i, rec)

	view, err := e.commit(ctx, col, now)
	if err != nil {
		return nil, err
	}
	return &UpdateRecordOutput{Found: true, View: view}, nil
}

func applyPatch(rec medication.Record, p RecordPatch) (medication.Record, error) {
	if p.Title != nil {
		rec.Title = medication.NormalizeTitle(*p.Title)
	}
	if p.Dose != nil {
		rec.Dose = *p.Dose
	}
	if p.StartDateTime != nil {
		rec.StartDateTime = *p.StartDateTime
	}
	if p.TotalDays != nil {
		rec.TotalDays = p.TotalDays
	}
	if p.RepeatIntervalHours != nil {
		rec.RepeatIntervalHours = p.RepeatIntervalHours
	}
	if p.RepeatType != nil {
		repeat, err := medication.ParseRepeatType(*p.RepeatType)
		if err != nil {
			return rec, errors.NewInvalidRequest("repeatType must be one of: none, daily, hourly")
		}
		rec.RepeatType = repeat
	}
	if p.Color != nil {
		rec.Color = *p.Color
	}
	if p.IconID != nil {
		rec.IconID = *p.IconID
	}
	if p.Status != nil {
		// Same transitions as MarkStatus: nothing leads back to pending
		// and taken is final.
		switch {
		case *p.Status != medication.StatusTaken && *p.Status != medication.StatusMissed:
			return rec, errors.NewInvalidRequest("status must be one of: taken, missed")
		case rec.Status == medication.StatusTaken && *p.Status != medication.StatusTaken:
			return rec, errors.NewInvalidRequest("status of a taken medication cannot change")
		}
		rec.Status = *p.Status
	}
	return rec, nil
}

// reminderChanged reports whether an armed trigger for old no longer matches rec.
func reminderChanged(old, rec medication.Record) bool {
	return !old.StartDateTime.Equal(rec.StartDateTime) ||
		old.EffectiveRepeat() != rec.EffectiveRepeat() ||
		old.Title != rec.Title
}
