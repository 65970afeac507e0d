package notify

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/hpungsan/dose/internal/db"
	"github.com/hpungsan/dose/internal/trigger"
)

// SQLNotifier persists armed triggers in the triggers table, where the
// reminder daemon picks them up.
type SQLNotifier struct {
	db    *sql.DB
	now   func() time.Time
	newID func() string
}

// NewSQLNotifier returns a notifier over an initialized database.
func NewSQLNotifier(database *sql.DB) *SQLNotifier {
	return &SQLNotifier{db: database, now: time.Now, newID: uuid.NewString}
}

// Schedule implements Notifier.
func (n *SQLNotifier) Schedule(ctx context.Context, req trigger.Request) (string, error) {
	if err := req.Trigger.Validate(); err != nil {
		return "", err
	}
	at := req.ScheduledAt
	if at.IsZero() {
		at = n.now()
	}
	row := &db.TriggerRow{
		ID:        n.newID(),
		RecordID:  req.RecordID,
		Trigger:   req.Trigger,
		Content:   req.Content,
		CreatedAt: at.Unix(),
	}
	if err := db.InsertTrigger(ctx, n.db, row); err != nil {
		return "", err
	}
	return row.ID, nil
}

// Cancel implements Notifier. Unknown ids are already cancelled.
func (n *SQLNotifier) Cancel(ctx context.Context, id string) error {
	_, err := db.DeleteTrigger(ctx, n.db, id)
	return err
}
