package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/hpungsan/dose/internal/errors"
	"github.com/hpungsan/dose/internal/trigger"
)

// ErrUniqueConstraint is returned when an insert violates a UNIQUE constraint.
var ErrUniqueConstraint = &errors.DoseError{
	Code:    "UNIQUE_CONSTRAINT",
	Status:  409,
	Message: "unique constraint violation",
}

// GetCollection returns the blob stored under key.
// found is false when the key has never been written.
func GetCollection(ctx context.Context, db *sql.DB, key string) (value string, found bool, err error) {
	err = db.QueryRowContext(ctx, `SELECT value FROM collections WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.NewInternal(err)
	}
	return value, true, nil
}

// PutCollection replaces the blob stored under key.
func PutCollection(ctx context.Context, db *sql.DB, key, value string, updatedAt int64) error {
	query := `
		INSERT INTO collections (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := db.ExecContext(ctx, query, key, value, updatedAt); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// TriggerRow is one armed reminder as persisted in the triggers table.
type TriggerRow struct {
	ID        string
	RecordID  string
	Trigger   trigger.Trigger
	Content   trigger.Content
	CreatedAt int64
}

// InsertTrigger stores a newly armed reminder.
func InsertTrigger(ctx context.Context, db *sql.DB, row *TriggerRow) error {
	data, err := json.Marshal(row.Trigger)
	if err != nil {
		return errors.NewInternal(err)
	}

	query := `
		INSERT INTO triggers (id, record_id, kind, trigger_json, title, body, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err = db.ExecContext(ctx, query,
		row.ID, row.RecordID, string(row.Trigger.Kind), string(data),
		row.Content.Title, row.Content.Body, row.CreatedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUniqueConstraint
		}
		return errors.NewInternal(err)
	}
	return nil
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	// SQLite returns "UNIQUE constraint failed: ..." for unique violations
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// DeleteTrigger removes a trigger by id. Reports whether a row was removed.
func DeleteTrigger(ctx context.Context, db *sql.DB, id string) (bool, error) {
	result, err := db.ExecContext(ctx, `DELETE FROM triggers WHERE id = ?`, id)
	if err != nil {
		return false, errors.NewInternal(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, errors.NewInternal(err)
	}
	return n > 0, nil
}

// GetTrigger retrieves a trigger by id. A missing id yields nil, nil.
func GetTrigger(ctx context.Context, db *sql.DB, id string) (*TriggerRow, error) {
	query := `
		SELECT id, record_id, trigger_json, title, body, created_at
		FROM triggers
		WHERE id = ?
	`
	row, err := scanTrigger(db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return row, nil
}

// ListTriggers returns every armed trigger, oldest first.
func ListTriggers(ctx context.Context, db *sql.DB) ([]TriggerRow, error) {
	query := `
		SELECT id, record_id, trigger_json, title, body, created_at
		FROM triggers
		ORDER BY created_at ASC, id ASC
	`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var out []TriggerRow
	for rows.Next() {
		r, err := scanTrigger(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		out = append(out, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return out, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanTrigger scans a single row into a TriggerRow.
func scanTrigger(s rowScanner) (*TriggerRow, error) {
	var (
		r           TriggerRow
		triggerJSON string
	)
	if err := s.Scan(&r.ID, &r.RecordID, &triggerJSON, &r.Content.Title, &r.Content.Body, &r.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(triggerJSON), &r.Trigger); err != nil {
		return nil, err
	}
	return &r, nil
}
