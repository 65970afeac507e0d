package medication

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Status is the lifecycle state of a scheduled dose.
type Status string

const (
	StatusPending Status = "pending"
	StatusTaken   Status = "taken"
	StatusMissed  Status = "missed"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusTaken, StatusMissed:
		return true
	}
	return false
}

// RepeatType governs the reminder trigger shape.
type RepeatType string

const (
	RepeatNone   RepeatType = "none"
	RepeatDaily  RepeatType = "daily"
	RepeatHourly RepeatType = "hourly"
)

// ParseRepeatType accepts the canonical names plus the legacy "day"/"hour"
// spellings. Empty input means none.
func ParseRepeatType(s string) (RepeatType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return RepeatNone, nil
	case "daily", "day":
		return RepeatDaily, nil
	case "hourly", "hour":
		return RepeatHourly, nil
	}
	return "", fmt.Errorf("unknown repeat type %q", s)
}

// Record is one planned medication regimen as persisted in the collection.
type Record struct {
	// ID is opaque and immutable. New records get a ULID; legacy ones carry millisecond timestamps.
	ID string `json:"id"`

	Title string `json:"title"`

	// Dose is free text, rendered as markdown on the detail page.
	Dose string `json:"dose,omitempty"`

	// StartDateTime is the first (reference) dose moment.
	StartDateTime time.Time `json:"startDateTime"`

	// TotalDays and RepeatIntervalHours are informational only.
	TotalDays           *int     `json:"totalDays,omitempty"`
	RepeatIntervalHours *float64 `json:"repeatIntervalHours,omitempty"`

	RepeatType RepeatType `json:"repeatType,omitempty"`

	Color  string `json:"color,omitempty"`
	IconID string `json:"iconId,omitempty"`

	// Status is empty until the first evaluation; empty reads as pending.
	Status Status `json:"status,omitempty"`

	// NotificationID is set while a reminder trigger is believed armed.
	NotificationID string `json:"notificationId,omitempty"`
}

// EffectiveStatus returns the status, treating absent as pending.
func (r *Record) EffectiveStatus() Status {
	if r.Status == "" {
		return StatusPending
	}
	return r.Status
}

// EffectiveRepeat returns the repeat type, treating absent as none.
func (r *Record) EffectiveRepeat() RepeatType {
	if r.RepeatType == "" {
		return RepeatNone
	}
	return r.RepeatType
}

// wireRecord accepts both the current field names and the ones written by
// the first mobile app release (startDate, days, interval, repeatInterval).
type wireRecord struct {
	ID                  flexString      `json:"id"`
	Title               string          `json:"title"`
	Dose                flexString      `json:"dose"`
	StartDateTime       string          `json:"startDateTime"`
	StartDate           string          `json:"startDate"`
	TotalDays           json.RawMessage `json:"totalDays"`
	Days                json.RawMessage `json:"days"`
	RepeatIntervalHours json.RawMessage `json:"repeatIntervalHours"`
	Interval            json.RawMessage `json:"interval"`
	RepeatType          string          `json:"repeatType"`
	RepeatInterval      string          `json:"repeatInterval"`
	Color               string          `json:"color"`
	IconID              flexString      `json:"iconId"`
	Status              string          `json:"status"`
	NotificationID      string          `json:"notificationId"`
}

// UnmarshalJSON decodes a record, accepting legacy field names and loosely typed numbers.
func (r *Record) UnmarshalJSON(data []byte) error {
	var w wireRecord
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	start := w.StartDateTime
	if start == "" {
		start = w.StartDate
	}
	var startAt time.Time
	if start != "" {
		t, err := time.Parse(time.RFC3339Nano, start)
		if err != nil {
			return fmt.Errorf("startDateTime: %w", err)
		}
		startAt = t
	}

	totalDays, err := looseInt(firstRaw(w.TotalDays, w.Days))
	if err != nil {
		return fmt.Errorf("totalDays: %w", err)
	}
	interval, err := looseFloat(firstRaw(w.RepeatIntervalHours, w.Interval))
	if err != nil {
		return fmt.Errorf("repeatIntervalHours: %w", err)
	}

	repeatRaw := w.RepeatType
	if repeatRaw == "" {
		repeatRaw = w.RepeatInterval
	}
	var repeat RepeatType
	if repeatRaw != "" {
		if repeat, err = ParseRepeatType(repeatRaw); err != nil {
			return err
		}
	}

	status := Status(w.Status)
	if status != "" && !status.Valid() {
		return fmt.Errorf("unknown status %q", w.Status)
	}

	*r = Record{
		ID:                  string(w.ID),
		Title:               w.Title,
		Dose:                string(w.Dose),
		StartDateTime:       startAt,
		TotalDays:           totalDays,
		RepeatIntervalHours: interval,
		RepeatType:          repeat,
		Color:               w.Color,
		IconID:              string(w.IconID),
		Status:              status,
		NotificationID:      w.NotificationID,
	}
	return nil
}

// flexString decodes a JSON string or number into a string.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

func firstRaw(a, b json.RawMessage) json.RawMessage {
	if len(bytes.TrimSpace(a)) > 0 && !bytes.Equal(bytes.TrimSpace(a), []byte("null")) {
		return a
	}
	return b
}

// looseNumber returns the textual number held by raw, which may be a JSON
// number or a numeric string. Empty and null yield "".
func looseNumber(raw json.RawMessage) (string, error) {
	var f flexString
	if len(raw) == 0 {
		return "", nil
	}
	if err := f.UnmarshalJSON(raw); err != nil {
		return "", err
	}
	return strings.TrimSpace(string(f)), nil
}

func looseInt(raw json.RawMessage) (*int, error) {
	s, err := looseNumber(raw)
	if err != nil || s == "" {
		return nil, err
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return nil, err
		}
		n = int(f)
	}
	return &n, nil
}

func looseFloat(raw json.RawMessage) (*float64, error) {
	s, err := looseNumber(raw)
	if err != nil || s == "" {
		return nil, err
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}
