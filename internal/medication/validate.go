package medication

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/hpungsan/dose/internal/errors"
)

// whitespaceRegex matches one or more whitespace characters
var whitespaceRegex = regexp.MustCompile(`\s+`)

// colorRegex accepts #rgb, #rrggbb and #rrggbbaa.
var colorRegex = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)

// NormalizeTitle trims and collapses internal whitespace to single spaces.
// Case is kept; titles are display text.
func NormalizeTitle(s string) string {
	return whitespaceRegex.ReplaceAllString(strings.TrimSpace(s), " ")
}

// CountChars returns the character count as runes (not bytes).
func CountChars(text string) int {
	return utf8.RuneCountInString(text)
}

// ValidateInput contains parameters for validating a record.
type ValidateInput struct {
	Record        Record
	TitleMaxChars int
}

// ValidationResult lists every problem found in a record.
type ValidationResult struct {
	Valid    bool
	Problems []string
}

// Err returns an INVALID_REQUEST error joining all problems, or nil.
func (r *ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	return errors.NewInvalidRequest(strings.Join(r.Problems, "; "))
}

// Validate checks a record's user-editable fields.
func Validate(input ValidateInput) *ValidationResult {
	rec := input.Record
	result := &ValidationResult{Valid: true}
	fail := func(format string, args ...any) {
		result.Valid = false
		result.Problems = append(result.Problems, fmt.Sprintf(format, args...))
	}

	title := NormalizeTitle(rec.Title)
	if title == "" {
		fail("title is required")
	} else if input.TitleMaxChars > 0 && CountChars(title) > input.TitleMaxChars {
		fail("title exceeds %d characters", input.TitleMaxChars)
	}

	if rec.StartDateTime.IsZero() {
		fail("startDateTime is required")
	}

	switch rec.RepeatType {
	case "", RepeatNone, RepeatDaily, RepeatHourly:
	default:
		fail("repeatType must be one of none, daily, hourly")
	}

	if rec.TotalDays != nil && *rec.TotalDays < 0 {
		fail("totalDays must not be negative")
	}
	if rec.RepeatIntervalHours != nil && *rec.RepeatIntervalHours <= 0 {
		fail("repeatIntervalHours must be positive")
	}

	if rec.Color != "" && !colorRegex.MatchString(rec.Color) {
		fail("color must look like #rgb, #rrggbb or #rrggbbaa")
	}

	if rec.Status != "" && !rec.Status.Valid() {
		fail("status must be one of pending, taken, missed")
	}

	return result
}
