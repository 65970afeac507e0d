package medication

import (
	"strings"
	"testing"
	"time"

	"github.com/hpungsan/dose/internal/errors"
)

func validRecord() Record {
	return Record{
		Title:         "Aspirin",
		StartDateTime: time.Date(2026, 3, 11, 8, 0, 0, 0, time.UTC),
		RepeatType:    RepeatDaily,
		Color:         "#a1b2c3",
	}
}

func TestValidate(t *testing.T) {
	neg := -1
	zero := 0.0

	tests := []struct {
		name    string
		mutate  func(*Record)
		wantOK  bool
		problem string
	}{
		{"valid", func(r *Record) {}, true, ""},
		{"blank title", func(r *Record) { r.Title = "   " }, false, "title is required"},
		{"long title", func(r *Record) { r.Title = strings.Repeat("я", 11) }, false, "title exceeds 10 characters"},
		{"title at limit", func(r *Record) { r.Title = strings.Repeat("я", 10) }, true, ""},
		{"missing start", func(r *Record) { r.StartDateTime = time.Time{} }, false, "startDateTime is required"},
		{"bad repeat", func(r *Record) { r.RepeatType = "weekly" }, false, "repeatType"},
		{"negative days", func(r *Record) { r.TotalDays = &neg }, false, "totalDays"},
		{"zero interval", func(r *Record) { r.RepeatIntervalHours = &zero }, false, "repeatIntervalHours"},
		{"short color", func(r *Record) { r.Color = "#abc" }, true, ""},
		{"alpha color", func(r *Record) { r.Color = "#aabbccdd" }, true, ""},
		{"bad color", func(r *Record) { r.Color = "red" }, false, "color"},
		{"bad status", func(r *Record) { r.Status = "later" }, false, "status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := validRecord()
			tt.mutate(&rec)
			got := Validate(ValidateInput{Record: rec, TitleMaxChars: 10})
			if got.Valid != tt.wantOK {
				t.Fatalf("Valid = %v, want %v (problems: %v)", got.Valid, tt.wantOK, got.Problems)
			}
			if tt.problem != "" && !strings.Contains(strings.Join(got.Problems, "; "), tt.problem) {
				t.Errorf("Problems = %v, want one containing %q", got.Problems, tt.problem)
			}
		})
	}
}

func TestValidationResult_Err(t *testing.T) {
	rec := validRecord()
	rec.Title = ""
	rec.Color = "blue"

	err := Validate(ValidateInput{Record: rec}).Err()
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Fatalf("Err() = %v, want INVALID_REQUEST", err)
	}
	if !strings.Contains(err.Error(), "title is required; color") {
		t.Errorf("Err() = %q, want both problems joined", err.Error())
	}

	if err := Validate(ValidateInput{Record: validRecord()}).Err(); err != nil {
		t.Errorf("Err() on valid record = %v, want nil", err)
	}
}

func TestNormalizeTitle(t *testing.T) {
	if got := NormalizeTitle("  Vitamin \t  D\n"); got != "Vitamin D" {
		t.Errorf("NormalizeTitle() = %q, want %q", got, "Vitamin D")
	}
}

func TestIconName(t *testing.T) {
	if got := IconName("2"); got != "bandage-outline" {
		t.Errorf("IconName(2) = %q", got)
	}
	if got := IconName("99"); got != "help-circle-outline" {
		t.Errorf("IconName(99) = %q", got)
	}
}
