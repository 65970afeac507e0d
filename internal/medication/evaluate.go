package medication

import (
	"fmt"
	"time"
)

// Locale holds the wording used for evaluation labels and reminder content.
type Locale struct {
	Taken        string
	Missed       string
	Minutes      string // format with one %d
	HoursMinutes string // format with two %d
	NotifyTitle  string
	NotifyBody   string // format with one %s (the medication title)
}

var locales = map[string]Locale{
	"en": {
		Taken:        "Taken",
		Missed:       "Missed",
		Minutes:      "%d min",
		HoursMinutes: "%d h %d min",
		NotifyTitle:  "💊 Time to take your medication",
		NotifyBody:   "Time to take: %s",
	},
	"ru": {
		Taken:        "Принято",
		Missed:       "Пропущено",
		Minutes:      "%d мин",
		HoursMinutes: "%d ч %d мин",
		NotifyTitle:  "💊 Время принять лекарство",
		NotifyBody:   "Пора принять: %s",
	},
}

// LookupLocale returns the named locale, falling back to English.
func LookupLocale(name string) Locale {
	if l, ok := locales[name]; ok {
		return l
	}
	return locales["en"]
}

// KnownLocale reports whether name is a supported locale.
func KnownLocale(name string) bool {
	_, ok := locales[name]
	return ok
}

// Evaluation is the derived status and display label for one record at one instant.
type Evaluation struct {
	Status    Status `json:"status"`
	TimeLabel string `json:"timeLabel"`
}

// Evaluate derives status and label using English wording.
func Evaluate(rec Record, now time.Time) Evaluation {
	return EvaluateLocale(rec, now, LookupLocale("en"))
}

// EvaluateLocale derives status and label for rec at now.
// Taken is sticky. A start at or before now is missed.
func EvaluateLocale(rec Record, now time.Time, loc Locale) Evaluation {
	if rec.Status == StatusTaken {
		return Evaluation{Status: StatusTaken, TimeLabel: loc.Taken}
	}
	if !rec.StartDateTime.After(now) {
		return Evaluation{Status: StatusMissed, TimeLabel: loc.Missed}
	}
	return Evaluation{Status: StatusPending, TimeLabel: CountdownLabel(rec.StartDateTime.Sub(now), loc)}
}

// CountdownLabel renders d as whole minutes, switching to hours and minutes at 60.
func CountdownLabel(d time.Duration, loc Locale) string {
	total := int(d / time.Minute)
	if total < 60 {
		return fmt.Sprintf(loc.Minutes, total)
	}
	return fmt.Sprintf(loc.HoursMinutes, total/60, total%60)
}
