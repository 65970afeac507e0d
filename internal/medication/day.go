package medication

import "time"

// SameDay reports whether t falls on ref's calendar date, judged in ref's location.
func SameDay(t, ref time.Time) bool {
	t = t.In(ref.Location())
	ty, tm, td := t.Date()
	ry, rm, rd := ref.Date()
	return ty == ry && tm == rm && td == rd
}

// StartOfDay returns local midnight of t's date.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// WeekBounds returns the Sunday midnight that starts t's week and the
// following Sunday midnight (exclusive end).
func WeekBounds(t time.Time) (start, end time.Time) {
	day := StartOfDay(t)
	start = day.AddDate(0, 0, -int(day.Weekday()))
	end = start.AddDate(0, 0, 7)
	return start, end
}

// OnDay returns the indexes of records whose start falls on ref's calendar date, in stored order.
func OnDay(records []Record, ref time.Time) []int {
	var idx []int
	for i := range records {
		if SameDay(records[i].StartDateTime, ref) {
			idx = append(idx, i)
		}
	}
	return idx
}
