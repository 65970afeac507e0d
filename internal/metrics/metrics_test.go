package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	m := New()

	m.Refreshed()
	m.Refreshed()
	m.StorageFailed("save")
	m.TriggerArmed("daily")
	m.TriggerArmed("date")
	m.TriggerArmed("daily")
	m.TriggerCancelled()
	m.SchedulingFailed()
	m.DoseMarked("taken")
	m.ReminderDelivered()

	if got := testutil.ToFloat64(m.refreshes); got != 2 {
		t.Errorf("refreshes = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.storageFailures.WithLabelValues("save")); got != 1 {
		t.Errorf("storage_failures{op=save} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.triggersArmed.WithLabelValues("daily")); got != 2 {
		t.Errorf("triggers_armed{kind=daily} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.dosesMarked.WithLabelValues("taken")); got != 1 {
		t.Errorf("doses_marked{status=taken} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.remindersDelivered); got != 1 {
		t.Errorf("reminders_delivered = %v, want 1", got)
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics

	// None of these may panic.
	m.Refreshed()
	m.StorageFailed("load")
	m.TriggerArmed("date")
	m.TriggerCancelled()
	m.SchedulingFailed()
	m.DoseMarked("missed")
	m.ReminderDelivered()

	if m.Registry() != nil {
		t.Error("Registry() on nil should be nil")
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.TriggerArmed("timeInterval")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `dose_triggers_armed_total{kind="timeInterval"} 1`) {
		t.Errorf("metrics output missing armed counter:\n%s", body)
	}
}
