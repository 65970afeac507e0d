package ops

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/hpungsan/dose/internal/config"
	"github.com/hpungsan/dose/internal/db"
	"github.com/hpungsan/dose/internal/medication"
	"github.com/hpungsan/dose/internal/notify"
	"github.com/hpungsan/dose/internal/store"
	"github.com/hpungsan/dose/internal/trigger"
)

// TestFullWorkflow runs the day lifecycle against SQLite:
// add → refresh → mark taken → edit → delete, checking the triggers table at each step.
func TestFullWorkflow(t *testing.T) {
	tmpDir := t.TempDir()
	database, err := db.Init(tmpDir)
	require.NoError(t, err)
	defer database.Close()

	ctx := context.Background()
	logger := zaptest.NewLogger(t)
	cfg := config.DefaultConfig()
	sched := notify.NewScheduler(notify.NewSQLNotifier(database), notify.SchedulerConfig{Location: time.UTC, Logger: logger})
	engine := NewEngine(EngineConfig{
		Store:      store.NewSQLite(database),
		Scheduler:  sched,
		Config:     cfg,
		Logger:     logger,
		ExportsDir: tmpDir,
		Location:   time.UTC,
	})

	// 1. One-shot in 90 minutes, hourly in 30, daily that was due an hour ago.
	once, err := engine.AddRecord(ctx, AddRecordInput{Title: "Once", StartDateTime: at(90 * time.Minute), Now: now})
	require.NoError(t, err)
	hourly, err := engine.AddRecord(ctx, AddRecordInput{Title: "Hourly", StartDateTime: at(30 * time.Minute), RepeatType: "hourly", Now: now})
	require.NoError(t, err)
	daily, err := engine.AddRecord(ctx, AddRecordInput{Title: "Daily", StartDateTime: at(-time.Hour), RepeatType: "daily", Now: now})
	require.NoError(t, err)

	view, err := engine.Refresh(ctx, RefreshInput{Now: now})
	require.NoError(t, err)
	require.Len(t, view.Items, 3)

	labels := map[string]string{}
	statuses := map[string]medication.Status{}
	for _, it := range view.Items {
		labels[it.Record.ID] = it.TimeLabel
		statuses[it.Record.ID] = it.Status
	}
	assert.Equal(t, "1 h 30 min", labels[once.ID])
	assert.Equal(t, "30 min", labels[hourly.ID])
	assert.Equal(t, medication.StatusMissed, statuses[daily.ID])

	// Every record is armed: the past daily still recurs.
	rows, err := db.ListTriggers(ctx, database)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	kinds := map[string]trigger.Kind{}
	for _, r := range rows {
		kinds[r.RecordID] = r.Trigger.Kind
	}
	assert.Equal(t, trigger.KindDate, kinds[once.ID])
	assert.Equal(t, trigger.KindTimeInterval, kinds[hourly.ID])
	assert.Equal(t, trigger.KindDaily, kinds[daily.ID])

	// 2. Refresh is idempotent: no new triggers.
	_, err = engine.Refresh(ctx, RefreshInput{Now: at(time.Minute)})
	require.NoError(t, err)
	rows, err = db.ListTriggers(ctx, database)
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	// 3. Time passes; the one-shot is missed, then corrected to taken.
	later := at(2 * time.Hour)
	view, err = engine.Refresh(ctx, RefreshInput{Now: later})
	require.NoError(t, err)
	item := findItem(t, view, once.ID)
	assert.Equal(t, medication.StatusMissed, item.Status)
	require.NotEmpty(t, item.Record.NotificationID)
	onceHandle := item.Record.NotificationID

	mark, err := engine.MarkStatus(ctx, MarkStatusInput{ID: once.ID, Status: medication.StatusTaken, Now: later})
	require.NoError(t, err)
	require.True(t, mark.Found)
	item = findItem(t, mark.View, once.ID)
	assert.Equal(t, medication.StatusTaken, item.Status)
	assert.Empty(t, item.Record.NotificationID)

	gone, err := db.GetTrigger(ctx, database, onceHandle)
	require.NoError(t, err)
	assert.Nil(t, gone, "one-shot trigger cancelled when taken")

	// Taken sticks on every later refresh.
	view, err = engine.Refresh(ctx, RefreshInput{Now: at(10 * time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, medication.StatusTaken, findItem(t, view, once.ID).Status)

	// 4. Marking the daily taken keeps its trigger.
	dailyHandle := findItem(t, view, daily.ID).Record.NotificationID
	_, err = engine.MarkStatus(ctx, MarkStatusInput{ID: daily.ID, Status: medication.StatusTaken, Now: later})
	require.NoError(t, err)
	kept, err := db.GetTrigger(ctx, database, dailyHandle)
	require.NoError(t, err)
	assert.NotNil(t, kept)

	// 5. Renaming the hourly record re-arms it with the new body.
	_, err = engine.UpdateRecord(ctx, UpdateRecordInput{ID: hourly.ID, Patch: RecordPatch{Title: stringPtr("Syrup")}, Now: later})
	require.NoError(t, err)
	got, err := engine.Get(ctx, GetInput{ID: hourly.ID, Now: later})
	require.NoError(t, err)
	row, err := db.GetTrigger(ctx, database, got.Record.NotificationID)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, "Time to take: Syrup", row.Content.Body)

	// 6. Delete everything; the triggers table empties.
	for _, id := range []string{once.ID, hourly.ID, daily.ID} {
		out, err := engine.DeleteRecord(ctx, DeleteRecordInput{ID: id, Now: later})
		require.NoError(t, err)
		require.True(t, out.Found)
	}
	rows, err = db.ListTriggers(ctx, database)
	require.NoError(t, err)
	assert.Empty(t, rows)

	list, err := engine.List(ctx, ListInput{})
	require.NoError(t, err)
	assert.Equal(t, 0, list.Pagination.Total)
}

func findItem(t *testing.T, view *DayView, id string) DayItem {
	t.Helper()
	for _, it := range view.Items {
		if it.Record.ID == id {
			return it
		}
	}
	t.Fatalf("item %s not in view %s", id, view.Date)
	return DayItem{}
}
