package db

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/hpungsan/dose/internal/trigger"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCollection_GetMissing(t *testing.T) {
	db := openTestDB(t)

	value, found, err := GetCollection(context.Background(), db, "medicines")
	if err != nil {
		t.Fatalf("GetCollection failed: %v", err)
	}
	if found || value != "" {
		t.Errorf("GetCollection = (%q, %v), want (\"\", false)", value, found)
	}
}

func TestCollection_PutAndReplace(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := PutCollection(ctx, db, "medicines", `[{"id":"1"}]`, 100); err != nil {
		t.Fatalf("PutCollection failed: %v", err)
	}
	if err := PutCollection(ctx, db, "medicines", `[{"id":"2"}]`, 200); err != nil {
		t.Fatalf("second PutCollection failed: %v", err)
	}

	value, found, err := GetCollection(ctx, db, "medicines")
	if err != nil {
		t.Fatalf("GetCollection failed: %v", err)
	}
	if !found || value != `[{"id":"2"}]` {
		t.Errorf("GetCollection = (%q, %v), want the replaced blob", value, found)
	}

	var count int
	var updatedAt int64
	if err := db.QueryRow("SELECT COUNT(*), MAX(updated_at) FROM collections").Scan(&count, &updatedAt); err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if count != 1 || updatedAt != 200 {
		t.Errorf("rows = %d updated_at = %d, want 1 and 200", count, updatedAt)
	}

	// Other keys are independent
	if _, found, _ := GetCollection(ctx, db, "other"); found {
		t.Error("GetCollection(other) found = true, want false")
	}
}

func TestTriggers_InsertListDelete(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	at := time.Date(2026, 3, 11, 8, 30, 0, 0, time.UTC)
	h, m := 8, 30
	rows := []*TriggerRow{
		{
			ID:        "t-1",
			RecordID:  "r-1",
			Trigger:   trigger.Trigger{Kind: trigger.KindDate, Date: &at},
			Content:   trigger.Content{Title: "title", Body: "Time to take: A"},
			CreatedAt: 10,
		},
		{
			ID:        "t-2",
			RecordID:  "r-2",
			Trigger:   trigger.Trigger{Kind: trigger.KindDaily, Hour: &h, Minute: &m, Repeats: true},
			Content:   trigger.Content{Title: "title", Body: "Time to take: B"},
			CreatedAt: 20,
		},
	}
	for _, r := range rows {
		if err := InsertTrigger(ctx, db, r); err != nil {
			t.Fatalf("InsertTrigger(%s) failed: %v", r.ID, err)
		}
	}

	// Duplicate id
	if err := InsertTrigger(ctx, db, rows[0]); err != ErrUniqueConstraint {
		t.Errorf("duplicate InsertTrigger error = %v, want ErrUniqueConstraint", err)
	}

	list, err := ListTriggers(ctx, db)
	if err != nil {
		t.Fatalf("ListTriggers failed: %v", err)
	}
	if len(list) != 2 || list[0].ID != "t-1" || list[1].ID != "t-2" {
		t.Fatalf("ListTriggers = %+v, want t-1, t-2", list)
	}
	if list[0].Trigger.Date == nil || !list[0].Trigger.Date.Equal(at) {
		t.Errorf("date trigger round-trip = %+v", list[0].Trigger)
	}
	if list[1].Trigger.Hour == nil || *list[1].Trigger.Hour != 8 || !list[1].Trigger.Repeats {
		t.Errorf("daily trigger round-trip = %+v", list[1].Trigger)
	}
	if list[1].Content.Body != "Time to take: B" {
		t.Errorf("Content.Body = %q", list[1].Content.Body)
	}

	got, err := GetTrigger(ctx, db, "t-2")
	if err != nil || got == nil || got.RecordID != "r-2" {
		t.Errorf("GetTrigger(t-2) = %+v, %v", got, err)
	}

	removed, err := DeleteTrigger(ctx, db, "t-1")
	if err != nil || !removed {
		t.Errorf("DeleteTrigger(t-1) = %v, %v; want true, nil", removed, err)
	}
	removed, err = DeleteTrigger(ctx, db, "t-1")
	if err != nil || removed {
		t.Errorf("second DeleteTrigger(t-1) = %v, %v; want false, nil", removed, err)
	}

	missing, err := GetTrigger(ctx, db, "t-1")
	if err != nil || missing != nil {
		t.Errorf("GetTrigger(deleted) = %+v, %v; want nil, nil", missing, err)
	}
}

func TestListTriggers_Empty(t *testing.T) {
	db := openTestDB(t)

	list, err := ListTriggers(context.Background(), db)
	if err != nil {
		t.Fatalf("ListTriggers failed: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("ListTriggers = %d rows, want 0", len(list))
	}
}
