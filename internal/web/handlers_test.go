package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/hpungsan/dose/internal/config"
	"github.com/hpungsan/dose/internal/metrics"
	"github.com/hpungsan/dose/internal/notify"
	"github.com/hpungsan/dose/internal/ops"
	"github.com/hpungsan/dose/internal/store"
)

var now = time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC)

type testServer struct {
	handler http.Handler
	engine  *ops.Engine
}

func setupTest(t *testing.T) *testServer {
	t.Helper()
	logger := zaptest.NewLogger(t)
	m := metrics.New()
	engine := ops.NewEngine(ops.EngineConfig{
		Store:      store.NewMemory(),
		Scheduler:  notify.NewScheduler(notify.NewMemoryNotifier(), notify.SchedulerConfig{Location: time.UTC, Logger: logger, Metrics: m}),
		Config:     config.DefaultConfig(),
		Logger:     logger,
		Metrics:    m,
		ExportsDir: t.TempDir(),
		Location:   time.UTC,
		Clock:      func() time.Time { return now },
	})
	srv := NewServer(engine, ServerConfig{Version: "test", Bind: "127.0.0.1", Port: 0, Metrics: m, Logger: logger})
	return &testServer{handler: srv.Handler, engine: engine}
}

func (ts *testServer) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

// seedMedication adds a medication and returns its ID.
func (ts *testServer) seedMedication(t *testing.T, title, dose string, start time.Time) string {
	t.Helper()
	out, err := ts.engine.AddRecord(context.Background(), ops.AddRecordInput{Title: title, Dose: dose, StartDateTime: start})
	if err != nil {
		t.Fatalf("seed %q: %v", title, err)
	}
	return out.ID
}

func formRequest(method, target string, form url.Values) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return out
}

// --- /today ---

func TestToday_Default(t *testing.T) {
	ts := setupTest(t)
	ts.seedMedication(t, "Aspirin", "", now.Add(time.Hour))

	rec := ts.do(t, httptest.NewRequest("GET", "/today", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<!DOCTYPE html>") {
		t.Error("expected full layout")
	}
	if !strings.Contains(body, "Aspirin") || !strings.Contains(body, "1 h 0 min") {
		t.Errorf("expected item and time label in body:\n%s", body)
	}
}

func TestToday_Empty(t *testing.T) {
	ts := setupTest(t)

	rec := ts.do(t, httptest.NewRequest("GET", "/today", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "No medications scheduled for today") {
		t.Error("expected empty state message")
	}
}

func TestToday_JSON(t *testing.T) {
	ts := setupTest(t)
	ts.seedMedication(t, "Aspirin", "", now.Add(-time.Hour))

	req := httptest.NewRequest("GET", "/today", nil)
	req.Header.Set("Accept", "application/json")
	rec := ts.do(t, req)

	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	out := decodeJSON(t, rec)
	if out["date"] != "2026-03-11" {
		t.Errorf("date = %v", out["date"])
	}
	items := out["items"].([]any)
	if len(items) != 1 || items[0].(map[string]any)["status"] != "missed" {
		t.Errorf("items = %v", items)
	}
}

func TestToday_HtmxReturnsContentOnly(t *testing.T) {
	ts := setupTest(t)

	req := httptest.NewRequest("GET", "/today", nil)
	req.Header.Set("HX-Request", "true")
	rec := ts.do(t, req)

	body := rec.Body.String()
	if strings.Contains(body, "<!DOCTYPE html>") {
		t.Error("htmx response should not include the layout")
	}
	if !strings.Contains(body, "Add medication") {
		t.Error("expected content block")
	}
}

func TestToday_BadNow(t *testing.T) {
	ts := setupTest(t)

	req := httptest.NewRequest("GET", "/today?now=yesterday", nil)
	req.Header.Set("Accept", "application/json")
	rec := ts.do(t, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	errObj := decodeJSON(t, rec)["error"].(map[string]any)
	if errObj["code"] != "INVALID_REQUEST" {
		t.Errorf("code = %v", errObj["code"])
	}
}

// --- /medications ---

func TestCreate_RedirectsToToday(t *testing.T) {
	ts := setupTest(t)

	rec := ts.do(t, formRequest("POST", "/medications", url.Values{
		"title":           {"Vitamin D"},
		"start_date_time": {"2026-03-11T20:00:00Z"},
		"repeat_type":     {"daily"},
		"total_days":      {"30"},
	}))
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/today" {
		t.Errorf("Location = %q", loc)
	}

	list, err := ts.engine.List(context.Background(), ops.ListInput{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list.Items) != 1 {
		t.Fatalf("items = %d, want 1", len(list.Items))
	}
	got := list.Items[0].Record
	if got.Title != "Vitamin D" || got.TotalDays == nil || *got.TotalDays != 30 {
		t.Errorf("record = %+v", got)
	}
}

func TestCreate_JSON(t *testing.T) {
	ts := setupTest(t)

	req := formRequest("POST", "/medications", url.Values{"title": {"A"}, "start_date_time": {"2026-03-11T10:00:00Z"}})
	req.Header.Set("Accept", "application/json")
	rec := ts.do(t, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
	if id, _ := decodeJSON(t, rec)["id"].(string); id == "" {
		t.Error("expected id")
	}
}

func TestCreate_Invalid(t *testing.T) {
	tests := []struct {
		name string
		form url.Values
	}{
		{"missing title", url.Values{"start_date_time": {"2026-03-11T10:00:00Z"}}},
		{"bad days", url.Values{"title": {"A"}, "start_date_time": {"2026-03-11T10:00:00Z"}, "total_days": {"many"}}},
		{"bad start", url.Values{"title": {"A"}, "start_date_time": {"noon"}}},
		{"bad repeat", url.Values{"title": {"A"}, "start_date_time": {"2026-03-11T10:00:00Z"}, "repeat_type": {"weekly"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := setupTest(t)
			req := formRequest("POST", "/medications", tt.form)
			req.Header.Set("HX-Request", "true")
			rec := ts.do(t, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), `class="error-message"`) {
				t.Errorf("expected htmx error fragment, got %q", rec.Body.String())
			}
		})
	}
}

func TestList(t *testing.T) {
	ts := setupTest(t)
	ts.seedMedication(t, "alpha", "", now.Add(time.Hour))
	ts.seedMedication(t, "beta", "", now.Add(48*time.Hour))

	rec := ts.do(t, httptest.NewRequest("GET", "/medications", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "alpha") || !strings.Contains(body, "beta") {
		t.Error("expected every medication, not just today's")
	}

	req := httptest.NewRequest("GET", "/medications?limit=1", nil)
	req.Header.Set("Accept", "application/json")
	out := decodeJSON(t, ts.do(t, req))
	if pag := out["pagination"].(map[string]any); pag["has_more"] != true {
		t.Errorf("pagination = %v", pag)
	}
}

func TestDetail_RendersDoseMarkdown(t *testing.T) {
	ts := setupTest(t)
	id := ts.seedMedication(t, "Ibuprofen", "**two** tablets <script>alert(1)</script>", now.Add(time.Hour))

	rec := ts.do(t, httptest.NewRequest("GET", "/medications/"+id, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<strong>two</strong>") {
		t.Error("expected markdown to be rendered")
	}
	if strings.Contains(body, "<script>alert(1)</script>") {
		t.Error("raw HTML in dose must not be rendered")
	}
}

func TestDetail_NotFound(t *testing.T) {
	ts := setupTest(t)

	rec := ts.do(t, httptest.NewRequest("GET", "/medications/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Error 404") {
		t.Error("expected error page")
	}
}

func TestUpdate(t *testing.T) {
	ts := setupTest(t)
	id := ts.seedMedication(t, "Aspirin", "", now.Add(time.Hour))

	rec := ts.do(t, formRequest("POST", "/medications/"+id, url.Values{"title": {"Aspirin Cardio"}}))
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/medications/"+id {
		t.Errorf("Location = %q", loc)
	}

	item, err := ts.engine.Get(context.Background(), ops.GetInput{ID: id})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if item.Record.Title != "Aspirin Cardio" {
		t.Errorf("title = %q", item.Record.Title)
	}
	if item.Record.StartDateTime.IsZero() {
		t.Error("fields not in the form must be left alone")
	}
}

func TestUpdate_UnknownID(t *testing.T) {
	ts := setupTest(t)

	req := formRequest("POST", "/medications/ghost", url.Values{"title": {"x"}})
	req.Header.Set("Accept", "application/json")
	rec := ts.do(t, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestMark_HtmxSwapsItems(t *testing.T) {
	ts := setupTest(t)
	id := ts.seedMedication(t, "Aspirin", "", now.Add(-time.Hour))

	req := formRequest("POST", "/medications/"+id+"/status", url.Values{"status": {"taken"}})
	req.Header.Set("HX-Request", "true")
	rec := ts.do(t, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if strings.Contains(body, "Add medication") {
		t.Error("expected only the day-items fragment")
	}
	if !strings.Contains(body, "status-taken") {
		t.Errorf("expected taken item, got:\n%s", body)
	}
}

func TestMark_InvalidStatus(t *testing.T) {
	ts := setupTest(t)
	id := ts.seedMedication(t, "Aspirin", "", now.Add(time.Hour))

	req := formRequest("POST", "/medications/"+id+"/status", url.Values{"status": {"pending"}})
	req.Header.Set("Accept", "application/json")
	rec := ts.do(t, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestDelete(t *testing.T) {
	ts := setupTest(t)
	id := ts.seedMedication(t, "Aspirin", "", now.Add(time.Hour))

	req := httptest.NewRequest("DELETE", "/medications/"+id, nil)
	req.Header.Set("HX-Request", "true")
	rec := ts.do(t, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("HX-Redirect"); got != "/today" {
		t.Errorf("HX-Redirect = %q", got)
	}

	req = httptest.NewRequest("DELETE", "/medications/"+id, nil)
	req.Header.Set("Accept", "application/json")
	out := decodeJSON(t, ts.do(t, req))
	if out["found"] != false {
		t.Errorf("second delete found = %v, want false", out["found"])
	}
}

// --- /history ---

func TestHistory(t *testing.T) {
	ts := setupTest(t)
	ts.seedMedication(t, "Monday pill", "", time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC))

	rec := ts.do(t, httptest.NewRequest("GET", "/history?week_of=2026-03-11", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"Week of 2026-03-08", "Monday pill", "week_of=2026-03-01", "week_of=2026-03-15"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in body", want)
		}
	}
}

func TestHistory_BadWeek(t *testing.T) {
	ts := setupTest(t)

	rec := ts.do(t, httptest.NewRequest("GET", "/history?week_of=03/11/2026", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

// --- misc ---

func TestRootRedirects(t *testing.T) {
	ts := setupTest(t)

	rec := ts.do(t, httptest.NewRequest("GET", "/", nil))
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/today" {
		t.Errorf("got %d %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := setupTest(t)
	ts.do(t, httptest.NewRequest("GET", "/today", nil))

	rec := ts.do(t, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "dose_refreshes_total 1") {
		t.Errorf("expected refresh counter, got:\n%s", rec.Body.String())
	}
}

func TestSecurityHeaders(t *testing.T) {
	ts := setupTest(t)

	rec := ts.do(t, httptest.NewRequest("GET", "/today", nil))
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("missing X-Frame-Options")
	}
	if !strings.Contains(rec.Header().Get("Content-Security-Policy"), "default-src 'self'") {
		t.Error("missing CSP")
	}
}

func TestStaticCSS(t *testing.T) {
	ts := setupTest(t)

	rec := ts.do(t, httptest.NewRequest("GET", "/static/style.css", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
