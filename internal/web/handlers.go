package web

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hpungsan/dose/internal/errors"
	"github.com/hpungsan/dose/internal/medication"
	"github.com/hpungsan/dose/internal/ops"
)

// localDateTime is the value format of an <input type="datetime-local">.
const localDateTime = "2006-01-02T15:04"

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	engine   *ops.Engine
	renderer *Renderer
}

// HandleToday handles GET /today.
func (h *Handlers) HandleToday(w http.ResponseWriter, r *http.Request) {
	now, err := parseTimeValue("now", r.URL.Query().Get("now"))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	view, err := h.engine.Refresh(r.Context(), ops.RefreshInput{Now: now})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.renderDay(w, r, http.StatusOK, view)
}

// HandleList handles GET /medications.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	result, err := h.engine.List(r.Context(), ops.ListInput{
		Limit:  parseIntParam(r, "limit", ops.DefaultListLimit),
		Offset: parseIntParam(r, "offset", 0),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}
	h.renderer.renderPage(w, r, "list", ListPageData{
		PageData:   h.renderer.page("Medications", "medications"),
		Items:      result.Items,
		Pagination: result.Pagination,
	})
}

// HandleCreate handles POST /medications.
func (h *Handlers) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	input := ops.AddRecordInput{
		Title:      r.PostFormValue("title"),
		Dose:       r.PostFormValue("dose"),
		RepeatType: r.PostFormValue("repeat_type"),
		Color:      r.PostFormValue("color"),
		IconID:     r.PostFormValue("icon_id"),
	}
	start, err := parseTimeValue("start_date_time", r.PostFormValue("start_date_time"))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	input.StartDateTime = start
	if input.TotalDays, err = formInt(r, "total_days"); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	if input.RepeatIntervalHours, err = formFloat(r, "repeat_interval_hours"); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	result, err := h.engine.AddRecord(r.Context(), input)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusCreated, result)
		return
	}
	h.redirect(w, r, "/today")
}

// HandleDetail handles GET /medications/{id}.
func (h *Handlers) HandleDetail(w http.ResponseWriter, r *http.Request) {
	item, err := h.engine.Get(r.Context(), ops.GetInput{ID: chi.URLParam(r, "id")})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, item)
		return
	}
	h.renderer.renderPage(w, r, "detail", DetailPageData{
		PageData: h.renderer.page(item.Record.Title, "medications"),
		Item:     item,
		DoseHTML: renderMarkdown(item.Record.Dose),
	})
}

// HandleUpdate handles POST /medications/{id}. Only submitted fields change.
func (h *Handlers) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	patch, err := formPatch(r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	id := chi.URLParam(r, "id")
	result, err := h.engine.UpdateRecord(r.Context(), ops.UpdateRecordInput{ID: id, Patch: patch})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	if !result.Found {
		h.renderer.renderError(w, r, errors.NewNotFound(id))
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}
	h.redirect(w, r, "/medications/"+id)
}

// HandleDelete handles DELETE /medications/{id}.
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	result, err := h.engine.DeleteRecord(r.Context(), ops.DeleteRecordInput{ID: chi.URLParam(r, "id")})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}
	h.redirect(w, r, "/today")
}

// HandleMark handles POST /medications/{id}/status.
// htmx callers get the refreshed item list back for an in-place swap.
func (h *Handlers) HandleMark(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	result, err := h.engine.MarkStatus(r.Context(), ops.MarkStatusInput{
		ID:     chi.URLParam(r, "id"),
		Status: medication.Status(r.PostFormValue("status")),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	switch {
	case wantsJSON(r):
		renderJSON(w, http.StatusOK, result)
	case isHTMX(r):
		h.renderer.renderBlock(w, http.StatusOK, "today", "day-items", DayPageData{
			PageData: h.renderer.page("Today", "today"),
			View:     result.View,
		})
	default:
		http.Redirect(w, r, "/today", http.StatusSeeOther)
	}
}

// HandleHistory handles GET /history.
func (h *Handlers) HandleHistory(w http.ResponseWriter, r *http.Request) {
	var weekOf time.Time
	if s := r.URL.Query().Get("week_of"); s != "" {
		var err error
		weekOf, err = time.ParseInLocation(ops.DateLayout, s, time.Local)
		if err != nil {
			h.renderer.renderError(w, r, errors.NewInvalidRequest("week_of must be YYYY-MM-DD"))
			return
		}
	}

	result, err := h.engine.History(r.Context(), ops.HistoryInput{WeekOf: weekOf})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	data := HistoryPageData{
		PageData: h.renderer.page("History", "history"),
		History:  result,
	}
	if start, err := time.ParseInLocation(ops.DateLayout, result.WeekStart, time.Local); err == nil {
		data.PrevWeek = start.AddDate(0, 0, -7).Format(ops.DateLayout)
		data.NextWeek = start.AddDate(0, 0, 7).Format(ops.DateLayout)
	}
	h.renderer.renderPage(w, r, "history", data)
}

func (h *Handlers) renderDay(w http.ResponseWriter, r *http.Request, status int, view *ops.DayView) {
	if wantsJSON(r) {
		renderJSON(w, status, view)
		return
	}
	h.renderer.renderPageStatus(w, r, status, "today", DayPageData{
		PageData: h.renderer.page("Today", "today"),
		View:     view,
	})
}

// redirect sends htmx callers an HX-Redirect and everyone else a 303.
func (h *Handlers) redirect(w http.ResponseWriter, r *http.Request, to string) {
	if isHTMX(r) {
		w.Header().Set("HX-Redirect", to)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, to, http.StatusSeeOther)
}

func formPatch(r *http.Request) (ops.RecordPatch, error) {
	var patch ops.RecordPatch
	for _, f := range []struct {
		name string
		dst  **string
	}{
		{"title", &patch.Title},
		{"dose", &patch.Dose},
		{"repeat_type", &patch.RepeatType},
		{"color", &patch.Color},
		{"icon_id", &patch.IconID},
	} {
		if _, ok := r.PostForm[f.name]; ok {
			v := r.PostFormValue(f.name)
			*f.dst = &v
		}
	}

	if _, ok := r.PostForm["start_date_time"]; ok {
		start, err := parseTimeValue("start_date_time", r.PostFormValue("start_date_time"))
		if err != nil {
			return patch, err
		}
		patch.StartDateTime = &start
	}

	var err error
	if patch.TotalDays, err = formInt(r, "total_days"); err != nil {
		return patch, err
	}
	if patch.RepeatIntervalHours, err = formFloat(r, "repeat_interval_hours"); err != nil {
		return patch, err
	}
	return patch, nil
}

// parseTimeValue accepts RFC 3339 or a datetime-local value in the server's zone.
// Empty yields the zero time.
func parseTimeValue(field, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(localDateTime, s, time.Local); err == nil {
		return t, nil
	}
	return time.Time{}, errors.NewInvalidRequest(field + " must be an RFC 3339 or YYYY-MM-DDTHH:MM timestamp")
}

// formInt parses an optional integer form field. Blank means unset.
func formInt(r *http.Request, name string) (*int, error) {
	s := strings.TrimSpace(r.PostFormValue(name))
	if s == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, errors.NewInvalidRequest(name + " must be an integer")
	}
	return &v, nil
}

func formFloat(r *http.Request, name string) (*float64, error) {
	s := strings.TrimSpace(r.PostFormValue(name))
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, errors.NewInvalidRequest(name + " must be a number")
	}
	return &v, nil
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}
