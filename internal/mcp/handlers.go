package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/dose/internal/errors"
	"github.com/hpungsan/dose/internal/medication"
	"github.com/hpungsan/dose/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	engine *ops.Engine
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(engine *ops.Engine) *Handlers {
	return &Handlers{engine: engine}
}

// Request types for each tool

// TodayRequest represents the arguments for today.
type TodayRequest struct {
	Now string `json:"now,omitempty"`
}

// MarkRequest represents the arguments for mark.
type MarkRequest struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Now    string `json:"now,omitempty"`
}

// AddRequest represents the arguments for add.
type AddRequest struct {
	Title               string   `json:"title"`
	Dose                string   `json:"dose,omitempty"`
	StartDateTime       string   `json:"start_date_time"`
	TotalDays           *int     `json:"total_days,omitempty"`
	RepeatIntervalHours *float64 `json:"repeat_interval_hours,omitempty"`
	RepeatType          string   `json:"repeat_type,omitempty"`
	Color               string   `json:"color,omitempty"`
	IconID              string   `json:"icon_id,omitempty"`
}

// UpdateRequest represents the arguments for update.
type UpdateRequest struct {
	ID                  string   `json:"id"`
	Title               *string  `json:"title,omitempty"`
	Dose                *string  `json:"dose,omitempty"`
	StartDateTime       *string  `json:"start_date_time,omitempty"`
	TotalDays           *int     `json:"total_days,omitempty"`
	RepeatIntervalHours *float64 `json:"repeat_interval_hours,omitempty"`
	RepeatType          *string  `json:"repeat_type,omitempty"`
	Color               *string  `json:"color,omitempty"`
	IconID              *string  `json:"icon_id,omitempty"`
}

// IDRequest represents the arguments for tools addressed by id alone.
type IDRequest struct {
	ID string `json:"id"`
}

// ListRequest represents the arguments for list.
type ListRequest struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// HistoryRequest represents the arguments for history.
type HistoryRequest struct {
	WeekOf string `json:"week_of,omitempty"`
}

// ExportRequest represents the arguments for export.
type ExportRequest struct {
	Path string `json:"path,omitempty"`
}

// ImportRequest represents the arguments for import.
type ImportRequest struct {
	Path string `json:"path"`
	Mode string `json:"mode,omitempty"`
}

// Handler implementations

// HandleToday handles the today tool call.
func (h *Handlers) HandleToday(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[TodayRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	now, err := parseOptionalTime("now", input.Now)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := h.engine.Refresh(ctx, ops.RefreshInput{Now: now})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleMark handles the mark tool call.
func (h *Handlers) HandleMark(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[MarkRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	now, err := parseOptionalTime("now", input.Now)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := h.engine.MarkStatus(ctx, ops.MarkStatusInput{
		ID:     input.ID,
		Status: medication.Status(input.Status),
		Now:    now,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleAdd handles the add tool call.
func (h *Handlers) HandleAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[AddRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	start, err := parseOptionalTime("start_date_time", input.StartDateTime)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := h.engine.AddRecord(ctx, ops.AddRecordInput{
		Title:               input.Title,
		Dose:                input.Dose,
		StartDateTime:       start,
		TotalDays:           input.TotalDays,
		RepeatIntervalHours: input.RepeatIntervalHours,
		RepeatType:          input.RepeatType,
		Color:               input.Color,
		IconID:              input.IconID,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleUpdate handles the update tool call.
func (h *Handlers) HandleUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[UpdateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	patch := ops.RecordPatch{
		Title:               input.Title,
		Dose:                input.Dose,
		TotalDays:           input.TotalDays,
		RepeatIntervalHours: input.RepeatIntervalHours,
		RepeatType:          input.RepeatType,
		Color:               input.Color,
		IconID:              input.IconID,
	}
	if input.StartDateTime != nil {
		start, err := parseOptionalTime("start_date_time", *input.StartDateTime)
		if err != nil {
			return errorResult(err), nil
		}
		patch.StartDateTime = &start
	}

	result, err := h.engine.UpdateRecord(ctx, ops.UpdateRecordInput{ID: input.ID, Patch: patch})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleDelete handles the delete tool call.
func (h *Handlers) HandleDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.engine.DeleteRecord(ctx, ops.DeleteRecordInput{ID: input.ID})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleList handles the list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.engine.List(ctx, ops.ListInput{Limit: input.Limit, Offset: input.Offset})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleGet handles the get tool call.
func (h *Handlers) HandleGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.engine.Get(ctx, ops.GetInput{ID: input.ID})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleHistory handles the history tool call.
func (h *Handlers) HandleHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[HistoryRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	var weekOf time.Time
	if input.WeekOf != "" {
		weekOf, err = time.ParseInLocation(ops.DateLayout, input.WeekOf, time.Local)
		if err != nil {
			return errorResult(errors.NewInvalidRequest("week_of must be YYYY-MM-DD")), nil
		}
	}

	result, err := h.engine.History(ctx, ops.HistoryInput{WeekOf: weekOf})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleExport handles the export tool call.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.engine.Export(ctx, ops.ExportInput{Path: input.Path})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleImport handles the import tool call.
func (h *Handlers) HandleImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ImportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.engine.Import(ctx, ops.ImportInput{Path: input.Path, Mode: ops.ImportMode(input.Mode)})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// parseOptionalTime parses an RFC 3339 argument. Empty yields the zero time.
func parseOptionalTime(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, errors.NewInvalidRequest(fmt.Sprintf("%s must be an RFC 3339 timestamp", field))
	}
	return t, nil
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are not exposed.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if doseErr, ok := errors.As(err); ok {
		msg := doseErr.Message
		if error(doseErr) != err {
			msg = err.Error() // keep wrapper context
		}
		errorObj := map[string]any{
			"code":    doseErr.Code,
			"message": msg,
			"status":  doseErr.Status,
		}
		// Details of INTERNAL errors may carry paths or SQL.
		if doseErr.Code != errors.ErrInternal && doseErr.Details != nil {
			errorObj["details"] = doseErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
