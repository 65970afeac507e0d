package mcp

import "github.com/mark3labs/mcp-go/mcp"

const timeFormatHint = "RFC 3339 timestamp, e.g. 2026-03-11T08:30:00+03:00"

var todayToolDef = mcp.NewTool("medication_today",
	mcp.WithDescription("Refresh and return today's medications with status (pending, taken, missed) and time-until-dose labels. Arms any missing reminders."),
	mcp.WithString("now", mcp.Description("Evaluate as of this instant instead of the current time. "+timeFormatHint)),
)

var markToolDef = mcp.NewTool("medication_mark",
	mcp.WithDescription("Mark a medication dose as taken or missed. Unknown ids are ignored (found=false)."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Medication id")),
	mcp.WithString("status", mcp.Required(), mcp.Enum("taken", "missed"), mcp.Description("New status")),
	mcp.WithString("now", mcp.Description("Evaluate as of this instant. "+timeFormatHint)),
)

var addToolDef = mcp.NewTool("medication_add",
	mcp.WithDescription("Add a medication and arm its reminder."),
	mcp.WithString("title", mcp.Required(), mcp.Description("Medication name")),
	mcp.WithString("dose", mcp.Description("Free-text dose, markdown allowed")),
	mcp.WithString("start_date_time", mcp.Required(), mcp.Description("First dose. "+timeFormatHint)),
	mcp.WithNumber("total_days", mcp.Description("Course length in days (informational)")),
	mcp.WithNumber("repeat_interval_hours", mcp.Description("Hours between doses (informational)")),
	mcp.WithString("repeat_type", mcp.Enum("none", "daily", "hourly"), mcp.Description("Reminder repetition (default none)")),
	mcp.WithString("color", mcp.Description("Hex color, #rgb or #rrggbb")),
	mcp.WithString("icon_id", mcp.Description("Icon id 1-5")),
)

var updateToolDef = mcp.NewTool("medication_update",
	mcp.WithDescription("Edit a medication. Only provided fields change. Changing start time, repeat type or title re-arms the reminder."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Medication id")),
	mcp.WithString("title", mcp.Description("Medication name")),
	mcp.WithString("dose", mcp.Description("Free-text dose")),
	mcp.WithString("start_date_time", mcp.Description(timeFormatHint)),
	mcp.WithNumber("total_days", mcp.Description("Course length in days")),
	mcp.WithNumber("repeat_interval_hours", mcp.Description("Hours between doses")),
	mcp.WithString("repeat_type", mcp.Enum("none", "daily", "hourly")),
	mcp.WithString("color", mcp.Description("Hex color")),
	mcp.WithString("icon_id", mcp.Description("Icon id 1-5")),
)

var deleteToolDef = mcp.NewTool("medication_delete",
	mcp.WithDescription("Permanently delete a medication and cancel its reminder."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Medication id")),
)

var listToolDef = mcp.NewTool("medication_list",
	mcp.WithDescription("List all medications in stored order with their current evaluation."),
	mcp.WithNumber("limit", mcp.Description("Page size (default 20, max 100)")),
	mcp.WithNumber("offset", mcp.Description("Items to skip")),
)

var getToolDef = mcp.NewTool("medication_get",
	mcp.WithDescription("Fetch one medication with its current evaluation."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Medication id")),
)

var historyToolDef = mcp.NewTool("medication_history",
	mcp.WithDescription("Show one Sunday-to-Saturday week of medications grouped by day."),
	mcp.WithString("week_of", mcp.Description("Any day in the wanted week, YYYY-MM-DD (default: this week)")),
)

var exportToolDef = mcp.NewTool("medication_export",
	mcp.WithDescription("Export all medications to a JSONL file."),
	mcp.WithString("path", mcp.Description("Output .jsonl path (default: exports directory)")),
)

var importToolDef = mcp.NewTool("medication_import",
	mcp.WithDescription("Import medications from a JSONL export or a JSON array."),
	mcp.WithString("path", mcp.Required(), mcp.Description("Input .jsonl or .json path")),
	mcp.WithString("mode", mcp.Enum("error", "replace"), mcp.Description("Collision handling (default error)")),
)
