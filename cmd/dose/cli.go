package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/hpungsan/dose/internal/config"
	"github.com/hpungsan/dose/internal/errors"
	"github.com/hpungsan/dose/internal/medication"
	"github.com/hpungsan/dose/internal/metrics"
	"github.com/hpungsan/dose/internal/notify"
	"github.com/hpungsan/dose/internal/ops"
	"github.com/hpungsan/dose/internal/web"
)

// maxStdinBytes caps piped dose text.
const maxStdinBytes = 64 * 1024

// cliTimeLayout is the short local form accepted for --start and --now.
const cliTimeLayout = "2006-01-02 15:04"

// deps carries what the subcommands run against. It is nil for --help and --version.
type deps struct {
	db      *sql.DB
	engine  *ops.Engine
	cfg     *config.Config
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// newCLIApp creates the CLI application with all commands.
func newCLIApp(d *deps) *cli.App {
	app := &cli.App{
		Name:    "dose",
		Usage:   "Medication reminders",
		Version: Version,
		Commands: []*cli.Command{
			todayCmd(d),
			addCmd(d),
			editCmd(d),
			markCmd(d),
			deleteCmd(d),
			listCmd(d),
			showCmd(d),
			historyCmd(d),
			exportCmd(d),
			importCmd(d),
			daemonCmd(d),
			serveCmd(d),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// todayCmd creates the today command.
func todayCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "today",
		Usage: "Refresh and show today's medications",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "now", Usage: "Evaluate as of this time (RFC 3339 or \"YYYY-MM-DD HH:MM\")"},
		},
		Action: func(c *cli.Context) error {
			now, err := parseTime("now", c.String("now"))
			if err != nil {
				return outputError(err)
			}

			output, err := d.engine.Refresh(c.Context, ops.RefreshInput{Now: now})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// addCmd creates the add command.
func addCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "add",
		Usage: "Add a medication (dose text may be piped via stdin)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Required: true, Usage: "Medication name"},
			&cli.StringFlag{Name: "start", Aliases: []string{"s"}, Required: true, Usage: "First dose (RFC 3339 or \"YYYY-MM-DD HH:MM\")"},
			&cli.StringFlag{Name: "dose", Aliases: []string{"d"}, Usage: "Dose text (overrides stdin)"},
			&cli.StringFlag{Name: "repeat", Aliases: []string{"r"}, Value: "none", Usage: "Repeat: none|daily|hourly"},
			&cli.IntFlag{Name: "days", Usage: "Course length in days"},
			&cli.Float64Flag{Name: "interval", Usage: "Hours between doses"},
			&cli.StringFlag{Name: "color", Usage: "Hex color, e.g. #ff6600"},
			&cli.StringFlag{Name: "icon", Usage: "Icon id 1-5"},
		},
		Action: func(c *cli.Context) error {
			start, err := parseTime("start", c.String("start"))
			if err != nil {
				return outputError(err)
			}

			input := ops.AddRecordInput{
				Title:         c.String("title"),
				StartDateTime: start,
				RepeatType:    c.String("repeat"),
				Color:         c.String("color"),
				IconID:        c.String("icon"),
			}
			if c.IsSet("days") {
				days := c.Int("days")
				input.TotalDays = &days
			}
			if c.IsSet("interval") {
				hours := c.Float64("interval")
				input.RepeatIntervalHours = &hours
			}

			if c.IsSet("dose") {
				input.Dose = c.String("dose")
			} else if stdinHasData() {
				text, err := readStdin()
				if err != nil {
					return outputError(err)
				}
				input.Dose = text
			}

			output, err := d.engine.AddRecord(c.Context, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// editCmd creates the edit command. Only flags that are set change the record.
func editCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:      "edit",
		Usage:     "Edit a medication",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "New name"},
			&cli.StringFlag{Name: "start", Aliases: []string{"s"}, Usage: "New first dose time"},
			&cli.StringFlag{Name: "dose", Aliases: []string{"d"}, Usage: "New dose text"},
			&cli.StringFlag{Name: "repeat", Aliases: []string{"r"}, Usage: "Repeat: none|daily|hourly"},
			&cli.IntFlag{Name: "days", Usage: "Course length in days"},
			&cli.Float64Flag{Name: "interval", Usage: "Hours between doses"},
			&cli.StringFlag{Name: "color", Usage: "Hex color"},
			&cli.StringFlag{Name: "icon", Usage: "Icon id 1-5"},
		},
		Action: func(c *cli.Context) error {
			id, err := requireID(c)
			if err != nil {
				return outputError(err)
			}

			var patch ops.RecordPatch
			patch.Title = stringFlag(c, "title")
			patch.Dose = stringFlag(c, "dose")
			patch.RepeatType = stringFlag(c, "repeat")
			patch.Color = stringFlag(c, "color")
			patch.IconID = stringFlag(c, "icon")
			if c.IsSet("start") {
				start, err := parseTime("start", c.String("start"))
				if err != nil {
					return outputError(err)
				}
				patch.StartDateTime = &start
			}
			if c.IsSet("days") {
				days := c.Int("days")
				patch.TotalDays = &days
			}
			if c.IsSet("interval") {
				hours := c.Float64("interval")
				patch.RepeatIntervalHours = &hours
			}

			output, err := d.engine.UpdateRecord(c.Context, ops.UpdateRecordInput{ID: id, Patch: patch})
			if err != nil {
				return outputError(err)
			}
			if !output.Found {
				return outputError(errors.NewNotFound(id))
			}
			return outputJSON(output)
		},
	}
}

// markCmd creates the mark command.
func markCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:      "mark",
		Usage:     "Mark a dose taken or missed",
		ArgsUsage: "<id> <taken|missed>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return outputError(errors.NewInvalidRequest("usage: dose mark <id> <taken|missed>"))
			}

			output, err := d.engine.MarkStatus(c.Context, ops.MarkStatusInput{
				ID:     c.Args().Get(0),
				Status: medication.Status(strings.ToLower(c.Args().Get(1))),
			})
			if err != nil {
				return outputError(err)
			}
			if !output.Found {
				return outputError(errors.NewNotFound(c.Args().Get(0)))
			}
			return outputJSON(output)
		},
	}
}

// deleteCmd creates the delete command.
func deleteCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete a medication and cancel its reminder",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			id, err := requireID(c)
			if err != nil {
				return outputError(err)
			}

			output, err := d.engine.DeleteRecord(c.Context, ops.DeleteRecordInput{ID: id})
			if err != nil {
				return outputError(err)
			}
			if !output.Found {
				return outputError(errors.NewNotFound(id))
			}
			return outputJSON(output)
		},
	}
}

// listCmd creates the list command.
func listCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List all medications",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Maximum items to return"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Items to skip"},
		},
		Action: func(c *cli.Context) error {
			output, err := d.engine.List(c.Context, ops.ListInput{
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// showCmd creates the show command.
func showCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show one medication",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			id, err := requireID(c)
			if err != nil {
				return outputError(err)
			}

			output, err := d.engine.Get(c.Context, ops.GetInput{ID: id})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// historyCmd creates the history command.
func historyCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show a Sunday-to-Saturday week of medications",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "week", Aliases: []string{"w"}, Usage: "Any day in the week, YYYY-MM-DD (default: this week)"},
		},
		Action: func(c *cli.Context) error {
			var weekOf time.Time
			if s := c.String("week"); s != "" {
				var err error
				weekOf, err = time.ParseInLocation(ops.DateLayout, s, time.Local)
				if err != nil {
					return outputError(errors.NewInvalidRequest("week must be YYYY-MM-DD"))
				}
			}

			output, err := d.engine.History(c.Context, ops.HistoryInput{WeekOf: weekOf})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// exportCmd creates the export command.
func exportCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export medications to a JSONL file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Export file path (default: ~/.dose/exports/<collection>-<timestamp>.jsonl)"},
		},
		Action: func(c *cli.Context) error {
			output, err := d.engine.Export(c.Context, ops.ExportInput{Path: c.String("path")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// importCmd creates the import command.
func importCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import medications from a JSONL export or a JSON array",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Required: true, Usage: "Import file path"},
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: "error", Usage: "Collision mode: error|replace"},
		},
		Action: func(c *cli.Context) error {
			output, err := d.engine.Import(c.Context, ops.ImportInput{
				Path: c.String("path"),
				Mode: ops.ImportMode(c.String("mode")),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// daemonCmd creates the daemon command.
func daemonCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "daemon",
		Usage: "Deliver armed reminders until interrupted",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "sink", Value: "stdout", Usage: "Where reminders go: stdout|log"},
			&cli.DurationFlag{Name: "sync", Usage: "Trigger re-read interval (default: daemon_sync_seconds)"},
		},
		Action: func(c *cli.Context) error {
			var sink notify.Sink
			switch c.String("sink") {
			case "stdout":
				sink = &notify.WriterSink{W: os.Stdout}
			case "log":
				sink = notify.LogSink{Logger: d.logger}
			default:
				return outputError(errors.NewInvalidRequest("sink must be stdout or log"))
			}

			syncEvery := time.Duration(d.cfg.DaemonSyncSeconds) * time.Second
			if c.IsSet("sync") {
				syncEvery = c.Duration("sync")
			}

			ctx, stop := signalContext(c.Context)
			defer stop()

			daemon := notify.NewDaemon(d.db, sink, notify.DaemonConfig{
				SyncEvery: syncEvery,
				Location:  time.Local,
				Logger:    d.logger,
				Metrics:   d.metrics,
			})
			if err := daemon.Run(ctx); err != nil {
				return outputError(errors.NewStorageRead("triggers", err))
			}
			return nil
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the web day view",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Address to bind"},
			&cli.IntFlag{Name: "port", Value: 8484, Usage: "Port to listen on"},
		},
		Action: func(c *cli.Context) error {
			srv := web.NewServer(d.engine, web.ServerConfig{
				Version: Version,
				Bind:    c.String("bind"),
				Port:    c.Int("port"),
				Metrics: d.metrics,
				Logger:  d.logger,
			})

			ctx, stop := signalContext(c.Context)
			defer stop()

			if err := web.Run(ctx, srv, d.logger); err != nil {
				return cli.Exit(err.Error(), 1)
			}
			return nil
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if doseErr, ok := errors.As(err); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", doseErr.Code, doseErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

func requireID(c *cli.Context) (string, error) {
	if c.NArg() < 1 || strings.TrimSpace(c.Args().First()) == "" {
		return "", errors.NewInvalidRequest("medication id is required")
	}
	return c.Args().First(), nil
}

// stringFlag returns a pointer to the flag value if it was set.
func stringFlag(c *cli.Context, name string) *string {
	if !c.IsSet(name) {
		return nil
	}
	v := c.String(name)
	return &v
}

// parseTime accepts RFC 3339 or "YYYY-MM-DD HH:MM" in local time. Empty yields the zero time.
func parseTime(field, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(cliTimeLayout, s, time.Local); err == nil {
		return t, nil
	}
	return time.Time{}, errors.NewInvalidRequest(fmt.Sprintf("%s must be RFC 3339 or \"YYYY-MM-DD HH:MM\"", field))
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads at most maxStdinBytes from stdin.
func readStdin() (string, error) {
	return readStdinWithLimit(os.Stdin, maxStdinBytes)
}

func readStdinWithLimit(r io.Reader, limit int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return "", errors.NewInternal(err)
	}
	if int64(len(data)) > limit {
		return "", errors.NewInvalidRequest(fmt.Sprintf("stdin exceeds %d bytes", limit))
	}
	return strings.TrimSpace(string(data)), nil
}
