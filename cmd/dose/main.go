package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/hpungsan/dose/internal/config"
	"github.com/hpungsan/dose/internal/db"
	"github.com/hpungsan/dose/internal/logging"
	"github.com/hpungsan/dose/internal/mcp"
	"github.com/hpungsan/dose/internal/medication"
	"github.com/hpungsan/dose/internal/metrics"
	"github.com/hpungsan/dose/internal/notify"
	"github.com/hpungsan/dose/internal/ops"
	"github.com/hpungsan/dose/internal/store"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"today": true, "add": true, "edit": true, "mark": true,
	"delete": true, "list": true, "show": true, "history": true,
	"export": true, "import": true, "daemon": true, "serve": true,
	"help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
	if cliCommands[arg] {
		return true
	}
	if arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" {
		return true
	}
	return false
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
   ___   ___  ___  ___
  |   \ / _ \/ __|| __|
  | |) | (_) \__ \| _|
  |___/ \___/|___/|___|

  Medication reminders

  Usage: dose <command> [options]
         dose --help

  MCP server mode requires piped input.`)
}

// resolveBaseDir returns $DOSE_HOME, or ~/.dose.
func resolveBaseDir() (string, error) {
	if dir := os.Getenv("DOSE_HOME"); dir != "" {
		return dir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".dose"), nil
}

// newEngine wires the SQLite collection store and trigger table behind an Engine.
func newEngine(database *sql.DB, cfg *config.Config, logger *zap.Logger, m *metrics.Metrics, baseDir string) *ops.Engine {
	sched := notify.NewScheduler(notify.NewSQLNotifier(database), notify.SchedulerConfig{
		Locale:   medication.LookupLocale(cfg.Locale),
		Location: time.Local,
		Logger:   logger,
		Metrics:  m,
	})
	return ops.NewEngine(ops.EngineConfig{
		Store:      store.NewSQLite(database),
		Scheduler:  sched,
		Config:     cfg,
		Logger:     logger,
		Metrics:    m,
		ExportsDir: filepath.Join(baseDir, "exports"),
		Location:   time.Local,
	})
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before DB init (no DB needed)
	if isHelpOrVersion() {
		if err := newCLIApp(nil).Run(os.Args); err != nil {
			fatal("%v", err)
		}
		return
	}

	baseDir, err := resolveBaseDir()
	if err != nil {
		fatal("%v", err)
	}

	database, err := db.Init(baseDir)
	if err != nil {
		fatal("failed to initialize database: %v", err)
	}
	defer database.Close()

	cfg, err := config.Load(baseDir)
	if err != nil {
		fatal("failed to load config: %v", err)
	}
	db.ConfigurePool(database, cfg)

	m := metrics.New()

	if isCLIMode() {
		logger := logging.New(cfg.LogLevel, os.Stderr)
		defer func() { _ = logger.Sync() }()

		app := newCLIApp(&deps{
			db:      database,
			engine:  newEngine(database, cfg, logger, m, baseDir),
			cfg:     cfg,
			logger:  logger,
			metrics: m,
		})
		if err := app.Run(os.Args); err != nil {
			fatal("%v", err)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'dose --help' for usage.\n")
		os.Exit(1)
	}

	// MCP server mode: stdout carries the protocol, so logs go to a file.
	logger, closeLog, err := logging.NewFile(cfg.LogLevel, baseDir)
	if err != nil {
		fatal("failed to open log file: %v", err)
	}
	defer func() { _ = closeLog() }()

	if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		logger.Warn("unknown tools in disabled_tools", zap.Strings("names", unknown))
	}
	if unknown := mcp.ValidateDisabledTypes(cfg.DisabledTypes); len(unknown) > 0 {
		logger.Warn("unknown types in disabled_types", zap.Strings("names", unknown))
	}

	if err := mcp.Run(newEngine(database, cfg, logger, m, baseDir), cfg, Version); err != nil {
		logger.Error("mcp server stopped", zap.Error(err))
		fatal("%v", err)
	}
}
