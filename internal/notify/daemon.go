package notify

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/hpungsan/dose/internal/db"
	"github.com/hpungsan/dose/internal/metrics"
)

// DaemonConfig configures a Daemon. Zero values get defaults.
type DaemonConfig struct {
	// SyncEvery is how often the triggers table is re-read. Default 30s.
	SyncEvery time.Duration

	// LateGrace is how overdue a one-shot may be and still fire. Default 5m.
	LateGrace time.Duration

	Location *time.Location
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
}

// Daemon mirrors the triggers table into a cron runner and delivers
// firings to a Sink.
type Daemon struct {
	db      *sql.DB
	sink    Sink
	cron    *cron.Cron
	cfg     DaemonConfig
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	mu      sync.Mutex
	entries map[string]cron.EntryID
	ctx     context.Context
}

// NewDaemon returns a stopped daemon.
func NewDaemon(database *sql.DB, sink Sink, cfg DaemonConfig) *Daemon {
	if cfg.SyncEvery <= 0 {
		cfg.SyncEvery = 30 * time.Second
	}
	if cfg.LateGrace <= 0 {
		cfg.LateGrace = 5 * time.Minute
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	cl := cronLogger{logger.Sugar()}
	return &Daemon{
		db:   database,
		sink: sink,
		cron: cron.New(
			cron.WithLocation(cfg.Location),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl)),
		),
		cfg:     cfg,
		logger:  logger,
		metrics: cfg.Metrics,
		now:     time.Now,
		entries: make(map[string]cron.EntryID),
		ctx:     context.Background(),
	}
}

// Sync adds cron entries for new triggers and removes entries whose
// trigger row is gone. Expired one-shots are deleted from the table.
func (d *Daemon) Sync(ctx context.Context) error {
	rows, err := db.ListTriggers(ctx, d.db)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now().In(d.cfg.Location)
	seen := make(map[string]bool, len(rows))
	for _, row := range rows {
		seen[row.ID] = true
		if _, ok := d.entries[row.ID]; ok {
			continue
		}

		sched, err := scheduleFor(row, now, d.cfg.LateGrace)
		if err != nil {
			d.logger.Warn("skipping malformed trigger", zap.String("trigger_id", row.ID), zap.Error(err))
			continue
		}
		if sched == nil {
			d.logger.Info("dropping expired reminder",
				zap.String("trigger_id", row.ID),
				zap.String("record_id", row.RecordID),
			)
			if _, err := db.DeleteTrigger(ctx, d.db, row.ID); err != nil {
				d.logger.Warn("failed to delete expired trigger", zap.String("trigger_id", row.ID), zap.Error(err))
			}
			continue
		}

		r := row
		d.entries[row.ID] = d.cron.Schedule(sched, cron.FuncJob(func() { d.fire(r) }))
	}

	for id, entryID := range d.entries {
		if !seen[id] {
			d.cron.Remove(entryID)
			delete(d.entries, id)
		}
	}
	return nil
}

// fire delivers one firing and retires one-shot triggers.
func (d *Daemon) fire(row db.TriggerRow) {
	d.mu.Lock()
	ctx := d.ctx
	d.mu.Unlock()

	rem := Reminder{
		TriggerID: row.ID,
		RecordID:  row.RecordID,
		Content:   row.Content,
		FiredAt:   d.now().In(d.cfg.Location),
	}
	if err := d.sink.Deliver(ctx, rem); err != nil {
		d.logger.Error("reminder delivery failed", zap.String("trigger_id", row.ID), zap.Error(err))
	} else {
		d.metrics.ReminderDelivered()
	}

	if row.Trigger.Repeats {
		return
	}
	if _, err := db.DeleteTrigger(ctx, d.db, row.ID); err != nil {
		d.logger.Warn("failed to retire fired trigger", zap.String("trigger_id", row.ID), zap.Error(err))
	}
	d.mu.Lock()
	if entryID, ok := d.entries[row.ID]; ok {
		d.cron.Remove(entryID)
		delete(d.entries, row.ID)
	}
	d.mu.Unlock()
}

// Entries returns how many triggers are currently scheduled.
func (d *Daemon) Entries() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}

// Run syncs, starts the cron runner and resyncs until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	d.mu.Lock()
	d.ctx = ctx
	d.mu.Unlock()

	if err := d.Sync(ctx); err != nil {
		return err
	}
	d.cron.Start()
	d.logger.Info("reminder daemon started",
		zap.Int("triggers", d.Entries()),
		zap.Duration("sync_every", d.cfg.SyncEvery),
	)

	ticker := time.NewTicker(d.cfg.SyncEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			<-d.cron.Stop().Done()
			d.logger.Info("reminder daemon stopped")
			return nil
		case <-ticker.C:
			if err := d.Sync(ctx); err != nil {
				d.logger.Error("trigger sync failed", zap.Error(err))
			}
		}
	}
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
