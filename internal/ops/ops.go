package ops

import (
	"context"
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/hpungsan/dose/internal/config"
	"github.com/hpungsan/dose/internal/medication"
	"github.com/hpungsan/dose/internal/metrics"
	"github.com/hpungsan/dose/internal/notify"
	"github.com/hpungsan/dose/internal/store"
)

// Pagination limits
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// EngineConfig wires an Engine. Store and Scheduler are required.
type EngineConfig struct {
	Store     store.Adapter
	Scheduler *notify.Scheduler
	Config    *config.Config
	Logger    *zap.Logger
	Metrics   *metrics.Metrics

	// ExportsDir is the default directory for exports and the first allowed import/export dir.
	ExportsDir string

	// Clock supplies "now" when an input leaves it zero. Default: time.Now.
	Clock func() time.Time

	// Location decides which calendar day "today" is. Default: time.Local.
	Location *time.Location
}

// Engine owns the medication collection, its derived day view and the
// reminder triggers armed for it. Operations run synchronously on the
// caller's goroutine; only the last-good snapshot is shared.
type Engine struct {
	store      store.Adapter
	scheduler  *notify.Scheduler
	cfg        *config.Config
	locale     medication.Locale
	logger     *zap.Logger
	metrics    *metrics.Metrics
	exportsDir string
	location   *time.Location

	clock func() time.Time
	newID func() string

	mu       sync.RWMutex
	snapshot *DayView
}

// NewEngine returns an Engine.
func NewEngine(ec EngineConfig) *Engine {
	cfg := ec.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	logger := ec.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := ec.Clock
	if clock == nil {
		clock = time.Now
	}
	loc := ec.Location
	if loc == nil {
		loc = time.Local
	}
	return &Engine{
		store:      ec.Store,
		scheduler:  ec.Scheduler,
		cfg:        cfg,
		locale:     medication.LookupLocale(cfg.Locale),
		logger:     logger,
		metrics:    ec.Metrics,
		exportsDir: ec.ExportsDir,
		location:   loc,
		clock:      clock,
		newID:      newULID,
	}
}

// Config returns the engine's configuration.
func (e *Engine) Config() *config.Config { return e.cfg }

// Snapshot returns the last successfully computed day view, or nil.
func (e *Engine) Snapshot() *DayView {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshot
}

func (e *Engine) setSnapshot(v *DayView) {
	e.mu.Lock()
	e.snapshot = v
	e.mu.Unlock()
}

// resolveNow returns now, or the engine clock when now is zero, in the
// engine's location. Day filtering reads the calendar date off the result,
// so a caller-supplied offset must not pick the day.
func (e *Engine) resolveNow(now time.Time) time.Time {
	if now.IsZero() {
		now = e.clock()
	}
	return now.In(e.location)
}

// Location returns the location the engine reads calendar days in.
func (e *Engine) Location() *time.Location { return e.location }

func (e *Engine) collectionKey() string {
	return e.cfg.CollectionKey
}

// load reads the collection, logging and counting failures.
func (e *Engine) load(ctx context.Context) (*store.Collection, error) {
	col, err := store.Load(ctx, e.store, e.collectionKey())
	if err != nil {
		e.metrics.StorageFailed("load")
		e.logger.Error("failed to load medications", zap.String("key", e.collectionKey()), zap.Error(err))
		return nil, err
	}
	return col, nil
}

// save writes the whole collection, logging and counting failures.
func (e *Engine) save(ctx context.Context, col *store.Collection) error {
	if err := store.Save(ctx, e.store, e.collectionKey(), col); err != nil {
		e.metrics.StorageFailed("save")
		e.logger.Error("failed to save medications", zap.String("key", e.collectionKey()), zap.Error(err))
		return err
	}
	return nil
}

// cancel releases a trigger, logging failures. The caller clears the id either way.
func (e *Engine) cancel(ctx context.Context, recordID, notificationID string) {
	if err := e.scheduler.Cancel(ctx, notificationID); err != nil {
		e.logger.Warn("failed to cancel reminder",
			zap.String("record_id", recordID),
			zap.String("notification_id", notificationID),
			zap.Error(err),
		)
	}
}

// newULID generates a new ULID string.
func newULID() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
