package notify

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hpungsan/dose/internal/trigger"
)

// Reminder is one delivered firing.
type Reminder struct {
	TriggerID string          `json:"trigger_id"`
	RecordID  string          `json:"record_id"`
	Content   trigger.Content `json:"content"`
	FiredAt   time.Time       `json:"fired_at"`
}

// Sink receives reminders from the daemon.
type Sink interface {
	Deliver(ctx context.Context, r Reminder) error
}

// LogSink writes reminders to the logger at info level.
type LogSink struct {
	Logger *zap.Logger
}

// Deliver implements Sink.
func (s LogSink) Deliver(_ context.Context, r Reminder) error {
	s.Logger.Info(r.Content.Title,
		zap.String("body", r.Content.Body),
		zap.String("record_id", r.RecordID),
		zap.String("trigger_id", r.TriggerID),
	)
	return nil
}

// WriterSink prints one line per reminder.
type WriterSink struct {
	mu sync.Mutex
	W  io.Writer
}

// Deliver implements Sink.
func (s *WriterSink) Deliver(_ context.Context, r Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintf(s.W, "%s  %s  %s\n", r.FiredAt.Format("15:04"), r.Content.Title, r.Content.Body)
	return err
}
