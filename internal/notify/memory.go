package notify

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/hpungsan/dose/internal/trigger"
)

// Armed is one trigger held by a MemoryNotifier.
type Armed struct {
	ID      string
	Request trigger.Request
	seq     int
}

// MemoryNotifier keeps triggers in process. Used by tests and previews.
type MemoryNotifier struct {
	mu          sync.Mutex
	armed       map[string]Armed
	seq         int
	schedules   int
	cancels     int
	scheduleErr error
	cancelErr   error
}

// NewMemoryNotifier returns an empty notifier.
func NewMemoryNotifier() *MemoryNotifier {
	return &MemoryNotifier{armed: make(map[string]Armed)}
}

// Schedule implements Notifier.
func (m *MemoryNotifier) Schedule(_ context.Context, req trigger.Request) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schedules++
	if m.scheduleErr != nil {
		return "", m.scheduleErr
	}
	if err := req.Trigger.Validate(); err != nil {
		return "", err
	}
	m.seq++
	id := uuid.NewString()
	m.armed[id] = Armed{ID: id, Request: req, seq: m.seq}
	return id, nil
}

// Cancel implements Notifier.
func (m *MemoryNotifier) Cancel(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancels++
	if m.cancelErr != nil {
		return m.cancelErr
	}
	delete(m.armed, id)
	return nil
}

// FailWith makes subsequent Schedule and Cancel calls return the given errors.
func (m *MemoryNotifier) FailWith(scheduleErr, cancelErr error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scheduleErr = scheduleErr
	m.cancelErr = cancelErr
}

// Armed returns the currently armed triggers in scheduling order.
func (m *MemoryNotifier) Armed() []Armed {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Armed, 0, len(m.armed))
	for _, a := range m.armed {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

// IsArmed reports whether id is currently armed.
func (m *MemoryNotifier) IsArmed(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.armed[id]
	return ok
}

// Calls returns how many Schedule and Cancel calls were made.
func (m *MemoryNotifier) Calls() (schedules, cancels int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.schedules, m.cancels
}
