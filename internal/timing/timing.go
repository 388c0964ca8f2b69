// Package timing records coarse wall-clock checkpoints around device work.
//
// Checkpoints are advisory: they never influence results. A StatefulTimer
// attributes the time elapsed since the previous checkpoint to the label
// of the current one, so bracketing an operation with "op start" and
// "op end" accumulates the operation's duration under "op end".
package timing

import (
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/born-ml/poolprop/internal/logging"
)

// Timer receives named checkpoints.
type Timer interface {
	Checkpoint(label string)
}

// Nop discards checkpoints.
type Nop struct{}

// Checkpoint implements Timer.
func (Nop) Checkpoint(string) {}

// Entry is the accumulated time for one label.
type Entry struct {
	Label   string        `json:"label"`
	Count   int           `json:"count"`
	Total   time.Duration `json:"total_ns"`
	Average time.Duration `json:"average_ns"`
}

// Report is a snapshot of a StatefulTimer.
type Report struct {
	Session string  `json:"session"`
	Entries []Entry `json:"entries"`
}

// JSON encodes the report.
func (r Report) JSON() ([]byte, error) {
	return json.Marshal(r)
}

// StatefulTimer accumulates elapsed time per checkpoint label.
// It is safe for concurrent use.
type StatefulTimer struct {
	mu      sync.Mutex
	session uuid.UUID
	now     func() time.Time
	last    time.Time
	totals  map[string]time.Duration
	counts  map[string]int
	order   []string
}

// NewStatefulTimer creates a timer whose clock starts now.
func NewStatefulTimer() *StatefulTimer {
	return newStatefulTimer(time.Now)
}

func newStatefulTimer(now func() time.Time) *StatefulTimer {
	return &StatefulTimer{
		session: uuid.New(),
		now:     now,
		last:    now(),
		totals:  make(map[string]time.Duration),
		counts:  make(map[string]int),
	}
}

// Session returns the identifier attached to reports from this timer.
func (t *StatefulTimer) Session() string {
	return t.session.String()
}

// Checkpoint implements Timer.
func (t *StatefulTimer) Checkpoint(label string) {
	t.mu.Lock()
	now := t.now()
	elapsed := now.Sub(t.last)
	t.last = now
	if _, seen := t.counts[label]; !seen {
		t.order = append(t.order, label)
	}
	t.totals[label] += elapsed
	t.counts[label]++
	t.mu.Unlock()

	logging.Logger().Debug("timing checkpoint", "session", t.session, "label", label, "elapsed", elapsed)
}

// Report returns the accumulated entries in first-seen order.
func (t *StatefulTimer) Report() Report {
	t.mu.Lock()
	defer t.mu.Unlock()

	entries := make([]Entry, 0, len(t.order))
	for _, label := range t.order {
		count := t.counts[label]
		total := t.totals[label]
		entries = append(entries, Entry{
			Label:   label,
			Count:   count,
			Total:   total,
			Average: total / time.Duration(count),
		})
	}
	return Report{Session: t.session.String(), Entries: entries}
}

// Reset clears all entries and restarts the clock.
func (t *StatefulTimer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.last = t.now()
	t.totals = make(map[string]time.Duration)
	t.counts = make(map[string]int)
	t.order = nil
}
