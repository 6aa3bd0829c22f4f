package tasks

import (
	"sync"

	"github.com/ymgch/anisync/internal/models"
)

// Tracker holds the shared progress state of an import run for polling
// clients. One tracker serves one engine; HTTP handlers read snapshots
// while the run mutates counters from its own goroutine.
type Tracker struct {
	mu    sync.RWMutex
	state models.ProgressState
}

// NewTracker creates a tracker in the pending state.
func NewTracker() *Tracker {
	return &Tracker{state: models.ProgressState{Status: models.JobPending}}
}

// Reset returns the tracker to the pending state with zeroed counters.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = models.ProgressState{Status: models.JobPending}
}

// Start marks the run as in progress with the given total.
func (t *Tracker) Start(total int, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = models.ProgressState{
		Total:   total,
		Status:  models.JobRunning,
		Message: message,
	}
}

// SetTotal updates the expected item count once the library size is known.
func (t *Tracker) SetTotal(total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Total = total
}

// SetMessage replaces the human-readable status line.
func (t *Tracker) SetMessage(message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Message = message
}

// Advance increments the processed counter, and the skipped counter when
// the item was already imported.
func (t *Tracker) Advance(skipped bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Processed++
	if skipped {
		t.state.Skipped++
	}
}

// Complete marks the run as finished.
func (t *Tracker) Complete(message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Status = models.JobCompleted
	t.state.Message = message
}

// Fail marks the run as failed with the error's message.
func (t *Tracker) Fail(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Status = models.JobError
	if err != nil {
		t.state.Message = err.Error()
	}
}

// Running reports whether a run is currently in progress.
func (t *Tracker) Running() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state.Status == models.JobRunning
}

// Snapshot returns a copy of the current state.
func (t *Tracker) Snapshot() models.ProgressState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}
