package ingest

import (
	"math"
	"sync"
	"time"
)

type Status string

const (
	StatusIdle        Status = "idle"
	StatusLoading     Status = "loading"
	StatusSplitting   Status = "splitting"
	StatusVectorizing Status = "vectorizing"
	StatusCompleted   Status = "completed"
	StatusError       Status = "error"
	// StatusTimeout is never stored in the tracker; progress streams emit
	// it when no run shows up before the watch window closes.
	StatusTimeout Status = "timeout"
)

// Snapshot is a point-in-time copy of a run's progress, safe to serialize
// while the run keeps moving.
type Snapshot struct {
	Status       Status  `json:"status"`
	Current      int     `json:"current"`
	Total        int     `json:"total"`
	BatchCurrent int     `json:"batch_current"`
	BatchTotal   int     `json:"batch_total"`
	Message      string  `json:"message"`
	Error        string  `json:"error,omitempty"`
	Elapsed      float64 `json:"elapsed"`
	Progress     float64 `json:"progress"`
}

func (s Snapshot) Terminal() bool {
	return s.Status == StatusCompleted || s.Status == StatusError
}

// Tracker holds the shared progress state of the ingestion pipeline. A zero
// total yields zero percent; counters only move forward within a run.
type Tracker struct {
	mu           sync.Mutex
	status       Status
	current      int
	total        int
	batchCurrent int
	batchTotal   int
	message      string
	err          string
	startedAt    time.Time
}

func NewTracker() *Tracker {
	return &Tracker{status: StatusIdle}
}

// begin claims the tracker for a new run. It succeeds only from idle or a
// terminal state, so at most one run is ever active.
func (t *Tracker) begin() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch t.status {
	case StatusIdle, StatusCompleted, StatusError:
	default:
		return false
	}
	t.status = StatusLoading
	t.current = 0
	t.total = 0
	t.batchCurrent = 0
	t.batchTotal = 0
	t.message = "loading documents"
	t.err = ""
	t.startedAt = time.Now()
	return true
}

func (t *Tracker) setPhase(status Status, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = status
	t.message = message
}

func (t *Tracker) setTotals(total, batchTotal int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.total = total
	t.batchTotal = batchTotal
}

func (t *Tracker) beginBatch(batch int, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.batchCurrent = batch
	t.message = message
}

func (t *Tracker) advance(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current += n
}

func (t *Tracker) complete(message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = StatusCompleted
	t.message = message
}

// fail marks the run failed. Counters keep their last values so a watcher
// can see how far the run got.
func (t *Tracker) fail(message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = StatusError
	t.err = message
	t.message = message
}

// Reset returns the tracker to idle. It is a no-op while a run is active.
func (t *Tracker) Reset() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch t.status {
	case StatusIdle, StatusCompleted, StatusError:
		t.status = StatusIdle
		t.current = 0
		t.total = 0
		t.batchCurrent = 0
		t.batchTotal = 0
		t.message = ""
		t.err = ""
		t.startedAt = time.Time{}
		return true
	default:
		return false
	}
}

func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	var elapsed float64
	if !t.startedAt.IsZero() {
		elapsed = math.Round(time.Since(t.startedAt).Seconds()*10) / 10
	}
	var percent float64
	if t.total > 0 {
		percent = math.Round(float64(t.current)/float64(t.total)*1000) / 10
	}
	return Snapshot{
		Status:       t.status,
		Current:      t.current,
		Total:        t.total,
		BatchCurrent: t.batchCurrent,
		BatchTotal:   t.batchTotal,
		Message:      t.message,
		Error:        t.err,
		Elapsed:      elapsed,
		Progress:     percent,
	}
}
