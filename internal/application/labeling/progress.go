package labeling

import (
	"sync"
	"time"

	"github.com/erp/labelstation/internal/domain/labeling"
	"github.com/google/uuid"
)

// ProgressKind identifies a batch progress message
type ProgressKind string

const (
	ProgressStarted  ProgressKind = "started"
	ProgressTagDone  ProgressKind = "tag_done"
	ProgressFinished ProgressKind = "finished"
)

// Progress is one message from the batch worker to the foreground
type Progress struct {
	Kind      ProgressKind           `json:"kind"`
	BatchID   uuid.UUID              `json:"batch_id"`
	Completed int                    `json:"completed"`
	Total     int                    `json:"total"`
	TagID     labeling.TagID         `json:"tag_id,omitempty"`
	Message   string                 `json:"message"`
	Outcome   *labeling.BatchOutcome `json:"outcome,omitempty"`
	At        time.Time              `json:"at"`
}

// BatchSnapshot is the foreground view of a batch
type BatchSnapshot struct {
	ID            uuid.UUID              `json:"id"`
	PurchaseOrder string                 `json:"purchase_order"`
	SKU           string                 `json:"sku"`
	Device        string                 `json:"device"`
	Quantity      int                    `json:"quantity"`
	Completed     int                    `json:"completed"`
	Status        labeling.BatchStatus   `json:"status"`
	Message       string                 `json:"message"`
	Outcome       *labeling.BatchOutcome `json:"outcome,omitempty"`
	SubmittedAt   time.Time              `json:"submitted_at"`
	FinishedAt    *time.Time             `json:"finished_at,omitempty"`
}

// batchTracker accumulates the progress of one batch as drained by the
// foreground. Watchers block on changed, which is closed and replaced on
// every update.
type batchTracker struct {
	mu       sync.Mutex
	snapshot BatchSnapshot
	history  []Progress
	changed  chan struct{}
	done     bool
}

func newBatchTracker(run *labeling.BatchRun) *batchTracker {
	return &batchTracker{
		snapshot: BatchSnapshot{
			ID:            run.ID,
			PurchaseOrder: run.PurchaseOrder,
			SKU:           run.Item.SKU,
			Device:        run.Device,
			Quantity:      run.Quantity,
			Status:        labeling.BatchStatusPending,
			Message:       "Waiting for printer...",
			SubmittedAt:   run.CreatedAt,
		},
		changed: make(chan struct{}),
	}
}

func (t *batchTracker) apply(p Progress) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.history = append(t.history, p)
	t.snapshot.Completed = p.Completed
	t.snapshot.Message = p.Message
	switch p.Kind {
	case ProgressStarted, ProgressTagDone:
		t.snapshot.Status = labeling.BatchStatusRunning
	case ProgressFinished:
		t.finishLocked(p.Outcome, p.At)
	}
	t.broadcastLocked()
}

// close marks the batch finished if the worker ended without a finished message
func (t *batchTracker) close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return
	}
	t.finishLocked(nil, time.Now())
	t.broadcastLocked()
}

func (t *batchTracker) finishLocked(outcome *labeling.BatchOutcome, at time.Time) {
	t.done = true
	t.snapshot.Outcome = outcome
	t.snapshot.FinishedAt = &at
	if outcome != nil && outcome.Succeeded() {
		t.snapshot.Status = labeling.BatchStatusSucceeded
	} else {
		t.snapshot.Status = labeling.BatchStatusFailed
	}
}

func (t *batchTracker) broadcastLocked() {
	close(t.changed)
	t.changed = make(chan struct{})
}

func (t *batchTracker) view() BatchSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshot
}

// since returns the progress messages after cursor, the channel signalling
// the next update and whether the batch has finished
func (t *batchTracker) since(cursor int) ([]Progress, <-chan struct{}, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if cursor < 0 {
		cursor = 0
	}
	var out []Progress
	if cursor < len(t.history) {
		out = append(out, t.history[cursor:]...)
	}
	return out, t.changed, t.done
}
