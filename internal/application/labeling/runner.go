package labeling

import (
	"context"
	"sync"

	"github.com/erp/labelstation/internal/domain/labeling"
	"github.com/erp/labelstation/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultBatchHistory = 20

// Runner errors
var (
	ErrBatchInProgress = shared.NewDomainError("CONFLICT", "A batch is already printing, wait for it to finish")
	ErrBatchNotFound   = shared.NewDomainError("NOT_FOUND", "Batch not found")
)

// BatchExecutor prints a batch to completion
type BatchExecutor interface {
	RunBatch(ctx context.Context, run *labeling.BatchRun, progress chan<- Progress) labeling.BatchOutcome
}

// RunnerConfig contains configuration for the batch runner
type RunnerConfig struct {
	// History is the number of finished batches kept for lookup
	History int
	Logger  *zap.Logger
}

// Runner executes at most one batch at a time on a background worker and
// keeps the foreground view of recent batches
type Runner struct {
	executor BatchExecutor
	logger   *zap.Logger
	history  int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	closed  bool
	active  uuid.UUID
	batches map[uuid.UUID]*batchTracker
	order   []uuid.UUID
}

// NewRunner creates a new batch runner
func NewRunner(executor BatchExecutor, cfg *RunnerConfig) *Runner {
	if cfg == nil {
		cfg = &RunnerConfig{}
	}
	if cfg.History <= 0 {
		cfg.History = defaultBatchHistory
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		executor: executor,
		logger:   logger.Named("runner"),
		history:  cfg.History,
		ctx:      ctx,
		cancel:   cancel,
		batches:  make(map[uuid.UUID]*batchTracker),
	}
}

// Start launches run on a worker goroutine. The worker outlives the caller's
// context but keeps its values (trace, request id).
func (r *Runner) Start(ctx context.Context, run *labeling.BatchRun) (BatchSnapshot, error) {
	r.mu.Lock()
	if r.active != uuid.Nil {
		r.mu.Unlock()
		return BatchSnapshot{}, ErrBatchInProgress
	}
	if r.closed {
		r.mu.Unlock()
		return BatchSnapshot{}, shared.NewDomainError("INVALID_STATE", "Station is shutting down")
	}
	tracker := newBatchTracker(run)
	r.active = run.ID
	r.remember(run.ID, tracker)
	r.mu.Unlock()

	progress := make(chan Progress, run.Quantity+2)
	workerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(r.ctx, cancel)

	r.wg.Add(2)
	go func() {
		defer r.wg.Done()
		defer stop()
		defer cancel()
		defer close(progress)
		defer func() {
			if p := recover(); p != nil {
				r.logger.Error("batch worker panicked", zap.String("batch_id", run.ID.String()), zap.Any("panic", p))
			}
		}()
		r.executor.RunBatch(workerCtx, run, progress)
	}()

	// Foreground drain: the worker never touches the tracker directly.
	go func() {
		defer r.wg.Done()
		for p := range progress {
			tracker.apply(p)
		}
		tracker.close()
		r.mu.Lock()
		if r.active == run.ID {
			r.active = uuid.Nil
		}
		r.mu.Unlock()
	}()

	r.logger.Info("batch submitted",
		zap.String("batch_id", run.ID.String()),
		zap.Int("quantity", run.Quantity))
	return tracker.view(), nil
}

// remember stores tracker and evicts the oldest finished batches
func (r *Runner) remember(id uuid.UUID, tracker *batchTracker) {
	r.batches[id] = tracker
	r.order = append(r.order, id)
	for len(r.order) > r.history {
		oldest := r.order[0]
		if oldest == r.active {
			break
		}
		delete(r.batches, oldest)
		r.order = r.order[1:]
	}
}

func (r *Runner) tracker(id uuid.UUID) (*batchTracker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.batches[id]
	if !ok {
		return nil, ErrBatchNotFound
	}
	return t, nil
}

// Snapshot returns the current view of a batch
func (r *Runner) Snapshot(id uuid.UUID) (BatchSnapshot, error) {
	t, err := r.tracker(id)
	if err != nil {
		return BatchSnapshot{}, err
	}
	return t.view(), nil
}

// Active returns the id of the running batch, if any
func (r *Runner) Active() (uuid.UUID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active, r.active != uuid.Nil
}

// Watch returns the progress messages after cursor. If there are none yet it
// blocks until one arrives, the batch finishes or ctx is done. done is true
// once the batch has finished and every message has been returned.
func (r *Runner) Watch(ctx context.Context, id uuid.UUID, cursor int) (events []Progress, done bool, err error) {
	t, err := r.tracker(id)
	if err != nil {
		return nil, false, err
	}
	for {
		pending, changed, finished := t.since(cursor)
		if len(pending) > 0 || finished {
			return pending, finished, nil
		}
		select {
		case <-ctx.Done():
			return nil, false, ctx.Err()
		case <-changed:
		}
	}
}

// Shutdown waits for the running batch to finish. When ctx expires first the
// batch is cancelled, which ends its current job in ERROR.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		r.cancel()
		return nil
	case <-ctx.Done():
		r.logger.Warn("cancelling running batch on shutdown")
		r.cancel()
		<-finished
		return ctx.Err()
	}
}
