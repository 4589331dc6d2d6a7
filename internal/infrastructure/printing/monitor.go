package printing

import (
	"context"
	"strings"
	"time"

	"github.com/erp/labelstation/internal/domain/labeling"
	"github.com/erp/labelstation/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

const (
	defaultPollInterval    = 500 * time.Millisecond
	defaultMaxUnknownReads = 5
)

// settleDelayer is implemented by transports without job introspection that
// know how long a submitted job takes to settle
type settleDelayer interface {
	SettleDelay() time.Duration
}

// MonitorConfig contains configuration for the job monitor
type MonitorConfig struct {
	PollInterval time.Duration
	// MaxUnknownReads is the number of consecutive indeterminate reads that
	// triggers cancel + purge escalation
	MaxUnknownReads int
	// SimulatedDelay is the wait for transports without job introspection
	SimulatedDelay time.Duration
	Logger         *zap.Logger
	Metrics        *telemetry.LabelMetrics
}

// Monitor drives a submitted print job to a terminal state
type Monitor struct {
	transport Transport
	config    *MonitorConfig
	logger    *zap.Logger
	metrics   *telemetry.LabelMetrics
}

// NewMonitor creates a job monitor for the given transport
func NewMonitor(transport Transport, cfg *MonitorConfig) *Monitor {
	if cfg == nil {
		cfg = &MonitorConfig{}
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.MaxUnknownReads <= 0 {
		cfg.MaxUnknownReads = defaultMaxUnknownReads
	}
	if cfg.SimulatedDelay <= 0 {
		cfg.SimulatedDelay = defaultSimulatedDelay
		if sd, ok := transport.(settleDelayer); ok {
			cfg.SimulatedDelay = sd.SettleDelay()
		}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{transport: transport, config: cfg, logger: logger, metrics: cfg.Metrics}
}

// Await polls the job until it is terminal and returns the final state.
// Only COMPLETED is success. Cancelling ctx ends the job in ERROR.
func (m *Monitor) Await(ctx context.Context, job *labeling.PrintJob) labeling.JobState {
	logger := m.logger.With(zap.String("device", job.Device), zap.String("job", job.Handle))

	inspector, ok := m.transport.(JobInspector)
	if !ok {
		m.awaitSimulated(ctx, job)
	} else {
		m.poll(ctx, job, inspector, logger)
	}

	m.metrics.RecordJobState(ctx, job.Device, job.State.String())
	logger.Info("print job finished",
		zap.String("state", job.State.String()),
		zap.String("reason", job.Reason))
	return job.State
}

func (m *Monitor) awaitSimulated(ctx context.Context, job *labeling.PrintJob) {
	if !m.wait(ctx, m.config.SimulatedDelay) {
		_ = job.Fail("monitoring cancelled: " + context.Cause(ctx).Error())
		return
	}
	_ = job.Complete()
}

func (m *Monitor) poll(ctx context.Context, job *labeling.PrintJob, inspector JobInspector, logger *zap.Logger) {
	for {
		m.metrics.RecordMonitorPoll(ctx)

		if m.step(ctx, job, inspector, logger) {
			return
		}
		if !m.wait(ctx, m.config.PollInterval) {
			_ = job.Fail("monitoring cancelled: " + context.Cause(ctx).Error())
			return
		}
	}
}

// step performs one status read and transition. It returns true once the job is terminal.
func (m *Monitor) step(ctx context.Context, job *labeling.PrintJob, inspector JobInspector, logger *zap.Logger) bool {
	status, err := inspector.JobStatus(ctx, job.Device, job.Handle)
	if err != nil {
		logger.Debug("job status read failed", zap.Error(err))
		return m.unknown(ctx, job, inspector, logger)
	}

	if !status.Present {
		return m.vanished(ctx, job, inspector, logger)
	}

	switch ClassifyJobStatus(status.Status) {
	case labeling.JobStateCompleted:
		_ = job.Complete()
		return true
	case labeling.JobStateDeleted:
		_ = job.MarkDeleted("job deleted: " + status.Status)
		return true
	case labeling.JobStateError:
		_ = job.Fail("printer reported: " + status.Status)
		return true
	case labeling.JobStatePrinting:
		_ = job.MarkPrinting()
		return false
	default:
		return m.unknown(ctx, job, inspector, logger)
	}
}

// vanished handles a job that is no longer enumerable in the active queue
func (m *Monitor) vanished(ctx context.Context, job *labeling.PrintJob, inspector JobInspector, logger *zap.Logger) bool {
	device, err := m.transport.DeviceStatus(ctx, job.Device)
	switch {
	case err != nil:
		logger.Debug("device status read failed", zap.Error(err))
		return m.unknown(ctx, job, inspector, logger)
	case !device.Found:
		_ = job.Fail("printer not found")
		return true
	case device.Idle:
		_ = job.Complete()
		return true
	default:
		_ = job.MarkPrinting()
		return false
	}
}

func (m *Monitor) unknown(ctx context.Context, job *labeling.PrintJob, inspector JobInspector, logger *zap.Logger) bool {
	reads, _ := job.MarkUnknown()
	if reads < m.config.MaxUnknownReads {
		return false
	}

	logger.Warn("job status unknown too many times, clearing printer queue",
		zap.Int("unknown_reads", reads))
	if err := inspector.CancelJob(ctx, job.Device, job.Handle); err != nil {
		logger.Error("failed to cancel print job", zap.Error(err))
	}
	if err := inspector.PurgeQueue(ctx, job.Device); err != nil {
		logger.Error("failed to purge print queue", zap.Error(err))
	}
	_ = job.Abort("status unknown after repeated checks")
	return true
}

func (m *Monitor) wait(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// ClassifyJobStatus maps the spooler's state reasons for a queued job onto a
// job state. The reasons are a comma-separated list; each one is classified
// on its own and the most decisive wins (ERROR, DELETED, COMPLETED, PRINTING).
// A job with no reasons ("none" or empty) is still in the queue, so it is
// PRINTING. Only text with no recognised reason is UNKNOWN.
func ClassifyJobStatus(raw string) labeling.JobState {
	state := labeling.JobStateUnknown
	for _, reason := range strings.Split(raw, ",") {
		if r := classifyReason(reason); stateRank(r) > stateRank(state) {
			state = r
		}
	}
	return state
}

func classifyReason(reason string) labeling.JobState {
	r := strings.ToLower(strings.TrimSpace(reason))
	switch {
	case r == "" || r == "none":
		return labeling.JobStatePrinting
	case strings.HasPrefix(r, "cups-"):
		// backend bookkeeping such as cups-waiting-for-job-completed
		return labeling.JobStatePrinting
	case r == "completed" || r == "job-completed-successfully" || r == "job-completed-with-warnings":
		return labeling.JobStateCompleted
	case containsAny(r, "error", "aborted", "stopped"):
		return labeling.JobStateError
	case containsAny(r, "canceled", "cancelled", "deleted"):
		return labeling.JobStateDeleted
	case containsAny(r, "printing", "processing"):
		return labeling.JobStatePrinting
	case containsAny(r, "pending", "held", "hold", "incoming", "queued", "spooling"):
		return labeling.JobStatePrinting
	default:
		return labeling.JobStateUnknown
	}
}

func stateRank(state labeling.JobState) int {
	switch state {
	case labeling.JobStateError:
		return 4
	case labeling.JobStateDeleted:
		return 3
	case labeling.JobStateCompleted:
		return 2
	case labeling.JobStatePrinting:
		return 1
	default:
		return 0
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
