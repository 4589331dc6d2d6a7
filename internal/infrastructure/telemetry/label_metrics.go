package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ErrMeterNil is returned when a meter is required but not supplied.
var ErrMeterNil = errors.New("NewLabelMetrics: meter cannot be nil")

// Outcome values used on station counters.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// LabelMetrics holds the instruments describing label printing activity.
// All record methods are safe to call on a nil receiver.
type LabelMetrics struct {
	logger *zap.Logger

	tagsTotal       *Counter
	batchesTotal    *Counter
	printJobsTotal  *Counter
	monitorPolls    *Counter
	previewTotal    *Counter
	previewDuration *Histogram
	batchActive     *Gauge
}

// NewLabelMetrics creates the station instruments on the given meter.
func NewLabelMetrics(meter metric.Meter, logger *zap.Logger) (*LabelMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &LabelMetrics{logger: logger}
	var err error

	if m.tagsTotal, err = NewCounter(meter,
		"labelstation_tags_total", "Tags attempted, by outcome", "{tags}"); err != nil {
		return nil, err
	}
	if m.batchesTotal, err = NewCounter(meter,
		"labelstation_batches_total", "Batches finished, by outcome", "{batches}"); err != nil {
		return nil, err
	}
	if m.printJobsTotal, err = NewCounter(meter,
		"labelstation_print_jobs_total", "Print jobs reaching a terminal state, by state", "{jobs}"); err != nil {
		return nil, err
	}
	if m.monitorPolls, err = NewCounter(meter,
		"labelstation_monitor_polls_total", "Job status polls issued by the monitor", "{polls}"); err != nil {
		return nil, err
	}
	if m.previewTotal, err = NewCounter(meter,
		"labelstation_preview_requests_total", "Preview rasterization requests, by result", "{requests}"); err != nil {
		return nil, err
	}
	if m.previewDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "labelstation_preview_duration_seconds",
		Description: "Remote preview rendering latency",
		Unit:        "s",
		Boundaries:  PreviewDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if m.batchActive, err = NewGauge(meter,
		"labelstation_batch_active", "1 while a batch is running", "{batches}"); err != nil {
		return nil, err
	}

	return m, nil
}

// RecordTag counts one tag outcome.
func (m *LabelMetrics) RecordTag(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.tagsTotal.Inc(ctx, AttrOutcome.String(outcome))
}

// RecordBatch counts one finished batch.
func (m *LabelMetrics) RecordBatch(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.batchesTotal.Inc(ctx, AttrOutcome.String(outcome))
}

// RecordJobState counts a print job reaching a terminal state.
func (m *LabelMetrics) RecordJobState(ctx context.Context, device, state string) {
	if m == nil {
		return
	}
	m.printJobsTotal.Inc(ctx, AttrDevice.String(device), AttrState.String(state))
}

// RecordMonitorPoll counts one status poll.
func (m *LabelMetrics) RecordMonitorPoll(ctx context.Context) {
	if m == nil {
		return
	}
	m.monitorPolls.Inc(ctx)
}

// RecordPreview counts a preview request and its latency.
func (m *LabelMetrics) RecordPreview(ctx context.Context, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.previewTotal.Inc(ctx, AttrResult.String(result))
	m.previewDuration.RecordDuration(ctx, d, AttrResult.String(result))
}

// SetBatchActive records whether a batch is currently running.
func (m *LabelMetrics) SetBatchActive(ctx context.Context, active bool) {
	if m == nil {
		return
	}
	var v int64
	if active {
		v = 1
	}
	m.batchActive.Record(ctx, v)
}
