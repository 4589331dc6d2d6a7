package labeling

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/labelstation/internal/domain/labeling"
	"github.com/erp/labelstation/internal/domain/shared"
	"github.com/erp/labelstation/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// UnrecordedLabelHandler journals labels that were printed but rejected by
// the inventory backend
type UnrecordedLabelHandler struct {
	journal  *ReconciliationService
	notifier labeling.Notifier
	logger   *zap.Logger
}

// NewUnrecordedLabelHandler creates a new handler for LabelPrintedNotRecorded events
func NewUnrecordedLabelHandler(journal *ReconciliationService, notifier labeling.Notifier, logger *zap.Logger) *UnrecordedLabelHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = labeling.NotifierFunc(func(labeling.Notice) {})
	}
	return &UnrecordedLabelHandler{journal: journal, notifier: notifier, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *UnrecordedLabelHandler) EventTypes() []string {
	return []string{labeling.EventTypeLabelPrintedNotRecorded}
}

// Handle processes a LabelPrintedNotRecordedEvent
func (h *UnrecordedLabelHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	evt, ok := event.(*labeling.LabelPrintedNotRecordedEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", labeling.EventTypeLabelPrintedNotRecorded),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			labeling.EventTypeLabelPrintedNotRecorded, event.EventType())
	}

	if err := h.journal.Record(ctx, evt.AggregateID(), evt.Record, evt.Reason); err != nil {
		return err
	}
	h.notifier.Notify(labeling.Notice{
		Level:  labeling.NoticeWarning,
		Source: "reconciliation",
		Message: fmt.Sprintf("Tag %s was printed but not recorded. It has been added to the reconciliation list.",
			evt.Record.TagID),
		CreatedAt: time.Now(),
	})
	return nil
}

// BatchMetricsHandler counts tag and batch outcomes from batch events
type BatchMetricsHandler struct {
	metrics *telemetry.LabelMetrics
}

// NewBatchMetricsHandler creates a new handler feeding the station counters
func NewBatchMetricsHandler(metrics *telemetry.LabelMetrics) *BatchMetricsHandler {
	return &BatchMetricsHandler{metrics: metrics}
}

// EventTypes returns the event types this handler is interested in
func (h *BatchMetricsHandler) EventTypes() []string {
	return []string{
		labeling.EventTypeTagPrinted,
		labeling.EventTypeBatchCompleted,
		labeling.EventTypeBatchAborted,
	}
}

// Handle processes batch events
func (h *BatchMetricsHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch evt := event.(type) {
	case *labeling.TagPrintedEvent:
		h.metrics.RecordTag(ctx, telemetry.OutcomeSuccess)
	case *labeling.BatchCompletedEvent:
		h.metrics.RecordBatch(ctx, telemetry.OutcomeSuccess)
	case *labeling.BatchAbortedEvent:
		if evt.Failure.TagID != "" {
			h.metrics.RecordTag(ctx, telemetry.OutcomeFailure)
		}
		h.metrics.RecordBatch(ctx, telemetry.OutcomeFailure)
	}
	return nil
}
