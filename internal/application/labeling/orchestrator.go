package labeling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/labelstation/internal/domain/labeling"
	"github.com/erp/labelstation/internal/domain/shared"
	"github.com/erp/labelstation/internal/infrastructure/logger"
	"github.com/erp/labelstation/internal/infrastructure/printing"
	"github.com/erp/labelstation/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Operator facing failure messages
const (
	msgLoginRequired  = "Please log in before printing tags."
	msgSessionExpired = "Your session has expired, please log in again."
	msgPrinterOffline = "The printer is currently offline. Please turn it on or check the connection."
)

// LabelRenderer produces the printer document for one tag
type LabelRenderer interface {
	Render(fields printing.LabelFields) string
}

// JobMonitor drives a submitted job to its terminal state
type JobMonitor interface {
	Await(ctx context.Context, job *labeling.PrintJob) labeling.JobState
}

// OrchestratorDeps are the collaborators of the batch orchestrator
type OrchestratorDeps struct {
	Transport printing.Transport
	Monitor   JobMonitor
	Renderer  LabelRenderer
	Inventory labeling.InventoryGateway
	Session   labeling.SessionChecker
	Events    shared.EventPublisher
	Defaults  *StationDefaults
	Notifier  labeling.Notifier
	Tags      *labeling.TagGenerator
	Metrics   *telemetry.LabelMetrics
	Logger    *zap.Logger
}

// Orchestrator prints a batch one tag at a time: render, submit, monitor and
// record, stopping at the first hard failure
type Orchestrator struct {
	transport printing.Transport
	monitor   JobMonitor
	renderer  LabelRenderer
	inventory labeling.InventoryGateway
	session   labeling.SessionChecker
	events    shared.EventPublisher
	defaults  *StationDefaults
	notifier  labeling.Notifier
	tags      *labeling.TagGenerator
	metrics   *telemetry.LabelMetrics
	logger    *zap.Logger
}

// NewOrchestrator creates a new batch orchestrator
func NewOrchestrator(deps OrchestratorDeps) *Orchestrator {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = labeling.NotifierFunc(func(labeling.Notice) {})
	}
	tags := deps.Tags
	if tags == nil {
		tags = labeling.NewTagGenerator(nil)
	}
	return &Orchestrator{
		transport: deps.Transport,
		monitor:   deps.Monitor,
		renderer:  deps.Renderer,
		inventory: deps.Inventory,
		session:   deps.Session,
		events:    deps.Events,
		defaults:  deps.Defaults,
		notifier:  notifier,
		tags:      tags,
		metrics:   deps.Metrics,
		logger:    log.Named("orchestrator"),
	}
}

// tagFailure is the first hard failure raised while printing one tag
type tagFailure struct {
	class   labeling.FailureClass
	message string
	err     error
}

// RunBatch prints every tag of run in generation order and returns the outcome.
// Progress is sent on progress (if non-nil) and ends with exactly one
// ProgressFinished message. The channel is not closed by RunBatch.
func (o *Orchestrator) RunBatch(ctx context.Context, run *labeling.BatchRun, progress chan<- Progress) labeling.BatchOutcome {
	ctx = logger.WithBatchID(ctx, run.ID.String())
	ctx, span := telemetry.StartSpan(ctx, "batch.run",
		"batch.id", run.ID.String(),
		"batch.quantity", run.Quantity,
		"printer.device", run.Device,
		"purchase_order", run.PurchaseOrder)
	defer span.End()

	log := logger.L(ctx, o.logger)
	o.metrics.SetBatchActive(ctx, true)
	defer o.metrics.SetBatchActive(ctx, false)

	emit := func(p Progress) {
		if progress == nil {
			return
		}
		p.BatchID = run.ID
		p.Total = run.Quantity
		p.At = time.Now()
		progress <- p
	}

	if o.session != nil && !o.session.IsActive() {
		return o.abort(ctx, run, emit, labeling.FailureSession, "", msgLoginRequired)
	}

	status, err := o.transport.DeviceStatus(ctx, run.Device)
	if err != nil || !status.Ready() {
		log.Warn("printer not ready, batch not started",
			zap.String("device", run.Device),
			zap.Bool("found", status.Found),
			zap.Bool("online", status.Online),
			zap.Error(err))
		return o.abort(ctx, run, emit, labeling.FailurePrinterOffline, "", msgPrinterOffline)
	}

	if err := run.Start(o.tags.Generate(run.Quantity)); err != nil {
		return o.abort(ctx, run, emit, labeling.FailureValidation, "", err.Error())
	}
	o.publish(ctx, run)
	log.Info("batch started",
		zap.String("sku", run.Item.SKU),
		zap.Int("quantity", run.Quantity),
		zap.String("first_tag", run.TagIDs[0].String()))
	emit(Progress{Kind: ProgressStarted, Message: "Starting..."})

	for i, tag := range run.TagIDs {
		if failure := o.printTag(ctx, run, i, tag); failure != nil {
			if failure.err != nil {
				telemetry.RecordError(span, failure.err)
			}
			return o.abort(ctx, run, emit, failure.class, tag, failure.message)
		}
		o.publish(ctx, run)
		emit(Progress{
			Kind:      ProgressTagDone,
			Completed: i + 1,
			TagID:     tag,
			Message:   fmt.Sprintf("Printing %d/%d tags...", i+1, run.Quantity),
		})
	}

	if err := run.Complete(); err != nil {
		return o.abort(ctx, run, emit, labeling.FailureValidation, "", err.Error())
	}
	if o.defaults != nil {
		o.defaults.RememberExpiration(run.ExpirationDate)
	}
	o.publish(ctx, run)

	outcome := run.Outcome()
	log.Info(outcome.Message(), zap.Strings("tags", tagStrings(outcome.SucceededTagIDs)))
	o.notify(labeling.NoticeInfo, outcome.Message())
	telemetry.SetOK(span)
	emit(Progress{
		Kind:      ProgressFinished,
		Completed: outcome.SuccessCount,
		Message:   outcome.Message(),
		Outcome:   &outcome,
	})
	return outcome
}

// printTag runs render, submit, monitor and record for one tag
func (o *Orchestrator) printTag(ctx context.Context, run *labeling.BatchRun, index int, tag labeling.TagID) *tagFailure {
	ctx, span := telemetry.StartSpan(ctx, "tag.print", "tag.id", tag.String(), "tag.index", index)
	defer span.End()
	log := logger.L(ctx, o.logger).With(zap.String("tag_id", tag.String()), zap.Int("index", index))

	if o.session != nil && !o.session.IsActive() {
		return &tagFailure{class: labeling.FailureSession, message: msgSessionExpired, err: labeling.ErrNotAuthenticated}
	}

	document := o.renderer.Render(printing.LabelFields{
		SKU:            run.Item.SKU,
		ItemName:       run.Item.Name,
		TagID:          tag,
		InventoryBin:   run.InventoryBin,
		ExpirationDate: run.ExpirationLabel(),
	})

	job, err := o.transport.Submit(ctx, run.Device, []byte(document))
	if err != nil {
		log.Error("print submission failed", zap.Error(err))
		if errors.Is(err, printing.ErrPrinterOffline) || errors.Is(err, printing.ErrDeviceNotFound) {
			return &tagFailure{class: labeling.FailurePrinterOffline, message: msgPrinterOffline, err: err}
		}
		return &tagFailure{
			class:   labeling.FailureTransport,
			message: fmt.Sprintf("Failed to send print job for tag %s.", tag),
			err:     err,
		}
	}
	job.TagID = tag
	telemetry.SetAttributes(span, "job.handle", job.Handle)

	if state := o.monitor.Await(ctx, job); !state.IsSuccess() {
		log.Error("print job did not complete",
			zap.String("job", job.Handle),
			zap.String("state", state.String()),
			zap.String("reason", job.Reason))
		return &tagFailure{
			class:   labeling.FailureMonitor,
			message: fmt.Sprintf("Print job for tag %s failed.", tag),
			err:     fmt.Errorf("job %s ended %s: %s", job.Handle, state, job.Reason),
		}
	}

	if err := o.inventory.RecordPrintedTag(ctx, run.StockRecordFor(tag)); err != nil {
		log.Error("printed tag was not recorded", zap.Error(err))
		run.RecordUnrecordedPrint(tag, err.Error())
		return &tagFailure{
			class:   labeling.FailureRecording,
			message: fmt.Sprintf("Failed to insert tag %s into database.", tag),
			err:     err,
		}
	}

	if err := run.RecordSuccess(tag); err != nil {
		return &tagFailure{class: labeling.FailureValidation, message: err.Error(), err: err}
	}
	log.Debug("tag printed and recorded", zap.String("job", job.Handle))
	return nil
}

// abort fails the batch, publishes its events and reports the outcome
func (o *Orchestrator) abort(
	ctx context.Context,
	run *labeling.BatchRun,
	emit func(Progress),
	class labeling.FailureClass,
	tag labeling.TagID,
	message string,
) labeling.BatchOutcome {
	if err := run.Fail(class, tag, message); err != nil {
		o.logger.Warn("batch already finished", zap.Error(err))
	}
	o.publish(ctx, run)

	outcome := run.Outcome()
	logger.L(ctx, o.logger).Error(outcome.Message(),
		zap.String("failure_class", class.String()),
		zap.String("tag_id", tag.String()),
		zap.Int("success_count", outcome.SuccessCount))
	o.notify(labeling.NoticeError, outcome.Message())
	emit(Progress{
		Kind:      ProgressFinished,
		Completed: outcome.SuccessCount,
		TagID:     tag,
		Message:   outcome.Message(),
		Outcome:   &outcome,
	})
	return outcome
}

// publish delivers the batch's pending domain events. Handler failures are
// logged; they never change the batch result.
func (o *Orchestrator) publish(ctx context.Context, run *labeling.BatchRun) {
	events := run.PullDomainEvents()
	if o.events == nil || len(events) == 0 {
		return
	}
	if err := o.events.Publish(ctx, events...); err != nil {
		logger.L(ctx, o.logger).Error("failed to publish batch events", zap.Error(err))
	}
}

func (o *Orchestrator) notify(level labeling.NoticeLevel, message string) {
	o.notifier.Notify(labeling.Notice{
		Level:     level,
		Source:    "batch",
		Message:   message,
		CreatedAt: time.Now(),
	})
}

func tagStrings(tags []labeling.TagID) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = t.String()
	}
	return out
}
