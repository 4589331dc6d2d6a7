package labeling

import (
	"github.com/erp/labelstation/internal/domain/shared"
)

// Aggregate type constant for events
const AggregateTypeBatchRun = "BatchRun"

// Event type constants
const (
	EventTypeBatchStarted            = "BatchStarted"
	EventTypeTagPrinted              = "TagPrinted"
	EventTypeLabelPrintedNotRecorded = "LabelPrintedNotRecorded"
	EventTypeBatchCompleted          = "BatchCompleted"
	EventTypeBatchAborted            = "BatchAborted"
)

// BatchStartedEvent is raised when tag identifiers are assigned and printing begins
type BatchStartedEvent struct {
	shared.BaseDomainEvent
	PurchaseOrder string `json:"purchase_order"`
	SKU           string `json:"sku"`
	Quantity      int    `json:"quantity"`
	Device        string `json:"device"`
}

// NewBatchStartedEvent creates a new BatchStartedEvent
func NewBatchStartedEvent(b *BatchRun) *BatchStartedEvent {
	return &BatchStartedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBatchStarted, AggregateTypeBatchRun, b.ID),
		PurchaseOrder:   b.PurchaseOrder,
		SKU:             b.Item.SKU,
		Quantity:        b.Quantity,
		Device:          b.Device,
	}
}

// TagPrintedEvent is raised when a tag is printed and recorded
type TagPrintedEvent struct {
	shared.BaseDomainEvent
	TagID TagID `json:"tag_id"`
	Index int   `json:"index"`
}

// NewTagPrintedEvent creates a new TagPrintedEvent
func NewTagPrintedEvent(b *BatchRun, tag TagID, index int) *TagPrintedEvent {
	return &TagPrintedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTagPrinted, AggregateTypeBatchRun, b.ID),
		TagID:           tag,
		Index:           index,
	}
}

// LabelPrintedNotRecordedEvent is raised when a label left the printer but the
// inventory backend did not accept its stock record
type LabelPrintedNotRecordedEvent struct {
	shared.BaseDomainEvent
	Record StockRecord `json:"record"`
	Reason string      `json:"reason"`
}

// NewLabelPrintedNotRecordedEvent creates a new LabelPrintedNotRecordedEvent
func NewLabelPrintedNotRecordedEvent(b *BatchRun, tag TagID, reason string) *LabelPrintedNotRecordedEvent {
	return &LabelPrintedNotRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeLabelPrintedNotRecorded, AggregateTypeBatchRun, b.ID),
		Record:          b.StockRecordFor(tag),
		Reason:          reason,
	}
}

// BatchCompletedEvent is raised when every tag in a batch succeeded
type BatchCompletedEvent struct {
	shared.BaseDomainEvent
	SuccessCount int `json:"success_count"`
}

// NewBatchCompletedEvent creates a new BatchCompletedEvent
func NewBatchCompletedEvent(b *BatchRun) *BatchCompletedEvent {
	return &BatchCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBatchCompleted, AggregateTypeBatchRun, b.ID),
		SuccessCount:    b.SuccessCount(),
	}
}

// BatchAbortedEvent is raised when a batch stops on its first failure
type BatchAbortedEvent struct {
	shared.BaseDomainEvent
	SuccessCount int          `json:"success_count"`
	Failure      BatchFailure `json:"failure"`
}

// NewBatchAbortedEvent creates a new BatchAbortedEvent
func NewBatchAbortedEvent(b *BatchRun) *BatchAbortedEvent {
	evt := &BatchAbortedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBatchAborted, AggregateTypeBatchRun, b.ID),
		SuccessCount:    b.SuccessCount(),
	}
	if b.Failure != nil {
		evt.Failure = *b.Failure
	}
	return evt
}
