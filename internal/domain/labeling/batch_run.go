package labeling

import (
	"fmt"
	"slices"
	"time"

	"github.com/erp/labelstation/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// LabelDateLayout is the expiration date format printed on labels
	LabelDateLayout = "02 Jan 2006"
	// ISODateLayout is the expiration date format sent to the inventory backend
	ISODateLayout = "2006-01-02"
)

// PurchaseOrder is an active purchase order available for receiving
type PurchaseOrder struct {
	Number string
}

// Warehouse is a receiving location
type Warehouse struct {
	ID   string
	Name string
}

// LineItem is a purchase order line selected for labelling
type LineItem struct {
	ItemID             string
	SKU                string
	Name               string
	UnitName           string
	Quantity           decimal.Decimal
	ReceiveItemNumber  string
	InventoryBinOnFile []string // bins already registered for this item
}

// StockRecord is the payload recorded against the purchase order for one printed tag
type StockRecord struct {
	PurchaseOrderNumber string
	ReceiveItemNumber   string
	ItemID              string
	TagID               TagID
	ExpirationDate      time.Time
	InventoryBin        InventoryBin
	WarehouseID         string
}

// BatchFailure describes the first hard failure that stopped a batch
type BatchFailure struct {
	Class   FailureClass `json:"class"`
	TagID   TagID        `json:"tag_id,omitempty"`
	Message string       `json:"message"`
}

// BatchOutcome is the result reported to the operator when a batch ends
type BatchOutcome struct {
	BatchID         uuid.UUID     `json:"batch_id"`
	SuccessCount    int           `json:"success_count"`
	SucceededTagIDs []TagID       `json:"succeeded_tag_ids"`
	Failure         *BatchFailure `json:"failure,omitempty"`
}

// Succeeded returns true if every tag was printed and recorded
func (o *BatchOutcome) Succeeded() bool {
	return o.Failure == nil
}

// Message renders the single operator facing summary of the outcome
func (o *BatchOutcome) Message() string {
	if o.Failure == nil {
		return fmt.Sprintf("All %d tags printed and processed successfully!", o.SuccessCount)
	}
	return fmt.Sprintf("%s: %s %d tags were successfully processed.",
		o.Failure.Class.DisplayName(), o.Failure.Message, o.SuccessCount)
}

// BatchRun is one "print N tags" operation for a purchase order line.
// Tags are attempted strictly in generation order, one at a time.
type BatchRun struct {
	shared.EventRecorder
	ID             uuid.UUID
	PurchaseOrder  string
	WarehouseID    string
	Item           LineItem
	Quantity       int
	ExpirationDate time.Time
	InventoryBin   InventoryBin
	Device         string
	TagIDs         []TagID
	Succeeded      []TagID
	Status         BatchStatus
	Failure        *BatchFailure
	CreatedAt      time.Time
	FinishedAt     *time.Time
}

// NewBatchRun creates a pending batch run
func NewBatchRun(
	purchaseOrder string,
	warehouseID string,
	item LineItem,
	quantity int,
	expirationDate time.Time,
	bin InventoryBin,
	device string,
) (*BatchRun, error) {
	if purchaseOrder == "" {
		return nil, shared.NewDomainError("INVALID_PURCHASE_ORDER", "Purchase order cannot be empty")
	}
	if item.SKU == "" || item.ItemID == "" {
		return nil, shared.NewDomainError("INVALID_ITEM", "A line item must be selected")
	}
	if quantity < 1 || quantity > MaxTagsPerBatch {
		return nil, shared.NewDomainError("INVALID_QUANTITY",
			fmt.Sprintf("Quantity must be between 1 and %d", MaxTagsPerBatch))
	}
	if expirationDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_EXPIRATION_DATE", "Expiration date is required")
	}
	if !IsValidInventoryBin(bin.String()) {
		return nil, shared.NewDomainError("INVALID_INVENTORY_BIN", "Inventory bin must match the format NN-C-N-NC")
	}
	if device == "" {
		return nil, shared.NewDomainError("INVALID_DEVICE", "Printer device cannot be empty")
	}

	return &BatchRun{
		ID:             uuid.New(),
		PurchaseOrder:  purchaseOrder,
		WarehouseID:    warehouseID,
		Item:           item,
		Quantity:       quantity,
		ExpirationDate: expirationDate,
		InventoryBin:   bin,
		Device:         device,
		TagIDs:         []TagID{},
		Succeeded:      []TagID{},
		Status:         BatchStatusPending,
		CreatedAt:      time.Now(),
	}, nil
}

// Start assigns the batch's tag identifiers and moves it to RUNNING.
// Exactly Quantity identifiers must be supplied.
func (b *BatchRun) Start(tags []TagID) error {
	if b.Status != BatchStatusPending {
		return shared.NewDomainError("INVALID_STATE", "Batch has already started")
	}
	if len(tags) != b.Quantity {
		return shared.NewDomainError("INVALID_TAGS",
			fmt.Sprintf("Expected %d tag identifiers, got %d", b.Quantity, len(tags)))
	}
	b.TagIDs = slices.Clone(tags)
	b.Status = BatchStatusRunning
	b.AddDomainEvent(NewBatchStartedEvent(b))
	return nil
}

// RecordSuccess marks the next tag in order as printed and recorded
func (b *BatchRun) RecordSuccess(tag TagID) error {
	if b.Status != BatchStatusRunning {
		return shared.NewDomainError("INVALID_STATE", "Batch is not running")
	}
	next := len(b.Succeeded)
	if next >= len(b.TagIDs) || b.TagIDs[next] != tag {
		return shared.NewDomainError("OUT_OF_ORDER", "Tag "+tag.String()+" is not the next tag in the batch")
	}
	b.Succeeded = append(b.Succeeded, tag)
	b.AddDomainEvent(NewTagPrintedEvent(b, tag, next))
	return nil
}

// RecordUnrecordedPrint notes that tag was physically printed but the inventory
// backend rejected it. The batch must still be failed by the caller.
func (b *BatchRun) RecordUnrecordedPrint(tag TagID, reason string) {
	b.AddDomainEvent(NewLabelPrintedNotRecordedEvent(b, tag, reason))
}

// Fail terminates the batch with the given failure
func (b *BatchRun) Fail(class FailureClass, tag TagID, message string) error {
	if b.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", "Batch already finished")
	}
	b.Failure = &BatchFailure{Class: class, TagID: tag, Message: message}
	b.Status = BatchStatusFailed
	now := time.Now()
	b.FinishedAt = &now
	b.AddDomainEvent(NewBatchAbortedEvent(b))
	return nil
}

// Complete finishes the batch once every tag succeeded
func (b *BatchRun) Complete() error {
	if b.Status != BatchStatusRunning {
		return shared.NewDomainError("INVALID_STATE", "Batch is not running")
	}
	if len(b.Succeeded) != len(b.TagIDs) {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Only %d of %d tags succeeded", len(b.Succeeded), len(b.TagIDs)))
	}
	b.Status = BatchStatusSucceeded
	now := time.Now()
	b.FinishedAt = &now
	b.AddDomainEvent(NewBatchCompletedEvent(b))
	return nil
}

// SuccessCount returns the number of printed and recorded tags
func (b *BatchRun) SuccessCount() int {
	return len(b.Succeeded)
}

// ExpirationLabel formats the expiration date for the label
func (b *BatchRun) ExpirationLabel() string {
	return b.ExpirationDate.Format(LabelDateLayout)
}

// StockRecordFor builds the inventory record for a printed tag
func (b *BatchRun) StockRecordFor(tag TagID) StockRecord {
	return StockRecord{
		PurchaseOrderNumber: b.PurchaseOrder,
		ReceiveItemNumber:   b.Item.ReceiveItemNumber,
		ItemID:              b.Item.ItemID,
		TagID:               tag,
		ExpirationDate:      b.ExpirationDate,
		InventoryBin:        b.InventoryBin,
		WarehouseID:         b.WarehouseID,
	}
}

// Outcome summarises the batch for the operator
func (b *BatchRun) Outcome() BatchOutcome {
	return BatchOutcome{
		BatchID:         b.ID,
		SuccessCount:    len(b.Succeeded),
		SucceededTagIDs: slices.Clone(b.Succeeded),
		Failure:         b.Failure,
	}
}
