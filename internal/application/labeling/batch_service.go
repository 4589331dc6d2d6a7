package labeling

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/labelstation/internal/domain/labeling"
	"github.com/erp/labelstation/internal/domain/shared"
	"github.com/erp/labelstation/internal/infrastructure/printing"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultMaxQuantity = 999

// BatchServiceConfig contains configuration for the batch service
type BatchServiceConfig struct {
	MaxQuantity int
	Logger      *zap.Logger
}

// BatchService validates print requests and hands batches to the runner
type BatchService struct {
	inventory   labeling.InventoryGateway
	transport   printing.Transport
	runner      *Runner
	defaults    *StationDefaults
	validate    *validator.Validate
	maxQuantity int
	logger      *zap.Logger
}

// NewBatchService creates a new BatchService
func NewBatchService(
	inventory labeling.InventoryGateway,
	transport printing.Transport,
	runner *Runner,
	defaults *StationDefaults,
	cfg *BatchServiceConfig,
) *BatchService {
	if cfg == nil {
		cfg = &BatchServiceConfig{}
	}
	if cfg.MaxQuantity <= 0 {
		cfg.MaxQuantity = defaultMaxQuantity
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchService{
		inventory:   inventory,
		transport:   transport,
		runner:      runner,
		defaults:    defaults,
		validate:    NewValidator(),
		maxQuantity: cfg.MaxQuantity,
		logger:      logger,
	}
}

// Submit validates req, resolves the selected line item and starts the batch.
// Nothing is printed when validation fails.
func (s *BatchService) Submit(ctx context.Context, req PrintRequest) (BatchSnapshot, error) {
	req.Normalize()
	if err := s.validate.Struct(req); err != nil {
		return BatchSnapshot{}, validationError(err)
	}
	if req.Quantity > s.maxQuantity {
		return BatchSnapshot{}, shared.NewDomainError(ValidationErrorCode,
			fmt.Sprintf("quantity must be at most %d", s.maxQuantity))
	}
	if _, running := s.runner.Active(); running {
		return BatchSnapshot{}, ErrBatchInProgress
	}

	expiration, err := time.ParseInLocation(labeling.ISODateLayout, req.ExpirationDate, time.Local)
	if err != nil {
		return BatchSnapshot{}, shared.NewDomainError(ValidationErrorCode, "expiration_date is not a valid date")
	}

	item, err := s.resolveLineItem(ctx, req)
	if err != nil {
		return BatchSnapshot{}, err
	}

	run, err := labeling.NewBatchRun(
		req.PurchaseOrder,
		req.WarehouseID,
		item,
		req.Quantity,
		expiration,
		labeling.InventoryBin(req.InventoryBin),
		s.defaults.Device(),
	)
	if err != nil {
		return BatchSnapshot{}, err
	}

	snapshot, err := s.runner.Start(ctx, run)
	if err != nil {
		return BatchSnapshot{}, err
	}
	s.logger.Info("batch accepted",
		zap.String("batch_id", run.ID.String()),
		zap.String("purchase_order", run.PurchaseOrder),
		zap.String("sku", item.SKU),
		zap.Int("quantity", run.Quantity))
	return snapshot, nil
}

// resolveLineItem finds the selected line on the purchase order so the
// receive item number comes from the backend, not the client
func (s *BatchService) resolveLineItem(ctx context.Context, req PrintRequest) (labeling.LineItem, error) {
	items, err := s.inventory.FetchLineItems(ctx, req.WarehouseID, req.PurchaseOrder)
	if err != nil {
		return labeling.LineItem{}, fmt.Errorf("failed to fetch line items: %w", err)
	}
	for _, item := range items {
		if item.ItemID != req.ItemID {
			continue
		}
		if req.ReceiveItemNumber != "" && item.ReceiveItemNumber != req.ReceiveItemNumber {
			continue
		}
		return item, nil
	}
	return labeling.LineItem{}, shared.NewDomainError("INVALID_ITEM",
		fmt.Sprintf("Item %s is not on purchase order %s", req.ItemID, req.PurchaseOrder))
}

// Get returns the current view of a batch
func (s *BatchService) Get(id uuid.UUID) (BatchSnapshot, error) {
	return s.runner.Snapshot(id)
}

// Watch returns progress messages after cursor, blocking until there is one
func (s *BatchService) Watch(ctx context.Context, id uuid.UUID, cursor int) ([]Progress, bool, error) {
	return s.runner.Watch(ctx, id, cursor)
}

// Defaults returns the values pre-filled for the next batch
func (s *BatchService) Defaults() DefaultsResponse {
	return DefaultsResponse{
		ExpirationDate: s.defaults.ExpirationDate().Format(labeling.ISODateLayout),
		Device:         s.defaults.Device(),
		MaxQuantity:    s.maxQuantity,
	}
}

// PrinterStatus reads the selected device's status
func (s *BatchService) PrinterStatus(ctx context.Context) (PrinterStatusResponse, error) {
	device := s.defaults.Device()
	status, err := s.transport.DeviceStatus(ctx, device)
	if err != nil {
		return PrinterStatusResponse{}, fmt.Errorf("failed to read printer status: %w", err)
	}
	return PrinterStatusResponse{
		Device:       device,
		Backend:      s.transport.Name(),
		DeviceStatus: status,
		Ready:        status.Ready(),
	}, nil
}

// PrinterStatusResponse represents the selected printer's state
type PrinterStatusResponse struct {
	Device  string `json:"device"`
	Backend string `json:"backend"`
	printing.DeviceStatus
	Ready bool `json:"ready"`
}
