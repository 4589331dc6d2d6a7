package labeling

import (
	"context"
	"fmt"

	"github.com/erp/labelstation/internal/domain/labeling"
	"github.com/erp/labelstation/internal/domain/shared"
	"go.uber.org/zap"
)

// ReceivingService lists what can be received and labelled
type ReceivingService struct {
	inventory labeling.InventoryGateway
	logger    *zap.Logger
}

// NewReceivingService creates a new ReceivingService
func NewReceivingService(inventory labeling.InventoryGateway, logger *zap.Logger) *ReceivingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReceivingService{inventory: inventory, logger: logger}
}

// ListPurchaseOrders returns the active purchase order numbers, newest first
func (s *ReceivingService) ListPurchaseOrders(ctx context.Context) ([]string, error) {
	orders, err := s.inventory.FetchPurchaseOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch purchase orders: %w", err)
	}
	numbers := make([]string, len(orders))
	for i, po := range orders {
		numbers[i] = po.Number
	}
	return numbers, nil
}

// ListLineItems returns the lines of a purchase order for a warehouse
func (s *ReceivingService) ListLineItems(ctx context.Context, warehouseID, purchaseOrder string) ([]LineItemResponse, error) {
	warehouseID, purchaseOrder = trim(warehouseID), trim(purchaseOrder)
	if warehouseID == "" || purchaseOrder == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Select a warehouse and a purchase order")
	}
	items, err := s.inventory.FetchLineItems(ctx, warehouseID, purchaseOrder)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch line items: %w", err)
	}
	if len(items) == 0 {
		return nil, shared.NewDomainError("NOT_FOUND", "We could not locate any item for "+purchaseOrder)
	}
	out := make([]LineItemResponse, len(items))
	for i, item := range items {
		out[i] = toLineItemResponse(item)
	}
	return out, nil
}

// ListWarehouses returns the receiving locations sorted by name
func (s *ReceivingService) ListWarehouses(ctx context.Context) ([]WarehouseResponse, error) {
	warehouses, err := s.inventory.FetchWarehouses(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch warehouses: %w", err)
	}
	out := make([]WarehouseResponse, len(warehouses))
	for i, w := range warehouses {
		out[i] = WarehouseResponse{ID: w.ID, Name: w.Name}
	}
	return out, nil
}
