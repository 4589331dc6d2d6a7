package labeling

import (
	"time"

	"github.com/erp/labelstation/internal/domain/labeling"
	"github.com/google/uuid"
)

// =============================================================================
// Session DTOs
// =============================================================================

// LoginRequest represents an operator login
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Normalize trims the username; passwords are sent as typed
func (r *LoginRequest) Normalize() {
	r.Username = trim(r.Username)
}

// =============================================================================
// Receiving DTOs
// =============================================================================

// LineItemResponse represents a purchase order line available for labelling
type LineItemResponse struct {
	ItemID            string   `json:"item_id"`
	SKU               string   `json:"sku"`
	Name              string   `json:"name"`
	UnitName          string   `json:"unit_name"`
	Quantity          string   `json:"quantity"`
	ReceiveItemNumber string   `json:"receive_item_number"`
	InventoryBins     []string `json:"inventory_bins"`
}

// WarehouseResponse represents a receiving location
type WarehouseResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func toLineItemResponse(item labeling.LineItem) LineItemResponse {
	bins := item.InventoryBinOnFile
	if bins == nil {
		bins = []string{}
	}
	return LineItemResponse{
		ItemID:            item.ItemID,
		SKU:               item.SKU,
		Name:              item.Name,
		UnitName:          item.UnitName,
		Quantity:          item.Quantity.String(),
		ReceiveItemNumber: item.ReceiveItemNumber,
		InventoryBins:     bins,
	}
}

// =============================================================================
// Print DTOs
// =============================================================================

// PrintRequest represents a request to print a batch of tags for one line item
type PrintRequest struct {
	PurchaseOrder     string `json:"purchase_order" binding:"required"`
	WarehouseID       string `json:"warehouse_id" binding:"required"`
	ItemID            string `json:"item_id" binding:"required"`
	ReceiveItemNumber string `json:"receive_item_number"`
	Quantity          int    `json:"quantity" binding:"required,min=1"`
	ExpirationDate    string `json:"expiration_date" binding:"required,datetime=2006-01-02"`
	InventoryBin      string `json:"inventory_bin" binding:"required,inventory_bin"`
}

// Normalize trims operator input and upper-cases the inventory bin
func (r *PrintRequest) Normalize() {
	r.PurchaseOrder = trim(r.PurchaseOrder)
	r.WarehouseID = trim(r.WarehouseID)
	r.ItemID = trim(r.ItemID)
	r.ReceiveItemNumber = trim(r.ReceiveItemNumber)
	r.ExpirationDate = trim(r.ExpirationDate)
	r.InventoryBin = labeling.NormalizeInventoryBin(r.InventoryBin)
}

// PreviewRequest represents a request to render a label preview
type PreviewRequest struct {
	SKU            string `json:"sku" binding:"required"`
	ItemName       string `json:"item_name"`
	InventoryBin   string `json:"inventory_bin" binding:"omitempty,inventory_bin"`
	ExpirationDate string `json:"expiration_date" binding:"omitempty,datetime=2006-01-02"`
	TagID          string `json:"tag_id" binding:"omitempty,len=16,numeric"`
}

// Normalize trims operator input and upper-cases the inventory bin
func (r *PreviewRequest) Normalize() {
	r.SKU = trim(r.SKU)
	r.ItemName = trim(r.ItemName)
	r.ExpirationDate = trim(r.ExpirationDate)
	r.TagID = trim(r.TagID)
	r.InventoryBin = labeling.NormalizeInventoryBin(r.InventoryBin)
}

// DefaultsResponse represents the values pre-filled for the next batch
type DefaultsResponse struct {
	ExpirationDate string `json:"expiration_date"`
	Device         string `json:"device"`
	MaxQuantity    int    `json:"max_quantity"`
}

// =============================================================================
// Reconciliation DTOs
// =============================================================================

// ReconciliationEntryResponse represents a printed label that is missing from inventory
type ReconciliationEntryResponse struct {
	ID                  uuid.UUID  `json:"id"`
	BatchID             uuid.UUID  `json:"batch_id"`
	TagID               string     `json:"tag_id"`
	PurchaseOrderNumber string     `json:"purchase_order_number"`
	ReceiveItemNumber   string     `json:"receive_item_number"`
	ItemID              string     `json:"item_id"`
	ExpirationDate      string     `json:"expiration_date"`
	InventoryBin        string     `json:"inventory_bin"`
	WarehouseID         string     `json:"warehouse_id"`
	Reason              string     `json:"reason"`
	Attempts            int        `json:"attempts"`
	LastError           string     `json:"last_error,omitempty"`
	ResolvedAt          *time.Time `json:"resolved_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

func toReconciliationEntryResponse(e *labeling.ReconciliationEntry) ReconciliationEntryResponse {
	return ReconciliationEntryResponse{
		ID:                  e.ID,
		BatchID:             e.BatchID,
		TagID:               e.Record.TagID.String(),
		PurchaseOrderNumber: e.Record.PurchaseOrderNumber,
		ReceiveItemNumber:   e.Record.ReceiveItemNumber,
		ItemID:              e.Record.ItemID,
		ExpirationDate:      e.Record.ExpirationDate.Format(labeling.ISODateLayout),
		InventoryBin:        e.Record.InventoryBin.String(),
		WarehouseID:         e.Record.WarehouseID,
		Reason:              e.Reason,
		Attempts:            e.Attempts,
		LastError:           e.LastError,
		ResolvedAt:          e.ResolvedAt,
		CreatedAt:           e.CreatedAt,
		UpdatedAt:           e.UpdatedAt,
	}
}
