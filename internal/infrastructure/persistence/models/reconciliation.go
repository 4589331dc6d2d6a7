package models

import (
	"time"

	"github.com/erp/labelstation/internal/domain/labeling"
	"github.com/google/uuid"
)

// ReconciliationEntryModel is the GORM model for reconciliation_entries
type ReconciliationEntryModel struct {
	ID                  uuid.UUID  `gorm:"type:uuid;primary_key"`
	BatchID             uuid.UUID  `gorm:"type:uuid;not null;index"`
	TagID               string     `gorm:"column:tag_id;type:varchar(32);not null;uniqueIndex"`
	PurchaseOrderNumber string     `gorm:"column:purchase_order_number;type:varchar(64);not null"`
	ReceiveItemNumber   string     `gorm:"column:receive_item_number;type:varchar(64)"`
	ItemID              string     `gorm:"column:item_id;type:varchar(64);not null"`
	ExpirationDate      time.Time  `gorm:"column:expiration_date;not null"`
	InventoryBin        string     `gorm:"column:inventory_bin;type:varchar(16);not null"`
	WarehouseID         string     `gorm:"column:warehouse_id;type:varchar(64)"`
	Reason              string     `gorm:"type:text"`
	Attempts            int        `gorm:"not null;default:1"`
	LastError           string     `gorm:"column:last_error;type:text"`
	ResolvedAt          *time.Time `gorm:"column:resolved_at;index"`
	CreatedAt           time.Time  `gorm:"not null"`
	UpdatedAt           time.Time  `gorm:"not null"`
}

// TableName returns the table name for ReconciliationEntryModel
func (ReconciliationEntryModel) TableName() string {
	return "reconciliation_entries"
}

// ToDomain converts the model to a domain entry
func (m *ReconciliationEntryModel) ToDomain() *labeling.ReconciliationEntry {
	return &labeling.ReconciliationEntry{
		ID:      m.ID,
		BatchID: m.BatchID,
		Record: labeling.StockRecord{
			PurchaseOrderNumber: m.PurchaseOrderNumber,
			ReceiveItemNumber:   m.ReceiveItemNumber,
			ItemID:              m.ItemID,
			TagID:               labeling.TagID(m.TagID),
			ExpirationDate:      m.ExpirationDate,
			InventoryBin:        labeling.InventoryBin(m.InventoryBin),
			WarehouseID:         m.WarehouseID,
		},
		Reason:     m.Reason,
		Attempts:   m.Attempts,
		LastError:  m.LastError,
		ResolvedAt: m.ResolvedAt,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

// ReconciliationEntryModelFromDomain creates a model from a domain entry
func ReconciliationEntryModelFromDomain(e *labeling.ReconciliationEntry) *ReconciliationEntryModel {
	return &ReconciliationEntryModel{
		ID:                  e.ID,
		BatchID:             e.BatchID,
		TagID:               e.Record.TagID.String(),
		PurchaseOrderNumber: e.Record.PurchaseOrderNumber,
		ReceiveItemNumber:   e.Record.ReceiveItemNumber,
		ItemID:              e.Record.ItemID,
		ExpirationDate:      e.Record.ExpirationDate,
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
