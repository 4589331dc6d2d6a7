package labeling

import (
	"context"
	"time"

	"github.com/erp/labelstation/internal/domain/shared"
)

// ErrNotAuthenticated is returned when an operation needs a logged in operator
var ErrNotAuthenticated = shared.NewDomainError("NOT_AUTHENTICATED", "Operator is not logged in")

// InventoryGateway is the remote inventory backend the station reads purchase
// orders from and records printed tags into
type InventoryGateway interface {
	FetchPurchaseOrders(ctx context.Context) ([]PurchaseOrder, error)
	FetchLineItems(ctx context.Context, warehouseID, purchaseOrder string) ([]LineItem, error)
	FetchWarehouses(ctx context.Context) ([]Warehouse, error)
	// RecordPrintedTag returns nil only when the backend confirmed creation
	RecordPrintedTag(ctx context.Context, record StockRecord) error
}

// SessionChecker reports whether an operator is logged in
type SessionChecker interface {
	IsActive() bool
}

// NoticeLevel is the severity of an operator notice
type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Notice is a non-fatal message surfaced to the operator
type Notice struct {
	Level     NoticeLevel `json:"level"`
	Source    string      `json:"source"`
	Message   string      `json:"message"`
	CreatedAt time.Time   `json:"created_at"`
}

// Notifier receives operator notices
type Notifier interface {
	Notify(notice Notice)
}

// NotifierFunc adapts a function to the Notifier interface
type NotifierFunc func(Notice)

// Notify calls f(notice)
func (f NotifierFunc) Notify(notice Notice) {
	f(notice)
}
