package labeling

import (
	"context"
	"strings"
	"time"

	"github.com/erp/labelstation/internal/domain/shared"
	"github.com/google/uuid"
)

// ReconciliationEntry is a label that was physically printed but could not be
// recorded in the inventory backend. It stays open until a retry succeeds.
type ReconciliationEntry struct {
	ID         uuid.UUID
	BatchID    uuid.UUID
	Record     StockRecord
	Reason     string
	Attempts   int
	LastError  string
	ResolvedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewReconciliationEntry opens an entry for record
func NewReconciliationEntry(batchID uuid.UUID, record StockRecord, reason string) (*ReconciliationEntry, error) {
	if record.TagID == "" {
		return nil, shared.NewDomainError("INVALID_TAG", "Tag ID is required")
	}
	now := time.Now()
	return &ReconciliationEntry{
		ID:        uuid.New(),
		BatchID:   batchID,
		Record:    record,
		Reason:    strings.TrimSpace(reason),
		Attempts:  1,
		LastError: strings.TrimSpace(reason),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// IsResolved returns true once the tag has been recorded
func (e *ReconciliationEntry) IsResolved() bool {
	return e.ResolvedAt != nil
}

// RecordAttempt counts a failed retry
func (e *ReconciliationEntry) RecordAttempt(reason string) error {
	if e.IsResolved() {
		return shared.NewDomainError("ALREADY_RESOLVED", "Tag "+e.Record.TagID.String()+" is already recorded")
	}
	e.Attempts++
	e.LastError = reason
	e.UpdatedAt = time.Now()
	return nil
}

// Resolve marks the entry recorded
func (e *ReconciliationEntry) Resolve() error {
	if e.IsResolved() {
		return shared.NewDomainError("ALREADY_RESOLVED", "Tag "+e.Record.TagID.String()+" is already recorded")
	}
	now := time.Now()
	e.Attempts++
	e.LastError = ""
	e.ResolvedAt = &now
	e.UpdatedAt = now
	return nil
}

// ReconciliationRepository stores reconciliation entries
type ReconciliationRepository interface {
	Save(ctx context.Context, entry *ReconciliationEntry) error
	FindByID(ctx context.Context, id uuid.UUID) (*ReconciliationEntry, error)
	FindUnresolved(ctx context.Context) ([]ReconciliationEntry, error)
	FindByTag(ctx context.Context, tag TagID) (*ReconciliationEntry, error)
}
