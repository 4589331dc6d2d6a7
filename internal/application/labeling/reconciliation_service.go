package labeling

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/labelstation/internal/domain/labeling"
	"github.com/erp/labelstation/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReconciliationService manages labels that were printed but never recorded
type ReconciliationService struct {
	repo      labeling.ReconciliationRepository
	inventory labeling.InventoryGateway
	logger    *zap.Logger
}

// NewReconciliationService creates a new ReconciliationService
func NewReconciliationService(
	repo labeling.ReconciliationRepository,
	inventory labeling.InventoryGateway,
	logger *zap.Logger,
) *ReconciliationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReconciliationService{
		repo:      repo,
		inventory: inventory,
		logger:    logger,
	}
}

// Record journals a printed tag the inventory backend did not accept. A tag
// already in the journal gets another failed attempt instead of a new entry.
func (s *ReconciliationService) Record(ctx context.Context, batchID uuid.UUID, record labeling.StockRecord, reason string) error {
	entry, err := s.repo.FindByTag(ctx, record.TagID)
	switch {
	case err == nil:
		if entry.IsResolved() {
			return nil
		}
		if err := entry.RecordAttempt(reason); err != nil {
			return err
		}
	case errors.Is(err, shared.ErrNotFound):
		entry, err = labeling.NewReconciliationEntry(batchID, record, reason)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("failed to look up journal entry: %w", err)
	}

	if err := s.repo.Save(ctx, entry); err != nil {
		return fmt.Errorf("failed to save journal entry: %w", err)
	}
	s.logger.Warn("printed tag journaled for reconciliation",
		zap.String("entry_id", entry.ID.String()),
		zap.String("tag_id", record.TagID.String()),
		zap.String("purchase_order", record.PurchaseOrderNumber),
		zap.Int("attempts", entry.Attempts),
		zap.String("reason", reason))
	return nil
}

// ListUnresolved returns the open journal entries, oldest first
func (s *ReconciliationService) ListUnresolved(ctx context.Context) ([]ReconciliationEntryResponse, error) {
	entries, err := s.repo.FindUnresolved(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list journal entries: %w", err)
	}
	out := make([]ReconciliationEntryResponse, len(entries))
	for i := range entries {
		out[i] = toReconciliationEntryResponse(&entries[i])
	}
	return out, nil
}

// Retry sends the stock record again. On success the entry is resolved; on
// failure the attempt is counted and the backend error is returned with the
// updated entry.
func (s *ReconciliationService) Retry(ctx context.Context, id uuid.UUID) (ReconciliationEntryResponse, error) {
	entry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return ReconciliationEntryResponse{}, err
	}
	if entry.IsResolved() {
		return toReconciliationEntryResponse(entry),
			shared.NewDomainError("ALREADY_RESOLVED", "Tag "+entry.Record.TagID.String()+" is already recorded")
	}

	recordErr := s.inventory.RecordPrintedTag(ctx, entry.Record)
	if recordErr != nil {
		if err := entry.RecordAttempt(recordErr.Error()); err != nil {
			return ReconciliationEntryResponse{}, err
		}
	} else if err := entry.Resolve(); err != nil {
		return ReconciliationEntryResponse{}, err
	}

	if err := s.repo.Save(ctx, entry); err != nil {
		return ReconciliationEntryResponse{}, fmt.Errorf("failed to save journal entry: %w", err)
	}

	resp := toReconciliationEntryResponse(entry)
	if recordErr != nil {
		s.logger.Warn("reconciliation retry failed",
			zap.String("entry_id", entry.ID.String()),
			zap.String("tag_id", entry.Record.TagID.String()),
			zap.Int("attempts", entry.Attempts),
			zap.Error(recordErr))
		return resp, shared.NewDomainError(shared.ErrUpstreamFailure.Code,
			"Failed to insert tag "+entry.Record.TagID.String()+" into database: "+recordErr.Error())
	}
	s.logger.Info("journaled tag recorded",
		zap.String("entry_id", entry.ID.String()),
		zap.String("tag_id", entry.Record.TagID.String()),
		zap.Int("attempts", entry.Attempts))
	return resp, nil
}
