package persistence

import (
	"context"
	"errors"

	"github.com/erp/labelstation/internal/domain/labeling"
	"github.com/erp/labelstation/internal/domain/shared"
	"github.com/erp/labelstation/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormReconciliationRepository implements labeling.ReconciliationRepository using GORM
type GormReconciliationRepository struct {
	db *gorm.DB
}

// NewGormReconciliationRepository creates a new GormReconciliationRepository
func NewGormReconciliationRepository(db *gorm.DB) *GormReconciliationRepository {
	return &GormReconciliationRepository{db: db}
}

var _ labeling.ReconciliationRepository = (*GormReconciliationRepository)(nil)

// Save inserts or updates an entry
func (r *GormReconciliationRepository) Save(ctx context.Context, entry *labeling.ReconciliationEntry) error {
	model := models.ReconciliationEntryModelFromDomain(entry)
	return r.db.WithContext(ctx).Save(model).Error
}

// FindByID finds an entry by ID
func (r *GormReconciliationRepository) FindByID(ctx context.Context, id uuid.UUID) (*labeling.ReconciliationEntry, error) {
	var model models.ReconciliationEntryModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByTag finds the entry of a tag
func (r *GormReconciliationRepository) FindByTag(ctx context.Context, tag labeling.TagID) (*labeling.ReconciliationEntry, error) {
	var model models.ReconciliationEntryModel
	if err := r.db.WithContext(ctx).First(&model, "tag_id = ?", tag.String()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindUnresolved lists open entries, oldest first
func (r *GormReconciliationRepository) FindUnresolved(ctx context.Context) ([]labeling.ReconciliationEntry, error) {
	var rows []models.ReconciliationEntryModel
	if err := r.db.WithContext(ctx).
		Where("resolved_at IS NULL").
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	entries := make([]labeling.ReconciliationEntry, len(rows))
	for i := range rows {
		entries[i] = *rows[i].ToDomain()
	}
	return entries, nil
}
