package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/recipefy/backend/internal/domain/shared"
	"github.com/recipefy/backend/internal/domain/usage"
	"gorm.io/gorm"
)

// LegacyImportRollupModel is the GORM model for the retained pre-event
// monthly import rollup table. This service never writes to it.
type LegacyImportRollupModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	OwnerID     uuid.UUID `gorm:"type:uuid;not null;index"`
	Source      string    `gorm:"type:varchar(50);not null;default:'unknown'"`
	PeriodStart time.Time `gorm:"not null;index"`
	Count       int64     `gorm:"not null;default:0"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

// TableName returns the table name for the model
func (LegacyImportRollupModel) TableName() string {
	return "legacy_import_rollups"
}

// ToEntity converts the model to a domain entity
func (m *LegacyImportRollupModel) ToEntity() *usage.LegacyImportRollup {
	return &usage.LegacyImportRollup{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		OwnerID:     m.OwnerID,
		Source:      m.Source,
		PeriodStart: m.PeriodStart.UTC(),
		Count:       m.Count,
	}
}

// GormLegacyRollupRepository implements the usage.LegacyRollupRepository interface
type GormLegacyRollupRepository struct {
	db *gorm.DB
}

// NewGormLegacyRollupRepository creates a new legacy rollup repository
func NewGormLegacyRollupRepository(db *gorm.DB) *GormLegacyRollupRepository {
	return &GormLegacyRollupRepository{db: db}
}

// FindOverlapping retrieves rollups whose month overlaps [start, end],
// optionally scoped to one owner. A rollup month overlaps when it starts
// before the range ends and ends after the range starts.
func (r *GormLegacyRollupRepository) FindOverlapping(ctx context.Context, start, end time.Time, ownerID *uuid.UUID) ([]usage.LegacyImportRollup, error) {
	monthFloor := usage.PeriodStartFor(start)

	query := r.db.WithContext(ctx).
		Model(&LegacyImportRollupModel{}).
		Where("period_start >= ? AND period_start <= ?", monthFloor, end)
	if ownerID != nil {
		query = query.Where("owner_id = ?", *ownerID)
	}

	var models []LegacyImportRollupModel
	if err := query.Order("period_start ASC").Find(&models).Error; err != nil {
		return nil, err
	}

	rollups := make([]usage.LegacyImportRollup, len(models))
	for i := range models {
		rollups[i] = *models[i].ToEntity()
	}
	return rollups, nil
}

// Ensure GormLegacyRollupRepository implements LegacyRollupRepository
var _ usage.LegacyRollupRepository = (*GormLegacyRollupRepository)(nil)
