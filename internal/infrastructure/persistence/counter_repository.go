package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/recipefy/backend/internal/domain/shared"
	"github.com/recipefy/backend/internal/domain/usage"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MonthlyUsageCounterModel is the GORM model for monthly usage counters
type MonthlyUsageCounterModel struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	OwnerID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_counter_owner_period"`
	PeriodStart   time.Time `gorm:"not null;uniqueIndex:idx_counter_owner_period"`
	Imports       int64     `gorm:"not null;default:0"`
	Translations  int64     `gorm:"not null;default:0"`
	Optimizations int64     `gorm:"not null;default:0"`
	AIMessages    int64     `gorm:"column:ai_messages;not null;default:0"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
}

// TableName returns the table name for the model
func (MonthlyUsageCounterModel) TableName() string {
	return "monthly_usage_counters"
}

// ToEntity converts the model to a domain entity
func (m *MonthlyUsageCounterModel) ToEntity() *usage.MonthlyUsageCounter {
	return &usage.MonthlyUsageCounter{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		OwnerID:       m.OwnerID,
		PeriodStart:   m.PeriodStart.UTC(),
		Imports:       m.Imports,
		Translations:  m.Translations,
		Optimizations: m.Optimizations,
		AIMessages:    m.AIMessages,
	}
}

// MonthlyUsageCounterModelFromEntity creates a model from a domain entity
func MonthlyUsageCounterModelFromEntity(e *usage.MonthlyUsageCounter) *MonthlyUsageCounterModel {
	return &MonthlyUsageCounterModel{
		ID:            e.ID,
		OwnerID:       e.OwnerID,
		PeriodStart:   e.PeriodStart,
		Imports:       e.Imports,
		Translations:  e.Translations,
		Optimizations: e.Optimizations,
		AIMessages:    e.AIMessages,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}

// counterColumns whitelists the per-kind column names used in increment
// expressions. Only whitelisted names ever reach the SQL string.
var counterColumns = map[usage.ActionKind]string{
	usage.ActionKindImport:       "imports",
	usage.ActionKindTranslation:  "translations",
	usage.ActionKindOptimization: "optimizations",
	usage.ActionKindAIMessage:    "ai_messages",
}

// GormCounterRepository implements the usage.CounterRepository interface
type GormCounterRepository struct {
	db *gorm.DB
}

// NewGormCounterRepository creates a new monthly counter repository
func NewGormCounterRepository(db *gorm.DB) *GormCounterRepository {
	return &GormCounterRepository{db: db}
}

// GetOrCreate returns the counter row for (owner, period), creating it when
// absent. The insert uses ON CONFLICT DO NOTHING against the (owner_id,
// period_start) uniqueness constraint, so concurrent first consumers converge
// on a single row.
func (r *GormCounterRepository) GetOrCreate(ctx context.Context, ownerID uuid.UUID, periodStart time.Time) (*usage.MonthlyUsageCounter, error) {
	period := usage.PeriodStartFor(periodStart)

	existing, err := r.FindByOwnerAndPeriod(ctx, ownerID, period)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	counter, err := usage.NewMonthlyUsageCounter(ownerID, period)
	if err != nil {
		return nil, err
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "owner_id"}, {Name: "period_start"}},
			DoNothing: true,
		}).
		Create(MonthlyUsageCounterModelFromEntity(counter))
	if result.Error != nil {
		return nil, result.Error
	}

	// Zero rows affected means another caller won the insert race
	if result.RowsAffected == 0 {
		return r.FindByOwnerAndPeriod(ctx, ownerID, period)
	}
	return counter, nil
}

// FindByOwnerAndPeriod retrieves the counter for one owner and period
func (r *GormCounterRepository) FindByOwnerAndPeriod(ctx context.Context, ownerID uuid.UUID, periodStart time.Time) (*usage.MonthlyUsageCounter, error) {
	var model MonthlyUsageCounterModel
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND period_start = ?", ownerID, usage.PeriodStartFor(periodStart)).
		First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToEntity(), nil
}

// Increment adds quantity to one kind's column with in-database arithmetic,
// so concurrent increments never lose updates.
func (r *GormCounterRepository) Increment(ctx context.Context, counterID uuid.UUID, kind usage.ActionKind, quantity int64) error {
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	column, ok := counterColumns[kind]
	if !ok {
		return shared.NewDomainError("UNKNOWN_ACTION", "Unknown action kind: "+kind.String())
	}

	result := r.db.WithContext(ctx).
		Model(&MonthlyUsageCounterModel{}).
		Where("id = ?", counterID).
		Updates(map[string]interface{}{
			column:       gorm.Expr(column+" + ?", quantity),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindInRange retrieves counters whose period start falls in [start, end],
// optionally scoped to one owner, ordered by period
func (r *GormCounterRepository) FindInRange(ctx context.Context, start, end time.Time, ownerID *uuid.UUID) ([]usage.MonthlyUsageCounter, error) {
	query := r.db.WithContext(ctx).
		Model(&MonthlyUsageCounterModel{}).
		Where("period_start >= ? AND period_start <= ?", start, end)
	if ownerID != nil {
		query = query.Where("owner_id = ?", *ownerID)
	}

	var models []MonthlyUsageCounterModel
	if err := query.Order("period_start ASC").Find(&models).Error; err != nil {
		return nil, err
	}

	counters := make([]usage.MonthlyUsageCounter, len(models))
	for i := range models {
		counters[i] = *models[i].ToEntity()
	}
	return counters, nil
}

// Ensure GormCounterRepository implements CounterRepository
var _ usage.CounterRepository = (*GormCounterRepository)(nil)
