package persistence

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/recipefy/backend/internal/domain/shared"
	"github.com/recipefy/backend/internal/domain/usage"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// QuotaProfileModel is the GORM model for quota profiles
type QuotaProfileModel struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey"`
	OwnerID     uuid.UUID  `gorm:"type:uuid;uniqueIndex;not null"`
	Plan        string     `gorm:"type:varchar(20);not null;default:'base'"`
	TrialEndsAt *time.Time `gorm:"column:trial_ends_at"`
	AIDisabled  bool       `gorm:"column:ai_disabled;not null;default:false"`
	Buckets     []byte     `gorm:"type:jsonb;default:'{}'"`
	CreatedAt   time.Time  `gorm:"autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime"`
}

// TableName returns the table name for the model
func (QuotaProfileModel) TableName() string {
	return "quota_profiles"
}

// ToEntity converts the model to a domain entity
func (m *QuotaProfileModel) ToEntity() *usage.QuotaProfile {
	var buckets map[usage.ActionKind]usage.QuotaBucket
	if len(m.Buckets) > 0 {
		_ = json.Unmarshal(m.Buckets, &buckets)
	}
	if buckets == nil {
		buckets = make(map[usage.ActionKind]usage.QuotaBucket)
	}
	for _, kind := range usage.AllActionKinds() {
		if _, ok := buckets[kind]; !ok {
			buckets[kind] = usage.QuotaBucket{}
		}
	}

	return &usage.QuotaProfile{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		OwnerID:     m.OwnerID,
		Plan:        usage.Plan(m.Plan),
		TrialEndsAt: m.TrialEndsAt,
		AIDisabled:  m.AIDisabled,
		Buckets:     buckets,
	}
}

// QuotaProfileModelFromEntity creates a model from a domain entity
func QuotaProfileModelFromEntity(e *usage.QuotaProfile) *QuotaProfileModel {
	var bucketBytes []byte
	if e.Buckets != nil {
		bucketBytes, _ = json.Marshal(e.Buckets)
	} else {
		bucketBytes = []byte("{}")
	}

	return &QuotaProfileModel{
		ID:          e.ID,
		OwnerID:     e.OwnerID,
		Plan:        e.Plan.String(),
		TrialEndsAt: e.TrialEndsAt,
		AIDisabled:  e.AIDisabled,
		Buckets:     bucketBytes,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

// GormProfileRepository implements the usage.ProfileRepository interface
type GormProfileRepository struct {
	db *gorm.DB
}

// NewGormProfileRepository creates a new quota profile repository
func NewGormProfileRepository(db *gorm.DB) *GormProfileRepository {
	return &GormProfileRepository{db: db}
}

// FindByOwner retrieves the quota profile for a user
func (r *GormProfileRepository) FindByOwner(ctx context.Context, ownerID uuid.UUID) (*usage.QuotaProfile, error) {
	var model QuotaProfileModel
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToEntity(), nil
}

// FindByOwnerForUpdate retrieves the profile under an exclusive row lock.
// The lock lives until the surrounding transaction ends, so this must run
// inside a transaction scope.
func (r *GormProfileRepository) FindByOwnerForUpdate(ctx context.Context, ownerID uuid.UUID) (*usage.QuotaProfile, error) {
	var model QuotaProfileModel
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("owner_id = ?", ownerID).
		First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToEntity(), nil
}

// Save creates or updates a quota profile
func (r *GormProfileRepository) Save(ctx context.Context, profile *usage.QuotaProfile) error {
	model := QuotaProfileModelFromEntity(profile)
	return r.db.WithContext(ctx).Save(model).Error
}

// CountAll counts all quota profiles
func (r *GormProfileRepository) CountAll(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&QuotaProfileModel{}).
		Count(&count).Error
	return count, err
}

// CountByPlan counts profiles per plan tier
func (r *GormProfileRepository) CountByPlan(ctx context.Context) (map[usage.Plan]int64, error) {
	var rows []struct {
		Plan  string
		Total int64
	}
	err := r.db.WithContext(ctx).
		Model(&QuotaProfileModel{}).
		Select("plan, COUNT(*) as total").
		Group("plan").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[usage.Plan]int64, len(rows))
	for _, row := range rows {
		counts[usage.Plan(row.Plan)] = row.Total
	}
	return counts, nil
}

// Ensure GormProfileRepository implements ProfileRepository
var _ usage.ProfileRepository = (*GormProfileRepository)(nil)
