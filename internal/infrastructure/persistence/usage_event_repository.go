package persistence

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/recipefy/backend/internal/domain/usage"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// UsageEventModel is the GORM model for the append-only usage event log
type UsageEventModel struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OwnerID           uuid.UUID       `gorm:"type:uuid;not null;index"`
	EventType         string          `gorm:"type:varchar(50);not null;index"`
	Source            string          `gorm:"type:varchar(50);not null;default:'unknown'"`
	ModelName         string          `gorm:"type:varchar(100)"`
	ImportCreditsUsed int64           `gorm:"not null;default:0"`
	AICreditsUsed     int64           `gorm:"column:ai_credits_used;not null;default:0"`
	CostUSD           decimal.Decimal `gorm:"column:cost_usd;type:decimal(12,6);not null;default:0"`
	Metadata          []byte          `gorm:"type:jsonb;default:'{}'"`
	CreatedAt         time.Time       `gorm:"not null;index"`
}

// TableName returns the table name for the model
func (UsageEventModel) TableName() string {
	return "usage_events"
}

// ToEntity converts the model to a domain entity
func (m *UsageEventModel) ToEntity() *usage.UsageEvent {
	var metadata map[string]any
	if len(m.Metadata) > 0 {
		_ = json.Unmarshal(m.Metadata, &metadata)
	}
	if metadata == nil {
		metadata = make(map[string]any)
	}

	return &usage.UsageEvent{
		ID:                m.ID,
		OwnerID:           m.OwnerID,
		EventType:         usage.EventType(m.EventType),
		Source:            m.Source,
		ModelName:         m.ModelName,
		ImportCreditsUsed: m.ImportCreditsUsed,
		AICreditsUsed:     m.AICreditsUsed,
		CostUSD:           m.CostUSD,
		CreatedAt:         m.CreatedAt.UTC(),
		Metadata:          metadata,
	}
}

// UsageEventModelFromEntity creates a model from a domain entity
func UsageEventModelFromEntity(e *usage.UsageEvent) *UsageEventModel {
	var metadataBytes []byte
	if e.Metadata != nil {
		metadataBytes, _ = json.Marshal(e.Metadata)
	} else {
		metadataBytes = []byte("{}")
	}

	return &UsageEventModel{
		ID:                e.ID,
		OwnerID:           e.OwnerID,
		EventType:         e.EventType.String(),
		Source:            e.Source,
		ModelName:         e.ModelName,
		ImportCreditsUsed: e.ImportCreditsUsed,
		AICreditsUsed:     e.AICreditsUsed,
		CostUSD:           e.CostUSD,
		Metadata:          metadataBytes,
		CreatedAt:         e.CreatedAt,
	}
}

// GormUsageEventRepository implements the usage.UsageEventRepository
// interface. The log is append-only; no update or delete paths exist.
type GormUsageEventRepository struct {
	db *gorm.DB
}

// NewGormUsageEventRepository creates a new usage event repository
func NewGormUsageEventRepository(db *gorm.DB) *GormUsageEventRepository {
	return &GormUsageEventRepository{db: db}
}

// Append stores one usage event
func (r *GormUsageEventRepository) Append(ctx context.Context, event *usage.UsageEvent) error {
	model := UsageEventModelFromEntity(event)
	return r.db.WithContext(ctx).Create(model).Error
}

// AppendBatch stores multiple usage events in one round trip
func (r *GormUsageEventRepository) AppendBatch(ctx context.Context, events []*usage.UsageEvent) error {
	if len(events) == 0 {
		return nil
	}

	models := make([]*UsageEventModel, len(events))
	for i, e := range events {
		models[i] = UsageEventModelFromEntity(e)
	}

	return r.db.WithContext(ctx).CreateInBatches(models, 100).Error
}

// FindInRange retrieves events matching the filter, ordered by creation time.
// The usage-context tag lives inside the metadata payload, so that filter is
// applied after the scan rather than in SQL.
func (r *GormUsageEventRepository) FindInRange(ctx context.Context, filter usage.EventFilter) ([]usage.UsageEvent, error) {
	query := applyEventFilter(r.db.WithContext(ctx).Model(&UsageEventModel{}), filter)

	var models []UsageEventModel
	if err := query.Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}

	events := make([]usage.UsageEvent, 0, len(models))
	for i := range models {
		event := models[i].ToEntity()
		if filter.UsageContext != "" && event.UsageContext() != filter.UsageContext {
			continue
		}
		events = append(events, *event)
	}
	return events, nil
}

// applyEventFilter applies the SQL-expressible filter fields to the query
func applyEventFilter(query *gorm.DB, filter usage.EventFilter) *gorm.DB {
	if filter.OwnerID != nil {
		query = query.Where("owner_id = ?", *filter.OwnerID)
	}
	if filter.EventType != nil {
		query = query.Where("event_type = ?", filter.EventType.String())
	}
	if filter.Source != "" {
		query = query.Where("source = ?", filter.Source)
	}
	if filter.ModelName != "" {
		query = query.Where("model_name = ?", filter.ModelName)
	}
	if !filter.Start.IsZero() {
		query = query.Where("created_at >= ?", filter.Start)
	}
	if !filter.End.IsZero() {
		query = query.Where("created_at <= ?", filter.End)
	}
	return query
}

// Ensure GormUsageEventRepository implements UsageEventRepository
var _ usage.UsageEventRepository = (*GormUsageEventRepository)(nil)
