package usage

import (
	"time"

	"github.com/google/uuid"
	"github.com/recipefy/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// MetadataKeyUsageContext tags an event with the feature area that produced
// it (e.g. "recipe_import", "assistant"). It lives in the open metadata map
// so collaborators can attach it without a schema change.
const MetadataKeyUsageContext = "usageContext"

// UsageEvent is one immutable, append-only record of a metered or
// informational action. It is the sole source of truth for analytics. The
// consume gate never writes events; collaborators append them after the gate
// admits the action.
type UsageEvent struct {
	ID                uuid.UUID
	OwnerID           uuid.UUID
	EventType         EventType
	Source            string
	ModelName         string
	ImportCreditsUsed int64
	AICreditsUsed     int64
	CostUSD           decimal.Decimal
	CreatedAt         time.Time
	Metadata          map[string]any
}

// NewUsageEvent creates a usage event with a generated ID and the current
// time. The source is normalized so blank origins are stored as "unknown".
func NewUsageEvent(ownerID uuid.UUID, eventType EventType) (*UsageEvent, error) {
	if ownerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_OWNER", "Owner ID is required")
	}
	if eventType == "" {
		return nil, shared.NewDomainError("INVALID_EVENT_TYPE", "Event type is required")
	}
	return &UsageEvent{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		EventType: eventType,
		Source:    SourceUnknown,
		CostUSD:   decimal.Zero,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// WithSource sets the origin platform, normalizing blanks to "unknown"
func (e *UsageEvent) WithSource(source string) *UsageEvent {
	e.Source = NormalizeSource(source)
	return e
}

// WithModel sets the AI model name that served the action
func (e *UsageEvent) WithModel(modelName string) *UsageEvent {
	e.ModelName = modelName
	return e
}

// WithCredits sets the import and AI credit amounts the action consumed
func (e *UsageEvent) WithCredits(importCredits, aiCredits int64) *UsageEvent {
	if importCredits > 0 {
		e.ImportCreditsUsed = importCredits
	}
	if aiCredits > 0 {
		e.AICreditsUsed = aiCredits
	}
	return e
}

// WithCost sets the upstream provider cost of the action
func (e *UsageEvent) WithCost(costUSD decimal.Decimal) *UsageEvent {
	e.CostUSD = costUSD
	return e
}

// WithCreatedAt overrides the event time. Collaborators report the instant
// the action completed, which may lag the append.
func (e *UsageEvent) WithCreatedAt(t time.Time) *UsageEvent {
	if !t.IsZero() {
		e.CreatedAt = t.UTC()
	}
	return e
}

// WithMetadata attaches one metadata key/value pair
func (e *UsageEvent) WithMetadata(key string, value any) *UsageEvent {
	if e.Metadata == nil {
		e.Metadata = make(map[string]any)
	}
	e.Metadata[key] = value
	return e
}

// WithUsageContext tags the event with the feature area that produced it
func (e *UsageEvent) WithUsageContext(context string) *UsageEvent {
	if context == "" {
		return e
	}
	return e.WithMetadata(MetadataKeyUsageContext, context)
}

// UsageContext returns the usage-context tag, or "" when untagged
func (e *UsageEvent) UsageContext() string {
	if e.Metadata == nil {
		return ""
	}
	if v, ok := e.Metadata[MetadataKeyUsageContext].(string); ok {
		return v
	}
	return ""
}
