package usage

import (
	"time"

	"github.com/google/uuid"
	"github.com/recipefy/backend/internal/domain/shared"
)

// Aggregate type constants
const (
	AggregateTypeQuotaProfile = "QuotaProfile"
	AggregateTypeUsageEvent   = "UsageEvent"
)

// Event type constants
const (
	EventTypeUsageRecorded     = "UsageEventRecorded"
	EventTypeQuotaLimitReached = "QuotaLimitReached"
)

// UsageEventRecordedEvent is raised after a usage event is appended to the log
type UsageEventRecordedEvent struct {
	shared.BaseDomainEvent
	UsageEventID uuid.UUID `json:"usage_event_id"`
	RecordedType string    `json:"recorded_type"`
	Source       string    `json:"source"`
	RecordedAt   time.Time `json:"recorded_at"`
}

// NewUsageEventRecordedEvent creates a new UsageEventRecordedEvent
func NewUsageEventRecordedEvent(event *UsageEvent) *UsageEventRecordedEvent {
	return &UsageEventRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeUsageRecorded, AggregateTypeUsageEvent, event.ID, event.OwnerID),
		UsageEventID:    event.ID,
		RecordedType:    string(event.EventType),
		Source:          event.Source,
		RecordedAt:      event.CreatedAt,
	}
}

// EventType returns the event type name
func (e *UsageEventRecordedEvent) EventType() string {
	return EventTypeUsageRecorded
}

// QuotaLimitReachedEvent is raised when a consumption attempt is denied
// because no capacity remains for the requested kind
type QuotaLimitReachedEvent struct {
	shared.BaseDomainEvent
	Kind      ActionKind `json:"kind"`
	Plan      Plan       `json:"plan"`
	Requested int64      `json:"requested"`
	Available int64      `json:"available"`
}

// NewQuotaLimitReachedEvent creates a new QuotaLimitReachedEvent
func NewQuotaLimitReachedEvent(profile *QuotaProfile, kind ActionKind, requested, available int64) *QuotaLimitReachedEvent {
	return &QuotaLimitReachedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeQuotaLimitReached, AggregateTypeQuotaProfile, profile.ID, profile.OwnerID),
		Kind:            kind,
		Plan:            profile.Plan,
		Requested:       requested,
		Available:       available,
	}
}

// EventType returns the event type name
func (e *QuotaLimitReachedEvent) EventType() string {
	return EventTypeQuotaLimitReached
}
