package usage

import (
	"time"

	"github.com/google/uuid"
	"github.com/recipefy/backend/internal/domain/shared"
)

// MonthlyUsageCounter holds the consumed quantity per action kind for one user
// and one billing period. Exactly one row exists per (owner, period); it is
// created lazily on first consumption and never deleted. Counts only ever grow
// within a period.
type MonthlyUsageCounter struct {
	shared.BaseEntity
	OwnerID       uuid.UUID
	PeriodStart   time.Time
	Imports       int64
	Translations  int64
	Optimizations int64
	AIMessages    int64
}

// NewMonthlyUsageCounter creates an empty counter for the owner and period.
// The period start is normalized to the first of its UTC month.
func NewMonthlyUsageCounter(ownerID uuid.UUID, periodStart time.Time) (*MonthlyUsageCounter, error) {
	if ownerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_OWNER", "Owner ID is required")
	}
	return &MonthlyUsageCounter{
		BaseEntity:  shared.NewBaseEntity(),
		OwnerID:     ownerID,
		PeriodStart: PeriodStartFor(periodStart),
	}, nil
}

// Used returns the consumed quantity for the kind in this period
func (c *MonthlyUsageCounter) Used(kind ActionKind) int64 {
	switch kind {
	case ActionKindImport:
		return c.Imports
	case ActionKindTranslation:
		return c.Translations
	case ActionKindOptimization:
		return c.Optimizations
	case ActionKindAIMessage:
		return c.AIMessages
	default:
		return 0
	}
}

// Increment adds quantity to the kind's count
func (c *MonthlyUsageCounter) Increment(kind ActionKind, quantity int64) error {
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	switch kind {
	case ActionKindImport:
		c.Imports += quantity
	case ActionKindTranslation:
		c.Translations += quantity
	case ActionKindOptimization:
		c.Optimizations += quantity
	case ActionKindAIMessage:
		c.AIMessages += quantity
	default:
		return shared.NewDomainError("UNKNOWN_ACTION", "Unknown action kind: "+kind.String())
	}
	c.UpdatedAt = time.Now()
	return nil
}

// PeriodStartFor returns the billing period containing the instant: the first
// day of its calendar month, midnight UTC.
func PeriodStartFor(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// PeriodEndFor returns the last representable instant of the billing period
// containing the given time.
func PeriodEndFor(t time.Time) time.Time {
	return PeriodStartFor(t).AddDate(0, 1, 0).Add(-time.Nanosecond)
}
