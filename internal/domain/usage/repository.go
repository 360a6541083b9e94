package usage

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ProfileRepository defines the interface for quota profile persistence
type ProfileRepository interface {
	// FindByOwner finds the quota profile for a user
	FindByOwner(ctx context.Context, ownerID uuid.UUID) (*QuotaProfile, error)

	// FindByOwnerForUpdate finds the profile and takes an exclusive row lock.
	// Must be called inside a transaction scope; the lock serializes concurrent
	// gate calls for the same owner until the transaction ends.
	FindByOwnerForUpdate(ctx context.Context, ownerID uuid.UUID) (*QuotaProfile, error)

	// Save creates or updates a quota profile
	Save(ctx context.Context, profile *QuotaProfile) error

	// CountAll counts all quota profiles
	CountAll(ctx context.Context) (int64, error)

	// CountByPlan counts profiles per plan tier
	CountByPlan(ctx context.Context) (map[Plan]int64, error)
}

// CounterRepository defines the interface for monthly usage counter persistence
type CounterRepository interface {
	// GetOrCreate returns the counter row for (owner, periodStart), creating it
	// if absent. Idempotent under concurrency: backed by the uniqueness
	// constraint on (owner_id, period_start); concurrent callers observe the
	// same row, never duplicates.
	GetOrCreate(ctx context.Context, ownerID uuid.UUID, periodStart time.Time) (*MonthlyUsageCounter, error)

	// FindByOwnerAndPeriod finds the counter for one owner and period
	FindByOwnerAndPeriod(ctx context.Context, ownerID uuid.UUID, periodStart time.Time) (*MonthlyUsageCounter, error)

	// Increment adds quantity to one kind's counter (append-only arithmetic,
	// never decrements)
	Increment(ctx context.Context, counterID uuid.UUID, kind ActionKind, quantity int64) error

	// FindInRange finds counters whose period start falls in [start, end],
	// optionally scoped to one owner
	FindInRange(ctx context.Context, start, end time.Time, ownerID *uuid.UUID) ([]MonthlyUsageCounter, error)
}

// EventFilter narrows usage event scans. Zero values mean "no constraint".
type EventFilter struct {
	OwnerID      *uuid.UUID
	EventType    *EventType
	Source       string
	ModelName    string
	UsageContext string
	Start        time.Time
	End          time.Time
}

// HasCategoricalFilter reports whether any non-range filter is set. The
// legacy rollup fallback only applies when this is false.
func (f EventFilter) HasCategoricalFilter() bool {
	return f.OwnerID != nil || f.EventType != nil || f.Source != "" || f.ModelName != "" || f.UsageContext != ""
}

// UsageEventRepository defines the interface for the append-only event log.
// Events are never updated or deleted.
type UsageEventRepository interface {
	// Append stores one usage event
	Append(ctx context.Context, event *UsageEvent) error

	// AppendBatch stores several usage events in one round trip
	AppendBatch(ctx context.Context, events []*UsageEvent) error

	// FindInRange finds events matching the filter, ordered by created_at.
	// Usage-context filtering happens on the metadata payload.
	FindInRange(ctx context.Context, filter EventFilter) ([]UsageEvent, error)
}

// LegacyRollupRepository defines the interface for the retained pre-event
// monthly import rollup table. Read-only from this service's point of view.
type LegacyRollupRepository interface {
	// FindOverlapping finds rollups whose month overlaps [start, end],
	// optionally scoped to one owner
	FindOverlapping(ctx context.Context, start, end time.Time, ownerID *uuid.UUID) ([]LegacyImportRollup, error)
}
