package billing

import (
	"github.com/recipefy/backend/internal/domain/shared"
	"github.com/recipefy/backend/internal/domain/usage"
)

// Event type constants for billing-driven quota changes
const (
	EventTypePlanSynced   = "QuotaPlanSynced"
	EventTypeAddonGranted = "QuotaAddonGranted"
)

// PlanSyncedEvent is raised when a Stripe subscription change moves a quota
// profile between plan tiers or refreshes its trial window
type PlanSyncedEvent struct {
	shared.BaseDomainEvent
	Plan           usage.Plan `json:"plan"`
	SubscriptionID string     `json:"subscription_id"`
	Action         string     `json:"action"` // subscription_created, subscription_updated, subscription_deleted
}

// NewPlanSyncedEvent creates a new PlanSyncedEvent
func NewPlanSyncedEvent(profile *usage.QuotaProfile, action, subscriptionID string) *PlanSyncedEvent {
	return &PlanSyncedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePlanSynced, usage.AggregateTypeQuotaProfile, profile.ID, profile.OwnerID),
		Plan:            profile.Plan,
		SubscriptionID:  subscriptionID,
		Action:          action,
	}
}

// AddonGrantedEvent is raised when a paid add-on pack is credited to a
// profile's bucket
type AddonGrantedEvent struct {
	shared.BaseDomainEvent
	Kind            usage.ActionKind `json:"kind"`
	Credits         int64            `json:"credits"`
	PaymentIntentID string           `json:"payment_intent_id"`
}

// NewAddonGrantedEvent creates a new AddonGrantedEvent
func NewAddonGrantedEvent(profile *usage.QuotaProfile, kind usage.ActionKind, credits int64, paymentIntentID string) *AddonGrantedEvent {
	return &AddonGrantedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAddonGranted, usage.AggregateTypeQuotaProfile, profile.ID, profile.OwnerID),
		Kind:            kind,
		Credits:         credits,
		PaymentIntentID: paymentIntentID,
	}
}
