package usage

import (
	"time"

	"github.com/recipefy/backend/internal/domain/usage"
)

// ConsumeActionRequest is the gate call body. Quantity and actionKind are
// validated by the gate itself so that bad values surface as decision
// reasons instead of binding errors.
type ConsumeActionRequest struct {
	OwnerID    string `json:"ownerId"`
	ActionKind string `json:"actionKind"`
	Quantity   int64  `json:"quantity"`
	Consume    *bool  `json:"consume"`
}

// ShouldConsume reports whether the request asks for a real debit. Omitted
// means consume, matching the gate's check-and-consume default.
func (r ConsumeActionRequest) ShouldConsume() bool {
	return r.Consume == nil || *r.Consume
}

// QuotaDecisionResponse is the flattened wire form of a gate decision
type QuotaDecisionResponse struct {
	Allowed   bool   `json:"allowed"`
	Reason    string `json:"reason,omitempty"`
	Available *int64 `json:"available,omitempty"`
	UsedTrial int64  `json:"usedTrial"`
	UsedAddon int64  `json:"usedAddon"`
	UsedPlan  int64  `json:"usedPlan"`
}

// ToQuotaDecisionResponse flattens a Decision for the wire. Available is only
// present on outcomes where it carries information: limit denials and dry
// runs.
func ToQuotaDecisionResponse(decision usage.Decision) QuotaDecisionResponse {
	switch d := decision.(type) {
	case usage.Denied:
		response := QuotaDecisionResponse{Reason: d.Reason.String()}
		if d.Reason == usage.DenyLimitReached {
			available := d.Available
			response.Available = &available
		}
		return response
	case usage.Allowed:
		available := d.Available
		return QuotaDecisionResponse{Allowed: true, Available: &available}
	case usage.Consumed:
		return QuotaDecisionResponse{
			Allowed:   true,
			UsedTrial: d.UsedTrial,
			UsedAddon: d.UsedAddon,
			UsedPlan:  d.UsedPlan,
		}
	default:
		return QuotaDecisionResponse{}
	}
}

// KindStatus is the per-kind slice of a quota status snapshot
type KindStatus struct {
	PlanLimit      int64 `json:"planLimit"`
	TrialRemaining int64 `json:"trialRemaining"`
	AddonRemaining int64 `json:"addonRemaining"`
	UsedThisPeriod int64 `json:"usedThisPeriod"`
	Available      int64 `json:"available"`
}

// QuotaStatusResponse is the read-only quota snapshot for one owner
type QuotaStatusResponse struct {
	Plan        string                `json:"plan"`
	TrialEndsAt *time.Time            `json:"trialEndsAt,omitempty"`
	TrialActive bool                  `json:"trialActive"`
	AIDisabled  bool                  `json:"aiDisabled"`
	PeriodStart time.Time             `json:"periodStart"`
	Kinds       map[string]KindStatus `json:"kinds"`
}

// RecordEventRequest is one usage event reported by a collaborator
type RecordEventRequest struct {
	OwnerID           string         `json:"ownerId" binding:"required,uuid"`
	EventType         string         `json:"eventType" binding:"required"`
	Source            string         `json:"source"`
	ModelName         string         `json:"modelName"`
	ImportCreditsUsed int64          `json:"importCreditsUsed" binding:"min=0"`
	AICreditsUsed     int64          `json:"aiCreditsUsed" binding:"min=0"`
	CostUSD           float64        `json:"costUsd" binding:"min=0"`
	CreatedAt         *time.Time     `json:"createdAt"`
	UsageContext      string         `json:"usageContext"`
	Metadata          map[string]any `json:"metadata"`
}

// RecordEventBatchRequest carries the stage events of one pipeline run
type RecordEventBatchRequest struct {
	Events []RecordEventRequest `json:"events" binding:"required,min=1,max=100,dive"`
}

// RecordEventResponse acknowledges an accepted event
type RecordEventResponse struct {
	EventID  string `json:"eventId"`
	Accepted bool   `json:"accepted"`
}

// RecordEventBatchResponse acknowledges an accepted batch
type RecordEventBatchResponse struct {
	EventIDs []string `json:"eventIds"`
	Accepted int      `json:"accepted"`
}
