package usage

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/recipefy/backend/internal/domain/shared"
)

// QuotaBucket holds the consumable balances of one action kind: the trial
// allowance (total and consumed) and the purchased add-on balance. The plan
// allotment is not stored here; it derives from the profile's plan and is
// bounded by the monthly counter.
type QuotaBucket struct {
	TrialTotal     int64 `json:"trial_total"`
	TrialUsed      int64 `json:"trial_used"`
	AddonRemaining int64 `json:"addon_remaining"`
}

// TrialRemaining returns the unconsumed trial allowance of this bucket.
// It does not consider whether the trial window is still open.
func (b QuotaBucket) TrialRemaining() int64 {
	if r := b.TrialTotal - b.TrialUsed; r > 0 {
		return r
	}
	return 0
}

// QuotaProfile is the per-user quota ledger: plan tier, trial window, the
// AI kill switch and one bucket per metered action kind. Consumption fields
// (TrialUsed, AddonRemaining) are mutated only by the consume gate; plan,
// trial window and add-on grants are written by the billing sync.
type QuotaProfile struct {
	shared.BaseEntity
	OwnerID     uuid.UUID
	Plan        Plan
	TrialEndsAt *time.Time
	AIDisabled  bool
	Buckets     map[ActionKind]QuotaBucket
}

// NewQuotaProfile creates a quota profile with empty buckets for every kind
func NewQuotaProfile(ownerID uuid.UUID, plan Plan) (*QuotaProfile, error) {
	if ownerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_OWNER", "Owner ID is required")
	}
	if !plan.IsValid() {
		return nil, shared.NewDomainError("INVALID_PLAN", "Invalid plan: "+plan.String())
	}

	buckets := make(map[ActionKind]QuotaBucket, len(AllActionKinds()))
	for _, kind := range AllActionKinds() {
		buckets[kind] = QuotaBucket{}
	}

	return &QuotaProfile{
		BaseEntity: shared.NewBaseEntity(),
		OwnerID:    ownerID,
		Plan:       plan,
		Buckets:    buckets,
	}, nil
}

// Bucket returns the balances for the given kind. Unknown kinds yield a zero
// bucket rather than a nil dereference.
func (p *QuotaProfile) Bucket(kind ActionKind) QuotaBucket {
	if p.Buckets == nil {
		return QuotaBucket{}
	}
	return p.Buckets[kind]
}

func (p *QuotaProfile) setBucket(kind ActionKind, bucket QuotaBucket) {
	if p.Buckets == nil {
		p.Buckets = make(map[ActionKind]QuotaBucket, len(AllActionKinds()))
	}
	p.Buckets[kind] = bucket
}

// TrialActive reports whether the trial window is open at the given instant
func (p *QuotaProfile) TrialActive(now time.Time) bool {
	return p.TrialEndsAt != nil && p.TrialEndsAt.After(now)
}

// TrialRemaining returns the trial allowance still consumable for the kind at
// the given instant. Outside the trial window it is always zero.
func (p *QuotaProfile) TrialRemaining(kind ActionKind, now time.Time) int64 {
	if !p.TrialActive(now) {
		return 0
	}
	return p.Bucket(kind).TrialRemaining()
}

// ApplyDebit consumes trialDelta from the trial allowance and addonDelta from
// the add-on balance of the kind. Both deltas must respect the bucket's
// remaining capacity; a violation means the caller computed the allocation
// against stale state.
func (p *QuotaProfile) ApplyDebit(kind ActionKind, trialDelta, addonDelta int64) error {
	if trialDelta < 0 || addonDelta < 0 {
		return shared.NewDomainError("INVALID_DEBIT", "Debit amounts cannot be negative")
	}

	bucket := p.Bucket(kind)
	if bucket.TrialUsed+trialDelta > bucket.TrialTotal {
		return shared.NewDomainError("TRIAL_OVERDRAWN",
			fmt.Sprintf("Trial debit of %d exceeds remaining trial allowance %d", trialDelta, bucket.TrialRemaining()))
	}
	if addonDelta > bucket.AddonRemaining {
		return shared.NewDomainError("ADDON_OVERDRAWN",
			fmt.Sprintf("Add-on debit of %d exceeds remaining add-on balance %d", addonDelta, bucket.AddonRemaining))
	}

	bucket.TrialUsed += trialDelta
	bucket.AddonRemaining -= addonDelta
	p.setBucket(kind, bucket)
	p.UpdatedAt = time.Now()
	return nil
}

// GrantAddon credits a purchased add-on pack to the kind's balance
func (p *QuotaProfile) GrantAddon(kind ActionKind, credits int64) error {
	if !kind.IsValid() {
		return shared.NewDomainError("UNKNOWN_ACTION", "Unknown action kind: "+kind.String())
	}
	if credits <= 0 {
		return shared.NewDomainError("INVALID_GRANT", "Add-on grant must be positive")
	}

	bucket := p.Bucket(kind)
	bucket.AddonRemaining += credits
	p.setBucket(kind, bucket)
	p.UpdatedAt = time.Now()
	return nil
}

// StartTrial opens a trial window ending at the given instant and sets the
// per-kind trial totals. Already consumed trial usage is preserved so a
// re-granted trial cannot be farmed by resetting counters.
func (p *QuotaProfile) StartTrial(endsAt time.Time, totals map[ActionKind]int64) error {
	if !endsAt.After(time.Now()) {
		return shared.NewDomainError("INVALID_TRIAL", "Trial end must be in the future")
	}

	p.TrialEndsAt = &endsAt
	for kind, total := range totals {
		if !kind.IsValid() {
			return shared.NewDomainError("UNKNOWN_ACTION", "Unknown action kind: "+kind.String())
		}
		if total < 0 {
			return shared.NewDomainError("INVALID_TRIAL", "Trial total cannot be negative")
		}
		bucket := p.Bucket(kind)
		bucket.TrialTotal = total
		p.setBucket(kind, bucket)
	}
	p.UpdatedAt = time.Now()
	return nil
}

// ChangePlan moves the profile to the given tier
func (p *QuotaProfile) ChangePlan(plan Plan) error {
	if !plan.IsValid() {
		return shared.NewDomainError("INVALID_PLAN", "Invalid plan: "+plan.String())
	}
	p.Plan = plan
	p.UpdatedAt = time.Now()
	return nil
}

// SetAIDisabled flips the AI kill switch. While set, all AI action kinds are
// denied regardless of balances; imports are unaffected.
func (p *QuotaProfile) SetAIDisabled(disabled bool) {
	p.AIDisabled = disabled
	p.UpdatedAt = time.Now()
}
