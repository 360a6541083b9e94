package usage

// DenyReason explains why a consumption attempt was not admitted. Reasons are
// data, not errors: callers branch on the decision, they never catch.
type DenyReason string

const (
	DenyNotAuthenticated DenyReason = "notAuthenticated"
	DenyInvalidQuantity  DenyReason = "invalidQuantity"
	DenyProfileMissing   DenyReason = "profileMissing"
	DenyAIDisabled       DenyReason = "aiDisabled"
	DenyUnknownAction    DenyReason = "unknownAction"
	DenyLimitReached     DenyReason = "limitReached"
)

// String returns the string representation
func (r DenyReason) String() string {
	return string(r)
}

// Decision is the gate's admission verdict for one consumption attempt. It is
// a closed sum: Denied, Allowed (dry run) or Consumed. Switching over the
// three concrete types handles every outcome; no other type implements it.
type Decision interface {
	isDecision()
}

// Denied rejects the attempt. Available carries the capacity still open for
// the kind when the reason is limitReached; for other reasons it is zero.
type Denied struct {
	Reason    DenyReason
	Available int64
}

// Allowed admits a dry-run attempt without consuming anything. Available is
// the capacity still open after the hypothetical consumption was checked.
type Allowed struct {
	Available int64
}

// Consumed admits the attempt and reports how the debit was split across the
// three buckets. The amounts always sum to the requested quantity.
type Consumed struct {
	UsedTrial int64
	UsedAddon int64
	UsedPlan  int64
}

func (Denied) isDecision()   {}
func (Allowed) isDecision()  {}
func (Consumed) isDecision() {}

// DebitAllocation is the split of one admitted quantity across buckets
type DebitAllocation struct {
	Trial int64
	Addon int64
	Plan  int64
}

// AllocateDebit splits quantity across the buckets in strict priority order:
// trial first, then add-on, then the plan allotment absorbs the remainder.
// Callers must have verified capacity beforehand; the remainder is assigned
// to the plan bucket unconditionally.
func AllocateDebit(quantity, trialRemaining, addonRemaining int64) DebitAllocation {
	var alloc DebitAllocation

	alloc.Trial = min(quantity, max(trialRemaining, 0))
	remainder := quantity - alloc.Trial

	alloc.Addon = min(remainder, max(addonRemaining, 0))
	alloc.Plan = remainder - alloc.Addon

	return alloc
}
