package usage

import "github.com/recipefy/backend/internal/domain/shared"

// Plan is the subscription tier of a user
type Plan string

const (
	// PlanBase is the free tier. It grants no recurring monthly allotment for
	// metered kinds; base users consume trial and add-on balances only.
	PlanBase Plan = "base"
	// PlanPremium is the paid tier with a recurring monthly allotment per kind
	PlanPremium Plan = "premium"
)

// Premium monthly allotments per action kind. The allotment renews implicitly
// with the calendar month: it is never decremented in storage, the monthly
// counter is its usage record.
const (
	premiumMonthlyImports       int64 = 25
	premiumMonthlyTranslations  int64 = 50
	premiumMonthlyOptimizations int64 = 50
	premiumMonthlyAIMessages    int64 = 200
)

// IsValid checks if the plan is a known tier
func (p Plan) IsValid() bool {
	switch p {
	case PlanBase, PlanPremium:
		return true
	default:
		return false
	}
}

// String returns the string representation
func (p Plan) String() string {
	return string(p)
}

// DisplayName returns a human-readable name for the plan
func (p Plan) DisplayName() string {
	switch p {
	case PlanBase:
		return "Base"
	case PlanPremium:
		return "Premium"
	default:
		return string(p)
	}
}

// MonthlyAllowance returns the recurring monthly allotment the plan grants for
// the given action kind.
func (p Plan) MonthlyAllowance(kind ActionKind) int64 {
	if p != PlanPremium {
		return 0
	}
	switch kind {
	case ActionKindImport:
		return premiumMonthlyImports
	case ActionKindTranslation:
		return premiumMonthlyTranslations
	case ActionKindOptimization:
		return premiumMonthlyOptimizations
	case ActionKindAIMessage:
		return premiumMonthlyAIMessages
	default:
		return 0
	}
}

// ParsePlan parses a string into a Plan
func ParsePlan(s string) (Plan, error) {
	p := Plan(s)
	if !p.IsValid() {
		return "", shared.NewDomainError("INVALID_PLAN", "Invalid plan: "+s)
	}
	return p, nil
}
