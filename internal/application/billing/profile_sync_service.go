package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/recipefy/backend/internal/domain/shared"
	"github.com/recipefy/backend/internal/domain/usage"
	"go.uber.org/zap"
)

// DefaultTrialWindow is how long a freshly created profile's trial stays open
const DefaultTrialWindow = 7 * 24 * time.Hour

// defaultTrialTotals returns the per-kind trial allowances granted to a new
// profile. These are one-time balances, not monthly allotments.
func defaultTrialTotals() map[usage.ActionKind]int64 {
	return map[usage.ActionKind]int64{
		usage.ActionKindImport:       3,
		usage.ActionKindTranslation:  3,
		usage.ActionKindOptimization: 3,
		usage.ActionKindAIMessage:    10,
	}
}

// ProfileSyncService bootstraps quota profiles on first sight of an owner.
// Both the webhook handlers and the quota status endpoint go through it, so
// a user gets a trial profile whichever surface touches them first.
type ProfileSyncService struct {
	profileRepo usage.ProfileRepository
	logger      *zap.Logger
}

// NewProfileSyncService creates a new ProfileSyncService
func NewProfileSyncService(profileRepo usage.ProfileRepository, logger *zap.Logger) *ProfileSyncService {
	return &ProfileSyncService{
		profileRepo: profileRepo,
		logger:      logger,
	}
}

// EnsureProfile returns the owner's quota profile, creating a base-plan
// profile with the default trial grant when none exists yet
func (s *ProfileSyncService) EnsureProfile(ctx context.Context, ownerID uuid.UUID) (*usage.QuotaProfile, error) {
	profile, err := s.profileRepo.FindByOwner(ctx, ownerID)
	if err == nil {
		return profile, nil
	}
	if err != shared.ErrNotFound {
		return nil, fmt.Errorf("failed to find quota profile: %w", err)
	}

	profile, err = usage.NewQuotaProfile(ownerID, usage.PlanBase)
	if err != nil {
		return nil, err
	}
	if err := profile.StartTrial(time.Now().Add(DefaultTrialWindow), defaultTrialTotals()); err != nil {
		return nil, err
	}

	if err := s.profileRepo.Save(ctx, profile); err != nil {
		// Two callers can race on first sight of the same owner. The loser's
		// insert trips the unique owner index, so refetch before failing.
		if existing, findErr := s.profileRepo.FindByOwner(ctx, ownerID); findErr == nil {
			return existing, nil
		}
		return nil, fmt.Errorf("failed to save quota profile: %w", err)
	}

	s.logger.Info("Quota profile created with trial grant",
		zap.String("owner_id", ownerID.String()),
		zap.Time("trial_ends_at", *profile.TrialEndsAt))

	return profile, nil
}
