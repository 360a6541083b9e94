package usage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/recipefy/backend/internal/domain/shared"
	"github.com/recipefy/backend/internal/domain/usage"
	"github.com/recipefy/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ConsumeInput is one consumption attempt, resolved by the transport layer.
// OwnerID is the authenticated principal the attempt is charged to; uuid.Nil
// means identity could not be resolved and the attempt fails closed. Now is
// the evaluation instant and is passed in explicitly so trial-window and
// billing-period arithmetic stays deterministic under test.
type ConsumeInput struct {
	OwnerID  uuid.UUID
	Kind     string
	Quantity int64
	Consume  bool
	Now      time.Time
}

// GateService is the consume-action gate. It admits or denies metered actions
// against the owner's quota profile and monthly counter, and on admission
// debits the buckets in trial, add-on, plan order.
type GateService struct {
	txScope        TransactionScope
	profileRepo    usage.ProfileRepository
	counterRepo    usage.CounterRepository
	eventPublisher shared.EventPublisher
	usageMetrics   *telemetry.UsageMetrics
	logger         *zap.Logger
}

// NewGateService creates a new GateService
func NewGateService(
	txScope TransactionScope,
	profileRepo usage.ProfileRepository,
	counterRepo usage.CounterRepository,
	logger *zap.Logger,
) *GateService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GateService{
		txScope:     txScope,
		profileRepo: profileRepo,
		counterRepo: counterRepo,
		logger:      logger,
	}
}

// SetEventPublisher sets the event publisher for quota domain events
func (s *GateService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetUsageMetrics sets the usage metrics collector
func (s *GateService) SetUsageMetrics(metrics *telemetry.UsageMetrics) {
	s.usageMetrics = metrics
}

// ConsumeAction evaluates one consumption attempt and, unless it is a dry
// run, debits the owner's buckets and bumps the monthly counter. Check and
// mutation run in a single transaction with the profile row locked, so
// concurrent attempts for the same owner serialize and can never jointly
// overrun the available capacity. Policy outcomes are returned as Decision
// values; the error return is reserved for infrastructure failures.
func (s *GateService) ConsumeAction(ctx context.Context, input ConsumeInput) (usage.Decision, error) {
	decision, limitEvent, err := s.decide(ctx, input)
	if err != nil {
		s.logger.Error("Gate evaluation failed",
			zap.String("owner_id", input.OwnerID.String()),
			zap.String("kind", input.Kind),
			zap.Error(err))
		return nil, err
	}

	s.recordDecision(ctx, input, decision)

	if limitEvent != nil && s.eventPublisher != nil {
		_ = s.eventPublisher.Publish(ctx, limitEvent)
	}
	return decision, nil
}

func (s *GateService) decide(ctx context.Context, input ConsumeInput) (usage.Decision, shared.DomainEvent, error) {
	if input.OwnerID == uuid.Nil {
		return usage.Denied{Reason: usage.DenyNotAuthenticated}, nil, nil
	}
	if input.Quantity <= 0 {
		return usage.Denied{Reason: usage.DenyInvalidQuantity}, nil, nil
	}

	now := input.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	kind := usage.ActionKind(input.Kind)

	var decision usage.Decision
	var limitEvent shared.DomainEvent

	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		profile, err := repos.ProfileRepo().FindByOwnerForUpdate(ctx, input.OwnerID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				decision = usage.Denied{Reason: usage.DenyProfileMissing}
				return nil
			}
			return err
		}

		// The AI kill switch is checked before kind validation: an unknown
		// kind is not an AI kind, so it falls through to unknownAction below.
		if kind.IsAI() && profile.AIDisabled {
			decision = usage.Denied{Reason: usage.DenyAIDisabled}
			return nil
		}
		if !kind.IsValid() {
			decision = usage.Denied{Reason: usage.DenyUnknownAction}
			return nil
		}

		planLimit := profile.Plan.MonthlyAllowance(kind)
		addonRemaining := profile.Bucket(kind).AddonRemaining
		trialRemaining := profile.TrialRemaining(kind, now)

		counter, err := repos.CounterRepo().GetOrCreate(ctx, input.OwnerID, usage.PeriodStartFor(now))
		if err != nil {
			return err
		}
		used := counter.Used(kind)

		available := planLimit + addonRemaining + trialRemaining
		remaining := max(available-used, 0)

		if used+input.Quantity > available {
			decision = usage.Denied{Reason: usage.DenyLimitReached, Available: remaining}
			limitEvent = usage.NewQuotaLimitReachedEvent(profile, kind, input.Quantity, remaining)
			return nil
		}

		if !input.Consume {
			decision = usage.Allowed{Available: remaining}
			return nil
		}

		if err := repos.CounterRepo().Increment(ctx, counter.ID, kind, input.Quantity); err != nil {
			return err
		}

		alloc := usage.AllocateDebit(input.Quantity, trialRemaining, addonRemaining)
		if err := profile.ApplyDebit(kind, alloc.Trial, alloc.Addon); err != nil {
			return err
		}
		if err := repos.ProfileRepo().Save(ctx, profile); err != nil {
			return err
		}

		decision = usage.Consumed{UsedTrial: alloc.Trial, UsedAddon: alloc.Addon, UsedPlan: alloc.Plan}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return decision, limitEvent, nil
}

func (s *GateService) recordDecision(ctx context.Context, input ConsumeInput, decision usage.Decision) {
	switch d := decision.(type) {
	case usage.Consumed:
		s.logger.Debug("Consumption admitted",
			zap.String("owner_id", input.OwnerID.String()),
			zap.String("kind", input.Kind),
			zap.Int64("quantity", input.Quantity),
			zap.Int64("used_trial", d.UsedTrial),
			zap.Int64("used_addon", d.UsedAddon),
			zap.Int64("used_plan", d.UsedPlan))
		if s.usageMetrics != nil {
			s.usageMetrics.RecordGateDecision(ctx, input.Kind, telemetry.GateOutcomeConsumed, "")
		}
	case usage.Allowed:
		if s.usageMetrics != nil {
			s.usageMetrics.RecordGateDecision(ctx, input.Kind, telemetry.GateOutcomeAllowed, "")
		}
	case usage.Denied:
		s.logger.Debug("Consumption denied",
			zap.String("owner_id", input.OwnerID.String()),
			zap.String("kind", input.Kind),
			zap.Int64("quantity", input.Quantity),
			zap.String("reason", d.Reason.String()))
		if s.usageMetrics != nil {
			s.usageMetrics.RecordGateDecision(ctx, input.Kind, telemetry.GateOutcomeDenied, d.Reason.String())
		}
	}
}

// GetQuotaStatus builds the read-only per-kind quota snapshot for one owner
// at the given instant. It never mutates state; a missing counter simply
// means nothing was consumed this period.
func (s *GateService) GetQuotaStatus(ctx context.Context, ownerID uuid.UUID, now time.Time) (*QuotaStatusResponse, error) {
	if ownerID == uuid.Nil {
		return nil, shared.ErrUnauthorized
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	profile, err := s.profileRepo.FindByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	counter, err := s.counterRepo.FindByOwnerAndPeriod(ctx, ownerID, usage.PeriodStartFor(now))
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	response := &QuotaStatusResponse{
		Plan:        profile.Plan.String(),
		TrialEndsAt: profile.TrialEndsAt,
		TrialActive: profile.TrialActive(now),
		AIDisabled:  profile.AIDisabled,
		PeriodStart: usage.PeriodStartFor(now),
		Kinds:       make(map[string]KindStatus, len(usage.AllActionKinds())),
	}

	for _, kind := range usage.AllActionKinds() {
		planLimit := profile.Plan.MonthlyAllowance(kind)
		addonRemaining := profile.Bucket(kind).AddonRemaining
		trialRemaining := profile.TrialRemaining(kind, now)

		var used int64
		if counter != nil {
			used = counter.Used(kind)
		}

		available := planLimit + addonRemaining + trialRemaining
		response.Kinds[kind.String()] = KindStatus{
			PlanLimit:      planLimit,
			TrialRemaining: trialRemaining,
			AddonRemaining: addonRemaining,
			UsedThisPeriod: used,
			Available:      max(available-used, 0),
		}
	}
	return response, nil
}
