package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/recipefy/backend/internal/domain/shared"
	"github.com/recipefy/backend/internal/domain/usage"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
	"go.uber.org/zap"
)

// Metadata keys our checkout flows stamp on Stripe objects
const (
	metadataKeyOwnerID    = "owner_id"
	metadataKeyActionKind = "action_kind"
	metadataKeyCredits    = "credits"
)

// StripeWebhookService handles Stripe webhook events. Subscription events
// drive the plan tier of the owner's quota profile; payment intents tagged
// with add-on metadata credit purchased packs.
type StripeWebhookService struct {
	webhookSecret string
	profileSync   *ProfileSyncService
	profileRepo   usage.ProfileRepository
	eventBus      shared.EventPublisher
	logger        *zap.Logger
}

// StripeWebhookServiceConfig contains configuration for StripeWebhookService
type StripeWebhookServiceConfig struct {
	WebhookSecret string
	ProfileSync   *ProfileSyncService
	ProfileRepo   usage.ProfileRepository
	EventBus      shared.EventPublisher
	Logger        *zap.Logger
}

// NewStripeWebhookService creates a new StripeWebhookService
func NewStripeWebhookService(cfg StripeWebhookServiceConfig) *StripeWebhookService {
	return &StripeWebhookService{
		webhookSecret: cfg.WebhookSecret,
		profileSync:   cfg.ProfileSync,
		profileRepo:   cfg.ProfileRepo,
		eventBus:      cfg.EventBus,
		logger:        cfg.Logger,
	}
}

// WebhookResult contains the result of processing a webhook
type WebhookResult struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	Processed bool   `json:"processed"`
	Message   string `json:"message,omitempty"`
}

// ProcessWebhook processes a Stripe webhook event
func (s *StripeWebhookService) ProcessWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	// Verify webhook signature
	event, err := webhook.ConstructEvent(payload, signature, s.webhookSecret)
	if err != nil {
		s.logger.Error("Failed to verify webhook signature",
			zap.Error(err))
		return nil, fmt.Errorf("webhook signature verification failed: %w", err)
	}

	s.logger.Info("Processing Stripe webhook event",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)))

	result := &WebhookResult{
		EventID:   event.ID,
		EventType: string(event.Type),
		Processed: true,
	}

	// Handle different event types
	switch event.Type {
	case "customer.subscription.created":
		err = s.handleSubscriptionCreated(ctx, event)
	case "customer.subscription.updated":
		err = s.handleSubscriptionUpdated(ctx, event)
	case "customer.subscription.deleted":
		err = s.handleSubscriptionDeleted(ctx, event)
	case "payment_intent.succeeded":
		err = s.handlePaymentIntentSucceeded(ctx, event)
	default:
		s.logger.Debug("Unhandled webhook event type",
			zap.String("event_type", string(event.Type)))
		result.Message = "Event type not handled"
	}

	if err != nil {
		s.logger.Error("Failed to process webhook event",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
		result.Processed = false
		result.Message = err.Error()
		return result, err
	}

	return result, nil
}

// handleSubscriptionCreated handles customer.subscription.created events
func (s *StripeWebhookService) handleSubscriptionCreated(ctx context.Context, event stripe.Event) error {
	var subscription stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &subscription); err != nil {
		return fmt.Errorf("failed to unmarshal subscription: %w", err)
	}

	ownerID, ok := ownerFromMetadata(subscription.Metadata)
	if !ok {
		// Note: subscriptions without an owner tag are not ours to track.
		// We acknowledge receipt to prevent Stripe retries.
		s.logger.Warn("Subscription has no owner metadata, skipping",
			zap.String("subscription_id", subscription.ID))
		return nil
	}

	s.logger.Info("Handling subscription created",
		zap.String("subscription_id", subscription.ID),
		zap.String("owner_id", ownerID.String()),
		zap.String("status", string(subscription.Status)))

	// Webhooks can be the first sight of an owner, so bootstrap if needed
	profile, err := s.profileSync.EnsureProfile(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("failed to ensure quota profile: %w", err)
	}

	s.applySubscriptionState(profile, &subscription)

	if err := s.profileRepo.Save(ctx, profile); err != nil {
		return fmt.Errorf("failed to save quota profile: %w", err)
	}

	// Publish domain event
	s.publishPlanEvent(ctx, profile, "subscription_created", subscription.ID)

	s.logger.Info("Subscription created processed successfully",
		zap.String("owner_id", ownerID.String()),
		zap.String("subscription_id", subscription.ID))

	return nil
}

// handleSubscriptionUpdated handles customer.subscription.updated events
func (s *StripeWebhookService) handleSubscriptionUpdated(ctx context.Context, event stripe.Event) error {
	var subscription stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &subscription); err != nil {
		return fmt.Errorf("failed to unmarshal subscription: %w", err)
	}

	ownerID, ok := ownerFromMetadata(subscription.Metadata)
	if !ok {
		s.logger.Warn("Subscription has no owner metadata, skipping",
			zap.String("subscription_id", subscription.ID))
		return nil
	}

	s.logger.Info("Handling subscription updated",
		zap.String("subscription_id", subscription.ID),
		zap.String("owner_id", ownerID.String()),
		zap.String("status", string(subscription.Status)))

	// Updates can arrive before the created event, so bootstrap here too
	profile, err := s.profileSync.EnsureProfile(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("failed to ensure quota profile: %w", err)
	}

	s.applySubscriptionState(profile, &subscription)

	if err := s.profileRepo.Save(ctx, profile); err != nil {
		return fmt.Errorf("failed to save quota profile: %w", err)
	}

	// Publish domain event
	s.publishPlanEvent(ctx, profile, "subscription_updated", subscription.ID)

	s.logger.Info("Subscription updated processed successfully",
		zap.String("owner_id", ownerID.String()),
		zap.String("subscription_id", subscription.ID))

	return nil
}

// handleSubscriptionDeleted handles customer.subscription.deleted events
func (s *StripeWebhookService) handleSubscriptionDeleted(ctx context.Context, event stripe.Event) error {
	var subscription stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &subscription); err != nil {
		return fmt.Errorf("failed to unmarshal subscription: %w", err)
	}

	ownerID, ok := ownerFromMetadata(subscription.Metadata)
	if !ok {
		s.logger.Warn("Subscription has no owner metadata, skipping",
			zap.String("subscription_id", subscription.ID))
		return nil
	}

	s.logger.Info("Handling subscription deleted",
		zap.String("subscription_id", subscription.ID),
		zap.String("owner_id", ownerID.String()))

	profile, err := s.profileRepo.FindByOwner(ctx, ownerID)
	if err != nil {
		if err == shared.ErrNotFound {
			// Note: ErrNotFound is not treated as an error because the owner may
			// never have touched the service. We acknowledge receipt to prevent
			// Stripe retries.
			s.logger.Warn("Quota profile not found for owner",
				zap.String("owner_id", ownerID.String()))
			return nil
		}
		return fmt.Errorf("failed to find quota profile: %w", err)
	}

	// Downgrade to the base tier
	if err := profile.ChangePlan(usage.PlanBase); err != nil {
		s.logger.Warn("Failed to downgrade plan", zap.Error(err))
	}

	if err := s.profileRepo.Save(ctx, profile); err != nil {
		return fmt.Errorf("failed to save quota profile: %w", err)
	}

	// Publish domain event
	s.publishPlanEvent(ctx, profile, "subscription_deleted", subscription.ID)

	s.logger.Info("Subscription deleted processed successfully",
		zap.String("owner_id", ownerID.String()),
		zap.String("subscription_id", subscription.ID))

	return nil
}

// handlePaymentIntentSucceeded handles payment_intent.succeeded events
// carrying add-on purchase metadata
func (s *StripeWebhookService) handlePaymentIntentSucceeded(ctx context.Context, event stripe.Event) error {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return fmt.Errorf("failed to unmarshal payment intent: %w", err)
	}

	ownerID, ok := ownerFromMetadata(intent.Metadata)
	if !ok {
		// Payment intents without quota metadata belong to other flows
		s.logger.Debug("Payment intent has no owner metadata, skipping",
			zap.String("payment_intent_id", intent.ID))
		return nil
	}

	kind, err := usage.ParseActionKind(intent.Metadata[metadataKeyActionKind])
	if err != nil {
		s.logger.Warn("Payment intent carries unknown action kind, skipping",
			zap.String("payment_intent_id", intent.ID),
			zap.String("action_kind", intent.Metadata[metadataKeyActionKind]))
		return nil
	}

	credits, err := strconv.ParseInt(intent.Metadata[metadataKeyCredits], 10, 64)
	if err != nil || credits <= 0 {
		s.logger.Warn("Payment intent carries invalid credits, skipping",
			zap.String("payment_intent_id", intent.ID),
			zap.String("credits", intent.Metadata[metadataKeyCredits]))
		return nil
	}

	s.logger.Info("Handling add-on purchase",
		zap.String("payment_intent_id", intent.ID),
		zap.String("owner_id", ownerID.String()),
		zap.String("kind", kind.String()),
		zap.Int64("credits", credits))

	profile, err := s.profileSync.EnsureProfile(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("failed to ensure quota profile: %w", err)
	}

	if err := profile.GrantAddon(kind, credits); err != nil {
		return fmt.Errorf("failed to grant add-on credits: %w", err)
	}

	if err := s.profileRepo.Save(ctx, profile); err != nil {
		return fmt.Errorf("failed to save quota profile: %w", err)
	}

	// Publish domain event
	s.publishAddonEvent(ctx, profile, kind, credits, intent.ID)

	s.logger.Info("Add-on purchase processed successfully",
		zap.String("owner_id", ownerID.String()),
		zap.String("payment_intent_id", intent.ID),
		zap.Int64("credits", credits))

	return nil
}

// applySubscriptionState moves the profile to the tier the subscription
// entitles and aligns the trial window with Stripe's trial end
func (s *StripeWebhookService) applySubscriptionState(profile *usage.QuotaProfile, subscription *stripe.Subscription) {
	switch subscription.Status {
	case stripe.SubscriptionStatusActive, stripe.SubscriptionStatusTrialing:
		if err := profile.ChangePlan(usage.PlanPremium); err != nil {
			s.logger.Warn("Failed to change plan", zap.Error(err))
		}
	case stripe.SubscriptionStatusPastDue, stripe.SubscriptionStatusUnpaid:
		// Keep the current tier but log the payment issue
		s.logger.Warn("Subscription payment issue",
			zap.String("owner_id", profile.OwnerID.String()),
			zap.String("status", string(subscription.Status)))
	case stripe.SubscriptionStatusCanceled:
		// Downgrade happens on the subscription.deleted event
		s.logger.Info("Subscription canceled",
			zap.String("owner_id", profile.OwnerID.String()))
	}

	// StartTrial rejects instants in the past, so only sync open windows
	if subscription.TrialEnd > 0 {
		trialEndsAt := time.Unix(subscription.TrialEnd, 0)
		if trialEndsAt.After(time.Now()) {
			if err := profile.StartTrial(trialEndsAt, defaultTrialTotals()); err != nil {
				s.logger.Warn("Failed to sync trial window", zap.Error(err))
			}
		}
	}
}

// ownerFromMetadata resolves the owner UUID carried in the object's metadata.
// Checkout flows stamp owner_id on every Stripe object they create.
func ownerFromMetadata(metadata map[string]string) (uuid.UUID, bool) {
	raw, ok := metadata[metadataKeyOwnerID]
	if !ok || raw == "" {
		return uuid.Nil, false
	}
	ownerID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return ownerID, true
}

// publishPlanEvent publishes a plan-sync domain event
func (s *StripeWebhookService) publishPlanEvent(ctx context.Context, profile *usage.QuotaProfile, action, subscriptionID string) {
	if s.eventBus == nil {
		return
	}

	event := NewPlanSyncedEvent(profile, action, subscriptionID)
	if err := s.eventBus.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish plan sync event",
			zap.String("action", action),
			zap.Error(err))
	}
}

// publishAddonEvent publishes an add-on grant domain event
func (s *StripeWebhookService) publishAddonEvent(ctx context.Context, profile *usage.QuotaProfile, kind usage.ActionKind, credits int64, paymentIntentID string) {
	if s.eventBus == nil {
		return
	}

	event := NewAddonGrantedEvent(profile, kind, credits, paymentIntentID)
	if err := s.eventBus.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish add-on grant event",
			zap.String("payment_intent_id", paymentIntentID),
			zap.Error(err))
	}
}
