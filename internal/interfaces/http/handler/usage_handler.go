package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	usageapp "github.com/recipefy/backend/internal/application/usage"
	"github.com/recipefy/backend/internal/domain/usage"
	"github.com/recipefy/backend/internal/infrastructure/auth"
	"github.com/recipefy/backend/internal/interfaces/http/middleware"
)

// UsageHandler handles quota gate and quota status HTTP requests
type UsageHandler struct {
	BaseHandler
	gate     ActionGate
	profiles ProfileEnsurer
}

// ActionGate interface for quota decisions and snapshots
type ActionGate interface {
	ConsumeAction(ctx context.Context, input usageapp.ConsumeInput) (usage.Decision, error)
	GetQuotaStatus(ctx context.Context, ownerID uuid.UUID, now time.Time) (*usageapp.QuotaStatusResponse, error)
}

// ProfileEnsurer interface for quota profile bootstrap
type ProfileEnsurer interface {
	EnsureProfile(ctx context.Context, ownerID uuid.UUID) (*usage.QuotaProfile, error)
}

// NewUsageHandler creates a new usage handler
func NewUsageHandler(gate ActionGate, profiles ProfileEnsurer) *UsageHandler {
	return &UsageHandler{
		gate:     gate,
		profiles: profiles,
	}
}

// ============================================================================
// Handlers
// ============================================================================

// ConsumeAction godoc
//
//	@ID				consumeUsageAction
//	@Summary		Check and consume quota for a billable action
//	@Description	Evaluates one consumption attempt against the owner's quota and, unless consume=false, debits the matching bucket. Callable with a service key (ownerId taken from the body) or an end-user token (ownerId forced to the token subject). Denials are regular 200 responses carrying a reason.
//	@Tags			usage
//	@Accept			json
//	@Produce		json
//	@Param			request	body		usage.ConsumeActionRequest	true	"Consumption attempt"
//	@Success		200		{object}	APIResponse[usage.QuotaDecisionResponse]
//	@Failure		400		{object}	ErrorResponse
//	@Failure		401		{object}	ErrorResponse
//	@Failure		403		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/internal/usage/consume [post]
func (h *UsageHandler) ConsumeAction(c *gin.Context) {
	var request usageapp.ConsumeActionRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	ownerID, ok := h.resolveConsumeOwner(c, request.OwnerID)
	if !ok {
		return
	}

	decision, err := h.gate.ConsumeAction(c.Request.Context(), usageapp.ConsumeInput{
		OwnerID:  ownerID,
		Kind:     request.ActionKind,
		Quantity: request.Quantity,
		Consume:  request.ShouldConsume(),
		Now:      time.Now().UTC(),
	})
	if err != nil {
		slog.Error("gate evaluation failed", "owner_id", ownerID, "kind", request.ActionKind, "error", err)
		h.HandleError(c, err)
		return
	}

	h.Success(c, usageapp.ToQuotaDecisionResponse(decision))
}

// resolveConsumeOwner decides which owner the attempt is charged to. A
// service caller names the owner in the body; an end-user token pins it to
// the token subject, and a conflicting body value is rejected rather than
// silently overridden. Returns false after writing the error response.
func (h *UsageHandler) resolveConsumeOwner(c *gin.Context, bodyOwnerID string) (uuid.UUID, bool) {
	if identity := middleware.GetServiceIdentity(c); identity != nil {
		if !identity.HasScope(auth.ScopeUsageConsume) {
			h.Forbidden(c, "Service key lacks the usage:consume scope")
			return uuid.Nil, false
		}
		ownerID, err := uuid.Parse(bodyOwnerID)
		if err != nil {
			// The gate fails closed on uuid.Nil, so an unreadable owner
			// surfaces as a notAuthenticated denial rather than a 4xx.
			return uuid.Nil, true
		}
		return ownerID, true
	}

	subject, err := getOwnerID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return uuid.Nil, false
	}
	if bodyOwnerID != "" && bodyOwnerID != subject.String() {
		h.Forbidden(c, "ownerId does not match the authenticated user")
		return uuid.Nil, false
	}
	return subject, true
}

// GetQuotaStatus godoc
//
//	@ID				getQuotaStatus
//	@Summary		Get the quota snapshot for the authenticated user
//	@Description	Returns the plan, trial window and per-kind remaining capacity for the authenticated user. Creates a base-plan profile on first sight so new users always get a full snapshot.
//	@Tags			usage
//	@Produce		json
//	@Success		200	{object}	APIResponse[usage.QuotaStatusResponse]
//	@Failure		401	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/usage/status [get]
func (h *UsageHandler) GetQuotaStatus(c *gin.Context) {
	ownerID, err := getOwnerID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	ctx := c.Request.Context()
	if _, err := h.profiles.EnsureProfile(ctx, ownerID); err != nil {
		slog.Error("failed to ensure quota profile", "owner_id", ownerID, "error", err)
		h.InternalError(c, "Failed to load quota status")
		return
	}

	status, err := h.gate.GetQuotaStatus(ctx, ownerID, time.Now().UTC())
	if err != nil {
		slog.Error("failed to build quota status", "owner_id", ownerID, "error", err)
		h.InternalError(c, "Failed to load quota status")
		return
	}

	h.Success(c, status)
}
