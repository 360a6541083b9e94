package handler

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"
	usageapp "github.com/recipefy/backend/internal/application/usage"
)

// IdempotencyKeyHeader carries the caller-chosen deduplication key
const IdempotencyKeyHeader = "Idempotency-Key"

// UsageEventHandler handles the collaborator event ingest endpoints
type UsageEventHandler struct {
	BaseHandler
	ingestor EventIngestor
}

// EventIngestor interface for appending usage events
type EventIngestor interface {
	RecordEvent(ctx context.Context, request usageapp.RecordEventRequest, idempotencyKey string) (*usageapp.RecordEventResponse, error)
	RecordEventBatch(ctx context.Context, request usageapp.RecordEventBatchRequest, idempotencyKey string) (*usageapp.RecordEventBatchResponse, error)
}

// NewUsageEventHandler creates a new usage event handler
func NewUsageEventHandler(ingestor EventIngestor) *UsageEventHandler {
	return &UsageEventHandler{
		ingestor: ingestor,
	}
}

// RecordEvent godoc
//
//	@ID				recordUsageEvent
//	@Summary		Record one usage event
//	@Description	Appends a single usage event reported by a collaborator service. Repeating a request with the same Idempotency-Key acknowledges without appending again.
//	@Tags			usage-events
//	@Accept			json
//	@Produce		json
//	@Param			Idempotency-Key	header		string						false	"Deduplication key, unique per logical event"
//	@Param			request			body		usage.RecordEventRequest	true	"Usage event"
//	@Success		202				{object}	APIResponse[usage.RecordEventResponse]
//	@Failure		400				{object}	ErrorResponse
//	@Failure		401				{object}	ErrorResponse
//	@Failure		403				{object}	ErrorResponse
//	@Failure		500				{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/internal/usage/events [post]
func (h *UsageEventHandler) RecordEvent(c *gin.Context) {
	var request usageapp.RecordEventRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	response, err := h.ingestor.RecordEvent(c.Request.Context(), request, c.GetHeader(IdempotencyKeyHeader))
	if err != nil {
		slog.Error("failed to record usage event", "owner_id", request.OwnerID, "event_type", request.EventType, "error", err)
		h.HandleError(c, err)
		return
	}

	h.Accepted(c, response)
}

// RecordEventBatch godoc
//
//	@ID				recordUsageEventBatch
//	@Summary		Record a batch of usage events
//	@Description	Appends the stage events of one pipeline run in a single call. The batch shares one Idempotency-Key; a replay acknowledges without appending any of the events again.
//	@Tags			usage-events
//	@Accept			json
//	@Produce		json
//	@Param			Idempotency-Key	header		string							false	"Deduplication key, unique per pipeline run"
//	@Param			request			body		usage.RecordEventBatchRequest	true	"Usage events, at most 100"
//	@Success		202				{object}	APIResponse[usage.RecordEventBatchResponse]
//	@Failure		400				{object}	ErrorResponse
//	@Failure		401				{object}	ErrorResponse
//	@Failure		403				{object}	ErrorResponse
//	@Failure		500				{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/internal/usage/events/batch [post]
func (h *UsageEventHandler) RecordEventBatch(c *gin.Context) {
	var request usageapp.RecordEventBatchRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	response, err := h.ingestor.RecordEventBatch(c.Request.Context(), request, c.GetHeader(IdempotencyKeyHeader))
	if err != nil {
		slog.Error("failed to record usage event batch", "events", len(request.Events), "error", err)
		h.HandleError(c, err)
		return
	}

	h.Accepted(c, response)
}
