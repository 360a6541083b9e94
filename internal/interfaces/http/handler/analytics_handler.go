package handler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/recipefy/backend/internal/application/analytics"
)

// AnalyticsHandler handles the admin usage dashboard endpoints
type AnalyticsHandler struct {
	BaseHandler
	summaries SummaryBuilder
	exports   SummaryExporter
}

// SummaryBuilder interface for building usage summaries
type SummaryBuilder interface {
	BuildSummary(ctx context.Context, query analytics.SummaryQuery, now time.Time) (*analytics.UsageSummary, error)
}

// SummaryExporter interface for exporting usage summaries
type SummaryExporter interface {
	ExportSummary(ctx context.Context, query analytics.SummaryQuery, now time.Time) (*analytics.ExportResult, error)
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(summaries SummaryBuilder, exports SummaryExporter) *AnalyticsHandler {
	return &AnalyticsHandler{
		summaries: summaries,
		exports:   exports,
	}
}

// ============================================================================
// Request/Response DTOs
// ============================================================================

// ExportSummaryRequest selects the data included in one export
//
//	@Description	Filters and date range for a usage export
type ExportSummaryRequest struct {
	UserID       string `json:"userId" binding:"omitempty,uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	EventType    string `json:"eventType" example:"recipeImport"`
	Source       string `json:"source" example:"web"`
	Model        string `json:"model" example:"gpt-4o-mini"`
	UsageContext string `json:"usageContext" example:"importFlow"`
	Start        string `json:"start" example:"2024-01-01"`
	End          string `json:"end" example:"2024-01-31"`
}

func (r ExportSummaryRequest) toQuery() analytics.SummaryQuery {
	return analytics.SummaryQuery{
		OwnerID:      r.UserID,
		EventType:    r.EventType,
		Source:       r.Source,
		Model:        r.Model,
		UsageContext: r.UsageContext,
		Start:        r.Start,
		End:          r.End,
	}
}

// ============================================================================
// Handlers
// ============================================================================

// GetUsageSummary godoc
//
//	@ID				getUsageSummary
//	@Summary		Get the usage summary for the admin dashboard
//	@Description	Aggregates usage events over the requested range into per-day series and breakdowns. Defaults to the trailing 30 days when no range is given. Dates accept several common layouts; an unreadable date is rejected with the offending text.
//	@Tags			analytics
//	@Produce		json
//	@Param			userId			query		string	false	"Restrict to one user"
//	@Param			eventType		query		string	false	"Restrict to one event type"
//	@Param			source			query		string	false	"Restrict to one source"
//	@Param			model			query		string	false	"Restrict to one model"
//	@Param			usageContext	query		string	false	"Restrict to one usage context"
//	@Param			start			query		string	false	"Range start date"	example(2024-01-01)
//	@Param			end				query		string	false	"Range end date"	example(2024-01-31)
//	@Success		200				{object}	APIResponse[analytics.UsageSummary]
//	@Failure		400				{object}	ErrorResponse
//	@Failure		401				{object}	ErrorResponse
//	@Failure		403				{object}	ErrorResponse
//	@Failure		500				{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/admin/usage/summary [get]
func (h *AnalyticsHandler) GetUsageSummary(c *gin.Context) {
	var query analytics.SummaryQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	summary, err := h.summaries.BuildSummary(c.Request.Context(), query, time.Now().UTC())
	if err != nil {
		var invalidDate *analytics.InvalidDateError
		if errors.As(err, &invalidDate) {
			h.BadRequest(c, invalidDate.Error())
			return
		}
		slog.Error("failed to build usage summary", "error", err)
		h.InternalError(c, "Failed to build usage summary")
		return
	}

	h.Success(c, summary)
}

// ExportUsageSummary godoc
//
//	@ID				exportUsageSummary
//	@Summary		Export a usage summary as CSV
//	@Description	Builds the summary for the requested range, renders it to CSV and uploads it to object storage. Responds with the storage key and a short-lived download link.
//	@Tags			analytics
//	@Accept			json
//	@Produce		json
//	@Param			request	body		ExportSummaryRequest	true	"Export filters"
//	@Success		201		{object}	APIResponse[analytics.ExportResult]
//	@Failure		400		{object}	ErrorResponse
//	@Failure		401		{object}	ErrorResponse
//	@Failure		403		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/admin/usage/exports [post]
func (h *AnalyticsHandler) ExportUsageSummary(c *gin.Context) {
	var request ExportSummaryRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.exports.ExportSummary(c.Request.Context(), request.toQuery(), time.Now().UTC())
	if err != nil {
		var invalidDate *analytics.InvalidDateError
		if errors.As(err, &invalidDate) {
			h.BadRequest(c, invalidDate.Error())
			return
		}
		slog.Error("failed to export usage summary", "error", err)
		h.InternalError(c, "Failed to export usage summary")
		return
	}

	h.Created(c, result)
}
