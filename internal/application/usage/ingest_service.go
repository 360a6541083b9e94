package usage

import (
	"context"

	"github.com/google/uuid"
	"github.com/recipefy/backend/internal/domain/shared"
	"github.com/recipefy/backend/internal/domain/usage"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// IngestService is the collaborator write path for the usage event log.
// Import pipelines and the assistant report their events here instead of
// writing to the store directly.
type IngestService struct {
	recorder          *EventRecorder
	idempotencyStore  shared.IdempotencyStore
	idempotencyConfig shared.IdempotencyConfig
	logger            *zap.Logger
}

// NewIngestService creates a new IngestService
func NewIngestService(recorder *EventRecorder, logger *zap.Logger) *IngestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IngestService{
		recorder:          recorder,
		idempotencyConfig: shared.DefaultIdempotencyConfig(),
		logger:            logger,
	}
}

// SetIdempotencyStore enables Idempotency-Key deduplication
func (s *IngestService) SetIdempotencyStore(store shared.IdempotencyStore, cfg shared.IdempotencyConfig) {
	s.idempotencyStore = store
	s.idempotencyConfig = cfg
}

// RecordEvent validates and appends one reported event. An already seen
// idempotency key acknowledges without appending. A failing idempotency
// store never blocks the append.
func (s *IngestService) RecordEvent(ctx context.Context, request RecordEventRequest, idempotencyKey string) (*RecordEventResponse, error) {
	fresh, err := s.claimKey(ctx, idempotencyKey)
	if err != nil {
		return nil, err
	}
	if !fresh {
		return &RecordEventResponse{Accepted: false}, nil
	}

	event, err := buildEvent(request)
	if err != nil {
		return nil, err
	}

	if err := s.recorder.Record(ctx, event); err != nil {
		return nil, err
	}
	return &RecordEventResponse{EventID: event.ID.String(), Accepted: true}, nil
}

// RecordEventBatch validates and appends the stage events of one pipeline
// run. The batch is all-or-nothing at validation time: one invalid entry
// rejects the whole batch before anything is appended. A single idempotency
// key covers the run.
func (s *IngestService) RecordEventBatch(ctx context.Context, request RecordEventBatchRequest, idempotencyKey string) (*RecordEventBatchResponse, error) {
	if len(request.Events) == 0 {
		return nil, shared.NewDomainError("EMPTY_BATCH", "Batch must contain at least one event")
	}

	fresh, err := s.claimKey(ctx, idempotencyKey)
	if err != nil {
		return nil, err
	}
	if !fresh {
		return &RecordEventBatchResponse{Accepted: 0}, nil
	}

	events := make([]*usage.UsageEvent, 0, len(request.Events))
	for _, entry := range request.Events {
		event, err := buildEvent(entry)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	if err := s.recorder.RecordBatch(ctx, events); err != nil {
		return nil, err
	}

	response := &RecordEventBatchResponse{
		EventIDs: make([]string, 0, len(events)),
		Accepted: len(events),
	}
	for _, event := range events {
		response.EventIDs = append(response.EventIDs, event.ID.String())
	}
	return response, nil
}

// claimKey reports whether the idempotency key is fresh. Blank keys and a
// disabled store are always fresh.
func (s *IngestService) claimKey(ctx context.Context, key string) (bool, error) {
	if key == "" || s.idempotencyStore == nil || !s.idempotencyConfig.Enabled {
		return true, nil
	}

	fresh, err := s.idempotencyStore.MarkProcessed(ctx, "usage:ingest:"+key, s.idempotencyConfig.TTL)
	if err != nil {
		s.logger.Warn("Idempotency check failed, accepting event anyway",
			zap.String("idempotency_key", key),
			zap.Error(err))
		return true, nil
	}
	if !fresh {
		s.logger.Debug("Duplicate ingest suppressed",
			zap.String("idempotency_key", key))
	}
	return fresh, nil
}

func buildEvent(request RecordEventRequest) (*usage.UsageEvent, error) {
	ownerID, err := uuid.Parse(request.OwnerID)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_OWNER", "Owner ID must be a valid UUID")
	}
	if request.ImportCreditsUsed < 0 || request.AICreditsUsed < 0 {
		return nil, shared.NewDomainError("INVALID_CREDITS", "Credit amounts cannot be negative")
	}
	if request.CostUSD < 0 {
		return nil, shared.NewDomainError("INVALID_COST", "Cost cannot be negative")
	}

	event, err := usage.NewUsageEvent(ownerID, usage.EventType(request.EventType))
	if err != nil {
		return nil, err
	}

	event.WithSource(request.Source).
		WithModel(request.ModelName).
		WithCredits(request.ImportCreditsUsed, request.AICreditsUsed)

	if request.CostUSD > 0 {
		event.WithCost(decimal.NewFromFloat(request.CostUSD))
	}
	if request.CreatedAt != nil {
		event.WithCreatedAt(*request.CreatedAt)
	}
	for key, value := range request.Metadata {
		event.WithMetadata(key, value)
	}
	event.WithUsageContext(request.UsageContext)

	return event, nil
}
