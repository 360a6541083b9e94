package usage

import (
	"context"
	"sync"
	"time"

	"github.com/recipefy/backend/internal/domain/shared"
	"github.com/recipefy/backend/internal/domain/usage"
	"github.com/recipefy/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// RecorderConfig holds configuration for the usage event recorder.
type RecorderConfig struct {
	// Async enables the buffered background writer. When false every record
	// is appended inline, which tests and small deployments rely on.
	Async bool
	// BufferSize is the size of the async write buffer.
	BufferSize int
	// BatchSize is the number of events to batch before writing.
	BatchSize int
	// FlushInterval is the maximum time to wait before flushing the buffer.
	FlushInterval time.Duration
}

// DefaultRecorderConfig returns default recorder configuration.
func DefaultRecorderConfig() RecorderConfig {
	return RecorderConfig{
		Async:         true,
		BufferSize:    10000,
		BatchSize:     100,
		FlushInterval: 5 * time.Second,
	}
}

// EventRecorder appends usage events to the log. In async mode events are
// buffered and written in batches by a background goroutine; the buffer is
// drained on Stop, and events arriving while the buffer is full are dropped
// with a warning rather than blocking the caller. Successful appends publish
// a UsageEventRecorded event per usage event.
type EventRecorder struct {
	config       RecorderConfig
	repository   usage.UsageEventRepository
	publisher    shared.EventPublisher
	usageMetrics *telemetry.UsageMetrics
	logger       *zap.Logger
	buffer       chan *usage.UsageEvent
	wg           sync.WaitGroup
	stopCh       chan struct{}
	mu           sync.RWMutex
	running      bool
}

// NewEventRecorder creates a new EventRecorder
func NewEventRecorder(cfg RecorderConfig, repository usage.UsageEventRepository, logger *zap.Logger) *EventRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultRecorderConfig().BufferSize
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultRecorderConfig().BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultRecorderConfig().FlushInterval
	}

	return &EventRecorder{
		config:     cfg,
		repository: repository,
		logger:     logger,
		buffer:     make(chan *usage.UsageEvent, cfg.BufferSize),
		stopCh:     make(chan struct{}),
	}
}

// SetEventPublisher sets the publisher notified after successful appends
func (r *EventRecorder) SetEventPublisher(publisher shared.EventPublisher) {
	r.publisher = publisher
}

// SetUsageMetrics sets the usage metrics collector
func (r *EventRecorder) SetUsageMetrics(metrics *telemetry.UsageMetrics) {
	r.usageMetrics = metrics
}

// Start begins the background batch writer. A no-op in sync mode.
func (r *EventRecorder) Start() {
	if !r.config.Async {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return
	}
	r.running = true
	r.wg.Add(1)
	go r.batchWriter()

	r.logger.Info("Usage event recorder started",
		zap.Int("buffer_size", r.config.BufferSize),
		zap.Int("batch_size", r.config.BatchSize),
		zap.Duration("flush_interval", r.config.FlushInterval))
}

// Stop gracefully stops the recorder, flushing remaining events.
func (r *EventRecorder) Stop(ctx context.Context) error {
	if !r.config.Async {
		return nil
	}

	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	r.mu.Unlock()

	r.logger.Info("Stopping usage event recorder...")
	close(r.stopCh)

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("Usage event recorder stopped gracefully")
		return nil
	case <-ctx.Done():
		r.logger.Warn("Usage event recorder stop timed out")
		return ctx.Err()
	}
}

// Record appends one usage event. In sync mode the append happens inline and
// its error is returned; in async mode the event is buffered and a full
// buffer drops it.
func (r *EventRecorder) Record(ctx context.Context, event *usage.UsageEvent) error {
	if !r.config.Async {
		if err := r.repository.Append(ctx, event); err != nil {
			return err
		}
		if r.usageMetrics != nil {
			r.usageMetrics.RecordEventsIngested(ctx, 1)
		}
		r.notify(ctx, event)
		return nil
	}

	r.mu.RLock()
	running := r.running
	r.mu.RUnlock()
	if !running {
		return shared.NewDomainError("RECORDER_STOPPED", "Usage event recorder is not running")
	}

	select {
	case r.buffer <- event:
		return nil
	default:
		if r.usageMetrics != nil {
			r.usageMetrics.RecordEventsDropped(ctx, 1)
		}
		r.logger.Warn("Usage event buffer full, dropping event",
			zap.String("event_type", event.EventType.String()),
			zap.String("owner_id", event.OwnerID.String()))
		return shared.NewDomainError("RECORDER_OVERFLOW", "Usage event buffer is full")
	}
}

// RecordBatch appends several usage events, preserving order within the batch.
func (r *EventRecorder) RecordBatch(ctx context.Context, events []*usage.UsageEvent) error {
	if !r.config.Async {
		if err := r.repository.AppendBatch(ctx, events); err != nil {
			return err
		}
		if r.usageMetrics != nil {
			r.usageMetrics.RecordEventsIngested(ctx, int64(len(events)))
		}
		r.notify(ctx, events...)
		return nil
	}

	for _, event := range events {
		if err := r.Record(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// batchWriter is the background goroutine that batches and appends events.
func (r *EventRecorder) batchWriter() {
	defer r.wg.Done()

	batch := make([]*usage.UsageEvent, 0, r.config.BatchSize)
	ticker := time.NewTicker(r.config.FlushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		start := time.Now()
		err := r.repository.AppendBatch(ctx, batch)
		duration := time.Since(start)

		if r.usageMetrics != nil {
			r.usageMetrics.RecordBatchWrite(ctx, duration, err != nil)
		}

		if err != nil {
			r.logger.Error("Failed to append usage event batch",
				zap.Int("batch_size", len(batch)),
				zap.Error(err))
		} else {
			r.logger.Debug("Appended usage event batch",
				zap.Int("batch_size", len(batch)),
				zap.Duration("duration", duration))
			if r.usageMetrics != nil {
				r.usageMetrics.RecordEventsIngested(ctx, int64(len(batch)))
			}
			r.notify(ctx, batch...)
		}

		batch = batch[:0]
	}

	for {
		select {
		case event := <-r.buffer:
			batch = append(batch, event)
			if len(batch) >= r.config.BatchSize {
				flush()
			}

		case <-ticker.C:
			flush()

		case <-r.stopCh:
			// Drain whatever arrived before the stop signal
			for {
				select {
				case event := <-r.buffer:
					batch = append(batch, event)
					if len(batch) >= r.config.BatchSize {
						flush()
					}
				default:
					flush()
					return
				}
			}
		}
	}
}

func (r *EventRecorder) notify(ctx context.Context, events ...*usage.UsageEvent) {
	if r.publisher == nil {
		return
	}
	domainEvents := make([]shared.DomainEvent, 0, len(events))
	for _, event := range events {
		domainEvents = append(domainEvents, usage.NewUsageEventRecordedEvent(event))
	}
	_ = r.publisher.Publish(ctx, domainEvents...)
}
