package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gradekeeper/sync-service/internal/models"
	"github.com/gradekeeper/sync-service/internal/service"
	"github.com/gradekeeper/sync-service/internal/worker/queue"
	"github.com/rs/zerolog"
)

// SyncWorker consumes snapshot.fetched events, runs each snapshot through
// the reconciliation pipeline and announces the outcome on the exchange.
type SyncWorker interface {
	Start(ctx context.Context) error
	Stop() error
	GetStats() WorkerStats
}

type WorkerStats struct {
	ActiveWorkers  int `json:"active_workers"`
	TotalProcessed int `json:"total_processed"`
	FailedJobs     int `json:"failed_jobs"`
	QueueLength    int `json:"queue_length"`
}

type syncWorker struct {
	workerPool      *WorkerPool
	queueConsumer   queue.RabbitMQConsumer
	publisher       queue.RabbitMQPublisher
	snapshotService service.SnapshotService

	exchange          string
	publishRoutingKey string

	logger     zerolog.Logger
	stats      WorkerStats
	statsMutex sync.RWMutex
	startTime  time.Time
}

func NewSyncWorker(
	workerPool *WorkerPool,
	queueConsumer queue.RabbitMQConsumer,
	publisher queue.RabbitMQPublisher,
	snapshotService service.SnapshotService,
	exchange, publishRoutingKey string,
	logger zerolog.Logger,
) SyncWorker {
	return &syncWorker{
		workerPool:        workerPool,
		queueConsumer:     queueConsumer,
		publisher:         publisher,
		snapshotService:   snapshotService,
		exchange:          exchange,
		publishRoutingKey: publishRoutingKey,
		logger:            logger,
		startTime:         time.Now(),
	}
}

func (w *syncWorker) Start(ctx context.Context) error {
	w.logger.Info().Msg("Starting sync worker...")

	if err := w.workerPool.Start(ctx); err != nil {
		return fmt.Errorf("failed to start worker pool: %w", err)
	}

	msgs, err := w.queueConsumer.Consume(ctx)
	if err != nil {
		return fmt.Errorf("failed to start consuming messages: %w", err)
	}

	go w.processMessages(ctx, msgs)

	w.logger.Info().Msg("Sync worker started successfully")
	return nil
}

func (w *syncWorker) Stop() error {
	w.logger.Info().Msg("Stopping sync worker...")

	if err := w.workerPool.Stop(); err != nil {
		w.logger.Error().Err(err).Msg("Failed to stop worker pool")
	}

	if err := w.queueConsumer.Close(); err != nil {
		w.logger.Error().Err(err).Msg("Failed to close queue consumer")
	}

	w.statsMutex.RLock()
	defer w.statsMutex.RUnlock()
	w.logger.Info().
		Int("total_processed", w.stats.TotalProcessed).
		Int("failed_jobs", w.stats.FailedJobs).
		Dur("uptime", time.Since(w.startTime)).
		Msg("Sync worker stopped")

	return nil
}

func (w *syncWorker) processMessages(ctx context.Context, msgs <-chan queue.RabbitMQMessage) {
	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("Stopping message processing")
			return
		case msg, ok := <-msgs:
			if !ok {
				w.logger.Warn().Msg("Message channel closed")
				return
			}

			w.workerPool.Submit(func() {
				if err := w.processMessage(ctx, msg); err != nil {
					w.logger.Error().Err(err).Msg("Failed to process snapshot event")

					w.statsMutex.Lock()
					w.stats.FailedJobs++
					w.statsMutex.Unlock()

					// A permanently broken message would loop forever on
					// requeue; ack it away instead.
					if isPermanentError(err) {
						if ackErr := msg.Ack(false); ackErr != nil {
							w.logger.Error().Err(ackErr).Msg("Failed to ack message")
						}
						return
					}

					if nackErr := msg.Nack(false, true); nackErr != nil {
						w.logger.Error().Err(nackErr).Msg("Failed to nack message")
					}
					return
				}

				if err := msg.Ack(false); err != nil {
					w.logger.Error().Err(err).Msg("Failed to ack message")
				}

				w.statsMutex.Lock()
				w.stats.TotalProcessed++
				w.statsMutex.Unlock()
			})
		}
	}
}

func (w *syncWorker) processMessage(ctx context.Context, msg queue.RabbitMQMessage) error {
	var event models.SnapshotFetchedEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		return permanent(fmt.Errorf("failed to unmarshal event: %w", err))
	}

	if strings.TrimSpace(event.TeacherEmail) == "" {
		return permanent(errors.New("empty teacher_email"))
	}
	if len(event.Snapshot) == 0 {
		return permanent(errors.New("empty snapshot payload"))
	}

	var snap models.Snapshot
	if err := json.Unmarshal(event.Snapshot, &snap); err != nil {
		return permanent(fmt.Errorf("failed to unmarshal snapshot: %w", err))
	}

	w.logger.Info().
		Str("teacher_email", event.TeacherEmail).
		Time("fetched_at", event.FetchedAt).
		Msg("Processing fetched snapshot")

	// The pipeline reports failures through the result; only malformed
	// input reaches here as an error, and that was handled above.
	result := w.snapshotService.ProcessSnapshot(ctx, &snap, event.TeacherEmail)

	w.publishProcessed(ctx, event.TeacherEmail, result)
	return nil
}

func (w *syncWorker) publishProcessed(ctx context.Context, teacherEmail string, result *models.ProcessResult) {
	event := models.SnapshotProcessedEvent{
		ImportID:         result.ImportID,
		TeacherEmail:     teacherEmail,
		Success:          result.Success,
		Stats:            result.Stats,
		ErrorCount:       len(result.Errors),
		ProcessingTimeMs: result.ProcessingTimeMs,
		CompletedAt:      time.Now().UTC(),
	}

	body, err := json.Marshal(event)
	if err != nil {
		w.logger.Error().Err(err).Msg("Failed to marshal processed event")
		return
	}

	if err := w.publisher.Publish(ctx, w.exchange, w.publishRoutingKey, body); err != nil {
		w.logger.Error().Err(err).Str("import_id", result.ImportID).Msg("Failed to publish processed event")
	}
}

func (w *syncWorker) GetStats() WorkerStats {
	w.statsMutex.RLock()
	stats := w.stats
	w.statsMutex.RUnlock()

	queueLength, err := w.queueConsumer.GetQueueLength()
	if err != nil {
		w.logger.Error().Err(err).Msg("Failed to get queue length")
	} else {
		stats.QueueLength = queueLength
	}

	stats.ActiveWorkers = w.workerPool.GetActiveWorkers()

	return stats
}

type permanentError struct {
	err error
}

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

func permanent(err error) error {
	return permanentError{err: err}
}

func isPermanentError(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}
