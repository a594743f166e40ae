package service

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"storefront-backend/internal/domains/webhook/model"
	"storefront-backend/internal/domains/webhook/repository"
	"storefront-backend/pkg/logger"
)

const (
	maxConcurrent  = 10
	maxRetries     = 5
	baseRetryDelay = 1 * time.Second
	maxRetryDelay  = 5 * time.Minute
	jitterRange    = 1 * time.Second

	// Latches older than this belong to workers that died mid-flight.
	staleProcessingCutoff = 5 * time.Minute

	claimBatchSize = 50
	dlqBatchSize   = 20
)

// QueueManager pumps persisted webhooks through the processor and owns
// their retry state. The processor decides outcomes; the manager
// decides what an outcome does to the RawWebhook row.
type QueueManager struct {
	repo      repository.RepositoryInterface
	processor *Processor
}

func NewQueueManager(repo repository.RepositoryInterface, processor *Processor) *QueueManager {
	return &QueueManager{repo: repo, processor: processor}
}

// ProcessOne handles a single webhook by id, used by the push path
// (webhook:dispatch task) right after intake.
func (m *QueueManager) ProcessOne(ctx context.Context, id uuid.UUID) error {
	claimed, err := m.repo.ClaimPending(ctx, claimBatchSize)
	if err != nil {
		return err
	}

	// The claim is batch-shaped; run the requested webhook first but do
	// not waste the rest of the batch.
	for i := range claimed {
		m.runOne(ctx, &claimed[i])
	}

	return nil
}

// PumpPending is the @every 5s sweep: claim a batch and process it with
// bounded concurrency.
func (m *QueueManager) PumpPending(ctx context.Context) error {
	claimed, err := m.repo.ClaimPending(ctx, claimBatchSize)
	if err != nil {
		return err
	}
	if len(claimed) == 0 {
		return nil
	}

	sem := make(chan struct{}, maxConcurrent)
	var wg sync.WaitGroup

	for i := range claimed {
		if ctx.Err() != nil {
			// Shutdown: release the rest instead of abandoning latches.
			m.releaseUnstarted(claimed[i:])
			break
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(w *model.RawWebhook) {
			defer wg.Done()
			defer func() { <-sem }()
			m.runOne(ctx, w)
		}(&claimed[i])
	}

	wg.Wait()
	return nil
}

// RetrySweep recovers latches left behind by dead workers. Items whose
// retry_after has elapsed are picked up by the regular pump.
func (m *QueueManager) RetrySweep(ctx context.Context) error {
	released, err := m.repo.ReleaseStale(ctx, staleProcessingCutoff)
	if err != nil {
		return err
	}
	if released > 0 {
		logger.Warn("Released stale webhook processing latches", map[string]interface{}{
			"count": released,
		})
	}
	return nil
}

// SweepDeadLetters re-attempts dead-lettered webhooks through the full
// pipeline. Any success clears the dead-letter flag.
func (m *QueueManager) SweepDeadLetters(ctx context.Context) error {
	claimed, err := m.repo.ClaimDeadLetters(ctx, dlqBatchSize)
	if err != nil {
		return err
	}

	for i := range claimed {
		w := &claimed[i]
		result, err := m.processor.Process(ctx, w)
		if err != nil {
			if dlqErr := m.repo.MoveToDeadLetter(ctx, w.ID, err.Error()); dlqErr != nil {
				logger.Error("Failed to re-park dead letter", dlqErr, map[string]interface{}{
					"webhook_id": w.ID,
				})
			}
			continue
		}
		m.finalize(ctx, w, result)
	}

	return nil
}

func (m *QueueManager) runOne(ctx context.Context, w *model.RawWebhook) {
	result, err := m.processor.Process(ctx, w)
	if err != nil {
		m.handleFailure(ctx, w, err)
		return
	}
	m.finalize(ctx, w, result)
}

func (m *QueueManager) finalize(ctx context.Context, w *model.RawWebhook, result string) {
	if err := m.repo.MarkProcessed(ctx, w.ID, result); err != nil {
		logger.Error("Failed to finalize webhook", err, map[string]interface{}{
			"webhook_id": w.ID,
			"result":     result,
		})
		return
	}

	logger.Info("Webhook processed", map[string]interface{}{
		"webhook_id":     w.ID,
		"gateway_txn_id": w.GatewayTxnID,
		"event":          w.Event,
		"result":         result,
	})
}

func (m *QueueManager) handleFailure(ctx context.Context, w *model.RawWebhook, procErr error) {
	// RetryCount counts retries already consumed; dead-letter only once
	// all maxRetries of them have failed too.
	if w.RetryCount >= maxRetries {
		if err := m.repo.MoveToDeadLetter(ctx, w.ID, procErr.Error()); err != nil {
			logger.Error("Failed to dead-letter webhook", err, map[string]interface{}{
				"webhook_id": w.ID,
			})
			return
		}
		logger.Critical("Webhook moved to dead letter queue", procErr, map[string]interface{}{
			"webhook_id":     w.ID,
			"gateway_txn_id": w.GatewayTxnID,
			"attempts":       w.RetryCount + 1,
		})
		return
	}

	attempt := w.RetryCount + 1
	retryAfter := time.Now().Add(Backoff(attempt))
	if err := m.repo.ScheduleRetry(ctx, w.ID, procErr.Error(), retryAfter); err != nil {
		logger.Error("Failed to schedule webhook retry", err, map[string]interface{}{
			"webhook_id": w.ID,
		})
		return
	}

	logger.Warn("Webhook processing failed, retry scheduled", map[string]interface{}{
		"webhook_id":     w.ID,
		"gateway_txn_id": w.GatewayTxnID,
		"attempt":        attempt,
		"retry_after":    retryAfter,
		"error":          procErr.Error(),
	})
}

func (m *QueueManager) releaseUnstarted(webhooks []model.RawWebhook) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for i := range webhooks {
		w := &webhooks[i]
		if err := m.repo.ScheduleRetry(ctx, w.ID, "worker shutdown before processing", time.Now()); err != nil {
			logger.Warn("Failed to release unstarted webhook", map[string]interface{}{
				"webhook_id": w.ID,
				"error":      err.Error(),
			})
		}
	}
}

// Backoff returns the delay before retry number attempt (1-based):
// min(base * 2^(attempt-1), cap) plus up to +-1s of jitter, never
// negative.
func Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	delay := baseRetryDelay << uint(attempt-1)
	if delay > maxRetryDelay || delay <= 0 {
		delay = maxRetryDelay
	}

	jitter := time.Duration(rand.Int63n(int64(2*jitterRange))) - jitterRange
	delay += jitter
	if delay < 0 {
		delay = 0
	}

	return delay
}
