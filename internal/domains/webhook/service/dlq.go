package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"storefront-backend/internal/domains/webhook/model"
	"storefront-backend/internal/domains/webhook/repository"
	"storefront-backend/pkg/logger"
)

// DLQService is the operator surface over dead-lettered webhooks.
type DLQService struct {
	repo      repository.RepositoryInterface
	processor *Processor
}

func NewDLQService(repo repository.RepositoryInterface, processor *Processor) *DLQService {
	return &DLQService{repo: repo, processor: processor}
}

func (s *DLQService) List(ctx context.Context, limit int) ([]model.RawWebhook, error) {
	return s.repo.ListDeadLetters(ctx, limit)
}

// Retry re-runs one dead letter through the full pipeline. Success
// clears the dead-letter flag; failure leaves it parked with the new
// error recorded.
func (s *DLQService) Retry(ctx context.Context, id uuid.UUID) (string, error) {
	webhook, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if !webhook.DeadLetter {
		return "", errors.New("webhook is not in the dead letter queue")
	}

	result, err := s.processor.Process(ctx, webhook)
	if err != nil {
		if dlqErr := s.repo.MoveToDeadLetter(ctx, webhook.ID, err.Error()); dlqErr != nil {
			logger.Error("Failed to update dead letter after retry", dlqErr, map[string]interface{}{
				"webhook_id": webhook.ID,
			})
		}
		return "", err
	}

	if err := s.repo.MarkProcessed(ctx, webhook.ID, result); err != nil {
		return "", err
	}

	logger.Info("Dead letter resolved by operator retry", map[string]interface{}{
		"webhook_id": webhook.ID,
		"result":     result,
	})

	return result, nil
}
