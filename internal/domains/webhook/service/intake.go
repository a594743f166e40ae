package service

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"storefront-backend/internal/domains/webhook/model"
	"storefront-backend/internal/domains/webhook/repository"
	"storefront-backend/internal/shared"
	"storefront-backend/pkg/logger"
)

const seenCacheTTL = 10 * time.Minute

// IntakeResult tells the HTTP handler what happened. The handler
// answers 200 regardless; the fields are for the response body and
// logs only.
type IntakeResult struct {
	Accepted  bool
	Duplicate bool
	Dropped   bool
	WebhookID uuid.UUID
	Result    string
}

type IntakeService struct {
	repo        repository.RepositoryInterface
	asynqClient *asynq.Client
	authDigest  string

	// seen short-circuits re-deliveries that arrive while the first
	// copy is still in flight, before it is marked processed.
	mu   sync.Mutex
	seen map[string]time.Time
}

func NewIntakeService(repo repository.RepositoryInterface, asynqClient *asynq.Client, callbackUsername, callbackPassword string) *IntakeService {
	return &IntakeService{
		repo:        repo,
		asynqClient: asynqClient,
		authDigest:  model.AuthDigest(callbackUsername, callbackPassword),
		seen:        make(map[string]time.Time),
	}
}

// Handle runs the intake pipeline: authenticate, persist the raw body,
// then dedupe and enqueue. Parsing only derives the idempotency key;
// unparseable bodies are stored too, so recovery is always possible.
// It never returns an error for gateway-visible failures; the caller
// responds 200 either way.
func (s *IntakeService) Handle(ctx context.Context, provider string, headers map[string]string, body []byte, authHeader string) (*IntakeResult, error) {
	if subtle.ConstantTimeCompare([]byte(authHeader), []byte(s.authDigest)) != 1 {
		logger.Critical("Webhook authorization mismatch, dropping", model.ErrUnauthorized, map[string]interface{}{
			"provider": provider,
		})
		return &IntakeResult{Dropped: true, Result: "unauthorized"}, nil
	}

	var payload model.WebhookPayload
	parseErr := json.Unmarshal(body, &payload)

	var txnID, state, event, key string
	var amount int64
	if parseErr == nil {
		txnID = payload.TxnID()
		state = payload.Payload.State
		amount = payload.Payload.Amount
		event = model.MapState(state)
		key = model.ComputeIdempotencyKey(txnID, payload.Payload.OrderID, amount, state)
	} else {
		key = model.RawBodyKey(body)
	}

	if s.alreadySeen(key) {
		return &IntakeResult{Duplicate: true, Result: "duplicate"}, nil
	}

	if prior, err := s.repo.FindProcessedByKey(ctx, key); err == nil {
		result := ""
		if prior.Result != nil {
			result = *prior.Result
		}
		return &IntakeResult{Duplicate: true, WebhookID: prior.ID, Result: result}, nil
	}

	webhook := &model.RawWebhook{
		ID:             uuid.New(),
		Provider:       provider,
		Headers:        headers,
		RawBody:        body,
		IdempotencyKey: key,
		GatewayTxnID:   txnID,
		Event:          event,
		State:          state,
		AmountMinor:    amount,
		Priority:       model.PriorityFor(event),
		CorrelationID:  headers["X-Request-Id"],
	}

	if err := s.repo.Insert(ctx, webhook); err != nil {
		if errors.Is(err, model.ErrDuplicateDelivery) {
			// A concurrent delivery won the insert race; answer with the
			// row it stored.
			res := &IntakeResult{Duplicate: true, Result: "duplicate"}
			if prior, ferr := s.repo.FindByKey(ctx, key); ferr == nil {
				res.WebhookID = prior.ID
				if prior.Result != nil && *prior.Result != "" {
					res.Result = *prior.Result
				}
			}
			return res, nil
		}
		// Persistence is the one step that must not fail silently: the
		// raw body would be lost. Let the caller log it; still 200.
		return nil, err
	}

	s.markSeen(key)

	if parseErr != nil {
		logger.Warn("Webhook body is not valid JSON, stored for manual recovery", map[string]interface{}{
			"provider":   provider,
			"webhook_id": webhook.ID,
			"error":      parseErr.Error(),
		})
		if err := s.repo.MarkProcessed(ctx, webhook.ID, "malformed"); err != nil {
			logger.Warn("Failed to mark malformed webhook processed", map[string]interface{}{
				"webhook_id": webhook.ID,
				"error":      err.Error(),
			})
		}
		return &IntakeResult{Dropped: true, WebhookID: webhook.ID, Result: "malformed"}, nil
	}

	if event == "" {
		// States outside the success/failure mapping carry no action.
		if err := s.repo.MarkProcessed(ctx, webhook.ID, "ignored:unknown_state"); err != nil {
			logger.Warn("Failed to mark ignorable webhook processed", map[string]interface{}{
				"webhook_id": webhook.ID,
				"error":      err.Error(),
			})
		}
		return &IntakeResult{Accepted: true, WebhookID: webhook.ID, Result: "ignored"}, nil
	}

	s.enqueue(ctx, webhook)

	return &IntakeResult{Accepted: true, WebhookID: webhook.ID, Result: "queued"}, nil
}

// enqueue is best effort: the process_queue sweep picks up anything
// the push path misses.
func (s *IntakeService) enqueue(ctx context.Context, webhook *model.RawWebhook) {
	if s.asynqClient == nil {
		return
	}

	payload, _ := json.Marshal(DispatchPayload{WebhookID: webhook.ID})
	task := asynq.NewTask(shared.TypeWebhookDispatch, payload)

	queue := shared.QueueDefault
	if webhook.Event == model.EventSuccess {
		queue = shared.QueueCritical
	}

	_, err := s.asynqClient.EnqueueContext(ctx, task,
		asynq.Queue(queue),
		asynq.MaxRetry(0),
		asynq.Timeout(60*time.Second),
	)
	if err != nil {
		logger.Warn("Failed to enqueue webhook dispatch, sweep will pick it up", map[string]interface{}{
			"webhook_id": webhook.ID,
			"error":      err.Error(),
		})
	}
}

func (s *IntakeService) alreadySeen(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for k, t := range s.seen {
		if now.Sub(t) > seenCacheTTL {
			delete(s.seen, k)
		}
	}

	_, ok := s.seen[key]
	return ok
}

func (s *IntakeService) markSeen(key string) {
	s.mu.Lock()
	s.seen[key] = time.Now()
	s.mu.Unlock()
}

// DispatchPayload is the asynq task body for webhook:dispatch.
type DispatchPayload struct {
	WebhookID uuid.UUID `json:"webhookId"`
}
