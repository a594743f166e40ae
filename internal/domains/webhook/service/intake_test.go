package service

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-backend/internal/domains/webhook/model"
)

func newIntakeFixture() (*IntakeService, *fakeWebhookRepo, string) {
	repo := newFakeWebhookRepo()
	svc := NewIntakeService(repo, nil, "cbuser", "cbpass")
	return svc, repo, model.AuthDigest("cbuser", "cbpass")
}

func successBody(txnID string, amount int64) []byte {
	return []byte(`{
		"event": "payment",
		"payload": {
			"merchantTransactionId": "` + txnID + `",
			"state": "COMPLETED",
			"amount": ` + strconv.FormatInt(amount, 10) + `
		}
	}`)
}

func TestIntakeDropsBadAuth(t *testing.T) {
	svc, repo, _ := newIntakeFixture()

	res, err := svc.Handle(context.Background(), "phonepe", nil, successBody("TXN1", 10000), "not-the-digest")
	require.NoError(t, err)
	assert.True(t, res.Dropped)
	assert.Equal(t, "unauthorized", res.Result)
	assert.Empty(t, repo.inserted)
}

func TestIntakeStoresMalformedBody(t *testing.T) {
	svc, repo, auth := newIntakeFixture()

	body := []byte("{not json")
	res, err := svc.Handle(context.Background(), "phonepe", nil, body, auth)
	require.NoError(t, err)
	assert.True(t, res.Dropped)
	assert.Equal(t, "malformed", res.Result)

	// The raw body is stored before parsing so recovery stays possible;
	// the row is finalized immediately since it carries no action.
	require.Len(t, repo.inserted, 1)
	w := repo.inserted[0]
	assert.Equal(t, body, []byte(w.RawBody))
	assert.Equal(t, model.RawBodyKey(body), w.IdempotencyKey)
	assert.Equal(t, "malformed", repo.processed[w.ID])
}

func TestIntakeDedupesMalformedRedelivery(t *testing.T) {
	svc, repo, auth := newIntakeFixture()

	body := []byte("{not json")
	_, err := svc.Handle(context.Background(), "phonepe", nil, body, auth)
	require.NoError(t, err)

	res, err := svc.Handle(context.Background(), "phonepe", nil, body, auth)
	require.NoError(t, err)
	assert.True(t, res.Duplicate)
	assert.Len(t, repo.inserted, 1)
}

func TestIntakePersistsAndQueuesSuccess(t *testing.T) {
	svc, repo, auth := newIntakeFixture()

	headers := map[string]string{"X-Request-Id": "req-42"}
	res, err := svc.Handle(context.Background(), "phonepe", headers, successBody("TXN1", 10000), auth)
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.Equal(t, "queued", res.Result)

	require.Len(t, repo.inserted, 1)
	w := repo.inserted[0]
	assert.Equal(t, "phonepe", w.Provider)
	assert.Equal(t, "TXN1", w.GatewayTxnID)
	assert.Equal(t, model.EventSuccess, w.Event)
	assert.Equal(t, int64(10000), w.AmountMinor)
	assert.Equal(t, model.PrioritySuccess, w.Priority)
	assert.Equal(t, "req-42", w.CorrelationID)
	assert.NotEmpty(t, w.IdempotencyKey)
	assert.NotEmpty(t, w.RawBody)
}

func TestIntakeDedupesInFlightRedelivery(t *testing.T) {
	svc, repo, auth := newIntakeFixture()

	body := successBody("TXN1", 10000)

	first, err := svc.Handle(context.Background(), "phonepe", nil, body, auth)
	require.NoError(t, err)
	assert.True(t, first.Accepted)

	second, err := svc.Handle(context.Background(), "phonepe", nil, body, auth)
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Len(t, repo.inserted, 1)
}

func TestIntakeDedupesProcessedDelivery(t *testing.T) {
	svc, repo, auth := newIntakeFixture()

	key := model.ComputeIdempotencyKey("TXN1", "", 10000, "COMPLETED")
	result := "committed"
	repo.processedByKey[key] = &model.RawWebhook{
		ID:             uuid.New(),
		IdempotencyKey: key,
		Processed:      true,
		Result:         &result,
	}

	res, err := svc.Handle(context.Background(), "phonepe", nil, successBody("TXN1", 10000), auth)
	require.NoError(t, err)
	assert.True(t, res.Duplicate)
	assert.Equal(t, "committed", res.Result)
	assert.Empty(t, repo.inserted)
}

func TestIntakeParksUnknownStates(t *testing.T) {
	svc, repo, auth := newIntakeFixture()

	body := []byte(`{
		"event": "payment",
		"payload": {
			"merchantTransactionId": "TXN1",
			"state": "PENDING",
			"amount": 10000
		}
	}`)

	res, err := svc.Handle(context.Background(), "phonepe", nil, body, auth)
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.Equal(t, "ignored", res.Result)

	require.Len(t, repo.inserted, 1)
	assert.Equal(t, "ignored:unknown_state", repo.processed[repo.inserted[0].ID])
}

func TestIntakeAnswersInsertRaceWithPriorRow(t *testing.T) {
	repo := newFakeWebhookRepo()
	first := NewIntakeService(repo, nil, "cbuser", "cbpass")
	second := NewIntakeService(repo, nil, "cbuser", "cbpass")
	auth := model.AuthDigest("cbuser", "cbpass")

	body := successBody("TXN1", 10000)

	winner, err := first.Handle(context.Background(), "phonepe", nil, body, auth)
	require.NoError(t, err)
	assert.True(t, winner.Accepted)

	// A second instance has no seen-cache entry, so it reaches the
	// insert and loses on the idempotency-key unique index.
	loser, err := second.Handle(context.Background(), "phonepe", nil, body, auth)
	require.NoError(t, err)
	assert.True(t, loser.Duplicate)
	assert.Equal(t, winner.WebhookID, loser.WebhookID)
	assert.Len(t, repo.inserted, 1)
}

func TestIntakeSurfacesPersistenceFailure(t *testing.T) {
	svc, repo, auth := newIntakeFixture()
	repo.insertErr = errors.New("database down")

	_, err := svc.Handle(context.Background(), "phonepe", nil, successBody("TXN1", 10000), auth)
	assert.Error(t, err)
}
