package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ordermodel "storefront-backend/internal/domains/order/model"
	"storefront-backend/internal/domains/payment/gateway"
	"storefront-backend/internal/domains/payment/gateway/mock"
	"storefront-backend/internal/domains/webhook/model"
)

type reconcilerFixture struct {
	*processorFixture
	gateway    *mock.Gateway
	reconciler *Reconciler
}

func newReconcilerFixture() *reconcilerFixture {
	f := newProcessorFixture()
	gw := mock.New()
	manager := NewQueueManager(f.webhooks, f.processor)

	return &reconcilerFixture{
		processorFixture: f,
		gateway:          gw,
		reconciler:       NewReconciler(f.webhooks, f.orders, f.commits, gw, manager),
	}
}

func TestReconcilerReplaysCompletedStuckDraft(t *testing.T) {
	f := newReconcilerFixture()

	order := draftOrder("TXN1", decimal.NewFromInt(100))
	f.orders.add(order)
	f.orders.stuckDrafts = []ordermodel.Order{*order}
	f.gateway.SetState("TXN1", gateway.StateCompleted, 10000)

	require.NoError(t, f.reconciler.Run(context.Background()))

	require.Len(t, f.webhooks.inserted, 1)
	synthetic := f.webhooks.inserted[0]
	assert.Equal(t, "mock", synthetic.Provider)
	assert.Equal(t, "reconciler", synthetic.Headers["X-Synthetic"])
	assert.Equal(t, "reconciler", synthetic.CorrelationID)
	assert.Equal(t, "TXN1", synthetic.GatewayTxnID)
	assert.Equal(t, model.EventSuccess, synthetic.Event)
	assert.Equal(t, int64(10000), synthetic.AmountMinor)

	require.Len(t, f.commits.commits, 1)
	assert.Equal(t, order.ID, f.commits.commits[0])
	assert.Equal(t, "committed", f.webhooks.processed[synthetic.ID])
}

func TestReconcilerCancelsFailedStuckDraft(t *testing.T) {
	f := newReconcilerFixture()

	order := draftOrder("TXN1", decimal.NewFromInt(100))
	f.orders.add(order)
	f.orders.stuckDrafts = []ordermodel.Order{*order}
	f.gateway.SetState("TXN1", gateway.StateFailed, 10000)

	require.NoError(t, f.reconciler.Run(context.Background()))

	require.Len(t, f.commits.cancels, 1)
	assert.Equal(t, order.ID, f.commits.cancels[0])
	assert.Empty(t, f.webhooks.inserted, "failed drafts are cancelled directly, not replayed")
}

func TestReconcilerLeavesPendingDraftAlone(t *testing.T) {
	f := newReconcilerFixture()

	order := draftOrder("TXN1", decimal.NewFromInt(100))
	f.orders.add(order)
	f.orders.stuckDrafts = []ordermodel.Order{*order}
	f.gateway.SetState("TXN1", gateway.StatePending, 10000)

	require.NoError(t, f.reconciler.Run(context.Background()))

	assert.Empty(t, f.commits.commits)
	assert.Empty(t, f.commits.cancels)
	assert.Empty(t, f.webhooks.inserted)
}

func TestReconcilerSurvivesGatewayLookupFailure(t *testing.T) {
	f := newReconcilerFixture()

	// Unknown at the gateway; the status lookup errors and the draft is
	// left for the next run.
	order := draftOrder("TXN1", decimal.NewFromInt(100))
	f.orders.add(order)
	f.orders.stuckDrafts = []ordermodel.Order{*order}

	require.NoError(t, f.reconciler.Run(context.Background()))

	assert.Empty(t, f.commits.commits)
	assert.Empty(t, f.commits.cancels)
}

func TestReconcilerReplaysMissingWebhook(t *testing.T) {
	f := newReconcilerFixture()

	order := draftOrder("TXN1", decimal.NewFromInt(100))
	f.orders.add(order)
	f.orders.recent = []ordermodel.Order{*order}
	f.gateway.SetState("TXN1", gateway.StateCompleted, 10000)

	require.NoError(t, f.reconciler.Run(context.Background()))

	require.Len(t, f.webhooks.inserted, 1)
	require.Len(t, f.commits.commits, 1)
	assert.Equal(t, order.ID, f.commits.commits[0])
}

func TestReconcilerSkipsSettledOrders(t *testing.T) {
	f := newReconcilerFixture()

	paid := draftOrder("TXN1", decimal.NewFromInt(100))
	paid.PaymentStatus = ordermodel.PaymentPaid
	cancelled := draftOrder("TXN2", decimal.NewFromInt(100))
	cancelled.Status = ordermodel.StatusCancelled
	f.orders.recent = []ordermodel.Order{*paid, *cancelled}
	f.gateway.SetState("TXN1", gateway.StateCompleted, 10000)
	f.gateway.SetState("TXN2", gateway.StateCompleted, 10000)

	require.NoError(t, f.reconciler.Run(context.Background()))

	assert.Empty(t, f.webhooks.inserted)
	assert.Empty(t, f.commits.commits)
}

func TestReconcilerSkipsTxnWithProcessedWebhook(t *testing.T) {
	f := newReconcilerFixture()

	order := draftOrder("TXN1", decimal.NewFromInt(100))
	f.orders.add(order)
	f.orders.recent = []ordermodel.Order{*order}
	f.gateway.SetState("TXN1", gateway.StateCompleted, 10000)

	earlier := successWebhook("TXN1", 10000)
	require.NoError(t, f.webhooks.Insert(context.Background(), earlier))
	require.NoError(t, f.webhooks.MarkProcessed(context.Background(), earlier.ID, "committed"))

	require.NoError(t, f.reconciler.Run(context.Background()))

	assert.Len(t, f.webhooks.inserted, 1, "no synthetic webhook for an already handled txn")
	assert.Empty(t, f.commits.commits)
}

func TestReconcilerReplayDedupesByIdempotencyKey(t *testing.T) {
	f := newReconcilerFixture()

	order := draftOrder("TXN1", decimal.NewFromInt(100))
	f.orders.add(order)
	f.orders.stuckDrafts = []ordermodel.Order{*order}
	f.gateway.SetState("TXN1", gateway.StateCompleted, 10000)

	key := model.ComputeIdempotencyKey("TXN1", "TXN1", 10000, gateway.StateCompleted)
	f.webhooks.processedByKey[key] = successWebhook("TXN1", 10000)

	require.NoError(t, f.reconciler.Run(context.Background()))

	assert.Empty(t, f.webhooks.inserted)
	assert.Empty(t, f.commits.commits)
}

func TestReconcilerResolvesOrphanThroughLadder(t *testing.T) {
	f := newReconcilerFixture()

	// Success webhook that matched nothing when first processed. The
	// re-run finds no order or snapshot either and ends in an emergency
	// order.
	w := successWebhook("TXN-ORPHAN", 10000)
	w.Processed = true
	f.webhooks.orphans = []model.RawWebhook{*w}

	require.NoError(t, f.reconciler.Run(context.Background()))

	require.Len(t, f.orders.created, 1)
	created := f.orders.created[0]
	assert.Equal(t, ordermodel.StatusPendingReview, created.Status)
	assert.True(t, created.RequiresManualProcessing)
	assert.Equal(t, "emergency_created", f.webhooks.processed[w.ID])
}

func TestReconcilerOrphanFindsLateOrder(t *testing.T) {
	f := newReconcilerFixture()

	order := draftOrder("TXN1", decimal.NewFromInt(100))
	f.orders.add(order)

	w := successWebhook("TXN1", 10000)
	w.Processed = true
	f.webhooks.orphans = []model.RawWebhook{*w}

	require.NoError(t, f.reconciler.Run(context.Background()))

	require.Len(t, f.commits.commits, 1)
	assert.Equal(t, order.ID, f.commits.commits[0])
	assert.Equal(t, "committed", f.webhooks.processed[w.ID])
	assert.Empty(t, f.orders.created)
}
