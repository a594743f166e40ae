package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ordermodel "storefront-backend/internal/domains/order/model"
	orderservice "storefront-backend/internal/domains/order/service"
	"storefront-backend/internal/domains/payment/gateway/mock"
	"storefront-backend/internal/domains/payment/model"
	"storefront-backend/pkg/database"
)

type fakeDraftService struct {
	mu       sync.Mutex
	order    *ordermodel.Order
	err      error
	requests []*orderservice.CreateDraftRequest
}

func (s *fakeDraftService) CreateDraft(ctx context.Context, req *orderservice.CreateDraftRequest) (*ordermodel.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	if s.order != nil {
		return s.order, nil
	}

	txn := req.GatewayTxnID
	key := req.IdempotencyKey
	sessionID := req.SessionID
	total := decimal.NewFromInt(150)
	return &ordermodel.Order{
		ID:                uuid.New(),
		OrderCode:         "ORD-20260825-PAY001",
		IdempotencyKey:    &key,
		GatewayTxnID:      &txn,
		CheckoutSessionID: &sessionID,
		Status:            ordermodel.StatusDraft,
		PaymentStatus:     ordermodel.PaymentPending,
		Items: []ordermodel.LineItem{
			{ProductID: uuid.New(), Name: "Tee", Size: "M", Quantity: 1, UnitPrice: total, LineTotal: total},
		},
		Subtotal:  total,
		Total:     total,
		UserEmail: "buyer@example.com",
	}, nil
}

func (s *fakeDraftService) GetByOrderCode(ctx context.Context, code string) (*ordermodel.Order, error) {
	return nil, ordermodel.ErrOrderNotFound
}

func (s *fakeDraftService) GetByGatewayTxnID(ctx context.Context, txnID string) (*ordermodel.Order, error) {
	return nil, ordermodel.ErrOrderNotFound
}

func (s *fakeDraftService) ListForUser(ctx context.Context, email string) ([]ordermodel.Order, error) {
	return nil, nil
}

type fakePaymentSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*model.PaymentSession
}

func newFakePaymentSessionRepo() *fakePaymentSessionRepo {
	return &fakePaymentSessionRepo{sessions: make(map[string]*model.PaymentSession)}
}

func (r *fakePaymentSessionRepo) Create(ctx context.Context, q database.Querier, session *model.PaymentSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[session.GatewayTxnID]; !ok {
		r.sessions[session.GatewayTxnID] = session
	}
	return nil
}

func (r *fakePaymentSessionRepo) GetByTxnID(ctx context.Context, gatewayTxnID string) (*model.PaymentSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[gatewayTxnID]; ok {
		return s, nil
	}
	return nil, model.ErrPaymentSessionNotFound
}

func (r *fakePaymentSessionRepo) BindOrder(ctx context.Context, gatewayTxnID string, orderID uuid.UUID) error {
	return nil
}

type paymentFixture struct {
	svc     ServiceInterface
	drafts  *fakeDraftService
	repo    *fakePaymentSessionRepo
	gateway *mock.Gateway
}

func newPaymentFixture() *paymentFixture {
	drafts := &fakeDraftService{}
	repo := newFakePaymentSessionRepo()
	gw := mock.New()

	return &paymentFixture{
		svc:     NewPaymentService(repo, drafts, gw, nil, "https://shop.example.com/payment/callback"),
		drafts:  drafts,
		repo:    repo,
		gateway: gw,
	}
}

func TestInitiatePaymentMintsTxnAndSnapshots(t *testing.T) {
	f := newPaymentFixture()

	resp, err := f.svc.InitiatePayment(context.Background(), &model.InitiatePaymentRequest{
		SessionID:      uuid.New().String(),
		IdempotencyKey: "client-key-001",
	})
	require.NoError(t, err)

	assert.Equal(t, "ORD-20260825-PAY001", resp.OrderCode)
	assert.Regexp(t, `^TXN[0-9A-F]{32}$`, resp.GatewayTxnID)
	assert.Less(t, len(resp.GatewayTxnID), 36, "gateway rejects ids of 36+ chars")
	assert.Contains(t, resp.RedirectURL, resp.GatewayTxnID)
	assert.Equal(t, int64(15000), resp.AmountMinor)
	assert.Equal(t, "150.00", resp.Total)

	snapshot, ok := f.repo.sessions[resp.GatewayTxnID]
	require.True(t, ok, "payment session snapshot must exist before the gateway call")
	assert.Len(t, snapshot.Items, 1)
	assert.Equal(t, int64(15000), snapshot.AmountMinor)
	require.NotNil(t, snapshot.OrderID)
}

func TestInitiatePaymentRetryKeepsOriginalTxn(t *testing.T) {
	f := newPaymentFixture()

	// The idempotent draft from the first attempt carries its own
	// transaction id.
	original := "TXNORIGINAL000000000000000000000"
	total := decimal.NewFromInt(150)
	f.drafts.order = &ordermodel.Order{
		ID:            uuid.New(),
		OrderCode:     "ORD-20260825-PAY002",
		GatewayTxnID:  &original,
		Status:        ordermodel.StatusDraft,
		PaymentStatus: ordermodel.PaymentPending,
		Total:         total,
		UserEmail:     "buyer@example.com",
	}

	resp, err := f.svc.InitiatePayment(context.Background(), &model.InitiatePaymentRequest{
		SessionID:      uuid.New().String(),
		IdempotencyKey: "client-key-001",
	})
	require.NoError(t, err)
	assert.Equal(t, original, resp.GatewayTxnID)
}

func TestInitiatePaymentWrapsGatewayFailure(t *testing.T) {
	f := newPaymentFixture()
	f.gateway.CreateOrderErr = errors.New("upstream 503")

	_, err := f.svc.InitiatePayment(context.Background(), &model.InitiatePaymentRequest{
		SessionID:      uuid.New().String(),
		IdempotencyKey: "client-key-001",
	})
	assert.ErrorIs(t, err, model.ErrGatewayUnavailable)
}

func TestInitiatePaymentValidatesRequest(t *testing.T) {
	f := newPaymentFixture()

	_, err := f.svc.InitiatePayment(context.Background(), &model.InitiatePaymentRequest{
		SessionID:      "not-a-uuid",
		IdempotencyKey: "client-key-001",
	})
	assert.Error(t, err)

	_, err = f.svc.InitiatePayment(context.Background(), &model.InitiatePaymentRequest{
		SessionID:      uuid.New().String(),
		IdempotencyKey: "short",
	})
	assert.Error(t, err)

	assert.Empty(t, f.drafts.requests, "invalid requests never reach the draft service")
}

func TestMinorUnits(t *testing.T) {
	tests := []struct {
		amount string
		want   int64
	}{
		{"0", 0},
		{"0.01", 1},
		{"1", 100},
		{"123.45", 12345},
		{"99.999", 10000},
		{"150.00", 15000},
	}

	for _, tt := range tests {
		d := decimal.RequireFromString(tt.amount)
		assert.Equal(t, tt.want, model.MinorUnits(d), "amount %s", tt.amount)
	}
}
