package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-backend/internal/domains/checkout/model"
	productmodel "storefront-backend/internal/domains/product/model"
	resmodel "storefront-backend/internal/domains/reservation/model"
	"storefront-backend/internal/infrastructure/cache"
	"storefront-backend/pkg/database"
)

// fakeDB satisfies both database.DB and pgx.Tx; the fakes below ignore
// their Querier argument.
type fakeDB struct{}

func (fakeDB) Begin(ctx context.Context) (pgx.Tx, error) { return fakeDB{}, nil }
func (fakeDB) Commit(ctx context.Context) error          { return nil }
func (fakeDB) Rollback(ctx context.Context) error        { return nil }
func (fakeDB) Conn() *pgx.Conn                           { return nil }
func (fakeDB) LargeObjects() pgx.LargeObjects            { return pgx.LargeObjects{} }

func (fakeDB) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}

func (fakeDB) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }

func (fakeDB) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}

func (fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (fakeDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}

func (fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }

type fakeCheckoutRepo struct {
	mu        sync.Mutex
	sessions  map[uuid.UUID]*model.CheckoutSession
	statuses  map[uuid.UUID]string
	abandoned []model.CheckoutSession
}

func newFakeCheckoutRepo() *fakeCheckoutRepo {
	return &fakeCheckoutRepo{
		sessions: make(map[uuid.UUID]*model.CheckoutSession),
		statuses: make(map[uuid.UUID]string),
	}
}

func (r *fakeCheckoutRepo) Create(ctx context.Context, q database.Querier, session *model.CheckoutSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID] = session
	return nil
}

func (r *fakeCheckoutRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.CheckoutSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		return s, nil
	}
	return nil, model.ErrSessionNotFound
}

func (r *fakeCheckoutRepo) UpdateStatus(ctx context.Context, q database.Querier, id uuid.UUID, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses[id] = status
	return nil
}

func (r *fakeCheckoutRepo) ListAbandoned(ctx context.Context, now time.Time, limit int) ([]model.CheckoutSession, error) {
	return r.abandoned, nil
}

type fakeProductRepo struct {
	products map[uuid.UUID]*productmodel.Product
}

func (r *fakeProductRepo) GetByID(ctx context.Context, id uuid.UUID) (*productmodel.Product, error) {
	if p, ok := r.products[id]; ok {
		return p, nil
	}
	return nil, productmodel.ErrProductNotFound
}

func (r *fakeProductRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*productmodel.Product, error) {
	found := make(map[uuid.UUID]*productmodel.Product)
	for _, id := range ids {
		if p, ok := r.products[id]; ok {
			found[id] = p
		}
	}
	return found, nil
}

type fakeReservationService struct {
	mu        sync.Mutex
	createErr error
	created   []*resmodel.Reservation
	released  []uuid.UUID
}

func (s *fakeReservationService) CreateInTx(ctx context.Context, q database.Querier, sessionID uuid.UUID, holds []resmodel.Hold, ttl time.Duration) (*resmodel.Reservation, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	res := &resmodel.Reservation{
		ID:        uuid.New(),
		SessionID: sessionID,
		Status:    resmodel.StatusActive,
		ExpiresAt: time.Now().Add(ttl),
	}
	for _, h := range holds {
		res.Items = append(res.Items, resmodel.ReservationItem{ProductID: h.ProductID, Size: h.Size, Quantity: h.Quantity})
	}
	s.created = append(s.created, res)
	return res, nil
}

func (s *fakeReservationService) Confirm(ctx context.Context, q database.Querier, reservationID uuid.UUID) error {
	return nil
}

func (s *fakeReservationService) Release(ctx context.Context, reservationID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released = append(s.released, reservationID)
	return nil
}

func (s *fakeReservationService) ExpireDue(ctx context.Context) (int, error) {
	return 0, nil
}

type fakeBindings struct {
	bound map[uuid.UUID]bool
}

func (b *fakeBindings) HasOrderForSession(ctx context.Context, sessionID uuid.UUID) (bool, error) {
	return b.bound[sessionID], nil
}

type lockedPair struct {
	productID uuid.UUID
	size      string
}

type fakeStockLocker struct {
	mu       sync.Mutex
	acquired []lockedPair
}

func (l *fakeStockLocker) AcquireStockLock(ctx context.Context, productID uuid.UUID, size string) (*cache.Lock, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.acquired = append(l.acquired, lockedPair{productID: productID, size: size})
	return nil, nil
}

type checkoutFixture struct {
	svc          ServiceInterface
	repo         *fakeCheckoutRepo
	products     *fakeProductRepo
	reservations *fakeReservationService
	bindings     *fakeBindings
	locks        *fakeStockLocker
}

func newCheckoutFixture() *checkoutFixture {
	repo := newFakeCheckoutRepo()
	products := &fakeProductRepo{products: make(map[uuid.UUID]*productmodel.Product)}
	reservations := &fakeReservationService{}
	bindings := &fakeBindings{bound: make(map[uuid.UUID]bool)}
	locks := &fakeStockLocker{}

	return &checkoutFixture{
		svc:          NewService(repo, products, reservations, bindings, locks, fakeDB{}, 30*time.Minute, 14*time.Minute),
		repo:         repo,
		products:     products,
		reservations: reservations,
		bindings:     bindings,
		locks:        locks,
	}
}

func (f *checkoutFixture) addProduct(price int64, sizes ...string) *productmodel.Product {
	p := &productmodel.Product{
		ID:       uuid.New(),
		Name:     "Product",
		Price:    decimal.NewFromInt(price),
		Sizes:    sizes,
		IsActive: true,
	}
	f.products.products[p.ID] = p
	return p
}

func validShipping() model.ShippingInfo {
	return model.ShippingInfo{
		FullName:     "Pat Buyer",
		Phone:        "5550100200",
		AddressLine1: "1 Commerce St",
		City:         "Springfield",
		Country:      "US",
	}
}

func TestCreateSessionReservesAndPrices(t *testing.T) {
	f := newCheckoutFixture()
	p1 := f.addProduct(100000, "M", "L")
	p2 := f.addProduct(50000, "S")

	session, err := f.svc.CreateSession(context.Background(), &model.CreateSessionRequest{
		UserEmail: "buyer@example.com",
		Items: []model.CreateSessionItem{
			{ProductID: p1.ID.String(), Size: "M", Quantity: 2},
			{ProductID: p2.ID.String(), Size: "S", Quantity: 1},
		},
		ShippingInfo: validShipping(),
	})
	require.NoError(t, err)

	assert.Equal(t, model.StatusAwaitingPayment, session.Status)
	assert.True(t, session.StockReserved)
	require.NotNil(t, session.ReservationID)
	assert.True(t, session.Subtotal.Equal(decimal.NewFromInt(250000)))
	assert.True(t, session.ShippingCost.Equal(flatShippingRate))
	assert.True(t, session.Total.Equal(decimal.NewFromInt(280000)))
	assert.Equal(t, model.SourceCart, session.Source)
	assert.True(t, session.TimeoutAt.Before(session.ExpiresAt), "payment window closes before the stock hold lapses")

	require.Len(t, f.reservations.created, 1)
	assert.Len(t, f.reservations.created[0].Items, 2)
	assert.Contains(t, f.repo.sessions, session.ID)

	// One advisory lock per reserved (product, size) pair.
	require.Len(t, f.locks.acquired, 2)
	assert.Equal(t, lockedPair{productID: p1.ID, size: "M"}, f.locks.acquired[0])
	assert.Equal(t, lockedPair{productID: p2.ID, size: "S"}, f.locks.acquired[1])
}

func TestCreateSessionFreeShippingOverThreshold(t *testing.T) {
	f := newCheckoutFixture()
	p := f.addProduct(500000, "M")

	session, err := f.svc.CreateSession(context.Background(), &model.CreateSessionRequest{
		UserEmail: "buyer@example.com",
		Items: []model.CreateSessionItem{
			{ProductID: p.ID.String(), Size: "M", Quantity: 1},
		},
		ShippingInfo: validShipping(),
	})
	require.NoError(t, err)
	assert.True(t, session.ShippingCost.IsZero())
	assert.True(t, session.Total.Equal(decimal.NewFromInt(500000)))
}

func TestCreateSessionRejectsInactiveProduct(t *testing.T) {
	f := newCheckoutFixture()
	p := f.addProduct(100000, "M")
	p.IsActive = false

	_, err := f.svc.CreateSession(context.Background(), &model.CreateSessionRequest{
		UserEmail: "buyer@example.com",
		Items: []model.CreateSessionItem{
			{ProductID: p.ID.String(), Size: "M", Quantity: 1},
		},
		ShippingInfo: validShipping(),
	})
	assert.ErrorIs(t, err, model.ErrProductInactive)
}

func TestCreateSessionRejectsUnknownSize(t *testing.T) {
	f := newCheckoutFixture()
	p := f.addProduct(100000, "M")

	_, err := f.svc.CreateSession(context.Background(), &model.CreateSessionRequest{
		UserEmail: "buyer@example.com",
		Items: []model.CreateSessionItem{
			{ProductID: p.ID.String(), Size: "XXL", Quantity: 1},
		},
		ShippingInfo: validShipping(),
	})
	assert.ErrorIs(t, err, model.ErrSizeNotAvailable)
}

func TestCreateSessionValidatesRequest(t *testing.T) {
	f := newCheckoutFixture()

	_, err := f.svc.CreateSession(context.Background(), &model.CreateSessionRequest{
		UserEmail:    "not-an-email",
		Items:        []model.CreateSessionItem{{ProductID: uuid.New().String(), Size: "M", Quantity: 1}},
		ShippingInfo: validShipping(),
	})
	assert.Error(t, err)
	assert.Empty(t, f.reservations.created)
}

func TestExpireAbandonedSkipsBoundSessions(t *testing.T) {
	f := newCheckoutFixture()

	bound := model.CheckoutSession{ID: uuid.New(), Status: model.StatusAwaitingPayment}
	free := model.CheckoutSession{ID: uuid.New(), Status: model.StatusAwaitingPayment}
	f.repo.abandoned = []model.CheckoutSession{bound, free}
	f.bindings.bound[bound.ID] = true

	expired, err := f.svc.ExpireAbandoned(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, expired)
	assert.Equal(t, model.StatusExpired, f.repo.statuses[free.ID])
	assert.NotContains(t, f.repo.statuses, bound.ID)
}

func TestShippingCost(t *testing.T) {
	assert.True(t, shippingCost(decimal.NewFromInt(499999)).Equal(flatShippingRate))
	assert.True(t, shippingCost(decimal.NewFromInt(500000)).IsZero())
	assert.True(t, shippingCost(decimal.Zero).Equal(flatShippingRate))
}
