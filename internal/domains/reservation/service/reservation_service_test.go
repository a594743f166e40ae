package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-backend/internal/domains/reservation/model"
	stockmodel "storefront-backend/internal/domains/stock/model"
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

type fakeReservationRepo struct {
	mu       sync.Mutex
	byID     map[uuid.UUID]*model.Reservation
	statuses map[uuid.UUID]string
	expired  []model.Reservation
	created  []*model.Reservation
}

func newFakeReservationRepo() *fakeReservationRepo {
	return &fakeReservationRepo{
		byID:     make(map[uuid.UUID]*model.Reservation),
		statuses: make(map[uuid.UUID]string),
	}
}

func (r *fakeReservationRepo) Create(ctx context.Context, q database.Querier, res *model.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = append(r.created, res)
	r.byID[res.ID] = res
	return nil
}

func (r *fakeReservationRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if res, ok := r.byID[id]; ok {
		return res, nil
	}
	return nil, model.ErrReservationNotFound
}

func (r *fakeReservationRepo) GetActiveBySessionID(ctx context.Context, sessionID uuid.UUID) (*model.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, res := range r.byID {
		if res.SessionID == sessionID && res.IsActive() {
			return res, nil
		}
	}
	return nil, model.ErrReservationNotFound
}

func (r *fakeReservationRepo) UpdateStatus(ctx context.Context, q database.Querier, id uuid.UUID, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if res, ok := r.byID[id]; ok && !res.IsActive() {
		return model.ErrReservationNotActive
	}
	r.statuses[id] = status
	return nil
}

func (r *fakeReservationRepo) ListExpiredActive(ctx context.Context, now time.Time, maxAge time.Duration, limit int) ([]model.Reservation, error) {
	return r.expired, nil
}

type fakeStockRepo struct {
	mu         sync.Mutex
	reserveErr error
	reserves   []string
	releases   []string
}

func stockKey(productID uuid.UUID, size string) string {
	return fmt.Sprintf("%s|%s", productID, size)
}

func (r *fakeStockRepo) Reserve(ctx context.Context, q database.Querier, productID uuid.UUID, size string, qty int, refType string, refID uuid.UUID) error {
	if r.reserveErr != nil {
		return r.reserveErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reserves = append(r.reserves, stockKey(productID, size))
	return nil
}

func (r *fakeStockRepo) Confirm(ctx context.Context, q database.Querier, productID uuid.UUID, size string, qty int, refID uuid.UUID) error {
	return nil
}

func (r *fakeStockRepo) Release(ctx context.Context, q database.Querier, productID uuid.UUID, size string, qty int, refType string, refID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.releases = append(r.releases, stockKey(productID, size))
	return nil
}

func (r *fakeStockRepo) Restock(ctx context.Context, q database.Querier, productID uuid.UUID, size string, qty int, refID uuid.UUID) error {
	return nil
}

func (r *fakeStockRepo) GetByProductAndSize(ctx context.Context, productID uuid.UUID, size string) (*stockmodel.ProductStock, error) {
	return nil, nil
}

func (r *fakeStockRepo) GetByProductIDs(ctx context.Context, productIDs []uuid.UUID) ([]stockmodel.ProductStock, error) {
	return nil, nil
}

func (r *fakeStockRepo) FindDrifted(ctx context.Context) ([]stockmodel.DriftedStock, error) {
	return nil, nil
}

func (r *fakeStockRepo) ResetReserved(ctx context.Context, q database.Querier, productID uuid.UUID, size string, target int) error {
	return nil
}

type fakeBindings struct {
	bound map[uuid.UUID]bool
}

func (b *fakeBindings) HasOrderForSession(ctx context.Context, sessionID uuid.UUID) (bool, error) {
	return b.bound[sessionID], nil
}

func newServiceFixture() (ServiceInterface, *fakeReservationRepo, *fakeStockRepo, *fakeBindings) {
	repo := newFakeReservationRepo()
	stock := &fakeStockRepo{}
	bindings := &fakeBindings{bound: make(map[uuid.UUID]bool)}
	svc := NewService(repo, stock, bindings, fakeDB{}, 14*time.Minute)
	return svc, repo, stock, bindings
}

func TestCreateInTxReservesEveryHold(t *testing.T) {
	svc, repo, stock, _ := newServiceFixture()

	holds := []model.Hold{
		{ProductID: uuid.New(), Size: "M", Quantity: 1},
		{ProductID: uuid.New(), Size: "L", Quantity: 2},
	}

	res, err := svc.CreateInTx(context.Background(), fakeDB{}, uuid.New(), holds, 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, res.Status)
	assert.Len(t, res.Items, 2)
	assert.Len(t, stock.reserves, 2)
	assert.Len(t, repo.created, 1)
}

func TestCreateInTxRejectsEmptyHolds(t *testing.T) {
	svc, _, _, _ := newServiceFixture()

	_, err := svc.CreateInTx(context.Background(), fakeDB{}, uuid.New(), nil, 30*time.Minute)
	assert.ErrorIs(t, err, model.ErrEmptyReservation)
}

func TestCreateInTxPropagatesOutOfStock(t *testing.T) {
	svc, repo, stock, _ := newServiceFixture()
	stock.reserveErr = stockmodel.ErrOutOfStock

	holds := []model.Hold{{ProductID: uuid.New(), Size: "M", Quantity: 1}}
	_, err := svc.CreateInTx(context.Background(), fakeDB{}, uuid.New(), holds, 30*time.Minute)
	assert.ErrorIs(t, err, stockmodel.ErrOutOfStock)
	assert.Empty(t, repo.created)
}

func TestReleaseReturnsActiveHolds(t *testing.T) {
	svc, repo, stock, _ := newServiceFixture()

	res := &model.Reservation{
		ID:        uuid.New(),
		SessionID: uuid.New(),
		Status:    model.StatusActive,
		Items: []model.ReservationItem{
			{ProductID: uuid.New(), Size: "M", Quantity: 1},
		},
	}
	repo.byID[res.ID] = res

	require.NoError(t, svc.Release(context.Background(), res.ID))
	assert.Equal(t, model.StatusCancelled, repo.statuses[res.ID])
	assert.Len(t, stock.releases, 1)
}

func TestReleaseIsNoopWhenAlreadyMoved(t *testing.T) {
	svc, repo, stock, _ := newServiceFixture()

	res := &model.Reservation{
		ID:     uuid.New(),
		Status: model.StatusConfirmed,
		Items: []model.ReservationItem{
			{ProductID: uuid.New(), Size: "M", Quantity: 1},
		},
	}
	repo.byID[res.ID] = res

	require.NoError(t, svc.Release(context.Background(), res.ID))
	assert.Empty(t, stock.releases, "stock already handled by whoever moved the row")
}

func TestExpireDueSkipsSessionsBoundToOrders(t *testing.T) {
	svc, repo, stock, bindings := newServiceFixture()

	bound := model.Reservation{
		ID:        uuid.New(),
		SessionID: uuid.New(),
		Status:    model.StatusActive,
		Items:     []model.ReservationItem{{ProductID: uuid.New(), Size: "M", Quantity: 1}},
	}
	free := model.Reservation{
		ID:        uuid.New(),
		SessionID: uuid.New(),
		Status:    model.StatusActive,
		Items:     []model.ReservationItem{{ProductID: uuid.New(), Size: "L", Quantity: 2}},
	}
	repo.byID[bound.ID] = &bound
	repo.byID[free.ID] = &free
	repo.expired = []model.Reservation{bound, free}

	// The bound session's stock now belongs to its draft order.
	bindings.bound[bound.SessionID] = true

	released, err := svc.ExpireDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, released)

	assert.Equal(t, model.StatusExpired, repo.statuses[free.ID])
	assert.NotContains(t, repo.statuses, bound.ID)
	require.Len(t, stock.releases, 1)
	assert.Equal(t, stockKey(free.Items[0].ProductID, "L"), stock.releases[0])
}
