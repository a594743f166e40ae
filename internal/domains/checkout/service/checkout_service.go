package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"storefront-backend/internal/domains/checkout/model"
	"storefront-backend/internal/domains/checkout/repository"
	productrepo "storefront-backend/internal/domains/product/repository"
	resmodel "storefront-backend/internal/domains/reservation/model"
	resservice "storefront-backend/internal/domains/reservation/service"
	"storefront-backend/internal/infrastructure/cache"
	"storefront-backend/internal/shared/utils"
	"storefront-backend/pkg/database"
	"storefront-backend/pkg/logger"
)

// StockLocker is the advisory-lock surface held while reserving hot
// stock rows. Best effort: a nil lock means contention, not failure.
type StockLocker interface {
	AcquireStockLock(ctx context.Context, productID uuid.UUID, size string) (*cache.Lock, error)
}

// Flat-rate shipping with a free threshold. Rates live here until a
// shipping-rules service exists.
var (
	freeShippingThreshold = decimal.NewFromInt(500000)
	flatShippingRate      = decimal.NewFromInt(30000)
)

type checkoutService struct {
	repo           repository.RepositoryInterface
	productRepo    productrepo.RepositoryInterface
	reservations   resservice.ServiceInterface
	orders         resservice.OrderBindingChecker
	locks          StockLocker
	pool           database.DB
	reservationTTL time.Duration
	paymentWindow  time.Duration
	sweepBatch     int
}

func NewService(
	repo repository.RepositoryInterface,
	productRepo productrepo.RepositoryInterface,
	reservations resservice.ServiceInterface,
	orders resservice.OrderBindingChecker,
	locks StockLocker,
	pool database.DB,
	reservationTTL time.Duration,
	paymentWindow time.Duration,
) ServiceInterface {
	return &checkoutService{
		repo:           repo,
		productRepo:    productRepo,
		reservations:   reservations,
		orders:         orders,
		locks:          locks,
		pool:           pool,
		reservationTTL: reservationTTL,
		paymentWindow:  paymentWindow,
		sweepBatch:     100,
	}
}

func (s *checkoutService) CreateSession(ctx context.Context, req *model.CreateSessionRequest) (*model.CheckoutSession, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	snapshot, holds, err := s.buildSnapshot(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	subtotal := decimal.Zero
	for _, line := range snapshot {
		subtotal = subtotal.Add(line.LineTotal)
	}
	shipping := shippingCost(subtotal)

	source := req.Source
	if source == "" {
		source = model.SourceCart
	}

	now := time.Now()
	session := &model.CheckoutSession{
		ID:           uuid.New(),
		UserEmail:    req.UserEmail,
		Items:        snapshot,
		Subtotal:     subtotal,
		ShippingCost: shipping,
		Total:        subtotal.Add(shipping),
		ShippingInfo: req.ShippingInfo,
		Status:       model.StatusAwaitingPayment,
		Source:       source,
		ExpiresAt:    now.Add(s.reservationTTL),
		TimeoutAt:    now.Add(s.paymentWindow),
	}

	// Advisory locks narrow contention on hot rows while the reserve
	// transaction runs. The conditional updates stay authoritative, so a
	// lock lost to contention or a Redis outage does not block checkout.
	if s.locks != nil {
		for _, hold := range holds {
			lock, err := s.locks.AcquireStockLock(ctx, hold.ProductID, hold.Size)
			if err == nil && lock != nil {
				defer lock.Release(ctx)
			}
		}
	}

	err = database.WithTransaction(ctx, s.pool, func(tx pgx.Tx) error {
		res, err := s.reservations.CreateInTx(ctx, tx, session.ID, holds, s.reservationTTL)
		if err != nil {
			return err
		}
		session.StockReserved = true
		session.ReservationID = &res.ID
		return s.repo.Create(ctx, tx, session)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Checkout session created", map[string]interface{}{
		"session_id": session.ID,
		"user_email": session.UserEmail,
		"total":      session.Total.String(),
		"items":      len(session.Items),
	})

	return session, nil
}

// buildSnapshot validates every line against the live catalog and
// freezes current prices into the snapshot.
func (s *checkoutService) buildSnapshot(ctx context.Context, items []model.CreateSessionItem) ([]model.LineSnapshot, []resmodel.Hold, error) {
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return nil, nil, err
		}
		ids = append(ids, utils.ParseStringToUUID(item.ProductID))
	}

	products, err := s.productRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, nil, err
	}

	snapshot := make([]model.LineSnapshot, 0, len(items))
	holds := make([]resmodel.Hold, 0, len(items))
	for i, item := range items {
		product, ok := products[ids[i]]
		if !ok {
			return nil, nil, fmt.Errorf("product %s: not found", item.ProductID)
		}
		if !product.IsActive {
			return nil, nil, fmt.Errorf("product %s: %w", product.Name, model.ErrProductInactive)
		}
		if !product.HasSize(item.Size) {
			return nil, nil, fmt.Errorf("product %s size %s: %w", product.Name, item.Size, model.ErrSizeNotAvailable)
		}

		qty := decimal.NewFromInt(int64(item.Quantity))
		snapshot = append(snapshot, model.LineSnapshot{
			ProductID: product.ID,
			Name:      product.Name,
			Size:      item.Size,
			Quantity:  item.Quantity,
			UnitPrice: product.Price,
			LineTotal: product.Price.Mul(qty),
		})
		holds = append(holds, resmodel.Hold{
			ProductID: product.ID,
			Size:      item.Size,
			Quantity:  item.Quantity,
		})
	}

	return snapshot, holds, nil
}

func (s *checkoutService) GetSession(ctx context.Context, id uuid.UUID) (*model.CheckoutSession, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *checkoutService) ExpireAbandoned(ctx context.Context) (int, error) {
	abandoned, err := s.repo.ListAbandoned(ctx, time.Now(), s.sweepBatch)
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range abandoned {
		session := &abandoned[i]

		bound, err := s.orders.HasOrderForSession(ctx, session.ID)
		if err != nil {
			logger.Error("Failed to check order binding for session", err, map[string]interface{}{
				"session_id": session.ID,
			})
			continue
		}
		if bound {
			continue
		}

		err = database.WithTransaction(ctx, s.pool, func(tx pgx.Tx) error {
			return s.repo.UpdateStatus(ctx, tx, session.ID, model.StatusExpired)
		})
		if err != nil {
			logger.Error("Failed to expire session", err, map[string]interface{}{
				"session_id": session.ID,
			})
			continue
		}
		expired++
	}

	return expired, nil
}

func shippingCost(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(freeShippingThreshold) {
		return decimal.Zero
	}
	return flatShippingRate
}
