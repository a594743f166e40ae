package container

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"storefront-backend/internal/config"
	"storefront-backend/internal/infrastructure/cache"
	"storefront-backend/internal/infrastructure/database"
	"storefront-backend/pkg/jwt"
	"storefront-backend/pkg/logger"

	checkoutHandler "storefront-backend/internal/domains/checkout/handler"
	checkoutRepo "storefront-backend/internal/domains/checkout/repository"
	checkoutService "storefront-backend/internal/domains/checkout/service"
	orderHandler "storefront-backend/internal/domains/order/handler"
	orderRepo "storefront-backend/internal/domains/order/repository"
	orderService "storefront-backend/internal/domains/order/service"
	"storefront-backend/internal/domains/payment/gateway"
	"storefront-backend/internal/domains/payment/gateway/mock"
	"storefront-backend/internal/domains/payment/gateway/phonepe"
	paymentHandler "storefront-backend/internal/domains/payment/handler"
	paymentRepo "storefront-backend/internal/domains/payment/repository"
	paymentService "storefront-backend/internal/domains/payment/service"
	productRepo "storefront-backend/internal/domains/product/repository"
	reservationRepo "storefront-backend/internal/domains/reservation/repository"
	reservationService "storefront-backend/internal/domains/reservation/service"
	stockRepo "storefront-backend/internal/domains/stock/repository"
	stockService "storefront-backend/internal/domains/stock/service"
	webhookHandler "storefront-backend/internal/domains/webhook/handler"
	webhookRepo "storefront-backend/internal/domains/webhook/repository"
	webhookService "storefront-backend/internal/domains/webhook/service"
)

// Container wires the full dependency graph: config, infrastructure,
// repositories, services, handlers, in that order.
type Container struct {
	Config      *config.Config
	DB          *database.PostgresDB
	Redis       *cache.RedisClient
	JWTManager  *jwt.Manager
	AsynqClient *asynq.Client

	ProductRepo     productRepo.RepositoryInterface
	StockRepo       stockRepo.RepositoryInterface
	ReservationRepo reservationRepo.RepositoryInterface
	CheckoutRepo    checkoutRepo.RepositoryInterface
	OrderRepo       orderRepo.RepositoryInterface
	PaymentRepo     paymentRepo.RepositoryInterface
	WebhookRepo     webhookRepo.RepositoryInterface

	Gateway gateway.PaymentGateway

	StockService       stockService.ServiceInterface
	ReservationService reservationService.ServiceInterface
	CheckoutService    checkoutService.ServiceInterface
	DraftService       orderService.DraftServiceInterface
	CommitService      orderService.CommitServiceInterface
	PaymentService     paymentService.ServiceInterface

	WebhookIntake    *webhookService.IntakeService
	WebhookProcessor *webhookService.Processor
	WebhookQueue     *webhookService.QueueManager
	WebhookDLQ       *webhookService.DLQService
	Reconciler       *webhookService.Reconciler

	CheckoutHandler *checkoutHandler.CheckoutHandler
	PaymentHandler  *paymentHandler.PaymentHandler
	OrderHandler    *orderHandler.OrderHandler
	WebhookHandler  *webhookHandler.WebhookHandler
}

func NewContainer() (*Container, error) {
	c := &Container{}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	c.Config = cfg

	logger.Init(cfg.App.Environment)

	if err := c.initInfrastructure(); err != nil {
		return nil, err
	}

	c.initRepositories()

	if err := c.initGateway(); err != nil {
		return nil, err
	}

	c.initServices()
	c.initHandlers()

	logger.Info("Container initialized", map[string]interface{}{
		"environment": cfg.App.Environment,
		"gateway":     c.Gateway.Name(),
	})

	return c, nil
}

func (c *Container) initInfrastructure() error {
	db := database.NewPostgresDB(c.Config.DatabaseConnConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	c.DB = db

	redis := cache.NewRedisClient(c.Config.Redis.Host, c.Config.Redis.Password, c.Config.Redis.DB)
	if err := redis.Connect(ctx); err != nil {
		// Advisory locks and push dispatch degrade gracefully; the SQL
		// conditional updates and the periodic sweeps still run.
		logger.Warn("Redis connection failed, continuing without it", map[string]interface{}{
			"error": err.Error(),
		})
	}
	c.Redis = redis

	c.JWTManager = jwt.NewManager(c.Config.JWT.Secret)

	c.AsynqClient = asynq.NewClient(asynq.RedisClientOpt{
		Addr:     c.Config.Redis.Host,
		Password: c.Config.Redis.Password,
		DB:       c.Config.Redis.DB,
	})

	return nil
}

func (c *Container) initRepositories() {
	pool := c.DB.Pool

	c.ProductRepo = productRepo.NewRepository(pool)
	c.StockRepo = stockRepo.NewRepository(pool)
	c.ReservationRepo = reservationRepo.NewRepository(pool)
	c.CheckoutRepo = checkoutRepo.NewRepository(pool)
	c.OrderRepo = orderRepo.NewRepository(pool)
	c.PaymentRepo = paymentRepo.NewRepository(pool)
	c.WebhookRepo = webhookRepo.NewRepository(pool)
}

// initGateway picks the real client when merchant credentials are
// configured and the mock otherwise, so development and tests run
// without provider access.
func (c *Container) initGateway() error {
	if c.Config.Gateway.MerchantID == "" {
		c.Gateway = mock.New()
		return nil
	}

	client, err := phonepe.NewClient(&phonepe.Config{
		MerchantID:  c.Config.Gateway.MerchantID,
		Salt:        c.Config.Gateway.Salt,
		SaltIndex:   c.Config.Gateway.SaltIndex,
		Environment: c.Config.Gateway.Environment,
		BaseURL:     c.Config.Gateway.BaseURL,
		RedirectURL: c.Config.Gateway.RedirectURL,
	})
	if err != nil {
		return fmt.Errorf("failed to build gateway client: %w", err)
	}

	c.Gateway = client
	return nil
}

func (c *Container) initServices() {
	pool := c.DB.Pool
	reservationTTL := time.Duration(c.Config.Checkout.ReservationTTLSeconds) * time.Second
	paymentWindow := time.Duration(c.Config.Checkout.PaymentWindowSeconds) * time.Second

	c.StockService = stockService.NewService(c.StockRepo, pool)

	c.ReservationService = reservationService.NewService(
		c.ReservationRepo,
		c.StockRepo,
		c.OrderRepo,
		pool,
		paymentWindow,
	)

	c.CheckoutService = checkoutService.NewService(
		c.CheckoutRepo,
		c.ProductRepo,
		c.ReservationService,
		c.OrderRepo,
		c.Redis,
		pool,
		reservationTTL,
		paymentWindow,
	)

	c.DraftService = orderService.NewDraftService(c.OrderRepo, c.CheckoutRepo, pool)

	c.CommitService = orderService.NewCommitService(
		c.OrderRepo,
		c.StockRepo,
		c.ReservationRepo,
		c.CheckoutRepo,
		c.Redis,
		pool,
	)

	c.PaymentService = paymentService.NewPaymentService(
		c.PaymentRepo,
		c.DraftService,
		c.Gateway,
		pool,
		c.Config.Gateway.RedirectURL,
	)

	c.WebhookIntake = webhookService.NewIntakeService(
		c.WebhookRepo,
		c.AsynqClient,
		c.Config.Webhook.CallbackUsername,
		c.Config.Webhook.CallbackPassword,
	)

	c.WebhookProcessor = webhookService.NewProcessor(
		c.WebhookRepo,
		c.OrderRepo,
		c.CommitService,
		c.PaymentRepo,
		c.CheckoutRepo,
		pool,
		c.Config.Checkout.EmergencyAmountCeilingMinor,
	)

	c.WebhookQueue = webhookService.NewQueueManager(c.WebhookRepo, c.WebhookProcessor)
	c.WebhookDLQ = webhookService.NewDLQService(c.WebhookRepo, c.WebhookProcessor)

	c.Reconciler = webhookService.NewReconciler(
		c.WebhookRepo,
		c.OrderRepo,
		c.CommitService,
		c.Gateway,
		c.WebhookQueue,
	)
}

func (c *Container) initHandlers() {
	c.CheckoutHandler = checkoutHandler.NewCheckoutHandler(c.CheckoutService)
	c.PaymentHandler = paymentHandler.NewPaymentHandler(c.PaymentService)
	c.OrderHandler = orderHandler.NewOrderHandler(c.DraftService)
	c.WebhookHandler = webhookHandler.NewWebhookHandler(c.WebhookIntake, c.WebhookQueue, c.WebhookDLQ)
}

// Cleanup releases infrastructure resources during graceful shutdown.
func (c *Container) Cleanup() {
	if c.AsynqClient != nil {
		if err := c.AsynqClient.Close(); err != nil {
			logger.Warn("Failed to close asynq client", map[string]interface{}{"error": err.Error()})
		}
	}

	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			logger.Warn("Failed to close Redis", map[string]interface{}{"error": err.Error()})
		}
	}

	if c.DB != nil {
		c.DB.Close()
	}

	logger.Info("Container cleanup completed", nil)
}
