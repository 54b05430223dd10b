package container

import (
	"context"
	"fmt"

	"storefront-backend/internal/config"
	"storefront-backend/internal/infrastructure/cache"
	"storefront-backend/internal/infrastructure/database"
	"storefront-backend/internal/infrastructure/queue"
	pkgcache "storefront-backend/pkg/cache"

	inventoryrepo "storefront-backend/internal/domains/inventory/repository"
	orderrepo "storefront-backend/internal/domains/order/repository"
	refundgateway "storefront-backend/internal/domains/refund/gateway"
	gatewaymock "storefront-backend/internal/domains/refund/gateway/mock"
	stripegw "storefront-backend/internal/domains/refund/gateway/stripe"
	refundhandler "storefront-backend/internal/domains/refund/handler"
	refundrepo "storefront-backend/internal/domains/refund/repository"
	refundservice "storefront-backend/internal/domains/refund/service"
	"storefront-backend/pkg/logger"
)

// =====================================================
// DEPENDENCY INJECTION CONTAINER
// =====================================================

// Container wires repositories, services and handlers onto the shared
// infrastructure. Construction order matters: infrastructure first, then
// repositories, services, handlers.
type Container struct {
	Config *config.Config

	// Infrastructure
	DB          *database.PostgresDB
	Redis       *cache.RedisClient
	Cache       pkgcache.Cache
	QueueClient *queue.Client
	Invalidator *cache.InvalidationBus

	// Repositories
	RefundRepo    refundrepo.RefundRepoInterface
	OrderRepo     orderrepo.OrderRepoInterface
	InventoryRepo inventoryrepo.InventoryRepoInterface
	TxManager     refundrepo.TransactionManager

	// Gateway
	RefundGateway refundgateway.RefundGateway

	// Services
	RefundService     refundservice.RefundServiceInterface
	SettlementService refundservice.SettlementServiceInterface

	// Handlers
	RefundHandler  *refundhandler.RefundHandler
	WebhookHandler *refundhandler.WebhookHandler
}

func New(ctx context.Context, cfg *config.Config) (*Container, error) {
	c := &Container{Config: cfg}

	// Step 1: Infrastructure
	db, err := database.NewPostgresDB(ctx, &cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}
	c.DB = db

	c.Redis = cache.NewRedisClient(cfg.Redis.Host, cfg.Redis.Password, cfg.Redis.DB)
	if err := c.Redis.Connect(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init redis: %w", err)
	}
	c.Cache = cache.NewRedisCache(c.Redis)
	c.Invalidator = cache.NewInvalidationBus(c.Cache)
	c.QueueClient = queue.NewClient(cfg.Redis.Host, cfg.Redis.Password, cfg.Redis.DB)

	// Step 2: Repositories
	c.RefundRepo = refundrepo.NewRefundRepository(db.Pool)
	c.OrderRepo = orderrepo.NewOrderRepository(db.Pool)
	c.InventoryRepo = inventoryrepo.NewInventoryRepository(db.Pool)
	c.TxManager = refundrepo.NewTransactionManager(db.Pool)

	// Step 3: Payment gateway. Without a secret key (local dev) the mock
	// gateway stands in so the settlement flow stays exercisable.
	if cfg.Stripe.SecretKey != "" {
		gw, err := stripegw.NewClient(cfg.Stripe)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to init stripe gateway: %w", err)
		}
		c.RefundGateway = gw
	} else {
		logger.Warn("stripe secret key not set, using mock refund gateway", nil)
		c.RefundGateway = gatewaymock.NewMockRefundGateway()
	}

	// Step 4: Services
	c.RefundService = refundservice.NewRefundService(
		c.RefundRepo,
		c.OrderRepo,
		c.QueueClient,
		c.Invalidator,
	)
	c.SettlementService = refundservice.NewSettlementService(
		c.RefundRepo,
		c.OrderRepo,
		c.InventoryRepo,
		c.TxManager,
		c.RefundGateway,
		c.Invalidator,
	)

	// Step 5: Handlers
	c.RefundHandler = refundhandler.NewRefundHandler(c.RefundService, c.SettlementService)
	c.WebhookHandler = refundhandler.NewWebhookHandler(c.SettlementService, cfg.Stripe)

	return c, nil
}

// Close releases infrastructure resources in reverse construction order.
func (c *Container) Close() {
	if c.QueueClient != nil {
		if err := c.QueueClient.Close(); err != nil {
			logger.Error("failed to close queue client", err)
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			logger.Error("failed to close redis", err)
		}
	}
	if c.DB != nil {
		c.DB.Close()
	}
}
