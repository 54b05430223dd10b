package cache

import (
	"context"

	"storefront-backend/pkg/cache"
	"storefront-backend/pkg/logger"
)

// =====================================================
// CACHE INVALIDATION BUS
// =====================================================

// Invalidation tags shared across domains. A tag maps to a key prefix;
// invalidating a tag drops every cached entry under that prefix.
const (
	TagOrderList       = "orders:list"
	TagOrderRefunds    = "orders:refunds" // per-order refund list, suffix :<order_id>
	TagAdminBadges     = "admin:badges"
	TagDashboardKPIs   = "dashboard:kpis"
	TagDashboardOrders = "dashboard:recent-orders"
	TagRevenue         = "dashboard:revenue"
	TagInventoryList   = "inventory:list"
	TagStock           = "inventory:stock"  // per-SKU stock, suffix :<inventory_id>
	TagProductDetail   = "products:detail"  // suffix :<product_id>
)

// InvalidationBus drops cached entries by tag. Failures are logged and
// swallowed: invalidation is a best-effort side effect, never part of the
// primary transaction.
type InvalidationBus struct {
	cache cache.Cache
}

func NewInvalidationBus(c cache.Cache) *InvalidationBus {
	return &InvalidationBus{cache: c}
}

func (b *InvalidationBus) Invalidate(ctx context.Context, tags ...string) {
	for _, tag := range tags {
		if err := b.cache.DeletePattern(ctx, "cache:"+tag+"*"); err != nil {
			logger.Error("cache invalidation failed for tag "+tag, err)
		}
	}
}
