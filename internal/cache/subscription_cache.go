// Package cache holds short lived in-process lookups for the access gate.
package cache

import (
	"time"

	"github.com/bwmarrin/snowflake"
	gocache "github.com/patrickmn/go-cache"
	"github.com/smallbiznis/restobill/internal/config"
	subscriptiondomain "github.com/smallbiznis/restobill/internal/subscription/domain"
	"go.uber.org/fx"
)

const defaultSubscriptionTTL = 30 * time.Second

var Module = fx.Module("cache",
	fx.Provide(ProvideSubscriptionCache),
)

// SubscriptionCache stores subscription snapshots keyed by restaurant.
// Writers invalidate after every committed mutation in the same process.
// Changes made elsewhere, such as the scheduler's expiry sweep, become
// visible once the entry's TTL lapses.
type SubscriptionCache interface {
	Get(restaurantID snowflake.ID) (subscriptiondomain.Subscription, bool)
	Set(sub subscriptiondomain.Subscription)
	Invalidate(restaurantID snowflake.ID)
	Flush()
}

type subscriptionCache struct {
	items *gocache.Cache
	ttl   time.Duration
}

func ProvideSubscriptionCache(cfg config.Config) SubscriptionCache {
	return NewSubscriptionCache(cfg.AccessCacheTTL)
}

// NewSubscriptionCache returns an in-memory cache. A non-positive ttl uses 30s.
func NewSubscriptionCache(ttl time.Duration) SubscriptionCache {
	if ttl <= 0 {
		ttl = defaultSubscriptionTTL
	}
	return &subscriptionCache{
		items: gocache.New(ttl, 2*ttl),
		ttl:   ttl,
	}
}

func (c *subscriptionCache) Get(restaurantID snowflake.ID) (subscriptiondomain.Subscription, bool) {
	value, ok := c.items.Get(cacheKey(restaurantID))
	if !ok {
		return subscriptiondomain.Subscription{}, false
	}
	sub, ok := value.(subscriptiondomain.Subscription)
	return sub, ok
}

func (c *subscriptionCache) Set(sub subscriptiondomain.Subscription) {
	if sub.ID == 0 || sub.RestaurantID == 0 {
		return
	}
	c.items.Set(cacheKey(sub.RestaurantID), sub, c.ttl)
}

func (c *subscriptionCache) Invalidate(restaurantID snowflake.ID) {
	c.items.Delete(cacheKey(restaurantID))
}

func (c *subscriptionCache) Flush() {
	c.items.Flush()
}

// NoopSubscriptionCache never stores anything.
type NoopSubscriptionCache struct{}

func (NoopSubscriptionCache) Get(snowflake.ID) (subscriptiondomain.Subscription, bool) {
	return subscriptiondomain.Subscription{}, false
}

func (NoopSubscriptionCache) Set(subscriptiondomain.Subscription) {}

func (NoopSubscriptionCache) Invalidate(snowflake.ID) {}

func (NoopSubscriptionCache) Flush() {}

func cacheKey(restaurantID snowflake.ID) string {
	return "subscription|" + restaurantID.String()
}
