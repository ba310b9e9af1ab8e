package cache

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	subscriptiondomain "github.com/smallbiznis/restobill/internal/subscription/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscriptionCacheSetGetInvalidate(t *testing.T) {
	c := NewSubscriptionCache(time.Minute)
	sub := subscriptiondomain.Subscription{ID: 10, RestaurantID: 20, Status: subscriptiondomain.StatusActive}

	c.Set(sub)
	got, ok := c.Get(20)
	require.True(t, ok)
	assert.Equal(t, sub.ID, got.ID)

	c.Invalidate(20)
	_, ok = c.Get(20)
	assert.False(t, ok)
}

func TestSubscriptionCacheIgnoresUnsavedRows(t *testing.T) {
	c := NewSubscriptionCache(0)
	c.Set(subscriptiondomain.Subscription{RestaurantID: 20})
	_, ok := c.Get(snowflake.ID(20))
	assert.False(t, ok)
}

func TestSubscriptionCacheFlush(t *testing.T) {
	c := NewSubscriptionCache(time.Minute)
	c.Set(subscriptiondomain.Subscription{ID: 1, RestaurantID: 2})
	c.Set(subscriptiondomain.Subscription{ID: 3, RestaurantID: 4})
	c.Flush()
	_, ok := c.Get(2)
	assert.False(t, ok)
	_, ok = c.Get(4)
	assert.False(t, ok)
}
