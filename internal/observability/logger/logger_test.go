package logger

import (
	"context"
	"testing"

	"github.com/smallbiznis/restobill/internal/restaurantctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithContextAddsTenantAndActor(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	base := zap.New(core)

	ctx := restaurantctx.WithRestaurantID(context.Background(), 99)
	ctx = restaurantctx.WithActor(ctx, restaurantctx.Actor{Type: "staff", ID: "s-1"})

	WithContext(ctx, base).Info("hello")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "99", fields["restaurant_id"])
	assert.Equal(t, "staff", fields["actor_type"])
	assert.Equal(t, "s-1", fields["actor_id"])
	assert.NotContains(t, fields, "trace_id")
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(nil, Config{Level: "loud"})
	require.Error(t, err)
}

func TestOperationFromSQL(t *testing.T) {
	assert.Equal(t, "UPDATE", operationFromSQL("UPDATE subscriptions SET status = 'expired'"))
	assert.Equal(t, "SELECT", operationFromSQL("WITH x AS (SELECT 1) SELECT * FROM x"))
	assert.Equal(t, "UNKNOWN", operationFromSQL(""))
}
