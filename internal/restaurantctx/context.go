package restaurantctx

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
)

// RestaurantContextKey is the request context key for the active restaurant ID.
type RestaurantContextKey struct{}

type actorContextKey struct{}

// Actor identifies who performs an operation, used for audit fields and logs.
type Actor struct {
	Type string
	ID   string
}

// WithRestaurantID stores the restaurant ID in the context.
func WithRestaurantID(ctx context.Context, restaurantID int64) context.Context {
	return context.WithValue(ctx, RestaurantContextKey{}, restaurantID)
}

// RestaurantIDFromContext returns the restaurant ID from context, if set.
func RestaurantIDFromContext(ctx context.Context) (snowflake.ID, bool) {
	if ctx == nil {
		return 0, false
	}

	switch typed := ctx.Value(RestaurantContextKey{}).(type) {
	case int64:
		if typed == 0 {
			return 0, false
		}
		return snowflake.ID(typed), true
	case snowflake.ID:
		if typed == 0 {
			return 0, false
		}
		return typed, true
	case string:
		parsed, err := snowflake.ParseString(strings.TrimSpace(typed))
		if err == nil && parsed != 0 {
			return parsed, true
		}
	}
	return 0, false
}

func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}
