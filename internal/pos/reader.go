package pos

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/restobill/internal/clock"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("pos",
	fx.Provide(NewReader),
	fx.Provide(func(r *GormReader) Reader { return r }),
	fx.Provide(func(r *GormReader) Writer { return r }),
)

// Reader loads POS rows. Missing rows return nil, nil.
type Reader interface {
	FindRestaurant(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Restaurant, error)
	FindOrder(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Order, error)
}

// Writer is the single write the billing core performs on POS data.
type Writer interface {
	MarkOrderPaid(ctx context.Context, db *gorm.DB, restaurantID, orderID snowflake.ID) error
}

type GormReader struct {
	clock clock.Clock
}

func NewReader(c clock.Clock) *GormReader {
	return &GormReader{clock: c}
}

func (r *GormReader) FindRestaurant(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Restaurant, error) {
	var restaurant Restaurant
	err := db.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&restaurant).Error
	if err != nil {
		return nil, err
	}
	if restaurant.ID == 0 {
		return nil, nil
	}
	return &restaurant, nil
}

// FindOrder returns the order with its items in insertion order.
func (r *GormReader) FindOrder(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Order, error) {
	var order Order
	err := db.WithContext(ctx).
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("id ASC") }).
		Where("id = ?", id).
		Limit(1).
		Find(&order).Error
	if err != nil {
		return nil, err
	}
	if order.ID == 0 {
		return nil, nil
	}
	return &order, nil
}

func (r *GormReader) MarkOrderPaid(ctx context.Context, db *gorm.DB, restaurantID, orderID snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`UPDATE orders SET payment_status = ?, updated_at = ? WHERE id = ? AND restaurant_id = ?`,
		OrderPaymentStatusPaid,
		r.clock.Now(),
		orderID,
		restaurantID,
	).Error
}
