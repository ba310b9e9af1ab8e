// Package rls scopes postgres sessions to one restaurant for row level security.
package rls

import (
	"fmt"

	"gorm.io/gorm"
)

// SettingKey is the session setting the invoice policies compare against.
const SettingKey = "app.current_restaurant_id"

// WithRestaurant pins the current transaction to restaurantID. It is a no-op
// on dialects without row level security.
func WithRestaurant(tx *gorm.DB, restaurantID int64) error {
	if tx == nil || tx.Dialector == nil || tx.Dialector.Name() != "postgres" {
		return nil
	}
	return tx.Exec(
		"SELECT set_config(?, ?, true)",
		SettingKey,
		fmt.Sprintf("%d", restaurantID),
	).Error
}
