package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	FindByID(ctx context.Context, db *gorm.DB, restaurantID, id snowflake.ID) (*Invoice, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, restaurantID, id snowflake.ID) (*Invoice, error)
	Update(ctx context.Context, db *gorm.DB, invoice *Invoice, expectedVersion int64) (bool, error)
	Delete(ctx context.Context, db *gorm.DB, restaurantID, id snowflake.ID) (bool, error)

	CountNumbersWithPrefix(ctx context.Context, db *gorm.DB, restaurantID snowflake.ID, prefix string) (int64, error)
	NumberExists(ctx context.Context, db *gorm.DB, restaurantID snowflake.ID, number string) (bool, error)

	Stats(ctx context.Context, db *gorm.DB, restaurantID snowflake.ID, from, to *time.Time) (Stats, error)
}
