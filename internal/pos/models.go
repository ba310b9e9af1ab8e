// Package pos reads the restaurant and order rows owned by the point of sale.
package pos

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Restaurant struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	Name      string       `gorm:"type:text;not null"`
	Address   string       `gorm:"type:text"`
	Phone     string       `gorm:"type:text"`
	Email     string       `gorm:"type:text"`
	GSTNumber string       `gorm:"column:gst_number;type:text"`
	Logo      string       `gorm:"type:text"`
	UPIID     string       `gorm:"column:upi_id;type:text"`
}

func (Restaurant) TableName() string { return "restaurants" }

const OrderPaymentStatusPaid = "paid"

type Order struct {
	ID            snowflake.ID `gorm:"primaryKey"`
	RestaurantID  snowflake.ID `gorm:"not null;index"`
	TableNumber   string       `gorm:"type:text"`
	PaymentStatus string       `gorm:"type:text;not null;default:'pending'"`
	Items         []OrderItem  `gorm:"foreignKey:OrderID"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (Order) TableName() string { return "orders" }

type OrderItem struct {
	ID        snowflake.ID    `gorm:"primaryKey"`
	OrderID   snowflake.ID    `gorm:"not null;index"`
	Name      string          `gorm:"type:text;not null"`
	Quantity  int             `gorm:"not null"`
	UnitPrice decimal.Decimal `gorm:"type:numeric;not null"`
}

func (OrderItem) TableName() string { return "order_items" }
