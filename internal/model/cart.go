package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart 每个用户一个，TotalPrice 为各行 quantity*unit_price 的缓存值。
type Cart struct {
	ID         string          `gorm:"primaryKey;type:varchar(36)"`
	UserID     string          `gorm:"type:varchar(36);uniqueIndex;not null"`
	TotalPrice decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (Cart) TableName() string { return "carts" }

// CartItem 购物车行。UnitPrice 为加购时的商品快照价，结算时不回读现价。
// (cart_id, product_id) 唯一。
type CartItem struct {
	ID        string          `gorm:"primaryKey;type:varchar(36)"`
	CartID    string          `gorm:"type:varchar(36);index:idx_cart_product,unique;not null"`
	ProductID string          `gorm:"type:varchar(36);index:idx_cart_product,unique;not null"`
	Product   *Product        `gorm:"foreignKey:ProductID"`
	Quantity  int             `gorm:"not null"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	CreatedAt time.Time
}

func (CartItem) TableName() string { return "cart_items" }

// Subtotal quantity * unit_price，定点计算。
func (ci *CartItem) Subtotal() decimal.Decimal {
	return ci.UnitPrice.Mul(decimal.NewFromInt(int64(ci.Quantity)))
}
