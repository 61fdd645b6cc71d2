package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product 商品。Stock / UnitsSold 是结算路径上唯一的共享竞争字段，
// 必须在行锁下修改。
type Product struct {
	ID        string          `gorm:"primaryKey;type:varchar(36)"`
	SellerID  string          `gorm:"type:varchar(36);index;not null"`
	Seller    *User           `gorm:"foreignKey:SellerID"`
	Name      string          `gorm:"type:varchar(255);not null"`
	Price     decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Stock     int             `gorm:"not null;default:0"`
	UnitsSold int             `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Product) TableName() string { return "products" }
