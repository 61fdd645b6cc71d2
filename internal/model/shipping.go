package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 配送方式名称（静态参考数据，结算期间不变）
const (
	ShippingPickup   = "pickup"
	ShippingCity     = "city"
	ShippingRegional = "regional"
)

// ShippingMethod 配送方式。LeadTimeMin/Max 为送达时间的上下界。
type ShippingMethod struct {
	ID          string          `gorm:"primaryKey;type:varchar(36)"`
	Name        string          `gorm:"type:varchar(20);uniqueIndex;not null"`
	FlatFee     decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	LeadTimeMin time.Duration   `gorm:"type:bigint;not null"`
	LeadTimeMax time.Duration   `gorm:"type:bigint;not null"`
}

func (ShippingMethod) TableName() string { return "shipping_methods" }

// RequiresAddress pickup 自提不需要收货地址。
func (m *ShippingMethod) RequiresAddress() bool {
	return m.Name == ShippingCity || m.Name == ShippingRegional
}

// DisplayName 用于通知文案。
func (m *ShippingMethod) DisplayName() string {
	switch m.Name {
	case ShippingPickup:
		return "Pick-up"
	case ShippingCity:
		return "City Delivery"
	case ShippingRegional:
		return "Regional Delivery"
	}
	return m.Name
}

// Address 收货地址，每用户一条，结算需要时 upsert。
type Address struct {
	ID         string `gorm:"primaryKey;type:varchar(36)"`
	UserID     string `gorm:"type:varchar(36);uniqueIndex;not null"`
	Street     string `gorm:"type:varchar(255);not null"`
	City       string `gorm:"type:varchar(100);not null"`
	Region     string `gorm:"type:varchar(100);not null"`
	PostalCode string `gorm:"type:varchar(20);not null"`
	UpdatedAt  time.Time
}

func (Address) TableName() string { return "addresses" }
