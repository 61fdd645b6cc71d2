package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 订单状态，线性推进：pending -> processing -> shipped -> delivered
const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
)

var statusRank = map[string]int{
	OrderStatusPending:    0,
	OrderStatusProcessing: 1,
	OrderStatusShipped:    2,
	OrderStatusDelivered:  3,
}

// ValidStatus 是否为已知状态。
func ValidStatus(s string) bool {
	_, ok := statusRank[s]
	return ok
}

// StatusForward to 是否是 from 的前向推进（允许跨步，禁止回退）。
func StatusForward(from, to string) bool {
	a, okA := statusRank[from]
	b, okB := statusRank[to]
	return okA && okB && b > a
}

// ProgressForStatus 离散进度：pending 0 / processing 33 / shipped 66 / delivered 100。
func ProgressForStatus(s string) int {
	switch s {
	case OrderStatusProcessing:
		return 33
	case OrderStatusShipped:
		return 66
	case OrderStatusDelivered:
		return 100
	}
	return 0
}

// Order 单个卖家的结算聚合根。一次多卖家结算会产生多个 Order，独立跟踪。
// 不变式：TotalAmount = Σ item.Subtotal + ShippingFee。
type Order struct {
	ID                   string          `gorm:"primaryKey;type:varchar(36)"`
	UserID               string          `gorm:"type:varchar(36);index:idx_user_created;not null"`
	SellerID             string          `gorm:"type:varchar(36);index;not null"`
	Status               string          `gorm:"type:varchar(10);index;not null;default:'pending'"`
	ShippingMethodID     string          `gorm:"type:varchar(36);not null"`
	ShippingMethod       *ShippingMethod `gorm:"foreignKey:ShippingMethodID"`
	ShippingAddressID    *string         `gorm:"type:varchar(36)"` // pickup 为 nil
	ShippingAddress      *Address        `gorm:"foreignKey:ShippingAddressID"`
	ShippingFee          decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	TotalAmount          decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	ExpectedDeliveryDate time.Time       `gorm:"not null"`
	ProgressPercentage   int             `gorm:"not null;default:0"`
	Items                []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt            time.Time       `gorm:"index:idx_user_created"`
	UpdatedAt            time.Time
}

func (Order) TableName() string { return "orders" }

// ItemsSubtotal 各行小计之和。
func (o *Order) ItemsSubtotal() decimal.Decimal {
	sum := decimal.Zero
	for i := range o.Items {
		sum = sum.Add(o.Items[i].Subtotal)
	}
	return sum
}

// TimeProgress 连续进度：created_at 到 expected_delivery_date 的时间线性插值，
// clamp 到 [0,100]。与离散 ProgressPercentage 相互独立。
func (o *Order) TimeProgress(now time.Time) float64 {
	total := o.ExpectedDeliveryDate.Sub(o.CreatedAt)
	if total <= 0 {
		return 100
	}
	pct := float64(now.Sub(o.CreatedAt)) / float64(total) * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// OrderItem 订单行，由购物车行复制而来，创建后不可变。
type OrderItem struct {
	ID        string          `gorm:"primaryKey;type:varchar(36)"`
	OrderID   string          `gorm:"type:varchar(36);index;not null"`
	ProductID string          `gorm:"type:varchar(36);not null"`
	Product   *Product        `gorm:"foreignKey:ProductID"`
	Quantity  int             `gorm:"not null"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Subtotal  decimal.Decimal `gorm:"type:decimal(12,2);not null"`
}

func (OrderItem) TableName() string { return "order_items" }

// OrderStatusHistory 状态流水，append-only，含创建时的初始状态。
type OrderStatusHistory struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)"`
	OrderID   string    `gorm:"type:varchar(36);index;not null"`
	Status    string    `gorm:"type:varchar(10);not null"`
	Timestamp time.Time `gorm:"not null;autoCreateTime"`
}

func (OrderStatusHistory) TableName() string { return "order_status_histories" }
