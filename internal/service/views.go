package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/d60-Lab/marketplace/internal/model"
)

// 订单读模型，字段布局对齐前端既有的序列化格式。

type AddressView struct {
	ID         string `json:"id"`
	Street     string `json:"street"`
	City       string `json:"city"`
	Region     string `json:"region"`
	PostalCode string `json:"postal_code"`
}

type ShippingMethodView struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	FlatFee     decimal.Decimal `json:"flat_fee"`
	LeadTimeMin string          `json:"lead_time_min"`
	LeadTimeMax string          `json:"lead_time_max"`
}

type OrderItemView struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type OrderView struct {
	ID                   string              `json:"id"`
	SellerID             string              `json:"seller_id"`
	Status               string              `json:"status"`
	ProgressPercentage   int                 `json:"progress_percentage"`
	ExpectedDeliveryDate time.Time           `json:"expected_delivery_date"`
	ShippingMethod       *ShippingMethodView `json:"shipping_method"`
	ShippingAddress      *AddressView        `json:"shipping_address,omitempty"`
	ShippingFee          decimal.Decimal     `json:"shipping_fee"`
	TotalAmount          decimal.Decimal     `json:"total_amount"`
	Items                []OrderItemView     `json:"items"`
	CreatedAt            time.Time           `json:"created_at"`
}

type HistoryView struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderDetailView 额外带时间插值进度与状态流水。
type OrderDetailView struct {
	OrderView
	Progress float64       `json:"progress"`
	History  []HistoryView `json:"history,omitempty"`
}

func newAddressView(a *model.Address) *AddressView {
	if a == nil {
		return nil
	}
	return &AddressView{
		ID:         a.ID,
		Street:     a.Street,
		City:       a.City,
		Region:     a.Region,
		PostalCode: a.PostalCode,
	}
}

func newShippingMethodView(m *model.ShippingMethod) *ShippingMethodView {
	if m == nil {
		return nil
	}
	return &ShippingMethodView{
		ID:          m.ID,
		Name:        m.Name,
		FlatFee:     m.FlatFee,
		LeadTimeMin: m.LeadTimeMin.String(),
		LeadTimeMax: m.LeadTimeMax.String(),
	}
}

func newOrderView(o *model.Order) OrderView {
	items := make([]OrderItemView, 0, len(o.Items))
	for i := range o.Items {
		it := o.Items[i]
		name := ""
		if it.Product != nil {
			name = it.Product.Name
		}
		items = append(items, OrderItemView{
			ProductID:   it.ProductID,
			ProductName: name,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Subtotal:    it.Subtotal,
		})
	}
	return OrderView{
		ID:                   o.ID,
		SellerID:             o.SellerID,
		Status:               o.Status,
		ProgressPercentage:   o.ProgressPercentage,
		ExpectedDeliveryDate: o.ExpectedDeliveryDate,
		ShippingMethod:       newShippingMethodView(o.ShippingMethod),
		ShippingAddress:      newAddressView(o.ShippingAddress),
		ShippingFee:          o.ShippingFee,
		TotalAmount:          o.TotalAmount,
		Items:                items,
		CreatedAt:            o.CreatedAt,
	}
}

func newOrderDetailView(o *model.Order, history []*model.OrderStatusHistory, now time.Time) OrderDetailView {
	hv := make([]HistoryView, 0, len(history))
	for _, h := range history {
		hv = append(hv, HistoryView{Status: h.Status, Timestamp: h.Timestamp})
	}
	return OrderDetailView{
		OrderView: newOrderView(o),
		Progress:  o.TimeProgress(now),
		History:   hv,
	}
}
