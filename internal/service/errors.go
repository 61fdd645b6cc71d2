package service

import (
	"errors"
	"fmt"
)

// 结算路径的校验错误，任何一个都会整体回滚，对外统一 400。
var (
	ErrEmptyCart             = errors.New("cart is empty")
	ErrSelfPurchase          = errors.New("cannot purchase your own product")
	ErrInvalidShippingMethod = errors.New("invalid shipping method")
	ErrAddressRequired       = errors.New("address data required")
	ErrOrderNotFound         = errors.New("order not found")
	ErrInvalidTransition     = errors.New("invalid status transition")
)

// InsufficientStockError 指明缺货的商品与可用量。
type InsufficientStockError struct {
	ProductID   string
	ProductName string
	Available   int
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: available %d, requested %d",
		e.ProductName, e.Available, e.Requested)
}

// IsCheckoutValidationError 调用方据此区分 400 与 500。
func IsCheckoutValidationError(err error) bool {
	var stockErr *InsufficientStockError
	return errors.Is(err, ErrEmptyCart) ||
		errors.Is(err, ErrSelfPurchase) ||
		errors.Is(err, ErrInvalidShippingMethod) ||
		errors.Is(err, ErrAddressRequired) ||
		errors.As(err, &stockErr)
}
