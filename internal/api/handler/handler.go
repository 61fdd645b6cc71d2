package handler

import (
	"github.com/d60-Lab/marketplace/internal/repository"
	"github.com/d60-Lab/marketplace/internal/service"
)

// Handler 聚合订单域的 HTTP 处理器依赖。
type Handler struct {
	checkout  *service.CheckoutService
	query     *service.OrderQueryService
	status    *service.StatusService
	addresses repository.AddressRepository
	methods   repository.ShippingMethodRepository
}

func NewHandler(
	checkout *service.CheckoutService,
	query *service.OrderQueryService,
	status *service.StatusService,
	addresses repository.AddressRepository,
	methods repository.ShippingMethodRepository,
) *Handler {
	return &Handler{
		checkout:  checkout,
		query:     query,
		status:    status,
		addresses: addresses,
		methods:   methods,
	}
}
