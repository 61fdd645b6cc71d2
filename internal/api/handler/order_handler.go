package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/d60-Lab/marketplace/internal/api/middleware"
	"github.com/d60-Lab/marketplace/internal/service"
	"github.com/d60-Lab/marketplace/pkg/logger"
	"github.com/d60-Lab/marketplace/pkg/response"
)

// Checkout 结算购物车（幂等）
// @Summary 结算购物车
// @Description 把购物车按卖家拆分成订单。带 Idempotency-Key 头可安全重试。
// @Tags 订单
// @Accept json
// @Produce json
// @Param Idempotency-Key header string false "幂等键"
// @Param request body service.CheckoutRequest true "结算参数"
// @Success 201 {object} service.CheckoutResponse
// @Success 200 {object} service.CheckoutResponse "幂等重放"
// @Failure 400 {object} map[string]string
// @Router /api/v1/orders/checkout [post]
func (h *Handler) Checkout(c *gin.Context) {
	var req service.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	req.IdempotencyKey = c.GetHeader("Idempotency-Key")

	payload, replayed, err := h.checkout.Checkout(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		if service.IsCheckoutValidationError(err) {
			response.BadRequest(c, err.Error())
			return
		}
		logger.Error("checkout failed", zap.Error(err))
		response.InternalError(c, err)
		return
	}

	// 重放必须按原始字节返回，保证与首次响应逐字节一致
	status := http.StatusCreated
	if replayed {
		status = http.StatusOK
	}
	c.Data(status, "application/json; charset=utf-8", payload)
}

// ListOrders 订单列表
// @Summary 我的订单（游标分页）
// @Tags 订单
// @Param cursor query string false "游标"
// @Param page_size query int false "每页数量" default(10)
// @Success 200 {object} service.OrderPage
// @Router /api/v1/orders [get]
func (h *Handler) ListOrders(c *gin.Context) {
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	page, err := h.query.List(c.Request.Context(), middleware.UserID(c), c.Query("cursor"), pageSize)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetOrder 订单详情
// @Summary 订单详情（含连续进度与状态流水）
// @Tags 订单
// @Param id path string true "订单 UUID"
// @Success 200 {object} service.OrderDetailView
// @Failure 404 {object} map[string]string
// @Router /api/v1/orders/{id} [get]
func (h *Handler) GetOrder(c *gin.Context) {
	view, err := h.query.Get(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			response.NotFound(c, "order not found")
			return
		}
		response.InternalError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateOrderStatus 推进订单状态
// @Summary 推进订单状态（pending→processing→shipped→delivered）
// @Tags 订单
// @Accept json
// @Param id path string true "订单 UUID"
// @Param request body statusRequest true "目标状态"
// @Success 200 {object} response.Response
// @Failure 400 {object} map[string]string
// @Router /api/v1/orders/{id}/status [patch]
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	order, err := h.status.Transition(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			response.NotFound(c, "order not found")
		case errors.Is(err, service.ErrInvalidTransition):
			response.BadRequest(c, err.Error())
		default:
			response.InternalError(c, err)
		}
		return
	}
	response.Success(c, gin.H{
		"id":                  order.ID,
		"status":              order.Status,
		"progress_percentage": order.ProgressPercentage,
	})
}

// DefaultAddress 默认收货地址
// @Summary 已保存的收货地址，没有则 204
// @Tags 订单
// @Success 200 {object} service.AddressView
// @Success 204
// @Router /api/v1/orders/default-address [get]
func (h *Handler) DefaultAddress(c *gin.Context) {
	addr, err := h.addresses.GetByUser(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NoContent(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	c.JSON(http.StatusOK, service.AddressView{
		ID:         addr.ID,
		Street:     addr.Street,
		City:       addr.City,
		Region:     addr.Region,
		PostalCode: addr.PostalCode,
	})
}

// ListShippingMethods 配送方式
// @Summary 可用配送方式
// @Tags 订单
// @Success 200 {object} response.Response
// @Router /api/v1/shipping-methods [get]
func (h *Handler) ListShippingMethods(c *gin.Context) {
	methods, err := h.methods.List(c.Request.Context())
	if err != nil {
		response.InternalError(c, err)
		return
	}
	out := make([]gin.H, 0, len(methods))
	for _, m := range methods {
		out = append(out, gin.H{
			"id":            m.ID,
			"name":          m.Name,
			"flat_fee":      m.FlatFee,
			"lead_time_min": m.LeadTimeMin.String(),
			"lead_time_max": m.LeadTimeMax.String(),
		})
	}
	response.Success(c, out)
}
