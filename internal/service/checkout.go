package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/d60-Lab/marketplace/internal/cache"
	"github.com/d60-Lab/marketplace/internal/model"
	"github.com/d60-Lab/marketplace/internal/repository"
	"github.com/d60-Lab/marketplace/pkg/logger"
)

// AddressInput 结算请求中的收货地址。
type AddressInput struct {
	Street     string `json:"street" binding:"required"`
	City       string `json:"city" binding:"required"`
	Region     string `json:"region" binding:"required"`
	PostalCode string `json:"postal_code" binding:"required"`
}

// CheckoutRequest 一次结算提交。IdempotencyKey 为空时不去重，每次都建新订单。
type CheckoutRequest struct {
	ShippingMethodID string        `json:"shipping_method" binding:"required"`
	Address          *AddressInput `json:"address"`
	IdempotencyKey   string        `json:"-"`
}

// CheckoutResponse 结算响应体，幂等重放时按原始字节返回。
type CheckoutResponse struct {
	Orders []OrderDetailView `json:"orders"`
}

// CheckoutService 把购物车一次性转成按卖家拆分的订单。
// 库存扣减、订单落库、清空购物车在同一事务内完成；
// 通知与缓存写只在提交成功后发生。
type CheckoutService struct {
	db        *gorm.DB
	carts     repository.CartRepository
	products  repository.ProductRepository
	orders    repository.OrderRepository
	methods   repository.ShippingMethodRepository
	addresses repository.AddressRepository
	idem      *cache.IdempotencyStore
	index     *cache.OrderIDIndex
	notifier  CheckoutNotifier
}

func NewCheckoutService(
	db *gorm.DB,
	carts repository.CartRepository,
	products repository.ProductRepository,
	orders repository.OrderRepository,
	methods repository.ShippingMethodRepository,
	addresses repository.AddressRepository,
	idem *cache.IdempotencyStore,
	index *cache.OrderIDIndex,
	notifier CheckoutNotifier,
) *CheckoutService {
	return &CheckoutService{
		db:        db,
		carts:     carts,
		products:  products,
		orders:    orders,
		methods:   methods,
		addresses: addresses,
		idem:      idem,
		index:     index,
		notifier:  notifier,
	}
}

type sellerGroup struct {
	sellerID string
	items    []*model.CartItem
}

// Checkout 执行结算。返回序列化好的响应体；replayed 表示命中幂等缓存
// （未触达数据库，调用方应返回 200 而非 201）。
//
// 运费策略：多卖家购物车拆成 N 单时，每单独立收取所选方式的全额 flat fee。
func (s *CheckoutService) Checkout(ctx context.Context, userID string, req CheckoutRequest) (payload []byte, replayed bool, err error) {
	if req.IdempotencyKey != "" {
		data, cacheErr := s.idem.Get(ctx, userID, req.IdempotencyKey)
		if cacheErr != nil {
			logger.Warn("idempotency cache read failed", zap.Error(cacheErr))
		} else if data != nil {
			return data, true, nil
		}
	}

	var (
		user     model.User
		orderIDs []string
		placed   []PlacedJob
	)

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", userID).First(&user).Error; err != nil {
			return err
		}

		carts := s.carts.WithTx(tx)
		cart, err := carts.GetByUser(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEmptyCart
			}
			return err
		}
		items, err := carts.LockItems(ctx, cart.ID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return ErrEmptyCart
		}

		method, err := s.methods.WithTx(tx).GetByID(ctx, req.ShippingMethodID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvalidShippingMethod
			}
			return err
		}

		var addressID *string
		if method.RequiresAddress() {
			if req.Address == nil {
				return ErrAddressRequired
			}
			addr := &model.Address{
				UserID:     userID,
				Street:     req.Address.Street,
				City:       req.Address.City,
				Region:     req.Address.Region,
				PostalCode: req.Address.PostalCode,
			}
			if err := s.addresses.WithTx(tx).Upsert(ctx, addr); err != nil {
				return err
			}
			addressID = &addr.ID
		}

		// 固定升序加锁所有涉及的商品行，避免交叉死锁
		productIDs := make([]string, 0, len(items))
		for _, it := range items {
			productIDs = append(productIDs, it.ProductID)
		}
		sort.Strings(productIDs)
		products, err := s.products.WithTx(tx).LockByIDs(ctx, productIDs)
		if err != nil {
			return err
		}
		byProduct := make(map[string]*model.Product, len(products))
		for _, p := range products {
			byProduct[p.ID] = p
		}

		for _, it := range items {
			p, ok := byProduct[it.ProductID]
			if !ok {
				return gorm.ErrRecordNotFound
			}
			if p.SellerID == userID {
				return ErrSelfPurchase
			}
			if it.Quantity > p.Stock {
				return &InsufficientStockError{
					ProductID:   p.ID,
					ProductName: p.Name,
					Available:   p.Stock,
					Requested:   it.Quantity,
				}
			}
		}

		groups := groupBySeller(items, byProduct)
		now := time.Now()
		ordersRepo := s.orders.WithTx(tx)

		for _, g := range groups {
			order := buildOrder(userID, g, method, addressID, now)
			if err := ordersRepo.Create(ctx, order); err != nil {
				return err
			}
			if err := ordersRepo.AppendHistory(ctx, order.ID, order.Status); err != nil {
				return err
			}
			orderIDs = append(orderIDs, order.ID)
			placed = append(placed, PlacedJob{
				OrderID:      order.ID,
				Email:        user.Email,
				Name:         user.Username,
				Amount:       order.TotalAmount,
				MethodLabel:  method.DisplayName(),
				ExpectedDate: order.ExpectedDeliveryDate,
			})
		}

		// cart_items 每个 (cart, product) 唯一，单商品数量即行数量
		prodRepo := s.products.WithTx(tx)
		qtyByProduct := make(map[string]int, len(items))
		for _, it := range items {
			qtyByProduct[it.ProductID] += it.Quantity
		}
		for _, id := range productIDs {
			if err := prodRepo.AdjustStock(ctx, id, qtyByProduct[id]); err != nil {
				return err
			}
		}

		return carts.Clear(ctx, cart.ID)
	})
	if txErr != nil {
		return nil, false, txErr
	}

	// --- 以下均为提交后的副作用，失败不回滚订单 ---

	created, err := s.orders.GetByIDs(ctx, orderIDs)
	if err != nil {
		return nil, false, err
	}
	now := time.Now()
	views := make([]OrderDetailView, 0, len(created))
	for _, o := range created {
		views = append(views, newOrderDetailView(o, nil, now))
	}
	payload, err = json.Marshal(CheckoutResponse{Orders: views})
	if err != nil {
		return nil, false, err
	}

	if req.IdempotencyKey != "" {
		if err := s.idem.Set(ctx, userID, req.IdempotencyKey, payload); err != nil {
			logger.Warn("idempotency cache write failed", zap.Error(err))
		}
	}
	if err := s.index.Invalidate(ctx, userID); err != nil {
		logger.Warn("order index invalidation failed", zap.String("user", userID), zap.Error(err))
	}
	if s.notifier != nil {
		for _, job := range placed {
			s.notifier.EnqueuePlaced(job)
		}
	}

	return payload, false, nil
}

// groupBySeller 按卖家分组，组顺序为卖家 ID 升序（稳定分组）。
func groupBySeller(items []*model.CartItem, byProduct map[string]*model.Product) []sellerGroup {
	bySeller := make(map[string][]*model.CartItem)
	sellerIDs := make([]string, 0)
	for _, it := range items {
		sid := byProduct[it.ProductID].SellerID
		if _, ok := bySeller[sid]; !ok {
			sellerIDs = append(sellerIDs, sid)
		}
		bySeller[sid] = append(bySeller[sid], it)
	}
	sort.Strings(sellerIDs)
	groups := make([]sellerGroup, 0, len(sellerIDs))
	for _, sid := range sellerIDs {
		groups = append(groups, sellerGroup{sellerID: sid, items: bySeller[sid]})
	}
	return groups
}

func buildOrder(userID string, g sellerGroup, method *model.ShippingMethod, addressID *string, now time.Time) *model.Order {
	status := model.OrderStatusPending
	progress := 0
	expected := now.Add(method.LeadTimeMin)
	if method.Name == model.ShippingPickup {
		// 自提单直接完成
		status = model.OrderStatusDelivered
		progress = 100
		expected = now
	}

	order := &model.Order{
		ID:                   uuid.NewString(),
		UserID:               userID,
		SellerID:             g.sellerID,
		Status:               status,
		ShippingMethodID:     method.ID,
		ShippingAddressID:    addressID,
		ShippingFee:          method.FlatFee,
		ExpectedDeliveryDate: expected,
		ProgressPercentage:   progress,
	}

	total := decimal.Zero
	for _, it := range g.items {
		subtotal := it.Subtotal()
		order.Items = append(order.Items, model.OrderItem{
			ID:        uuid.NewString(),
			OrderID:   order.ID,
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Subtotal:  subtotal,
		})
		total = total.Add(subtotal)
	}
	order.TotalAmount = total.Add(method.FlatFee)
	return order
}
