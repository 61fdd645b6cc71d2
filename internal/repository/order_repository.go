package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/marketplace/internal/model"
)

// OrderRepository 订单仓储接口
type OrderRepository interface {
	WithTx(tx *gorm.DB) OrderRepository

	// Create 创建订单及其行（级联写入 Items）
	Create(ctx context.Context, order *model.Order) error

	// AppendHistory 追加一条状态流水
	AppendHistory(ctx context.Context, orderID, status string) error

	// GetByID 根据订单ID查询订单（含配送方式/地址/行/商品）
	GetByID(ctx context.Context, orderID string) (*model.Order, error)

	// LockByID 行锁读取订单，用于状态推进
	LockByID(ctx context.Context, orderID string) (*model.Order, error)

	// GetByIDs 按给定 ID 顺序返回订单
	GetByIDs(ctx context.Context, ids []string) ([]*model.Order, error)

	// ListIDsByUser 用户全部订单 ID，按创建时间倒序；过滤掉没有任何行的脏数据
	ListIDsByUser(ctx context.Context, userID string) ([]string, error)

	// UpdateStatus 更新状态与离散进度
	UpdateStatus(ctx context.Context, orderID, status string, progress int) error

	// HistoryByOrder 订单状态流水，按时间正序
	HistoryByOrder(ctx context.Context, orderID string) ([]*model.OrderStatusHistory, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository { return &orderRepository{db: db} }

func (r *orderRepository) WithTx(tx *gorm.DB) OrderRepository { return &orderRepository{db: tx} }

func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *orderRepository) AppendHistory(ctx context.Context, orderID, status string) error {
	h := &model.OrderStatusHistory{ID: uuid.NewString(), OrderID: orderID, Status: status}
	return r.db.WithContext(ctx).Create(h).Error
}

func (r *orderRepository) GetByID(ctx context.Context, orderID string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Preload("ShippingMethod").
		Preload("ShippingAddress").
		Preload("Items").
		Preload("Items.Product").
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) LockByID(ctx context.Context, orderID string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) GetByIDs(ctx context.Context, ids []string) ([]*model.Order, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var orders []*model.Order
	err := r.db.WithContext(ctx).
		Preload("ShippingMethod").
		Preload("ShippingAddress").
		Preload("Items").
		Preload("Items.Product").
		Where("id IN ?", ids).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	// 保持调用方给定的顺序
	byID := make(map[string]*model.Order, len(orders))
	for _, o := range orders {
		byID[o.ID] = o
	}
	res := make([]*model.Order, 0, len(ids))
	for _, id := range ids {
		if o, ok := byID[id]; ok {
			res = append(res, o)
		}
	}
	return res, nil
}

func (r *orderRepository) ListIDsByUser(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Select("orders.id").
		Where("orders.user_id = ?", userID).
		Where("EXISTS (SELECT 1 FROM order_items WHERE order_items.order_id = orders.id)").
		Order("orders.created_at DESC, orders.id DESC").
		Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *orderRepository) UpdateStatus(ctx context.Context, orderID, status string, progress int) error {
	return r.db.WithContext(ctx).
		Model(&model.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]interface{}{
			"status":              status,
			"progress_percentage": progress,
		}).Error
}

func (r *orderRepository) HistoryByOrder(ctx context.Context, orderID string) ([]*model.OrderStatusHistory, error) {
	var rows []*model.OrderStatusHistory
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("timestamp").
		Find(&rows).Error
	return rows, err
}
