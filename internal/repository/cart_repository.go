package repository

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/marketplace/internal/model"
)

// CartRepository 购物车仓储。结算路径通过 WithTx 绑定到事务句柄。
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository

	GetByUser(ctx context.Context, userID string) (*model.Cart, error)
	// LockItems 行锁读取购物车所有行（FOR UPDATE），按加入时间排序。
	LockItems(ctx context.Context, cartID string) ([]*model.CartItem, error)
	// Clear 删除全部行并把缓存总价清零。只在订单落库后调用。
	Clear(ctx context.Context, cartID string) error
}

type cartRepository struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) CartRepository { return &cartRepository{db: db} }

func (r *cartRepository) WithTx(tx *gorm.DB) CartRepository { return &cartRepository{db: tx} }

func (r *cartRepository) GetByUser(ctx context.Context, userID string) (*model.Cart, error) {
	var cart model.Cart
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *cartRepository) LockItems(ctx context.Context, cartID string) ([]*model.CartItem, error) {
	var items []*model.CartItem
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("cart_id = ?", cartID).
		Order("created_at").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *cartRepository) Clear(ctx context.Context, cartID string) error {
	if err := r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Delete(&model.CartItem{}).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Model(&model.Cart{}).
		Where("id = ?", cartID).
		Update("total_price", decimal.Zero).Error
}
