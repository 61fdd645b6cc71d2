package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/marketplace/internal/model"
)

// ProductRepository 商品仓储，库存台账的唯一写入口。
type ProductRepository interface {
	WithTx(tx *gorm.DB) ProductRepository

	GetByID(ctx context.Context, id string) (*model.Product, error)
	// LockByIDs 按 id 升序行锁读取，固定加锁顺序避免并发结算互相死锁。
	LockByIDs(ctx context.Context, ids []string) ([]*model.Product, error)
	// AdjustStock 带守卫的扣减：stock -= qty, units_sold += qty，
	// 仅当 stock >= qty 时生效。
	AdjustStock(ctx context.Context, productID string, qty int) error
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository { return &productRepository{db: db} }

func (r *productRepository) WithTx(tx *gorm.DB) ProductRepository {
	return &productRepository{db: tx}
}

func (r *productRepository) GetByID(ctx context.Context, id string) (*model.Product, error) {
	var p model.Product
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepository) LockByIDs(ctx context.Context, ids []string) ([]*model.Product, error) {
	var products []*model.Product
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id").
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

func (r *productRepository) AdjustStock(ctx context.Context, productID string, qty int) error {
	res := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ? AND stock >= ?", productID, qty).
		Updates(map[string]interface{}{
			"stock":      gorm.Expr("stock - ?", qty),
			"units_sold": gorm.Expr("units_sold + ?", qty),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("stock adjust rejected for product %s", productID)
	}
	return nil
}
