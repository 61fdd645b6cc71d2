package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/d60-Lab/marketplace/internal/model"
)

// ShippingMethodRepository 配送方式（静态参考数据）
type ShippingMethodRepository interface {
	WithTx(tx *gorm.DB) ShippingMethodRepository

	GetByID(ctx context.Context, id string) (*model.ShippingMethod, error)
	List(ctx context.Context) ([]*model.ShippingMethod, error)
}

type shippingMethodRepository struct {
	db *gorm.DB
}

func NewShippingMethodRepository(db *gorm.DB) ShippingMethodRepository {
	return &shippingMethodRepository{db: db}
}

func (r *shippingMethodRepository) WithTx(tx *gorm.DB) ShippingMethodRepository {
	return &shippingMethodRepository{db: tx}
}

func (r *shippingMethodRepository) GetByID(ctx context.Context, id string) (*model.ShippingMethod, error) {
	var m model.ShippingMethod
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *shippingMethodRepository) List(ctx context.Context) ([]*model.ShippingMethod, error) {
	var methods []*model.ShippingMethod
	err := r.db.WithContext(ctx).Order("name").Find(&methods).Error
	return methods, err
}
