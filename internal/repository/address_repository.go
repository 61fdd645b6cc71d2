package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/marketplace/internal/model"
)

// AddressRepository 收货地址，每用户一条
type AddressRepository interface {
	WithTx(tx *gorm.DB) AddressRepository

	GetByUser(ctx context.Context, userID string) (*model.Address, error)
	// Upsert 以 user_id 为冲突键覆盖更新
	Upsert(ctx context.Context, addr *model.Address) error
}

type addressRepository struct {
	db *gorm.DB
}

func NewAddressRepository(db *gorm.DB) AddressRepository { return &addressRepository{db: db} }

func (r *addressRepository) WithTx(tx *gorm.DB) AddressRepository {
	return &addressRepository{db: tx}
}

func (r *addressRepository) GetByUser(ctx context.Context, userID string) (*model.Address, error) {
	var addr model.Address
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&addr).Error; err != nil {
		return nil, err
	}
	return &addr, nil
}

func (r *addressRepository) Upsert(ctx context.Context, addr *model.Address) error {
	if addr.ID == "" {
		addr.ID = uuid.NewString()
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"street", "city", "region", "postal_code", "updated_at"}),
		}).
		Create(addr).Error
	if err != nil {
		return err
	}
	// 冲突时保留原行主键，回读拿到真实 ID
	var saved model.Address
	if err := r.db.WithContext(ctx).Where("user_id = ?", addr.UserID).First(&saved).Error; err != nil {
		return err
	}
	addr.ID = saved.ID
	return nil
}
