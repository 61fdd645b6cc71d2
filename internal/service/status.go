package service

import (
	"context"

	"gorm.io/gorm"

	"github.com/d60-Lab/marketplace/internal/model"
	"github.com/d60-Lab/marketplace/internal/repository"
)

// StatusService 驱动订单状态机：pending -> processing -> shipped -> delivered。
// 每次真实推进追加一条流水并同步离散进度；进入 delivered 时在提交后
// 投递送达通知。同状态重复提交是 no-op，不产生流水也不发通知。
type StatusService struct {
	db       *gorm.DB
	orders   repository.OrderRepository
	notifier CheckoutNotifier
}

func NewStatusService(db *gorm.DB, orders repository.OrderRepository, notifier CheckoutNotifier) *StatusService {
	return &StatusService{db: db, orders: orders, notifier: notifier}
}

// Transition 推进订单到 newStatus。禁止回退（状态机线性）。
func (s *StatusService) Transition(ctx context.Context, orderID, newStatus string) (*model.Order, error) {
	if !model.ValidStatus(newStatus) {
		return nil, ErrInvalidTransition
	}

	var (
		order     *model.Order
		user      model.User
		delivered bool
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		o, err := repo.LockByID(ctx, orderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrOrderNotFound
			}
			return err
		}
		order = o

		if o.Status == newStatus {
			return nil
		}
		if !model.StatusForward(o.Status, newStatus) {
			return ErrInvalidTransition
		}

		progress := model.ProgressForStatus(newStatus)
		if err := repo.UpdateStatus(ctx, o.ID, newStatus, progress); err != nil {
			return err
		}
		if err := repo.AppendHistory(ctx, o.ID, newStatus); err != nil {
			return err
		}
		o.Status = newStatus
		o.ProgressPercentage = progress
		delivered = newStatus == model.OrderStatusDelivered

		if delivered {
			if err := tx.Where("id = ?", o.UserID).First(&user).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if delivered && s.notifier != nil {
		s.notifier.EnqueueDelivered(DeliveredJob{
			OrderID: order.ID,
			Email:   user.Email,
			Name:    user.Username,
		})
	}
	return order, nil
}
