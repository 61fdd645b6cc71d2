package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/marketplace/internal/model"
)

// seedOrder 直接落一张带一行的订单及初始流水。
func (e *testEnv) seedOrder(t *testing.T, userID, sellerID, status string) *model.Order {
	t.Helper()
	method := e.seedMethod(t, model.ShippingCity+"-"+uuid.NewString()[:8], "5.00", 48*time.Hour, 96*time.Hour)
	order := &model.Order{
		ID:                   uuid.NewString(),
		UserID:               userID,
		SellerID:             sellerID,
		Status:               status,
		ShippingMethodID:     method.ID,
		ShippingFee:          method.FlatFee,
		TotalAmount:          decimal.RequireFromString("15.00"),
		ExpectedDeliveryDate: time.Now().Add(48 * time.Hour),
		ProgressPercentage:   model.ProgressForStatus(status),
		Items: []model.OrderItem{{
			ID:        uuid.NewString(),
			ProductID: e.seedProduct(t, sellerID, "thing", "10.00", 5).ID,
			Quantity:  1,
			UnitPrice: decimal.RequireFromString("10.00"),
			Subtotal:  decimal.RequireFromString("10.00"),
		}},
	}
	require.NoError(t, e.db.Create(order).Error)
	require.NoError(t, e.db.Create(&model.OrderStatusHistory{
		ID: uuid.NewString(), OrderID: order.ID, Status: status,
	}).Error)
	return order
}

func (e *testEnv) historyCount(t *testing.T, orderID string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(&model.OrderStatusHistory{}).
		Where("order_id = ?", orderID).Count(&n).Error)
	return n
}

func TestTransitionAdvancesAndRecordsHistory(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	env.seedUser(t, "buyer")
	env.seedUser(t, "seller")
	order := env.seedOrder(t, "buyer", "seller", model.OrderStatusPending)

	got, err := env.status.Transition(ctx, order.ID, model.OrderStatusProcessing)
	require.NoError(t, err)
	require.Equal(t, model.OrderStatusProcessing, got.Status)
	require.Equal(t, 33, got.ProgressPercentage)
	require.EqualValues(t, 2, env.historyCount(t, order.ID))
	require.Empty(t, env.notifier.delivered)

	got, err = env.status.Transition(ctx, order.ID, model.OrderStatusShipped)
	require.NoError(t, err)
	require.Equal(t, 66, got.ProgressPercentage)
	require.EqualValues(t, 3, env.historyCount(t, order.ID))
}

func TestTransitionIntoDeliveredNotifiesOnce(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	env.seedUser(t, "buyer")
	env.seedUser(t, "seller")
	order := env.seedOrder(t, "buyer", "seller", model.OrderStatusShipped)

	_, err := env.status.Transition(ctx, order.ID, model.OrderStatusDelivered)
	require.NoError(t, err)
	require.Len(t, env.notifier.delivered, 1)
	require.Equal(t, order.ID, env.notifier.delivered[0].OrderID)
	require.Equal(t, "buyer@example.com", env.notifier.delivered[0].Email)

	// 同状态重复提交：no-op，不追加流水也不再发通知
	_, err = env.status.Transition(ctx, order.ID, model.OrderStatusDelivered)
	require.NoError(t, err)
	require.Len(t, env.notifier.delivered, 1)
	require.EqualValues(t, 2, env.historyCount(t, order.ID))
}

func TestTransitionRejectsBackward(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	env.seedUser(t, "buyer")
	env.seedUser(t, "seller")
	order := env.seedOrder(t, "buyer", "seller", model.OrderStatusShipped)

	_, err := env.status.Transition(ctx, order.ID, model.OrderStatusPending)
	require.ErrorIs(t, err, ErrInvalidTransition)
	require.EqualValues(t, 1, env.historyCount(t, order.ID))
}

func TestTransitionValidation(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	_, err := env.status.Transition(ctx, "missing", model.OrderStatusShipped)
	require.ErrorIs(t, err, ErrOrderNotFound)

	env.seedUser(t, "buyer")
	env.seedUser(t, "seller")
	order := env.seedOrder(t, "buyer", "seller", model.OrderStatusPending)
	_, err = env.status.Transition(ctx, order.ID, "teleported")
	require.ErrorIs(t, err, ErrInvalidTransition)
}
