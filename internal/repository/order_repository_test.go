package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/d60-Lab/marketplace/internal/model"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.User{}, &model.Product{},
		&model.Cart{}, &model.CartItem{},
		&model.ShippingMethod{}, &model.Address{},
		&model.Order{}, &model.OrderItem{}, &model.OrderStatusHistory{},
	))
	return db
}

func seedOrderRow(t *testing.T, db *gorm.DB, userID string, createdAt time.Time, withItem bool) *model.Order {
	t.Helper()
	method := &model.ShippingMethod{
		ID: uuid.NewString(), Name: "m-" + uuid.NewString()[:8],
		FlatFee: decimal.NewFromInt(5), LeadTimeMin: 48 * time.Hour, LeadTimeMax: 96 * time.Hour,
	}
	require.NoError(t, db.Create(method).Error)
	order := &model.Order{
		ID:                   uuid.NewString(),
		UserID:               userID,
		SellerID:             "seller",
		Status:               model.OrderStatusPending,
		ShippingMethodID:     method.ID,
		ShippingFee:          method.FlatFee,
		TotalAmount:          decimal.NewFromInt(15),
		ExpectedDeliveryDate: createdAt.Add(48 * time.Hour),
		CreatedAt:            createdAt,
	}
	if withItem {
		product := &model.Product{
			ID: uuid.NewString(), SellerID: "seller", Name: "thing",
			Price: decimal.NewFromInt(10), Stock: 5,
		}
		require.NoError(t, db.Create(product).Error)
		order.Items = []model.OrderItem{{
			ID: uuid.NewString(), ProductID: product.ID,
			Quantity: 1, UnitPrice: product.Price, Subtotal: product.Price,
		}}
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func TestGetByIDsPreservesGivenOrder(t *testing.T) {
	db := setupDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()

	now := time.Now()
	a := seedOrderRow(t, db, "u1", now, true)
	b := seedOrderRow(t, db, "u1", now.Add(time.Minute), true)
	c := seedOrderRow(t, db, "u1", now.Add(2*time.Minute), true)

	got, err := repo.GetByIDs(ctx, []string{c.ID, a.ID, b.ID})
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, c.ID, got[0].ID)
	require.Equal(t, a.ID, got[1].ID)
	require.Equal(t, b.ID, got[2].ID)

	// 未知 ID 静默跳过
	got, err = repo.GetByIDs(ctx, []string{a.ID, "missing"})
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestListIDsByUserFiltersAndSorts(t *testing.T) {
	db := setupDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()

	now := time.Now()
	old := seedOrderRow(t, db, "u1", now.Add(-time.Hour), true)
	newer := seedOrderRow(t, db, "u1", now, true)
	seedOrderRow(t, db, "u1", now.Add(time.Hour), false) // 无行订单被过滤
	seedOrderRow(t, db, "u2", now, true)                 // 其他用户

	ids, err := repo.ListIDsByUser(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, []string{newer.ID, old.ID}, ids)
}

func TestAdjustStockGuard(t *testing.T) {
	db := setupDB(t)
	repo := NewProductRepository(db)
	ctx := context.Background()

	p := &model.Product{
		ID: uuid.NewString(), SellerID: "seller", Name: "thing",
		Price: decimal.NewFromInt(10), Stock: 3,
	}
	require.NoError(t, db.Create(p).Error)

	require.NoError(t, repo.AdjustStock(ctx, p.ID, 2))

	var got model.Product
	require.NoError(t, db.Where("id = ?", p.ID).First(&got).Error)
	require.Equal(t, 1, got.Stock)
	require.Equal(t, 2, got.UnitsSold)

	// 守卫拒绝超扣
	require.Error(t, repo.AdjustStock(ctx, p.ID, 2))
	require.NoError(t, db.Where("id = ?", p.ID).First(&got).Error)
	require.Equal(t, 1, got.Stock)
}

func TestAppendHistoryAndReadBack(t *testing.T) {
	db := setupDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()

	order := seedOrderRow(t, db, "u1", time.Now(), true)
	require.NoError(t, repo.AppendHistory(ctx, order.ID, model.OrderStatusPending))
	require.NoError(t, repo.AppendHistory(ctx, order.ID, model.OrderStatusProcessing))

	rows, err := repo.HistoryByOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, model.OrderStatusPending, rows[0].Status)
	require.Equal(t, model.OrderStatusProcessing, rows[1].Status)
}

func TestAddressUpsertKeepsSingleRow(t *testing.T) {
	db := setupDB(t)
	repo := NewAddressRepository(db)
	ctx := context.Background()

	first := &model.Address{UserID: "u1", Street: "1 Main St", City: "A", Region: "R", PostalCode: "1"}
	require.NoError(t, repo.Upsert(ctx, first))
	require.NotEmpty(t, first.ID)

	second := &model.Address{UserID: "u1", Street: "2 Side St", City: "B", Region: "R", PostalCode: "2"}
	require.NoError(t, repo.Upsert(ctx, second))
	require.Equal(t, first.ID, second.ID, "conflict keeps original row id")

	var count int64
	require.NoError(t, db.Model(&model.Address{}).Count(&count).Error)
	require.EqualValues(t, 1, count)

	got, err := repo.GetByUser(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "B", got.City)
}
