package service

import (
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/d60-Lab/marketplace/internal/cache"
	"github.com/d60-Lab/marketplace/internal/model"
	"github.com/d60-Lab/marketplace/internal/repository"
)

// captureNotifier 记录通知投递，供断言。
type captureNotifier struct {
	mu        sync.Mutex
	placed    []PlacedJob
	delivered []DeliveredJob
}

func (c *captureNotifier) EnqueuePlaced(job PlacedJob) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.placed = append(c.placed, job)
}

func (c *captureNotifier) EnqueueDelivered(job DeliveredJob) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.delivered = append(c.delivered, job)
}

type testEnv struct {
	db       *gorm.DB
	redis    *miniredis.Miniredis
	client   *redis.Client
	checkout *CheckoutService
	status   *StatusService
	query    *OrderQueryService
	notifier *captureNotifier
	index    *cache.OrderIDIndex
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.User{}, &model.Product{},
		&model.Cart{}, &model.CartItem{},
		&model.ShippingMethod{}, &model.Address{},
		&model.Order{}, &model.OrderItem{}, &model.OrderStatusHistory{},
	))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	carts := repository.NewCartRepository(db)
	products := repository.NewProductRepository(db)
	orders := repository.NewOrderRepository(db)
	methods := repository.NewShippingMethodRepository(db)
	addresses := repository.NewAddressRepository(db)
	idem := cache.NewIdempotencyStore(client, time.Hour)
	index := cache.NewOrderIDIndex(client, 30*time.Minute)
	notifier := &captureNotifier{}

	return &testEnv{
		db:       db,
		redis:    mr,
		client:   client,
		checkout: NewCheckoutService(db, carts, products, orders, methods, addresses, idem, index, notifier),
		status:   NewStatusService(db, orders, notifier),
		query:    NewOrderQueryService(orders, index),
		notifier: notifier,
		index:    index,
	}
}

func (e *testEnv) seedUser(t *testing.T, id string) *model.User {
	t.Helper()
	u := &model.User{ID: id, Username: id, Email: id + "@example.com"}
	require.NoError(t, e.db.Create(u).Error)
	return u
}

func (e *testEnv) seedProduct(t *testing.T, sellerID, name, price string, stock int) *model.Product {
	t.Helper()
	p := &model.Product{
		ID:       uuid.NewString(),
		SellerID: sellerID,
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Stock:    stock,
	}
	require.NoError(t, e.db.Create(p).Error)
	return p
}

func (e *testEnv) seedCart(t *testing.T, userID string, lines ...*model.Product) *model.Cart {
	t.Helper()
	cart := &model.Cart{ID: uuid.NewString(), UserID: userID}
	require.NoError(t, e.db.Create(cart).Error)
	for _, p := range lines {
		e.addCartLine(t, cart, p, 1)
	}
	return cart
}

func (e *testEnv) addCartLine(t *testing.T, cart *model.Cart, p *model.Product, qty int) {
	t.Helper()
	item := &model.CartItem{
		ID:        uuid.NewString(),
		CartID:    cart.ID,
		ProductID: p.ID,
		Quantity:  qty,
		UnitPrice: p.Price,
	}
	require.NoError(t, e.db.Create(item).Error)
}

func (e *testEnv) seedMethod(t *testing.T, name, fee string, leadMin, leadMax time.Duration) *model.ShippingMethod {
	t.Helper()
	m := &model.ShippingMethod{
		ID:          uuid.NewString(),
		Name:        name,
		FlatFee:     decimal.RequireFromString(fee),
		LeadTimeMin: leadMin,
		LeadTimeMax: leadMax,
	}
	require.NoError(t, e.db.Create(m).Error)
	return m
}

func (e *testEnv) countOrders(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(&model.Order{}).Count(&n).Error)
	return n
}

func (e *testEnv) countCartItems(t *testing.T, cartID string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(&model.CartItem{}).Where("cart_id = ?", cartID).Count(&n).Error)
	return n
}

func (e *testEnv) reloadProduct(t *testing.T, id string) *model.Product {
	t.Helper()
	var p model.Product
	require.NoError(t, e.db.Where("id = ?", id).First(&p).Error)
	return &p
}
