package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/d60-Lab/marketplace/internal/cache"
	"github.com/d60-Lab/marketplace/internal/model"
	"github.com/d60-Lab/marketplace/internal/repository"
	"github.com/d60-Lab/marketplace/internal/service"
)

// 压测并发结算对同一批商品的锁竞争：N 个买家抢 M 件库存，
// 验证成功单数 == 初始库存且最终库存不为负。

func main() {
	ctx := context.Background()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = "host=localhost user=postgres password=postgres dbname=postgres port=5434 sslmode=disable"
	}
	db := must(gorm.Open(postgres.Open(dsn), &gorm.Config{}))

	for _, table := range []string{"order_status_histories", "order_items", "orders", "cart_items", "carts", "addresses", "shipping_methods", "products", "users"} {
		mustDo(db.Exec("DROP TABLE IF EXISTS " + table + " CASCADE").Error)
	}
	mustDo(db.AutoMigrate(
		&model.User{}, &model.Product{},
		&model.Cart{}, &model.CartItem{},
		&model.ShippingMethod{}, &model.Address{},
		&model.Order{}, &model.OrderItem{}, &model.OrderStatusHistory{},
	))

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6380"
	}
	client := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer client.Close()

	const (
		buyerCount   = 200
		initialStock = 50
	)

	seller := model.User{ID: "seller", Username: "seller", Email: "seller@example.com"}
	mustDo(db.Create(&seller).Error)

	hot := model.Product{
		ID: "hot-item", SellerID: seller.ID, Name: "hot item",
		Price: decimal.NewFromInt(10), Stock: initialStock,
	}
	mustDo(db.Create(&hot).Error)

	pickup := model.ShippingMethod{
		ID: uuid.NewString(), Name: model.ShippingPickup,
		FlatFee: decimal.Zero, LeadTimeMin: 0, LeadTimeMax: 0,
	}
	mustDo(db.Create(&pickup).Error)

	buyers := make([]model.User, buyerCount)
	carts := make([]model.Cart, buyerCount)
	items := make([]model.CartItem, buyerCount)
	for i := 0; i < buyerCount; i++ {
		uid := fmt.Sprintf("buyer_%03d", i)
		buyers[i] = model.User{ID: uid, Username: uid, Email: uid + "@example.com"}
		carts[i] = model.Cart{ID: uuid.NewString(), UserID: uid, TotalPrice: hot.Price}
		items[i] = model.CartItem{
			ID: uuid.NewString(), CartID: carts[i].ID, ProductID: hot.ID,
			Quantity: 1, UnitPrice: hot.Price,
		}
	}
	mustDo(db.CreateInBatches(&buyers, 100).Error)
	mustDo(db.CreateInBatches(&carts, 100).Error)
	mustDo(db.CreateInBatches(&items, 100).Error)

	checkout := service.NewCheckoutService(
		db,
		repository.NewCartRepository(db),
		repository.NewProductRepository(db),
		repository.NewOrderRepository(db),
		repository.NewShippingMethodRepository(db),
		repository.NewAddressRepository(db),
		cache.NewIdempotencyStore(client, time.Hour),
		cache.NewOrderIDIndex(client, 30*time.Minute),
		nil,
	)

	var ok, outOfStock, failed atomic.Int64
	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < buyerCount; i++ {
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			_, _, err := checkout.Checkout(ctx, userID, service.CheckoutRequest{
				ShippingMethodID: pickup.ID,
			})
			switch {
			case err == nil:
				ok.Add(1)
			case isStockErr(err):
				outOfStock.Add(1)
			default:
				failed.Add(1)
			}
		}(buyers[i].ID)
	}
	wg.Wait()
	elapsed := time.Since(start)

	var final model.Product
	mustDo(db.Where("id = ?", hot.ID).First(&final).Error)

	fmt.Printf("buyers=%d stock=%d elapsed=%v\n", buyerCount, initialStock, elapsed)
	fmt.Printf("succeeded=%d out_of_stock=%d failed=%d\n", ok.Load(), outOfStock.Load(), failed.Load())
	fmt.Printf("final stock=%d units_sold=%d\n", final.Stock, final.UnitsSold)
	if final.Stock < 0 || ok.Load() != initialStock {
		fmt.Println("RESULT: OVERSOLD OR LOST UPDATES")
		os.Exit(1)
	}
	fmt.Println("RESULT: OK")
}

func isStockErr(err error) bool {
	var stockErr *service.InsufficientStockError
	return errors.As(err, &stockErr)
}

func must[T any](v T, err error) T {
	mustDo(err)
	return v
}

func mustDo(err error) {
	if err != nil {
		panic(err)
	}
}
