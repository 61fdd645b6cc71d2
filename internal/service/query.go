package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/d60-Lab/marketplace/internal/cache"
	"github.com/d60-Lab/marketplace/internal/repository"
	"github.com/d60-Lab/marketplace/pkg/logger"
)

const defaultPageSize = 10

// OrderPage 游标分页结果。
type OrderPage struct {
	Next     *string     `json:"next"`
	Previous *string     `json:"previous"`
	Orders   []OrderView `json:"orders"`
}

// OrderQueryService 订单读路径：用户订单 ID 列表走 Redis 快照缓存，
// 游标在快照上定位，避免并发下单时 offset 分页的页漂移。
type OrderQueryService struct {
	orders repository.OrderRepository
	index  *cache.OrderIDIndex
}

func NewOrderQueryService(orders repository.OrderRepository, index *cache.OrderIDIndex) *OrderQueryService {
	return &OrderQueryService{orders: orders, index: index}
}

type cursor struct {
	Anchor string `json:"a"`
	Dir    string `json:"d"` // "n" 向 anchor 之后翻，"p" 向 anchor 之前翻
}

func encodeCursor(anchor, dir string) *string {
	raw, _ := json.Marshal(cursor{Anchor: anchor, Dir: dir})
	s := base64.RawURLEncoding.EncodeToString(raw)
	return &s
}

func decodeCursor(s string) (cursor, bool) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return cursor{}, false
	}
	var c cursor
	if err := json.Unmarshal(raw, &c); err != nil || c.Anchor == "" {
		return cursor{}, false
	}
	return c, true
}

// List 用户订单列表，创建时间倒序。cursorStr 为空从头开始。
func (s *OrderQueryService) List(ctx context.Context, userID, cursorStr string, pageSize int) (*OrderPage, error) {
	if pageSize < 1 {
		pageSize = defaultPageSize
	}

	ids, err := s.cachedIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	start := 0
	if cursorStr != "" {
		if c, ok := decodeCursor(cursorStr); ok {
			if idx := indexOf(ids, c.Anchor); idx >= 0 {
				if c.Dir == "p" {
					start = idx - pageSize
					if start < 0 {
						start = 0
					}
				} else {
					start = idx + 1
				}
			}
			// anchor 不在快照里（缓存刷新过）：回到开头
		}
	}

	end := start + pageSize
	if start > len(ids) {
		start = len(ids)
	}
	if end > len(ids) {
		end = len(ids)
	}
	pageIDs := ids[start:end]

	orders, err := s.orders.GetByIDs(ctx, pageIDs)
	if err != nil {
		return nil, err
	}
	views := make([]OrderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, newOrderView(o))
	}

	page := &OrderPage{Orders: views}
	if end < len(ids) && len(pageIDs) > 0 {
		page.Next = encodeCursor(pageIDs[len(pageIDs)-1], "n")
	}
	if start > 0 && len(pageIDs) > 0 {
		page.Previous = encodeCursor(pageIDs[0], "p")
	}
	return page, nil
}

// Get 订单详情。他人订单一律按不存在处理。
func (s *OrderQueryService) Get(ctx context.Context, userID, orderID string) (*OrderDetailView, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if order.UserID != userID {
		return nil, ErrOrderNotFound
	}
	history, err := s.orders.HistoryByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	view := newOrderDetailView(order, history, time.Now())
	return &view, nil
}

func (s *OrderQueryService) cachedIDs(ctx context.Context, userID string) ([]string, error) {
	if ids, ok := s.index.Get(ctx, userID); ok {
		return ids, nil
	}
	ids, err := s.orders.ListIDsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.index.Put(ctx, userID, ids); err != nil {
		logger.Warn("order index write failed", zap.String("user", userID), zap.Error(err))
	}
	return ids, nil
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}
