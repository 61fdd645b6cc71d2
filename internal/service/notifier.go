package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/d60-Lab/marketplace/internal/mail"
	"github.com/d60-Lab/marketplace/pkg/logger"
)

// PlacedJob 下单成功通知。
type PlacedJob struct {
	OrderID      string
	Email        string
	Name         string
	Amount       decimal.Decimal
	MethodLabel  string
	ExpectedDate time.Time
}

// DeliveredJob 送达通知。
type DeliveredJob struct {
	OrderID string
	Email   string
	Name    string
}

// CheckoutNotifier 结算/状态流水线投递通知的入口。实现必须非阻塞。
type CheckoutNotifier interface {
	EnqueuePlaced(job PlacedJob)
	EnqueueDelivered(job DeliveredJob)
}

type notifyKind int

const (
	kindPlaced notifyKind = iota + 1
	kindDelivered
)

type notifyJob struct {
	kind      notifyKind
	placed    PlacedJob
	delivered DeliveredJob
}

// Notifier 本地异步通知执行器：有界队列 + worker 池，at-least-once，
// 投递失败按固定退避重试，队列满则丢弃并告警。邮件内容以订单 ID 为
// 幂等键，重复投递无害。
type Notifier struct {
	mailer     mail.Mailer
	ch         chan notifyJob
	maxRetries int
	backoff    time.Duration
}

func NewNotifier(mailer mail.Mailer, queueSize, maxRetries int, backoff time.Duration) *Notifier {
	if queueSize <= 0 {
		queueSize = 10000
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if backoff <= 0 {
		backoff = 2 * time.Second
	}
	return &Notifier{
		mailer:     mailer,
		ch:         make(chan notifyJob, queueSize),
		maxRetries: maxRetries,
		backoff:    backoff,
	}
}

// Start 启动 worker，返回优雅关闭函数（等待队列自然排空一小段时间）。
func (n *Notifier) Start(workers int) func(context.Context) error {
	if workers <= 0 {
		workers = 4
	}
	stopCh := make(chan struct{})
	for i := 0; i < workers; i++ {
		go func() {
			for {
				select {
				case job := <-n.ch:
					n.deliver(job)
				case <-stopCh:
					return
				}
			}
		}()
	}
	return func(ctx context.Context) error {
		close(stopCh)
		timeout := time.After(2 * time.Second)
		for {
			select {
			case <-timeout:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			default:
				if len(n.ch) == 0 {
					return nil
				}
				time.Sleep(50 * time.Millisecond)
			}
		}
	}
}

func (n *Notifier) EnqueuePlaced(job PlacedJob) {
	select {
	case n.ch <- notifyJob{kind: kindPlaced, placed: job}:
	default:
		logger.Warn("notifier queue full, drop placed", zap.String("order", job.OrderID))
	}
}

func (n *Notifier) EnqueueDelivered(job DeliveredJob) {
	select {
	case n.ch <- notifyJob{kind: kindDelivered, delivered: job}:
	default:
		logger.Warn("notifier queue full, drop delivered", zap.String("order", job.OrderID))
	}
}

// QueueLen 当前队列长度（采样值）。
func (n *Notifier) QueueLen() int { return len(n.ch) }

func (n *Notifier) deliver(job notifyJob) {
	var (
		to, subject, body, orderID string
	)
	switch job.kind {
	case kindPlaced:
		p := job.placed
		orderID = p.OrderID
		to = p.Email
		subject = fmt.Sprintf("Your order %s has been placed", p.OrderID)
		body = fmt.Sprintf(
			"Hello %s,\nYour order %s has been successfully placed.\nTotal: $%s via %s.\nExpected delivery by %s.\n",
			p.Name, p.OrderID, p.Amount.StringFixed(2), p.MethodLabel,
			p.ExpectedDate.Format("2006-01-02 15:04"),
		)
	case kindDelivered:
		d := job.delivered
		orderID = d.OrderID
		to = d.Email
		subject = fmt.Sprintf("Your order %s has been delivered", d.OrderID)
		body = fmt.Sprintf(
			"Hello %s,\nYour order %s has been delivered. Thank you for shopping!",
			d.Name, d.OrderID,
		)
	default:
		return
	}

	var err error
	for attempt := 0; attempt < n.maxRetries; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = n.mailer.Send(ctx, to, subject, body)
		cancel()
		if err == nil {
			return
		}
		time.Sleep(n.backoff)
	}
	logger.Error("notification dispatch failed",
		zap.String("order", orderID), zap.Error(err))
}
