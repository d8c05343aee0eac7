package service

import (
	"context"
	"sync"
	"time"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/panjf2000/ants/v2"
	"github.com/shopspring/decimal"

	"profitshare-hertz/biz/basic"
	"profitshare-hertz/biz/model"
	"profitshare-hertz/util"
)

// OrderExecutor 订单执行器，任何报错都按瞬时失败处理进入重试
type OrderExecutor interface {
	Execute(ctx context.Context, o *model.Order) error
}

// Scheduler 延迟任务调度，替代自递归 timer，测试时可换成手动触发实现
type Scheduler interface {
	// Schedule 在 d 之后执行 fn，返回的函数可在触发前取消
	Schedule(d time.Duration, fn func()) func() bool
}

type timerScheduler struct{}

func (timerScheduler) Schedule(d time.Duration, fn func()) func() bool {
	t := time.AfterFunc(d, fn)
	return t.Stop
}

// NewTimerScheduler 基于 time.AfterFunc 的默认调度器
func NewTimerScheduler() Scheduler {
	return timerScheduler{}
}

const (
	DefaultMaxRetries = 3
	DefaultRetryDelay = 5 * time.Second
	DefaultWorkers    = 64
)

// OrderQueue 订单执行队列
// 同一订单的处理不可重入，失败按固定间隔重试，重试次数有上限
type OrderQueue struct {
	orders     OrderStore
	exec       OrderExecutor
	pool       *ants.Pool
	sched      Scheduler
	maxRetries int
	retryDelay time.Duration

	inflight sync.Map // orderID -> struct{}，处理中的订单
	retries  sync.Map // orderID -> 取消函数，等待重试的订单
	locks    sync.Map // orderID -> *sync.Mutex，同一订单的执行与取消互斥
	pusher   func(orderID, status string)
}

func NewOrderQueue(orders OrderStore, exec OrderExecutor, maxRetries int, retryDelay time.Duration, workers int, sched Scheduler) (*OrderQueue, error) {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	if retryDelay <= 0 {
		retryDelay = DefaultRetryDelay
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if sched == nil {
		sched = NewTimerScheduler()
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, err
	}
	return &OrderQueue{
		orders:     orders,
		exec:       exec,
		pool:       pool,
		sched:      sched,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
	}, nil
}

// SetStatusPusher 注入状态推送回调（WebSocket），可为 nil
func (q *OrderQueue) SetStatusPusher(p func(orderID, status string)) {
	q.pusher = p
}

// AddOrder 受理订单，落库为 pending 并异步执行
func (q *OrderQueue) AddOrder(ctx context.Context, msg *model.SubmitOrderMsg) (string, error) {
	if msg == nil || msg.UserID == "" || msg.Symbol == "" || msg.Amount.LessThanOrEqual(decimal.Zero) {
		return "", basic.ParamsErr
	}
	id, err := util.GenerateOrderID()
	if err != nil {
		return "", err
	}
	order := &model.Order{
		OrderID:    id,
		UserID:     msg.UserID,
		StrategyID: msg.StrategyID,
		Exchange:   msg.Exchange,
		Symbol:     msg.Symbol,
		Type:       msg.Type,
		Side:       msg.Side,
		Amount:     msg.Amount,
		Status:     model.OrderStatusPending,
	}
	if err := q.orders.Create(ctx, order); err != nil {
		return "", err
	}
	if err := q.pool.Submit(func() {
		_ = q.ProcessOrder(context.Background(), id)
	}); err != nil {
		hlog.Errorf("order pool submit failed, order_id=%s, err=%v", id, err)
	}
	return id, nil
}

func (q *OrderQueue) orderLock(orderID string) *sync.Mutex {
	if v, ok := q.locks.Load(orderID); ok {
		return v.(*sync.Mutex)
	}
	v, _ := q.locks.LoadOrStore(orderID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// ProcessOrder 处理订单，同一订单的并发重入是 no-op
func (q *OrderQueue) ProcessOrder(ctx context.Context, orderID string) error {
	if _, loaded := q.inflight.LoadOrStore(orderID, struct{}{}); loaded {
		hlog.Infof("order already in-flight, skip, order_id=%s", orderID)
		return nil
	}
	defer q.inflight.Delete(orderID)

	// 与 CancelOrder 共用同一把订单锁，终态一旦写入不会再被覆盖
	mu := q.orderLock(orderID)
	mu.Lock()
	defer mu.Unlock()

	order, err := q.orders.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if model.IsTerminalOrderStatus(order.Status) {
		hlog.Infof("order already terminal, skip, order_id=%s, status=%s", orderID, order.Status)
		return nil
	}

	execErr := q.exec.Execute(ctx, order)
	if execErr == nil {
		order.Status = model.OrderStatusCompleted
		if err := q.orders.Save(ctx, order); err != nil {
			return err
		}
		q.push(orderID, order.Status)
		hlog.Infof("order completed, order_id=%s, retry_count=%d", orderID, order.RetryCount)
		return nil
	}

	if order.RetryCount < q.maxRetries {
		order.RetryCount++
		order.Status = model.OrderStatusRetrying
		if err := q.orders.Save(ctx, order); err != nil {
			return err
		}
		q.push(orderID, order.Status)
		hlog.Warnf("order execution failed, schedule retry, order_id=%s, retry=%d/%d, err=%v",
			orderID, order.RetryCount, q.maxRetries, execErr)
		cancel := q.sched.Schedule(q.retryDelay, func() {
			q.retries.Delete(orderID)
			// 重试触发时订单可能已被取消，ProcessOrder 内部会再查一次终态
			_ = q.ProcessOrder(context.Background(), orderID)
		})
		q.retries.Store(orderID, cancel)
		return nil
	}

	order.Status = model.OrderStatusFailed
	if err := q.orders.Save(ctx, order); err != nil {
		return err
	}
	q.push(orderID, order.Status)
	hlog.Errorf("order failed after %d retries, order_id=%s, err=%v", order.RetryCount, orderID, execErr)
	return execErr
}

// CancelOrder 取消订单，终态订单拒绝取消
// 持有订单锁，执行中的订单要等本轮执行落库后再判定终态
func (q *OrderQueue) CancelOrder(ctx context.Context, orderID string) error {
	mu := q.orderLock(orderID)
	mu.Lock()
	defer mu.Unlock()

	order, err := q.orders.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if model.IsTerminalOrderStatus(order.Status) {
		return basic.StateMutationErr
	}
	order.Status = model.OrderStatusCancelled
	if err := q.orders.Save(ctx, order); err != nil {
		return err
	}
	if v, ok := q.retries.LoadAndDelete(orderID); ok {
		v.(func() bool)()
	}
	q.push(orderID, order.Status)
	hlog.Infof("order cancelled, order_id=%s", orderID)
	return nil
}

// GetOrderStatus 查询订单状态
func (q *OrderQueue) GetOrderStatus(ctx context.Context, orderID string) (string, error) {
	order, err := q.orders.Get(ctx, orderID)
	if err != nil {
		return "", err
	}
	return order.Status, nil
}

// GetOrder 查询订单
func (q *OrderQueue) GetOrder(ctx context.Context, orderID string) (*model.Order, error) {
	return q.orders.Get(ctx, orderID)
}

// Release 关闭 worker 池
func (q *OrderQueue) Release() {
	q.pool.Release()
}

func (q *OrderQueue) push(orderID, status string) {
	if q.pusher != nil {
		q.pusher(orderID, status)
	}
}
