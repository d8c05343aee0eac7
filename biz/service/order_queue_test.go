package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"profitshare-hertz/biz/basic"
	"profitshare-hertz/biz/dal/memory"
	"profitshare-hertz/biz/model"
)

// manualScheduler 手动触发的调度器，测试重试无需真实等待
type manualScheduler struct {
	mu    sync.Mutex
	tasks []*manualTask
}

type manualTask struct {
	fn        func()
	cancelled bool
}

func (s *manualScheduler) Schedule(d time.Duration, fn func()) func() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	task := &manualTask{fn: fn}
	s.tasks = append(s.tasks, task)
	return func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		if task.cancelled {
			return false
		}
		task.cancelled = true
		return true
	}
}

// Fire 执行并清空当前已排期的任务
func (s *manualScheduler) Fire() {
	s.mu.Lock()
	pending := s.tasks
	s.tasks = nil
	s.mu.Unlock()
	for _, task := range pending {
		if !task.cancelled {
			task.fn()
		}
	}
}

func (s *manualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, task := range s.tasks {
		if !task.cancelled {
			n++
		}
	}
	return n
}

// flakyExecutor 前 failures 次执行失败，之后成功
type flakyExecutor struct {
	mu       sync.Mutex
	failures int
	calls    int
}

func (e *flakyExecutor) Execute(ctx context.Context, o *model.Order) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.calls <= e.failures {
		return basic.DBFailedErr
	}
	return nil
}

func newTestQueue(t *testing.T, exec OrderExecutor, sched Scheduler) (*OrderQueue, *memory.OrderStore) {
	t.Helper()
	orders := memory.NewOrderStore()
	q, err := NewOrderQueue(orders, exec, 3, time.Second, 4, sched)
	if err != nil {
		t.Fatalf("NewOrderQueue failed: %v", err)
	}
	t.Cleanup(q.Release)
	return q, orders
}

func seedOrder(t *testing.T, orders *memory.OrderStore, orderID string) {
	t.Helper()
	err := orders.Create(context.Background(), &model.Order{
		OrderID: orderID,
		UserID:  "user1",
		Symbol:  "BTCUSDT",
		Amount:  decimal.New(1, 0),
		Status:  model.OrderStatusPending,
	})
	if err != nil {
		t.Fatalf("seed order failed: %v", err)
	}
}

func TestProcessOrderSuccess(t *testing.T) {
	sched := &manualScheduler{}
	q, orders := newTestQueue(t, &flakyExecutor{failures: 0}, sched)
	seedOrder(t, orders, "o1")

	if err := q.ProcessOrder(context.Background(), "o1"); err != nil {
		t.Fatalf("ProcessOrder failed: %v", err)
	}
	order, _ := orders.Get(context.Background(), "o1")
	if order.Status != model.OrderStatusCompleted {
		t.Errorf("status = %s, want completed", order.Status)
	}
	if order.RetryCount != 0 {
		t.Errorf("retry_count = %d, want 0", order.RetryCount)
	}
}

func TestProcessOrderRetriesThenSucceeds(t *testing.T) {
	sched := &manualScheduler{}
	q, orders := newTestQueue(t, &flakyExecutor{failures: 2}, sched)
	seedOrder(t, orders, "o1")

	if err := q.ProcessOrder(context.Background(), "o1"); err != nil {
		t.Fatalf("ProcessOrder failed: %v", err)
	}
	order, _ := orders.Get(context.Background(), "o1")
	if order.Status != model.OrderStatusRetrying || order.RetryCount != 1 {
		t.Fatalf("after first failure: status=%s retry=%d", order.Status, order.RetryCount)
	}

	sched.Fire() // 第二次执行，仍失败
	order, _ = orders.Get(context.Background(), "o1")
	if order.Status != model.OrderStatusRetrying || order.RetryCount != 2 {
		t.Fatalf("after second failure: status=%s retry=%d", order.Status, order.RetryCount)
	}

	sched.Fire() // 第三次执行，成功
	order, _ = orders.Get(context.Background(), "o1")
	if order.Status != model.OrderStatusCompleted {
		t.Errorf("status = %s, want completed", order.Status)
	}
	if order.RetryCount != 2 {
		t.Errorf("retry_count = %d, want 2", order.RetryCount)
	}
}

func TestProcessOrderExhaustsRetries(t *testing.T) {
	sched := &manualScheduler{}
	q, orders := newTestQueue(t, &flakyExecutor{failures: 100}, sched)
	seedOrder(t, orders, "o1")

	_ = q.ProcessOrder(context.Background(), "o1")
	for i := 0; i < 3; i++ {
		sched.Fire()
	}
	order, _ := orders.Get(context.Background(), "o1")
	if order.Status != model.OrderStatusFailed {
		t.Errorf("status = %s, want failed", order.Status)
	}
	if order.RetryCount != 3 {
		t.Errorf("retry_count = %d, want maxRetries(3)", order.RetryCount)
	}
	if sched.Pending() != 0 {
		t.Errorf("pending retries = %d after terminal failure", sched.Pending())
	}
}

func TestCancelOrderPending(t *testing.T) {
	sched := &manualScheduler{}
	q, orders := newTestQueue(t, &flakyExecutor{failures: 100}, sched)
	seedOrder(t, orders, "o1")

	_ = q.ProcessOrder(context.Background(), "o1")
	if err := q.CancelOrder(context.Background(), "o1"); err != nil {
		t.Fatalf("CancelOrder failed: %v", err)
	}
	order, _ := orders.Get(context.Background(), "o1")
	if order.Status != model.OrderStatusCancelled {
		t.Fatalf("status = %s, want cancelled", order.Status)
	}

	// 已排期的重试被取消，触发也不再改状态
	sched.Fire()
	order, _ = orders.Get(context.Background(), "o1")
	if order.Status != model.OrderStatusCancelled {
		t.Errorf("status = %s after fire, want cancelled", order.Status)
	}
}

func TestCancelOrderTerminalRejected(t *testing.T) {
	sched := &manualScheduler{}
	q, orders := newTestQueue(t, &flakyExecutor{failures: 0}, sched)
	seedOrder(t, orders, "o1")

	_ = q.ProcessOrder(context.Background(), "o1")
	err := q.CancelOrder(context.Background(), "o1")
	if !basic.Is(err, basic.StateMutationErr) {
		t.Fatalf("CancelOrder err = %v, want StateMutationErr", err)
	}
	order, _ := orders.Get(context.Background(), "o1")
	if order.Status != model.OrderStatusCompleted {
		t.Errorf("status = %s, want completed unchanged", order.Status)
	}
}

// blockingExecutor 执行时阻塞，用于构造执行中的订单
type blockingExecutor struct {
	started chan struct{}
	release chan struct{}
}

func (e *blockingExecutor) Execute(ctx context.Context, o *model.Order) error {
	close(e.started)
	<-e.release
	return nil
}

func TestCancelOrderDuringExecution(t *testing.T) {
	sched := &manualScheduler{}
	exec := &blockingExecutor{started: make(chan struct{}), release: make(chan struct{})}
	q, orders := newTestQueue(t, exec, sched)
	seedOrder(t, orders, "o1")

	procDone := make(chan struct{})
	go func() {
		_ = q.ProcessOrder(context.Background(), "o1")
		close(procDone)
	}()
	<-exec.started

	cancelErr := make(chan error, 1)
	go func() {
		cancelErr <- q.CancelOrder(context.Background(), "o1")
	}()

	// 取消要等本轮执行落库，不能先写 cancelled 再被 completed 覆盖
	select {
	case err := <-cancelErr:
		t.Fatalf("CancelOrder returned during execution: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(exec.release)
	<-procDone
	if err := <-cancelErr; !basic.Is(err, basic.StateMutationErr) {
		t.Fatalf("CancelOrder err = %v, want StateMutationErr", err)
	}
	order, _ := orders.Get(context.Background(), "o1")
	if order.Status != model.OrderStatusCompleted {
		t.Errorf("status = %s, want completed", order.Status)
	}
}

func TestAddOrderValidatesInput(t *testing.T) {
	sched := &manualScheduler{}
	q, _ := newTestQueue(t, &flakyExecutor{}, sched)

	cases := []*model.SubmitOrderMsg{
		nil,
		{UserID: "", Symbol: "BTCUSDT", Amount: decimal.New(1, 0)},
		{UserID: "u", Symbol: "", Amount: decimal.New(1, 0)},
		{UserID: "u", Symbol: "BTCUSDT", Amount: decimal.Zero},
	}
	for i, msg := range cases {
		if _, err := q.AddOrder(context.Background(), msg); !basic.Is(err, basic.ParamsErr) {
			t.Errorf("case %d: err = %v, want ParamsErr", i, err)
		}
	}
}

func TestAddOrderCompletes(t *testing.T) {
	sched := &manualScheduler{}
	q, orders := newTestQueue(t, &flakyExecutor{failures: 0}, sched)

	orderID, err := q.AddOrder(context.Background(), &model.SubmitOrderMsg{
		UserID: "user1",
		Symbol: "BTCUSDT",
		Side:   "buy",
		Amount: decimal.New(1, 0),
	})
	if err != nil {
		t.Fatalf("AddOrder failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		order, err := orders.Get(context.Background(), orderID)
		if err == nil && order.Status == model.OrderStatusCompleted {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	status, _ := q.GetOrderStatus(context.Background(), orderID)
	t.Errorf("order did not complete, status = %s", status)
}

func TestGetOrderStatusNotFound(t *testing.T) {
	sched := &manualScheduler{}
	q, _ := newTestQueue(t, &flakyExecutor{}, sched)
	if _, err := q.GetOrderStatus(context.Background(), "missing"); !basic.Is(err, basic.NotFoundErr) {
		t.Errorf("err = %v, want NotFoundErr", err)
	}
}
