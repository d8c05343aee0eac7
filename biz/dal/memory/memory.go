// Package memory 提供存储接口的内存实现
// 用于单测与无外部依赖的单机运行模式
package memory

import (
	"context"
	"sort"
	"sync"

	"profitshare-hertz/biz/basic"
	"profitshare-hertz/biz/model"
)

type WalletStore struct {
	mu      sync.RWMutex
	wallets map[string]*model.Wallet
}

func NewWalletStore() *WalletStore {
	return &WalletStore{wallets: make(map[string]*model.Wallet)}
}

func (s *WalletStore) Get(ctx context.Context, userID string) (*model.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.wallets[userID]
	if !ok {
		return nil, basic.NotFoundErr
	}
	cp := *w
	return &cp, nil
}

func (s *WalletStore) GetOrCreate(ctx context.Context, userID string) (*model.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wallets[userID]
	if !ok {
		w = model.NewWallet(userID)
		s.wallets[userID] = w
	}
	cp := *w
	return &cp, nil
}

func (s *WalletStore) Save(ctx context.Context, w *model.Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *w
	s.wallets[w.UserID] = &cp
	return nil
}

func (s *WalletStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.wallets), nil
}

type RecordStore struct {
	mu      sync.RWMutex
	records map[string]*model.CommissionRecord
	order   []string // 创建顺序
}

func NewRecordStore() *RecordStore {
	return &RecordStore{records: make(map[string]*model.CommissionRecord)}
}

func (s *RecordStore) Create(ctx context.Context, rec *model.CommissionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.RecordID]; ok {
		return basic.StateMutationErr
	}
	cp := *rec
	s.records[rec.RecordID] = &cp
	s.order = append(s.order, rec.RecordID)
	return nil
}

func (s *RecordStore) Get(ctx context.Context, recordID string) (*model.CommissionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[recordID]
	if !ok {
		return nil, basic.NotFoundErr
	}
	cp := *rec
	return &cp, nil
}

func (s *RecordStore) UpdateStatus(ctx context.Context, recordID, from, to string, completedAt int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[recordID]
	if !ok {
		return false, basic.NotFoundErr
	}
	if rec.Status != from {
		return false, nil
	}
	rec.Status = to
	if completedAt > 0 {
		rec.CompletedAt = completedAt
	}
	return true, nil
}

func (s *RecordStore) List(ctx context.Context, userID, recordType string) ([]*model.CommissionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []*model.CommissionRecord
	for _, id := range s.order {
		rec := s.records[id]
		if userID != "" && rec.UserID != userID {
			continue
		}
		if recordType != "" && rec.Type != recordType {
			continue
		}
		cp := *rec
		res = append(res, &cp)
	}
	sort.SliceStable(res, func(i, j int) bool { return res[i].CreatedAt > res[j].CreatedAt })
	return res, nil
}

func (s *RecordStore) ListRange(ctx context.Context, startMs, endMs int64) ([]*model.CommissionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []*model.CommissionRecord
	for _, id := range s.order {
		rec := s.records[id]
		if rec.CreatedAt >= startMs && rec.CreatedAt < endMs {
			cp := *rec
			res = append(res, &cp)
		}
	}
	return res, nil
}

func (s *RecordStore) ListAll(ctx context.Context) ([]*model.CommissionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]*model.CommissionRecord, 0, len(s.order))
	for _, id := range s.order {
		cp := *s.records[id]
		res = append(res, &cp)
	}
	return res, nil
}

type OrderStore struct {
	mu     sync.RWMutex
	orders map[string]*model.Order
}

func NewOrderStore() *OrderStore {
	return &OrderStore{orders: make(map[string]*model.Order)}
}

func (s *OrderStore) Create(ctx context.Context, o *model.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[o.OrderID]; ok {
		return basic.StateMutationErr
	}
	cp := *o
	s.orders[o.OrderID] = &cp
	return nil
}

func (s *OrderStore) Get(ctx context.Context, orderID string) (*model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[orderID]
	if !ok {
		return nil, basic.NotFoundErr
	}
	cp := *o
	return &cp, nil
}

func (s *OrderStore) Save(ctx context.Context, o *model.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *o
	s.orders[o.OrderID] = &cp
	return nil
}

type TradeStateStore struct {
	mu     sync.Mutex
	states map[string]*model.TradeState
}

func NewTradeStateStore() *TradeStateStore {
	return &TradeStateStore{states: make(map[string]*model.TradeState)}
}

func (s *TradeStateStore) GetOrCreate(ctx context.Context, st *model.TradeState) (*model.TradeState, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.states[st.TradeID]; ok {
		cp := *existing
		return &cp, false, nil
	}
	cp := *st
	s.states[st.TradeID] = &cp
	out := cp
	return &out, true, nil
}

func (s *TradeStateStore) UpdateStatus(ctx context.Context, tradeID, from, to string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[tradeID]
	if !ok {
		return false, basic.NotFoundErr
	}
	if st.Status != from {
		return false, nil
	}
	st.Status = to
	return true, nil
}
