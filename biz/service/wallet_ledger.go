package service

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"profitshare-hertz/biz/basic"
	"profitshare-hertz/biz/model"
)

// WalletLedger 钱包账本，唯一允许改动资金的组件
// 同一用户的变更串行化，不同用户互不阻塞
type WalletLedger struct {
	store WalletStore
	locks sync.Map // userID -> *sync.Mutex，钱包不删除，锁也不回收
}

func NewWalletLedger(store WalletStore) *WalletLedger {
	return &WalletLedger{store: store}
}

func (l *WalletLedger) userLock(userID string) *sync.Mutex {
	if v, ok := l.locks.Load(userID); ok {
		return v.(*sync.Mutex)
	}
	v, _ := l.locks.LoadOrStore(userID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// Credit 入账
// asCommission 为 true 时同步累加 TotalCommission
func (l *WalletLedger) Credit(ctx context.Context, userID string, amount decimal.Decimal, asCommission bool) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return basic.ParamsErr
	}
	mu := l.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	w, err := l.store.GetOrCreate(ctx, userID)
	if err != nil {
		return err
	}
	w.Balance = w.Balance.Add(amount)
	if asCommission {
		w.TotalCommission = w.TotalCommission.Add(amount)
	}
	if err := l.store.Save(ctx, w); err != nil {
		return err
	}
	basic.AuditLogger().Info("wallet_credit",
		zap.String("user_id", userID),
		zap.String("amount", amount.String()),
		zap.Bool("as_commission", asCommission),
		zap.String("balance", w.Balance.String()))
	return nil
}

// RevertCredit 冲正一笔刚入账的金额，仅供分账回滚使用
// 与 Credit 对称，余额可能被冲成负数，参照正向流水核对
func (l *WalletLedger) RevertCredit(ctx context.Context, userID string, amount decimal.Decimal, asCommission bool) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return basic.ParamsErr
	}
	mu := l.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	w, err := l.store.Get(ctx, userID)
	if err != nil {
		return err
	}
	w.Balance = w.Balance.Sub(amount)
	if asCommission {
		w.TotalCommission = w.TotalCommission.Sub(amount)
	}
	if err := l.store.Save(ctx, w); err != nil {
		return err
	}
	basic.AuditLogger().Info("wallet_revert_credit",
		zap.String("user_id", userID),
		zap.String("amount", amount.String()),
		zap.String("balance", w.Balance.String()))
	return nil
}

// Freeze 余额转入冻结，余额不足返回 InsufficientBalanceErr
func (l *WalletLedger) Freeze(ctx context.Context, userID string, amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return basic.ParamsErr
	}
	mu := l.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	w, err := l.store.GetOrCreate(ctx, userID)
	if err != nil {
		return err
	}
	if amount.GreaterThan(w.Balance) {
		return basic.InsufficientBalanceErr
	}
	w.Balance = w.Balance.Sub(amount)
	w.Frozen = w.Frozen.Add(amount)
	if err := l.store.Save(ctx, w); err != nil {
		return err
	}
	basic.AuditLogger().Info("wallet_freeze",
		zap.String("user_id", userID),
		zap.String("amount", amount.String()),
		zap.String("balance", w.Balance.String()),
		zap.String("frozen", w.Frozen.String()))
	return nil
}

// Release 解冻，冻结金额退回余额（提现被拒绝时使用）
func (l *WalletLedger) Release(ctx context.Context, userID string, amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return basic.ParamsErr
	}
	mu := l.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	w, err := l.store.Get(ctx, userID)
	if err != nil {
		return err
	}
	if amount.GreaterThan(w.Frozen) {
		return basic.InsufficientBalanceErr
	}
	w.Frozen = w.Frozen.Sub(amount)
	w.Balance = w.Balance.Add(amount)
	if err := l.store.Save(ctx, w); err != nil {
		return err
	}
	basic.AuditLogger().Info("wallet_release",
		zap.String("user_id", userID),
		zap.String("amount", amount.String()),
		zap.String("balance", w.Balance.String()),
		zap.String("frozen", w.Frozen.String()))
	return nil
}

// SettleWithdrawal 提现落定，冻结金额出系统并累加 TotalWithdrawal
func (l *WalletLedger) SettleWithdrawal(ctx context.Context, userID string, amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return basic.ParamsErr
	}
	mu := l.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	w, err := l.store.Get(ctx, userID)
	if err != nil {
		return err
	}
	if amount.GreaterThan(w.Frozen) {
		return basic.InsufficientBalanceErr
	}
	w.Frozen = w.Frozen.Sub(amount)
	w.TotalWithdrawal = w.TotalWithdrawal.Add(amount)
	if err := l.store.Save(ctx, w); err != nil {
		return err
	}
	basic.AuditLogger().Info("wallet_settle_withdrawal",
		zap.String("user_id", userID),
		zap.String("amount", amount.String()),
		zap.String("frozen", w.Frozen.String()),
		zap.String("total_withdrawal", w.TotalWithdrawal.String()))
	return nil
}

// GetWallet 查询钱包
func (l *WalletLedger) GetWallet(ctx context.Context, userID string) (*model.Wallet, error) {
	return l.store.Get(ctx, userID)
}
