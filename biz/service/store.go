package service

import (
	"context"

	"profitshare-hertz/biz/model"
)

// 存储抽象，pg 与 memory 两套实现
// 佣金引擎/钱包/队列只依赖这里的接口，便于更换存储与测试

type WalletStore interface {
	// Get 查询钱包，不存在返回 basic.NotFoundErr
	Get(ctx context.Context, userID string) (*model.Wallet, error)
	// GetOrCreate 懒创建钱包
	GetOrCreate(ctx context.Context, userID string) (*model.Wallet, error)
	Save(ctx context.Context, w *model.Wallet) error
	Count(ctx context.Context) (int, error)
}

type RecordStore interface {
	Create(ctx context.Context, rec *model.CommissionRecord) error
	Get(ctx context.Context, recordID string) (*model.CommissionRecord, error)
	// UpdateStatus 仅当当前状态为 from 时推进到 to，返回是否生效
	UpdateStatus(ctx context.Context, recordID, from, to string, completedAt int64) (bool, error)
	// List 按用户/类型过滤，入参为空表示不过滤
	List(ctx context.Context, userID, recordType string) ([]*model.CommissionRecord, error)
	// ListRange 查询 [startMs, endMs) 内创建的流水
	ListRange(ctx context.Context, startMs, endMs int64) ([]*model.CommissionRecord, error)
	ListAll(ctx context.Context) ([]*model.CommissionRecord, error)
}

type OrderStore interface {
	Create(ctx context.Context, o *model.Order) error
	Get(ctx context.Context, orderID string) (*model.Order, error)
	Save(ctx context.Context, o *model.Order) error
}

type TradeStateStore interface {
	// GetOrCreate 返回已存在的状态或新建 doing 态，created 表示本次新建
	GetOrCreate(ctx context.Context, st *model.TradeState) (*model.TradeState, bool, error)
	// UpdateStatus 仅当当前状态为 from 时推进到 to
	UpdateStatus(ctx context.Context, tradeID, from, to string) (bool, error)
}
