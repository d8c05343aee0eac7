package service

import (
	"context"
	"sort"
	"time"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"profitshare-hertz/biz/basic"
	"profitshare-hertz/biz/model"
	"profitshare-hertz/util"
)

// ReferralGraph 外部推荐关系目录，只读
type ReferralGraph interface {
	FirstGeneration(ctx context.Context, userID string) ([]string, error)
	SecondGeneration(ctx context.Context, userID string) ([]string, error)
}

// CommissionRates 分账比例，一二代佣金均基于毛利润计算
type CommissionRates struct {
	PlatformFee decimal.Decimal
	FirstGen    decimal.Decimal
	SecondGen   decimal.Decimal
}

// DefaultCommissionRates 平台 10%，一代 20%，二代 10%
func DefaultCommissionRates() CommissionRates {
	return CommissionRates{
		PlatformFee: decimal.RequireFromString("0.10"),
		FirstGen:    decimal.RequireFromString("0.20"),
		SecondGen:   decimal.RequireFromString("0.10"),
	}
}

// RecordPublisher 分账完成后的外发回调（Kafka/WebSocket），可为 nil
type RecordPublisher func(rec *model.CommissionRecord)

// CommissionEngine 佣金分账引擎
// 单笔交易的分账是跨多个用户钱包的复合操作，无法用单把锁覆盖，
// 采用固定顺序的分步提交：平台 -> 交易用户 -> 一代 -> 二代，
// 任何一步失败则按逆序回滚已完成步骤
type CommissionEngine struct {
	ledger    *WalletLedger
	records   RecordStore
	states    TradeStateStore
	graph     ReferralGraph
	rates     CommissionRates
	publisher RecordPublisher
}

func NewCommissionEngine(ledger *WalletLedger, records RecordStore, states TradeStateStore, graph ReferralGraph, rates CommissionRates) *CommissionEngine {
	return &CommissionEngine{
		ledger:  ledger,
		records: records,
		states:  states,
		graph:   graph,
		rates:   rates,
	}
}

// SetPublisher 注入外发回调，需在启动阶段完成
func (e *CommissionEngine) SetPublisher(p RecordPublisher) {
	e.publisher = p
}

// distributionTx 分账步骤，Exec 与 Rollback 互逆
type distributionTx struct {
	Exec     func(ctx context.Context) error
	Rollback func(ctx context.Context) error
}

// roundMoney 金额统一保留两位小数，四舍五入
func roundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// ProcessTradeProfit 处理一笔已完结交易的利润分账
// platformFee = round(profit * 平台费率)，userNet = profit - platformFee，
// 两者之和恒等于 profit；推荐佣金是额外支出，不从交易用户份额中扣除
// 同一 tradeId 至多分账一次，重复调用返回 DuplicateTradeErr 且不产生任何变更
func (e *CommissionEngine) ProcessTradeProfit(ctx context.Context, userID, strategyID, tradeID string, profit decimal.Decimal) error {
	if userID == "" || tradeID == "" || profit.LessThanOrEqual(decimal.Zero) {
		return basic.ParamsErr
	}

	state, created, err := e.states.GetOrCreate(ctx, &model.TradeState{
		TradeID:    tradeID,
		UserID:     userID,
		StrategyID: strategyID,
		Profit:     profit,
		Status:     model.TradeStateDoing,
	})
	if err != nil {
		return err
	}
	if !created {
		if state.Status == model.TradeStateRolledBack {
			return basic.StateMutationErr
		}
		// 幂等闸门：该交易已处理或正在处理
		return basic.DuplicateTradeErr
	}

	txs, recs, err := e.prepareDistribution(ctx, userID, strategyID, tradeID, profit)
	if err != nil {
		_, _ = e.states.UpdateStatus(ctx, tradeID, model.TradeStateDoing, model.TradeStateRolledBack)
		return err
	}

	if err := e.executeDistribution(ctx, tradeID, txs); err != nil {
		return err
	}

	if e.publisher != nil {
		for _, rec := range recs {
			e.publisher(rec)
		}
	}

	hlog.Infof("trade profit distributed, trade_id=%s, user_id=%s, profit=%s", tradeID, userID, profit.String())
	return nil
}

// prepareDistribution 先算全部增量，再进入提交阶段
func (e *CommissionEngine) prepareDistribution(ctx context.Context, userID, strategyID, tradeID string, profit decimal.Decimal) ([]*distributionTx, []*model.CommissionRecord, error) {
	platformFee := roundMoney(profit.Mul(e.rates.PlatformFee))
	userNet := profit.Sub(platformFee)

	firstGen, err := e.graph.FirstGeneration(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	secondGen, err := e.graph.SecondGeneration(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	// 排序保证提交顺序确定
	sort.Strings(firstGen)
	sort.Strings(secondGen)

	firstGenAmount := roundMoney(profit.Mul(e.rates.FirstGen))
	secondGenAmount := roundMoney(profit.Mul(e.rates.SecondGen))

	txs := make([]*distributionTx, 0, 2+len(firstGen)+len(secondGen))
	recs := make([]*model.CommissionRecord, 0, cap(txs))

	// 平台手续费只记账，不动任何用户钱包
	platformRec := &model.CommissionRecord{
		UserID:     model.PlatformAccountID,
		Type:       model.RecordTypePlatform,
		Amount:     platformFee,
		StrategyID: strategyID,
		TradeID:    tradeID,
	}
	txs = append(txs, e.recordOnlyTx(platformRec))
	recs = append(recs, platformRec)

	// 交易用户净收益
	traderRec := &model.CommissionRecord{
		UserID:     userID,
		Type:       model.RecordTypeTeam,
		Amount:     userNet,
		StrategyID: strategyID,
		TradeID:    tradeID,
	}
	txs = append(txs, e.creditTx(traderRec))
	recs = append(recs, traderRec)

	for _, ref := range firstGen {
		rec := &model.CommissionRecord{
			UserID:       ref,
			Type:         model.RecordTypeTeam,
			Amount:       firstGenAmount,
			SourceUserID: userID,
			Generation:   1,
			StrategyID:   strategyID,
			TradeID:      tradeID,
		}
		txs = append(txs, e.creditTx(rec))
		recs = append(recs, rec)
	}
	for _, ref := range secondGen {
		rec := &model.CommissionRecord{
			UserID:       ref,
			Type:         model.RecordTypeTeam,
			Amount:       secondGenAmount,
			SourceUserID: userID,
			Generation:   2,
			StrategyID:   strategyID,
			TradeID:      tradeID,
		}
		txs = append(txs, e.creditTx(rec))
		recs = append(recs, rec)
	}
	return txs, recs, nil
}

// recordOnlyTx 只追加流水的步骤
func (e *CommissionEngine) recordOnlyTx(rec *model.CommissionRecord) *distributionTx {
	return &distributionTx{
		Exec: func(ctx context.Context) error {
			if err := e.appendCompleted(ctx, rec); err != nil {
				return err
			}
			return nil
		},
		Rollback: func(ctx context.Context) error {
			if rec.RecordID == "" {
				return nil
			}
			_, err := e.records.UpdateStatus(ctx, rec.RecordID, model.RecordStatusCompleted, model.RecordStatusFailed, 0)
			return err
		},
	}
}

// creditTx 追加流水并入账的步骤
func (e *CommissionEngine) creditTx(rec *model.CommissionRecord) *distributionTx {
	credited := false
	return &distributionTx{
		Exec: func(ctx context.Context) error {
			if err := e.appendCompleted(ctx, rec); err != nil {
				return err
			}
			if err := e.ledger.Credit(ctx, rec.UserID, rec.Amount, true); err != nil {
				return err
			}
			credited = true
			return nil
		},
		Rollback: func(ctx context.Context) error {
			if credited {
				if err := e.ledger.RevertCredit(ctx, rec.UserID, rec.Amount, true); err != nil {
					return err
				}
			}
			if rec.RecordID == "" {
				return nil
			}
			_, err := e.records.UpdateStatus(ctx, rec.RecordID, model.RecordStatusCompleted, model.RecordStatusFailed, 0)
			return err
		},
	}
}

func (e *CommissionEngine) appendCompleted(ctx context.Context, rec *model.CommissionRecord) error {
	id, err := util.GenerateRecordID()
	if err != nil {
		return err
	}
	now := time.Now().UnixMilli()
	rec.RecordID = id
	rec.Status = model.RecordStatusCompleted
	rec.CreatedAt = now
	rec.CompletedAt = now
	return e.records.Create(ctx, rec)
}

// executeDistribution 固定顺序提交，失败时逆序回滚已完成步骤
func (e *CommissionEngine) executeDistribution(ctx context.Context, tradeID string, txs []*distributionTx) error {
	done := 0
	for _, tx := range txs {
		if err := tx.Exec(ctx); err != nil {
			e.rollbackDistribution(ctx, tradeID, txs[:done])
			return err
		}
		done++
	}

	affected, err := e.states.UpdateStatus(ctx, tradeID, model.TradeStateDoing, model.TradeStateSuccess)
	if err != nil {
		return err
	}
	if !affected {
		return basic.StateMutationErr
	}
	return nil
}

func (e *CommissionEngine) rollbackDistribution(ctx context.Context, tradeID string, executed []*distributionTx) {
	for i := len(executed) - 1; i >= 0; i-- {
		if err := executed[i].Rollback(ctx); err != nil {
			// 回滚失败只能靠审计日志人工对账
			basic.AuditLogger().Error("distribution_rollback_failed",
				zap.String("trade_id", tradeID),
				zap.Error(err))
		}
	}
	_, _ = e.states.UpdateStatus(ctx, tradeID, model.TradeStateDoing, model.TradeStateRolledBack)
	hlog.Warnf("trade distribution rolled back, trade_id=%s", tradeID)
}
