package service

import (
	"context"
	"time"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/shopspring/decimal"

	"profitshare-hertz/biz/basic"
	"profitshare-hertz/biz/model"
	"profitshare-hertz/util"
)

// WithdrawalService 提现生命周期
// 申请 -> 冻结 + pending 流水；完成 -> 落定出金；拒绝 -> 解冻 + failed 流水
type WithdrawalService struct {
	ledger  *WalletLedger
	records RecordStore
}

func NewWithdrawalService(ledger *WalletLedger, records RecordStore) *WithdrawalService {
	return &WithdrawalService{ledger: ledger, records: records}
}

// RequestWithdrawal 发起提现，余额不足时钱包不变直接报错
func (s *WithdrawalService) RequestWithdrawal(ctx context.Context, userID string, amount decimal.Decimal) (*model.CommissionRecord, error) {
	if userID == "" || amount.LessThanOrEqual(decimal.Zero) {
		return nil, basic.ParamsErr
	}
	if err := s.ledger.Freeze(ctx, userID, amount); err != nil {
		return nil, err
	}

	id, err := util.GenerateRecordID()
	if err != nil {
		// 流水建不出来必须把冻结退回去
		_ = s.ledger.Release(ctx, userID, amount)
		return nil, err
	}
	rec := &model.CommissionRecord{
		RecordID:  id,
		UserID:    userID,
		Type:      model.RecordTypeWithdrawal,
		Amount:    amount.Neg(),
		Status:    model.RecordStatusPending,
		CreatedAt: time.Now().UnixMilli(),
	}
	if err := s.records.Create(ctx, rec); err != nil {
		_ = s.ledger.Release(ctx, userID, amount)
		return nil, err
	}
	hlog.Infof("withdrawal requested, user_id=%s, amount=%s, record_id=%s", userID, amount.String(), id)
	return rec, nil
}

// CompleteWithdrawal 提现打款完成，冻结金额出系统
func (s *WithdrawalService) CompleteWithdrawal(ctx context.Context, recordID string) error {
	rec, err := s.lookupPending(ctx, recordID)
	if err != nil {
		return err
	}
	// 先 CAS 抢占流水状态，并发的 complete/reject 只有一个能动冻结资金
	affected, err := s.records.UpdateStatus(ctx, recordID, model.RecordStatusPending, model.RecordStatusCompleted, time.Now().UnixMilli())
	if err != nil {
		return err
	}
	if !affected {
		return basic.StateMutationErr
	}
	amount := rec.Amount.Neg()
	if err := s.ledger.SettleWithdrawal(ctx, rec.UserID, amount); err != nil {
		// 出金失败把流水退回 pending
		_, _ = s.records.UpdateStatus(ctx, recordID, model.RecordStatusCompleted, model.RecordStatusPending, 0)
		return err
	}
	hlog.Infof("withdrawal completed, user_id=%s, amount=%s, record_id=%s", rec.UserID, amount.String(), recordID)
	return nil
}

// RejectWithdrawal 提现被拒绝，冻结金额退回余额，流水置为 failed
func (s *WithdrawalService) RejectWithdrawal(ctx context.Context, recordID string) error {
	rec, err := s.lookupPending(ctx, recordID)
	if err != nil {
		return err
	}
	affected, err := s.records.UpdateStatus(ctx, recordID, model.RecordStatusPending, model.RecordStatusFailed, 0)
	if err != nil {
		return err
	}
	if !affected {
		return basic.StateMutationErr
	}
	amount := rec.Amount.Neg()
	if err := s.ledger.Release(ctx, rec.UserID, amount); err != nil {
		_, _ = s.records.UpdateStatus(ctx, recordID, model.RecordStatusFailed, model.RecordStatusPending, 0)
		return err
	}
	hlog.Infof("withdrawal rejected, user_id=%s, amount=%s, record_id=%s", rec.UserID, amount.String(), recordID)
	return nil
}

func (s *WithdrawalService) lookupPending(ctx context.Context, recordID string) (*model.CommissionRecord, error) {
	rec, err := s.records.Get(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if rec.Type != model.RecordTypeWithdrawal {
		return nil, basic.NotFoundErr
	}
	if rec.Status != model.RecordStatusPending {
		return nil, basic.StateMutationErr
	}
	return rec, nil
}
