package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/shopspring/decimal"
)

type WithdrawalRequest struct {
	UserID string          `json:"user_id"`
	Amount decimal.Decimal `json:"amount"`
}

type WithdrawalActionRequest struct {
	RecordID string `json:"record_id"`
}

// RequestWithdrawal 发起提现，冻结余额并生成pending流水
func RequestWithdrawal(ctx context.Context, c *app.RequestContext) {
	var req WithdrawalRequest
	if err := c.BindAndValidate(&req); err != nil {
		c.JSON(consts.StatusBadRequest, map[string]interface{}{"error": err.Error()})
		return
	}
	rec, err := withdrawalSvc.RequestWithdrawal(ctx, req.UserID, req.Amount)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(consts.StatusOK, rec)
}

// CompleteWithdrawal 提现打款完成
func CompleteWithdrawal(ctx context.Context, c *app.RequestContext) {
	var req WithdrawalActionRequest
	if err := c.BindAndValidate(&req); err != nil {
		c.JSON(consts.StatusBadRequest, map[string]interface{}{"error": err.Error()})
		return
	}
	if err := withdrawalSvc.CompleteWithdrawal(ctx, req.RecordID); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(consts.StatusOK, map[string]interface{}{"record_id": req.RecordID, "status": "completed"})
}

// RejectWithdrawal 提现被拒绝，冻结金额退回余额
func RejectWithdrawal(ctx context.Context, c *app.RequestContext) {
	var req WithdrawalActionRequest
	if err := c.BindAndValidate(&req); err != nil {
		c.JSON(consts.StatusBadRequest, map[string]interface{}{"error": err.Error()})
		return
	}
	if err := withdrawalSvc.RejectWithdrawal(ctx, req.RecordID); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(consts.StatusOK, map[string]interface{}{"record_id": req.RecordID, "status": "failed"})
}
