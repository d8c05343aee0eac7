package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/shopspring/decimal"

	"profitshare-hertz/biz/model"
)

type TradeProfitRequest struct {
	TradeID    string          `json:"trade_id"`
	UserID     string          `json:"user_id"`
	StrategyID string          `json:"strategy_id"`
	Profit     decimal.Decimal `json:"profit"`
}

// ProcessTradeProfit 交易收益分账接口
// 与Kafka消费链路等价，供策略执行方直接回调
func ProcessTradeProfit(ctx context.Context, c *app.RequestContext) {
	var req TradeProfitRequest
	if err := c.BindAndValidate(&req); err != nil {
		c.JSON(consts.StatusBadRequest, map[string]interface{}{"error": err.Error()})
		return
	}
	if req.TradeID == "" || req.UserID == "" {
		c.JSON(consts.StatusBadRequest, map[string]interface{}{"error": "missing required fields"})
		return
	}
	if err := engineSvc.ProcessTradeProfit(ctx, req.UserID, req.StrategyID, req.TradeID, req.Profit); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(consts.StatusOK, map[string]interface{}{"trade_id": req.TradeID, "status": "distributed"})
}

// ListCommissionRecords 查询佣金流水，user_id与type均可选
func ListCommissionRecords(ctx context.Context, c *app.RequestContext) {
	userID := string(c.Query("user_id"))
	recordType := string(c.Query("type"))
	recs, err := recordStore.List(ctx, userID, recordType)
	if err != nil {
		respondErr(c, err)
		return
	}
	if recs == nil {
		recs = []*model.CommissionRecord{}
	}
	c.JSON(consts.StatusOK, recs)
}
