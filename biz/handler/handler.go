package handler

import (
	"errors"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"profitshare-hertz/biz/basic"
	"profitshare-hertz/biz/service"
)

// 服务实例由 main 启动时注入
var (
	engineSvc     *service.CommissionEngine
	ledgerSvc     *service.WalletLedger
	queueSvc      *service.OrderQueue
	withdrawalSvc *service.WithdrawalService
	statsSvc      *service.StatsService
	recordStore   service.RecordStore
)

func Init(engine *service.CommissionEngine, ledger *service.WalletLedger, queue *service.OrderQueue,
	withdrawal *service.WithdrawalService, stats *service.StatsService, records service.RecordStore) {
	engineSvc = engine
	ledgerSvc = ledger
	queueSvc = queue
	withdrawalSvc = withdrawal
	statsSvc = stats
	recordStore = records
}

// respondErr 业务错误码到HTTP状态码的映射
func respondErr(c *app.RequestContext, err error) {
	var lerr *basic.LedgerErr
	if !errors.As(err, &lerr) {
		c.JSON(consts.StatusInternalServerError, map[string]interface{}{"error": err.Error()})
		return
	}
	status := consts.StatusInternalServerError
	switch lerr.Code {
	case basic.ParamsErrCode:
		status = consts.StatusBadRequest
	case basic.NotFoundErrCode:
		status = consts.StatusNotFound
	case basic.InsufficientBalanceErrCode, basic.StateMutationErrCode, basic.DuplicateTradeErrCode:
		status = consts.StatusConflict
	}
	c.JSON(status, map[string]interface{}{"code": int(lerr.Code), "error": lerr.Msg})
}
