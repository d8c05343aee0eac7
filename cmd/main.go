package main

import (
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/hertz-contrib/cors"
	"github.com/hertz-contrib/gzip"
	"github.com/hertz-contrib/logger/accesslog"
	"github.com/hertz-contrib/pprof"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/natefinch/lumberjack.v2"

	"profitshare-hertz/biz/basic"
	"profitshare-hertz/biz/dal"
	"profitshare-hertz/biz/dal/pg"
	"profitshare-hertz/biz/dal/redis"
	"profitshare-hertz/biz/handler"
	"profitshare-hertz/biz/model"
	"profitshare-hertz/biz/service"
	"profitshare-hertz/conf"
	"profitshare-hertz/middleware"
	wsserver "profitshare-hertz/server"
)

func main() {
	_ = godotenv.Load()
	cfg := conf.GetConf()

	initLogger(cfg)
	basic.InitAuditLogger(cfg.Commission.AuditLogFile, cfg.Hertz.LogMaxSize, cfg.Hertz.LogMaxBackups, cfg.Hertz.LogMaxAge)

	dal.Init()

	wallets := pg.NewWalletRepo()
	records := pg.NewCommissionRepo()
	orders := pg.NewOrderRepo()
	states := pg.NewTradeStateRepo()
	referrals := pg.NewReferralRepo()

	ledger := service.NewWalletLedger(wallets)
	engine := service.NewCommissionEngine(ledger, records, states, referrals, commissionRates(cfg))
	withdrawal := service.NewWithdrawalService(ledger, records)
	stats := service.NewStatsService(records, wallets, redis.Client)

	queue, err := service.NewOrderQueue(orders, service.NewKafkaOrderExecutor(),
		cfg.OrderQueue.MaxRetries,
		time.Duration(cfg.OrderQueue.RetryDelaySecs)*time.Second,
		cfg.OrderQueue.Workers, nil)
	if err != nil {
		hlog.Fatalf("init order queue failed: %v", err)
	}
	defer queue.Release()

	// 订单状态与佣金入账通过WebSocket推给订阅用户
	queue.SetStatusPusher(func(orderID, status string) {
		order, err := queue.GetOrder(context.Background(), orderID)
		if err != nil {
			return
		}
		wsserver.PushOrderStatus(order.UserID, orderID, status, time.Now().UnixMilli())
	})
	service.InitCommissionKafkaWriter(cfg.Kafka.CommissionTopic)
	defer service.ShutdownCommissionKafkaWriter()
	engine.SetPublisher(func(rec *model.CommissionRecord) {
		service.PublishCommissionRecord(rec)
		if rec.UserID != model.PlatformAccountID {
			wsserver.PushCommissionCredit(rec.UserID, rec.RecordID, rec.Amount.String(), rec.Generation, rec.CompletedAt)
		}
	})

	service.StartTradeProfitConsumer(engine, cfg.Kafka.TradeProfitTopic)
	defer service.ShutdownTradeProfitConsumer()

	// Consul注册与统计定时任务，多实例下由分布式锁保证单点执行
	if len(cfg.Registry.RegistryAddress) > 0 {
		helper, err := service.NewConsulHelperWithAddrs(cfg.Registry.RegistryAddress)
		if err != nil {
			hlog.Warnf("consul init failed, skip registration: %v", err)
		} else {
			nodeID, _ := os.Hostname()
			if err := helper.RegisterService(cfg.Registry.ServiceName, nodeID, listenPort(cfg.Hertz.Address)); err != nil {
				hlog.Warnf("consul register failed: %v", err)
			}
			service.StartDailyStatsTask(helper, stats)
		}
	}

	handler.Init(engine, ledger, queue, withdrawal, stats, records)
	handler.InitReferral(referrals)

	h := newServer(cfg)
	registerRoutes(h)

	// WebSocket事件推送服务独立端口
	go func() {
		ws := wsserver.NewWebSocketServer(":" + cfg.Hertz.WsPort)
		ws.Spin()
	}()

	h.Spin()
}

func listenPort(addr string) int {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 0
	}
	port, _ := strconv.Atoi(portStr)
	return port
}

func initLogger(cfg *conf.Config) {
	hlog.SetLevel(conf.LogLevel())
	if cfg.Hertz.LogFileName == "" {
		return
	}
	_ = os.MkdirAll(filepath.Dir(cfg.Hertz.LogFileName), 0o755)
	hlog.SetOutput(io.MultiWriter(os.Stdout, &lumberjack.Logger{
		Filename:   cfg.Hertz.LogFileName,
		MaxSize:    cfg.Hertz.LogMaxSize,
		MaxBackups: cfg.Hertz.LogMaxBackups,
		MaxAge:     cfg.Hertz.LogMaxAge,
	}))
}

func commissionRates(cfg *conf.Config) service.CommissionRates {
	rates := service.DefaultCommissionRates()
	if v, err := decimal.NewFromString(cfg.Commission.PlatformFeeRate); err == nil {
		rates.PlatformFee = v
	}
	if v, err := decimal.NewFromString(cfg.Commission.FirstGenRate); err == nil {
		rates.FirstGen = v
	}
	if v, err := decimal.NewFromString(cfg.Commission.SecondGenRate); err == nil {
		rates.SecondGen = v
	}
	return rates
}

func newServer(cfg *conf.Config) *server.Hertz {
	h := server.Default(server.WithHostPorts(cfg.Hertz.Address))
	h.Use(cors.Default())
	if cfg.Hertz.EnableGzip {
		h.Use(gzip.Gzip(gzip.DefaultCompression))
	}
	if cfg.Hertz.EnableAccessLog {
		h.Use(accesslog.New())
	}
	if cfg.Hertz.EnablePprof {
		pprof.Register(h)
	}
	if cfg.OrderQueue.RateLimitPerSec > 0 {
		h.Use(middleware.RateLimit(cfg.OrderQueue.RateLimitPerSec))
	}
	return h
}

func registerRoutes(h *server.Hertz) {
	api := h.Group("/api/v1")

	api.POST("/trades/profit", handler.ProcessTradeProfit)
	api.GET("/commissions", handler.ListCommissionRecords)

	api.GET("/wallets/:user_id", handler.GetWallet)

	api.POST("/orders", handler.SubmitOrder)
	api.GET("/orders", handler.ListOrders)
	api.GET("/orders/:id", handler.GetOrder)
	api.GET("/orders/:id/status", handler.GetOrderStatus)
	api.POST("/orders/cancel", handler.CancelOrder)

	api.POST("/withdrawals", handler.RequestWithdrawal)
	api.POST("/withdrawals/complete", handler.CompleteWithdrawal)
	api.POST("/withdrawals/reject", handler.RejectWithdrawal)

	api.POST("/referrals", handler.BindReferral)
	api.GET("/referrals/:user_id", handler.GetReferralUplines)

	api.GET("/stats/daily", handler.GetDailyStats)
	api.GET("/stats/range", handler.GetStatsRange)
	api.GET("/stats/total", handler.GetPlatformTotalStats)
}
