package service

import (
	"context"
	"encoding/json"
	"errors"
	"runtime"
	"time"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	kafkago "github.com/segmentio/kafka-go"

	"profitshare-hertz/biz/basic"
	"profitshare-hertz/biz/model"
	"profitshare-hertz/conf"
)

// Kafka交易收益消费相关
var tradeProfitConsumerClose chan struct{}

func StartTradeProfitConsumer(engine *CommissionEngine, topic string) {
	tradeProfitConsumerClose = make(chan struct{})
	brokers := conf.GetConf().Kafka.Brokers
	consumerNum := runtime.NumCPU()
	for i := 0; i < consumerNum; i++ {
		go tradeProfitConsumerWorker(i, engine, brokers, topic)
	}
}

func ShutdownTradeProfitConsumer() {
	if tradeProfitConsumerClose != nil {
		close(tradeProfitConsumerClose)
	}
}

func tradeProfitConsumerWorker(idx int, engine *CommissionEngine, brokers []string, topic string) {
	r := initTradeProfitReader(brokers, topic)
	defer r.Close()
	hlog.Infof("[TradeProfitConsumer-%d] Kafka Reader初始化: topic=%s, groupID=%s, brokers=%v", idx, topic, "commission-engine", brokers)
	for {
		select {
		case <-tradeProfitConsumerClose:
			return
		default:
			ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
			m, err := r.ReadMessage(ctx)
			cancel()
			if err != nil {
				continue
			}
			var msg model.TradeProfitMsg
			if err := json.Unmarshal(m.Value, &msg); err != nil {
				hlog.Errorf("[TradeProfitConsumer-%d] 消息解析失败: %v", idx, err)
				continue
			}
			handleTradeProfitMsg(idx, engine, &msg)
		}
	}
}

// 重复投递视为正常，Kafka至少一次语义下由幂等闸门兜底
func handleTradeProfitMsg(idx int, engine *CommissionEngine, msg *model.TradeProfitMsg) {
	err := engine.ProcessTradeProfit(context.Background(), msg.UserID, msg.StrategyID, msg.TradeID, msg.Profit)
	if err == nil {
		return
	}
	var lerr *basic.LedgerErr
	if errors.As(err, &lerr) && lerr.Code == basic.DuplicateTradeErrCode {
		hlog.Infof("[TradeProfitConsumer-%d] trade %s 已处理，跳过", idx, msg.TradeID)
		return
	}
	hlog.Errorf("[TradeProfitConsumer-%d] trade %s 分账失败: %v", idx, msg.TradeID, err)
}

func initTradeProfitReader(brokers []string, topic string) *kafkago.Reader {
	return kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  "commission-engine",
		MinBytes: 1,
		MaxBytes: 10e6,
	})
}
