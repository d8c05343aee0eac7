package service

import (
	"context"
	"encoding/json"

	kafkago "github.com/segmentio/kafka-go"

	"profitshare-hertz/biz/dal/kafka"
	"profitshare-hertz/biz/model"
	"profitshare-hertz/conf"
)

// KafkaOrderExecutor 把订单投递给外部策略执行方
// 投递失败按瞬时失败处理，由队列重试
type KafkaOrderExecutor struct {
	topic string
}

func NewKafkaOrderExecutor() *KafkaOrderExecutor {
	return &KafkaOrderExecutor{topic: conf.GetConf().Kafka.OrderDispatchTopic}
}

func (e *KafkaOrderExecutor) Execute(ctx context.Context, o *model.Order) error {
	payload, err := json.Marshal(o)
	if err != nil {
		return err
	}
	writer := kafka.GetWriter(e.topic)
	return writer.WriteMessages(ctx, kafkago.Message{Key: []byte(o.UserID), Value: payload})
}
