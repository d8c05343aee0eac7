package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	kafkago "github.com/segmentio/kafka-go"

	"profitshare-hertz/biz/dal/kafka"
	"profitshare-hertz/biz/model"
)

// Kafka分成流水写入相关
var commissionBatchChan chan *model.CommissionRecord
var commissionKafkaTopic string
var commissionKafkaWriterClose chan struct{}

func InitCommissionKafkaWriter(topic string) {
	commissionKafkaTopic = topic
	commissionBatchChan = make(chan *model.CommissionRecord, 10000)
	commissionKafkaWriterClose = make(chan struct{})
	go batchCommissionKafkaWriter()
}

// 优雅关闭Kafka批量写入协程
func ShutdownCommissionKafkaWriter() {
	close(commissionKafkaWriterClose)
}

// PublishCommissionRecord 落库成功后异步推送分成流水到Kafka
// writer未初始化时静默跳过，单机模式下不依赖Kafka
func PublishCommissionRecord(rec *model.CommissionRecord) {
	if commissionBatchChan == nil {
		return
	}
	select {
	case commissionBatchChan <- rec:
	default:
		hlog.Warnf("[CommissionKafka] batch chan full, drop record %s", rec.RecordID)
	}
}

func batchCommissionKafkaWriter() {
	batch := make([]kafkago.Message, 0, 100)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case rec := <-commissionBatchChan:
			msgBytes, err := json.Marshal(rec)
			if err == nil {
				batch = append(batch, kafkago.Message{Key: []byte(rec.UserID), Value: msgBytes})
			}
			if len(batch) >= 100 {
				flushCommissionKafkaBatch(&batch)
			}
		case <-ticker.C:
			if len(batch) > 0 {
				flushCommissionKafkaBatch(&batch)
			}
		case <-commissionKafkaWriterClose:
			if len(batch) > 0 {
				flushCommissionKafkaBatch(&batch)
			}
			return
		}
	}
}

func flushCommissionKafkaBatch(batch *[]kafkago.Message) {
	writer := kafka.GetWriter(commissionKafkaTopic)
	if err := writer.WriteMessages(context.Background(), (*batch)...); err != nil {
		hlog.Errorf("[CommissionKafka] write batch failed: %v", err)
	}
	*batch = (*batch)[:0]
}
