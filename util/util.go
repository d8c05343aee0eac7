package util

import (
	"fmt"
	"sync"

	"github.com/sony/sonyflake"
)

var (
	sonyFlake *sonyflake.Sonyflake
	once      sync.Once
)

// InitSonyFlake 初始化 Snowflake 实例
func InitSonyFlake() {
	once.Do(func() {
		sonyFlake = sonyflake.NewSonyflake(sonyflake.Settings{})
	})
}

// GenerateOrderID 生成唯一订单ID
func GenerateOrderID() (string, error) {
	if sonyFlake == nil {
		InitSonyFlake()
	}
	id, err := sonyFlake.NextID()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", id), nil
}

// GenerateRecordID 生成唯一佣金流水ID
func GenerateRecordID() (string, error) {
	return GenerateOrderID()
}
