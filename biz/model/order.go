package model

import (
	"github.com/shopspring/decimal"
)

// 订单状态
const (
	OrderStatusPending   = "pending"
	OrderStatusRetrying  = "retrying"
	OrderStatusCompleted = "completed"
	OrderStatusFailed    = "failed"
	OrderStatusCancelled = "cancelled"
)

// IsTerminalOrderStatus 终态订单不可再变更
func IsTerminalOrderStatus(status string) bool {
	return status == OrderStatusCompleted || status == OrderStatusFailed || status == OrderStatusCancelled
}

// SubmitOrderMsg 下单请求（与 handler 保持一致）
type SubmitOrderMsg struct {
	UserID     string          `json:"user_id"`
	StrategyID string          `json:"strategy_id"`
	Exchange   string          `json:"exchange"`
	Symbol     string          `json:"symbol"`
	Type       string          `json:"type"`
	Side       string          `json:"side"`
	Amount     decimal.Decimal `json:"amount"`
}

// Order 订单模型（GORM）
type Order struct {
	OrderID    string          `gorm:"primaryKey;column:order_id" json:"order_id"`
	UserID     string          `gorm:"index;column:user_id" json:"user_id"`
	StrategyID string          `gorm:"index;column:strategy_id" json:"strategy_id"`
	Exchange   string          `gorm:"column:exchange" json:"exchange"`
	Symbol     string          `gorm:"column:symbol" json:"symbol"`
	Type       string          `gorm:"column:type" json:"type"`
	Side       string          `gorm:"column:side" json:"side"`
	Amount     decimal.Decimal `gorm:"type:decimal(30,10);not null" json:"amount"`
	RetryCount int             `gorm:"column:retry_count" json:"retry_count"`
	Status     string          `gorm:"index;column:status" json:"status"`
	CreatedAt  int64           `gorm:"column:created_at;autoCreateTime:milli" json:"created_at"`
	UpdatedAt  int64           `gorm:"column:updated_at;autoUpdateTime:milli" json:"updated_at"`
}

func (Order) TableName() string {
	return "orders"
}
