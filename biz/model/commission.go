package model

import (
	"github.com/shopspring/decimal"
)

// 佣金记录类型
const (
	RecordTypePlatform   = "platform"   // 平台手续费
	RecordTypeTeam       = "team"       // 交易净收益/团队佣金
	RecordTypeWithdrawal = "withdrawal" // 提现
)

// 佣金记录状态
const (
	RecordStatusPending   = "pending"
	RecordStatusCompleted = "completed"
	RecordStatusFailed    = "failed"
)

// PlatformAccountID 平台收益的记账哨兵账户，不对应任何用户钱包
const PlatformAccountID = "__platform__"

// CommissionRecord 佣金流水（GORM）
// 追加型审计日志，completed 后不可变，是统计的唯一数据源
// Amount 有符号：入账为正，提现为负
type CommissionRecord struct {
	RecordID     string          `gorm:"primaryKey;column:record_id" json:"record_id"`
	UserID       string          `gorm:"index;not null;column:user_id" json:"user_id"`
	Type         string          `gorm:"index;not null;column:type" json:"type"`
	Amount       decimal.Decimal `gorm:"type:decimal(30,10);not null" json:"amount"`
	SourceUserID string          `gorm:"column:source_user_id" json:"source_user_id,omitempty"` // 产生该笔佣金的交易用户，直接交易为空
	Generation   int             `gorm:"column:generation" json:"generation"`                   // 1=直接上级 2=二级上级，其余为0
	StrategyID   string          `gorm:"column:strategy_id" json:"strategy_id"`
	TradeID      string          `gorm:"index;column:trade_id" json:"trade_id"`
	Status       string          `gorm:"index;column:status" json:"status"`
	CreatedAt    int64           `gorm:"index;column:created_at;autoCreateTime:milli" json:"created_at"`
	CompletedAt  int64           `gorm:"column:completed_at" json:"completed_at,omitempty"`
}

func (CommissionRecord) TableName() string {
	return "commission_records"
}

// TradeState 交易分账状态，幂等闸门
// 同一 trade_id 至多分账一次
type TradeState struct {
	ID         int64           `gorm:"primaryKey" json:"id"`
	TradeID    string          `gorm:"uniqueIndex;not null;column:trade_id" json:"trade_id"`
	UserID     string          `gorm:"column:user_id" json:"user_id"`
	StrategyID string          `gorm:"column:strategy_id" json:"strategy_id"`
	Profit     decimal.Decimal `gorm:"type:decimal(30,10);not null" json:"profit"`
	Status     string          `gorm:"column:status" json:"status"` // doing / success / rolled_back
	CreatedAt  int64           `gorm:"column:created_at;autoCreateTime:milli" json:"created_at"`
	UpdatedAt  int64           `gorm:"column:updated_at;autoUpdateTime:milli" json:"updated_at"`
}

// TradeProfitMsg 策略交易收益消息（Kafka）
type TradeProfitMsg struct {
	TradeID    string          `json:"trade_id"`
	UserID     string          `json:"user_id"`
	StrategyID string          `json:"strategy_id"`
	Profit     decimal.Decimal `json:"profit"`
}

// 交易分账状态
const (
	TradeStateDoing      = "doing"
	TradeStateSuccess    = "success"
	TradeStateRolledBack = "rolled_back"
)

func (TradeState) TableName() string {
	return "trade_states"
}
