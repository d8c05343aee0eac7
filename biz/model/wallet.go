package model

import (
	"github.com/shopspring/decimal"
)

// Wallet 用户钱包
// Balance: 可用余额  Frozen: 提现冻结金额
// TotalCommission / TotalWithdrawal 为累计值，只增不减

type Wallet struct {
	ID              uint            `gorm:"primaryKey" json:"-"`
	UserID          string          `gorm:"uniqueIndex;not null;column:user_id" json:"user_id"`
	Balance         decimal.Decimal `gorm:"type:decimal(30,10);not null;default:0" json:"balance"`
	Frozen          decimal.Decimal `gorm:"type:decimal(30,10);not null;default:0;column:frozen_amount" json:"frozen_amount"`
	TotalCommission decimal.Decimal `gorm:"type:decimal(30,10);not null;default:0" json:"total_commission"`
	TotalWithdrawal decimal.Decimal `gorm:"type:decimal(30,10);not null;default:0" json:"total_withdrawal"`
	CreatedAt       int64           `gorm:"column:created_at;autoCreateTime:milli" json:"created_at"`
	UpdatedAt       int64           `gorm:"column:updated_at;autoUpdateTime:milli" json:"updated_at"`
}

func (Wallet) TableName() string {
	return "wallets"
}

// NewWallet 懒创建钱包，首次入账/冻结时生成
func NewWallet(userID string) *Wallet {
	return &Wallet{
		UserID:          userID,
		Balance:         decimal.Zero,
		Frozen:          decimal.Zero,
		TotalCommission: decimal.Zero,
		TotalWithdrawal: decimal.Zero,
	}
}
