package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// StatsDateLayout 统计日期格式
const StatsDateLayout = "2006-01-02"

// DailyStats 平台日统计，由佣金流水推导，可随时重算
type DailyStats struct {
	Date                string          `json:"date"`
	TotalPlatformFee    decimal.Decimal `json:"total_platform_fee"`
	TotalTeamCommission decimal.Decimal `json:"total_team_commission"`
	TotalWithdrawals    decimal.Decimal `json:"total_withdrawals"`
	TotalProfit         decimal.Decimal `json:"total_profit"`
	ActiveUsers         int             `json:"active_users"`
	TotalTrades         int             `json:"total_trades"`
}

// PlatformTotalStats 平台累计统计
type PlatformTotalStats struct {
	TotalPlatformFee    decimal.Decimal `json:"total_platform_fee"`
	TotalTeamCommission decimal.Decimal `json:"total_team_commission"`
	TotalWithdrawals    decimal.Decimal `json:"total_withdrawals"`
	TotalProfit         decimal.Decimal `json:"total_profit"`
	TotalUsers          int             `json:"total_users"`
	TotalTrades         int             `json:"total_trades"`
}

// DayRange 返回某统计日的毫秒时间范围 [start, end)
func DayRange(date string) (int64, int64, error) {
	day, err := time.ParseInLocation(StatsDateLayout, date, time.Local)
	if err != nil {
		return 0, 0, err
	}
	start := day.UnixMilli()
	end := day.AddDate(0, 0, 1).UnixMilli()
	return start, end, nil
}
