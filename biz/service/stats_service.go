package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/huandu/skiplist"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"profitshare-hertz/biz/model"
)

const statsCacheKeyPrefix = "stats:daily:"

// StatsService 平台统计
// 日统计是佣金流水的纯函数，可重复计算；按日期缓存在内存跳表，
// Redis 可选地做二级镜像供多实例共享
type StatsService struct {
	records RecordStore
	wallets WalletStore

	mu    sync.RWMutex
	cache *skiplist.SkipList // date string -> *model.DailyStats，按日期有序便于范围扫描
	rdb   *redis.Client      // 可为 nil
}

func NewStatsService(records RecordStore, wallets WalletStore, rdb *redis.Client) *StatsService {
	return &StatsService{
		records: records,
		wallets: wallets,
		cache:   skiplist.New(skiplist.String),
		rdb:     rdb,
	}
}

// CalculateDailyStats 重算某日统计并刷新缓存
// failed 流水不计入，withdrawal 取绝对值
func (s *StatsService) CalculateDailyStats(ctx context.Context, date string) (*model.DailyStats, error) {
	start, end, err := model.DayRange(date)
	if err != nil {
		return nil, err
	}
	recs, err := s.records.ListRange(ctx, start, end)
	if err != nil {
		return nil, err
	}

	stats := aggregate(recs)
	stats.Date = date

	s.mu.Lock()
	s.cache.Set(date, stats)
	s.mu.Unlock()
	s.mirrorToRedis(ctx, date, stats)
	return stats, nil
}

// GetDailyStats 读取某日统计，缓存未命中时计算
func (s *StatsService) GetDailyStats(ctx context.Context, date string) (*model.DailyStats, error) {
	s.mu.RLock()
	if elem := s.cache.Get(date); elem != nil {
		stats := elem.Value.(*model.DailyStats)
		s.mu.RUnlock()
		return stats, nil
	}
	s.mu.RUnlock()

	if stats := s.fromRedis(ctx, date); stats != nil {
		s.mu.Lock()
		s.cache.Set(date, stats)
		s.mu.Unlock()
		return stats, nil
	}
	return s.CalculateDailyStats(ctx, date)
}

// GetStatsRange 查询 [start, end] 的逐日统计
func (s *StatsService) GetStatsRange(ctx context.Context, start, end string) ([]*model.DailyStats, error) {
	from, err := time.ParseInLocation(model.StatsDateLayout, start, time.Local)
	if err != nil {
		return nil, err
	}
	to, err := time.ParseInLocation(model.StatsDateLayout, end, time.Local)
	if err != nil {
		return nil, err
	}
	// 日期串字典序即时间序，跳表一次顺序遍历取出区间内已缓存的天
	cached := make(map[string]*model.DailyStats)
	s.mu.RLock()
	for elem := s.cache.Find(start); elem != nil; elem = elem.Next() {
		date := elem.Key().(string)
		if date > end {
			break
		}
		cached[date] = elem.Value.(*model.DailyStats)
	}
	s.mu.RUnlock()

	var res []*model.DailyStats
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		date := day.Format(model.StatsDateLayout)
		if stats, ok := cached[date]; ok {
			res = append(res, stats)
			continue
		}
		stats, err := s.GetDailyStats(ctx, date)
		if err != nil {
			return nil, err
		}
		res = append(res, stats)
	}
	return res, nil
}

// GetPlatformTotalStats 平台累计统计，全量扫描流水
func (s *StatsService) GetPlatformTotalStats(ctx context.Context) (*model.PlatformTotalStats, error) {
	recs, err := s.records.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	daily := aggregate(recs)
	userCount, err := s.wallets.Count(ctx)
	if err != nil {
		return nil, err
	}
	return &model.PlatformTotalStats{
		TotalPlatformFee:    daily.TotalPlatformFee,
		TotalTeamCommission: daily.TotalTeamCommission,
		TotalWithdrawals:    daily.TotalWithdrawals,
		TotalProfit:         daily.TotalProfit,
		TotalUsers:          userCount,
		TotalTrades:         daily.TotalTrades,
	}, nil
}

// aggregate 按类型汇总流水
func aggregate(recs []*model.CommissionRecord) *model.DailyStats {
	stats := &model.DailyStats{
		TotalPlatformFee:    decimal.Zero,
		TotalTeamCommission: decimal.Zero,
		TotalWithdrawals:    decimal.Zero,
		TotalProfit:         decimal.Zero,
	}
	users := make(map[string]struct{})
	trades := make(map[string]struct{})
	for _, rec := range recs {
		if rec.Status == model.RecordStatusFailed {
			continue
		}
		if rec.UserID != model.PlatformAccountID {
			users[rec.UserID] = struct{}{}
		}
		if rec.TradeID != "" {
			trades[rec.TradeID] = struct{}{}
		}
		switch rec.Type {
		case model.RecordTypePlatform:
			stats.TotalPlatformFee = stats.TotalPlatformFee.Add(rec.Amount)
			stats.TotalProfit = stats.TotalProfit.Add(rec.Amount)
		case model.RecordTypeTeam:
			stats.TotalTeamCommission = stats.TotalTeamCommission.Add(rec.Amount)
			if rec.Generation == 0 {
				// 交易用户净收益与平台费合计即毛利润
				stats.TotalProfit = stats.TotalProfit.Add(rec.Amount)
			}
		case model.RecordTypeWithdrawal:
			stats.TotalWithdrawals = stats.TotalWithdrawals.Add(rec.Amount.Abs())
		}
	}
	stats.ActiveUsers = len(users)
	stats.TotalTrades = len(trades)
	return stats
}

func (s *StatsService) mirrorToRedis(ctx context.Context, date string, stats *model.DailyStats) {
	if s.rdb == nil {
		return
	}
	payload, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, statsCacheKeyPrefix+date, payload, 0).Err(); err != nil {
		hlog.Warnf("stats redis mirror failed, date=%s, err=%v", date, err)
	}
}

func (s *StatsService) fromRedis(ctx context.Context, date string) *model.DailyStats {
	if s.rdb == nil {
		return nil
	}
	payload, err := s.rdb.Get(ctx, statsCacheKeyPrefix+date).Bytes()
	if err != nil {
		return nil
	}
	var stats model.DailyStats
	if err := json.Unmarshal(payload, &stats); err != nil {
		return nil
	}
	return &stats
}
