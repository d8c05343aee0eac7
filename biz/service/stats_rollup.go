package service

import (
	"context"
	"time"

	"github.com/cloudwego/hertz/pkg/common/hlog"

	"profitshare-hertz/biz/model"
)

// StartDailyStatsTask 定时预聚合日统计任务
// 每小时重算昨日与当日统计，多实例部署时用 Consul 锁保证只有一个节点执行
func StartDailyStatsTask(helper *ConsulHelper, stats *StatsService) {
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			<-ticker.C
			if helper != nil {
				lock, err := helper.AcquireLock("daily_stats_rollup_lock")
				if err != nil {
					hlog.Warnf("daily stats task acquire consul lock failed: %v", err)
					continue
				}
				if lock == nil {
					continue
				}
				rollupRecentDays(stats)
				_ = lock.Unlock()
				continue
			}
			rollupRecentDays(stats)
		}
	}()
}

func rollupRecentDays(stats *StatsService) {
	ctx := context.Background()
	now := time.Now()
	for _, day := range []time.Time{now.AddDate(0, 0, -1), now} {
		date := day.Format(model.StatsDateLayout)
		if _, err := stats.CalculateDailyStats(ctx, date); err != nil {
			hlog.Errorf("daily stats rollup failed, date=%s, err=%v", date, err)
		}
	}
	hlog.Infof("daily stats rollup done")
}
