package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

// GetDailyStats 查询某日平台统计
func GetDailyStats(ctx context.Context, c *app.RequestContext) {
	date := string(c.Query("date"))
	if date == "" {
		c.JSON(consts.StatusBadRequest, map[string]interface{}{"error": "missing date"})
		return
	}
	stats, err := statsSvc.GetDailyStats(ctx, date)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(consts.StatusOK, stats)
}

// GetStatsRange 查询日期区间逐日统计
func GetStatsRange(ctx context.Context, c *app.RequestContext) {
	start := string(c.Query("start"))
	end := string(c.Query("end"))
	if start == "" || end == "" {
		c.JSON(consts.StatusBadRequest, map[string]interface{}{"error": "missing start or end"})
		return
	}
	stats, err := statsSvc.GetStatsRange(ctx, start, end)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(consts.StatusOK, stats)
}

// GetPlatformTotalStats 查询平台累计统计
func GetPlatformTotalStats(ctx context.Context, c *app.RequestContext) {
	stats, err := statsSvc.GetPlatformTotalStats(ctx)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(consts.StatusOK, stats)
}
