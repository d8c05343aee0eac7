package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"golang.org/x/time/rate"
)

// Per-IP限流器
var (
	ipLimiters   = make(map[string]*rate.Limiter)
	ipLimitersMu sync.RWMutex
)

func getIPLimiter(ip string, limit int) *rate.Limiter {
	ipLimitersMu.RLock()
	limiter, exists := ipLimiters[ip]
	ipLimitersMu.RUnlock()
	if exists {
		return limiter
	}

	ipLimitersMu.Lock()
	defer ipLimitersMu.Unlock()
	if limiter, exists := ipLimiters[ip]; exists {
		return limiter
	}
	limiter = rate.NewLimiter(rate.Limit(limit), limit*2)
	ipLimiters[ip] = limiter
	return limiter
}

// 定期清空限流表，防止IP集合无限增长
func init() {
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			ipLimitersMu.Lock()
			ipLimiters = make(map[string]*rate.Limiter)
			ipLimitersMu.Unlock()
		}
	}()
}

// RateLimit 按来源IP限流，limit为每秒请求数
func RateLimit(limit int) app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		if limit <= 0 {
			c.Next(ctx)
			return
		}
		ip := c.ClientIP()
		if !getIPLimiter(ip, limit).Allow() {
			c.AbortWithStatusJSON(consts.StatusTooManyRequests, map[string]interface{}{"error": "rate limit exceeded"})
			return
		}
		c.Next(ctx)
	}
}
