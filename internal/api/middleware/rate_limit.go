package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mijwadul/Belajar/internal/authz"
	"github.com/mijwadul/Belajar/internal/metrics"
	"github.com/mijwadul/Belajar/pkg/redis"
	"github.com/mijwadul/Belajar/pkg/response"
)

// RateLimit 基于 Redis 滑动窗口的速率限制中间件
// 已认证请求按调用方计数，否则按客户端 IP
// rdb 为 nil 或 Redis 出错时降级放行
func RateLimit(rdb *redis.Client, m *metrics.Metrics, limit int, window time.Duration, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil || limit <= 0 {
			c.Next()
			return
		}

		subject := "ip:" + c.ClientIP()
		if v, ok := c.Get(ContextKeyPrincipal); ok {
			if p, ok := v.(authz.Principal); ok {
				subject = "user:" + strconv.FormatUint(uint64(p.ID), 10)
			}
		}
		route := c.FullPath()

		allowed, err := rdb.CheckRateLimit(c.Request.Context(), redis.RateLimitKey(subject, route), limit, window)
		if err != nil {
			logger.Warn("限流检查失败，降级放行", zap.String("route", route), zap.Error(err))
			c.Next()
			return
		}

		if !allowed {
			m.IncRateLimited(route)
			response.Error(c, http.StatusTooManyRequests, response.CodeTooManyReqs, "请求过于频繁，请稍后再试")
			c.Abort()
			return
		}

		c.Next()
	}
}
