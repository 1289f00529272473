package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/iamsernine/aptoseidon/internal/config"
)

// clientLimiters hands out one token bucket per caller. Callers are keyed
// by API key when present, otherwise by client IP.
type clientLimiters struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	qps      rate.Limit
	burst    int
}

func newClientLimiters(qps float64, burst int) *clientLimiters {
	return &clientLimiters{
		limiters: make(map[string]*rate.Limiter),
		qps:      rate.Limit(qps),
		burst:    burst,
	}
}

func (cl *clientLimiters) get(key string) *rate.Limiter {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	limiter, ok := cl.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(cl.qps, cl.burst)
		cl.limiters[key] = limiter
	}
	return limiter
}

func RateLimitMiddleware(cfg *config.Config) gin.HandlerFunc {
	limiters := newClientLimiters(cfg.RateLimit.QPS, cfg.RateLimit.Burst)

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderGatewayKey)
		if key == "" {
			key = c.ClientIP()
		}

		if !limiters.get(key).Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": "1s",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
