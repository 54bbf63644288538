package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"sqlchat-go/pkg/log"
)

// KeyFunc 从请求中取出限流维度，例如客户端 IP 或用户 ID。
type KeyFunc func(c *gin.Context) string

// ByClientIP 按客户端 IP 限流。
func ByClientIP(c *gin.Context) string {
	return "ip:" + c.ClientIP()
}

// ByUser 按已认证用户限流，必须放在 AuthMiddleware 之后。
func ByUser(c *gin.Context) string {
	if claims, ok := ClaimsFrom(c); ok {
		return "user:" + strconv.FormatUint(uint64(claims.UserID), 10)
	}
	return ByClientIP(c)
}

type keyedLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter 为每个 key 维护一个令牌桶，空闲的 key 会被后台定期清理。
type RateLimiter struct {
	name  string
	limit rate.Limit
	burst int
	ttl   time.Duration

	mu       sync.Mutex
	limiters map[string]*keyedLimiter

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter 创建每分钟允许 perMinute 次请求的限流器。perMinute <= 0 时返回 nil，表示不限流。
func NewRateLimiter(name string, perMinute int, cleanupInterval time.Duration) *RateLimiter {
	if perMinute <= 0 {
		return nil
	}
	if cleanupInterval <= 0 {
		cleanupInterval = 5 * time.Minute
	}
	rl := &RateLimiter{
		name:     name,
		limit:    rate.Limit(float64(perMinute) / 60.0),
		burst:    perMinute,
		ttl:      cleanupInterval * 2,
		limiters: make(map[string]*keyedLimiter),
		stopCh:   make(chan struct{}),
	}
	go rl.cleanupLoop(cleanupInterval)
	return rl
}

// Stop 停止后台清理 goroutine。
func (rl *RateLimiter) Stop() {
	if rl == nil {
		return
	}
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// Middleware 返回按 key 限流的 Gin 中间件。nil RateLimiter 直接放行。
func (rl *RateLimiter) Middleware(key KeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl == nil {
			c.Next()
			return
		}
		k := key(c)
		if !rl.get(k).Allow() {
			log.Warnw("rate limit exceeded", "limiter", rl.name, "key", k)
			retryAfter := int(math.Ceil(1.0 / float64(rl.limit)))
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests, please retry later"})
			return
		}
		c.Next()
	}
}

// Size 返回当前维护的 key 数量。
func (rl *RateLimiter) Size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

func (rl *RateLimiter) get(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if kl, ok := rl.limiters[key]; ok {
		kl.lastAccess = time.Now()
		return kl.limiter
	}
	l := rate.NewLimiter(rl.limit, rl.burst)
	rl.limiters[key] = &keyedLimiter{limiter: l, lastAccess: time.Now()}
	return l
}

func (rl *RateLimiter) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.cleanup(time.Now())
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *RateLimiter) cleanup(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for k, kl := range rl.limiters {
		if now.Sub(kl.lastAccess) > rl.ttl {
			delete(rl.limiters, k)
		}
	}
}
