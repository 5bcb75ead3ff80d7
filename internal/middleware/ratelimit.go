package middleware

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"edi-assistant-go/pkg/log"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"golang.org/x/time/rate"
)

// TooManyRequestsMessage 是超出配额时返回的错误信息。
const TooManyRequestsMessage = "Too many requests. Please try again in a minute."

// Limiter 判断某个客户端当前是否还有配额。
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RedisLimiter 是基于 Redis INCR/EXPIRE 的固定窗口限流，多实例共享配额。
type RedisLimiter struct {
	rdb    *redis.Client
	limit  int64
	window time.Duration
}

// defaultWindow 用于非法窗口配置，保证槽位计算不会除零。
const defaultWindow = time.Minute

func NewRedisLimiter(rdb *redis.Client, limit int, window time.Duration) *RedisLimiter {
	if window <= 0 {
		window = defaultWindow
	}
	return &RedisLimiter{rdb: rdb, limit: int64(max(limit, 1)), window: window}
}

// Allow 在 Redis 出错时放行请求，同时返回错误。
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	slot := time.Now().UnixNano() / int64(l.window)
	redisKey := fmt.Sprintf("edi:ratelimit:%s:%d", key, slot)

	count, err := l.rdb.Incr(ctx, redisKey).Result()
	if err != nil {
		return true, err
	}
	// 首次请求时设置过期时间
	if count == 1 {
		l.rdb.Expire(ctx, redisKey, l.window)
	}
	return count <= l.limit, nil
}

// MemoryLimiter 是进程内的令牌桶限流，用于未配置 Redis 的部署。
type MemoryLimiter struct {
	mu      sync.Mutex
	every   rate.Limit
	burst   int
	clients map[string]*visitor
	idle    time.Duration
	now     func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// sweepThreshold 为触发清理空闲客户端的条目数。
const sweepThreshold = 10000

func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	limit = max(limit, 1)
	if window <= 0 {
		window = defaultWindow
	}
	return &MemoryLimiter{
		every:   rate.Every(window / time.Duration(limit)),
		burst:   limit,
		clients: make(map[string]*visitor),
		idle:    2 * window,
		now:     time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if len(l.clients) >= sweepThreshold {
		for k, v := range l.clients {
			if now.Sub(v.lastSeen) > l.idle {
				delete(l.clients, k)
			}
		}
	}
	v, ok := l.clients[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.every, l.burst)}
		l.clients[key] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1), nil
}

// RateLimit 按 ClientIdentity 限流，超出配额返回 429。
func RateLimit(l Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := ClientIdentity(c.Request)
		allowed, err := l.Allow(c.Request.Context(), key)
		if err != nil {
			log.Warnf("[RateLimit] 限流存储异常, 放行请求: %v", err)
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": TooManyRequestsMessage})
			return
		}
		c.Next()
	}
}
