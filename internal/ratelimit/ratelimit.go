// Package ratelimit 提供固定窗口限流：计数存储可插拔，
// 首选共享的 redis（多实例间配额一致），不可用时降级为进程内计数。
// 降级模式下配额只在单进程内生效，这是有意为之的取舍。
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/coupleup/internal/logger"
	"github.com/redis/go-redis/v9"
)

// Result 描述一次限流判定。
type Result struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Store 抽象窗口计数的存取。Incr 返回自增后的计数与窗口剩余时长。
type Store interface {
	Incr(ctx context.Context, key string, window time.Duration) (count int64, ttl time.Duration, err error)
}

// Limiter 按 key 执行固定窗口配额判定。
type Limiter struct {
	store    Store
	fallback *localStore
	mu       sync.Mutex
	degraded bool
}

// New 构造 Limiter。store 为 nil 时直接使用进程内计数。
func New(store Store) *Limiter {
	return &Limiter{store: store, fallback: newLocalStore()}
}

// NewRedis 构造一个以 redis 为计数存储的 Limiter。
func NewRedis(addr string) *Limiter {
	if addr == "" {
		return New(nil)
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	return New(&redisStore{client: client})
}

// Allow 判断 key 在 window 内是否还剩配额。
// 共享存储出错时记一条警告并退回进程内计数，绝不因为限流本身拒绝请求。
func (l *Limiter) Allow(ctx context.Context, key string, limit int64, window time.Duration) Result {
	store := Store(l.fallback)
	if l.store != nil {
		store = l.store
	}

	count, ttl, err := store.Incr(ctx, key, window)
	if err != nil {
		l.noteDegraded(err)
		count, ttl, _ = l.fallback.Incr(ctx, key, window)
	}

	if count > limit {
		return Result{Allowed: false, RetryAfter: ttl}
	}
	return Result{Allowed: true}
}

func (l *Limiter) noteDegraded(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.degraded {
		logger.Warn("rate limit store unreachable, falling back to process-local counting", "error", err)
		l.degraded = true
	}
}

type redisStore struct {
	client *redis.Client
}

// Incr 以 INCR+EXPIRE 流水线维护窗口计数；键首次出现时设置过期。
func (s *redisStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	ttl := pipe.TTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, err
	}
	return incr.Val(), ttl.Val(), nil
}

type localWindow struct {
	count   int64
	resetAt time.Time
}

type localStore struct {
	mu      sync.Mutex
	windows map[string]*localWindow
}

func newLocalStore() *localStore {
	return &localStore{windows: make(map[string]*localWindow)}
}

func (s *localStore) Incr(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	entry, ok := s.windows[key]
	if !ok || now.After(entry.resetAt) {
		entry = &localWindow{resetAt: now.Add(window)}
		s.windows[key] = entry
	}
	entry.count++
	return entry.count, entry.resetAt.Sub(now), nil
}
