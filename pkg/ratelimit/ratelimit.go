// Package ratelimit provides token-bucket limiters keyed by client.
// The Redis limiter shares buckets across instances; the local limiter keeps
// them in process memory.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Config holds token bucket parameters.
type Config struct {
	RequestsPerSecond float64 // Refill rate
	BurstCapacity     int     // Bucket size
}

// Limiter decides whether one more request for key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// tokenBucketScript refills the bucket by the elapsed time, then takes one token.
// Bucket state: {last_refill, tokens}.
var tokenBucketScript = redis.NewScript(`
	local key = KEYS[1]
	local rate = tonumber(ARGV[1])
	local capacity = tonumber(ARGV[2])
	local now = tonumber(ARGV[3])
	local requested = tonumber(ARGV[4])
	local ttl = tonumber(ARGV[5])

	local bucket = redis.call('HMGET', key, 'last_refill', 'tokens')
	local last_refill = tonumber(bucket[1]) or now
	local tokens = tonumber(bucket[2]) or capacity

	local elapsed = math.max(0, now - last_refill)
	tokens = math.min(capacity, tokens + elapsed * rate)

	local allowed = 0
	if tokens >= requested then
		tokens = tokens - requested
		allowed = 1
	end

	redis.call('HSET', key, 'last_refill', now, 'tokens', tokens)
	redis.call('EXPIRE', key, ttl)
	return allowed
`)

// RedisLimiter implements Limiter with a token bucket stored in Redis.
type RedisLimiter struct {
	client redis.Scripter
	config Config
	prefix string
	now    func() time.Time
}

// NewRedisLimiter creates a limiter whose buckets live under "ratelimit:tb:".
func NewRedisLimiter(client redis.Scripter, config Config) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		config: config,
		prefix: "ratelimit:tb:",
		now:    time.Now,
	}
}

// Allow takes one token from the bucket of key.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	now := float64(l.now().UnixMicro()) / 1e6

	allowed, err := tokenBucketScript.Run(ctx, l.client, []string{l.prefix + key},
		l.config.RequestsPerSecond,
		l.config.BurstCapacity,
		now,
		1,
		l.ttlSeconds(),
	).Int64()
	if err != nil {
		return false, fmt.Errorf("rate limit script for %q: %w", key, err)
	}
	return allowed == 1, nil
}

// ttlSeconds keeps a bucket at least as long as it takes to refill.
func (l *RedisLimiter) ttlSeconds() int {
	ttl := 60
	if l.config.RequestsPerSecond > 0 {
		if refill := int(float64(l.config.BurstCapacity)/l.config.RequestsPerSecond) + 1; refill > ttl {
			ttl = refill
		}
	}
	return ttl
}

// LocalLimiter implements Limiter with one x/time/rate limiter per key.
type LocalLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     rate.Limit
	burst    int
	ttl      time.Duration
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLocalLimiter creates an in-process limiter. Idle keys are dropped after
// three minutes by Run.
func NewLocalLimiter(config Config) *LocalLimiter {
	return &LocalLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate.Limit(config.RequestsPerSecond),
		burst:    config.BurstCapacity,
		ttl:      3 * time.Minute,
	}
}

// Allow takes one token from the bucket of key. It never fails.
func (l *LocalLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = time.Now()
	return v.limiter.Allow(), nil
}

// Run evicts idle keys every interval until ctx is done.
func (l *LocalLimiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.evict(time.Now())
		}
	}
}

func (l *LocalLimiter) evict(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for key, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.ttl {
			delete(l.visitors, key)
		}
	}
}

// size reports the number of tracked keys.
func (l *LocalLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}
