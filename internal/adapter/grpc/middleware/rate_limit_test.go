package middleware

import (
	"context"
	"net"
	"testing"

	"user-crud-service/pkg/ratelimit"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// setupTestRedis creates a miniredis instance for testing
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client, mr
}

// mockHandler is a simple handler that returns nil
func mockHandler(ctx context.Context, req any) (any, error) {
	return "success", nil
}

func newInterceptor(t *testing.T, client *redis.Client, cfg ratelimit.Config) grpc.UnaryServerInterceptor {
	rl := NewRateLimiter(ratelimit.NewRedisLimiter(client, cfg), zaptest.NewLogger(t))
	return rl.UnaryInterceptor()
}

func peerContext(addr string) context.Context {
	tcpAddr, _ := net.ResolveTCPAddr("tcp", addr)
	return peer.NewContext(context.Background(), &peer.Peer{Addr: tcpAddr})
}

var healthCheckInfo = &grpc.UnaryServerInfo{
	FullMethod: "/grpc.health.v1.Health/Check",
}

func TestRateLimiter_WithinLimit(t *testing.T) {
	client, _ := setupTestRedis(t)
	interceptor := newInterceptor(t, client, ratelimit.Config{RequestsPerSecond: 10, BurstCapacity: 10})
	ctx := peerContext("127.0.0.1:12345")

	// Make 5 requests (within limit of 10)
	for i := 0; i < 5; i++ {
		resp, err := interceptor(ctx, nil, healthCheckInfo, mockHandler)
		require.NoError(t, err)
		assert.Equal(t, "success", resp)
	}
}

func TestRateLimiter_ExceedLimit(t *testing.T) {
	client, mr := setupTestRedis(t)
	interceptor := newInterceptor(t, client, ratelimit.Config{RequestsPerSecond: 0.01, BurstCapacity: 5})
	ctx := peerContext("127.0.0.1:12345")

	// Make requests up to limit
	for i := 0; i < 5; i++ {
		resp, err := interceptor(ctx, nil, healthCheckInfo, mockHandler)
		require.NoError(t, err)
		assert.Equal(t, "success", resp)
	}

	// Next request should be rate limited
	resp, err := interceptor(ctx, nil, healthCheckInfo, mockHandler)
	require.Error(t, err)
	assert.Nil(t, resp)

	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, codes.ResourceExhausted, st.Code())
	assert.Contains(t, st.Message(), "rate limit exceeded")

	// Bucket is keyed by method and peer address
	key := "ratelimit:tb:/grpc.health.v1.Health/Check:127.0.0.1:12345"
	assert.True(t, mr.Exists(key))
	assert.Greater(t, mr.TTL(key).Seconds(), 0.0)
}

func TestRateLimiter_Disabled(t *testing.T) {
	rl := NewRateLimiter(nil, zaptest.NewLogger(t))
	interceptor := rl.UnaryInterceptor()
	ctx := peerContext("127.0.0.1:12345")

	// Make many requests - should all succeed because rate limiting is disabled
	for i := 0; i < 10; i++ {
		resp, err := interceptor(ctx, nil, healthCheckInfo, mockHandler)
		require.NoError(t, err)
		assert.Equal(t, "success", resp)
	}
}

func TestRateLimiter_DifferentIPs(t *testing.T) {
	client, _ := setupTestRedis(t)
	interceptor := newInterceptor(t, client, ratelimit.Config{RequestsPerSecond: 0.01, BurstCapacity: 2})

	// IP 1: Make 2 requests (at limit)
	ctx1 := peerContext("192.168.1.1:12345")
	for i := 0; i < 2; i++ {
		_, err := interceptor(ctx1, nil, healthCheckInfo, mockHandler)
		require.NoError(t, err)
	}
	_, err := interceptor(ctx1, nil, healthCheckInfo, mockHandler)
	require.Error(t, err)

	// IP 2: Should still be able to make requests
	resp, err := interceptor(peerContext("192.168.1.2:12345"), nil, healthCheckInfo, mockHandler)
	require.NoError(t, err)
	assert.Equal(t, "success", resp)
}

func TestRateLimiter_XForwardedFor(t *testing.T) {
	client, mr := setupTestRedis(t)
	interceptor := newInterceptor(t, client, ratelimit.Config{RequestsPerSecond: 5, BurstCapacity: 10})

	// Create context with X-Forwarded-For header
	md := metadata.Pairs("x-forwarded-for", "203.0.113.1")
	ctx := metadata.NewIncomingContext(context.Background(), md)

	for i := 0; i < 3; i++ {
		resp, err := interceptor(ctx, nil, healthCheckInfo, mockHandler)
		require.NoError(t, err)
		assert.Equal(t, "success", resp)
	}

	assert.True(t, mr.Exists("ratelimit:tb:/grpc.health.v1.Health/Check:203.0.113.1"))
}

func TestRateLimiter_DifferentMethods(t *testing.T) {
	client, _ := setupTestRedis(t)
	interceptor := newInterceptor(t, client, ratelimit.Config{RequestsPerSecond: 0.01, BurstCapacity: 2})
	ctx := peerContext("127.0.0.1:12345")

	// Method 1: Make 2 requests (at limit)
	for i := 0; i < 2; i++ {
		_, err := interceptor(ctx, nil, healthCheckInfo, mockHandler)
		require.NoError(t, err)
	}

	// Method 2: Should have separate rate limit
	info2 := &grpc.UnaryServerInfo{
		FullMethod: "/grpc.health.v1.Health/List",
	}
	resp, err := interceptor(ctx, nil, info2, mockHandler)
	require.NoError(t, err)
	assert.Equal(t, "success", resp)
}

func TestRateLimiter_RedisDownFailsOpen(t *testing.T) {
	client, mr := setupTestRedis(t)
	interceptor := newInterceptor(t, client, ratelimit.Config{RequestsPerSecond: 1, BurstCapacity: 1})
	mr.Close()

	resp, err := interceptor(peerContext("127.0.0.1:12345"), nil, healthCheckInfo, mockHandler)
	require.NoError(t, err)
	assert.Equal(t, "success", resp)
}
