package registry

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nikolovlazar/tracing-demos/internal/config"
)

func redisClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set, skipping integration test")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

// instanceFor points an instance at srv's listener.
func instanceFor(t *testing.T, name string, srv *httptest.Server) Instance {
	t.Helper()
	host, port, err := net.SplitHostPort(strings.TrimPrefix(srv.URL, "http://"))
	require.NoError(t, err)
	p, err := strconv.Atoi(port)
	require.NoError(t, err)
	return NewInstance(name, host, p, "1.0.0")
}

func TestNewInstance(t *testing.T) {
	inst := NewInstance("kitchen-service", "10.0.0.5", 8082, "1.0.0")
	assert.True(t, strings.HasPrefix(inst.ID, "kitchen-service-"))
	assert.Equal(t, "/health", inst.HealthPath)
	assert.Equal(t, "http://10.0.0.5:8082/health", inst.HealthURL())
	assert.Equal(t, "1.0.0", inst.Meta["version"])
}

func TestAdvertiseAddress(t *testing.T) {
	assert.Equal(t, "order", AdvertiseAddress("order"))
	assert.NotEmpty(t, AdvertiseAddress(""))
}

func TestRegistry_RegisterLookupDeregister(t *testing.T) {
	rdb := redisClient(t)
	ctx := context.Background()
	reg := New(rdb, config.RedisConfig{TTL: time.Minute}, zap.NewNop())

	name := "test-svc-" + strconv.FormatInt(time.Now().UnixNano(), 10)
	inst := NewInstance(name, "10.0.0.1", 8080, "1.0.0")
	require.NoError(t, reg.Register(ctx, inst))

	got, err := reg.Lookup(ctx, name)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, inst.ID, got[0].ID)
	assert.False(t, got[0].RegisteredAt.IsZero())

	require.NoError(t, reg.Deregister(ctx, inst))
	got, err = reg.Lookup(ctx, name)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRegistry_LookupPrunesExpired(t *testing.T) {
	rdb := redisClient(t)
	ctx := context.Background()
	reg := New(rdb, config.RedisConfig{TTL: time.Minute}, zap.NewNop())

	name := "test-svc-" + strconv.FormatInt(time.Now().UnixNano(), 10)
	inst := NewInstance(name, "10.0.0.1", 8080, "1.0.0")
	require.NoError(t, reg.Register(ctx, inst))
	require.NoError(t, rdb.Del(ctx, instanceKeyPrefix+inst.ID).Err())

	got, err := reg.Lookup(ctx, name)
	require.NoError(t, err)
	assert.Empty(t, got)

	members, err := rdb.SMembers(ctx, serviceKeyPrefix+name).Result()
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestRegistry_HeartbeatRefreshesOnlyWhenHealthy(t *testing.T) {
	rdb := redisClient(t)
	ctx := context.Background()
	reg := New(rdb, config.RedisConfig{TTL: time.Minute}, zap.NewNop())

	var status atomic.Int32
	status.Store(http.StatusOK)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(status.Load()))
	}))
	defer srv.Close()

	inst := instanceFor(t, "test-svc-"+strconv.FormatInt(time.Now().UnixNano(), 10), srv)
	require.NoError(t, reg.Register(ctx, inst))
	t.Cleanup(func() { _ = reg.Deregister(context.Background(), inst) })

	key := instanceKeyPrefix + inst.ID
	require.NoError(t, rdb.Expire(ctx, key, 5*time.Second).Err())

	require.NoError(t, reg.Heartbeat(ctx, inst))
	ttl, err := rdb.TTL(ctx, key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 30*time.Second)

	status.Store(http.StatusServiceUnavailable)
	require.NoError(t, rdb.Expire(ctx, key, 5*time.Second).Err())
	assert.Error(t, reg.Heartbeat(ctx, inst))
	ttl, err = rdb.TTL(ctx, key).Result()
	require.NoError(t, err)
	assert.LessOrEqual(t, ttl, 5*time.Second)
}

func TestRegistry_HeartbeatReregistersExpired(t *testing.T) {
	rdb := redisClient(t)
	ctx := context.Background()
	reg := New(rdb, config.RedisConfig{TTL: time.Minute}, zap.NewNop())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	inst := instanceFor(t, "test-svc-"+strconv.FormatInt(time.Now().UnixNano(), 10), srv)
	t.Cleanup(func() { _ = reg.Deregister(context.Background(), inst) })

	require.NoError(t, reg.Heartbeat(ctx, inst))
	got, err := reg.Lookup(ctx, inst.Name)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
