package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/funnel/pkg/adapters/redis"
	"github.com/aretw0/funnel/pkg/domain"
	"github.com/aretw0/funnel/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := setup(t)
	ports.RunDeviceStoreContract(t, redis.NewFromClient(client))
}

func TestRedisStore_Layout(t *testing.T) {
	mr, client := setup(t)
	store := redis.NewFromClient(client, redis.WithPrefix("test:"))
	ctx := context.Background()

	require.NoError(t, store.Device("d1").Store(ctx, domain.KeyCurrentStep, "4"))

	assert.Equal(t, "4", mr.HGet("test:device:d1", domain.KeyCurrentStep))
	members, err := mr.ZMembers("test:devices")
	require.NoError(t, err)
	assert.Equal(t, []string{"d1"}, members)
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, client := setup(t)
	store := redis.NewFromClient(client, redis.WithTTL(time.Second))
	ctx := context.Background()
	local := store.Device("session-ttl")

	require.NoError(t, local.Store(ctx, domain.KeyCurrentStep, "2"))
	_, ok, err := local.Load(ctx, domain.KeyCurrentStep)
	require.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(2 * time.Second)

	_, ok, err = local.Load(ctx, domain.KeyCurrentStep)
	require.NoError(t, err)
	assert.False(t, ok, "device should expire after its TTL")
}

func TestRedisStore_ClearLastKeyLeavesIndex(t *testing.T) {
	_, client := setup(t)
	store := redis.NewFromClient(client)
	ctx := context.Background()
	local := store.Device("d1")

	require.NoError(t, local.Store(ctx, domain.KeyCurrentStep, "1"))
	require.NoError(t, local.Clear(ctx, domain.KeyCurrentStep))

	devices, err := store.List(ctx)
	require.NoError(t, err)
	assert.NotContains(t, devices, "d1")
}
