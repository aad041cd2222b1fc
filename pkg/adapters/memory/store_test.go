package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/funnel/pkg/adapters/memory"
	"github.com/aretw0/funnel/pkg/domain"
	"github.com/aretw0/funnel/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	ports.RunDeviceStoreContract(t, memory.NewStore())
}

func TestMemoryLocal_Contract(t *testing.T) {
	ports.RunLocalStoreContract(t, memory.NewLocal())
}

func TestMemorySessionStore_Contract(t *testing.T) {
	ports.RunSessionStoreContract(t, memory.NewSessionStore())
}

func TestMemoryStore_Snapshot(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.Device("d1").Store(ctx, domain.KeyCurrentStep, "2"))

	snap := store.Snapshot("d1")
	snap[domain.KeyCurrentStep] = "9"

	v, _, err := store.Device("d1").Load(ctx, domain.KeyCurrentStep)
	require.NoError(t, err)
	assert.Equal(t, "2", v)
}

func TestMemoryStore_ClearLastKeyDropsDevice(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	local := store.Device("d1")
	require.NoError(t, local.Store(ctx, domain.KeyCurrentStep, "2"))
	require.NoError(t, local.Clear(ctx, domain.KeyCurrentStep))

	devices, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, devices)
}
