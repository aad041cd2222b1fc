package ports

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aretw0/funnel/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunLocalStoreContract runs a suite of tests to verify that a LocalStore implementation
// adheres to the defined interface contract. The store must start empty.
func RunLocalStoreContract(t *testing.T, store LocalStore) {
	ctx := context.Background()

	t.Run("Store and Load", func(t *testing.T) {
		require.NoError(t, store.Store(ctx, domain.KeyCurrentStep, "5"))

		v, ok, err := store.Load(ctx, domain.KeyCurrentStep)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "5", v)
	})

	t.Run("Overwrite", func(t *testing.T) {
		require.NoError(t, store.Store(ctx, domain.KeyUnitSystem, "metric"))
		require.NoError(t, store.Store(ctx, domain.KeyUnitSystem, "imperial"))

		v, ok, err := store.Load(ctx, domain.KeyUnitSystem)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "imperial", v)
	})

	t.Run("Load Absent", func(t *testing.T) {
		v, ok, err := store.Load(ctx, "absent-key")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, v)
	})

	t.Run("Clear", func(t *testing.T) {
		require.NoError(t, store.Store(ctx, domain.KeyAnswers, `{"goal":"0-10"}`))
		require.NoError(t, store.Clear(ctx, domain.KeyAnswers))

		_, ok, err := store.Load(ctx, domain.KeyAnswers)
		require.NoError(t, err)
		assert.False(t, ok, "Load after Clear should report absence")

		assert.NoError(t, store.Clear(ctx, domain.KeyAnswers), "Clear of an absent key is not an error")
	})

	t.Run("Empty Value Is Present", func(t *testing.T) {
		require.NoError(t, store.Store(ctx, domain.KeyEmailLocal, ""))

		_, ok, err := store.Load(ctx, domain.KeyEmailLocal)
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

// RunDeviceStoreContract verifies namespace isolation and enumeration of a DeviceStore.
func RunDeviceStoreContract(t *testing.T, ds DeviceStore) {
	ctx := context.Background()
	suffix := time.Now().Format("20060102150405")
	a := "device-a-" + suffix
	b := "device-b-" + suffix

	t.Run("LocalStore", func(t *testing.T) {
		RunLocalStoreContract(t, ds.Device("contract-"+suffix))
	})

	t.Run("Isolation", func(t *testing.T) {
		require.NoError(t, ds.Device(a).Store(ctx, domain.KeyCurrentStep, "3"))

		_, ok, err := ds.Device(b).Load(ctx, domain.KeyCurrentStep)
		require.NoError(t, err)
		assert.False(t, ok, "devices must not share keys")
	})

	t.Run("List", func(t *testing.T) {
		require.NoError(t, ds.Device(b).Store(ctx, domain.KeyCurrentStep, "1"))

		devices, err := ds.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, devices, a)
		assert.Contains(t, devices, b)
	})

	t.Run("Purge", func(t *testing.T) {
		require.NoError(t, ds.Device(a).Store(ctx, domain.KeyAnswers, "{}"))
		require.NoError(t, ds.Purge(ctx, a))

		_, ok, err := ds.Device(a).Load(ctx, domain.KeyCurrentStep)
		require.NoError(t, err)
		assert.False(t, ok)

		devices, err := ds.List(ctx)
		require.NoError(t, err)
		assert.NotContains(t, devices, a)

		v, ok, err := ds.Device(b).Load(ctx, domain.KeyCurrentStep)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "1", v)
	})
}

// RunSessionStoreContract verifies the create/update contract of a SessionStore.
// When the store also implements SessionReader, the merged record is checked too.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()

	t.Run("Create Returns Distinct IDs", func(t *testing.T) {
		id1, err := store.Create(ctx, domain.UTM{Source: "facebook", Campaign: "spring"})
		require.NoError(t, err)
		id2, err := store.Create(ctx, domain.UTM{})
		require.NoError(t, err)

		assert.NotEmpty(t, id1)
		assert.NotEqual(t, id1, id2)
	})

	t.Run("Partial Update", func(t *testing.T) {
		id, err := store.Create(ctx, domain.UTM{Source: "google"})
		require.NoError(t, err)

		step := 4
		require.NoError(t, store.Update(ctx, id, domain.SessionUpdate{
			Answers:     map[string]any{"goal": "10-20"},
			CurrentStep: &step,
		}))

		email := "jane@example.com"
		require.NoError(t, store.Update(ctx, id, domain.SessionUpdate{Email: &email}))

		reader, ok := store.(SessionReader)
		if !ok {
			return
		}
		rec, err := reader.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "google", rec.UTM.Source)
		assert.Equal(t, 4, rec.CurrentStep, "a later update must not reset unspecified fields")
		assert.Equal(t, "10-20", rec.Answers["goal"])
		assert.Equal(t, email, rec.Email)
		assert.Nil(t, rec.CompletedAt)
	})

	t.Run("Complete", func(t *testing.T) {
		id, err := store.Create(ctx, domain.UTM{})
		require.NoError(t, err)

		now := time.Now().UTC().Truncate(time.Second)
		require.NoError(t, store.Update(ctx, id, domain.SessionUpdate{CompletedAt: &now}))

		reader, ok := store.(SessionReader)
		if !ok {
			return
		}
		rec, err := reader.Get(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, rec.CompletedAt)
		assert.True(t, now.Equal(*rec.CompletedAt))
	})

	t.Run("Update Unknown", func(t *testing.T) {
		step := 1
		err := store.Update(ctx, "00000000-0000-0000-0000-000000000000", domain.SessionUpdate{CurrentStep: &step})
		assert.True(t, errors.Is(err, domain.ErrSessionNotFound), "got %v", err)
	})
}
