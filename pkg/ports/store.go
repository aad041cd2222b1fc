package ports

import (
	"context"

	"github.com/aretw0/funnel/pkg/domain"
)

// LocalStore persists the in-progress quiz of a single device.
// Keys are the domain.Key* constants; values are opaque strings.
type LocalStore interface {
	// Load returns the value stored under key. The boolean is false when the key is absent.
	Load(ctx context.Context, key string) (string, bool, error)

	// Store writes value under key, replacing any previous value.
	Store(ctx context.Context, key, value string) error

	// Clear removes key. Clearing an absent key is not an error.
	Clear(ctx context.Context, key string) error
}

// DeviceStore hands out LocalStores scoped to one device namespace.
type DeviceStore interface {
	// Device returns the store for deviceID. Namespaces never share keys.
	Device(deviceID string) LocalStore

	// List returns the devices holding at least one key.
	List(ctx context.Context) ([]string, error)

	// Purge removes every key of deviceID.
	Purge(ctx context.Context, deviceID string) error
}

// SessionStore is the remote session mirror.
type SessionStore interface {
	// Create starts a session record tagged with the campaign parameters and returns its ID.
	Create(ctx context.Context, utm domain.UTM) (string, error)

	// Update merges a partial update into the record.
	// Returns domain.ErrSessionNotFound if id is unknown.
	Update(ctx context.Context, id string, update domain.SessionUpdate) error
}

// SessionReader is implemented by session stores that can read records back.
type SessionReader interface {
	Get(ctx context.Context, id string) (*domain.RemoteSession, error)
}
