package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/funnel/pkg/ports"
)

// Store implements ports.DeviceStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]map[string]string
	mu   sync.RWMutex
}

// NewStore creates a new in-memory device store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]map[string]string),
	}
}

// Device returns the LocalStore of one device.
func (s *Store) Device(deviceID string) ports.LocalStore {
	return s.local(deviceID)
}

func (s *Store) local(deviceID string) *Local {
	return &Local{store: s, device: deviceID}
}

// List returns devices holding at least one key, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	devices := make([]string, 0, len(s.data))
	for id, keys := range s.data {
		if len(keys) > 0 {
			devices = append(devices, id)
		}
	}
	sort.Strings(devices)
	return devices, nil
}

// Purge removes every key of a device.
func (s *Store) Purge(ctx context.Context, deviceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, deviceID)
	return nil
}

// Snapshot copies all keys of a device.
func (s *Store) Snapshot(deviceID string) map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(s.data[deviceID]))
	for k, v := range s.data[deviceID] {
		out[k] = v
	}
	return out
}

// Local implements ports.LocalStore for one device of a Store.
type Local struct {
	store  *Store
	device string
}

// NewLocal creates a standalone LocalStore backed by its own Store.
func NewLocal() *Local {
	return NewStore().local("local")
}

// Load returns the value stored under key.
func (l *Local) Load(ctx context.Context, key string) (string, bool, error) {
	l.store.mu.RLock()
	defer l.store.mu.RUnlock()

	v, ok := l.store.data[l.device][key]
	return v, ok, nil
}

// Store writes value under key.
func (l *Local) Store(ctx context.Context, key, value string) error {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()

	keys, ok := l.store.data[l.device]
	if !ok {
		keys = make(map[string]string)
		l.store.data[l.device] = keys
	}
	keys[key] = value
	return nil
}

// Clear removes key.
func (l *Local) Clear(ctx context.Context, key string) error {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()

	keys, ok := l.store.data[l.device]
	if !ok {
		return nil
	}
	delete(keys, key)
	if len(keys) == 0 {
		delete(l.store.data, l.device)
	}
	return nil
}
