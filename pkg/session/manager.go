package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/aretw0/funnel"
	"github.com/aretw0/funnel/internal/logging"
	"github.com/aretw0/funnel/pkg/domain"
	"github.com/aretw0/funnel/pkg/ports"
)

// DefaultMaxCached bounds the number of sessions kept in memory.
const DefaultMaxCached = 1024

// DefaultLockTTL is the expiry of a distributed device lock.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// cacheEntry is a cached session and the tick of its last use.
type cacheEntry struct {
	sess *funnel.Session
	used uint64
}

// Manager orchestrates device access, ensuring a Session is never used concurrently.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	funnel  *funnel.Funnel
	devices ports.DeviceStore

	mu       sync.Mutex            // Global lock for the maps
	locks    map[string]*lockEntry // Map of active locks
	sessions map[string]*cacheEntry
	tick     uint64 // Recency clock for the session cache
	max      int

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	logger  *slog.Logger // Logger for internal events (like deferred errors)
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the expiry of distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithMaxCached bounds the in-memory session cache. Zero disables caching.
func WithMaxCached(n int) Option {
	return func(m *Manager) {
		m.max = n
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a new Manager serving the devices of store.
func NewManager(f *funnel.Funnel, devices ports.DeviceStore, opts ...Option) *Manager {
	m := &Manager{
		funnel:   f,
		devices:  devices,
		locks:    make(map[string]*lockEntry),
		sessions: make(map[string]*cacheEntry),
		max:      DefaultMaxCached,
		lockTTL:  DefaultLockTTL,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Funnel returns the shared funnel.
func (m *Manager) Funnel() *funnel.Funnel {
	return m.funnel
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(deviceID) after unlocking.
func (m *Manager) acquire(deviceID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[deviceID]
	if !exists {
		entry = &lockEntry{}
		m.locks[deviceID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(deviceID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[deviceID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, deviceID)
	}
}

// Init (re)initializes the device's session with host inputs, then runs fn on it.
func (m *Manager) Init(ctx context.Context, deviceID string, opts funnel.InitOptions, fn func(context.Context, *funnel.Session) error) error {
	return m.WithLock(ctx, deviceID, func(ctx context.Context) error {
		sess, ok := m.cached(deviceID)
		if ok {
			if err := sess.Initialize(ctx, opts); err != nil {
				return err
			}
		} else {
			var err error
			sess, err = m.funnel.Open(ctx, m.devices.Device(deviceID), opts)
			if err != nil {
				return fmt.Errorf("failed to open session: %w", err)
			}
			m.remember(deviceID, sess)
		}
		if fn == nil {
			return nil
		}
		return fn(ctx, sess)
	})
}

// WithSession runs fn on the device's session, opening it on first use.
func (m *Manager) WithSession(ctx context.Context, deviceID string, fn func(context.Context, *funnel.Session) error) error {
	return m.WithLock(ctx, deviceID, func(ctx context.Context) error {
		sess, ok := m.cached(deviceID)
		if ok {
			if err := sess.Reload(ctx); err != nil {
				return fmt.Errorf("failed to reload session: %w", err)
			}
		} else {
			var err error
			sess, err = m.funnel.Open(ctx, m.devices.Device(deviceID), funnel.InitOptions{})
			if err != nil {
				return fmt.Errorf("failed to open session: %w", err)
			}
			m.remember(deviceID, sess)
		}
		return fn(ctx, sess)
	})
}

// Seed writes the one-shot first answer for the device.
func (m *Manager) Seed(ctx context.Context, deviceID, answer string) error {
	return m.WithLock(ctx, deviceID, func(ctx context.Context) error {
		return m.funnel.Seed(ctx, m.devices.Device(deviceID), answer)
	})
}

// Purge removes every key of the device and forgets its session.
func (m *Manager) Purge(ctx context.Context, deviceID string) error {
	return m.WithLock(ctx, deviceID, func(ctx context.Context) error {
		m.forget(deviceID)
		return m.devices.Purge(ctx, deviceID)
	})
}

// List delegates to the device store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.devices.List(ctx)
}

// Devices returns the underlying device store.
func (m *Manager) Devices() ports.DeviceStore {
	return m.devices
}

// WithLock executes a function while holding the lock for the device.
func (m *Manager) WithLock(ctx context.Context, deviceID string, fn func(context.Context) error) error {
	if strings.TrimSpace(deviceID) == "" {
		return domain.Invalid("device_id", domain.ErrMissingField)
	}

	entry := m.acquire(deviceID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(deviceID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, deviceID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"device_id", deviceID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

func (m *Manager) cached(deviceID string) (*funnel.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.sessions[deviceID]
	if !ok {
		return nil, false
	}
	m.tick++
	entry.used = m.tick
	return entry.sess, true
}

// remember caches sess, evicting the least recently used idle device when the cache
// is full. Must be called with the device lock held.
func (m *Manager) remember(deviceID string, sess *funnel.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.max <= 0 {
		return
	}
	if len(m.sessions) >= m.max {
		victim := ""
		var oldest uint64
		for id, entry := range m.sessions {
			if _, busy := m.locks[id]; busy {
				continue
			}
			if victim == "" || entry.used < oldest {
				victim, oldest = id, entry.used
			}
		}
		if victim == "" {
			return
		}
		delete(m.sessions, victim)
	}
	m.tick++
	m.sessions[deviceID] = &cacheEntry{sess: sess, used: m.tick}
}

func (m *Manager) forget(deviceID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, deviceID)
}
