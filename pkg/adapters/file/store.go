// Package file implements a device store on the local filesystem.
// Each device namespace is one JSON document under the base directory.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/aretw0/funnel/pkg/ports"
)

var validDevice = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Store implements ports.DeviceStore using the local filesystem.
type Store struct {
	BasePath string

	mu sync.Mutex
}

// New creates a new Store with the given base path.
// If basePath is empty, it defaults to ".funnel/devices".
func New(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".funnel", "devices")
	}
	return &Store{BasePath: basePath}
}

// Device returns the LocalStore of one device.
func (s *Store) Device(deviceID string) ports.LocalStore {
	return &Local{store: s, device: deviceID}
}

// List returns all devices with a state file.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	var devices []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" || strings.HasPrefix(name, "tmp-") {
			continue
		}
		devices = append(devices, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(devices)
	return devices, nil
}

// Purge removes the state file of a device.
func (s *Store) Purge(ctx context.Context, deviceID string) error {
	path, err := s.path(deviceID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete device file: %w", err)
	}
	return nil
}

// Read returns every key of a device. A missing file yields an empty map.
func (s *Store) Read(deviceID string) (map[string]string, error) {
	path, err := s.path(deviceID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(path)
}

func (s *Store) path(deviceID string) (string, error) {
	if !validDevice.MatchString(deviceID) {
		return "", fmt.Errorf("invalid device id %q", deviceID)
	}
	return filepath.Join(s.BasePath, deviceID+".json"), nil
}

func (s *Store) read(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to read device file: %w", err)
	}

	keys := map[string]string{}
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil, fmt.Errorf("failed to unmarshal device file: %w", err)
	}
	return keys, nil
}

func (s *Store) update(deviceID string, fn func(map[string]string)) error {
	path, err := s.path(deviceID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	keys, err := s.read(path)
	if err != nil {
		return err
	}
	fn(keys)

	if len(keys) == 0 {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete device file: %w", err)
		}
		return nil
	}
	return s.write(path, deviceID, keys)
}

// write replaces the device file atomically: temp file, fsync, rename.
func (s *Store) write(destPath, deviceID string, keys map[string]string) error {
	if err := os.MkdirAll(s.BasePath, 0755); err != nil {
		return fmt.Errorf("failed to ensure device directory: %w", err)
	}

	data, err := json.MarshalIndent(keys, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal device keys: %w", err)
	}

	tmpFile, err := os.CreateTemp(s.BasePath, "tmp-"+deviceID+"-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Windows cannot rename an open file.
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// Windows refuses to rename over an existing file.
	if _, err := os.Stat(destPath); err == nil {
		if err := os.Remove(destPath); err != nil {
			return fmt.Errorf("failed to remove existing device file for overwrite: %w", err)
		}
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Local implements ports.LocalStore for one device file.
type Local struct {
	store  *Store
	device string
}

// Load returns the value stored under key.
func (l *Local) Load(ctx context.Context, key string) (string, bool, error) {
	keys, err := l.store.Read(l.device)
	if err != nil {
		return "", false, err
	}
	v, ok := keys[key]
	return v, ok, nil
}

// Store writes value under key.
func (l *Local) Store(ctx context.Context, key, value string) error {
	return l.store.update(l.device, func(keys map[string]string) {
		keys[key] = value
	})
}

// Clear removes key.
func (l *Local) Clear(ctx context.Context, key string) error {
	return l.store.update(l.device, func(keys map[string]string) {
		delete(keys, key)
	})
}
