// Package state persists the tracked map library.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Backend names accepted by Open.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

var (
	// ErrNotFound is returned when no item matches a lookup
	ErrNotFound = errors.New("item not found")

	// ErrAmbiguous is returned when an ID prefix matches several items
	ErrAmbiguous = errors.New("item reference is ambiguous")
)

// minPrefixLen is the shortest ID prefix Find accepts.
const minPrefixLen = 4

// Store is the item repository shared by the CLI, the library sync and the
// daemon. Mutations stay in memory until Save.
type Store interface {
	Load() error
	Save() error
	Get(id string) (*Item, error)
	GetByPath(path string) (*Item, error)
	Find(ref string) (*Item, error)
	Put(item *Item)
	Remove(id string) error
	Items() []*Item
	Count() int
	LastScan() time.Time
	UpdateLastScan()
	Close() error
}

// Open returns the store for a backend name.
func Open(backend, path string) (Store, error) {
	switch backend {
	case "", BackendJSON:
		return NewJSONStore(path), nil
	case BackendSQLite:
		return NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unknown state backend %q", backend)
	}
}

// memory is the in-memory library both backends operate on. Items handed out
// are clones.
type memory struct {
	lib *Library
	mu  sync.RWMutex
}

// Get returns the item with the given ID
func (m *memory) Get(id string) (*Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	it := m.lib.Get(id)
	if it == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return it.Clone(), nil
}

// GetByPath returns the item tracking a file path
func (m *memory) GetByPath(path string) (*Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	it := m.lib.GetByPath(path)
	if it == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return it.Clone(), nil
}

// Find resolves a user-supplied reference: a full ID, a file path, or a
// unique ID prefix.
func (m *memory) Find(ref string) (*Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if it := m.lib.Get(ref); it != nil {
		return it.Clone(), nil
	}
	if it := m.lib.GetByPath(ref); it != nil {
		return it.Clone(), nil
	}
	if abs, err := filepath.Abs(ref); err == nil {
		if it := m.lib.GetByPath(abs); it != nil {
			return it.Clone(), nil
		}
	}

	if len(ref) >= minPrefixLen {
		var match *Item
		for id, it := range m.lib.Items {
			if !strings.HasPrefix(id, ref) {
				continue
			}
			if match != nil {
				return nil, fmt.Errorf("%w: %s", ErrAmbiguous, ref)
			}
			match = it
		}
		if match != nil {
			return match.Clone(), nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
}

// Put adds or updates an item
func (m *memory) Put(item *Item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lib.Put(item.Clone())
}

// Remove deletes an item by ID
func (m *memory) Remove(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.lib.Remove(id) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Items returns all items ordered by AddedAt
func (m *memory) Items() []*Item {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sorted := m.lib.Sorted()
	out := make([]*Item, len(sorted))
	for i, it := range sorted {
		out[i] = it.Clone()
	}
	return out
}

// Count returns the total number of items
func (m *memory) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.lib.Items)
}

// LastScan returns when the last scan completed
func (m *memory) LastScan() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lib.LastScan
}

// UpdateLastScan updates the last scan timestamp
func (m *memory) UpdateLastScan() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lib.UpdateLastScan()
}

// JSONStore keeps the library in a single JSON file
type JSONStore struct {
	memory
	filePath string
}

// NewJSONStore creates a store backed by the file at filePath
func NewJSONStore(filePath string) *JSONStore {
	return &JSONStore{
		memory:   memory{lib: NewLibrary()},
		filePath: filePath,
	}
}

// Load reads the library from the JSON file
// If the file doesn't exist, the library starts empty (not an error)
func (s *JSONStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if errors.Is(err, os.ErrNotExist) {
		s.lib = NewLibrary()
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read state file: %w", err)
	}

	var lib Library
	if err := json.Unmarshal(data, &lib); err != nil {
		return fmt.Errorf("failed to parse state file: %w", err)
	}

	if lib.Version != LibraryFileVersion {
		return fmt.Errorf("unsupported state file version %d (expected %d)", lib.Version, LibraryFileVersion)
	}

	if lib.Items == nil {
		lib.Items = make(map[string]*Item)
	}
	lib.reindex()
	s.lib = &lib
	return nil
}

// Save writes the library to the JSON file atomically
func (s *JSONStore) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := json.MarshalIndent(s.lib, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	// Write to a temp file in the same directory, then rename over the target
	tmpFile := s.filePath + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp state file: %w", err)
	}

	if err := os.Rename(tmpFile, s.filePath); err != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("failed to rename temp state file: %w", err)
	}

	return nil
}

// Close is a no-op for the JSON backend
func (s *JSONStore) Close() error {
	return nil
}

// Path returns the state file location
func (s *JSONStore) Path() string {
	return s.filePath
}

// LoadOrCreate opens a store, loads it and writes the file if it is new
func LoadOrCreate(backend, path string) (Store, error) {
	store, err := Open(backend, path)
	if err != nil {
		return nil, err
	}

	if err := store.Load(); err != nil {
		_ = store.Close()
		return nil, err
	}

	if store.Count() == 0 && store.LastScan().IsZero() {
		if err := store.Save(); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to save initial state: %w", err)
		}
	}

	return store, nil
}
