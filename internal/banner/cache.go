package banner

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"free-shipping-bar/internal/domain"
)

// MemorySnapshotCache keeps the snapshot in process memory.
type MemorySnapshotCache struct {
	mu   sync.Mutex
	snap *domain.CartSnapshot
}

func NewMemorySnapshotCache() *MemorySnapshotCache {
	return &MemorySnapshotCache{}
}

func (c *MemorySnapshotCache) Load() (domain.CartSnapshot, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snap == nil {
		return domain.CartSnapshot{}, false, nil
	}
	return *c.snap, true, nil
}

func (c *MemorySnapshotCache) Store(snapshot domain.CartSnapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap = &snapshot
	return nil
}

// FileSnapshotCache persists the snapshot as JSON so a headless monitor
// starts from the last known cart across restarts.
type FileSnapshotCache struct {
	mu   sync.Mutex
	path string
}

func NewFileSnapshotCache(path string) *FileSnapshotCache {
	return &FileSnapshotCache{path: path}
}

// Load treats a missing or unreadable file as no snapshot.
func (c *FileSnapshotCache) Load() (domain.CartSnapshot, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return domain.CartSnapshot{}, false, nil
	}
	if err != nil {
		return domain.CartSnapshot{}, false, fmt.Errorf("reading snapshot: %w", err)
	}
	var snap domain.CartSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return domain.CartSnapshot{}, false, nil
	}
	return snap, true, nil
}

// Store writes through a temp file and rename.
func (c *FileSnapshotCache) Store(snapshot domain.CartSnapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("creating snapshot dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(c.path), ".snapshot-*")
	if err != nil {
		return fmt.Errorf("creating snapshot file: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replacing snapshot: %w", err)
	}
	return nil
}
