package vault

import (
	"bytes"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"filechk/internal/catalog"
)

// MemoryVault keeps snapshots in memory. It is used in tests and for
// vault type "memory". Safe for concurrent use.
type MemoryVault struct {
	name      string
	mu        sync.RWMutex
	snapshots map[string][]byte // "key/name" -> data
}

// NewMemoryVault creates an empty in-memory vault.
func NewMemoryVault(name string) *MemoryVault {
	return &MemoryVault{
		name:      name,
		snapshots: make(map[string][]byte),
	}
}

func (m *MemoryVault) PutSnapshot(catalogKey, name string, r io.Reader, size int64) error {
	if err := checkNames(catalogKey, name); err != nil {
		return err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}
	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[catalogKey+"/"+name] = data
	return nil
}

func (m *MemoryVault) GetSnapshot(catalogKey, name string, w io.Writer) error {
	m.mu.RLock()
	data, ok := m.snapshots[catalogKey+"/"+name]
	m.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s/%s", catalog.ErrSnapshotNotFound, catalogKey, name)
	}
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

func (m *MemoryVault) ListSnapshots(catalogKey string) ([]catalog.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	prefix := catalogKey + "/"
	var out []catalog.Snapshot
	for k, data := range m.snapshots {
		if name, ok := strings.CutPrefix(k, prefix); ok {
			out = append(out, catalog.Snapshot{Name: name, Size: int64(len(data))})
		}
	}
	slices.SortFunc(out, func(a, b catalog.Snapshot) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

// ValidateSetup always succeeds for an in-memory vault.
func (m *MemoryVault) ValidateSetup() error {
	return nil
}

var _ catalog.Vault = (*MemoryVault)(nil)
