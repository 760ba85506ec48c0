package vault

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"filechk/internal/catalog"
)

const tmpPrefix = ".tmp-"

// FileSystemVault stores snapshots as files:
//
//	<root>/
//	  snapshots/
//	    <catalogKey>/
//	      20240115T103000Z.db
//	      20240116T090000Z.db.age
type FileSystemVault struct {
	name         string
	root         string
	snapshotsDir string
}

// NewFileSystemVault creates a filesystem vault rooted at root.
func NewFileSystemVault(name, root string) (*FileSystemVault, error) {
	snapshotsDir := filepath.Join(root, "snapshots")
	if err := os.MkdirAll(snapshotsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create snapshots directory: %w", err)
	}

	return &FileSystemVault{
		name:         name,
		root:         root,
		snapshotsDir: snapshotsDir,
	}, nil
}

func (v *FileSystemVault) PutSnapshot(catalogKey, name string, r io.Reader, size int64) error {
	if err := checkNames(catalogKey, name); err != nil {
		return err
	}
	dir := filepath.Join(v.snapshotsDir, catalogKey)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create catalog directory: %w", err)
	}
	return writeFileAtomic(filepath.Join(dir, name), r, size)
}

func (v *FileSystemVault) GetSnapshot(catalogKey, name string, w io.Writer) error {
	if err := checkNames(catalogKey, name); err != nil {
		return err
	}

	f, err := os.Open(filepath.Join(v.snapshotsDir, catalogKey, name))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s/%s", catalog.ErrSnapshotNotFound, catalogKey, name)
		}
		return fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}
	return nil
}

func (v *FileSystemVault) ListSnapshots(catalogKey string) ([]catalog.Snapshot, error) {
	if err := checkNames(catalogKey); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(filepath.Join(v.snapshotsDir, catalogKey))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading snapshots: %w", err)
	}

	var out []catalog.Snapshot
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), tmpPrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		out = append(out, catalog.Snapshot{Name: e.Name(), Size: info.Size()})
	}
	slices.SortFunc(out, func(a, b catalog.Snapshot) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

// ValidateSetup verifies that the vault directories are accessible.
func (v *FileSystemVault) ValidateSetup() error {
	for _, dir := range []string{v.root, v.snapshotsDir} {
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("vault directory not accessible: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("vault path is not a directory: %s", dir)
		}
	}
	return nil
}

// writeFileAtomic writes r to destPath through a temp file and rename.
func writeFileAtomic(destPath string, r io.Reader, expectedSize int64) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), tmpPrefix+"*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmpFile, r)
	if err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if written != expectedSize {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", expectedSize, written)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	success = true
	return nil
}

var _ catalog.Vault = (*FileSystemVault)(nil)
