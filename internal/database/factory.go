package database

import (
	"fmt"
	"path/filepath"

	"filechk/internal/config"
)

// CatalogPath returns where the catalog for root lives, or MemoryPath for
// an in-memory catalog.
func CatalogPath(cfg config.CatalogConfig, root string) (string, error) {
	switch cfg.Type {
	case "sqlite", "":
		if root == "" {
			return "", fmt.Errorf("root required for sqlite catalog")
		}
		name := cfg.FileName
		if name == "" {
			name = config.DefaultCatalogFileName
		}
		abs, err := filepath.Abs(filepath.Join(root, name))
		if err != nil {
			return "", fmt.Errorf("resolving catalog path: %w", err)
		}
		return abs, nil
	case "memory":
		return MemoryPath, nil
	default:
		return "", fmt.Errorf("unknown catalog type: %s", cfg.Type)
	}
}

// NewStoreFromConfig opens the catalog selected by cfg for root.
func NewStoreFromConfig(cfg config.CatalogConfig, root string) (*SQLiteStore, error) {
	path, err := CatalogPath(cfg, root)
	if err != nil {
		return nil, err
	}
	return NewSQLiteStore(path)
}
