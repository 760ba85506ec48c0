package database

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"filechk/internal/config"
)

func TestCatalogPath(t *testing.T) {
	root := t.TempDir()

	tests := []struct {
		name    string
		cfg     config.CatalogConfig
		root    string
		want    string
		wantErr bool
	}{
		{"sqlite default file name", config.CatalogConfig{Type: "sqlite"}, root, filepath.Join(root, "_filechk.db"), false},
		{"empty type means sqlite", config.CatalogConfig{}, root, filepath.Join(root, "_filechk.db"), false},
		{"custom file name", config.CatalogConfig{Type: "sqlite", FileName: "c.db"}, root, filepath.Join(root, "c.db"), false},
		{"memory", config.CatalogConfig{Type: "memory"}, "", MemoryPath, false},
		{"sqlite without root", config.CatalogConfig{Type: "sqlite"}, "", "", true},
		{"unknown type", config.CatalogConfig{Type: "postgres"}, root, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CatalogPath(tt.cfg, tt.root)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CatalogPath() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("CatalogPath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewStoreFromConfig(t *testing.T) {
	t.Run("memory catalog", func(t *testing.T) {
		store, err := NewStoreFromConfig(config.CatalogConfig{Type: "memory"}, "")
		if err != nil {
			t.Fatalf("NewStoreFromConfig() error = %v", err)
		}
		defer store.Close()

		if store.Path() != MemoryPath {
			t.Errorf("Path() = %q, want %q", store.Path(), MemoryPath)
		}
	})

	t.Run("sqlite catalog creates file in root", func(t *testing.T) {
		root := t.TempDir()
		store, err := NewStoreFromConfig(config.CatalogConfig{Type: "sqlite"}, root)
		if err != nil {
			t.Fatalf("NewStoreFromConfig() error = %v", err)
		}
		defer store.Close()

		if err := store.EnsureSchema(); err != nil {
			t.Fatalf("EnsureSchema() error = %v", err)
		}
		if _, err := os.Stat(filepath.Join(root, "_filechk.db")); err != nil {
			t.Errorf("catalog file not created: %v", err)
		}
	})

	t.Run("unopenable location is an OpenError", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "does", "not", "exist")
		store, err := NewStoreFromConfig(config.CatalogConfig{Type: "sqlite"}, root)
		if err == nil {
			store.Close()
			t.Fatal("NewStoreFromConfig() expected error")
		}
		var openErr *OpenError
		if !errors.As(err, &openErr) {
			t.Errorf("error = %T, want *OpenError", err)
		}
	})
}
