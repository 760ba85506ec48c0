package app

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"filechk/internal/catalog"
	"filechk/internal/config"
	"filechk/internal/export"
)

func newTestConfig(t *testing.T) (*config.Config, string) {
	t.Helper()
	cfg := config.NewConfig(t.TempDir())
	cfg.Encryption.Type = "test"

	root := t.TempDir()
	for name, data := range map[string]string{
		"a.mp3":       "aaa",
		"b.txt":       "bbbb",
		"sub/c.mp3":   "cc",
		".hidden.mp3": "h",
	} {
		p := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(data), 0644); err != nil {
			t.Fatal(err)
		}
	}
	cfg.Catalog.Root = root
	return cfg, root
}

func boolPtr(v bool) *bool { return &v }

func newTestApp(t *testing.T, cfg *config.Config, opts Options) *FileChkApp {
	t.Helper()
	a, err := NewFileChkApp(cfg, "test", opts)
	if err != nil {
		t.Fatalf("NewFileChkApp() error = %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func TestOptions_ApplyTo(t *testing.T) {
	on, off := true, false

	t.Run("zero options leave config alone", func(t *testing.T) {
		cfg := config.CatalogConfig{Root: ".", Extensions: []string{".mp3"}, Recurse: true, NoRescan: true}
		Options{}.ApplyTo(&cfg)
		if cfg.Root != "." || len(cfg.Extensions) != 1 || !cfg.Recurse || !cfg.NoRescan {
			t.Errorf("zero options changed config: %+v", cfg)
		}
	})

	t.Run("options switch settings on", func(t *testing.T) {
		cfg := config.CatalogConfig{Root: ".", Extensions: []string{".mp3"}}
		Options{Root: "/music", Recurse: &on, Extensions: []string{"flac"}, NoRescan: &on}.ApplyTo(&cfg)
		if cfg.Root != "/music" || !cfg.Recurse || !cfg.NoRescan || cfg.Extensions[0] != "flac" {
			t.Errorf("options not applied: %+v", cfg)
		}
	})

	t.Run("options switch settings off", func(t *testing.T) {
		cfg := config.CatalogConfig{Root: ".", Recurse: true, NoRescan: true}
		Options{Recurse: &off, NoRescan: &off}.ApplyTo(&cfg)
		if cfg.Recurse || cfg.NoRescan {
			t.Errorf("explicit false did not override config: %+v", cfg)
		}
	})
}

func TestFileChkApp_RecurseOverride(t *testing.T) {
	cfg, _ := newTestConfig(t)
	cfg.Catalog.Recurse = true
	off := false

	a := newTestApp(t, cfg, Options{Recurse: &off})
	res, err := a.Startup()
	if err != nil {
		t.Fatalf("Startup() error = %v", err)
	}
	if res.Added != 3 {
		t.Errorf("Added = %d, want 3 top-level files with recursion switched off", res.Added)
	}
}

func TestNewFileChkApp_BadRoot(t *testing.T) {
	cfg := config.NewConfig(t.TempDir())
	cfg.Catalog.Root = filepath.Join(t.TempDir(), "missing")
	if _, err := NewFileChkApp(cfg, "test", Options{}); err == nil {
		t.Error("NewFileChkApp() expected error for missing root")
	}
}

func TestFileChkApp_Startup(t *testing.T) {
	t.Run("new catalog is always scanned", func(t *testing.T) {
		cfg, root := newTestConfig(t)
		a := newTestApp(t, cfg, Options{NoRescan: boolPtr(true)})

		res, err := a.Startup()
		if err != nil {
			t.Fatalf("Startup() error = %v", err)
		}
		if res == nil {
			t.Fatal("Startup() skipped the scan of a new catalog")
		}
		if res.Added != 3 {
			t.Errorf("Added = %d, want 3 top-level files", res.Added)
		}
		if !fileExists(filepath.Join(root, config.DefaultCatalogFileName)) {
			t.Error("catalog file not created in root")
		}
	})

	t.Run("existing catalog honors no-rescan", func(t *testing.T) {
		cfg, _ := newTestConfig(t)
		first := newTestApp(t, cfg, Options{})
		if _, err := first.Startup(); err != nil {
			t.Fatalf("first Startup() error = %v", err)
		}
		first.Close()

		second := newTestApp(t, cfg, Options{NoRescan: boolPtr(true)})
		res, err := second.Startup()
		if err != nil {
			t.Fatalf("second Startup() error = %v", err)
		}
		if res != nil {
			t.Errorf("Startup() scanned with no-rescan: %+v", res)
		}
	})

	t.Run("rescan adds nothing and skips the catalog file", func(t *testing.T) {
		cfg, _ := newTestConfig(t)
		opts := Options{Recurse: boolPtr(true), Extensions: []string{"mp3"}}
		first := newTestApp(t, cfg, opts)
		res, err := first.Startup()
		if err != nil {
			t.Fatalf("first Startup() error = %v", err)
		}
		if res.Added != 3 {
			t.Errorf("first Added = %d, want 3", res.Added)
		}
		first.Close()

		second := newTestApp(t, cfg, opts)
		res, err = second.Startup()
		if err != nil {
			t.Fatalf("second Startup() error = %v", err)
		}
		if res.Added != 0 {
			t.Errorf("second Added = %d, want 0", res.Added)
		}
		n, err := second.Service().Count()
		if err != nil {
			t.Fatalf("Count() error = %v", err)
		}
		if n != 3 {
			t.Errorf("Count() = %d, want 3", n)
		}
	})

	t.Run("corrupt catalog is fatal", func(t *testing.T) {
		cfg, root := newTestConfig(t)
		if err := os.WriteFile(filepath.Join(root, config.DefaultCatalogFileName), []byte("not a database"), 0644); err != nil {
			t.Fatal(err)
		}
		a := newTestApp(t, cfg, Options{})
		_, err := a.Startup()
		if err == nil {
			t.Fatal("Startup() expected error")
		}
		if !IsFatal(err) {
			t.Errorf("IsFatal(%v) = false", err)
		}
	})
}

func TestFileChkApp_Export(t *testing.T) {
	cfg, _ := newTestConfig(t)
	a := newTestApp(t, cfg, Options{})
	if _, err := a.Startup(); err != nil {
		t.Fatalf("Startup() error = %v", err)
	}

	var buf bytes.Buffer
	if _, err := a.Export("", "", false, &buf); !errors.Is(err, export.ErrNothingToExport) {
		t.Fatalf("Export() error = %v, want ErrNothingToExport", err)
	}
	if buf.Len() != 0 {
		t.Errorf("Export() wrote %d bytes when gated", buf.Len())
	}

	if err := a.Service().SetNotes(1, "good take"); err != nil {
		t.Fatalf("SetNotes() error = %v", err)
	}
	n, err := a.Export("csv", "", false, &buf)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if n != 1 || !strings.Contains(buf.String(), "good take") {
		t.Errorf("Export() = %d, output %q", n, buf.String())
	}

	out := filepath.Join(t.TempDir(), "notes.md")
	if _, err := a.Export("markdown", out, true, nil); err != nil {
		t.Fatalf("Export(encrypted) error = %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("reading export: %v", err)
	}
	if strings.HasPrefix(string(data), "|") {
		t.Error("encrypted export is plaintext")
	}
}

func TestFileChkApp_BackupRestore(t *testing.T) {
	cfg, _ := newTestConfig(t)

	a := newTestApp(t, cfg, Options{})
	if _, err := a.Startup(); err != nil {
		t.Fatalf("Startup() error = %v", err)
	}
	if err := a.Service().SetNotes(2, "remember"); err != nil {
		t.Fatalf("SetNotes() error = %v", err)
	}
	snap, err := a.Backup(false)
	if err != nil {
		t.Fatalf("Backup() error = %v", err)
	}
	if err := a.Restore(snap.Name, true, nil); err == nil {
		t.Error("Restore() expected error while catalog is open")
	}
	if err := a.Service().SetNotes(2, ""); err != nil {
		t.Fatalf("SetNotes() error = %v", err)
	}
	a.Close()

	r := newTestApp(t, cfg, Options{NoRescan: boolPtr(true)})
	snaps, err := r.Snapshots()
	if err != nil {
		t.Fatalf("Snapshots() error = %v", err)
	}
	if len(snaps) != 1 || snaps[0].Name != snap.Name {
		t.Fatalf("Snapshots() = %+v, want [%s]", snaps, snap.Name)
	}
	if err := r.Restore(snap.Name, false, nil); !errors.Is(err, catalog.ErrCatalogExists) {
		t.Fatalf("Restore() error = %v, want ErrCatalogExists", err)
	}
	if err := r.Restore(snap.Name, true, nil); err != nil {
		t.Fatalf("Restore(force) error = %v", err)
	}

	if _, err := r.Startup(); err != nil {
		t.Fatalf("Startup() error = %v", err)
	}
	e, err := r.Service().Get(2)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if e == nil || e.Notes != "remember" {
		t.Errorf("restored entry = %+v, want notes %q", e, "remember")
	}
}

func TestFileChkApp_MissingCatalogIsNotCreated(t *testing.T) {
	cfg, root := newTestConfig(t)
	catalogFile := filepath.Join(root, config.DefaultCatalogFileName)

	a := newTestApp(t, cfg, Options{})
	if err := a.OpenExisting(); !errors.Is(err, ErrNoCatalog) {
		t.Errorf("OpenExisting() error = %v, want ErrNoCatalog", err)
	}
	if _, err := a.Backup(false); !errors.Is(err, ErrNoCatalog) {
		t.Errorf("Backup() error = %v, want ErrNoCatalog", err)
	}
	if fileExists(catalogFile) {
		t.Fatal("catalog file created by a read-only command")
	}
	a.Close()

	next := newTestApp(t, cfg, Options{NoRescan: boolPtr(true)})
	res, err := next.Startup()
	if err != nil {
		t.Fatalf("Startup() error = %v", err)
	}
	if res == nil || res.Added != 3 {
		t.Errorf("Startup() = %+v, want a scan adding 3 files", res)
	}
	if err := next.OpenExisting(); err != nil {
		t.Errorf("OpenExisting() after scan error = %v", err)
	}
}

func TestFileChkApp_ValidateVault(t *testing.T) {
	cfg, _ := newTestConfig(t)
	a := newTestApp(t, cfg, Options{})
	if err := a.ValidateVault(); err != nil {
		t.Errorf("ValidateVault() error = %v", err)
	}

	cfg.Vault.Type = "s3"
	cfg.Vault.S3Bucket = ""
	if err := a.ValidateVault(); err == nil {
		t.Error("ValidateVault() expected error for s3 vault without bucket")
	}
}
