package vault

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"filechk/internal/catalog"
)

// testVaultContract exercises the behaviour every catalog.Vault shares.
func testVaultContract(t *testing.T, newVault func(t *testing.T) catalog.Vault) {
	t.Run("put and get round-trip", func(t *testing.T) {
		v := newVault(t)
		for _, content := range []string{"", "catalog bytes", strings.Repeat("x", 100000)} {
			if err := v.PutSnapshot("key1", "20240115T103000Z.db", strings.NewReader(content), int64(len(content))); err != nil {
				t.Fatalf("PutSnapshot() error = %v", err)
			}
			var buf bytes.Buffer
			if err := v.GetSnapshot("key1", "20240115T103000Z.db", &buf); err != nil {
				t.Fatalf("GetSnapshot() error = %v", err)
			}
			if buf.String() != content {
				t.Errorf("GetSnapshot() returned %d bytes, want %d", buf.Len(), len(content))
			}
		}
	})

	t.Run("missing snapshot", func(t *testing.T) {
		v := newVault(t)
		err := v.GetSnapshot("key1", "nope.db", &bytes.Buffer{})
		if !errors.Is(err, catalog.ErrSnapshotNotFound) {
			t.Errorf("GetSnapshot() error = %v, want ErrSnapshotNotFound", err)
		}
	})

	t.Run("list is per key and in name order", func(t *testing.T) {
		v := newVault(t)
		puts := []struct{ key, name, data string }{
			{"key1", "20240116T000000Z.db.age", "bb"},
			{"key1", "20240115T000000Z.db", "a"},
			{"key2", "20240101T000000Z.db", "ccc"},
		}
		for _, p := range puts {
			if err := v.PutSnapshot(p.key, p.name, strings.NewReader(p.data), int64(len(p.data))); err != nil {
				t.Fatalf("PutSnapshot() error = %v", err)
			}
		}

		snaps, err := v.ListSnapshots("key1")
		if err != nil {
			t.Fatalf("ListSnapshots() error = %v", err)
		}
		if len(snaps) != 2 {
			t.Fatalf("len(snaps) = %d, want 2", len(snaps))
		}
		if snaps[0].Name != "20240115T000000Z.db" || snaps[0].Size != 1 {
			t.Errorf("snaps[0] = %+v", snaps[0])
		}
		if snaps[1].Name != "20240116T000000Z.db.age" || snaps[1].Size != 2 || !snaps[1].Encrypted() {
			t.Errorf("snaps[1] = %+v", snaps[1])
		}

		empty, err := v.ListSnapshots("unknown")
		if err != nil {
			t.Fatalf("ListSnapshots(unknown) error = %v", err)
		}
		if len(empty) != 0 {
			t.Errorf("ListSnapshots(unknown) = %v, want empty", empty)
		}
	})

	t.Run("size mismatch", func(t *testing.T) {
		v := newVault(t)
		if err := v.PutSnapshot("key1", "a.db", strings.NewReader("abc"), 10); err == nil {
			t.Error("PutSnapshot() expected size mismatch error")
		}
	})

	t.Run("rejects path traversal", func(t *testing.T) {
		v := newVault(t)
		for _, bad := range [][2]string{{"..", "a.db"}, {"key", "../a.db"}, {"key", ""}, {"a/b", "c"}} {
			if err := v.PutSnapshot(bad[0], bad[1], strings.NewReader(""), 0); err == nil {
				t.Errorf("PutSnapshot(%q, %q) expected error", bad[0], bad[1])
			}
		}
	})

	t.Run("validate setup", func(t *testing.T) {
		if err := newVault(t).ValidateSetup(); err != nil {
			t.Errorf("ValidateSetup() error = %v", err)
		}
	})
}
