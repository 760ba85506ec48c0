package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// SnapshotTimeLayout names snapshots so that name order is time order.
const SnapshotTimeLayout = "20060102T150405Z"

const (
	snapshotSuffix  = ".db"
	encryptedSuffix = ".age"
)

// ErrCatalogExists is returned by Restore when the destination exists and
// overwriting was not requested.
var ErrCatalogExists = errors.New("catalog file already exists")

// CatalogKey identifies the catalog of root inside a vault.
func CatalogKey(root string) string {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = root
	}
	sum := sha256.Sum256([]byte(abs))
	return hex.EncodeToString(sum[:8])
}

// BackupService copies the catalog to and from a vault.
type BackupService struct {
	store     Store
	vault     Vault
	encryptor Encryptor
	clock     Clock
	logger    Logger
}

// NewBackupService creates a BackupService. store may be nil when only
// Snapshots and Restore are used; encryptor may be nil when snapshots are
// never encrypted.
func NewBackupService(store Store, vault Vault, encryptor Encryptor, clock Clock, logger Logger) *BackupService {
	return &BackupService{
		store:     store,
		vault:     vault,
		encryptor: encryptor,
		clock:     clock,
		logger:    logger,
	}
}

// Backup snapshots the catalog of root into the vault.
func (s *BackupService) Backup(root string, encrypt bool) (*Snapshot, error) {
	if s.store == nil {
		return nil, fmt.Errorf("backup requires an open catalog")
	}
	if encrypt && (s.encryptor == nil || !s.encryptor.IsConfigured()) {
		return nil, fmt.Errorf("encryption keys are not configured; run 'filechk keys init'")
	}

	tmpDir, err := os.MkdirTemp("", "filechk-backup-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	now := s.clock.Now().UTC()
	name := now.Format(SnapshotTimeLayout) + snapshotSuffix
	src := filepath.Join(tmpDir, name)
	if err := s.store.BackupTo(src); err != nil {
		return nil, fmt.Errorf("copying catalog: %w", err)
	}

	if encrypt {
		encrypted := src + encryptedSuffix
		if err := encryptFile(s.encryptor, src, encrypted); err != nil {
			return nil, err
		}
		src = encrypted
		name += encryptedSuffix
	}

	f, err := os.Open(src)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat snapshot: %w", err)
	}

	key := CatalogKey(root)
	if err := s.vault.PutSnapshot(key, name, f, info.Size()); err != nil {
		return nil, fmt.Errorf("uploading snapshot: %w", err)
	}

	s.logger.Info("catalog backed up", "key", key, "snapshot", name, "size", info.Size())
	return &Snapshot{Name: name, Size: info.Size(), CreatedAt: now}, nil
}

// Snapshots lists the snapshots of root's catalog, newest first.
func (s *BackupService) Snapshots(root string) ([]Snapshot, error) {
	snaps, err := s.vault.ListSnapshots(CatalogKey(root))
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	for i := range snaps {
		if snaps[i].CreatedAt.IsZero() {
			snaps[i].CreatedAt = snapshotTime(snaps[i].Name)
		}
	}
	slices.SortFunc(snaps, func(a, b Snapshot) int { return strings.Compare(b.Name, a.Name) })
	return snaps, nil
}

// Restore downloads snapshot name of root's catalog to dest. An existing
// dest is replaced only when force is set. passphrase is called only for
// encrypted snapshots.
func (s *BackupService) Restore(root, name, dest string, force bool, passphrase func() (string, error)) error {
	if _, err := os.Stat(dest); err == nil && !force {
		return fmt.Errorf("%w: %s", ErrCatalogExists, dest)
	}

	dir := filepath.Dir(dest)
	tmp, err := os.CreateTemp(dir, ".filechk-restore-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	key := CatalogKey(root)
	if err := s.vault.GetSnapshot(key, name, tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("downloading snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if strings.HasSuffix(name, encryptedSuffix) {
		plain, err := s.decrypt(tmpPath, dir, passphrase)
		if err != nil {
			return err
		}
		defer os.Remove(plain)
		tmpPath = plain
	}

	for _, sidecar := range []string{"-journal", "-wal", "-shm"} {
		os.Remove(dest + sidecar)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("replacing catalog: %w", err)
	}

	s.logger.Info("catalog restored", "key", key, "snapshot", name, "dest", dest)
	return nil
}

func (s *BackupService) decrypt(src, dir string, passphrase func() (string, error)) (string, error) {
	if s.encryptor == nil {
		return "", fmt.Errorf("snapshot is encrypted but no encryptor is configured")
	}
	if passphrase == nil {
		return "", fmt.Errorf("snapshot is encrypted and no passphrase was provided")
	}
	pass, err := passphrase()
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	dctx, err := s.encryptor.Unlock(pass)
	if err != nil {
		return "", fmt.Errorf("unlocking private key: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("opening snapshot: %w", err)
	}
	defer in.Close()

	out, err := os.CreateTemp(dir, ".filechk-restore-*")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	if err := dctx.Decrypt(in, out); err != nil {
		out.Close()
		os.Remove(out.Name())
		return "", fmt.Errorf("decrypting snapshot: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(out.Name())
		return "", fmt.Errorf("closing decrypted snapshot: %w", err)
	}
	return out.Name(), nil
}

func encryptFile(enc Encryptor, src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening snapshot: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("creating encrypted snapshot: %w", err)
	}
	if err := enc.Encrypt(in, out); err != nil {
		out.Close()
		return fmt.Errorf("encrypting snapshot: %w", err)
	}
	return out.Close()
}

// snapshotTime recovers the creation time encoded in a snapshot name.
func snapshotTime(name string) time.Time {
	stamp, _, _ := strings.Cut(name, ".")
	t, err := time.Parse(SnapshotTimeLayout, stamp)
	if err != nil {
		return time.Time{}
	}
	return t
}
