package catalog

import (
	"errors"
	"io"
	"strings"
	"time"
)

// ErrSnapshotNotFound is returned when a vault has no snapshot by that name.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Snapshot describes one stored copy of a catalog.
type Snapshot struct {
	Name      string
	Size      int64
	CreatedAt time.Time
}

// Encrypted reports whether the snapshot was age-encrypted.
func (s Snapshot) Encrypted() bool {
	return strings.HasSuffix(s.Name, encryptedSuffix)
}

// Vault stores catalog snapshots. Snapshots are grouped by catalog key so
// one vault can hold backups of several roots.
type Vault interface {
	// PutSnapshot stores size bytes read from r. Storing an existing name
	// replaces it.
	PutSnapshot(catalogKey, name string, r io.Reader, size int64) error

	// GetSnapshot writes the named snapshot to w, or returns an error
	// wrapping ErrSnapshotNotFound.
	GetSnapshot(catalogKey, name string, w io.Writer) error

	// ListSnapshots returns the snapshots stored for catalogKey in name order.
	ListSnapshots(catalogKey string) ([]Snapshot, error)

	// ValidateSetup verifies that the vault is reachable and usable.
	ValidateSetup() error
}
