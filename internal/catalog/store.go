package catalog

// Store is the persistent catalog. It owns the dedup contract and every
// mutation and query on entries. Implementations commit SetStatus and
// SetNotes before returning so later reads observe them.
type Store interface {
	// EnsureSchema creates the entry table and its uniqueness constraint if absent.
	// Safe to call on every startup.
	EnsureSchema() error

	// BeginBatch starts an ingestion batch. Inserts become durable on Commit.
	BeginBatch() (Batch, error)

	// QueryAll returns every entry ordered by sort. SortNone keeps storage order.
	// Ties always keep storage order, including when descending is set.
	QueryAll(sort SortKey, descending bool) ([]*Entry, error)

	// Find returns the entry with the given id, or nil if there is none.
	Find(id int64) (*Entry, error)

	// SetStatus updates one entry. An unknown id is a no-op.
	SetStatus(id int64, status Status) error

	// SetNotes updates one entry. An unknown id is a no-op.
	SetNotes(id int64, notes string) error

	// QueryAnnotated returns entries with non-empty notes in storage order.
	QueryAnnotated() ([]*Entry, error)

	// CountAnnotated returns the number of entries with non-empty notes.
	CountAnnotated() (int, error)

	// Count returns the total number of entries.
	Count() (int, error)

	// Scan history

	CreateScanRun(run *ScanRun) error
	FinishScanRun(run *ScanRun) error
	ListScanRuns(limit int) ([]*ScanRun, error)

	// BackupTo writes a consistent copy of the catalog to destPath.
	BackupTo(destPath string) error

	// Path returns the catalog file path, or ":memory:".
	Path() string

	Close() error
}

// Batch groups inserts from one scan behind a single commit.
type Batch interface {
	// Insert adds an entry with default status and notes. A triple that is
	// already cataloged is ignored; inserted reports whether a row was added.
	Insert(e NewEntry) (inserted bool, err error)

	Commit() error

	// Rollback discards uncommitted inserts. It is a no-op after Commit.
	Rollback() error
}
