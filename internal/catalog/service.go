package catalog

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// CatalogService coordinates the walker and the store. It is the API the
// presentation and export collaborators call.
type CatalogService struct {
	store  Store
	walker FileWalker
	logger Logger
	clock  Clock
	idgen  IDGenerator
}

// NewCatalogService creates a CatalogService with the provided dependencies.
// The store must already be open; the service never closes it.
func NewCatalogService(store Store, walker FileWalker, logger Logger, clock Clock, idgen IDGenerator) *CatalogService {
	return &CatalogService{
		store:  store,
		walker: walker,
		logger: logger,
		clock:  clock,
		idgen:  idgen,
	}
}

// NeedsScan decides whether startup should ingest. A catalog that did not
// exist before this process opened it is always scanned.
func NeedsScan(catalogExisted, noRescan bool) bool {
	return !catalogExisted || !noRescan
}

// ScanResult summarizes one Scan call.
type ScanResult struct {
	RunID    string
	Seen     int
	Added    int
	Skipped  int
	Duration time.Duration
}

// Scan walks root and inserts every file it finds into the catalog.
// Files that cannot be stat'ed are logged and skipped. All inserts are
// committed once, after the walk. Storage errors abort the scan.
func (s *CatalogService) Scan(root string, opts WalkOptions) (*ScanResult, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root: %w", err)
	}

	opts.Extensions = NormalizeExtensions(opts.Extensions)
	opts.Exclude = append(append([]string{}, opts.Exclude...), catalogFiles(s.store.Path())...)

	run := &ScanRun{
		ID:         s.idgen.New(),
		Root:       absRoot,
		Recursive:  opts.Recursive,
		Extensions: strings.Join(opts.Extensions, ","),
		StartedAt:  s.clock.Now(),
		Status:     ScanRunning,
	}
	if err := s.store.CreateScanRun(run); err != nil {
		return nil, fmt.Errorf("recording scan run: %w", err)
	}

	s.logger.Info("scan started", "root", absRoot, "recursive", opts.Recursive, "run", run.ID)

	result, scanErr := s.ingest(absRoot, opts)
	result.RunID = run.ID

	finished := s.clock.Now()
	run.FinishedAt = &finished
	run.Seen = result.Seen
	run.Added = result.Added
	run.Skipped = result.Skipped
	run.Status = ScanSuccess
	if scanErr != nil {
		run.Status = ScanFailed
	}
	result.Duration = run.Duration()

	if err := s.store.FinishScanRun(run); err != nil {
		if scanErr != nil {
			s.logger.Error("recording failed scan run", "run", run.ID, "error", err)
			return nil, scanErr
		}
		return nil, fmt.Errorf("finishing scan run: %w", err)
	}
	if scanErr != nil {
		s.logger.Error("scan failed", "root", absRoot, "error", scanErr)
		return nil, scanErr
	}

	s.logger.Info("scan complete", "seen", result.Seen, "added", result.Added, "skipped", result.Skipped)
	return result, nil
}

// ingest runs the walk inside one batch.
func (s *CatalogService) ingest(root string, opts WalkOptions) (*ScanResult, error) {
	result := &ScanResult{}

	batch, err := s.store.BeginBatch()
	if err != nil {
		return result, fmt.Errorf("starting batch: %w", err)
	}
	defer batch.Rollback()

	for path := range s.walker.Walk(root, opts) {
		result.Seen++

		info, err := s.walker.Stat(path)
		if err != nil {
			s.logger.Warn("skipping unreadable file", "path", path, "error", err)
			result.Skipped++
			continue
		}
		if !info.Mode().IsRegular() {
			s.logger.Warn("skipping non-regular file", "path", path)
			result.Skipped++
			continue
		}

		inserted, err := batch.Insert(NewEntry{
			Path:       path,
			Name:       filepath.Base(path),
			ModifiedAt: info.ModTime().UTC(),
			Size:       info.Size(),
		})
		if err != nil {
			return result, fmt.Errorf("inserting %s: %w", path, err)
		}
		if inserted {
			result.Added++
			s.logger.Debug("file cataloged", "path", path)
		}
	}

	if err := batch.Commit(); err != nil {
		return result, fmt.Errorf("committing scan: %w", err)
	}
	return result, nil
}

// List returns all entries in the requested order.
func (s *CatalogService) List(sort SortKey, descending bool) ([]*Entry, error) {
	entries, err := s.store.QueryAll(sort, descending)
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	return entries, nil
}

// Get returns one entry, or nil if id is unknown.
func (s *CatalogService) Get(id int64) (*Entry, error) {
	entry, err := s.store.Find(id)
	if err != nil {
		return nil, fmt.Errorf("finding entry %d: %w", id, err)
	}
	return entry, nil
}

// SetStatus persists status for id. Unknown ids are ignored.
func (s *CatalogService) SetStatus(id int64, status Status) error {
	if err := s.store.SetStatus(id, status); err != nil {
		return fmt.Errorf("setting status of entry %d: %w", id, err)
	}
	s.logger.Debug("status set", "id", id, "status", status.String())
	return nil
}

// ToggleStatus flips the status of id and returns the updated entry.
// It returns nil without error when id is unknown.
func (s *CatalogService) ToggleStatus(id int64) (*Entry, error) {
	entry, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, nil
	}

	next := entry.Status.Toggle()
	if err := s.SetStatus(id, next); err != nil {
		return nil, err
	}
	entry.Status = next
	return entry, nil
}

// SetNotes persists notes for id. Unknown ids are ignored.
func (s *CatalogService) SetNotes(id int64, notes string) error {
	if err := s.store.SetNotes(id, notes); err != nil {
		return fmt.Errorf("setting notes of entry %d: %w", id, err)
	}
	s.logger.Debug("notes set", "id", id, "length", len(notes))
	return nil
}

// Annotated returns entries that carry notes, in storage order.
func (s *CatalogService) Annotated() ([]*Entry, error) {
	entries, err := s.store.QueryAnnotated()
	if err != nil {
		return nil, fmt.Errorf("listing annotated entries: %w", err)
	}
	return entries, nil
}

// CountAnnotated returns the number of entries that carry notes.
// Exporters must not write anything when it is zero.
func (s *CatalogService) CountAnnotated() (int, error) {
	n, err := s.store.CountAnnotated()
	if err != nil {
		return 0, fmt.Errorf("counting annotated entries: %w", err)
	}
	return n, nil
}

// Count returns the total number of cataloged entries.
func (s *CatalogService) Count() (int, error) {
	n, err := s.store.Count()
	if err != nil {
		return 0, fmt.Errorf("counting entries: %w", err)
	}
	return n, nil
}

// History returns the most recent scan runs, newest first.
func (s *CatalogService) History(limit int) ([]*ScanRun, error) {
	runs, err := s.store.ListScanRuns(limit)
	if err != nil {
		return nil, fmt.Errorf("listing scan runs: %w", err)
	}
	return runs, nil
}

// catalogFiles returns the catalog file and the SQLite sidecar files that
// may appear next to it while a batch is open.
func catalogFiles(storePath string) []string {
	if storePath == "" || storePath == ":memory:" {
		return nil
	}
	abs, err := filepath.Abs(storePath)
	if err != nil {
		abs = storePath
	}
	return []string{abs, abs + "-journal", abs + "-wal", abs + "-shm"}
}
