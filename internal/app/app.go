package app

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"filechk/internal/catalog"
	"filechk/internal/config"
	"filechk/internal/database"
	"filechk/internal/encryption"
	"filechk/internal/export"
	"filechk/internal/fs"
	"filechk/internal/vault"
)

// Options are the per-invocation values that override config. Nil or zero
// values leave the config untouched; Recurse and NoRescan are pointers so a
// flag can switch a config setting off as well as on.
type Options struct {
	Root       string
	Recurse    *bool
	Extensions []string
	NoRescan   *bool
	Verbose    bool
}

// ApplyTo overlays o on the catalog section of cfg.
func (o Options) ApplyTo(cfg *config.CatalogConfig) {
	if o.Root != "" {
		cfg.Root = o.Root
	}
	if o.Recurse != nil {
		cfg.Recurse = *o.Recurse
	}
	if len(o.Extensions) > 0 {
		cfg.Extensions = o.Extensions
	}
	if o.NoRescan != nil {
		cfg.NoRescan = *o.NoRescan
	}
}

// FileChkApp is the application layer between the CLI and CatalogService.
// It constructs all dependencies from config, owns the single store handle,
// and releases everything on Close.
type FileChkApp struct {
	cfg         *config.Config
	root        string
	catalogPath string
	existed     bool

	store   *database.SQLiteStore
	walker  *fs.OSWalker
	service *catalog.CatalogService

	clock   catalog.Clock
	idgen   catalog.IDGenerator
	logger  catalog.Logger
	logFile *os.File
	op      *Operation
}

// NewFileChkApp resolves the root and catalog path and sets up logging.
// The catalog is not opened; call Open or Startup. The caller must call
// Close when done.
func NewFileChkApp(cfg *config.Config, command string, opts Options) (*FileChkApp, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	opts.ApplyTo(&cfg.Catalog)

	root, err := filepath.Abs(cfg.Catalog.Root)
	if err != nil {
		return nil, fmt.Errorf("resolving root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("opening root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root is not a directory: %s", root)
	}

	catalogPath, err := database.CatalogPath(cfg.Catalog, root)
	if err != nil {
		return nil, err
	}

	clock := catalog.RealClock{}
	idgen := catalog.UUIDGenerator{}
	op := NewOperation(command, clock, idgen)

	slogger, logFile, err := newLogger(cfg.LogDir, op.ID, opts.Verbose)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}
	logger.Debug("command started", "command", command, "root", root, "catalog", catalogPath)

	return &FileChkApp{
		cfg:         cfg,
		root:        root,
		catalogPath: catalogPath,
		walker:      fs.NewOSWalker(logger, cfg.Filesystem.Ignore),
		clock:       clock,
		idgen:       idgen,
		logger:      logger,
		logFile:     logFile,
		op:          op,
	}, nil
}

// Root returns the absolute catalog root.
func (a *FileChkApp) Root() string { return a.root }

// CatalogPath returns the catalog file path, or ":memory:".
func (a *FileChkApp) CatalogPath() string { return a.catalogPath }

// Open opens the catalog once and brings its schema up to date. It records
// whether the catalog file existed beforehand.
func (a *FileChkApp) Open() error {
	if a.store != nil {
		return nil
	}

	a.existed = a.catalogPath != database.MemoryPath && fileExists(a.catalogPath)

	store, err := database.NewSQLiteStore(a.catalogPath)
	if err != nil {
		return err
	}
	if err := store.EnsureSchema(); err != nil {
		store.Close()
		return err
	}

	a.store = store
	a.service = catalog.NewCatalogService(store, a.walker, a.logger, a.clock, a.idgen)
	return nil
}

// ErrNoCatalog is returned by OpenExisting when the catalog file is missing.
var ErrNoCatalog = errors.New("no catalog; run 'filechk scan' first")

// OpenExisting opens the catalog like Open but never creates it, so
// read-only commands leave a fresh root unscanned.
func (a *FileChkApp) OpenExisting() error {
	if a.store == nil && a.catalogPath != database.MemoryPath && !fileExists(a.catalogPath) {
		return fmt.Errorf("%s: %w", a.catalogPath, ErrNoCatalog)
	}
	return a.Open()
}

// Startup opens the catalog and scans the root unless the catalog already
// existed and rescanning is disabled. The result is nil when the scan was
// skipped.
func (a *FileChkApp) Startup() (*catalog.ScanResult, error) {
	if err := a.Open(); err != nil {
		return nil, err
	}
	if !catalog.NeedsScan(a.existed, a.cfg.Catalog.NoRescan) {
		a.logger.Debug("scan skipped", "catalog", a.catalogPath)
		return nil, nil
	}
	return a.Scan()
}

// Scan opens the catalog if needed and ingests the root.
func (a *FileChkApp) Scan() (*catalog.ScanResult, error) {
	if err := a.Open(); err != nil {
		return nil, err
	}
	res, err := a.service.Scan(a.root, a.walkOptions())
	if err != nil {
		a.op.Fail()
		return nil, err
	}
	return res, nil
}

// Service returns the catalog service. Open must have succeeded.
func (a *FileChkApp) Service() *catalog.CatalogService {
	return a.service
}

func (a *FileChkApp) walkOptions() catalog.WalkOptions {
	return catalog.WalkOptions{
		Recursive:  a.cfg.Catalog.Recurse,
		Extensions: a.cfg.Catalog.Extensions,
	}
}

// Encryptor returns the configured encryptor.
func (a *FileChkApp) Encryptor() (catalog.Encryptor, error) {
	enc, err := encryption.NewEncryptorFromConfig(a.cfg.Encryption)
	if err != nil {
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}
	return enc, nil
}

// SetupKeys generates the encryption key pair.
func (a *FileChkApp) SetupKeys(passphrase string) error {
	enc, err := a.Encryptor()
	if err != nil {
		return err
	}
	if err := enc.Setup(passphrase); err != nil {
		return fmt.Errorf("setting up keys: %w", err)
	}
	a.logger.Info("encryption keys created", "public_key", a.cfg.Encryption.PublicKeyPath)
	return nil
}

// Export writes annotated entries in format to out, or to w when out is
// empty. It returns export.ErrNothingToExport when no entry has notes.
func (a *FileChkApp) Export(format, out string, encrypt bool, w io.Writer) (int, error) {
	if a.service == nil {
		return 0, fmt.Errorf("catalog is not open")
	}
	if format == "" {
		format = a.cfg.Export.Format
	}
	renderer, err := export.RendererFor(format)
	if err != nil {
		return 0, err
	}

	var enc catalog.Encryptor
	if encrypt {
		enc, err = a.exportEncryptor()
		if err != nil {
			return 0, err
		}
	}

	x := export.NewExporter(a.service, renderer, enc, a.logger)
	if out == "" {
		return x.Export(w)
	}
	return x.ExportToFile(out)
}

// exportEncryptor returns an encryptor whose output stays printable.
func (a *FileChkApp) exportEncryptor() (catalog.Encryptor, error) {
	enc, err := a.Encryptor()
	if err != nil {
		return nil, err
	}
	if !enc.IsConfigured() {
		return nil, fmt.Errorf("encryption keys are not configured; run 'filechk keys init'")
	}
	if ae, ok := enc.(*encryption.AgeEncryptor); ok {
		return ae.Armored(), nil
	}
	return enc, nil
}

func (a *FileChkApp) backupService() (*catalog.BackupService, error) {
	v, err := vault.NewVaultFromConfig(a.cfg.Vault)
	if err != nil {
		return nil, fmt.Errorf("creating vault: %w", err)
	}
	enc, err := a.Encryptor()
	if err != nil {
		return nil, err
	}
	var store catalog.Store
	if a.store != nil {
		store = a.store
	}
	return catalog.NewBackupService(store, v, enc, a.clock, a.logger), nil
}

// ValidateVault checks that the configured vault is reachable and usable.
func (a *FileChkApp) ValidateVault() error {
	v, err := vault.NewVaultFromConfig(a.cfg.Vault)
	if err != nil {
		return fmt.Errorf("creating vault: %w", err)
	}
	if err := v.ValidateSetup(); err != nil {
		return fmt.Errorf("vault %s: %w", a.cfg.Vault.Name, err)
	}
	return nil
}

// Backup opens the existing catalog and uploads a snapshot of it to the
// vault.
func (a *FileChkApp) Backup(encrypt bool) (*catalog.Snapshot, error) {
	if err := a.OpenExisting(); err != nil {
		return nil, err
	}
	svc, err := a.backupService()
	if err != nil {
		return nil, err
	}
	snap, err := svc.Backup(a.root, encrypt)
	if err != nil {
		a.op.Fail()
		return nil, err
	}
	return snap, nil
}

// Snapshots lists the vault's snapshots of this root's catalog, newest first.
func (a *FileChkApp) Snapshots() ([]catalog.Snapshot, error) {
	svc, err := a.backupService()
	if err != nil {
		return nil, err
	}
	return svc.Snapshots(a.root)
}

// Restore replaces the catalog file with snapshot name. It must run before
// the catalog is opened.
func (a *FileChkApp) Restore(name string, force bool, passphrase func() (string, error)) error {
	if a.store != nil {
		return fmt.Errorf("cannot restore while the catalog is open")
	}
	if a.catalogPath == database.MemoryPath {
		return fmt.Errorf("cannot restore an in-memory catalog")
	}
	svc, err := a.backupService()
	if err != nil {
		return err
	}
	if err := svc.Restore(a.root, name, a.catalogPath, force, passphrase); err != nil {
		a.op.Fail()
		return err
	}
	return nil
}

// Close releases the store and the log file.
func (a *FileChkApp) Close() error {
	var firstErr error
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			firstErr = fmt.Errorf("closing catalog: %w", err)
		}
		a.store = nil
	}

	a.logger.Debug("command finished", "command", a.op.Command, "status", a.op.Status,
		"duration", a.clock.Now().Sub(a.op.StartedAt))

	if a.logFile != nil {
		a.logFile.Close()
		a.logFile = nil
	}
	return firstErr
}

// IsFatal reports whether err means the catalog cannot be used at all.
func IsFatal(err error) bool {
	var openErr *database.OpenError
	var schemaErr *database.SchemaError
	return errors.As(err, &openErr) || errors.As(err, &schemaErr)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
