package database

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	sq "github.com/Masterminds/squirrel"

	"filechk/internal/catalog"
	"filechk/internal/database/migrations"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// MemoryPath opens a catalog that lives only as long as the store.
const MemoryPath = ":memory:"

var entryColumns = []string{"id", "path", "name", "modified_time", "size", "status", "notes"}

var scanRunColumns = []string{
	"id", "root", "recursive", "extensions", "started_at", "finished_at",
	"seen", "added", "skipped", "status",
}

// sortColumns whitelists the columns QueryAll may order by.
var sortColumns = map[catalog.SortKey]string{
	catalog.SortPath:     "path",
	catalog.SortName:     "name",
	catalog.SortModified: "modified_time",
	catalog.SortSize:     "size",
	catalog.SortStatus:   "status",
	catalog.SortNotes:    "notes",
}

// SQLiteStore implements catalog.Store on a single SQLite file.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (creating if needed) the catalog at path. Failures
// are returned as *OpenError. The schema is not touched; call EnsureSchema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, &OpenError{Path: path, Err: err}
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// NewSQLiteStoreFromDB wraps an existing connection. The caller is
// responsible for configuring it.
func NewSQLiteStoreFromDB(db *sql.DB, path string) *SQLiteStore {
	return &SQLiteStore{db: db, path: path}
}

// OpenConnection opens and configures a SQLite connection.
// The pool is capped at one connection: the catalog has a single writer,
// and an in-memory catalog only exists on the connection that created it.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	return db, nil
}

// EnsureSchema migrates the catalog to the latest schema. Failures are
// returned as *SchemaError.
func (s *SQLiteStore) EnsureSchema() error {
	if err := migrations.MigrateUp(s.db); err != nil {
		return &SchemaError{Path: s.path, Err: err}
	}
	return nil
}

// CheckSchema reports whether the catalog is at the latest schema version.
func (s *SQLiteStore) CheckSchema() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// Entries

// BeginBatch opens a transaction. No other store method may be called
// until the batch is committed or rolled back.
func (s *SQLiteStore) BeginBatch() (catalog.Batch, error) {
	query, _, err := sq.Insert("entries").
		Columns("path", "name", "modified_time", "size").
		Values("", "", 0, 0).
		Suffix("ON CONFLICT (path, modified_time, size) DO NOTHING").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building insert: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	stmt, err := tx.Prepare(query)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("preparing insert: %w", err)
	}
	return &sqliteBatch{tx: tx, insert: stmt}, nil
}

type sqliteBatch struct {
	tx     *sql.Tx
	insert *sql.Stmt
	done   bool
}

func (b *sqliteBatch) Insert(e catalog.NewEntry) (bool, error) {
	if b.done {
		return false, sql.ErrTxDone
	}
	res, err := b.insert.Exec(e.Path, e.Name, toEpoch(e.ModifiedAt), e.Size)
	if err != nil {
		return false, fmt.Errorf("inserting entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading rows affected: %w", err)
	}
	return n > 0, nil
}

func (b *sqliteBatch) Commit() error {
	if b.done {
		return sql.ErrTxDone
	}
	b.done = true
	if err := b.tx.Commit(); err != nil {
		return fmt.Errorf("committing batch: %w", err)
	}
	return nil
}

func (b *sqliteBatch) Rollback() error {
	if b.done {
		return nil
	}
	b.done = true
	if err := b.tx.Rollback(); err != nil {
		return fmt.Errorf("rolling back batch: %w", err)
	}
	return nil
}

func (s *SQLiteStore) QueryAll(sort catalog.SortKey, descending bool) ([]*catalog.Entry, error) {
	q := sq.Select(entryColumns...).From("entries")

	if sort == catalog.SortNone {
		q = q.OrderBy("id")
	} else {
		col, ok := sortColumns[sort]
		if !ok {
			return nil, fmt.Errorf("%w: %q", catalog.ErrUnknownSortKey, string(sort))
		}
		if descending {
			col += " DESC"
		}
		q = q.OrderBy(col, "id")
	}

	return s.queryEntries(q)
}

func (s *SQLiteStore) Find(id int64) (*catalog.Entry, error) {
	query, args, err := sq.Select(entryColumns...).From("entries").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}

	e, err := scanEntry(s.db.QueryRow(query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding entry: %w", err)
	}
	return e, nil
}

func (s *SQLiteStore) SetStatus(id int64, status catalog.Status) error {
	if status != catalog.StatusChecked && status != catalog.StatusUnchecked {
		return fmt.Errorf("invalid status %d", status)
	}
	return s.update(sq.Update("entries").Set("status", int(status)).Where(sq.Eq{"id": id}))
}

func (s *SQLiteStore) SetNotes(id int64, notes string) error {
	return s.update(sq.Update("entries").Set("notes", notes).Where(sq.Eq{"id": id}))
}

func (s *SQLiteStore) QueryAnnotated() ([]*catalog.Entry, error) {
	return s.queryEntries(sq.Select(entryColumns...).
		From("entries").
		Where(sq.NotEq{"notes": ""}).
		OrderBy("id"))
}

func (s *SQLiteStore) CountAnnotated() (int, error) {
	return s.count(sq.Select("COUNT(*)").From("entries").Where(sq.NotEq{"notes": ""}))
}

func (s *SQLiteStore) Count() (int, error) {
	return s.count(sq.Select("COUNT(*)").From("entries"))
}

// Scan runs

func (s *SQLiteStore) CreateScanRun(run *catalog.ScanRun) error {
	query, args, err := sq.Insert("scan_runs").
		Columns(scanRunColumns...).
		Values(run.ID, run.Root, run.Recursive, run.Extensions, run.StartedAt.UTC(), nullTime(run.FinishedAt),
			run.Seen, run.Added, run.Skipped, run.Status).
		ToSql()
	if err != nil {
		return fmt.Errorf("building insert: %w", err)
	}
	if _, err := s.db.Exec(query, args...); err != nil {
		return fmt.Errorf("inserting scan run: %w", err)
	}
	return nil
}

func (s *SQLiteStore) FinishScanRun(run *catalog.ScanRun) error {
	return s.update(sq.Update("scan_runs").
		SetMap(map[string]any{
			"finished_at": nullTime(run.FinishedAt),
			"seen":        run.Seen,
			"added":       run.Added,
			"skipped":     run.Skipped,
			"status":      run.Status,
		}).
		Where(sq.Eq{"id": run.ID}))
}

// ListScanRuns returns up to limit runs, newest first. limit <= 0 returns all.
func (s *SQLiteStore) ListScanRuns(limit int) ([]*catalog.ScanRun, error) {
	q := sq.Select(scanRunColumns...).From("scan_runs").OrderBy("started_at DESC", "rowid DESC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing scan runs: %w", err)
	}
	defer rows.Close()

	var runs []*catalog.ScanRun
	for rows.Next() {
		var r catalog.ScanRun
		var finished sql.NullTime
		if err := rows.Scan(&r.ID, &r.Root, &r.Recursive, &r.Extensions, &r.StartedAt, &finished,
			&r.Seen, &r.Added, &r.Skipped, &r.Status); err != nil {
			return nil, fmt.Errorf("scanning scan run: %w", err)
		}
		r.StartedAt = r.StartedAt.UTC()
		if finished.Valid {
			t := finished.Time.UTC()
			r.FinishedAt = &t
		}
		runs = append(runs, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating scan runs: %w", err)
	}
	return runs, nil
}

// Maintenance

// BackupTo creates a complete copy of the catalog at destPath using VACUUM INTO.
func (s *SQLiteStore) BackupTo(destPath string) error {
	if _, err := s.db.Exec("VACUUM INTO ?", destPath); err != nil {
		return fmt.Errorf("backing up catalog: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Path() string {
	return s.path
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// helpers

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*catalog.Entry, error) {
	var e catalog.Entry
	var mtime float64
	var status int
	if err := row.Scan(&e.ID, &e.Path, &e.Name, &mtime, &e.Size, &status, &e.Notes); err != nil {
		return nil, err
	}
	e.ModifiedAt = fromEpoch(mtime)
	e.Status = catalog.Status(status)
	return &e, nil
}

func (s *SQLiteStore) queryEntries(q sq.SelectBuilder) ([]*catalog.Entry, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying entries: %w", err)
	}
	defer rows.Close()

	var entries []*catalog.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entries: %w", err)
	}
	return entries, nil
}

func (s *SQLiteStore) count(q sq.SelectBuilder) (int, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("building query: %w", err)
	}
	var n int
	if err := s.db.QueryRow(query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) update(q sq.UpdateBuilder) error {
	query, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("building update: %w", err)
	}
	if _, err := s.db.Exec(query, args...); err != nil {
		return fmt.Errorf("updating: %w", err)
	}
	return nil
}

// toEpoch converts t to fractional seconds since the Unix epoch.
func toEpoch(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func fromEpoch(f float64) time.Time {
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(math.Round(frac*1e9))).UTC()
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

var _ catalog.Store = (*SQLiteStore)(nil)
