package migrations

import (
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func TestMigrateUp_FreshDatabase(t *testing.T) {
	db := openTestDB(t)

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() error = %v", err)
	}

	for _, table := range []string{"entries", "scan_runs", "schema_migrations"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s was not created: %v", table, err)
		}
	}
}

func TestMigrateUp_Idempotent(t *testing.T) {
	db := openTestDB(t)

	if err := MigrateUp(db); err != nil {
		t.Fatalf("first MigrateUp() error = %v", err)
	}
	if err := MigrateUp(db); err != nil {
		t.Errorf("second MigrateUp() error = %v", err)
	}
	if err := CheckDBMigrationStatus(db); err != nil {
		t.Errorf("CheckDBMigrationStatus() error = %v", err)
	}
}

func TestCheckDBMigrationStatus_FreshDatabase(t *testing.T) {
	db := openTestDB(t)

	if err := CheckDBMigrationStatus(db); !errors.Is(err, ErrNoVersion) {
		t.Errorf("CheckDBMigrationStatus() error = %v, want ErrNoVersion", err)
	}
}

func TestLatestVersion(t *testing.T) {
	v, err := LatestVersion()
	if err != nil {
		t.Fatalf("LatestVersion() error = %v", err)
	}
	if v != 2 {
		t.Errorf("LatestVersion() = %d, want 2", v)
	}
}

func TestSchema_EntryTripleUnique(t *testing.T) {
	db := openTestDB(t)
	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() error = %v", err)
	}

	insert := "INSERT INTO entries (path, name, modified_time, size) VALUES (?, ?, ?, ?)"
	if _, err := db.Exec(insert, "/r/a.mp3", "a.mp3", 1700000000.5, 10); err != nil {
		t.Fatalf("first insert error = %v", err)
	}
	if _, err := db.Exec(insert, "/r/a.mp3", "a.mp3", 1700000000.5, 10); err == nil {
		t.Error("duplicate triple was accepted")
	}
	if _, err := db.Exec(insert, "/r/a.mp3", "a.mp3", 1700000000.5, 11); err != nil {
		t.Errorf("insert with different size error = %v", err)
	}
}

func TestSchema_EntryDefaults(t *testing.T) {
	db := openTestDB(t)
	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() error = %v", err)
	}

	if _, err := db.Exec("INSERT INTO entries (path, name, modified_time, size) VALUES ('/r/a', 'a', 1, 1)"); err != nil {
		t.Fatalf("insert error = %v", err)
	}

	var status int
	var notes string
	if err := db.QueryRow("SELECT status, notes FROM entries").Scan(&status, &notes); err != nil {
		t.Fatalf("select error = %v", err)
	}
	if status != 0 || notes != "" {
		t.Errorf("defaults = (%d, %q), want (0, \"\")", status, notes)
	}

	if _, err := db.Exec("UPDATE entries SET status = 2"); err == nil {
		t.Error("status outside 0/1 was accepted")
	}
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}
