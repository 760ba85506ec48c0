package database

import "fmt"

// OpenError reports that the catalog file could not be opened or created.
// It is fatal: there is no program without a catalog.
type OpenError struct {
	Path string
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("opening catalog %s: %v", e.Path, e.Err)
}

func (e *OpenError) Unwrap() error { return e.Err }

// SchemaError reports that the catalog schema could not be created or
// upgraded, for example because the file is corrupt or read-only.
type SchemaError struct {
	Path string
	Err  error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("preparing catalog schema %s: %v", e.Path, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }
