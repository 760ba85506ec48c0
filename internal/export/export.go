// Package export writes annotated catalog entries to a file or stream.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"filechk/internal/catalog"
	"filechk/internal/view"
)

// ErrNothingToExport is returned when no entry carries notes. Nothing is
// rendered or written in that case.
var ErrNothingToExport = errors.New("nothing to export")

// Source supplies the annotated entries. *catalog.CatalogService
// satisfies it.
type Source interface {
	CountAnnotated() (int, error)
	Annotated() ([]*catalog.Entry, error)
}

// Exporter renders annotated entries, optionally encrypting the output.
type Exporter struct {
	source    Source
	renderer  Renderer
	encryptor catalog.Encryptor
	logger    catalog.Logger
}

// NewExporter creates an Exporter. encryptor may be nil for plaintext output.
func NewExporter(source Source, renderer Renderer, encryptor catalog.Encryptor, logger catalog.Logger) *Exporter {
	return &Exporter{
		source:    source,
		renderer:  renderer,
		encryptor: encryptor,
		logger:    logger,
	}
}

// Export renders to w and returns the number of exported entries.
func (x *Exporter) Export(w io.Writer) (int, error) {
	rows, err := x.rows()
	if err != nil {
		return 0, err
	}
	if err := x.write(w, rows); err != nil {
		return 0, err
	}
	x.logger.Info("export written", "entries", len(rows), "encrypted", x.encryptor != nil)
	return len(rows), nil
}

// ExportToFile renders to dest via a temp file in the same directory, so
// dest is either fully written or left as it was.
func (x *Exporter) ExportToFile(dest string) (int, error) {
	rows, err := x.rows()
	if err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".filechk-export-*")
	if err != nil {
		return 0, fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := x.write(tmp, rows); err != nil {
		tmp.Close()
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return 0, fmt.Errorf("renaming export: %w", err)
	}

	x.logger.Info("export written", "path", dest, "entries", len(rows), "encrypted", x.encryptor != nil)
	return len(rows), nil
}

// rows applies the annotated-count gate before anything is rendered.
func (x *Exporter) rows() ([]view.Row, error) {
	n, err := x.source.CountAnnotated()
	if err != nil {
		return nil, fmt.Errorf("counting annotated entries: %w", err)
	}
	if n == 0 {
		return nil, ErrNothingToExport
	}

	entries, err := x.source.Annotated()
	if err != nil {
		return nil, fmt.Errorf("loading annotated entries: %w", err)
	}
	return view.Project(entries), nil
}

func (x *Exporter) write(w io.Writer, rows []view.Row) error {
	if x.encryptor == nil {
		if err := x.renderer.Render(w, rows); err != nil {
			return fmt.Errorf("rendering export: %w", err)
		}
		return nil
	}

	var plain bytes.Buffer
	if err := x.renderer.Render(&plain, rows); err != nil {
		return fmt.Errorf("rendering export: %w", err)
	}
	if err := x.encryptor.Encrypt(&plain, w); err != nil {
		return fmt.Errorf("encrypting export: %w", err)
	}
	return nil
}
