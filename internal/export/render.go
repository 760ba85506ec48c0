package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"filechk/internal/view"
)

// Format names an export renderer.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// Formats lists the supported export formats.
var Formats = []Format{FormatCSV, FormatJSON, FormatMarkdown}

// Renderer writes rows in one output format.
type Renderer interface {
	Render(w io.Writer, rows []view.Row) error

	// Extension is the file extension for this format, without the dot.
	Extension() string
}

// RendererFor returns the renderer for format. "md" is accepted for
// markdown.
func RendererFor(format string) (Renderer, error) {
	switch Format(strings.ToLower(format)) {
	case FormatCSV, "":
		return csvRenderer{}, nil
	case FormatJSON:
		return jsonRenderer{}, nil
	case FormatMarkdown, "md":
		return markdownRenderer{}, nil
	default:
		return nil, fmt.Errorf("unknown export format: %q", format)
	}
}

var columns = []string{"id", "path", "name", "modified", "size", "status", "notes"}

type csvRenderer struct{}

func (csvRenderer) Extension() string { return "csv" }

func (csvRenderer) Render(w io.Writer, rows []view.Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, r := range rows {
		record := []string{
			strconv.FormatInt(r.ID, 10),
			r.Path,
			r.Name,
			r.Modified,
			r.Size,
			r.StatusLabel,
			r.Notes,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing row %d: %w", r.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

type jsonRow struct {
	ID       int64  `json:"id"`
	Path     string `json:"path"`
	Name     string `json:"name"`
	Modified string `json:"modified"`
	Size     string `json:"size"`
	Status   string `json:"status"`
	Notes    string `json:"notes"`
}

type jsonRenderer struct{}

func (jsonRenderer) Extension() string { return "json" }

func (jsonRenderer) Render(w io.Writer, rows []view.Row) error {
	out := make([]jsonRow, len(rows))
	for i, r := range rows {
		out[i] = jsonRow{
			ID:       r.ID,
			Path:     r.Path,
			Name:     r.Name,
			Modified: r.Modified,
			Size:     r.Size,
			Status:   r.StatusLabel,
			Notes:    r.Notes,
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

type markdownRenderer struct{}

func (markdownRenderer) Extension() string { return "md" }

func (markdownRenderer) Render(w io.Writer, rows []view.Row) error {
	if _, err := fmt.Fprintln(w, "| | Path | Modified | Size | Notes |"); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, "|---|------|----------|------|-------|"); err != nil {
		return err
	}
	for _, r := range rows {
		_, err := fmt.Fprintf(w, "| %s | %s | %s | %s | %s |\n",
			r.Glyph,
			escapeCell(r.Path),
			r.Modified,
			r.Size,
			escapeCell(r.Notes),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// escapeCell keeps a value inside one markdown table cell.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	s = strings.ReplaceAll(s, "\r\n", "<br>")
	return strings.ReplaceAll(s, "\n", "<br>")
}
