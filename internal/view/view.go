// Package view turns catalog entries into display-ready rows.
package view

import (
	"math"
	"strconv"
	"strings"
	"time"

	"filechk/internal/catalog"
)

// TimeLayout is the display format for modification times (always UTC).
const TimeLayout = "2006-01-02 15:04:05"

// Row is one display-ready catalog entry.
type Row struct {
	ID          int64
	Path        string
	Name        string
	Modified    string
	Size        string
	Status      catalog.Status
	StatusLabel string
	Glyph       string
	Notes       string
}

// Project maps entries to rows, preserving order. Sorting belongs to the
// store; Project never reorders.
func Project(entries []*catalog.Entry) []Row {
	rows := make([]Row, len(entries))
	for i, e := range entries {
		rows[i] = ProjectEntry(e)
	}
	return rows
}

// ProjectEntry maps one entry to a row.
func ProjectEntry(e *catalog.Entry) Row {
	return Row{
		ID:          e.ID,
		Path:        e.Path,
		Name:        e.Name,
		Modified:    FormatTime(e.ModifiedAt),
		Size:        FormatSize(e.Size),
		Status:      e.Status,
		StatusLabel: e.Status.String(),
		Glyph:       e.Status.Glyph(),
		Notes:       e.Notes,
	}
}

// FormatTime renders t in UTC as "YYYY-MM-DD HH:MM:SS".
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

var sizeUnits = []struct {
	threshold int64
	suffix    string
}{
	{1 << 30, "GB"},
	{1 << 20, "MB"},
	{1 << 10, "KB"},
}

// FormatSize renders a byte count in the largest unit whose threshold it
// meets, rounded to two decimals with trailing zeros dropped:
// 512 -> "512 bytes", 1536 -> "1.5KB", 5242880 -> "5MB", 1048575 -> "1MB".
func FormatSize(size int64) string {
	for i, u := range sizeUnits {
		if size < u.threshold {
			continue
		}
		v := float64(size) / float64(u.threshold)
		// A value that rounds up to 1024 moves to the next unit.
		if i > 0 && math.Round(v*100) >= 1024*100 {
			u = sizeUnits[i-1]
			v = float64(size) / float64(u.threshold)
		}
		return trimFloat(v) + u.suffix
	}
	return strconv.FormatInt(size, 10) + " bytes"
}

// trimFloat formats f with at most two decimals and no trailing zeros.
func trimFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', 2, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

// NextSort returns the sort state after the user selects a column:
// selecting the current column flips the direction, any other column
// sorts ascending.
func NextSort(current catalog.SortKey, descending bool, selected catalog.SortKey) (catalog.SortKey, bool) {
	if selected == current && current != catalog.SortNone {
		return current, !descending
	}
	return selected, false
}
