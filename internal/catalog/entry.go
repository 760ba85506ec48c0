package catalog

import (
	"errors"
	"fmt"
	"time"
)

// Status is the checked/unchecked state of a catalog entry.
type Status uint8

const (
	StatusUnchecked Status = 0
	StatusChecked   Status = 1
)

// Toggle returns the opposite state.
func (s Status) Toggle() Status {
	if s == StatusChecked {
		return StatusUnchecked
	}
	return StatusChecked
}

func (s Status) String() string {
	if s == StatusChecked {
		return "checked"
	}
	return "unchecked"
}

// Glyph returns the ballot-box glyph used when rendering the status column.
func (s Status) Glyph() string {
	if s == StatusChecked {
		return "☒"
	}
	return "☐"
}

// Entry is one indexed file. The (Path, ModifiedAt, Size) triple is unique
// across the catalog; ID is assigned by the store and never changes.
type Entry struct {
	ID         int64
	Path       string
	Name       string
	ModifiedAt time.Time
	Size       int64
	Status     Status
	Notes      string
}

// NewEntry is the insert payload produced by a scan.
type NewEntry struct {
	Path       string
	Name       string
	ModifiedAt time.Time
	Size       int64
}

// SortKey selects the column QueryAll orders by. The zero value keeps
// storage (insertion) order.
type SortKey string

const (
	SortNone     SortKey = ""
	SortPath     SortKey = "path"
	SortName     SortKey = "name"
	SortModified SortKey = "modified"
	SortSize     SortKey = "size"
	SortStatus   SortKey = "status"
	SortNotes    SortKey = "notes"
)

// ErrUnknownSortKey is returned for sort keys outside the sortable columns.
var ErrUnknownSortKey = errors.New("unknown sort key")

// SortKeys lists the sortable columns in display order.
var SortKeys = []SortKey{SortPath, SortName, SortModified, SortSize, SortStatus, SortNotes}

// ParseSortKey converts user input into a SortKey.
func ParseSortKey(s string) (SortKey, error) {
	switch s {
	case "":
		return SortNone, nil
	case "path":
		return SortPath, nil
	case "name":
		return SortName, nil
	case "modified", "mtime", "modifiedTime":
		return SortModified, nil
	case "size":
		return SortSize, nil
	case "status":
		return SortStatus, nil
	case "notes":
		return SortNotes, nil
	default:
		return SortNone, fmt.Errorf("%w: %q", ErrUnknownSortKey, s)
	}
}
