package contest

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCategory is matched by every *InvalidCategoryError.
	ErrInvalidCategory = errors.New("invalid category")

	// ErrInvalidEntry is matched by every *InvalidEntryError.
	ErrInvalidEntry = errors.New("invalid entry")

	errNilManifest = errors.New("manifest not specified")
	errNilIndex    = errors.New("category index not specified")
)

// InvalidCategoryError reports a category that cannot be indexed.
type InvalidCategoryError struct {
	Index  int
	Reason string
}

func (e *InvalidCategoryError) Error() string {
	return fmt.Sprintf("category %d: %v: %s", e.Index, ErrInvalidCategory, e.Reason)
}

func (e *InvalidCategoryError) Unwrap() error {
	return ErrInvalidCategory
}

// InvalidEntryError reports an entry that cannot be attributed or resolved.
// Round and Entry are zero-based positions in the manifest.
type InvalidEntryError struct {
	Round  int
	Entry  int
	Reason string
}

func (e *InvalidEntryError) Error() string {
	return fmt.Sprintf("round %d, entry %d: %v: %s", e.Round, e.Entry, ErrInvalidEntry, e.Reason)
}

func (e *InvalidEntryError) Unwrap() error {
	return ErrInvalidEntry
}
