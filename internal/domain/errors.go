package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrMalformedRecord marks a reading whose date could not be parsed.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrMissingAnchorDate marks a series with no record on Oct 1 of the active
	// water year.
	ErrMissingAnchorDate = errors.New("missing anchor date")

	// ErrMisalignedTable marks a climatology that cannot be placed one bucket
	// per row.
	ErrMisalignedTable = errors.New("misaligned water-year table")
)

// MalformedRecordError describes a skipped reading.
type MalformedRecordError struct {
	Index    int
	DateTime string
	Err      error
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed record at index %d (datetime %q): %v", e.Index, e.DateTime, e.Err)
}

func (e *MalformedRecordError) Unwrap() error { return e.Err }

func (e *MalformedRecordError) Is(target error) bool { return target == ErrMalformedRecord }

// MissingAnchorDateError reports the anchor date that was looked for.
type MissingAnchorDateError struct {
	WaterYear int
	Anchor    time.Time
}

func (e *MissingAnchorDateError) Error() string {
	return fmt.Sprintf("no record on %s, the start of water year %d", e.Anchor.Format(time.DateOnly), e.WaterYear)
}

func (e *MissingAnchorDateError) Is(target error) bool { return target == ErrMissingAnchorDate }
