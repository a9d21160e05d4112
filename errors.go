package norftl

import "errors"

var (
	// ErrFlashSize rejects an unsupported device size at init.
	ErrFlashSize = errors.New("norftl: unsupported flash size")

	// ErrOutOfRange rejects a sector number at or past UsableSectors.
	ErrOutOfRange = errors.New("norftl: sector out of range")

	// ErrNoSpace means the allocator wrapped a full revolution without
	// finding a non-used page. The reserved pages make this unreachable
	// under correct operation.
	ErrNoSpace = errors.New("norftl: no allocatable physical page")

	// ErrBusyBuffers means no buffer slot came free even after a sync.
	ErrBusyBuffers = errors.New("norftl: no free page buffer after sync")
)
