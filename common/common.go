// Package common holds the flash geometry shared by all packages.
package common

import (
	"github.com/tchajed/goose/machine/disk"
)

const (
	// SectorSize is the read/write unit exposed to the filesystem.
	SectorSize uint64 = 512
	// PageSize is the program/erase unit of the medium. It matches the
	// goose disk block size so a disk.Disk can back a flash device
	// page-for-block.
	PageSize uint64 = disk.BlockSize

	SectorsPerPage uint64 = PageSize / SectorSize

	// TTRecordsPerPage is the number of PageInfo records in one
	// translation-table page.
	TTRecordsPerPage uint64 = 1024

	// BufferSizeMultiplier sizes the page buffer cache relative to the
	// number of translation-table pages. Minimum workable value is 2.
	BufferSizeMultiplier uint32 = 4

	// ReservedPagesMultiplier holds back spare physical pages per
	// translation-table page so relocations still find room when the
	// volume is near full. Must be at least twice BufferSizeMultiplier.
	ReservedPagesMultiplier uint32 = 16
)

// Pgno numbers a page, logical or physical. NoPage marks an absent
// mapping. The on-flash record stores physical numbers as int16, so the
// largest supported device (128 MiB, 32768 pages) fits exactly.
type Pgno = int32

const NoPage Pgno = -1

// SupportedFlashSizes lists the device sizes (in MiB) the layer accepts.
var SupportedFlashSizes = []uint32{4, 8, 16, 32, 64, 128}

func SizeSupported(flashSizeInMB uint32) bool {
	for _, sz := range SupportedFlashSizes {
		if sz == flashSizeInMB {
			return true
		}
	}
	return false
}
