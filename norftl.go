// Package norftl is a flash translation layer for raw NOR flash. It
// presents fixed-size logical sectors to a filesystem and hides the NOR
// programming rules: out-of-place writes with per-page serial numbers
// and CRCs keep a consistent prior state recoverable after power loss at
// any instant.
//
// The logical-to-physical map is a two-level translation table stored in
// the flash it maps. A master table page (logical page 0) locates the
// secondary table pages; secondary tables locate data pages. All public
// operations assume a single logical writer.
package norftl

import (
	"github.com/mit-pdos/go-journal/util"

	"github.com/norfs/go-norftl/buffer"
	"github.com/norfs/go-norftl/common"
	"github.com/norfs/go-norftl/flash"
	"github.com/norfs/go-norftl/pagestate"
	"github.com/norfs/go-norftl/tt"
)

// FTL is the translation layer over one flash device. All mutable state
// lives here; independent devices get independent handles.
type FTL struct {
	dev flash.Flash

	mttPpno           common.Pgno
	physicalPageCount common.Pgno
	ttPageCount       common.Pgno
	usableSectors     uint32
	writeFrontier     common.Pgno

	state      *pagestate.Map
	cache      *buffer.Cache
	memoryUsed uint64
}

// New builds a translation layer over dev, mounting the existing medium
// if a valid master table is found and formatting it otherwise.
// flashSizeInMB must be one of common.SupportedFlashSizes.
func New(dev flash.Flash, flashSizeInMB uint32) (*FTL, error) {
	if !common.SizeSupported(flashSizeInMB) {
		return nil, ErrFlashSize
	}

	n := common.Pgno(uint64(flashSizeInMB) * 1024 * 1024 / common.PageSize)
	ttPages := n / common.Pgno(common.TTRecordsPerPage)
	f := &FTL{
		dev:               dev,
		mttPpno:           0,
		physicalPageCount: n,
		ttPageCount:       ttPages,
		usableSectors: uint32((uint64(n) -
			uint64(ttPages)*uint64(common.ReservedPagesMultiplier)) *
			common.SectorsPerPage),
		state: pagestate.New(n),
	}
	f.cache = buffer.MkCache(dev, uint32(ttPages)*common.BufferSizeMultiplier)
	f.memoryUsed = f.state.MemSize() + f.cache.MemSize()

	found, err := f.load()
	if err != nil {
		return nil, err
	}
	if !found {
		if err := f.create(); err != nil {
			return nil, err
		}
	}
	util.DPrintf(1, "norftl: %d pages, %d table pages, %d usable sectors\n",
		f.physicalPageCount, f.ttPageCount, f.usableSectors)
	return f, nil
}

// Close releases the layer's RAM. The flash is left untouched; call
// Sync first for durability.
func (f *FTL) Close() {
	f.cache = nil
	f.state = nil
}

func (f *FTL) pageOff(ppno common.Pgno) uint64 {
	return uint64(ppno) * common.PageSize
}

// UsableSectors is the sector capacity exposed upward. It is below the
// raw capacity by the reserve that keeps relocations possible when the
// volume is near full.
func (f *FTL) UsableSectors() uint32 {
	return f.usableSectors
}

func (f *FTL) PhysicalPages() common.Pgno {
	return f.physicalPageCount
}

func (f *FTL) TTPages() common.Pgno {
	return f.ttPageCount
}

// MTTPage is the current physical location of the master table.
func (f *FTL) MTTPage() common.Pgno {
	return f.mttPpno
}

// MTTSerial is the master table's current generation counter.
func (f *FTL) MTTSerial() (uint32, error) {
	b, err := f.cache.Load(0, f.mttPpno)
	if err != nil {
		return 0, err
	}
	return tt.GetHeader(b.Data).Serial, nil
}

// MemoryUsed reports the RAM held by the handle's volatile structures.
func (f *FTL) MemoryUsed() uint64 {
	return f.memoryUsed
}
