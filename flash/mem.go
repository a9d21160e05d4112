package flash

import (
	"github.com/norfs/go-norftl/common"
)

// MemFlash simulates a NOR chip in memory. Program ANDs the new bits into
// the page, the same way the hardware behaves when a cell is programmed
// twice. A fresh device comes up all zero, as if every page had been
// programmed before, so a new FTL has to erase its way in.
type MemFlash struct {
	mem []byte
}

var _ Flash = (*MemFlash)(nil)

func NewMemFlash(pages uint64) *MemFlash {
	return &MemFlash{mem: make([]byte, pages*common.PageSize)}
}

func (f *MemFlash) Size() uint64 {
	return uint64(len(f.mem))
}

func (f *MemFlash) Read(off uint64, p []byte) error {
	if off+uint64(len(p)) > uint64(len(f.mem)) {
		return ErrOutOfBounds
	}
	copy(p, f.mem[off:])
	return nil
}

func (f *MemFlash) Program(off uint64, p []byte) error {
	checkPageAligned(off)
	if uint64(len(p)) != common.PageSize {
		panic("flash: program length must be one page")
	}
	if off+common.PageSize > uint64(len(f.mem)) {
		return ErrOutOfBounds
	}
	for i, b := range p {
		f.mem[off+uint64(i)] &= b
	}
	return nil
}

func (f *MemFlash) Erase(off uint64) error {
	checkPageAligned(off)
	if off+common.PageSize > uint64(len(f.mem)) {
		return ErrOutOfBounds
	}
	for i := uint64(0); i < common.PageSize; i++ {
		f.mem[off+i] = 0xff
	}
	return nil
}

func (f *MemFlash) IsErased(off uint64) bool {
	checkPageAligned(off)
	if off+common.PageSize > uint64(len(f.mem)) {
		return false
	}
	for i := uint64(0); i < common.PageSize; i++ {
		if f.mem[off+i] != 0xff {
			return false
		}
	}
	return true
}
