package flash

import (
	"github.com/tchajed/goose/machine/disk"

	"github.com/norfs/go-norftl/common"
)

// DiskFlash presents a goose disk.Disk as NOR flash, one block per page.
// The NOR programming rule is preserved by reading the old block and
// ANDing the new contents in, so a buggy caller cannot raise bits without
// an erase even on a disk that would happily allow it.
type DiskFlash struct {
	d disk.Disk
}

var _ Flash = (*DiskFlash)(nil)

func NewDiskFlash(d disk.Disk) *DiskFlash {
	return &DiskFlash{d: d}
}

func (f *DiskFlash) Read(off uint64, p []byte) error {
	a := off / common.PageSize
	if a >= f.d.Size() {
		return ErrOutOfBounds
	}
	blk := f.d.Read(a)
	copy(p, blk[off%common.PageSize:])
	return nil
}

func (f *DiskFlash) Program(off uint64, p []byte) error {
	checkPageAligned(off)
	a := off / common.PageSize
	if a >= f.d.Size() {
		return ErrOutOfBounds
	}
	blk := f.d.Read(a)
	for i, b := range p {
		blk[i] &= b
	}
	f.d.Write(a, blk)
	f.d.Barrier()
	return nil
}

func (f *DiskFlash) Erase(off uint64) error {
	checkPageAligned(off)
	a := off / common.PageSize
	if a >= f.d.Size() {
		return ErrOutOfBounds
	}
	blk := make(disk.Block, common.PageSize)
	for i := range blk {
		blk[i] = 0xff
	}
	f.d.Write(a, blk)
	f.d.Barrier()
	return nil
}

func (f *DiskFlash) IsErased(off uint64) bool {
	checkPageAligned(off)
	a := off / common.PageSize
	if a >= f.d.Size() {
		return false
	}
	blk := f.d.Read(a)
	for _, b := range blk {
		if b != 0xff {
			return false
		}
	}
	return true
}

func (f *DiskFlash) Close() {
	f.d.Close()
}
