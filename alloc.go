package norftl

import (
	"github.com/mit-pdos/go-journal/util"

	"github.com/norfs/go-norftl/common"
	"github.com/norfs/go-norftl/pagestate"
)

// allocate hands out the next physical page whose state is not USED,
// advancing the wrapping write frontier. State is not changed here; the
// caller marks the page once its program succeeds.
func (f *FTL) allocate() (common.Pgno, error) {
	lookups := common.Pgno(0)
	for f.state.Get(f.writeFrontier) == pagestate.Used {
		f.writeFrontier++
		if f.writeFrontier >= f.physicalPageCount {
			f.writeFrontier = 0
		}
		lookups++
		if lookups > f.physicalPageCount {
			util.DPrintf(0, "allocate: frontier %d wrapped with every page used\n",
				f.writeFrontier)
			return common.NoPage, ErrNoSpace
		}
	}

	ppno := f.writeFrontier
	f.writeFrontier++
	if f.writeFrontier >= f.physicalPageCount {
		f.writeFrontier = 0
	}
	return ppno, nil
}

// resolveUnknown classifies up to count pages still in UNKNOWN state,
// starting at the write frontier, by probing the erased-check. Keeps
// resolution ahead of the allocator without paying for a full-device
// probe at mount.
func (f *FTL) resolveUnknown(count uint32) {
	if f.state.Resolved() || count == 0 {
		return
	}
	idx := f.writeFrontier
	early := false
	for i := common.Pgno(0); i < f.physicalPageCount; i++ {
		if f.state.Get(idx) == pagestate.Unknown {
			st := pagestate.EraseRequired
			if f.dev.IsErased(f.pageOff(idx)) {
				st = pagestate.Erased
			}
			f.state.Set(idx, st)
			count--
			if count == 0 {
				early = true
				break
			}
		}
		idx++
		if idx >= f.physicalPageCount {
			idx = 0
		}
	}
	if !early {
		f.state.SetResolved()
	}
}
