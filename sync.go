package norftl

import (
	"github.com/mit-pdos/go-journal/util"

	"github.com/norfs/go-norftl/buffer"
	"github.com/norfs/go-norftl/tt"
)

// Sync flushes every locked buffer in dependency order: data pages, then
// secondary tables, then the master table. A power cut between any two
// steps leaves the previous master table valid on flash, so mount
// presents the pre-sync snapshot. Writing the master table any earlier
// could persist a pointer to a payload that is not on flash yet.
func (f *FTL) Sync() error {
	util.DPrintf(2, "sync: begin\n")

	// Data pages first; record each page's (possibly relocated)
	// location in its owning table.
	for _, b := range f.cache.Bufs() {
		if !b.Lock || b.LogicalPageNo < f.ttPageCount {
			continue
		}
		if err := f.programBuf(b); err != nil {
			return err
		}
		info, err := f.readPageInfo(b.LogicalPageNo)
		if err != nil {
			return err
		}
		info.PhysicalPageNo = b.PhysicalPageNo
		if err := f.updatePageInfo(b.LogicalPageNo, info); err != nil {
			return err
		}
		b.Lock = false
		b.Mode = buffer.None
	}

	// Secondary tables next. Load the master table up front so it stays
	// resident while its records are patched.
	mtt, err := f.cache.Load(0, f.mttPpno)
	if err != nil {
		return err
	}
	for _, b := range f.cache.Bufs() {
		if !b.Lock || b.LogicalPageNo <= 0 || b.LogicalPageNo >= f.ttPageCount {
			continue
		}
		if err := f.programBuf(b); err != nil {
			return err
		}
		tt.PutRecordPpno(mtt.Data, uint64(b.LogicalPageNo), b.PhysicalPageNo)
		b.Lock = false
		b.Mode = buffer.None
	}

	// Master table last.
	if mtt.Lock {
		if err := f.programBuf(mtt); err != nil {
			return err
		}
		mtt.Lock = false
		mtt.Mode = buffer.None
	}

	util.DPrintf(2, "sync: done, master table at page %d\n", f.mttPpno)
	return nil
}
