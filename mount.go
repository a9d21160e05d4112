package norftl

import (
	"github.com/mit-pdos/go-journal/util"

	"github.com/norfs/go-norftl/common"
	"github.com/norfs/go-norftl/pagestate"
	"github.com/norfs/go-norftl/tt"
)

// load scans the medium for master table candidates and mounts the one
// with the highest serial. Duplicate serials cannot be produced by the
// writer; if corruption ever yields one, either copy is a consistent
// snapshot and the loser is erased on the next relocation. Returns false
// if no valid master table exists.
func (f *FTL) load() (bool, error) {
	var bestSerial uint32
	bestPpno := common.NoPage
	hdr := make([]byte, tt.HeaderSize)
	for i := common.Pgno(0); i < f.physicalPageCount; i++ {
		if err := f.dev.Read(f.pageOff(i), hdr); err != nil {
			return false, err
		}
		h := tt.DecodeHeader(hdr)
		if h.LogicalPageNo == 0 && h.Valid() && h.Serial > bestSerial {
			bestSerial = h.Serial
			bestPpno = i
		}
	}
	if bestPpno < 0 {
		return false, nil
	}
	util.DPrintf(1, "mount: master table at page %d, serial %d\n",
		bestPpno, bestSerial)

	f.mttPpno = bestPpno
	f.state.Set(bestPpno, pagestate.Used)
	f.writeFrontier = bestPpno + 1
	if f.writeFrontier >= f.physicalPageCount {
		f.writeFrontier = 0
	}

	// Rebuild the used-page set from the tables.
	mtt, err := f.cache.Load(0, bestPpno)
	if err != nil {
		return false, err
	}
	for i := uint64(1); i < common.TTRecordsPerPage; i++ {
		info := tt.GetRecord(mtt.Data, i)
		if info.PhysicalPageNo >= 0 {
			f.state.Set(info.PhysicalPageNo, pagestate.Used)
		}
		if i < uint64(f.ttPageCount) {
			if info.PhysicalPageNo < 0 {
				panic("norftl: master table lost a table page")
			}
			stt, err := f.cache.Load(common.Pgno(i), info.PhysicalPageNo)
			if err != nil {
				return false, err
			}
			for j := uint64(0); j < common.TTRecordsPerPage; j++ {
				rec := tt.GetRecord(stt.Data, j)
				if rec.PhysicalPageNo >= 0 {
					f.state.Set(rec.PhysicalPageNo, pagestate.Used)
				}
			}
		}
	}

	// Walk forward so the allocator starts with resolved pages.
	f.resolveUnknown(f.cache.Size())
	return true, nil
}

// create formats an empty medium: empty secondary tables at physical
// pages 1..ttPageCount-1, then the master table at page 0 referencing
// them (and itself, record 0).
func (f *FTL) create() error {
	util.DPrintf(1, "format: %d pages, %d table pages\n",
		f.physicalPageCount, f.ttPageCount)
	f.writeFrontier = 0
	f.resolveUnknown(f.cache.Size())

	mttPage := make([]byte, common.PageSize)
	tt.InitPage(mttPage, 0)
	tt.PutRecord(mttPage, 0, tt.PageInfo{PhysicalPageNo: 0, SectStatus: 0})

	sttPage := make([]byte, common.PageSize)
	for i := common.Pgno(1); i < f.ttPageCount; i++ {
		tt.InitPage(sttPage, uint32(i))
		addr := f.pageOff(i)
		if f.state.Get(i) != pagestate.Erased {
			if err := f.dev.Erase(addr); err != nil {
				return err
			}
		}
		if err := f.dev.Program(addr, sttPage); err != nil {
			return err
		}
		f.state.Set(i, pagestate.Used)
		tt.PutRecord(mttPage, uint64(i), tt.PageInfo{PhysicalPageNo: i, SectStatus: 0})
	}

	if f.state.Get(0) != pagestate.Erased {
		if err := f.dev.Erase(0); err != nil {
			return err
		}
	}
	if err := f.dev.Program(0, mttPage); err != nil {
		return err
	}
	f.state.Set(0, pagestate.Used)
	f.mttPpno = 0
	f.writeFrontier = f.ttPageCount
	return nil
}
