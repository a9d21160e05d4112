package norftl

import (
	"github.com/norfs/go-norftl/buffer"
	"github.com/norfs/go-norftl/common"
	"github.com/norfs/go-norftl/tt"
)

// Translation-table access. Logical pages below TTRecordsPerPage have
// their record directly in the master table; the rest go through the
// owning secondary table, itself located via the master table.

func (f *FTL) readPhysicalPageInfo(lpno common.Pgno, ppno common.Pgno, recordNo uint64) (tt.PageInfo, error) {
	b, err := f.cache.Load(lpno, ppno)
	if err != nil {
		return tt.PageInfo{}, err
	}
	return tt.GetRecord(b.Data, recordNo), nil
}

func (f *FTL) readPageInfo(lpno common.Pgno) (tt.PageInfo, error) {
	if uint64(lpno) < common.TTRecordsPerPage {
		return f.readPhysicalPageInfo(0, f.mttPpno, uint64(lpno))
	}
	sttLpno := lpno / common.Pgno(common.TTRecordsPerPage)
	sttInfo, err := f.readPhysicalPageInfo(0, f.mttPpno, uint64(sttLpno))
	if err != nil {
		return tt.PageInfo{}, err
	}
	return f.readPhysicalPageInfo(sttLpno, sttInfo.PhysicalPageNo,
		uint64(lpno)%common.TTRecordsPerPage)
}

func (f *FTL) updatePhysicalPageInfo(info tt.PageInfo, lpno common.Pgno, ppno common.Pgno, recordNo uint64) error {
	b, err := f.cache.Load(lpno, ppno)
	if err != nil {
		return err
	}
	// Lock for the delayed program. Record updates never force a
	// relocation by themselves; the writer decides that when a bit has
	// to come back up.
	b.Lock = true
	if b.Mode == buffer.None {
		b.Mode = buffer.Program
	}
	tt.PutRecord(b.Data, recordNo, info)
	return nil
}

func (f *FTL) updatePageInfo(lpno common.Pgno, info tt.PageInfo) error {
	if uint64(lpno) < common.TTRecordsPerPage {
		return f.updatePhysicalPageInfo(info, 0, f.mttPpno, uint64(lpno))
	}
	sttLpno := lpno / common.Pgno(common.TTRecordsPerPage)
	sttInfo, err := f.readPhysicalPageInfo(0, f.mttPpno, uint64(sttLpno))
	if err != nil {
		return err
	}
	return f.updatePhysicalPageInfo(info, sttLpno, sttInfo.PhysicalPageNo,
		uint64(lpno)%common.TTRecordsPerPage)
}
