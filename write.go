package norftl

import (
	"github.com/norfs/go-norftl/buffer"
	"github.com/norfs/go-norftl/common"
)

// syncReserve is the worst-case buffer demand of a single sector write:
// the data page, its secondary table, and the master table may all need
// to relocate.
const syncReserve = 3

// WriteSector buffers noOfSectors sectors starting at startSectorNo. No
// flash is touched except when the buffer cache runs out of unlocked
// slots, which forces a sync. Data becomes durable at the next Sync.
func (f *FTL) WriteSector(startSectorNo uint32, noOfSectors uint32, buf []byte) error {
	f.resolveUnknown(uint32(f.ttPageCount))
	if uint64(startSectorNo)+uint64(noOfSectors) > uint64(f.usableSectors) {
		return ErrOutOfRange
	}
	if uint64(len(buf)) < uint64(noOfSectors)*common.SectorSize {
		panic("norftl: write buffer shorter than sector count")
	}

	sectorNo := startSectorNo
	for n := noOfSectors; n > 0; n-- {
		if !f.cache.HasFree(syncReserve) {
			if err := f.Sync(); err != nil {
				return err
			}
		}
		if err := f.writeOne(sectorNo, buf[:common.SectorSize]); err != nil {
			return err
		}
		sectorNo++
		buf = buf[common.SectorSize:]
	}
	return nil
}

func (f *FTL) writeOne(sectorNo uint32, sector []byte) error {
	lpno := common.Pgno(uint64(sectorNo)/common.SectorsPerPage) + f.ttPageCount
	pageSector := uint64(sectorNo) % common.SectorsPerPage

	info, err := f.readPageInfo(lpno)
	if err != nil {
		return err
	}

	var db *buffer.Buf
	if info.PhysicalPageNo < 0 {
		// Virgin logical page: claim a physical page and a buffer for
		// its first contents.
		ppno, err := f.allocate()
		if err != nil {
			return err
		}
		db = f.cache.Init(lpno, ppno)
		if db == nil {
			return ErrBusyBuffers
		}
		info.PhysicalPageNo = ppno
		info.SectStatus = 0xff
		if err := f.updatePageInfo(lpno, info); err != nil {
			return err
		}
	} else {
		db, err = f.cache.Load(lpno, info.PhysicalPageNo)
		if err != nil {
			return err
		}
	}

	mask := uint8(1) << pageSector
	if info.SectStatus&mask != 0 {
		// First write of this sector since the page's erase: the bits
		// are still up, append in place.
		info.SectStatus &^= mask
		if err := f.updatePageInfo(lpno, info); err != nil {
			return err
		}
		db.Lock = true
		if db.Mode == buffer.None {
			db.Mode = buffer.Program
		}
		copy(db.Data[pageSector*common.SectorSize:], sector)
	} else {
		// Rewrite: the occupancy bit would have to come back up, so the
		// page moves. The owning tables move with it.
		db.Lock = true
		db.Mode = buffer.RelocateEraseProgram
		copy(db.Data[pageSector*common.SectorSize:], sector)
		if err := f.dirtyOwningTables(lpno); err != nil {
			return err
		}
	}
	return nil
}

// dirtyOwningTables locks the table page owning lpno's record for
// relocation, and the master table too when that table is secondary.
func (f *FTL) dirtyOwningTables(lpno common.Pgno) error {
	ttLpno := lpno / common.Pgno(common.TTRecordsPerPage)
	ttInfo, err := f.readPageInfo(ttLpno)
	if err != nil {
		return err
	}
	ttBuf, err := f.cache.Load(ttLpno, ttInfo.PhysicalPageNo)
	if err != nil {
		return err
	}
	ttBuf.Lock = true
	ttBuf.Mode = buffer.RelocateEraseProgram

	if ttLpno > 0 {
		mtt, err := f.cache.Load(0, f.mttPpno)
		if err != nil {
			return err
		}
		mtt.Lock = true
		mtt.Mode = buffer.RelocateEraseProgram
	}
	return nil
}
