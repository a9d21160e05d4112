package norftl

import (
	"github.com/norfs/go-norftl/common"
	"github.com/norfs/go-norftl/pagestate"
)

// TrimSector tells the layer the sector's contents are dead: it reads
// back as 0xFF afterwards. Raising the sector's occupancy bit means the
// owning table page has to relocate, so trim follows the same buffering
// and commit protocol as a rewrite. When the last live sector of a data
// page is trimmed the page's mapping is dropped and the physical page
// queued for erase.
func (f *FTL) TrimSector(sectorNo uint32) error {
	f.resolveUnknown(uint32(f.ttPageCount))
	if sectorNo >= f.usableSectors {
		return ErrOutOfRange
	}
	if !f.cache.HasFree(syncReserve) {
		if err := f.Sync(); err != nil {
			return err
		}
	}

	lpno := common.Pgno(uint64(sectorNo)/common.SectorsPerPage) + f.ttPageCount
	pageSector := uint64(sectorNo) % common.SectorsPerPage

	info, err := f.readPageInfo(lpno)
	if err != nil {
		return err
	}
	mask := uint8(1) << pageSector
	if info.PhysicalPageNo < 0 || info.SectStatus&mask != 0 {
		// Never written, nothing to drop.
		return nil
	}

	info.SectStatus |= mask
	if info.SectStatus == 0xff {
		// Whole page dead: forget the mapping and any buffered copy.
		f.cache.Drop(info.PhysicalPageNo)
		f.state.Set(info.PhysicalPageNo, pagestate.EraseRequired)
		info.PhysicalPageNo = common.NoPage
	}
	if err := f.updatePageInfo(lpno, info); err != nil {
		return err
	}
	return f.dirtyOwningTables(lpno)
}
