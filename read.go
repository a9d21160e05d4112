package norftl

import (
	"errors"

	"github.com/norfs/go-norftl/buffer"
	"github.com/norfs/go-norftl/common"
)

// ReadSector copies sector sectorNo into buf. A sector never written
// since its page's last erase reads as all 0xFF without touching flash.
// A read immediately after WriteSector sees the buffered bytes even
// before a Sync.
func (f *FTL) ReadSector(sectorNo uint32, buf []byte) error {
	if sectorNo >= f.usableSectors {
		return ErrOutOfRange
	}
	if uint64(len(buf)) < common.SectorSize {
		panic("norftl: read buffer shorter than a sector")
	}

	err := f.readSector(sectorNo, buf)
	if errors.Is(err, buffer.ErrNoFreeSlot) {
		// Every slot pinned by pending writes; flush and retry once.
		if err := f.Sync(); err != nil {
			return err
		}
		err = f.readSector(sectorNo, buf)
	}
	return err
}

func (f *FTL) readSector(sectorNo uint32, buf []byte) error {
	lpno := common.Pgno(uint64(sectorNo)/common.SectorsPerPage) + f.ttPageCount
	pageSector := uint64(sectorNo) % common.SectorsPerPage

	info, err := f.readPageInfo(lpno)
	if err != nil {
		return err
	}

	mask := uint8(1) << pageSector
	if info.SectStatus&mask != 0 {
		for i := uint64(0); i < common.SectorSize; i++ {
			buf[i] = 0xff
		}
		return nil
	}

	b, err := f.cache.Load(lpno, info.PhysicalPageNo)
	if err != nil {
		return err
	}
	copy(buf[:common.SectorSize], b.Data[pageSector*common.SectorSize:])
	return nil
}
