package norftl

import (
	"github.com/mit-pdos/go-journal/util"

	"github.com/norfs/go-norftl/buffer"
	"github.com/norfs/go-norftl/pagestate"
	"github.com/norfs/go-norftl/tt"
)

// programBuf commits one locked buffer to flash according to its mode.
//
// For a relocation the old copy is retired only after the new copy is
// fully on flash, so a failure in between leaves the old page's contents
// referenced and intact. A page we may have half-programmed is marked
// ERASE_REQUIRED before the program starts, so a failed attempt can
// never be mistaken for an erased page later.
func (f *FTL) programBuf(b *buffer.Buf) error {
	switch b.Mode {
	case buffer.Program:
		// In-place: the change only clears bits.
		if err := f.dev.Program(f.pageOff(b.PhysicalPageNo), b.Data); err != nil {
			return err
		}
		f.state.Set(b.PhysicalPageNo, pagestate.Used)

	case buffer.EraseProgram:
		addr := f.pageOff(b.PhysicalPageNo)
		erased := f.state.Get(b.PhysicalPageNo) == pagestate.Erased
		f.state.Set(b.PhysicalPageNo, pagestate.EraseRequired)
		if !erased {
			if err := f.dev.Erase(addr); err != nil {
				return err
			}
		}
		if err := f.dev.Program(addr, b.Data); err != nil {
			return err
		}
		f.state.Set(b.PhysicalPageNo, pagestate.Used)

	case buffer.RelocateEraseProgram:
		newPpno, err := f.allocate()
		if err != nil {
			return err
		}
		if b.LogicalPageNo < f.ttPageCount {
			if b.LogicalPageNo == 0 {
				// The master table's record 0 points at the table
				// itself; patch it before the CRC is computed.
				tt.PutRecordPpno(b.Data, 0, newPpno)
			}
			tt.BumpSerial(b.Data)
		}
		addr := f.pageOff(newPpno)
		erased := f.state.Get(newPpno) == pagestate.Erased
		f.state.Set(newPpno, pagestate.EraseRequired)
		if !erased {
			if err := f.dev.Erase(addr); err != nil {
				return err
			}
		}
		if err := f.dev.Program(addr, b.Data); err != nil {
			return err
		}
		oldPpno := b.PhysicalPageNo
		f.state.Set(oldPpno, pagestate.EraseRequired)
		b.PhysicalPageNo = newPpno
		f.state.Set(newPpno, pagestate.Used)
		if b.LogicalPageNo == 0 {
			f.mttPpno = newPpno
		}
		util.DPrintf(2, "relocate: logical %d moved %d -> %d\n",
			b.LogicalPageNo, oldPpno, newPpno)
	}
	return nil
}
