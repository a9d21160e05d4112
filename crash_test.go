package norftl

import (
	"errors"
	"testing"

	"github.com/goose-lang/std"
	"github.com/stretchr/testify/require"

	"github.com/norfs/go-norftl/common"
	"github.com/norfs/go-norftl/flash"
	"github.com/norfs/go-norftl/pagestate"
	"github.com/norfs/go-norftl/tt"
)

var errPowerCut = errors.New("simulated power cut")

// crashFlash cuts power after a budgeted number of mutating operations:
// once the budget runs out every program and erase fails. Reads keep
// working, as they would after a restart.
type crashFlash struct {
	*flash.MemFlash
	budget int // mutations allowed; -1 = unlimited
}

func (c *crashFlash) take() bool {
	if c.budget < 0 {
		return true
	}
	if c.budget == 0 {
		return false
	}
	c.budget--
	return true
}

func (c *crashFlash) Program(off uint64, p []byte) error {
	if !c.take() {
		return errPowerCut
	}
	return c.MemFlash.Program(off, p)
}

func (c *crashFlash) Erase(off uint64) error {
	if !c.take() {
		return errPowerCut
	}
	return c.MemFlash.Erase(off)
}

// requireSingleNewestMTT checks that the medium carries at least one
// valid master table image and that the maximum serial is unique, so
// mount has exactly one candidate to pick.
func requireSingleNewestMTT(t *testing.T, dev flash.Flash, pages common.Pgno) {
	t.Helper()
	hdr := make([]byte, tt.HeaderSize)
	var maxSerial uint32
	maxCount := 0
	for i := common.Pgno(0); i < pages; i++ {
		require.NoError(t, dev.Read(uint64(i)*common.PageSize, hdr))
		h := tt.DecodeHeader(hdr)
		if h.LogicalPageNo != 0 || !h.Valid() {
			continue
		}
		if h.Serial > maxSerial {
			maxSerial = h.Serial
			maxCount = 1
		} else if h.Serial == maxSerial {
			maxCount++
		}
	}
	require.Equal(t, 1, maxCount, "newest master table not unique (serial %d)", maxSerial)
}

const crashBudgetLimit = 64

// Power cut at every point while rewriting a synced sector: after
// restart the sector reads as the old or the new value, never a mix.
func TestPowerCutDuringRewrite(t *testing.T) {
	x := mkSector(0x41)
	y := mkSector(0x42)
	got := make([]byte, common.SectorSize)

	for budget := 0; ; budget++ {
		require.Less(t, budget, crashBudgetLimit, "rewrite never completed")

		dev := &crashFlash{MemFlash: flash.NewMemFlash(1024), budget: -1}
		f, err := New(dev, 4)
		require.NoError(t, err)
		require.NoError(t, f.WriteSector(0, 1, x))
		require.NoError(t, f.Sync())

		dev.budget = budget
		werr := f.WriteSector(0, 1, y)
		var serr error
		if werr == nil {
			serr = f.Sync()
		}

		// power back on
		dev.budget = -1
		f2, err := New(dev, 4)
		require.NoError(t, err)
		require.NoError(t, f2.ReadSector(0, got))
		require.True(t, std.BytesEqual(got, x) || std.BytesEqual(got, y),
			"budget %d: torn sector %x...", budget, got[:8])
		requireSingleNewestMTT(t, dev, 1024)

		if werr == nil && serr == nil {
			require.True(t, std.BytesEqual(got, y),
				"budget %d: completed sync lost the write", budget)
			return
		}
	}
}

// Power cut at every point while syncing the first write of a virgin
// sector: after restart the sector reads as blank or the new value.
func TestPowerCutDuringFirstWrite(t *testing.T) {
	x := mkSector(0x41)
	got := make([]byte, common.SectorSize)

	for budget := 0; ; budget++ {
		require.Less(t, budget, crashBudgetLimit, "write never completed")

		dev := &crashFlash{MemFlash: flash.NewMemFlash(1024), budget: -1}
		f, err := New(dev, 4)
		require.NoError(t, err)

		dev.budget = budget
		werr := f.WriteSector(0, 1, x)
		var serr error
		if werr == nil {
			serr = f.Sync()
		}

		dev.budget = -1
		f2, err := New(dev, 4)
		require.NoError(t, err)
		require.NoError(t, f2.ReadSector(0, got))
		require.True(t, std.BytesEqual(got, erasedSector) || std.BytesEqual(got, x),
			"budget %d: torn sector %x...", budget, got[:8])
		requireSingleNewestMTT(t, dev, 1024)

		if werr == nil && serr == nil {
			require.True(t, std.BytesEqual(got, x))
			return
		}
	}
}

// After a clean sync the used-page set and the tables agree: every
// mapped physical page is USED, and every USED page is either mapped or
// the master table itself.
func TestUsedPagesMatchTables(t *testing.T) {
	dev := flash.NewMemFlash(1024)
	f, err := New(dev, 4)
	require.NoError(t, err)

	buf := make([]byte, 8*common.SectorSize)
	for i := range buf {
		buf[i] = 0x3c
	}
	for sec := uint32(0); sec < 400; sec += 8 {
		require.NoError(t, f.WriteSector(sec, 8, buf))
	}
	// some rewrites to force relocations
	for i := byte(0); i < 5; i++ {
		require.NoError(t, f.WriteSector(17, 1, mkSector(i)))
		require.NoError(t, f.Sync())
	}

	ref := map[common.Pgno]bool{f.mttPpno: true}
	mtt, err := f.cache.Load(0, f.mttPpno)
	require.NoError(t, err)
	for i := uint64(1); i < common.TTRecordsPerPage; i++ {
		info := tt.GetRecord(mtt.Data, i)
		if info.PhysicalPageNo >= 0 {
			ref[info.PhysicalPageNo] = true
		}
	}
	for p := common.Pgno(0); p < f.physicalPageCount; p++ {
		if ref[p] {
			require.Equal(t, pagestate.Used, f.state.Get(p), "mapped page %d", p)
		} else {
			require.NotEqual(t, pagestate.Used, f.state.Get(p), "orphan page %d", p)
		}
	}
}

// Mount on a device with no valid master table formats it; a flash read
// error during the scan is not treated as an empty medium.
func TestMountScanErrorPropagates(t *testing.T) {
	dev := &shortFlash{MemFlash: flash.NewMemFlash(1024)}
	_, err := New(dev, 4)
	require.Error(t, err)
}

type shortFlash struct {
	*flash.MemFlash
}

func (s *shortFlash) Read(off uint64, p []byte) error {
	if off >= 512*common.PageSize {
		return errPowerCut
	}
	return s.MemFlash.Read(off, p)
}
