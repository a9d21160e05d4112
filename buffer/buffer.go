// Package buffer implements the page buffer cache: a fixed set of
// in-RAM page slots with LRU replacement. A slot holding uncommitted
// changes is locked and pinned until sync programs it out; its program
// mode records how the page must reach flash.
package buffer

import (
	"errors"

	"github.com/mit-pdos/go-journal/util"

	"github.com/norfs/go-norftl/common"
	"github.com/norfs/go-norftl/flash"
)

// Mode is the pending program mode of a locked slot.
type Mode uint8

const (
	// None: clean slot, nothing to program.
	None Mode = iota
	// Program: the target page accepts the change in place (bits only
	// go 1 -> 0).
	Program
	// EraseProgram: freshly allocated page; erase first unless already
	// known erased.
	EraseProgram
	// RelocateEraseProgram: the change needs a bit raised, so the page
	// must move to a newly allocated physical page.
	RelocateEraseProgram
)

// ErrNoFreeSlot means every slot is locked; the caller must sync before
// retrying.
var ErrNoFreeSlot = errors.New("buffer: all slots locked")

// Buf is one page slot.
type Buf struct {
	LogicalPageNo  common.Pgno
	PhysicalPageNo common.Pgno
	Lock           bool
	Mode           Mode
	Data           []byte
}

func (b *Buf) reset() {
	b.LogicalPageNo = common.NoPage
	b.PhysicalPageNo = common.NoPage
	b.Lock = false
	b.Mode = None
}

// Cache is the slot set. order is the LRU permutation: order[0] is the
// most recently used slot index, order[len-1] the coldest.
type Cache struct {
	dev   flash.Flash
	bufs  []*Buf
	order []int
}

func MkCache(dev flash.Flash, size uint32) *Cache {
	bufs := make([]*Buf, size)
	order := make([]int, size)
	for i := range bufs {
		bufs[i] = &Buf{
			LogicalPageNo:  common.NoPage,
			PhysicalPageNo: common.NoPage,
			Data:           make([]byte, common.PageSize),
		}
		order[i] = i
	}
	return &Cache{dev: dev, bufs: bufs, order: order}
}

func (c *Cache) Size() uint32 {
	return uint32(len(c.bufs))
}

// touch moves slot idx to the head of the LRU order.
func (c *Cache) touch(idx int) {
	for pos, i := range c.order {
		if i == idx {
			copy(c.order[1:pos+1], c.order[:pos])
			c.order[0] = idx
			return
		}
	}
	panic("buffer: slot missing from lru order")
}

// victim returns the coldest unlocked slot, or -1 if all are locked.
func (c *Cache) victim() int {
	for pos := len(c.order) - 1; pos >= 0; pos-- {
		idx := c.order[pos]
		if !c.bufs[idx].Lock {
			return idx
		}
	}
	return -1
}

// Find returns the slot holding physical page ppno, promoting it, or nil.
func (c *Cache) Find(ppno common.Pgno) *Buf {
	if ppno < 0 {
		return nil
	}
	for idx, b := range c.bufs {
		if b.PhysicalPageNo == ppno {
			c.touch(idx)
			return b
		}
	}
	return nil
}

// Load returns a slot holding physical page ppno, reading it from flash
// into the coldest unlocked slot on a miss.
func (c *Cache) Load(lpno common.Pgno, ppno common.Pgno) (*Buf, error) {
	if ppno < 0 {
		panic("buffer: load of unmapped page")
	}
	if b := c.Find(ppno); b != nil {
		return b, nil
	}
	idx := c.victim()
	if idx < 0 {
		return nil, ErrNoFreeSlot
	}
	b := c.bufs[idx]
	// Invalidate before the read so a failed read cannot leave a slot
	// claiming to hold the page.
	b.reset()
	if err := c.dev.Read(uint64(ppno)*common.PageSize, b.Data); err != nil {
		util.DPrintf(1, "buffer: load of page %d failed: %v\n", ppno, err)
		return nil, err
	}
	b.LogicalPageNo = lpno
	b.PhysicalPageNo = ppno
	c.touch(idx)
	return b, nil
}

// Init claims a slot for a brand-new page with no on-flash contents:
// filled 0xFF, locked, queued for erase-and-program. Returns nil if all
// slots are locked.
func (c *Cache) Init(lpno common.Pgno, ppno common.Pgno) *Buf {
	idx := -1
	for i, b := range c.bufs {
		if b.PhysicalPageNo == ppno {
			idx = i
			break
		}
	}
	if idx < 0 {
		idx = c.victim()
		if idx < 0 {
			return nil
		}
	}
	b := c.bufs[idx]
	b.LogicalPageNo = lpno
	b.PhysicalPageNo = ppno
	b.Lock = true
	b.Mode = EraseProgram
	for i := range b.Data {
		b.Data[i] = 0xff
	}
	c.touch(idx)
	return b
}

// Drop invalidates the slot holding ppno, discarding any pending change.
func (c *Cache) Drop(ppno common.Pgno) {
	for _, b := range c.bufs {
		if b.PhysicalPageNo == ppno {
			b.reset()
			return
		}
	}
}

// HasFree reports whether at least want slots are unlocked.
func (c *Cache) HasFree(want int) bool {
	free := 0
	for _, b := range c.bufs {
		if !b.Lock {
			free++
			if free >= want {
				return true
			}
		}
	}
	return false
}

// Bufs exposes the slots for the sync walk.
func (c *Cache) Bufs() []*Buf {
	return c.bufs
}

// MemSize is the cache's RAM footprint in bytes, page data plus slot
// bookkeeping.
func (c *Cache) MemSize() uint64 {
	per := common.PageSize + 16
	return uint64(len(c.bufs)) * per
}
