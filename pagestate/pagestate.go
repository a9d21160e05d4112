// Package pagestate tracks what the layer knows about each physical
// page, two bits per page in a dense vector (8 KiB for a 128 MiB
// device).
package pagestate

import (
	"github.com/norfs/go-norftl/common"
)

type State uint32

const (
	Unknown State = iota
	Used
	EraseRequired
	Erased
)

func (s State) String() string {
	switch s {
	case Used:
		return "used"
	case EraseRequired:
		return "erase-required"
	case Erased:
		return "erased"
	}
	return "unknown"
}

const pagesPerWord = 16 // 32 bits / 2 bits per page

type Map struct {
	words    []uint32
	pages    common.Pgno
	resolved bool
}

func New(pages common.Pgno) *Map {
	nWords := uint64(pages) / pagesPerWord
	if uint64(pages)%pagesPerWord != 0 {
		nWords++
	}
	return &Map{
		words: make([]uint32, nWords),
		pages: pages,
	}
}

func (m *Map) Pages() common.Pgno {
	return m.pages
}

func (m *Map) Get(ppno common.Pgno) State {
	if ppno < 0 || ppno >= m.pages {
		panic("pagestate: page out of range")
	}
	shift := uint(ppno%pagesPerWord) * 2
	return State(m.words[ppno/pagesPerWord] >> shift & 0x3)
}

func (m *Map) Set(ppno common.Pgno, s State) {
	if ppno < 0 || ppno >= m.pages {
		panic("pagestate: page out of range")
	}
	idx := ppno / pagesPerWord
	shift := uint(ppno%pagesPerWord) * 2
	m.words[idx] = m.words[idx]&^(0x3<<shift) | uint32(s)<<shift
}

// Resolved reports whether every page has been classified since mount.
// Resolution is paid for incrementally; probing a whole large chip at
// mount would take too long.
func (m *Map) Resolved() bool {
	return m.resolved
}

func (m *Map) SetResolved() {
	m.resolved = true
}

// MemSize is the vector's RAM footprint in bytes.
func (m *Map) MemSize() uint64 {
	return uint64(len(m.words)) * 4
}
