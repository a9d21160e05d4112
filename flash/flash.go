// Package flash abstracts the raw NOR device underneath the translation
// layer. A NOR program can only clear bits (1 -> 0); raising bits back
// requires erasing a whole page.
package flash

import (
	"errors"

	"github.com/norfs/go-norftl/common"
)

var ErrOutOfBounds = errors.New("flash: access beyond device")

// Flash is the host-provided access to the medium. Offsets are in bytes.
// Program and Erase offsets must be page-aligned; Program length must be
// exactly one page. Read may cover any range inside a single page.
type Flash interface {
	Read(off uint64, p []byte) error
	Program(off uint64, p []byte) error
	Erase(off uint64) error
	IsErased(off uint64) bool
}

func checkPageAligned(off uint64) {
	if off%common.PageSize != 0 {
		panic("flash: offset not page aligned")
	}
}
