package flash

import (
	"fmt"
	"os"

	"github.com/ncw/directio"
	"golang.org/x/sys/unix"

	"github.com/norfs/go-norftl/common"
)

// FileFlash keeps a flash image in a regular file opened with O_DIRECT,
// so a program hits the platter (or at least the device cache) before it
// returns, the way a real flash program call would. All file I/O goes
// through an aligned scratch page as directio requires.
type FileFlash struct {
	file    *os.File
	size    uint64
	scratch []byte
}

var _ Flash = (*FileFlash)(nil)

// OpenFileFlash opens or creates an image of pages flash pages. A fresh
// image reads back all zero, which the FTL treats as a dirty chip and
// formats.
func OpenFileFlash(name string, pages uint64) (*FileFlash, error) {
	file, err := directio.OpenFile(name, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, err
	}
	size := pages * common.PageSize
	if err := file.Truncate(int64(size)); err != nil {
		file.Close()
		return nil, err
	}
	return &FileFlash{
		file:    file,
		size:    size,
		scratch: directio.AlignedBlock(int(common.PageSize)),
	}, nil
}

func (f *FileFlash) Size() uint64 {
	return f.size
}

func (f *FileFlash) readPage(pageOff uint64) error {
	_, err := f.file.ReadAt(f.scratch, int64(pageOff))
	return err
}

func (f *FileFlash) writePage(pageOff uint64) error {
	if _, err := f.file.WriteAt(f.scratch, int64(pageOff)); err != nil {
		return err
	}
	return unix.Fdatasync(int(f.file.Fd()))
}

func (f *FileFlash) Read(off uint64, p []byte) error {
	if off+uint64(len(p)) > f.size {
		return ErrOutOfBounds
	}
	pageOff := off - off%common.PageSize
	if err := f.readPage(pageOff); err != nil {
		return fmt.Errorf("flash read at %d: %w", off, err)
	}
	copy(p, f.scratch[off-pageOff:])
	return nil
}

func (f *FileFlash) Program(off uint64, p []byte) error {
	checkPageAligned(off)
	if off+common.PageSize > f.size {
		return ErrOutOfBounds
	}
	if err := f.readPage(off); err != nil {
		return fmt.Errorf("flash program at %d: %w", off, err)
	}
	for i, b := range p {
		f.scratch[i] &= b
	}
	if err := f.writePage(off); err != nil {
		return fmt.Errorf("flash program at %d: %w", off, err)
	}
	return nil
}

func (f *FileFlash) Erase(off uint64) error {
	checkPageAligned(off)
	if off+common.PageSize > f.size {
		return ErrOutOfBounds
	}
	for i := range f.scratch {
		f.scratch[i] = 0xff
	}
	if err := f.writePage(off); err != nil {
		return fmt.Errorf("flash erase at %d: %w", off, err)
	}
	return nil
}

func (f *FileFlash) IsErased(off uint64) bool {
	checkPageAligned(off)
	if off+common.PageSize > f.size {
		return false
	}
	if err := f.readPage(off); err != nil {
		return false
	}
	for _, b := range f.scratch {
		if b != 0xff {
			return false
		}
	}
	return true
}

func (f *FileFlash) Close() error {
	return f.file.Close()
}
