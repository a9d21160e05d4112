package flash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tchajed/goose/machine/disk"

	"github.com/norfs/go-norftl/common"
)

func fill(b []byte, v byte) {
	for i := range b {
		b[i] = v
	}
}

func testNORSemantics(t *testing.T, dev Flash) {
	page := make([]byte, common.PageSize)

	// fresh device is not erased
	assert.False(t, dev.IsErased(0))

	require.NoError(t, dev.Erase(0))
	assert.True(t, dev.IsErased(0))

	// program clears bits
	fill(page, 0xf0)
	require.NoError(t, dev.Program(0, page))
	assert.False(t, dev.IsErased(0))

	got := make([]byte, common.PageSize)
	require.NoError(t, dev.Read(0, got))
	assert.Equal(t, byte(0xf0), got[0])

	// a second program cannot raise bits, only clear more
	fill(page, 0x3f)
	require.NoError(t, dev.Program(0, page))
	require.NoError(t, dev.Read(0, got))
	assert.Equal(t, byte(0x30), got[0])
	assert.Equal(t, byte(0x30), got[common.PageSize-1])

	// erase lifts everything back up
	require.NoError(t, dev.Erase(0))
	require.NoError(t, dev.Read(0, got))
	assert.Equal(t, byte(0xff), got[0])

	// sub-page read at an odd offset
	small := make([]byte, 16)
	require.NoError(t, dev.Read(common.PageSize+3, small))
}

func TestMemFlashNOR(t *testing.T) {
	testNORSemantics(t, NewMemFlash(4))
}

func TestDiskFlashNOR(t *testing.T) {
	testNORSemantics(t, NewDiskFlash(disk.NewMemDisk(4)))
}

func TestMemFlashBounds(t *testing.T) {
	dev := NewMemFlash(2)
	buf := make([]byte, common.PageSize)
	assert.ErrorIs(t, dev.Read(2*common.PageSize, buf[:1]), ErrOutOfBounds)
	assert.ErrorIs(t, dev.Program(2*common.PageSize, buf), ErrOutOfBounds)
	assert.ErrorIs(t, dev.Erase(2*common.PageSize), ErrOutOfBounds)
	assert.False(t, dev.IsErased(2*common.PageSize))
}

func TestMemFlashAlignmentPanics(t *testing.T) {
	dev := NewMemFlash(2)
	assert.Panics(t, func() { dev.Erase(100) })
	assert.Panics(t, func() { dev.Program(0, make([]byte, 100)) })
}
