package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/norfs/go-norftl/common"
	"github.com/norfs/go-norftl/flash"
)

// mkDev programs each of n pages with a distinct fill byte.
func mkDev(t *testing.T, n uint64) *flash.MemFlash {
	dev := flash.NewMemFlash(n)
	page := make([]byte, common.PageSize)
	for i := uint64(0); i < n; i++ {
		require.NoError(t, dev.Erase(i*common.PageSize))
		for j := range page {
			page[j] = byte(i)
		}
		require.NoError(t, dev.Program(i*common.PageSize, page))
	}
	return dev
}

func TestLoadReadsFlash(t *testing.T) {
	c := MkCache(mkDev(t, 8), 3)
	b, err := c.Load(10, 2)
	require.NoError(t, err)
	assert.Equal(t, common.Pgno(10), b.LogicalPageNo)
	assert.Equal(t, common.Pgno(2), b.PhysicalPageNo)
	assert.Equal(t, byte(2), b.Data[0])
	assert.Equal(t, byte(2), b.Data[common.PageSize-1])
	assert.False(t, b.Lock)
	assert.Equal(t, None, b.Mode)
}

func TestEvictionIsLRU(t *testing.T) {
	c := MkCache(mkDev(t, 8), 3)
	b0, err := c.Load(0, 0)
	require.NoError(t, err)
	_, err = c.Load(1, 1)
	require.NoError(t, err)
	_, err = c.Load(2, 2)
	require.NoError(t, err)

	// page 0 is coldest; loading a fourth page reuses its slot
	_, err = c.Load(3, 3)
	require.NoError(t, err)
	assert.Nil(t, c.Find(0))
	assert.Equal(t, common.Pgno(3), b0.PhysicalPageNo)

	// touching page 1 saves it from the next eviction
	require.NotNil(t, c.Find(1))
	_, err = c.Load(4, 4)
	require.NoError(t, err)
	assert.NotNil(t, c.Find(1))
	assert.Nil(t, c.Find(2))
}

func TestLockedSlotsAreNotEvicted(t *testing.T) {
	c := MkCache(mkDev(t, 8), 2)
	b0, err := c.Load(0, 0)
	require.NoError(t, err)
	b0.Lock = true
	_, err = c.Load(1, 1)
	require.NoError(t, err)

	// slot 1 is the only unlocked one, so it gets reused even though it
	// is hotter than slot 0
	_, err = c.Load(2, 2)
	require.NoError(t, err)
	assert.NotNil(t, c.Find(0))
	assert.Nil(t, c.Find(1))

	b2 := c.Find(2)
	require.NotNil(t, b2)
	b2.Lock = true
	_, err = c.Load(3, 3)
	assert.ErrorIs(t, err, ErrNoFreeSlot)
}

func TestInitFillsBlank(t *testing.T) {
	c := MkCache(mkDev(t, 8), 2)
	b := c.Init(5, 7)
	require.NotNil(t, b)
	assert.True(t, b.Lock)
	assert.Equal(t, EraseProgram, b.Mode)
	for i := uint64(0); i < common.PageSize; i += 511 {
		assert.Equal(t, byte(0xff), b.Data[i])
	}

	// a found slot is reinitialized, not returned stale
	b.Lock = false
	b.Data[0] = 0x00
	b2 := c.Init(5, 7)
	require.Same(t, b, b2)
	assert.Equal(t, byte(0xff), b2.Data[0])
	assert.True(t, b2.Lock)
}

func TestHasFree(t *testing.T) {
	c := MkCache(mkDev(t, 8), 3)
	assert.True(t, c.HasFree(3))
	assert.False(t, c.HasFree(4))

	b, err := c.Load(0, 0)
	require.NoError(t, err)
	b.Lock = true
	assert.True(t, c.HasFree(2))
	assert.False(t, c.HasFree(3))
}

func TestDrop(t *testing.T) {
	c := MkCache(mkDev(t, 8), 2)
	b, err := c.Load(0, 0)
	require.NoError(t, err)
	b.Lock = true
	c.Drop(0)
	assert.Nil(t, c.Find(0))
	assert.False(t, b.Lock)
	assert.True(t, c.HasFree(2))
}
