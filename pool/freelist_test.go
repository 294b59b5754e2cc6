package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// layoutThreeBlocks seeds arena with three disjoint free blocks at
// fixed offsets, mirroring the worked example in the allocator's
// specification: A=32 bytes at 0, B=64 bytes at 64, C=128 bytes at
// 192, with a gap between A and B so the three never coalesce into
// one by construction.
func layoutThreeBlocks(t *testing.T) *freeList {
	t.Helper()
	arena := make([]byte, 512)
	fl := newFreeList(arena)
	fl.writeHeader(0, 32, 64)
	fl.writeHeader(64, 64, 192)
	fl.writeHeader(192, 128, nilOffset)
	fl.root = 0
	return fl
}

func TestFreeList_FirstFit(t *testing.T) {
	fl := layoutThreeBlocks(t)
	prev, off, found := fl.firstFit(16)
	require.True(t, found)
	assert.Equal(t, nilOffset, prev)
	assert.Equal(t, 0, off)

	prev, off, found = fl.firstFit(40)
	require.True(t, found)
	assert.Equal(t, 0, prev)
	assert.Equal(t, 64, off)

	_, _, found = fl.firstFit(200)
	assert.False(t, found)
}

func TestFreeList_BestFit(t *testing.T) {
	fl := layoutThreeBlocks(t)
	// 40 fits B(64) and C(128); best-fit picks the smaller, B.
	prev, off, found := fl.bestFit(40)
	require.True(t, found)
	assert.Equal(t, 0, prev)
	assert.Equal(t, 64, off)

	// exact-size match wins outright.
	prev, off, found = fl.bestFit(32)
	require.True(t, found)
	assert.Equal(t, nilOffset, prev)
	assert.Equal(t, 0, off)

	_, _, found = fl.bestFit(129)
	assert.False(t, found)
}

func TestFreeList_WorstFit(t *testing.T) {
	fl := layoutThreeBlocks(t)
	// 40 fits all three; worst-fit picks the largest, C.
	prev, off, found := fl.worstFit(40)
	require.True(t, found)
	assert.Equal(t, 64, prev)
	assert.Equal(t, 192, off)

	_, _, found = fl.worstFit(129)
	assert.False(t, found)
}

func TestFreeList_SplitHandsOutWholeBlockWhenLeftoverTooSmall(t *testing.T) {
	fl := layoutThreeBlocks(t)
	// A is 32 bytes; requesting 32-headerSize+1 leaves a remainder
	// smaller than headerSize, so the whole block goes out.
	dataOffset, usable := fl.split(nilOffset, 0, 32-headerSize+1)
	assert.Equal(t, 0, dataOffset)
	assert.Equal(t, 32, usable)
	assert.Equal(t, 64, fl.root) // A removed from the list entirely
}

func TestFreeList_SplitCarvesTailWhenLeftoverFits(t *testing.T) {
	fl := layoutThreeBlocks(t)
	// C is 128 bytes; requesting 40 leaves 88 bytes, plenty for a
	// header, so the tail survives as a new free block.
	dataOffset, usable := fl.split(64, 192, 40)
	assert.Equal(t, 192, dataOffset)
	assert.Equal(t, 40, usable)
	assert.Equal(t, 88, fl.sizeAt(232))
	assert.Equal(t, nilOffset, fl.nextAt(232))
	assert.Equal(t, 232, fl.nextAt(64))
}

func TestFreeList_DeallocateCoalescesBothNeighbors(t *testing.T) {
	arena := make([]byte, 256)
	fl := newFreeList(arena)
	// free regions: [0,32) and [96,256); [32,96) is "allocated" (held
	// out of the list) until deallocated below.
	fl.writeHeader(0, 32, 96)
	fl.writeHeader(96, 160, nilOffset)
	fl.root = 0

	err := fl.deallocate(32, 64)
	require.NoError(t, err)

	assert.Equal(t, 0, fl.root)
	assert.Equal(t, 256, fl.sizeAt(0))
	assert.Equal(t, nilOffset, fl.nextAt(0))
}

func TestFreeList_DeallocateCoalescesForwardOnly(t *testing.T) {
	arena := make([]byte, 256)
	fl := newFreeList(arena)
	fl.writeHeader(64, 192, nilOffset)
	fl.root = 64

	err := fl.deallocate(0, 64)
	require.NoError(t, err)

	assert.Equal(t, 0, fl.root)
	assert.Equal(t, 256, fl.sizeAt(0))
}

func TestFreeList_DeallocateNoCoalesceLeavesTwoBlocks(t *testing.T) {
	arena := make([]byte, 256)
	fl := newFreeList(arena)
	fl.writeHeader(0, 32, nilOffset)
	fl.root = 0

	err := fl.deallocate(128, 64)
	require.NoError(t, err)

	assert.Equal(t, 0, fl.root)
	assert.Equal(t, 32, fl.sizeAt(0))
	assert.Equal(t, 128, fl.nextAt(0))
	assert.Equal(t, 64, fl.sizeAt(128))
}

func TestFreeList_DeallocateRejectsOutOfRange(t *testing.T) {
	arena := make([]byte, 128)
	fl := newFreeList(arena)
	fl.root = nilOffset

	err := fl.deallocate(100, 64)
	assert.ErrorIs(t, err, ErrInvalidRelease)
}

func TestFreeList_DeallocateRejectsOverlapWithFreeBlock(t *testing.T) {
	arena := make([]byte, 256)
	fl := newFreeList(arena)
	fl.writeHeader(0, 64, nilOffset)
	fl.root = 0

	err := fl.deallocate(32, 64)
	assert.ErrorIs(t, err, ErrInvalidRelease)
}

func TestFreeList_Print(t *testing.T) {
	fl := layoutThreeBlocks(t)
	out := fl.print(true)
	assert.Contains(t, out, "block addr=0x0 size=32")
	assert.Contains(t, out, "block addr=0x40 size=64")
	assert.Contains(t, out, "block addr=0xc0 size=128")
	assert.Contains(t, out, "total free bytes=224 blocks=3")

	out = fl.print(false)
	assert.NotContains(t, out, "block addr")
	assert.Contains(t, out, "total free bytes=224 blocks=3")
}
