package pool

import (
	"fmt"
	"strings"
	"unsafe"
)

// freeList is an address-ordered singly-linked chain of FreeBlock
// headers living inside arena (invariant L1). Every node is a header
// written directly into arena bytes at some offset; freeList itself
// owns no memory beyond the slice it was given. All methods assume
// the caller already holds whatever lock protects arena — freeList
// performs no locking of its own, per spec's concurrency contract.
type freeList struct {
	arena []byte
	base  unsafe.Pointer
	root  int // offset of the first free block, or nilOffset
}

func newFreeList(arena []byte) *freeList {
	return &freeList{
		arena: arena,
		base:  unsafe.Pointer(&arena[0]),
		root:  nilOffset,
	}
}

func (fl *freeList) ptrAt(offset int) unsafe.Pointer {
	return unsafe.Add(fl.base, offset)
}

func (fl *freeList) sizeAt(offset int) int {
	return int(*(*int64)(fl.ptrAt(offset)))
}

func (fl *freeList) nextAt(offset int) int {
	return int(*(*int64)(unsafe.Add(fl.ptrAt(offset), 8)))
}

func (fl *freeList) writeHeader(offset, size, next int) {
	p := fl.ptrAt(offset)
	*(*int64)(p) = int64(size)
	*(*int64)(unsafe.Add(p, 8)) = int64(next)
}

func (fl *freeList) setNext(offset, next int) {
	*(*int64)(unsafe.Add(fl.ptrAt(offset), 8)) = int64(next)
}

func (fl *freeList) blockAt(offset int) freeBlock {
	return freeBlock{offset: offset, size: fl.sizeAt(offset)}
}

// seed installs a single FreeBlock covering the whole arena. Called
// exactly once, at construction, per invariant L4.
func (fl *freeList) seed() {
	fl.writeHeader(0, len(fl.arena), nilOffset)
	fl.root = 0
}

// linkAfter makes newOffset the successor of the node at prevOffset,
// or the new root when prevOffset is nilOffset.
func (fl *freeList) linkAfter(prevOffset, newOffset int) {
	if prevOffset == nilOffset {
		fl.root = newOffset
		return
	}
	fl.setNext(prevOffset, newOffset)
}

// split carves n bytes out of the block at blockOffset (whose
// predecessor in the list is prevOffset, or nilOffset if it is the
// root), per spec's split policy: if the leftover would be too small
// to host a header of its own, the whole block is handed out;
// otherwise the tail becomes a new, smaller free block linked in the
// consumed block's old slot. The returned dataOffset is always
// blockOffset itself — a FreeBlock header only occupies its region
// while that region is free, so the caller receives the entire
// region, header bytes included, once it is allocated.
func (fl *freeList) split(prevOffset, blockOffset, n int) (dataOffset, usableSize int) {
	size := fl.sizeAt(blockOffset)
	leftover := size - n
	if leftover < headerSize {
		fl.linkAfter(prevOffset, fl.nextAt(blockOffset))
		return blockOffset, size
	}
	newOffset := blockOffset + n
	fl.writeHeader(newOffset, leftover, fl.nextAt(blockOffset))
	fl.linkAfter(prevOffset, newOffset)
	return blockOffset, n
}

// deallocate returns [offset, offset+n) to the list, coalescing with
// whichever neighbor(s) turn out to be adjacent (invariant L2). n is
// assumed already normalized by the caller (Pool.Deallocate).
func (fl *freeList) deallocate(offset, n int) error {
	prevOffset, nextOffset, err := fl.locate(offset, n)
	if err != nil {
		return err
	}

	fl.writeHeader(offset, n, nextOffset)
	fl.linkAfter(prevOffset, offset)

	// Coalesce forward: absorb the successor if it starts exactly
	// where the freed range ends.
	size := n
	if nextOffset != nilOffset && offset+size == nextOffset {
		size += fl.sizeAt(nextOffset)
		fl.writeHeader(offset, size, fl.nextAt(nextOffset))
	}

	// Coalesce backward: if the predecessor ends exactly where the
	// freed range starts, it absorbs the (possibly already merged)
	// node written above.
	if prevOffset != nilOffset {
		prevSize := fl.sizeAt(prevOffset)
		if prevOffset+prevSize == offset {
			fl.writeHeader(prevOffset, prevSize+size, fl.nextAt(offset))
		}
	}
	return nil
}

// locate walks the address-ordered list to find the insertion point
// for [offset, offset+n): the predecessor that should point at it,
// and the successor it should point to. It also validates, as a
// hardening measure, that the range lies inside the arena and does
// not overlap a block already on the free-list (a release that
// collides with live, untracked memory cannot be detected this way —
// see ErrInvalidRelease).
func (fl *freeList) locate(offset, n int) (prevOffset, nextOffset int, err error) {
	if offset < 0 || n <= 0 || offset+n > len(fl.arena) {
		return 0, 0, ErrInvalidRelease
	}
	prevOffset = nilOffset
	cur := fl.root
	for cur != nilOffset {
		curSize := fl.sizeAt(cur)
		if cur+curSize <= offset {
			prevOffset = cur
			cur = fl.nextAt(cur)
			continue
		}
		if cur >= offset+n {
			break
		}
		// [offset, offset+n) overlaps the free block at cur.
		return 0, 0, ErrInvalidRelease
	}
	return prevOffset, cur, nil
}

// print renders the free-list in spec's stable diagnostic format: one
// line per block (when verbose), then a summary line with the total
// free bytes and block count.
func (fl *freeList) print(verbose bool) string {
	var b strings.Builder
	total := 0
	count := 0
	for cur := fl.root; cur != nilOffset; cur = fl.nextAt(cur) {
		size := fl.sizeAt(cur)
		if verbose {
			fmt.Fprintf(&b, "block addr=%#x size=%d\n", cur, size)
		}
		total += size
		count++
	}
	fmt.Fprintf(&b, "total free bytes=%d blocks=%d\n", total, count)
	return b.String()
}
