// Package pool implements a user-space, fixed-capacity memory pool: a
// single arena carved once at construction and managed as an
// address-ordered free-list of intrusive headers, with first-fit,
// best-fit, and worst-fit placement disciplines selectable per Pool.
//
// The pool never grows, never compacts, and never falls back to the
// Go runtime allocator for memory it has already carved out of its
// arena — see Pool for the full contract.
package pool

// headerSize is the size, in bytes, of the FreeBlock header written
// at the start of every *free* region: an 8-byte size field followed
// by an 8-byte link to the next free block. The header only exists
// while the region is free — once handed out by Allocate, the whole
// region (including what used to be header bytes) belongs to the
// caller. Minimum request normalization exists solely so that a
// split's leftover region is always big enough to host this header.
const headerSize = 16

// nilOffset marks the end of a free-list chain, or "not found" from a
// placement search. No legitimate arena offset is negative, so -1
// can never collide with a real block address.
const nilOffset = -1

// freeBlock is a read-only view of the header at some offset inside
// an arena. It carries no identity of its own beyond that location:
// constructing one is nothing more than reading the size word of the
// header already present there, per spec's "pure POD record" description of
// a FreeBlock. freeList never keeps a freeBlock around once the list
// shape changes underneath it; offsets are what carry identity.
type freeBlock struct {
	offset int
	size   int
}

// addr returns the block's starting address within the arena.
func (b freeBlock) addr() int { return b.offset }

// end returns the first address past the block.
func (b freeBlock) end() int { return b.offset + b.size }
