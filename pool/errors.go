package pool

import "errors"

var (
	// ErrOutOfMemory is returned from Allocate when no free block
	// satisfies a normalized request. It is local to the failing
	// call: the free-list is left untouched and the caller may retry
	// later, after other goroutines have released memory.
	ErrOutOfMemory = errors.New("pool: out of memory")

	// ErrInvalidRelease is returned from Deallocate when the supplied
	// slice cannot be a block this Pool handed out: its range falls
	// outside the arena, or it overlaps a block already sitting on
	// the free-list. This is a best-effort hardening net, not a
	// tracked-allocation guarantee — per spec, the Pool does not
	// record live allocations, so a release with the right address
	// but a wrong size (or a double free of a block whose neighbors
	// happen to still make the range look plausible) remains
	// undefined behavior by contract.
	ErrInvalidRelease = errors.New("pool: invalid release")

	// ErrArenaTooSmall is returned from New when arenaSize cannot
	// host even one FreeBlock header.
	ErrArenaTooSmall = errors.New("pool: arena too small")

	// ErrClosed is returned by Allocate, Deallocate and Close on a Pool
	// after Close. Print and Available do not report it.
	ErrClosed = errors.New("pool: use after close")
)
