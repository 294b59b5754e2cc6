package pool

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/cloudwego/mempool/internal/hostmem"
)

// sliceHeader mirrors the runtime's slice layout so Deallocate can
// recover a buffer's backing pointer without indexing into it — the
// same trick cache/mempool's Malloc/Free use to stay safe regardless
// of how the caller has reslice/len'd what it got back.
type sliceHeader struct {
	Data unsafe.Pointer
	Len  int
	Cap  int
}

// Pool owns one contiguous arena and serializes every mutation of its
// free-list behind a single mutex. It carves the arena once at
// construction and never grows, compacts, or returns memory to the Go
// runtime allocator except as a whole, at Close — see spec's Non-goals.
//
// Construction is the owner's serial responsibility and is not
// protected by Pool's mutex. Close and every other public method hold
// the mutex for their whole critical section (normalization, search,
// split or insert-plus-coalesce).
type Pool struct {
	mu     sync.Mutex
	fl     *freeList
	policy Policy
	closed bool
}

// New constructs a Pool managing a freshly acquired arena of arenaSize
// bytes under the given placement policy. The arena is obtained from
// internal/hostmem, not straight from make([]byte, n) — "how the arena
// itself is obtained from the host" is deliberately kept as a
// collaborator the core does not otherwise depend on.
func New(arenaSize int, policy Policy) (*Pool, error) {
	if arenaSize < headerSize {
		return nil, fmt.Errorf("%w: %d bytes cannot host one %d-byte header",
			ErrArenaTooSmall, arenaSize, headerSize)
	}
	arena, err := hostmem.Acquire(arenaSize)
	if err != nil {
		return nil, fmt.Errorf("pool: arena acquisition failed: %w", err)
	}
	fl := newFreeList(arena)
	fl.seed()
	return &Pool{fl: fl, policy: policy}, nil
}

// normalize raises a requested size to at least headerSize, so that
// any leftover a split produces is itself big enough to host a
// header (spec's "minimum request normalization").
func normalize(n int) int {
	if n < headerSize {
		return headerSize
	}
	return n
}

// Allocate reserves n bytes from the arena and returns a slice backed
// directly by arena memory — no copy, no Go-heap allocation for the
// payload itself. The returned slice's length is exactly n; its
// capacity may be larger when the chosen block could not be split
// further (see freeList.split). Callers must pass the very same
// slice back to Deallocate without reslicing past its start.
func (p *Pool) Allocate(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("pool: negative size %d", n)
	}
	normN := normalize(n)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrClosed
	}

	dataOffset, usable, err := p.fl.allocate(p.policy, normN)
	if err != nil {
		return nil, err
	}

	ptr := unsafe.Add(p.fl.base, dataOffset)
	return unsafe.Slice((*byte)(ptr), usable)[:n], nil
}

// Deallocate returns buf to the free-list. buf must be the exact
// slice Allocate returned for some earlier call with len(buf) bytes
// requested — the Pool trusts that pairing and does not itself track
// live allocations (spec's "Live allocation" contract). A buf that
// could not possibly be a block this Pool handed out is rejected with
// ErrInvalidRelease; anything more subtly wrong is undefined behavior
// by contract.
func (p *Pool) Deallocate(buf []byte) error {
	if cap(buf) == 0 {
		return nil
	}
	h := (*sliceHeader)(unsafe.Pointer(&buf))
	n := normalize(len(buf))
	offset := int(uintptr(h.Data) - uintptr(p.fl.base))

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	return p.fl.deallocate(offset, n)
}

// Print renders a diagnostic dump of the free-list: one line per free
// block (address and size) when verbose, followed by a summary line
// with total free bytes and block count.
func (p *Pool) Print(verbose bool) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fl.print(verbose)
}

// Available returns the total free bytes currently on the free-list.
func (p *Pool) Available() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	total := 0
	for cur := p.fl.root; cur != nilOffset; cur = p.fl.nextAt(cur) {
		total += p.fl.sizeAt(cur)
	}
	return total
}

// Close releases the arena back to hostmem. No free-list operation is
// required first: the arena is reclaimed as a whole regardless of its
// current allocation state, per spec's destruct contract.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	p.closed = true
	return hostmem.Release(p.fl.arena)
}
