package pool

import (
	"math"
	"unsafe"
)

// Allocator is a stateless, copyable façade over a process-wide Pool,
// presenting it through the standard allocate/deallocate/construct/
// destroy/max_size contract a container library expects. All copies
// of an Allocator[T] for the same T draw from the same *Pool — the
// instance the owner constructs once and threads through explicitly
// (spec's preferred strategy over a mutable package-level global, in
// a language that discourages those).
type Allocator[T any] struct {
	pool *Pool
}

// NewAllocator returns an Allocator[T] drawing from pool.
func NewAllocator[T any](pool *Pool) Allocator[T] {
	return Allocator[T]{pool: pool}
}

func elemSize[T any]() int {
	var zero T
	return int(unsafe.Sizeof(zero))
}

// Allocate reserves room for n contiguous T values and returns typed
// pointers into that region. The byte request (n * sizeof(T)) is
// normalized by the underlying Pool exactly as any other request
// would be.
func (a Allocator[T]) Allocate(n int) ([]*T, error) {
	if n <= 0 {
		return nil, nil
	}
	sz := elemSize[T]()
	if sz == 0 {
		// Zero-size T needs no storage; every pointer may alias.
		out := make([]*T, n)
		var zero T
		for i := range out {
			out[i] = &zero
		}
		return out, nil
	}

	buf, err := a.pool.Allocate(n * sz)
	if err != nil {
		return nil, err
	}

	out := make([]*T, n)
	base := unsafe.Pointer(&buf[0])
	for i := range out {
		out[i] = (*T)(unsafe.Add(base, i*sz))
	}
	return out, nil
}

// Deallocate returns n contiguous T values — obtained from a single
// prior Allocate(n) call — to the Pool. p must be the exact slice
// Allocate returned.
func (a Allocator[T]) Deallocate(p []*T) {
	if len(p) == 0 {
		return
	}
	sz := elemSize[T]()
	if sz == 0 {
		return
	}
	buf := unsafe.Slice((*byte)(unsafe.Pointer(p[0])), len(p)*sz)
	a.pool.Deallocate(buf)
}

// Construct places v at *p. Go has no distinct placement-new step —
// assignment into already-owned memory is the construction.
func (a Allocator[T]) Construct(p *T, v T) {
	*p = v
}

// Destroy clears *p to T's zero value before the memory is returned
// to the Pool, so no stale pointer fields T may carry keep tracing
// into a region that is about to become some other caller's payload.
func (a Allocator[T]) Destroy(p *T) {
	var zero T
	*p = zero
}

// MaxSize returns the largest number of T values a single Allocate
// call could address, mirroring the original contract's
// UINT_MAX / sizeof(T).
func (a Allocator[T]) MaxSize() uint64 {
	sz := uint64(elemSize[T]())
	if sz == 0 {
		return math.MaxUint64
	}
	return uint64(math.MaxUint32) / sz
}
