// Package vector is a minimal growable sequence built directly on
// pool.Allocator, standing in for the container library a production
// allocator would normally be exercised by. It exists only to give
// Allocator a concrete, multi-element consumer for the concurrency and
// round-trip tests in the pool package — it is not meant to compete
// with container/list or slices.
package vector

import "github.com/cloudwego/mempool/pool"

// Vector is a contiguous, growable sequence of T, backed by storage
// drawn from a single pool.Allocator[T]. It is not safe for concurrent
// use by multiple goroutines on the same Vector value; concurrent
// tests instead give each goroutine its own Vector sharing one
// underlying Pool.
type Vector[T any] struct {
	alloc pool.Allocator[T]
	data  []*T
	size  int
}

// New returns an empty Vector drawing storage from alloc.
func New[T any](alloc pool.Allocator[T]) *Vector[T] {
	return &Vector[T]{alloc: alloc}
}

// Len returns the number of elements currently stored.
func (v *Vector[T]) Len() int { return v.size }

// Cap returns the number of elements storage is currently reserved
// for, which may exceed Len.
func (v *Vector[T]) Cap() int { return len(v.data) }

// Empty reports whether the vector holds no elements.
func (v *Vector[T]) Empty() bool { return v.size == 0 }

// At returns the element at index i.
func (v *Vector[T]) At(i int) T { return *v.data[i] }

// Set overwrites the element at index i.
func (v *Vector[T]) Set(i int, val T) { v.alloc.Construct(v.data[i], val) }

// Front returns the first element. It panics if the vector is empty.
func (v *Vector[T]) Front() T { return *v.data[0] }

// Back returns the last element. It panics if the vector is empty.
func (v *Vector[T]) Back() T { return *v.data[v.size-1] }

// Reserve ensures capacity for at least n elements, growing storage if
// needed. Unlike the original's raw byte memcpy — which only happened
// to work because the elements involved had no pointer/resource
// fields worth moving — this constructs each surviving element into
// its new slot and destroys the old one, so element types that do own
// resources are handled correctly too.
func (v *Vector[T]) Reserve(n int) {
	if v.data != nil && n <= len(v.data) {
		return
	}
	if n < 1 {
		n = 1
	}
	newData, err := v.alloc.Allocate(n)
	if err != nil {
		panic(err)
	}
	for i := 0; i < v.size; i++ {
		v.alloc.Construct(newData[i], *v.data[i])
	}
	if v.data != nil {
		for i := 0; i < v.size; i++ {
			v.alloc.Destroy(v.data[i])
		}
		v.alloc.Deallocate(v.data)
	}
	v.data = newData
}

// PushBack appends val, growing storage (doubling, or reserving a
// single slot from empty) when no room remains.
func (v *Vector[T]) PushBack(val T) {
	if v.data == nil {
		v.Reserve(1)
	} else if v.size == len(v.data) {
		v.Reserve(v.size * 2)
	}
	v.alloc.Construct(v.data[v.size], val)
	v.size++
}

// PopBack removes the last element. It panics if the vector is empty.
func (v *Vector[T]) PopBack() {
	v.alloc.Destroy(v.data[v.size-1])
	v.size--
}

// Insert places val at index pos, shifting subsequent elements back by
// one. Inserting into an empty vector behaves as PushBack and returns
// index 0 — the original's insert on an empty vector returned its
// shift loop's sentinel without ever reaching it, never producing a
// usable index.
func (v *Vector[T]) Insert(pos int, val T) int {
	if v.data == nil {
		v.PushBack(val)
		return 0
	}
	if v.size == len(v.data) {
		v.Reserve(v.size * 2)
	}
	for i := v.size; i > pos; i-- {
		v.alloc.Construct(v.data[i], *v.data[i-1])
	}
	v.alloc.Construct(v.data[pos], val)
	v.size++
	return pos
}

// Clear destroys every element and releases storage back to the
// allocator, leaving the vector empty and storageless.
func (v *Vector[T]) Clear() {
	if v.data == nil {
		return
	}
	for i := 0; i < v.size; i++ {
		v.alloc.Destroy(v.data[i])
	}
	v.alloc.Deallocate(v.data)
	v.data = nil
	v.size = 0
}
