/*
 * Copyright 2024 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package hostmem is the Pool's "how is the arena itself obtained
// from the host" collaborator — spec.md is explicit that this choice
// sits outside the free-list core. It recycles arena-sized backing
// arrays across Pool construct/Close cycles with a size-classed
// sync.Pool (the same shape as cache/mempool's Malloc/Free, adapted
// from tracking arbitrary buffers to tracking whole arenas), falling
// back to bytedance/gopkg/lang/mcache for genuinely fresh bytes.
package hostmem

import (
	"fmt"
	"math/bits"
	"sync"
	"unsafe"

	"github.com/bytedance/gopkg/lang/mcache"
)

const (
	minArenaSize = 4 << 10  // 4KB
	maxArenaSize = 1 << 30  // 1GB; Acquire fails above this
	footerLen    = 8

	// footer packs a magic (58 bits) and a size-class index (6 bits)
	// into the last 8 bytes of every recycled arena, the same split
	// cache/mempool uses so that Release stays safe regardless of
	// what the caller's slice len/cap currently look like.
	footerMagicMask = uint64(0xFFFFFFFFFFFFFFC0)
	footerIndexMask = uint64(0x000000000000003F)
	footerMagic     = uint64(0xA2E4A2E4A2E4A2C0)
)

type sizeClass struct {
	sync.Pool
	size int
}

var (
	classes    []*sizeClass
	size2class [64]int
)

func init() {
	i := 0
	for sz := minArenaSize; sz <= maxArenaSize; sz <<= 1 {
		c := &sizeClass{size: sz}
		c.New = func() interface{} {
			b := mcache.Malloc(c.size)
			return &b[0]
		}
		classes = append(classes, c)
		size2class[bits.Len(uint(c.size))] = i
		i++
	}
}

// classFor returns the index into classes of the smallest size class
// that can hold n bytes.
func classFor(n int) int {
	if n <= minArenaSize {
		return 0
	}
	i := size2class[bits.Len(uint(n))]
	if uint(n)&(uint(n)-1) == 0 {
		// already a power of two: it fits its own class exactly
		return i
	}
	return i + 1
}

type sliceHeader struct {
	Data unsafe.Pointer
	Len  int
	Cap  int
}

// Acquire returns a byte slice of exactly n bytes, backed by a
// recycled or freshly mcache-allocated buffer of at least n+footerLen
// bytes. The returned slice's cap may exceed n; Release uses only
// cap, never len, to find its way back to the right size class.
func Acquire(n int) ([]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("hostmem: non-positive size %d", n)
	}
	need := n + footerLen
	i := classFor(need)
	if i >= len(classes) {
		return nil, fmt.Errorf("hostmem: %d bytes exceeds the %dGB ceiling", n, maxArenaSize>>30)
	}
	class := classes[i]
	p := class.Get().(*byte)

	ret := []byte{}
	h := (*sliceHeader)(unsafe.Pointer(&ret))
	h.Data = unsafe.Pointer(p)
	h.Len = class.size
	h.Cap = class.size

	*(*uint64)(unsafe.Add(h.Data, h.Cap-footerLen)) = footerMagic | uint64(i)
	return ret[:n], nil
}

// Release returns an arena previously obtained from Acquire to its
// size-classed recycling pool. A buf not obtained from Acquire (size
// not a tracked power of two, or a missing/corrupted footer) is
// silently ignored, mirroring cache/mempool.Free's defensive no-op on
// foreign input — Pool.Close always calls Release with its own arena,
// so this defensiveness only matters for misuse from outside this
// module.
func Release(buf []byte) error {
	c := cap(buf)
	if c < minArenaSize || uint(c)&uint(c-1) != 0 {
		return nil
	}
	h := (*sliceHeader)(unsafe.Pointer(&buf))
	footer := *(*uint64)(unsafe.Add(h.Data, c-footerLen))
	if footer&footerMagicMask != footerMagic {
		return nil
	}
	i := int(footer & footerIndexMask)
	if i < 0 || i >= len(classes) || classes[i].size != c {
		return nil
	}
	classes[i].Put((*byte)(h.Data))
	return nil
}
