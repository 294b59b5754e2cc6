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

package hostmem

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireRelease(t *testing.T) {
	for _, n := range []int{1, 100, 4096, 1 << 20} {
		buf, err := Acquire(n)
		require.NoError(t, err)
		assert.Len(t, buf, n)
		require.NoError(t, Release(buf))
	}
}

func TestAcquireZeroOrNegativeFails(t *testing.T) {
	_, err := Acquire(0)
	assert.Error(t, err)
	_, err = Acquire(-1)
	assert.Error(t, err)
}

func TestAcquireAboveCeilingFails(t *testing.T) {
	_, err := Acquire(maxArenaSize + 1)
	assert.Error(t, err)
}

func TestReleaseIgnoresForeignSlice(t *testing.T) {
	foreign := make([]byte, 4096)
	assert.NoError(t, Release(foreign))
}

func TestAcquireRecyclesSizeClass(t *testing.T) {
	debug.SetGCPercent(-1)
	defer debug.SetGCPercent(100)

	buf1, err := Acquire(8192)
	require.NoError(t, err)
	p1 := &buf1[0]
	require.NoError(t, Release(buf1))

	buf2, err := Acquire(8192)
	require.NoError(t, err)
	p2 := &buf2[0]
	require.NoError(t, Release(buf2))

	assert.Same(t, p1, p2)
}
