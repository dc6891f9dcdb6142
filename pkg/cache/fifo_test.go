/*
 * Copyright 2024 caiflower Authors
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

package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFIFOCacheZeroCapacity(t *testing.T) {
	c, err := NewFIFOCache[string, []byte](0)
	assert.ErrorIs(t, err, ErrZeroCapacity)
	assert.Nil(t, c)

	_, err = NewFIFOCache[string, []byte](-1)
	assert.ErrorIs(t, err, ErrZeroCapacity)
}

func TestFIFOCacheEvictsOldest(t *testing.T) {
	for capacity := 1; capacity <= 5; capacity++ {
		for k := 1; k <= 4; k++ {
			t.Run(fmt.Sprintf("C=%d,k=%d", capacity, k), func(t *testing.T) {
				c, err := NewFIFOCache[string, []byte](capacity)
				require.NoError(t, err)

				for i := 0; i < capacity+k; i++ {
					c.Insert(fmt.Sprintf("key%d", i), []byte{byte(i)})
					assert.LessOrEqual(t, c.Size(), capacity)
				}

				assert.Equal(t, capacity, c.Size())
				for i := 0; i < k; i++ {
					_, ok := c.Find(fmt.Sprintf("key%d", i))
					assert.False(t, ok, "key%d should be evicted", i)
				}
				for i := k; i < capacity+k; i++ {
					v, ok := c.Find(fmt.Sprintf("key%d", i))
					assert.True(t, ok, "key%d should be cached", i)
					assert.Equal(t, []byte{byte(i)}, v)
				}
				assert.EqualValues(t, k, c.Stats().Evictions)
			})
		}
	}
}

func TestFIFOCacheHitDoesNotRefresh(t *testing.T) {
	c, err := NewFIFOCache[string, int](2)
	require.NoError(t, err)

	c.Insert("a", 1)
	c.Insert("b", 2)
	_, ok := c.Find("a")
	require.True(t, ok)

	c.Insert("c", 3)
	_, ok = c.Find("a")
	assert.False(t, ok)
	assert.Equal(t, []string{"b", "c"}, c.Keys())
}

func TestFIFOCacheTrueOrderAfterCycles(t *testing.T) {
	c, err := NewFIFOCache[int, int](3)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		c.Insert(i, i)
	}
	assert.Equal(t, []int{7, 8, 9}, c.Keys())

	c.Insert(10, 10)
	assert.Equal(t, []int{8, 9, 10}, c.Keys())
}

func TestFIFOCacheReinsert(t *testing.T) {
	c, err := NewFIFOCache[string, string](2)
	require.NoError(t, err)

	c.Insert("a", "v1")
	c.Insert("b", "v1")
	c.Insert("a", "v2")

	assert.Equal(t, 2, c.Size())
	v, ok := c.Find("a")
	assert.True(t, ok)
	assert.Equal(t, "v2", v)
	assert.Equal(t, []string{"a", "b"}, c.Keys())
	assert.Zero(t, c.Stats().Evictions)

	c.Insert("c", "v1")
	assert.Equal(t, []string{"b", "c"}, c.Keys())
}

func TestFIFOCacheFindIdempotent(t *testing.T) {
	c, err := NewFIFOCache[string, []byte](4)
	require.NoError(t, err)

	payload := []byte("compressed payload")
	c.Insert("/www/index.html", payload)

	first, ok := c.Find("/www/index.html")
	require.True(t, ok)
	for i := 0; i < 10; i++ {
		again, ok := c.Find("/www/index.html")
		require.True(t, ok)
		assert.Equal(t, first, again)
	}

	_, ok = c.Find("/www/missing.html")
	assert.False(t, ok)

	stats := c.Stats()
	assert.EqualValues(t, 11, stats.Hits)
	assert.EqualValues(t, 1, stats.Misses)
	assert.Equal(t, 4, stats.Capacity)
	assert.Equal(t, 1, stats.Size)
}

func TestFIFOCacheConcurrent(t *testing.T) {
	c, err := NewFIFOCache[string, int](8)
	require.NoError(t, err)

	wg := sync.WaitGroup{}
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("key%d", (g*200+i)%32)
				c.Insert(key, i)
				c.Find(key)
				assert.LessOrEqual(t, c.Size(), 8)
			}
		}(g)
	}
	wg.Wait()

	assert.Equal(t, 8, c.Size())
	assert.Len(t, c.Keys(), 8)
}
