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
	"errors"
	"sync"
)

var ErrZeroCapacity = errors.New("cache capacity must be positive")

// FIFOCache is a bounded map that evicts the earliest inserted key on overflow. Lookups
// do not refresh an entry. All operations take one exclusive lock.
type FIFOCache[K comparable, T any] struct {
	capacity int
	itemMap  map[K]*fifoNode[K, T]
	lock     sync.Mutex
	head     *fifoNode[K, T] // oldest
	tail     *fifoNode[K, T] // newest
	zero     T

	hits      uint64
	misses    uint64
	evictions uint64
}

type fifoNode[K comparable, T any] struct {
	key  K
	item T
	next *fifoNode[K, T]
}

type Stats struct {
	Size      int    `json:"size"`
	Capacity  int    `json:"capacity"`
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
}

func NewFIFOCache[K comparable, T any](capacity int) (*FIFOCache[K, T], error) {
	if capacity <= 0 {
		return nil, ErrZeroCapacity
	}
	return &FIFOCache[K, T]{
		capacity: capacity,
		itemMap:  make(map[K]*fifoNode[K, T], capacity),
	}, nil
}

func (c *FIFOCache[K, T]) Find(key K) (T, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if n, ok := c.itemMap[key]; ok {
		c.hits++
		return n.item, true
	}
	c.misses++
	return c.zero, false
}

// Insert stores value under key. Replacing an existing key keeps its queue position;
// a new key evicts the oldest entry first when the cache is full.
func (c *FIFOCache[K, T]) Insert(key K, value T) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if n, ok := c.itemMap[key]; ok {
		n.item = value
		return
	}

	if len(c.itemMap) >= c.capacity {
		c.removeHead()
	}

	n := &fifoNode[K, T]{key: key, item: value}
	if c.tail == nil {
		c.head = n
	} else {
		c.tail.next = n
	}
	c.tail = n
	c.itemMap[key] = n
}

func (c *FIFOCache[K, T]) removeHead() {
	if c.head == nil {
		return
	}
	delete(c.itemMap, c.head.key)
	c.head = c.head.next
	if c.head == nil {
		c.tail = nil
	}
	c.evictions++
}

// Keys returns the cached keys from oldest to newest.
func (c *FIFOCache[K, T]) Keys() []K {
	c.lock.Lock()
	defer c.lock.Unlock()

	keys := make([]K, 0, len(c.itemMap))
	for p := c.head; p != nil; p = p.next {
		keys = append(keys, p.key)
	}
	return keys
}

func (c *FIFOCache[K, T]) Size() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return len(c.itemMap)
}

func (c *FIFOCache[K, T]) Capacity() int {
	return c.capacity
}

func (c *FIFOCache[K, T]) Stats() Stats {
	c.lock.Lock()
	defer c.lock.Unlock()
	return Stats{
		Size:      len(c.itemMap),
		Capacity:  c.capacity,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}
