// Copyright 2024 Joel Montavon.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package parser

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CacheKey identifies a cached parse by expression text plus any
// dialect-sensitive parse options (there currently are none, but the key
// shape is kept open for future options such as a grammar-version tag).
type CacheKey struct {
	Expression string
	Options    string
}

type cacheEntry struct {
	node      *RawNode
	err       error
	expiresAt time.Time
}

// Cache is a bounded LRU of (expression, options) -> parse result with
// wall-clock TTL eviction and thread-safe access (spec.md §5). Hits return
// the same *RawNode pointer to every caller; callers must treat it as
// immutable.
type Cache struct {
	mu  sync.Mutex
	lru *lru.Cache[CacheKey, cacheEntry]
	ttl time.Duration
	now func() time.Time
}

// NewCache builds a cache holding up to size entries, each valid for ttl.
func NewCache(size int, ttl time.Duration) (*Cache, error) {
	l, err := lru.New[CacheKey, cacheEntry](size)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: l, ttl: ttl, now: time.Now}, nil
}

// Parse returns the cached RawNode for key, parsing and caching on a miss or
// expired entry.
func (c *Cache) Parse(key CacheKey) (*RawNode, error) {
	c.mu.Lock()
	if entry, ok := c.lru.Get(key); ok {
		if c.now().Before(entry.expiresAt) {
			c.mu.Unlock()
			return entry.node, entry.err
		}
		c.lru.Remove(key)
	}
	c.mu.Unlock()

	node, err := Parse(key.Expression)

	c.mu.Lock()
	c.lru.Add(key, cacheEntry{node: node, err: err, expiresAt: c.now().Add(c.ttl)})
	c.mu.Unlock()

	return node, err
}

// Len reports the number of live (possibly expired) entries, for tests.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
