// Copyright 2025 crashsym project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package symbolizer

import "sync"

// Cache caches resolved symbols in a thread-safe way. It is populated
// lazily, never invalidated, and owned by a symbolication session; whether
// it survives consecutive runs is the session's policy decision.
type Cache struct {
	mu      sync.RWMutex
	entries map[Key]string
}

// Key identifies one resolution result. The legacy report path keys solely
// by address (the whole report shares one load address and architecture is
// irrelevant once resolved); the MetricKit path keys by all three fields
// because one run may symbolize frames from images with different bases.
type Key struct {
	Addr string
	Arch string
	Load string
}

func (c *Cache) Get(key Key) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	sym, ok := c.entries[key]
	return sym, ok
}

func (c *Cache) Put(key Key, symbol string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries == nil {
		c.entries = make(map[Key]string)
	}
	c.entries[key] = symbol
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
