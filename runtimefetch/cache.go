/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/
package runtimefetch

import (
	"sync"

	"stowaway.dev/stowaway/internal/platform"
)

// VersionCache is a thread-safe, bounded-size cache of already-extracted
// runtime directories, keyed by version and target. A loader is invoked at
// most once per key even under concurrent callers, the same GetOrLoad
// singleflight shape as a package manifest cache.
type VersionCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	order   []string
	maxSize int
}

type cacheEntry struct {
	dir  string
	once sync.Once
	err  error
}

// NewVersionCache creates a VersionCache that evicts its oldest entry once
// more than maxSize versions are cached. maxSize <= 0 defaults to 16, since
// a single build rarely needs more than a handful of runtime versions
// resident at once.
func NewVersionCache(maxSize int) *VersionCache {
	if maxSize <= 0 {
		maxSize = 16
	}
	return &VersionCache{
		entries: make(map[string]*cacheEntry),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
	}
}

func cacheKey(version string, target platform.Target) string {
	return version + ":" + target.String()
}

// Get returns the cached runtime directory for version/target, if present.
func (c *VersionCache) Get(version string, target platform.Target) (string, bool) {
	key := cacheKey(version, target)
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || entry.err != nil {
		return "", false
	}
	return entry.dir, true
}

// GetOrLoad returns the cached directory for version/target, loading it via
// loader if not already cached or in flight. Concurrent callers for the same
// key block on the same load rather than each triggering their own fetch.
func (c *VersionCache) GetOrLoad(version string, target platform.Target, loader func() (string, error)) (string, error) {
	key := cacheKey(version, target)

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		c.mu.Lock()
		entry, ok = c.entries[key]
		if !ok {
			entry = &cacheEntry{}
			c.entries[key] = entry
			if len(c.entries) > c.maxSize {
				oldest := c.order[0]
				c.order = c.order[1:]
				delete(c.entries, oldest)
			}
			c.order = append(c.order, key)
		}
		c.mu.Unlock()
	}

	entry.once.Do(func() {
		entry.dir, entry.err = loader()
	})
	if entry.err != nil {
		return "", entry.err
	}
	return entry.dir, nil
}

// Size returns the number of entries currently cached.
func (c *VersionCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
