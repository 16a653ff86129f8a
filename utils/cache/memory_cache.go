/*
 * Copyright 2025 The RuleGo Authors.
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

// Package cache provides an in-process key/value store with optional per-entry expiration.
// Expired entries are invisible to readers immediately and reclaimed by a background
// collector that only runs while expirable entries exist.
package cache

import (
	"strings"
	"sync"
	"time"
)

// MemoryCache is a concurrency-safe map with optional ttl per entry.
type MemoryCache struct {
	items      map[string]item
	mu         sync.RWMutex
	stopGc     chan struct{}
	ticker     *time.Ticker
	gcInterval time.Duration
}

type item struct {
	value      any
	expiration int64
}

func (it item) expired(now int64) bool {
	return it.expiration > 0 && now > it.expiration
}

// NewMemoryCache creates a cache. gcInterval <= 0 uses 5 minutes.
func NewMemoryCache(gcInterval time.Duration) *MemoryCache {
	c := &MemoryCache{
		items:      make(map[string]item),
		stopGc:     make(chan struct{}),
		gcInterval: time.Minute * 5,
	}
	if gcInterval > 0 {
		c.gcInterval = gcInterval
	}
	return c
}

// Set stores value under key. ttl is a duration string, empty or "0" never expires.
func (c *MemoryCache) Set(key string, value any, ttl string) error {
	var dur time.Duration
	if ttl != "" {
		var err error
		if dur, err = time.ParseDuration(ttl); err != nil {
			return err
		}
	}
	c.SetWithTTL(key, value, dur)
	return nil
}

// SetWithTTL stores value under key, ttl <= 0 never expires.
func (c *MemoryCache) SetWithTTL(key string, value any, ttl time.Duration) {
	var expiration int64
	if ttl > 0 {
		expiration = time.Now().Add(ttl).UnixNano()
	}
	c.mu.Lock()
	c.items[key] = item{value: value, expiration: expiration}
	shouldStartGC := expiration > 0 && c.ticker == nil
	c.mu.Unlock()

	if shouldStartGC {
		c.StartGC()
	}
}

// Get returns the value of key. A stored nil value is reported as found.
func (c *MemoryCache) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	it, found := c.items[key]
	if !found || it.expired(time.Now().UnixNano()) {
		return nil, false
	}
	return it.value, true
}

// Has reports whether key holds a live entry.
func (c *MemoryCache) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

func (c *MemoryCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// DeleteByPrefix removes every key starting with prefix and returns how many were removed.
func (c *MemoryCache) DeleteByPrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k := range c.items {
		if strings.HasPrefix(k, prefix) {
			delete(c.items, k)
			n++
		}
	}
	return n
}

// GetByPrefix returns the live entries whose key starts with prefix.
func (c *MemoryCache) GetByPrefix(prefix string) map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make(map[string]any)
	now := time.Now().UnixNano()
	for k, v := range c.items {
		if strings.HasPrefix(k, prefix) && !v.expired(now) {
			result[k] = v.value
		}
	}
	return result
}

// Len returns the number of stored entries, expired ones not yet collected included.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// StartGC starts the background collector if expirable entries exist and it is not running.
func (c *MemoryCache) StartGC() {
	c.mu.Lock()
	if c.ticker != nil {
		c.mu.Unlock()
		return
	}
	hasExpirable := false
	for _, it := range c.items {
		if it.expiration > 0 {
			hasExpirable = true
			break
		}
	}
	if !hasExpirable {
		c.mu.Unlock()
		return
	}
	ticker := time.NewTicker(c.gcInterval)
	stop := make(chan struct{})
	c.ticker = ticker
	c.stopGc = stop
	c.mu.Unlock()

	go func() {
		for {
			select {
			case <-ticker.C:
				c.deleteExpired()
			case <-stop:
				ticker.Stop()
				c.mu.Lock()
				if c.ticker == ticker {
					c.ticker = nil
				}
				c.mu.Unlock()
				return
			}
		}
	}()
}

// StopGC stops the background collector. Safe to call several times.
func (c *MemoryCache) StopGC() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ticker == nil || c.stopGc == nil {
		return
	}
	select {
	case <-c.stopGc:
	default:
		close(c.stopGc)
	}
}

// gcRunning reports whether the collector goroutine is active.
func (c *MemoryCache) gcRunning() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ticker != nil
}

func (c *MemoryCache) deleteExpired() {
	now := time.Now().UnixNano()

	c.mu.RLock()
	var expiredKeys []string
	for k, v := range c.items {
		if v.expired(now) {
			expiredKeys = append(expiredKeys, k)
		}
	}
	c.mu.RUnlock()

	// delete in batches to keep the write lock short
	const batchSize = 300
	for i := 0; i < len(expiredKeys); i += batchSize {
		end := i + batchSize
		if end > len(expiredKeys) {
			end = len(expiredKeys)
		}
		c.mu.Lock()
		for _, k := range expiredKeys[i:end] {
			if it, found := c.items[k]; found && it.expired(now) {
				delete(c.items, k)
			}
		}
		c.mu.Unlock()
	}

	c.mu.RLock()
	remaining := false
	for _, it := range c.items {
		if it.expiration > 0 {
			remaining = true
			break
		}
	}
	c.mu.RUnlock()
	if !remaining {
		c.StopGC()
	}
}

// NamespaceCache prefixes every key of an underlying MemoryCache.
// NamespaceCache 命名空间缓存
type NamespaceCache struct {
	Cache     *MemoryCache
	Namespace string
}

// NewNamespaceCache returns nil when cache is nil.
func NewNamespaceCache(cache *MemoryCache, namespace string) *NamespaceCache {
	if cache == nil {
		return nil
	}
	return &NamespaceCache{Cache: cache, Namespace: namespace}
}

func (c *NamespaceCache) SetWithTTL(key string, value any, ttl time.Duration) {
	c.Cache.SetWithTTL(c.Namespace+key, value, ttl)
}

func (c *NamespaceCache) Get(key string) (any, bool) {
	return c.Cache.Get(c.Namespace + key)
}

func (c *NamespaceCache) Delete(key string) {
	c.Cache.Delete(c.Namespace + key)
}

// Clear removes every key of the namespace.
func (c *NamespaceCache) Clear() int {
	return c.Cache.DeleteByPrefix(c.Namespace)
}
