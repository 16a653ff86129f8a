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

// Package cache stores woven artifacts keyed by source fingerprint and transformer-set version.
//
// Package cache 织入制品缓存
package cache

import (
	"sync"

	"github.com/rulego/weaver/api/types"
)

var _ types.ArtifactCache = (*MemoryCache)(nil)

// MemoryCache is an in-memory artifact cache.
// Entries of a source identity can be evicted together when the source changes.
type MemoryCache struct {
	mu    sync.RWMutex
	items map[types.ArtifactKey]*types.WovenArtifact
	// identities indexes the keys of every source identity
	identities map[string]map[types.ArtifactKey]struct{}
	// next is consulted on a miss and filled on Put, when set
	next types.ArtifactCache
}

// NewMemoryCache creates an empty cache. A non-nil next cache is used as a second level.
func NewMemoryCache(next types.ArtifactCache) *MemoryCache {
	return &MemoryCache{
		items:      make(map[types.ArtifactKey]*types.WovenArtifact),
		identities: make(map[string]map[types.ArtifactKey]struct{}),
		next:       next,
	}
}

// Get returns the artifact stored under key.
func (c *MemoryCache) Get(key types.ArtifactKey) (*types.WovenArtifact, bool) {
	c.mu.RLock()
	a, ok := c.items[key]
	c.mu.RUnlock()
	if ok || c.next == nil {
		return a, ok
	}
	if a, ok = c.next.Get(key); ok {
		return c.store(a), true
	}
	return nil, false
}

// Put stores the artifact. The first artifact stored under a key wins and is returned.
func (c *MemoryCache) Put(artifact *types.WovenArtifact) (*types.WovenArtifact, error) {
	if c.next != nil {
		winner, err := c.next.Put(artifact)
		if err != nil {
			return nil, err
		}
		artifact = winner
	}
	return c.store(artifact), nil
}

func (c *MemoryCache) store(artifact *types.WovenArtifact) *types.WovenArtifact {
	key := artifact.Key()
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.items[key]; ok {
		return existing
	}
	c.items[key] = artifact
	keys, ok := c.identities[artifact.Identity]
	if !ok {
		keys = make(map[types.ArtifactKey]struct{})
		c.identities[artifact.Identity] = keys
	}
	keys[key] = struct{}{}
	return artifact
}

// DeleteByIdentity evicts every artifact of a source identity and returns how many were removed.
// The second level is left alone: its keys carry the content fingerprint, so stale entries
// are never hit again.
func (c *MemoryCache) DeleteByIdentity(identity string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := c.identities[identity]
	for k := range keys {
		delete(c.items, k)
	}
	delete(c.identities, identity)
	return len(keys)
}

// Len returns the number of artifacts held in memory.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
