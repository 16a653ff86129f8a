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

package aspect

import (
	"sync"
	"time"

	"github.com/rulego/weaver/api/types"
	"github.com/rulego/weaver/utils/cache"
	"github.com/rulego/weaver/utils/json"
	"golang.org/x/sync/singleflight"
)

// CacheablePointcut is the default pointcut of the Cache aspect.
const CacheablePointcut = `@annotation(Weaver\Cacheable)`

var (
	_ types.AdvisorProvider = (*Cache)(nil)
	_ types.AspectFactory   = (*Cache)(nil)
)

// Cache memoizes successful results per join point and argument list. Concurrent calls with
// the same key share one execution. Failures are not cached. Arguments that cannot be encoded
// as JSON bypass the cache.
// Cache 结果缓存切面
type Cache struct {
	// Pointcut defaults to members annotated with @\Weaver\Cacheable
	Pointcut string
	// TTL of an entry, 0 keeps it until Clear
	TTL time.Duration

	store *cache.MemoryCache
	once  sync.Once
	group singleflight.Group
}

func (a *Cache) Order() int {
	return 30
}

func (a *Cache) New() types.Aspect {
	return &Cache{Pointcut: a.Pointcut, TTL: a.TTL}
}

func (a *Cache) Type() string {
	return "cache"
}

func (a *Cache) Advisors() []types.AdviceDecl {
	return []types.AdviceDecl{
		advisor(types.PhaseAround, orDefault(a.Pointcut, CacheablePointcut), "Around", a.Around),
	}
}

func (a *Cache) Around(inv types.Invocation) (any, error) {
	key, ok := cacheKey(inv)
	if !ok {
		return inv.Proceed()
	}
	store := a.namespace(inv.JoinPoint())
	if v, hit := store.Get(key); hit {
		return v, nil
	}
	v, err, _ := a.group.Do(inv.JoinPoint().Key()+key, func() (any, error) {
		if v, hit := store.Get(key); hit {
			return v, nil
		}
		result, err := inv.Proceed()
		if err == nil {
			store.SetWithTTL(key, result, a.TTL)
		}
		return result, err
	})
	return v, err
}

// Evict removes the cached results of one join point, identified by its key.
func (a *Cache) Evict(joinPointKey string) int {
	return a.memory().DeleteByPrefix(joinPointKey + "#")
}

// Clear removes every cached result.
func (a *Cache) Clear() int {
	return a.memory().DeleteByPrefix("")
}

// Close stops the expiration collector.
func (a *Cache) Close() error {
	a.memory().StopGC()
	return nil
}

func (a *Cache) namespace(jp *types.JoinPoint) *cache.NamespaceCache {
	return cache.NewNamespaceCache(a.memory(), jp.Key()+"#")
}

func (a *Cache) memory() *cache.MemoryCache {
	a.once.Do(func() {
		if a.store == nil {
			a.store = cache.NewMemoryCache(time.Minute)
		}
	})
	return a.store
}

func cacheKey(inv types.Invocation) (string, bool) {
	b, err := json.Marshal(inv.Arguments())
	if err != nil {
		return "", false
	}
	return string(b), true
}
