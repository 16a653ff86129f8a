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

// Package engine composes the advices matching a join point into interceptor chains and runs them.
//
// A chain is an onion: element i wraps element i+1 and the innermost element is the real join
// point. Advices of the first declared aspect are therefore the outermost ones: their
// before-advices run first and their after-advices run last.
//
// 拦截器链按洋葱模型组织，先声明的切面位于最外层。
package engine

import (
	"fmt"
	"sync"

	"github.com/rulego/weaver/api/types"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Target invokes the real join point.
type Target func(this any, args []any) (any, error)

// InterceptorChain is the ordered list of advices of one join point. Immutable once built.
type InterceptorChain struct {
	jp      *types.JoinPoint
	advices []*types.Advice
}

// NewInterceptorChain creates a chain from advices already in chain order.
func NewInterceptorChain(jp *types.JoinPoint, advices []*types.Advice) *InterceptorChain {
	var items = make([]*types.Advice, len(advices))
	copy(items, advices)
	return &InterceptorChain{jp: jp, advices: items}
}

// JoinPoint returns the join point of the chain.
func (c *InterceptorChain) JoinPoint() *types.JoinPoint {
	return c.jp
}

// Advices returns a copy of the advices, outermost first.
func (c *InterceptorChain) Advices() []*types.Advice {
	var items = make([]*types.Advice, len(c.advices))
	copy(items, c.advices)
	return items
}

// Len returns the number of advices.
func (c *InterceptorChain) Len() int {
	return len(c.advices)
}

// Empty reports whether no advice matched the join point.
func (c *InterceptorChain) Empty() bool {
	return len(c.advices) == 0
}

// Invoke runs the chain around target.
// Errors returned by advices and by target travel unchanged. A panicking advice is
// reported as *types.AdviceExecutionError; a panic of target is not intercepted.
func (c *InterceptorChain) Invoke(this any, args []any, target Target) (any, error) {
	if target == nil {
		return nil, fmt.Errorf("join point %s has no target", c.jp)
	}
	inv := &invocation{chain: c, this: this, args: args, target: target}
	defer rethrowTargetPanic()
	return inv.proceed(0)
}

// ChainOption configures a ChainBuilder.
type ChainOption func(*ChainBuilder)

// WithStrict makes every build re-verify that each advice matches the join point.
func WithStrict(strict bool) ChainOption {
	return func(b *ChainBuilder) {
		b.strict = strict
	}
}

// WithLogger sets the logger of the builder.
func WithLogger(logger *zap.Logger) ChainOption {
	return func(b *ChainBuilder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithOnBuild registers a callback run after each chain build, before the chain is cached.
func WithOnBuild(fn func(chain *InterceptorChain)) ChainOption {
	return func(b *ChainBuilder) {
		b.onBuild = fn
	}
}

// ChainBuilder builds and memoizes interceptor chains.
// Matching cost is paid once per join point key, never per call.
type ChainBuilder struct {
	index   *Index
	strict  bool
	logger  *zap.Logger
	onBuild func(chain *InterceptorChain)
	chains  sync.Map
	group   singleflight.Group
}

// NewChainBuilder creates a builder over index.
func NewChainBuilder(index *Index, opts ...ChainOption) *ChainBuilder {
	b := &ChainBuilder{index: index, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build returns the chain of jp, building it on first use.
func (b *ChainBuilder) Build(jp *types.JoinPoint) (*InterceptorChain, error) {
	key := jp.Key()
	if v, ok := b.chains.Load(key); ok {
		return v.(*InterceptorChain), nil
	}
	v, err, _ := b.group.Do(key, func() (interface{}, error) {
		if v, ok := b.chains.Load(key); ok {
			return v, nil
		}
		chain := NewInterceptorChain(jp, b.index.Matching(jp))
		if b.strict {
			if err := verify(chain); err != nil {
				return nil, err
			}
		}
		if b.onBuild != nil {
			b.onBuild(chain)
		}
		b.logger.Debug("interceptor chain built",
			zap.String("joinPoint", key),
			zap.Int("advices", chain.Len()))
		b.chains.Store(key, chain)
		return chain, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*InterceptorChain), nil
}

// Cached returns the memoized chain of a join point key.
func (b *ChainBuilder) Cached(key string) (*InterceptorChain, bool) {
	v, ok := b.chains.Load(key)
	if !ok {
		return nil, false
	}
	return v.(*InterceptorChain), true
}

// Keys returns the memoized join point keys.
func (b *ChainBuilder) Keys() []string {
	var keys []string
	b.chains.Range(func(k, _ any) bool {
		keys = append(keys, k.(string))
		return true
	})
	return keys
}

func verify(chain *InterceptorChain) error {
	for i, a := range chain.advices {
		if !a.Matches(chain.jp) {
			return fmt.Errorf("advice %s does not match %s", a, chain.jp)
		}
		if i > 0 {
			prev := chain.advices[i-1]
			if prev.AspectIndex > a.AspectIndex ||
				prev.AspectIndex == a.AspectIndex && prev.Phase.Rank() > a.Phase.Rank() {
				return fmt.Errorf("advice %s is out of order at %s", a, chain.jp)
			}
		}
	}
	return nil
}
