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

package engine

import (
	"errors"
	"strings"
	"sync"

	"github.com/rulego/weaver/api/types"
)

// ErrNoInstantiator is returned by Construct when no direct constructor is configured.
var ErrNoInstantiator = errors.New("no instantiator configured")

// Dispatcher is the runtime target of rewritten sites.
// The first dispatch of a join point resolves whether it is intercepted, the result is
// cached and untouched join points go straight to the original code.
//
// Dispatcher 织入代码的运行时分发器
type Dispatcher struct {
	builder      *ChainBuilder
	introspector types.Introspector
	instantiator types.Instantiator
	// resolved join point key -> *InterceptorChain, nil when not intercepted
	resolved sync.Map
}

// NewDispatcher creates a dispatcher. A nil introspector intercepts nothing.
func NewDispatcher(builder *ChainBuilder, introspector types.Introspector, instantiator types.Instantiator) *Dispatcher {
	if introspector == nil {
		introspector = types.TypeTable{}
	}
	return &Dispatcher{builder: builder, introspector: introspector, instantiator: instantiator}
}

// Construct creates an instance of typeName, running the constructor chain of the type
// when it has one.
func (d *Dispatcher) Construct(typeName string, args []any) (any, error) {
	typeName = types.TrimName(typeName)
	direct := func(_ any, args []any) (any, error) {
		if d.instantiator == nil {
			return nil, ErrNoInstantiator
		}
		return d.instantiator.New(typeName, args)
	}
	chain, err := d.resolve("init:"+strings.ToLower(typeName), func() (*types.JoinPoint, bool) {
		info, ok := d.introspector.Type(typeName)
		if !ok {
			return nil, false
		}
		ctor, _ := info.Constructor()
		return info.JoinPoint(ctor), true
	})
	if err != nil {
		return nil, err
	}
	if chain == nil {
		return direct(nil, args)
	}
	return chain.Invoke(nil, args, direct)
}

// Call runs the method chain of typeName::member around original.
func (d *Dispatcher) Call(typeName, member string, this any, args []any, original Target) (any, error) {
	typeName = types.TrimName(typeName)
	chain, err := d.resolve("method:"+strings.ToLower(typeName)+"::"+strings.ToLower(member), func() (*types.JoinPoint, bool) {
		info, ok := d.introspector.Type(typeName)
		if !ok {
			return nil, false
		}
		m, ok := info.Member(types.MemberMethod, member)
		if !ok {
			return nil, false
		}
		return info.JoinPoint(m), true
	})
	if err != nil {
		return nil, err
	}
	if chain == nil {
		return original(this, args)
	}
	return chain.Invoke(this, args, original)
}

// Intercepted reports whether a join point key was resolved to a non-empty chain.
// Keys are lower-cased: init:type or method:type::member.
func (d *Dispatcher) Intercepted(key string) (resolved bool, intercepted bool) {
	v, ok := d.resolved.Load(key)
	if !ok {
		return false, false
	}
	return true, v.(*InterceptorChain) != nil
}

func (d *Dispatcher) resolve(key string, joinPoint func() (*types.JoinPoint, bool)) (*InterceptorChain, error) {
	if v, ok := d.resolved.Load(key); ok {
		return v.(*InterceptorChain), nil
	}
	var chain *InterceptorChain
	if jp, ok := joinPoint(); ok {
		built, err := d.builder.Build(jp)
		if err != nil {
			return nil, err
		}
		if !built.Empty() {
			chain = built
		}
	}
	v, _ := d.resolved.LoadOrStore(key, chain)
	return v.(*InterceptorChain), nil
}
