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

package pointcut

import (
	"sort"
	"strings"
	"sync"

	"github.com/rulego/weaver/api/types"
)

var _ Resolver = (*Registry)(nil)

// Registry keeps the named pointcuts of a kernel and compiles expressions against them.
type Registry struct {
	introspector types.Introspector
	lock         sync.RWMutex
	pointcuts    map[string]*Pointcut
}

// NewRegistry creates a registry. A nil introspector accepts every annotation type.
func NewRegistry(introspector types.Introspector) *Registry {
	return &Registry{
		introspector: introspector,
		pointcuts:    make(map[string]*Pointcut),
	}
}

// Declare compiles and registers a named pointcut.
func (r *Registry) Declare(id, expr string) (*Pointcut, error) {
	id = strings.TrimSpace(id)
	if id == "" || strings.ContainsAny(id, "()&|! ") {
		return nil, &types.PointcutResolutionError{Expression: expr, Reason: "invalid pointcut id " + id}
	}
	if _, ok := r.Pointcut(id); ok {
		return nil, &types.PointcutResolutionError{Expression: expr, Reason: "duplicate pointcut id " + id}
	}
	p, err := ParseNamed(id, expr, r)
	if err != nil {
		return nil, err
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	r.pointcuts[id] = p
	return p, nil
}

// Compile compiles an expression. A bare id of a declared pointcut returns that pointcut.
func (r *Registry) Compile(expr string) (types.Pointcut, error) {
	if p, ok := r.Pointcut(strings.TrimSpace(expr)); ok {
		return p, nil
	}
	return Parse(expr, r)
}

// Pointcut implements Resolver.
func (r *Registry) Pointcut(id string) (types.Pointcut, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	p, ok := r.pointcuts[id]
	if !ok {
		return nil, false
	}
	return p, true
}

// HasType implements Resolver.
func (r *Registry) HasType(name string) bool {
	if r.introspector == nil {
		return true
	}
	_, ok := r.introspector.Type(name)
	return ok
}

// IDs returns the declared pointcut ids, sorted.
func (r *Registry) IDs() []string {
	r.lock.RLock()
	defer r.lock.RUnlock()
	var ids = make([]string, 0, len(r.pointcuts))
	for id := range r.pointcuts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
