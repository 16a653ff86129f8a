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
	"sort"
	"sync"

	"github.com/rulego/weaver/api/types"
)

// Index is the global (Pointcut, Advice) registry.
// It is append-only until Freeze and read-only afterwards.
type Index struct {
	// advices in registration order
	advices []*types.Advice
	// frozen is set once init completed
	frozen bool
	// RWMutex guards registration; reads after Freeze take only the read lock
	sync.RWMutex
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{}
}

// Add registers advices. It fails with types.ErrRegistryFrozen after Freeze.
func (x *Index) Add(advices ...*types.Advice) error {
	x.Lock()
	defer x.Unlock()
	if x.frozen {
		return types.ErrRegistryFrozen
	}
	for _, a := range advices {
		if a == nil {
			return errors.New("advice is nil")
		}
		if a.Pointcut == nil {
			return errors.New("advice has no pointcut. advice=" + a.String())
		}
	}
	x.advices = append(x.advices, advices...)
	return nil
}

// Freeze makes the index read-only.
func (x *Index) Freeze() {
	x.Lock()
	defer x.Unlock()
	x.frozen = true
}

// Frozen reports whether Freeze was called.
func (x *Index) Frozen() bool {
	x.RLock()
	defer x.RUnlock()
	return x.frozen
}

// Len returns the number of registered advices.
func (x *Index) Len() int {
	x.RLock()
	defer x.RUnlock()
	return len(x.advices)
}

// Advices returns a copy of the registered advices in registration order.
func (x *Index) Advices() []*types.Advice {
	x.RLock()
	defer x.RUnlock()
	var result = make([]*types.Advice, len(x.advices))
	copy(result, x.advices)
	return result
}

// Matching returns the advices whose pointcut selects jp, in chain order.
func (x *Index) Matching(jp *types.JoinPoint) []*types.Advice {
	x.RLock()
	var result []*types.Advice
	for _, a := range x.advices {
		if a.Matches(jp) {
			result = append(result, a)
		}
	}
	x.RUnlock()
	SortAdvices(result)
	return result
}

// SortAdvices sorts advices into chain order, outermost first: aspect declaration index,
// then phase rank, then declaration index inside the aspect.
func SortAdvices(advices []*types.Advice) {
	sort.SliceStable(advices, func(i, j int) bool {
		a, b := advices[i], advices[j]
		if a.AspectIndex != b.AspectIndex {
			return a.AspectIndex < b.AspectIndex
		}
		if a.Phase.Rank() != b.Phase.Rank() {
			return a.Phase.Rank() < b.Phase.Rank()
		}
		return a.Index < b.Index
	})
}
