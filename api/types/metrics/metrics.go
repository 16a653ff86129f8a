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

package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
)

// InvocationMetrics holds execution counters of one join point.
type InvocationMetrics struct {
	Current int64 // Number of currently running invocations
	Total   int64 // Total number of invocations
	Failed  int64 // Number of invocations that returned an error
	Success int64 // Number of successful invocations
}

// Start records the beginning of an invocation.
func (m *InvocationMetrics) Start() {
	atomic.AddInt64(&m.Current, 1)
	atomic.AddInt64(&m.Total, 1)
}

// Done records the end of an invocation.
func (m *InvocationMetrics) Done(err error) {
	if err != nil {
		atomic.AddInt64(&m.Failed, 1)
	} else {
		atomic.AddInt64(&m.Success, 1)
	}
	atomic.AddInt64(&m.Current, -1)
}

// Get returns a copy of the current metrics.
func (m *InvocationMetrics) Get() InvocationMetrics {
	return InvocationMetrics{
		Current: atomic.LoadInt64(&m.Current),
		Total:   atomic.LoadInt64(&m.Total),
		Failed:  atomic.LoadInt64(&m.Failed),
		Success: atomic.LoadInt64(&m.Success),
	}
}

// Reset resets all metrics to zero.
func (m *InvocationMetrics) Reset() {
	atomic.StoreInt64(&m.Current, 0)
	atomic.StoreInt64(&m.Total, 0)
	atomic.StoreInt64(&m.Failed, 0)
	atomic.StoreInt64(&m.Success, 0)
}

// Registry keeps one InvocationMetrics per join point key.
type Registry struct {
	items sync.Map
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// For returns the metrics of a join point key, creating them on first use.
func (r *Registry) For(key string) *InvocationMetrics {
	if m, ok := r.items.Load(key); ok {
		return m.(*InvocationMetrics)
	}
	m, _ := r.items.LoadOrStore(key, &InvocationMetrics{})
	return m.(*InvocationMetrics)
}

// Snapshot returns a copy of all metrics keyed by join point key.
func (r *Registry) Snapshot() map[string]InvocationMetrics {
	var result = map[string]InvocationMetrics{}
	r.items.Range(func(k, v any) bool {
		result[k.(string)] = v.(*InvocationMetrics).Get()
		return true
	})
	return result
}

// Keys returns the tracked join point keys, sorted.
func (r *Registry) Keys() []string {
	var keys []string
	r.items.Range(func(k, _ any) bool {
		keys = append(keys, k.(string))
		return true
	})
	sort.Strings(keys)
	return keys
}

// Reset resets all tracked metrics.
func (r *Registry) Reset() {
	r.items.Range(func(_, v any) bool {
		v.(*InvocationMetrics).Reset()
		return true
	})
}
