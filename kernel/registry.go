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

package kernel

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rulego/weaver/api/types"
)

// Registry 切面类型默认注册器，按名称启用切面 (aspects 配置项)
var Registry = NewAspectRegistry()

// AspectRegistry 切面注册器
type AspectRegistry struct {
	aspects map[string]types.Aspect
	sync.RWMutex
}

// NewAspectRegistry creates an empty registry.
func NewAspectRegistry() *AspectRegistry {
	return &AspectRegistry{aspects: make(map[string]types.Aspect)}
}

// Register 注册切面类型
func (r *AspectRegistry) Register(aspect types.Aspect) error {
	if aspect == nil {
		return errors.New("aspect is nil")
	}
	r.Lock()
	defer r.Unlock()
	if _, ok := r.aspects[aspect.Type()]; ok {
		return errors.New("the aspect already exists. aspectType=" + aspect.Type())
	}
	r.aspects[aspect.Type()] = aspect
	return nil
}

// Unregister removes an aspect type.
func (r *AspectRegistry) Unregister(aspectType string) error {
	r.Lock()
	defer r.Unlock()
	if _, ok := r.aspects[aspectType]; !ok {
		return fmt.Errorf("aspect not found.aspectType=%s", aspectType)
	}
	delete(r.aspects, aspectType)
	return nil
}

// New 获取切面实例。实现 types.AspectFactory 的切面每次返回新实例
func (r *AspectRegistry) New(aspectType string) (types.Aspect, error) {
	r.RLock()
	defer r.RUnlock()
	aspect, ok := r.aspects[aspectType]
	if !ok {
		return nil, fmt.Errorf("aspect not found.aspectType=%s", aspectType)
	}
	if f, ok := aspect.(types.AspectFactory); ok {
		return f.New(), nil
	}
	return aspect, nil
}

// Names returns the registered aspect types, sorted.
func (r *AspectRegistry) Names() []string {
	r.RLock()
	defer r.RUnlock()
	names := make([]string, 0, len(r.aspects))
	for k := range r.aspects {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
