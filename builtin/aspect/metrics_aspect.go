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
	"fmt"

	"github.com/rulego/weaver/api/types"
	"github.com/rulego/weaver/api/types/metrics"
)

var (
	_ types.AdvisorProvider = (*Metrics)(nil)
	_ types.AspectFactory   = (*Metrics)(nil)
)

// Metrics counts current, total, failed and successful invocations per join point.
type Metrics struct {
	Pointcut string
	metrics  *metrics.Registry
}

// NewMetrics creates the aspect. A nil registry gets a new one.
func NewMetrics(m *metrics.Registry) *Metrics {
	if m == nil {
		m = metrics.NewRegistry()
	}
	return &Metrics{metrics: m}
}

func (a *Metrics) Order() int {
	return 20
}

// New shares the registry of the prototype. A prototype without one gets a new registry.
func (a *Metrics) New() types.Aspect {
	m := a.metrics
	if m == nil {
		m = metrics.NewRegistry()
	}
	return &Metrics{Pointcut: a.Pointcut, metrics: m}
}

func (a *Metrics) Type() string {
	return "metrics"
}

func (a *Metrics) Advisors() []types.AdviceDecl {
	return []types.AdviceDecl{
		advisor(types.PhaseAround, orDefault(a.Pointcut, AnyPointcut), "Around", a.Around),
	}
}

func (a *Metrics) Around(inv types.Invocation) (result any, err error) {
	m := a.GetMetrics().For(inv.JoinPoint().Key())
	m.Start()
	defer func() {
		if r := recover(); r != nil {
			m.Done(fmt.Errorf("panic: %v", r))
			panic(r)
		}
		m.Done(err)
	}()
	return inv.Proceed()
}

// GetMetrics 返回当前的指标
func (a *Metrics) GetMetrics() *metrics.Registry {
	if a.metrics == nil {
		a.metrics = metrics.NewRegistry()
	}
	return a.metrics
}
