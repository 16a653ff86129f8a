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

	"github.com/rulego/weaver/api/types"
)

// ErrIllegalProceed is returned when an advice other than around calls Proceed.
var ErrIllegalProceed = errors.New("proceed is only available to around advices")

// invocation is one run of a chain.
type invocation struct {
	chain  *InterceptorChain
	this   any
	args   []any
	target Target
}

// proceed runs the chain from element i with args.
func (inv *invocation) proceed(i int) (any, error) {
	return inv.run(i, inv.args)
}

func (inv *invocation) run(i int, args []any) (any, error) {
	if i >= len(inv.chain.advices) {
		return inv.call(args)
	}
	f := &frame{inv: inv, advice: inv.chain.advices[i], next: i + 1, args: args}
	return f.intercept()
}

// call invokes the real join point. Its panics are marked so advice guards let them through.
func (inv *invocation) call(args []any) (any, error) {
	defer func() {
		if e := recover(); e != nil {
			panic(targetPanic{value: e})
		}
	}()
	return inv.target(inv.this, args)
}

var _ types.Invocation = (*frame)(nil)

// frame is the Invocation handed to one advice. Argument changes are seen by the
// downstream elements only.
type frame struct {
	inv    *invocation
	advice *types.Advice
	next   int
	args   []any
}

func (f *frame) JoinPoint() *types.JoinPoint {
	return f.inv.chain.jp
}

func (f *frame) This() any {
	return f.inv.this
}

func (f *frame) Arguments() []any {
	return f.args
}

func (f *frame) SetArguments(args ...any) {
	f.args = args
}

// Proceed runs the complete downstream sub-chain. Every call runs it again.
func (f *frame) Proceed() (any, error) {
	if f.advice.Phase != types.PhaseAround {
		return nil, ErrIllegalProceed
	}
	return f.downstream()
}

func (f *frame) downstream() (any, error) {
	return f.inv.run(f.next, f.args)
}
