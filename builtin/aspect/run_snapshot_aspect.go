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

	"github.com/gofrs/uuid/v5"
	"github.com/rulego/weaver/api/types"
)

// Snapshot is the record of one invocation.
type Snapshot struct {
	Id        string               `json:"id"`
	JoinPoint string               `json:"joinPoint"`
	Location  types.SourceLocation `json:"location"`
	Arguments []any                `json:"arguments"`
	Result    any                  `json:"result,omitempty"`
	Err       string               `json:"err,omitempty"`
	StartTs   int64                `json:"startTs"`
	EndTs     int64                `json:"endTs"`
}

// Duration of the invocation.
func (s Snapshot) Duration() time.Duration {
	return time.Duration(s.EndTs-s.StartTs) * time.Millisecond
}

var (
	_ types.AdvisorProvider = (*RunSnapshot)(nil)
	_ types.AspectFactory   = (*RunSnapshot)(nil)
)

// RunSnapshot records a Snapshot of every matched invocation. It is declared first so the
// snapshot shows the arguments as passed and the result as returned to the caller.
// The last Capacity snapshots are kept; OnCompleted, when set, receives each of them.
// RunSnapshot 运行快照切面
type RunSnapshot struct {
	Pointcut string
	// Capacity of the kept history, default 100
	Capacity    int
	OnCompleted func(snapshot Snapshot)

	mu      sync.Mutex
	history []Snapshot
}

func (a *RunSnapshot) Order() int {
	return 5
}

func (a *RunSnapshot) New() types.Aspect {
	capacity := a.Capacity
	if capacity <= 0 {
		capacity = 100
	}
	return &RunSnapshot{Pointcut: a.Pointcut, Capacity: capacity, OnCompleted: a.OnCompleted}
}

func (a *RunSnapshot) Type() string {
	return "runSnapshot"
}

func (a *RunSnapshot) Advisors() []types.AdviceDecl {
	return []types.AdviceDecl{
		advisor(types.PhaseAround, orDefault(a.Pointcut, AnyPointcut), "Around", a.Around),
	}
}

func (a *RunSnapshot) Around(inv types.Invocation) (any, error) {
	jp := inv.JoinPoint()
	snapshot := Snapshot{
		Id:        uuid.Must(uuid.NewV4()).String(),
		JoinPoint: jp.Key(),
		Location:  jp.Location,
		Arguments: append([]any(nil), inv.Arguments()...),
		StartTs:   time.Now().UnixMilli(),
	}
	result, err := inv.Proceed()
	snapshot.EndTs = time.Now().UnixMilli()
	snapshot.Result = result
	if err != nil {
		snapshot.Err = err.Error()
	}
	a.collect(snapshot)
	return result, err
}

func (a *RunSnapshot) collect(snapshot Snapshot) {
	a.mu.Lock()
	capacity := a.Capacity
	if capacity <= 0 {
		capacity = 100
	}
	if len(a.history) >= capacity {
		a.history = append(a.history[:0], a.history[len(a.history)-capacity+1:]...)
	}
	a.history = append(a.history, snapshot)
	onCompleted := a.OnCompleted
	a.mu.Unlock()
	if onCompleted != nil {
		onCompleted(snapshot)
	}
}

// Snapshots returns the kept history, oldest first.
func (a *RunSnapshot) Snapshots() []Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Snapshot(nil), a.history...)
}

// SetOnCompleted replaces the completion callback.
func (a *RunSnapshot) SetOnCompleted(fn func(snapshot Snapshot)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.OnCompleted = fn
}
