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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunSnapshot(t *testing.T) {
	snapshot := (&RunSnapshot{Capacity: 2}).New().(*RunSnapshot)
	var mu sync.Mutex
	var completed []Snapshot
	snapshot.SetOnCompleted(func(s Snapshot) {
		mu.Lock()
		completed = append(completed, s)
		mu.Unlock()
	})
	chain := build(t, userSave(), snapshot)

	for i := 0; i < 3; i++ {
		_, err := chain.Invoke(nil, []any{i}, func(this any, args []any) (any, error) { return args[0], nil })
		require.NoError(t, err)
	}
	_, err := chain.Invoke(nil, []any{3}, func(this any, args []any) (any, error) { return nil, errSave })
	require.ErrorIs(t, err, errSave)

	history := snapshot.Snapshots()
	require.Len(t, history, 2)
	assert.Equal(t, 2, history[0].Result)
	assert.Equal(t, errSave.Error(), history[1].Err)
	assert.Equal(t, userSave().Key(), history[1].JoinPoint)
	assert.NotEqual(t, history[0].Id, history[1].Id)
	assert.GreaterOrEqual(t, history[1].Duration().Milliseconds(), int64(0))
	assert.Len(t, completed, 4)
}
