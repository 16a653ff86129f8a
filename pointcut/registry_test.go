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
	"errors"
	"testing"

	"github.com/rulego/weaver/api/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryReferences(t *testing.T) {
	r := NewRegistry(nil)
	repos, err := r.Declare("repositories", `within(App\Repository\**)`)
	require.NoError(t, err)
	assert.Equal(t, "repositories", repos.ID())

	p, err := r.Compile(`pointcut(repositories) && execution(App\**->find*(*))`)
	require.NoError(t, err)
	assert.True(t, p.Matches(method(`App\Repository\Users`, "findAll", types.Public)))
	assert.False(t, p.Matches(method(`App\Service\Users`, "findAll", types.Public)))

	bare, err := r.Compile("repositories")
	require.NoError(t, err)
	assert.Same(t, repos, bare)

	assert.Equal(t, []string{"repositories"}, r.IDs())
}

func TestRegistryDuplicate(t *testing.T) {
	r := NewRegistry(nil)
	_, err := r.Declare("a", `within(App\**)`)
	require.NoError(t, err)
	_, err = r.Declare("a", `within(Lib\**)`)
	var resolution *types.PointcutResolutionError
	assert.True(t, errors.As(err, &resolution))

	_, err = r.Declare("a b", `within(Lib\**)`)
	assert.Error(t, err)
}

func TestRegistryAnnotationTypes(t *testing.T) {
	table := types.TypeTable{}
	table.Add(types.TypeInfo{Name: `App\Annotation\Cacheable`})
	r := NewRegistry(table)

	_, err := r.Compile(`@annotation(\App\Annotation\Cacheable)`)
	assert.NoError(t, err)

	_, err = r.Compile(`@annotation(App\Annotation\Missing)`)
	var resolution *types.PointcutResolutionError
	require.True(t, errors.As(err, &resolution))
	assert.Contains(t, resolution.Reason, "unknown annotation type")
}
