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

package metadata

import (
	"testing"

	"github.com/rulego/weaver/api/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadDocBlock(t *testing.T) {
	block := `/**
	 * Saves the entity.
	 *
	 * @param string $name
	 * @Pointcut(id="repositories", value="within(App\Repository\**)")
	 * @Around("pointcut(repositories) && @annotation(App\Cacheable)")
	 * @\App\Annotation\Cacheable(ttl=60)
	 * @return void
	 */`
	annotations, err := NewReader().Read(block)
	require.NoError(t, err)
	require.Len(t, annotations, 3)

	assert.Equal(t, []string{"Pointcut", "Around", `App\Annotation\Cacheable`}, annotations.Names())
	pc, ok := annotations.Get("pointcut")
	require.True(t, ok)
	assert.Equal(t, "repositories", pc.Attributes["id"])
	assert.Equal(t, `within(App\Repository\**)`, pc.Value())

	around, _ := annotations.Get("Around")
	assert.Equal(t, `pointcut(repositories) && @annotation(App\Cacheable)`, around.Value())

	cacheable, ok := annotations.Get(`\App\Annotation\Cacheable`)
	require.True(t, ok)
	assert.Equal(t, "60", cacheable.Attributes["ttl"])
}

func TestReadEscapedQuote(t *testing.T) {
	annotations, err := NewReader().Read(`@Before("if(""Type == 'x'"")")`)
	require.NoError(t, err)
	require.Len(t, annotations, 1)
	assert.Equal(t, `if("Type == 'x'")`, annotations[0].Value())
}

func TestReadMarkerOnly(t *testing.T) {
	annotations, err := NewReader().Read("/** @Service */")
	require.NoError(t, err)
	assert.Equal(t, types.Annotations{{Name: "Service", Attributes: map[string]string{}}}, annotations)

	annotations, err = NewReader().Read("contact me at dev@Example.org")
	require.NoError(t, err)
	assert.Empty(t, annotations)
}

func TestReadStrict(t *testing.T) {
	r := NewReader(WithStrict("Before", "After"))
	_, err := r.Read(`@Before("within(App\**)")`)
	assert.NoError(t, err)
	_, err = r.Read(`@Befor("within(App\**)")`)
	assert.Error(t, err)
	// documentation tags are not annotations
	_, err = r.Read(`@param int $x`)
	assert.NoError(t, err)
}

func TestReadErrors(t *testing.T) {
	for _, block := range []string{
		`@Before("open`,
		`@Before("a", "b")`,
		`@Before(id="a", id="b")`,
		`@Before("a" "b")`,
		`@Before(`,
		`@Before(,)`,
	} {
		_, err := NewReader().Read(block)
		assert.Error(t, err, block)
	}
}
