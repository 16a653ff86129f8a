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

package treesitter

import (
	"strings"
	"sync"
	"testing"

	"github.com/rulego/weaver/api/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const source = `<?php
namespace App;

use App\Models\Foo;

class Service
{
    // build one
    public function make($a)
    {
        return new Foo($a, "x (y");
    }
}
`

func text(tokens []types.Token) string {
	var b strings.Builder
	for _, t := range tokens {
		b.WriteString(t.Text)
	}
	return b.String()
}

func TestTokenize(t *testing.T) {
	tokens, err := New().Tokenize([]byte(source))
	require.NoError(t, err)
	assert.Equal(t, source, text(tokens))

	var sawNew, sawVar, sawString, sawComment bool
	for _, tok := range tokens {
		assert.Equal(t, tok.Text, source[tok.Offset:tok.Offset+len(tok.Text)])
		switch {
		case tok.IsKeyword("new"):
			sawNew = true
		case tok.Kind == types.TokenVariable:
			sawVar = tok.Text == "$a"
		case tok.Kind == types.TokenString:
			sawString = tok.Text == `"x (y"`
		case tok.Kind == types.TokenComment:
			sawComment = true
		}
	}
	assert.True(t, sawNew)
	assert.True(t, sawVar)
	assert.True(t, sawString)
	assert.True(t, sawComment)
	assert.Equal(t, types.TokenOpenTag, tokens[0].Kind)
}

func TestTokenizeFragment(t *testing.T) {
	fragment := `$x = new \App\Foo($y);`
	tokens, err := New().Tokenize([]byte(fragment))
	require.NoError(t, err)
	assert.Equal(t, fragment, text(tokens))
	assert.Equal(t, 0, tokens[0].Offset)
	assert.Equal(t, types.TokenVariable, tokens[0].Kind)
}

func TestTokenizeSyntaxError(t *testing.T) {
	_, err := New().Tokenize([]byte("<?php class {{{"))
	assert.ErrorIs(t, err, ErrSyntax)
}

func TestTokenizeConcurrent(t *testing.T) {
	l := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tokens, err := l.Tokenize([]byte(source))
			assert.NoError(t, err)
			assert.Equal(t, source, text(tokens))
		}()
	}
	wg.Wait()
}
