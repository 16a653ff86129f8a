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

package lexer

import (
	"strings"
	"testing"

	"github.com/rulego/weaver/api/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `<html>
<?php
namespace App\Service;

use App\Models\Foo as Bar;

/** @Cacheable */
final class Mailer extends Base
{
    # legacy
    public function send(string $to, int ...$ids): ?Bar
    {
        $text = <<<EOT
        Hello "{$to}" (not a paren
        EOT;
        $raw = 'it\'s';
        $x = 0x1F + 1.5e-3;
        return new Bar($to, $this?->ids ?? [], static fn() => $text);
    }
}
?>
<p>done</p>
`

func concat(tokens []types.Token) string {
	var b strings.Builder
	for _, t := range tokens {
		b.WriteString(t.Text)
	}
	return b.String()
}

func significant(tokens []types.Token) []types.Token {
	var result []types.Token
	for _, t := range tokens {
		if !t.Trivia() {
			result = append(result, t)
		}
	}
	return result
}

func TestScannerRoundTrip(t *testing.T) {
	tokens, err := New().Tokenize([]byte(sample))
	require.NoError(t, err)
	assert.Equal(t, sample, concat(tokens))

	for i, tok := range tokens {
		assert.Equal(t, tok.Text, sample[tok.Offset:tok.Offset+len(tok.Text)], "token %d", i)
		assert.Equal(t, strings.Count(sample[:tok.Offset], "\n")+1, tok.Line, "token %d", i)
	}
}

func TestScannerKinds(t *testing.T) {
	tokens, err := New().Tokenize([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, types.TokenInlineHTML, tokens[0].Kind)
	assert.Equal(t, types.TokenOpenTag, tokens[1].Kind)
	assert.Equal(t, types.TokenInlineHTML, tokens[len(tokens)-1].Kind)

	var heredoc, newKw, closeTag, comments, variadic, nullsafe bool
	for _, tok := range tokens {
		switch {
		case tok.Kind == types.TokenString && strings.HasPrefix(tok.Text, "<<<EOT"):
			heredoc = strings.HasSuffix(tok.Text, "EOT")
		case tok.IsKeyword("new"):
			newKw = true
		case tok.Kind == types.TokenCloseTag:
			closeTag = true
		case tok.Kind == types.TokenComment:
			comments = true
		case tok.IsPunct("..."):
			variadic = true
		case tok.IsPunct("?->"):
			nullsafe = true
		}
	}
	assert.True(t, heredoc)
	assert.True(t, newKw)
	assert.True(t, closeTag)
	assert.True(t, comments)
	assert.True(t, variadic)
	assert.True(t, nullsafe)
}

func TestScannerFragment(t *testing.T) {
	tokens, err := New().Tokenize([]byte(`$a = new \App\Foo($b);`))
	require.NoError(t, err)
	sig := significant(tokens)
	var kinds []types.TokenKind
	for _, tok := range sig {
		kinds = append(kinds, tok.Kind)
	}
	assert.Equal(t, []types.TokenKind{
		types.TokenVariable, types.TokenPunct, types.TokenKeyword,
		types.TokenNsSeparator, types.TokenIdent, types.TokenNsSeparator, types.TokenIdent,
		types.TokenPunct, types.TokenVariable, types.TokenPunct, types.TokenPunct,
	}, kinds)
}

func TestScannerErrors(t *testing.T) {
	for _, src := range []string{
		`<?php $a = "open`,
		`<?php /* open`,
		"<?php $a = <<<EOT\nno end\n",
	} {
		_, err := New().Tokenize([]byte(src))
		assert.Error(t, err, src)
	}
}

func TestStream(t *testing.T) {
	tokens, err := New().Tokenize([]byte(`new \App\Foo(bar("(", [1, 2]), $c) + 1;`))
	require.NoError(t, err)
	s := NewStream(tokens)

	name, end := s.Name(s.NextSignificant(0))
	assert.Equal(t, `\App\Foo`, name)
	require.True(t, s.At(end).IsPunct("("))

	closeAt := s.MatchingClose(end)
	require.Greater(t, closeAt, end)
	assert.Equal(t, `(bar("(", [1, 2]), $c)`, s.Text(end, closeAt+1))
	assert.Equal(t, end, s.PrevSignificant(s.NextSignificant(end)))
	assert.Equal(t, -1, s.MatchingClose(0))
	assert.Equal(t, s.Len()-1, s.Find(0, func(tok types.Token) bool { return tok.IsPunct(";") }))

	unbalanced, err := New().Tokenize([]byte(`foo(]`))
	require.NoError(t, err)
	assert.Equal(t, -1, NewStream(unbalanced).MatchingClose(1))
}
