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

	"github.com/rulego/weaver/api/types"
)

// Stream gives index based access to a token slice.
type Stream struct {
	Tokens []types.Token
}

// NewStream wraps tokens.
func NewStream(tokens []types.Token) *Stream {
	return &Stream{Tokens: tokens}
}

// Len returns the number of tokens.
func (s *Stream) Len() int {
	return len(s.Tokens)
}

// At returns token i, the zero token when out of range.
func (s *Stream) At(i int) types.Token {
	if i < 0 || i >= len(s.Tokens) {
		return types.Token{}
	}
	return s.Tokens[i]
}

// NextSignificant returns the index of the first token after i that is not trivia, -1 if none.
func (s *Stream) NextSignificant(i int) int {
	for j := i + 1; j < len(s.Tokens); j++ {
		if !s.Tokens[j].Trivia() {
			return j
		}
	}
	return -1
}

// PrevSignificant returns the index of the last token before i that is not trivia, -1 if none.
func (s *Stream) PrevSignificant(i int) int {
	for j := i - 1; j >= 0; j-- {
		if !s.Tokens[j].Trivia() {
			return j
		}
	}
	return -1
}

// Find returns the index of the first token at or after from accepted by match, -1 if none.
func (s *Stream) Find(from int, match func(types.Token) bool) int {
	for j := from; j < len(s.Tokens); j++ {
		if match(s.Tokens[j]) {
			return j
		}
	}
	return -1
}

// Text concatenates the text of tokens [from, to).
func (s *Stream) Text(from, to int) string {
	if from < 0 {
		from = 0
	}
	if to > len(s.Tokens) {
		to = len(s.Tokens)
	}
	var b strings.Builder
	for j := from; j < to; j++ {
		b.WriteString(s.Tokens[j].Text)
	}
	return b.String()
}

// Name reads a namespaced name made of contiguous name and separator tokens starting at i.
// It returns the name and the index after it; an empty name when token i cannot start one.
func (s *Stream) Name(i int) (string, int) {
	var b strings.Builder
	j := i
	for ; j < len(s.Tokens); j++ {
		t := s.Tokens[j]
		if !t.IsName() && t.Kind != types.TokenNsSeparator {
			break
		}
		b.WriteString(t.Text)
	}
	return b.String(), j
}

var closers = map[string]string{"(": ")", "[": "]", "{": "}", "#[": "]"}

// MatchingClose returns the index of the bracket closing the one at open, -1 when unbalanced.
// Strings are atomic tokens, so brackets inside them are not counted.
func (s *Stream) MatchingClose(open int) int {
	t := s.At(open)
	if t.Kind != types.TokenPunct || closers[t.Text] == "" {
		return -1
	}
	var stack []string
	for j := open; j < len(s.Tokens); j++ {
		tok := s.Tokens[j]
		if tok.Kind != types.TokenPunct {
			continue
		}
		if closer, ok := closers[tok.Text]; ok {
			stack = append(stack, closer)
			continue
		}
		if tok.Text == ")" || tok.Text == "]" || tok.Text == "}" {
			if len(stack) == 0 || stack[len(stack)-1] != tok.Text {
				return -1
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return j
			}
		}
	}
	return -1
}
