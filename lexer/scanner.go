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

// Package lexer tokenizes host source text for the source transformers.
//
// The Scanner is byte preserving: concatenating the text of all tokens yields the input.
// It only distinguishes what the transformers need (names, keywords, variables,
// strings, comments and punctuation) and is not a validating parser.
//
// 词法分析器，输出的 token 拼接后与源码完全一致。
package lexer

import (
	"fmt"
	"strings"

	"github.com/rulego/weaver/api/types"
)

var _ types.Lexer = (*Scanner)(nil)

var keywords = map[string]bool{
	"abstract":   true,
	"as":         true,
	"class":      true,
	"const":      true,
	"extends":    true,
	"final":      true,
	"fn":         true,
	"function":   true,
	"implements": true,
	"instanceof": true,
	"interface":  true,
	"namespace":  true,
	"new":        true,
	"private":    true,
	"protected":  true,
	"public":     true,
	"readonly":   true,
	"return":     true,
	"static":     true,
	"trait":      true,
	"use":        true,
	"var":        true,
	"yield":      true,
}

// IsKeyword reports whether word is a reserved word of the scanner.
func IsKeyword(word string) bool {
	return keywords[strings.ToLower(word)]
}

// longest first
var puncts = []string{
	"<<=", ">>=", "**=", "...", "<=>", "===", "!==", "??=", "?->",
	"::", "->", "=>", "++", "--", "==", "!=", "<>", "<=", ">=", "&&", "||", "??",
	"+=", "-=", "*=", "/=", ".=", "%=", "&=", "|=", "^=", "<<", ">>", "**", "#[",
}

// Scanner is the default lexer of the host grammar.
type Scanner struct{}

// New creates a scanner.
func New() *Scanner {
	return &Scanner{}
}

// Tokenize implements types.Lexer.
func (s *Scanner) Tokenize(source []byte) ([]types.Token, error) {
	sc := &scan{src: string(source), line: 1}
	if !strings.Contains(sc.src, "<?") {
		// a fragment without open tag is code
		return sc.code()
	}
	return sc.html()
}

type scan struct {
	src    string
	pos    int
	line   int
	tokens []types.Token
}

func (s *scan) emit(kind types.TokenKind, end int) {
	text := s.src[s.pos:end]
	s.tokens = append(s.tokens, types.Token{Kind: kind, Text: text, Offset: s.pos, Line: s.line})
	s.line += strings.Count(text, "\n")
	s.pos = end
}

func (s *scan) errorf(format string, args ...any) error {
	return fmt.Errorf("line %d: "+format, append([]any{s.line}, args...)...)
}

// html scans inline text up to the next open tag.
func (s *scan) html() ([]types.Token, error) {
	for s.pos < len(s.src) {
		i := strings.Index(s.src[s.pos:], "<?")
		if i < 0 {
			s.emit(types.TokenInlineHTML, len(s.src))
			break
		}
		if i > 0 {
			s.emit(types.TokenInlineHTML, s.pos+i)
		}
		tag := "<?"
		switch {
		case strings.HasPrefix(strings.ToLower(s.src[s.pos:]), "<?php"):
			tag = s.src[s.pos : s.pos+5]
		case strings.HasPrefix(s.src[s.pos:], "<?="):
			tag = "<?="
		}
		s.emit(types.TokenOpenTag, s.pos+len(tag))
		if _, err := s.code(); err != nil {
			return nil, err
		}
	}
	return s.tokens, nil
}

// code scans until a close tag or the end of the source.
func (s *scan) code() ([]types.Token, error) {
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		rest := s.src[s.pos:]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v':
			end := s.pos
			for end < len(s.src) && strings.IndexByte(" \t\n\r\f\v", s.src[end]) >= 0 {
				end++
			}
			s.emit(types.TokenWhitespace, end)
		case strings.HasPrefix(rest, "?>"):
			end := s.pos + 2
			if end < len(s.src) && s.src[end] == '\n' {
				end++
			}
			s.emit(types.TokenCloseTag, end)
			return s.tokens, nil
		case strings.HasPrefix(rest, "//") || c == '#' && !strings.HasPrefix(rest, "#["):
			s.emit(types.TokenComment, s.lineCommentEnd())
		case strings.HasPrefix(rest, "/*"):
			i := strings.Index(rest[2:], "*/")
			if i < 0 {
				return nil, s.errorf("unterminated comment")
			}
			s.emit(types.TokenComment, s.pos+2+i+2)
		case c == '$' && s.pos+1 < len(s.src) && isNameStart(s.src[s.pos+1]):
			s.emit(types.TokenVariable, s.nameEnd(s.pos+1))
		case c == '\'' || c == '"' || c == '`':
			end, err := s.quoted(c)
			if err != nil {
				return nil, err
			}
			s.emit(types.TokenString, end)
		case strings.HasPrefix(rest, "<<<"):
			end, err := s.heredoc()
			if err != nil {
				return nil, err
			}
			if end < 0 {
				s.emit(types.TokenPunct, s.pos+2)
				continue
			}
			s.emit(types.TokenString, end)
		case c >= '0' && c <= '9' || c == '.' && s.pos+1 < len(s.src) && isDigit(s.src[s.pos+1]):
			s.emit(types.TokenNumber, s.numberEnd())
		case isNameStart(c):
			end := s.nameEnd(s.pos)
			kind := types.TokenIdent
			if keywords[strings.ToLower(s.src[s.pos:end])] {
				kind = types.TokenKeyword
			}
			s.emit(kind, end)
		case c == '\\':
			s.emit(types.TokenNsSeparator, s.pos+1)
		default:
			end := s.pos + 1
			for _, p := range puncts {
				if strings.HasPrefix(rest, p) {
					end = s.pos + len(p)
					break
				}
			}
			s.emit(types.TokenPunct, end)
		}
	}
	return s.tokens, nil
}

// lineCommentEnd stops before the newline or a close tag.
func (s *scan) lineCommentEnd() int {
	for i := s.pos; i < len(s.src); i++ {
		if s.src[i] == '\n' || s.src[i] == '\r' || strings.HasPrefix(s.src[i:], "?>") {
			return i
		}
	}
	return len(s.src)
}

func (s *scan) quoted(q byte) (int, error) {
	for i := s.pos + 1; i < len(s.src); i++ {
		switch s.src[i] {
		case '\\':
			i++
		case q:
			return i + 1, nil
		}
	}
	return 0, s.errorf("unterminated string")
}

// heredoc returns the end of a heredoc or nowdoc, -1 when `<<<` is not followed by a label.
func (s *scan) heredoc() (int, error) {
	i := s.pos + 3
	for i < len(s.src) && (s.src[i] == ' ' || s.src[i] == '\t') {
		i++
	}
	quote := byte(0)
	if i < len(s.src) && (s.src[i] == '\'' || s.src[i] == '"') {
		quote = s.src[i]
		i++
	}
	if i >= len(s.src) || !isNameStart(s.src[i]) {
		return -1, nil
	}
	labelEnd := s.nameEnd(i)
	label := s.src[i:labelEnd]
	i = labelEnd
	if quote != 0 {
		if i >= len(s.src) || s.src[i] != quote {
			return 0, s.errorf("malformed heredoc label %s", label)
		}
		i++
	}
	nl := strings.IndexByte(s.src[i:], '\n')
	if nl < 0 {
		return 0, s.errorf("unterminated heredoc %s", label)
	}
	i += nl + 1
	for i <= len(s.src) {
		lineEnd := strings.IndexByte(s.src[i:], '\n')
		if lineEnd < 0 {
			lineEnd = len(s.src) - i
		}
		line := strings.TrimLeft(s.src[i:i+lineEnd], " \t")
		if strings.HasPrefix(line, label) && (len(line) == len(label) || !isNameChar(line[len(label)])) {
			return i + (lineEnd - len(line)) + len(label), nil
		}
		if i+lineEnd >= len(s.src) {
			break
		}
		i += lineEnd + 1
	}
	return 0, s.errorf("unterminated heredoc %s", label)
}

func (s *scan) numberEnd() int {
	i := s.pos
	for i < len(s.src) {
		c := s.src[i]
		switch {
		case isNameChar(c), c == '.':
		case (c == '+' || c == '-') && i > s.pos && (s.src[i-1] == 'e' || s.src[i-1] == 'E') &&
			!strings.HasPrefix(strings.ToLower(s.src[s.pos:]), "0x"):
		default:
			return i
		}
		i++
	}
	return i
}

func (s *scan) nameEnd(i int) int {
	for i < len(s.src) && isNameChar(s.src[i]) {
		i++
	}
	return i
}

func isNameStart(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= 0x80
}

func isNameChar(c byte) bool {
	return isNameStart(c) || isDigit(c)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
