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

// Package treesitter derives the token stream from the tree-sitter PHP grammar.
// It rejects sources with syntax errors, which the default scanner tokenizes anyway.
package treesitter

import (
	"context"
	"errors"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/php"

	"github.com/rulego/weaver/api/types"
	"github.com/rulego/weaver/lexer"
)

// ErrSyntax is returned for sources the grammar cannot parse.
var ErrSyntax = errors.New("syntax error")

var _ types.Lexer = (*Lexer)(nil)

// fragments are parsed behind this prefix
const fragmentPrefix = "<?php "

// nodes emitted as a single token
var atomic = map[string]types.TokenKind{
	"php_tag":                  types.TokenOpenTag,
	"text":                     types.TokenInlineHTML,
	"comment":                  types.TokenComment,
	"variable_name":            types.TokenVariable,
	"string":                   types.TokenString,
	"encapsed_string":          types.TokenString,
	"heredoc":                  types.TokenString,
	"nowdoc":                   types.TokenString,
	"shell_command_expression": types.TokenString,
	"integer":                  types.TokenNumber,
	"float":                    types.TokenNumber,
}

// Lexer tokenizes with a pool of tree-sitter parsers. A parser is not safe for concurrent use.
type Lexer struct {
	pool sync.Pool
}

// New creates a tree-sitter lexer.
func New() *Lexer {
	return &Lexer{
		pool: sync.Pool{
			New: func() any {
				p := sitter.NewParser()
				p.SetLanguage(php.GetLanguage())
				return p
			},
		},
	}
}

// Tokenize implements types.Lexer.
func (l *Lexer) Tokenize(source []byte) ([]types.Token, error) {
	content := source
	shift := 0
	if !strings.Contains(string(source), "<?") {
		content = append([]byte(fragmentPrefix), source...)
		shift = len(fragmentPrefix)
	}
	parser := l.pool.Get().(*sitter.Parser)
	defer l.pool.Put(parser)

	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()
	root := tree.RootNode()
	if root.HasError() {
		return nil, ErrSyntax
	}

	w := &walker{src: content, shift: shift, line: 1}
	w.walk(root)
	w.gap(len(content))
	return w.tokens, nil
}

type walker struct {
	src    []byte
	shift  int
	pos    int
	line   int
	tokens []types.Token
}

func (w *walker) walk(n *sitter.Node) {
	kind, isAtomic := atomic[n.Type()]
	if !isAtomic && n.ChildCount() > 0 {
		for i := 0; i < int(n.ChildCount()); i++ {
			w.walk(n.Child(i))
		}
		return
	}
	start, end := int(n.StartByte()), int(n.EndByte())
	if end <= start || start < w.pos {
		return
	}
	w.gap(start)
	if !isAtomic {
		kind = classify(n.Type(), string(w.src[start:end]))
	}
	w.emit(kind, end)
}

// gap emits the bytes between leaves, whitespace in a well-formed tree.
func (w *walker) gap(to int) {
	if to <= w.pos {
		return
	}
	kind := types.TokenWhitespace
	if strings.TrimSpace(string(w.src[w.pos:to])) != "" {
		kind = types.TokenOther
	}
	w.emit(kind, to)
}

func (w *walker) emit(kind types.TokenKind, end int) {
	text := string(w.src[w.pos:end])
	if end > w.shift {
		from := w.pos
		if from < w.shift {
			from = w.shift
			text = string(w.src[from:end])
		}
		w.tokens = append(w.tokens, types.Token{Kind: kind, Text: text, Offset: from - w.shift, Line: w.line})
	}
	w.line += strings.Count(text, "\n")
	w.pos = end
}

func classify(nodeType, text string) types.TokenKind {
	switch {
	case nodeType == "?>":
		return types.TokenCloseTag
	case text == `\`:
		return types.TokenNsSeparator
	case text == "":
		return types.TokenOther
	}
	c := text[0]
	if c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= 0x80 {
		if lexer.IsKeyword(text) {
			return types.TokenKeyword
		}
		return types.TokenIdent
	}
	return types.TokenPunct
}
