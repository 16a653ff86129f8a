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

package transformer

import (
	"strings"

	"github.com/rulego/weaver/api/types"
	"github.com/rulego/weaver/lexer"
)

// scope follows namespace and import statements while a transformer walks a unit.
type scope struct {
	// fixed is set when the alias table comes from the introspection provider
	fixed   bool
	aliases *types.AliasTable
	depth   int
	nsDepth int
}

func newScope(unit *types.SourceUnit) *scope {
	if unit.Aliases != nil {
		return &scope{fixed: true, aliases: unit.Aliases}
	}
	return &scope{aliases: types.NewAliasTable("")}
}

// visit updates the scope with the token at i and returns the index of the last token it consumed.
func (sc *scope) visit(s *lexer.Stream, i int) int {
	tok := s.At(i)
	switch {
	case tok.IsPunct("{"):
		sc.depth++
	case tok.IsPunct("}"):
		sc.depth--
	case tok.IsKeyword("namespace"):
		return sc.namespace(s, i)
	case tok.IsKeyword("use") && sc.depth == sc.nsDepth:
		return sc.use(s, i)
	}
	return i
}

func (sc *scope) namespace(s *lexer.Stream, i int) int {
	j := s.NextSignificant(i)
	if j < 0 || s.At(i+1).Kind == types.TokenNsSeparator {
		// namespace\Name is a relative name, not a declaration
		return i
	}
	name, end := "", j
	if s.At(j).IsName() {
		name, end = s.Name(j)
	}
	next := sigAt(s, end)
	if s.At(next).IsPunct("{") {
		sc.nsDepth = sc.depth + 1
	} else {
		sc.nsDepth = sc.depth
	}
	if !sc.fixed {
		sc.aliases = types.NewAliasTable(name)
	}
	return end - 1
}

// use parses an import statement and returns the index of its terminating semicolon.
func (sc *scope) use(s *lexer.Stream, i int) int {
	j := s.NextSignificant(i)
	if j < 0 || s.At(j).IsPunct("(") {
		return i
	}
	semicolon := s.Find(j, func(t types.Token) bool { return t.IsPunct(";") })
	if semicolon < 0 {
		return i
	}
	first := s.At(j)
	if first.IsKeyword("function") || first.IsKeyword("const") {
		return semicolon
	}
	for _, c := range parseUse(s, j, semicolon) {
		if !sc.fixed {
			sc.aliases.Add(c.name, c.alias)
		}
	}
	return semicolon
}

type useClause struct {
	name  string
	alias string
}

// parseUse parses `A\B [as C], D\{E, F as G}` between from and the semicolon at to.
func parseUse(s *lexer.Stream, from, to int) []useClause {
	var result []useClause
	prefix := ""
	j := from
	for j >= 0 && j < to {
		name, end := s.Name(j)
		if name == "" {
			j = s.NextSignificant(j)
			continue
		}
		next := sigAt(s, end)
		if strings.HasSuffix(name, `\`) && s.At(next).IsPunct("{") {
			prefix = name
			j = s.NextSignificant(next)
			continue
		}
		alias := ""
		if s.At(next).IsKeyword("as") {
			a := s.NextSignificant(next)
			alias = s.At(a).Text
			next = s.NextSignificant(a)
		}
		if !strings.EqualFold(name, "function") && !strings.EqualFold(name, "const") {
			result = append(result, useClause{name: prefix + name, alias: alias})
		}
		if s.At(next).IsPunct("}") {
			prefix = ""
			next = s.NextSignificant(next)
		}
		if next < 0 || next >= to {
			break
		}
		j = s.NextSignificant(next)
	}
	return result
}

// sigAt returns i when token i is significant, otherwise the next significant index.
func sigAt(s *lexer.Stream, i int) int {
	if i >= 0 && i < s.Len() && !s.At(i).Trivia() {
		return i
	}
	return s.NextSignificant(i)
}

// ParseAliases returns the namespace and imports declared by a unit. With several
// namespaces the last one wins.
func ParseAliases(unit *types.SourceUnit) (*types.AliasTable, error) {
	tokens, err := unit.Tokens()
	if err != nil {
		return nil, err
	}
	s := lexer.NewStream(tokens)
	sc := &scope{aliases: types.NewAliasTable("")}
	for i := 0; i < s.Len(); i++ {
		i = sc.visit(s, i)
	}
	return sc.aliases, nil
}
