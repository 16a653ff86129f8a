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
	"bytes"
	"strings"

	"github.com/rulego/weaver/api/types"
	"github.com/rulego/weaver/lexer"
)

// WovenMarker opens every woven method body.
const WovenMarker = "/*weaver:woven*/"

// MatchFunc reports whether a join point is intercepted.
type MatchFunc func(jp *types.JoinPoint) bool

var builtinTypes = map[string]bool{
	"int": true, "float": true, "string": true, "bool": true, "array": true, "callable": true,
	"iterable": true, "object": true, "mixed": true, "self": true, "static": true, "parent": true,
	"null": true, "void": true, "false": true, "true": true, "never": true,
}

var methodModifiers = map[string]bool{
	"public": true, "protected": true, "private": true, "static": true, "abstract": true, "final": true,
}

var _ types.SourceTransformer = (*MethodTransformer)(nil)

// MethodTransformer wraps the body of every intercepted method in a dispatcher call:
//
//	public function save($a) { BODY }
//	=>
//	public function save($a) { /*weaver:woven*/ return \Weaver\Dispatcher::call(__CLASS__, 'save', $this, \func_get_args(), function($a) { BODY }); }
//
// The rewrite stays on the lines of the original body. Abstract methods, constructors,
// interfaces, traits, generators and already woven bodies are left untouched.
type MethodTransformer struct {
	match  MatchFunc
	reader types.MetadataReader
}

// NewMethodTransformer creates the transformer. Doc comments are read with reader when not nil.
func NewMethodTransformer(match MatchFunc, reader types.MetadataReader) *MethodTransformer {
	return &MethodTransformer{match: match, reader: reader}
}

func (t *MethodTransformer) Name() string {
	return "method"
}

func (t *MethodTransformer) Version() string {
	return "1"
}

// Transform implements types.SourceTransformer.
func (t *MethodTransformer) Transform(unit *types.SourceUnit) (types.TransformResult, error) {
	lower := bytes.ToLower(unit.Source)
	if t.match == nil || !bytes.Contains(lower, []byte("class")) || !bytes.Contains(lower, []byte("function")) {
		return types.TransformResult{Source: unit.Source}, nil
	}
	tokens, err := unit.Tokens()
	if err != nil {
		return types.TransformResult{}, err
	}
	r := &methodRewriter{t: t, unit: unit, s: lexer.NewStream(tokens), scope: newScope(unit)}
	out := r.rewrite()
	return types.TransformResult{Source: []byte(out), Changed: r.changed, Warnings: r.warnings}, nil
}

type edit struct {
	from, to int
	text     string
}

type methodRewriter struct {
	t        *MethodTransformer
	unit     *types.SourceUnit
	s        *lexer.Stream
	scope    *scope
	edits    []edit
	changed  bool
	warnings []*types.TransformError
}

func (r *methodRewriter) rewrite() string {
	s := r.s
	for i := 0; i < s.Len(); i++ {
		tok := s.At(i)
		if !tok.IsKeyword("class") && !tok.IsKeyword("interface") && !tok.IsKeyword("trait") {
			i = r.scope.visit(s, i)
			continue
		}
		if prev := s.At(s.PrevSignificant(i)); prev.IsKeyword("new") || prev.IsPunct("::") {
			continue
		}
		open := s.Find(i, func(t types.Token) bool { return t.IsPunct("{") || t.IsPunct(";") })
		if open < 0 || !s.At(open).IsPunct("{") {
			continue
		}
		closeAt := s.MatchingClose(open)
		if closeAt < 0 {
			r.warn(tok.Line, "unbalanced class body")
			break
		}
		if tok.IsKeyword("class") {
			r.class(i, open, closeAt)
		}
		i = closeAt
	}

	var out strings.Builder
	last := 0
	for _, e := range r.edits {
		out.WriteString(s.Text(last, e.from))
		out.WriteString(e.text)
		last = e.to
	}
	out.WriteString(s.Text(last, s.Len()))
	r.changed = len(r.edits) > 0
	return out.String()
}

// class weaves the methods declared between open and closeAt.
func (r *methodRewriter) class(i, open, closeAt int) {
	s := r.s
	nameAt := s.NextSignificant(i)
	if !s.At(nameAt).IsName() {
		return
	}
	fqn := s.At(nameAt).Text
	if ns := r.scope.aliases.Namespace; ns != "" {
		fqn = ns + `\` + fqn
	}
	typeAnnotations := r.annotations(r.docComment(i, map[string]bool{"final": true, "abstract": true, "readonly": true}))

	depth := 0
	for k := open + 1; k < closeAt; k++ {
		tok := s.At(k)
		switch {
		case tok.IsPunct("{"):
			depth++
		case tok.IsPunct("}"):
			depth--
		case depth == 0 && tok.IsKeyword("function"):
			k = r.method(k, fqn, typeAnnotations)
		}
	}
}

// method weaves one method declaration and returns the index of its last token.
func (r *methodRewriter) method(k int, typeName string, typeAnnotations []string) int {
	s := r.s
	decl := s.At(k)

	var visibility types.Visibility
	var static, abstract bool
	for p := s.PrevSignificant(k); p >= 0 && methodModifiers[strings.ToLower(s.At(p).Text)] && s.At(p).Kind == types.TokenKeyword; p = s.PrevSignificant(p) {
		switch word := strings.ToLower(s.At(p).Text); word {
		case "static":
			static = true
		case "abstract":
			abstract = true
		default:
			if v, ok := types.ParseVisibility(word); ok {
				visibility = v
			}
		}
	}
	if visibility == "" {
		visibility = types.Public
	}

	n := s.NextSignificant(k)
	if s.At(n).IsPunct("&") {
		n = s.NextSignificant(n)
	}
	if !s.At(n).IsName() {
		return k
	}
	name := s.At(n).Text
	paramsOpen := s.NextSignificant(n)
	if !s.At(paramsOpen).IsPunct("(") {
		return k
	}
	paramsClose := s.MatchingClose(paramsOpen)
	if paramsClose < 0 {
		r.warn(decl.Line, "unbalanced parameter list of "+name)
		return k
	}
	bodyOpen := s.Find(paramsClose+1, func(t types.Token) bool { return t.IsPunct("{") || t.IsPunct(";") })
	if bodyOpen < 0 || s.At(bodyOpen).IsPunct(";") || abstract {
		return max(bodyOpen, k)
	}
	bodyClose := s.MatchingClose(bodyOpen)
	if bodyClose < 0 {
		r.warn(decl.Line, "unbalanced body of "+name)
		return k
	}
	returnType := ""
	if q := s.NextSignificant(paramsClose); s.At(q).IsPunct(":") {
		returnType = strings.TrimSpace(s.Text(q+1, bodyOpen))
	}

	switch {
	case strings.EqualFold(name, types.ConstructorName):
		return bodyClose
	case strings.HasPrefix(s.At(r.nextNonBlank(bodyOpen)).Text, WovenMarker):
		return bodyClose
	}
	if y := s.Find(bodyOpen, func(t types.Token) bool { return t.IsKeyword("yield") }); y >= 0 && y < bodyClose {
		r.warn(decl.Line, "generator method "+name+" is not intercepted")
		return bodyClose
	}

	jp := &types.JoinPoint{
		Kind:            types.KindMethod,
		Type:            typeName,
		Member:          name,
		Visibility:      visibility,
		Static:          static,
		Parameters:      r.parameters(paramsOpen, paramsClose),
		Annotations:     r.annotations(r.docComment(k, methodModifiers)),
		TypeAnnotations: typeAnnotations,
		Location:        types.SourceLocation{File: r.unit.Identity, Line: decl.Line},
	}
	if !r.t.match(jp) {
		return bodyClose
	}

	ret := "return "
	if rt := strings.ToLower(strings.TrimPrefix(returnType, "?")); rt == "void" || rt == "never" {
		ret = ""
	}
	this, closure := "$this", "function"
	if static {
		this, closure = "null", "static function"
	}
	text := WovenMarker + " " + ret + DispatcherClass + "::call(__CLASS__, " + quoteString(name) + ", " + this +
		", \\func_get_args(), " + closure + "(" + r.flatText(paramsOpen+1, paramsClose) + ") {" +
		s.Text(bodyOpen+1, bodyClose) + "});"
	r.edits = append(r.edits, edit{from: bodyOpen + 1, to: bodyClose, text: text})
	return bodyClose
}

// parameters parses the declared parameters between open and closeAt.
func (r *methodRewriter) parameters(open, closeAt int) []types.Parameter {
	s := r.s
	var result []types.Parameter
	var segment []types.Token
	depth := 0
	flush := func() {
		if p, ok := r.parameter(segment); ok {
			result = append(result, p)
		}
		segment = nil
	}
	for k := open + 1; k < closeAt; k++ {
		tok := s.At(k)
		if tok.Trivia() {
			continue
		}
		switch {
		case tok.IsPunct("(") || tok.IsPunct("[") || tok.IsPunct("#["):
			depth++
		case tok.IsPunct(")") || tok.IsPunct("]"):
			depth--
		case depth == 0 && tok.IsPunct(","):
			flush()
			continue
		}
		segment = append(segment, tok)
	}
	flush()
	return result
}

func (r *methodRewriter) parameter(tokens []types.Token) (types.Parameter, bool) {
	var p types.Parameter
	var typ strings.Builder
	depth := 0
	for i, tok := range tokens {
		switch {
		case tok.IsPunct("#["):
			depth++
		case depth > 0:
			if tok.IsPunct("]") {
				depth--
			}
		case tok.Kind == types.TokenVariable:
			p.Name = strings.TrimPrefix(tok.Text, "$")
			for _, rest := range tokens[i+1:] {
				if rest.IsPunct("=") {
					p.Optional = true
				}
			}
			p.Type = r.resolveType(typ.String())
			if p.Variadic {
				p.Optional = true
			}
			return p, true
		case tok.IsPunct("..."):
			p.Variadic = true
		case tok.IsPunct("&"):
		case tok.Kind == types.TokenKeyword && (tok.IsKeyword("public") || tok.IsKeyword("protected") ||
			tok.IsKeyword("private") || tok.IsKeyword("readonly")):
		default:
			typ.WriteString(tok.Text)
		}
	}
	return p, false
}

// resolveType qualifies a single class type through the import table.
func (r *methodRewriter) resolveType(typ string) string {
	if typ == "" || strings.ContainsAny(typ, "|&()") {
		return typ
	}
	nullable := strings.HasPrefix(typ, "?")
	name := strings.TrimPrefix(typ, "?")
	if builtinTypes[strings.ToLower(name)] {
		return typ
	}
	name = r.scope.aliases.Resolve(name)
	if nullable {
		return "?" + name
	}
	return name
}

// docComment returns the doc comment preceding the declaration keyword at i and its modifiers.
func (r *methodRewriter) docComment(i int, modifiers map[string]bool) string {
	s := r.s
	first := i
	for p := s.PrevSignificant(i); p >= 0 && s.At(p).Kind == types.TokenKeyword && modifiers[strings.ToLower(s.At(p).Text)]; p = s.PrevSignificant(p) {
		first = p
	}
	for q := first - 1; q >= 0; q-- {
		tok := s.At(q)
		switch {
		case tok.Kind == types.TokenWhitespace:
			continue
		case tok.Kind == types.TokenComment && strings.HasPrefix(tok.Text, "/**"):
			return tok.Text
		}
		break
	}
	return ""
}

// annotations returns the fully-qualified annotation types of a doc comment.
func (r *methodRewriter) annotations(doc string) []string {
	if doc == "" || r.t.reader == nil {
		return nil
	}
	read, err := r.t.reader.Read(doc)
	if err != nil {
		r.warn(0, "unreadable doc comment: "+err.Error())
		return nil
	}
	var names []string
	for _, a := range read {
		if a.Qualified {
			names = append(names, a.Name)
			continue
		}
		names = append(names, r.scope.aliases.Resolve(a.Name))
	}
	return names
}

// nextNonBlank returns the index of the first token after i that is not whitespace.
func (r *methodRewriter) nextNonBlank(i int) int {
	return r.s.Find(i+1, func(t types.Token) bool { return t.Kind != types.TokenWhitespace })
}

// flatText renders tokens [from, to) on one line without comments.
func (r *methodRewriter) flatText(from, to int) string {
	var b strings.Builder
	for k := from; k < to; k++ {
		tok := r.s.At(k)
		switch tok.Kind {
		case types.TokenComment:
			continue
		case types.TokenWhitespace:
			b.WriteString(" ")
		default:
			b.WriteString(tok.Text)
		}
	}
	return strings.TrimSpace(b.String())
}

func (r *methodRewriter) warn(line int, reason string) {
	r.warnings = append(r.warnings, &types.TransformError{
		Transformer: "method",
		Identity:    r.unit.Identity,
		Line:        line,
		Reason:      reason,
	})
}
