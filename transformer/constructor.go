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

// DispatcherClass is the host class receiving rewritten sites.
const DispatcherClass = `\Weaver\Dispatcher`

var _ types.SourceTransformer = (*ConstructorTransformer)(nil)

// ConstructorTransformer rewrites object instantiations into dispatcher calls:
//
//	new Foo($a, $b)   =>  \Weaver\Dispatcher::construct('App\Models\Foo', [$a, $b])
//	new static        =>  \Weaver\Dispatcher::construct(static::class, [])
//	new $cls($a)      =>  \Weaver\Dispatcher::construct($cls, [$a])
//
// Anonymous classes, named arguments, dynamic references other than a plain variable and
// instantiations inside constant expressions (attribute arguments, parameter defaults,
// constant, property and static variable initializers) are left untouched and reported
// as warnings.
type ConstructorTransformer struct{}

// NewConstructorTransformer creates the transformer.
func NewConstructorTransformer() *ConstructorTransformer {
	return &ConstructorTransformer{}
}

func (t *ConstructorTransformer) Name() string {
	return "constructor"
}

func (t *ConstructorTransformer) Version() string {
	return "1"
}

// Transform implements types.SourceTransformer.
func (t *ConstructorTransformer) Transform(unit *types.SourceUnit) (types.TransformResult, error) {
	if !bytes.Contains(bytes.ToLower(unit.Source), []byte("new")) {
		return types.TransformResult{Source: unit.Source}, nil
	}
	tokens, err := unit.Tokens()
	if err != nil {
		return types.TransformResult{}, err
	}
	r := &constructorRewriter{
		unit:  unit,
		s:     lexer.NewStream(tokens),
		scope: newScope(unit),
	}
	out := r.rewrite(0, r.s.Len())
	return types.TransformResult{
		Source:   []byte(out),
		Changed:  r.changed,
		Warnings: r.warnings,
	}, nil
}

type constructorRewriter struct {
	unit     *types.SourceUnit
	s        *lexer.Stream
	scope    *scope
	changed  bool
	warnings []*types.TransformError
}

// rewrite returns the text of tokens [from, to) with every instantiation rewritten.
func (r *constructorRewriter) rewrite(from, to int) string {
	var out strings.Builder
	last := from
	for i := from; i < to; i++ {
		tok := r.s.At(i)
		if !tok.IsKeyword("new") {
			i = r.scope.visit(r.s, i)
			continue
		}
		replacement, end, ok := r.instantiation(i, to)
		if !ok {
			continue
		}
		out.WriteString(r.s.Text(last, i))
		out.WriteString(replacement)
		last = end
		i = end - 1
		r.changed = true
	}
	out.WriteString(r.s.Text(last, to))
	return out.String()
}

// instantiation rewrites the expression starting with the `new` token at i.
// It returns the replacement and the index after the expression.
func (r *constructorRewriter) instantiation(i, limit int) (string, int, bool) {
	s := r.s
	if prev := s.At(s.PrevSignificant(i)); prev.IsPunct("->") || prev.IsPunct("?->") || prev.IsPunct("::") ||
		prev.IsKeyword("function") || prev.IsKeyword("const") {
		// a member named new
		return "", 0, false
	}
	j := s.NextSignificant(i)
	if j < 0 || j >= limit {
		return "", 0, false
	}
	if where, ok := r.constantContext(i); ok {
		r.warn(s.At(i).Line, "instantiation in "+where+" is not intercepted")
		return "", 0, false
	}
	target := s.At(j)
	var typeExpr string
	after := j + 1
	switch {
	case target.IsKeyword("class"):
		r.warn(target.Line, "anonymous class instantiation is not intercepted")
		return "", 0, false
	case target.IsKeyword("static"):
		typeExpr = "static::class"
	case target.Kind == types.TokenIdent && (strings.EqualFold(target.Text, "self") || strings.EqualFold(target.Text, "parent")):
		if next := s.At(j + 1); next.Kind == types.TokenNsSeparator {
			typeExpr, after = r.named(j)
		} else {
			typeExpr = strings.ToLower(target.Text) + "::class"
		}
	case target.Kind == types.TokenVariable:
		if next := s.At(sigAt(s, j+1)); next.IsPunct("->") || next.IsPunct("::") || next.IsPunct("[") ||
			next.IsPunct("?->") || next.IsPunct("{") {
			r.warn(target.Line, "dynamic class reference "+target.Text+next.Text+" is not intercepted")
			return "", 0, false
		}
		typeExpr = target.Text
	case target.IsName() || target.Kind == types.TokenNsSeparator:
		typeExpr, after = r.named(j)
	default:
		r.warn(target.Line, "unsupported instantiation new "+target.Text)
		return "", 0, false
	}

	args, end := "", after
	if k := sigAt(s, after); k >= 0 && k < limit && s.At(k).IsPunct("(") {
		closeAt := s.MatchingClose(k)
		if closeAt < 0 || closeAt >= limit {
			r.warn(target.Line, "unbalanced argument list")
			return "", 0, false
		}
		if name := r.namedArgument(k, closeAt); name != "" {
			r.warn(target.Line, "named argument "+name+" is not supported")
			return "", 0, false
		}
		args = r.rewrite(k+1, closeAt)
		end = closeAt + 1
	}
	replacement := DispatcherClass + "::construct(" + typeExpr + ", [" + args + "])"
	// keep the line count of the original expression
	if missing := strings.Count(s.Text(i, end), "\n") - strings.Count(replacement, "\n"); missing > 0 {
		replacement += strings.Repeat("\n", missing)
	}
	return replacement, end, true
}

// constantContext reports whether the `new` at i belongs to a constant expression, where
// the host accepts a plain instantiation but no call.
func (r *constructorRewriter) constantContext(i int) (string, bool) {
	s := r.s
	// enclosing brackets up to the surrounding block
	depth := 0
scan:
	for j := s.PrevSignificant(i); j >= 0; j = s.PrevSignificant(j) {
		tok := s.At(j)
		if tok.Kind != types.TokenPunct {
			continue
		}
		switch tok.Text {
		case ")", "]", "}":
			depth++
		case "(", "[", "#[", "{":
			if depth > 0 {
				depth--
				continue
			}
			switch {
			case tok.Text == "{":
				break scan
			case tok.Text == "#[":
				return "an attribute argument", true
			case tok.Text == "(" && r.parameterList(j):
				return "a parameter default", true
			}
		case ";":
			if depth == 0 {
				break scan
			}
		}
	}

	// declaration the statement starts with
	k := r.statementStart(i)
	modifiers := 0
	for ; k >= 0 && k < i && isModifier(s.At(k)); k = s.NextSignificant(k) {
		modifiers++
	}
	if k < 0 || k >= i {
		return "", false
	}
	next := s.At(k)
	switch {
	case next.IsKeyword("const"):
		return "a constant initializer", true
	case modifiers == 0:
		return "", false
	case next.IsKeyword("function") || next.IsKeyword("fn") || next.IsPunct("::") || next.IsPunct("("):
		return "", false
	}
	return "a property or static variable initializer", true
}

// statementStart returns the first significant token of the statement holding i, past any
// leading attribute groups.
func (r *constructorRewriter) statementStart(i int) int {
	s := r.s
	depth := 0
	start := 0
	for j := s.PrevSignificant(i); j >= 0; j = s.PrevSignificant(j) {
		tok := s.At(j)
		if tok.Kind == types.TokenOpenTag || tok.Kind == types.TokenCloseTag {
			start = j + 1
			break
		}
		if tok.Kind != types.TokenPunct {
			continue
		}
		if tok.Text == ")" || tok.Text == "]" {
			depth++
			continue
		}
		if tok.Text == "(" || tok.Text == "[" || tok.Text == "#[" {
			depth--
			continue
		}
		if depth <= 0 && (tok.Text == ";" || tok.Text == "{" || tok.Text == "}") {
			start = j + 1
			break
		}
	}
	k := sigAt(s, start)
	for k >= 0 && k < i && s.At(k).IsPunct("#[") {
		closeAt := s.MatchingClose(k)
		if closeAt < 0 {
			break
		}
		k = s.NextSignificant(closeAt)
	}
	return k
}

// parameterList reports whether the parenthesis at open starts the parameters of a function.
func (r *constructorRewriter) parameterList(open int) bool {
	s := r.s
	prev := s.PrevSignificant(open)
	if prev < 0 {
		return false
	}
	tok := s.At(prev)
	if tok.IsKeyword("function") || tok.IsKeyword("fn") {
		return true
	}
	if !tok.IsName() {
		return false
	}
	before := s.PrevSignificant(prev)
	if before >= 0 && s.At(before).IsPunct("&") {
		before = s.PrevSignificant(before)
	}
	return before >= 0 && s.At(before).IsKeyword("function")
}

func isModifier(tok types.Token) bool {
	for _, m := range []string{"public", "protected", "private", "var", "readonly", "static", "final", "abstract"} {
		if tok.IsKeyword(m) {
			return true
		}
	}
	return false
}

// named resolves the class name starting at j into a quoted fully-qualified name.
func (r *constructorRewriter) named(j int) (string, int) {
	name, end := r.s.Name(j)
	fqn := r.scope.aliases.Resolve(name)
	return quoteName(fqn), end
}

// namedArgument returns the first named argument of the list (open, closeAt), empty if none.
func (r *constructorRewriter) namedArgument(open, closeAt int) string {
	s := r.s
	depth := 0
	for k := open + 1; k < closeAt; k++ {
		tok := s.At(k)
		switch {
		case tok.IsPunct("(") || tok.IsPunct("[") || tok.IsPunct("{") || tok.IsPunct("#["):
			depth++
		case tok.IsPunct(")") || tok.IsPunct("]") || tok.IsPunct("}"):
			depth--
		case depth == 0 && tok.IsName():
			prev := s.At(s.PrevSignificant(k))
			if (prev.IsPunct("(") || prev.IsPunct(",")) && s.At(s.NextSignificant(k)).IsPunct(":") {
				return tok.Text
			}
		}
	}
	return ""
}

func (r *constructorRewriter) warn(line int, reason string) {
	r.warnings = append(r.warnings, &types.TransformError{
		Transformer: "constructor",
		Identity:    r.unit.Identity,
		Line:        line,
		Reason:      reason,
	})
}

// quoteName renders a class name as a single-quoted host string. Class names hold no
// quotes and never end with a separator, so backslashes stay literal.
func quoteName(name string) string {
	return "'" + name + "'"
}

// quoteString renders s as a single-quoted host string literal.
func quoteString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}
