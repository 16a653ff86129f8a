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
	"strconv"
	"strings"

	"github.com/rulego/weaver/api/types"
)

// Resolver resolves the symbols referenced by an expression.
type Resolver interface {
	// Pointcut returns a declared pointcut by id.
	Pointcut(id string) (types.Pointcut, bool)
	// HasType reports whether a type is known. Annotation designators only accept known types.
	HasType(name string) bool
}

// Parse compiles an anonymous pointcut expression.
func Parse(expr string, resolver Resolver) (*Pointcut, error) {
	return ParseNamed("", expr, resolver)
}

// ParseNamed compiles a pointcut expression declared under id.
func ParseNamed(id, expr string, resolver Resolver) (*Pointcut, error) {
	p := &parser{src: expr, resolver: resolver}
	root, err := p.parse()
	if err != nil {
		return nil, err
	}
	return &Pointcut{id: id, expr: strings.TrimSpace(expr), root: root}, nil
}

type parser struct {
	src      string
	pos      int
	resolver Resolver
}

func (p *parser) parse() (node, error) {
	p.skipSpace()
	if p.eof() {
		return nil, p.errorf(0, "empty expression", nil)
	}
	n, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if !p.eof() {
		return nil, p.errorf(p.pos, "unexpected "+strconv.Quote(p.src[p.pos:p.pos+1]), nil)
	}
	return n, nil
}

func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.consume("||") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = orNode{left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.consume("&&") {
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = andNode{left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (node, error) {
	p.skipSpace()
	if p.consume("!") {
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return notNode{inner: inner}, nil
	}
	if p.consume("(") {
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if !p.consume(")") {
			return nil, p.errorf(p.pos, "missing )", nil)
		}
		return inner, nil
	}
	return p.parseDesignator()
}

func (p *parser) parseDesignator() (node, error) {
	p.skipSpace()
	start := p.pos
	if p.peek() == '@' {
		p.pos++
	}
	for !p.eof() && isWordByte(p.src[p.pos]) {
		p.pos++
	}
	name := p.src[start:p.pos]
	if name == "" || name == "@" {
		if p.eof() {
			return nil, p.errorf(start, "unexpected end of expression", nil)
		}
		return nil, p.errorf(start, "unexpected "+strconv.Quote(p.src[start:start+1]), nil)
	}
	p.skipSpace()
	if p.peek() != '(' {
		return nil, p.errorf(p.pos, "missing ( after "+name, nil)
	}
	open := p.pos
	end := findClose(p.src, open)
	if end < 0 {
		return nil, p.errorf(open, "unbalanced parentheses", nil)
	}
	body := p.src[open+1 : end]
	bodyPos := open + 1
	p.pos = end + 1

	switch strings.ToLower(name) {
	case "execution":
		return p.member(types.KindMethod, body, bodyPos)
	case "access":
		return p.member(types.KindProperty, body, bodyPos)
	case "initialization":
		return p.typeDesignator(types.KindConstructor, body, bodyPos)
	case "staticinitialization":
		return p.typeDesignator(types.KindStaticInit, body, bodyPos)
	case "within":
		return p.typeDesignator("", body, bodyPos)
	case "@annotation":
		return p.annotation(body, bodyPos, false)
	case "@within":
		return p.annotation(body, bodyPos, true)
	case "args":
		args, err := compileArgPattern(body)
		if err != nil {
			return nil, p.errorf(bodyPos, "invalid args()", err)
		}
		return &argsNode{args: args}, nil
	case "if":
		return p.condition(body, bodyPos)
	case "pointcut":
		return p.reference(body, bodyPos)
	default:
		return nil, p.errorf(start, "unknown designator "+name, nil)
	}
}

// member parses `[modifiers] TypePattern->namePattern[(args)]`, `::` selecting static members.
func (p *parser) member(kind types.JoinPointKind, body string, bodyPos int) (node, error) {
	n := &memberNode{kind: kind}
	text := strings.TrimSpace(body)
	offset := bodyPos + strings.Index(body, text)

	if kind == types.KindMethod {
		if !strings.HasSuffix(text, ")") {
			return nil, p.errorf(offset+len(text), "missing argument list", nil)
		}
		open := strings.LastIndex(text, "(")
		if open < 0 {
			return nil, p.errorf(offset+len(text), "missing argument list", nil)
		}
		args, err := compileArgPattern(text[open+1 : len(text)-1])
		if err != nil {
			return nil, p.errorf(offset+open+1, "invalid argument list", err)
		}
		n.args = args
		text = strings.TrimSpace(text[:open])
	}

	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil, p.errorf(offset, "missing member pattern", nil)
	}
	signature := fields[len(fields)-1]
	for _, mod := range fields[:len(fields)-1] {
		if strings.EqualFold(mod, "static") {
			continue
		}
		for _, item := range strings.Split(mod, "|") {
			v, ok := types.ParseVisibility(item)
			if !ok {
				return nil, p.errorf(offset+strings.Index(text, mod), "unknown modifier "+item, nil)
			}
			n.visibility = append(n.visibility, v)
		}
	}

	sep := strings.Index(signature, "->")
	sepLen := 2
	if i := strings.Index(signature, "::"); i >= 0 && (sep < 0 || i < sep) {
		sep = i
		n.static = true
	}
	if sep < 0 {
		return nil, p.errorf(offset, "member pattern must use -> or ::", nil)
	}
	sigPos := offset + strings.LastIndex(text, signature)
	typ, err := compileTypePattern(signature[:sep])
	if err != nil {
		return nil, p.errorf(sigPos, "invalid type pattern", err)
	}
	name, err := compileNamePattern(signature[sep+sepLen:], kind != types.KindProperty)
	if err != nil {
		return nil, p.errorf(sigPos+sep+sepLen, "invalid member pattern", err)
	}
	n.typ, n.name = typ, name
	return n, nil
}

func (p *parser) typeDesignator(kind types.JoinPointKind, body string, bodyPos int) (node, error) {
	typ, err := compileTypePattern(body)
	if err != nil {
		return nil, p.errorf(bodyPos, "invalid type pattern", err)
	}
	return &typeNode{kind: kind, typ: typ}, nil
}

func (p *parser) annotation(body string, bodyPos int, onType bool) (node, error) {
	name := types.TrimName(body)
	if !isTypeName(name) || strings.HasPrefix(name, "?") {
		return nil, p.errorf(bodyPos, "invalid annotation type "+strconv.Quote(body), nil)
	}
	if p.resolver != nil && !p.resolver.HasType(name) {
		return nil, p.errorf(bodyPos, "unknown annotation type "+name, nil)
	}
	return &annotationNode{name: name, onType: onType}, nil
}

func (p *parser) condition(body string, bodyPos int) (node, error) {
	text := strings.TrimSpace(body)
	if len(text) < 2 {
		return nil, p.errorf(bodyPos, "if() expects a quoted expression", nil)
	}
	var src string
	switch text[0] {
	case '"':
		s, err := strconv.Unquote(text)
		if err != nil {
			return nil, p.errorf(bodyPos, "invalid quoted expression", err)
		}
		src = s
	case '\'':
		if text[len(text)-1] != '\'' {
			return nil, p.errorf(bodyPos, "unterminated quoted expression", nil)
		}
		src = text[1 : len(text)-1]
	default:
		return nil, p.errorf(bodyPos, "if() expects a quoted expression", nil)
	}
	n, err := compileCondition(src)
	if err != nil {
		return nil, p.errorf(bodyPos, "invalid condition", err)
	}
	return n, nil
}

func (p *parser) reference(body string, bodyPos int) (node, error) {
	id := strings.TrimSpace(body)
	if id == "" {
		return nil, p.errorf(bodyPos, "empty pointcut reference", nil)
	}
	if p.resolver == nil {
		return nil, p.errorf(bodyPos, "unknown pointcut "+id, nil)
	}
	target, ok := p.resolver.Pointcut(id)
	if !ok {
		return nil, p.errorf(bodyPos, "unknown pointcut "+id, nil)
	}
	return refNode{target: target}, nil
}

func (p *parser) errorf(pos int, reason string, err error) error {
	return &types.PointcutResolutionError{Expression: p.src, Pos: pos, Reason: reason, Err: err}
}

func (p *parser) consume(tok string) bool {
	p.skipSpace()
	if strings.HasPrefix(p.src[p.pos:], tok) {
		p.pos += len(tok)
		return true
	}
	return false
}

func (p *parser) skipSpace() {
	for !p.eof() && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t' || p.src[p.pos] == '\n' || p.src[p.pos] == '\r') {
		p.pos++
	}
}

func (p *parser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) eof() bool {
	return p.pos >= len(p.src)
}

func isWordByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

// findClose returns the index of the parenthesis closing the one at open, skipping
// quoted strings and regular expressions. It returns -1 when unbalanced.
func findClose(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch c := s[i]; c {
		case '"', '\'':
			j := i + 1
			for ; j < len(s) && s[j] != c; j++ {
				if s[j] == '\\' && c == '"' {
					j++
				}
			}
			if j >= len(s) {
				return -1
			}
			i = j
		case '/':
			// a regex starts right after the opening paren, a modifier or a separator
			if prev := prevByte(s, i); prev == '(' || prev == ' ' || prev == ',' {
				if j := strings.IndexByte(s[i+1:], '/'); j >= 0 {
					i += j + 1
				}
			}
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func prevByte(s string, i int) byte {
	if i == 0 {
		return 0
	}
	return s[i-1]
}
