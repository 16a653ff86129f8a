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

// Package metadata reads annotations from metadata blocks.
//
// A block is a doc comment or its bare content:
//
//	/**
//	 * @Pointcut(id="repositories", value="within(App\Repository\**)")
//	 * @Around("pointcut(repositories)")
//	 */
//
// Annotation names start with an upper-case letter or a namespace separator; lower-case
// tags such as @param or @return are documentation and are skipped. Attribute values are
// double-quoted strings where "" is an escaped quote and backslashes are literal, or bare
// words and numbers. The first positional attribute is stored under "value".
package metadata

import (
	"fmt"
	"strings"

	"github.com/rulego/weaver/api/types"
)

var _ types.MetadataReader = (*Reader)(nil)

// Option configures a Reader.
type Option func(*Reader)

// WithStrict rejects annotations whose kind is not in known.
func WithStrict(known ...string) Option {
	return func(r *Reader) {
		r.strict = true
		for _, k := range known {
			r.known[strings.ToLower(types.TrimName(k))] = true
		}
	}
}

// Reader is the default metadata reader.
type Reader struct {
	strict bool
	known  map[string]bool
}

// NewReader creates a reader.
func NewReader(opts ...Option) *Reader {
	r := &Reader{known: map[string]bool{}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Read implements types.MetadataReader.
func (r *Reader) Read(block string) (types.Annotations, error) {
	body := stripComment(block)
	var result types.Annotations
	for i := 0; i < len(body); i++ {
		if body[i] != '@' || i > 0 && isNameByte(body[i-1]) {
			continue
		}
		start := i + 1
		end := start
		for end < len(body) && (isNameByte(body[end]) || body[end] == '\\') {
			end++
		}
		name := body[start:end]
		if name == "" || !isAnnotationName(name) {
			i = end - 1
			continue
		}
		a := types.Annotation{Name: types.TrimName(name), Attributes: map[string]string{}, Qualified: strings.HasPrefix(name, `\`)}
		if r.strict && !r.known[strings.ToLower(a.Name)] {
			return nil, fmt.Errorf("unknown annotation @%s", a.Name)
		}
		i = end - 1
		j := skipSpace(body, end)
		if j < len(body) && body[j] == '(' {
			next, err := parseAttributes(body, j, a.Attributes)
			if err != nil {
				return nil, fmt.Errorf("annotation @%s: %w", a.Name, err)
			}
			i = next - 1
		}
		result = append(result, a)
	}
	return result, nil
}

// stripComment removes the comment delimiters and the leading asterisks of each line.
func stripComment(block string) string {
	block = strings.TrimSpace(block)
	block = strings.TrimPrefix(block, "/**")
	block = strings.TrimPrefix(block, "/*")
	block = strings.TrimSuffix(block, "*/")
	lines := strings.Split(block, "\n")
	for i, line := range lines {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "*")
		lines[i] = strings.TrimSpace(line)
	}
	return strings.Join(lines, "\n")
}

// parseAttributes parses `(...)` at open and returns the index after the closing parenthesis.
func parseAttributes(s string, open int, attrs map[string]string) (int, error) {
	i := skipSpace(s, open+1)
	positional := 0
	for {
		if i >= len(s) {
			return 0, fmt.Errorf("missing )")
		}
		if s[i] == ')' {
			return i + 1, nil
		}
		key := ""
		if isNameByte(s[i]) {
			end := i
			for end < len(s) && isNameByte(s[end]) {
				end++
			}
			if j := skipSpace(s, end); j < len(s) && s[j] == '=' {
				key = s[i:end]
				i = skipSpace(s, j+1)
			}
		}
		value, next, err := parseValue(s, i)
		if err != nil {
			return 0, err
		}
		if key == "" {
			if positional > 0 {
				return 0, fmt.Errorf("more than one positional attribute")
			}
			key = "value"
			positional++
		}
		if _, dup := attrs[key]; dup {
			return 0, fmt.Errorf("duplicate attribute %s", key)
		}
		attrs[key] = value
		i = skipSpace(s, next)
		if i < len(s) && s[i] == ',' {
			i = skipSpace(s, i+1)
			continue
		}
		if i < len(s) && s[i] != ')' {
			return 0, fmt.Errorf("unexpected %q", s[i])
		}
	}
}

func parseValue(s string, i int) (string, int, error) {
	if i >= len(s) {
		return "", i, fmt.Errorf("missing value")
	}
	if s[i] == '"' {
		var b strings.Builder
		for j := i + 1; j < len(s); j++ {
			if s[j] != '"' {
				b.WriteByte(s[j])
				continue
			}
			if j+1 < len(s) && s[j+1] == '"' {
				b.WriteByte('"')
				j++
				continue
			}
			return b.String(), j + 1, nil
		}
		return "", i, fmt.Errorf("unterminated string")
	}
	end := i
	for end < len(s) && (isNameByte(s[end]) || s[end] == '.' || s[end] == '-' || s[end] == '\\') {
		end++
	}
	if end == i {
		return "", i, fmt.Errorf("unexpected %q", s[i])
	}
	return s[i:end], end, nil
}

func isAnnotationName(name string) bool {
	c := name[0]
	return c == '\\' || c >= 'A' && c <= 'Z'
}

func isNameByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c >= 0x80
}

func skipSpace(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n' || s[i] == '\r') {
		i++
	}
	return i
}
