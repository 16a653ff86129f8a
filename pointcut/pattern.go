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
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/dlclark/regexp2"
	"github.com/rulego/weaver/api/types"
)

// typePattern matches fully-qualified type names.
// Globs use `\` as segment separator: `*` matches inside one segment, `**` any depth.
// A pattern enclosed in slashes is a regular expression.
type typePattern struct {
	raw  string
	glob string
	re   *regexp2.Regexp
}

func compileTypePattern(raw string) (*typePattern, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("empty type pattern")
	}
	if len(raw) >= 2 && raw[0] == '/' && raw[len(raw)-1] == '/' {
		re, err := regexp2.Compile(raw[1:len(raw)-1], regexp2.IgnoreCase)
		if err != nil {
			return nil, fmt.Errorf("invalid type regex %s: %w", raw, err)
		}
		return &typePattern{raw: raw, re: re}, nil
	}
	glob := toGlob(types.TrimName(raw))
	if !doublestar.ValidatePattern(glob) {
		return nil, fmt.Errorf("invalid type pattern %s", raw)
	}
	return &typePattern{raw: raw, glob: glob}, nil
}

func (t *typePattern) match(name string) bool {
	name = types.TrimName(name)
	if t.re != nil {
		ok, err := t.re.MatchString(name)
		return err == nil && ok
	}
	ok, _ := doublestar.Match(t.glob, toGlob(name))
	return ok
}

// toGlob maps a type name onto the slash separated, lower-cased form doublestar matches.
func toGlob(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, `\`, "/"))
}

// namePattern matches member names.
type namePattern struct {
	raw  string
	glob string
	fold bool
}

func compileNamePattern(raw string, fold bool) (*namePattern, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("empty member name pattern")
	}
	if strings.ContainsAny(raw, `\/ `) {
		return nil, fmt.Errorf("invalid member name pattern %s", raw)
	}
	glob := raw
	if fold {
		glob = strings.ToLower(raw)
	}
	if !doublestar.ValidatePattern(glob) {
		return nil, fmt.Errorf("invalid member name pattern %s", raw)
	}
	return &namePattern{raw: raw, glob: glob, fold: fold}, nil
}

func (n *namePattern) match(name string) bool {
	if n.fold {
		name = strings.ToLower(name)
	}
	ok, _ := doublestar.Match(n.glob, name)
	return ok
}

// argPattern constrains the declared parameters.
//
//	*  or ..      any parameter list
//	(empty)       no parameters
//	2             exactly two parameters
//	int, *, ..    an int, one parameter of any type, then anything
type argPattern struct {
	any   bool
	count int
	items []string
	rest  bool
}

func compileArgPattern(raw string) (*argPattern, error) {
	raw = strings.TrimSpace(raw)
	switch raw {
	case "*", "..":
		return &argPattern{any: true}, nil
	case "":
		return &argPattern{count: -1}, nil
	}
	if n, err := strconv.Atoi(raw); err == nil {
		if n < 0 {
			return nil, fmt.Errorf("negative argument count %d", n)
		}
		return &argPattern{count: n}, nil
	}
	var result = &argPattern{count: -1}
	parts := strings.Split(raw, ",")
	for i, part := range parts {
		part = strings.TrimSpace(part)
		switch {
		case part == "":
			return nil, fmt.Errorf("empty argument at position %d", i+1)
		case part == "..":
			if i != len(parts)-1 {
				return nil, errors.New(".. must be the last argument")
			}
			result.rest = true
		case part == "*":
			result.items = append(result.items, part)
		case isTypeName(part):
			result.items = append(result.items, types.TrimName(part))
		default:
			return nil, fmt.Errorf("invalid argument type %s", part)
		}
	}
	return result, nil
}

func (a *argPattern) match(params []types.Parameter) bool {
	if a.any {
		return true
	}
	if a.count >= 0 {
		return len(params) == a.count
	}
	if a.rest {
		if len(params) < len(a.items) {
			return false
		}
	} else if len(params) != len(a.items) {
		return false
	}
	for i, item := range a.items {
		if item == "*" {
			continue
		}
		if !types.SameName(params[i].Type, item) {
			return false
		}
	}
	return true
}

// isTypeName accepts names made of identifier characters and namespace separators,
// with an optional nullable marker.
func isTypeName(s string) bool {
	s = strings.TrimPrefix(s, "?")
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '\\', r == '_', r >= 0x80:
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
