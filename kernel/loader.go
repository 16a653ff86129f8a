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

package kernel

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rulego/weaver/api/types"
)

// SourceExt is the extension of host source files.
const SourceExt = ".php"

var _ types.ModuleLoader = (*FileLoader)(nil)

// FileLoader reads source text from disk. An identity is either a file path, relative to
// the application directory, or a type name mapped through the autoload table:
// with {"App": "/srv/src"}, App\Models\User is read from /srv/src/Models/User.php.
type FileLoader struct {
	appDir   string
	autoload map[string]string
	// prefixes autoload namespaces, longest first
	prefixes []string
}

// NewFileLoader creates a loader rooted at appDir.
func NewFileLoader(appDir string, autoload map[string]string) *FileLoader {
	l := &FileLoader{appDir: appDir, autoload: map[string]string{}}
	for ns, dir := range autoload {
		ns = strings.ToLower(types.TrimName(ns))
		l.autoload[ns] = dir
		l.prefixes = append(l.prefixes, ns)
	}
	sort.Slice(l.prefixes, func(i, j int) bool { return len(l.prefixes[i]) > len(l.prefixes[j]) })
	return l
}

// Resolve maps an identity to the absolute path of its source file.
func (l *FileLoader) Resolve(identity string) (string, bool) {
	if strings.ContainsAny(identity, "/") || strings.HasSuffix(strings.ToLower(identity), SourceExt) || filepath.IsAbs(identity) {
		return absolute(l.appDir, identity), true
	}
	name := types.TrimName(identity)
	lower := strings.ToLower(name)
	for _, ns := range l.prefixes {
		if lower == ns || !strings.HasPrefix(lower, ns+`\`) {
			continue
		}
		rest := name[len(ns)+1:]
		return filepath.Join(l.autoload[ns], filepath.FromSlash(strings.ReplaceAll(rest, `\`, "/"))+SourceExt), true
	}
	return "", false
}

// Load implements types.ModuleLoader.
func (l *FileLoader) Load(identity string) ([]byte, error) {
	path, ok := l.Resolve(identity)
	if !ok {
		return nil, fmt.Errorf("no source for %s: %w", identity, types.ErrNotFound)
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("no source for %s: %w", identity, types.ErrNotFound)
	}
	return data, err
}

// resolver is implemented by loaders mapping identities to files.
type resolver interface {
	Resolve(identity string) (string, bool)
}

// weavingLoader replaces the source of every included unit with its woven artifact.
type weavingLoader struct {
	k    *Kernel
	next types.ModuleLoader
}

func (l *weavingLoader) Load(identity string) ([]byte, error) {
	source, err := l.next.Load(identity)
	if err != nil {
		return nil, err
	}
	path := identity
	if r, ok := l.next.(resolver); ok {
		if p, ok := r.Resolve(identity); ok {
			path = p
		}
	}
	if !l.k.settings.filter.Match(path) {
		return source, nil
	}
	artifact, err := l.k.Weave(path, source)
	if err != nil {
		return nil, err
	}
	return artifact.Source, nil
}
