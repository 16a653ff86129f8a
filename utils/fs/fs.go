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

package fs

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// LoadFile 加载文件
func LoadFile(filePath string) []byte {
	buf, err := os.ReadFile(filePath)
	if err != nil {
		return nil
	}
	return buf
}

// IsExist checks if a path exists
func IsExist(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// IsDir reports whether path is an existing directory.
func IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// PathFilter selects source files with doublestar include and exclude globs.
// Patterns and paths are compared with forward slashes and case-insensitively.
type PathFilter struct {
	includes []string
	excludes []string
}

// NewPathFilter validates the patterns. An empty include list accepts every path.
func NewPathFilter(includes, excludes []string) (*PathFilter, error) {
	f := &PathFilter{}
	for _, p := range includes {
		if !doublestar.ValidatePattern(normalize(p)) {
			return nil, &fs.PathError{Op: "pattern", Path: p, Err: doublestar.ErrBadPattern}
		}
		f.includes = append(f.includes, normalize(p))
	}
	for _, p := range excludes {
		if !doublestar.ValidatePattern(normalize(p)) {
			return nil, &fs.PathError{Op: "pattern", Path: p, Err: doublestar.ErrBadPattern}
		}
		f.excludes = append(f.excludes, normalize(p))
	}
	return f, nil
}

// Match reports whether path is included and not excluded.
func (f *PathFilter) Match(path string) bool {
	if f == nil {
		return true
	}
	path = normalize(path)
	for _, p := range f.excludes {
		if ok, _ := doublestar.Match(p, path); ok {
			return false
		}
	}
	if len(f.includes) == 0 {
		return true
	}
	for _, p := range f.includes {
		if ok, _ := doublestar.Match(p, path); ok {
			return true
		}
	}
	return false
}

func normalize(p string) string {
	return strings.ToLower(filepath.ToSlash(strings.ReplaceAll(p, "\\", "/")))
}

// GetFilePaths 返回 root 下匹配过滤器的文件路径列表
func GetFilePaths(root string, filter *PathFilter) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && filter != nil && filter.excluded(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if filter.Match(path) {
			paths = append(paths, path)
		}
		return nil
	})
	return paths, err
}

// excluded reports whether a whole directory is excluded.
func (f *PathFilter) excluded(dir string) bool {
	dir = normalize(dir)
	for _, p := range f.excludes {
		if ok, _ := doublestar.Match(p, dir); ok {
			return true
		}
		if ok, _ := doublestar.Match(p, dir+"/x"); ok && strings.HasSuffix(p, "/**") {
			return true
		}
	}
	return false
}
