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
	"os"
	"path/filepath"
	"strings"

	"github.com/rulego/weaver/api/types"
	"github.com/rulego/weaver/lexer"
	"github.com/rulego/weaver/lexer/treesitter"
	"github.com/rulego/weaver/utils/fs"
	"github.com/rulego/weaver/utils/maps"
)

// decodeOptions merges the map form of the init options into config. Unknown keys are rejected.
func decodeOptions(options map[string]any, config *types.Config) error {
	if len(options) == 0 {
		return nil
	}
	if err := maps.DecodeStrict(options, config); err != nil {
		return &types.ConfigurationError{Reason: "cannot decode options", Err: err}
	}
	return nil
}

// settings are the validated, absolute forms of the path options.
type settings struct {
	appDir   string
	cacheDir string
	autoload map[string]string
	filter   *fs.PathFilter
}

// validate checks every option before anything is installed.
func validate(c *types.Config) (*settings, error) {
	if c.AppDir == "" {
		return nil, &types.ConfigurationError{Option: "appDir", Reason: "required"}
	}
	appDir, err := filepath.Abs(c.AppDir)
	if err != nil || !fs.IsDir(appDir) {
		return nil, &types.ConfigurationError{Option: "appDir", Reason: "not a directory: " + c.AppDir, Err: err}
	}
	s := &settings{appDir: appDir, autoload: map[string]string{}}

	for namespace, dir := range c.Autoload {
		abs := absolute(appDir, dir)
		if !fs.IsDir(abs) {
			return nil, &types.ConfigurationError{Option: "autoload", Reason: "directory of " + namespace + " does not exist: " + dir}
		}
		s.autoload[types.TrimName(namespace)] = abs
	}

	if c.CacheDir != "" {
		s.cacheDir = absolute(appDir, c.CacheDir)
		if err := fs.CheckWritable(s.cacheDir); err != nil {
			return nil, &types.ConfigurationError{Option: "cacheDir", Reason: "not writable", Err: err}
		}
	}

	includes := patterns(appDir, c.IncludePaths)
	if len(includes) == 0 {
		includes = []string{filepath.ToSlash(appDir) + "/**"}
	}
	s.filter, err = fs.NewPathFilter(includes, patterns(appDir, c.ExcludePaths))
	if err != nil {
		return nil, &types.ConfigurationError{Option: "includePaths", Reason: "invalid pattern", Err: err}
	}
	return s, nil
}

// newLexer returns the configured lexer and the name taking part in artifact keys.
func newLexer(c *types.Config) (types.Lexer, string, error) {
	if c.Lexer != nil {
		return c.Lexer, "custom", nil
	}
	switch name := strings.ToLower(c.LexerName); name {
	case "", "scanner":
		return lexer.New(), "scanner", nil
	case "treesitter", "tree-sitter":
		return treesitter.New(), "treesitter", nil
	default:
		return nil, "", &types.ConfigurationError{Option: "lexer", Reason: "unknown lexer " + c.LexerName}
	}
}

func absolute(base, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}

// patterns makes the patterns absolute. A plain directory selects everything below it.
func patterns(appDir string, list []string) []string {
	var result []string
	for _, p := range list {
		abs := absolute(appDir, p)
		if info, err := os.Stat(abs); err == nil && info.IsDir() {
			abs = filepath.Join(abs, "**")
		}
		result = append(result, filepath.ToSlash(abs))
	}
	return result
}
