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

package types

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Config defines the configuration of an aspect kernel.
// The fields with a mapstructure tag are the recognized init options.
type Config struct {
	// Autoload maps namespace roots to directories, used to locate the source of a type.
	// Example: {"App": "/srv/app/src"}
	Autoload map[string]string `mapstructure:"autoload"`
	// AppDir is the application root directory. Required.
	AppDir string `mapstructure:"appDir"`
	// CacheDir enables the on-disk woven artifact cache when not empty.
	CacheDir string `mapstructure:"cacheDir"`
	// IncludePaths restricts weaving to these directories or glob patterns, relative to AppDir.
	// Empty means everything under AppDir.
	IncludePaths []string `mapstructure:"includePaths"`
	// ExcludePaths glob patterns, relative to AppDir, never woven.
	ExcludePaths []string `mapstructure:"excludePaths"`
	// Debug disables artifact caching and enables stricter validation.
	Debug bool `mapstructure:"debug"`
	// Watch evicts in-memory artifacts when their source file changes.
	Watch bool `mapstructure:"watch"`
	// AspectNames enables aspects of the aspect registry by type name.
	AspectNames []string `mapstructure:"aspects"`
	// LexerName selects the built-in lexer when Lexer is not set: "scanner" (default) or "treesitter".
	LexerName string `mapstructure:"lexer"`

	// Logger is the logger, defaulting to a no-op logger, or a development logger in debug mode.
	Logger *zap.Logger `mapstructure:"-"`
	// Aspects are aspect instances to register, declared in this order.
	Aspects []Aspect `mapstructure:"-"`
	// Introspector is the introspection provider, defaulting to an empty TypeTable.
	Introspector Introspector `mapstructure:"-"`
	// Instantiator performs direct construction for the dispatcher.
	Instantiator Instantiator `mapstructure:"-"`
	// Loader supplies raw source text, defaulting to a file loader over AppDir and Autoload.
	Loader ModuleLoader `mapstructure:"-"`
	// Lexer tokenizes source, defaulting to the built-in scanner.
	Lexer Lexer `mapstructure:"-"`
	// MetadataReader parses aspect metadata blocks, defaulting to the built-in reader.
	MetadataReader MetadataReader `mapstructure:"-"`
	// Transformers are appended to the built-in transformers.
	Transformers []SourceTransformer `mapstructure:"-"`
	// Registerer registers the kernel metrics when set.
	Registerer prometheus.Registerer `mapstructure:"-"`
}

// NewConfig creates a new Config with default values and applies the provided options.
func NewConfig(opts ...Option) Config {
	c := &Config{
		Autoload: map[string]string{},
	}
	for _, opt := range opts {
		_ = opt(c)
	}
	return *c
}
