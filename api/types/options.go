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

// Option is a function type that modifies the Config.
type Option func(*Config) error

// WithAppDir is an option that sets the application root directory.
func WithAppDir(dir string) Option {
	return func(c *Config) error {
		c.AppDir = dir
		return nil
	}
}

// WithCacheDir is an option that enables the on-disk artifact cache.
func WithCacheDir(dir string) Option {
	return func(c *Config) error {
		c.CacheDir = dir
		return nil
	}
}

// WithAutoload is an option that maps a namespace root to a directory.
func WithAutoload(namespace, dir string) Option {
	return func(c *Config) error {
		if c.Autoload == nil {
			c.Autoload = map[string]string{}
		}
		c.Autoload[namespace] = dir
		return nil
	}
}

// WithIncludePaths is an option that restricts weaving to the given paths.
func WithIncludePaths(paths ...string) Option {
	return func(c *Config) error {
		c.IncludePaths = append(c.IncludePaths, paths...)
		return nil
	}
}

// WithExcludePaths is an option that excludes paths from weaving.
func WithExcludePaths(paths ...string) Option {
	return func(c *Config) error {
		c.ExcludePaths = append(c.ExcludePaths, paths...)
		return nil
	}
}

// WithDebug is an option that sets the debug flag.
func WithDebug(debug bool) Option {
	return func(c *Config) error {
		c.Debug = debug
		return nil
	}
}

// WithWatch is an option that enables source change watching.
func WithWatch(watch bool) Option {
	return func(c *Config) error {
		c.Watch = watch
		return nil
	}
}

// WithLogger is an option that sets the logger of the Config.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Config) error {
		c.Logger = logger
		return nil
	}
}

// WithAspects is an option that appends aspect instances, declared in the given order.
func WithAspects(aspects ...Aspect) Option {
	return func(c *Config) error {
		c.Aspects = append(c.Aspects, aspects...)
		return nil
	}
}

// WithIntrospector is an option that sets the introspection provider.
func WithIntrospector(introspector Introspector) Option {
	return func(c *Config) error {
		c.Introspector = introspector
		return nil
	}
}

// WithInstantiator is an option that sets the direct constructor used by the dispatcher.
func WithInstantiator(instantiator Instantiator) Option {
	return func(c *Config) error {
		c.Instantiator = instantiator
		return nil
	}
}

// WithLoader is an option that sets the module loader.
func WithLoader(loader ModuleLoader) Option {
	return func(c *Config) error {
		c.Loader = loader
		return nil
	}
}

// WithLexer is an option that sets the lexer used by transformers.
func WithLexer(lexer Lexer) Option {
	return func(c *Config) error {
		c.Lexer = lexer
		return nil
	}
}

// WithMetadataReader is an option that sets the annotation reader.
func WithMetadataReader(reader MetadataReader) Option {
	return func(c *Config) error {
		c.MetadataReader = reader
		return nil
	}
}

// WithTransformers is an option that appends source transformers after the built-in ones.
func WithTransformers(transformers ...SourceTransformer) Option {
	return func(c *Config) error {
		c.Transformers = append(c.Transformers, transformers...)
		return nil
	}
}

// WithRegisterer is an option that registers the kernel metrics.
func WithRegisterer(registerer prometheus.Registerer) Option {
	return func(c *Config) error {
		c.Registerer = registerer
		return nil
	}
}
