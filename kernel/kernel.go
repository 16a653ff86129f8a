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

// Package kernel ties aspect registration, source weaving and artifact caching together.
//
// Init discovers the configured aspects, compiles their pointcuts, registers every advice
// into a frozen index and installs the transformer pipeline in front of the module loader.
// Rewritten sites reach the runtime through the kernel dispatcher.
//
// Package kernel 切面内核
package kernel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/rulego/weaver/api/types"
	"github.com/rulego/weaver/cache"
	"github.com/rulego/weaver/engine"
	"github.com/rulego/weaver/metadata"
	"github.com/rulego/weaver/pointcut"
	"github.com/rulego/weaver/transformer"
	"github.com/rulego/weaver/utils/fs"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Kernel is an aspect kernel. It is initialized once and read-only afterwards.
// Kernel 切面内核，只能初始化一次
type Kernel struct {
	id       string
	registry *AspectRegistry

	mu          sync.Mutex
	initialized atomic.Bool

	config      types.Config
	settings    *settings
	logger      *zap.Logger
	pointcuts   *pointcut.Registry
	index       *engine.Index
	builder     *engine.ChainBuilder
	dispatcher  *engine.Dispatcher
	definitions []*types.AspectDefinition
	pipeline    *transformer.Pipeline
	lexer       types.Lexer
	source      types.ModuleLoader
	memory      *cache.MemoryCache
	files       *cache.FileCache
	metrics     *Metrics
	watcher     *watcher
	group       singleflight.Group
}

// New creates an uninitialized kernel enabling aspects by name from the default Registry.
func New() *Kernel {
	return NewWithRegistry(Registry)
}

// NewWithRegistry creates an uninitialized kernel using registry for the aspects option.
func NewWithRegistry(registry *AspectRegistry) *Kernel {
	return &Kernel{
		id:       uuid.Must(uuid.NewV4()).String(),
		registry: registry,
	}
}

// ID returns the kernel instance id.
func (k *Kernel) ID() string {
	return k.id
}

// Init configures the kernel from the map form of the options, for example
//
//	{"appDir": "/srv/app", "cacheDir": "/var/cache/weaver", "includePaths": ["src"], "debug": false}
//
// followed by opts. It validates every option before installing anything: on error the kernel
// stays uninitialized. A second call after a successful one returns types.ErrAlreadyInitialized.
func (k *Kernel) Init(options map[string]any, opts ...types.Option) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.initialized.Load() {
		return types.ErrAlreadyInitialized
	}

	config := types.NewConfig()
	if err := decodeOptions(options, &config); err != nil {
		return err
	}
	for _, opt := range opts {
		if err := opt(&config); err != nil {
			return &types.ConfigurationError{Reason: "option failed", Err: err}
		}
	}
	s, err := validate(&config)
	if err != nil {
		return err
	}
	lex, lexName, err := newLexer(&config)
	if err != nil {
		return err
	}
	logger := types.NewLogger(config.Logger, config.Debug).With(zap.String("kernel", k.id))

	aspects, err := collectAspects(k.registry, &config)
	if err != nil {
		return err
	}
	reader := config.MetadataReader
	if reader == nil {
		reader = metadata.NewReader()
	}
	aspectReader := reader
	if config.Debug && config.MetadataReader == nil {
		aspectReader = metadata.NewReader(metadata.WithStrict(aspectAnnotations...))
	}
	pointcuts := pointcut.NewRegistry(config.Introspector)
	definitions, err := define(aspects, aspectReader, pointcuts)
	if err != nil {
		return err
	}

	metrics := newMetrics()
	if err := metrics.register(config.Registerer); err != nil {
		return &types.ConfigurationError{Option: "registerer", Reason: "cannot register metrics", Err: err}
	}

	index := engine.NewIndex()
	for _, def := range definitions {
		if err := index.Add(def.Advices...); err != nil {
			return err
		}
	}
	index.Freeze()
	builder := engine.NewChainBuilder(index,
		engine.WithStrict(config.Debug),
		engine.WithLogger(logger),
		engine.WithOnBuild(func(chain *engine.InterceptorChain) {
			metrics.ChainBuilds.Inc()
		}),
	)

	match := func(jp *types.JoinPoint) bool {
		return len(index.Matching(jp)) > 0
	}
	transformers := append(transformer.DefaultTransformers(match, reader), config.Transformers...)
	pipeline := transformer.NewPipeline(transformers,
		transformer.WithLogger(logger),
		transformer.WithDebug(config.Debug),
		// woven method bodies depend on the advisor set
		transformer.WithInputs(append(advisorInputs(index, pointcuts), "lexer "+lexName)...),
	)

	source := config.Loader
	if source == nil {
		source = NewFileLoader(s.appDir, s.autoload)
	}

	// artifact caching is off in debug mode
	var memory *cache.MemoryCache
	var files *cache.FileCache
	if !config.Debug {
		var next types.ArtifactCache
		if s.cacheDir != "" {
			files = cache.NewFileCache(s.cacheDir, logger)
			next = files
		}
		memory = cache.NewMemoryCache(next)
	}

	var w *watcher
	if config.Watch {
		w, err = newWatcher(s.appDir, s.filter, logger, k.evict)
		if err != nil {
			return &types.ConfigurationError{Option: "watch", Reason: "cannot watch " + s.appDir, Err: err}
		}
	}

	k.config = config
	k.settings = s
	k.logger = logger
	k.pointcuts = pointcuts
	k.index = index
	k.builder = builder
	k.dispatcher = engine.NewDispatcher(builder, config.Introspector, config.Instantiator)
	k.definitions = definitions
	k.pipeline = pipeline
	k.lexer = lex
	k.source = source
	k.memory = memory
	k.files = files
	k.metrics = metrics
	k.watcher = w
	k.initialized.Store(true)

	logger.Info("aspect kernel initialized",
		zap.String("appDir", s.appDir),
		zap.Int("aspects", len(definitions)),
		zap.Int("advices", index.Len()),
		zap.String("version", pipeline.Version()),
		zap.Bool("debug", config.Debug))
	return nil
}

// Initialized reports whether Init succeeded.
func (k *Kernel) Initialized() bool {
	return k.initialized.Load()
}

// Config returns the effective configuration.
func (k *Kernel) Config() types.Config {
	return k.config
}

// Logger returns the kernel logger.
func (k *Kernel) Logger() *zap.Logger {
	if k.logger == nil {
		return zap.NewNop()
	}
	return k.logger
}

// Definitions returns the registered aspect definitions in declaration order.
func (k *Kernel) Definitions() []*types.AspectDefinition {
	return k.definitions
}

// Pointcuts returns the pointcut registry, nil before Init.
func (k *Kernel) Pointcuts() *pointcut.Registry {
	return k.pointcuts
}

// ChainBuilder returns the chain builder, nil before Init.
func (k *Kernel) ChainBuilder() *engine.ChainBuilder {
	return k.builder
}

// Dispatcher returns the runtime target of rewritten sites, nil before Init.
func (k *Kernel) Dispatcher() *engine.Dispatcher {
	return k.dispatcher
}

// Metrics returns the kernel collectors, nil before Init.
func (k *Kernel) Metrics() *Metrics {
	return k.metrics
}

// Version returns the transformer-set version.
func (k *Kernel) Version() string {
	if !k.Initialized() {
		return ""
	}
	return k.pipeline.Version()
}

// Construct runs the constructor chain of typeName.
func (k *Kernel) Construct(typeName string, args []any) (any, error) {
	if !k.Initialized() {
		return nil, types.ErrNotInitialized
	}
	return k.dispatcher.Construct(typeName, args)
}

// Call runs the method chain of typeName::member around original.
func (k *Kernel) Call(typeName, member string, this any, args []any, original engine.Target) (any, error) {
	if !k.Initialized() {
		return nil, types.ErrNotInitialized
	}
	return k.dispatcher.Call(typeName, member, this, args, original)
}

// Loader returns the module loader serving woven source for included units.
func (k *Kernel) Loader() types.ModuleLoader {
	return types.ModuleLoaderFunc(func(identity string) ([]byte, error) {
		if !k.Initialized() {
			return nil, types.ErrNotInitialized
		}
		return (&weavingLoader{k: k, next: k.source}).Load(identity)
	})
}

// Weave returns the woven artifact of a source unit, from the cache when possible.
// Concurrent first weaves of the same unit share one transformation.
func (k *Kernel) Weave(identity string, source []byte) (*types.WovenArtifact, error) {
	if !k.Initialized() {
		return nil, types.ErrNotInitialized
	}
	key := types.ArtifactKey{Fingerprint: cache.Fingerprint(identity, source), Version: k.pipeline.Version()}
	if k.memory != nil {
		if a, ok := k.memory.Get(key); ok {
			k.metrics.CacheHits.Inc()
			return a, nil
		}
		k.metrics.CacheMisses.Inc()
	}
	v, err, _ := k.group.Do(key.String(), func() (interface{}, error) {
		if k.memory != nil {
			if a, ok := k.memory.Get(key); ok {
				return a, nil
			}
		}
		return k.transform(identity, source)
	})
	if err != nil {
		return nil, err
	}
	return v.(*types.WovenArtifact), nil
}

func (k *Kernel) transform(identity string, source []byte) (*types.WovenArtifact, error) {
	start := time.Now()
	unit := types.NewSourceUnit(identity, source, k.lexer)
	if p, ok := k.config.Introspector.(types.AliasProvider); ok {
		if table, ok := p.Aliases(identity); ok {
			unit.Aliases = table.Clone()
		}
	}
	artifact, err := k.pipeline.Transform(unit)
	k.metrics.WeaveDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		k.metrics.Weaves.WithLabelValues("error").Inc()
		return nil, err
	}
	k.metrics.Warnings.Add(float64(len(artifact.Warnings)))
	if artifact.Changed {
		k.metrics.Weaves.WithLabelValues("changed").Inc()
	} else {
		k.metrics.Weaves.WithLabelValues("unchanged").Inc()
	}
	if k.memory == nil {
		return artifact, nil
	}
	return k.memory.Put(artifact)
}

// evict drops the in-memory artifacts of a changed source file.
func (k *Kernel) evict(path string) {
	if k.memory == nil {
		return
	}
	if n := k.memory.DeleteByIdentity(path); n > 0 {
		k.logger.Debug("evicted artifacts", zap.String("identity", path), zap.Int("count", n))
	}
}

// Warmup weaves every included source file under the application directory in parallel and
// returns the number of woven files. Cancelling ctx stops scheduling further files.
func (k *Kernel) Warmup(ctx context.Context) (int, error) {
	if !k.Initialized() {
		return 0, types.ErrNotInitialized
	}
	paths, err := fs.GetFilePaths(k.settings.appDir, k.settings.filter)
	if err != nil {
		return 0, err
	}
	var count atomic.Int64
	parent := ctx
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, path := range paths {
		if !strings.EqualFold(filepath.Ext(path), SourceExt) {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		path := path
		g.Go(func() error {
			source, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			if _, err := k.Weave(path, source); err != nil {
				return err
			}
			count.Add(1)
			return nil
		})
	}
	if err = g.Wait(); err == nil {
		err = parent.Err()
	}
	k.logger.Info("warmup finished", zap.Int64("files", count.Load()), zap.Error(err))
	if err != nil {
		return int(count.Load()), fmt.Errorf("warmup: %w", err)
	}
	return int(count.Load()), nil
}

// Close stops the source watcher and closes aspects holding resources (io.Closer).
// Dispatching through the kernel stays possible.
func (k *Kernel) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	var errs []error
	if k.watcher != nil {
		errs = append(errs, k.watcher.Close())
		k.watcher = nil
	}
	for _, def := range k.definitions {
		if c, ok := def.Aspect.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}
