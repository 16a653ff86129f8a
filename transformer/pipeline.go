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

// Package transformer rewrites load-time source text so that object instantiations and
// intercepted method bodies go through the runtime dispatcher.
//
// Package transformer 源码转换管道，在加载期改写源码插入拦截点。
package transformer

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/rulego/weaver/api/types"
	"github.com/rulego/weaver/cache"
	"go.uber.org/zap"
)

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithLogger sets the logger receiving transform warnings.
func WithLogger(logger *zap.Logger) PipelineOption {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithDebug logs every run and every warning with its position.
func WithDebug(debug bool) PipelineOption {
	return func(p *Pipeline) {
		p.debug = debug
	}
}

// WithInputs adds state outside the source that transformer output depends on, such as
// the pointcuts a method transformer matches against. Inputs are order independent.
func WithInputs(inputs ...string) PipelineOption {
	return func(p *Pipeline) {
		p.inputs = append(p.inputs, inputs...)
	}
}

// Pipeline applies an ordered list of transformers to source units.
// Pipeline 源码转换管道
type Pipeline struct {
	transformers []types.SourceTransformer
	logger       *zap.Logger
	debug        bool
	inputs       []string
	version      string
	names        []string
}

// NewPipeline creates a pipeline running transformers in order.
func NewPipeline(transformers []types.SourceTransformer, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		transformers: transformers,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	// transformers do not commute, so they are hashed in application order
	parts := make([][]byte, 0, len(transformers)+len(p.inputs)+1)
	for _, t := range transformers {
		p.names = append(p.names, t.Name())
		parts = append(parts, []byte(t.Name()+"@"+transformerVersion(t)))
	}
	if len(p.inputs) > 0 {
		inputs := append([]string(nil), p.inputs...)
		sort.Strings(inputs)
		parts = append(parts, []byte("inputs"))
		for _, in := range inputs {
			parts = append(parts, []byte(in))
		}
	}
	p.version = cache.Digest(parts...)[:16]
	return p
}

// DefaultTransformers returns the built-in transformers in their application order.
func DefaultTransformers(match MatchFunc, reader types.MetadataReader) []types.SourceTransformer {
	return []types.SourceTransformer{
		NewMagicConstantTransformer(),
		NewMethodTransformer(match, reader),
		NewConstructorTransformer(),
	}
}

func transformerVersion(t types.SourceTransformer) string {
	if v, ok := t.(types.Versioned); ok {
		return v.Version()
	}
	return "0"
}

// Version returns the version of the transformer list and its inputs. It takes part in every
// artifact key.
func (p *Pipeline) Version() string {
	return p.version
}

// Names returns the transformer names in application order.
func (p *Pipeline) Names() []string {
	return append([]string(nil), p.names...)
}

// Transform runs every transformer on the unit and returns the woven artifact.
// Warnings never fail the run; transformer errors do.
func (p *Pipeline) Transform(unit *types.SourceUnit) (*types.WovenArtifact, error) {
	original := unit.Source
	artifact := &types.WovenArtifact{
		Identity:    unit.Identity,
		Fingerprint: cache.Fingerprint(unit.Identity, original),
		Version:     p.version,
	}
	for _, t := range p.transformers {
		result, err := t.Transform(unit)
		if err != nil {
			return nil, fmt.Errorf("transformer %s on %s: %w", t.Name(), unit.Identity, err)
		}
		for _, w := range result.Warnings {
			artifact.Warnings = append(artifact.Warnings, w.Error())
			p.warn(w)
		}
		if result.Changed {
			unit.Replace(result.Source)
			artifact.Transformers = append(artifact.Transformers, t.Name())
			artifact.Changed = true
		}
	}
	artifact.Source = unit.Source
	if artifact.Changed {
		artifact.Lines = MapLines(original, artifact.Source)
	}
	if p.debug {
		p.logger.Debug("source transformed",
			zap.String("identity", unit.Identity),
			zap.Bool("changed", artifact.Changed),
			zap.Strings("transformers", artifact.Transformers),
			zap.Int("warnings", len(artifact.Warnings)))
	}
	return artifact, nil
}

func (p *Pipeline) warn(w *types.TransformError) {
	fields := []zap.Field{
		zap.String("transformer", w.Transformer),
		zap.String("identity", w.Identity),
		zap.String("reason", w.Reason),
	}
	if p.debug {
		p.logger.Debug("transform warning", append(fields, zap.Int("line", w.Line))...)
		return
	}
	p.logger.Warn("transform warning", fields...)
}

// MapLines maps the lines of woven back to the lines of original where the rewrite moved
// them. Identity mappings are omitted; an empty result means every line kept its number.
func MapLines(original, woven []byte) []types.LineMapping {
	before := bytes.Split(original, []byte("\n"))
	after := bytes.Split(woven, []byte("\n"))
	if len(before) == len(after) {
		return nil
	}
	var mapping []types.LineMapping
	j := 0
	for i, line := range after {
		// look ahead a few lines for the same text, otherwise stay on the current original line
		for k := j; k < len(before) && k < j+8; k++ {
			if bytes.Equal(before[k], line) {
				j = k
				break
			}
		}
		if j >= len(before) {
			j = len(before) - 1
		}
		if i != j {
			mapping = append(mapping, types.LineMapping{Line: i + 1, Original: j + 1})
		}
		if j < len(before)-1 && bytes.Equal(before[j], line) {
			j++
		}
	}
	return mapping
}
