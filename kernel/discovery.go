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
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/rulego/weaver/api/types"
	"github.com/rulego/weaver/engine"
	"github.com/rulego/weaver/pointcut"
)

// annotation kinds recognized on aspect members
var aspectAnnotations = []string{"Pointcut", "Before", "After", "Around", "AfterThrowing"}

// aspectDecls is what one aspect declares, before pointcut compilation.
type aspectDecls struct {
	aspect    types.Aspect
	pointcuts []types.PointcutDecl
	advices   []types.AdviceDecl
}

// collectAspects returns the aspects enabled by name followed by the aspect instances, stably
// sorted by their order.
func collectAspects(registry *AspectRegistry, c *types.Config) ([]types.Aspect, error) {
	var aspects []types.Aspect
	for _, name := range c.AspectNames {
		a, err := registry.New(name)
		if err != nil {
			return nil, &types.ConfigurationError{Option: "aspects", Reason: "unknown aspect " + name, Err: err}
		}
		aspects = append(aspects, a)
	}
	for _, a := range c.Aspects {
		if a == nil {
			return nil, &types.ConfigurationError{Option: "aspects", Reason: "nil aspect"}
		}
		aspects = append(aspects, a)
	}
	sort.SliceStable(aspects, func(i, j int) bool {
		return types.AspectOrder(aspects[i]) < types.AspectOrder(aspects[j])
	})
	return aspects, nil
}

// declarations gathers the programmatic and annotated declarations of an aspect.
// Annotation blocks are parsed here, once.
func declarations(aspect types.Aspect, reader types.MetadataReader) (aspectDecls, error) {
	d := aspectDecls{aspect: aspect}
	if p, ok := aspect.(types.PointcutProvider); ok {
		d.pointcuts = append(d.pointcuts, p.Pointcuts()...)
	}
	if p, ok := aspect.(types.AdvisorProvider); ok {
		d.advices = append(d.advices, p.Advisors()...)
	}
	annotated, ok := aspect.(types.AnnotatedAspect)
	if !ok {
		return d, nil
	}
	value := reflect.ValueOf(aspect)
	for _, meta := range annotated.Metadata() {
		annotations, err := reader.Read(meta.Block)
		if err != nil {
			return d, fmt.Errorf("aspect %s member %s: %w", aspect.Type(), meta.Member, err)
		}
		for _, a := range annotations {
			if strings.EqualFold(a.Name, "Pointcut") {
				id := a.Attributes["id"]
				if id == "" {
					id = meta.Member
				}
				d.pointcuts = append(d.pointcuts, types.PointcutDecl{ID: id, Expr: a.Value()})
				continue
			}
			phase, ok := types.ParsePhase(a.Name)
			if !ok {
				continue
			}
			method := value.MethodByName(meta.Member)
			if !method.IsValid() {
				return d, fmt.Errorf("aspect %s: advice method %s not found", aspect.Type(), meta.Member)
			}
			d.advices = append(d.advices, types.AdviceDecl{
				Phase:    phase,
				Pointcut: a.Value(),
				Member:   meta.Member,
				Fn:       method.Interface(),
			})
		}
	}
	return d, nil
}

// define compiles the declarations of every aspect into definitions. Pointcuts of all aspects
// are declared first, so advices may reference a pointcut declared by another aspect.
func define(aspects []types.Aspect, reader types.MetadataReader, pointcuts *pointcut.Registry) ([]*types.AspectDefinition, error) {
	decls := make([]aspectDecls, 0, len(aspects))
	for _, a := range aspects {
		d, err := declarations(a, reader)
		if err != nil {
			return nil, err
		}
		decls = append(decls, d)
	}

	definitions := make([]*types.AspectDefinition, 0, len(decls))
	for i, d := range decls {
		def := &types.AspectDefinition{Name: d.aspect.Type(), Aspect: d.aspect, Index: i}
		for _, pd := range d.pointcuts {
			pc, err := pointcuts.Declare(pd.ID, pd.Expr)
			if err != nil {
				return nil, fmt.Errorf("aspect %s: %w", def.Name, err)
			}
			def.Pointcuts = append(def.Pointcuts, pc)
		}
		definitions = append(definitions, def)
	}

	for i, d := range decls {
		def := definitions[i]
		for j, ad := range d.advices {
			pc, err := pointcuts.Compile(ad.Pointcut)
			if err != nil {
				return nil, fmt.Errorf("aspect %s: %w", def.Name, err)
			}
			advice, err := types.NewAdvice(d.aspect, ad.Phase, pc, ad.Member, ad.Fn)
			if err != nil {
				return nil, err
			}
			advice.AspectIndex = i
			advice.Index = j
			def.Advices = append(def.Advices, advice)
		}
	}
	return definitions, nil
}

// advisorInputs lists the advised pointcuts and the declared pointcut ids. Two kernels
// sharing a cache directory get the same artifact keys only when these match.
func advisorInputs(index *engine.Index, pointcuts *pointcut.Registry) []string {
	var inputs []string
	for _, a := range index.Advices() {
		inputs = append(inputs, string(a.Phase)+" "+a.Pointcut.String())
	}
	for _, id := range pointcuts.IDs() {
		if p, ok := pointcuts.Pointcut(id); ok {
			inputs = append(inputs, "pointcut "+id+"="+p.String())
		}
	}
	return inputs
}

