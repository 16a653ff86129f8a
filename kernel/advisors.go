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
	"io"
	"reflect"

	"github.com/rulego/weaver/api/types"
	"gopkg.in/yaml.v3"
)

// AdvisorRecord describes one registered advisor. The callable is never serialized: it is
// rebuilt by resolving Member on the registered aspect instance.
type AdvisorRecord struct {
	Aspect      string      `yaml:"aspect"`
	AspectIndex int         `yaml:"aspectIndex"`
	Index       int         `yaml:"index"`
	Member      string      `yaml:"member,omitempty"`
	Phase       types.Phase `yaml:"phase"`
	PointcutID  string      `yaml:"pointcutId,omitempty"`
	Pointcut    string      `yaml:"pointcut"`
}

type advisorFile struct {
	Kernel   string          `yaml:"kernel,omitempty"`
	Version  string          `yaml:"version"`
	Advisors []AdvisorRecord `yaml:"advisors"`
}

// Advisors returns the records of every registered advice in chain order.
func (k *Kernel) Advisors() []AdvisorRecord {
	if !k.Initialized() {
		return nil
	}
	var records []AdvisorRecord
	for _, a := range k.index.Advices() {
		records = append(records, AdvisorRecord{
			Aspect:      a.AspectName,
			AspectIndex: a.AspectIndex,
			Index:       a.Index,
			Member:      a.Member,
			Phase:       a.Phase,
			PointcutID:  a.Pointcut.ID(),
			Pointcut:    a.Pointcut.String(),
		})
	}
	return records
}

// ExportAdvisors writes the advisor records as YAML.
func (k *Kernel) ExportAdvisors(w io.Writer) error {
	if !k.Initialized() {
		return types.ErrNotInitialized
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(advisorFile{Kernel: k.id, Version: k.pipeline.Version(), Advisors: k.Advisors()}); err != nil {
		return err
	}
	return enc.Close()
}

// ImportAdvisors reads advisor records and rebuilds their advices against the aspects
// registered in this kernel. Records of closures, without a member, cannot be rebuilt.
func (k *Kernel) ImportAdvisors(r io.Reader) ([]*types.Advice, error) {
	if !k.Initialized() {
		return nil, types.ErrNotInitialized
	}
	var file advisorFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("decode advisors: %w", err)
	}
	var advices []*types.Advice
	for i, rec := range file.Advisors {
		def := k.definition(rec.Aspect)
		if def == nil {
			return nil, fmt.Errorf("advisor %d: aspect %s is not registered", i, rec.Aspect)
		}
		if rec.Member == "" {
			return nil, fmt.Errorf("advisor %d: aspect %s: closure advice cannot be rebuilt", i, rec.Aspect)
		}
		method := reflect.ValueOf(def.Aspect).MethodByName(rec.Member)
		if !method.IsValid() {
			return nil, fmt.Errorf("advisor %d: aspect %s has no method %s", i, rec.Aspect, rec.Member)
		}
		expr := rec.Pointcut
		if rec.PointcutID != "" {
			if _, ok := k.pointcuts.Pointcut(rec.PointcutID); ok {
				expr = rec.PointcutID
			}
		}
		pc, err := k.pointcuts.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("advisor %d: %w", i, err)
		}
		advice, err := types.NewAdvice(def.Aspect, rec.Phase, pc, rec.Member, method.Interface())
		if err != nil {
			return nil, fmt.Errorf("advisor %d: %w", i, err)
		}
		advice.AspectIndex = rec.AspectIndex
		advice.Index = rec.Index
		advices = append(advices, advice)
	}
	return advices, nil
}

func (k *Kernel) definition(name string) *types.AspectDefinition {
	for _, def := range k.definitions {
		if def.Name == name {
			return def
		}
	}
	return nil
}
