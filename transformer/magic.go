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

package transformer

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/rulego/weaver/api/types"
)

var _ types.SourceTransformer = (*MagicConstantTransformer)(nil)

// MagicConstantTransformer pins __FILE__ and __DIR__ to the original source identity, so
// artifacts executed from the cache keep reporting their original location.
type MagicConstantTransformer struct{}

// NewMagicConstantTransformer creates the transformer.
func NewMagicConstantTransformer() *MagicConstantTransformer {
	return &MagicConstantTransformer{}
}

func (t *MagicConstantTransformer) Name() string {
	return "magicConstant"
}

func (t *MagicConstantTransformer) Version() string {
	return "1"
}

// Transform implements types.SourceTransformer.
func (t *MagicConstantTransformer) Transform(unit *types.SourceUnit) (types.TransformResult, error) {
	upper := bytes.ToUpper(unit.Source)
	if !bytes.Contains(upper, []byte("__FILE__")) && !bytes.Contains(upper, []byte("__DIR__")) {
		return types.TransformResult{Source: unit.Source}, nil
	}
	tokens, err := unit.Tokens()
	if err != nil {
		return types.TransformResult{}, err
	}
	var out strings.Builder
	changed := false
	for _, tok := range tokens {
		if tok.Kind == types.TokenIdent {
			switch strings.ToUpper(tok.Text) {
			case "__FILE__":
				out.WriteString(quoteString(unit.Identity))
				changed = true
				continue
			case "__DIR__":
				out.WriteString(quoteString(filepath.Dir(unit.Identity)))
				changed = true
				continue
			}
		}
		out.WriteString(tok.Text)
	}
	if !changed {
		return types.TransformResult{Source: unit.Source}, nil
	}
	return types.TransformResult{Source: []byte(out.String()), Changed: true}, nil
}
