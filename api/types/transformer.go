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

import "strings"

// TokenKind lexical class of a token of the host grammar
type TokenKind int

const (
	TokenOther TokenKind = iota
	// TokenWhitespace spaces, tabs and newlines
	TokenWhitespace
	// TokenComment line, block and doc comments
	TokenComment
	// TokenInlineHTML text outside of the code tags
	TokenInlineHTML
	// TokenOpenTag <?php or <?=
	TokenOpenTag
	// TokenCloseTag ?>
	TokenCloseTag
	// TokenIdent identifiers, including magic constants such as __CLASS__
	TokenIdent
	// TokenKeyword reserved words relevant to join points (new, function, class, ...)
	TokenKeyword
	// TokenVariable $name
	TokenVariable
	// TokenNsSeparator \
	TokenNsSeparator
	// TokenString quoted strings, heredoc and nowdoc, as a single token
	TokenString
	// TokenNumber numeric literals
	TokenNumber
	// TokenPunct operators and punctuation
	TokenPunct
)

var tokenKindNames = map[TokenKind]string{
	TokenOther:       "other",
	TokenWhitespace:  "whitespace",
	TokenComment:     "comment",
	TokenInlineHTML:  "inlineHTML",
	TokenOpenTag:     "openTag",
	TokenCloseTag:    "closeTag",
	TokenIdent:       "ident",
	TokenKeyword:     "keyword",
	TokenVariable:    "variable",
	TokenNsSeparator: "nsSeparator",
	TokenString:      "string",
	TokenNumber:      "number",
	TokenPunct:       "punct",
}

func (k TokenKind) String() string {
	return tokenKindNames[k]
}

// Token is one lexical token. Concatenating the text of all tokens of a unit yields the
// original source.
type Token struct {
	Kind TokenKind
	Text string
	// Offset byte offset in the source
	Offset int
	// Line 1-based line of the first byte
	Line int
}

// Trivia reports whether the token carries no syntax (whitespace or comment).
func (t Token) Trivia() bool {
	return t.Kind == TokenWhitespace || t.Kind == TokenComment
}

// IsKeyword reports whether the token is the given reserved word.
func (t Token) IsKeyword(word string) bool {
	return t.Kind == TokenKeyword && strings.EqualFold(t.Text, word)
}

// IsPunct reports whether the token is the given punctuation.
func (t Token) IsPunct(p string) bool {
	return t.Kind == TokenPunct && t.Text == p
}

// IsName reports whether the token can be part of a name: identifiers and keywords
// used as names.
func (t Token) IsName() bool {
	return t.Kind == TokenIdent || t.Kind == TokenKeyword
}

// Lexer turns source text into a token stream. It is a pluggable collaborator so
// transformer logic stays independent of the host grammar lexer implementation.
// Lexer 词法分析器
type Lexer interface {
	Tokenize(source []byte) ([]Token, error)
}

// AliasTable is the namespace and import table of a source unit.
type AliasTable struct {
	Namespace string
	// Aliases maps the lower-cased alias to the fully-qualified name
	Aliases map[string]string
}

// NewAliasTable creates an empty alias table for a namespace.
func NewAliasTable(namespace string) *AliasTable {
	return &AliasTable{Namespace: TrimName(namespace), Aliases: map[string]string{}}
}

// Add imports name under alias. An empty alias uses the last segment of name.
func (a *AliasTable) Add(name, alias string) {
	name = TrimName(name)
	if alias == "" {
		alias = name
		if i := strings.LastIndex(name, `\`); i >= 0 {
			alias = name[i+1:]
		}
	}
	if a.Aliases == nil {
		a.Aliases = map[string]string{}
	}
	a.Aliases[strings.ToLower(alias)] = name
}

// Resolve resolves a class name as written at a use site into a fully-qualified name:
// fully-qualified names are kept, `namespace\X` is relative to the current namespace,
// an imported first segment is replaced by its target, anything else is prefixed by
// the current namespace.
func (a *AliasTable) Resolve(name string) string {
	name = strings.TrimSpace(name)
	if strings.HasPrefix(name, `\`) {
		return TrimName(name)
	}
	if len(name) > len(`namespace\`) && strings.EqualFold(name[:len(`namespace\`)], `namespace\`) {
		return a.qualify(name[len(`namespace\`):])
	}
	first, rest := name, ""
	if i := strings.Index(name, `\`); i >= 0 {
		first, rest = name[:i], name[i:]
	}
	if target, ok := a.Aliases[strings.ToLower(first)]; ok {
		return target + rest
	}
	return a.qualify(name)
}

func (a *AliasTable) qualify(name string) string {
	if a.Namespace == "" {
		return name
	}
	return a.Namespace + `\` + name
}

// Clone returns a deep copy.
func (a *AliasTable) Clone() *AliasTable {
	c := NewAliasTable(a.Namespace)
	for k, v := range a.Aliases {
		c.Aliases[k] = v
	}
	return c
}

// SourceUnit is one unit of source text going through the transformer pipeline.
type SourceUnit struct {
	// Identity of the source, usually the absolute file path
	Identity string
	Source   []byte
	// Aliases optional alias table supplied by the introspection provider
	Aliases *AliasTable

	lexer  Lexer
	tokens []Token
	err    error
	lexed  bool
}

// NewSourceUnit creates a unit tokenized lazily with lexer.
func NewSourceUnit(identity string, source []byte, lexer Lexer) *SourceUnit {
	return &SourceUnit{Identity: identity, Source: source, lexer: lexer}
}

// Tokens returns the token stream of the current source, tokenizing on first use.
func (u *SourceUnit) Tokens() ([]Token, error) {
	if !u.lexed {
		if u.lexer == nil {
			u.err = ErrNoLexer
		} else {
			u.tokens, u.err = u.lexer.Tokenize(u.Source)
		}
		u.lexed = true
	}
	return u.tokens, u.err
}

// Replace sets new source text and drops the cached tokens.
func (u *SourceUnit) Replace(source []byte) {
	u.Source = source
	u.tokens = nil
	u.err = nil
	u.lexed = false
}

// TransformResult is the outcome of one transformer on one unit.
type TransformResult struct {
	Source   []byte
	Changed  bool
	Warnings []*TransformError
}

// SourceTransformer rewrites load-time source text to insert interception hooks.
// Transformers must be idempotent and a pure function of the unit.
// SourceTransformer 源码转换器
type SourceTransformer interface {
	Name() string
	Transform(unit *SourceUnit) (TransformResult, error)
}

// Versioned is implemented by transformers whose output format changes between releases.
// The version takes part in the transformer-set version and therefore in cache keys.
type Versioned interface {
	Version() string
}

// LineMapping maps a line of woven source to the line of the original source.
type LineMapping struct {
	Line     int `json:"line"`
	Original int `json:"original"`
}

// WovenArtifact is a transformed source unit.
// WovenArtifact 织入后的源码制品
type WovenArtifact struct {
	Identity     string        `json:"identity"`
	Fingerprint  string        `json:"fingerprint"`
	Version      string        `json:"version"`
	Transformers []string      `json:"transformers,omitempty"`
	Changed      bool          `json:"changed"`
	Warnings     []string      `json:"warnings,omitempty"`
	Lines        []LineMapping `json:"lines,omitempty"`
	Source       []byte        `json:"-"`
}

// Key returns the cache key of the artifact.
func (a *WovenArtifact) Key() ArtifactKey {
	return ArtifactKey{Fingerprint: a.Fingerprint, Version: a.Version}
}

// OriginalLine maps a woven line back to the original source, best effort.
func (a *WovenArtifact) OriginalLine(line int) int {
	for _, m := range a.Lines {
		if m.Line == line {
			return m.Original
		}
	}
	return line
}

// ArtifactKey identifies a woven artifact: the fingerprint of the source identity and text,
// and the transformer-set version.
type ArtifactKey struct {
	Fingerprint string
	Version     string
}

func (k ArtifactKey) String() string {
	return k.Fingerprint + "-" + k.Version
}

// ArtifactCache stores woven artifacts.
type ArtifactCache interface {
	// Get returns the artifact, ok=false on a miss. Corrupted entries are misses.
	Get(key ArtifactKey) (*WovenArtifact, bool)
	// Put stores the artifact and returns the artifact visible to readers, which is
	// the one of a concurrent writer that won the race.
	Put(artifact *WovenArtifact) (*WovenArtifact, error)
}
