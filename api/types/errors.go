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
	"errors"
	"fmt"
)

var (
	// ErrAlreadyInitialized is returned by a second Init of a kernel.
	ErrAlreadyInitialized = errors.New("kernel already initialized")
	// ErrNotInitialized is returned when a kernel is used before Init.
	ErrNotInitialized = errors.New("kernel not initialized")
	// ErrRegistryFrozen is returned when an advice is registered after init.
	ErrRegistryFrozen = errors.New("aspect registry is frozen")
	// ErrNotFound is returned by loaders for unknown identities.
	ErrNotFound = errors.New("not found")
	// ErrNoLexer is returned when a source unit has no lexer.
	ErrNoLexer = errors.New("no lexer configured")
)

// ConfigurationError invalid or missing kernel option. Fatal at init.
// ConfigurationError 配置错误
type ConfigurationError struct {
	Option string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	msg := "invalid configuration"
	if e.Option != "" {
		msg += " option=" + e.Option
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// PointcutResolutionError a pointcut expression is malformed or references an unresolvable
// symbol. Fatal at registration.
// PointcutResolutionError 切入点表达式解析错误
type PointcutResolutionError struct {
	Expression string
	// Pos byte offset of the offending part of the expression
	Pos    int
	Reason string
	Err    error
}

func (e *PointcutResolutionError) Error() string {
	msg := fmt.Sprintf("pointcut %q: %s at offset %d", e.Expression, e.Reason, e.Pos)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PointcutResolutionError) Unwrap() error {
	return e.Err
}

// TransformError a transformer met source it cannot safely rewrite. The construct is left
// unrewritten and the error is surfaced as a warning.
// TransformError 源码转换告警
type TransformError struct {
	Transformer string
	Identity    string
	Line        int
	Reason      string
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("%s: %s:%d: %s", e.Transformer, e.Identity, e.Line, e.Reason)
}

// AdviceExecutionError an advice callable panicked during chain execution.
// Errors returned by advices are propagated unchanged and never wrapped in this type.
// AdviceExecutionError 增强点执行异常
type AdviceExecutionError struct {
	Aspect    string
	Member    string
	Phase     Phase
	JoinPoint string
	Cause     error
	Stack     string
}

func (e *AdviceExecutionError) Error() string {
	return fmt.Sprintf("advice %s%s@%s failed at %s: %v", e.Aspect, memberSuffix(e.Member), e.Phase, e.JoinPoint, e.Cause)
}

func (e *AdviceExecutionError) Unwrap() error {
	return e.Cause
}

// CacheCorruptionError a persisted artifact failed an integrity or version check.
// It is treated as a cache miss, never fatal.
type CacheCorruptionError struct {
	Path   string
	Reason string
	Err    error
}

func (e *CacheCorruptionError) Error() string {
	msg := "corrupted cache entry " + e.Path + ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CacheCorruptionError) Unwrap() error {
	return e.Err
}
