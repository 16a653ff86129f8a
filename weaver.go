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

// Package weaver is an aspect-oriented weaving engine.
//
// Aspects declare advices (before, after, around, afterThrowing) bound to pointcut
// expressions. The kernel rewrites application sources as they are loaded so that object
// instantiations and method bodies go through a dispatcher, which runs the interceptor
// chain of the reached join point.
//
// # Usage
//
// Declare an aspect:
//
//	type Audit struct{}
//
//	func (a *Audit) Type() string { return "audit" }
//
//	func (a *Audit) Advisors() []types.AdviceDecl {
//		return []types.AdviceDecl{
//			types.Before("execution(public App\\**->save(*))", func(inv types.Invocation) error {
//				log.Println("saving", inv.JoinPoint())
//				return nil
//			}),
//		}
//	}
//
// Initialize the process-wide kernel once:
//
//	err := weaver.Init(map[string]any{
//		"appDir":       "/srv/app",
//		"cacheDir":     "/srv/app/var/weaver",
//		"autoload":     map[string]any{"App": "src"},
//		"includePaths": []string{"src"},
//	}, types.WithAspects(&Audit{}))
//
// Load sources through the weaving loader:
//
//	source, err := weaver.Loader().Load("App\\Models\\User")
//
// Rewritten sites reach the runtime through Construct and Call.
// Built-in aspects (debug, metrics, cache, limiter, ...) can be enabled by name with the
// "aspects" option.
package weaver

import (
	"context"

	"github.com/rulego/weaver/api/types"
	_ "github.com/rulego/weaver/builtin/aspect"
	"github.com/rulego/weaver/engine"
	"github.com/rulego/weaver/kernel"
)

// DefaultKernel 进程级默认切面内核
var DefaultKernel = kernel.New()

// Init initializes the default kernel. It succeeds once per process; a later call returns
// types.ErrAlreadyInitialized and changes nothing.
func Init(options map[string]any, opts ...types.Option) error {
	return DefaultKernel.Init(options, opts...)
}

// Initialized reports whether the default kernel is initialized.
func Initialized() bool {
	return DefaultKernel.Initialized()
}

// Construct is the target of rewritten instantiations.
func Construct(typeName string, args []any) (any, error) {
	return DefaultKernel.Construct(typeName, args)
}

// Call is the target of rewritten method bodies.
func Call(typeName, member string, this any, args []any, original engine.Target) (any, error) {
	return DefaultKernel.Call(typeName, member, this, args, original)
}

// Weave transforms one source unit with the default kernel.
func Weave(identity string, source []byte) (*types.WovenArtifact, error) {
	return DefaultKernel.Weave(identity, source)
}

// Loader returns the weaving module loader of the default kernel.
func Loader() types.ModuleLoader {
	return DefaultKernel.Loader()
}

// Warmup weaves every included file of the application.
func Warmup(ctx context.Context) (int, error) {
	return DefaultKernel.Warmup(ctx)
}

// Close releases the resources of the default kernel.
func Close() error {
	return DefaultKernel.Close()
}
