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

// Package aspect provides the built-in aspects of the weaver.
// Each aspect declares its advices programmatically and takes a Pointcut field selecting the
// join points it applies to; an empty Pointcut uses the aspect default.
//
// Package aspect 内置切面
//
// Available built-in aspects, by declaration order (Order):
//
//   - RunSnapshot (5): records arguments, result, error and timing of every invocation
//   - ConcurrencyLimiter (10): rejects invocations above a concurrency limit
//   - SkipFallback (10): skips a failing join point for a while after repeated errors
//   - Validator (10): checks arguments against the declared parameters
//   - Metrics (20): counts invocations per join point
//   - Cache (30): memoizes results of @Cacheable members
//   - Script (50): before/after advices written in JavaScript
//   - Debug (900): logs arguments, results and failures
//
// All of them are registered into kernel.Registry and can be enabled by name:
//
//	kernel.Init(map[string]any{
//		"appDir":  "/srv/app",
//		"aspects": []string{"debug", "metrics"},
//	})
//
// or passed as configured instances:
//
//	weaver.Init(options, types.WithAspects(&aspect.Debug{Pointcut: "within(App\\Service\\**)"}))
package aspect
