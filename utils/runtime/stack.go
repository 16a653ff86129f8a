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

// Package runtime captures stack traces for advice failures.
//
// Usage example:
//
//	defer func() {
//		if e := recover(); e != nil {
//			log.Println(e, runtime.Stack())
//		}
//	}()
package runtime

import (
	"runtime"
	"strconv"
	"strings"
)

const maxDepth = 32

// Stack returns the stack of the caller of Stack's caller, one frame per line.
// Stack 获取堆栈信息
func Stack() string {
	return StackSkip(1)
}

// StackSkip returns the stack above skip frames of the caller, one `function file:line`
// frame per line. Runtime internal frames are left out.
func StackSkip(skip int) string {
	var pc = make([]uintptr, maxDepth)
	n := runtime.Callers(skip+3, pc)
	frames := runtime.CallersFrames(pc[:n])

	var build strings.Builder
	for {
		frame, more := frames.Next()
		if !strings.HasPrefix(frame.Function, "runtime.") {
			build.WriteString(" ")
			build.WriteString(frame.Function)
			build.WriteString(" ")
			build.WriteString(frame.File)
			build.WriteString(":")
			build.WriteString(strconv.Itoa(frame.Line))
			build.WriteString(" \n")
		}
		if !more {
			break
		}
	}
	return build.String()
}
