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

// Package js runs advice scripts on the goja JavaScript engine.
//
// Scripts are compiled once. Each engine keeps a pool of VMs that already ran the main
// script and the user-defined functions, so executing a function is a lookup plus a call.
package js

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dop251/goja"
	"go.uber.org/zap"
)

// GlobalKey global properties key, call them through the global.xx method
const GlobalKey = "global"

// Config of a js engine.
type Config struct {
	// MaxExecutionTime interrupts a function running longer, 0 disables the limit
	MaxExecutionTime time.Duration
	// Globals are exposed to scripts as global.xx
	Globals map[string]any
	// Udf user-defined functions. A string value is js source, any other value is set as is.
	Udf    map[string]any
	Logger *zap.Logger
}

// GojaJsEngine goja js engine
type GojaJsEngine struct {
	vmPool      sync.Pool
	config      Config
	jsScript    *goja.Program
	udfPrograms map[string]*goja.Program
}

// NewGojaJsEngine compiles jsScript and the user-defined functions of config.
// fromVars are set on every VM before the script runs.
func NewGojaJsEngine(config Config, jsScript string, fromVars map[string]any) (*GojaJsEngine, error) {
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	program, err := goja.Compile("", jsScript, true)
	if err != nil {
		return nil, err
	}
	g := &GojaJsEngine{config: config, jsScript: program}
	if err = g.preCompile(); err != nil {
		return nil, err
	}
	// the first VM reports errors of the main script, e.g. a throwing top-level statement
	vm, err := g.newVm(fromVars)
	if err != nil {
		return nil, err
	}
	g.vmPool.New = func() any {
		vm, err := g.newVm(fromVars)
		if err != nil {
			g.config.Logger.Warn("js vm error", zap.Error(err))
		}
		return vm
	}
	g.vmPool.Put(vm)
	return g, nil
}

func (g *GojaJsEngine) preCompile() error {
	var programs = make(map[string]*goja.Program)
	for k, v := range g.config.Udf {
		if src, ok := v.(string); ok {
			p, err := goja.Compile(k, src, true)
			if err != nil {
				return fmt.Errorf("udf %s: %w", k, err)
			}
			programs[k] = p
		}
	}
	g.udfPrograms = programs
	return nil
}

func (g *GojaJsEngine) newVm(fromVars map[string]any) (*goja.Runtime, error) {
	vm := goja.New()
	for k, v := range fromVars {
		if err := vm.Set(k, v); err != nil {
			g.config.Logger.Warn("set js variable", zap.String("name", k), zap.Error(err))
		}
	}
	if len(g.config.Globals) != 0 {
		if err := vm.Set(GlobalKey, g.config.Globals); err != nil {
			g.config.Logger.Warn("set js globals", zap.Error(err))
		}
	}
	for k, v := range g.config.Udf {
		var err error
		if p, ok := g.udfPrograms[k]; ok {
			_, err = vm.RunProgram(p)
		} else {
			err = vm.Set(k, v)
		}
		if err != nil {
			g.config.Logger.Warn("load udf", zap.String("name", k), zap.Error(err))
		}
	}
	timer := g.startTimeout(vm)
	_, err := vm.RunProgram(g.jsScript)
	g.stopTimeout(timer)
	vm.ClearInterrupt()
	return vm, err
}

// Execute calls the global function functionName with argumentList and exports its result.
// A js exception or a timeout is returned as an error.
func (g *GojaJsEngine) Execute(functionName string, argumentList ...any) (out any, err error) {
	defer func() {
		if caught := recover(); caught != nil {
			err = fmt.Errorf("%s", caught)
		}
	}()

	vm := g.vmPool.Get().(*goja.Runtime)
	defer g.vmPool.Put(vm)

	timer := g.startTimeout(vm)
	defer func() {
		g.stopTimeout(timer)
		vm.ClearInterrupt()
	}()

	f, ok := goja.AssertFunction(vm.Get(functionName))
	if !ok {
		return nil, errors.New(functionName + " is not a function")
	}
	var params = make([]goja.Value, len(argumentList))
	for i, v := range argumentList {
		params[i] = vm.ToValue(v)
	}
	res, err := f(goja.Undefined(), params...)
	if err != nil {
		return nil, err
	}
	return res.Export(), nil
}

// startTimeout arms an interrupt of vm, nil when no limit is configured.
func (g *GojaJsEngine) startTimeout(vm *goja.Runtime) *time.Timer {
	if g.config.MaxExecutionTime <= 0 {
		return nil
	}
	return time.AfterFunc(g.config.MaxExecutionTime, func() {
		vm.Interrupt("execution timeout")
	})
}

func (g *GojaJsEngine) stopTimeout(timer *time.Timer) {
	if timer != nil {
		timer.Stop()
	}
}
