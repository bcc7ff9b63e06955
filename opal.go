/*
 * Copyright 2025 CloudWeGo Authors
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

// Package opal is the optimizing middle-end of an ahead-of-time compiler:
// it rewrites SSA-form IR modules in place, simplifying control flow,
// promoting stack slots to SSA values and removing dead code, until the
// pipeline reaches a fixed point.
package opal

import (
	"github.com/cloudwego/opal/internal/opts"
	"github.com/cloudwego/opal/ssa"
)

// Optimize runs the whole pass pipeline over every function of mod.
func Optimize(mod *ssa.Module, options ...Option) {
	o := opts.GetDefaultOptions()
	for _, fn := range options {
		fn(&o)
	}
	for _, name := range mod.Names() {
		mod.Get(name).Diag = o.Diagnostics
	}
	ssa.CreatePassManager(o.MaxPassIterations, o.MaxPassRuns).Run(mod)
}

// OptimizeFunc optimizes a single function as a one-function module.
func OptimizeFunc(fn *ssa.CFG, options ...Option) {
	mod := ssa.CreateModule()
	mod.AddFunc(fn)
	Optimize(mod, options...)
}
