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

package ssa

// Invalidation describes what a pass changed, so dependent cached analyses
// are recomputed selectively.
type Invalidation uint8

const (
	InvInstructions Invalidation = 1 << iota
	InvCFG
	InvCallGraph
)

const (
	InvNone Invalidation = 0
	InvAll               = InvInstructions | InvCFG | InvCallGraph
)

// Pass rewrites one function in place.
type Pass interface {
	Apply(cfg *CFG) Invalidation
}

// ModulePass rewrites the whole module, and runs only after the function
// passes of the same iteration have been batched across every function.
type ModulePass interface {
	ApplyModule(mod *Module) Invalidation
}

type PassDescriptor struct {
	Name string
	Func Pass
	Mod  ModulePass
}

// Passes is the optimization pipeline, applied in order on every
// iteration of the fixed-point loop.
var Passes = [...]PassDescriptor{
	{Name: "CFG Simplification", Func: SimplifyCFG{}},
	{Name: "Stack Promotion", Func: Mem2Reg{}},
	{Name: "Dead Code Elimination", Func: DeadCode{}},
	{Name: "Unused Function Elimination", Mod: FuncElim{}},
}

// PassManager drives the pipeline to a fixed point, bounded by a hard
// iteration cap and an optional total pass-invocation cap.
type PassManager struct {
	maxIters int
	maxRuns  int
	runs     int
	complete map[string]bool
}

// CreatePassManager builds a manager capped at maxIters outer iterations;
// maxRuns, when positive, bounds the total number of pass invocations
// (a bisection aid, not a tuning knob).
func CreatePassManager(maxIters int, maxRuns int) *PassManager {
	return &PassManager{
		maxIters: maxIters,
		maxRuns:  maxRuns,
		complete: make(map[string]bool),
	}
}

func (self *PassManager) capped() bool {
	return self.maxRuns > 0 && self.runs >= self.maxRuns
}

// Runs reports how many pass invocations have been spent so far.
func (self *PassManager) Runs() int {
	return self.runs
}

func (self *PassManager) invalidate(mod *Module, fn *CFG, inv Invalidation) {
	self.complete = make(map[string]bool)
	if fn != nil && inv&InvCFG != 0 {
		fn.Invalidate()
	}
	if inv&InvCallGraph != 0 {
		mod.invalidateCallGraph()
	}
}

// Run optimizes every function of mod in place until a full iteration
// changes nothing, or a cap is hit.
func (self *PassManager) Run(mod *Module) {
	for i := 0; i < self.maxIters; i++ {
		changed := false
		touched := make(map[string]bool)

		for _, p := range Passes {
			if p.Func != nil {
				for _, name := range mod.Names() {
					if self.complete[name] {
						continue
					}
					if self.capped() {
						return
					}
					fn := mod.Get(name)
					self.runs++
					if inv := p.Func.Apply(fn); inv != InvNone {
						changed = true
						touched[name] = true
						self.invalidate(mod, fn, inv)
					}
				}
			} else {
				if self.capped() {
					return
				}
				self.runs++
				if inv := p.Mod.ApplyModule(mod); inv != InvNone {
					changed = true
					self.invalidate(mod, nil, inv)
					if inv&InvCFG != 0 {
						for _, name := range mod.Names() {
							mod.Get(name).Invalidate()
						}
					}
				}
			}
		}

		if !changed {
			break
		}

		/* functions no pass touched this iteration are settled until the
		 * next reported change clears the marks */
		for _, name := range mod.Names() {
			if !touched[name] {
				self.complete[name] = true
			}
		}
	}
}
