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

import (
	"sort"
)

// Module is a named collection of functions plus a lazily built caller
// index over their call instructions.
type Module struct {
	funcs   map[string]*CFG
	callers map[string][]string
}

func CreateModule() *Module {
	return &Module{
		funcs: make(map[string]*CFG),
	}
}

func (self *Module) AddFunc(fn *CFG) {
	assert(self.funcs[fn.Name] == nil, "module: duplicate function %q", fn.Name)
	self.funcs[fn.Name] = fn
	self.invalidateCallGraph()
}

func (self *Module) Get(name string) *CFG {
	return self.funcs[name]
}

func (self *Module) RemoveFunc(name string) {
	delete(self.funcs, name)
	self.invalidateCallGraph()
}

// Names returns every function name in deterministic order.
func (self *Module) Names() []string {
	ret := make([]string, 0, len(self.funcs))
	for name := range self.funcs {
		ret = append(ret, name)
	}
	sort.Strings(ret)
	return ret
}

// Callers lists the names of the functions holding at least one call to
// name, building the caller index on first query.
func (self *Module) Callers(name string) []string {
	if self.callers == nil {
		self.buildCallGraph()
	}
	return self.callers[name]
}

func (self *Module) invalidateCallGraph() {
	self.callers = nil
}

func (self *Module) buildCallGraph() {
	self.callers = make(map[string][]string)
	for _, name := range self.Names() {
		found := make(map[string]bool)
		self.funcs[name].PostOrder(func(bb *BasicBlock) {
			for _, v := range bb.Ins {
				if p, ok := v.(*IrCall); ok && !found[p.Fn.Name] {
					found[p.Fn.Name] = true
					self.callers[p.Fn.Name] = append(self.callers[p.Fn.Name], name)
				}
			}
		})
	}
}

// FuncElim removes private functions that no remaining function calls,
// cascading until the caller index is stable.
type FuncElim struct{}

func (FuncElim) ApplyModule(mod *Module) Invalidation {
	inv := InvNone
	for {
		removed := false
		for _, name := range mod.Names() {
			fn := mod.Get(name)
			if !fn.Private {
				continue
			}

			/* a self-recursive call keeps nothing alive */
			dead := true
			for _, c := range mod.Callers(name) {
				if c != name {
					dead = false
					break
				}
			}
			if dead {
				mod.RemoveFunc(name)
				removed = true
				inv |= InvCallGraph
			}
		}
		if !removed {
			break
		}
	}
	return inv
}
