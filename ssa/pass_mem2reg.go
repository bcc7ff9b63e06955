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

// Mem2Reg promotes stack slots whose only uses are loads, stores and a
// single deallocation into SSA values, inserting block arguments at the
// minimal set of join points. Captured slots are left untouched.
type Mem2Reg struct{}

func (Mem2Reg) Apply(cfg *CFG) Invalidation {
	cfg.Rebuild()

	/* collect the candidates first, promotion rewrites the graph */
	allocs := []*_StackPromoter(nil)
	for _, bb := range cfg.Blocks() {
		for _, v := range bb.Ins {
			if p, ok := v.(*IrAllocStack); ok {
				allocs = append(allocs, &_StackPromoter{
					cfg:   cfg,
					home:  bb,
					alloc: p,
					dead:  make(map[IrNode]bool),
				})
			}
		}
	}

	inv := InvNone
	for _, p := range allocs {
		if p.promote() {
			inv |= InvInstructions
		}
	}
	return inv
}

type _MemRef struct {
	bb   *BasicBlock
	load *IrLoad
}

type _StackPromoter struct {
	cfg      *CFG
	home     *BasicBlock
	alloc    *IrAllocStack
	loads    []_MemRef
	stores   []*IrStore
	dealloc  *BasicBlock
	dfree    *IrDeallocStack
	ndealloc int
	captured bool
	dead     map[IrNode]bool
	sub      map[Reg]Reg
}

func (self *_StackPromoter) promote() bool {
	r := self.alloc.R
	self.sub = make(map[Reg]Reg)

	/* classify every use of the slot address */
	for _, bb := range self.cfg.Blocks() {
		for _, v := range bb.Ins {
			switch p := v.(type) {
			case *IrAllocStack:
				/* the allocation itself */
			case *IrLoad:
				if p.Mem == r {
					self.loads = append(self.loads, _MemRef{bb, p})
				}
			case *IrStore:
				if p.V == r {
					self.captured = true
				} else if p.Mem == r {
					self.stores = append(self.stores, p)
				}
			case *IrDeallocStack:
				if p.Mem == r {
					self.ndealloc++
					self.dealloc = bb
					self.dfree = p
				}
			default:
				for _, u := range usageSlots(v) {
					if *u == r {
						self.captured = true
					}
				}
			}
		}
		for _, u := range usageSlots(bb.Term) {
			if *u == r {
				self.captured = true
			}
		}
	}

	/* escaped slots and ambiguous deallocation disqualify the promotion */
	if self.captured || self.ndealloc > 1 {
		return false
	}

	/* no observer at all: drop the slot and every store into it */
	if len(self.loads) == 0 {
		for _, s := range self.stores {
			self.dead[s] = true
		}
		self.finish()
		return true
	}

	/* every use confined to a single block: one linear scan suffices */
	if self.isLocal() {
		self.promoteLocal()
		self.finish()
		return true
	}

	self.promoteGlobal()
	self.finish()
	return true
}

func (self *_StackPromoter) isLocal() bool {
	for _, l := range self.loads {
		if l.bb != self.home {
			return false
		}
	}
	for _, bb := range self.cfg.Blocks() {
		for _, v := range bb.Ins {
			if s, ok := v.(*IrStore); ok && s.Mem == self.alloc.R && bb != self.home {
				return false
			}
		}
	}
	return self.dealloc == nil || self.dealloc == self.home
}

// resolve follows the pending substitution chain to the final value.
func (self *_StackPromoter) resolve(r Reg) Reg {
	for {
		v, ok := self.sub[r]
		if !ok {
			return r
		}
		r = v
	}
}

// promoteLocal rewrites a slot whose every access happens in one block by
// tracking the running value through a single forward scan. A load before
// the first store observes uninitialized memory, which upstream definite
// initialization rules out for a block-confined slot; the undefined
// sentinel keeps the policy aligned with the general algorithm anyway.
func (self *_StackPromoter) promoteLocal() {
	r := self.alloc.R
	cur, ok := Rz, false

	for _, v := range self.home.Ins {
		switch p := v.(type) {
		case *IrStore:
			if p.Mem == r {
				cur, ok = self.resolve(p.V), true
				self.dead[p] = true
			}
		case *IrLoad:
			if p.Mem == r {
				if ok {
					self.sub[p.R] = cur
				} else {
					self.sub[p.R] = sentinelOf(p.T)
				}
				self.dead[p] = true
			}
		}
	}
}

func (self *_StackPromoter) promoteGlobal() {
	r := self.alloc.R
	elem := self.alloc.T
	zero := sentinelOf(elem)

	/* group the accessing blocks, preserving discovery order */
	seen := make(map[int]bool)
	hosts := []*BasicBlock(nil)
	for _, l := range self.loads {
		if !seen[l.bb.Id] {
			seen[l.bb.Id] = true
			hosts = append(hosts, l.bb)
		}
	}
	for _, bb := range self.cfg.Blocks() {
		if !seen[bb.Id] {
			for _, v := range bb.Ins {
				if s, ok := v.(*IrStore); ok && s.Mem == r {
					seen[bb.Id] = true
					hosts = append(hosts, bb)
					break
				}
			}
		}
	}

	/* collapse every block to at most one leading load and one final
	 * store, recording the value each storing block leaves behind */
	vm := mkvaluemap(self.cfg, zero)
	kept := []_MemRef(nil)
	defs := make(map[int]*BasicBlock)

	for _, bb := range hosts {
		var first *IrLoad
		cur, ok := Rz, false

		for _, v := range bb.Ins {
			switch p := v.(type) {
			case *IrStore:
				if p.Mem == r {
					cur, ok = self.resolve(p.V), true
					self.dead[p] = true
				}
			case *IrLoad:
				if p.Mem != r {
					break
				}
				switch {
				case ok:
					self.sub[p.R] = cur
					self.dead[p] = true
				case first != nil:
					self.sub[p.R] = first.R
					self.dead[p] = true
				default:
					first = p
				}
			}
		}

		if ok {
			vm.defs[bb.Id] = cur
			defs[bb.Id] = bb
		}
		if first != nil {
			kept = append(kept, _MemRef{bb, first})
		}
	}

	/* place the join arguments, confined to the slot's live region */
	pl := _PhiPlacer{
		cfg: self.cfg,
		gate: func(q *BasicBlock) bool {
			if !self.cfg.Dominates(self.home, q) {
				return false
			}
			if self.dealloc != nil && q != self.dealloc && self.cfg.Dominates(self.dealloc, q) {
				return false
			}
			return true
		},
	}
	vm.insertArgs(elem, pl.place(defs))

	/* rewire the surviving loads to the reaching definition */
	for _, l := range kept {
		if _, reachable := self.cfg.Depth[l.bb.Id]; !reachable {
			self.sub[l.load.R] = zero
		} else {
			self.sub[l.load.R] = vm.lookupStart(l.bb)
		}
		self.dead[l.load] = true
	}
}

// finish deletes the allocation, the deallocation and every instruction
// marked dead, then applies the accumulated value substitution.
func (self *_StackPromoter) finish() {
	self.dead[self.alloc] = true
	if self.dfree != nil {
		self.dead[self.dfree] = true
	}

	for k := range self.sub {
		self.sub[k] = self.resolve(self.sub[k])
	}

	for _, bb := range self.cfg.Blocks() {
		keep := bb.Ins[:0]
		for _, v := range bb.Ins {
			if !self.dead[v] {
				keep = append(keep, v)
			}
		}
		bb.Ins = keep
	}
	substEverywhere(self.cfg, self.sub)
}
