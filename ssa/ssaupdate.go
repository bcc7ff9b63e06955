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
	"fmt"

	"github.com/oleiade/lane"
)

/** Shared SSA reconstruction machinery.
 *
 *  Both the stack promoter and the jump threader need the same two
 *  primitives: minimal join-point (phi) placement for a set of definition
 *  blocks, and a reaching-definition lookup by walking the dominator tree.
 *  Placement follows the Sreedhar-Gao scheme, a priority queue keyed by
 *  dominator-tree level instead of a precomputed dominance frontier.
 */

// _PhiPlacer computes the minimal set of join blocks that need a fresh
// block argument, given the blocks holding a definition. The optional gate
// rejects candidate joins (the stack promoter uses it to confine placement
// to the allocation's dominance region).
type _PhiPlacer struct {
	cfg  *CFG
	gate func(bb *BasicBlock) bool
}

func (self *_PhiPlacer) place(defs map[int]*BasicBlock) map[int]*BasicBlock {
	cfg := self.cfg.DominatorTree()
	ret := make(map[int]*BasicBlock)
	vis := make(map[int]bool, len(defs))

	/* seed with the definition blocks, deepest level first */
	pq := lane.NewPQueue(lane.MAXPQ)
	for _, bb := range defs {
		if _, ok := cfg.Depth[bb.Id]; ok {
			vis[bb.Id] = true
			pq.Push(bb, cfg.Depth[bb.Id])
		}
	}

	/* process every pending node, by decreasing level */
	for pq.Size() > 0 {
		v, lv := pq.Pop()
		p := v.(*BasicBlock)

		/* walk the dominator subtree of p with an explicit stack */
		st := lane.NewStack()
		for st.Push(p); !st.Empty(); {
			x := st.Pop().(*BasicBlock)

			/* every successor edge that leaves the subtree is a join */
			for it := x.Term.Successors(); it.Next(); {
				y := it.Block()

				/* dominator-tree edges stay inside the subtree */
				if cfg.DominatedBy[y.Id] == x {
					continue
				}

				/* deeper targets are still properly dominated by p */
				if cfg.Depth[y.Id] > lv {
					continue
				}

				/* already placed, or rejected by the gate */
				if ret[y.Id] != nil {
					continue
				}
				if self.gate != nil && !self.gate(y) {
					continue
				}

				/* a new join may induce joins of its own */
				ret[y.Id] = y
				if !vis[y.Id] {
					vis[y.Id] = true
					pq.Push(y, cfg.Depth[y.Id])
				}
			}

			/* descend into the dominator children */
			for _, c := range cfg.DominatorOf[x.Id] {
				st.Push(c)
			}
		}
	}
	return ret
}

// _ValueMap answers "which SSA value holds the tracked quantity here" by
// combining per-block end-of-block definitions with the freshly inserted
// join arguments, falling back to the undefined sentinel at the root.
type _ValueMap struct {
	cfg  *CFG
	zero Reg
	defs map[int]Reg
	phis map[int]Reg
}

func mkvaluemap(cfg *CFG, zero Reg) _ValueMap {
	return _ValueMap{
		cfg:  cfg,
		zero: zero,
		defs: make(map[int]Reg),
		phis: make(map[int]Reg),
	}
}

// lookupEnd resolves the value as observed at the end of bb.
func (self *_ValueMap) lookupEnd(bb *BasicBlock) Reg {
	for p := bb; p != nil; p = self.cfg.DominatedBy[p.Id] {
		if v, ok := self.defs[p.Id]; ok {
			return v
		}
		if v, ok := self.phis[p.Id]; ok {
			return v
		}
	}
	return self.zero
}

// lookupStart resolves the value as observed on entry to bb, before any
// in-block definition.
func (self *_ValueMap) lookupStart(bb *BasicBlock) Reg {
	if v, ok := self.phis[bb.Id]; ok {
		return v
	}
	if p := self.cfg.DominatedBy[bb.Id]; p != nil {
		return self.lookupEnd(p)
	}
	return self.zero
}

// insertArgs materializes one new block argument of type t on every marked
// join block, and extends every predecessor edge with the value reaching
// the end of that predecessor. The argument and its incoming operands are
// installed together, so edge arity is consistent at every point in
// between rewrites.
func (self *_ValueMap) insertArgs(t Type, marks map[int]*BasicBlock) {
	for _, q := range marks {
		r := self.cfg.CreateRegOf(t)
		self.phis[q.Id] = r
		q.Args = append(q.Args, r)
		q.Typs = append(q.Typs, t)
	}
	for _, q := range marks {
		self.fixPredEdges(q)
	}
}

// fixPredEdges rebuilds every predecessor terminator of q, appending the
// reaching value to each edge into q.
func (self *_ValueMap) fixPredEdges(q *BasicBlock) {
	done := make(map[int]bool, len(q.Pred))
	prev := append([]*BasicBlock(nil), q.Pred...)

	for _, p := range prev {
		if done[p.Id] {
			continue
		}
		done[p.Id] = true
		v := self.lookupEnd(p)

		/* terminators are immutable, rebuild and reinstall */
		nt := p.Term.Clone().(IrTerminator)
		for it := nt.Successors(); it.Next(); {
			if e := it.Edge(); e.To == q {
				e.Args = append(e.Args, v)
			}
		}
		p.SetTerm(nt)
	}
}

// substEverywhere applies the register substitution m to every operand
// slot of every reachable block.
func substEverywhere(cfg *CFG, m map[Reg]Reg) {
	if len(m) == 0 {
		return
	}
	cfg.PostOrder(func(bb *BasicBlock) {
		bb.substIns(m)
	})
}

// defType recovers the IR type of a register defined by v, or nil when the
// node does not carry enough type information.
func defType(v IrNode, r Reg) Type {
	switch p := v.(type) {
	case *IrConstInt:
		return Ti64
	case *IrBinaryExpr:
		return Ti64
	case *IrMakeStruct:
		return p.T
	case *IrExtractField:
		return p.T.Fields[p.Idx]
	case *IrMakeEnum:
		return p.T
	case *IrEnumData:
		return p.T.Cases[p.Case].Payload
	case *IrLoad:
		return p.T
	case *IrAllocStack:
		return ptrTo(p.T)
	default:
		return nil
	}
}

// sentinelOf is the undefined-value register for values of type t.
func sentinelOf(t Type) Reg {
	if isPtrType(t) {
		return Pn
	} else {
		return Rz
	}
}

func assert(cond bool, msg string, args ...interface{}) {
	if !cond {
		panic(fmt.Sprintf("ssa: "+msg, args...))
	}
}
