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
	"github.com/oleiade/lane"
)

// CFG is one function: a graph of basic blocks rooted at the entry block,
// together with the cached dominator tree. Any structural edit must go
// through Invalidate (or Rebuild); dominance queries lazily recompute the
// tree when it is stale.
type CFG struct {
	Name    string
	Private bool
	Root    *BasicBlock
	Diag    DiagSink

	/* dominator tree, valid while !stale */
	Depth       map[int]int
	DominatedBy map[int]*BasicBlock
	DominatorOf map[int][]*BasicBlock

	pre      map[int]int
	post     map[int]int
	maxid    int
	regid    int
	stale    bool
	reported map[int]bool
}

// CreateCFG creates an empty function with a fresh entry block.
func CreateCFG(name string) *CFG {
	cfg := &CFG{
		Name:     name,
		Diag:     DiscardDiags,
		stale:    true,
		reported: make(map[int]bool),
	}
	cfg.Root = cfg.CreateBlock()
	return cfg
}

func (self *CFG) CreateBlock() *BasicBlock {
	self.maxid++
	return &BasicBlock{Id: self.maxid}
}

func (self *CFG) CreateReg(ptr bool) Reg {
	self.regid++
	return mkreg(ptr, self.regid)
}

func (self *CFG) CreateRegOf(t Type) Reg {
	return self.CreateReg(isPtrType(t))
}

func (self *CFG) MaxBlock() int {
	return self.maxid
}

// Invalidate marks the cached dominator tree (and derived orderings) as
// stale after a CFG edit.
func (self *CFG) Invalidate() {
	self.stale = true
}

// DominatorTree makes sure the cached dominance information is fresh and
// returns the receiver for chained queries.
func (self *CFG) DominatorTree() *CFG {
	if self.stale {
		self.Rebuild()
	}
	return self
}

// Rebuild recomputes predecessor lists, the immediate-dominator tree, the
// dominator-tree levels and the pre/post numbering used by Dominates.
func (self *CFG) Rebuild() {
	blocks := self.reach()

	/* reset and recompute the predecessor lists, one entry per edge */
	for _, bb := range blocks {
		bb.Pred = bb.Pred[:0]
	}
	for _, bb := range blocks {
		for it := bb.Term.Successors(); it.Next(); {
			p := it.Block()
			p.Pred = append(p.Pred, bb)
		}
	}

	/* rebuild the dominator tree */
	self.DominatedBy, self.DominatorOf = buildDominatorTree(self.Root)

	/* assign dominator-tree levels with a BFS from the root */
	q := lane.NewQueue()
	self.Depth = make(map[int]int, len(blocks))
	self.Depth[self.Root.Id] = 0
	for q.Enqueue(self.Root); !q.Empty(); {
		p := q.Dequeue().(*BasicBlock)
		for _, v := range self.DominatorOf[p.Id] {
			self.Depth[v.Id] = self.Depth[p.Id] + 1
			q.Enqueue(v)
		}
	}

	/* pre/post numbering of the dominator tree, iteratively */
	n := 0
	self.pre = make(map[int]int, len(blocks))
	self.post = make(map[int]int, len(blocks))

	type _Frame struct {
		bb *BasicBlock
		ch int
	}

	st := lane.NewStack()
	st.Push(&_Frame{bb: self.Root})
	self.pre[self.Root.Id] = n
	n++

	for !st.Empty() {
		f := st.Head().(*_Frame)
		ch := self.DominatorOf[f.bb.Id]
		if f.ch < len(ch) {
			bb := ch[f.ch]
			f.ch++
			self.pre[bb.Id] = n
			n++
			st.Push(&_Frame{bb: bb})
		} else {
			st.Pop()
			self.post[f.bb.Id] = n
			n++
		}
	}
	self.stale = false
}

// Dominates reports whether a dominates b (reflexively) in the current
// dominator tree. Blocks outside the tree dominate nothing.
func (self *CFG) Dominates(a *BasicBlock, b *BasicBlock) bool {
	if self.stale {
		self.Rebuild()
	}
	pa, oka := self.pre[a.Id]
	pb, okb := self.pre[b.Id]
	if !oka || !okb {
		return false
	}
	return pa <= pb && self.post[b.Id] <= self.post[a.Id]
}

// reach returns every block reachable from the entry, in visit order.
func (self *CFG) reach() []*BasicBlock {
	q := lane.NewQueue()
	vis := map[int]bool{self.Root.Id: true}
	ret := []*BasicBlock(nil)
	for q.Enqueue(self.Root); !q.Empty(); {
		bb := q.Dequeue().(*BasicBlock)
		ret = append(ret, bb)
		for it := bb.Term.Successors(); it.Next(); {
			if p := it.Block(); !vis[p.Id] {
				vis[p.Id] = true
				q.Enqueue(p)
			}
		}
	}
	return ret
}

type _PostOrderFrame struct {
	bb *BasicBlock
	it IrSuccessors
}

// PostOrder visits every reachable block in CFG post-order, without
// recursion.
func (self *CFG) PostOrder(action func(bb *BasicBlock)) {
	st := lane.NewStack()
	vis := map[int]bool{self.Root.Id: true}
	st.Push(&_PostOrderFrame{self.Root, self.Root.Term.Successors()})

	for !st.Empty() {
		f := st.Head().(*_PostOrderFrame)
		tail := true

		/* push the first unvisited successor */
		for f.it.Next() {
			if bb := f.it.Block(); !vis[bb.Id] {
				vis[bb.Id] = true
				st.Push(&_PostOrderFrame{bb, bb.Term.Successors()})
				tail = false
				break
			}
		}

		/* all successors visited, emit the block */
		if tail {
			st.Pop()
			action(f.bb)
		}
	}
}

// ReversePostOrder visits every reachable block in reverse CFG post-order.
func (self *CFG) ReversePostOrder(action func(bb *BasicBlock)) {
	for _, bb := range self.Blocks() {
		action(bb)
	}
}

// Blocks returns all reachable blocks in reverse post-order.
func (self *CFG) Blocks() []*BasicBlock {
	ret := []*BasicBlock(nil)
	self.PostOrder(func(bb *BasicBlock) {
		ret = append(ret, bb)
	})
	for i, j := 0, len(ret)-1; i < j; i, j = i+1, j-1 {
		ret[i], ret[j] = ret[j], ret[i]
	}
	return ret
}

// defs builds the definition-site index of every instruction-defined
// register in the function. Block arguments are not included, they are
// defined by their block, not by a node.
func (self *CFG) defs() map[Reg]IrNode {
	ret := make(map[Reg]IrNode)
	self.PostOrder(func(bb *BasicBlock) {
		for _, v := range bb.Ins {
			for _, r := range definitionSlots(v) {
				if !r.IsZero() {
					ret[*r] = v
				}
			}
		}
	})
	return ret
}
