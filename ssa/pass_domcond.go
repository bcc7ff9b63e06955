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

/** Dominator-based condition elimination.
 *
 *  A DFS over the dominator tree carries a stack of facts learned from the
 *  branch taken to enter each single-predecessor region: the truth of a
 *  conditional's scrutinee, the tag of a switched union value, and integer
 *  equalities implied by a taken comparison. Any dominated terminator
 *  whose outcome the facts pin down is folded to a plain branch. Facts are
 *  checkpointed on entry to a subtree and rolled back on exit.
 */

type _FactKind uint8

const (
	_F_truth _FactKind = iota
	_F_tag
	_F_const
)

type _FactUndo struct {
	kind _FactKind
	r    Reg
	had  bool
	oldb bool
	oldi int
	oldv int64
}

type _DomCondElim struct {
	cfg     *CFG
	changed bool
	defs    map[Reg]IrNode
	truth   map[Reg]bool
	tags    map[Reg]int
	consts  map[Reg]int64
	undo    []_FactUndo
}

func domCondElim(cfg *CFG) bool {
	e := _DomCondElim{
		cfg:    cfg,
		defs:   cfg.defs(),
		truth:  make(map[Reg]bool),
		tags:   make(map[Reg]int),
		consts: make(map[Reg]int64),
	}
	e.run()
	return e.changed
}

/** Fact Stack **/

func (self *_DomCondElim) setTruth(r Reg, v bool) {
	old, had := self.truth[r]
	self.undo = append(self.undo, _FactUndo{kind: _F_truth, r: r, had: had, oldb: old})
	self.truth[r] = v
}

func (self *_DomCondElim) setTag(r Reg, c int) {
	old, had := self.tags[r]
	self.undo = append(self.undo, _FactUndo{kind: _F_tag, r: r, had: had, oldi: old})
	self.tags[r] = c
}

func (self *_DomCondElim) setConst(r Reg, v int64) {
	old, had := self.consts[r]
	self.undo = append(self.undo, _FactUndo{kind: _F_const, r: r, had: had, oldv: old})
	self.consts[r] = v
}

func (self *_DomCondElim) restore(mark int) {
	for i := len(self.undo) - 1; i >= mark; i-- {
		u := self.undo[i]
		switch u.kind {
		case _F_truth:
			if u.had {
				self.truth[u.r] = u.oldb
			} else {
				delete(self.truth, u.r)
			}
		case _F_tag:
			if u.had {
				self.tags[u.r] = u.oldi
			} else {
				delete(self.tags, u.r)
			}
		case _F_const:
			if u.had {
				self.consts[u.r] = u.oldv
			} else {
				delete(self.consts, u.r)
			}
		}
	}
	self.undo = self.undo[:mark]
}

func (self *_DomCondElim) truthOf(r Reg) (bool, bool) {
	if r == Rz {
		return false, true
	}
	if v, ok := self.truth[r]; ok {
		return v, true
	}
	if v, ok := self.consts[r]; ok {
		return v != 0, true
	}
	if p, ok := self.defs[r].(*IrConstInt); ok {
		return p.V != 0, true
	}
	return false, false
}

func (self *_DomCondElim) constOf(r Reg) (int64, bool) {
	if r == Rz {
		return 0, true
	}
	if v, ok := self.consts[r]; ok {
		return v, true
	}
	if p, ok := self.defs[r].(*IrConstInt); ok {
		return p.V, true
	}
	return 0, false
}

/** Tree Walk **/

type _DomCondFrame struct {
	bb   *BasicBlock
	ch   int
	mark int
}

func (self *_DomCondElim) run() {
	cfg := self.cfg.DominatorTree()
	self.process(cfg.Root)

	st := lane.NewStack()
	st.Push(&_DomCondFrame{bb: cfg.Root})

	for !st.Empty() {
		f := st.Head().(*_DomCondFrame)
		ch := cfg.DominatorOf[f.bb.Id]
		if f.ch < len(ch) {
			c := ch[f.ch]
			f.ch++
			mark := len(self.undo)
			self.descend(f.bb, c)
			self.process(c)
			st.Push(&_DomCondFrame{bb: c, mark: mark})
		} else {
			st.Pop()
			self.restore(f.mark)
		}
	}
}

// descend records the facts established by taking the sole edge from p
// into c. Nothing is learned when c can be entered any other way.
func (self *_DomCondElim) descend(p *BasicBlock, c *BasicBlock) {
	if len(c.Pred) != 1 || c.Pred[0] != p {
		return
	}
	switch t := p.Term.(type) {
	case *IrCondBr:
		if t.Br.To == c && t.Ln.To != c {
			self.learn(t.V, true)
		}
		if t.Ln.To == c && t.Br.To != c {
			self.learn(t.V, false)
		}
	case *IrSwitchEnum:
		hit, n := -1, 0
		for _, i := range t.Cases() {
			if t.Br[i].To == c {
				hit = i
				n++
			}
		}
		if t.Ln != nil && t.Ln.To == c {
			n++
			hit = -1
		}
		if n == 1 && hit >= 0 {
			self.setTag(t.V, hit)
		}
	}
}

// learn records the truth of r, along with any integer equality the
// comparison defining r implies.
func (self *_DomCondElim) learn(r Reg, v bool) {
	self.setTruth(r, v)
	p, ok := self.defs[r].(*IrBinaryExpr)
	if !ok {
		return
	}
	eq := (p.Op == IrCmpEq && v) || (p.Op == IrCmpNe && !v)
	if !eq {
		return
	}
	if x, ok := self.constOf(p.X); ok {
		self.setConst(p.Y, x)
	} else if y, ok := self.constOf(p.Y); ok {
		self.setConst(p.X, y)
	}
}

/** Terminator Folding **/

func (self *_DomCondElim) process(bb *BasicBlock) {
	switch t := bb.Term.(type) {
	case *IrCondBr:
		v, ok := self.truthOf(t.V)
		if !ok {
			return
		}
		live, dead := t.Ln, t.Br
		if v {
			live, dead = t.Br, t.Ln
		}
		self.fold(bb, &IrBranch{Ln: live.clone()}, dead.To)

	case *IrSwitchEnum:
		c, ok := self.tags[t.V]
		if !ok {
			return
		}
		olds := []*BasicBlock(nil)
		for it := t.Successors(); it.Next(); {
			olds = append(olds, it.Block())
		}
		e := t.Br[c]
		var args []Reg
		if e != nil && t.PayloadArity(c) != 0 {
			r := self.cfg.CreateRegOf(t.T.Cases[c].Payload)
			bb.Ins = append(bb.Ins, &IrEnumData{R: r, V: t.V, T: t.T, Case: c})
			args = append([]Reg{r}, e.Args...)
		} else if e != nil {
			args = regslicedup(e.Args)
		} else {
			e = t.Ln
			assert(e != nil, "switch_enum on %s: case %d has no edge and no default", t.V, c)
			args = regslicedup(e.Args)
		}
		self.fold(bb, &IrBranch{Ln: Edge{To: e.To, Args: args}}, olds...)
	}
}

func (self *_DomCondElim) fold(bb *BasicBlock, t IrTerminator, olds ...*BasicBlock) {
	bb.SetTerm(t)
	for _, o := range olds {
		if o != self.cfg.Root && len(o.Pred) == 0 {
			self.cfg.reportDeadRegion(o)
		}
	}
	self.changed = true
}
