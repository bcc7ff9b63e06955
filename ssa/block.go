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
	"strings"
)

// BasicBlock is a straight-line run of instructions ending in exactly one
// terminator. Args are the block arguments (the phi mechanism of this IR),
// each positionally supplied by every predecessor edge. Pred holds one
// entry per incoming edge; it is maintained incrementally by SetTerm and
// recomputed wholesale by CFG.Rebuild.
type BasicBlock struct {
	Id   int
	Src  Pos
	Args []Reg
	Typs []Type
	Ins  []IrNode
	Pred []*BasicBlock
	Term IrTerminator
}

func (self *BasicBlock) String() string {
	buf := make([]string, 0, len(self.Ins)+2)
	if len(self.Args) == 0 {
		buf = append(buf, fmt.Sprintf("bb_%d:", self.Id))
	} else {
		args := make([]string, 0, len(self.Args))
		for i, r := range self.Args {
			args = append(args, fmt.Sprintf("%s: %s", r, self.Typs[i]))
		}
		buf = append(buf, fmt.Sprintf("bb_%d(%s):", self.Id, strings.Join(args, ", ")))
	}
	for _, v := range self.Ins {
		buf = append(buf, "    "+v.String())
	}
	if self.Term != nil {
		buf = append(buf, "    "+self.Term.String())
	}
	return strings.Join(buf, "\n")
}

func (self *BasicBlock) removePred(p *BasicBlock) {
	for i, v := range self.Pred {
		if v == p {
			self.Pred = append(self.Pred[:i], self.Pred[i+1:]...)
			return
		}
	}
}

// unlink removes this block from the predecessor lists of all current
// successors, one entry per edge.
func (self *BasicBlock) unlink() {
	if self.Term == nil {
		return
	}
	for it := self.Term.Successors(); it.Next(); {
		it.Block().removePred(self)
	}
}

// SetTerm installs a freshly built terminator, keeping successor
// predecessor lists consistent. Terminators are never mutated in place:
// every edit constructs a new one and goes through here.
func (self *BasicBlock) SetTerm(t IrTerminator) {
	self.unlink()
	self.Term = t
	if t == nil {
		return
	}
	for it := t.Successors(); it.Next(); {
		bb := it.Block()
		bb.Pred = append(bb.Pred, self)
	}
}

// isTrampoline reports whether this block only forwards all of its own
// arguments, unchanged and in order, to another block.
func (self *BasicBlock) isTrampoline() bool {
	if len(self.Ins) != 0 {
		return false
	}
	br, ok := self.Term.(*IrBranch)
	if !ok || br.Ln.To == self {
		return false
	}
	if len(br.Ln.Args) != len(self.Args) {
		return false
	}
	for i, r := range br.Ln.Args {
		if r != self.Args[i] {
			return false
		}
	}
	return true
}

// isUnreachableOnly reports whether this block consists of nothing but an
// "unreachable" terminator.
func (self *BasicBlock) isUnreachableOnly() bool {
	if len(self.Ins) != 0 {
		return false
	}
	_, ok := self.Term.(*IrUnreachable)
	return ok
}

// argIndex returns the position of r within the block arguments, or -1.
func (self *BasicBlock) argIndex(r Reg) int {
	for i, v := range self.Args {
		if v == r {
			return i
		}
	}
	return -1
}

// substIns applies the register substitution m to every operand slot of
// the block body and terminator.
func (self *BasicBlock) substIns(m map[Reg]Reg) {
	for _, v := range self.Ins {
		if u, ok := v.(IrUsages); ok {
			substRegs(u.Usages(), m)
		}
	}
	if u, ok := self.Term.(IrUsages); ok {
		substRegs(u.Usages(), m)
	}
}
