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
	"sort"
	"strings"
)

// Edge is one outgoing control-flow edge. Args supplies the target block's
// arguments, positionally. Terminators own their edges; any edit builds a
// fresh terminator and installs it with BasicBlock.SetTerm.
type Edge struct {
	To   *BasicBlock
	Args []Reg
}

func (self *Edge) clone() Edge {
	return Edge{
		To:   self.To,
		Args: append([]Reg(nil), self.Args...),
	}
}

func (self *Edge) String() string {
	nb := len(self.Args)
	if nb == 0 {
		return fmt.Sprintf("bb_%d", self.To.Id)
	}
	ret := make([]string, 0, nb)
	for _, v := range self.Args {
		ret = append(ret, v.String())
	}
	return fmt.Sprintf("bb_%d(%s)", self.To.Id, strings.Join(ret, ", "))
}

// IrSuccessors iterates over a terminator's outgoing edges.
type IrSuccessors interface {
	Next() bool
	Block() *BasicBlock
	Edge() *Edge
	Value() (int64, bool)
}

type IrTerminator interface {
	IrNode
	Successors() IrSuccessors
	irterminator()
}

func (*IrBranch) irterminator()      {}
func (*IrCondBr) irterminator()      {}
func (*IrSwitchEnum) irterminator()  {}
func (*IrReturn) irterminator()      {}
func (*IrUnreachable) irterminator() {}

func (*IrBranch) irnode()      {}
func (*IrCondBr) irnode()      {}
func (*IrSwitchEnum) irnode()  {}
func (*IrReturn) irnode()      {}
func (*IrUnreachable) irnode() {}

type _EdgeIter struct {
	i  int
	e  []*Edge
	v  []int64
	ok []bool
}

func (self *_EdgeIter) Next() bool {
	self.i++
	return self.i < len(self.e)
}

func (self *_EdgeIter) Block() *BasicBlock {
	return self.e[self.i].To
}

func (self *_EdgeIter) Edge() *Edge {
	return self.e[self.i]
}

func (self *_EdgeIter) Value() (int64, bool) {
	return self.v[self.i], self.ok[self.i]
}

func edgeiter(edges []*Edge, vals []int64, tagged []bool) IrSuccessors {
	return &_EdgeIter{
		i:  -1,
		e:  edges,
		v:  vals,
		ok: tagged,
	}
}

type _EmptySuccessor struct{}

func (_EmptySuccessor) Next() bool           { return false }
func (_EmptySuccessor) Block() *BasicBlock   { return nil }
func (_EmptySuccessor) Edge() *Edge          { return nil }
func (_EmptySuccessor) Value() (int64, bool) { return 0, false }

type IrBranch struct {
	Ln Edge
}

func (self *IrBranch) Clone() IrNode {
	return &IrBranch{Ln: self.Ln.clone()}
}

func (self *IrBranch) String() string {
	return "goto " + self.Ln.String()
}

func (self *IrBranch) Usages() []*Reg {
	return regsliceref(self.Ln.Args)
}

func (self *IrBranch) Successors() IrSuccessors {
	return edgeiter([]*Edge{&self.Ln}, []int64{0}, []bool{false})
}

// IrCondBr transfers control to Br when V is non-zero, to Ln otherwise.
type IrCondBr struct {
	V  Reg
	Br Edge
	Ln Edge
}

func (self *IrCondBr) Clone() IrNode {
	return &IrCondBr{
		V:  self.V,
		Br: self.Br.clone(),
		Ln: self.Ln.clone(),
	}
}

func (self *IrCondBr) String() string {
	return fmt.Sprintf("if %s then %s else %s", self.V, self.Br.String(), self.Ln.String())
}

func (self *IrCondBr) Usages() []*Reg {
	ret := []*Reg{&self.V}
	ret = append(ret, regsliceref(self.Br.Args)...)
	ret = append(ret, regsliceref(self.Ln.Args)...)
	return ret
}

func (self *IrCondBr) Successors() IrSuccessors {
	return edgeiter(
		[]*Edge{&self.Br, &self.Ln},
		[]int64{1, 0},
		[]bool{true, true},
	)
}

// IrSwitchEnum dispatches on the case tag of a tagged-union value. A case
// whose payload type is non-nil binds that payload as the first block
// argument of its target; explicit edge Args follow it. The default edge
// Ln, if any, binds nothing.
type IrSwitchEnum struct {
	V  Reg
	T  *EnumType
	Br map[int]*Edge
	Ln *Edge
}

func (self *IrSwitchEnum) Clone() IrNode {
	r := &IrSwitchEnum{
		V:  self.V,
		T:  self.T,
		Br: make(map[int]*Edge, len(self.Br)),
	}
	for i, e := range self.Br {
		c := e.clone()
		r.Br[i] = &c
	}
	if self.Ln != nil {
		c := self.Ln.clone()
		r.Ln = &c
	}
	return r
}

// Cases returns the case tags in ascending order, for deterministic
// iteration over the Br map.
func (self *IrSwitchEnum) Cases() []int {
	ret := make([]int, 0, len(self.Br))
	for i := range self.Br {
		ret = append(ret, i)
	}
	sort.Ints(ret)
	return ret
}

// PayloadArity is the number of values the edge for case c delivers to its
// target beyond the explicit Args: 1 when the case binds a payload.
func (self *IrSwitchEnum) PayloadArity(c int) int {
	if self.T.Cases[c].Payload != nil {
		return 1
	} else {
		return 0
	}
}

func (self *IrSwitchEnum) String() string {
	ret := make([]string, 0, len(self.Br)+1)
	for _, i := range self.Cases() {
		ret = append(ret, fmt.Sprintf("  .%s => %s,", self.T.Cases[i].Name, self.Br[i].String()))
	}
	if self.Ln != nil {
		ret = append(ret, fmt.Sprintf("  _ => %s,", self.Ln.String()))
	}
	return fmt.Sprintf("switch_enum %s {\n%s\n}", self.V, strings.Join(ret, "\n"))
}

func (self *IrSwitchEnum) Usages() []*Reg {
	ret := []*Reg{&self.V}
	for _, i := range self.Cases() {
		ret = append(ret, regsliceref(self.Br[i].Args)...)
	}
	if self.Ln != nil {
		ret = append(ret, regsliceref(self.Ln.Args)...)
	}
	return ret
}

func (self *IrSwitchEnum) Successors() IrSuccessors {
	cc := self.Cases()
	ee := make([]*Edge, 0, len(cc)+1)
	vv := make([]int64, 0, len(cc)+1)
	tt := make([]bool, 0, len(cc)+1)
	for _, i := range cc {
		ee = append(ee, self.Br[i])
		vv = append(vv, int64(i))
		tt = append(tt, true)
	}
	if self.Ln != nil {
		ee = append(ee, self.Ln)
		vv = append(vv, 0)
		tt = append(tt, false)
	}
	return edgeiter(ee, vv, tt)
}

type IrReturn struct {
	R []Reg
}

func (self *IrReturn) Clone() IrNode {
	return &IrReturn{R: append([]Reg(nil), self.R...)}
}

func (self *IrReturn) String() string {
	nb := len(self.R)
	ret := make([]string, 0, nb)
	for _, r := range self.R {
		ret = append(ret, r.String())
	}
	return fmt.Sprintf("ret {%s}", strings.Join(ret, ", "))
}

func (self *IrReturn) Usages() []*Reg {
	return regsliceref(self.R)
}

func (self *IrReturn) Successors() IrSuccessors {
	return _EmptySuccessor{}
}

type IrUnreachable struct{}

func (self *IrUnreachable) Clone() IrNode {
	return new(IrUnreachable)
}

func (self *IrUnreachable) String() string {
	return "unreachable"
}

func (self *IrUnreachable) Successors() IrSuccessors {
	return _EmptySuccessor{}
}
