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

// Builder constructs a function block by block, bound to one insertion
// point at a time. The frontend and the tests build IR through it.
type Builder struct {
	cfg *CFG
	cur *BasicBlock
}

func CreateBuilder(name string) *Builder {
	cfg := CreateCFG(name)
	return &Builder{
		cfg: cfg,
		cur: cfg.Root,
	}
}

func (self *Builder) CFG() *CFG {
	return self.cfg
}

func (self *Builder) Block() *BasicBlock {
	return self.cur
}

// NewBlock creates a detached block with one argument per given type.
func (self *Builder) NewBlock(typs ...Type) *BasicBlock {
	bb := self.cfg.CreateBlock()
	for _, t := range typs {
		bb.Args = append(bb.Args, self.cfg.CreateRegOf(t))
		bb.Typs = append(bb.Typs, t)
	}
	return bb
}

func (self *Builder) SetBlock(bb *BasicBlock) *Builder {
	self.cur = bb
	return self
}

// MarkPos anchors the current block to a source location, making it
// eligible for unreachable-code reporting.
func (self *Builder) MarkPos(p Pos) *Builder {
	self.cur.Src = p
	return self
}

// Param adds a function parameter, only valid on the entry block.
func (self *Builder) Param(t Type) Reg {
	assert(self.cur == self.cfg.Root, "builder: parameters belong to the entry block")
	r := self.cfg.CreateRegOf(t)
	self.cur.Args = append(self.cur.Args, r)
	self.cur.Typs = append(self.cur.Typs, t)
	return r
}

func (self *Builder) emit(v IrNode) {
	assert(self.cur.Term == nil, "builder: bb_%d is already terminated", self.cur.Id)
	self.cur.Ins = append(self.cur.Ins, v)
}

/** Values **/

func (self *Builder) ConstInt(v int64) Reg {
	r := self.cfg.CreateReg(false)
	self.emit(&IrConstInt{R: r, V: v})
	return r
}

func (self *Builder) Binary(op IrBinaryOp, x Reg, y Reg) Reg {
	r := self.cfg.CreateReg(false)
	self.emit(&IrBinaryExpr{R: r, X: x, Y: y, Op: op})
	return r
}

func (self *Builder) MakeStruct(t *StructType, in ...Reg) Reg {
	assert(len(in) == len(t.Fields), "builder: %s takes %d fields", t.Name, len(t.Fields))
	r := self.cfg.CreateRegOf(t)
	self.emit(&IrMakeStruct{R: r, T: t, In: in})
	return r
}

func (self *Builder) ExtractField(t *StructType, v Reg, idx int) Reg {
	r := self.cfg.CreateRegOf(t.Fields[idx])
	self.emit(&IrExtractField{R: r, V: v, T: t, Idx: idx})
	return r
}

// MakeEnum constructs case c of t; payload must be the zero register for
// payload-free cases.
func (self *Builder) MakeEnum(t *EnumType, c int, payload Reg) Reg {
	r := self.cfg.CreateRegOf(t)
	self.emit(&IrMakeEnum{R: r, V: payload, T: t, Case: c})
	return r
}

func (self *Builder) EnumData(t *EnumType, c int, v Reg) Reg {
	r := self.cfg.CreateRegOf(t.Cases[c].Payload)
	self.emit(&IrEnumData{R: r, V: v, T: t, Case: c})
	return r
}

func (self *Builder) Retain(v Reg) {
	self.emit(&IrRetain{V: v})
}

func (self *Builder) Release(v Reg) {
	self.emit(&IrRelease{V: v})
}

func (self *Builder) Call(fn *FuncRef, in ...Reg) []Reg {
	out := make([]Reg, fn.NRet)
	for i := range out {
		out[i] = self.cfg.CreateReg(false)
	}
	self.emit(&IrCall{Fn: fn, In: in, Out: out})
	return out
}

func (self *Builder) AllocStack(t Type) Reg {
	r := self.cfg.CreateReg(true)
	self.emit(&IrAllocStack{R: r, T: t})
	return r
}

func (self *Builder) Load(t Type, mem Reg) Reg {
	r := self.cfg.CreateRegOf(t)
	self.emit(&IrLoad{R: r, Mem: mem, T: t})
	return r
}

func (self *Builder) Store(v Reg, mem Reg) {
	self.emit(&IrStore{V: v, Mem: mem})
}

func (self *Builder) DeallocStack(mem Reg) {
	self.emit(&IrDeallocStack{Mem: mem})
}

func (self *Builder) Breakpoint() {
	self.emit(new(IrBreakpoint))
}

/** Terminators **/

// To builds an edge literal for the terminator helpers.
func To(bb *BasicBlock, args ...Reg) Edge {
	return Edge{To: bb, Args: args}
}

func (self *Builder) Goto(bb *BasicBlock, args ...Reg) {
	self.cur.SetTerm(&IrBranch{Ln: To(bb, args...)})
}

func (self *Builder) CondBr(v Reg, br Edge, ln Edge) {
	self.cur.SetTerm(&IrCondBr{V: v, Br: br, Ln: ln})
}

// SwitchEnum terminates the current block with a tagged-union dispatch.
// A case with a payload binds it as the first argument of its target, so
// the explicit edge operands begin at the second argument.
func (self *Builder) SwitchEnum(v Reg, t *EnumType, cases map[int]Edge, def *Edge) {
	br := make(map[int]*Edge, len(cases))
	for c := range cases {
		e := cases[c]
		br[c] = &e
	}
	self.cur.SetTerm(&IrSwitchEnum{V: v, T: t, Br: br, Ln: def})
}

func (self *Builder) Return(rs ...Reg) {
	self.cur.SetTerm(&IrReturn{R: rs})
}

func (self *Builder) Unreachable() {
	self.cur.SetTerm(new(IrUnreachable))
}
