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

type IrNode interface {
	fmt.Stringer
	Clone() IrNode
	irnode()
}

func (*IrConstInt) irnode()     {}
func (*IrBinaryExpr) irnode()   {}
func (*IrMakeStruct) irnode()   {}
func (*IrExtractField) irnode() {}
func (*IrMakeEnum) irnode()     {}
func (*IrEnumData) irnode()     {}
func (*IrRetain) irnode()       {}
func (*IrRelease) irnode()      {}
func (*IrCall) irnode()         {}
func (*IrAllocStack) irnode()   {}
func (*IrLoad) irnode()         {}
func (*IrStore) irnode()        {}
func (*IrDeallocStack) irnode() {}
func (*IrBreakpoint) irnode()   {}

// IrUsages exposes the operand slots of a node, as assignable references.
type IrUsages interface {
	IrNode
	Usages() []*Reg
}

// IrDefinitions exposes the result slots of a node, as assignable references.
type IrDefinitions interface {
	IrNode
	Definitions() []*Reg
}

// IrImpure marks nodes with observable side effects, which dead-code
// elimination must never remove on its own.
type IrImpure interface {
	IrNode
	irimpure()
}

func (*IrRetain) irimpure()       {}
func (*IrRelease) irimpure()      {}
func (*IrCall) irimpure()         {}
func (*IrAllocStack) irimpure()   {}
func (*IrStore) irimpure()        {}
func (*IrDeallocStack) irimpure() {}
func (*IrBreakpoint) irimpure()   {}

// IrElidable marks impure nodes that may still be deleted on paths that
// provably never return, i.e. reference-count traffic.
type IrElidable interface {
	IrImpure
	irelidable()
}

func (*IrRetain) irelidable()  {}
func (*IrRelease) irelidable() {}

type IrBinaryOp uint8

const (
	IrOpAdd IrBinaryOp = iota
	IrOpSub
	IrOpMul
	IrOpAnd
	IrOpOr
	IrOpXor
	IrCmpEq
	IrCmpNe
	IrCmpLt
)

func (self IrBinaryOp) String() string {
	switch self {
	case IrOpAdd:
		return "+"
	case IrOpSub:
		return "-"
	case IrOpMul:
		return "*"
	case IrOpAnd:
		return "&"
	case IrOpOr:
		return "|"
	case IrOpXor:
		return "^"
	case IrCmpEq:
		return "=="
	case IrCmpNe:
		return "!="
	case IrCmpLt:
		return "<"
	default:
		panic("unreachable")
	}
}

type IrConstInt struct {
	R Reg
	V int64
}

func (self *IrConstInt) Clone() IrNode {
	r := *self
	return &r
}

func (self *IrConstInt) String() string {
	return fmt.Sprintf("%s = const.i64 %d", self.R, self.V)
}

func (self *IrConstInt) Definitions() []*Reg {
	return []*Reg{&self.R}
}

type IrBinaryExpr struct {
	R  Reg
	X  Reg
	Y  Reg
	Op IrBinaryOp
}

func (self *IrBinaryExpr) Clone() IrNode {
	r := *self
	return &r
}

func (self *IrBinaryExpr) String() string {
	return fmt.Sprintf("%s = %s %s %s", self.R, self.X, self.Op, self.Y)
}

func (self *IrBinaryExpr) Usages() []*Reg {
	return []*Reg{&self.X, &self.Y}
}

func (self *IrBinaryExpr) Definitions() []*Reg {
	return []*Reg{&self.R}
}

type IrMakeStruct struct {
	R  Reg
	T  *StructType
	In []Reg
}

func (self *IrMakeStruct) Clone() IrNode {
	r := *self
	r.In = append([]Reg(nil), self.In...)
	return &r
}

func (self *IrMakeStruct) String() string {
	nb := len(self.In)
	ret := make([]string, 0, nb)
	for _, v := range self.In {
		ret = append(ret, v.String())
	}
	return fmt.Sprintf("%s = make_struct %s (%s)", self.R, self.T.Name, strings.Join(ret, ", "))
}

func (self *IrMakeStruct) Usages() []*Reg {
	return regsliceref(self.In)
}

func (self *IrMakeStruct) Definitions() []*Reg {
	return []*Reg{&self.R}
}

type IrExtractField struct {
	R   Reg
	V   Reg
	T   *StructType
	Idx int
}

func (self *IrExtractField) Clone() IrNode {
	r := *self
	return &r
}

func (self *IrExtractField) String() string {
	return fmt.Sprintf("%s = extract_field %s, #%d", self.R, self.V, self.Idx)
}

func (self *IrExtractField) Usages() []*Reg {
	return []*Reg{&self.V}
}

func (self *IrExtractField) Definitions() []*Reg {
	return []*Reg{&self.R}
}

// IrMakeEnum constructs a tagged-union value with a known case. V is the
// payload operand, Rz / Pn when the case carries no payload.
type IrMakeEnum struct {
	R    Reg
	V    Reg
	T    *EnumType
	Case int
}

func (self *IrMakeEnum) Clone() IrNode {
	r := *self
	return &r
}

func (self *IrMakeEnum) HasPayload() bool {
	return self.T.Cases[self.Case].Payload != nil
}

func (self *IrMakeEnum) String() string {
	if !self.HasPayload() {
		return fmt.Sprintf("%s = make_enum %s.%s", self.R, self.T.Name, self.T.Cases[self.Case].Name)
	} else {
		return fmt.Sprintf("%s = make_enum %s.%s (%s)", self.R, self.T.Name, self.T.Cases[self.Case].Name, self.V)
	}
}

func (self *IrMakeEnum) Usages() []*Reg {
	return []*Reg{&self.V}
}

func (self *IrMakeEnum) Definitions() []*Reg {
	return []*Reg{&self.R}
}

// IrEnumData extracts the payload of a tagged-union value whose case is
// already established by dominating control flow.
type IrEnumData struct {
	R    Reg
	V    Reg
	T    *EnumType
	Case int
}

func (self *IrEnumData) Clone() IrNode {
	r := *self
	return &r
}

func (self *IrEnumData) String() string {
	return fmt.Sprintf("%s = enum_data %s, %s.%s", self.R, self.V, self.T.Name, self.T.Cases[self.Case].Name)
}

func (self *IrEnumData) Usages() []*Reg {
	return []*Reg{&self.V}
}

func (self *IrEnumData) Definitions() []*Reg {
	return []*Reg{&self.R}
}

type IrRetain struct {
	V Reg
}

func (self *IrRetain) Clone() IrNode {
	r := *self
	return &r
}

func (self *IrRetain) String() string {
	return "retain " + self.V.String()
}

func (self *IrRetain) Usages() []*Reg {
	return []*Reg{&self.V}
}

type IrRelease struct {
	V Reg
}

func (self *IrRelease) Clone() IrNode {
	r := *self
	return &r
}

func (self *IrRelease) String() string {
	return "release " + self.V.String()
}

func (self *IrRelease) Usages() []*Reg {
	return []*Reg{&self.V}
}

// FuncRef names an external or module-local callee. NoReturn callees never
// return control to the caller.
type FuncRef struct {
	Name     string
	NRet     int
	NoReturn bool
}

type IrCall struct {
	Fn  *FuncRef
	In  []Reg
	Out []Reg
}

func (self *IrCall) Clone() IrNode {
	r := *self
	r.In = append([]Reg(nil), self.In...)
	r.Out = append([]Reg(nil), self.Out...)
	return &r
}

func (self *IrCall) String() string {
	in := make([]string, 0, len(self.In))
	out := make([]string, 0, len(self.Out))
	for _, v := range self.In {
		in = append(in, v.String())
	}
	for _, v := range self.Out {
		out = append(out, v.String())
	}
	if len(out) == 0 {
		return fmt.Sprintf("call %s(%s)", self.Fn.Name, strings.Join(in, ", "))
	} else {
		return fmt.Sprintf("%s = call %s(%s)", strings.Join(out, ", "), self.Fn.Name, strings.Join(in, ", "))
	}
}

func (self *IrCall) Usages() []*Reg {
	return regsliceref(self.In)
}

func (self *IrCall) Definitions() []*Reg {
	return regsliceref(self.Out)
}

type IrAllocStack struct {
	R Reg
	T Type
}

func (self *IrAllocStack) Clone() IrNode {
	r := *self
	return &r
}

func (self *IrAllocStack) String() string {
	return fmt.Sprintf("%s = alloc_stack %s", self.R, self.T)
}

func (self *IrAllocStack) Definitions() []*Reg {
	return []*Reg{&self.R}
}

type IrLoad struct {
	R   Reg
	Mem Reg
	T   Type
}

func (self *IrLoad) Clone() IrNode {
	r := *self
	return &r
}

func (self *IrLoad) String() string {
	return fmt.Sprintf("%s = load %s", self.R, self.Mem)
}

func (self *IrLoad) Usages() []*Reg {
	return []*Reg{&self.Mem}
}

func (self *IrLoad) Definitions() []*Reg {
	return []*Reg{&self.R}
}

type IrStore struct {
	V   Reg
	Mem Reg
}

func (self *IrStore) Clone() IrNode {
	r := *self
	return &r
}

func (self *IrStore) String() string {
	return fmt.Sprintf("store %s -> *%s", self.V, self.Mem)
}

func (self *IrStore) Usages() []*Reg {
	return []*Reg{&self.V, &self.Mem}
}

type IrDeallocStack struct {
	Mem Reg
}

func (self *IrDeallocStack) Clone() IrNode {
	r := *self
	return &r
}

func (self *IrDeallocStack) String() string {
	return "dealloc_stack " + self.Mem.String()
}

func (self *IrDeallocStack) Usages() []*Reg {
	return []*Reg{&self.Mem}
}

type IrBreakpoint struct{}

func (self *IrBreakpoint) Clone() IrNode {
	return new(IrBreakpoint)
}

func (self *IrBreakpoint) String() string {
	return "breakpoint"
}
