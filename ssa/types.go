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

// Type is the minimal type universe the optimizer needs to reason about:
// enough to give block arguments and stack slots an element type, nothing
// more. The full source type system lives in the frontend.
type Type interface {
	fmt.Stringer
	istype()
}

func (*IntType) istype()    {}
func (*PtrType) istype()    {}
func (*EnumType) istype()   {}
func (*StructType) istype() {}

type IntType struct{}

func (*IntType) String() string {
	return "i64"
}

type PtrType struct {
	Elem Type
}

func (self *PtrType) String() string {
	return "*" + self.Elem.String()
}

type StructType struct {
	Name   string
	Fields []Type
}

func (self *StructType) String() string {
	nb := len(self.Fields)
	ret := make([]string, 0, nb)
	for _, f := range self.Fields {
		ret = append(ret, f.String())
	}
	return fmt.Sprintf("%s{%s}", self.Name, strings.Join(ret, ", "))
}

type EnumCase struct {
	Name    string
	Payload Type
}

type EnumType struct {
	Name  string
	Cases []EnumCase
}

func (self *EnumType) String() string {
	return "enum " + self.Name
}

// Ti64 is the shared integer type instance.
var Ti64 = new(IntType)

func ptrTo(elem Type) *PtrType {
	return &PtrType{Elem: elem}
}

// isPtrType reports whether values of type t live in pointer registers.
func isPtrType(t Type) bool {
	_, ok := t.(*PtrType)
	return ok
}
