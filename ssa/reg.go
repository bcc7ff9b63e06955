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
)

// Reg is a packed SSA value name. Bit 63 distinguishes pointer values from
// plain integers, bit 62 marks the zero registers, the remaining bits are
// the value index.
type Reg uint64

const (
	_B_ptr  = 63
	_B_zero = 62
)

const (
	_R_ptr   = Reg(1) << _B_ptr
	_R_zero  = Reg(1) << _B_zero
	_R_index = _R_zero - 1
)

const (
	// Rz is the integer zero register. It reads as the constant 0 and also
	// serves as the "undefined value" sentinel for integer values.
	Rz Reg = _R_zero

	// Pn is the nil pointer register, the pointer counterpart of Rz.
	Pn Reg = _R_ptr | _R_zero
)

func mkreg(ptr bool, i int) Reg {
	if r := Reg(i); r > _R_index {
		panic(fmt.Sprintf("mkreg: register index too large: %d", i))
	} else if ptr {
		return _R_ptr | r
	} else {
		return r
	}
}

func (self Reg) Ptr() bool {
	return self&_R_ptr != 0
}

func (self Reg) Index() int {
	return int(self & _R_index)
}

func (self Reg) IsZero() bool {
	return self&_R_zero != 0
}

// Zero returns the undefined-value sentinel of the same class as self.
func (self Reg) Zero() Reg {
	if self.Ptr() {
		return Pn
	} else {
		return Rz
	}
}

func (self Reg) String() string {
	switch {
	case self == Rz:
		return "$0"
	case self == Pn:
		return "nil"
	case self.Ptr():
		return fmt.Sprintf("%%p%d", self.Index())
	default:
		return fmt.Sprintf("%%r%d", self.Index())
	}
}
