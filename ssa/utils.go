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

func minint(a int, b int) int {
	if a < b {
		return a
	} else {
		return b
	}
}

func regsliceref(v []Reg) (r []*Reg) {
	r = make([]*Reg, len(v))
	for i := range v {
		r[i] = &v[i]
	}
	return
}

func regslicedup(v []Reg) []Reg {
	return append([]Reg(nil), v...)
}

func regsliceeq(a []Reg, b []Reg) bool {
	if len(a) != len(b) {
		return false
	}
	for i, v := range a {
		if v != b[i] {
			return false
		}
	}
	return true
}

// substRegs rewrites every slot whose current value has a mapping in m.
// Zero registers are never rewritten.
func substRegs(slots []*Reg, m map[Reg]Reg) {
	for _, p := range slots {
		if !p.IsZero() {
			if v, ok := m[*p]; ok {
				*p = v
			}
		}
	}
}

// usageSlots returns the operand slots of a node, or nil.
func usageSlots(v IrNode) []*Reg {
	if u, ok := v.(IrUsages); ok {
		return u.Usages()
	}
	return nil
}

// definitionSlots returns the result slots of a node, or nil.
func definitionSlots(v IrNode) []*Reg {
	if d, ok := v.(IrDefinitions); ok {
		return d.Definitions()
	}
	return nil
}
