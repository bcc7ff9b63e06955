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

// Verify panics when a structural invariant of the function is broken:
// a missing terminator, an edge whose operand count disagrees with its
// target's argument count, or a use not dominated by its definition.
// Passes are expected to leave the IR verifiable after every application.
func (self *CFG) Verify() {
	self.Rebuild()
	blocks := self.Blocks()

	for _, bb := range blocks {
		assert(bb.Term != nil, "verify %s: bb_%d has no terminator", self.Name, bb.Id)
		switch t := bb.Term.(type) {
		case *IrBranch:
			self.checkEdge(bb, &t.Ln, 0)
		case *IrCondBr:
			self.checkEdge(bb, &t.Br, 0)
			self.checkEdge(bb, &t.Ln, 0)
		case *IrSwitchEnum:
			for _, c := range t.Cases() {
				self.checkEdge(bb, t.Br[c], t.PayloadArity(c))
			}
			if t.Ln != nil {
				self.checkEdge(bb, t.Ln, 0)
			}
		}
	}

	/* definition sites of every register */
	defs := make(map[Reg]*BasicBlock)
	for _, bb := range blocks {
		for _, r := range bb.Args {
			defs[r] = bb
		}
		for _, v := range bb.Ins {
			for _, d := range definitionSlots(v) {
				if !d.IsZero() {
					defs[*d] = bb
				}
			}
		}
	}

	/* every use dominated by its definition, in-block uses in order */
	for _, bb := range blocks {
		local := make(map[Reg]bool, len(bb.Args))
		for _, r := range bb.Args {
			local[r] = true
		}
		check := func(v IrNode) {
			for _, u := range usageSlots(v) {
				r := *u
				if r.IsZero() {
					continue
				}
				db := defs[r]
				assert(db != nil, "verify %s: bb_%d uses undefined register %s", self.Name, bb.Id, r)
				if db == bb {
					assert(local[r], "verify %s: bb_%d uses %s before its definition", self.Name, bb.Id, r)
				} else {
					assert(self.Dominates(db, bb), "verify %s: definition of %s in bb_%d does not dominate its use in bb_%d", self.Name, r, db.Id, bb.Id)
				}
			}
		}
		for _, v := range bb.Ins {
			check(v)
			for _, d := range definitionSlots(v) {
				if !d.IsZero() {
					local[*d] = true
				}
			}
		}
		check(bb.Term)
	}
}

func (self *CFG) checkEdge(bb *BasicBlock, e *Edge, off int) {
	assert(
		len(e.Args)+off == len(e.To.Args),
		"verify %s: edge bb_%d -> bb_%d supplies %d operands, target takes %d",
		self.Name, bb.Id, e.To.Id, len(e.Args)+off, len(e.To.Args),
	)
}
