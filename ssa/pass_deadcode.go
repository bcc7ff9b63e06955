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

// sweepUnreachable severs the incoming edges that reachable blocks still
// hold from blocks no path from the entry can reach, reporting each newly
// severed region. Detached blocks are reclaimed by the garbage collector
// once the last predecessor reference is gone.
func sweepUnreachable(cfg *CFG) bool {
	blocks := cfg.reach()
	live := make(map[int]bool, len(blocks))
	for _, bb := range blocks {
		live[bb.Id] = true
	}

	changed := false
	for _, bb := range blocks {
		keep := make([]*BasicBlock, 0, len(bb.Pred))
		for _, p := range bb.Pred {
			if live[p.Id] {
				keep = append(keep, p)
			} else {
				cfg.reportDeadRegion(p)
				changed = true
			}
		}
		bb.Pred = keep
	}

	if changed {
		cfg.Invalidate()
	}
	return changed
}

// reportDeadRegion walks the dead region hanging off bb and emits one
// unreachable-code diagnostic for the first source-anchored block in it,
// standing for the fold that severed the region.
func (self *CFG) reportDeadRegion(bb *BasicBlock) {
	live := make(map[int]bool)
	for _, p := range self.reach() {
		live[p.Id] = true
	}
	if live[bb.Id] {
		return
	}

	q := lane.NewQueue()
	vis := map[int]bool{bb.Id: true}
	for q.Enqueue(bb); !q.Empty(); {
		p := q.Dequeue().(*BasicBlock)
		if p.Src.IsValid() {
			self.reportDead(p)
			return
		}
		if p.Term == nil {
			continue
		}
		for it := p.Term.Successors(); it.Next(); {
			if s := it.Block(); !vis[s.Id] && !live[s.Id] {
				vis[s.Id] = true
				q.Enqueue(s)
			}
		}
	}
}

// DeadCode removes edges from unreachable blocks and then iteratively
// deletes pure instructions whose results are never used, cascading until
// nothing more dies.
type DeadCode struct{}

func (DeadCode) Apply(cfg *CFG) Invalidation {
	inv := InvNone
	if sweepUnreachable(cfg) {
		inv |= InvCFG
	}

	for {
		blocks := cfg.Blocks()

		/* count every remaining operand reference */
		uses := make(map[Reg]int)
		for _, bb := range blocks {
			for _, v := range bb.Ins {
				for _, u := range usageSlots(v) {
					if !u.IsZero() {
						uses[*u]++
					}
				}
			}
			for _, u := range usageSlots(bb.Term) {
				if !u.IsZero() {
					uses[*u]++
				}
			}
		}

		/* drop pure instructions with no remaining uses */
		removed := false
		for _, bb := range blocks {
			keep := bb.Ins[:0]
			for _, v := range bb.Ins {
				if deadIns(v, uses) {
					removed = true
				} else {
					keep = append(keep, v)
				}
			}
			bb.Ins = keep
		}

		if !removed {
			break
		}
		inv |= InvInstructions
	}
	return inv
}

func deadIns(v IrNode, uses map[Reg]int) bool {
	if _, ok := v.(IrImpure); ok {
		return false
	}
	defs := definitionSlots(v)
	if len(defs) == 0 {
		return false
	}
	for _, d := range defs {
		if !d.IsZero() && uses[*d] != 0 {
			return false
		}
	}
	return true
}
