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

// _WorkList is a FIFO of blocks pending a rewrite visit. Pushing an
// enqueued block is a no-op, and removal tombstones the slot in place, so
// both operations stay O(1) while iteration order remains stable.
type _WorkList struct {
	head  int
	queue []*BasicBlock
	index map[int]int
}

func mkworklist() _WorkList {
	return _WorkList{
		index: make(map[int]int),
	}
}

func (self *_WorkList) empty() bool {
	return len(self.index) == 0
}

func (self *_WorkList) push(bb *BasicBlock) {
	if _, ok := self.index[bb.Id]; !ok {
		self.index[bb.Id] = len(self.queue)
		self.queue = append(self.queue, bb)
	}
}

func (self *_WorkList) pop() *BasicBlock {
	for self.head < len(self.queue) {
		bb := self.queue[self.head]
		self.head++

		/* skip the tombstones left by remove */
		if bb != nil && self.index[bb.Id] == self.head-1 {
			delete(self.index, bb.Id)
			return bb
		}
	}
	return nil
}

// remove drops a block that was deleted from the graph while still
// enqueued, without disturbing the queue order.
func (self *_WorkList) remove(bb *BasicBlock) {
	if i, ok := self.index[bb.Id]; ok {
		self.queue[i] = nil
		delete(self.index, bb.Id)
	}
}
