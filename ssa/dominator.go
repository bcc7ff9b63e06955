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

/** This is an implementation of the Lengauer-Tarjan algorithm described in
 *  https://doi.org/10.1145%2F357062.357071
 *
 *  Both the DFS numbering and the forest path compression use explicit
 *  stacks, so deep straight-line CFGs cannot overflow the goroutine stack.
 */

package ssa

import (
	"sort"

	"github.com/oleiade/lane"
)

type _LtNode struct {
	semi     int
	node     *BasicBlock
	dom      *_LtNode
	label    *_LtNode
	parent   *_LtNode
	ancestor *_LtNode
	pred     []*_LtNode
	bucket   map[*_LtNode]struct{}
}

type _LengauerTarjan struct {
	nodes  []*_LtNode
	vertex map[int]int
}

func newLengauerTarjan() *_LengauerTarjan {
	return &_LengauerTarjan{
		vertex: make(map[int]int),
	}
}

func (self *_LengauerTarjan) mknode(bb *BasicBlock, parent *_LtNode) *_LtNode {
	i := len(self.nodes)
	self.vertex[bb.Id] = i

	/* create a new node */
	p := &_LtNode{
		semi:   i,
		node:   bb,
		parent: parent,
		bucket: make(map[*_LtNode]struct{}),
	}

	/* add to node list */
	p.label = p
	self.nodes = append(self.nodes, p)
	return p
}

type _LtFrame struct {
	p  *_LtNode
	it IrSuccessors
}

func (self *_LengauerTarjan) dfs(bb *BasicBlock) {
	st := lane.NewStack()
	rt := self.mknode(bb, nil)
	st.Push(&_LtFrame{rt, bb.Term.Successors()})

	for !st.Empty() {
		f := st.Head().(*_LtFrame)
		descend := false

		/* traverse the successors, suspending this frame at the first
		 * unvisited one */
		for f.it.Next() {
			w := f.it.Block()
			idx, ok := self.vertex[w.Id]

			/* not visited yet */
			if !ok {
				q := self.mknode(w, f.p)
				q.pred = append(q.pred, f.p)
				st.Push(&_LtFrame{q, w.Term.Successors()})
				descend = true
				break
			}

			/* add predecessors */
			q := self.nodes[idx]
			q.pred = append(q.pred, f.p)
		}

		/* every successor handled, this frame is complete */
		if !descend {
			st.Pop()
		}
	}
}

func (self *_LengauerTarjan) eval(p *_LtNode) *_LtNode {
	if p.ancestor == nil {
		return p
	} else {
		self.compress(p)
		return p.label
	}
}

func (self *_LengauerTarjan) link(p *_LtNode, q *_LtNode) {
	q.ancestor = p
}

func (self *_LengauerTarjan) compress(p *_LtNode) {
	path := []*_LtNode(nil)

	/* collect the path to the forest root */
	for q := p; q.ancestor.ancestor != nil; q = q.ancestor {
		path = append(path, q)
	}

	/* relabel top-down, exactly as the recursion unwinds */
	for i := len(path) - 1; i >= 0; i-- {
		q := path[i]
		if q.label.semi > q.ancestor.label.semi {
			q.label = q.ancestor.label
		}
		q.ancestor = q.ancestor.ancestor
	}
}

// buildDominatorTree computes the immediate dominator of every block
// reachable from bb, and the inverse child lists sorted by block ID.
func buildDominatorTree(bb *BasicBlock) (map[int]*BasicBlock, map[int][]*BasicBlock) {
	domby := make(map[int]*BasicBlock)
	domof := make(map[int][]*BasicBlock)

	/* Step 1: Carry out a depth-first search of the problem graph. Number the vertices
	 * from 1 to n as they are reached during the search. Initialize the variables used
	 * in succeeding steps. */
	lt := newLengauerTarjan()
	lt.dfs(bb)

	/* perform Step 2 and Step 3 simultaneously */
	for i := len(lt.nodes) - 1; i > 0; i-- {
		p := lt.nodes[i]
		q := (*_LtNode)(nil)

		/* Step 2: Compute the semidominators of all vertices by applying Theorem 4.
		 * Carry out the computation vertex by vertex in decreasing order by number. */
		for _, v := range p.pred {
			q = lt.eval(v)
			p.semi = minint(p.semi, q.semi)
		}

		/* link the ancestor */
		lt.link(p.parent, p)
		lt.nodes[p.semi].bucket[p] = struct{}{}

		/* Step 3: Implicitly define the immediate dominator of each vertex by applying Corollary 1 */
		for v := range p.parent.bucket {
			if q = lt.eval(v); q.semi < v.semi {
				v.dom = q
			} else {
				v.dom = p.parent
			}
		}

		/* clear the bucket */
		for v := range p.parent.bucket {
			delete(p.parent.bucket, v)
		}
	}

	/* Step 4: Explicitly define the immediate dominator of each vertex, carrying out the
	 * computation vertex by vertex in increasing order by number. */
	for _, p := range lt.nodes[1:] {
		if p.dom.node.Id != lt.nodes[p.semi].node.Id {
			p.dom = p.dom.dom
		}
	}

	/* map the dominator relations */
	for _, p := range lt.nodes[1:] {
		domby[p.node.Id] = p.dom.node
		domof[p.dom.node.Id] = append(domof[p.dom.node.Id], p.node)
	}

	/* sort the child lists for deterministic traversal */
	for _, v := range domof {
		sort.Slice(v, func(i int, j int) bool {
			return v[i].Id < v[j].Id
		})
	}
	return domby, domof
}
