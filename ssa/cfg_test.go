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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCFG_Dump(t *testing.T) {
	p := CreateBuilder("dump")
	x := p.Param(Ti64)
	lhs := p.NewBlock()
	rhs := p.NewBlock()
	join := p.NewBlock(Ti64)
	p.CondBr(x, To(lhs), To(rhs))
	c1 := p.SetBlock(lhs).ConstInt(1)
	p.Goto(join, c1)
	c2 := p.SetBlock(rhs).ConstInt(2)
	p.Goto(join, c2)
	p.SetBlock(join).Return(join.Args[0])

	cfg := p.CFG()
	cfg.Verify()
	t.Log("\n" + cfg.String())
	t.Log("\n" + cfg.DumpDot())
	require.Contains(t, cfg.DumpDot(), "digraph")
}

func TestCFG_BlockOrder(t *testing.T) {
	p := CreateBuilder("order")
	x := p.Param(Ti64)
	lhs := p.NewBlock()
	rhs := p.NewBlock()
	join := p.NewBlock()
	p.CondBr(x, To(lhs), To(rhs))
	p.SetBlock(lhs).Goto(join)
	p.SetBlock(rhs).Goto(join)
	p.SetBlock(join).Return()

	cfg := p.CFG()
	blocks := cfg.Blocks()
	require.Len(t, blocks, 4)
	require.Equal(t, cfg.Root, blocks[0])

	/* reverse post-order puts every block before its dominated successors */
	pos := make(map[int]int)
	for i, bb := range blocks {
		pos[bb.Id] = i
	}
	require.Less(t, pos[lhs.Id], pos[join.Id])
	require.Less(t, pos[rhs.Id], pos[join.Id])
}

func TestCFG_RebuildDropsStalePreds(t *testing.T) {
	p := CreateBuilder("stale")
	end := p.NewBlock()
	p.Goto(end)
	p.SetBlock(end).Return()

	cfg := p.CFG()
	detached := cfg.CreateBlock()
	detached.SetTerm(&IrBranch{Ln: Edge{To: end}})
	require.Len(t, end.Pred, 2)

	cfg.Rebuild()
	require.Equal(t, []*BasicBlock{cfg.Root}, end.Pred)
}

func TestWorkList_Dedup(t *testing.T) {
	cfg := CreateCFG("wl")
	a := cfg.CreateBlock()
	b := cfg.CreateBlock()

	wl := mkworklist()
	wl.push(a)
	wl.push(b)
	wl.push(a)
	require.Equal(t, a, wl.pop())
	require.Equal(t, b, wl.pop())
	require.True(t, wl.empty())

	/* removal tombstones the slot, a later push re-queues cleanly */
	wl.push(a)
	wl.push(b)
	wl.remove(a)
	wl.push(a)
	require.Equal(t, b, wl.pop())
	require.Equal(t, a, wl.pop())
	require.True(t, wl.empty())
}
