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

func countAllocs(cfg *CFG) int {
	return opCount(cfg, func(v IrNode) bool {
		_, ok := v.(*IrAllocStack)
		return ok
	})
}

func countMemOps(cfg *CFG) int {
	return opCount(cfg, func(v IrNode) bool {
		switch v.(type) {
		case *IrAllocStack, *IrLoad, *IrStore, *IrDeallocStack:
			return true
		default:
			return false
		}
	})
}

func TestMem2Reg_SingleBlock(t *testing.T) {
	p := CreateBuilder("local")
	m := p.AllocStack(Ti64)
	c := p.ConstInt(5)
	p.Store(c, m)
	l := p.Load(Ti64, m)
	p.DeallocStack(m)
	p.Return(l)

	cfg := p.CFG()
	require.Equal(t, InvInstructions, Mem2Reg{}.Apply(cfg))
	cfg.Verify()

	require.Zero(t, countMemOps(cfg))
	require.Len(t, cfg.Root.Ins, 1)
	ret := cfg.Root.Term.(*IrReturn)
	require.Equal(t, []Reg{c}, ret.R)
}

func TestMem2Reg_LoadBeforeStore(t *testing.T) {
	p := CreateBuilder("uninitread")
	m := p.AllocStack(Ti64)
	early := p.Load(Ti64, m)
	c := p.ConstInt(7)
	p.Store(c, m)
	late := p.Load(Ti64, m)
	p.DeallocStack(m)
	p.Return(early, late)

	cfg := p.CFG()
	require.Equal(t, InvInstructions, Mem2Reg{}.Apply(cfg))
	cfg.Verify()

	/* the linear scan hands the load ahead of the first store the
	 * undefined sentinel and the later load the stored value */
	require.Zero(t, countMemOps(cfg))
	require.Len(t, cfg.Root.Ins, 1)
	require.Equal(t, []Reg{Rz, c}, cfg.Root.Term.(*IrReturn).R)
}

func TestMem2Reg_Diamond(t *testing.T) {
	p := CreateBuilder("diamond")
	x := p.Param(Ti64)
	lhs := p.NewBlock()
	rhs := p.NewBlock()
	join := p.NewBlock()

	m := p.AllocStack(Ti64)
	p.CondBr(x, To(lhs), To(rhs))
	c1 := p.SetBlock(lhs).ConstInt(1)
	p.Store(c1, m)
	p.Goto(join)
	c2 := p.SetBlock(rhs).ConstInt(2)
	p.Store(c2, m)
	p.Goto(join)
	l := p.SetBlock(join).Load(Ti64, m)
	p.DeallocStack(m)
	p.Return(l)

	cfg := p.CFG()
	require.Equal(t, InvInstructions, Mem2Reg{}.Apply(cfg))
	cfg.Verify()

	/* the join picks up exactly one new argument, fed the stored value on
	 * each incoming edge, and the load is replaced by it */
	require.Zero(t, countMemOps(cfg))
	require.Len(t, join.Args, 1)
	require.Equal(t, []Reg{c1}, lhs.Term.(*IrBranch).Ln.Args)
	require.Equal(t, []Reg{c2}, rhs.Term.(*IrBranch).Ln.Args)
	require.Equal(t, []Reg{join.Args[0]}, join.Term.(*IrReturn).R)

	/* a second application finds nothing left to promote */
	require.Equal(t, InvNone, Mem2Reg{}.Apply(cfg))
}

func TestMem2Reg_WriteOnly(t *testing.T) {
	p := CreateBuilder("writeonly")
	next := p.NewBlock()
	m := p.AllocStack(Ti64)
	c1 := p.ConstInt(1)
	p.Store(c1, m)
	p.Goto(next)
	c2 := p.SetBlock(next).ConstInt(2)
	p.Store(c2, m)
	p.DeallocStack(m)
	p.Return(c2)

	cfg := p.CFG()
	require.Equal(t, InvInstructions, Mem2Reg{}.Apply(cfg))
	cfg.Verify()
	require.Zero(t, countMemOps(cfg))
}

func TestMem2Reg_CapturedSlot(t *testing.T) {
	fn := &FuncRef{Name: "observe", NRet: 0}
	p := CreateBuilder("captured")
	m := p.AllocStack(Ti64)
	c := p.ConstInt(5)
	p.Store(c, m)
	p.Call(fn, m)
	l := p.Load(Ti64, m)
	p.DeallocStack(m)
	p.Return(l)

	/* the address escapes into the call, the slot must stay */
	cfg := p.CFG()
	require.Equal(t, InvNone, Mem2Reg{}.Apply(cfg))
	cfg.Verify()
	require.Equal(t, 1, countAllocs(cfg))
	require.Equal(t, 4, countMemOps(cfg))
}

func TestMem2Reg_AddressStoredElsewhere(t *testing.T) {
	p := CreateBuilder("addrstore")
	m := p.AllocStack(Ti64)
	n := p.AllocStack(ptrTo(Ti64))
	p.Store(m, n)
	p.DeallocStack(n)
	p.DeallocStack(m)
	p.Return()

	cfg := p.CFG()
	Mem2Reg{}.Apply(cfg)
	cfg.Verify()

	/* n is write-only and goes away, m escaped into it and survives */
	allocs := []*IrAllocStack(nil)
	for _, v := range cfg.Root.Ins {
		if a, ok := v.(*IrAllocStack); ok {
			allocs = append(allocs, a)
		}
	}
	require.Len(t, allocs, 1)
	require.Equal(t, m, allocs[0].R)
}

func TestMem2Reg_LoadWithoutStore(t *testing.T) {
	p := CreateBuilder("nostore")
	next := p.NewBlock()
	m := p.AllocStack(Ti64)
	p.Goto(next)
	l := p.SetBlock(next).Load(Ti64, m)
	p.DeallocStack(m)
	p.Return(l)

	cfg := p.CFG()
	require.Equal(t, InvInstructions, Mem2Reg{}.Apply(cfg))
	cfg.Verify()

	/* nothing was ever stored, the load collapses to the undefined
	 * sentinel of its class */
	require.Zero(t, countMemOps(cfg))
	require.Equal(t, []Reg{Rz}, next.Term.(*IrReturn).R)
}

func TestMem2Reg_LoopCarried(t *testing.T) {
	p := CreateBuilder("loop")
	n := p.Param(Ti64)
	head := p.NewBlock()
	body := p.NewBlock()
	exit := p.NewBlock()

	m := p.AllocStack(Ti64)
	c0 := p.ConstInt(0)
	p.Store(c0, m)
	p.Goto(head)

	i := p.SetBlock(head).Load(Ti64, m)
	cond := p.Binary(IrCmpLt, i, n)
	p.CondBr(cond, To(body), To(exit))

	one := p.SetBlock(body).ConstInt(1)
	next := p.Binary(IrOpAdd, i, one)
	p.Store(next, m)
	p.Goto(head)

	l := p.SetBlock(exit).Load(Ti64, m)
	p.DeallocStack(m)
	p.Return(l)

	cfg := p.CFG()
	require.Equal(t, InvInstructions, Mem2Reg{}.Apply(cfg))
	cfg.Verify()

	/* the loop header becomes the join carrying the counter */
	require.Zero(t, countMemOps(cfg))
	require.Len(t, head.Args, 1)
	require.Equal(t, []Reg{c0}, cfg.Root.Term.(*IrBranch).Ln.Args)
	require.Equal(t, []Reg{next}, body.Term.(*IrBranch).Ln.Args)
}
