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

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/require"
)

// buildComposite exercises every pass at once: a stack slot written on both
// sides of a diamond, a branch that folds once the slot is promoted, and
// arithmetic that dies along the way.
func buildComposite(name string) *CFG {
	p := CreateBuilder(name)
	lhs := p.NewBlock()
	rhs := p.NewBlock()
	join := p.NewBlock()
	yes := p.NewBlock()
	no := p.NewBlock()

	m := p.AllocStack(Ti64)
	one := p.ConstInt(1)
	p.Store(one, m)
	p.CondBr(one, To(lhs), To(rhs))

	c1 := p.SetBlock(lhs).ConstInt(1)
	p.Store(c1, m)
	p.Goto(join)
	c2 := p.SetBlock(rhs).ConstInt(2)
	p.Store(c2, m)
	p.Goto(join)

	l := p.SetBlock(join).Load(Ti64, m)
	p.DeallocStack(m)
	p.CondBr(l, To(yes), To(no))
	r1 := p.SetBlock(yes).ConstInt(10)
	p.Return(r1)
	r0 := p.SetBlock(no).ConstInt(20)
	p.Return(r0)
	return p.CFG()
}

func TestPassManager_Fixpoint(t *testing.T) {
	fn := buildComposite("main")
	mod := CreateModule()
	mod.AddFunc(fn)

	CreatePassManager(20, 0).Run(mod)
	fn.Verify()

	/* the literal condition picks lhs, the promoted slot holds 1 at the
	 * join, the second branch folds, everything collapses to one return */
	blocks := fn.Blocks()
	require.Len(t, blocks, 1, "pipeline did not converge:\n%s", fn)
	ret, ok := blocks[0].Term.(*IrReturn)
	require.True(t, ok)
	require.Len(t, ret.R, 1)
	require.Zero(t, countMemOps(fn))

	seen := false
	for _, v := range blocks[0].Ins {
		if c, yes := v.(*IrConstInt); yes && c.R == ret.R[0] {
			require.Equal(t, int64(10), c.V)
			seen = true
		}
	}
	require.True(t, seen, "return value not folded to a constant:\n%s", fn)
}

func TestPassManager_RunCap(t *testing.T) {
	fn := buildComposite("main")
	mod := CreateModule()
	mod.AddFunc(fn)

	pm := CreatePassManager(20, 1)
	pm.Run(mod)
	require.Equal(t, 1, pm.Runs())

	/* only the first pass ran, the function is not fully optimized */
	require.Greater(t, len(fn.Blocks()), 1)
}

func TestPassManager_Converges(t *testing.T) {
	fn := buildComposite("main")
	mod := CreateModule()
	mod.AddFunc(fn)

	pm := CreatePassManager(20, 0)
	pm.Run(mod)
	spent := pm.Runs()

	/* a second drive over the optimized module settles in one iteration */
	pm2 := CreatePassManager(20, 0)
	pm2.Run(mod)
	require.LessOrEqual(t, pm2.Runs(), len(Passes))
	require.Greater(t, spent, 0)
}

func TestPassManager_RandomizedVerify(t *testing.T) {
	gofakeit.Seed(0x5517)
	for round := 0; round < 50; round++ {
		fn := buildRandomCFG(gofakeit.Number(4, 12))
		mod := CreateModule()
		mod.AddFunc(fn)

		CreatePassManager(20, 0).Run(mod)
		fn.Verify()
	}
}

func retOnly(name string, private bool) *CFG {
	p := CreateBuilder(name)
	p.Return()
	cfg := p.CFG()
	cfg.Private = private
	return cfg
}

func callerOf(name string, private bool, callee string) *CFG {
	p := CreateBuilder(name)
	p.Call(&FuncRef{Name: callee})
	p.Return()
	cfg := p.CFG()
	cfg.Private = private
	return cfg
}

func TestFuncElim_RemovesDeadPrivate(t *testing.T) {
	mod := CreateModule()
	mod.AddFunc(callerOf("main", false, "helper"))
	mod.AddFunc(retOnly("helper", true))
	mod.AddFunc(callerOf("stale", true, "transitive"))
	mod.AddFunc(retOnly("transitive", true))

	inv := FuncElim{}.ApplyModule(mod)
	require.Equal(t, InvCallGraph, inv)

	/* stale has no caller; transitive was only kept alive by stale and
	 * goes with it */
	require.Equal(t, []string{"helper", "main"}, mod.Names())
}

func TestFuncElim_SelfRecursionIsDead(t *testing.T) {
	mod := CreateModule()
	mod.AddFunc(retOnly("main", false))
	mod.AddFunc(callerOf("spin", true, "spin"))

	FuncElim{}.ApplyModule(mod)
	require.Equal(t, []string{"main"}, mod.Names())
}

func TestFuncElim_KeepsPublic(t *testing.T) {
	mod := CreateModule()
	mod.AddFunc(retOnly("exported", false))

	require.Equal(t, InvNone, FuncElim{}.ApplyModule(mod))
	require.Equal(t, []string{"exported"}, mod.Names())
}
