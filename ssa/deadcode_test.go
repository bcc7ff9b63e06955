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

func TestDeadCode_SweepDetachedRegion(t *testing.T) {
	sink := new(diagRecorder)
	p := CreateBuilder("sweep")
	p.CFG().Diag = sink

	end := p.NewBlock()
	p.Goto(end)
	p.SetBlock(end).Return()

	/* a region with no path from the entry, still holding an edge into a
	 * live block */
	orphan := p.CFG().CreateBlock()
	orphan.Src = Pos{File: "main.x", Line: 3, Col: 9}
	orphan.SetTerm(&IrBranch{Ln: Edge{To: end}})

	cfg := p.CFG()
	require.Equal(t, InvCFG, DeadCode{}.Apply(cfg))
	cfg.Verify()
	require.Equal(t, []*BasicBlock{cfg.Root}, end.Pred)

	require.Len(t, sink.diags, 1)
	require.Equal(t, WarnUnreachableCode, sink.diags[0].Kind)
	require.Equal(t, 3, sink.diags[0].Pos.Line)

	/* idempotent, and the region is never reported twice */
	require.Equal(t, InvNone, DeadCode{}.Apply(cfg))
	require.Len(t, sink.diags, 1)
}

func TestDeadCode_CascadingRemoval(t *testing.T) {
	p := CreateBuilder("cascade")
	x := p.Param(Ti64)
	a := p.ConstInt(1)
	b := p.Binary(IrOpAdd, a, a)
	_ = p.Binary(IrOpMul, b, b)
	p.Return(x)

	/* the product is unused, which in turn kills the sum and the constant */
	cfg := p.CFG()
	require.Equal(t, InvInstructions, DeadCode{}.Apply(cfg))
	cfg.Verify()
	require.Empty(t, cfg.Root.Ins)
}

func TestDeadCode_KeepsImpure(t *testing.T) {
	fn := &FuncRef{Name: "effect", NRet: 1}
	p := CreateBuilder("impure")
	x := p.Param(ptrTo(Ti64))
	p.Retain(x)
	p.Call(fn)
	p.ConstInt(7)
	p.Release(x)
	p.Return()

	/* the unused constant dies, the side effects all stay */
	cfg := p.CFG()
	require.Equal(t, InvInstructions, DeadCode{}.Apply(cfg))
	cfg.Verify()
	require.Len(t, cfg.Root.Ins, 3)
	require.IsType(t, new(IrRetain), cfg.Root.Ins[0])
	require.IsType(t, new(IrCall), cfg.Root.Ins[1])
	require.IsType(t, new(IrRelease), cfg.Root.Ins[2])
}

func TestDeadCode_GeneratedBlocksStaySilent(t *testing.T) {
	sink := new(diagRecorder)
	p := CreateBuilder("silent")
	p.CFG().Diag = sink

	end := p.NewBlock()
	p.Goto(end)
	p.SetBlock(end).Return()

	/* compiler-generated blocks carry no source anchor and must never be
	 * reported */
	orphan := p.CFG().CreateBlock()
	orphan.SetTerm(&IrBranch{Ln: Edge{To: end}})

	cfg := p.CFG()
	require.Equal(t, InvCFG, DeadCode{}.Apply(cfg))
	require.Empty(t, sink.diags)
}
