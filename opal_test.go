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

package opal

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cloudwego/opal/ssa"
)

type testSink struct {
	diags []ssa.Diagnostic
}

func (self *testSink) Report(d ssa.Diagnostic) {
	self.diags = append(self.diags, d)
}

func buildTestFunc(name string) *ssa.CFG {
	p := ssa.CreateBuilder(name)
	live := p.NewBlock()
	dead := p.NewBlock()

	m := p.AllocStack(ssa.Ti64)
	one := p.ConstInt(1)
	p.Store(one, m)
	l := p.Load(ssa.Ti64, m)
	p.DeallocStack(m)
	p.CondBr(l, ssa.To(live), ssa.To(dead))

	ans := p.SetBlock(live).ConstInt(42)
	p.Return(ans)
	p.SetBlock(dead).MarkPos(ssa.Pos{File: "main.x", Line: 9, Col: 5}).Return()
	return p.CFG()
}

func TestOptimize_EndToEnd(t *testing.T) {
	sink := new(testSink)
	fn := buildTestFunc("main")
	OptimizeFunc(fn, WithDiagnostics(sink))
	fn.Verify()

	blocks := fn.Blocks()
	require.Len(t, blocks, 1)
	require.IsType(t, new(ssa.IrReturn), blocks[0].Term)

	require.Len(t, sink.diags, 1)
	require.Equal(t, ssa.WarnUnreachableCode, sink.diags[0].Kind)
	require.Equal(t, 9, sink.diags[0].Pos.Line)
}

func TestOptimize_RemovesDeadPrivateFuncs(t *testing.T) {
	mod := ssa.CreateModule()
	mod.AddFunc(buildTestFunc("main"))

	p := ssa.CreateBuilder("orphan")
	p.Return()
	fn := p.CFG()
	fn.Private = true
	mod.AddFunc(fn)

	Optimize(mod)
	require.Equal(t, []string{"main"}, mod.Names())
}

func TestOptimize_RunCap(t *testing.T) {
	fn := buildTestFunc("main")
	OptimizeFunc(fn, WithMaxPassRuns(1))
	fn.Verify()

	/* one pass invocation cannot finish the whole job */
	require.Greater(t, len(fn.Blocks()), 1)
}

func TestOptimize_BadOptions(t *testing.T) {
	require.Panics(t, func() { WithMaxPassIterations(0) })
	require.Panics(t, func() { WithMaxPassRuns(-1) })
	require.Panics(t, func() { WithDiagnostics(nil) })
}
