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
	"gonum.org/v1/gonum/graph/flow"
	"gonum.org/v1/gonum/graph/simple"
)

func TestDominator_Diamond(t *testing.T) {
	cfg := CreateCFG("diamond")
	a := cfg.CreateBlock()
	b := cfg.CreateBlock()
	m := cfg.CreateBlock()
	cfg.Root.SetTerm(&IrCondBr{V: Rz, Br: Edge{To: a}, Ln: Edge{To: b}})
	a.SetTerm(&IrBranch{Ln: Edge{To: m}})
	b.SetTerm(&IrBranch{Ln: Edge{To: m}})
	m.SetTerm(new(IrReturn))
	cfg.Rebuild()

	require.Equal(t, cfg.Root, cfg.DominatedBy[a.Id])
	require.Equal(t, cfg.Root, cfg.DominatedBy[b.Id])
	require.Equal(t, cfg.Root, cfg.DominatedBy[m.Id])
	require.Equal(t, 0, cfg.Depth[cfg.Root.Id])
	require.Equal(t, 1, cfg.Depth[m.Id])
	require.True(t, cfg.Dominates(cfg.Root, m))
	require.True(t, cfg.Dominates(m, m))
	require.False(t, cfg.Dominates(a, m))
}

func TestDominator_DeepChain(t *testing.T) {
	cfg := CreateCFG("deep")
	cur := cfg.Root
	for i := 0; i < 5000; i++ {
		next := cfg.CreateBlock()
		cur.SetTerm(&IrBranch{Ln: Edge{To: next}})
		cur = next
	}
	cur.SetTerm(new(IrReturn))
	cfg.Rebuild()

	require.Equal(t, 5000, cfg.Depth[cur.Id])
	require.True(t, cfg.Dominates(cfg.Root, cur))
	require.False(t, cfg.Dominates(cur, cfg.Root))
}

func buildRandomCFG(nb int) *CFG {
	cfg := CreateCFG("random")
	blocks := []*BasicBlock{cfg.Root}
	for i := 1; i < nb; i++ {
		blocks = append(blocks, cfg.CreateBlock())
	}

	/* never target the block itself, simple.DirectedGraph rejects
	 * self-edges and they cannot change dominance anyway */
	pick := func(i int) *BasicBlock {
		return blocks[(i+gofakeit.Number(1, nb-1))%nb]
	}

	for i, bb := range blocks {
		switch {
		case i != 0 && gofakeit.Number(0, 4) == 0:
			bb.SetTerm(new(IrReturn))
		case gofakeit.Bool():
			bb.SetTerm(&IrBranch{Ln: Edge{To: pick(i)}})
		default:
			bb.SetTerm(&IrCondBr{V: Rz, Br: Edge{To: pick(i)}, Ln: Edge{To: pick(i)}})
		}
	}
	cfg.Rebuild()
	return cfg
}

func TestDominator_CrossCheck(t *testing.T) {
	gofakeit.Seed(0x0991)
	for round := 0; round < 100; round++ {
		cfg := buildRandomCFG(gofakeit.Number(4, 16))
		blocks := cfg.reach()

		g := simple.NewDirectedGraph()
		for _, bb := range blocks {
			g.AddNode(simple.Node(bb.Id))
		}
		for _, bb := range blocks {
			for it := bb.Term.Successors(); it.Next(); {
				if s := it.Block(); s.Id != bb.Id {
					g.SetEdge(simple.Edge{F: simple.Node(bb.Id), T: simple.Node(s.Id)})
				}
			}
		}

		dt := flow.Dominators(simple.Node(cfg.Root.Id), g)
		for _, bb := range blocks {
			if bb == cfg.Root {
				continue
			}
			want := dt.DominatorOf(int64(bb.Id))
			got := cfg.DominatedBy[bb.Id]
			require.NotNil(t, want, "bb_%d has no dominator in\n%s", bb.Id, cfg)
			require.NotNil(t, got, "bb_%d has no dominator in\n%s", bb.Id, cfg)
			require.Equal(t, want.ID(), int64(got.Id), "idom mismatch for bb_%d in\n%s", bb.Id, cfg)
		}
	}
}
