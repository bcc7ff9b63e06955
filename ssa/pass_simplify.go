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

// _ThreadBudget caps the size of a block that jump threading may duplicate
// into its predecessor.
const _ThreadBudget = 3

// SimplifyCFG is the worklist-driven control-flow simplifier. One
// application runs the local rewrites to a fixed point, then the
// dominator-based condition elimination, then the reachability sweep; the
// pass manager iterates applications until nothing changes.
type SimplifyCFG struct{}

func (SimplifyCFG) Apply(cfg *CFG) Invalidation {
	changed := false

	/* local rewrites until the worklist drains */
	s := _CFGSimplifier{
		cfg: cfg,
		wl:  mkworklist(),
	}
	if s.run() {
		changed = true
	}

	/* conditions pinned by a dominating test on the same value */
	cfg.Rebuild()
	if domCondElim(cfg) {
		changed = true
		cfg.Rebuild()
	}

	/* drop edges from blocks that are no longer reachable */
	if sweepUnreachable(cfg) {
		changed = true
	}

	if changed {
		return InvCFG | InvInstructions
	}
	return InvNone
}

type _CFGSimplifier struct {
	cfg     *CFG
	wl      _WorkList
	defs    map[Reg]IrNode
	uses    map[Reg]int
	changed bool
}

func (self *_CFGSimplifier) run() bool {
	for _, bb := range self.cfg.Blocks() {
		self.wl.push(bb)
	}
	self.reindex()
	for !self.wl.empty() {
		bb := self.wl.pop()
		if bb == nil {
			break
		}
		if bb == self.cfg.Root || len(bb.Pred) != 0 {
			self.visit(bb)
		}
	}
	return self.changed
}

func (self *_CFGSimplifier) visit(bb *BasicBlock) {
	if self.foldConsts(bb) {
		self.changed = true
	}

	/* at most one structural rewrite per visit, then revisit */
	done := self.foldNoReturn(bb)
	if !done {
		switch t := bb.Term.(type) {
		case *IrBranch:
			done = self.onBranch(bb, t)
		case *IrCondBr:
			done = self.onCondBr(bb, t)
		case *IrSwitchEnum:
			done = self.onSwitch(bb, t)
		case *IrUnreachable:
			done = self.onUnreachable(bb)
		}
	}

	if done {
		self.changed = true
		self.reindex()
		return
	}

	if self.cleanArgs(bb) {
		self.changed = true
		self.reindex()
		self.wl.push(bb)
	}
}

/** Value Index **/

func (self *_CFGSimplifier) reindex() {
	self.defs = make(map[Reg]IrNode)
	self.uses = make(map[Reg]int)
	self.cfg.PostOrder(func(bb *BasicBlock) {
		for _, v := range bb.Ins {
			for _, d := range definitionSlots(v) {
				if !d.IsZero() {
					self.defs[*d] = v
				}
			}
			for _, u := range usageSlots(v) {
				if !u.IsZero() {
					self.uses[*u]++
				}
			}
		}
		for _, u := range usageSlots(bb.Term) {
			if !u.IsZero() {
				self.uses[*u]++
			}
		}
	})
}

func (self *_CFGSimplifier) constint(r Reg) (int64, bool) {
	if r == Rz {
		return 0, true
	}
	if p, ok := self.defs[r].(*IrConstInt); ok {
		return p.V, true
	}
	return 0, false
}

func (self *_CFGSimplifier) substAll(m map[Reg]Reg) {
	substEverywhere(self.cfg, m)
}

/** Instruction Folding **/

func b2i(v bool) int64 {
	if v {
		return 1
	} else {
		return 0
	}
}

func evalBinary(op IrBinaryOp, x int64, y int64) int64 {
	switch op {
	case IrOpAdd:
		return x + y
	case IrOpSub:
		return x - y
	case IrOpMul:
		return x * y
	case IrOpAnd:
		return x & y
	case IrOpOr:
		return x | y
	case IrOpXor:
		return x ^ y
	case IrCmpEq:
		return b2i(x == y)
	case IrCmpNe:
		return b2i(x != y)
	case IrCmpLt:
		return b2i(x < y)
	default:
		panic("unreachable")
	}
}

// foldConsts folds literal arithmetic and forwards field extractions of
// directly constructed aggregates, within one block.
func (self *_CFGSimplifier) foldConsts(bb *BasicBlock) bool {
	changed := false
	for i := 0; i < len(bb.Ins); i++ {
		switch p := bb.Ins[i].(type) {
		case *IrBinaryExpr:
			x, okx := self.constint(p.X)
			y, oky := self.constint(p.Y)
			if okx && oky {
				bb.Ins[i] = &IrConstInt{R: p.R, V: evalBinary(p.Op, x, y)}
				changed = true
				self.reindex()
			}
		case *IrExtractField:
			if ms, ok := self.defs[p.V].(*IrMakeStruct); ok && ms.T == p.T {
				self.substAll(map[Reg]Reg{p.R: ms.In[p.Idx]})
				bb.Ins = append(bb.Ins[:i], bb.Ins[i+1:]...)
				i--
				changed = true
				self.reindex()
			}
		}
	}
	return changed
}

/** Unconditional Branches **/

// chaseTrampoline follows a chain of argument-forwarding blocks to its
// final target, stopping on cycles.
func chaseTrampoline(bb *BasicBlock) (*BasicBlock, bool) {
	p := bb
	vis := make(map[int]bool)
	for p.isTrampoline() && !vis[p.Id] {
		vis[p.Id] = true
		p = p.Term.(*IrBranch).Ln.To
	}
	return p, p != bb
}

func (self *_CFGSimplifier) onBranch(bb *BasicBlock, t *IrBranch) bool {
	/* skip over trampoline blocks */
	if to, ok := chaseTrampoline(t.Ln.To); ok {
		old := t.Ln.To
		bb.SetTerm(&IrBranch{Ln: Edge{To: to, Args: regslicedup(t.Ln.Args)}})
		self.dropped(old)
		self.wl.push(bb)
		self.wl.push(old)
		self.wl.push(to)
		return true
	}

	/* merge a single-predecessor successor into this block */
	to := t.Ln.To
	if to != bb && to != self.cfg.Root && len(to.Pred) == 1 {
		self.merge(bb, t, to)
		return true
	}

	/* duplicate a small target to expose folds */
	if len(t.Ln.Args) != 0 && self.shouldThread(bb, t, to) {
		self.thread(bb, t, to)
		return true
	}
	return false
}

func (self *_CFGSimplifier) merge(bb *BasicBlock, t *IrBranch, to *BasicBlock) {
	m := make(map[Reg]Reg, len(to.Args))
	for i, r := range to.Args {
		m[r] = t.Ln.Args[i]
	}

	/* argument uses may appear anywhere the target dominated */
	self.substAll(m)

	/* splice the target into this block */
	to.unlink()
	bb.Ins = append(bb.Ins, to.Ins...)
	bb.SetTerm(to.Term)
	to.Ins, to.Term, to.Pred = nil, nil, nil

	self.wl.remove(to)
	self.wl.push(bb)
	for it := bb.Term.Successors(); it.Next(); {
		self.wl.push(it.Block())
	}
}

/** Jump Threading **/

type _Escape struct {
	r Reg
	t Type
}

// escapes lists the values defined by bb (arguments and results) that have
// uses outside of bb.
func (self *_CFGSimplifier) escapes(bb *BasicBlock) []_Escape {
	in := make(map[Reg]int)
	count := func(v IrNode) {
		for _, u := range usageSlots(v) {
			if !u.IsZero() {
				in[*u]++
			}
		}
	}
	for _, v := range bb.Ins {
		count(v)
	}
	count(bb.Term)

	ret := []_Escape(nil)
	for i, r := range bb.Args {
		if self.uses[r] > in[r] {
			ret = append(ret, _Escape{r, bb.Typs[i]})
		}
	}
	for _, v := range bb.Ins {
		for _, d := range definitionSlots(v) {
			if r := *d; !r.IsZero() && self.uses[r] > in[r] {
				ret = append(ret, _Escape{r, defType(v, r)})
			}
		}
	}
	return ret
}

// threadRebuildable reports whether escaped values of `to` can be repaired
// by SSA reconstruction: the target must end in a conditional or switch
// whose scrutinee is one of the substituted block arguments.
func threadRebuildable(to *BasicBlock) bool {
	switch p := to.Term.(type) {
	case *IrCondBr:
		return to.argIndex(p.V) >= 0
	case *IrSwitchEnum:
		return to.argIndex(p.V) >= 0
	default:
		return false
	}
}

// threadProfit gates threading on an actual simplification opportunity: a
// literal operand, or an operand that pins the target's switch.
func (self *_CFGSimplifier) threadProfit(t *IrBranch, to *BasicBlock) bool {
	for _, r := range t.Ln.Args {
		if _, ok := self.constint(r); ok {
			return true
		}
	}
	if p, ok := to.Term.(*IrSwitchEnum); ok {
		if i := to.argIndex(p.V); i >= 0 {
			if _, ok := self.defs[t.Ln.Args[i]].(*IrMakeEnum); ok {
				return true
			}
		}
	}
	return false
}

func usedIn(bb *BasicBlock, r Reg) bool {
	for _, v := range bb.Ins {
		for _, u := range usageSlots(v) {
			if *u == r {
				return true
			}
		}
	}
	for _, u := range usageSlots(bb.Term) {
		if *u == r {
			return true
		}
	}
	return false
}

func (self *_CFGSimplifier) shouldThread(bb *BasicBlock, t *IrBranch, to *BasicBlock) bool {
	if to == bb || to == self.cfg.Root || len(to.Ins) > _ThreadBudget {
		return false
	}
	if len(to.Pred) < 2 {
		return false
	}
	if _, ok := to.Term.(*IrReturn); ok {
		return false
	}
	if !self.threadProfit(t, to) {
		return false
	}

	/* escaped values must be reconstructible, typeable, and not already
	 * consumed by this block (a loop-carried use would need a join at the
	 * cloning site itself) */
	esc := self.escapes(to)
	if len(esc) == 0 {
		return true
	}
	if !threadRebuildable(to) {
		return false
	}
	for _, e := range esc {
		if e.t == nil || usedIn(bb, e.r) {
			return false
		}
	}
	return true
}

func (self *_CFGSimplifier) thread(bb *BasicBlock, t *IrBranch, to *BasicBlock) {
	esc := self.escapes(to)
	m := make(map[Reg]Reg, len(to.Args))
	for i, r := range to.Args {
		m[r] = t.Ln.Args[i]
	}

	/* clone the target body with fresh result registers */
	for _, v := range to.Ins {
		c := v.Clone()
		substRegs(usageSlots(c), m)
		for _, d := range definitionSlots(c) {
			if r := *d; !r.IsZero() {
				nr := self.cfg.CreateReg(r.Ptr())
				m[r] = nr
				*d = nr
			}
		}
		bb.Ins = append(bb.Ins, c)
	}

	/* rebuild the target terminator over the cloned values */
	nt := to.Term.Clone().(IrTerminator)
	substRegs(usageSlots(nt), m)
	bb.SetTerm(nt)

	/* repair every value that escaped the duplicated block */
	self.cfg.Rebuild()
	for _, e := range esc {
		self.restoreSSA(to, bb, e.r, m[e.r], e.t)
	}

	self.wl.push(bb)
	self.wl.push(to)
	for it := bb.Term.Successors(); it.Next(); {
		self.wl.push(it.Block())
	}
}

// restoreSSA merges the two competing definitions of r (the original in
// def, the clone value ar at the end of alt) by minimal join placement,
// then rewires every use outside the two defining blocks to the reaching
// definition.
func (self *_CFGSimplifier) restoreSSA(def *BasicBlock, alt *BasicBlock, r Reg, ar Reg, t Type) {
	vm := mkvaluemap(self.cfg, r.Zero())
	vm.defs[def.Id] = r
	vm.defs[alt.Id] = ar

	/* defining blocks hold a definition through block end, a join there
	 * would never be observed */
	pl := _PhiPlacer{cfg: self.cfg}
	marks := pl.place(map[int]*BasicBlock{def.Id: def, alt.Id: alt})
	delete(marks, def.Id)
	delete(marks, alt.Id)
	vm.insertArgs(t, marks)

	for _, x := range self.cfg.Blocks() {
		if x == def || x == alt {
			continue
		}
		if v := vm.lookupStart(x); v != r {
			x.substIns(map[Reg]Reg{r: v})
		}
	}
}

/** Conditional Branches **/

func (self *_CFGSimplifier) onCondBr(bb *BasicBlock, t *IrCondBr) bool {
	/* literal condition selects one side statically */
	if v, ok := self.constint(t.V); ok {
		live, dead := &t.Ln, &t.Br
		if v != 0 {
			live, dead = &t.Br, &t.Ln
		}
		dt := dead.To
		bb.SetTerm(&IrBranch{Ln: live.clone()})
		self.dropped(dt)
		self.wl.push(bb)
		self.wl.push(dt)
		return true
	}

	/* both sides converge with identical operands */
	if t.Br.To == t.Ln.To && regsliceeq(t.Br.Args, t.Ln.Args) {
		bb.SetTerm(&IrBranch{Ln: t.Ln.clone()})
		self.wl.push(bb)
		return true
	}

	/* an arm that lands on "unreachable" is never taken */
	brDead := t.Br.To.isUnreachableOnly()
	lnDead := t.Ln.To.isUnreachableOnly()
	if brDead || lnDead {
		br, ln := t.Br.To, t.Ln.To
		switch {
		case brDead && lnDead:
			self.retarget(bb, new(IrUnreachable), []*BasicBlock{br, ln})
			return true
		case brDead:
			bb.SetTerm(&IrBranch{Ln: t.Ln.clone()})
		default:
			bb.SetTerm(&IrBranch{Ln: t.Br.clone()})
		}
		self.dropped(br)
		self.dropped(ln)
		self.wl.push(bb)
		return true
	}

	/* skip over trampoline arms */
	nbr, okb := chaseTrampoline(t.Br.To)
	nln, okl := chaseTrampoline(t.Ln.To)
	if okb || okl {
		ob, ol := t.Br.To, t.Ln.To
		bb.SetTerm(&IrCondBr{
			V:  t.V,
			Br: Edge{To: nbr, Args: regslicedup(t.Br.Args)},
			Ln: Edge{To: nln, Args: regslicedup(t.Ln.Args)},
		})
		self.dropped(ob)
		self.dropped(ol)
		self.wl.push(bb)
		self.wl.push(ob)
		self.wl.push(ol)
		return true
	}
	return false
}

/** Tagged-Union Switches **/

func (self *_CFGSimplifier) onSwitch(bb *BasicBlock, t *IrSwitchEnum) bool {
	olds := []*BasicBlock(nil)
	for it := t.Successors(); it.Next(); {
		olds = append(olds, it.Block())
	}

	/* scrutinee constructed directly, the tag is known */
	if mk, ok := self.defs[t.V].(*IrMakeEnum); ok && mk.T == t.T {
		var e *Edge
		var args []Reg
		if e = t.Br[mk.Case]; e != nil {
			if t.PayloadArity(mk.Case) != 0 {
				args = append([]Reg{mk.V}, e.Args...)
			} else {
				args = regslicedup(e.Args)
			}
		} else {
			e = t.Ln
			assert(e != nil, "switch_enum on %s: case %d has no edge and no default", t.V, mk.Case)
			args = regslicedup(e.Args)
		}
		self.retarget(bb, &IrBranch{Ln: Edge{To: e.To, Args: args}}, olds)
		return true
	}

	/* count the arms that do not dead-end in "unreachable" */
	var live *Edge
	liveCase, nlive, ntotal := -1, 0, 0
	for _, c := range t.Cases() {
		ntotal++
		if e := t.Br[c]; !e.To.isUnreachableOnly() {
			live, liveCase = e, c
			nlive++
		}
	}
	if t.Ln != nil {
		ntotal++
		if !t.Ln.To.isUnreachableOnly() {
			live, liveCase = t.Ln, -1
			nlive++
		}
	}

	switch {
	case nlive == 0:
		self.retarget(bb, new(IrUnreachable), olds)
		return true

	case nlive == 1 && ntotal > 1:
		var args []Reg
		if liveCase >= 0 && t.PayloadArity(liveCase) != 0 {
			r := self.cfg.CreateRegOf(t.T.Cases[liveCase].Payload)
			bb.Ins = append(bb.Ins, &IrEnumData{R: r, V: t.V, T: t.T, Case: liveCase})
			args = append([]Reg{r}, live.Args...)
		} else {
			args = regslicedup(live.Args)
		}
		self.retarget(bb, &IrBranch{Ln: Edge{To: live.To, Args: args}}, olds)
		return true
	}
	return false
}

// retarget swaps in a rewritten terminator and re-enqueues everything the
// edge changes may have affected.
func (self *_CFGSimplifier) retarget(bb *BasicBlock, t IrTerminator, olds []*BasicBlock) {
	bb.SetTerm(t)
	for _, o := range olds {
		self.dropped(o)
		self.wl.push(o)
	}
	if _, ok := t.(*IrUnreachable); ok {
		for _, p := range bb.Pred {
			self.wl.push(p)
		}
	}
	self.wl.push(bb)
}

/** Unreachable Tails **/

// foldNoReturn truncates a block right after a call that never comes back:
// nothing past the call can execute, so the tail and the terminator fold to
// "unreachable", severing the block's outgoing edges.
func (self *_CFGSimplifier) foldNoReturn(bb *BasicBlock) bool {
	at := -1
	for i, v := range bb.Ins {
		if p, ok := v.(*IrCall); ok && p.Fn.NoReturn {
			at = i
			break
		}
	}
	if at < 0 {
		return false
	}
	if _, ok := bb.Term.(*IrUnreachable); ok && at == len(bb.Ins)-1 {
		return false
	}

	olds := []*BasicBlock(nil)
	for it := bb.Term.Successors(); it.Next(); {
		olds = append(olds, it.Block())
	}
	bb.Ins = bb.Ins[:at+1]
	self.retarget(bb, new(IrUnreachable), olds)
	return true
}

func (self *_CFGSimplifier) onUnreachable(bb *BasicBlock) bool {
	i := len(bb.Ins)
	for i > 0 {
		v := bb.Ins[i-1]
		if _, impure := v.(IrImpure); impure {
			if _, ok := v.(IrElidable); !ok {
				break
			}
		}
		i--
	}
	if i == len(bb.Ins) {
		return false
	}
	bb.Ins = bb.Ins[:i]

	/* a block reduced to bare "unreachable" may let its predecessors fold */
	if len(bb.Ins) == 0 {
		for _, p := range bb.Pred {
			self.wl.push(p)
		}
	}
	return true
}

/** Block Arguments **/

func (self *_CFGSimplifier) cleanArgs(bb *BasicBlock) bool {
	if bb == self.cfg.Root || len(bb.Args) == 0 {
		return false
	}
	for i := len(bb.Args) - 1; i >= 0; i-- {
		if self.uses[bb.Args[i]] == 0 && self.dropArg(bb, i) {
			return true
		}
	}
	return self.narrowArg(bb)
}

// edgesInto invokes fn for every edge of t targeting bb, passing the
// number of implicit leading operands the edge binds (the payload of a
// switch case edge).
func edgesInto(t IrTerminator, bb *BasicBlock, fn func(e *Edge, off int)) {
	switch p := t.(type) {
	case *IrBranch:
		if p.Ln.To == bb {
			fn(&p.Ln, 0)
		}
	case *IrCondBr:
		if p.Br.To == bb {
			fn(&p.Br, 0)
		}
		if p.Ln.To == bb {
			fn(&p.Ln, 0)
		}
	case *IrSwitchEnum:
		for _, c := range p.Cases() {
			if e := p.Br[c]; e.To == bb {
				fn(e, p.PayloadArity(c))
			}
		}
		if p.Ln != nil && p.Ln.To == bb {
			fn(p.Ln, 0)
		}
	}
}

// dropArg deletes the unused i-th argument of bb along with the matching
// operand on every incoming edge.
func (self *_CFGSimplifier) dropArg(bb *BasicBlock, i int) bool {
	/* the implicit payload operand of a switch case edge has no slot to
	 * remove, leave such arguments alone */
	blocked := false
	for _, p := range bb.Pred {
		edgesInto(p.Term, bb, func(e *Edge, off int) {
			if i < off {
				blocked = true
			}
		})
	}
	if blocked {
		return false
	}

	done := make(map[int]bool, len(bb.Pred))
	prev := append([]*BasicBlock(nil), bb.Pred...)
	for _, p := range prev {
		if done[p.Id] {
			continue
		}
		done[p.Id] = true
		nt := p.Term.Clone().(IrTerminator)
		edgesInto(nt, bb, func(e *Edge, off int) {
			e.Args = append(e.Args[:i-off], e.Args[i-off+1:]...)
		})
		p.SetTerm(nt)
		self.wl.push(p)
	}
	bb.Args = append(bb.Args[:i], bb.Args[i+1:]...)
	bb.Typs = append(bb.Typs[:i], bb.Typs[i+1:]...)
	return true
}

// narrowArg rewrites a block argument whose only use is a field extraction
// into an argument of the field's type, when every incoming edge supplies a
// direct struct construction.
func (self *_CFGSimplifier) narrowArg(bb *BasicBlock) bool {
	for i, r := range bb.Args {
		if self.uses[r] != 1 {
			continue
		}
		ex, exbb, exidx := self.findExtract(r)
		if ex == nil {
			continue
		}

		/* every incoming edge must carry a matching make_struct result */
		ok := true
		for _, p := range bb.Pred {
			edgesInto(p.Term, bb, func(e *Edge, off int) {
				if i < off {
					ok = false
					return
				}
				ms, hit := self.defs[e.Args[i-off]].(*IrMakeStruct)
				if !hit || ms.T != ex.T {
					ok = false
				}
			})
		}
		if !ok {
			continue
		}

		/* forward the field through each edge */
		done := make(map[int]bool, len(bb.Pred))
		prev := append([]*BasicBlock(nil), bb.Pred...)
		for _, p := range prev {
			if done[p.Id] {
				continue
			}
			done[p.Id] = true
			nt := p.Term.Clone().(IrTerminator)
			edgesInto(nt, bb, func(e *Edge, off int) {
				ms := self.defs[e.Args[i-off]].(*IrMakeStruct)
				e.Args[i-off] = ms.In[ex.Idx]
			})
			p.SetTerm(nt)
			self.wl.push(p)
		}

		/* retype the argument and delete the extraction */
		ft := ex.T.Fields[ex.Idx]
		nr := self.cfg.CreateRegOf(ft)
		bb.Args[i] = nr
		bb.Typs[i] = ft
		exbb.Ins = append(exbb.Ins[:exidx], exbb.Ins[exidx+1:]...)
		self.substAll(map[Reg]Reg{ex.R: nr})
		self.wl.push(exbb)
		return true
	}
	return false
}

func (self *_CFGSimplifier) findExtract(r Reg) (ret *IrExtractField, host *BasicBlock, idx int) {
	self.cfg.PostOrder(func(bb *BasicBlock) {
		for i, v := range bb.Ins {
			if ex, ok := v.(*IrExtractField); ok && ex.V == r {
				ret, host, idx = ex, bb, i
			}
		}
	})
	return
}

/** Dead Edge Bookkeeping **/

// dropped handles a block that just lost an incoming edge: once detached
// it is taken off the worklist and its region is reported as unreachable
// source code.
func (self *_CFGSimplifier) dropped(bb *BasicBlock) {
	if bb != self.cfg.Root && len(bb.Pred) == 0 {
		self.cfg.reportDeadRegion(bb)
		self.wl.remove(bb)
	}
}
