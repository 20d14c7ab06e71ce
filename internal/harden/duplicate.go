/*
 * Copyright 2024 The EDDI Project Authors
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

package harden

import "github.com/sword-hardening/eddi/internal/ir"

// InstructionDuplicator is C5. For every function in HardenFns it builds
// a "_dup" sibling function — params doubled per Config.AlternateMemMap,
// the out-parameter pair left by ReturnByReferenceRewrite (C3) carried
// through unchanged at the tail — structurally identical to the
// original body, then walks that sibling's own blocks in program order
// duplicating every instruction not yet present in D, exactly as
// described by spec §4.5. The original function is left untouched;
// CallRewriter (C7) is what makes callers actually reach the sibling.
type InstructionDuplicator struct{}

func (p *InstructionDuplicator) Apply(mod *ir.Module, st *State) error {
	var fns []*ir.Function
	for f := range st.Sets.HardenFns {
		if !f.IsDeclaration() {
			fns = append(fns, f)
		}
	}

	// Every sibling's skeleton is built and registered in FuncDup before
	// any body is walked, so a call to a protected function (including a
	// recursive call) resolves to its "_dup" sibling in any walk order.
	for _, f := range fns {
		st.FuncDup[f] = buildFuncDup(f, st, st.Dups)
	}

	compute := func(f *ir.Function, d *DuplicateMap) any {
		fd := st.FuncDup[f]
		duplicateBody(mod, fd, st, d)
		return fd
	}
	commit := func(f *ir.Function, result any) {
		fd := result.(*ir.Function)
		mod.AddFunc(fd)
		st.Report.recordDuplicated(f.Name)
		if err := st.Advance(f, StateBodyDuplicated); err != nil {
			st.Diags.Add(err)
		}
	}
	runPerFunction(st, fns, compute, commit)
	return nil
}

// buildFuncDup constructs the skeleton of f's "_dup" sibling: its own
// fresh blocks, phis, and instructions mirroring f's one-for-one, with
// the parameter list doubled. The skeleton is not yet duplicated in the
// C5 sense — that happens in duplicateBody, which walks the skeleton's
// own instructions the same way it would walk any other protected body.
func buildFuncDup(f *ir.Function, st *State, d *DuplicateMap) *ir.Function {
	fd := &ir.Function{
		Name:     f.Name + "_dup",
		Ret:      f.Ret,
		Linkage:  f.Linkage,
		Variadic: f.Variadic,
	}

	bodyParams := f.Params
	var outOrig, outDup *ir.Param
	if hasOutParams(f) {
		n := len(f.Params)
		outOrig, outDup = f.Params[n-2], f.Params[n-1]
		bodyParams = f.Params[:n-2]
	}

	valmap := make(map[ir.Value]ir.Value)
	origCopies := make([]*ir.Param, len(bodyParams))
	dupCopies := make([]*ir.Param, len(bodyParams))
	for i, p := range bodyParams {
		orig := &ir.Param{Name: p.Name, Typ: p.Typ}
		dup := &ir.Param{Name: p.Name + "_dup", Typ: p.Typ}
		valmap[p] = orig
		d.Add(orig, dup)
		origCopies[i] = orig
		dupCopies[i] = dup
	}

	var params []*ir.Param
	if st.Config.AlternateMemMap {
		for i := range origCopies {
			params = append(params, origCopies[i], dupCopies[i])
		}
	} else {
		params = append(params, origCopies...)
		params = append(params, dupCopies...)
	}
	if outOrig != nil {
		newOutOrig := &ir.Param{Name: outOrig.Name, Typ: outOrig.Typ}
		newOutDup := &ir.Param{Name: outDup.Name, Typ: outDup.Typ}
		valmap[outOrig] = newOutOrig
		valmap[outDup] = newOutDup
		d.Add(newOutOrig, newOutDup)
		params = append(params, newOutOrig, newOutDup)
	}
	fd.Params = params

	cloneSkeleton(f, fd, valmap)
	return fd
}

// cloneSkeleton copies f's block graph into fd one-for-one: same number
// of blocks, phis, and instructions, operands rewritten through valmap
// (params plus, after the first pass, every instruction/phi's own
// clone). It performs no EDDI duplication of its own.
func cloneSkeleton(f, fd *ir.Function, valmap map[ir.Value]ir.Value) {
	blockMap := make(map[*ir.BasicBlock]*ir.BasicBlock, len(f.Blocks))
	for _, bb := range f.Blocks {
		nb := &ir.BasicBlock{ID: bb.ID}
		fd.AddBlock(nb)
		blockMap[bb] = nb
		if bb == f.Entry {
			fd.Entry = nb
		}
	}

	for _, bb := range f.Blocks {
		nb := blockMap[bb]
		for _, old := range bb.Phis {
			np := &ir.Phi{Typ: old.Typ, Incoming: make(map[*ir.BasicBlock]*ir.Value, len(old.Incoming))}
			nb.Phis = append(nb.Phis, np)
			valmap[old] = np
		}
		for _, old := range bb.Ins {
			nu := shallowCopyInst(old)
			nb.Append(nu)
			valmap[old] = nu
		}
	}

	for _, bb := range f.Blocks {
		nb := blockMap[bb]
		for i, old := range bb.Phis {
			np := nb.Phis[i]
			for predBB, v := range old.Incoming {
				nv := remapValue(*v, valmap)
				np.Incoming[blockMap[predBB]] = &nv
			}
		}
		for i := range bb.Ins {
			nu := nb.Ins[i]
			for _, slot := range nu.Usages() {
				*slot = remapValue(*slot, valmap)
			}
		}
		nb.Term = shallowCopyTerm(bb.Term, blockMap)
		for _, slot := range nb.Term.Usages() {
			*slot = remapValue(*slot, valmap)
		}
	}

	for _, bb := range f.Blocks {
		nb := blockMap[bb]
		for _, pr := range bb.Pred {
			nb.Pred = append(nb.Pred, blockMap[pr])
		}
	}
}

func remapValue(v ir.Value, valmap map[ir.Value]ir.Value) ir.Value {
	if nv, ok := valmap[v]; ok {
		return nv
	}
	return v
}

// shallowCopyInst produces a structurally fresh instruction with the
// same operand values as old (to be rewritten to fd-local values by the
// caller's second pass). Alloca is special-cased so the skeleton copy
// keeps the original name instead of acquiring the "_dup" suffix that
// ir.Alloca.Clone applies for EDDI duplication proper.
func shallowCopyInst(old ir.Instruction) ir.Instruction {
	if a, ok := old.(*ir.Alloca); ok {
		return &ir.Alloca{Elem: a.Elem, Name: a.Name}
	}
	return old.(ir.Cloner).Clone()
}

func shallowCopyTerm(old ir.Terminator, blockMap map[*ir.BasicBlock]*ir.BasicBlock) ir.Terminator {
	switch t := old.(type) {
	case *ir.Br:
		return &ir.Br{Target: blockMap[t.Target]}
	case *ir.CondBr:
		return &ir.CondBr{Cond: t.Cond, True: blockMap[t.True], False: blockMap[t.False]}
	case *ir.Switch:
		cases := make(map[int64]*ir.BasicBlock, len(t.Cases))
		for k, b := range t.Cases {
			cases[k] = blockMap[b]
		}
		return &ir.Switch{Val: t.Val, Default: blockMap[t.Default], Cases: cases}
	case *ir.Ret:
		return &ir.Ret{Val: t.Val}
	case *ir.IndirectBr:
		targets := make([]*ir.BasicBlock, len(t.Targets))
		for i, b := range t.Targets {
			targets[i] = blockMap[b]
		}
		return &ir.IndirectBr{Addr: t.Addr, Targets: targets}
	default:
		panic("harden: unknown terminator kind in cloneSkeleton")
	}
}

// rewriteOperand looks up v's duplicate in dups; a constant-expression
// GEP over a protected base is special-cased, per spec §4.5, into a
// fresh ConstGEP over the base's duplicate rather than requiring the
// whole ConstGEP value to be pre-registered in D.
func rewriteOperand(v ir.Value, dups *DuplicateMap) ir.Value {
	if dup, ok := dups.Get(v); ok {
		return dup
	}
	if cg, ok := v.(ir.ConstGEP); ok {
		if dupBase, ok2 := dups.Get(cg.Base); ok2 {
			if dc, ok3 := dupBase.(ir.Constant); ok3 {
				return ir.ConstGEP{Base: dc, Elem: cg.Elem, Indices: cg.Indices}
			}
		}
	}
	return v
}

func rewriteOperands(ins ir.Instruction, dups *DuplicateMap) {
	for _, slot := range ins.Usages() {
		*slot = rewriteOperand(*slot, dups)
	}
}

// duplicateAlloca implements §4.5's alloca case: landing-pad slots are
// never cloned; otherwise the clone is placed immediately after the
// original (interleaved layout) or appended to the entry block's alloca
// prefix (segregated layout), matching the placement convention
// GlobalDuplicator already uses for module-level storage.
func duplicateAlloca(fd *ir.Function, bb *ir.BasicBlock, a *ir.Alloca, st *State, d *DuplicateMap) {
	if isLandingPadSlot(bb, a) {
		return
	}
	clone := &ir.Alloca{Elem: a.Elem, Name: a.Name + "_dup"}
	if st.Config.AlternateMemMap {
		bb.InsertAfter(a, clone)
	} else {
		insertAtAllocaPrefixEnd(fd.Entry, clone)
	}
	d.Add(ir.Value(a), ir.Value(clone))
}

func isLandingPadSlot(bb *ir.BasicBlock, a *ir.Alloca) bool {
	for _, ins := range bb.Ins {
		s, ok := ins.(*ir.Store)
		if !ok || s.Addr != ir.Value(a) {
			continue
		}
		if call, ok := s.Val.(*ir.Call); ok && call.Target.Direct != nil && call.Target.Direct.Name == "__cxa_begin_catch" {
			return true
		}
	}
	return false
}

func insertAtAllocaPrefixEnd(entry *ir.BasicBlock, clone *ir.Alloca) {
	var last ir.Instruction
	for _, ins := range entry.Ins {
		if _, ok := ins.(*ir.Alloca); !ok {
			break
		}
		last = ins
	}
	switch {
	case last != nil:
		entry.InsertAfter(last, clone)
	case len(entry.Ins) > 0:
		entry.InsertBefore(entry.Ins[0], clone)
	default:
		entry.Append(clone)
	}
}

// duplicatePure clones a pure-computation instruction (binop, unop, cmp,
// gep, select, cast, load) right after the original and rewrites its
// operands through D, per §4.5.
func duplicatePure(bb *ir.BasicBlock, ins ir.Instruction, d *DuplicateMap) {
	clone := ins.(ir.Cloner).Clone()
	rewriteOperands(clone, d)
	bb.InsertAfter(ins, clone)
	d.Add(ir.Value(ins), ir.Value(clone))
}

// duplicateStoreLike handles store/atomic-rmw/cmpxchg: clone, rewrite
// operands, and if the rewritten clone turns out bit-identical to the
// original (no protected operand touched it), delete it and skip the D
// entry — the §4.5/§8-S6 trivial-duplication elision rule.
func duplicateStoreLike(bb *ir.BasicBlock, ins ir.Instruction, d *DuplicateMap) {
	clone := ins.(ir.Cloner).Clone()
	rewriteOperands(clone, d)
	bb.InsertAfter(ins, clone)
	if ir.Identical(ins, clone) {
		bb.Remove(clone)
		return
	}
	d.Add(ir.Value(ins), ir.Value(clone))
}

func duplicateIntrinsic(bb *ir.BasicBlock, ins *ir.Intrinsic, d *DuplicateMap) {
	clone := ins.Clone()
	rewriteOperands(clone, d)
	bb.InsertAfter(ins, clone)
	d.Add(ir.Value(ins), ir.Value(clone))
}

// duplicateBody walks fd's own blocks — already a plain skeleton copy of
// the original body — and duplicates every instruction not yet present
// in D, then every phi (phis run last since a loop-carried incoming
// value may only acquire its duplicate partway through the instruction
// walk). This assumes fd.Blocks is already close enough to topological
// order for operand duplicates to exist by the time they're needed,
// true of any IR built by straight-line emission with back-edges only
// through phis — exactly the shape a front end produces.
func duplicateBody(mod *ir.Module, fd *ir.Function, st *State, d *DuplicateMap) {
	for _, bb := range fd.Blocks {
		for _, ins := range append([]ir.Instruction{}, bb.Ins...) {
			duplicateInst(mod, fd, bb, ins, st, d)
		}
	}
	for _, bb := range fd.Blocks {
		for _, p := range append([]*ir.Phi{}, bb.Phis...) {
			duplicatePhi(bb, p, d)
		}
	}
}

func duplicateInst(mod *ir.Module, fd *ir.Function, bb *ir.BasicBlock, ins ir.Instruction, st *State, d *DuplicateMap) {
	if d.Has(ir.Value(ins)) {
		return
	}
	switch x := ins.(type) {
	case *ir.Alloca:
		duplicateAlloca(fd, bb, x, st, d)
	case *ir.Store:
		duplicateStoreLike(bb, x, d)
	case *ir.AtomicRMW:
		duplicateStoreLike(bb, x, d)
	case *ir.CmpXchg:
		duplicateStoreLike(bb, x, d)
	case *ir.Call:
		rewriteCall(mod, fd, bb, x, st, d)
	case *ir.Intrinsic:
		duplicateIntrinsic(bb, x, d)
	default:
		duplicatePure(bb, ins, d)
	}
}

// duplicatePhi clones p and appends the clone to bb's phi list directly
// — a plain slice append, since Phis carries no block back-pointer of
// its own to maintain.
func duplicatePhi(bb *ir.BasicBlock, p *ir.Phi, d *DuplicateMap) {
	if d.Has(ir.Value(p)) {
		return
	}
	np := p.Clone().(*ir.Phi)
	for predBB, v := range np.Incoming {
		nv := rewriteOperand(*v, d)
		np.Incoming[predBB] = &nv
	}
	bb.Phis = append(bb.Phis, np)
	d.Add(ir.Value(p), ir.Value(np))
}
