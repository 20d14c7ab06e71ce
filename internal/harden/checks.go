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

// CheckInserter is C6. It runs once the module's protected bodies are
// fully duplicated (C5) and their calls rewritten (C7, folded into the
// same walk), splitting a verification block in front of every
// synchronization point selected by Config.Mode and emitting the
// per-operand comparisons of §4.6.
type CheckInserter struct{}

func (p *CheckInserter) Apply(mod *ir.Module, st *State) error {
	for _, fd := range st.FuncDup {
		insertChecksForFunc(mod, fd, st)
	}
	return nil
}

func insertChecksForFunc(mod *ir.Module, fd *ir.Function, st *State) {
	doStores, doCalls, doBranches := st.Config.Mode.SyncPoints()
	multiOnly := st.Config.Mode.MultiPredOnly()
	rm := ir.BuildReachabilityMatrix(fd)

	for _, bb0 := range append([]*ir.BasicBlock{}, fd.Blocks...) {
		if multiOnly && len(bb0.Pred) < 2 {
			continue
		}
		cur := bb0
		for _, ins := range append([]ir.Instruction{}, bb0.Ins...) {
			var wantCheck bool
			switch ins.(type) {
			case *ir.Store:
				wantCheck = doStores
			case *ir.Call:
				wantCheck = doCalls
			}
			if !wantCheck {
				continue
			}
			cur = insertCheckBefore(mod, fd, cur, ins, rm, st)
		}
		if doBranches {
			insertCheckBeforeTerminator(mod, fd, cur, rm, st)
		}
	}
}

// insertCheckBefore splits curBlock immediately before ins, splices a
// verification block between the split halves, and returns the new
// block that now holds ins onward (so a caller walking several sync
// points within what was originally one block keeps splitting forward
// from the right place).
func insertCheckBefore(mod *ir.Module, fd *ir.Function, curBlock *ir.BasicBlock, ins ir.Instruction, rm *ir.ReachabilityMatrix, st *State) *ir.BasicBlock {
	idx := curBlock.Index(ins)
	c := ir.SplitBlock(curBlock, idx)
	v := ir.InsertEmptyBlock(curBlock, c, fd)
	wireVerification(mod, fd, v, c, ins.Usages(), rm, st)
	return c
}

// insertCheckBeforeTerminator does the same thing for a conditional
// terminator's own operand (CondBr.Cond, Switch.Val), splitting at the
// end of curBlock's instruction list.
func insertCheckBeforeTerminator(mod *ir.Module, fd *ir.Function, curBlock *ir.BasicBlock, rm *ir.ReachabilityMatrix, st *State) {
	var slots []*ir.Value
	switch t := curBlock.Term.(type) {
	case *ir.CondBr:
		slots = []*ir.Value{&t.Cond}
	case *ir.Switch:
		slots = []*ir.Value{&t.Val}
	default:
		return
	}
	idx := len(curBlock.Ins)
	c := ir.SplitBlock(curBlock, idx)
	v := ir.InsertEmptyBlock(curBlock, c, fd)
	wireVerification(mod, fd, v, c, slots, rm, st)
}

// wireVerification emits, inside v, a comparison for every operand slot
// that has a registered duplicate, ANDs them together, and branches to
// c on agreement or to a fresh error-block clone on mismatch. With no
// comparisons produced it falls back to an unconditional branch to c,
// per §4.6 step 5.
func wireVerification(mod *ir.Module, fd *ir.Function, v, c *ir.BasicBlock, slots []*ir.Value, rm *ir.ReachabilityMatrix, st *State) {
	// v and c were created by the split just before this call, after rm
	// was built; rebuild it so the pointer gate can query from c.
	rm = ir.BuildReachabilityMatrix(fd)

	var cmps []ir.Value
	for _, slot := range slots {
		if cmp := buildComparison(v, c, *slot, rm, st); cmp != nil {
			cmps = append(cmps, cmp)
		}
	}

	if len(cmps) == 0 {
		v.Term = &ir.Br{Target: c}
		return
	}

	and := cmps[0]
	for _, cm := range cmps[1:] {
		bo := &ir.BinOp{Op: ir.BinAnd, Typ: ir.I1, X: and, Y: cm}
		v.Append(bo)
		and = bo
	}

	errBlock := errBlockForEdge(mod, fd, c.String(), st)
	v.Term = &ir.CondBr{Cond: and, True: c, False: errBlock}
	errBlock.Pred = append(errBlock.Pred, v)
}

// buildComparison emits the comparison for one operand, per §4.6 step 3,
// returning nil if the operand has no duplicate or (for a pointer) the
// check is elided as provably redundant.
func buildComparison(v, c *ir.BasicBlock, orig ir.Value, rm *ir.ReachabilityMatrix, st *State) ir.Value {
	dup, ok := st.Dups.Get(orig)
	if !ok || dup == orig {
		return nil
	}

	switch t := orig.ValueType().(type) {
	case ir.FloatType:
		cmp := &ir.Cmp{Pred: ir.CmpEq, Float: true, X: orig, Y: dup}
		v.Append(cmp)
		return cmp

	case ir.PointerType:
		if !pointerCheckWorthwhile(c, orig, rm) {
			return nil
		}
		loadOrig := &ir.Load{Addr: orig, Elem: t.Elem}
		loadDup := &ir.Load{Addr: dup, Elem: t.Elem}
		v.Append(loadOrig)
		v.Append(loadDup)
		cmp := &ir.Cmp{Pred: ir.CmpEq, X: loadOrig, Y: loadDup}
		v.Append(cmp)
		return cmp

	case ir.ArrayType:
		return buildArrayComparison(v, orig, dup, t, st)

	default:
		cmp := &ir.Cmp{Pred: ir.CmpEq, X: orig, Y: dup}
		v.Append(cmp)
		return cmp
	}
}

// pointerCheckWorthwhile implements §4.6 step 3's pointer elision rule:
// skip the check unless the pointer (after stripping no-op casts) is
// used by a store reachable from c along forward edges — otherwise the
// two copies are provably the same address and comparing the pointers
// themselves would be vacuous.
func pointerCheckWorthwhile(c *ir.BasicBlock, ptr ir.Value, rm *ir.ReachabilityMatrix) bool {
	base := ir.StripNoopCasts(ptr)
	for _, bb := range c.Func.Blocks {
		if !rm.CanReach(c, bb) {
			continue
		}
		for _, ins := range bb.Ins {
			s, ok := ins.(*ir.Store)
			if !ok {
				continue
			}
			if ir.StripNoopCasts(s.Addr) == base {
				return true
			}
		}
	}
	return false
}

// buildArrayComparison emits an elementwise comparison over a
// non-aggregate-element array, registering each extracted scalar in D
// per §4.6 step 3's array case.
func buildArrayComparison(v *ir.BasicBlock, orig, dup ir.Value, t ir.ArrayType, st *State) ir.Value {
	var and ir.Value
	for i := 0; i < t.Len; i++ {
		idx := []ir.Value{ir.ConstInt{Typ: ir.I64, V: int64(i)}}
		gOrig := &ir.GEP{Base: orig, Elem: t.Elem, Indices: idx}
		gDup := &ir.GEP{Base: dup, Elem: t.Elem, Indices: idx}
		v.Append(gOrig)
		v.Append(gDup)
		lOrig := &ir.Load{Addr: gOrig, Elem: t.Elem}
		lDup := &ir.Load{Addr: gDup, Elem: t.Elem}
		v.Append(lOrig)
		v.Append(lDup)
		st.Dups.Add(ir.Value(lOrig), ir.Value(lDup))

		_, isFloat := t.Elem.(ir.FloatType)
		cmp := &ir.Cmp{Pred: ir.CmpEq, Float: isFloat, X: lOrig, Y: lDup}
		v.Append(cmp)

		if and == nil {
			and = cmp
			continue
		}
		bo := &ir.BinOp{Op: ir.BinAnd, Typ: ir.I1, X: and, Y: cmp}
		v.Append(bo)
		and = bo
	}
	return and
}
