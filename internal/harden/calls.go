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

// rewriteCall is C7, invoked by InstructionDuplicator (C5) on every call
// site inside a protected body. It implements the four cases of §4.7, in
// order: duplication-worthy callees are cloned outright; calls to a
// HardenFns member with a registered "_dup" sibling are redirected to its "_dup"
// sibling with a doubled argument list; indirect calls get a
// synthesized doubled-arity function type and a bitcast callee; every
// other call is left intact but followed by refresh loads/stores for any
// pointer argument that has a duplicate, since the callee may have
// mutated through it.
func rewriteCall(mod *ir.Module, fd *ir.Function, bb *ir.BasicBlock, call *ir.Call, st *State, d *DuplicateMap) {
	switch {
	case isDuplicationWorthyCall(mod, call):
		cloneDuplicationWorthyCall(bb, call, d)
	case call.Target.Direct != nil && st.FuncDup[call.Target.Direct] != nil:
		redirectToDup(bb, call, st.FuncDup[call.Target.Direct], st, d)
	case call.Target.Direct == nil:
		redirectIndirect(bb, call, st, d)
	default:
		refreshAfterExternalCall(bb, call, d)
	}
}

func isDuplicationWorthyCall(mod *ir.Module, call *ir.Call) bool {
	if call.Target.Direct == nil {
		return false
	}
	if mod.Annotations.ResolvedFuncs[call.Target.Direct] == ir.AnnotateToDuplicate {
		return true
	}
	return ir.IsDuplicationWorthyIntrinsic(call.Target.Direct.Name)
}

func cloneDuplicationWorthyCall(bb *ir.BasicBlock, call *ir.Call, d *DuplicateMap) {
	clone := call.Clone().(*ir.Call)
	rewriteOperands(clone, d)
	bb.InsertAfter(call, clone)
	d.Add(ir.Value(call), ir.Value(clone))
}

// redirectToDup rewrites call in place to target dup, doubling the
// argument vector per Config.AlternateMemMap — interleaved a1,a1',a2,a2'
// or segregated a1..an,a1'..an' — the same convention GlobalDuplicator
// and buildFuncDup use for layout.
func redirectToDup(bb *ir.BasicBlock, call *ir.Call, dup *ir.Function, st *State, d *DuplicateMap) {
	origArgs := call.Args
	dupArgs := make([]ir.Value, len(origArgs))
	for i, a := range origArgs {
		if dv, ok := d.Get(a); ok {
			dupArgs[i] = dv
		} else {
			dupArgs[i] = a
		}
	}

	var newArgs []ir.Value
	if st.Config.AlternateMemMap {
		for i := range origArgs {
			newArgs = append(newArgs, origArgs[i], dupArgs[i])
		}
	} else {
		newArgs = append(newArgs, origArgs...)
		newArgs = append(newArgs, dupArgs...)
	}

	call.Target = ir.CallTarget{Direct: dup}
	call.Args = newArgs
}

// redirectIndirect synthesizes a doubled-arity function type for an
// indirect callee, bitcasts the pointer to it, and doubles the argument
// vector the same way redirectToDup does for direct calls.
func redirectIndirect(bb *ir.BasicBlock, call *ir.Call, st *State, d *DuplicateMap) {
	origArgs := call.Args
	dupArgs := make([]ir.Value, len(origArgs))
	for i, a := range origArgs {
		if dv, ok := d.Get(a); ok {
			dupArgs[i] = dv
		} else {
			dupArgs[i] = a
		}
	}

	var newArgs []ir.Value
	var argTypes []ir.Type
	if st.Config.AlternateMemMap {
		for i := range origArgs {
			newArgs = append(newArgs, origArgs[i], dupArgs[i])
			argTypes = append(argTypes, origArgs[i].ValueType(), dupArgs[i].ValueType())
		}
	} else {
		newArgs = append(newArgs, origArgs...)
		newArgs = append(newArgs, dupArgs...)
		for _, a := range origArgs {
			argTypes = append(argTypes, a.ValueType())
		}
		for _, a := range dupArgs {
			argTypes = append(argTypes, a.ValueType())
		}
	}

	fnType := ir.FuncType{Params: argTypes, Ret: call.Typ}
	cast := &ir.Cast{Op: ir.CastBitcast, To: ir.PointerType{Elem: fnType}, X: call.Target.Indirect}
	bb.InsertBefore(call, cast)

	call.Target = ir.CallTarget{Indirect: cast}
	call.Args = newArgs
}

// refreshAfterExternalCall is case 4: the callee isn't being duplicated
// at all (external or excluded), so after the call, for every pointer
// argument that has a duplicate, reload the (possibly callee-mutated)
// original and store it back into the duplicate slot to keep the two
// copies in agreement.
func refreshAfterExternalCall(bb *ir.BasicBlock, call *ir.Call, d *DuplicateMap) {
	insertAfter := ir.Instruction(call)
	for _, a := range call.Args {
		ptrTy, ok := a.ValueType().(ir.PointerType)
		if !ok {
			continue
		}
		dup, ok := d.Get(a)
		if !ok {
			continue
		}
		tmp := &ir.Load{Addr: a, Elem: ptrTy.Elem}
		refresh := &ir.Store{Val: tmp, Addr: dup}
		bb.InsertAfter(insertAfter, tmp)
		bb.InsertAfter(tmp, refresh)
		insertAfter = refresh
	}
}
