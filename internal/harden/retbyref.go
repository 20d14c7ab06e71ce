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

// ReturnByReferenceRewrite is C3: every HardenFns member keeps its
// original parameter list but trades a non-void return type for two
// trailing pointer-to-T out-parameters, so InstructionDuplicator (C5)
// only ever has to deal with void-returning protected bodies. Every
// call site anywhere in the module — protected caller or not — is
// patched to match the new ABI, since the callee's signature changed
// unconditionally.
//
// A single store to the primary out-parameter is emitted per return;
// the mirrored store to the duplicate out-parameter is left for C5 to
// produce when it walks the body, the same way it produces every other
// protected store's duplicate — registering (outOrig, outDup) in D here
// is what makes that walk see the pair as already related.
type ReturnByReferenceRewrite struct{}

func (p *ReturnByReferenceRewrite) Apply(mod *ir.Module, st *State) error {
	for f := range st.Sets.HardenFns {
		if f.IsDeclaration() {
			continue
		}
		if !ir.Void(f.Ret) {
			rewriteReturns(f, st)
		}
		if err := st.Advance(f, StateSignaturesRewritten); err != nil {
			st.Diags.Add(err)
		}
	}

	// Call-site ABI fixup runs over every function in the module, not
	// just HardenFns, since an unprotected function may still call a
	// protected one.
	for callee := range st.Sets.HardenFns {
		if callee.IsDeclaration() || !hasOutParams(callee) {
			continue
		}
		fixupCallSites(mod, callee, st)
	}
	return nil
}

// hasOutParams reports whether f already went through rewriteReturns —
// i.e. it originally returned non-void and now carries the trailing
// ret_orig/ret_dup pair.
func hasOutParams(f *ir.Function) bool {
	n := len(f.Params)
	return n >= 2 && f.Params[n-2].Name == "ret_orig" && f.Params[n-1].Name == "ret_dup"
}

// rewriteReturns mutates f in place: appends the two out-parameters,
// flips Ret to void, and rewrites every `return e` into a store to the
// primary out-parameter followed by a void return.
func rewriteReturns(f *ir.Function, st *State) {
	retType := f.Ret
	outOrig := &ir.Param{Name: "ret_orig", Typ: ir.PointerType{Elem: retType}}
	outDup := &ir.Param{Name: "ret_dup", Typ: ir.PointerType{Elem: retType}}
	f.Params = append(f.Params, outOrig, outDup)
	f.Ret = ir.VoidType{}
	st.Dups.Add(outOrig, outDup)

	for _, bb := range f.Blocks {
		ret, ok := bb.Term.(*ir.Ret)
		if !ok || ret.Val == nil {
			continue
		}
		bb.Append(&ir.Store{Val: ret.Val, Addr: outOrig})
		bb.Term = &ir.Ret{Val: nil}
	}
}

// fixupCallSites rewrites every call to callee found anywhere in mod:
// two stack slots are allocated ahead of the call, passed as the
// trailing arguments, and the call's former result value (now produced
// through a load from the first slot) replaces every use of the old
// call value.
func fixupCallSites(mod *ir.Module, callee *ir.Function, st *State) {
	n := len(callee.Params)
	origRetType := callee.Params[n-2].Typ.(ir.PointerType).Elem

	for _, f := range mod.Funcs {
		for _, bb := range f.Blocks {
			for _, ins := range append([]ir.Instruction{}, bb.Ins...) {
				call, ok := ins.(*ir.Call)
				if !ok || call.Target.Direct != callee {
					continue
				}
				rewriteCallSite(mod, bb, call, origRetType, st)
			}
		}
	}
}

func rewriteCallSite(mod *ir.Module, bb *ir.BasicBlock, call *ir.Call, retType ir.Type, st *State) {
	allocaOrig := &ir.Alloca{Elem: retType, Name: "callret_orig"}
	allocaDup := &ir.Alloca{Elem: retType, Name: "callret_dup"}
	loadOrig := &ir.Load{Addr: allocaOrig, Elem: retType}
	loadDup := &ir.Load{Addr: allocaDup, Elem: retType}

	bb.InsertBefore(call, allocaOrig)
	bb.InsertBefore(call, allocaDup)
	bb.InsertAfter(call, loadOrig)
	bb.InsertAfter(loadOrig, loadDup)

	oldResult := ir.Value(call)
	call.Args = append(call.Args, allocaOrig, allocaDup)
	call.Typ = ir.VoidType{}

	replaceAllUses(mod, oldResult, loadOrig)

	st.Dups.Add(allocaOrig, allocaDup)
	st.Dups.Add(loadOrig, loadDup)
}
