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

// VTableDuplicator is C8. For every protected constructor harvested by
// ProtectionClosure (C2), it builds a parallel vtable global whose
// function-pointer slots point at each method's "_dup" sibling, then
// repoints the constructor's "_dup" sibling's own vtable-install store
// at the new global.
type VTableDuplicator struct{}

func (p *VTableDuplicator) Apply(mod *ir.Module, st *State) error {
	for ctor, vt := range st.Ctors {
		if vt == nil {
			continue
		}
		ctorDup := st.FuncDup[ctor]
		if ctorDup == nil {
			continue
		}
		vtDup, ok := buildDupVTable(mod, vt, st)
		if !ok {
			st.Diags.Add(&StructuralError{Entity: vt.Name, Reason: "vtable initializer shape unsupported for duplication"})
			continue
		}
		if !retargetVTableStore(ctorDup, vt, vtDup) {
			st.Diags.Add(&StructuralError{Entity: ctorDup.Name, Reason: "could not find vtable-install store to retarget"})
			continue
		}
		if err := st.Advance(ctor, StateConstructorsFixed); err != nil {
			st.Diags.Add(err)
		}
	}
	return nil
}

// buildDupVTable materializes V_dup: same shape as V (a singleton struct
// wrapping an array of function pointers), each slot repointed at the
// original function's "_dup" sibling — or left as-is, with a warning,
// when no sibling exists (§4.8 step 2).
func buildDupVTable(mod *ir.Module, vt *ir.Global, st *State) (*ir.Global, bool) {
	strct, ok := vt.Init.(ir.ConstStruct)
	if !ok || len(strct.Fields) != 1 {
		return nil, false
	}
	arr, ok := strct.Fields[0].(ir.ConstArray)
	if !ok {
		return nil, false
	}

	newElts := make([]ir.Constant, len(arr.Elts))
	for i, elt := range arr.Elts {
		fp, ok := elt.(ir.ConstFuncPtr)
		if !ok {
			newElts[i] = elt
			continue
		}
		if dup := st.FuncDup[fp.Fn]; dup != nil {
			newElts[i] = ir.ConstFuncPtr{Fn: dup}
		} else {
			st.Diags.Add(&StructuralError{Entity: fp.Fn.Name, Reason: "no duplicate found for vtable slot, keeping original"})
			newElts[i] = elt
		}
	}

	newArr := ir.ConstArray{Typ: arr.Typ, Elts: newElts}
	newStruct := ir.ConstStruct{Typ: strct.Typ, Fields: []ir.Constant{newArr}}

	vtDup := &ir.Global{
		Name:     vt.Name + "_dup",
		Typ:      vt.Typ,
		Linkage:  vt.Linkage,
		Init:     newStruct,
		Section:  vt.Section,
		Align:    vt.Align,
		Constant: vt.Constant,
		DSOLocal: vt.DSOLocal,
	}
	mod.AddGlobal(vtDup)
	return vtDup, true
}

// retargetVTableStore finds, in ctorDup's body, the store that installs
// vt's address and rewrites its stored operand to point at vtDup
// instead, at the same GEP indices.
func retargetVTableStore(ctorDup *ir.Function, vt, vtDup *ir.Global) bool {
	for _, bb := range ctorDup.Blocks {
		for _, ins := range bb.Ins {
			s, ok := ins.(*ir.Store)
			if !ok {
				continue
			}
			g, ok := ir.StripNoopCasts(s.Val).(*ir.GEP)
			if !ok {
				if base, ok2 := ir.StripNoopCasts(s.Val).(*ir.Global); ok2 && base == vt {
					s.Val = vtDup
					return true
				}
				continue
			}
			if base, ok2 := ir.StripNoopCasts(g.Base).(*ir.Global); ok2 && base == vt {
				g.Base = vtDup
				return true
			}
		}
	}
	return false
}
