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

import (
	"regexp"

	"github.com/oleiade/lane"
	"github.com/sword-hardening/eddi/internal/ir"
)

// ProtectionSets is §3's HardenFns/HardenVars pair, computed once by
// ProtectionClosure and consulted read-only by every later pass.
type ProtectionSets struct {
	HardenFns  map[*ir.Function]bool
	HardenVars map[ir.Value]bool
}

func newProtectionSets() *ProtectionSets {
	return &ProtectionSets{
		HardenFns:  make(map[*ir.Function]bool),
		HardenVars: make(map[ir.Value]bool),
	}
}

// constructorPattern captures both name components of a demangled
// "C::D(...)" name, grounded on EDDI.cpp's ConstructorRegex. Go's regexp
// has no backreferences, so isConstructorName compares C and D itself.
var constructorPattern = regexp.MustCompile(`^(\w+)::(\w+)\(`)

// isConstructorName reports whether name is a demangled "C::C(...)"
// constructor name.
func isConstructorName(name string) bool {
	m := constructorPattern.FindStringSubmatch(name)
	return m != nil && m[1] == m[2]
}

// ProtectionClosure is C2: seed the protection sets from Annotations,
// then iterate two fixed points — variable propagation through loads
// and stores, and function propagation through direct calls and
// constructor vtables — driven by explicit worklists (lane.Queue) per
// spec §9 ("drive C2 with an explicit worklist; never recurse into the
// call graph").
type ProtectionClosure struct{}

func (p *ProtectionClosure) Apply(mod *ir.Module, st *State) error {
	sets := st.Sets

	for v, ann := range mod.Annotations.Resolved {
		if ann == ir.AnnotateToHarden {
			sets.HardenVars[v] = true
		}
	}
	for f, ann := range mod.Annotations.ResolvedFuncs {
		if ann == ir.AnnotateToHarden {
			sets.HardenFns[f] = true
		}
	}

	for {
		changedVars := propagateVars(mod, sets)
		changedFns := propagateFns(mod, sets, st)
		if !changedVars && !changedFns {
			break
		}
	}
	return nil
}

// propagateVars runs §4.2 step 2 to a local fixed point: walking every
// HardenVars member's users, a store into it protects the stored value,
// a load from it protects the loaded result, a call passing it protects
// the callee.
func propagateVars(mod *ir.Module, sets *ProtectionSets) bool {
	q := lane.NewQueue()
	for v := range sets.HardenVars {
		q.Enqueue(v)
	}

	changed := false
	add := func(v ir.Value) {
		if !sets.HardenVars[v] {
			sets.HardenVars[v] = true
			changed = true
			q.Enqueue(v)
		}
	}

	for !q.Empty() {
		v := q.Dequeue().(ir.Value)
		for _, f := range mod.Funcs {
			for _, use := range ir.Uses(f, v) {
				switch ins := use.(type) {
				case *ir.Store:
					if ins.Addr == v {
						add(ins.Val)
					}
				case *ir.Load:
					if ins.Addr == v {
						add(ins)
					}
				case *ir.Call:
					if ins.Target.Direct != nil {
						sets.HardenFns[ins.Target.Direct] = true
					}
				}
			}
		}
	}
	return changed
}

// propagateFns runs §4.2 step 3 to a local fixed point: for every
// constructor in HardenFns, harvest its vtable's virtual methods; for
// every function in HardenFns, add every direct callee not annotated
// exclude/to_duplicate.
func propagateFns(mod *ir.Module, sets *ProtectionSets, st *State) bool {
	q := lane.NewQueue()
	for f := range sets.HardenFns {
		q.Enqueue(f)
	}

	changed := false
	add := func(f *ir.Function) {
		if !sets.HardenFns[f] {
			sets.HardenFns[f] = true
			changed = true
			q.Enqueue(f)
		}
	}

	for !q.Empty() {
		f := q.Dequeue().(*ir.Function)

		if isConstructorName(f.Name) {
			if _, known := st.Ctors[f]; !known {
				vt := findVTableStore(f)
				st.Ctors[f] = vt
				for _, fn := range virtualMethodsOf(vt) {
					add(fn)
				}
			}
		}

		for _, bb := range f.Blocks {
			for _, ins := range bb.Ins {
				call, ok := ins.(*ir.Call)
				if !ok || call.Target.Direct == nil {
					continue
				}
				callee := call.Target.Direct
				ann := mod.Annotations.ResolvedFuncs[callee]
				if ann == ir.AnnotateExclude || ann == ir.AnnotateToDuplicate {
					continue
				}
				add(callee)
			}
		}
	}
	return changed
}

// findVTableStore looks for a store inside fn whose value operand is a
// GEP based at a Global — the shape a vtable-install store takes,
// grounded on EDDI.cpp's isVTableStore. Returns nil if no such store is
// found.
func findVTableStore(fn *ir.Function) *ir.Global {
	for _, bb := range fn.Blocks {
		for _, ins := range bb.Ins {
			st, ok := ins.(*ir.Store)
			if !ok {
				continue
			}
			// A vtable-install store's value operand is the address of the
			// vtable itself, computed as a GEP off the vtable global;
			// this IR models that address as a GEP instruction rather
			// than a constant expression, since Global is not a Constant.
			if gep, ok := ir.StripNoopCasts(st.Val).(*ir.GEP); ok {
				if g, ok := ir.StripNoopCasts(gep.Base).(*ir.Global); ok {
					return g
				}
			}
		}
	}
	return nil
}

// virtualMethodsOf extracts every function pointer from vtable's
// initializer, which must be a singleton struct wrapping a constant
// array (§3 constructor registry, §4.8 step 1). A shape mismatch or nil
// vtable yields no methods rather than an error — a class with no
// virtual methods is common and not a defect.
func virtualMethodsOf(vtable *ir.Global) []*ir.Function {
	if vtable == nil || vtable.Init == nil {
		return nil
	}
	strct, ok := vtable.Init.(ir.ConstStruct)
	if !ok || len(strct.Fields) != 1 {
		return nil
	}
	arr, ok := strct.Fields[0].(ir.ConstArray)
	if !ok {
		return nil
	}
	var out []*ir.Function
	for _, elt := range arr.Elts {
		if fp, ok := elt.(ir.ConstFuncPtr); ok {
			out = append(out, fp.Fn)
		}
	}
	return out
}
