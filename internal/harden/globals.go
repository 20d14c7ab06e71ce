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

// GlobalDuplicator is C4: every global in HardenVars gets a "_dup"
// sibling of matching type, linkage, initializer, and alignment,
// placed immediately after the original (interleaved) or at the tail
// of the module's global list (segregated) according to
// Config.AlternateMemMap, grounded on EDDI.cpp's duplicateGlobals.
type GlobalDuplicator struct{}

func (p *GlobalDuplicator) Apply(mod *ir.Module, st *State) error {
	var interleaved []*ir.Global
	var segregated []*ir.Global

	for _, g := range mod.Globals {
		v := ir.Value(g)
		if !st.Sets.HardenVars[v] {
			interleaved = append(interleaved, g)
			continue
		}
		dup := &ir.Global{
			Name:        g.Name + "_dup",
			Typ:         g.Typ,
			Linkage:     g.Linkage,
			Init:        dupInit(g.Init, st),
			Section:     st.Config.DupSection,
			Align:       g.Align,
			ThreadLocal: g.ThreadLocal,
			DSOLocal:    g.DSOLocal,
			AddrSpace:   g.AddrSpace,
			Volatile:    g.Volatile,
			Constant:    g.Constant,
		}
		st.Dups.Add(v, ir.Value(dup))
		st.GlobalDup[g] = dup

		interleaved = append(interleaved, g, dup)
		segregated = append(segregated, dup)
	}

	// Matching EDDI.cpp's duplicateFnArgs layout convention: disabled
	// (segregated) keeps every original in its original slot and
	// appends every duplicate at the tail; enabled (interleaved) places
	// each duplicate immediately after its original.
	if st.Config.AlternateMemMap {
		mod.Globals = interleaved
	} else {
		mod.Globals = append(mod.Globals, segregated...)
	}
	return nil
}

// dupInit returns the initializer for a duplicate global: the
// original's, unchanged, so the two globals start out holding identical
// values. The duplicate is never repointed later; VTableDuplicator
// builds a separate vtable global of its own for the "_dup" methods.
func dupInit(init ir.Constant, st *State) ir.Constant {
	return init
}
