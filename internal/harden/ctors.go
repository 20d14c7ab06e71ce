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

// CtorFixup is C9: the module's global-constructor array is rebuilt so
// each {priority, ctor, data} entry points at ctor's "_dup" sibling
// where one exists, per §4.9.
type CtorFixup struct{}

func (p *CtorFixup) Apply(mod *ir.Module, st *State) error {
	if mod.GlobalCtors == nil {
		return nil
	}
	entries := make([]ir.CtorEntry, len(mod.GlobalCtors.Entries))
	for i, e := range mod.GlobalCtors.Entries {
		ctor := e.Ctor
		if dup := st.FuncDup[e.Ctor]; dup != nil {
			ctor = dup
			if err := st.Advance(e.Ctor, StateCtorsFixed); err != nil {
				st.Diags.Add(err)
			}
		}
		entries[i] = ir.CtorEntry{Priority: e.Priority, Ctor: ctor, Data: e.Data}
	}
	mod.GlobalCtors.Entries = entries
	return nil
}
