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

// AnnotationCollector is C1: read the module's annotation array,
// resolve aliases, classify each value's annotation, and force
// "exclude" on volatile globals and globals in the metadata section
// (§4.1). At most one annotation per value is kept; the rest are
// reported as AnnotationConflict diagnostics (§7).
type AnnotationCollector struct{}

func (p *AnnotationCollector) Apply(mod *ir.Module, st *State) error {
	// Resolve aliases first: rewrite every use of the alias value to
	// its aliasee, and annotate the aliasee in the alias's place, the
	// way EDDI.cpp's preprocess() does with Module::aliases(). Function
	// entries are never aliases (a function has no alias concept here).
	for i := range mod.Annotations.Raw {
		e := &mod.Annotations.Raw[i]
		if e.Value != nil && e.Aliasee != nil {
			replaceAllUses(mod, e.Value, e.Aliasee)
			e.Value = e.Aliasee
		}
	}

	seenVals := make(map[ir.Value]bool)
	seenFns := make(map[*ir.Function]bool)
	for _, e := range mod.Annotations.Raw {
		ann, ok := ir.LiteralAnnotation(e.Literal)
		if !ok {
			continue
		}
		if e.Func != nil {
			if !seenFns[e.Func] {
				mod.Annotations.ResolvedFuncs[e.Func] = ann
				seenFns[e.Func] = true
				continue
			}
			kept := mod.Annotations.ResolvedFuncs[e.Func]
			st.Diags.Add(&AnnotationConflict{
				Value:     e.Func.Name,
				Kept:      kept.String(),
				Discarded: []string{ann.String()},
			})
			continue
		}

		if g, isGlobal := e.Value.(*ir.Global); isGlobal && (g.Volatile || g.Section == ir.MetadataSection) {
			ann = ir.AnnotateExclude
		}
		if !seenVals[e.Value] {
			mod.Annotations.Resolved[e.Value] = ann
			seenVals[e.Value] = true
			continue
		}
		kept := mod.Annotations.Resolved[e.Value]
		st.Diags.Add(&AnnotationConflict{
			Value:     e.Value.String(),
			Kept:      kept.String(),
			Discarded: []string{ann.String()},
		})
	}
	return nil
}

// replaceAllUses rewrites every operand slot across mod that currently
// points at old to point at nu instead, walking every function's
// instructions, phis, and terminators. There is no persistent use-list
// in this IR (see ir.Uses), so this is a full module walk — acceptable
// since alias resolution runs once, early, before any cloning.
func replaceAllUses(mod *ir.Module, old, nu ir.Value) {
	for _, f := range mod.Funcs {
		for _, bb := range f.Blocks {
			for _, ph := range bb.Phis {
				for _, slot := range ph.Usages() {
					if *slot == old {
						*slot = nu
					}
				}
			}
			for _, ins := range bb.Ins {
				for _, slot := range ins.Usages() {
					if *slot == old {
						*slot = nu
					}
				}
			}
			if bb.Term != nil {
				for _, slot := range bb.Term.Usages() {
					if *slot == old {
						*slot = nu
					}
				}
			}
		}
	}
}
