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
	"path/filepath"
	"strings"

	"github.com/sword-hardening/eddi/internal/ir"
)

// ExcludeListPass runs before annotation collection (C1) and combines two
// independent policies:
//
//   - a body-visibility gate, needed because EDDI cannot duplicate what it
//     cannot see: declaration-only functions, recognized intrinsics, and
//     any function matching a Config.ExcludeNames glob are marked
//     "exclude" outright.
//   - the actual policy of original_source/passes/MarkToExclude.cpp:41-94:
//     every function or global that is a strong, externally-visible
//     definition (Fn.isStrongDefinitionForLinker()) is defaulted to
//     "exclude" unless it already carries an explicit "exclude" or
//     "to_duplicate" annotation. The original does not touch declarations
//     or intrinsics at all — it defaults every externally-visible,
//     non-opted-in *definition* to excluded so EDDI never silently changes
//     the ABI of a symbol another translation unit links against. A
//     pre-existing "to_harden" annotation still wins downstream: this pass
//     injects a second, redundant "exclude" entry for it exactly as the
//     original does, and AnnotationCollector's first-entry-wins conflict
//     resolution (§7) keeps the explicit "to_harden" and discards it.
type ExcludeListPass struct{}

func (p *ExcludeListPass) Apply(mod *ir.Module, st *State) error {
	for _, f := range mod.Funcs {
		if f.IsDeclaration() || f.Intrinsic || matchesAny(st.Config.ExcludeNames, f.Name) {
			mod.AnnotateFunc(f, "exclude")
			continue
		}
		if isReservedName(f.Name) {
			continue
		}
		if isStrongFuncDefinition(f) && !funcHasAnnotation(mod, f, "exclude", "to_duplicate") {
			mod.AnnotateFunc(f, "exclude")
		}
	}
	for _, g := range mod.Globals {
		if isReservedName(g.Name) {
			continue
		}
		if isStrongGlobalDefinition(g) && !valueHasAnnotation(mod, ir.Value(g), "exclude", "to_duplicate") {
			mod.Annotate(g, "exclude")
		}
	}
	return nil
}

// isReservedName mirrors GV.getName().starts_with("llvm."): reserved
// intrinsic/metadata names are never subject to the default-exclude
// policy.
func isReservedName(name string) bool {
	return strings.HasPrefix(name, "llvm.")
}

// isStrongFuncDefinition mirrors the subset of
// llvm::GlobalValue::isStrongDefinitionForLinker this IR can express: a
// function with a body that is visible outside its own translation unit.
func isStrongFuncDefinition(f *ir.Function) bool {
	return !f.IsDeclaration() && f.Linkage == ir.LinkageExternal
}

// isStrongGlobalDefinition is isStrongFuncDefinition's global-variable
// analogue: a global counts as a definition once it carries an
// initializer, rather than merely being declared.
func isStrongGlobalDefinition(g *ir.Global) bool {
	return g.Init != nil && g.Linkage == ir.LinkageExternal
}

func funcHasAnnotation(mod *ir.Module, f *ir.Function, prefixes ...string) bool {
	for _, e := range mod.Annotations.Raw {
		if e.Func == f && hasAnnotationPrefix(e.Literal, prefixes) {
			return true
		}
	}
	return false
}

func valueHasAnnotation(mod *ir.Module, v ir.Value, prefixes ...string) bool {
	for _, e := range mod.Annotations.Raw {
		if e.Value == v && hasAnnotationPrefix(e.Literal, prefixes) {
			return true
		}
	}
	return false
}

func hasAnnotationPrefix(literal string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(literal, p) {
			return true
		}
	}
	return false
}

func matchesAny(globs []string, name string) bool {
	for _, g := range globs {
		if ok, _ := filepath.Match(g, name); ok {
			return true
		}
	}
	return false
}
