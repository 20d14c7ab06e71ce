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

// Pass is implemented by each pipeline component, mirroring the
// teacher's ssa.Pass interface (ssa/compile.go): read the module,
// mutate it in place, report a fatal error only when the input IR
// itself is malformed (§7's "Fatal" category).
type Pass interface {
	Apply(mod *ir.Module, st *State) error
}

type PassDescriptor struct {
	Pass Pass
	Name string
}

// Passes is the strict pass order required by §5: annotation collection
// before closure, closure before any cloning, return-by-reference and
// global duplication before instruction duplication, vtable duplication
// after instruction duplication (it needs the "_dup" functions to
// exist), constructor-list fixup last.
var Passes = [...]PassDescriptor{
	{Name: "Exclude List", Pass: &ExcludeListPass{}},
	{Name: "Annotation Collection", Pass: &AnnotationCollector{}},
	{Name: "Protection Closure", Pass: &ProtectionClosure{}},
	{Name: "Return By Reference Rewrite", Pass: &ReturnByReferenceRewrite{}},
	{Name: "Global Duplication", Pass: &GlobalDuplicator{}},
	{Name: "Instruction Duplication", Pass: &InstructionDuplicator{}},
	{Name: "Consistency Check Insertion", Pass: &CheckInserter{}},
	{Name: "VTable Duplication", Pass: &VTableDuplicator{}},
	{Name: "Constructor List Fixup", Pass: &CtorFixup{}},
}

// Run is the ssa.Compile-equivalent driver: it executes every pass in
// Passes over mod in order, short-circuiting only on a fatal error
// (§7's "Fatal" category — malformed input IR). Non-fatal findings
// accumulate in st.Diags and never stop the pipeline.
func Run(mod *ir.Module, cfg Config) (*State, error) {
	st := newState(cfg)
	for _, p := range Passes {
		if err := p.Pass.Apply(mod, st); err != nil {
			return st, err
		}
		if cfg.Debug {
			st.Dups.CheckSymmetric()
		}
	}
	return st, nil
}
