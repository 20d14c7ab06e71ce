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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/sword-hardening/eddi/internal/ir"
)

func TestPassesRunsExcludeListBeforeAnnotationCollectionBeforeClosure(t *testing.T) {
	names := make([]string, len(Passes))
	for i, pd := range Passes {
		names[i] = pd.Name
	}
	assert.Equal(t, []string{
		"Exclude List",
		"Annotation Collection",
		"Protection Closure",
		"Return By Reference Rewrite",
		"Global Duplication",
		"Instruction Duplication",
		"Consistency Check Insertion",
		"VTable Duplication",
		"Constructor List Fixup",
	}, names)
}

func TestRunAdvancesAProtectedFunctionThroughEveryPass(t *testing.T) {
	mod := ir.NewModule("m")
	f := &ir.Function{Name: "addOne", Ret: ir.I64}
	f.Params = append(f.Params, &ir.Param{Name: "x", Typ: ir.I64})
	bb := &ir.BasicBlock{ID: f.NewBlockID(), Func: f}
	f.AddBlock(bb)
	f.Entry = bb
	add := &ir.BinOp{Op: ir.BinAdd, Typ: ir.I64, X: f.Params[0], Y: ir.ConstInt{Typ: ir.I64, V: 1}}
	bb.Append(add)
	bb.Term = &ir.Ret{Val: add}
	mod.AddFunc(f)
	mod.AnnotateFunc(f, "to_harden")

	st, err := Run(mod, DefaultConfig())

	assert.NoError(t, err)
	assert.NotNil(t, mod.FindFunc("addOne_dup"))
	assert.Equal(t, StateBodyDuplicated, st.FuncStates[f], "an ordinary function is never a constructor, so it stops advancing once its body is duplicated")
}

func TestRunInDebugModeChecksDuplicateMapSymmetryWithoutError(t *testing.T) {
	mod := ir.NewModule("m")
	f := &ir.Function{Name: "addOne", Ret: ir.I64}
	f.Params = append(f.Params, &ir.Param{Name: "x", Typ: ir.I64})
	bb := &ir.BasicBlock{ID: f.NewBlockID(), Func: f}
	f.AddBlock(bb)
	f.Entry = bb
	add := &ir.BinOp{Op: ir.BinAdd, Typ: ir.I64, X: f.Params[0], Y: ir.ConstInt{Typ: ir.I64, V: 1}}
	bb.Append(add)
	bb.Term = &ir.Ret{Val: add}
	mod.AddFunc(f)
	mod.AnnotateFunc(f, "to_harden")

	cfg := DefaultConfig()
	cfg.Debug = true
	_, err := Run(mod, cfg)
	assert.NoError(t, err)
}
