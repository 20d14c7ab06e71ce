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

package eddi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/sword-hardening/eddi/internal/ir"
)

// buildAddOne constructs `func addOne(x i64) i64 { return x + 1 }`,
// annotated to_harden, as the smallest module that exercises the full
// C1-C9 pipeline: a return value forced through an out-parameter, a
// duplicated body, and inserted consistency checks.
func buildAddOne() (*ir.Module, *ir.Function) {
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
	return mod, f
}

func TestHardenProducesADuplicatedSibling(t *testing.T) {
	mod, f := buildAddOne()

	report, err := Harden(mod)

	assert.NoError(t, err)
	assert.Contains(t, report.DuplicatedFunctions, f.Name)
	assert.NotNil(t, mod.FindFunc("addOne_dup"))
}

func TestHardenHonorsAlternateMemMapOption(t *testing.T) {
	mod, _ := buildAddOne()

	_, err := Harden(mod, WithAlternateMemMap(true))
	assert.NoError(t, err)

	dup := mod.FindFunc("addOne_dup")
	assert.NotNil(t, dup)
	// x, x_dup, ret_orig, ret_dup
	assert.Len(t, dup.Params, 4)
}

func TestDiagnoseSurfacesAnnotationConflicts(t *testing.T) {
	mod, f := buildAddOne()
	mod.AnnotateFunc(f, "exclude")

	_, diags, err := Diagnose(mod)

	assert.NoError(t, err)
	assert.NotEmpty(t, diags)
}

func TestWithModeRejectsUnknownMode(t *testing.T) {
	assert.Panics(t, func() {
		WithMode("not-a-real-mode")
	})
}
