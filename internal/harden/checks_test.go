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

func TestBuildComparisonScalarEmitsEqCmp(t *testing.T) {
	f := &ir.Function{Name: "f"}
	bb := &ir.BasicBlock{ID: f.NewBlockID(), Func: f}
	f.AddBlock(bb)
	f.Entry = bb

	orig := &ir.BinOp{Op: ir.BinAdd, Typ: ir.I64}
	dup := &ir.BinOp{Op: ir.BinAdd, Typ: ir.I64}

	st := newState(DefaultConfig())
	st.Dups.Add(ir.Value(orig), ir.Value(dup))
	rm := ir.BuildReachabilityMatrix(f)

	v := &ir.BasicBlock{}
	cmp := buildComparison(v, bb, ir.Value(orig), rm, st)

	assert.NotNil(t, cmp)
	c, ok := cmp.(*ir.Cmp)
	assert.True(t, ok)
	assert.Equal(t, ir.Value(orig), c.X)
	assert.Equal(t, ir.Value(dup), c.Y)
}

func TestBuildComparisonReturnsNilWithoutDuplicate(t *testing.T) {
	f := &ir.Function{Name: "f"}
	bb := &ir.BasicBlock{ID: f.NewBlockID(), Func: f}
	f.AddBlock(bb)
	f.Entry = bb

	orig := &ir.BinOp{Op: ir.BinAdd, Typ: ir.I64}
	st := newState(DefaultConfig())
	rm := ir.BuildReachabilityMatrix(f)

	cmp := buildComparison(&ir.BasicBlock{}, bb, ir.Value(orig), rm, st)
	assert.Nil(t, cmp)
}

func TestPointerCheckWorthwhileRequiresReachableStore(t *testing.T) {
	f := &ir.Function{Name: "f"}
	c := &ir.BasicBlock{ID: f.NewBlockID(), Func: f}
	f.AddBlock(c)
	f.Entry = c

	ptr := &ir.Alloca{Elem: ir.I64, Name: "ptr"}
	c.Append(ptr)
	c.Append(&ir.Store{Val: ir.ConstInt{Typ: ir.I64, V: 1}, Addr: ptr})
	c.Term = &ir.Ret{Val: nil}

	rm := ir.BuildReachabilityMatrix(f)
	assert.True(t, pointerCheckWorthwhile(c, ir.Value(ptr), rm))

	unused := &ir.Alloca{Elem: ir.I64, Name: "unused"}
	assert.False(t, pointerCheckWorthwhile(c, ir.Value(unused), rm))
}

func TestInsertChecksForFuncSplitsOnStoreAndEmitsErrorEdge(t *testing.T) {
	mod := ir.NewModule("m")
	unprotected := &ir.Global{Name: "sink", Typ: ir.I64}
	mod.AddGlobal(unprotected)

	fd := &ir.Function{Name: "f_dup", Ret: ir.VoidType{}}
	bb := &ir.BasicBlock{ID: fd.NewBlockID(), Func: fd}
	fd.AddBlock(bb)
	fd.Entry = bb

	val := &ir.BinOp{Op: ir.BinAdd, Typ: ir.I64}
	valDup := &ir.BinOp{Op: ir.BinAdd, Typ: ir.I64}
	bb.Append(val)
	bb.Append(valDup)
	store := &ir.Store{Val: val, Addr: unprotected}
	bb.Append(store)
	bb.Term = &ir.Ret{Val: nil}

	st := newState(DefaultConfig())
	st.Dups.Add(ir.Value(val), ir.Value(valDup))

	insertChecksForFunc(mod, fd, st)

	var condBr *ir.CondBr
	for _, b := range fd.Blocks {
		if cb, ok := b.Term.(*ir.CondBr); ok {
			condBr = cb
		}
	}
	assert.NotNil(t, condBr, "a store whose duplicated scalar operand disagrees must branch to an error block")
}
