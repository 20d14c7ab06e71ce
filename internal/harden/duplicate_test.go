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

func simpleHardenedFunc(name string) *ir.Function {
	f := &ir.Function{Name: name, Ret: ir.I64}
	f.Params = append(f.Params, &ir.Param{Name: "x", Typ: ir.I64})
	bb := &ir.BasicBlock{ID: f.NewBlockID(), Func: f}
	f.AddBlock(bb)
	f.Entry = bb
	add := &ir.BinOp{Op: ir.BinAdd, Typ: ir.I64, X: f.Params[0], Y: ir.ConstInt{Typ: ir.I64, V: 1}}
	bb.Append(add)
	bb.Term = &ir.Ret{Val: add}
	return f
}

func TestInstructionDuplicatorBuildsSiblingWithDoubledParams(t *testing.T) {
	mod := ir.NewModule("m")
	f := simpleHardenedFunc("f")
	mod.AddFunc(f)

	st := newState(DefaultConfig())
	st.Sets.HardenFns[f] = true

	p := &InstructionDuplicator{}
	err := p.Apply(mod, st)

	assert.NoError(t, err)
	fd := st.FuncDup[f]
	assert.NotNil(t, fd)
	assert.Equal(t, "f_dup", fd.Name)
	assert.Len(t, fd.Params, 2, "segregated layout doubles the single param to orig,dup")
	assert.Equal(t, StateBodyDuplicated, st.FuncStates[f])
}

func TestInstructionDuplicatorElidesTrivialStoreDuplicate(t *testing.T) {
	mod := ir.NewModule("m")
	unprotected := &ir.Global{Name: "unprotected", Typ: ir.I64}
	mod.AddGlobal(unprotected)

	f := &ir.Function{Name: "f", Ret: ir.VoidType{}}
	bb := &ir.BasicBlock{ID: f.NewBlockID(), Func: f}
	f.AddBlock(bb)
	f.Entry = bb
	bb.Append(&ir.Store{Val: ir.ConstInt{Typ: ir.I64, V: 42}, Addr: unprotected})
	bb.Term = &ir.Ret{Val: nil}
	mod.AddFunc(f)

	st := newState(DefaultConfig())
	st.Sets.HardenFns[f] = true

	p := &InstructionDuplicator{}
	err := p.Apply(mod, st)
	assert.NoError(t, err)

	fd := st.FuncDup[f]
	var storeCount int
	for _, ins := range fd.Entry.Ins {
		if _, ok := ins.(*ir.Store); ok {
			storeCount++
		}
	}
	assert.Equal(t, 1, storeCount, "a store whose operands have no protected duplicate clones identical and must be elided")
}

func TestInstructionDuplicatorDuplicatesPureComputation(t *testing.T) {
	mod := ir.NewModule("m")
	f := simpleHardenedFunc("f")
	mod.AddFunc(f)

	st := newState(DefaultConfig())
	st.Sets.HardenFns[f] = true

	p := &InstructionDuplicator{}
	err := p.Apply(mod, st)
	assert.NoError(t, err)

	fd := st.FuncDup[f]
	var addCount int
	for _, ins := range fd.Entry.Ins {
		if _, ok := ins.(*ir.BinOp); ok {
			addCount++
		}
	}
	assert.Equal(t, 2, addCount, "the pure add depends on a doubled param and must get a duplicate")
}

func TestInstructionDuplicatorSkipsDeclarations(t *testing.T) {
	mod := ir.NewModule("m")
	decl := &ir.Function{Name: "decl", Ret: ir.VoidType{}}
	mod.AddFunc(decl)

	st := newState(DefaultConfig())
	st.Sets.HardenFns[decl] = true

	p := &InstructionDuplicator{}
	err := p.Apply(mod, st)

	assert.NoError(t, err)
	assert.Nil(t, st.FuncDup[decl])
}
