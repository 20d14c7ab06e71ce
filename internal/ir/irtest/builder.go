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

// Package irtest is a minimal hand-rolled builder DSL for constructing
// ir.Module/ir.Function fixtures directly, the way the teacher's
// ssa/testsetup.go hand-builds basic-block graphs for dominance and
// reachability tests instead of parsing a textual IR format.
package irtest

import "github.com/sword-hardening/eddi/internal/ir"

// Builder accumulates basic blocks for a single function.
type Builder struct {
	Func *ir.Function
}

// NewFunc starts a new function named name with the given parameter
// names (all typed i64, the only shapes these tests need) and return
// type ret.
func NewFunc(name string, paramNames []string, ret ir.Type) *Builder {
	f := &ir.Function{Name: name, Ret: ret}
	for _, p := range paramNames {
		f.Params = append(f.Params, &ir.Param{Name: p, Typ: ir.I64})
	}
	return &Builder{Func: f}
}

// Block creates and registers a new basic block.
func (b *Builder) Block() *ir.BasicBlock {
	bb := &ir.BasicBlock{ID: b.Func.NewBlockID()}
	b.Func.AddBlock(bb)
	if b.Func.Entry == nil {
		b.Func.Entry = bb
	}
	return bb
}

// Br sets bb's terminator to an unconditional branch to to and wires up
// predecessor bookkeeping.
func Br(bb, to *ir.BasicBlock) {
	bb.Term = &ir.Br{Target: to}
	to.Pred = append(to.Pred, bb)
}

// CondBr sets bb's terminator to a conditional branch.
func CondBr(bb *ir.BasicBlock, cond ir.Value, t, f *ir.BasicBlock) {
	bb.Term = &ir.CondBr{Cond: cond, True: t, False: f}
	t.Pred = append(t.Pred, bb)
	f.Pred = append(f.Pred, bb)
}

// Ret sets bb's terminator to a return of val (nil for void).
func Ret(bb *ir.BasicBlock, val ir.Value) {
	bb.Term = &ir.Ret{Val: val}
}

// Add appends a binary-add instruction and returns its result value.
func Add(bb *ir.BasicBlock, x, y ir.Value) ir.Value {
	i := &ir.BinOp{Op: ir.BinAdd, Typ: ir.I64, X: x, Y: y}
	bb.Append(i)
	return i
}

// LoadI64 appends a 64-bit load from addr.
func LoadI64(bb *ir.BasicBlock, addr ir.Value) ir.Value {
	i := &ir.Load{Addr: addr, Elem: ir.I64}
	bb.Append(i)
	return i
}

// StoreI64 appends a 64-bit store of val to addr.
func StoreI64(bb *ir.BasicBlock, val, addr ir.Value) {
	bb.Append(&ir.Store{Val: val, Addr: addr})
}

// Const wraps an int64 constant as an ir.Value.
func Const(v int64) ir.Value { return ir.ConstInt{Typ: ir.I64, V: v} }

// NewModule wraps one or more functions/globals into a Module.
func NewModule(name string, funcs []*ir.Function, globals []*ir.Global) *ir.Module {
	m := ir.NewModule(name)
	for _, g := range globals {
		m.AddGlobal(g)
	}
	for _, f := range funcs {
		m.AddFunc(f)
	}
	return m
}
