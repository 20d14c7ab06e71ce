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

// dataCorruptionHandlerName is the externally-defined trap every error
// block calls into on a detected mismatch, per §4.10.
const dataCorruptionHandlerName = "DataCorruption_Handler"

// This IR's terminator set has no dedicated "unreachable" instruction;
// a void return after the trap call is used as its proxy, since the
// trap is documented as never returning and nothing downstream
// dereferences the value of an error block's terminator.
func dataCorruptionHandler(mod *ir.Module) *ir.Function {
	if f := mod.FindFunc(dataCorruptionHandlerName); f != nil {
		return f
	}
	f := &ir.Function{Name: dataCorruptionHandlerName, Ret: ir.VoidType{}, Linkage: ir.LinkageExternal}
	mod.AddFunc(f)
	return f
}

// errBlockForEdge builds one error block for a single failing edge: a
// call into the trap handler followed by the void-return proxy for
// "unreachable". Every mismatch edge gets its own distinct block rather
// than sharing one, so the block's label stays meaningful for
// debugging without any separate template/clone/delete bookkeeping.
func errBlockForEdge(mod *ir.Module, fd *ir.Function, label string, st *State) *ir.BasicBlock {
	clone := &ir.BasicBlock{ID: fd.NewBlockID(), Func: fd}
	handler := dataCorruptionHandler(mod)
	call := &ir.Call{Target: ir.CallTarget{Direct: handler}, Typ: ir.VoidType{}}
	clone.Append(call)
	clone.Term = &ir.Ret{Val: nil}
	fd.AddBlock(clone)
	_ = label
	return clone
}
