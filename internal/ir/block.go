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

package ir

import "fmt"

// BasicBlock is a straight-line run of instructions ending in exactly
// one Terminator, shaped directly after the teacher's
// ssa.BasicBlock{Id, Phi, Ins, Pred, Term}.
type BasicBlock struct {
	ID   int
	Func *Function
	Phis []*Phi
	Ins  []Instruction
	Term Terminator
	Pred []*BasicBlock
}

func (bb *BasicBlock) String() string { return fmt.Sprintf("bb_%d", bb.ID) }

// AddPred records bb as a predecessor once; duplicate registration (e.g.
// re-splitting an already-split edge) is a no-op.
func (bb *BasicBlock) addPred(p *BasicBlock) {
	for _, q := range bb.Pred {
		if q == p {
			return
		}
	}
	bb.Pred = append(bb.Pred, p)
}

func (bb *BasicBlock) removePred(p *BasicBlock) {
	out := bb.Pred[:0]
	for _, q := range bb.Pred {
		if q != p {
			out = append(out, q)
		}
	}
	bb.Pred = out
}

// Append adds an instruction to the end of the block's instruction list
// and records the block as its owner.
func (bb *BasicBlock) Append(i Instruction) {
	i.setBlock(bb)
	bb.Ins = append(bb.Ins, i)
}

// InsertAfter inserts nu immediately after the instruction old within
// the block (old must already be present). Used to place a cloned
// instruction directly following the original it duplicates.
func (bb *BasicBlock) InsertAfter(old, nu Instruction) {
	for idx, v := range bb.Ins {
		if v == old {
			nu.setBlock(bb)
			bb.Ins = append(bb.Ins, nil)
			copy(bb.Ins[idx+2:], bb.Ins[idx+1:])
			bb.Ins[idx+1] = nu
			return
		}
	}
	panic("ir: InsertAfter: instruction not found in block")
}

// InsertBefore inserts nu immediately before the instruction old within
// the block (old must already be present). Used by the ABI-fixup pass
// to stage stack slots ahead of a call site it is rewriting.
func (bb *BasicBlock) InsertBefore(old, nu Instruction) {
	for idx, v := range bb.Ins {
		if v == old {
			nu.setBlock(bb)
			bb.Ins = append(bb.Ins, nil)
			copy(bb.Ins[idx+1:], bb.Ins[idx:])
			bb.Ins[idx] = nu
			return
		}
	}
	panic("ir: InsertBefore: instruction not found in block")
}

// Index returns the position of i within the block's instruction list,
// or -1 if absent.
func (bb *BasicBlock) Index(i Instruction) int {
	for idx, v := range bb.Ins {
		if v == i {
			return idx
		}
	}
	return -1
}

// Remove deletes i from the block's instruction list. Used by the
// trivial-duplication elision rule to drop a clone that turned out
// bit-identical to the instruction it duplicates.
func (bb *BasicBlock) Remove(i Instruction) {
	out := bb.Ins[:0]
	for _, v := range bb.Ins {
		if v != i {
			out = append(out, v)
		}
	}
	bb.Ins = out
}
