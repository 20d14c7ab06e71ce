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

type Linkage int

const (
	LinkageExternal Linkage = iota
	LinkageInternal
	LinkageAppending // reserved for the global-ctor-list array
)

// Function is a directed graph of BasicBlocks. A Function with a nil
// Entry (and no Blocks) is a declaration only — it has no body for the
// hardening passes to duplicate, and is therefore always excluded
// (see internal/harden/excludelist.go, grounded on MarkToExclude.cpp).
type Function struct {
	Name     string
	Params   []*Param
	Ret      Type
	Blocks   []*BasicBlock
	Entry    *BasicBlock
	Linkage  Linkage
	Variadic bool

	// Intrinsic marks a function that is recognized by name as a
	// runtime/compiler intrinsic (e.g. memcpy) rather than ordinary
	// user code; it is never a candidate for duplication.
	Intrinsic bool

	nextBlockID int
}

// Type returns the function's FuncType, used by ConstFuncPtr and by
// indirect-call signature doubling.
func (f *Function) Type() Type {
	params := make([]Type, len(f.Params))
	for i, p := range f.Params {
		params[i] = p.Typ
	}
	return FuncType{Params: params, Ret: f.Ret}
}

// IsDeclaration reports whether f has no body.
func (f *Function) IsDeclaration() bool {
	return f.Entry == nil && len(f.Blocks) == 0
}

// NewBlockID hands out a fresh, function-unique basic-block ID, used
// whenever a pass splits a block or inserts a new one (verification
// blocks, error-block clones, ...).
func (f *Function) NewBlockID() int {
	f.nextBlockID++
	for _, bb := range f.Blocks {
		if bb.ID >= f.nextBlockID {
			f.nextBlockID = bb.ID + 1
		}
	}
	id := f.nextBlockID
	f.nextBlockID++
	return id
}

// AddBlock appends bb to f's block list and sets bb.Func.
func (f *Function) AddBlock(bb *BasicBlock) {
	bb.Func = f
	f.Blocks = append(f.Blocks, bb)
}

// RemoveBlock deletes bb from f's block list. Callers are responsible
// for having already detached bb from the predecessor/successor graph.
func (f *Function) RemoveBlock(bb *BasicBlock) {
	out := f.Blocks[:0]
	for _, b := range f.Blocks {
		if b != bb {
			out = append(out, b)
		}
	}
	f.Blocks = out
}

// Param looks up a formal by name.
func (f *Function) Param(name string) *Param {
	for _, p := range f.Params {
		if p.Name == name {
			return p
		}
	}
	return nil
}
