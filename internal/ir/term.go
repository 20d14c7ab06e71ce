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

import (
	"fmt"
	"sort"
	"strings"
)

// Successors enumerates a terminator's target blocks, mirroring the
// teacher's IrSuccessors/_SwitchSuccessors iterator shape (ssa/ir.go).
type Successors interface {
	Next() bool
	Block() *BasicBlock
}

// Terminator is the last node of a basic block. Terminators are never
// cloned — control flow is a shared resource — only their operands are
// rewritten.
type Terminator interface {
	String() string
	Successors() Successors
	Usages() []*Value
	irterm()
}

type sliceSuccessors struct {
	blocks []*BasicBlock
	i      int
}

func (s *sliceSuccessors) Next() bool {
	s.i++
	return s.i <= len(s.blocks)
}

func (s *sliceSuccessors) Block() *BasicBlock {
	return s.blocks[s.i-1]
}

// ---- Br (unconditional) ----

type Br struct {
	Target *BasicBlock
}

func (b *Br) String() string           { return fmt.Sprintf("br bb_%d", b.Target.ID) }
func (b *Br) Usages() []*Value         { return nil }
func (b *Br) Successors() Successors   { return &sliceSuccessors{blocks: []*BasicBlock{b.Target}} }
func (*Br) irterm()                    {}

// ---- CondBr ----

type CondBr struct {
	Cond  Value
	True  *BasicBlock
	False *BasicBlock
}

func (c *CondBr) String() string {
	return fmt.Sprintf("br %s, bb_%d, bb_%d", c.Cond, c.True.ID, c.False.ID)
}

func (c *CondBr) Usages() []*Value { return []*Value{&c.Cond} }

func (c *CondBr) Successors() Successors {
	return &sliceSuccessors{blocks: []*BasicBlock{c.True, c.False}}
}
func (*CondBr) irterm() {}

// ---- Switch ----

type Switch struct {
	Val     Value
	Default *BasicBlock
	Cases   map[int64]*BasicBlock
}

func (s *Switch) String() string {
	keys := make([]int64, 0, len(s.Cases))
	for k := range s.Cases {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	parts := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%d: bb_%d", k, s.Cases[k].ID))
	}
	parts = append(parts, fmt.Sprintf("default: bb_%d", s.Default.ID))
	return fmt.Sprintf("switch %s {%s}", s.Val, strings.Join(parts, ", "))
}

func (s *Switch) Usages() []*Value { return []*Value{&s.Val} }

func (s *Switch) Successors() Successors {
	blocks := make([]*BasicBlock, 0, len(s.Cases)+1)
	keys := make([]int64, 0, len(s.Cases))
	for k := range s.Cases {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	for _, k := range keys {
		blocks = append(blocks, s.Cases[k])
	}
	blocks = append(blocks, s.Default)
	return &sliceSuccessors{blocks: blocks}
}
func (*Switch) irterm() {}

// ---- Ret ----

// Ret carries at most one value initially; after the return-by-reference
// rewrite, every protected function's Ret carries none (the value is
// stored to the out-parameters instead).
type Ret struct {
	Val Value // nil for void returns
}

func (r *Ret) String() string {
	if r.Val == nil {
		return "ret void"
	}
	return fmt.Sprintf("ret %s", r.Val)
}

func (r *Ret) Usages() []*Value {
	if r.Val == nil {
		return nil
	}
	return []*Value{&r.Val}
}

func (r *Ret) Successors() Successors { return &sliceSuccessors{} }
func (*Ret) irterm()                  {}

// ---- IndirectBr ----

type IndirectBr struct {
	Addr    Value
	Targets []*BasicBlock
}

func (b *IndirectBr) String() string {
	names := make([]string, len(b.Targets))
	for i, t := range b.Targets {
		names[i] = fmt.Sprintf("bb_%d", t.ID)
	}
	return fmt.Sprintf("indirectbr %s, [%s]", b.Addr, strings.Join(names, ", "))
}

func (b *IndirectBr) Usages() []*Value       { return []*Value{&b.Addr} }
func (b *IndirectBr) Successors() Successors { return &sliceSuccessors{blocks: b.Targets} }
func (*IndirectBr) irterm()                  {}
