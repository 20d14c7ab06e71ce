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
	"math"
)

// Value is anything that can appear as an instruction operand: an
// instruction's own result, a function parameter, a global, or a
// constant. Identity is pointer identity for everything except the
// constant types, which compare by value.
type Value interface {
	ValueType() Type
	String() string
}

// Param is a function formal parameter.
type Param struct {
	Name string
	Typ  Type
}

func (p *Param) ValueType() Type { return p.Typ }
func (p *Param) String() string  { return "%" + p.Name }

// Constant is a compile-time-known Value.
type Constant interface {
	Value
	irconst()
}

type ConstInt struct {
	Typ Type
	V   int64
}

func (c ConstInt) ValueType() Type { return c.Typ }
func (c ConstInt) String() string  { return fmt.Sprintf("%d", c.V) }
func (ConstInt) irconst()          {}

type ConstFloat struct {
	Typ Type
	V   float64
}

func (c ConstFloat) ValueType() Type { return c.Typ }
func (c ConstFloat) String() string  { return fmt.Sprintf("%g", c.V) }
func (ConstFloat) irconst()          {}

// ConstNull is the null pointer constant of pointer type Typ.
type ConstNull struct {
	Typ Type
}

func (c ConstNull) ValueType() Type { return c.Typ }
func (c ConstNull) String() string  { return "null" }
func (ConstNull) irconst()          {}

// ConstArray is a constant array, used for vtable and global-ctor-list
// initializers.
type ConstArray struct {
	Typ  Type
	Elts []Constant
}

func (c ConstArray) ValueType() Type { return c.Typ }
func (c ConstArray) String() string  { return fmt.Sprintf("%v", c.Elts) }
func (ConstArray) irconst()          {}

// ConstStruct is a constant struct, used for the singleton wrapper of a
// vtable's function-pointer array and for global-ctor-list entries.
type ConstStruct struct {
	Typ    Type
	Fields []Constant
}

func (c ConstStruct) ValueType() Type { return c.Typ }
func (c ConstStruct) String() string  { return fmt.Sprintf("%v", c.Fields) }
func (ConstStruct) irconst()          {}

// ConstFuncPtr is a pointer to a Function used as a constant, e.g. inside
// a vtable slot or a global-ctor-list entry.
type ConstFuncPtr struct {
	Fn *Function
}

func (c ConstFuncPtr) ValueType() Type { return PointerType{Elem: c.Fn.Type()} }
func (c ConstFuncPtr) String() string  { return "@" + c.Fn.Name }
func (ConstFuncPtr) irconst()          {}

// ConstGEP is a constant-expression GEP over a constant (typically
// global) base, e.g. the implicit "&g[0]" that shows up as an operand
// rather than as a GEP instruction. A protected base requires
// materializing a parallel ConstGEP over its duplicated global.
type ConstGEP struct {
	Base    Constant
	Elem    Type
	Indices []int64
}

func (c ConstGEP) ValueType() Type { return PointerType{Elem: c.Elem} }

func (c ConstGEP) String() string {
	return fmt.Sprintf("gep(%s, %v)", c.Base, c.Indices)
}
func (ConstGEP) irconst() {}

func constEq(a, b Constant) bool {
	switch x := a.(type) {
	case ConstInt:
		y, ok := b.(ConstInt)
		return ok && x.V == y.V
	case ConstFloat:
		y, ok := b.(ConstFloat)
		if !ok {
			return false
		}
		// NaN-tolerant, matching the "unordered-equal" comparison rule.
		if math.IsNaN(x.V) && math.IsNaN(y.V) {
			return true
		}
		return x.V == y.V
	case ConstNull:
		_, ok := b.(ConstNull)
		return ok
	case ConstFuncPtr:
		y, ok := b.(ConstFuncPtr)
		return ok && x.Fn == y.Fn
	default:
		return false
	}
}
